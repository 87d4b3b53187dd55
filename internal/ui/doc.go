// Package ui provides the styled building blocks shared by amdtop's plain
// command output and the dashboard.
//
// Colors are ANSI codes so output follows the terminal theme:
//
//	ColorSuccess   (green)  - Available capabilities, passing checks
//	ColorError     (red)    - Failures
//	ColorWarning   (yellow) - Degraded state
//	ColorMuted     (gray)   - Secondary text, suggestions
//
// Tables are bubbles table models so the dashboard and one-shot commands
// render rows the same way.
package ui
