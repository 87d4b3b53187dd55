// Package dashboard implements the interactive terminal view of a monitor.Engine.
//
// The dashboard follows the Bubble Tea Model-Update-View pattern. A tick
// fires at the scheduler's tick interval (the greatest common divisor of the
// sampling intervals) and runs whichever sampling tasks are due off the UI
// goroutine. When the tasks finish, the model takes a fresh engine snapshot
// and re-renders.
//
// # Layout
//
//	LayoutMinimal  (<80 cols)  - Values and bars only
//	LayoutStandard (80-140)    - Single column with braille graphs and sparklines
//	LayoutWide     (140+)      - System graphs left, temperatures and processes right
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit
//	r           - Probe capabilities again
//	s           - Cycle process sort order (total/download/upload/name)
//	j/k, ↑/↓    - Move through the process table
//	Enter       - Show the selected process's connections
//	Esc         - Back
//	?           - Toggle help overlay
package dashboard
