// Package parsers turns the text output of external tools into structured
// readings. Parsers never run the tools themselves and never import the
// monitor package, so they can be tested from fixture strings alone.
package parsers
