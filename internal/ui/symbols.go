package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Check passed, capability available
	SymbolFail     = "✗" // Check failed
	SymbolPending  = "○" // Not probed yet
	SymbolComplete = "●"
)
