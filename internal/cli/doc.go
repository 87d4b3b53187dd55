// Package cli implements the amdtop command-line interface.
//
// Each Cobra command loads the effective configuration, builds a
// monitor.Engine and hands it to a front end:
//
//	amdtop               - live dashboard (same as "amdtop monitor")
//	amdtop snapshot      - sample a few times and print text or JSON
//	amdtop probe         - report which optional facilities are available
//	amdtop config show   - print the merged configuration as YAML
//	amdtop serve         - headless sampling behind a Prometheus endpoint
//	amdtop version       - build information
//	amdtop completion    - shell completion scripts
//
// # Flag Handling
//
// Global flags (--config, --verbose) are defined on the root command.
// --verbose turns on debug logging; while the dashboard owns the terminal,
// log output goes to amdtop-debug.log instead of the screen.
//
// # Machine Output
//
// Commands with --json wrap their output in JSONEnvelope, and failures are
// reported as a JSONError with a stable code (see ErrorToJSON).
package cli
