// Package monitor samples the local machine: CPU, memory, disk and network
// counters, a GPU, temperatures from an external sensor tool, and network
// throughput attributed to processes with open inet connections.
//
// # Components
//
//	Probe            - Decides once per capability whether a facility works
//	SystemSampler    - Host-wide counters and the GPU (the graphs family)
//	TemperatureStore - Runs the sensor tool and ranks important temperatures
//	Correlator       - Joins the connection table with per-process I/O counters
//	History          - Fixed-size ring buffer of samples per metric key
//	Scheduler        - Runs each family on its own interval
//	Engine           - Wires all of the above from a config.Config
//
// # Sampling
//
// Each family has an independent interval. The scheduler ticks at the
// greatest common divisor of the intervals and runs whatever is due; a
// failing task is logged and retried on its next interval without
// affecting the others.
//
// # Degraded capabilities
//
// A capability that is missing (no sensor tool, no permission to read the
// connection table, no GPU) is reported once through the probe and its
// component becomes a no-op. Everything else keeps working.
//
// # Rates
//
// Throughput is the change of a cumulative counter divided by elapsed time.
// The first reading of a counter yields zero and a counter that goes
// backwards (a reset or a new process) is clamped to zero.
//
// OS access goes through small interfaces (ConnectionSource, ProcessSource,
// SystemSource, SensorRunner, GPUSource); the testing subpackage provides
// scripted fakes for all of them.
package monitor
