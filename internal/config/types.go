package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// GPU backend names accepted by gpu.backend.
const (
	GPUBackendAuto   = "auto"
	GPUBackendAMD    = "amdgpu"
	GPUBackendNvidia = "nvidia"
	GPUBackendNone   = "none"
)

// Config represents the complete amdtop.yaml configuration file.
type Config struct {
	Version    int             `yaml:"version" mapstructure:"version"`
	Intervals  IntervalConfig  `yaml:"intervals" mapstructure:"intervals"`
	Display    DisplayConfig   `yaml:"display" mapstructure:"display"`
	Thresholds ThresholdConfig `yaml:"thresholds" mapstructure:"thresholds"`
	System     SystemConfig    `yaml:"system" mapstructure:"system"`
	Sensors    SensorsConfig   `yaml:"sensors" mapstructure:"sensors"`
	Network    NetworkConfig   `yaml:"network" mapstructure:"network"`
	GPU        GPUConfig       `yaml:"gpu" mapstructure:"gpu"`
	Exporter   ExporterConfig  `yaml:"exporter" mapstructure:"exporter"`
}

// IntervalConfig holds the independent sampling interval of each metric family.
type IntervalConfig struct {
	// Graphs drives CPU, memory, disk, interface and GPU sampling.
	Graphs time.Duration `yaml:"graphs" mapstructure:"graphs"`

	// Processes drives the process-network correlator.
	Processes time.Duration `yaml:"processes" mapstructure:"processes"`

	// Temperature drives the external sensor tool.
	Temperature time.Duration `yaml:"temperature" mapstructure:"temperature"`
}

// DisplayConfig controls how much data is retained and shown.
type DisplayConfig struct {
	// GraphHistory is the ring buffer capacity for every graphed metric.
	GraphHistory int `yaml:"graph_history" mapstructure:"graph_history"`

	// ProcessCount is how many top network processes are reported.
	ProcessCount int `yaml:"process_count" mapstructure:"process_count"`

	// PartitionCount is how many disk partitions are reported.
	PartitionCount int `yaml:"partition_count" mapstructure:"partition_count"`
}

// ThresholdConfig holds warning/critical levels used to color values.
type ThresholdConfig struct {
	CPU         ThresholdValues `yaml:"cpu" mapstructure:"cpu"`
	Memory      ThresholdValues `yaml:"memory" mapstructure:"memory"`
	GPU         ThresholdValues `yaml:"gpu" mapstructure:"gpu"`
	Temperature ThresholdValues `yaml:"temperature" mapstructure:"temperature"`
}

// ThresholdValues is a warning/critical pair. Percent metrics use 0-100,
// temperatures use degrees Celsius.
type ThresholdValues struct {
	Warning  int `yaml:"warning" mapstructure:"warning"`
	Critical int `yaml:"critical" mapstructure:"critical"`
}

// SystemConfig controls the host-wide counters read on the graphs interval.
type SystemConfig struct {
	// Timeout bounds one graphs sample (CPU, memory, disk, partitions and
	// interfaces). The GPU query inside it keeps gpu.timeout.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SensorsConfig controls the external temperature tool.
type SensorsConfig struct {
	// Command is the executable invoked with no arguments (lm-sensors by default).
	Command string `yaml:"command" mapstructure:"command"`

	// Timeout bounds a single invocation. A hung tool would otherwise stall sampling.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// NetworkConfig controls the process-network correlator.
type NetworkConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// GPUConfig selects the GPU query facility.
type GPUConfig struct {
	// Backend is one of auto, amdgpu, nvidia or none.
	Backend string `yaml:"backend" mapstructure:"backend"`

	// SysfsRoot is where amdgpu cards are discovered (card*/device).
	SysfsRoot string `yaml:"sysfs_root" mapstructure:"sysfs_root"`

	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ExporterConfig controls the optional Prometheus endpoint.
type ExporterConfig struct {
	// Address to listen on, e.g. ":9101". Empty disables the exporter.
	Address string `yaml:"address" mapstructure:"address"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Intervals: IntervalConfig{
			Graphs:      1 * time.Second,
			Processes:   2 * time.Second,
			Temperature: 5 * time.Second,
		},
		Display: DisplayConfig{
			GraphHistory:   60,
			ProcessCount:   10,
			PartitionCount: 3,
		},
		Thresholds: ThresholdConfig{
			CPU:         ThresholdValues{Warning: 70, Critical: 90},
			Memory:      ThresholdValues{Warning: 70, Critical: 90},
			GPU:         ThresholdValues{Warning: 70, Critical: 90},
			Temperature: ThresholdValues{Warning: 70, Critical: 85},
		},
		System: SystemConfig{
			Timeout: 3 * time.Second,
		},
		Sensors: SensorsConfig{
			Command: "sensors",
			Timeout: 3 * time.Second,
		},
		Network: NetworkConfig{
			Enabled: true,
			Timeout: 2 * time.Second,
		},
		GPU: GPUConfig{
			Backend:   GPUBackendAuto,
			SysfsRoot: "/sys/class/drm",
			Timeout:   2 * time.Second,
		},
	}
}
