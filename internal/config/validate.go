package config

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/amdtop/internal/errors"
)

// Limits enforced by Validate.
const (
	MinInterval       = 100 * time.Millisecond
	MaxGraphHistory   = 3600
	MaxProcessCount   = 100
	MaxPartitionCount = 32
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but amdtop only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade amdtop or lower the version field.")
	}

	if err := validateIntervals(cfg.Intervals); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'intervals' section in your amdtop.yaml.")
	}

	if err := validateDisplay(cfg.Display); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'display' section in your amdtop.yaml.")
	}

	if err := validateThresholdConfig(cfg.Thresholds); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'thresholds' section in your amdtop.yaml.")
	}

	if err := validateSources(cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'sensors', 'network' and 'gpu' sections in your amdtop.yaml.")
	}

	return nil
}

// validateIntervals checks that every sampling interval is positive and not
// so short that it would hammer the OS.
func validateIntervals(iv IntervalConfig) error {
	checks := []struct {
		name  string
		value time.Duration
	}{
		{"graphs", iv.Graphs},
		{"processes", iv.Processes},
		{"temperature", iv.Temperature},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("intervals.%s needs to be positive (got %s)", c.name, c.value)
		}
		if c.value < MinInterval {
			return fmt.Errorf("intervals.%s is too short (%s) - minimum is %s", c.name, c.value, MinInterval)
		}
	}
	return nil
}

// validateDisplay range-checks buffer capacity and list sizes.
func validateDisplay(d DisplayConfig) error {
	if d.GraphHistory < 1 || d.GraphHistory > MaxGraphHistory {
		return fmt.Errorf("display.graph_history needs to be 1-%d (got %d)", MaxGraphHistory, d.GraphHistory)
	}
	if d.ProcessCount < 1 || d.ProcessCount > MaxProcessCount {
		return fmt.Errorf("display.process_count needs to be 1-%d (got %d)", MaxProcessCount, d.ProcessCount)
	}
	if d.PartitionCount < 0 || d.PartitionCount > MaxPartitionCount {
		return fmt.Errorf("display.partition_count needs to be 0-%d (got %d)", MaxPartitionCount, d.PartitionCount)
	}
	return nil
}

// validateThresholdConfig checks each threshold pair. Percent metrics are
// bounded to 0-100; temperatures get a looser 0-150 bound.
func validateThresholdConfig(tc ThresholdConfig) error {
	if err := validateThresholds("cpu", tc.CPU, 100); err != nil {
		return err
	}
	if err := validateThresholds("memory", tc.Memory, 100); err != nil {
		return err
	}
	if err := validateThresholds("gpu", tc.GPU, 100); err != nil {
		return err
	}
	return validateThresholds("temperature", tc.Temperature, 150)
}

// validateThresholds checks a threshold configuration for a single metric type.
func validateThresholds(name string, thresh ThresholdValues, upper int) error {
	if thresh.Warning < 0 || thresh.Warning > upper {
		return fmt.Errorf("thresholds.%s.warning needs to be 0-%d (got %d)", name, upper, thresh.Warning)
	}
	if thresh.Critical < 0 || thresh.Critical > upper {
		return fmt.Errorf("thresholds.%s.critical needs to be 0-%d (got %d)", name, upper, thresh.Critical)
	}
	// 0 means "use default" for either side, so only compare when both are set
	if thresh.Warning > 0 && thresh.Critical > 0 && thresh.Warning >= thresh.Critical {
		return fmt.Errorf("thresholds.%s.warning (%d) is higher than critical (%d) - should be the other way around", name, thresh.Warning, thresh.Critical)
	}
	return nil
}

// validateSources checks the external facility settings.
func validateSources(cfg *Config) error {
	if cfg.System.Timeout <= 0 {
		return fmt.Errorf("system.timeout needs to be positive (got %s)", cfg.System.Timeout)
	}
	if cfg.Sensors.Command == "" {
		return fmt.Errorf("sensors.command is empty - set it to 'sensors' or the path of your sensor tool")
	}
	if cfg.Sensors.Timeout <= 0 {
		return fmt.Errorf("sensors.timeout needs to be positive (got %s)", cfg.Sensors.Timeout)
	}
	if cfg.Network.Timeout <= 0 {
		return fmt.Errorf("network.timeout needs to be positive (got %s)", cfg.Network.Timeout)
	}
	if cfg.GPU.Timeout <= 0 {
		return fmt.Errorf("gpu.timeout needs to be positive (got %s)", cfg.GPU.Timeout)
	}
	switch cfg.GPU.Backend {
	case GPUBackendAuto, GPUBackendAMD, GPUBackendNvidia, GPUBackendNone:
	default:
		return fmt.Errorf("gpu.backend '%s' isn't recognized - use auto, amdgpu, nvidia or none", cfg.GPU.Backend)
	}
	return nil
}
