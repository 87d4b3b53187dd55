package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/amdtop/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the config file name looked up in the current directory.
	ConfigFileName = "amdtop.yaml"
	// UserConfigDir is the per-user config directory below $HOME.
	UserConfigDir = ".config/amdtop"
	// UserConfigFile is the per-user config file name.
	UserConfigFile = "config.yaml"
	// SystemConfigPath is the system-wide config file.
	SystemConfigPath = "/etc/amdtop/config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. AMDTOP_INTERVALS_GRAPHS=2s.
	EnvPrefix = "AMDTOP"
)

// Load reads config from the specified path, layered over defaults and
// environment overrides.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Check the path passed to --config, or drop the flag to use defaults")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. amdtop.yaml in current directory
// 3. ~/.config/amdtop/config.yaml
// 4. /etc/amdtop/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	for _, candidate := range searchPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", nil
}

// searchPaths returns the implicit config locations in priority order.
func searchPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ConfigFileName))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, UserConfigDir, UserConfigFile))
	}
	return append(paths, SystemConfigPath)
}

// LoadOrDefault loads config from the found path, or returns defaults
// (with environment overrides applied) if no file exists.
// The second return value is the path that was loaded, empty for defaults.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	if path == "" {
		cfg, err := parseConfig(newViper(), "")
		return cfg, "", err
	}

	cfg, err := Load(path)
	return cfg, path, err
}

// newViper returns a viper instance with every default registered so that
// AutomaticEnv can override keys that never appear in a file.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// setDefaults registers defaults from def.
func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("version", def.Version)

	v.SetDefault("intervals.graphs", def.Intervals.Graphs)
	v.SetDefault("intervals.processes", def.Intervals.Processes)
	v.SetDefault("intervals.temperature", def.Intervals.Temperature)

	v.SetDefault("display.graph_history", def.Display.GraphHistory)
	v.SetDefault("display.process_count", def.Display.ProcessCount)
	v.SetDefault("display.partition_count", def.Display.PartitionCount)

	for name, tv := range map[string]ThresholdValues{
		"cpu":         def.Thresholds.CPU,
		"memory":      def.Thresholds.Memory,
		"gpu":         def.Thresholds.GPU,
		"temperature": def.Thresholds.Temperature,
	} {
		v.SetDefault("thresholds."+name+".warning", tv.Warning)
		v.SetDefault("thresholds."+name+".critical", tv.Critical)
	}

	v.SetDefault("system.timeout", def.System.Timeout)

	v.SetDefault("sensors.command", def.Sensors.Command)
	v.SetDefault("sensors.timeout", def.Sensors.Timeout)

	v.SetDefault("network.enabled", def.Network.Enabled)
	v.SetDefault("network.timeout", def.Network.Timeout)

	v.SetDefault("gpu.backend", def.GPU.Backend)
	v.SetDefault("gpu.sysfs_root", def.GPU.SysfsRoot)
	v.SetDefault("gpu.timeout", def.GPU.Timeout)

	v.SetDefault("exporter.address", def.Exporter.Address)
}

// parseConfig converts viper config to our Config struct.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "your config"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+where)
	}

	cfg.GPU.Backend = strings.ToLower(strings.TrimSpace(cfg.GPU.Backend))

	return cfg, nil
}
