package config

import (
	"gopkg.in/yaml.v3"
)

// Marshal renders cfg as YAML in a stable, human-oriented layout.
// Durations are written as strings ("2s") rather than nanosecond integers
// so the output can be pasted back into amdtop.yaml.
func Marshal(cfg *Config) ([]byte, error) {
	doc, err := mapping(
		"version", cfg.Version,
		"intervals", mustMapping(
			"graphs", cfg.Intervals.Graphs.String(),
			"processes", cfg.Intervals.Processes.String(),
			"temperature", cfg.Intervals.Temperature.String(),
		),
		"display", cfg.Display,
		"thresholds", cfg.Thresholds,
		"system", mustMapping(
			"timeout", cfg.System.Timeout.String(),
		),
		"sensors", mustMapping(
			"command", cfg.Sensors.Command,
			"timeout", cfg.Sensors.Timeout.String(),
		),
		"network", mustMapping(
			"enabled", cfg.Network.Enabled,
			"timeout", cfg.Network.Timeout.String(),
		),
		"gpu", mustMapping(
			"backend", cfg.GPU.Backend,
			"sysfs_root", cfg.GPU.SysfsRoot,
			"timeout", cfg.GPU.Timeout.String(),
		),
		"exporter", cfg.Exporter,
	)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// mapping builds an ordered YAML mapping node from alternating key/value pairs.
func mapping(kv ...interface{}) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(kv); i += 2 {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: kv[i].(string)}

		value, ok := kv[i+1].(*yaml.Node)
		if !ok {
			value = &yaml.Node{}
			if err := value.Encode(kv[i+1]); err != nil {
				return nil, err
			}
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}

// mustMapping is mapping for scalar-only values, which cannot fail to encode.
func mustMapping(kv ...interface{}) *yaml.Node {
	node, err := mapping(kv...)
	if err != nil {
		panic(err)
	}
	return node
}
