package parsers

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// NvidiaQuery is the nvidia-smi argument list whose output ParseNvidiaSMI expects.
var NvidiaQuery = []string{
	"--query-gpu=name,utilization.gpu,memory.used,memory.total,temperature.gpu,power.draw",
	"--format=csv,noheader,nounits",
}

// GPUReading is one GPU's utilization as reported by a query tool.
type GPUReading struct {
	Name        string
	Percent     float64
	MemoryUsed  int64 // bytes
	MemoryTotal int64 // bytes
	Temperature int   // Celsius
	PowerWatts  int
}

// ParseNvidiaSMI parses GPU metrics from nvidia-smi CSV output, one GPU per line.
// Example line: "NVIDIA GeForce RTX 3080, 45, 2048, 10240, 65, 220"
//
// Returns nil, nil if no GPU is available (empty output or a driver message).
func ParseNvidiaSMI(output string) ([]GPUReading, error) {
	output = strings.TrimSpace(output)
	if output == "" || looksLikeSMIError(output) {
		return nil, nil
	}

	var gpus []GPUReading
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		gpu, err := parseNvidiaLine(line)
		if err != nil {
			return nil, err
		}
		gpus = append(gpus, gpu)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning nvidia-smi output: %w", err)
	}
	return gpus, nil
}

func looksLikeSMIError(output string) bool {
	lower := strings.ToLower(output)
	for _, marker := range []string{"no devices", "not found", "failed", "error"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func parseNvidiaLine(line string) (GPUReading, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return GPUReading{}, fmt.Errorf("nvidia-smi output has insufficient fields: expected 6, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	gpu := GPUReading{Name: fields[0]}

	if v, ok, err := optionalFloat(fields[1]); err != nil {
		return GPUReading{}, fmt.Errorf("failed to parse GPU utilization '%s': %w", fields[1], err)
	} else if ok {
		gpu.Percent = v
	}

	// Memory is reported in MiB
	if v, ok, err := optionalFloat(fields[2]); err != nil {
		return GPUReading{}, fmt.Errorf("failed to parse GPU memory used '%s': %w", fields[2], err)
	} else if ok {
		gpu.MemoryUsed = int64(v) * 1024 * 1024
	}
	if v, ok, err := optionalFloat(fields[3]); err != nil {
		return GPUReading{}, fmt.Errorf("failed to parse GPU memory total '%s': %w", fields[3], err)
	} else if ok {
		gpu.MemoryTotal = int64(v) * 1024 * 1024
	}

	if v, ok, err := optionalFloat(fields[4]); err != nil {
		return GPUReading{}, fmt.Errorf("failed to parse GPU temperature '%s': %w", fields[4], err)
	} else if ok {
		gpu.Temperature = int(v)
	}

	// Power may have decimal places; truncated to whole watts
	if v, ok, err := optionalFloat(fields[5]); err != nil {
		return GPUReading{}, fmt.Errorf("failed to parse GPU power '%s': %w", fields[5], err)
	} else if ok {
		gpu.PowerWatts = int(v)
	}

	return gpu, nil
}

// optionalFloat parses s, treating "" and "[N/A]" as absent.
func optionalFloat(s string) (float64, bool, error) {
	if s == "" || s == "[N/A]" || s == "N/A" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// ParseSysfsInt parses the single integer held by a sysfs attribute file,
// such as gpu_busy_percent or temp1_input.
func ParseSysfsInt(content string) (int64, error) {
	s := strings.TrimSpace(content)
	if s == "" {
		return 0, fmt.Errorf("empty sysfs value")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sysfs value '%s': %w", s, err)
	}
	return v, nil
}
