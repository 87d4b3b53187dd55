package parsers

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// Reading is one temperature metric reported by an adapter.
// Critical is nil when neither a crit nor a high threshold was reported.
type Reading struct {
	Name     string
	Value    float64
	Critical *float64
}

// Adapter is a sensor chip and the temperature readings found under it.
type Adapter struct {
	Name     string
	Bus      string
	Readings []Reading
}

// SensorReport is the structured form of one run of the sensor tool.
// Adapters keep the order in which the tool printed them.
type SensorReport struct {
	Adapters []Adapter
}

var (
	// A value like "+45.0°C", "-3 °C" or "45.0 C" at the start of the value part
	tempValueRe = regexp.MustCompile(`^\s*([+-]?\d+(?:\.\d+)?)\s*(?:°|º)?C\b`)
	critRe      = regexp.MustCompile(`\bcrit\s*=\s*([+-]?\d+(?:\.\d+)?)\s*(?:°|º)?C`)
	highRe      = regexp.MustCompile(`\bhigh\s*=\s*([+-]?\d+(?:\.\d+)?)\s*(?:°|º)?C`)
)

// ParseSensors parses the output of lm-sensors style tools.
//
// Two layouts are accepted. The usual one names each chip on a line of its
// own followed by an "Adapter:" bus line:
//
//	k10temp-pci-00c3
//	Adapter: PCI adapter
//	Tctl:         +45.0°C  (high = +70.0°C)
//
// Some configurations omit the chip line, in which case the "Adapter:" line
// itself opens the section and its value is used as the adapter name.
//
// Lines that are not chip headers, adapter lines or temperature metrics are
// skipped, and adapters without any temperature reading are dropped. Output
// without any adapters yields an empty report, not an error.
func ParseSensors(output string) SensorReport {
	var report SensorReport

	var (
		current     *Adapter // points into report.Adapters
		fromHeader  bool     // current was opened by a chip line
		lastReading *Reading
	)

	openAdapter := func(name string) {
		// A repeated adapter name replaces the earlier section
		for i := range report.Adapters {
			if report.Adapters[i].Name == name {
				report.Adapters[i].Readings = nil
				report.Adapters[i].Bus = ""
				current = &report.Adapters[i]
				lastReading = nil
				return
			}
		}
		report.Adapters = append(report.Adapters, Adapter{Name: name})
		current = &report.Adapters[len(report.Adapters)-1]
		lastReading = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		raw := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		indented := raw[0] == ' ' || raw[0] == '\t'
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "Adapter:") {
			bus := strings.TrimSpace(strings.TrimPrefix(line, "Adapter:"))
			if current != nil && fromHeader && current.Bus == "" && len(current.Readings) == 0 {
				current.Bus = bus
				continue
			}
			if bus == "" {
				continue
			}
			openAdapter(bus)
			current.Bus = bus
			fromHeader = false
			continue
		}

		colon := strings.Index(line, ":")

		if !indented && colon < 0 {
			openAdapter(line)
			fromHeader = true
			continue
		}

		if colon < 0 {
			// Continuation line, e.g. "(crit = +100.0°C, hyst = +95.0°C)"
			if lastReading != nil && lastReading.Critical == nil {
				lastReading.Critical = parseThreshold(line)
			}
			continue
		}

		if current == nil {
			continue
		}

		name := strings.TrimSpace(line[:colon])
		rest := line[colon+1:]
		m := tempValueRe.FindStringSubmatch(rest)
		if name == "" || m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}

		lastReading = current.set(Reading{
			Name:     name,
			Value:    value,
			Critical: parseThreshold(rest),
		})
	}

	// Banners ("No sensors found!") and fan/voltage-only chips carry no temperatures
	kept := report.Adapters[:0]
	for _, a := range report.Adapters {
		if len(a.Readings) > 0 {
			kept = append(kept, a)
		}
	}
	report.Adapters = kept

	return report
}

// set adds r, replacing an existing reading with the same name in place.
// It returns a pointer to the stored reading.
func (a *Adapter) set(r Reading) *Reading {
	for i := range a.Readings {
		if a.Readings[i].Name == r.Name {
			a.Readings[i] = r
			return &a.Readings[i]
		}
	}
	a.Readings = append(a.Readings, r)
	return &a.Readings[len(a.Readings)-1]
}

// parseThreshold extracts the crit value, falling back to high.
func parseThreshold(s string) *float64 {
	for _, re := range []*regexp.Regexp{critRe, highRe} {
		if m := re.FindStringSubmatch(s); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				return &v
			}
		}
	}
	return nil
}

// Map returns the report as adapter -> metric -> reading.
func (r SensorReport) Map() map[string]map[string]Reading {
	out := make(map[string]map[string]Reading, len(r.Adapters))
	for _, a := range r.Adapters {
		readings := make(map[string]Reading, len(a.Readings))
		for _, rd := range a.Readings {
			readings[rd.Name] = rd
		}
		out[a.Name] = readings
	}
	return out
}

// Len returns the total number of readings across all adapters.
func (r SensorReport) Len() int {
	n := 0
	for _, a := range r.Adapters {
		n += len(a.Readings)
	}
	return n
}
