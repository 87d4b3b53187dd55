package monitor

import (
	"strings"

	"github.com/rileyhilliard/amdtop/internal/monitor/parsers"
)

// Important temperature categories.
const (
	CategoryCPU         = "CPU"
	CategoryGPU         = "GPU"
	CategoryMotherboard = "Motherboard"
	CategoryStorage     = "Storage"
)

// CategoryRule derives one important temperature from the sensor adapters.
// Rules are evaluated in order against adapters in the order the tool
// printed them; the first adapter that yields a reading wins.
type CategoryRule struct {
	Category string

	// Adapter selects candidate adapters by name. Nil matches every adapter.
	Adapter func(name string) bool

	// Metric picks the representative reading from a candidate adapter.
	Metric func(a parsers.Adapter) (parsers.Reading, bool)

	// QualifyName reports the category as "Category (adapter)".
	QualifyName bool
}

// Name returns the display name of the temperature derived from adapter.
func (r CategoryRule) Name(adapter string) string {
	if r.QualifyName {
		return r.Category + " (" + adapter + ")"
	}
	return r.Category
}

// DefaultCategoryRules returns the built-in CPU, GPU, Motherboard and
// Storage rules. Callers may append their own for unusual hardware.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{
			Category: CategoryCPU,
			Adapter:  nameContains("k10temp", "coretemp", "zenpower", "cpu"),
			Metric:   firstOf(metricNamed("Tdie", "Tctl", "Package id 0", "Core 0"), metricContaining("temp")),
		},
		{
			Category:    CategoryGPU,
			Adapter:     nameContains("gpu", "nvidia", "amdgpu"),
			Metric:      firstOf(metricNamed("edge", "junction"), anyMetric),
			QualifyName: true,
		},
		{
			Category: CategoryMotherboard,
			Metric:   boardMetric,
		},
		{
			Category: CategoryStorage,
			Adapter:  nameContains("nvme", "ssd", "drivetemp"),
			Metric:   firstOf(metricNamed("Composite"), anyMetric),
		},
	}
}

// boardVendorPrefixes are Super I/O chip families found on desktop boards.
var boardVendorPrefixes = []string{"it86", "it87", "nct6", "w836", "w837", "f718", "asus"}

// boardMetric accepts a SYSTIN/Board metric on any adapter, or any metric
// on a known board vendor chip.
func boardMetric(a parsers.Adapter) (parsers.Reading, bool) {
	if r, ok := metricContaining("systin", "board")(a); ok {
		return r, true
	}
	name := strings.ToLower(a.Name)
	for _, p := range boardVendorPrefixes {
		if strings.HasPrefix(name, p) {
			return anyMetric(a)
		}
	}
	return parsers.Reading{}, false
}

// nameContains matches names containing any of subs, case-insensitively.
func nameContains(subs ...string) func(string) bool {
	return func(name string) bool {
		lower := strings.ToLower(name)
		for _, s := range subs {
			if strings.Contains(lower, strings.ToLower(s)) {
				return true
			}
		}
		return false
	}
}

// metricNamed picks the first of names present on the adapter, in the
// priority order given.
func metricNamed(names ...string) func(parsers.Adapter) (parsers.Reading, bool) {
	return func(a parsers.Adapter) (parsers.Reading, bool) {
		for _, n := range names {
			for _, r := range a.Readings {
				if strings.EqualFold(r.Name, n) {
					return r, true
				}
			}
		}
		return parsers.Reading{}, false
	}
}

// metricContaining picks the first reading whose name contains any of subs.
func metricContaining(subs ...string) func(parsers.Adapter) (parsers.Reading, bool) {
	match := nameContains(subs...)
	return func(a parsers.Adapter) (parsers.Reading, bool) {
		for _, r := range a.Readings {
			if match(r.Name) {
				return r, true
			}
		}
		return parsers.Reading{}, false
	}
}

func anyMetric(a parsers.Adapter) (parsers.Reading, bool) {
	if len(a.Readings) == 0 {
		return parsers.Reading{}, false
	}
	return a.Readings[0], true
}

func firstOf(pickers ...func(parsers.Adapter) (parsers.Reading, bool)) func(parsers.Adapter) (parsers.Reading, bool) {
	return func(a parsers.Adapter) (parsers.Reading, bool) {
		for _, p := range pickers {
			if r, ok := p(a); ok {
				return r, true
			}
		}
		return parsers.Reading{}, false
	}
}
