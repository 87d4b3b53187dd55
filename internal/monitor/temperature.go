package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/amdtop/internal/errors"
	"github.com/rileyhilliard/amdtop/internal/logger"
	"github.com/rileyhilliard/amdtop/internal/monitor/parsers"
)

// NamedTemperature is one derived important temperature.
type NamedTemperature struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Adapter  string  `json:"adapter"`
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
}

// TemperatureStore owns the latest sensor readings and their history.
//
// Readings are replaced wholesale on each successful Update. A failed query
// keeps the last good readings.
type TemperatureStore struct {
	mu      sync.RWMutex
	report  parsers.SensorReport
	updated time.Time

	runner  SensorRunner
	probe   *Probe
	history *History
	rules   []CategoryRule
	now     func() time.Time
	log     logger.Logger
}

// NewTemperatureStore creates a store that queries runner when the probe
// reports the sensors capability available. A nil rules slice uses
// DefaultCategoryRules.
func NewTemperatureStore(runner SensorRunner, probe *Probe, history *History, rules []CategoryRule, log logger.Logger) *TemperatureStore {
	if rules == nil {
		rules = DefaultCategoryRules()
	}
	if log == nil {
		log = logger.Noop()
	}
	if history == nil {
		history = NewHistory(DefaultHistorySize)
	}
	return &TemperatureStore{
		runner:  runner,
		probe:   probe,
		history: history,
		rules:   rules,
		now:     time.Now,
		log:     log,
	}
}

// SetClock replaces the time source used to stamp history samples.
func (s *TemperatureStore) SetClock(now func() time.Time) {
	s.now = now
}

// Update runs the sensor tool, replaces the readings and pushes every
// reading plus the important temperatures into history.
// Without the sensors capability this is a no-op.
func (s *TemperatureStore) Update(ctx context.Context) error {
	if s.runner == nil || (s.probe != nil && !s.probe.Available(CapSensors)) {
		return nil
	}

	output, err := s.runner.Run(ctx)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrQuery,
			"Sensor query failed",
			"Run the sensors command by hand to see what it reports.")
	}

	report := parsers.ParseSensors(output)
	now := s.now()

	s.mu.Lock()
	s.report = report
	s.updated = now
	s.mu.Unlock()

	for _, a := range report.Adapters {
		for _, r := range a.Readings {
			s.history.Push(SensorKey(a.Name, r.Name), r.Value, now)
		}
	}
	for _, t := range s.ImportantList() {
		s.history.Push(TemperatureKey(t.Name), t.Value, now)
	}

	s.log.Debug("parsed %d readings from %d adapters", report.Len(), len(report.Adapters))
	return nil
}

// AllTemperatures returns a copy of every reading as adapter -> metric -> reading.
func (s *TemperatureStore) AllTemperatures() map[string]map[string]SensorReading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[string]SensorReading, len(s.report.Adapters))
	for _, a := range s.report.Adapters {
		readings := make(map[string]SensorReading, len(a.Readings))
		for _, r := range a.Readings {
			readings[r.Name] = SensorReading{Value: r.Value, Critical: copyFloat(r.Critical)}
		}
		out[a.Name] = readings
	}
	return out
}

// Adapters returns a copy of the parsed adapters in tool order.
func (s *TemperatureStore) Adapters() []parsers.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]parsers.Adapter, len(s.report.Adapters))
	for i, a := range s.report.Adapters {
		out[i] = parsers.Adapter{Name: a.Name, Bus: a.Bus, Readings: append([]parsers.Reading(nil), a.Readings...)}
	}
	return out
}

// ImportantTemperatures recomputes the category temperatures as name -> value.
// Categories with no matching adapter are omitted.
func (s *TemperatureStore) ImportantTemperatures() map[string]float64 {
	list := s.ImportantList()
	out := make(map[string]float64, len(list))
	for _, t := range list {
		out[t.Name] = t.Value
	}
	return out
}

// ImportantList is ImportantTemperatures in rule order, with provenance.
func (s *TemperatureStore) ImportantList() []NamedTemperature {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []NamedTemperature
	for _, rule := range s.rules {
		for _, a := range s.report.Adapters {
			if rule.Adapter != nil && !rule.Adapter(a.Name) {
				continue
			}
			r, ok := rule.Metric(a)
			if !ok {
				continue
			}
			out = append(out, NamedTemperature{
				Name:     rule.Name(a.Name),
				Category: rule.Category,
				Adapter:  a.Name,
				Metric:   r.Name,
				Value:    r.Value,
			})
			break
		}
	}
	return out
}

// History returns the recorded samples for one adapter metric.
func (s *TemperatureStore) History(adapter, metric string) []Sample {
	return s.history.History(SensorKey(adapter, metric))
}

// LastUpdated returns when readings were last replaced. Zero before the first success.
func (s *TemperatureStore) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
