package monitor

import (
	"sync"
	"time"
)

// RateCalculator turns cumulative counter readings into per-second rates.
//
// Call Rate exactly once per key per poll: every call replaces the stored
// baseline, so a second call in the same poll would see a near-zero delta.
type RateCalculator struct {
	mu        sync.Mutex
	baselines map[string]counterReading
}

type counterReading struct {
	value float64
	at    time.Time
}

// NewRateCalculator creates an empty rate calculator.
func NewRateCalculator() *RateCalculator {
	return &RateCalculator{baselines: make(map[string]counterReading)}
}

// Rate records value for key at now and returns the per-second rate since
// the previous reading. The result is never negative:
//   - the first reading for a key returns 0
//   - a non-positive elapsed time returns 0 (the reading still becomes the baseline)
//   - a counter that went backwards (reset, restarted process) returns 0
func (r *RateCalculator) Rate(key string, value float64, now time.Time) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.baselines[key]
	r.baselines[key] = counterReading{value: value, at: now}
	if !ok {
		return 0
	}

	dt := now.Sub(prev.at).Seconds()
	if dt <= 0 {
		return 0
	}

	delta := value - prev.value
	if delta < 0 {
		delta = 0
	}
	return delta / dt
}

// Forget drops the baseline for key so the next reading starts fresh.
func (r *RateCalculator) Forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.baselines, key)
}

// Has reports whether a baseline exists for key.
func (r *RateCalculator) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.baselines[key]
	return ok
}

// Len returns the number of tracked keys.
func (r *RateCalculator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.baselines)
}
