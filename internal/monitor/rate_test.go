package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateFirstSampleIsZero(t *testing.T) {
	rc := NewRateCalculator()

	assert.Equal(t, 0.0, rc.Rate("eth0/rx", 123456, at(0)))
	assert.True(t, rc.Has("eth0/rx"))
}

func TestRateMonotonicSequence(t *testing.T) {
	rc := NewRateCalculator()

	readings := []struct {
		value float64
		sec   float64
	}{
		{0, 0},
		{1000, 1},
		{1000, 2},
		{4000, 4},
		{4500, 4.5},
	}

	var prevValue, prevSec float64
	for i, r := range readings {
		got := rc.Rate("k", r.value, at(r.sec))
		assert.GreaterOrEqual(t, got, 0.0)
		if i == 0 {
			assert.Equal(t, 0.0, got)
		} else {
			assert.InDelta(t, (r.value-prevValue)/(r.sec-prevSec), got, 1e-9)
		}
		prevValue, prevSec = r.value, r.sec
	}
}

func TestRateCounterReset(t *testing.T) {
	rc := NewRateCalculator()

	rc.Rate("k", 5000, at(0))
	assert.Equal(t, 0.0, rc.Rate("k", 100, at(1)), "negative delta clamps to zero")

	// the reset reading becomes the new baseline
	assert.Equal(t, 900.0, rc.Rate("k", 1000, at(2)))
}

func TestRateClockAnomaly(t *testing.T) {
	tests := []struct {
		name string
		sec  float64
	}{
		{"same timestamp", 5},
		{"clock went backwards", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewRateCalculator()
			rc.Rate("k", 100, at(5))

			assert.Equal(t, 0.0, rc.Rate("k", 500, at(tt.sec)))

			// stored anyway, so the next call measures from it
			assert.Equal(t, 100.0, rc.Rate("k", 600, at(tt.sec+1)))
		})
	}
}

func TestRateKeysAreIndependent(t *testing.T) {
	rc := NewRateCalculator()

	rc.Rate("100/recv", 1000, at(0))
	rc.Rate("100/send", 500, at(0))

	assert.Equal(t, 1000.0, rc.Rate("100/recv", 3000, at(2)))
	assert.Equal(t, 0.0, rc.Rate("100/send", 500, at(2)))
	assert.Equal(t, 2, rc.Len())
}

func TestRateForget(t *testing.T) {
	rc := NewRateCalculator()
	rc.Rate("k", 100, at(0))

	rc.Forget("k")
	assert.False(t, rc.Has("k"))
	assert.Equal(t, 0.0, rc.Rate("k", 900, at(1)), "forgotten key starts over")
}
