package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(sec float64) time.Time {
	return t0.Add(time.Duration(sec * float64(time.Second)))
}

func values(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}

func TestNewHistory(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{"default size", 0, DefaultHistorySize},
		{"negative size", -1, DefaultHistorySize},
		{"custom size", 100, 100},
		{"small size", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory(tt.size)
			assert.NotNil(t, h)
			assert.Equal(t, tt.expected, h.Size())
			assert.NotNil(t, h.metrics)
		})
	}
}

func TestHistoryPush(t *testing.T) {
	h := NewHistory(10)

	h.Push(KeyCPU, 50.0, at(0))

	assert.Equal(t, 1, h.Count(KeyCPU))
	samples := h.History(KeyCPU)
	require.Len(t, samples, 1)
	assert.Equal(t, Sample{Time: at(0), Value: 50.0}, samples[0])
}

func TestHistoryUnknownKey(t *testing.T) {
	h := NewHistory(10)

	assert.Nil(t, h.History("missing"))
	assert.Nil(t, h.Values("missing"))
	assert.Nil(t, h.Last("missing", 3))
	assert.Equal(t, 0, h.Count("missing"))

	_, ok := h.Latest("missing")
	assert.False(t, ok)
}

func TestHistoryRingBufferOverflow(t *testing.T) {
	h := NewHistory(5)

	// capacity + k pushes keeps exactly the last capacity values in order
	for i := 0; i < 8; i++ {
		h.Push(KeyCPU, float64(i), at(float64(i)))
	}

	assert.Equal(t, 5, h.Count(KeyCPU))
	samples := h.History(KeyCPU)
	require.Len(t, samples, 5)
	assert.Equal(t, []float64{3, 4, 5, 6, 7}, values(samples))
	assert.Equal(t, at(3), samples[0].Time)
	assert.Equal(t, at(7), samples[4].Time)
}

func TestHistoryNeverExceedsCapacity(t *testing.T) {
	h := NewHistory(DefaultHistorySize)

	for i := 0; i < DefaultHistorySize*3+7; i++ {
		h.Push(KeyMemory, float64(i), at(float64(i)))
		assert.LessOrEqual(t, h.Count(KeyMemory), DefaultHistorySize)
	}
	assert.Len(t, h.History(KeyMemory), DefaultHistorySize)
}

func TestHistoryKeysAreIndependent(t *testing.T) {
	h := NewHistory(10)

	for i := 0; i < 3; i++ {
		ts := at(float64(i))
		h.Push(KeyNetDownload, float64(i*100), ts)
		h.Push(KeyNetUpload, float64(i), ts)
	}

	assert.Equal(t, []float64{0, 100, 200}, h.Values(KeyNetDownload))
	assert.Equal(t, []float64{0, 1, 2}, h.Values(KeyNetUpload))
	assert.Equal(t, []string{KeyNetDownload, KeyNetUpload}, h.Keys())
}

func TestHistoryReturnsCopy(t *testing.T) {
	h := NewHistory(10)
	h.Push(KeyCPU, 1, at(0))

	samples := h.History(KeyCPU)
	samples[0].Value = 99

	assert.Equal(t, []float64{1}, h.Values(KeyCPU))
}

func TestHistoryLastAndLatest(t *testing.T) {
	h := NewHistory(10)
	for i := 1; i <= 7; i++ {
		h.Push(KeyCPU, float64(i), at(float64(i)))
	}

	assert.Equal(t, []float64{5, 6, 7}, values(h.Last(KeyCPU, 3)))
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7}, values(h.Last(KeyCPU, 50)))

	latest, ok := h.Latest(KeyCPU)
	require.True(t, ok)
	assert.Equal(t, 7.0, latest.Value)
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(10)
	h.Push(KeyCPU, 1, at(0))
	h.Push(KeyMemory, 2, at(0))

	h.Clear(KeyCPU)
	assert.Equal(t, 0, h.Count(KeyCPU))
	assert.Equal(t, 1, h.Count(KeyMemory))

	h.ClearAll()
	assert.Empty(t, h.Keys())
}

func TestHistoryConcurrency(t *testing.T) {
	h := NewHistory(100)
	var wg sync.WaitGroup

	// Concurrent writes
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.Push(KeyCPU, float64(j), at(float64(j)))
			}
		}(i)
	}

	// Concurrent reads
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.History(KeyCPU)
				h.Values(KeyCPU)
				h.Count(KeyCPU)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 100, h.Count(KeyCPU))
}

func TestRingBuffer(t *testing.T) {
	s := func(v float64) Sample { return Sample{Time: at(v), Value: v} }

	t.Run("basic operations", func(t *testing.T) {
		rb := newRingBuffer(5)
		assert.Equal(t, 0, rb.count)

		rb.push(s(1))
		rb.push(s(2))
		rb.push(s(3))

		assert.Equal(t, 3, rb.count)
		assert.Equal(t, []float64{1, 2, 3}, values(rb.getAll()))
	})

	t.Run("overflow wrapping", func(t *testing.T) {
		rb := newRingBuffer(3)

		for i := 1; i <= 5; i++ {
			rb.push(s(float64(i)))
		}

		assert.Equal(t, 3, rb.count)
		assert.Equal(t, []float64{3, 4, 5}, values(rb.getAll()))
	})

	t.Run("getLast zero or negative", func(t *testing.T) {
		rb := newRingBuffer(5)
		rb.push(s(1))

		assert.Nil(t, rb.getLast(0))
		assert.Nil(t, rb.getLast(-1))
	})

	t.Run("empty buffer", func(t *testing.T) {
		rb := newRingBuffer(5)

		assert.Nil(t, rb.getLast(1))
		assert.Nil(t, rb.getAll())
	})
}

func TestHistoryKeyHelpers(t *testing.T) {
	assert.Equal(t, "temp/CPU", TemperatureKey("CPU"))
	assert.Equal(t, "sensor/k10temp-pci-00c3/Tctl", SensorKey("k10temp-pci-00c3", "Tctl"))
}

func TestSensorKeyLabelsWithSlash(t *testing.T) {
	h := NewHistory(10)
	h.Push(SensorKey("a/b", "c"), 1, at(0))
	h.Push(SensorKey("a", "b/c"), 2, at(0))

	assert.NotEqual(t, SensorKey("a/b", "c"), SensorKey("a", "b/c"))
	assert.Equal(t, []float64{1}, h.Values(SensorKey("a/b", "c")))
	assert.Equal(t, []float64{2}, h.Values(SensorKey("a", "b/c")))
	assert.Equal(t, "sensor/a%2Fb/c", SensorKey("a/b", "c"))
	assert.NotEqual(t, SensorKey("a%2Fb", "c"), SensorKey("a/b", "c"))
}
