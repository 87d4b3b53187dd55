package monitor

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultHistorySize is the default number of data points to retain per metric.
const DefaultHistorySize = 60

// History keys pushed by the samplers.
const (
	KeyCPU              = "cpu"
	KeyMemory           = "memory"
	KeyDiskRead         = "disk/read"
	KeyDiskWrite        = "disk/write"
	KeyNetDownload      = "net/download"
	KeyNetUpload        = "net/upload"
	KeyGPUUsage         = "gpu/usage"
	KeyGPUTemperature   = "gpu/temperature"
	KeyGPUMemory        = "gpu/memory"
	KeyProcessDownload  = "processes/download"
	KeyProcessUpload    = "processes/upload"
	temperatureKeyRoot  = "temp/"
	sensorHistoryPrefix = "sensor/"
)

// History manages metric history for any number of named metrics using
// ring buffers. It is safe for concurrent use: the sampling loop pushes
// while the rendering layer reads.
type History struct {
	mu      sync.RWMutex
	size    int
	metrics map[string]*ringBuffer
}

// ringBuffer is a fixed-size circular buffer of samples.
type ringBuffer struct {
	data  []Sample
	head  int
	count int
	size  int
}

// NewHistory creates a new history tracker with the specified buffer size.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size:    size,
		metrics: make(map[string]*ringBuffer),
	}
}

// Size returns the capacity of every buffer in this history.
func (h *History) Size() int {
	return h.size
}

// Push appends a sample for key, evicting the oldest one when the buffer is
// full. Unknown keys are created on first push.
func (h *History) Push(key string, value float64, ts time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf, ok := h.metrics[key]
	if !ok {
		buf = newRingBuffer(h.size)
		h.metrics[key] = buf
	}
	buf.push(Sample{Time: ts, Value: value})
}

// History returns a copy of all samples for key in chronological order.
// Returns nil for unknown keys.
func (h *History) History(key string) []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	buf, ok := h.metrics[key]
	if !ok {
		return nil
	}
	return buf.getAll()
}

// Last returns the last count samples for key, oldest first.
// Returns fewer values if not enough history is available.
func (h *History) Last(key string, count int) []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	buf, ok := h.metrics[key]
	if !ok {
		return nil
	}
	return buf.getLast(count)
}

// Values returns just the values for key in chronological order, which is
// what sparkline rendering wants.
func (h *History) Values(key string) []float64 {
	samples := h.History(key)
	if len(samples) == 0 {
		return nil
	}
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	return values
}

// Latest returns the most recent sample for key.
func (h *History) Latest(key string) (Sample, bool) {
	last := h.Last(key, 1)
	if len(last) == 0 {
		return Sample{}, false
	}
	return last[0], true
}

// Count returns the number of samples stored for key.
func (h *History) Count(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	buf, ok := h.metrics[key]
	if !ok {
		return 0
	}
	return buf.count
}

// Keys returns every known metric key, sorted.
func (h *History) Keys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	keys := make([]string, 0, len(h.metrics))
	for k := range h.metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes all history for key.
func (h *History) Clear(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.metrics, key)
}

// ClearAll removes all history.
func (h *History) ClearAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics = make(map[string]*ringBuffer)
}

// newRingBuffer creates a new ring buffer with the specified capacity.
func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]Sample, size),
		size: size,
	}
}

// push adds a sample to the ring buffer.
func (r *ringBuffer) push(s Sample) {
	r.data[r.head] = s
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// getLast returns the last count samples in chronological order (oldest first).
func (r *ringBuffer) getLast(count int) []Sample {
	if count <= 0 || r.count == 0 {
		return nil
	}

	if count > r.count {
		count = r.count
	}

	result := make([]Sample, count)

	// head points to the next write position, so the most recent value is at head-1
	start := (r.head - count + r.size) % r.size

	for i := 0; i < count; i++ {
		result[i] = r.data[(start+i)%r.size]
	}

	return result
}

// getAll returns all stored samples in chronological order.
func (r *ringBuffer) getAll() []Sample {
	return r.getLast(r.count)
}

// TemperatureKey is the history key used for an important temperature.
func TemperatureKey(name string) string {
	return temperatureKeyRoot + name
}

// sensorKeyEscaper keeps "/" unambiguous as the adapter/metric separator.
var sensorKeyEscaper = strings.NewReplacer("%", "%25", "/", "%2F")

// SensorKey is the history key used for a single sensor reading.
func SensorKey(adapter, metric string) string {
	return sensorHistoryPrefix + sensorKeyEscaper.Replace(adapter) + "/" + sensorKeyEscaper.Replace(metric)
}
