package monitor

import "time"

// Sample is a single timestamped scalar observation.
type Sample struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// ConnectionDescriptor is a snapshot of one inet socket. It has no identity
// beyond the process it is grouped under and is replaced wholesale each poll.
type ConnectionDescriptor struct {
	LocalAddr  string `json:"local_addr"`
	LocalPort  uint32 `json:"local_port"`
	RemoteAddr string `json:"remote_addr"`
	RemotePort uint32 `json:"remote_port"`
	Status     string `json:"status"`
	Transport  string `json:"transport"` // "tcp", "tcp6", "udp" or "udp6"
}

// Connection is a raw row from the OS connection table.
// PID is 0 when the owning process could not be resolved.
type Connection struct {
	PID int32
	ConnectionDescriptor
}

// IOCounters holds cumulative per-process I/O byte counts.
type IOCounters struct {
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
}

// ProcessNetworkRecord is the correlator's view of one process with open
// inet connections.
//
// Download and Upload are derived from the process-wide read/write byte
// counters, not from per-socket accounting, which the OS does not expose.
// They are an approximation of network activity.
type ProcessNetworkRecord struct {
	PID         int32                  `json:"pid"`
	Name        string                 `json:"name"`
	Connections []ConnectionDescriptor `json:"connections"`
	Counters    IOCounters             `json:"counters"`
	Download    float64                `json:"download"` // bytes/sec, from ReadBytes
	Upload      float64                `json:"upload"`   // bytes/sec, from WriteBytes

	seq uint64 // discovery order, used as the sort tie-breaker
}

// Total returns the combined download and upload rate.
func (r ProcessNetworkRecord) Total() float64 {
	return r.Download + r.Upload
}

// SensorReading is one temperature metric reported by a sensor adapter.
// Critical is nil when the tool reported no crit/high threshold.
type SensorReading struct {
	Value    float64  `json:"value"`
	Critical *float64 `json:"critical,omitempty"`
}

// GPUMetrics contains GPU usage information.
type GPUMetrics struct {
	Name        string  `json:"name"`
	Percent     float64 `json:"percent"`
	MemoryUsed  int64   `json:"memory_used"`
	MemoryTotal int64   `json:"memory_total"`
	Temperature int     `json:"temperature"`
	PowerWatts  int     `json:"power_watts"`
}

// MemoryPercent returns VRAM usage as a percentage, or 0 when the total is unknown.
func (g *GPUMetrics) MemoryPercent() float64 {
	if g == nil || g.MemoryTotal <= 0 {
		return 0
	}
	return float64(g.MemoryUsed) / float64(g.MemoryTotal) * 100
}

// Partition is the usage of one mounted filesystem.
type Partition struct {
	Mountpoint string  `json:"mountpoint"`
	Device     string  `json:"device"`
	Fstype     string  `json:"fstype"`
	Total      uint64  `json:"total"`
	Used       uint64  `json:"used"`
	Percent    float64 `json:"percent"`
}

// SystemStats holds the latest values from the graphs sampling family.
type SystemStats struct {
	Timestamp     time.Time   `json:"timestamp"`
	CPUPercent    float64     `json:"cpu_percent"`
	CPUCores      int         `json:"cpu_cores"`
	MemoryPercent float64     `json:"memory_percent"`
	MemoryUsed    uint64      `json:"memory_used"`
	MemoryTotal   uint64      `json:"memory_total"`
	DiskReadRate  float64     `json:"disk_read_rate"`  // bytes/sec
	DiskWriteRate float64     `json:"disk_write_rate"` // bytes/sec
	NetDownload   float64     `json:"net_download"`    // bytes/sec, loopback excluded
	NetUpload     float64     `json:"net_upload"`      // bytes/sec, loopback excluded
	Partitions    []Partition `json:"partitions"`
	GPU           *GPUMetrics `json:"gpu,omitempty"` // nil if no GPU is available
	GPUSource     string      `json:"gpu_source,omitempty"`
}
