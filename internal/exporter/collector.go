// Package exporter publishes engine snapshots as Prometheus metrics.
package exporter

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rileyhilliard/amdtop/internal/monitor"
)

const namespace = "amdtop"

// SnapshotSource is anything that can produce an engine snapshot.
// *monitor.Engine satisfies it.
type SnapshotSource interface {
	Snapshot() monitor.Snapshot
}

// Collector is a prometheus.Collector that reads one snapshot per scrape.
// Metrics are emitted as const metrics so vanished processes and sensors
// disappear from the next scrape without explicit deletes.
type Collector struct {
	src SnapshotSource

	cpuUsage       *prometheus.Desc
	cpuCores       *prometheus.Desc
	memoryUsage    *prometheus.Desc
	memoryBytes    *prometheus.Desc
	diskRate       *prometheus.Desc
	netRate        *prometheus.Desc
	partitionUsage *prometheus.Desc
	gpuUsage       *prometheus.Desc
	gpuTemp        *prometheus.Desc
	gpuMemory      *prometheus.Desc
	gpuPower       *prometheus.Desc
	temperature    *prometheus.Desc
	sensorTemp     *prometheus.Desc
	sensorCrit     *prometheus.Desc
	processRate    *prometheus.Desc
	processConns   *prometheus.Desc
	processTotal   *prometheus.Desc
	capability     *prometheus.Desc
	lastSample     *prometheus.Desc
}

// NewCollector creates a collector over src.
func NewCollector(src SnapshotSource) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		src:            src,
		cpuUsage:       desc("cpu_usage_percent", "CPU utilization across all cores."),
		cpuCores:       desc("cpu_cores", "Number of logical CPU cores."),
		memoryUsage:    desc("memory_usage_percent", "Memory utilization."),
		memoryBytes:    desc("memory_bytes", "Memory in bytes by type.", "type"),
		diskRate:       desc("disk_bytes_per_second", "Disk throughput summed over whole disks.", "operation"),
		netRate:        desc("network_bytes_per_second", "Interface throughput excluding loopback.", "direction"),
		partitionUsage: desc("partition_usage_percent", "Filesystem usage per partition.", "mountpoint", "device", "fstype"),
		gpuUsage:       desc("gpu_usage_percent", "GPU utilization.", "name", "backend"),
		gpuTemp:        desc("gpu_temperature_celsius", "GPU temperature reported by the GPU backend.", "name", "backend"),
		gpuMemory:      desc("gpu_memory_bytes", "GPU memory in bytes by type.", "name", "backend", "type"),
		gpuPower:       desc("gpu_power_watts", "GPU power draw.", "name", "backend"),
		temperature:    desc("temperature_celsius", "Important temperature per category.", "name", "category", "adapter", "metric"),
		sensorTemp:     desc("sensor_temperature_celsius", "Every temperature reported by the sensor tool.", "adapter", "metric"),
		sensorCrit:     desc("sensor_critical_celsius", "Critical threshold reported by the sensor tool.", "adapter", "metric"),
		processRate:    desc("process_network_bytes_per_second", "Approximate per-process network throughput from process I/O counters.", "pid", "name", "direction"),
		processConns:   desc("process_connections", "Open inet connections per process.", "pid", "name"),
		processTotal:   desc("processes_with_connections", "Number of processes with open inet connections."),
		capability:     desc("capability_available", "Whether an optional facility is available (1) or not (0).", "capability"),
		lastSample:     desc("last_sample_timestamp_seconds", "Unix time of the last system sample."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.cpuUsage, c.cpuCores, c.memoryUsage, c.memoryBytes, c.diskRate, c.netRate,
		c.partitionUsage, c.gpuUsage, c.gpuTemp, c.gpuMemory, c.gpuPower,
		c.temperature, c.sensorTemp, c.sensorCrit,
		c.processRate, c.processConns, c.processTotal, c.capability, c.lastSample,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.src.Snapshot()
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	for capName, flag := range snap.Capabilities {
		gauge(c.capability, boolFloat(flag.Available), string(capName))
	}

	sys := snap.System
	if !sys.Timestamp.IsZero() {
		gauge(c.lastSample, float64(sys.Timestamp.UnixNano())/1e9)
		gauge(c.cpuUsage, sys.CPUPercent)
		gauge(c.cpuCores, float64(sys.CPUCores))
		gauge(c.memoryUsage, sys.MemoryPercent)
		gauge(c.memoryBytes, float64(sys.MemoryUsed), "used")
		gauge(c.memoryBytes, float64(sys.MemoryTotal), "total")
		gauge(c.diskRate, sys.DiskReadRate, "read")
		gauge(c.diskRate, sys.DiskWriteRate, "write")
		gauge(c.netRate, sys.NetDownload, "download")
		gauge(c.netRate, sys.NetUpload, "upload")
	}
	for _, p := range sys.Partitions {
		gauge(c.partitionUsage, p.Percent, p.Mountpoint, p.Device, p.Fstype)
	}
	if g := sys.GPU; g != nil {
		gauge(c.gpuUsage, g.Percent, g.Name, sys.GPUSource)
		gauge(c.gpuTemp, float64(g.Temperature), g.Name, sys.GPUSource)
		gauge(c.gpuPower, float64(g.PowerWatts), g.Name, sys.GPUSource)
		if g.MemoryTotal > 0 {
			gauge(c.gpuMemory, float64(g.MemoryUsed), g.Name, sys.GPUSource, "used")
			gauge(c.gpuMemory, float64(g.MemoryTotal), g.Name, sys.GPUSource, "total")
		}
	}

	for _, t := range snap.Temperatures {
		gauge(c.temperature, t.Value, t.Name, t.Category, t.Adapter, t.Metric)
	}
	for adapter, readings := range snap.Sensors {
		for metric, r := range readings {
			gauge(c.sensorTemp, r.Value, adapter, metric)
			if r.Critical != nil {
				gauge(c.sensorCrit, *r.Critical, adapter, metric)
			}
		}
	}

	if snap.Capabilities[monitor.CapNetwork].Available {
		gauge(c.processTotal, float64(snap.ProcessCount))
	}
	for _, p := range snap.Processes {
		pid := strconv.Itoa(int(p.PID))
		gauge(c.processRate, p.Download, pid, p.Name, "download")
		gauge(c.processRate, p.Upload, pid, p.Name, "upload")
		gauge(c.processConns, float64(len(p.Connections)), pid, p.Name)
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
