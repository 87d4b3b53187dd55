package monitor

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/rileyhilliard/amdtop/internal/errors"
	"github.com/rileyhilliard/amdtop/internal/logger"
)

// SystemSampler samples host-wide CPU, memory, disk, interface and GPU
// figures on the graphs interval.
type SystemSampler struct {
	mu     sync.RWMutex
	latest SystemStats

	src            SystemSource
	gpu            GPUSource
	probe          *Probe
	history        *History
	rates          *RateCalculator
	partitionCount int
	gpuTimeout     time.Duration
	now            func() time.Time
	log            logger.Logger
}

// NewSystemSampler creates a sampler. gpu and probe may be nil.
func NewSystemSampler(src SystemSource, gpu GPUSource, probe *Probe, history *History, partitionCount int, log logger.Logger) *SystemSampler {
	if log == nil {
		log = logger.Noop()
	}
	if history == nil {
		history = NewHistory(DefaultHistorySize)
	}
	return &SystemSampler{
		src:            src,
		gpu:            gpu,
		probe:          probe,
		history:        history,
		rates:          NewRateCalculator(),
		partitionCount: partitionCount,
		now:            time.Now,
		log:            log,
	}
}

// SetClock replaces the time source used for rates and history.
func (s *SystemSampler) SetClock(now func() time.Time) {
	s.now = now
}

// SetGPUTimeout bounds the GPU query separately from the rest of Update.
// Zero leaves it bounded only by the caller's context.
func (s *SystemSampler) SetGPUTimeout(d time.Duration) {
	s.gpuTimeout = d
}

// Update samples every source once. A failing source keeps its previous
// value and is reported in the returned error; the others still update.
func (s *SystemSampler) Update(ctx context.Context) error {
	now := s.now()

	s.mu.RLock()
	stats := s.latest
	s.mu.RUnlock()
	stats.Timestamp = now

	var errs []error

	if pct, cores, err := s.src.CPU(ctx); err != nil {
		errs = append(errs, err)
	} else {
		stats.CPUPercent, stats.CPUCores = pct, cores
		s.history.Push(KeyCPU, pct, now)
	}

	if m, err := s.src.Memory(ctx); err != nil {
		errs = append(errs, err)
	} else {
		stats.MemoryUsed, stats.MemoryTotal, stats.MemoryPercent = m.Used, m.Total, m.Percent
		s.history.Push(KeyMemory, m.Percent, now)
	}

	if d, err := s.src.DiskCounters(ctx); err != nil {
		errs = append(errs, err)
	} else {
		stats.DiskReadRate = s.rates.Rate(KeyDiskRead, float64(d.ReadBytes), now)
		stats.DiskWriteRate = s.rates.Rate(KeyDiskWrite, float64(d.WriteBytes), now)
		s.history.Push(KeyDiskRead, stats.DiskReadRate, now)
		s.history.Push(KeyDiskWrite, stats.DiskWriteRate, now)
	}

	if n, err := s.src.NetCounters(ctx); err != nil {
		errs = append(errs, err)
	} else {
		stats.NetDownload = s.rates.Rate(KeyNetDownload, float64(n.BytesRecv), now)
		stats.NetUpload = s.rates.Rate(KeyNetUpload, float64(n.BytesSent), now)
		s.history.Push(KeyNetDownload, stats.NetDownload, now)
		s.history.Push(KeyNetUpload, stats.NetUpload, now)
	}

	if s.partitionCount > 0 {
		if parts, err := s.src.Partitions(ctx); err != nil {
			errs = append(errs, err)
		} else {
			if len(parts) > s.partitionCount {
				parts = parts[:s.partitionCount]
			}
			stats.Partitions = parts
		}
	}

	s.sampleGPU(ctx, &stats, now, &errs)

	s.mu.Lock()
	s.latest = stats
	s.mu.Unlock()

	if len(errs) > 0 {
		return errors.WrapWithCode(stderrors.Join(errs...), errors.ErrQuery,
			"Some system counters couldn't be read",
			"Values from the previous sample are shown until the next one succeeds.")
	}
	return nil
}

func (s *SystemSampler) sampleGPU(ctx context.Context, stats *SystemStats, now time.Time, errs *[]error) {
	if s.gpu == nil || (s.probe != nil && !s.probe.Available(CapGPU)) {
		stats.GPU = nil
		return
	}
	stats.GPUSource = s.gpu.Name()

	if s.gpuTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.gpuTimeout)
		defer cancel()
	}
	g, err := s.gpu.Query(ctx)
	if err != nil {
		*errs = append(*errs, err)
		return
	}
	stats.GPU = g
	if g == nil {
		return
	}
	s.history.Push(KeyGPUUsage, g.Percent, now)
	s.history.Push(KeyGPUTemperature, float64(g.Temperature), now)
	s.history.Push(KeyGPUMemory, g.MemoryPercent(), now)
}

// Latest returns the most recent sample. Zero before the first Update.
func (s *SystemSampler) Latest() SystemStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.latest
	out.Partitions = append([]Partition(nil), s.latest.Partitions...)
	if s.latest.GPU != nil {
		g := *s.latest.GPU
		out.GPU = &g
	}
	return out
}
