package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/amdtop/internal/monitor/parsers"
)

// GPUSource is a GPU query facility. Query returns nil metrics when no GPU
// is present.
type GPUSource interface {
	Name() string
	Available(ctx context.Context) error
	Query(ctx context.Context) (*GPUMetrics, error)
}

// AMDGPUSource reads amdgpu counters from sysfs.
type AMDGPUSource struct {
	// Root is the DRM class directory, normally /sys/class/drm.
	Root string
}

// NewAMDGPUSource returns a sysfs reader rooted at root.
func NewAMDGPUSource(root string) *AMDGPUSource {
	if root == "" {
		root = "/sys/class/drm"
	}
	return &AMDGPUSource{Root: root}
}

// Name implements GPUSource.
func (s *AMDGPUSource) Name() string { return "amdgpu" }

// Available implements GPUSource.
func (s *AMDGPUSource) Available(context.Context) error {
	if len(s.cards()) == 0 {
		return fmt.Errorf("no amdgpu device under %s", s.Root)
	}
	return nil
}

// Query reads the first amdgpu card.
func (s *AMDGPUSource) Query(context.Context) (*GPUMetrics, error) {
	cards := s.cards()
	if len(cards) == 0 {
		return nil, nil
	}
	card := cards[0]
	dev := filepath.Join(s.Root, card, "device")

	busy, err := readSysfsInt(filepath.Join(dev, "gpu_busy_percent"))
	if err != nil {
		return nil, err
	}

	m := &GPUMetrics{
		Name:    "AMD GPU (" + card + ")",
		Percent: float64(busy),
	}

	// The rest is optional and varies by kernel and board
	if v, err := readSysfsInt(filepath.Join(dev, "mem_info_vram_used")); err == nil {
		m.MemoryUsed = v
	}
	if v, err := readSysfsInt(filepath.Join(dev, "mem_info_vram_total")); err == nil {
		m.MemoryTotal = v
	}
	if hwmon := firstMatch(filepath.Join(dev, "hwmon", "hwmon*")); hwmon != "" {
		if v, err := readSysfsInt(filepath.Join(hwmon, "temp1_input")); err == nil {
			m.Temperature = int(v / 1000) // millidegrees
		}
		if v, err := readSysfsInt(filepath.Join(hwmon, "power1_average")); err == nil {
			m.PowerWatts = int(v / 1000000) // microwatts
		}
	}
	return m, nil
}

// cards returns card directories exposing gpu_busy_percent, e.g. "card0".
// Connector entries such as card0-DP-1 are skipped.
func (s *AMDGPUSource) cards() []string {
	matches, _ := filepath.Glob(filepath.Join(s.Root, "card*", "device", "gpu_busy_percent"))
	var cards []string
	for _, m := range matches {
		card := filepath.Base(filepath.Dir(filepath.Dir(m)))
		if strings.Contains(card, "-") {
			continue
		}
		cards = append(cards, card)
	}
	sort.Strings(cards)
	return cards
}

func readSysfsInt(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return parsers.ParseSysfsInt(string(data))
}

func firstMatch(pattern string) string {
	matches, _ := filepath.Glob(pattern)
	if len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}

// NvidiaSMISource queries nvidia-smi.
type NvidiaSMISource struct {
	runner SensorRunner
	binary string
}

// NewNvidiaSMISource returns a source that runs nvidia-smi with timeout.
func NewNvidiaSMISource(timeout time.Duration) *NvidiaSMISource {
	return &NvidiaSMISource{
		runner: NewCommandRunner(timeout, "nvidia-smi", parsers.NvidiaQuery...),
		binary: "nvidia-smi",
	}
}

// NewNvidiaSMISourceWithRunner returns a source backed by runner.
func NewNvidiaSMISourceWithRunner(runner SensorRunner) *NvidiaSMISource {
	return &NvidiaSMISource{runner: runner}
}

// Name implements GPUSource.
func (s *NvidiaSMISource) Name() string { return "nvidia" }

// Available implements GPUSource.
func (s *NvidiaSMISource) Available(ctx context.Context) error {
	if s.binary != "" {
		if err := LookPathCheck(s.binary)(ctx); err != nil {
			return err
		}
	}
	m, err := s.Query(ctx)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("nvidia-smi reports no devices")
	}
	return nil
}

// Query returns the first GPU reported by nvidia-smi.
func (s *NvidiaSMISource) Query(ctx context.Context) (*GPUMetrics, error) {
	out, err := s.runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	gpus, err := parsers.ParseNvidiaSMI(out)
	if err != nil || len(gpus) == 0 {
		return nil, err
	}
	g := gpus[0]
	return &GPUMetrics{
		Name:        g.Name,
		Percent:     g.Percent,
		MemoryUsed:  g.MemoryUsed,
		MemoryTotal: g.MemoryTotal,
		Temperature: g.Temperature,
		PowerWatts:  g.PowerWatts,
	}, nil
}

// AutoGPUSource uses the first candidate that reports available.
type AutoGPUSource struct {
	mu         sync.Mutex
	candidates []GPUSource
	chosen     GPUSource
}

// NewAutoGPUSource tries candidates in order.
func NewAutoGPUSource(candidates ...GPUSource) *AutoGPUSource {
	return &AutoGPUSource{candidates: candidates}
}

// Name returns the chosen backend, or "auto" before one is chosen.
func (s *AutoGPUSource) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chosen != nil {
		return s.chosen.Name()
	}
	return "auto"
}

// Available picks the first available candidate.
func (s *AutoGPUSource) Available(ctx context.Context) error {
	var reasons []string
	for _, c := range s.candidates {
		err := c.Available(ctx)
		if err == nil {
			s.mu.Lock()
			s.chosen = c
			s.mu.Unlock()
			return nil
		}
		reasons = append(reasons, err.Error())
	}
	s.mu.Lock()
	s.chosen = nil
	s.mu.Unlock()
	if len(reasons) == 0 {
		return fmt.Errorf("no GPU backends configured")
	}
	return fmt.Errorf("no GPU found (%s)", strings.Join(reasons, "; "))
}

// Query delegates to the chosen candidate.
func (s *AutoGPUSource) Query(ctx context.Context) (*GPUMetrics, error) {
	s.mu.Lock()
	chosen := s.chosen
	s.mu.Unlock()
	if chosen == nil {
		return nil, nil
	}
	return chosen.Query(ctx)
}
