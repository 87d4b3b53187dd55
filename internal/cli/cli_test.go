package cli

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/rileyhilliard/amdtop/internal/config"
	"github.com/rileyhilliard/amdtop/internal/logger"
	"github.com/rileyhilliard/amdtop/internal/monitor"
	mtesting "github.com/rileyhilliard/amdtop/internal/monitor/testing"
	"github.com/stretchr/testify/require"
)

const testSensors = `k10temp-pci-00c3
Adapter: PCI adapter
Tctl:         +45.0°C  (high = +70.0°C)

nvme-pci-0100
Adapter: PCI adapter
Composite:    +41.9°C  (low  = -273.1°C, high = +84.8°C)
`

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

type engineFixture struct {
	engine *monitor.Engine
	clock  *mtesting.Clock
	procs  *mtesting.FakeProcesses
}

// newTestEngine builds a started engine over fakes: firefox and ssh hold
// connections, the sensors tool reports a CPU and an NVMe reading.
func newTestEngine(t *testing.T, cfg *config.Config, extra ...monitor.Option) *engineFixture {
	t.Helper()
	f := &engineFixture{
		clock: mtesting.NewClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		procs: mtesting.NewFakeProcesses().Add(100, "firefox", 0, 0).Add(200, "ssh", 0, 0),
	}
	opts := []monitor.Option{
		monitor.WithConnectionSource(mtesting.NewFakeConnections(
			mtesting.Conn(100, 40000, 443, "ESTABLISHED"),
			mtesting.Conn(200, 40001, 22, "ESTABLISHED"),
		)),
		monitor.WithProcessSource(f.procs),
		monitor.WithSensorRunner(mtesting.NewFakeSensors(testSensors)),
		monitor.WithSystemSource(mtesting.NewFakeSystem()),
		monitor.WithGPUSource(mtesting.NewFakeGPU("amdgpu", &monitor.GPUMetrics{
			Name: "AMD GPU (card0)", Percent: 30, MemoryUsed: 1 << 30, MemoryTotal: 8 << 30, Temperature: 50, PowerWatts: 40,
		})),
		monitor.WithClock(f.clock.Now),
		monitor.WithLoggerFactory(func(string) logger.Logger { return logger.Noop() }),
	}
	e, err := monitor.NewEngine(cfg, append(opts, extra...)...)
	require.NoError(t, err)
	e.Start(context.Background())
	f.engine = e
	return f
}

// withConfigFile points --config at a temp file holding body for the
// duration of the test.
func withConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amdtop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })
	return path
}
