package monitor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rileyhilliard/amdtop/internal/config"
	"github.com/rileyhilliard/amdtop/internal/logger"
	"github.com/rileyhilliard/amdtop/internal/monitor"
	mtesting "github.com/rileyhilliard/amdtop/internal/monitor/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	engine  *monitor.Engine
	conns   *mtesting.FakeConnections
	procs   *mtesting.FakeProcesses
	sensors *mtesting.FakeSensors
	system  *mtesting.FakeSystem
	gpu     *mtesting.FakeGPU
	clock   *mtesting.Clock
	log     *logger.BufferLogger
}

func newEngine(t *testing.T, cfg *config.Config, extra ...monitor.Option) *engineFixture {
	t.Helper()
	f := &engineFixture{
		conns: mtesting.NewFakeConnections(
			mtesting.Conn(100, 40000, 443, "ESTABLISHED"),
			mtesting.Conn(200, 40001, 22, "ESTABLISHED"),
		),
		procs:   mtesting.NewFakeProcesses().Add(100, "firefox", 0, 0).Add(200, "ssh", 0, 0),
		sensors: mtesting.NewFakeSensors(desktopSensors),
		system:  mtesting.NewFakeSystem(),
		gpu:     mtesting.NewFakeGPU("amdgpu", &monitor.GPUMetrics{Name: "AMD GPU (card0)", Percent: 12, Temperature: 48}),
		clock:   mtesting.NewClock(epoch),
		log:     logger.NewBufferLogger(),
	}

	opts := []monitor.Option{
		monitor.WithConnectionSource(f.conns),
		monitor.WithProcessSource(f.procs),
		monitor.WithSensorRunner(f.sensors),
		monitor.WithSystemSource(f.system),
		monitor.WithGPUSource(f.gpu),
		monitor.WithClock(f.clock.Now),
		monitor.WithLoggerFactory(func(string) logger.Logger { return f.log }),
	}
	e, err := monitor.NewEngine(cfg, append(opts, extra...)...)
	require.NoError(t, err)
	f.engine = e
	return f
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Intervals.Graphs = 0

	_, err := monitor.NewEngine(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intervals.graphs")
}

func TestEngineStartProbesCapabilities(t *testing.T) {
	f := newEngine(t, config.DefaultConfig())
	f.engine.Start(context.Background())

	probe := f.engine.Probe()
	assert.True(t, probe.Available(monitor.CapSensors))
	assert.True(t, probe.Available(monitor.CapNetwork))
	assert.True(t, probe.Available(monitor.CapGPU))
	assert.Empty(t, f.engine.Advisories())
	assert.Equal(t, 1, f.conns.Calls, "network check reads the table once")
}

func TestEngineAdvisories(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Network.Enabled = false

	f := newEngine(t, cfg,
		monitor.WithGPUSource(nil),
		monitor.WithCapabilityCheck(monitor.CapSensors, func(context.Context) error {
			return errors.New("sensors not found in PATH")
		}),
	)
	f.engine.Start(context.Background())

	assert.Equal(t, []string{
		"gpu unavailable: disabled in config",
		"network unavailable: disabled in config",
		"sensors unavailable: sensors not found in PATH",
	}, f.engine.Advisories())
	assert.Equal(t, 3, f.log.Count("warn"))
}

func TestEngineNetworkPermissionAdvisory(t *testing.T) {
	f := newEngine(t, config.DefaultConfig())
	f.conns.Fail(monitor.ErrPermission)
	f.engine.Start(context.Background())

	ok, reason := f.engine.Probe().Status(monitor.CapNetwork)
	assert.False(t, ok)
	assert.Contains(t, reason, "elevated privileges")
}

func TestEngineUnavailableCapabilitiesSkipWork(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Network.Enabled = false

	f := newEngine(t, cfg, monitor.WithCapabilityCheck(monitor.CapSensors, func(context.Context) error {
		return errors.New("missing")
	}))
	f.engine.Start(context.Background())
	f.engine.RunDue(context.Background(), f.clock.Now())

	assert.Equal(t, 0, f.sensors.Calls)
	assert.Equal(t, 0, f.engine.Correlator().Len())
	assert.Empty(t, f.engine.Temperatures().AllTemperatures())

	snap := f.engine.Snapshot()
	assert.Equal(t, 25.0, snap.System.MemoryPercent, "graphs still sample")
}

func TestEngineRunDue(t *testing.T) {
	f := newEngine(t, config.DefaultConfig())
	ctx := context.Background()
	f.engine.Start(ctx)

	ran := f.engine.RunDue(ctx, f.clock.Now())
	assert.ElementsMatch(t, []string{monitor.TaskGraphs, monitor.TaskProcesses, monitor.TaskTemperature}, ran)

	f.clock.Advance(time.Second)
	ran = f.engine.RunDue(ctx, f.clock.Now())
	assert.Equal(t, []string{monitor.TaskGraphs}, ran)

	f.clock.Advance(time.Second)
	ran = f.engine.RunDue(ctx, f.clock.Now())
	assert.ElementsMatch(t, []string{monitor.TaskGraphs, monitor.TaskProcesses}, ran)

	assert.Equal(t, 1, f.sensors.Calls)
	assert.Equal(t, 3, f.engine.History().Count(monitor.KeyCPU))
}

// deadlineSystem records how long the graphs task gave its CPU read.
type deadlineSystem struct {
	*mtesting.FakeSystem
	left time.Duration
}

func (d *deadlineSystem) CPU(ctx context.Context) (float64, int, error) {
	if deadline, ok := ctx.Deadline(); ok {
		d.left = time.Until(deadline)
	}
	return d.FakeSystem.CPU(ctx)
}

type deadlineGPU struct {
	*mtesting.FakeGPU
	left time.Duration
}

func (d *deadlineGPU) Query(ctx context.Context) (*monitor.GPUMetrics, error) {
	if deadline, ok := ctx.Deadline(); ok {
		d.left = time.Until(deadline)
	}
	return d.FakeGPU.Query(ctx)
}

func TestEngineGraphsTimeouts(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.System.Timeout = time.Minute
	cfg.GPU.Timeout = time.Second

	sys := &deadlineSystem{FakeSystem: mtesting.NewFakeSystem()}
	gpu := &deadlineGPU{FakeGPU: mtesting.NewFakeGPU("amdgpu", &monitor.GPUMetrics{Percent: 5})}
	f := newEngine(t, cfg, monitor.WithSystemSource(sys), monitor.WithGPUSource(gpu))
	ctx := context.Background()
	f.engine.Start(ctx)
	f.engine.RunDue(ctx, f.clock.Now())

	assert.Greater(t, sys.left, 30*time.Second, "host counters use system.timeout")
	assert.LessOrEqual(t, sys.left, time.Minute)
	assert.Greater(t, gpu.left, time.Duration(0))
	assert.LessOrEqual(t, gpu.left, time.Second, "gpu query keeps gpu.timeout")
}

func TestEngineSnapshot(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Display.ProcessCount = 1

	f := newEngine(t, cfg)
	ctx := context.Background()
	f.engine.Start(ctx)
	f.engine.RunDue(ctx, f.clock.Now())

	f.procs.SetCounters(100, 4096, 0)
	f.procs.SetCounters(200, 1024, 1024)
	f.clock.Advance(2 * time.Second)
	f.engine.RunDue(ctx, f.clock.Now())

	snap := f.engine.Snapshot()
	assert.Equal(t, f.clock.Now(), snap.Time)

	require.Len(t, snap.Processes, 1, "limited to display.process_count")
	assert.Equal(t, "firefox", snap.Processes[0].Name)
	assert.Equal(t, 2048.0, snap.Processes[0].Download)
	assert.Equal(t, 2, snap.ProcessCount)
	assert.Equal(t, 2048.0+512.0, snap.ProcessDownload)
	assert.Equal(t, 512.0, snap.ProcessUpload)

	require.Len(t, snap.Temperatures, 4)
	assert.Equal(t, "CPU", snap.Temperatures[0].Name)
	assert.Contains(t, snap.Sensors, "k10temp-pci-00c3")

	require.NotNil(t, snap.System.GPU)
	assert.Equal(t, 12.0, snap.System.GPU.Percent)
	assert.Equal(t, "amdgpu", snap.System.GPUSource)

	assert.True(t, snap.Capabilities[monitor.CapNetwork].Available)
}

func TestEngineRunStopsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Intervals.Graphs = 100 * time.Millisecond
	cfg.Intervals.Processes = 100 * time.Millisecond
	cfg.Intervals.Temperature = 100 * time.Millisecond

	// Real clock so the scheduler's ticker advances
	e, err := monitor.NewEngine(cfg,
		monitor.WithConnectionSource(mtesting.NewFakeConnections()),
		monitor.WithProcessSource(mtesting.NewFakeProcesses()),
		monitor.WithSensorRunner(mtesting.NewFakeSensors(desktopSensors)),
		monitor.WithSystemSource(mtesting.NewFakeSystem()),
		monitor.WithGPUSource(nil),
		monitor.WithLoggerFactory(func(string) logger.Logger { return logger.Noop() }),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
	defer cancel()
	e.Start(ctx)

	require.NoError(t, e.Run(ctx))
	assert.GreaterOrEqual(t, e.History().Count(monitor.KeyCPU), 2)
}

func TestEngineAccessors(t *testing.T) {
	cfg := config.DefaultConfig()
	f := newEngine(t, cfg)

	assert.Same(t, cfg, f.engine.Config())
	assert.Equal(t, cfg.Display.GraphHistory, f.engine.History().Size())
	assert.NotNil(t, f.engine.Temperatures())
	assert.NotNil(t, f.engine.System())
	assert.Equal(t, time.Second, f.engine.Scheduler().TickInterval())
}
