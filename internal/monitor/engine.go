package monitor

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/rileyhilliard/amdtop/internal/config"
	"github.com/rileyhilliard/amdtop/internal/logger"
)

// Task names used by the engine's scheduler.
const (
	TaskGraphs      = "graphs"
	TaskProcesses   = "processes"
	TaskTemperature = "temperature"
)

// Snapshot is a point-in-time copy of everything the engine knows.
type Snapshot struct {
	Time            time.Time                           `json:"time"`
	Capabilities    map[Capability]Flag                 `json:"capabilities"`
	System          SystemStats                         `json:"system"`
	Temperatures    []NamedTemperature                  `json:"temperatures"`
	Sensors         map[string]map[string]SensorReading `json:"sensors"`
	Processes       []ProcessNetworkRecord              `json:"processes"`
	ProcessCount    int                                 `json:"process_count"`
	ProcessDownload float64                             `json:"process_download"`
	ProcessUpload   float64                             `json:"process_upload"`
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	conns     ConnectionSource
	procs     ProcessSource
	sensors   SensorRunner
	system    SystemSource
	gpu       GPUSource
	gpuSet    bool
	rules     []CategoryRule
	now       func() time.Time
	newLogger func(prefix string) logger.Logger
	checks    map[Capability]CheckFunc
}

// WithConnectionSource replaces the OS connection table.
func WithConnectionSource(src ConnectionSource) Option {
	return func(o *engineOptions) { o.conns = src }
}

// WithProcessSource replaces the OS process lookups.
func WithProcessSource(src ProcessSource) Option {
	return func(o *engineOptions) { o.procs = src }
}

// WithSensorRunner replaces the sensor tool invocation.
func WithSensorRunner(r SensorRunner) Option {
	return func(o *engineOptions) { o.sensors = r }
}

// WithSystemSource replaces the host-wide counters.
func WithSystemSource(src SystemSource) Option {
	return func(o *engineOptions) { o.system = src }
}

// WithGPUSource replaces the configured GPU backend. Nil disables GPU sampling.
func WithGPUSource(src GPUSource) Option {
	return func(o *engineOptions) {
		o.gpu = src
		o.gpuSet = true
	}
}

// WithCategoryRules replaces the important temperature rules.
func WithCategoryRules(rules []CategoryRule) Option {
	return func(o *engineOptions) { o.rules = rules }
}

// WithClock replaces the time source of every component.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

// WithLoggerFactory sets how component loggers are created from a prefix.
func WithLoggerFactory(f func(prefix string) logger.Logger) Option {
	return func(o *engineOptions) { o.newLogger = f }
}

// WithCapabilityCheck overrides the probe check for one capability.
func WithCapabilityCheck(c Capability, check CheckFunc) Option {
	return func(o *engineOptions) { o.checks[c] = check }
}

// Engine wires the samplers, probe and scheduler together from a config.
type Engine struct {
	cfg       *config.Config
	history   *History
	probe     *Probe
	temps     *TemperatureStore
	netproc   *Correlator
	system    *SystemSampler
	scheduler *Scheduler
	now       func() time.Time
}

// NewEngine builds an engine. No external facility is touched until Start.
func NewEngine(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	o := engineOptions{
		now:       time.Now,
		newLogger: logger.NewEnvLogger,
		checks:    make(map[Capability]CheckFunc),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.conns == nil {
		o.conns = HostConnections{}
	}
	if o.procs == nil {
		o.procs = HostProcesses{}
	}
	if o.system == nil {
		o.system = HostSystem{}
	}

	checks := map[Capability]CheckFunc{}
	if o.sensors == nil {
		o.sensors = NewCommandRunner(cfg.Sensors.Timeout, cfg.Sensors.Command)
		checks[CapSensors] = LookPathCheck(cfg.Sensors.Command)
	} else {
		checks[CapSensors] = func(context.Context) error { return nil }
	}
	checks[CapNetwork] = networkCheck(cfg, o.conns)

	if !o.gpuSet {
		o.gpu = gpuSourceFor(cfg.GPU)
	}
	checks[CapGPU] = gpuCheck(o.gpu)

	for c, check := range o.checks {
		checks[c] = check
	}

	history := NewHistory(cfg.Display.GraphHistory)
	probe := NewProbe(checks, o.newLogger("[probe]"))

	e := &Engine{
		cfg:     cfg,
		history: history,
		probe:   probe,
		temps:   NewTemperatureStore(o.sensors, probe, history, o.rules, o.newLogger("[temps]")),
		netproc: NewCorrelator(o.conns, o.procs, probe, history, o.newLogger("[netproc]")),
		system:  NewSystemSampler(o.system, o.gpu, probe, history, cfg.Display.PartitionCount, o.newLogger("[system]")),
		now:     o.now,
	}
	e.temps.SetClock(o.now)
	e.netproc.SetClock(o.now)
	e.system.SetClock(o.now)
	e.system.SetGPUTimeout(cfg.GPU.Timeout)

	e.scheduler = NewScheduler(o.newLogger("[clock]"),
		Task{Name: TaskGraphs, Interval: cfg.Intervals.Graphs, Timeout: cfg.System.Timeout, Run: e.system.Update},
		Task{Name: TaskProcesses, Interval: cfg.Intervals.Processes, Timeout: cfg.Network.Timeout, Run: e.netproc.Update},
		Task{Name: TaskTemperature, Interval: cfg.Intervals.Temperature, Timeout: cfg.Sensors.Timeout, Run: e.temps.Update},
	)

	return e, nil
}

func networkCheck(cfg *config.Config, conns ConnectionSource) CheckFunc {
	if !cfg.Network.Enabled {
		return func(context.Context) error { return fmt.Errorf("disabled in config") }
	}
	timeout := cfg.Network.Timeout
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if _, err := conns.Connections(ctx); err != nil && stderrors.Is(err, ErrPermission) {
			return fmt.Errorf("connection table not readable (run with elevated privileges for per-process network data)")
		}
		return nil
	}
}

func gpuCheck(gpu GPUSource) CheckFunc {
	if gpu == nil {
		return func(context.Context) error { return fmt.Errorf("disabled in config") }
	}
	return gpu.Available
}

// gpuSourceFor maps gpu.backend to a source. "none" yields nil.
func gpuSourceFor(g config.GPUConfig) GPUSource {
	switch g.Backend {
	case config.GPUBackendAMD:
		return NewAMDGPUSource(g.SysfsRoot)
	case config.GPUBackendNvidia:
		return NewNvidiaSMISource(g.Timeout)
	case config.GPUBackendNone:
		return nil
	default:
		return NewAutoGPUSource(NewAMDGPUSource(g.SysfsRoot), NewNvidiaSMISource(g.Timeout))
	}
}

// Start probes every capability once. Call it before the first RunDue or Run.
func (e *Engine) Start(ctx context.Context) {
	e.probe.Run(ctx)
}

// Advisories returns one line per missing capability, in name order.
func (e *Engine) Advisories() []string {
	flags := e.probe.Flags()
	var out []string
	for _, c := range e.probe.Capabilities() {
		if f, ok := flags[c]; ok && !f.Available {
			out = append(out, fmt.Sprintf("%s unavailable: %s", c, f.Reason))
		}
	}
	sort.Strings(out)
	return out
}

// RunDue runs every sampling task that is due at now.
func (e *Engine) RunDue(ctx context.Context, now time.Time) []string {
	return e.scheduler.RunDue(ctx, now)
}

// Run samples on every task's interval until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	return e.scheduler.Run(ctx)
}

// Snapshot returns a copy of the current state. Processes holds the top
// display.process_count records.
func (e *Engine) Snapshot() Snapshot {
	procs := e.netproc.Processes()
	var down, up float64
	for _, p := range procs {
		down += p.Download
		up += p.Upload
	}

	return Snapshot{
		Time:            e.now(),
		Capabilities:    e.probe.Flags(),
		System:          e.system.Latest(),
		Temperatures:    e.temps.ImportantList(),
		Sensors:         e.temps.AllTemperatures(),
		Processes:       e.netproc.TopProcesses(e.cfg.Display.ProcessCount),
		ProcessCount:    len(procs),
		ProcessDownload: down,
		ProcessUpload:   up,
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// History returns the shared metric history.
func (e *Engine) History() *History { return e.history }

// Probe returns the capability probe.
func (e *Engine) Probe() *Probe { return e.probe }

// Temperatures returns the temperature store.
func (e *Engine) Temperatures() *TemperatureStore { return e.temps }

// Correlator returns the process-network correlator.
func (e *Engine) Correlator() *Correlator { return e.netproc }

// System returns the system sampler.
func (e *Engine) System() *SystemSampler { return e.system }

// Scheduler returns the sampling scheduler.
func (e *Engine) Scheduler() *Scheduler { return e.scheduler }
