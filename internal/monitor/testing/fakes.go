// Package testing provides test doubles for the monitor package's OS sources.
package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/amdtop/internal/monitor"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Conn builds a TCP connection row owned by pid.
func Conn(pid int32, localPort, remotePort uint32, status string) monitor.Connection {
	return monitor.Connection{
		PID: pid,
		ConnectionDescriptor: monitor.ConnectionDescriptor{
			LocalAddr:  "127.0.0.1",
			LocalPort:  localPort,
			RemoteAddr: "10.0.0.1",
			RemotePort: remotePort,
			Status:     status,
			Transport:  "tcp",
		},
	}
}

// FakeConnections is a scripted connection table.
type FakeConnections struct {
	mu    sync.Mutex
	conns []monitor.Connection
	err   error

	// Tracking for assertions
	Calls int
}

// NewFakeConnections returns a table holding conns.
func NewFakeConnections(conns ...monitor.Connection) *FakeConnections {
	return &FakeConnections{conns: conns}
}

// Set replaces the table and clears any error.
func (f *FakeConnections) Set(conns ...monitor.Connection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns = conns
	f.err = nil
}

// Fail makes the next calls return err.
func (f *FakeConnections) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Connections implements monitor.ConnectionSource.
func (f *FakeConnections) Connections(context.Context) ([]monitor.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]monitor.Connection(nil), f.conns...), nil
}

// FakeProcesses is a scripted process table.
type FakeProcesses struct {
	mu       sync.Mutex
	names    map[int32]string
	counters map[int32]monitor.IOCounters
	gone     map[int32]bool

	// Tracking for assertions
	NameCalls map[int32]int
}

// NewFakeProcesses returns an empty process table.
func NewFakeProcesses() *FakeProcesses {
	return &FakeProcesses{
		names:     make(map[int32]string),
		counters:  make(map[int32]monitor.IOCounters),
		gone:      make(map[int32]bool),
		NameCalls: make(map[int32]int),
	}
}

// Add registers a live process.
func (f *FakeProcesses) Add(pid int32, name string, read, write uint64) *FakeProcesses {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[pid] = name
	f.counters[pid] = monitor.IOCounters{ReadBytes: read, WriteBytes: write}
	delete(f.gone, pid)
	return f
}

// SetCounters updates the cumulative counters of pid.
func (f *FakeProcesses) SetCounters(pid int32, read, write uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[pid] = monitor.IOCounters{ReadBytes: read, WriteBytes: write}
}

// Kill makes every lookup for pid fail with ErrProcessGone.
func (f *FakeProcesses) Kill(pid int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gone[pid] = true
}

// Name implements monitor.ProcessSource.
func (f *FakeProcesses) Name(_ context.Context, pid int32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NameCalls[pid]++
	if err := f.lookup(pid); err != nil {
		return "", err
	}
	return f.names[pid], nil
}

// IOCounters implements monitor.ProcessSource.
func (f *FakeProcesses) IOCounters(_ context.Context, pid int32) (monitor.IOCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lookup(pid); err != nil {
		return monitor.IOCounters{}, err
	}
	return f.counters[pid], nil
}

func (f *FakeProcesses) lookup(pid int32) error {
	if _, ok := f.names[pid]; !ok || f.gone[pid] {
		return fmt.Errorf("pid %d: %w", pid, monitor.ErrProcessGone)
	}
	return nil
}

// FakeSensors returns canned sensor tool output.
type FakeSensors struct {
	mu     sync.Mutex
	output string
	err    error

	// Tracking for assertions
	Calls int
}

// NewFakeSensors returns a runner that prints output.
func NewFakeSensors(output string) *FakeSensors {
	return &FakeSensors{output: output}
}

// SetOutput replaces the output and clears any error.
func (f *FakeSensors) SetOutput(output string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.output = output
	f.err = nil
}

// Fail makes the next runs return err.
func (f *FakeSensors) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Run implements monitor.SensorRunner.
func (f *FakeSensors) Run(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

// FakeSystem is a scripted set of host-wide counters.
type FakeSystem struct {
	mu         sync.Mutex
	CPUPercent float64
	Cores      int
	Mem        monitor.MemoryStat
	Disk       monitor.IOCounters
	Net        monitor.NetCounters
	Parts      []monitor.Partition
	Err        error
}

// NewFakeSystem returns an idle 8-core host with 16GiB of memory.
func NewFakeSystem() *FakeSystem {
	return &FakeSystem{
		Cores: 8,
		Mem:   monitor.MemoryStat{Used: 4 << 30, Total: 16 << 30, Percent: 25},
	}
}

// Update applies fn under the fake's lock.
func (f *FakeSystem) Update(fn func(*FakeSystem)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// CPU implements monitor.SystemSource.
func (f *FakeSystem) CPU(context.Context) (float64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, 0, f.Err
	}
	return f.CPUPercent, f.Cores, nil
}

// Memory implements monitor.SystemSource.
func (f *FakeSystem) Memory(context.Context) (monitor.MemoryStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return monitor.MemoryStat{}, f.Err
	}
	return f.Mem, nil
}

// DiskCounters implements monitor.SystemSource.
func (f *FakeSystem) DiskCounters(context.Context) (monitor.IOCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return monitor.IOCounters{}, f.Err
	}
	return f.Disk, nil
}

// NetCounters implements monitor.SystemSource.
func (f *FakeSystem) NetCounters(context.Context) (monitor.NetCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return monitor.NetCounters{}, f.Err
	}
	return f.Net, nil
}

// Partitions implements monitor.SystemSource.
func (f *FakeSystem) Partitions(context.Context) ([]monitor.Partition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]monitor.Partition(nil), f.Parts...), nil
}

// FakeGPU is a scripted GPU source.
type FakeGPU struct {
	mu       sync.Mutex
	name     string
	metrics  *monitor.GPUMetrics
	availErr error
	queryErr error
}

// NewFakeGPU returns an available GPU reporting metrics.
func NewFakeGPU(name string, metrics *monitor.GPUMetrics) *FakeGPU {
	return &FakeGPU{name: name, metrics: metrics}
}

// Unavailable makes Available fail with err.
func (f *FakeGPU) Unavailable(err error) *FakeGPU {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availErr = err
	return f
}

// FailQuery makes Query fail with err.
func (f *FakeGPU) FailQuery(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryErr = err
}

// Name implements monitor.GPUSource.
func (f *FakeGPU) Name() string { return f.name }

// Available implements monitor.GPUSource.
func (f *FakeGPU) Available(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availErr
}

// Query implements monitor.GPUSource.
func (f *FakeGPU) Query(context.Context) (*monitor.GPUMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.metrics == nil {
		return nil, nil
	}
	m := *f.metrics
	return &m, nil
}

var (
	_ monitor.ConnectionSource = (*FakeConnections)(nil)
	_ monitor.ProcessSource    = (*FakeProcesses)(nil)
	_ monitor.SensorRunner     = (*FakeSensors)(nil)
	_ monitor.SystemSource     = (*FakeSystem)(nil)
	_ monitor.GPUSource        = (*FakeGPU)(nil)
)
