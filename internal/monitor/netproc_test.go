package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rileyhilliard/amdtop/internal/logger"
	"github.com/rileyhilliard/amdtop/internal/monitor"
	mtesting "github.com/rileyhilliard/amdtop/internal/monitor/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// newCorrelator returns a correlator with the network capability available.
func newCorrelator(conns *mtesting.FakeConnections, procs *mtesting.FakeProcesses, log logger.Logger) (*monitor.Correlator, *monitor.Probe, *monitor.History, *mtesting.Clock) {
	probe := monitor.NewProbe(nil, log)
	probe.Set(monitor.CapNetwork, monitor.Flag{Available: true})
	history := monitor.NewHistory(10)
	clock := mtesting.NewClock(epoch)

	c := monitor.NewCorrelator(conns, procs, probe, history, log)
	c.SetClock(clock.Now)
	return c, probe, history, clock
}

func TestCorrelatorRates(t *testing.T) {
	conns := mtesting.NewFakeConnections(mtesting.Conn(100, 5000, 443, "ESTABLISHED"))
	procs := mtesting.NewFakeProcesses().Add(100, "firefox", 1000, 500)
	c, _, _, clock := newCorrelator(conns, procs, logger.Noop())
	ctx := context.Background()

	require.NoError(t, c.Update(ctx))
	top := c.TopProcesses(10)
	require.Len(t, top, 1)
	assert.Equal(t, "firefox", top[0].Name)
	assert.Equal(t, 0.0, top[0].Download, "first observation is zero")
	assert.Equal(t, 0.0, top[0].Upload)

	clock.Advance(2 * time.Second)
	procs.SetCounters(100, 3000, 500)
	require.NoError(t, c.Update(ctx))

	top = c.TopProcesses(10)
	require.Len(t, top, 1)
	assert.Equal(t, 1000.0, top[0].Download)
	assert.Equal(t, 0.0, top[0].Upload)
	assert.Equal(t, uint64(3000), top[0].Counters.ReadBytes)
}

func TestCorrelatorCounterResetClampsToZero(t *testing.T) {
	conns := mtesting.NewFakeConnections(mtesting.Conn(100, 5000, 443, "ESTABLISHED"))
	procs := mtesting.NewFakeProcesses().Add(100, "app", 9000, 9000)
	c, _, _, clock := newCorrelator(conns, procs, logger.Noop())

	require.NoError(t, c.Update(context.Background()))
	clock.Advance(time.Second)
	procs.SetCounters(100, 10, 10)
	require.NoError(t, c.Update(context.Background()))

	top := c.TopProcesses(1)
	require.Len(t, top, 1)
	assert.Equal(t, 0.0, top[0].Download)
	assert.Equal(t, 0.0, top[0].Upload)
}

func TestCorrelatorGroupsByPID(t *testing.T) {
	conns := mtesting.NewFakeConnections(
		mtesting.Conn(100, 5000, 443, "ESTABLISHED"),
		mtesting.Conn(200, 22, 0, "LISTEN"),
		mtesting.Conn(100, 5001, 443, "ESTABLISHED"),
		mtesting.Conn(0, 68, 0, "NONE"), // no owner, discarded
	)
	procs := mtesting.NewFakeProcesses().
		Add(100, "firefox", 0, 0).
		Add(200, "sshd", 0, 0)
	c, _, _, _ := newCorrelator(conns, procs, logger.Noop())

	require.NoError(t, c.Update(context.Background()))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, c.ConnectionCount(100))
	assert.Equal(t, 1, c.ConnectionCount(200))
	assert.Equal(t, 0, c.ConnectionCount(0))

	details := c.ConnectionDetails(100)
	require.Len(t, details, 2)
	assert.Equal(t, uint32(5000), details[0].LocalPort)
	assert.Equal(t, uint32(5001), details[1].LocalPort)
	assert.Equal(t, "ESTABLISHED", details[0].Status)
	assert.Equal(t, "tcp", details[0].Transport)
}

func TestCorrelatorReplacesConnections(t *testing.T) {
	conns := mtesting.NewFakeConnections(
		mtesting.Conn(100, 5000, 443, "ESTABLISHED"),
		mtesting.Conn(100, 5001, 443, "ESTABLISHED"),
	)
	procs := mtesting.NewFakeProcesses().Add(100, "app", 0, 0)
	c, _, _, _ := newCorrelator(conns, procs, logger.Noop())

	require.NoError(t, c.Update(context.Background()))
	require.Equal(t, 2, c.ConnectionCount(100))

	conns.Set(mtesting.Conn(100, 6000, 80, "TIME_WAIT"))
	require.NoError(t, c.Update(context.Background()))

	details := c.ConnectionDetails(100)
	require.Len(t, details, 1, "list is replaced, not merged")
	assert.Equal(t, uint32(6000), details[0].LocalPort)
}

func TestCorrelatorPrunesExitedProcesses(t *testing.T) {
	conns := mtesting.NewFakeConnections(
		mtesting.Conn(100, 5000, 443, "ESTABLISHED"),
		mtesting.Conn(200, 5001, 443, "ESTABLISHED"),
	)
	procs := mtesting.NewFakeProcesses().
		Add(100, "firefox", 0, 0).
		Add(200, "curl", 0, 0)
	c, _, _, _ := newCorrelator(conns, procs, logger.Noop())

	require.NoError(t, c.Update(context.Background()))
	require.Equal(t, 2, c.Len())

	// Poll 2: pid 200 no longer in the connection table
	conns.Set(mtesting.Conn(100, 5000, 443, "ESTABLISHED"))
	require.NoError(t, c.Update(context.Background()))

	assert.Equal(t, 0, c.ConnectionCount(200))
	assert.Nil(t, c.ConnectionDetails(200))
	for _, p := range c.TopProcesses(10) {
		assert.NotEqual(t, int32(200), p.PID)
	}
	assert.Equal(t, 1, c.Len())
}

func TestCorrelatorVanishedProcessIsSilent(t *testing.T) {
	log := logger.NewBufferLogger()
	conns := mtesting.NewFakeConnections(
		mtesting.Conn(100, 5000, 443, "ESTABLISHED"),
		mtesting.Conn(300, 5002, 443, "ESTABLISHED"),
	)
	procs := mtesting.NewFakeProcesses().
		Add(100, "firefox", 0, 0).
		Add(300, "short-lived", 0, 0)
	procs.Kill(300)
	c, _, _, _ := newCorrelator(conns, procs, log)

	require.NoError(t, c.Update(context.Background()))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.ConnectionCount(300))
	assert.False(t, log.HasLevel("warn"))
	assert.False(t, log.HasLevel("error"))
}

func TestCorrelatorProcessExitsBetweenPolls(t *testing.T) {
	conns := mtesting.NewFakeConnections(mtesting.Conn(100, 5000, 443, "ESTABLISHED"))
	procs := mtesting.NewFakeProcesses().Add(100, "app", 100, 100)
	c, _, _, clock := newCorrelator(conns, procs, logger.Noop())

	require.NoError(t, c.Update(context.Background()))
	require.Equal(t, 1, c.Len())

	// Still listed by the OS but the counter lookup fails
	procs.Kill(100)
	clock.Advance(time.Second)
	require.NoError(t, c.Update(context.Background()))
	assert.Equal(t, 0, c.Len())

	// PID reused by a new process: rates start fresh
	procs.Add(100, "other", 50000, 0)
	clock.Advance(time.Second)
	require.NoError(t, c.Update(context.Background()))

	top := c.TopProcesses(1)
	require.Len(t, top, 1)
	assert.Equal(t, "other", top[0].Name)
	assert.Equal(t, 0.0, top[0].Download)
}

func TestCorrelatorNameLookedUpOnce(t *testing.T) {
	conns := mtesting.NewFakeConnections(mtesting.Conn(100, 5000, 443, "ESTABLISHED"))
	procs := mtesting.NewFakeProcesses().Add(100, "app", 0, 0)
	c, _, _, _ := newCorrelator(conns, procs, logger.Noop())

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Update(context.Background()))
	}
	assert.Equal(t, 1, procs.NameCalls[100])
}

func TestCorrelatorTopProcessesOrdering(t *testing.T) {
	conns := mtesting.NewFakeConnections(
		mtesting.Conn(10, 1, 1, "ESTABLISHED"),
		mtesting.Conn(20, 2, 2, "ESTABLISHED"),
		mtesting.Conn(30, 3, 3, "ESTABLISHED"),
		mtesting.Conn(40, 4, 4, "ESTABLISHED"),
	)
	procs := mtesting.NewFakeProcesses().
		Add(10, "a", 0, 0).
		Add(20, "b", 0, 0).
		Add(30, "c", 0, 0).
		Add(40, "d", 0, 0)
	c, _, _, clock := newCorrelator(conns, procs, logger.Noop())
	require.NoError(t, c.Update(context.Background()))

	clock.Advance(time.Second)
	procs.SetCounters(10, 100, 0)  // 100 B/s
	procs.SetCounters(20, 300, 0)  // 300 B/s
	procs.SetCounters(30, 50, 50)  // 100 B/s, ties with pid 10
	procs.SetCounters(40, 0, 1000) // 1000 B/s
	require.NoError(t, c.Update(context.Background()))

	top := c.TopProcesses(10)
	pids := make([]int32, len(top))
	for i, p := range top {
		pids[i] = p.PID
	}
	assert.Equal(t, []int32{40, 20, 10, 30}, pids, "ties keep discovery order")

	assert.Len(t, c.TopProcesses(2), 2)
	assert.Empty(t, c.TopProcesses(0))
	assert.Empty(t, c.TopProcesses(-1))
}

func TestCorrelatorPermissionDenied(t *testing.T) {
	log := logger.NewBufferLogger()
	conns := mtesting.NewFakeConnections()
	conns.Fail(fmt.Errorf("reading /proc/net/tcp: %w", monitor.ErrPermission))
	procs := mtesting.NewFakeProcesses()
	c, probe, _, _ := newCorrelator(conns, procs, log)

	require.NoError(t, c.Update(context.Background()), "permission failures are not errors")
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.TopProcesses(5))

	ok, reason := probe.Status(monitor.CapNetwork)
	assert.False(t, ok)
	assert.Contains(t, reason, "elevated privileges")
	assert.Equal(t, 1, log.Count("warn"))

	// Degraded for the rest of the run: the table is not queried again
	calls := conns.Calls
	require.NoError(t, c.Update(context.Background()))
	assert.Equal(t, calls, conns.Calls)
	assert.Equal(t, 1, log.Count("warn"))
}

func TestCorrelatorTransientFailure(t *testing.T) {
	conns := mtesting.NewFakeConnections(mtesting.Conn(100, 5000, 443, "ESTABLISHED"))
	procs := mtesting.NewFakeProcesses().Add(100, "app", 0, 0)
	c, probe, _, _ := newCorrelator(conns, procs, logger.Noop())

	require.NoError(t, c.Update(context.Background()))
	require.Equal(t, 1, c.Len())

	conns.Fail(errors.New("netlink: resource busy"))
	err := c.Update(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, c.Len(), "empty for this cycle")
	assert.True(t, probe.Available(monitor.CapNetwork))

	conns.Set(mtesting.Conn(100, 5000, 443, "ESTABLISHED"))
	require.NoError(t, c.Update(context.Background()))
	assert.Equal(t, 1, c.Len())
}

func TestCorrelatorPushesTotals(t *testing.T) {
	conns := mtesting.NewFakeConnections(
		mtesting.Conn(100, 1, 1, "ESTABLISHED"),
		mtesting.Conn(200, 2, 2, "ESTABLISHED"),
	)
	procs := mtesting.NewFakeProcesses().
		Add(100, "a", 0, 0).
		Add(200, "b", 0, 0)
	c, _, history, clock := newCorrelator(conns, procs, logger.Noop())

	require.NoError(t, c.Update(context.Background()))
	clock.Advance(time.Second)
	procs.SetCounters(100, 100, 10)
	procs.SetCounters(200, 200, 20)
	require.NoError(t, c.Update(context.Background()))

	assert.Equal(t, []float64{0, 300}, history.Values(monitor.KeyProcessDownload))
	assert.Equal(t, []float64{0, 30}, history.Values(monitor.KeyProcessUpload))
}

func TestCorrelatorUnknownPID(t *testing.T) {
	c, _, _, _ := newCorrelator(mtesting.NewFakeConnections(), mtesting.NewFakeProcesses(), logger.Noop())

	assert.Equal(t, 0, c.ConnectionCount(12345))
	assert.Nil(t, c.ConnectionDetails(12345))
	assert.Empty(t, c.Processes())
}
