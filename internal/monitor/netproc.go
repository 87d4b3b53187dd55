package monitor

import (
	"context"
	stderrors "errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rileyhilliard/amdtop/internal/errors"
	"github.com/rileyhilliard/amdtop/internal/logger"
)

// ConnectionSource enumerates system-wide inet connections.
// It returns an error wrapping ErrPermission when the OS refuses.
type ConnectionSource interface {
	Connections(ctx context.Context) ([]Connection, error)
}

// ProcessSource looks up per-process facts. Both methods return an error
// wrapping ErrProcessGone when the process has exited or cannot be inspected.
type ProcessSource interface {
	Name(ctx context.Context, pid int32) (string, error)
	IOCounters(ctx context.Context, pid int32) (IOCounters, error)
}

// Correlator groups inet connections by owning process and tracks per-process
// transfer rates.
//
// Rates come from process-wide read/write byte counters because the OS does
// not account bytes per socket. They include disk and pipe I/O and are an
// approximation of network activity, not a measurement of it.
type Correlator struct {
	mu      sync.RWMutex
	records map[int32]*ProcessNetworkRecord
	nextSeq uint64

	conns   ConnectionSource
	procs   ProcessSource
	rates   *RateCalculator
	probe   *Probe
	history *History
	now     func() time.Time
	log     logger.Logger
}

// NewCorrelator creates a correlator over the given sources.
// probe and history may be nil.
func NewCorrelator(conns ConnectionSource, procs ProcessSource, probe *Probe, history *History, log logger.Logger) *Correlator {
	if log == nil {
		log = logger.Noop()
	}
	return &Correlator{
		records: make(map[int32]*ProcessNetworkRecord),
		conns:   conns,
		procs:   procs,
		rates:   NewRateCalculator(),
		probe:   probe,
		history: history,
		now:     time.Now,
		log:     log,
	}
}

// SetClock replaces the time source used for rate computation.
func (c *Correlator) SetClock(now func() time.Time) {
	c.now = now
}

// Update polls the connection table and process counters once.
//
// A permission failure marks the network capability degraded and the
// correlator stays empty from then on. Other enumeration failures yield an
// empty set for this poll and are returned for logging. Processes that exit
// mid-poll are dropped silently.
func (c *Correlator) Update(ctx context.Context) error {
	if c.probe != nil && !c.probe.Available(CapNetwork) {
		c.reset()
		return nil
	}

	now := c.now()

	var queryErr error
	conns, err := c.conns.Connections(ctx)
	if err != nil {
		conns = nil
		if stderrors.Is(err, ErrPermission) {
			if c.probe != nil {
				c.probe.Set(CapNetwork, Flag{Reason: "connection table not readable (run with elevated privileges for per-process network data)"})
			}
		} else {
			queryErr = errors.WrapWithCode(err, errors.ErrQuery,
				"Couldn't enumerate network connections",
				"This is usually transient; the next poll will retry.")
		}
	}

	grouped, order := groupByPID(conns)

	c.mu.RLock()
	prev := c.records
	seq := c.nextSeq
	c.mu.RUnlock()

	next := make(map[int32]*ProcessNetworkRecord, len(order))
	for _, pid := range order {
		rec, known := prev[pid]
		name := ""
		recSeq := seq
		if known {
			name = rec.Name
			recSeq = rec.seq
		} else {
			n, err := c.procs.Name(ctx, pid)
			if err != nil {
				if stderrors.Is(err, ErrProcessGone) {
					c.log.Debug("pid %d exited before name lookup", pid)
					continue
				}
				// Name is best-effort
				c.log.Debug("pid %d name lookup: %v", pid, err)
			}
			name = n
			seq++
		}

		counters, err := c.procs.IOCounters(ctx, pid)
		if err != nil {
			c.log.Debug("pid %d dropped: %v", pid, err)
			c.forget(pid)
			continue
		}

		next[pid] = &ProcessNetworkRecord{
			PID:         pid,
			Name:        name,
			Connections: grouped[pid],
			Counters:    counters,
			Download:    c.rates.Rate(rateKey(pid, "recv"), float64(counters.ReadBytes), now),
			Upload:      c.rates.Rate(rateKey(pid, "send"), float64(counters.WriteBytes), now),
			seq:         recSeq,
		}
	}

	for pid := range prev {
		if _, ok := next[pid]; !ok {
			c.forget(pid)
		}
	}

	c.mu.Lock()
	c.records = next
	c.nextSeq = seq
	c.mu.Unlock()

	if c.history != nil {
		var down, up float64
		for _, r := range next {
			down += r.Download
			up += r.Upload
		}
		c.history.Push(KeyProcessDownload, down, now)
		c.history.Push(KeyProcessUpload, up, now)
	}

	return queryErr
}

// TopProcesses returns the n records with the highest combined rate,
// highest first. Ties keep discovery order.
func (c *Correlator) TopProcesses(n int) []ProcessNetworkRecord {
	if n <= 0 {
		return nil
	}
	all := c.Processes()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Total() > all[j].Total()
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Processes returns a copy of every tracked record in discovery order.
func (c *Correlator) Processes() []ProcessNetworkRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ProcessNetworkRecord, 0, len(c.records))
	for _, r := range c.records {
		cp := *r
		cp.Connections = append([]ConnectionDescriptor(nil), r.Connections...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// ConnectionCount returns the number of connections owned by pid, or 0.
func (c *Correlator) ConnectionCount(pid int32) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if r, ok := c.records[pid]; ok {
		return len(r.Connections)
	}
	return 0
}

// ConnectionDetails returns a copy of the connections owned by pid, or nil.
func (c *Correlator) ConnectionDetails(pid int32) []ConnectionDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.records[pid]
	if !ok {
		return nil
	}
	return append([]ConnectionDescriptor(nil), r.Connections...)
}

// Len returns the number of tracked processes.
func (c *Correlator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func (c *Correlator) forget(pid int32) {
	c.rates.Forget(rateKey(pid, "recv"))
	c.rates.Forget(rateKey(pid, "send"))
}

func (c *Correlator) reset() {
	c.mu.Lock()
	prev := c.records
	c.records = make(map[int32]*ProcessNetworkRecord)
	c.mu.Unlock()

	for pid := range prev {
		c.forget(pid)
	}
}

// groupByPID buckets connections by owner, dropping those without one.
// order lists PIDs in first-seen order.
func groupByPID(conns []Connection) (map[int32][]ConnectionDescriptor, []int32) {
	grouped := make(map[int32][]ConnectionDescriptor)
	var order []int32
	for _, conn := range conns {
		if conn.PID <= 0 {
			continue
		}
		if _, seen := grouped[conn.PID]; !seen {
			order = append(order, conn.PID)
		}
		grouped[conn.PID] = append(grouped[conn.PID], conn.ConnectionDescriptor)
	}
	return grouped, order
}

func rateKey(pid int32, dir string) string {
	return strconv.Itoa(int(pid)) + "/" + dir
}
