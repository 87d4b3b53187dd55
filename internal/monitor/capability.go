package monitor

import (
	"context"
	"sort"
	"sync"

	"github.com/rileyhilliard/amdtop/internal/logger"
)

// Capability names an optional external facility.
type Capability string

const (
	// CapSensors is the external temperature tool.
	CapSensors Capability = "sensors"
	// CapNetwork is permission to enumerate system-wide inet connections.
	CapNetwork Capability = "network"
	// CapGPU is a GPU query facility (amdgpu sysfs or nvidia-smi).
	CapGPU Capability = "gpu"
)

// Flag is the availability of one capability. Reason explains a missing
// capability and is empty when Available is true.
type Flag struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// CheckFunc probes one capability. A nil error means available; the error
// text becomes the Flag reason otherwise.
type CheckFunc func(ctx context.Context) error

// Probe records which external facilities are usable. Components consult it
// instead of failing hard, and each missing capability is reported once.
type Probe struct {
	mu     sync.RWMutex
	checks map[Capability]CheckFunc
	flags  map[Capability]Flag
	warned map[Capability]bool
	log    logger.Logger
}

// NewProbe creates a probe for the given checks. Nothing is probed until
// Run or Recheck is called; unprobed capabilities report unavailable.
func NewProbe(checks map[Capability]CheckFunc, log logger.Logger) *Probe {
	if log == nil {
		log = logger.Noop()
	}
	c := make(map[Capability]CheckFunc, len(checks))
	for k, v := range checks {
		c[k] = v
	}
	return &Probe{
		checks: c,
		flags:  make(map[Capability]Flag),
		warned: make(map[Capability]bool),
		log:    log,
	}
}

// Run probes every registered capability once.
func (p *Probe) Run(ctx context.Context) {
	for _, c := range p.Capabilities() {
		p.Recheck(ctx, c)
	}
}

// Recheck explicitly re-probes one capability and returns its new flag.
// Capabilities without a registered check are reported unavailable.
func (p *Probe) Recheck(ctx context.Context, c Capability) Flag {
	p.mu.RLock()
	check, ok := p.checks[c]
	p.mu.RUnlock()

	if !ok {
		flag := Flag{Reason: "no check registered"}
		p.Set(c, flag)
		return flag
	}

	flag := Flag{Available: true}
	if err := check(ctx); err != nil {
		flag = Flag{Reason: err.Error()}
	}
	p.Set(c, flag)
	return flag
}

// Set records a flag. Components use this to mark a capability degraded
// when a live call discovers the facility is gone.
func (p *Probe) Set(c Capability, flag Flag) {
	p.mu.Lock()
	p.flags[c] = flag
	warn := false
	if flag.Available {
		// Allow a fresh warning if it goes away again later
		delete(p.warned, c)
	} else if !p.warned[c] {
		p.warned[c] = true
		warn = true
	}
	p.mu.Unlock()

	if warn {
		p.log.Warn("%s unavailable: %s", c, flag.Reason)
	}
}

// Status returns whether c is available and, if not, why.
func (p *Probe) Status(c Capability) (bool, string) {
	flag := p.Flag(c)
	return flag.Available, flag.Reason
}

// Flag returns the recorded flag for c. Unprobed capabilities are unavailable.
func (p *Probe) Flag(c Capability) Flag {
	p.mu.RLock()
	defer p.mu.RUnlock()

	flag, ok := p.flags[c]
	if !ok {
		return Flag{Reason: "not probed"}
	}
	return flag
}

// Available is shorthand for Flag(c).Available.
func (p *Probe) Available(c Capability) bool {
	return p.Flag(c).Available
}

// Flags returns a copy of every recorded flag.
func (p *Probe) Flags() map[Capability]Flag {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[Capability]Flag, len(p.flags))
	for k, v := range p.flags {
		out[k] = v
	}
	return out
}

// Capabilities returns the registered capabilities in name order.
func (p *Probe) Capabilities() []Capability {
	p.mu.RLock()
	defer p.mu.RUnlock()

	caps := make([]Capability, 0, len(p.checks))
	for c := range p.checks {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}
