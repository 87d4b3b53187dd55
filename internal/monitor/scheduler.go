package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/amdtop/internal/errors"
	"github.com/rileyhilliard/amdtop/internal/logger"
)

// Task is one periodic update. Timeout bounds a single run; zero means the
// run is bounded only by the caller's context.
type Task struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

type taskState struct {
	Task
	next    time.Time
	runs    int
	lastErr error
}

// TaskStatus reports how a task has been doing.
type TaskStatus struct {
	Name    string
	Runs    int
	Next    time.Time
	LastErr error
}

// Scheduler runs each task on its own interval from a single loop.
// Task errors are logged and swallowed; nothing a task returns stops the loop.
type Scheduler struct {
	mu    sync.Mutex
	tasks []*taskState
	log   logger.Logger
}

// NewScheduler creates a scheduler for tasks. Tasks with a non-positive
// interval are ignored.
func NewScheduler(log logger.Logger, tasks ...Task) *Scheduler {
	if log == nil {
		log = logger.Noop()
	}
	s := &Scheduler{log: log}
	for _, t := range tasks {
		if t.Interval <= 0 || t.Run == nil {
			continue
		}
		s.tasks = append(s.tasks, &taskState{Task: t})
	}
	return s
}

// RunDue runs every task whose next run time is at or before now, in
// registration order, and returns the names of the tasks it ran.
// A task that has never run is always due.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ran []string
	for _, t := range s.tasks {
		if !t.next.IsZero() && now.Before(t.next) {
			continue
		}
		t.lastErr = s.runTask(ctx, t)
		t.runs++
		t.next = now.Add(t.Interval)
		ran = append(ran, t.Name)
	}
	return ran
}

func (s *Scheduler) runTask(ctx context.Context, t *taskState) error {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	err := t.Run(ctx)
	if err != nil {
		s.log.Warn("%s update failed: %s", t.Name, errors.Short(err))
	}
	return err
}

// Run calls RunDue immediately and then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.RunDue(ctx, time.Now())

	ticker := time.NewTicker(s.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.RunDue(ctx, now)
		}
	}
}

// TickInterval is the greatest common divisor of the task intervals, so
// every task is checked exactly when it becomes due. It never goes below
// 100ms, and is one second when there are no tasks.
func (s *Scheduler) TickInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var g time.Duration
	for _, t := range s.tasks {
		g = gcd(g, t.Interval)
	}
	switch {
	case g == 0:
		return time.Second
	case g < 100*time.Millisecond:
		return 100 * time.Millisecond
	}
	return g
}

// Status returns the state of every task in registration order.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskStatus, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = TaskStatus{Name: t.Name, Runs: t.runs, Next: t.next, LastErr: t.lastErr}
	}
	return out
}

func gcd(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
