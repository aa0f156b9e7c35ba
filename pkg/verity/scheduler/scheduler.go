// Package scheduler executes one batch of independent rule tasks across a
// work-stealing worker pool.
//
// A batch moves through three states: planning sorts tasks by descending
// estimated cost (ties broken by rule id for determinism) and deals them
// round-robin across per-worker deques; running has each worker drain its
// own queue from the newest end and steal the oldest task of a victim,
// chosen round-robin, when its own queue is empty; the batch is drained
// when every queue is empty and no worker is mid-task, tracked by a single
// pending counter so there is no race between "queue empty" and "about to
// receive a stolen task".
//
// Largest-first placement is the classical makespan approximation: it
// avoids the worst case where the most expensive task is also the last
// one scheduled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/verity/pkg/verity/logging"
	"github.com/jamesainslie/verity/pkg/verity/types"
)

var logger = logging.Get("scheduler")

// ErrConservation reports a lost or duplicated work item. This is a bug
// class, not a runtime condition: it is returned (and asserted fatal in
// tests) rather than recovered from.
var ErrConservation = errors.New("work item conservation violated")

// State is the lifecycle phase of a batch.
type State int

// Batch lifecycle states.
const (
	StatePlanning State = iota
	StateRunning
	StateDrained
)

// Task is one schedulable rule execution. Created once per batch per rule
// and consumed exactly once by a worker.
type Task struct {
	// RuleID identifies the rule this task executes.
	RuleID string

	// Cost is the estimated execution time in seconds, used only for
	// placement.
	Cost float64

	// Run executes the rule. It must not panic; the runner wraps rule
	// execution with its own recovery boundary.
	Run func(ctx context.Context) types.ValidationResult
}

// Outcome is the result of running one batch.
type Outcome struct {
	// Results holds exactly one entry per planned task, keyed by rule
	// id. Tasks left unexecuted at the deadline appear with Pending set.
	Results map[string]types.ValidationResult

	// WallClock is the elapsed time of the running phase.
	WallClock time.Duration

	// IdlePercent is the share of total worker time not spent executing
	// tasks, in [0,100].
	IdlePercent float64

	// Steals is the number of successful steal operations.
	Steals int64

	// TimedOut indicates the deadline expired before the queues drained.
	TimedOut bool
}

// Batch owns the queues and workers for one scheduling round.
type Batch struct {
	tasks   []*Task
	queues  []*deque
	workers int

	// deadline is the wall-clock cutoff; zero means none. Workers stop
	// taking new work after it passes but are never interrupted
	// mid-rule, since forcibly stopping arbitrary rule code is unsafe.
	deadline time.Time

	state atomic.Int32

	pending   atomic.Int64
	steals    atomic.Int64
	busyNanos atomic.Int64

	resultsMu sync.Mutex
	results   map[string]types.ValidationResult
}

// Plan builds a batch: tasks sorted largest-estimated-cost first (rule id
// breaks ties) and distributed round-robin across workers queues. The
// worker count is taken as given (minimum one): callers may overprovision,
// in which case surplus workers find no work and idle out, which the
// outcome's idle percentage makes visible. Right-sizing the pool is the
// sizer's job, not the planner's.
func Plan(tasks []*Task, workers int) *Batch {
	if workers < 1 {
		workers = 1
	}

	sorted := make([]*Task, len(tasks))
	copy(sorted, tasks)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Cost != sorted[j].Cost {
			return sorted[i].Cost > sorted[j].Cost
		}
		return sorted[i].RuleID < sorted[j].RuleID
	})

	b := &Batch{
		tasks:   sorted,
		queues:  make([]*deque, workers),
		workers: workers,
		results: make(map[string]types.ValidationResult, len(tasks)),
	}
	for i := range b.queues {
		b.queues[i] = &deque{}
	}
	for i, t := range sorted {
		b.queues[i%workers].push(t)
	}
	b.pending.Store(int64(len(sorted)))
	return b
}

// SetDeadline sets the wall-clock cutoff for taking new work.
func (b *Batch) SetDeadline(d time.Time) { b.deadline = d }

// State returns the batch lifecycle phase.
func (b *Batch) State() State { return State(b.state.Load()) }

// Workers returns the planned worker count.
func (b *Batch) Workers() int { return b.workers }

// Run executes the batch and blocks until it drains or the deadline
// passes. It returns ErrConservation if the planned task multiset does not
// equal executed plus unexecuted tasks.
func (b *Batch) Run(ctx context.Context) (*Outcome, error) {
	b.state.Store(int32(StateRunning))
	start := time.Now()

	var wg sync.WaitGroup
	for id := 0; id < b.workers; id++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			b.workerLoop(ctx, workerID)
		}(id)
	}
	wg.Wait()

	wall := time.Since(start)
	timedOut := b.pending.Load() > 0

	// Report whatever never ran as pending rather than dropping it; a
	// batch always emits one result per planned rule.
	for _, q := range b.queues {
		for _, t := range q.drain() {
			b.putResult(types.ValidationResult{
				RuleID:   t.RuleID,
				Passed:   false,
				Pending:  true,
				Evidence: "not executed: batch deadline exceeded",
			})
			b.pending.Add(-1)
		}
	}

	b.state.Store(int32(StateDrained))

	if got, want := len(b.results), len(b.tasks); got != want || b.pending.Load() != 0 {
		return nil, fmt.Errorf("%w: planned %d, accounted %d, pending %d",
			ErrConservation, want, got, b.pending.Load())
	}

	totalWorker := wall.Nanoseconds() * int64(b.workers)
	idle := 0.0
	if totalWorker > 0 {
		idle = 100 * (1 - float64(b.busyNanos.Load())/float64(totalWorker))
		idle = max(min(idle, 100), 0)
	}

	logger.Debug("batch drained",
		"tasks", len(b.tasks),
		"workers", b.workers,
		"wall", wall,
		"steals", b.steals.Load(),
		"idle_pct", fmt.Sprintf("%.1f", idle),
		"timed_out", timedOut)

	return &Outcome{
		Results:     b.results,
		WallClock:   wall,
		IdlePercent: idle,
		Steals:      b.steals.Load(),
		TimedOut:    timedOut,
	}, nil
}

// workerLoop drains this worker's own queue, stealing when it runs dry,
// until nothing is pending or the deadline passes.
func (b *Batch) workerLoop(ctx context.Context, workerID int) {
	own := b.queues[workerID]

	for {
		if b.expired(ctx) {
			return
		}

		t := own.popOwn()
		if t == nil {
			t = b.stealFrom(workerID)
		}
		if t == nil {
			if b.pending.Load() == 0 {
				return
			}
			// Another worker is mid-task and may still push back
			// nothing; yield instead of spinning hot.
			runtime.Gosched()
			continue
		}

		begin := time.Now()
		res := t.Run(ctx)
		b.busyNanos.Add(time.Since(begin).Nanoseconds())

		b.putResult(res)
		b.pending.Add(-1)
	}
}

// stealFrom attempts one round of stealing, visiting victims round-robin
// starting after the calling worker. Round-robin keeps test runs
// deterministic relative to random victim selection.
func (b *Batch) stealFrom(workerID int) *Task {
	for i := 1; i < b.workers; i++ {
		victim := (workerID + i) % b.workers
		if t := b.queues[victim].steal(); t != nil {
			b.steals.Add(1)
			return t
		}
	}
	return nil
}

func (b *Batch) expired(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return !b.deadline.IsZero() && time.Now().After(b.deadline)
}

func (b *Batch) putResult(res types.ValidationResult) {
	b.resultsMu.Lock()
	b.results[res.RuleID] = res
	b.resultsMu.Unlock()
}
