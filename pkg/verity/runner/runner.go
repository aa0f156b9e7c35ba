// Package runner orchestrates a full validation run: it partitions the
// rule set into dependency batches, sizes a worker pool per batch, places
// tasks by estimated cost, drives the work-stealing scheduler, and merges
// per-rule outcomes into a deterministic report.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/verity/pkg/verity/fscache"
	"github.com/jamesainslie/verity/pkg/verity/logging"
	"github.com/jamesainslie/verity/pkg/verity/metrics"
	"github.com/jamesainslie/verity/pkg/verity/profiler"
	"github.com/jamesainslie/verity/pkg/verity/rule"
	"github.com/jamesainslie/verity/pkg/verity/scheduler"
	"github.com/jamesainslie/verity/pkg/verity/sizer"
	"github.com/jamesainslie/verity/pkg/verity/types"
)

var logger = logging.Get("runner")

// Options configures a Runner. Cache and Profiler are required
// collaborators injected by the caller; there is no process-wide state, so
// multiple runners with isolated state can coexist (tests rely on this).
type Options struct {
	// Root is the file tree under validation, recorded in the report.
	Root string

	// Cache serves filesystem facts to rule executions.
	Cache *fscache.Cache

	// Profiler supplies cost estimates and absorbs observed durations.
	Profiler *profiler.Profiler

	// Store, when non-nil, receives a profile snapshot after every
	// batch so the next run starts with fresh estimates.
	Store *profiler.Store

	// Metrics, when non-nil, receives run instrumentation.
	Metrics *metrics.Collector

	// MaxWorkers bounds any batch's worker count. Non-positive values
	// auto-detect from system resources.
	MaxWorkers int

	// BatchTimeout bounds each batch's wall clock. Zero means no bound.
	// On expiry the scheduler stops handing out work; rules already
	// running finish, the rest report as pending.
	BatchTimeout time.Duration
}

// Runner executes rule sets.
type Runner struct {
	opts Options
}

// New creates a runner. Missing collaborators get standalone defaults.
func New(opts Options) *Runner {
	if opts.Cache == nil {
		opts.Cache = fscache.New(fscache.DefaultTTL)
	}
	if opts.Profiler == nil {
		opts.Profiler = profiler.New()
	}
	if opts.MaxWorkers <= 0 {
		resources, err := sizer.Detect()
		if err != nil {
			logger.Warn("resource detection failed, assuming 4 cores", "error", err)
			resources = sizer.SystemResources{CPUCores: 4}
		}
		opts.MaxWorkers = sizer.DefaultMaxWorkers(resources)
	}
	return &Runner{opts: opts}
}

// WithMetrics returns a runner sharing this runner's collaborators but
// reporting instrumentation to the collector.
func (r *Runner) WithMetrics(c *metrics.Collector) *Runner {
	opts := r.opts
	opts.Metrics = c
	return &Runner{opts: opts}
}

// Run validates the registry's rule set and returns the merged report.
// Batches execute sequentially in group order; rules within a batch run
// concurrently. A failing or panicking rule never aborts its batch; the
// only error Run returns is a scheduler invariant violation, which is a
// bug, or a cancelled context between batches.
func (r *Runner) Run(ctx context.Context, reg *rule.Registry) (*types.Report, error) {
	startStats := r.opts.Cache.Stats()
	report := &types.Report{
		RunID:     uuid.NewString(),
		Root:      r.opts.Root,
		StartedAt: time.Now(),
		Results:   make(map[string]types.ValidationResult, reg.Len()),
	}

	logger.Info("run started", "run_id", report.RunID, "rules", reg.Len(), "max_workers", r.opts.MaxWorkers)

	for _, batch := range reg.Batches() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats, err := r.runBatch(ctx, batch, report)
		if err != nil {
			return nil, err
		}
		report.Batches = append(report.Batches, stats)
	}

	report.WallClock = time.Since(report.StartedAt)

	endStats := r.opts.Cache.Stats()
	report.CacheHits = endStats.Hits - startStats.Hits
	report.CacheMisses = endStats.Misses - startStats.Misses
	r.opts.Metrics.CacheCounters(report.CacheHits, report.CacheMisses)

	logger.Info("run finished",
		"run_id", report.RunID,
		"passed", report.Passed(),
		"failed", report.Failed(),
		"wall", report.WallClock,
		"cache_hits", report.CacheHits,
		"cache_misses", report.CacheMisses)

	return report, nil
}

// runBatch schedules one dependency batch and merges its results.
func (r *Runner) runBatch(ctx context.Context, rules []rule.Rule, report *types.Report) (types.BatchStats, error) {
	group := 0
	if len(rules) > 0 {
		group = rules[0].Group()
	}

	workers := sizer.WorkersFor(len(rules), r.opts.MaxWorkers)

	tasks := make([]*scheduler.Task, 0, len(rules))
	for _, rl := range rules {
		tasks = append(tasks, &scheduler.Task{
			RuleID: rl.ID(),
			Cost:   r.opts.Profiler.Estimate(rl.ID()).Seconds(),
			Run:    r.taskFor(rl),
		})
	}

	batch := scheduler.Plan(tasks, workers)
	if r.opts.BatchTimeout > 0 {
		batch.SetDeadline(time.Now().Add(r.opts.BatchTimeout))
	}

	logger.Debug("batch planned", "group", group, "rules", len(rules), "workers", batch.Workers())

	outcome, err := batch.Run(ctx)
	if err != nil {
		return types.BatchStats{}, fmt.Errorf("batch group %d: %w", group, err)
	}

	for id, res := range outcome.Results {
		report.Results[id] = res
		if res.Pending {
			r.opts.Metrics.RulePending()
		}
	}
	r.opts.Metrics.BatchDrained(outcome.Steals, outcome.IdlePercent)

	r.persistProfile()

	return types.BatchStats{
		Group:          group,
		Rules:          len(rules),
		PlannedWorkers: batch.Workers(),
		WallClock:      outcome.WallClock,
		IdlePercent:    outcome.IdlePercent,
		Steals:         outcome.Steals,
		TimedOut:       outcome.TimedOut,
	}, nil
}

// taskFor wraps a rule execution with the task boundary: timing, profiler
// feedback, metrics, and panic recovery. A rule that panics or errors
// yields a failed result with the error text as evidence.
func (r *Runner) taskFor(rl rule.Rule) func(ctx context.Context) types.ValidationResult {
	return func(ctx context.Context) (res types.ValidationResult) {
		start := time.Now()
		r.opts.Metrics.RuleStarted()

		defer func() {
			if p := recover(); p != nil {
				res = types.ValidationResult{
					RuleID:   rl.ID(),
					Passed:   false,
					Duration: time.Since(start),
					Evidence: fmt.Sprintf("rule panicked: %v", p),
				}
				logger.Error("rule panicked", "rule", rl.ID(), "panic", p)
			}
			// Completed executions feed the profiler immediately so the
			// very next batch benefits from fresher estimates.
			r.opts.Profiler.Record(rl.ID(), res.Duration)
			r.opts.Metrics.RuleFinished(res.Passed, res.Duration)
		}()

		out, err := rl.Execute(ctx, r.opts.Cache)
		elapsed := time.Since(start)

		if err != nil {
			return types.ValidationResult{
				RuleID:   rl.ID(),
				Passed:   false,
				Duration: elapsed,
				Evidence: fmt.Sprintf("execution failed: %v", err),
			}
		}
		return types.ValidationResult{
			RuleID:   rl.ID(),
			Passed:   out.Passed,
			Duration: elapsed,
			Evidence: out.Evidence,
		}
	}
}

// persistProfile saves the current profile snapshot. Persistence failures
// degrade estimates, never the run.
func (r *Runner) persistProfile() {
	if r.opts.Store == nil {
		return
	}
	if err := r.opts.Store.Save(r.opts.Profiler.Snapshot()); err != nil {
		logger.Warn("profile save failed, estimates not persisted", "error", err)
	}
}
