// Package types provides core data types for the verity structural validator.
// It includes the per-rule validation result, the aggregated report, and
// batch-level timing metadata, along with small formatting helpers.
package types

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// ValidationResult is the outcome of executing a single rule.
// Exactly one result exists per rule id in a finished report, including
// rules that failed or were never executed due to a batch timeout.
type ValidationResult struct {
	// RuleID is the unique identifier of the rule.
	RuleID string `json:"rule_id" yaml:"rule_id"`

	// Passed indicates whether the rule's check succeeded.
	Passed bool `json:"passed" yaml:"passed"`

	// Pending indicates the rule was never executed because the batch
	// deadline expired before a worker picked it up. Pending implies
	// Passed == false.
	Pending bool `json:"pending,omitempty" yaml:"pending,omitempty"`

	// Duration is the observed execution time. Zero for pending rules.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Evidence describes what the rule observed: the violating path,
	// the error text for a failed execution, or empty on a clean pass.
	Evidence string `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// BatchStats captures scheduling metadata for a single dependency batch.
type BatchStats struct {
	// Group is the dependency-group ordinal of the batch.
	Group int `json:"group" yaml:"group"`

	// Rules is the number of rules scheduled in the batch.
	Rules int `json:"rules" yaml:"rules"`

	// PlannedWorkers is the worker count the sizer selected.
	PlannedWorkers int `json:"planned_workers" yaml:"planned_workers"`

	// WallClock is the elapsed time for the batch.
	WallClock time.Duration `json:"wall_clock" yaml:"wall_clock"`

	// IdlePercent is the fraction of worker time spent not executing
	// rules, expressed as a percentage in [0,100].
	IdlePercent float64 `json:"idle_percent" yaml:"idle_percent"`

	// Steals is the number of successful steal operations.
	Steals int64 `json:"steals" yaml:"steals"`

	// TimedOut indicates the batch deadline expired before all rules ran.
	TimedOut bool `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
}

// Report is the aggregated outcome of a validation run.
type Report struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id" yaml:"run_id"`

	// Root is the file tree the rules were validated against.
	Root string `json:"root" yaml:"root"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// WallClock is the total elapsed time for the run.
	WallClock time.Duration `json:"wall_clock" yaml:"wall_clock"`

	// Results maps rule id to its outcome. Use Ordered for deterministic
	// iteration.
	Results map[string]ValidationResult `json:"results" yaml:"results"`

	// Batches contains per-batch scheduling metadata in execution order.
	Batches []BatchStats `json:"batches" yaml:"batches"`

	// CacheHits and CacheMisses summarize scan-cache behavior for the run.
	CacheHits   int64 `json:"cache_hits" yaml:"cache_hits"`
	CacheMisses int64 `json:"cache_misses" yaml:"cache_misses"`
}

// Ordered returns all results sorted by rule id. The report's iteration
// order is fixed regardless of execution or completion order so that
// output is stable across runs for diffing.
func (r *Report) Ordered() []ValidationResult {
	ids := make([]string, 0, len(r.Results))
	for id := range r.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ValidationResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.Results[id])
	}
	return out
}

// Passed returns the number of rules that passed.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// Failed returns the number of rules that failed, including pending rules.
func (r *Report) Failed() int {
	return len(r.Results) - r.Passed()
}

// Ok reports whether every rule passed.
func (r *Report) Ok() bool {
	return r.Failed() == 0
}

// FormatDuration renders a duration at millisecond precision for display.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}
