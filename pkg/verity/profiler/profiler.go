// Package profiler maintains per-rule execution-cost statistics. It keeps
// a running mean and variance per rule id using Welford's single-pass
// update, so recording is O(1) time and memory per rule and numerically
// stable regardless of sample count. Profiles persist across runs through
// a Store; a missing or corrupt store degrades to default estimates and
// never fails a run.
package profiler

import (
	"sync"
	"time"
)

// DefaultEstimate is returned for rules with no recorded history.
const DefaultEstimate = 10 * time.Millisecond

// Entry is the persisted statistics record for one rule. Durations are in
// seconds.
type Entry struct {
	SampleCount int64   `json:"sample_count"`
	Mean        float64 `json:"running_mean"`
	Variance    float64 `json:"running_variance"`
}

// welford holds in-flight state. M2 is the running sum of squared
// deviations; variance is M2/n.
type welford struct {
	count int64
	mean  float64
	m2    float64
}

// Profiler tracks execution cost per rule id. Safe for concurrent use;
// recording takes one coarse lock, matching the shared-resource policy of
// the scheduler.
type Profiler struct {
	mu      sync.Mutex
	entries map[string]*welford
}

// New creates an empty profiler.
func New() *Profiler {
	return &Profiler{entries: make(map[string]*welford)}
}

// NewFromSnapshot creates a profiler seeded with persisted entries.
// Entries with non-positive sample counts or negative variance are
// dropped: the zero-sample invariant requires mean and variance to be
// zero, and a negative variance can only come from a corrupt record.
func NewFromSnapshot(snapshot map[string]Entry) *Profiler {
	p := New()
	for id, e := range snapshot {
		if e.SampleCount <= 0 || e.Variance < 0 {
			continue
		}
		p.entries[id] = &welford{
			count: e.SampleCount,
			mean:  e.Mean,
			m2:    e.Variance * float64(e.SampleCount),
		}
	}
	return p
}

// Estimate returns the expected execution duration for a rule.
// Rules without history get DefaultEstimate; profiling is an optimization,
// not a correctness requirement.
func (p *Profiler) Estimate(id string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[id]
	if !ok || e.count == 0 {
		return DefaultEstimate
	}
	return time.Duration(e.mean * float64(time.Second))
}

// Record folds one observed duration into the rule's running statistics.
func (p *Profiler) Record(id string, observed time.Duration) {
	x := observed.Seconds()

	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[id]
	if !ok {
		e = &welford{}
		p.entries[id] = e
	}

	e.count++
	delta := x - e.mean
	e.mean += delta / float64(e.count)
	e.m2 += delta * (x - e.mean)
}

// Variance returns the population variance of recorded durations in
// seconds squared, and whether any samples exist.
func (p *Profiler) Variance(id string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[id]
	if !ok || e.count == 0 {
		return 0, false
	}
	return e.m2 / float64(e.count), true
}

// Samples returns the number of recorded observations for a rule.
func (p *Profiler) Samples(id string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[id]
	if !ok {
		return 0
	}
	return e.count
}

// Snapshot returns a copy of all statistics, suitable for persistence.
func (p *Profiler) Snapshot() map[string]Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]Entry, len(p.entries))
	for id, e := range p.entries {
		variance := 0.0
		if e.count > 0 {
			variance = e.m2 / float64(e.count)
		}
		out[id] = Entry{
			SampleCount: e.count,
			Mean:        e.mean,
			Variance:    variance,
		}
	}
	return out
}
