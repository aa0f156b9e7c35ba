package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/verity/pkg/verity/types"
)

// taskSet builds n instant tasks with ids rule-00..rule-(n-1) and uniform
// cost. executed counts total invocations across all tasks.
func taskSet(n int, executed *atomic.Int64) []*Task {
	tasks := make([]*Task, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("rule-%02d", i)
		tasks[i] = &Task{
			RuleID: id,
			Cost:   0.01,
			Run: func(ctx context.Context) types.ValidationResult {
				executed.Add(1)
				return types.ValidationResult{RuleID: id, Passed: true}
			},
		}
	}
	return tasks
}

func TestPlanSortsLargestCostFirst(t *testing.T) {
	tasks := []*Task{
		{RuleID: "cheap", Cost: 0.001},
		{RuleID: "expensive", Cost: 1.0},
		{RuleID: "medium", Cost: 0.1},
	}

	b := Plan(tasks, 1)
	require.Len(t, b.tasks, 3)
	assert.Equal(t, "expensive", b.tasks[0].RuleID)
	assert.Equal(t, "medium", b.tasks[1].RuleID)
	assert.Equal(t, "cheap", b.tasks[2].RuleID)
}

func TestPlanBreaksCostTiesByRuleID(t *testing.T) {
	tasks := []*Task{
		{RuleID: "zeta", Cost: 0.5},
		{RuleID: "alpha", Cost: 0.5},
		{RuleID: "mid", Cost: 0.5},
	}

	b := Plan(tasks, 1)
	assert.Equal(t, "alpha", b.tasks[0].RuleID)
	assert.Equal(t, "mid", b.tasks[1].RuleID)
	assert.Equal(t, "zeta", b.tasks[2].RuleID)
}

func TestPlanDealsRoundRobin(t *testing.T) {
	tasks := []*Task{
		{RuleID: "a", Cost: 4},
		{RuleID: "b", Cost: 3},
		{RuleID: "c", Cost: 2},
		{RuleID: "d", Cost: 1},
	}

	b := Plan(tasks, 2)
	require.Len(t, b.queues, 2)
	assert.Equal(t, 2, b.queues[0].size())
	assert.Equal(t, 2, b.queues[1].size())
}

func TestPlanKeepsRequestedWorkers(t *testing.T) {
	tasks := []*Task{
		{RuleID: "only", Cost: 1},
	}

	b := Plan(tasks, 8)
	assert.Equal(t, 8, b.Workers())
}

// An overprovisioned pool still executes every task exactly once; the
// surplus workers contribute nothing but idle time.
func TestRunSurplusWorkersIdleOut(t *testing.T) {
	var executed atomic.Int64
	tasks := taskSet(3, &executed)

	outcome, err := Plan(tasks, 8).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), executed.Load())
	assert.Len(t, outcome.Results, 3)
	assert.Greater(t, outcome.IdlePercent, 50.0)
}

func TestPlanMinimumOneWorker(t *testing.T) {
	tasks := []*Task{
		{RuleID: "a", Cost: 1},
		{RuleID: "b", Cost: 1},
	}

	b := Plan(tasks, 0)
	assert.Equal(t, 1, b.Workers())
}

// TestRunConservation verifies the core invariant at several worker
// counts: every planned task is executed exactly once and produces exactly
// one result.
func TestRunConservation(t *testing.T) {
	for _, workers := range []int{1, 2, 3, 4, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			var executed atomic.Int64
			tasks := taskSet(23, &executed)

			b := Plan(tasks, workers)
			outcome, err := b.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, int64(23), executed.Load())
			assert.Len(t, outcome.Results, 23)
			for _, task := range tasks {
				res, ok := outcome.Results[task.RuleID]
				require.True(t, ok, "missing result for %s", task.RuleID)
				assert.False(t, res.Pending)
			}
			assert.Equal(t, StateDrained, b.State())
		})
	}
}

func TestRunEmptyBatch(t *testing.T) {
	b := Plan(nil, 4)
	outcome, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, outcome.Results)
	assert.False(t, outcome.TimedOut)
}

// TestRunStealsOccur drives an imbalanced batch. With two workers and
// descending costs 6..1, round-robin dealing puts rule-5 (cost 1) at the
// newest end of worker 1's queue, so worker 1 pops it first. While it
// sleeps there, worker 0 drains its own instant tasks and must steal the
// rest of worker 1's queue to finish the batch.
func TestRunStealsOccur(t *testing.T) {
	var executed atomic.Int64
	tasks := make([]*Task, 6)
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("rule-%d", i)
		slow := i == 5
		tasks[i] = &Task{
			RuleID: id,
			Cost:   float64(6 - i),
			Run: func(ctx context.Context) types.ValidationResult {
				if slow {
					time.Sleep(50 * time.Millisecond)
				}
				executed.Add(1)
				return types.ValidationResult{RuleID: id, Passed: true}
			},
		}
	}

	b := Plan(tasks, 2)
	outcome, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(6), executed.Load())
	assert.Positive(t, outcome.Steals, "imbalanced batch should trigger steals")
}

func TestRunResultsCarryFailures(t *testing.T) {
	tasks := []*Task{
		{
			RuleID: "fails",
			Cost:   0.01,
			Run: func(ctx context.Context) types.ValidationResult {
				return types.ValidationResult{RuleID: "fails", Passed: false, Evidence: "missing dir"}
			},
		},
		{
			RuleID: "passes",
			Cost:   0.01,
			Run: func(ctx context.Context) types.ValidationResult {
				return types.ValidationResult{RuleID: "passes", Passed: true}
			},
		},
	}

	b := Plan(tasks, 2)
	outcome, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, outcome.Results["fails"].Passed)
	assert.Equal(t, "missing dir", outcome.Results["fails"].Evidence)
	assert.True(t, outcome.Results["passes"].Passed)
}

// TestRunDeadlineMarksUnexecutedPending plans slow tasks behind an
// already-expired deadline on one worker: the first pop never happens, so
// every task reports pending and no rule body runs.
func TestRunDeadlineMarksUnexecutedPending(t *testing.T) {
	var executed atomic.Int64
	tasks := taskSet(5, &executed)

	b := Plan(tasks, 1)
	b.SetDeadline(time.Now().Add(-time.Second))

	outcome, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, outcome.TimedOut)
	assert.Equal(t, int64(0), executed.Load())
	require.Len(t, outcome.Results, 5)
	for _, res := range outcome.Results {
		assert.True(t, res.Pending)
		assert.False(t, res.Passed)
		assert.Equal(t, "not executed: batch deadline exceeded", res.Evidence)
	}
}

// TestRunDeadlineNeverInterruptsMidTask starts a task before the deadline
// and lets the deadline pass while it runs; the task must still complete
// and report a real result.
func TestRunDeadlineNeverInterruptsMidTask(t *testing.T) {
	done := make(chan struct{})
	tasks := []*Task{
		{
			RuleID: "slow",
			Cost:   1,
			Run: func(ctx context.Context) types.ValidationResult {
				time.Sleep(80 * time.Millisecond)
				close(done)
				return types.ValidationResult{RuleID: "slow", Passed: true}
			},
		},
	}

	b := Plan(tasks, 1)
	b.SetDeadline(time.Now().Add(20 * time.Millisecond))

	outcome, err := b.Run(context.Background())
	require.NoError(t, err)

	select {
	case <-done:
	default:
		t.Fatal("task did not run to completion")
	}
	res := outcome.Results["slow"]
	assert.True(t, res.Passed)
	assert.False(t, res.Pending)
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var executed atomic.Int64
	tasks := taskSet(4, &executed)

	b := Plan(tasks, 2)
	outcome, err := b.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(0), executed.Load())
	assert.True(t, outcome.TimedOut)
	for _, res := range outcome.Results {
		assert.True(t, res.Pending)
	}
}

// TestRunDeterministicResults runs the same batch shape repeatedly and
// verifies the result set is identical each time regardless of thread
// interleaving.
func TestRunDeterministicResults(t *testing.T) {
	for i := 0; i < 10; i++ {
		var executed atomic.Int64
		tasks := taskSet(16, &executed)

		b := Plan(tasks, 4)
		outcome, err := b.Run(context.Background())
		require.NoError(t, err)

		require.Len(t, outcome.Results, 16)
		for _, task := range tasks {
			res := outcome.Results[task.RuleID]
			assert.Equal(t, task.RuleID, res.RuleID)
			assert.True(t, res.Passed)
		}
	}
}

func TestRunIdlePercentBounds(t *testing.T) {
	var executed atomic.Int64
	tasks := taskSet(10, &executed)

	b := Plan(tasks, 4)
	outcome, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, outcome.IdlePercent, 0.0)
	assert.LessOrEqual(t, outcome.IdlePercent, 100.0)
}
