package profiler

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateWithoutHistory(t *testing.T) {
	p := New()
	assert.Equal(t, DefaultEstimate, p.Estimate("never-seen"))
	assert.Equal(t, int64(0), p.Samples("never-seen"))

	_, ok := p.Variance("never-seen")
	assert.False(t, ok)
}

// TestRecordWelfordStatistics checks the running mean and population
// variance against hand-computed values for [10ms, 20ms, 30ms]:
// mean 20ms, variance ((10e-3)^2*2)/3 s^2.
func TestRecordWelfordStatistics(t *testing.T) {
	p := New()
	p.Record("r", 10*time.Millisecond)
	p.Record("r", 20*time.Millisecond)
	p.Record("r", 30*time.Millisecond)

	assert.Equal(t, int64(3), p.Samples("r"))
	assert.InDelta(t, float64(20*time.Millisecond), float64(p.Estimate("r")), float64(time.Microsecond))

	variance, ok := p.Variance("r")
	require.True(t, ok)
	// Population variance of {0.010, 0.020, 0.030} seconds.
	assert.InDelta(t, 2.0*1e-4/3.0, variance, 1e-12)
}

func TestRecordSingleSample(t *testing.T) {
	p := New()
	p.Record("r", 42*time.Millisecond)

	assert.Equal(t, 42*time.Millisecond, p.Estimate("r").Round(time.Microsecond))
	variance, ok := p.Variance("r")
	require.True(t, ok)
	assert.Zero(t, variance)
}

func TestRecordIdenticalSamplesZeroVariance(t *testing.T) {
	p := New()
	for i := 0; i < 100; i++ {
		p.Record("steady", 5*time.Millisecond)
	}

	variance, ok := p.Variance("steady")
	require.True(t, ok)
	assert.InDelta(t, 0, variance, 1e-15)
	assert.Equal(t, 5*time.Millisecond, p.Estimate("steady").Round(time.Microsecond))
}

func TestRecordTracksRulesIndependently(t *testing.T) {
	p := New()
	p.Record("fast", time.Millisecond)
	p.Record("slow", time.Second)

	assert.Less(t, p.Estimate("fast"), p.Estimate("slow"))
	assert.Equal(t, int64(1), p.Samples("fast"))
	assert.Equal(t, int64(1), p.Samples("slow"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	p := New()
	p.Record("r", 10*time.Millisecond)
	p.Record("r", 30*time.Millisecond)
	p.Record("other", 100*time.Millisecond)

	snapshot := p.Snapshot()
	require.Len(t, snapshot, 2)

	restored := NewFromSnapshot(snapshot)
	assert.Equal(t, p.Samples("r"), restored.Samples("r"))
	assert.Equal(t, p.Estimate("r"), restored.Estimate("r"))

	wantVar, _ := p.Variance("r")
	gotVar, ok := restored.Variance("r")
	require.True(t, ok)
	assert.InDelta(t, wantVar, gotVar, 1e-12)
}

// TestSnapshotRestoreContinuesStream verifies restoring a snapshot and
// recording more samples yields the same statistics as one continuous
// stream, within float tolerance.
func TestSnapshotRestoreContinuesStream(t *testing.T) {
	durations := []time.Duration{
		5 * time.Millisecond, 12 * time.Millisecond, 7 * time.Millisecond,
		30 * time.Millisecond, 9 * time.Millisecond, 18 * time.Millisecond,
	}

	continuous := New()
	for _, d := range durations {
		continuous.Record("r", d)
	}

	first := New()
	for _, d := range durations[:3] {
		first.Record("r", d)
	}
	resumed := NewFromSnapshot(first.Snapshot())
	for _, d := range durations[3:] {
		resumed.Record("r", d)
	}

	assert.Equal(t, continuous.Samples("r"), resumed.Samples("r"))
	assert.InDelta(t, float64(continuous.Estimate("r")), float64(resumed.Estimate("r")), float64(time.Microsecond))

	wantVar, _ := continuous.Variance("r")
	gotVar, _ := resumed.Variance("r")
	assert.InDelta(t, wantVar, gotVar, 1e-9)
}

func TestNewFromSnapshotDropsCorruptEntries(t *testing.T) {
	p := NewFromSnapshot(map[string]Entry{
		"good":         {SampleCount: 5, Mean: 0.02, Variance: 0.001},
		"zero-count":   {SampleCount: 0, Mean: 0.5, Variance: 0.1},
		"negative-var": {SampleCount: 3, Mean: 0.02, Variance: -1},
	})

	assert.Equal(t, int64(5), p.Samples("good"))
	assert.Equal(t, int64(0), p.Samples("zero-count"))
	assert.Equal(t, int64(0), p.Samples("negative-var"))
	assert.Equal(t, DefaultEstimate, p.Estimate("zero-count"))
}

func TestRecordConcurrent(t *testing.T) {
	p := New()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := fmt.Sprintf("rule-%d", w%4)
			for i := 0; i < 100; i++ {
				p.Record(id, 10*time.Millisecond)
			}
		}(w)
	}
	wg.Wait()

	var total int64
	for i := 0; i < 4; i++ {
		total += p.Samples(fmt.Sprintf("rule-%d", i))
	}
	assert.Equal(t, int64(800), total)
}
