package sizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkersForStepTable(t *testing.T) {
	tests := []struct {
		name       string
		batchSize  int
		maxWorkers int
		want       int
	}{
		{"single rule", 1, 8, 1},
		{"two rules", 2, 8, 2},
		{"three rules", 3, 8, 2},
		{"four rules", 4, 8, 4},
		{"ten rules", 10, 8, 4},
		{"eleven rules", 11, 8, 8},
		{"fifty rules", 50, 8, 8},
		{"large batch", 60, 8, 8},
		{"large batch high max", 60, 16, 16},
		{"mid band capped by max", 20, 4, 4},
		{"small batch capped by max", 6, 2, 2},
		{"zero batch", 0, 8, 1},
		{"zero max falls back to one", 60, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WorkersFor(tt.batchSize, tt.maxWorkers))
		})
	}
}

// TestWorkersForMonotonic verifies more rules never means fewer workers,
// at any configured maximum.
func TestWorkersForMonotonic(t *testing.T) {
	for _, maxWorkers := range []int{1, 2, 4, 8, 16} {
		prev := 0
		for size := 0; size <= 120; size++ {
			got := WorkersFor(size, maxWorkers)
			assert.GreaterOrEqual(t, got, prev, "size=%d max=%d", size, maxWorkers)
			assert.LessOrEqual(t, got, maxWorkers)
			prev = got
		}
	}
}

func TestDefaultMaxWorkers(t *testing.T) {
	tests := []struct {
		name  string
		cores int
		want  int
	}{
		{"single core", 1, 1},
		{"quad core", 4, 4},
		{"sixteen cores", 16, 16},
		{"beyond hard cap", 64, HardCapWorkers},
		{"zero cores", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultMaxWorkers(SystemResources{CPUCores: tt.cores})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect(t *testing.T) {
	resources, err := Detect()
	if err != nil {
		t.Skipf("resource detection unavailable: %v", err)
	}
	assert.Positive(t, resources.CPUCores)
	assert.Positive(t, resources.TotalRAM)
}
