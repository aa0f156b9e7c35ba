// Package sizer selects worker-pool sizes for rule batches. The policy is
// a monotonic step function: tiny batches skip the fixed cost of spinning
// up queues and workers they cannot use, while large batches saturate the
// configured parallelism. Sizing is pure and deterministic so batch
// planning is reproducible and testable in isolation.
package sizer

// Worker configuration limits.
const (
	// HardCapWorkers bounds any pool regardless of configuration. Steal
	// operations share per-queue locks, which stay cheap up to moderate
	// worker counts.
	HardCapWorkers = 16

	// midBandWorkers is the pool size for mid-sized batches (11-50
	// rules), before the table jumps to the configured maximum.
	midBandWorkers = 8
)

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available (free) RAM in bytes.
	// This may be an estimate based on system heuristics.
	AvailableRAM int64
}

// WorkersFor returns the worker count for a batch of the given size.
//
// The step table:
//   - 1 rule: 1 worker
//   - 2-3 rules: 2 workers
//   - 4-10 rules: 4 workers
//   - 11-50 rules: min(8, maxWorkers)
//   - >50 rules: maxWorkers
//
// The result is monotonic in batchSize and never exceeds maxWorkers.
func WorkersFor(batchSize, maxWorkers int) int {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var workers int
	switch {
	case batchSize <= 1:
		workers = 1
	case batchSize <= 3:
		workers = 2
	case batchSize <= 10:
		workers = 4
	case batchSize <= 50:
		workers = midBandWorkers
	default:
		workers = maxWorkers
	}

	return min(workers, maxWorkers)
}

// DefaultMaxWorkers returns the upper worker bound to use when the
// configuration leaves max_workers at auto. Rule execution is mostly
// I/O against cached snapshots, so one worker per core is enough.
func DefaultMaxWorkers(resources SystemResources) int {
	workers := resources.CPUCores
	workers = max(workers, 1)
	return min(workers, HardCapWorkers)
}
