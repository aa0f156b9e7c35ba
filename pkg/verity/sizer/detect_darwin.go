//go:build darwin

package sizer

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect detects available system resources (CPU and RAM).
// On darwin it uses runtime.NumCPU() for CPU cores and sysctl hw.memsize
// for memory information.
func Detect() (SystemResources, error) {
	resources := SystemResources{
		CPUCores: runtime.NumCPU(),
	}

	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return resources, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	resources.TotalRAM = int64(memsize)

	// Precise available memory on macOS needs host_statistics; a 50%
	// heuristic is enough for worker sizing.
	resources.AvailableRAM = resources.TotalRAM / 2

	return resources, nil
}
