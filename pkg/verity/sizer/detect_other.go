//go:build !linux && !darwin

package sizer

import (
	"runtime"
)

// defaultTotalRAM is the fallback total RAM value when detection is not
// implemented for the platform.
const defaultTotalRAM = 8 * 1024 * 1024 * 1024

// Detect detects available system resources. On platforms without a
// memory query it uses runtime.NumCPU() and a conservative RAM default.
func Detect() (SystemResources, error) {
	return SystemResources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     defaultTotalRAM,
		AvailableRAM: defaultTotalRAM / 2,
	}, nil
}
