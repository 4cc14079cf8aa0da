package scheduler

import "runtime"

// DefaultCeiling is used when Limits.Ceiling is not set.
const DefaultCeiling = 8

// Limits bound the number of concurrent tasks.
type Limits struct {
	// Ceiling is the maximum concurrency.
	Ceiling int

	// PerTaskMemory is the memory one task is assumed to use, in bytes.
	// Zero ignores the memory bound.
	PerTaskMemory int64

	// AvailableMemory overrides the value read from the OS.
	AvailableMemory int64

	// CPUs overrides runtime.NumCPU.
	CPUs int
}

// Concurrency returns clamp(min(availableMemory/perTaskMemory, cpus/2), 1,
// ceiling). When available memory cannot be determined the memory bound is
// ignored.
func Concurrency(l Limits) int {
	ceiling := l.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	cpus := l.CPUs
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}

	n := cpus / 2
	if l.PerTaskMemory > 0 {
		mem := l.AvailableMemory
		if mem <= 0 {
			if avail, ok := AvailableMemory(); ok {
				mem = avail
			}
		}
		if mem > 0 {
			n = min(n, int(mem/l.PerTaskMemory))
		}
	}
	return min(max(n, 1), ceiling)
}
