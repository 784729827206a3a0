package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns the optimal number of concurrent pipeline jobs.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for workload characteristics:
//   - 1.0 for CPU-bound transforms (software encodes)
//   - 2.0 for I/O-bound transforms (stream copies, remuxes)
//   - 1.5 for mixed workloads
//
// The limit parameter caps the job count to prevent resource exhaustion.
// Use 0 for no limit.
//
// Can be overridden with the PIPELINE_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	// Check for manual override first
	if override := os.Getenv("PIPELINE_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	count := int(float64(available) * multiplier)

	if count < 1 {
		count = 1
	}
	if limit > 0 && count > limit {
		count = limit
	}

	return count
}

// ForEncode returns the job count for CPU-bound transforms (1 per CPU).
// The limit parameter caps the maximum number of jobs.
func ForEncode(limit int) int {
	return Count(1.0, limit)
}

// ForCopy returns the job count for I/O-bound transforms (2 per CPU).
// The limit parameter caps the maximum number of jobs.
func ForCopy(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns the job count for mixed transforms (1.5 per CPU).
// The limit parameter caps the maximum number of jobs.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
