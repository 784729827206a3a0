package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv("PIPELINE_WORKERS", "")
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "I/O-bound task (2.0x multiplier)",
			multiplier: 2.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "With limit lower than calculated",
			multiplier: 2.0,
			limit:      2,
			minExpect:  1,
			maxExpect:  2,
		},
		{
			name:       "Very low multiplier",
			multiplier: 0.1,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < tt.minExpect {
				t.Errorf("Count(%v, %d) = %d, expected >= %d", tt.multiplier, tt.limit, got, tt.minExpect)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int
		fallback bool
	}{
		{name: "Valid override", envValue: "8", limit: 0, expected: 8},
		{name: "Override capped by limit", envValue: "20", limit: 10, expected: 10},
		{name: "Override below limit", envValue: "5", limit: 10, expected: 5},
		{name: "Non-numeric falls back", envValue: "invalid", limit: 0, fallback: true},
		{name: "Zero falls back", envValue: "0", limit: 0, fallback: true},
		{name: "Negative falls back", envValue: "-5", limit: 0, fallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PIPELINE_WORKERS", tt.envValue)

			got := Count(1.0, tt.limit)
			if tt.fallback {
				if got < 1 {
					t.Errorf("Count with invalid override should return at least 1, got %d", got)
				}
			} else if got != tt.expected {
				t.Errorf("Count(1.0, %d) with PIPELINE_WORKERS=%s = %d, want %d",
					tt.limit, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestWorkloadHelpers(t *testing.T) {
	t.Setenv("PIPELINE_WORKERS", "")
	cpus := runtime.GOMAXPROCS(0)

	if got := ForEncode(0); got < 1 || got > cpus {
		t.Errorf("ForEncode(0) = %d, want between 1 and %d", got, cpus)
	}
	if got := ForCopy(0); got < 1 || got > cpus*2 {
		t.Errorf("ForCopy(0) = %d, want between 1 and %d", got, cpus*2)
	}
	if got := ForMixed(0); got < 1 || got > cpus*2 {
		t.Errorf("ForMixed(0) = %d, want between 1 and %d", got, cpus*2)
	}
	if got := ForEncode(1); got != 1 {
		t.Errorf("ForEncode(1) = %d, want 1", got)
	}
}

func TestCountBoundaries(t *testing.T) {
	t.Setenv("PIPELINE_WORKERS", "")

	tests := []struct {
		name       string
		multiplier float64
		limit      int
	}{
		{"Zero multiplier", 0.0, 0},
		{"Negative multiplier", -1.0, 0},
		{"Very high multiplier", 100.0, 0},
		{"Very high limit", 1.0, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < 1 {
				t.Errorf("Count(%v, %d) = %d, should never be less than 1", tt.multiplier, tt.limit, got)
			}
			if tt.limit > 0 && got > tt.limit {
				t.Errorf("Count(%v, %d) = %d, should not exceed limit", tt.multiplier, tt.limit, got)
			}
		})
	}
}
