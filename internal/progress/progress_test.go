package progress

import (
	"sync"
	"testing"
	"time"
)

func TestPhaseString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phase    Phase
		expected string
	}{
		{PhaseStarting, "starting"},
		{PhaseFeeding, "feeding"},
		{PhaseDraining, "draining"},
		{PhaseFinalizing, "finalizing"},
		{Phase(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}
}

func TestTrackerCounters(t *testing.T) {
	t.Parallel()

	tr := NewTracker("encode", 1000, nil)
	defer tr.Close()

	tr.AddBytesIn(100)
	tr.AddBytesIn(50)
	tr.AddBytesOut(30)
	tr.SetPhase(PhaseDraining)

	if tr.BytesIn() != 150 {
		t.Errorf("Expected BytesIn 150, got %d", tr.BytesIn())
	}
	if tr.BytesOut() != 30 {
		t.Errorf("Expected BytesOut 30, got %d", tr.BytesOut())
	}
	if tr.Phase() != PhaseDraining {
		t.Errorf("Expected phase draining, got %s", tr.Phase())
	}

	snap := tr.Snapshot()
	if snap.Operation != "encode" {
		t.Errorf("Expected operation encode, got %q", snap.Operation)
	}
	if snap.EstimatedTotalOut != 1000 {
		t.Errorf("Expected estimate 1000, got %d", snap.EstimatedTotalOut)
	}
	if snap.Elapsed <= 0 {
		t.Error("Expected positive elapsed time")
	}
}

func TestTrackerNeverBlocksWithoutObserver(t *testing.T) {
	t.Parallel()

	tr := NewTracker("encode", 0, nil)
	defer tr.Close()

	// With no consumer the depth-one channel fills after one update;
	// every later publish must drop instead of blocking.
	for i := 0; i < 10000; i++ {
		tr.AddBytesIn(1)
	}
	if tr.BytesIn() != 10000 {
		t.Errorf("Expected BytesIn 10000, got %d", tr.BytesIn())
	}
}

func TestTrackerNeverBlocksWithSlowObserver(t *testing.T) {
	t.Parallel()

	slow := ObserverFunc(func(Snapshot) {
		time.Sleep(10 * time.Millisecond)
	})
	tr := NewTracker("encode", 0, slow)
	defer tr.Close()

	start := time.Now()
	for i := 0; i < 1000; i++ {
		tr.AddBytesOut(1)
	}
	// 1000 updates against a 10ms observer would take 10s if the data
	// path waited for delivery.
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected updates to not block on the observer, took %v", elapsed)
	}
}

func TestTrackerDeliversFinalSnapshotOnClose(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var last Snapshot
	received := make(chan struct{}, 100)

	obs := ObserverFunc(func(s Snapshot) {
		mu.Lock()
		last = s
		mu.Unlock()
		received <- struct{}{}
	})

	tr := NewTracker("extract_audio", 0, obs)
	tr.AddBytesIn(500)
	tr.AddBytesOut(200)
	tr.Close()

	// The consumer delivers one final snapshot after Close.
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		done := last.BytesIn == 500 && last.BytesOut == 200
		mu.Unlock()
		if done {
			break
		}
		select {
		case <-received:
		case <-deadline:
			mu.Lock()
			t.Fatalf("Expected final snapshot with 500/200, got %d/%d", last.BytesIn, last.BytesOut)
		}
	}
}

func TestTrackerCloseIdempotent(t *testing.T) {
	t.Parallel()

	tr := NewTracker("encode", 0, ObserverFunc(func(Snapshot) {}))
	tr.Close()
	tr.Close()
}
