package progress

import (
	"sync"
	"sync/atomic"
	"time"
)

// Phase identifies where a pipeline run currently is.
type Phase int32

const (
	// PhaseStarting covers descriptor validation and process spawn.
	PhaseStarting Phase = iota
	// PhaseFeeding means input chunks are being written to the process.
	PhaseFeeding
	// PhaseDraining means output chunks are being read from the process.
	PhaseDraining
	// PhaseFinalizing means the sink is committing the output.
	PhaseFinalizing
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseFeeding:
		return "feeding"
	case PhaseDraining:
		return "draining"
	case PhaseFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Snapshot is one advisory view of a run's progress. The two byte
// counters have independent writers, so a snapshot may be torn between
// them; it is for display and monitoring, never for correctness.
type Snapshot struct {
	Operation         string
	Phase             Phase
	BytesIn           int64
	BytesOut          int64
	EstimatedTotalOut int64
	Elapsed           time.Duration
}

// Observer receives progress snapshots. Implementations may be slow;
// the tracker never blocks the data path waiting for one.
type Observer interface {
	Notify(Snapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Snapshot)

// Notify calls f.
func (f ObserverFunc) Notify(s Snapshot) { f(s) }

// Tracker accumulates progress for a single run. The feeder owns
// BytesIn, the drainer owns BytesOut; because each counter has exactly
// one writer there is no cross-goroutine contention on either field.
// Snapshots go to the observer through a depth-one dropping channel, so
// a stalled observer costs at most one stale notification, never a
// stalled pipeline.
type Tracker struct {
	operation    string
	estimatedOut int64
	startedAt    time.Time

	bytesIn  atomic.Int64
	bytesOut atomic.Int64
	phase    atomic.Int32

	updates   chan Snapshot
	done      chan struct{}
	closeOnce sync.Once
}

// NewTracker creates a tracker for one run and, when observer is
// non-nil, starts the notification consumer.
func NewTracker(operation string, estimatedOut int64, observer Observer) *Tracker {
	t := &Tracker{
		operation:    operation,
		estimatedOut: estimatedOut,
		startedAt:    time.Now(),
		updates:      make(chan Snapshot, 1),
		done:         make(chan struct{}),
	}

	if observer != nil {
		go t.consume(observer)
	}
	return t
}

func (t *Tracker) consume(observer Observer) {
	for {
		select {
		case snap := <-t.updates:
			observer.Notify(snap)
		case <-t.done:
			// Deliver the final state before stopping.
			observer.Notify(t.Snapshot())
			return
		}
	}
}

// AddBytesIn records n more input bytes. Called by the feeder only.
func (t *Tracker) AddBytesIn(n int) {
	t.bytesIn.Add(int64(n))
	t.publish()
}

// AddBytesOut records n more output bytes. Called by the drainer only.
func (t *Tracker) AddBytesOut(n int) {
	t.bytesOut.Add(int64(n))
	t.publish()
}

// SetPhase records the current phase.
func (t *Tracker) SetPhase(p Phase) {
	t.phase.Store(int32(p))
	t.publish()
}

// BytesIn returns the input byte count so far.
func (t *Tracker) BytesIn() int64 { return t.bytesIn.Load() }

// BytesOut returns the output byte count so far.
func (t *Tracker) BytesOut() int64 { return t.bytesOut.Load() }

// Phase returns the current phase.
func (t *Tracker) Phase() Phase { return Phase(t.phase.Load()) }

// Snapshot assembles the current progress view. Readers must tolerate a
// torn read between BytesIn and BytesOut.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Operation:         t.operation,
		Phase:             t.Phase(),
		BytesIn:           t.bytesIn.Load(),
		BytesOut:          t.bytesOut.Load(),
		EstimatedTotalOut: t.estimatedOut,
		Elapsed:           time.Since(t.startedAt),
	}
}

// publish offers the current snapshot to the consumer without blocking:
// if the previous one has not been picked up yet, this one is dropped.
func (t *Tracker) publish() {
	select {
	case t.updates <- t.Snapshot():
	default:
	}
}

// Close stops the notification consumer after it delivers one final
// snapshot. Idempotent.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
	})
}
