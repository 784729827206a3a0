package metrics

import "media-pipe/internal/progress"

// pipelineObserver implements progress.Observer using the Prometheus
// metrics declared in this package.
type pipelineObserver struct {
	lastIn  int64
	lastOut int64
}

// NewPipelineObserver creates an observer that records byte throughput
// into the Prometheus counters declared in metrics.go. One observer
// serves one run; the byte counters in each snapshot are cumulative, so
// the observer feeds Prometheus the deltas.
func NewPipelineObserver() progress.Observer {
	return &pipelineObserver{}
}

func (o *pipelineObserver) Notify(s progress.Snapshot) {
	if d := s.BytesIn - o.lastIn; d > 0 {
		PipelineBytesIn.WithLabelValues(s.Operation).Add(float64(d))
		o.lastIn = s.BytesIn
	}
	if d := s.BytesOut - o.lastOut; d > 0 {
		PipelineBytesOut.WithLabelValues(s.Operation).Add(float64(d))
		o.lastOut = s.BytesOut
	}
}
