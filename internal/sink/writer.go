package sink

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// WriterConfig configures a WriterSink.
type WriterConfig struct {
	// WriteTimeout is the maximum time for a single downstream write.
	// 0 disables the per-write timeout.
	WriteTimeout time.Duration
	// ChunkSize re-slices larger chunks before writing (0 = write as
	// received). Smaller writes keep a flushing consumer fed steadily.
	ChunkSize int
}

// DefaultWriterConfig returns sensible defaults for HTTP responses.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    256 * 1024, // 256KB chunks for media
	}
}

// WriterSink streams output directly to an io.Writer, flushing after
// every chunk when the writer supports it. It is how transformed media
// is streamed to an HTTP response without buffering the whole result.
//
// Finalize performs a final flush; there is no way to unsend bytes, so
// Abort only prevents further writes.
type WriterSink struct {
	w       io.Writer
	flusher http.Flusher
	config  WriterConfig

	written int64
	closed  atomic.Bool
}

// NewWriterSink creates a sink over w. When w is an http.ResponseWriter
// (or any http.Flusher), each chunk is flushed as it is written.
func NewWriterSink(w io.Writer, config WriterConfig) *WriterSink {
	s := &WriterSink{w: w, config: config}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

// Accept writes one chunk downstream, re-sliced per the configured
// chunk size.
func (s *WriterSink) Accept(ctx context.Context, chunk []byte) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}

	for len(chunk) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := len(chunk)
		if s.config.ChunkSize > 0 && n > s.config.ChunkSize {
			n = s.config.ChunkSize
		}

		if err := s.writeWithTimeout(ctx, chunk[:n]); err != nil {
			return err
		}
		s.written += int64(n)
		chunk = chunk[n:]

		if s.flusher != nil {
			s.flusher.Flush()
		}
	}
	return nil
}

// writeWithTimeout performs a single write, bounded by the configured
// write timeout and the context. The write itself runs in a goroutine
// because io.Writer has no cancellation; on timeout the straggler write
// is abandoned and completes (or fails) on its own.
func (s *WriterSink) writeWithTimeout(ctx context.Context, p []byte) error {
	if s.config.WriteTimeout <= 0 {
		_, err := s.w.Write(p)
		if err != nil {
			return fmt.Errorf("write downstream: %w", err)
		}
		return nil
	}

	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)

	go func() {
		n, err := s.w.Write(p)
		resultCh <- writeResult{n, err}
	}()

	timer := time.NewTimer(s.config.WriteTimeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return fmt.Errorf("write downstream: %w", result.err)
		}
		return nil
	case <-timer.C:
		s.closed.Store(true)
		return ErrWriteTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finalize flushes any remaining buffered data downstream.
func (s *WriterSink) Finalize(_ context.Context) (string, error) {
	if s.closed.Swap(true) {
		return "", ErrSinkClosed
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return fmt.Sprintf("stream:%d", s.written), nil
}

// Abort stops further writes. Bytes already streamed cannot be
// recalled; the transport (e.g. a truncated chunked response) conveys
// the failure to the consumer.
func (s *WriterSink) Abort() error {
	s.closed.Store(true)
	return nil
}

// BytesWritten returns the number of bytes written downstream.
func (s *WriterSink) BytesWritten() int64 { return s.written }
