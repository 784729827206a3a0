package sink

import (
	"bytes"
	"context"
	"fmt"
)

// BufferSink accumulates output in memory. It is used for small outputs
// (poster frames) and as a test double, in the spirit of a mock upload
// destination.
type BufferSink struct {
	buf       bytes.Buffer
	finalized bool
	aborted   bool
}

// NewBufferSink creates an empty in-memory sink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

// Accept appends one chunk to the buffer.
func (s *BufferSink) Accept(ctx context.Context, chunk []byte) error {
	if s.finalized || s.aborted {
		return ErrSinkClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.buf.Write(chunk)
	return nil
}

// Finalize marks the buffer complete and returns a descriptive handle.
func (s *BufferSink) Finalize(_ context.Context) (string, error) {
	if s.finalized || s.aborted {
		return "", ErrSinkClosed
	}
	s.finalized = true
	return fmt.Sprintf("memory:%d", s.buf.Len()), nil
}

// Abort discards the buffered output. Idempotent.
func (s *BufferSink) Abort() error {
	if s.finalized || s.aborted {
		return nil
	}
	s.aborted = true
	s.buf.Reset()
	return nil
}

// Bytes returns the accumulated output.
func (s *BufferSink) Bytes() []byte { return s.buf.Bytes() }

// Len returns the number of accumulated bytes.
func (s *BufferSink) Len() int { return s.buf.Len() }

// Finalized reports whether Finalize was called.
func (s *BufferSink) Finalized() bool { return s.finalized }

// Aborted reports whether Abort was called.
func (s *BufferSink) Aborted() bool { return s.aborted }
