package source

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
)

// ReaderSource adapts an io.Reader (an HTTP request body, a file, a
// bytes.Reader in tests) into a Source. If the reader also implements
// io.Closer, Close closes it.
type ReaderSource struct {
	desc      Descriptor
	r         io.Reader
	chunkSize int

	bytesRead atomic.Int64
	opened    bool
	closed    atomic.Bool
	buf       []byte
}

// NewReaderSource creates a source that reads chunks of up to chunkSize
// bytes from r. A chunkSize of 0 uses DefaultChunkSize.
func NewReaderSource(desc Descriptor, r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ReaderSource{
		desc:      desc,
		r:         r,
		chunkSize: chunkSize,
	}
}

// Open validates the descriptor. It performs no I/O.
func (s *ReaderSource) Open(_ context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.desc.Validate(); err != nil {
		return err
	}
	s.opened = true
	return nil
}

// Next returns the next chunk from the underlying reader.
func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if !s.opened {
		return nil, ErrNotOpened
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.buf == nil {
		s.buf = make([]byte, s.chunkSize)
	}

	for {
		n, err := s.r.Read(s.buf)
		if n > 0 {
			total := s.bytesRead.Add(int64(n))
			if s.desc.MaxSize > 0 && total > s.desc.MaxSize {
				return nil, fmt.Errorf("read %d bytes, maximum %d: %w", total, s.desc.MaxSize, ErrSizeExceeded)
			}
			return s.buf[:n], nil
		}
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read source: %w", err)
		}
		// Zero-byte read without error; try again.
	}
}

// BytesRead returns the cumulative bytes produced so far.
func (s *ReaderSource) BytesRead() int64 {
	return s.bytesRead.Load()
}

// Close closes the underlying reader when it is a Closer. Idempotent.
// Closing a closable reader also unblocks a Next call stuck in Read,
// which is how the pipeline cancels a stalled feeder on timeout.
func (s *ReaderSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
