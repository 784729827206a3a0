package source

import (
	"context"
	"errors"
	"fmt"
)

// DefaultChunkSize is the chunk size used when none is configured.
const DefaultChunkSize = 1024 * 1024 // 1MB

// Sentinel errors for stream sources.
var (
	// ErrSizeExceeded indicates that a stream declared (or produced) more
	// bytes than the configured maximum. When returned from Open, nothing
	// has been streamed yet.
	ErrSizeExceeded = errors.New("stream size exceeds maximum allowed")

	// ErrNotOpened indicates that Next was called before Open.
	ErrNotOpened = errors.New("source not opened")

	// ErrClosed indicates that the source was already closed.
	ErrClosed = errors.New("source closed")
)

// Descriptor describes a stream before it is opened.
//
// DeclaredSize is advisory: it is used for the pre-flight size check and
// for progress estimation only. A stream that produces more or fewer
// bytes than declared is not an error by itself; MaxSize, however, is
// enforced incrementally while streaming.
type Descriptor struct {
	// DeclaredSize is the total size in bytes claimed by the origin,
	// or 0 when unknown (e.g. chunked uploads).
	DeclaredSize int64
	// MaxSize is the hard upper bound in bytes. 0 means unlimited.
	MaxSize int64
	// ContentType is an optional MIME or category hint.
	ContentType string
}

// Validate checks the declared size against the maximum before any byte
// is streamed.
func (d Descriptor) Validate() error {
	if d.DeclaredSize < 0 {
		return fmt.Errorf("invalid declared size %d", d.DeclaredSize)
	}
	if d.MaxSize > 0 && d.DeclaredSize > d.MaxSize {
		return fmt.Errorf("declared %d bytes, maximum %d: %w", d.DeclaredSize, d.MaxSize, ErrSizeExceeded)
	}
	return nil
}

// Source produces a lazy, finite sequence of byte chunks. A source is
// single-use: there is no seek or rewind, and a new run requires a new
// source. Implementations must track cumulative bytes produced; the
// pipeline reads that purely for progress reporting, never for flow
// control.
type Source interface {
	// Open validates the descriptor and prepares the source. It fails
	// with ErrSizeExceeded before streaming anything when the declared
	// size is over the limit. Underlying connections may still be
	// established lazily on the first Next.
	Open(ctx context.Context) error

	// Next returns the next chunk, or io.EOF when the sequence ends.
	// The returned slice is owned by the caller until the following
	// Next call.
	Next(ctx context.Context) ([]byte, error)

	// BytesRead returns the cumulative number of bytes produced so far.
	// Safe for concurrent use with Next.
	BytesRead() int64

	// Close releases the underlying connection or handle. Idempotent.
	Close() error
}
