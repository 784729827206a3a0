package sink

import (
	"context"
	"errors"
)

// Sentinel errors for sinks.
var (
	// ErrSinkClosed indicates a write after Finalize or Abort.
	ErrSinkClosed = errors.New("sink already finalized or aborted")

	// ErrWriteTimeout indicates that a single downstream write exceeded
	// the configured timeout, typically a consumer receiving data too
	// slowly.
	ErrWriteTimeout = errors.New("sink write timeout exceeded")
)

// Sink is the destination abstraction for transformed output. The
// pipeline calls Accept for every output chunk in order, then exactly
// one of Finalize or Abort per run.
type Sink interface {
	// Accept consumes one chunk. The chunk is only valid for the
	// duration of the call; implementations that need to retain it must
	// copy. Accept may block; that blocking is how downstream
	// slowness propagates upstream.
	Accept(ctx context.Context, chunk []byte) error

	// Finalize commits the buffered output to its destination and
	// returns an opaque handle for it (a path, an identifier, or "").
	Finalize(ctx context.Context) (string, error)

	// Abort discards any partial output. Idempotent.
	Abort() error
}
