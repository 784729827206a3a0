package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies terminal pipeline failures. Every kind is
// terminal for the run: the pipeline never retries, and by the time an
// Error is returned the process has been killed (or has exited) and the
// source released.
type ErrorKind int

const (
	// ErrorUnknown is the zero kind; it should not appear in practice.
	ErrorUnknown ErrorKind = iota
	// ErrorSizeExceeded: the declared input size failed the pre-flight
	// check, or the stream overran the maximum. In the pre-flight case
	// no process was spawned.
	ErrorSizeExceeded
	// ErrorSpawn: the transform process could not be started.
	ErrorSpawn
	// ErrorSource: the upstream read failed mid-stream.
	ErrorSource
	// ErrorBrokenPipe: the process exited (with an error) before
	// consuming all input, e.g. it rejected a malformed stream early.
	ErrorBrokenPipe
	// ErrorTransformFailed: the process exited non-zero after a
	// complete feed; Stderr carries its diagnostics.
	ErrorTransformFailed
	// ErrorSink: the downstream write or finalize failed.
	ErrorSink
	// ErrorTimeout: the run exceeded its wall-clock budget (or the
	// caller's context was cancelled).
	ErrorTimeout
)

// String returns a stable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorSizeExceeded:
		return "size_exceeded"
	case ErrorSpawn:
		return "spawn_error"
	case ErrorSource:
		return "source_error"
	case ErrorBrokenPipe:
		return "broken_pipe"
	case ErrorTransformFailed:
		return "transform_failed"
	case ErrorSink:
		return "sink_error"
	case ErrorTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the structured terminal error of a pipeline run.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind
	// Operation is the caller-supplied label for the run.
	Operation string
	// Err is the underlying cause.
	Err error
	// Stderr holds the process's captured diagnostics (bounded) for
	// failures where the process itself is the root cause.
	Stderr string
	// PartialBytesOut counts output bytes delivered to the sink before
	// the failure.
	PartialBytesOut int64
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline %s: %s: %v", e.Operation, e.Kind, e.Err)
	}
	return fmt.Sprintf("pipeline %s: %s", e.Operation, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the error kind from err, or ErrorUnknown when err is
// not a pipeline error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrorUnknown
}
