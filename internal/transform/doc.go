// Package transform manages the external process that performs the
// actual byte-level media conversion.
//
// A Process wraps one child (normally ffmpeg) with all three standard
// channels piped: the pipeline feeds chunks into stdin, drains chunks
// from stdout, and stderr is captured into a bounded tail buffer for
// error reporting. A write against an already-exited process surfaces as
// ErrBrokenPipe, a distinguished condition rather than a crash, because
// a transform rejecting its input early is part of normal operation.
//
// Kill is idempotent and safe after natural exit, so teardown code can
// call it unconditionally on every path.
package transform
