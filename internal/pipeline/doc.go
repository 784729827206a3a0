// Package pipeline orchestrates a single streaming transform run: bytes
// move from a source into an external process's stdin while the
// process's stdout moves into a sink, concurrently, under one wall-clock
// budget.
//
// Backpressure is the pipe buffers themselves. The feeder blocks when
// the process reads slowly and the process blocks when the sink drains
// slowly, so memory stays bounded by the pipe buffers plus one chunk per
// side regardless of stream size.
//
// Every failure is terminal and classified (see ErrorKind); Run never
// retries, and on every path it kills the process, reaps it, closes the
// source, and settles the sink with exactly one Finalize or Abort.
package pipeline
