// Package sink abstracts the downstream side of a pipeline run.
//
// A Sink accepts transformed output chunks in order and is completed by
// exactly one of Finalize (commit) or Abort (discard). Accept is allowed
// to block; that blocking propagates through the pipeline as
// backpressure all the way to the source.
//
// FileSink commits through a temp-file rename so partial output never
// appears under the final name. WriterSink streams to an io.Writer
// (typically an http.ResponseWriter) with per-write timeouts and
// chunked flushing. BufferSink accumulates in memory for small results
// and tests.
package sink
