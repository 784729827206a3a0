// Package source abstracts the upstream side of a pipeline run as a lazy,
// finite sequence of byte chunks with a declared total size.
//
// A Descriptor carries the origin's size claim and the configured
// maximum; Open refuses to start streams whose declared size already
// exceeds the limit, so the orchestrator can fail fast before spawning a
// transform process. Sources are single-use: restarting a stream means
// creating a new source.
//
// Two implementations are provided: ReaderSource wraps any io.Reader
// (HTTP request bodies, files, in-memory test data) and HTTPSource
// streams a remote object, connecting lazily on the first chunk pull.
package source
