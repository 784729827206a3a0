// Package store persists transcode sessions and job history in SQLite.
//
// Sessions back multi-step operations: embedding subtitles or replacing
// audio needs a side file uploaded before the media stream arrives, so
// the first request creates a session, the attachment upload advances
// it, and the streaming request consumes it. Sessions carry a TTL and a
// periodic sweep removes expired ones along with their stored files.
//
// Jobs are an append-only history of pipeline runs with their terminal
// status and byte counts.
package store
