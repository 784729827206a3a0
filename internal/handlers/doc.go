// Package handlers implements the HTTP API: streaming transcode
// operations, stream probing, preview frames, two-step sessions for
// operations needing a side input, job history, health probes, and
// metrics.
package handlers
