// Package progress tracks advisory byte counters and phases for a
// single pipeline run.
//
// The design goal is that observation can never slow down the data
// path: each counter has exactly one writing goroutine, reads are
// atomic but unsynchronized across counters (torn reads are acceptable
// for display), and observers are notified through a depth-one dropping
// channel rather than synchronous callbacks.
package progress
