// Package workers provides utilities for sizing the pipeline job pool in
// containerized environments.
//
// Each pipeline run drives an external transcoding process, so the number
// of simultaneously running jobs is the main throughput and memory knob.
// While Go 1.19+ automatically sets GOMAXPROCS based on container CPU
// limits, runtime.NumCPU() still returns the host machine's CPU count, so
// this package sizes pools from runtime.GOMAXPROCS(0) instead.
//
// The PIPELINE_WORKERS environment variable overrides the automatic
// calculation, which is useful for fine-tuning a deployment or temporarily
// limiting concurrency while debugging.
package workers
