package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"media-pipe/internal/logging"
	"media-pipe/internal/progress"
	"media-pipe/internal/sink"
	"media-pipe/internal/source"
	"media-pipe/internal/transform"
)

// DefaultTimeout bounds a run when the caller does not supply a budget.
const DefaultTimeout = 5 * time.Minute

// Result is the terminal value of a successful run. A pipeline run is
// single-use: running again requires a new source, process and sink.
type Result struct {
	BytesIn  int64
	BytesOut int64
	// Handle is whatever the sink's Finalize returned (a path, an
	// identifier, or "").
	Handle   string
	Duration time.Duration
}

// SpawnFunc starts the transform process for a run. Tests substitute a
// spy here to verify that failing pre-flight checks never spawn
// anything.
type SpawnFunc func(transform.Spec) (*transform.Process, error)

// Options tune a single run.
type Options struct {
	// Operation labels the run for errors, logs and progress.
	Operation string
	// Timeout is the wall-clock budget for the whole run, applied at
	// the await step, not per chunk. 0 uses DefaultTimeout; negative
	// disables the budget.
	Timeout time.Duration
	// ChunkSize is the drain buffer size. 0 uses source.DefaultChunkSize.
	ChunkSize int
	// EstimatedOut is an advisory output size estimate for progress.
	EstimatedOut int64
	// Observer receives progress snapshots, fire-and-forget.
	Observer progress.Observer
	// Spawn overrides process creation. nil starts a real process.
	Spawn SpawnFunc
}

type feedResult struct {
	kind ErrorKind
	err  error
}

type drainResult struct {
	kind ErrorKind
	err  error
}

// Run streams src through the process described by spec into snk.
//
// It validates the source's descriptor before spawning anything, then
// runs a feeder (source → process stdin) and a drainer (process stdout
// → sink) concurrently, joins both plus the process exit under one
// wall-clock budget, and tears everything down on every path: the
// process is never left running, the source is always closed, and
// exactly one of Finalize or Abort is called on the sink.
func Run(ctx context.Context, src source.Source, spec transform.Spec, snk sink.Sink, opts Options) (*Result, error) {
	start := time.Now()

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = source.DefaultChunkSize
	}

	tracker := progress.NewTracker(opts.Operation, opts.EstimatedOut, opts.Observer)
	defer tracker.Close()

	fail := func(kind ErrorKind, err error) *Error {
		return &Error{
			Kind:            kind,
			Operation:       opts.Operation,
			Err:             err,
			PartialBytesOut: tracker.BytesOut(),
		}
	}

	// Pre-flight: refuse oversized streams before any process exists.
	if err := src.Open(ctx); err != nil {
		_ = src.Close()
		_ = snk.Abort()
		kind := ErrorSource
		if errors.Is(err, source.ErrSizeExceeded) {
			kind = ErrorSizeExceeded
		}
		return nil, fail(kind, err)
	}

	spawn := opts.Spawn
	if spawn == nil {
		spawn = func(s transform.Spec) (*transform.Process, error) {
			p := new(transform.Process)
			if err := p.Start(s); err != nil {
				return nil, err
			}
			return p, nil
		}
	}

	proc, err := spawn(spec)
	if err != nil {
		_ = src.Close()
		_ = snk.Abort()
		return nil, fail(ErrorSpawn, err)
	}

	logging.Debug("pipeline %s: started %s (pid %d)", opts.Operation, spec.Executable(), proc.Pid())

	runCtx := ctx
	var cancel context.CancelFunc
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	finalized := false
	defer func() {
		proc.Kill()
		_ = proc.Wait(context.Background())
		if cerr := src.Close(); cerr != nil {
			logging.Warn("pipeline %s: closing source: %v", opts.Operation, cerr)
		}
		if !finalized {
			_ = snk.Abort()
		}
	}()

	// Feeder: source → process stdin, in order, no retries.
	feedCh := make(chan feedResult, 1)
	go func() {
		tracker.SetPhase(progress.PhaseFeeding)
		for {
			chunk, rerr := src.Next(runCtx)
			if rerr != nil {
				if rerr == io.EOF {
					break
				}
				if errors.Is(rerr, source.ErrSizeExceeded) {
					feedCh <- feedResult{ErrorSizeExceeded, rerr}
					return
				}
				feedCh <- feedResult{ErrorSource, rerr}
				return
			}
			if len(chunk) == 0 {
				continue
			}
			if werr := proc.WriteInput(chunk); werr != nil {
				feedCh <- feedResult{ErrorBrokenPipe, werr}
				return
			}
			tracker.AddBytesIn(len(chunk))
		}
		if cerr := proc.CloseInput(); cerr != nil {
			feedCh <- feedResult{ErrorBrokenPipe, fmt.Errorf("close input: %w", cerr)}
			return
		}
		feedCh <- feedResult{}
	}()

	// Drainer: process stdout → sink, in order. A read error after the
	// process died is equivalent to end-of-stream; the exit status
	// check below catches real failures.
	drainCh := make(chan drainResult, 1)
	go func() {
		buf := make([]byte, chunkSize)
		sawOutput := false
		for {
			n, rerr := proc.ReadOutput(buf)
			if n > 0 {
				if !sawOutput {
					tracker.SetPhase(progress.PhaseDraining)
					sawOutput = true
				}
				if aerr := snk.Accept(runCtx, buf[:n]); aerr != nil {
					drainCh <- drainResult{ErrorSink, fmt.Errorf("sink accept: %w", aerr)}
					return
				}
				tracker.AddBytesOut(n)
			}
			if rerr != nil {
				drainCh <- drainResult{}
				return
			}
		}
	}()

	// Await both movers plus process exit under the shared budget.
	var feedRes feedResult
	var drainRes drainResult
	feedDone, drainDone := false, false
	timedOut := false

	for !feedDone || !drainDone {
		select {
		case feedRes = <-feedCh:
			feedDone = true
			if feedRes.err != nil && feedRes.kind != ErrorBrokenPipe {
				// The process will never see end-of-input; take it down
				// so the drainer observes end-of-stream.
				proc.Kill()
			}
		case drainRes = <-drainCh:
			drainDone = true
			if drainRes.err != nil {
				// The process has no remaining purpose once the sink
				// rejects output; killing it also unblocks the feeder.
				proc.Kill()
			}
		case <-runCtx.Done():
			timedOut = true
			proc.Kill()
			_ = src.Close()
			if !feedDone {
				feedRes = <-feedCh
				feedDone = true
			}
			if !drainDone {
				drainRes = <-drainCh
				drainDone = true
			}
		}
	}

	if timedOut {
		_ = proc.Wait(context.Background())
		return nil, fail(ErrorTimeout, runCtx.Err())
	}

	waitErr := proc.Wait(runCtx)
	if waitErr != nil && runCtx.Err() != nil {
		proc.Kill()
		_ = proc.Wait(context.Background())
		return nil, fail(ErrorTimeout, runCtx.Err())
	}

	exitCode := proc.ExitCode()

	// Drainer failure first: a sink rejection is the root cause even
	// though the kill it triggered cascades errors into the feeder.
	if drainRes.err != nil {
		return nil, fail(drainRes.kind, drainRes.err)
	}

	// Feeder failure next. A broken pipe against a process that exited
	// cleanly is not a failure at all: the transform legitimately
	// finished without needing the rest of its input.
	if feedRes.err != nil {
		if feedRes.kind == ErrorBrokenPipe && exitCode == 0 {
			logging.Debug("pipeline %s: process finished before consuming all input", opts.Operation)
		} else {
			pe := fail(feedRes.kind, feedRes.err)
			if feedRes.kind == ErrorBrokenPipe {
				pe.Stderr = proc.Stderr()
			}
			return nil, pe
		}
	}

	if exitCode != 0 {
		pe := fail(ErrorTransformFailed, fmt.Errorf("transform exited with code %d", exitCode))
		pe.Stderr = proc.Stderr()
		return nil, pe
	}

	tracker.SetPhase(progress.PhaseFinalizing)
	handle, ferr := snk.Finalize(runCtx)
	if ferr != nil {
		return nil, fail(ErrorSink, fmt.Errorf("finalize: %w", ferr))
	}
	finalized = true

	result := &Result{
		BytesIn:  tracker.BytesIn(),
		BytesOut: tracker.BytesOut(),
		Handle:   handle,
		Duration: time.Since(start),
	}
	logging.Debug("pipeline %s: done, %d bytes in, %d bytes out in %v",
		opts.Operation, result.BytesIn, result.BytesOut, result.Duration)
	return result, nil
}
