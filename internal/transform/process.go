package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"sync"
	"syscall"
)

// MaxStderrBytes bounds how much of the process's diagnostic channel is
// retained. ffmpeg can emit arbitrary amounts of stderr; only the tail
// is kept for error reporting.
const MaxStderrBytes = 64 * 1024

// Sentinel errors for process lifecycle conditions.
var (
	// ErrNotStarted indicates an operation on a process that was never
	// started.
	ErrNotStarted = errors.New("transform process not started")

	// ErrInputClosed indicates a write after CloseInput.
	ErrInputClosed = errors.New("transform input already closed")

	// ErrBrokenPipe indicates the process exited before consuming all of
	// its input. This is an expected condition (e.g. the process
	// rejected malformed input early), distinguished from environment
	// failures so callers can report the process's own diagnostics as
	// the root cause.
	ErrBrokenPipe = errors.New("transform process closed its input")
)

// Process wraps one child-process instance that reads a byte stream on
// stdin, writes a transformed stream on stdout, and writes diagnostics
// on stderr. All three channels are captured, never inherited.
//
// Concurrency contract: stdin is owned by exactly one writer and stdout
// by exactly one reader. CloseInput, Kill and Wait are safe to call from
// any goroutine and are idempotent.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr *tailBuffer

	closeInputOnce sync.Once
	closeInputErr  error

	killOnce sync.Once

	waitOnce sync.Once
	waitDone chan struct{}
	waitErr  error
}

// Start spawns the process described by spec with stdin/stdout/stderr
// all piped. It fails without side effects when the executable cannot be
// launched.
func (p *Process) Start(spec Spec) error {
	if p.cmd != nil {
		return errors.New("transform process already started")
	}
	if err := spec.Validate(); err != nil {
		return err
	}

	cmd := exec.Command(spec.Args[0], spec.Args[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("pipe stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("pipe stdout: %w", err)
	}
	stderr := newTailBuffer(MaxStderrBytes)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn %s: %w", spec.Args[0], err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.stdout = stdout
	p.stderr = stderr
	p.waitDone = make(chan struct{})
	return nil
}

// WriteInput writes one chunk to the process's stdin, blocking the
// calling goroutine while the input buffer is full. This blocking is the
// pipeline's backpressure mechanism. A write against an exited process
// returns ErrBrokenPipe.
func (p *Process) WriteInput(chunk []byte) error {
	if p.cmd == nil {
		return ErrNotStarted
	}

	_, err := p.stdin.Write(chunk)
	if err == nil {
		return nil
	}
	if isBrokenPipe(err) {
		return fmt.Errorf("%w: %v", ErrBrokenPipe, err)
	}
	if errors.Is(err, fs.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return ErrInputClosed
	}
	return fmt.Errorf("write input: %w", err)
}

// CloseInput signals end-of-input to the process. Idempotent.
func (p *Process) CloseInput() error {
	if p.cmd == nil {
		return ErrNotStarted
	}
	p.closeInputOnce.Do(func() {
		p.closeInputErr = p.stdin.Close()
	})
	return p.closeInputErr
}

// ReadOutput reads the next available output bytes into buf, blocking
// until the process produces some. It returns io.EOF when the process
// closes its output.
func (p *Process) ReadOutput(buf []byte) (int, error) {
	if p.cmd == nil {
		return 0, ErrNotStarted
	}
	return p.stdout.Read(buf)
}

// Wait blocks until the process exits or ctx is done. On ctx expiry the
// process keeps running and the caller is expected to Kill and Wait
// again. The exit error is sticky: repeated calls return the same value.
func (p *Process) Wait(ctx context.Context) error {
	if p.cmd == nil {
		return ErrNotStarted
	}

	p.waitOnce.Do(func() {
		go func() {
			p.waitErr = p.cmd.Wait()
			close(p.waitDone)
		}()
	})

	select {
	case <-p.waitDone:
		return p.waitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Kill forcibly terminates the process and releases its pipe handles.
// Idempotent, and a no-op after natural exit (the underlying kill of a
// reaped process fails and is ignored). The caller should still Wait to
// reap the process.
func (p *Process) Kill() {
	if p.cmd == nil {
		return
	}
	p.killOnce.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		// Unblock any writer or reader stuck on the pipes.
		p.closeInputOnce.Do(func() {
			p.closeInputErr = p.stdin.Close()
		})
		_ = p.stdout.Close()
	})
}

// Exited reports whether the process has been reaped by Wait.
func (p *Process) Exited() bool {
	if p.cmd == nil {
		return false
	}
	select {
	case <-p.waitDone:
		return true
	default:
		return p.cmd.ProcessState != nil
	}
}

// ExitCode returns the process exit code, or -1 when the process has
// not exited (or was terminated by a signal).
func (p *Process) ExitCode() int {
	if p.cmd == nil || p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Stderr returns the captured diagnostic text, truncated to the last
// MaxStderrBytes bytes.
func (p *Process) Stderr() string {
	if p.stderr == nil {
		return ""
	}
	return p.stderr.String()
}

// Pid returns the operating system process id, or 0 before Start.
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}
