package transform

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestSpecValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{name: "valid", spec: Spec{Args: []string{"cat"}}},
		{name: "valid with args", spec: Spec{Args: []string{"cat", "-u"}}},
		{name: "empty", spec: Spec{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestProcessRoundTrip(t *testing.T) {
	t.Parallel()

	p := new(Process)
	if err := p.Start(Spec{Args: []string{"cat"}}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Kill()

	input := bytes.Repeat([]byte("roundtrip"), 1000)

	var output []byte
	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := p.ReadOutput(buf)
			output = append(output, buf[:n]...)
			if err == io.EOF {
				done <- nil
				return
			}
			if err != nil {
				done <- err
				return
			}
		}
	}()

	if err := p.WriteInput(input); err != nil {
		t.Fatalf("WriteInput failed: %v", err)
	}
	if err := p.CloseInput(); err != nil {
		t.Fatalf("CloseInput failed: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("ReadOutput failed: %v", err)
	}
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if !bytes.Equal(output, input) {
		t.Errorf("Expected %d bytes back unchanged, got %d", len(input), len(output))
	}
	if p.ExitCode() != 0 {
		t.Errorf("Expected exit code 0, got %d", p.ExitCode())
	}
}

func TestProcessSpawnFailure(t *testing.T) {
	t.Parallel()

	p := new(Process)
	err := p.Start(Spec{Args: []string{"/nonexistent/definitely-not-a-binary"}})
	if err == nil {
		t.Fatal("Expected spawn error, got nil")
	}
	if !strings.Contains(err.Error(), "spawn") {
		t.Errorf("Expected spawn error, got %v", err)
	}
}

func TestProcessBrokenPipe(t *testing.T) {
	t.Parallel()

	p := new(Process)
	if err := p.Start(Spec{Args: []string{"sh", "-c", "exit 1"}}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Kill()

	// The shell exits immediately without reading stdin. Keep writing
	// until the pipe breaks.
	chunk := bytes.Repeat([]byte("x"), 64*1024)
	var err error
	deadline := time.Now().Add(5 * time.Second)
	for err == nil && time.Now().Before(deadline) {
		err = p.WriteInput(chunk)
	}

	if !errors.Is(err, ErrBrokenPipe) {
		t.Fatalf("Expected ErrBrokenPipe, got %v", err)
	}
	if err := p.Wait(context.Background()); err == nil {
		t.Error("Expected non-nil exit error for exit code 1")
	}
	if p.ExitCode() != 1 {
		t.Errorf("Expected exit code 1, got %d", p.ExitCode())
	}
}

func TestProcessStderrCaptured(t *testing.T) {
	t.Parallel()

	p := new(Process)
	if err := p.Start(Spec{Args: []string{"sh", "-c", "echo unsupported codec >&2; exit 3"}}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Kill()

	if err := p.CloseInput(); err != nil {
		t.Fatalf("CloseInput failed: %v", err)
	}
	// Drain stdout so Wait is safe with piped output.
	buf := make([]byte, 1024)
	for {
		if _, err := p.ReadOutput(buf); err != nil {
			break
		}
	}
	_ = p.Wait(context.Background())

	if p.ExitCode() != 3 {
		t.Errorf("Expected exit code 3, got %d", p.ExitCode())
	}
	if !strings.Contains(p.Stderr(), "unsupported codec") {
		t.Errorf("Expected stderr to contain diagnostic, got %q", p.Stderr())
	}
}

func TestProcessWriteAfterCloseInput(t *testing.T) {
	t.Parallel()

	p := new(Process)
	if err := p.Start(Spec{Args: []string{"cat"}}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Kill()

	if err := p.CloseInput(); err != nil {
		t.Fatalf("CloseInput failed: %v", err)
	}
	if err := p.WriteInput([]byte("late")); !errors.Is(err, ErrInputClosed) {
		t.Errorf("Expected ErrInputClosed, got %v", err)
	}
	// Idempotent
	if err := p.CloseInput(); err != nil {
		t.Errorf("Expected repeated CloseInput to succeed, got %v", err)
	}
}

func TestProcessKillIdempotent(t *testing.T) {
	t.Parallel()

	p := new(Process)
	if err := p.Start(Spec{Args: []string{"sleep", "60"}}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	p.Kill()
	p.Kill()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Wait(ctx); err == nil {
		t.Error("Expected non-nil exit error after kill")
	}

	// Killing after exit stays a no-op.
	p.Kill()
}

func TestProcessKillUnblocksReader(t *testing.T) {
	t.Parallel()

	p := new(Process)
	if err := p.Start(Spec{Args: []string{"sleep", "60"}}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	readDone := make(chan struct{})
	go func() {
		buf := make([]byte, 16)
		for {
			if _, err := p.ReadOutput(buf); err != nil {
				close(readDone)
				return
			}
		}
	}()

	time.Sleep(50 * time.Millisecond)
	p.Kill()

	select {
	case <-readDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected Kill to unblock the output reader")
	}
	_ = p.Wait(context.Background())
}

func TestProcessWaitHonorsContext(t *testing.T) {
	t.Parallel()

	p := new(Process)
	if err := p.Start(Spec{Args: []string{"sleep", "60"}}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		p.Kill()
		_ = p.Wait(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := p.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestProcessOperationsBeforeStart(t *testing.T) {
	t.Parallel()

	p := new(Process)
	if err := p.WriteInput([]byte("x")); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted from WriteInput, got %v", err)
	}
	if err := p.CloseInput(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted from CloseInput, got %v", err)
	}
	if _, err := p.ReadOutput(make([]byte, 1)); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted from ReadOutput, got %v", err)
	}
	if err := p.Wait(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted from Wait, got %v", err)
	}
	if p.ExitCode() != -1 {
		t.Errorf("Expected exit code -1 before start, got %d", p.ExitCode())
	}
}
