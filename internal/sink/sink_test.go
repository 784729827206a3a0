package sink

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSinkCommitsOnFinalize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewFileSink(dir, "output.mp4")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}

	ctx := context.Background()
	if err := s.Accept(ctx, []byte("part one ")); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	// The final name must not exist while the sink is still accepting.
	finalPath := filepath.Join(dir, "output.mp4")
	if _, err := os.Stat(finalPath); !os.IsNotExist(err) {
		t.Error("Expected final path to not exist before Finalize")
	}

	if err := s.Accept(ctx, []byte("part two")); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	handle, err := s.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if handle != finalPath {
		t.Errorf("Expected handle %q, got %q", finalPath, handle)
	}

	data, err := os.ReadFile(finalPath)
	if err != nil {
		t.Fatalf("Failed to read committed file: %v", err)
	}
	if string(data) != "part one part two" {
		t.Errorf("Expected committed content, got %q", string(data))
	}

	// No leftover temp files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the committed file in %s, got %d entries", dir, len(entries))
	}
}

func TestFileSinkAbortRemovesTemp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewFileSink(dir, "output.mp4")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}

	if err := s.Accept(context.Background(), []byte("partial")); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("Second Abort failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty directory after Abort, got %d entries", len(entries))
	}

	if err := s.Accept(context.Background(), []byte("late")); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("Expected ErrSinkClosed after Abort, got %v", err)
	}
	if _, err := s.Finalize(context.Background()); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("Expected ErrSinkClosed from Finalize after Abort, got %v", err)
	}
}

func TestFileSinkAbortAfterFinalizeKeepsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewFileSink(dir, "keep.mp4")
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}

	if err := s.Accept(context.Background(), []byte("data")); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, err := s.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "keep.mp4")); err != nil {
		t.Errorf("Expected committed file to survive a late Abort: %v", err)
	}
}

func TestFileSinkMissingDirectory(t *testing.T) {
	t.Parallel()

	if _, err := NewFileSink("/nonexistent/path", "output.mp4"); err == nil {
		t.Error("Expected error for missing directory, got nil")
	}
}

func TestBufferSinkLifecycle(t *testing.T) {
	t.Parallel()

	s := NewBufferSink()
	ctx := context.Background()

	if err := s.Accept(ctx, []byte("hello ")); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if err := s.Accept(ctx, []byte("world")); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	handle, err := s.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if handle != "memory:11" {
		t.Errorf("Expected handle memory:11, got %q", handle)
	}
	if !s.Finalized() {
		t.Error("Expected Finalized to be true")
	}
	if !bytes.Equal(s.Bytes(), []byte("hello world")) {
		t.Errorf("Expected buffered bytes, got %q", s.Bytes())
	}

	if err := s.Accept(ctx, []byte("late")); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("Expected ErrSinkClosed after Finalize, got %v", err)
	}
	if _, err := s.Finalize(ctx); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("Expected ErrSinkClosed on double Finalize, got %v", err)
	}
}

func TestBufferSinkAbortDiscards(t *testing.T) {
	t.Parallel()

	s := NewBufferSink()
	if err := s.Accept(context.Background(), []byte("partial")); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if !s.Aborted() {
		t.Error("Expected Aborted to be true")
	}
	if s.Len() != 0 {
		t.Errorf("Expected buffer discarded after Abort, got %d bytes", s.Len())
	}
}

func TestWriterSinkStreamsAndFlushes(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	s := NewWriterSink(rec, WriterConfig{ChunkSize: 4})

	ctx := context.Background()
	if err := s.Accept(ctx, []byte("0123456789")); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	handle, err := s.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if handle != "stream:10" {
		t.Errorf("Expected handle stream:10, got %q", handle)
	}
	if s.BytesWritten() != 10 {
		t.Errorf("Expected 10 bytes written, got %d", s.BytesWritten())
	}
	if got := rec.Body.String(); got != "0123456789" {
		t.Errorf("Expected full payload downstream, got %q", got)
	}
	if !rec.Flushed {
		t.Error("Expected flush after chunks")
	}
}

type stallingWriter struct{}

func (stallingWriter) Write(p []byte) (int, error) {
	time.Sleep(time.Hour)
	return len(p), nil
}

func TestWriterSinkWriteTimeout(t *testing.T) {
	t.Parallel()

	s := NewWriterSink(stallingWriter{}, WriterConfig{WriteTimeout: 50 * time.Millisecond})

	err := s.Accept(context.Background(), []byte("data"))
	if !errors.Is(err, ErrWriteTimeout) {
		t.Fatalf("Expected ErrWriteTimeout, got %v", err)
	}
	// The sink is dead after a timeout.
	if err := s.Accept(context.Background(), []byte("more")); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("Expected ErrSinkClosed after timeout, got %v", err)
	}
}

func TestWriterSinkAbortStopsWrites(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewWriterSink(&buf, WriterConfig{})

	if err := s.Accept(context.Background(), []byte("sent")); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if err := s.Accept(context.Background(), []byte("late")); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("Expected ErrSinkClosed after Abort, got %v", err)
	}
	if buf.String() != "sent" {
		t.Errorf("Expected only pre-abort bytes downstream, got %q", buf.String())
	}
}

func TestWriterSinkCancelledContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewWriterSink(&buf, WriterConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Accept(ctx, []byte("data")); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
