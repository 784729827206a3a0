package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"media-pipe/internal/logging"
)

// FileSink streams output into a hidden temporary file and renames it to
// its final name on Finalize, so a partially written result is never
// visible under the final path. Abort removes the temporary file.
type FileSink struct {
	dir       string
	finalName string

	file      *os.File
	finalized bool
	aborted   bool
}

// NewFileSink creates a sink committing to dir/finalName. The directory
// must exist; the temporary file is created eagerly so permission
// problems surface before the transform starts.
func NewFileSink(dir, finalName string) (*FileSink, error) {
	f, err := os.CreateTemp(dir, ".mediapipe-*.part")
	if err != nil {
		return nil, fmt.Errorf("create temp output: %w", err)
	}
	return &FileSink{
		dir:       dir,
		finalName: finalName,
		file:      f,
	}, nil
}

// Accept appends one chunk to the temporary file.
func (s *FileSink) Accept(ctx context.Context, chunk []byte) error {
	if s.finalized || s.aborted {
		return ErrSinkClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.file.Write(chunk); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// Finalize syncs, closes and renames the temporary file into place,
// returning the final path.
func (s *FileSink) Finalize(_ context.Context) (string, error) {
	if s.finalized || s.aborted {
		return "", ErrSinkClosed
	}
	s.finalized = true

	if err := s.file.Sync(); err != nil {
		s.cleanup()
		return "", fmt.Errorf("sync output: %w", err)
	}
	if err := s.file.Close(); err != nil {
		s.cleanup()
		return "", fmt.Errorf("close output: %w", err)
	}

	finalPath := filepath.Join(s.dir, s.finalName)
	if err := os.Rename(s.file.Name(), finalPath); err != nil {
		s.cleanup()
		return "", fmt.Errorf("commit output: %w", err)
	}
	return finalPath, nil
}

// Abort discards the partial output. Idempotent, and a no-op after
// Finalize.
func (s *FileSink) Abort() error {
	if s.finalized || s.aborted {
		return nil
	}
	s.aborted = true
	s.cleanup()
	return nil
}

func (s *FileSink) cleanup() {
	if err := s.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		logging.Warn("failed to close temp output %s: %v", s.file.Name(), err)
	}
	if err := os.Remove(s.file.Name()); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove temp output %s: %v", s.file.Name(), err)
	}
}
