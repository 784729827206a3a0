package transform

import (
	"strings"
	"testing"
)

func TestTailBufferKeepsEverythingUnderLimit(t *testing.T) {
	t.Parallel()

	tb := newTailBuffer(100)
	if _, err := tb.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := tb.Write([]byte("world")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if got := tb.String(); got != "hello world" {
		t.Errorf("Expected %q, got %q", "hello world", got)
	}
}

func TestTailBufferKeepsOnlyTail(t *testing.T) {
	t.Parallel()

	tb := newTailBuffer(10)
	for i := 0; i < 10; i++ {
		if _, err := tb.Write([]byte("0123456789")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	got := tb.String()
	if !strings.HasPrefix(got, "...(truncated)\n") {
		t.Errorf("Expected truncation marker, got %q", got)
	}
	if !strings.HasSuffix(got, "0123456789") {
		t.Errorf("Expected last window retained, got %q", got)
	}
	if tb.Len() != 10 {
		t.Errorf("Expected buffer length 10, got %d", tb.Len())
	}
}

func TestTailBufferSingleOversizedWrite(t *testing.T) {
	t.Parallel()

	tb := newTailBuffer(5)
	n, err := tb.Write([]byte("abcdefghij"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 10 {
		t.Errorf("Expected reported write of 10 bytes, got %d", n)
	}

	if got := tb.String(); got != "...(truncated)\nfghij" {
		t.Errorf("Expected truncated tail, got %q", got)
	}
}

func TestTailBufferExactLimitWriteNotTruncated(t *testing.T) {
	t.Parallel()

	tb := newTailBuffer(5)
	if _, err := tb.Write([]byte("abcde")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := tb.String(); got != "abcde" {
		t.Errorf("Expected %q with no marker, got %q", "abcde", got)
	}
}
