package transform

import "sync"

// tailBuffer is an io.Writer that keeps only the last limit bytes
// written to it. The transform process's diagnostic channel is captured
// through one of these so a pathological child cannot grow memory
// without bound; the most recent output is the part worth keeping, since
// ffmpeg prints its fatal error last.
type tailBuffer struct {
	mu        sync.Mutex
	limit     int
	truncated bool
	buf       []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(p) >= t.limit {
		// The write alone fills the window; keep its tail.
		if len(p) > t.limit || len(t.buf) > 0 {
			t.truncated = true
		}
		t.buf = append(t.buf[:0], p[len(p)-t.limit:]...)
		return len(p), nil
	}

	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		copy(t.buf, t.buf[len(t.buf)-t.limit:])
		t.buf = t.buf[:t.limit]
		t.truncated = true
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.truncated {
		return "...(truncated)\n" + string(t.buf)
	}
	return string(t.buf)
}

func (t *tailBuffer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}
