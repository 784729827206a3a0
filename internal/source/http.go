package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

// HTTPSource streams a remote object over HTTP. The connection is
// established lazily on the first Next call, so a source can be created
// and size-checked without touching the network.
type HTTPSource struct {
	desc      Descriptor
	url       string
	client    *http.Client
	chunkSize int

	bytesRead atomic.Int64
	opened    bool
	closed    atomic.Bool
	body      io.ReadCloser
	buf       []byte
}

// NewHTTPSource creates a source that GETs url and streams the response
// body in chunks of up to chunkSize bytes. A nil client uses
// http.DefaultClient; a chunkSize of 0 uses DefaultChunkSize.
func NewHTTPSource(desc Descriptor, url string, client *http.Client, chunkSize int) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &HTTPSource{
		desc:      desc,
		url:       url,
		client:    client,
		chunkSize: chunkSize,
	}
}

// Open validates the descriptor. The GET request itself is deferred to
// the first Next call.
func (s *HTTPSource) Open(_ context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.desc.Validate(); err != nil {
		return err
	}
	s.opened = true
	return nil
}

func (s *HTTPSource) connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", s.url, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("fetch %s: unexpected status %s", s.url, resp.Status)
	}

	// The origin's Content-Length supersedes the caller's declared size
	// for the size cap when present.
	if s.desc.MaxSize > 0 && resp.ContentLength > s.desc.MaxSize {
		resp.Body.Close()
		return fmt.Errorf("origin declares %d bytes, maximum %d: %w", resp.ContentLength, s.desc.MaxSize, ErrSizeExceeded)
	}

	s.body = resp.Body
	return nil
}

// Next returns the next chunk of the response body.
func (s *HTTPSource) Next(ctx context.Context) ([]byte, error) {
	if !s.opened {
		return nil, ErrNotOpened
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.body == nil {
		if err := s.connect(ctx); err != nil {
			return nil, err
		}
	}

	if s.buf == nil {
		s.buf = make([]byte, s.chunkSize)
	}

	for {
		n, err := s.body.Read(s.buf)
		if n > 0 {
			total := s.bytesRead.Add(int64(n))
			if s.desc.MaxSize > 0 && total > s.desc.MaxSize {
				return nil, fmt.Errorf("read %d bytes, maximum %d: %w", total, s.desc.MaxSize, ErrSizeExceeded)
			}
			return s.buf[:n], nil
		}
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read %s: %w", s.url, err)
		}
	}
}

// BytesRead returns the cumulative bytes produced so far.
func (s *HTTPSource) BytesRead() int64 {
	return s.bytesRead.Load()
}

// Close releases the response body and its connection. Idempotent.
func (s *HTTPSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.body != nil {
		return s.body.Close()
	}
	return nil
}
