// Package network provides the shared HTTP client used for media transfers.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bmevideo/bmevideo/constant"
)

// ErrUnexpectedStatus is returned by Fetch for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client is shared across the application.
// No overall Timeout is set since media bodies are long-lived streams; callers bound transfers with a context.
var Client = &http.Client{
	Transport: &userAgent{next: newTransport()},
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 32
	t.MaxIdleConnsPerHost = 8
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	return t
}

type userAgent struct {
	next http.RoundTripper
}

func (u *userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", constant.UserAgent)
	}
	return u.next.RoundTrip(req)
}

// Fetcher opens a byte stream for a remote identifier.
type Fetcher struct {
	client *http.Client
}

// NewFetcher wraps client, or Client when nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = Client
	}
	return &Fetcher{client: client}
}

// Fetch issues a GET for url and returns the response body.
// The caller must close the body. The second value is the advertised length, or -1.
func (f *Fetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, 0, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	return resp.Body, resp.ContentLength, nil
}

// ProgressWriter counts the bytes written through it.
type ProgressWriter struct {
	w       io.Writer
	written atomic.Int64
}

// NewProgressWriter wraps w.
func NewProgressWriter(w io.Writer) *ProgressWriter {
	return &ProgressWriter{w: w}
}

func (p *ProgressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written.Add(int64(n))
	return n, err
}

// Written returns the byte count so far. Safe to call from other goroutines.
func (p *ProgressWriter) Written() int64 {
	return p.written.Load()
}
