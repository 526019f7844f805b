// Package fetch retrieves remote module code resources by URL. It is the
// loader's collaborator boundary: the loader decides what to fetch, this
// package only moves bytes.
package fetch

import (
	"context"
	"fmt"

	"resty.dev/v3"
)

// Error reports a remote code resource that failed to load.
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher fetches the content of one remote code resource.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Func adapts a plain function to the Fetcher interface.
type Func func(ctx context.Context, url string) ([]byte, error)

// Fetch implements Fetcher.
func (f Func) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HTTP fetches resources over HTTP(S).
type HTTP struct {
	client *resty.Client
}

// NewHTTP creates an HTTP fetcher with its own client.
func NewHTTP() *HTTP {
	return &HTTP{client: resty.New()}
}

// Fetch performs a GET for the resource and returns its body. Transport
// failures and non-2xx statuses are both reported as *Error.
func (h *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := h.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	if resp.IsError() {
		return nil, &Error{URL: url, Status: resp.StatusCode()}
	}
	return resp.Bytes(), nil
}

// Close releases the underlying client resources.
func (h *HTTP) Close() error {
	return h.client.Close()
}
