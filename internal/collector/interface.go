package collector

import (
	"context"
	"net/http"
)

// Response is the raw outcome of one GET: status, body and the final URL
// after redirects.
type Response struct {
	StatusCode int
	Body       []byte
	URL        string
}

// OK reports whether the server answered 200
func (r *Response) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// Fetcher is the opaque fetch(url) -> bytes|status capability.
// A non-nil error means the request never produced a response.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, url string) (*Response, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (*Response, error) {
	return f(ctx, url)
}
