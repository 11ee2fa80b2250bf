package fetch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lepinkainen/coverfetch/internal/errors"
)

// Request describes a single outbound call.
type Request struct {
	URL    string
	Method string
	// Headers override the client's defaults key by key
	Headers http.Header
	// Timeout bounds the whole call including the body read; zero uses the client default
	Timeout time.Duration
	// AcceptAnyStatus returns non-2xx responses instead of an HTTPStatusError
	AcceptAnyStatus bool
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Fetch performs the request. Connection and timeout failures become a
// NetworkError; a non-2xx status becomes an HTTPStatusError unless the
// request accepts any status.
func (c *Client) Fetch(ctx context.Context, r Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, r.URL, nil)
	if err != nil {
		return nil, errors.NewParseError("request URL", err)
	}
	for key, values := range c.headers {
		req.Header[key] = append([]string(nil), values...)
	}
	for key, values := range r.Headers {
		req.Header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(r.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !r.AcceptAnyStatus && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, snippetSize))
		return nil, errors.NewHTTPStatusError(resp.StatusCode, r.URL, strings.TrimSpace(string(snippet)))
	}

	var body []byte
	if method != http.MethodHead {
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, errors.NewNetworkError(r.URL, err)
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}, nil
}

// Get fetches url with the default headers and timeout, requiring a 2xx status.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Fetch(ctx, Request{URL: url})
}

// Head issues a HEAD request that accepts any status, for reachability checks.
func (c *Client) Head(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	return c.Fetch(ctx, Request{
		URL:             url,
		Method:          http.MethodHead,
		Timeout:         timeout,
		AcceptAnyStatus: true,
	})
}
