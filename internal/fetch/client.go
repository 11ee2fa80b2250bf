// Package fetch performs the GET and HEAD requests every other component relies on.
package fetch

import (
	"net/http"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 16 << 20
	snippetSize    = 512
)

// ChromeUA is a desktop Chrome User-Agent sent with every request unless overridden.
const ChromeUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultHeaders returns the header set that makes requests look like a desktop browser.
// Accept-Encoding is left to the transport so gzip is decoded transparently.
func DefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      []string{ChromeUA},
		"Accept":          []string{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": []string{"zh-CN,zh;q=0.9,en;q=0.8"},
	}
}

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client issues requests through one shared HTTP client so connections are reused.
type Client struct {
	httpClient HTTPDoer
	headers    http.Header
	timeout    time.Duration
}

// NewClient creates a new fetch client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{},
		headers:    DefaultHeaders(),
		timeout:    defaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithHeaders replaces the default header set.
func WithHeaders(h http.Header) Option {
	return func(client *Client) {
		if h != nil {
			client.headers = h.Clone()
		}
	}
}

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.timeout = d
		}
	}
}
