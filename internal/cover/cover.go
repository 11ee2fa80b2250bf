// Package cover derives the small, medium and large variants of a Douban cover
// image URL and checks which of them can be reached.
package cover

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/fetch"
	"github.com/lepinkainen/coverfetch/internal/ratelimit"
)

// DefaultVerifyTimeout bounds each reachability check.
const DefaultVerifyTimeout = 5 * time.Second

var sizeTags = []string{"/l/", "/m/", "/s/"}

// DeriveSizes strips the size tag from a cover URL and rebuilds the three
// variants around its /public/ segment. Deriving from any of the results
// yields the same three URLs again.
func DeriveSizes(url string) book.CoverSizes {
	if url == "" {
		return book.CoverSizes{}
	}
	base := url
	for _, tag := range sizeTags {
		base = strings.ReplaceAll(base, tag, "/")
	}
	return book.CoverSizes{
		Small:  strings.Replace(base, "/public/", "/s/public/", 1),
		Medium: strings.Replace(base, "/public/", "/m/public/", 1),
		Large:  strings.Replace(base, "/public/", "/l/public/", 1),
	}
}

// Resolve returns the cover variants for an edition. An explicit size map is
// used as is; a single URL is derived.
func Resolve(edition book.Edition) book.CoverSizes {
	if edition.Cover.Sizes != nil {
		return *edition.Cover.Sizes
	}
	return DeriveSizes(edition.Cover.URL)
}

// Verifier checks cover URLs with HEAD requests.
type Verifier struct {
	client  *fetch.Client
	limiter *ratelimit.Limiter
	timeout time.Duration
}

// NewVerifier creates a Verifier. A nil limiter never blocks.
func NewVerifier(client *fetch.Client, limiter *ratelimit.Limiter) *Verifier {
	return &Verifier{
		client:  client,
		limiter: limiter,
		timeout: DefaultVerifyTimeout,
	}
}

// Reachable reports whether url answers a HEAD request with 200. Every other
// outcome, including errors, counts as unreachable.
func (v *Verifier) Reachable(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}
	if err := v.limiter.Wait(ctx); err != nil {
		slog.Debug("Cover check cancelled", "url", url, "limiter", v.limiter.Name(), "error", err)
		return false
	}
	resp, err := v.client.Head(ctx, url, v.timeout)
	if err != nil {
		slog.Debug("Cover check failed", "url", url, "error", err)
		return false
	}
	return resp.StatusCode == http.StatusOK
}

// Report holds the reachability of each variant.
type Report struct {
	Small, Medium, Large bool
}

// VerifyAll checks every variant and logs the outcome of each.
func (v *Verifier) VerifyAll(ctx context.Context, sizes book.CoverSizes) Report {
	var report Report
	for _, variant := range []struct {
		name string
		url  string
		ok   *bool
	}{
		{"small", sizes.Small, &report.Small},
		{"medium", sizes.Medium, &report.Medium},
		{"large", sizes.Large, &report.Large},
	} {
		*variant.ok = v.Reachable(ctx, variant.url)
		if *variant.ok {
			slog.Info("Cover reachable", "size", variant.name, "url", variant.url)
		} else {
			slog.Warn("Cover unreachable", "size", variant.name, "url", variant.url)
		}
	}
	return report
}
