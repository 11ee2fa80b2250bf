package retrieve

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/cache"
	"github.com/lepinkainen/coverfetch/internal/errors"
	"github.com/lepinkainen/coverfetch/internal/extract"
)

// WebPageSearch queries the public search page and scans its results.
type WebPageSearch struct {
	deps    Deps
	scanner candidateScanner
}

// NewWebPageSearch creates the live web search strategy.
func NewWebPageSearch(deps Deps) *WebPageSearch {
	deps = deps.withDefaults()
	return &WebPageSearch{deps: deps, scanner: candidateScanner{deps: deps}}
}

func (s *WebPageSearch) Name() string { return "web" }

// SearchURL returns the search page address for a title.
func SearchURL(base, title string) string {
	return base + "/search?" + url.Values{"cat": {"1001"}, "q": {title}}.Encode()
}

func (s *WebPageSearch) Search(ctx context.Context, title string) (book.Edition, error) {
	candidates, err := s.candidates(ctx, title)
	if err != nil {
		return book.Edition{}, err
	}
	return s.scanner.scan(ctx, title, candidates)
}

func (s *WebPageSearch) candidates(ctx context.Context, title string) ([]book.Candidate, error) {
	searchURL := SearchURL(s.deps.SearchBaseURL, title)
	return cached(s.deps.Cache, cache.SearchTable, searchURL, func() ([]book.Candidate, error) {
		if err := s.deps.Gate.Wait(ctx); err != nil {
			return nil, err
		}
		slog.Info("Searching Douban", "url", searchURL)
		resp, err := s.deps.Client.Get(ctx, searchURL)
		if err != nil {
			return nil, err
		}
		page := string(resp.Body)
		candidates, err := extract.ExtractCandidates(page)
		if err != nil {
			return nil, err
		}
		// Only a real results page may be remembered as empty
		if len(candidates) == 0 && !extract.IsSearchResultsPage(page) {
			return nil, errors.NewValidationError("search page", "response has no results layout")
		}
		slog.Info("Found candidates", "title", title, "count", len(candidates))
		return candidates, nil
	}, cache.SelectNegativeCacheTTL(func(c []book.Candidate) bool { return len(c) == 0 }))
}
