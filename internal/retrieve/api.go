package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/cache"
	"github.com/lepinkainen/coverfetch/internal/errors"
	"github.com/lepinkainen/coverfetch/internal/selector"
)

const apiResultCount = "10"

// apiBook is one entry of the v2 book search response.
type apiBook struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Author    []string          `json:"author"`
	Publisher string            `json:"publisher"`
	PubDate   string            `json:"pubdate"`
	Image     string            `json:"image"`
	Images    map[string]string `json:"images"`
	ISBN13    string            `json:"isbn13"`
	Summary   string            `json:"summary"`
	Rating    struct {
		Average json.Number `json:"average"`
	} `json:"rating"`
}

func (b apiBook) edition() book.Edition {
	e := book.Edition{
		Title:     b.Title,
		Authors:   b.Author,
		Publisher: b.Publisher,
		PubDate:   b.PubDate,
		Rating:    b.Rating.Average.String(),
		ISBN:      b.ISBN13,
		SubjectID: b.ID,
		Summary:   b.Summary,
	}
	if len(b.Images) > 0 {
		e.Cover.Sizes = &book.CoverSizes{
			Small:  b.Images["small"],
			Medium: b.Images["medium"],
			Large:  b.Images["large"],
		}
	} else {
		e.Cover.URL = b.Image
	}
	return e
}

// StructuredAPISearch queries the v2 book search API and picks the latest
// edition among the results.
type StructuredAPISearch struct {
	deps Deps
}

// NewStructuredAPISearch creates the v2 API strategy.
func NewStructuredAPISearch(deps Deps) *StructuredAPISearch {
	return &StructuredAPISearch{deps: deps.withDefaults()}
}

func (s *StructuredAPISearch) Name() string { return "api" }

func (s *StructuredAPISearch) Search(ctx context.Context, title string) (book.Edition, error) {
	searchURL := s.deps.APIBaseURL + "/v2/book/search?" + url.Values{"q": {title}, "count": {apiResultCount}}.Encode()

	editions, err := fetchEditions(ctx, s.deps, searchURL, func(body []byte) ([]book.Edition, error) {
		var resp struct {
			Books []apiBook `json:"books"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, err
		}
		editions := make([]book.Edition, 0, len(resp.Books))
		for _, b := range resp.Books {
			editions = append(editions, b.edition())
		}
		return editions, nil
	})
	if err != nil {
		return book.Edition{}, err
	}
	return latest(title, editions)
}

// frodoSubject is one entry of the mobile API subject search response.
type frodoSubject struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Author    []string          `json:"author"`
	Publisher string            `json:"publisher"`
	PubDate   string            `json:"pubdate"`
	Pic       map[string]string `json:"pic"`
}

func (f frodoSubject) edition() book.Edition {
	e := book.Edition{
		Title:     f.Title,
		Authors:   f.Author,
		Publisher: f.Publisher,
		PubDate:   f.PubDate,
		SubjectID: f.ID,
	}
	if len(f.Pic) > 0 {
		medium := f.Pic["medium"]
		if medium == "" {
			medium = f.Pic["normal"]
		}
		e.Cover.Sizes = &book.CoverSizes{
			Small:  f.Pic["small"],
			Medium: medium,
			Large:  f.Pic["large"],
		}
	}
	return e
}

// AlternateAPISearch queries the mobile subject search API and picks the
// latest edition among the results.
type AlternateAPISearch struct {
	deps Deps
}

// NewAlternateAPISearch creates the mobile API strategy.
func NewAlternateAPISearch(deps Deps) *AlternateAPISearch {
	return &AlternateAPISearch{deps: deps.withDefaults()}
}

func (s *AlternateAPISearch) Name() string { return "frodo" }

func (s *AlternateAPISearch) Search(ctx context.Context, title string) (book.Edition, error) {
	searchURL := s.deps.FrodoBaseURL + "/api/v2/search/subjects?" +
		url.Values{"q": {title}, "type": {"book"}, "count": {apiResultCount}}.Encode()

	editions, err := fetchEditions(ctx, s.deps, searchURL, func(body []byte) ([]book.Edition, error) {
		var resp struct {
			Subjects []frodoSubject `json:"subjects"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, err
		}
		editions := make([]book.Edition, 0, len(resp.Subjects))
		for _, subject := range resp.Subjects {
			editions = append(editions, subject.edition())
		}
		return editions, nil
	})
	if err != nil {
		return book.Edition{}, err
	}
	return latest(title, editions)
}

func fetchEditions(ctx context.Context, deps Deps, searchURL string, decode func([]byte) ([]book.Edition, error)) ([]book.Edition, error) {
	return cached(deps.Cache, cache.APITable, searchURL, func() ([]book.Edition, error) {
		if err := deps.Gate.Wait(ctx); err != nil {
			return nil, err
		}
		slog.Info("Querying search API", "url", searchURL)
		resp, err := deps.Client.Get(ctx, searchURL)
		if err != nil {
			return nil, err
		}
		editions, err := decode(resp.Body)
		if err != nil {
			return nil, errors.NewParseError("search API response", err)
		}
		return editions, nil
	}, cache.SelectNegativeCacheTTL(func(e []book.Edition) bool { return len(e) == 0 }))
}

func latest(title string, editions []book.Edition) (book.Edition, error) {
	edition, ok := selector.SelectLatest(editions)
	if !ok {
		return book.Edition{}, fmt.Errorf("%w: API returned no books", ErrNotFound)
	}
	slog.Info("Selected latest edition", "title", title, "versions", len(editions), "pubdate", edition.PubDate)
	return edition, nil
}
