package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/cache"
	"github.com/lepinkainen/coverfetch/internal/errors"
	"github.com/lepinkainen/coverfetch/internal/extract"
)

// candidateScanner fetches detail pages for candidates in order and returns
// the first edition that passes the title and year rules.
type candidateScanner struct {
	deps Deps
}

func (s candidateScanner) scan(ctx context.Context, query string, candidates []book.Candidate) (book.Edition, error) {
	if len(candidates) == 0 {
		return book.Edition{}, fmt.Errorf("%w: search returned no candidates", ErrNotFound)
	}

	ordered, err := s.order(query, candidates)
	if err != nil {
		return book.Edition{}, err
	}

	for i, candidate := range ordered {
		log := slog.With("query", query, "candidate", candidate.DisplayTitle, "subject", candidate.SubjectID, "index", i+1)

		page, err := s.detail(ctx, candidate.SubjectID)
		if err != nil {
			// The site pushing back ends the scan so the caller can back off
			if errors.IsRetryable(err) || ctx.Err() != nil {
				return book.Edition{}, err
			}
			log.Warn("Failed to fetch detail page", "error", err)
			continue
		}

		edition, err := extract.ExtractEdition(page, extract.DetailQuery{
			ExpectedTitle:  query,
			CandidateTitle: candidate.DisplayTitle,
			SubjectID:      candidate.SubjectID,
		}, s.deps.Rules)
		if err != nil {
			log.Info("Skipping candidate", "reason", err)
			continue
		}

		log.Info("Accepted edition", "title", edition.Title, "pubdate", edition.PubDate)
		return edition, nil
	}

	return book.Edition{}, fmt.Errorf("%w: none of %d candidates qualified", ErrNotFound, len(ordered))
}

// order moves the operator's choice to the front when a picker is set.
func (s candidateScanner) order(query string, candidates []book.Candidate) ([]book.Candidate, error) {
	if s.deps.Picker == nil {
		return candidates, nil
	}
	idx, err := s.deps.Picker.Pick(query, candidates)
	if err != nil {
		if errors.IsSkipped(err) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	if idx < 0 || idx >= len(candidates) {
		return candidates, nil
	}
	ordered := make([]book.Candidate, 0, len(candidates))
	ordered = append(ordered, candidates[idx])
	ordered = append(ordered, candidates[:idx]...)
	ordered = append(ordered, candidates[idx+1:]...)
	return ordered, nil
}

func (s candidateScanner) detail(ctx context.Context, subjectID string) (string, error) {
	url := fmt.Sprintf("%s/subject/%s/", s.deps.BookBaseURL, subjectID)
	fetch := func() (string, error) {
		if err := s.deps.Gate.Wait(ctx); err != nil {
			return "", err
		}
		slog.Debug("Fetching detail page", "url", url)
		resp, err := s.deps.Client.Get(ctx, url)
		if err != nil {
			return "", err
		}
		return string(resp.Body), nil
	}
	if !s.deps.Cache {
		return fetch()
	}
	// Block pages come back as 200 without a title heading; never store them.
	body, _, err := cache.GetOrFetchWithPolicy(cache.SubjectTable, subjectID, fetch, func(body string) bool {
		return strings.Contains(body, "<h1")
	})
	return body, err
}
