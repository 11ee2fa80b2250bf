// Package retrieve finds the newest qualifying edition of a book on Douban
// and turns it into a cover record. Strategies are tried in order; the site
// pushing back with 429, 418 or 503 is answered with exponential backoff.
package retrieve

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/cover"
	"github.com/lepinkainen/coverfetch/internal/errors"
	"github.com/lepinkainen/coverfetch/internal/ratelimit"
)

const (
	defaultMaxAttempts = 3
	escalationFactor   = 2
)

// Orchestrator runs the configured strategies for one title at a time.
type Orchestrator struct {
	strategies  []Strategy
	gate        *ratelimit.Controller
	clock       ratelimit.Clock
	maxAttempts int
	maxDelay    time.Duration
	verifier    *cover.Verifier
}

// Option is a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for backoff sleeps.
func WithClock(clock ratelimit.Clock) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMaxAttempts sets how many retryable failures a title may see.
func WithMaxAttempts(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithMaxDelay caps a single backoff sleep.
func WithMaxDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.maxDelay = d
		}
	}
}

// WithVerifier enables HEAD checks of the resolved cover variants.
func WithVerifier(v *cover.Verifier) Option {
	return func(o *Orchestrator) {
		o.verifier = v
	}
}

// NewOrchestrator creates an Orchestrator. The gate must be the same
// controller the strategies wait on, since backoff widens its interval.
func NewOrchestrator(strategies []Strategy, gate *ratelimit.Controller, opts ...Option) *Orchestrator {
	if gate == nil {
		gate = ratelimit.NewController("douban")
	}
	o := &Orchestrator{
		strategies:  strategies,
		gate:        gate,
		clock:       ratelimit.SystemClock{},
		maxAttempts: defaultMaxAttempts,
		maxDelay:    gate.MaxInterval(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Lookup returns the cover record for the newest qualifying edition of title.
// Failures wrap ErrNotFound, except a StopProcessingError which is returned
// as is so the batch can end.
func (o *Orchestrator) Lookup(ctx context.Context, title string) (book.CoverRecord, error) {
	var reasons []string
	retries := 0

	for _, strategy := range o.strategies {
		log := slog.With("title", title, "strategy", strategy.Name())

		for {
			edition, err := strategy.Search(ctx, title)
			if err == nil {
				log.Info("Found edition", "edition", edition.Title, "pubdate", edition.PubDate)
				return o.resolve(ctx, title, edition), nil
			}

			switch {
			case errors.IsStopProcessingError(err):
				return book.CoverRecord{}, err
			case errors.IsSkipped(err):
				log.Info("Title skipped")
				return book.CoverRecord{}, notFound(err)
			case ctx.Err() != nil:
				return book.CoverRecord{}, fmt.Errorf("%w: %w", ErrNotFound, ctx.Err())
			case errors.IsRetryable(err):
				retries++
				wait := o.backoff(retries)
				log.Warn("Rate limited, backing off",
					"status", errors.StatusCode(err),
					"attempt", retries,
					"wait", wait,
				)
				if sleepErr := o.clock.Sleep(ctx, wait); sleepErr != nil {
					return book.CoverRecord{}, notFound(sleepErr)
				}
				o.gate.Escalate(escalationFactor)
				if retries >= o.maxAttempts {
					log.Error("Retries exhausted", "attempts", retries)
					return book.CoverRecord{}, fmt.Errorf("%w: gave up after %d rate-limited attempts: %w", ErrNotFound, retries, err)
				}
				continue
			default:
				log.Warn("Strategy failed", "kind", failureKind(err), "error", err)
				reasons = append(reasons, fmt.Sprintf("%s: %v", strategy.Name(), err))
			}
			break
		}
	}

	if len(reasons) == 0 {
		return book.CoverRecord{}, fmt.Errorf("%w: no strategies enabled", ErrNotFound)
	}
	return book.CoverRecord{}, fmt.Errorf("%w for %q (%s)", ErrNotFound, title, strings.Join(reasons, "; "))
}

// resolve builds the record for an accepted edition. An edition without a
// cover still yields a record so its metadata is kept.
func (o *Orchestrator) resolve(ctx context.Context, title string, edition book.Edition) book.CoverRecord {
	sizes := cover.Resolve(edition)
	if sizes.IsZero() {
		slog.Warn("Edition has no cover image", "title", title, "edition", edition.Title)
	} else if o.verifier != nil {
		o.verifier.VerifyAll(ctx, sizes)
	}
	return book.NewCoverRecord(edition, sizes)
}

// backoff returns 2^retry seconds, capped at maxDelay.
func (o *Orchestrator) backoff(retry int) time.Duration {
	wait := time.Duration(1<<retry) * time.Second
	if o.maxDelay > 0 && wait > o.maxDelay {
		wait = o.maxDelay
	}
	return wait
}

func notFound(err error) error {
	if stdErrors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNotFound, err)
}

// failureKind names the class of a non-retryable strategy failure for logs.
func failureKind(err error) string {
	switch {
	case errors.IsNetworkError(err):
		return "network"
	case errors.IsHTTPStatusError(err):
		return "status"
	case errors.IsParseError(err):
		return "parse"
	case errors.IsValidationError(err):
		return "validation"
	case stdErrors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}
