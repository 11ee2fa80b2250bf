package retrieve

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/cache"
	"github.com/lepinkainen/coverfetch/internal/fetch"
	"github.com/lepinkainen/coverfetch/internal/ratelimit"
	"github.com/lepinkainen/coverfetch/internal/selector"
)

// ErrNotFound is wrapped by every failed lookup.
var ErrNotFound = stdErrors.New("no matching edition found")

// Strategy is one way of finding an edition for a title.
type Strategy interface {
	Name() string
	// Search returns the chosen edition, an error wrapping ErrNotFound when
	// nothing qualified, or the underlying failure.
	Search(ctx context.Context, title string) (book.Edition, error)
}

// Picker lets an operator choose which candidate is tried first. It returns
// an error wrapping errors.ErrSkipped to give up on the title, or a
// StopProcessingError to end the batch.
type Picker interface {
	Pick(query string, candidates []book.Candidate) (int, error)
}

// Deps are the collaborators shared by all strategies.
type Deps struct {
	Client *fetch.Client
	// Gate paces every request to Douban itself
	Gate  *ratelimit.Controller
	Rules *selector.Rules
	// SearchBaseURL and BookBaseURL default to the live site when empty
	SearchBaseURL string
	BookBaseURL   string
	// APIBaseURL and FrodoBaseURL are only used by the API strategies
	APIBaseURL   string
	FrodoBaseURL string
	// Picker enables interactive candidate choice when set
	Picker Picker
	// Cache stores fetched pages in the SQLite cache
	Cache bool
	// Headless runs the browser strategy without a visible window
	Headless       bool
	BrowserTimeout time.Duration
}

const (
	defaultSearchBaseURL = "https://www.douban.com"
	defaultBookBaseURL   = "https://book.douban.com"
	defaultAPIBaseURL    = "https://api.douban.com"
	defaultFrodoBaseURL  = "https://frodo.douban.com"
)

func (d Deps) withDefaults() Deps {
	if d.Client == nil {
		d.Client = fetch.NewClient()
	}
	if d.Gate == nil {
		d.Gate = ratelimit.NewController("douban")
	}
	if d.Rules == nil {
		d.Rules = selector.DefaultRules()
	}
	d.SearchBaseURL = strings.TrimRight(orDefault(d.SearchBaseURL, defaultSearchBaseURL), "/")
	d.BookBaseURL = strings.TrimRight(orDefault(d.BookBaseURL, defaultBookBaseURL), "/")
	d.APIBaseURL = strings.TrimRight(orDefault(d.APIBaseURL, defaultAPIBaseURL), "/")
	d.FrodoBaseURL = strings.TrimRight(orDefault(d.FrodoBaseURL, defaultFrodoBaseURL), "/")
	return d
}

// StrategyNames lists the names accepted by BuildStrategies.
var StrategyNames = []string{"web", "api", "frodo", "demo", "headless"}

// BuildStrategies creates the named strategies in order.
func BuildStrategies(names []string, deps Deps) ([]Strategy, error) {
	deps = deps.withDefaults()
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "web":
			strategies = append(strategies, NewWebPageSearch(deps))
		case "api":
			strategies = append(strategies, NewStructuredAPISearch(deps))
		case "frodo":
			strategies = append(strategies, NewAlternateAPISearch(deps))
		case "demo":
			strategies = append(strategies, DemoFixture{})
		case "headless":
			strategies = append(strategies, NewHeadlessSearch(deps))
		default:
			return nil, fmt.Errorf("unknown search strategy %q; valid strategies are: %s", name, strings.Join(StrategyNames, ", "))
		}
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("no search strategies enabled")
	}
	return strategies, nil
}

// cached runs fetch through the page cache when enabled.
func cached[T any](enabled bool, table, key string, fetch cache.FetchFunc[T], ttl func(T) time.Duration) (T, error) {
	if !enabled {
		return fetch()
	}
	value, _, err := cache.GetOrFetchWithTTL(table, key, fetch, ttl)
	return value, err
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
