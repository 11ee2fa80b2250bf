package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/extract"
	"github.com/lepinkainen/coverfetch/internal/fetch"
)

const defaultBrowserTimeout = 60 * time.Second

var (
	chromedpExecAllocator = chromedp.NewExecAllocator
	chromedpContext       = chromedp.NewContext
	chromedpRunner        = chromedp.Run
)

// renderPage loads a URL in a browser and returns the rendered document.
var renderPage = renderWithChrome

// HeadlessSearch renders the search page in Chrome, for when the plain HTTP
// results are served through script. Detail pages still go through the HTTP
// client.
type HeadlessSearch struct {
	deps    Deps
	scanner candidateScanner
}

// NewHeadlessSearch creates the browser-rendered search strategy.
func NewHeadlessSearch(deps Deps) *HeadlessSearch {
	deps = deps.withDefaults()
	if deps.BrowserTimeout <= 0 {
		deps.BrowserTimeout = defaultBrowserTimeout
	}
	return &HeadlessSearch{deps: deps, scanner: candidateScanner{deps: deps}}
}

func (s *HeadlessSearch) Name() string { return "headless" }

func (s *HeadlessSearch) Search(ctx context.Context, title string) (book.Edition, error) {
	searchURL := SearchURL(s.deps.SearchBaseURL, title)
	if err := s.deps.Gate.Wait(ctx); err != nil {
		return book.Edition{}, err
	}

	slog.Info("Rendering search page", "url", searchURL, "headless", s.deps.Headless)
	page, err := renderPage(ctx, searchURL, s.deps)
	if err != nil {
		return book.Edition{}, err
	}

	candidates, err := extract.ExtractCandidates(page)
	if err != nil {
		return book.Edition{}, err
	}
	slog.Info("Found candidates", "title", title, "count", len(candidates))
	return s.scanner.scan(ctx, title, candidates)
}

func renderWithChrome(parentCtx context.Context, pageURL string, deps Deps) (string, error) {
	ctx, cancel := context.WithTimeout(parentCtx, deps.BrowserTimeout)
	defer cancel()

	allocCtx, cancelAllocator := chromedpExecAllocator(ctx, buildExecAllocatorOptions(deps)...)
	defer cancelAllocator()

	browserCtx, cancelBrowser := chromedpContext(allocCtx)
	defer cancelBrowser()

	headers := network.Headers{}
	for key, values := range fetch.DefaultHeaders() {
		if key == "User-Agent" || len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedpRunner(browserCtx, tasks...); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", pageURL, err)
	}
	return html, nil
}

func buildExecAllocatorOptions(deps Deps) []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.UserAgent(fetch.ChromeUA),
		chromedp.Flag("headless", deps.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	}
}
