// Package fetch implements the fetch command: it reads a book list, finds the
// newest edition of every title and saves its cover.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lepinkainen/coverfetch/internal/config"
	"github.com/lepinkainen/coverfetch/internal/cover"
	httpfetch "github.com/lepinkainen/coverfetch/internal/fetch"
	"github.com/lepinkainen/coverfetch/internal/persist"
	"github.com/lepinkainen/coverfetch/internal/ratelimit"
	"github.com/lepinkainen/coverfetch/internal/retrieve"
	"github.com/lepinkainen/coverfetch/internal/selector"
	"github.com/lepinkainen/coverfetch/internal/tui"
)

// imageChecksPerSecond paces HEAD checks against the image host.
const imageChecksPerSecond = 2

// Cmd represents the fetch command
type Cmd struct {
	Input       string   `short:"f" help:"Path to the book list (JSON or YAML)" default:"bookNames.json"`
	Output      string   `short:"o" help:"Directory covers are saved under (defaults to output.dir in config)"`
	Interactive bool     `short:"i" help:"Choose which search result to try first"`
	Strategies  []string `help:"Search strategies to try in order (web, api, frodo, demo, headless)"`
	NoCache     bool     `help:"Do not read or write the page cache"`
	Verify      bool     `help:"Check that every cover size is reachable before saving"`
	ShowBrowser bool     `help:"Show the browser window for the headless strategy"`
}

// stdout receives the final summary.
var stdout io.Writer = os.Stdout

func (c *Cmd) Run() error {
	config.SetOutputDir(c.Output)
	config.SetStrategies(c.Strategies)

	entries, err := LoadEntries(c.Input)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no books found in %s", c.Input)
	}
	slog.Info("Loaded book list", "file", c.Input, "books", len(entries))

	client := httpfetch.NewClient()
	gate := ratelimit.NewController("douban",
		ratelimit.WithBaseInterval(config.BaseInterval),
		ratelimit.WithMaxInterval(config.MaxInterval),
	)

	deps := retrieve.Deps{
		Client:        client,
		Gate:          gate,
		Rules:         selector.NewRules(config.YearCutoff, config.EditionMarkers),
		SearchBaseURL: config.SearchBaseURL,
		BookBaseURL:   config.BookBaseURL,
		Cache:         !c.NoCache,
		Headless:      !c.ShowBrowser,
	}
	if c.Interactive {
		deps.Picker = tui.CandidatePicker{}
	}

	strategies, err := retrieve.BuildStrategies(config.Strategies, deps)
	if err != nil {
		return err
	}

	var opts []retrieve.Option
	if c.Verify {
		opts = append(opts, retrieve.WithVerifier(cover.NewVerifier(client, ratelimit.New("images", imageChecksPerSecond))))
	}
	orchestrator := retrieve.NewOrchestrator(strategies, gate, opts...)
	writer := persist.NewWriter(config.OutputDir,
		persist.WithClient(client),
		persist.WithUpdateCovers(config.UpdateCovers),
	)

	ctx := context.Background()
	summary := NewBatch(orchestrator, writer, nil, config.TitleDelay).Run(ctx, entries)

	slog.Info("Batch finished",
		"succeeded", summary.Succeeded,
		"failed", len(summary.Failures),
		"requests", gate.RequestCount(),
		"throttled", gate.TotalWait().Round(time.Second),
	)
	_, _ = fmt.Fprintln(stdout, tui.RenderSummary(summary.Succeeded, summary.Failures))

	if err := exportSaved(summary.Saved, time.Now()); err != nil {
		return err
	}

	if summary.Stopped {
		slog.Info("Stopped before the end of the list",
			"unprocessed", len(entries)-summary.Succeeded-len(summary.Failures))
	}
	return nil
}
