package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/datastore"
	"github.com/lepinkainen/coverfetch/internal/errors"
	"github.com/lepinkainen/coverfetch/internal/persist"
	"github.com/lepinkainen/coverfetch/internal/ratelimit"
	"github.com/lepinkainen/coverfetch/internal/tui"
)

// Looker finds the cover record for a title.
type Looker interface {
	Lookup(ctx context.Context, title string) (book.CoverRecord, error)
}

// Saver writes a record and its cover to disk.
type Saver interface {
	Save(ctx context.Context, record book.CoverRecord, title, category string) (persist.Result, error)
}

// Summary is the outcome of a batch.
type Summary struct {
	Succeeded int
	Failures  []tui.Failure
	Saved     []datastore.Saved
	// Stopped is set when the operator ended the batch early
	Stopped bool
}

// Batch processes book list entries one after another.
type Batch struct {
	looker Looker
	saver  Saver
	clock  ratelimit.Clock
	delay  time.Duration
}

// NewBatch creates a Batch that pauses for delay between titles.
func NewBatch(looker Looker, saver Saver, clock ratelimit.Clock, delay time.Duration) *Batch {
	if clock == nil {
		clock = ratelimit.SystemClock{}
	}
	return &Batch{looker: looker, saver: saver, clock: clock, delay: delay}
}

// Run looks up and saves every entry. A failed title is recorded and the
// batch moves on; a StopProcessingError ends it.
func (b *Batch) Run(ctx context.Context, entries []book.Entry) Summary {
	var summary Summary

	for i, entry := range entries {
		log := slog.With("title", entry.Title, "category", entry.Category)
		log.Info("Processing book", "position", i+1, "total", len(entries))

		record, err := b.looker.Lookup(ctx, entry.Title)
		if err != nil {
			if errors.IsStopProcessingError(err) {
				log.Warn("Processing stopped by user")
				summary.Stopped = true
				summary.Failures = append(summary.Failures, tui.Failure{Title: entry.Title, Reason: err.Error()})
				return summary
			}
			log.Warn("No cover found", "error", err)
			summary.Failures = append(summary.Failures, tui.Failure{Title: entry.Title, Reason: err.Error()})
		} else {
			result, err := b.saver.Save(ctx, record, entry.Title, entry.Category)
			if err != nil {
				log.Error("Failed to save cover", "error", err)
				summary.Failures = append(summary.Failures, tui.Failure{Title: entry.Title, Reason: err.Error()})
			} else {
				log.Info("Processed book", "dir", result.Dir, "cover", result.Size, "large", record.LargeCover)
				summary.Succeeded++
				saved := datastore.Saved{Query: entry.Title, Category: entry.Category, Record: record}
				if result.Downloaded() {
					saved.ImagePath = result.ImagePath
				}
				summary.Saved = append(summary.Saved, saved)
			}
		}

		if i < len(entries)-1 && b.delay > 0 {
			if err := b.clock.Sleep(ctx, b.delay); err != nil {
				log.Warn("Batch cancelled", "error", err)
				return summary
			}
		}
	}

	return summary
}
