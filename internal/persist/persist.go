// Package persist downloads cover images and writes them, along with the
// record that produced them, into per-category directories.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/lepinkainen/coverfetch/internal/fetch"
	"github.com/lepinkainen/coverfetch/internal/fileutil"
	"github.com/lepinkainen/coverfetch/internal/ratelimit"
)

// Writer saves records under an output directory.
type Writer struct {
	outputDir    string
	client       *fetch.Client
	freshClient  func() *fetch.Client
	clock        ratelimit.Clock
	jitter       func() time.Duration
	updateCovers bool
}

// Option is a functional option for configuring the Writer.
type Option func(*Writer)

// WithClient sets the shared client used for downloads.
func WithClient(c *fetch.Client) Option {
	return func(w *Writer) {
		if c != nil {
			w.client = c
		}
	}
}

// WithFreshClient sets the factory for the last-resort download client.
func WithFreshClient(f func() *fetch.Client) Option {
	return func(w *Writer) {
		if f != nil {
			w.freshClient = f
		}
	}
}

// WithClock sets the clock used for fallback pauses.
func WithClock(c ratelimit.Clock) Option {
	return func(w *Writer) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithJitter sets the source of fallback pause lengths.
func WithJitter(f func() time.Duration) Option {
	return func(w *Writer) {
		if f != nil {
			w.jitter = f
		}
	}
}

// WithUpdateCovers re-downloads images that already exist.
func WithUpdateCovers(update bool) Option {
	return func(w *Writer) {
		w.updateCovers = update
	}
}

// NewWriter creates a Writer rooted at outputDir.
func NewWriter(outputDir string, opts ...Option) *Writer {
	w := &Writer{
		outputDir:   outputDir,
		client:      fetch.NewClient(),
		freshClient: func() *fetch.Client { return fetch.NewClient() },
		clock:       ratelimit.SystemClock{},
		jitter:      randomJitter,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Result describes what Save wrote.
type Result struct {
	Dir       string
	ImagePath string
	InfoPath  string
	// Size is the variant that was downloaded, empty when none was
	Size string
	// Existing is set when a previously saved image was kept
	Existing bool
}

// Downloaded reports whether an image is present on disk for the record.
func (r Result) Downloaded() bool {
	return r.Size != "" || r.Existing
}

// Save downloads the largest reachable cover variant and writes the record as
// JSON next to it. The metadata file is written even when no image could be
// downloaded; only file system failures are returned as errors.
func (w *Writer) Save(ctx context.Context, record book.CoverRecord, title, category string) (Result, error) {
	dir := w.outputDir
	if category != "" {
		dir = filepath.Join(dir, category)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := Result{
		Dir:       dir,
		ImagePath: fileutil.CoverFilePath(dir, title),
		InfoPath:  fileutil.InfoFilePath(dir, title),
	}
	log := slog.With("title", title, "category", category)

	if fileutil.FileExists(result.ImagePath) && !w.updateCovers {
		log.Info("Cover already exists, skipping download", "path", result.ImagePath)
		result.Existing = true
	} else {
		for _, cover := range record.CoverURLs() {
			data, err := w.download(ctx, cover.URL)
			if err != nil {
				log.Warn("Cover download failed, trying next size", "size", cover.Size, "url", cover.URL, "error", err)
				continue
			}
			if _, err := fileutil.WriteFileWithOverwrite(result.ImagePath, data, 0644, true); err != nil {
				return result, fmt.Errorf("failed to write cover: %w", err)
			}
			log.Info("Saved cover", "size", cover.Size, "path", result.ImagePath, "bytes", len(data))
			result.Size = cover.Size
			break
		}
		if result.Size == "" {
			log.Warn("No cover size could be downloaded")
		}
	}

	if _, err := fileutil.WriteJSONFile(record, result.InfoPath, true); err != nil {
		return result, err
	}
	log.Info("Saved book info", "path", result.InfoPath)

	return result, nil
}
