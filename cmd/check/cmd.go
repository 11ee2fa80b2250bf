// Package check implements the check command, which inspects saved covers
// and probes cover URLs.
package check

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/lepinkainen/coverfetch/internal/cover"
	"github.com/lepinkainen/coverfetch/internal/fetch"
	"github.com/lepinkainen/coverfetch/internal/ratelimit"
)

// Cmd represents the check command
type Cmd struct {
	Dir  string   `arg:"" optional:"" help:"Directory of saved covers to inspect"`
	URLs []string `name:"url" help:"Cover URLs to probe; every size variant is checked"`
}

// stdout receives the report.
var stdout io.Writer = os.Stdout

// newVerifier is swapped in tests.
var newVerifier = func() *cover.Verifier {
	return cover.NewVerifier(fetch.NewClient(), ratelimit.New("images", 2))
}

// ImageInfo describes one saved cover.
type ImageInfo struct {
	Path   string
	Width  int
	Height int
	Err    error
}

func (c *Cmd) Run() error {
	if c.Dir == "" && len(c.URLs) == 0 {
		return fmt.Errorf("nothing to check: pass a directory or --url")
	}

	if c.Dir != "" {
		infos, err := InspectDir(c.Dir)
		if err != nil {
			return err
		}
		var broken int
		for _, info := range infos {
			if info.Err != nil {
				broken++
				_, _ = fmt.Fprintf(stdout, "BROKEN %s: %v\n", info.Path, info.Err)
				continue
			}
			_, _ = fmt.Fprintf(stdout, "OK     %s (%dx%d)\n", info.Path, info.Width, info.Height)
		}
		slog.Info("Checked covers", "dir", c.Dir, "images", len(infos), "broken", broken)
	}

	if len(c.URLs) > 0 {
		verifier := newVerifier()
		ctx := context.Background()
		for _, url := range c.URLs {
			sizes := cover.DeriveSizes(url)
			report := verifier.VerifyAll(ctx, sizes)
			_, _ = fmt.Fprintf(stdout, "%s\n  small  %s\n  medium %s\n  large  %s\n",
				url, status(report.Small), status(report.Medium), status(report.Large))
		}
	}
	return nil
}

// InspectDir decodes every .jpg under dir and reports its dimensions.
func InspectDir(dir string) ([]ImageInfo, error) {
	var infos []ImageInfo
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".jpg") {
			return nil
		}
		infos = append(infos, inspect(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return infos, nil
}

func inspect(path string) ImageInfo {
	img, err := imaging.Open(path)
	if err != nil {
		return ImageInfo{Path: path, Err: err}
	}
	bounds := img.Bounds()
	return ImageInfo{Path: path, Width: bounds.Dx(), Height: bounds.Dy()}
}

func status(ok bool) string {
	if ok {
		return "reachable"
	}
	return "unreachable"
}
