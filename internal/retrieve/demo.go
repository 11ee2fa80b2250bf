package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/coverfetch/internal/book"
)

const demoCoverURL = "https://img9.doubanio.com/view/subject/s/public/s33834064.jpg"

// DemoFixture answers queries for 活着 with the 2021 Beijing October Literature
// and Art edition without touching the network.
type DemoFixture struct{}

func (DemoFixture) Name() string { return "demo" }

func (DemoFixture) Search(_ context.Context, title string) (book.Edition, error) {
	if !strings.Contains(title, "活着") {
		return book.Edition{}, fmt.Errorf("%w: no demo data for %q", ErrNotFound, title)
	}
	slog.Info("Using demo data", "title", title)
	return book.Edition{
		Title:     "活着（定本·2021新版 精装）",
		Authors:   []string{"余华"},
		Publisher: "北京十月文艺出版社",
		PubDate:   "2021-10-1",
		Cover: book.CoverImage{Sizes: &book.CoverSizes{
			Small:  demoCoverURL,
			Medium: strings.Replace(demoCoverURL, "/s/", "/m/", 1),
			Large:  strings.Replace(demoCoverURL, "/s/", "/l/", 1),
		}},
	}, nil
}
