package datastore

import (
	"time"

	"github.com/lepinkainen/coverfetch/internal/book"
)

// CoversTable is the table successful lookups are exported to.
const CoversTable = "covers"

// CoversSchema defines the covers table. One row per query title and category.
const CoversSchema = `
CREATE TABLE IF NOT EXISTS covers (
	query TEXT NOT NULL,
	category TEXT NOT NULL,
	title TEXT NOT NULL,
	author TEXT,
	publisher TEXT,
	pubdate TEXT,
	small_cover TEXT,
	medium_cover TEXT,
	large_cover TEXT,
	image_path TEXT,
	fetched_at TEXT NOT NULL,
	PRIMARY KEY (query, category)
);
`

// Saved is a record together with where it was written.
type Saved struct {
	Query     string
	Category  string
	Record    book.CoverRecord
	ImagePath string
}

// CoverRow flattens a saved record into a table row.
func CoverRow(s Saved, fetchedAt time.Time) map[string]any {
	return map[string]any{
		"query":        s.Query,
		"category":     s.Category,
		"title":        s.Record.Title,
		"author":       s.Record.Author,
		"publisher":    s.Record.Publisher,
		"pubdate":      s.Record.PubDate,
		"small_cover":  s.Record.SmallCover,
		"medium_cover": s.Record.MediumCover,
		"large_cover":  s.Record.LargeCover,
		"image_path":   s.ImagePath,
		"fetched_at":   fetchedAt.UTC().Format(time.RFC3339),
	}
}

// ExportCovers creates the covers table if needed and upserts every record.
func ExportCovers(store Store, database string, saved []Saved, fetchedAt time.Time) error {
	if err := store.CreateTable(CoversSchema); err != nil {
		return err
	}
	rows := make([]map[string]any, 0, len(saved))
	for _, s := range saved {
		rows = append(rows, CoverRow(s, fetchedAt))
	}
	return store.BatchInsert(database, CoversTable, rows)
}
