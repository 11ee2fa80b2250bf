package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lepinkainen/coverfetch/internal/book"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "covers.db"))
	require.NoError(t, store.Connect())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_CreateTableAndInsert(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateTable(`CREATE TABLE IF NOT EXISTS test_table (
		id INTEGER PRIMARY KEY,
		name TEXT,
		value INTEGER
	)`))

	records := []map[string]any{
		{"id": 1, "name": "foo", "value": 42},
		{"id": 2, "name": "bar", "value": 99},
	}
	require.NoError(t, store.BatchInsert("covers", "test_table", records))

	// Upsert replaces by primary key
	require.NoError(t, store.BatchInsert("covers", "test_table", []map[string]any{
		{"id": 2, "name": "baz", "value": 7},
	}))

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM test_table").Scan(&count))
	assert.Equal(t, 2, count)

	var name string
	require.NoError(t, store.db.QueryRow("SELECT name FROM test_table WHERE id = 2").Scan(&name))
	assert.Equal(t, "baz", name)
}

func TestSQLiteStore_BatchInsertEmpty(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.BatchInsert("covers", "missing_table", nil))
}

func TestExportCovers(t *testing.T) {
	store := newTestStore(t)
	fetchedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	saved := []Saved{
		{
			Query:    "活着",
			Category: "小说",
			Record: book.CoverRecord{
				Title:       "活着（定本·2021新版 精装）",
				Author:      "余华",
				Publisher:   "北京十月文艺出版社",
				PubDate:     "2021-10-1",
				SmallCover:  "s.jpg",
				MediumCover: "m.jpg",
				LargeCover:  "l.jpg",
			},
			ImagePath: "covers/小说/活着.jpg",
		},
	}

	require.NoError(t, ExportCovers(store, "covers", saved, fetchedAt))
	require.NoError(t, ExportCovers(store, "covers", saved, fetchedAt.Add(time.Hour)))

	var (
		count            int
		title, fetched   string
		imagePath, large string
	)
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM covers").Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, store.db.QueryRow(
		"SELECT title, large_cover, image_path, fetched_at FROM covers WHERE query = ? AND category = ?",
		"活着", "小说",
	).Scan(&title, &large, &imagePath, &fetched))
	assert.Equal(t, "活着（定本·2021新版 精装）", title)
	assert.Equal(t, "l.jpg", large)
	assert.Equal(t, "covers/小说/活着.jpg", imagePath)
	assert.Equal(t, "2024-05-01T13:00:00Z", fetched)
}
