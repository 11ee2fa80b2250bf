package cache

import "fmt"

// Cache table names. All tables share the same layout with cache_key as the
// primary key.
const (
	// SearchTable holds candidate lists keyed by query URL
	SearchTable = "douban_search_cache"
	// SubjectTable holds raw subject detail pages keyed by subject id
	SubjectTable = "douban_subject_cache"
	// APITable holds JSON responses from the structured search APIs
	APITable = "douban_api_cache"
)

// Sources maps the names accepted by "cache invalidate" to table names.
var Sources = map[string]string{
	"search":  SearchTable,
	"subject": SubjectTable,
	"api":     APITable,
}

// tableSchema returns the DDL for one cache table. ttl_seconds overrides the
// configured TTL for the entry when it is positive.
func tableSchema(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	ttl_seconds INTEGER NOT NULL DEFAULT 0,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_cached_at ON %[1]s(cached_at);
`, table)
}

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	tableSchema(SearchTable),
	tableSchema(SubjectTable),
	tableSchema(APITable),
}

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	SearchTable:  true,
	SubjectTable: true,
	APITable:     true,
}
