package cache

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// InvalidateCacheCmd represents the cache invalidate subcommand
type InvalidateCacheCmd struct {
	Source  string `arg:"" help:"Cache source to invalidate: search, subject, api, all" required:""`
	Expired bool   `help:"Only delete entries older than the configured cache TTL"`
}

func (i *InvalidateCacheCmd) Run() error {
	slog.Info("Invalidating cache", "source", i.Source, "database", viper.GetString("cache.dbfile"))

	tables, err := tablesFor(i.Source)
	if err != nil {
		return err
	}

	cacheInstance, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	var total int64
	for _, table := range tables {
		var rowsDeleted int64
		if i.Expired {
			rowsDeleted, err = cacheInstance.ClearExpired(table, configuredTTL())
		} else {
			rowsDeleted, err = cacheInstance.InvalidateSource(table)
		}
		if err != nil {
			return fmt.Errorf("failed to invalidate cache: %w", err)
		}
		total += rowsDeleted
	}

	slog.Info("Cache invalidated", "source", i.Source, "rows_deleted", total)
	return nil
}

func tablesFor(source string) ([]string, error) {
	if source == "all" {
		tables := make([]string, 0, len(Sources))
		for _, table := range Sources {
			tables = append(tables, table)
		}
		slices.Sort(tables)
		return tables, nil
	}
	table, ok := Sources[source]
	if !ok {
		names := make([]string, 0, len(Sources))
		for name := range Sources {
			names = append(names, name)
		}
		slices.Sort(names)
		return nil, fmt.Errorf("invalid cache source '%s'; valid sources are: %s, all", source, strings.Join(names, ", "))
	}
	return []string{table}, nil
}
