package fetch

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/coverfetch/internal/datastore"
)

// openStore returns a Datasette client for http(s) targets and a local
// SQLite store for anything else.
func openStore(target, token string) datastore.Store {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return datastore.NewDatasetteClient(target, token)
	}
	return datastore.NewSQLiteStore(target)
}

// exportSaved writes the successful records to the configured record store.
func exportSaved(saved []datastore.Saved, now time.Time) error {
	if !viper.GetBool("datasette.enabled") || len(saved) == 0 {
		return nil
	}

	target := viper.GetString("datasette.url")
	if target == "" {
		target = viper.GetString("datasette.dbfile")
	}
	store := openStore(target, viper.GetString("datasette.token"))
	if err := store.Connect(); err != nil {
		return fmt.Errorf("failed to connect to record store: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := datastore.ExportCovers(store, viper.GetString("datasette.database"), saved, now); err != nil {
		return fmt.Errorf("failed to export covers: %w", err)
	}
	slog.Info("Exported covers", "target", target, "rows", len(saved))
	return nil
}
