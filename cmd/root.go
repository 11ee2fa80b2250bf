package cmd

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/coverfetch/cmd/check"
	"github.com/lepinkainen/coverfetch/cmd/fetch"
	"github.com/lepinkainen/coverfetch/internal/cache"
	"github.com/lepinkainen/coverfetch/internal/config"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

// CLI represents the complete command structure for the coverfetch application
type CLI struct {
	// Global flags
	Verbose      bool `short:"v" help:"Enable debug logging"`
	UpdateCovers bool `help:"Re-download cover images even if they already exist"`

	// Datasette flags
	Datasette    bool   `help:"Export saved covers to Datasette or a local SQLite file"`
	DatasetteDB  string `help:"Path to SQLite database file (defaults to datasette.dbfile in config)"`
	DatasetteURL string `help:"Remote Datasette instance (overrides --datasette-db)"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file (defaults to cache.dbfile in config)"`
	CacheTTL    string `help:"Cache time-to-live duration, e.g. 720h (defaults to cache.ttl in config)"`

	Fetch fetch.Cmd `cmd:"" help:"Fetch the newest cover for every book in a list"`
	Check check.Cmd `cmd:"" help:"Inspect saved covers or probe cover URLs"`
	Cache CacheCmd  `cmd:"" help:"Manage the page cache"`
}

// CacheCmd groups the cache subcommands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Delete cached entries for a source"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(slog.LevelInfo)
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("coverfetch"),
		kong.Description("Fetch the newest Douban book covers for a list of titles."),
		kong.UsageOnError(),
	)

	updateGlobalConfig(&cli)

	err := ctx.Run()
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	config.SetDefaults()

	viper.AutomaticEnv()
	if err := viper.BindEnv("datasette.token", "DATASETTE_TOKEN"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("Config file not found, writing default config file")
			if err := viper.SafeWriteConfig(); err != nil {
				slog.Error("Error writing config file", "error", err)
			}
		} else {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	if cli.Verbose {
		initLogging(slog.LevelDebug)
	}

	config.SetUpdateCovers(cli.UpdateCovers || config.UpdateCovers)

	if cli.Datasette {
		viper.Set("datasette.enabled", true)
	}
	// Flags left empty keep the values from config.yaml
	setIfGiven("datasette.dbfile", cli.DatasetteDB)
	setIfGiven("datasette.url", cli.DatasetteURL)
	setIfGiven("cache.dbfile", cli.CacheDBFile)
	setIfGiven("cache.ttl", cli.CacheTTL)
}

func setIfGiven(key, value string) {
	if value != "" {
		viper.Set(key, value)
	}
}

func initLogging(level slog.Level) {
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}
