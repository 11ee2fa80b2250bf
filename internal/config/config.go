package config

import (
	"time"

	"github.com/spf13/viper"
)

// Defaults used when config.yaml does not override them.
const (
	DefaultSearchBaseURL = "https://www.douban.com"
	DefaultBookBaseURL   = "https://book.douban.com"
	DefaultOutputDir     = "covers"
	DefaultBaseInterval  = 3 * time.Second
	DefaultMaxInterval   = 30 * time.Second
	DefaultTitleDelay    = 2 * time.Second
	DefaultYearCutoff    = 2015
)

// DefaultStrategies is the ordered list of enabled search strategies.
// Only the live web page search is on unless configured otherwise.
var DefaultStrategies = []string{"web"}

// Global configuration variables
var (
	// OutputDir is the root directory covers are saved under, one subdirectory per category
	OutputDir string
	// UpdateCovers forces re-downloading cover images that already exist
	UpdateCovers bool
	// SearchBaseURL is the base of the web search endpoint
	SearchBaseURL string
	// BookBaseURL is the base of the per-subject detail pages
	BookBaseURL string
	// BaseInterval is the starting minimum interval between requests
	BaseInterval time.Duration
	// MaxInterval caps both the adaptive interval and the retry backoff
	MaxInterval time.Duration
	// TitleDelay is the fixed pause between titles in a batch
	TitleDelay time.Duration
	// YearCutoff disqualifies editions published in or before this year
	YearCutoff int
	// EditionMarkers are extra tokens stripped from titles before matching
	EditionMarkers []string
	// Strategies lists enabled search strategies in the order they are tried
	Strategies []string
)

// InitConfig initializes the global configuration
func InitConfig() {
	SetDefaults()

	OutputDir = viper.GetString("output.dir")
	UpdateCovers = viper.GetBool("output.updatecovers")
	SearchBaseURL = viper.GetString("douban.searchurl")
	BookBaseURL = viper.GetString("douban.bookurl")
	BaseInterval = viper.GetDuration("rate.base")
	MaxInterval = viper.GetDuration("rate.max")
	TitleDelay = viper.GetDuration("rate.titledelay")
	YearCutoff = viper.GetInt("filter.yearcutoff")
	EditionMarkers = viper.GetStringSlice("filter.editionmarkers")
	Strategies = viper.GetStringSlice("search.strategies")
}

// SetDefaults registers default values for every key read by InitConfig.
func SetDefaults() {
	viper.SetDefault("output.dir", DefaultOutputDir)
	viper.SetDefault("output.updatecovers", false)
	viper.SetDefault("douban.searchurl", DefaultSearchBaseURL)
	viper.SetDefault("douban.bookurl", DefaultBookBaseURL)
	viper.SetDefault("rate.base", DefaultBaseInterval.String())
	viper.SetDefault("rate.max", DefaultMaxInterval.String())
	viper.SetDefault("rate.titledelay", DefaultTitleDelay.String())
	viper.SetDefault("filter.yearcutoff", DefaultYearCutoff)
	viper.SetDefault("filter.editionmarkers", []string{})
	viper.SetDefault("search.strategies", DefaultStrategies)

	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h")

	viper.SetDefault("datasette.enabled", false)
	viper.SetDefault("datasette.dbfile", "./covers.db")
	viper.SetDefault("datasette.database", "covers")
}

// SetUpdateCovers sets the UpdateCovers flag
func SetUpdateCovers(update bool) {
	UpdateCovers = update
}

// SetOutputDir overrides the output directory when non-empty
func SetOutputDir(dir string) {
	if dir != "" {
		OutputDir = dir
	}
}

// SetStrategies overrides the enabled strategies when the list is non-empty
func SetStrategies(names []string) {
	if len(names) > 0 {
		Strategies = names
	}
}
