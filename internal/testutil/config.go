package testutil

import (
	"slices"
	"testing"
	"time"

	"github.com/lepinkainen/coverfetch/internal/config"
	"github.com/spf13/viper"
)

// ConfigState holds the state of the config package variables.
type ConfigState struct {
	OutputDir      string
	UpdateCovers   bool
	SearchBaseURL  string
	BookBaseURL    string
	BaseInterval   time.Duration
	MaxInterval    time.Duration
	TitleDelay     time.Duration
	YearCutoff     int
	EditionMarkers []string
	Strategies     []string
}

// SaveConfigState captures the current state of config package variables.
func SaveConfigState() ConfigState {
	return ConfigState{
		OutputDir:      config.OutputDir,
		UpdateCovers:   config.UpdateCovers,
		SearchBaseURL:  config.SearchBaseURL,
		BookBaseURL:    config.BookBaseURL,
		BaseInterval:   config.BaseInterval,
		MaxInterval:    config.MaxInterval,
		TitleDelay:     config.TitleDelay,
		YearCutoff:     config.YearCutoff,
		EditionMarkers: slices.Clone(config.EditionMarkers),
		Strategies:     slices.Clone(config.Strategies),
	}
}

// RestoreConfigState restores the config package variables to a saved state.
func RestoreConfigState(state ConfigState) {
	config.OutputDir = state.OutputDir
	config.UpdateCovers = state.UpdateCovers
	config.SearchBaseURL = state.SearchBaseURL
	config.BookBaseURL = state.BookBaseURL
	config.BaseInterval = state.BaseInterval
	config.MaxInterval = state.MaxInterval
	config.TitleDelay = state.TitleDelay
	config.YearCutoff = state.YearCutoff
	config.EditionMarkers = state.EditionMarkers
	config.Strategies = state.Strategies
}

// ResetConfig saves the current config state and schedules restoration
// when the test completes. It also resets viper.
func ResetConfig(t *testing.T) {
	t.Helper()

	state := SaveConfigState()
	viper.Reset()

	t.Cleanup(func() {
		RestoreConfigState(state)
		viper.Reset()
	})
}

// SetTestConfigOption is a functional option for configuring test config.
type SetTestConfigOption func(*ConfigState)

// WithOutputDir sets the output directory.
func WithOutputDir(dir string) SetTestConfigOption {
	return func(s *ConfigState) {
		s.OutputDir = dir
	}
}

// WithUpdateCovers sets the UpdateCovers option.
func WithUpdateCovers(v bool) SetTestConfigOption {
	return func(s *ConfigState) {
		s.UpdateCovers = v
	}
}

// WithBaseURLs points both Douban endpoints at a test server.
func WithBaseURLs(search, book string) SetTestConfigOption {
	return func(s *ConfigState) {
		s.SearchBaseURL = search
		s.BookBaseURL = book
	}
}

// WithStrategies sets the enabled search strategies.
func WithStrategies(names ...string) SetTestConfigOption {
	return func(s *ConfigState) {
		s.Strategies = names
	}
}

// WithRateIntervals sets the request interval bounds.
func WithRateIntervals(base, max time.Duration) SetTestConfigOption {
	return func(s *ConfigState) {
		s.BaseInterval = base
		s.MaxInterval = max
	}
}

// SetTestConfig sets up a test configuration with the stock defaults and no
// pause between titles. It saves the current state and restores it when the test completes.
func SetTestConfig(t *testing.T) {
	t.Helper()
	SetTestConfigWithOptions(t)
}

// SetTestConfigWithOptions sets up a test configuration with custom options.
// It saves the current state and restores it when the test completes.
func SetTestConfigWithOptions(t *testing.T, opts ...SetTestConfigOption) {
	t.Helper()

	state := SaveConfigState()
	viper.Reset()

	options := ConfigState{
		OutputDir:     config.DefaultOutputDir,
		SearchBaseURL: config.DefaultSearchBaseURL,
		BookBaseURL:   config.DefaultBookBaseURL,
		BaseInterval:  config.DefaultBaseInterval,
		MaxInterval:   config.DefaultMaxInterval,
		YearCutoff:    config.DefaultYearCutoff,
		Strategies:    slices.Clone(config.DefaultStrategies),
	}
	for _, opt := range opts {
		opt(&options)
	}
	RestoreConfigState(options)

	t.Cleanup(func() {
		RestoreConfigState(state)
		viper.Reset()
	})
}

// SetViperValue sets a viper configuration value and schedules cleanup.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)

	viper.Set(key, value)

	t.Cleanup(func() {
		if hadValue {
			viper.Set(key, oldValue)
		}
		// viper has no Unset, so a previously unset key keeps the test value
	})
}

// SetupTestCache configures viper for test caching with a temporary directory.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	cacheDir := env.Path("cache")
	env.MkdirAll("cache")

	viper.Set("cache.dbfile", env.Path("cache", "test-cache.db"))
	viper.Set("cache.ttl", "24h")

	return cacheDir
}

// SetupDatasetteDB enables the record store with a temporary database file
// and returns its path.
func SetupDatasetteDB(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("covers.db")

	SetViperValue(t, "datasette.enabled", true)
	SetViperValue(t, "datasette.dbfile", dbPath)

	return dbPath
}
