package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestSetUpdateCovers(t *testing.T) {
	// Save the original value to restore after the test
	originalValue := UpdateCovers

	testCases := []struct {
		name     string
		input    bool
		expected bool
	}{
		{
			name:     "set to true",
			input:    true,
			expected: true,
		},
		{
			name:     "set to false",
			input:    false,
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			SetUpdateCovers(tc.input)
			assert.Equal(t, tc.expected, UpdateCovers)
		})
	}

	UpdateCovers = originalValue
}

func TestInitConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	InitConfig()

	assert.Equal(t, DefaultOutputDir, OutputDir)
	assert.Equal(t, DefaultSearchBaseURL, SearchBaseURL)
	assert.Equal(t, DefaultBookBaseURL, BookBaseURL)
	assert.Equal(t, 3*time.Second, BaseInterval)
	assert.Equal(t, 30*time.Second, MaxInterval)
	assert.Equal(t, 2*time.Second, TitleDelay)
	assert.Equal(t, 2015, YearCutoff)
	assert.Equal(t, []string{"web"}, Strategies)
	assert.Empty(t, EditionMarkers)
}

func TestInitConfigOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("rate.base", "500ms")
	viper.Set("filter.yearcutoff", 2018)
	viper.Set("filter.editionmarkers", []string{"纪念版"})
	viper.Set("search.strategies", []string{"api", "web"})

	InitConfig()

	assert.Equal(t, 500*time.Millisecond, BaseInterval)
	assert.Equal(t, 2018, YearCutoff)
	assert.Equal(t, []string{"纪念版"}, EditionMarkers)
	assert.Equal(t, []string{"api", "web"}, Strategies)
}

func TestSetOverridesIgnoreEmpty(t *testing.T) {
	origDir, origStrategies := OutputDir, Strategies
	t.Cleanup(func() {
		OutputDir, Strategies = origDir, origStrategies
	})

	OutputDir = "covers"
	SetOutputDir("")
	assert.Equal(t, "covers", OutputDir)
	SetOutputDir("out")
	assert.Equal(t, "out", OutputDir)

	Strategies = []string{"web"}
	SetStrategies(nil)
	assert.Equal(t, []string{"web"}, Strategies)
	SetStrategies([]string{"demo"})
	assert.Equal(t, []string{"demo"}, Strategies)
}
