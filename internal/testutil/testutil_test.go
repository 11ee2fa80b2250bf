package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lepinkainen/coverfetch/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestEnv_Path(t *testing.T) {
	env := NewTestEnv(t)

	// Test basic path
	path := env.Path("subdir", "file.txt")
	assert.True(t, filepath.IsAbs(path))
	assert.Contains(t, path, "subdir")
	assert.Contains(t, path, "file.txt")
}

func TestTestEnv_Path_WithinSandbox(t *testing.T) {
	env := NewTestEnv(t)

	// These should work
	_ = env.Path("subdir")
	_ = env.Path("subdir", "nested")
	_ = env.Path("file.txt")
}

func TestTestEnv_WriteReadFile(t *testing.T) {
	env := NewTestEnv(t)

	content := []byte("test content")
	env.WriteFile("test.txt", content)

	read := env.ReadFile("test.txt")
	assert.Equal(t, content, read)
}

func TestTestEnv_WriteReadFileString(t *testing.T) {
	env := NewTestEnv(t)

	content := "test string content"
	env.WriteFileString("test.txt", content)

	read := env.ReadFileString("test.txt")
	assert.Equal(t, content, read)
}

func TestTestEnv_MkdirAll(t *testing.T) {
	env := NewTestEnv(t)

	env.MkdirAll("nested/dir/structure")

	path := env.Path("nested/dir/structure")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestTestEnv_FileExists(t *testing.T) {
	env := NewTestEnv(t)

	assert.False(t, env.FileExists("nonexistent.txt"))

	env.WriteFileString("exists.txt", "content")
	assert.True(t, env.FileExists("exists.txt"))
}

func TestTestEnv_RequireFileExists(t *testing.T) {
	env := NewTestEnv(t)
	env.WriteFileString("exists.txt", "content")

	// This should not panic
	env.RequireFileExists("exists.txt")
}

func TestTestEnv_RequireFileNotExists(t *testing.T) {
	env := NewTestEnv(t)

	// This should not panic
	env.RequireFileNotExists("nonexistent.txt")
}

func TestTestEnv_AssertFileContains(t *testing.T) {
	env := NewTestEnv(t)

	env.WriteFileString("test.txt", "hello world")
	env.AssertFileContains("test.txt", "world")
}

func TestTestEnv_String(t *testing.T) {
	env := NewTestEnv(t)

	str := env.String()
	assert.Contains(t, str, "TestEnv")
	assert.Contains(t, str, env.RootDir())
}

// GoldenHelper tests

func TestGoldenHelper_AssertGolden(t *testing.T) {
	env := NewTestEnv(t)
	env.WriteFileString("golden/summary.golden", "Succeeded: 2\n")

	golden := NewGoldenHelper(t, env.Path("golden"))
	golden.AssertGolden("summary.golden", []byte("Succeeded: 2\n"))
}

func TestGoldenHelper_AssertGoldenJSONIgnoresFormatting(t *testing.T) {
	env := NewTestEnv(t)
	env.WriteFileString("golden/info.golden.json", "{\n  \"title\": \"活着\"\n}\n")
	env.WriteFileString("actual.json", `{"title":"活着"}`)

	golden := NewGoldenHelper(t, env.Path("golden"))
	golden.AssertGoldenJSON("info.golden.json", []byte(`{"title": "活着"}`))
	golden.AssertGoldenJSONFile(env.Path("actual.json"), "info.golden.json")
}

func TestGoldenHelper_GoldenPath(t *testing.T) {
	golden := NewGoldenHelper(t, "/some/golden/dir")
	assert.Equal(t, "/some/golden/dir/test.golden", golden.GoldenPath("test.golden"))
}

func TestGoldenHelper_IsUpdateMode(t *testing.T) {
	t.Setenv("UPDATE_GOLDEN", "")
	assert.False(t, NewGoldenHelper(t, "testdata").IsUpdateMode())

	t.Setenv("UPDATE_GOLDEN", "true")
	assert.True(t, NewGoldenHelper(t, "testdata").IsUpdateMode())
}

func TestGoldenHelper_UpdateModeWritesFile(t *testing.T) {
	env := NewTestEnv(t)
	t.Setenv("UPDATE_GOLDEN", "true")

	golden := NewGoldenHelper(t, env.Path("golden"))
	golden.AssertGolden("nested/new.golden", []byte("fresh"))

	assert.Equal(t, "fresh", golden.MustReadGoldenString("nested/new.golden"))
}

// Config management tests

func TestResetConfig(t *testing.T) {
	origOutput := config.OutputDir
	origUpdateCovers := config.UpdateCovers

	t.Run("inner", func(t *testing.T) {
		ResetConfig(t)

		config.OutputDir = origOutput + "-changed"
		config.UpdateCovers = !origUpdateCovers

		assert.NotEqual(t, origOutput, config.OutputDir)
		assert.NotEqual(t, origUpdateCovers, config.UpdateCovers)
	})

	assert.Equal(t, origOutput, config.OutputDir)
	assert.Equal(t, origUpdateCovers, config.UpdateCovers)
}

func TestSetTestConfig(t *testing.T) {
	origStrategies := config.Strategies
	origCutoff := config.YearCutoff

	t.Run("inner", func(t *testing.T) {
		SetTestConfig(t)

		assert.Equal(t, config.DefaultOutputDir, config.OutputDir)
		assert.False(t, config.UpdateCovers)
		assert.Equal(t, config.DefaultYearCutoff, config.YearCutoff)
		assert.Equal(t, []string{"web"}, config.Strategies)
		assert.Zero(t, config.TitleDelay)
	})

	assert.Equal(t, origStrategies, config.Strategies)
	assert.Equal(t, origCutoff, config.YearCutoff)
}

func TestSetTestConfigWithOptions(t *testing.T) {
	origSearch := config.SearchBaseURL

	t.Run("inner", func(t *testing.T) {
		SetTestConfigWithOptions(t,
			WithBaseURLs("http://127.0.0.1:1", "http://127.0.0.1:2"),
			WithStrategies("demo", "web"),
			WithUpdateCovers(true),
			WithOutputDir("out"),
		)

		assert.Equal(t, "http://127.0.0.1:1", config.SearchBaseURL)
		assert.Equal(t, "http://127.0.0.1:2", config.BookBaseURL)
		assert.Equal(t, []string{"demo", "web"}, config.Strategies)
		assert.True(t, config.UpdateCovers)
		assert.Equal(t, "out", config.OutputDir)
	})

	assert.Equal(t, origSearch, config.SearchBaseURL)
}

func TestSetViperValue(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	t.Run("inner", func(t *testing.T) {
		SetViperValue(t, "test.key", "test-value")
		assert.Equal(t, "test-value", viper.GetString("test.key"))
	})
}

func TestSetupTestCache(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	env := NewTestEnv(t)
	cacheDir := SetupTestCache(t, env)

	assert.DirExists(t, cacheDir)
	assert.Contains(t, viper.GetString("cache.dbfile"), "test-cache.db")
	assert.Equal(t, "24h", viper.GetString("cache.ttl"))
}

func TestSetupDatasetteDB(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	env := NewTestEnv(t)
	dbPath := SetupDatasetteDB(t, env)

	assert.True(t, viper.GetBool("datasette.enabled"))
	assert.Equal(t, dbPath, viper.GetString("datasette.dbfile"))
}

func TestSaveRestoreConfigState(t *testing.T) {
	ResetConfig(t)

	config.UpdateCovers = true
	config.EditionMarkers = []string{"修订版"}
	config.BaseInterval = time.Second

	state := SaveConfigState()

	config.UpdateCovers = false
	config.EditionMarkers = nil
	config.BaseInterval = time.Minute

	RestoreConfigState(state)

	assert.True(t, config.UpdateCovers)
	assert.Equal(t, []string{"修订版"}, config.EditionMarkers)
	assert.Equal(t, time.Second, config.BaseInterval)
}

func TestFakeClock(t *testing.T) {
	clock := NewFakeClock()
	start := clock.Now()

	require.NoError(t, clock.Sleep(context.Background(), 2*time.Second))
	clock.Advance(time.Second)

	assert.Equal(t, 3*time.Second, clock.Now().Sub(start))
	assert.Equal(t, []time.Duration{2 * time.Second}, clock.Sleeps())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, clock.Sleep(ctx, time.Second))
}
