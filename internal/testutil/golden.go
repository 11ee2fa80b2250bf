package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GoldenHelper compares generated output with files under a golden
// directory. Setting UPDATE_GOLDEN=true rewrites the golden files instead.
type GoldenHelper struct {
	t          *testing.T
	goldenDir  string
	updateMode bool
}

// NewGoldenHelper creates a helper rooted at goldenDir.
func NewGoldenHelper(t *testing.T, goldenDir string) *GoldenHelper {
	t.Helper()

	return &GoldenHelper{
		t:          t,
		goldenDir:  goldenDir,
		updateMode: os.Getenv("UPDATE_GOLDEN") == "true",
	}
}

// GoldenPath returns the full path to a golden file.
func (g *GoldenHelper) GoldenPath(name string) string {
	return filepath.Join(g.goldenDir, name)
}

// IsUpdateMode reports whether golden files are being rewritten.
func (g *GoldenHelper) IsUpdateMode() bool {
	return g.updateMode
}

// AssertGolden compares actual byte for byte with the golden file.
func (g *GoldenHelper) AssertGolden(name string, actual []byte) {
	g.t.Helper()
	if g.update(name, actual) {
		return
	}
	assert.Equal(g.t, g.MustReadGoldenString(name), string(actual),
		"content does not match golden file %s", name)
}

// AssertGoldenJSON compares JSON documents, ignoring formatting.
func (g *GoldenHelper) AssertGoldenJSON(name string, actual []byte) {
	g.t.Helper()
	if g.update(name, actual) {
		return
	}
	assert.JSONEq(g.t, g.MustReadGoldenString(name), string(actual),
		"JSON content does not match golden file %s", name)
}

// AssertGoldenJSONFile compares the JSON file at actualPath with a golden file.
func (g *GoldenHelper) AssertGoldenJSONFile(actualPath, goldenName string) {
	g.t.Helper()

	actual, err := os.ReadFile(actualPath)
	require.NoError(g.t, err, "failed to read actual file %s", actualPath)

	g.AssertGoldenJSON(goldenName, actual)
}

// MustReadGolden reads a golden file, failing the test when it is missing.
func (g *GoldenHelper) MustReadGolden(name string) []byte {
	g.t.Helper()

	content, err := os.ReadFile(g.GoldenPath(name))
	require.NoError(g.t, err, "failed to read golden file %s", name)
	return content
}

// MustReadGoldenString is MustReadGolden for text content.
func (g *GoldenHelper) MustReadGoldenString(name string) string {
	g.t.Helper()
	return string(g.MustReadGolden(name))
}

func (g *GoldenHelper) update(name string, actual []byte) bool {
	g.t.Helper()
	if !g.updateMode {
		return false
	}

	path := g.GoldenPath(name)
	require.NoError(g.t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create golden file directory")
	require.NoError(g.t, os.WriteFile(path, actual, 0o644), "failed to update golden file")
	g.t.Logf("Updated golden file: %s", path)
	return true
}
