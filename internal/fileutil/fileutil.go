// Package fileutil holds the file naming and writing helpers used when
// covers and their metadata are saved.
package fileutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// fallbackName is used when a title sanitizes to nothing.
const fallbackName = "cover"

// SanitizeTitle keeps letters, digits, spaces, '-' and '_' and trims trailing
// spaces. It is used for image file names.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	name := strings.TrimRight(b.String(), " ")
	if name == "" {
		return fallbackName
	}
	return name
}

// SanitizeFilename cleans a filename by replacing path separators and colons
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, ":", " -")
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	return name
}

// CoverFilePath returns where the cover image for title is stored.
func CoverFilePath(dir, title string) string {
	return filepath.Join(dir, SanitizeTitle(title)+".jpg")
}

// InfoFilePath returns where the metadata for title is stored. The title is
// kept as written apart from path separators.
func InfoFilePath(dir, title string) string {
	return filepath.Join(dir, SanitizeFilename(title)+"_info.json")
}

// FileExists checks if a file exists at the given path
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// WriteFileWithOverwrite writes data to a file, respecting the overwrite flag
// Returns true if the file was written, false if it was skipped
func WriteFileWithOverwrite(filePath string, data []byte, perm os.FileMode, overwrite bool) (bool, error) {
	if FileExists(filePath) && !overwrite {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return false, err
	}

	if err := os.WriteFile(filePath, data, perm); err != nil {
		return false, err
	}

	return true, nil
}

// WriteJSONFile writes data as indented JSON with non-ASCII text and HTML
// characters left unescaped, respecting the overwrite flag.
// Returns true if the file was written, false if it was skipped
func WriteJSONFile(data any, filePath string, overwrite bool) (bool, error) {
	if FileExists(filePath) && !overwrite {
		slog.Info("JSON file already exists, skipping", "filename", filePath, "overwrite", overwrite)
		return false, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return false, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	slog.Debug("Writing JSON file", "filename", filePath, "overwrite", overwrite)
	if err := os.WriteFile(filePath, buf.Bytes(), 0644); err != nil {
		return false, fmt.Errorf("failed to write JSON file: %w", err)
	}

	return true, nil
}
