package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/coverfetch/internal/book"
)

// LoadEntries reads a book list. The file maps each category to its titles;
// categories and titles keep the order they are written in. A list of
// {title, category} objects is accepted too. Files ending in .yaml or .yml
// are read as YAML, everything else as JSON.
func LoadEntries(path string) ([]book.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read book list: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

func parseJSON(data []byte) ([]book.Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var entries []book.Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("invalid book list: %w", err)
		}
		return entries, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var entries []book.Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid book list: %w", err)
		}
		category, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("invalid book list: expected category name, got %v", tok)
		}
		var titles []string
		if err := dec.Decode(&titles); err != nil {
			return nil, fmt.Errorf("invalid book list: category %q: %w", category, err)
		}
		for _, title := range titles {
			entries = append(entries, book.Entry{Title: title, Category: category})
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return entries, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("invalid book list: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("invalid book list: expected %q, got %v", want, tok)
	}
	return nil
}

func parseYAML(data []byte) ([]book.Entry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid book list: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		var entries []book.Entry
		if err := doc.Decode(&entries); err != nil {
			return nil, fmt.Errorf("invalid book list: %w", err)
		}
		return entries, nil
	case yaml.MappingNode:
		var entries []book.Entry
		for i := 0; i+1 < len(doc.Content); i += 2 {
			category := doc.Content[i].Value
			var titles []string
			if err := doc.Content[i+1].Decode(&titles); err != nil {
				return nil, fmt.Errorf("invalid book list: category %q: %w", category, err)
			}
			for _, title := range titles {
				entries = append(entries, book.Entry{Title: title, Category: category})
			}
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("invalid book list: expected a mapping of categories to titles")
	}
}
