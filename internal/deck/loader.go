package deck

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes and validates a single deck payload.
func ParseYAML(data []byte) (Deck, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Deck{}, fmt.Errorf("deck: payload is empty")
	}
	var d Deck
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Deck{}, fmt.Errorf("deck: decode: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Deck{}, err
	}
	return d.Normalized(), nil
}

// LoadFile reads one deck from disk.
func LoadFile(path string) (Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Deck{}, fmt.Errorf("deck: read %s: %w", path, err)
	}
	d, err := ParseYAML(data)
	if err != nil {
		return Deck{}, fmt.Errorf("deck: %s: %w", path, err)
	}
	return d, nil
}

// LoadDir scans a directory for *.yaml decks, sorted by path. A missing
// directory means no project decks, not an error.
func LoadDir(dir string) ([]Deck, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("deck: read %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	var decks []Deck
	for _, path := range paths {
		d, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, nil
}

// Catalog is the full set of decks available to a session: the built-in deck
// first, then any project decks. A project deck named like an earlier deck
// replaces it, which is how projects override the standard presets.
func Catalog(dir string) ([]Deck, error) {
	decks := []Deck{BuiltIn()}
	project, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, d := range project {
		if i := indexByName(decks, d.Name); i >= 0 {
			decks[i] = d
			continue
		}
		decks = append(decks, d)
	}
	return decks, nil
}

func indexByName(decks []Deck, name string) int {
	for i, d := range decks {
		if strings.EqualFold(d.Name, name) {
			return i
		}
	}
	return -1
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
