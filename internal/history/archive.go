// Package history archives finished analyses under .assay/results/. Each
// result becomes a markdown file with a YAML frontmatter record, so past
// assessments survive a session reset and can be diffed in version control.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jcrafford/assay/internal/assessment"
)

// Archive manages result IO rooted at a results directory.
type Archive struct {
	dir string
	now func() time.Time
}

// ArchiveOption customizes an Archive during construction.
type ArchiveOption func(*Archive)

// WithClock overrides the clock used for record timestamps.
func WithClock(clock func() time.Time) ArchiveOption {
	return func(a *Archive) {
		a.now = clock
	}
}

// NewArchive builds an archive rooted at dir.
func NewArchive(dir string, opts ...ArchiveOption) *Archive {
	archive := &Archive{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(archive)
	}
	return archive
}

// Entry pairs an archived record with its body and on-disk location.
type Entry struct {
	Record Record
	Body   string
	Path   string
}

// Save writes one result to the archive. Category and scale supply the human
// titles stamped into the record; subject may be empty when no agent file was
// selected.
func (a *Archive) Save(result assessment.Result, category assessment.Category, scale assessment.Scale, subject string) (string, error) {
	if result.ID == "" {
		return "", fmt.Errorf("history: result missing id")
	}
	record := Record{
		ResultID:   result.ID,
		Subject:    strings.TrimSpace(subject),
		Category:   category.Title,
		CategoryID: result.CategoryID,
		Scale:      scale.Title,
		ScaleID:    result.ScaleID,
		RerunOf:    result.RerunOf,
		CreatedAt:  result.GeneratedAt,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = a.now().UTC()
	}
	content, err := WriteFrontMatter(record, []byte(result.Content))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("history: ensure %s: %w", a.dir, err)
	}
	path := filepath.Join(a.dir, result.ID+".md")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("history: write %s: %w", path, err)
	}
	return path, nil
}

// Load reads one archived entry.
func (a *Archive) Load(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("history: read %s: %w", path, err)
	}
	record, body, err := ParseFrontMatter(data)
	if err != nil {
		return Entry{}, fmt.Errorf("history: %s: %w", path, err)
	}
	return Entry{Record: record, Body: strings.TrimSpace(string(body)), Path: path}, nil
}

// List returns every archived entry, newest first. A missing directory means
// an empty archive.
func (a *Archive) List() ([]Entry, error) {
	files, err := os.ReadDir(a.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: read %s: %w", a.dir, err)
	}
	var entries []Entry
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
			continue
		}
		entry, err := a.Load(filepath.Join(a.dir, file.Name()))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Record.CreatedAt.Equal(entries[j].Record.CreatedAt) {
			return entries[i].Record.CreatedAt.After(entries[j].Record.CreatedAt)
		}
		return entries[i].Record.ResultID > entries[j].Record.ResultID
	})
	return entries, nil
}

// Lineage walks the rerun chain for a result, oldest first, ending at the
// result itself. Broken links stop the walk rather than erroring so a
// manually pruned archive still renders.
func (a *Archive) Lineage(resultID string) ([]Entry, error) {
	entries, err := a.List()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Entry, len(entries))
	for _, entry := range entries {
		byID[entry.Record.ResultID] = entry
	}
	var chain []Entry
	seen := map[string]bool{}
	for id := resultID; id != "" && !seen[id]; {
		entry, ok := byID[id]
		if !ok {
			break
		}
		seen[id] = true
		chain = append(chain, entry)
		id = entry.Record.RerunOf
	}
	// Reverse into oldest-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
