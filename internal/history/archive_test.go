package history

import (
	"strings"
	"testing"
	"time"

	"github.com/jcrafford/assay/internal/assessment"
)

var testClock = func() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func testResult(id, rerunOf string) assessment.Result {
	return assessment.Result{
		ID:          id,
		CategoryID:  "cat-1",
		ScaleID:     "scale-1",
		Content:     "Score: 4/5. Solid performance.",
		GeneratedAt: testClock(),
		RerunOf:     rerunOf,
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	archive := NewArchive(t.TempDir(), WithClock(testClock))
	category := assessment.Category{ID: "cat-1", Title: "Clarity"}
	scale := assessment.Scale{ID: "scale-1", CategoryID: "cat-1", Title: "Five-point"}

	path, err := archive.Save(testResult("res-1", ""), category, scale, "support-bot")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	entry, err := archive.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rec := entry.Record
	if rec.ResultID != "res-1" || rec.Category != "Clarity" || rec.Scale != "Five-point" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Subject != "support-bot" {
		t.Fatalf("subject = %q", rec.Subject)
	}
	if !rec.CreatedAt.Equal(testClock()) {
		t.Fatalf("created = %v", rec.CreatedAt)
	}
	if entry.Body != "Score: 4/5. Solid performance." {
		t.Fatalf("body = %q", entry.Body)
	}
}

func TestSaveRejectsResultWithoutID(t *testing.T) {
	archive := NewArchive(t.TempDir())
	if _, err := archive.Save(assessment.Result{}, assessment.Category{}, assessment.Scale{}, ""); err == nil {
		t.Fatalf("expected error for missing result id")
	}
}

func TestListNewestFirst(t *testing.T) {
	archive := NewArchive(t.TempDir())
	category := assessment.Category{ID: "cat-1", Title: "Clarity"}
	scale := assessment.Scale{ID: "scale-1", Title: "Five-point"}

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"res-1", "res-2", "res-3"} {
		result := testResult(id, "")
		result.GeneratedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := archive.Save(result, category, scale, ""); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	entries, err := archive.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 || entries[0].Record.ResultID != "res-3" || entries[2].Record.ResultID != "res-1" {
		var ids []string
		for _, e := range entries {
			ids = append(ids, e.Record.ResultID)
		}
		t.Fatalf("order = %v, want newest first", ids)
	}
}

func TestListEmptyArchive(t *testing.T) {
	entries, err := NewArchive(t.TempDir() + "/missing").List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected empty archive, got %d entries", len(entries))
	}
}

func TestLineageWalksRerunChain(t *testing.T) {
	archive := NewArchive(t.TempDir())
	category := assessment.Category{ID: "cat-1", Title: "Clarity"}
	scale := assessment.Scale{ID: "scale-1", Title: "Five-point"}

	chainSpec := []struct{ id, rerunOf string }{
		{"res-1", ""},
		{"res-2", "res-1"},
		{"res-3", "res-2"},
	}
	for _, link := range chainSpec {
		if _, err := archive.Save(testResult(link.id, link.rerunOf), category, scale, ""); err != nil {
			t.Fatalf("save %s: %v", link.id, err)
		}
	}

	chain, err := archive.Lineage("res-3")
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(chain))
	}
	for i, want := range []string{"res-1", "res-2", "res-3"} {
		if chain[i].Record.ResultID != want {
			t.Fatalf("chain[%d] = %s, want %s", i, chain[i].Record.ResultID, want)
		}
	}
}

func TestLineageStopsAtMissingLink(t *testing.T) {
	archive := NewArchive(t.TempDir())
	category := assessment.Category{ID: "cat-1", Title: "Clarity"}
	scale := assessment.Scale{ID: "scale-1", Title: "Five-point"}
	if _, err := archive.Save(testResult("res-2", "res-gone"), category, scale, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	chain, err := archive.Lineage("res-2")
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if len(chain) != 1 || chain[0].Record.ResultID != "res-2" {
		t.Fatalf("unexpected chain: %+v", chain)
	}
}

func TestParseFrontMatterRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"no fence":       "just a body",
		"unclosed fence": "---\nassay:\n  result: res-1",
		"missing ids":    "---\nassay:\n  result: res-1\n  created: 2026-03-14T12:00:00Z\n---\n\nbody",
	}
	for label, payload := range cases {
		if _, _, err := ParseFrontMatter([]byte(payload)); err == nil {
			t.Fatalf("%s: expected error", label)
		}
	}
}

func TestFrontMatterSurvivesCRLF(t *testing.T) {
	record := Record{
		ResultID:   "res-1",
		Category:   "Clarity",
		CategoryID: "cat-1",
		Scale:      "Five-point",
		ScaleID:    "scale-1",
		CreatedAt:  testClock(),
	}
	content, err := WriteFrontMatter(record, []byte("body line"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	crlf := strings.ReplaceAll(string(content), "\n", "\r\n")
	parsed, body, err := ParseFrontMatter([]byte(crlf))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.ResultID != "res-1" || strings.TrimSpace(string(body)) != "body line" {
		t.Fatalf("round trip failed: %+v %q", parsed, body)
	}
}
