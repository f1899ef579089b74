package logbook

import (
	"strings"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func TestTailReturnsRecentLines(t *testing.T) {
	book, err := Open(t.TempDir(), WithClock(fixedClock))
	if err != nil {
		t.Fatalf("open logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines := book.Tail(3)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestEntriesCarryLevelAndTimestamp(t *testing.T) {
	book, err := Open(t.TempDir(), WithClock(fixedClock))
	if err != nil {
		t.Fatalf("open logbook: %v", err)
	}
	book.Warn("provider slow")
	book.Error("provider down")

	lines := book.Tail(10)
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "2026-03-14T12:00:00Z WARN") {
		t.Fatalf("unexpected warn line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR provider down") {
		t.Fatalf("unexpected error line: %q", lines[1])
	}
}

func TestTailOnEmptyLogbook(t *testing.T) {
	book, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open logbook: %v", err)
	}
	if lines := book.Tail(5); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	if book.Tail(3) != nil {
		t.Fatalf("nil logbook returned lines")
	}
	if book.Path() != "" {
		t.Fatalf("nil logbook returned a path")
	}
}
