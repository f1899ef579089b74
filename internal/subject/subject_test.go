package subject

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path, err := Save(dir, Agent{
		Name:        "  Support Bot  ",
		Role:        "customer support",
		Description: "Handles tier-1 tickets.",
		Tags:        []string{"prod", " english "},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "support-bot.json" {
		t.Fatalf("file name = %s", filepath.Base(path))
	}

	agent, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if agent.Name != "Support Bot" || agent.Role != "customer support" {
		t.Fatalf("unexpected agent: %+v", agent)
	}
	if agent.Tags[1] != "english" {
		t.Fatalf("tags not trimmed: %+v", agent.Tags)
	}
}

func TestSaveRejectsUnnamedAgent(t *testing.T) {
	if _, err := Save(t.TempDir(), Agent{Role: "nameless"}); err == nil {
		t.Fatalf("expected error for unnamed agent")
	}
}

func TestListSortsByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zeta", "Alpha", "mid"} {
		if _, err := Save(dir, Agent{Name: name}); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	agents, err := List(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := []string{agents[0].Name, agents[1].Name, agents[2].Name}
	want := []string{"Alpha", "mid", "zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	agents, err := List(filepath.Join(t.TempDir(), "agents"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if agents != nil {
		t.Fatalf("expected no agents, got %d", len(agents))
	}
}

func TestListSkipsNonJSONFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := Save(dir, Agent{Name: "keeper"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	agents, err := List(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(agents) != 1 || agents[0].Name != "keeper" {
		t.Fatalf("unexpected agents: %+v", agents)
	}
}
