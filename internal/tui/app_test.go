package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jcrafford/assay/internal/assessment"
	"github.com/jcrafford/assay/internal/asyncop"
	"github.com/jcrafford/assay/internal/config"
	"github.com/jcrafford/assay/internal/subject"
	"github.com/jcrafford/assay/internal/workflow"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	if err := config.InitAssayDir(dir); err != nil {
		t.Fatalf("init assay dir: %v", err)
	}
	app, err := NewApp(dir, true)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

// finish runs the provider call behind the started operation synchronously
// and feeds the completion back through Update.
func finish(t *testing.T, a *App) {
	t.Helper()
	op := a.snap.StartedOperation
	if op == nil {
		t.Fatalf("no started operation in %s", a.snap.State)
	}
	msg := a.launchOperation(*op)()
	finished, ok := msg.(operationFinishedMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	a.Update(finished)
}

func TestNewAppStartsIdle(t *testing.T) {
	a := newTestApp(t)
	if a.snap.State != workflow.StateIdle {
		t.Fatalf("state = %s, want idle", a.snap.State)
	}
	if len(a.categoryMenu.Items()) < 6 {
		t.Fatalf("category picker should offer the built-in deck plus a custom entry, got %d items", len(a.categoryMenu.Items()))
	}
	if view := a.View(); !strings.Contains(view, "ASSAY") {
		t.Fatalf("view missing header:\n%s", view)
	}
}

func TestOfflineGenerationFillsDescription(t *testing.T) {
	a := newTestApp(t)
	a.dispatch(workflow.Begin())
	a.dispatch(workflow.SelectCategory("Clarity", ""))

	cmd := a.dispatch(workflow.RequestGenerate(workflow.TargetDescription))
	if cmd == nil {
		t.Fatalf("generation dispatch should return a provider command")
	}
	finish(t, a)

	if a.snap.Category == nil || a.snap.Category.Description == "" {
		t.Fatalf("generated description not applied: %+v", a.snap.Category)
	}
	if a.snap.PendingOperation != nil {
		t.Fatalf("operation should be cleared: %+v", a.snap.PendingOperation)
	}
	if a.descInput.Value() != a.snap.Category.Description {
		t.Fatalf("form not synced: %q vs %q", a.descInput.Value(), a.snap.Category.Description)
	}
}

func TestRefreshBothRunsFollowUp(t *testing.T) {
	a := newTestApp(t)
	a.dispatch(workflow.Begin())
	a.dispatch(workflow.SelectCategory("", "how clearly the agent explains itself"))

	a.dispatch(workflow.RequestGenerate(workflow.TargetBoth))
	finish(t, a)
	if a.snap.StartedOperation == nil || a.snap.StartedOperation.Kind != asyncop.KindCategoryDescription {
		t.Fatalf("follow-up description op not started: %+v", a.snap.StartedOperation)
	}
	finish(t, a)
	if a.snap.Category.Title == "" || a.snap.Category.Description == "" {
		t.Fatalf("both fields should be generated: %+v", a.snap.Category)
	}
}

func TestAnalysisResultIsArchived(t *testing.T) {
	a := newTestApp(t)
	a.dispatch(workflow.Begin())
	a.dispatch(workflow.SelectCategory("Clarity", "plain language"))
	a.dispatch(workflow.SubmitCategory())
	a.dispatch(workflow.SelectScale("Five-point", ""))
	a.dispatch(workflow.SubmitScale())
	a.dispatch(workflow.Proceed())
	a.dispatch(workflow.Run())
	finish(t, a)

	if a.snap.State != workflow.StateResultReady {
		t.Fatalf("state = %s, want result_ready", a.snap.State)
	}
	result := a.snap.LastResult
	if result == nil || result.Content == "" {
		t.Fatalf("no result recorded")
	}

	msg := a.archiveResult(*result)()
	archived, ok := msg.(resultArchivedMsg)
	if !ok || archived.err != nil {
		t.Fatalf("archive failed: %+v", msg)
	}
	if _, err := os.Stat(archived.path); err != nil {
		t.Fatalf("archived file missing: %v", err)
	}
	entry, err := a.archive.Load(archived.path)
	if err != nil {
		t.Fatalf("load archived entry: %v", err)
	}
	if entry.Record.Category != "Clarity" || entry.Record.Scale != "Five-point" {
		t.Fatalf("unexpected record: %+v", entry.Record)
	}
}

func TestCancelAbortsProviderContext(t *testing.T) {
	a := newTestApp(t)
	a.dispatch(workflow.Begin())
	a.dispatch(workflow.SelectCategory("Clarity", ""))
	a.dispatch(workflow.RequestGenerate(workflow.TargetTitle))

	op := a.snap.StartedOperation
	if op == nil {
		t.Fatalf("no started operation")
	}
	if _, ok := a.cancels[op.ID]; !ok {
		t.Fatalf("no cancel handle registered")
	}
	a.cancelPending()
	if _, ok := a.cancels[op.ID]; ok {
		t.Fatalf("cancel handle should be released")
	}
	if a.snap.PendingOperation != nil {
		t.Fatalf("operation should be cleared after cancel")
	}

	// The abandoned call still reports; the machine must shrug it off.
	a.Update(operationFinishedMsg{id: op.ID, outcome: asyncop.Success("ghost")})
	if a.snap.Category.Title != "Clarity" {
		t.Fatalf("stale completion mutated the category: %+v", a.snap.Category)
	}
}

func TestClassifyError(t *testing.T) {
	if out := classifyError(context.DeadlineExceeded); out.Failure != asyncop.FailureTimeout {
		t.Fatalf("deadline = %+v", out)
	}
	if out := classifyError(context.Canceled); out.Failure != asyncop.FailureCancelled {
		t.Fatalf("canceled = %+v", out)
	}
	if out := classifyError(errors.New("backend exploded")); out.Failure != asyncop.FailureProvider || out.Detail != "backend exploded" {
		t.Fatalf("provider = %+v", out)
	}
}

func TestCycleSubject(t *testing.T) {
	dir := t.TempDir()
	if err := config.InitAssayDir(dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	agentsDir := filepath.Join(dir, config.AssayDir, "agents")
	for _, name := range []string{"alpha", "beta"} {
		if _, err := subject.Save(agentsDir, subject.Agent{Name: name}); err != nil {
			t.Fatalf("save subject: %v", err)
		}
	}
	a, err := NewApp(dir, true)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	a.cycleSubject()
	if a.subject == nil || a.subject.Name != "alpha" {
		t.Fatalf("first subject = %+v", a.subject)
	}
	a.cycleSubject()
	if a.subject.Name != "beta" {
		t.Fatalf("second subject = %+v", a.subject)
	}
	a.cycleSubject()
	if a.subject.Name != "alpha" {
		t.Fatalf("cycle should wrap, got %+v", a.subject)
	}
}

func TestCycleDeckPersistsDefault(t *testing.T) {
	dir := t.TempDir()
	if err := config.InitAssayDir(dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	deckYAML := "name: Latency\ncategories:\n  - title: Latency\n    description: Response speed under load\n"
	decksDir := filepath.Join(dir, config.AssayDir, "decks")
	if err := os.WriteFile(filepath.Join(decksDir, "latency.yaml"), []byte(deckYAML), 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	a, err := NewApp(dir, true)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	first, ok := a.categoryMenu.Items()[0].(menuItem)
	if !ok || first.title != "Clarity" {
		t.Fatalf("standard deck should lead while it is the default, got %+v", a.categoryMenu.Items()[0])
	}

	a.cycleDeck()
	if got := a.config.DefaultDeck(); got != "Latency" {
		t.Fatalf("default deck = %q, want Latency", got)
	}
	first, ok = a.categoryMenu.Items()[0].(menuItem)
	if !ok || first.title != "Latency" {
		t.Fatalf("picker should reorder behind the new default, got %+v", a.categoryMenu.Items()[0])
	}

	reloaded, err := config.NewConfig(dir)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if got := reloaded.DefaultDeck(); got != "Latency" {
		t.Fatalf("persisted default deck = %q, want Latency", got)
	}
}

func TestResultsBrowserShowsLineage(t *testing.T) {
	a := newTestApp(t)
	category := assessment.Category{ID: "cat-1", Title: "Clarity"}
	scale := assessment.Scale{ID: "sc-1", CategoryID: "cat-1", Title: "Five-point"}
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	prev := ""
	for i, content := range []string{"first pass", "second pass", "third pass"} {
		res := assessment.Result{
			ID:          fmt.Sprintf("res-%d", i+1),
			CategoryID:  category.ID,
			ScaleID:     scale.ID,
			Content:     content,
			GeneratedAt: base.Add(time.Duration(i) * time.Minute),
			RerunOf:     prev,
		}
		if _, err := a.archive.Save(res, category, scale, "support-bot"); err != nil {
			t.Fatalf("save result: %v", err)
		}
		prev = res.ID
	}

	a.loadResults()
	if !a.browsing || len(a.results) != 3 {
		t.Fatalf("browser not loaded: browsing=%v entries=%d", a.browsing, len(a.results))
	}

	// Newest first, so the selection starts on the latest rerun and its whole
	// chain renders oldest first.
	view := a.View()
	if !strings.Contains(view, "Lineage") {
		t.Fatalf("lineage panel missing:\n%s", view)
	}
	for _, want := range []string{"first pass", "second pass", "third pass"} {
		if !strings.Contains(view, want) {
			t.Fatalf("lineage missing %q:\n%s", want, view)
		}
	}

	a.Update(tea.KeyMsg{Type: tea.KeyDown})
	if a.browseIndex != 1 {
		t.Fatalf("browse index = %d, want 1", a.browseIndex)
	}
	a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if a.browsing {
		t.Fatalf("esc should close the browser")
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	long := strings.Repeat("é", 12)
	got := truncate(long, 8)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated string is not valid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 7) + "…"; got != want {
		t.Fatalf("truncate = %q, want %q", got, want)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("short input should pass through, got %q", got)
	}
}

func TestViewRendersEveryState(t *testing.T) {
	a := newTestApp(t)
	steps := []func(){
		func() { a.dispatch(workflow.Begin()) },
		func() { a.dispatch(workflow.SelectCategory("Clarity", "")) },
		func() { a.dispatch(workflow.SubmitCategory()) },
		func() { a.dispatch(workflow.SelectScale("Five-point", "")) },
		func() { a.dispatch(workflow.SubmitScale()) },
		func() { a.dispatch(workflow.Proceed()) },
		func() { a.dispatch(workflow.Run()) },
		func() { finish(t, a) },
	}
	for _, step := range steps {
		step()
		if view := a.View(); strings.TrimSpace(view) == "" {
			t.Fatalf("blank view in %s", a.snap.State)
		}
	}
	if a.snap.State != workflow.StateResultReady {
		t.Fatalf("walkthrough ended in %s", a.snap.State)
	}
}

func TestGuardRejectionSurfacesReason(t *testing.T) {
	a := newTestApp(t)
	a.dispatch(workflow.Begin())
	a.dispatch(workflow.SelectCategory("", ""))
	a.dispatch(workflow.SubmitCategory())
	if a.statusMsg == "" {
		t.Fatalf("guard rejection should set a status message")
	}
	if a.snap.State != workflow.StateEditingCategory {
		t.Fatalf("state moved on rejection: %s", a.snap.State)
	}
}
