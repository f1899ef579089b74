package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jcrafford/assay/internal/asyncop"
	"github.com/jcrafford/assay/internal/workflow"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).MarginTop(1)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	bodyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
)

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if a.browsing {
		switch key {
		case "esc", "q":
			a.browsing = false
			a.browseIndex = 0
		case "up", "k":
			if a.browseIndex > 0 {
				a.browseIndex--
			}
		case "down", "j":
			if a.browseIndex < len(a.results)-1 {
				a.browseIndex++
			}
		}
		return a, nil
	}
	// Reset is accepted from every state; ctrl+n starts over.
	if key == "ctrl+n" {
		a.titleInput.SetValue("")
		a.descInput.SetValue("")
		a.statusMsg = "Session reset"
		return a, a.dispatch(workflow.Reset())
	}

	switch a.snap.State {
	case workflow.StateIdle:
		return a.handleIdleKey(msg)
	case workflow.StateSelectingCategory:
		return a.handlePickerKey(msg, &a.categoryMenu, true)
	case workflow.StateSelectingScale:
		return a.handlePickerKey(msg, &a.scaleMenu, false)
	case workflow.StateEditingCategory, workflow.StateEditingScale:
		return a.handleEditorKey(msg)
	case workflow.StateCreatingScales:
		return a.handleScaleHubKey(key)
	case workflow.StateReadyToAnalyze:
		return a.handleReadyKey(key)
	case workflow.StateAnalyzing:
		return a.handleAnalyzingKey(key)
	case workflow.StateResultReady:
		return a.handleResultKey(key)
	}
	return a, nil
}

func (a *App) handleIdleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "enter":
		item, ok := a.mainMenu.SelectedItem().(menuItem)
		if !ok {
			return a, nil
		}
		switch item.title {
		case "New Assessment":
			a.logInfo("Menu · New Assessment selected")
			return a, a.dispatch(workflow.Begin())
		case "Choose Subject":
			a.cycleSubject()
			return a, nil
		case "Default Deck":
			a.cycleDeck()
			return a, nil
		case "Browse Results":
			return a, a.loadResults()
		case "Exit":
			a.logInfo("Menu · Exit selected")
			return a, tea.Quit
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.mainMenu, cmd = a.mainMenu.Update(msg)
	return a, cmd
}

// cycleSubject steps through the agent files so the next assessment is
// attributed to a different subject.
func (a *App) cycleSubject() {
	if len(a.subjects) == 0 {
		return
	}
	next := 0
	if a.subject != nil {
		for i, candidate := range a.subjects {
			if candidate.Name == a.subject.Name {
				next = (i + 1) % len(a.subjects)
				break
			}
		}
	}
	chosen := a.subjects[next]
	a.subject = &chosen
	a.statusMsg = fmt.Sprintf("Subject: %s", chosen.Name)
	a.logInfo("Subject · %s selected", chosen.Name)
	a.mainMenu.SetItems(a.mainMenuItems())
}

// cycleDeck advances the default deck and persists the choice, reordering
// both pickers so the new default's presets come first.
func (a *App) cycleDeck() {
	if len(a.decks) < 2 {
		return
	}
	next := 0
	current := a.config.DefaultDeck()
	for i, d := range a.decks {
		if strings.EqualFold(d.Name, current) {
			next = (i + 1) % len(a.decks)
			break
		}
	}
	chosen := a.decks[next]
	if err := a.config.SetDefaultDeck(chosen.Name); err != nil {
		a.statusMsg = fmt.Sprintf("Default deck not saved: %v", err)
		a.logError("Default deck update failed: %v", err)
		return
	}
	a.statusMsg = fmt.Sprintf("Default deck: %s", chosen.Name)
	a.logInfo("Deck · %s set as default", chosen.Name)
	a.mainMenu.SetItems(a.mainMenuItems())
	a.categoryMenu.SetItems(a.categoryItems())
	a.scaleMenu.SetItems(a.scaleItems())
}

func (a *App) loadResults() tea.Cmd {
	entries, err := a.archive.List()
	if err != nil {
		a.statusMsg = fmt.Sprintf("Results unavailable: %v", err)
		a.logError("Results listing failed: %v", err)
		return nil
	}
	a.results = entries
	a.browsing = true
	a.browseIndex = 0
	return nil
}

func (a *App) handlePickerKey(msg tea.KeyMsg, menu *list.Model, category bool) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return a, a.dispatch(workflow.Back())
	case "enter":
		item, ok := menu.SelectedItem().(menuItem)
		if !ok {
			return a, nil
		}
		title, desc := item.title, item.desc
		if title == customPresetTitle {
			title, desc = "", ""
		}
		a.titleInput.SetValue(title)
		a.descInput.SetValue(desc)
		a.titleInput.Focus()
		a.descInput.Blur()
		a.focus = focusTitle
		if category {
			return a, a.dispatch(workflow.SelectCategory(title, desc))
		}
		return a, a.dispatch(workflow.SelectScale(title, desc))
	}
	var cmd tea.Cmd
	*menu, cmd = menu.Update(msg)
	return a, cmd
}

func (a *App) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	busy := a.snap.Busy()
	switch msg.String() {
	case "ctrl+x":
		if busy {
			return a, a.cancelPending()
		}
		return a, nil
	case "ctrl+r":
		if a.snap.Failed() {
			return a, a.dispatch(workflow.Retry())
		}
		return a, nil
	}
	if busy {
		// The form is frozen while the provider works; only cancel applies.
		return a, nil
	}

	switch msg.String() {
	case "esc":
		a.syncDraft()
		return a, a.dispatch(workflow.Back())
	case "tab":
		a.toggleFocus()
		return a, nil
	case "ctrl+t":
		a.syncDraft()
		return a, a.dispatch(workflow.RequestGenerate(workflow.TargetTitle))
	case "ctrl+d":
		a.syncDraft()
		return a, a.dispatch(workflow.RequestGenerate(workflow.TargetDescription))
	case "ctrl+b":
		a.syncDraft()
		return a, a.dispatch(workflow.RequestGenerate(workflow.TargetBoth))
	case "ctrl+s":
		a.syncDraft()
		if a.snap.State == workflow.StateEditingCategory {
			return a, a.dispatch(workflow.SubmitCategory())
		}
		return a, a.dispatch(workflow.SubmitScale())
	case "enter":
		if a.focus == focusTitle {
			a.syncDraft()
			if a.snap.State == workflow.StateEditingCategory {
				return a, a.dispatch(workflow.SubmitCategory())
			}
			return a, a.dispatch(workflow.SubmitScale())
		}
	}

	var cmd tea.Cmd
	if a.focus == focusTitle {
		a.titleInput, cmd = a.titleInput.Update(msg)
	} else {
		a.descInput, cmd = a.descInput.Update(msg)
	}
	a.syncDraft()
	return a, cmd
}

func (a *App) toggleFocus() {
	if a.focus == focusTitle {
		a.focus = focusDescription
		a.titleInput.Blur()
		a.descInput.Focus()
		return
	}
	a.focus = focusTitle
	a.descInput.Blur()
	a.titleInput.Focus()
}

// syncDraft pushes the form values into the machine so guards and provider
// prompts see what the user currently sees.
func (a *App) syncDraft() {
	title := a.titleInput.Value()
	desc := a.descInput.Value()
	switch a.snap.State {
	case workflow.StateEditingCategory:
		if cat := a.snap.Category; cat != nil && (cat.Title != title || cat.Description != desc) {
			a.dispatch(workflow.EditCategory(title, desc))
		}
	case workflow.StateEditingScale:
		if sc := a.snap.StagedScale; sc != nil && (sc.Title != title || sc.Description != desc) {
			a.dispatch(workflow.EditScale(title, desc))
		}
	}
}

func (a *App) handleScaleHubKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "a":
		a.titleInput.SetValue("")
		a.descInput.SetValue("")
		a.titleInput.Focus()
		a.focus = focusTitle
		return a, a.dispatch(workflow.AddScale("", ""))
	case "enter", "p":
		return a, a.dispatch(workflow.Proceed())
	case "esc", "b":
		return a, a.dispatch(workflow.Back())
	}
	return a, nil
}

func (a *App) handleReadyKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "enter", "r":
		return a, a.dispatch(workflow.Run())
	case "esc", "b":
		return a, a.dispatch(workflow.Back())
	}
	return a, nil
}

func (a *App) handleAnalyzingKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "c", "ctrl+x":
		if a.snap.Busy() {
			return a, a.cancelPending()
		}
	case "r", "ctrl+r":
		if a.snap.Failed() {
			return a, a.dispatch(workflow.Retry())
		}
	}
	return a, nil
}

func (a *App) handleResultKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "r":
		return a, a.dispatch(workflow.Rerun())
	case "esc", "b":
		return a, a.dispatch(workflow.Back())
	}
	return a, nil
}

func (a *App) renderState() string {
	if a.browsing {
		return a.renderResultsBrowser()
	}
	switch a.snap.State {
	case workflow.StateIdle:
		return a.mainMenu.View()
	case workflow.StateSelectingCategory:
		return lipgloss.JoinVertical(lipgloss.Left,
			a.categoryMenu.View(),
			hintStyle.Render("Enter → edit    Esc → back"),
		)
	case workflow.StateSelectingScale:
		return lipgloss.JoinVertical(lipgloss.Left,
			a.scaleMenu.View(),
			hintStyle.Render("Enter → edit    Esc → back"),
		)
	case workflow.StateEditingCategory:
		return a.renderEditor("Category")
	case workflow.StateEditingScale:
		return a.renderEditor("Scale")
	case workflow.StateCreatingScales:
		return a.renderScaleHub()
	case workflow.StateReadyToAnalyze:
		return a.renderReady()
	case workflow.StateAnalyzing:
		return a.renderAnalyzing()
	case workflow.StateResultReady:
		return a.renderResult()
	}
	return ""
}

func (a *App) renderEditor(noun string) string {
	lines := []string{
		labelStyle.Render(fmt.Sprintf("%s title", noun)),
		a.titleInput.View(),
		"",
		labelStyle.Render(fmt.Sprintf("%s description", noun)),
		a.descInput.View(),
	}
	if op := a.snap.PendingOperation; op != nil {
		lines = append(lines, "", a.renderOperation(*op))
	}
	body := panelStyle.Render(strings.Join(lines, "\n"))
	hints := []string{"Tab → switch field", "Ctrl+T/D/B → generate title/description/both"}
	if a.snap.Busy() {
		hints = []string{"Ctrl+X → cancel generation"}
	} else if a.snap.Failed() {
		hints = append(hints, "Ctrl+R → retry")
	}
	hints = append(hints, "Enter → submit", "Esc → back")
	return lipgloss.JoinVertical(lipgloss.Left, body, hintStyle.Render(strings.Join(hints, "    ")))
}

func (a *App) renderOperation(op asyncop.Operation) string {
	switch op.Status {
	case asyncop.StatusPending:
		return pendingStyle.Render(fmt.Sprintf("%s %s (attempt %d/%d)",
			a.spin.View(), friendlyKind(op.Kind), op.Attempt, op.MaxAttempts+1))
	case asyncop.StatusFailed:
		line := failureStyle.Render(fmt.Sprintf("✗ %s failed: %s", friendlyKind(op.Kind), op.LastError))
		if op.CanRetry() {
			return line + hintStyle.Render(fmt.Sprintf("  (%d attempt(s) left)", op.MaxAttempts+1-op.Attempt))
		}
		return line + hintStyle.Render("  (retry budget spent)")
	default:
		return ""
	}
}

func (a *App) renderScaleHub() string {
	lines := []string{labelStyle.Render(fmt.Sprintf("Scales for %s", a.categoryTitle()))}
	if len(a.snap.Scales) == 0 {
		lines = append(lines, bodyStyle.Render("No scales committed yet."))
	}
	for i, sc := range a.snap.Scales {
		entry := fmt.Sprintf("%d. %s", i+1, sc.Title)
		if sc.Description != "" {
			entry += " · " + truncate(sc.Description, 60)
		}
		lines = append(lines, bodyStyle.Render(entry))
	}
	body := panelStyle.Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		hintStyle.Render("a → add scale    Enter → proceed to analysis    Esc → back"),
	)
}

func (a *App) renderReady() string {
	lines := []string{
		labelStyle.Render("Ready to analyze"),
		bodyStyle.Render(fmt.Sprintf("Category: %s", a.categoryTitle())),
		bodyStyle.Render(fmt.Sprintf("Scales: %d", len(a.snap.Scales))),
	}
	if a.subject != nil {
		lines = append(lines, bodyStyle.Render(fmt.Sprintf("Subject: %s", a.subject.Name)))
	}
	body := panelStyle.Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		hintStyle.Render("Enter → run analysis    Esc → back"),
	)
}

func (a *App) renderAnalyzing() string {
	lines := []string{labelStyle.Render(fmt.Sprintf("Analyzing %s", a.categoryTitle()))}
	if op := a.snap.PendingOperation; op != nil {
		lines = append(lines, a.renderOperation(*op))
	}
	body := panelStyle.Render(strings.Join(lines, "\n"))
	hint := "c → cancel"
	if a.snap.Failed() {
		hint = "r → retry    Ctrl+N → start over"
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, hintStyle.Render(hint))
}

func (a *App) renderResult() string {
	result := a.snap.LastResult
	if result == nil {
		return bodyStyle.Render("No result available.")
	}
	lines := []string{
		labelStyle.Render(fmt.Sprintf("Result · %s", a.categoryTitle())),
		"",
		bodyStyle.Render(result.Content),
	}
	if result.RerunOf != "" {
		lines = append(lines, "", hintStyle.Render(fmt.Sprintf("Rerun of %s", result.RerunOf)))
	}
	if a.lastArchived != "" {
		lines = append(lines, hintStyle.Render(fmt.Sprintf("Archived: %s", a.lastArchived)))
	}
	body := panelStyle.Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		hintStyle.Render("r → rerun    Esc → back    Ctrl+N → start over"),
	)
}

func (a *App) renderResultsBrowser() string {
	lines := []string{labelStyle.Render(fmt.Sprintf("Archived results (%d)", len(a.results)))}
	if len(a.results) == 0 {
		lines = append(lines, bodyStyle.Render("Nothing archived yet."))
	}
	limit := len(a.results)
	if limit > 10 {
		limit = 10
	}
	selected := a.browseIndex
	if selected >= limit {
		selected = limit - 1
	}
	for i, entry := range a.results[:limit] {
		rec := entry.Record
		cursor := "  "
		if i == selected {
			cursor = "▸ "
		}
		line := fmt.Sprintf("%s%s · %s on %s", cursor, rec.CreatedAt.Format("2006-01-02 15:04"), rec.Category, rec.Scale)
		if rec.Subject != "" {
			line += " · " + rec.Subject
		}
		if rec.RerunOf != "" {
			line += " · rerun"
		}
		lines = append(lines, bodyStyle.Render(line))
		lines = append(lines, hintStyle.Render("    "+truncate(entry.Body, 70)))
	}
	lines = append(lines, a.renderLineage(selected)...)
	body := panelStyle.Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, body, hintStyle.Render("↑/↓ → select    Esc → back"))
}

// renderLineage shows the rerun chain behind the selected entry, oldest first.
func (a *App) renderLineage(selected int) []string {
	if selected < 0 || selected >= len(a.results) {
		return nil
	}
	rec := a.results[selected].Record
	chain, err := a.archive.Lineage(rec.ResultID)
	if err != nil || len(chain) < 2 {
		return nil
	}
	lines := []string{"", labelStyle.Render("Lineage")}
	for i, link := range chain {
		marker := "  "
		if link.Record.ResultID == rec.ResultID {
			marker = "▸ "
		}
		lines = append(lines, hintStyle.Render(fmt.Sprintf("%s%d. %s · %s",
			marker, i+1, link.Record.CreatedAt.Format("2006-01-02 15:04"), truncate(link.Body, 50))))
	}
	return lines
}

func (a *App) categoryTitle() string {
	if a.snap.Category == nil || strings.TrimSpace(a.snap.Category.Title) == "" {
		return "untitled category"
	}
	return a.snap.Category.Title
}

func friendlyKind(kind asyncop.Kind) string {
	switch kind {
	case asyncop.KindCategoryTitle:
		return "Generating category title"
	case asyncop.KindCategoryDescription:
		return "Generating category description"
	case asyncop.KindScaleTitle:
		return "Generating scale title"
	case asyncop.KindScaleDescription:
		return "Generating scale description"
	case asyncop.KindAnalysis:
		return "Running analysis"
	default:
		return string(kind)
	}
}

func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
