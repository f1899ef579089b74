// internal/tui/app.go
//
// This is the main TUI for assay. It uses bubbletea, which follows The Elm
// Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen
//
// The workflow machine is the single authority on what the walkthrough can
// do. Every key press becomes a workflow event; provider calls run as
// commands off the event loop and report back as messages, so completions
// travel through the same queue as key presses and the machine never sees
// concurrent input.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jcrafford/assay/internal/assessment"
	"github.com/jcrafford/assay/internal/asyncop"
	"github.com/jcrafford/assay/internal/config"
	"github.com/jcrafford/assay/internal/deck"
	"github.com/jcrafford/assay/internal/history"
	"github.com/jcrafford/assay/internal/logbook"
	"github.com/jcrafford/assay/internal/provider"
	"github.com/jcrafford/assay/internal/subject"
	"github.com/jcrafford/assay/internal/workflow"
)

// customPresetTitle labels the picker entry that opens a blank editor.
const customPresetTitle = "Write your own"

// operationFinishedMsg reports a provider call back into the event loop.
type operationFinishedMsg struct {
	id      string
	outcome asyncop.Outcome
}

// resultArchivedMsg reports the outcome of writing a result to .assay/results.
type resultArchivedMsg struct {
	path string
	err  error
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithProvider overrides the generation backend.
func WithProvider(p provider.Provider) AppOption {
	return func(a *App) {
		if p != nil {
			a.provider = p
		}
	}
}

// WithMachine overrides the workflow machine, letting tests inject
// deterministic clocks and ID sources.
func WithMachine(m *workflow.Machine) AppOption {
	return func(a *App) {
		if m != nil {
			a.machine = m
		}
	}
}

// menuItem implements list.Item for picker entries.
type menuItem struct {
	title string
	desc  string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

type formFocus int

const (
	focusTitle formFocus = iota
	focusDescription
)

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	config   *config.Config
	logbook  *logbook.Logbook
	machine  *workflow.Machine
	provider provider.Provider
	archive  *history.Archive

	decks    []deck.Deck
	subjects []subject.Agent
	subject  *subject.Agent

	snap workflow.Snapshot

	// UI components
	mainMenu     list.Model
	categoryMenu list.Model
	scaleMenu    list.Model
	titleInput   textinput.Model
	descInput    textarea.Model
	spin         spinner.Model
	focus        formFocus

	statusMsg    string
	lastArchived string
	browsing     bool
	browseIndex  int
	results      []history.Entry
	width        int
	height       int

	// cancels aborts the subprocess behind a pending operation. The machine
	// is told separately via a cancel event; this just stops wasting cycles.
	cancels map[string]context.CancelFunc
}

// NewApp creates a new App instance. offline forces the scripted provider
// even when a backend command is configured.
func NewApp(projectDir string, offline bool, opts ...AppOption) (*App, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	lb, err := logbook.Open(cfg.LogsDir())
	if err != nil {
		return nil, err
	}
	decks, err := deck.Catalog(cfg.DecksDir())
	if err != nil {
		return nil, err
	}
	subjects, err := subject.List(cfg.AgentsDir())
	if err != nil {
		return nil, err
	}

	session := assessment.NewSession()
	tracker := asyncop.NewTracker(asyncop.WithMaxAttempts(cfg.Provider().MaxAttempts))
	machine := workflow.NewMachine(session, tracker, workflow.WithLogger(lb))

	var backend provider.Provider
	switch {
	case offline || !cfg.Provider().Configured():
		backend = provider.NewScriptedProvider()
		lb.Info("Session opened with offline provider")
	default:
		p := cfg.Provider()
		backend = provider.NewCommandProvider(p.Command, p.Args...)
		lb.Info("Session opened with backend %s", p.Command)
	}

	app := &App{
		config:   cfg,
		logbook:  lb,
		machine:  machine,
		provider: backend,
		archive:  history.NewArchive(cfg.ResultsDir()),
		decks:    decks,
		subjects: subjects,
		cancels:  map[string]context.CancelFunc{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.snap = app.machine.Snapshot()
	app.buildMenus()
	app.buildInputs()
	return app, nil
}

func (a *App) buildMenus() {
	mainMenu := list.New(a.mainMenuItems(), list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "◇ ASSAY"
	mainMenu.SetShowStatusBar(false)
	mainMenu.SetFilteringEnabled(false)
	a.mainMenu = mainMenu

	categoryMenu := list.New(a.categoryItems(), list.NewDefaultDelegate(), 0, 0)
	categoryMenu.Title = "Pick a category"
	categoryMenu.SetShowStatusBar(false)
	categoryMenu.SetFilteringEnabled(false)
	a.categoryMenu = categoryMenu

	scaleMenu := list.New(a.scaleItems(), list.NewDefaultDelegate(), 0, 0)
	scaleMenu.Title = "Pick a scale"
	scaleMenu.SetShowStatusBar(false)
	scaleMenu.SetFilteringEnabled(false)
	a.scaleMenu = scaleMenu
}

func (a *App) buildInputs() {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 120
	a.titleInput = title

	desc := textarea.New()
	desc.Placeholder = "Description"
	desc.SetHeight(4)
	a.descInput = desc

	a.spin = spinner.New()
	a.spin.Spinner = spinner.Dot
}

func (a *App) mainMenuItems() []list.Item {
	items := []list.Item{
		menuItem{title: "New Assessment", desc: "Build a category and scales, then analyze"},
	}
	if a.subject != nil {
		items[0] = menuItem{
			title: "New Assessment",
			desc:  fmt.Sprintf("Assess %s", a.subject.Name),
		}
	}
	if len(a.subjects) > 0 {
		items = append(items, menuItem{
			title: "Choose Subject",
			desc:  fmt.Sprintf("Cycle through %d agent file(s)", len(a.subjects)),
		})
	}
	if len(a.decks) > 1 {
		items = append(items, menuItem{
			title: "Default Deck",
			desc:  fmt.Sprintf("Using %s; press enter to switch", a.config.DefaultDeck()),
		})
	}
	items = append(items,
		menuItem{title: "Browse Results", desc: "Past analyses under .assay/results"},
		menuItem{title: "Exit", desc: "Quit assay"},
	)
	return items
}

// orderedDecks returns the catalog with the configured default deck first, so
// its presets top both pickers.
func (a *App) orderedDecks() []deck.Deck {
	name := a.config.DefaultDeck()
	ordered := make([]deck.Deck, 0, len(a.decks))
	var rest []deck.Deck
	for _, d := range a.decks {
		if strings.EqualFold(d.Name, name) {
			ordered = append(ordered, d)
			continue
		}
		rest = append(rest, d)
	}
	return append(ordered, rest...)
}

func (a *App) categoryItems() []list.Item {
	var items []list.Item
	for _, d := range a.orderedDecks() {
		for _, preset := range d.Categories {
			items = append(items, menuItem{title: preset.Title, desc: preset.Description})
		}
	}
	items = append(items, menuItem{title: customPresetTitle, desc: "Start from a blank category"})
	return items
}

func (a *App) scaleItems() []list.Item {
	var items []list.Item
	for _, d := range a.orderedDecks() {
		for _, preset := range d.Scales {
			items = append(items, menuItem{title: preset.Title, desc: preset.Description})
		}
	}
	items = append(items, menuItem{title: customPresetTitle, desc: "Start from a blank scale"})
	return items
}

// Snapshot exposes the current workflow view, used by tests.
func (a *App) Snapshot() workflow.Snapshot {
	return a.snap
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.spin.Tick
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.mainMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-12))
		a.categoryMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-12))
		a.scaleMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-12))
		a.descInput.SetWidth(max(20, msg.Width-10))
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case operationFinishedMsg:
		delete(a.cancels, msg.id)
		return a, a.dispatch(workflow.Completed(msg.id, msg.outcome))

	case resultArchivedMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("Archive failed: %v", msg.err)
			a.logError("Archive failed: %v", msg.err)
		} else {
			a.lastArchived = msg.path
			a.logInfo("Result archived to %s", msg.path)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, a.routeToWidgets(msg)
}

// routeToWidgets forwards non-key messages to whichever widget is live.
func (a *App) routeToWidgets(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	switch a.snap.State {
	case workflow.StateIdle:
		a.mainMenu, cmd = a.mainMenu.Update(msg)
	case workflow.StateSelectingCategory:
		a.categoryMenu, cmd = a.categoryMenu.Update(msg)
	case workflow.StateSelectingScale:
		a.scaleMenu, cmd = a.scaleMenu.Update(msg)
	}
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// dispatch feeds one event to the machine and reacts to the new snapshot:
// guard rejections become status messages, started operations become
// provider commands, and fresh results are archived.
func (a *App) dispatch(ev workflow.Event) tea.Cmd {
	prevResult := a.snap.LastResult
	snap, err := a.machine.Dispatch(ev)
	a.snap = snap
	if err != nil {
		var violation *workflow.GuardViolation
		if errors.As(err, &violation) {
			a.statusMsg = violation.Reason
			return nil
		}
		var missing *workflow.NoSuchTransitionError
		if errors.As(err, &missing) {
			a.logWarn("Dropped %s in %s", missing.Event, missing.State)
			return nil
		}
		a.statusMsg = err.Error()
		return nil
	}
	a.syncInputs()

	var cmds []tea.Cmd
	if op := snap.StartedOperation; op != nil {
		cmds = append(cmds, a.launchOperation(*op), a.spin.Tick)
	}
	if result := snap.LastResult; result != nil && (prevResult == nil || prevResult.ID != result.ID) {
		cmds = append(cmds, a.archiveResult(*result))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// syncInputs pulls the staged entity back into the form widgets. Needed after
// a generation lands so the editor shows the new text.
func (a *App) syncInputs() {
	switch a.snap.State {
	case workflow.StateEditingCategory:
		if cat := a.snap.Category; cat != nil {
			a.titleInput.SetValue(cat.Title)
			a.descInput.SetValue(cat.Description)
		}
	case workflow.StateEditingScale:
		if sc := a.snap.StagedScale; sc != nil {
			a.titleInput.SetValue(sc.Title)
			a.descInput.SetValue(sc.Description)
		}
	}
}

// launchOperation runs the provider call for a started operation as a
// command. The context carries the configured deadline; cancel handles are
// kept so the user can abort the subprocess.
func (a *App) launchOperation(op asyncop.Operation) tea.Cmd {
	req := a.buildRequest(op.Kind)
	timeout := a.config.Provider().Timeout()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	a.cancels[op.ID] = cancel
	backend := a.provider
	a.logInfo("Operation %s started (%s, attempt %d)", op.ID, op.Kind, op.Attempt)
	return func() tea.Msg {
		defer cancel()
		resp, err := backend.Generate(ctx, req)
		if err != nil {
			return operationFinishedMsg{id: op.ID, outcome: classifyError(err)}
		}
		return operationFinishedMsg{id: op.ID, outcome: asyncop.Success(resp.Content)}
	}
}

func classifyError(err error) asyncop.Outcome {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return asyncop.Failed(asyncop.FailureTimeout, "provider call timed out")
	case errors.Is(err, context.Canceled):
		return asyncop.Failed(asyncop.FailureCancelled, "provider call cancelled")
	default:
		return asyncop.Failed(asyncop.FailureProvider, err.Error())
	}
}

func (a *App) buildRequest(kind asyncop.Kind) provider.Request {
	req := provider.Request{Operation: kind}
	if a.subject != nil {
		req.SubjectName = a.subject.Name
		req.SubjectRole = a.subject.Role
	}
	if cat := a.snap.Category; cat != nil {
		req.CategoryTitle = cat.Title
		req.CategoryDescription = cat.Description
	}
	if sc := a.snap.StagedScale; sc != nil {
		req.ScaleTitle = sc.Title
		req.ScaleDescription = sc.Description
	}
	if kind == asyncop.KindAnalysis && len(a.snap.Scales) > 0 {
		// The analysis assesses against the first committed scale.
		req.ScaleTitle = a.snap.Scales[0].Title
		req.ScaleDescription = a.snap.Scales[0].Description
	}
	return req
}

func (a *App) archiveResult(result assessment.Result) tea.Cmd {
	var category assessment.Category
	if a.snap.Category != nil {
		category = *a.snap.Category
	}
	var scale assessment.Scale
	for _, sc := range a.snap.Scales {
		if sc.ID == result.ScaleID {
			scale = sc
			break
		}
	}
	subjectName := ""
	if a.subject != nil {
		subjectName = a.subject.Name
	}
	archive := a.archive
	return func() tea.Msg {
		path, err := archive.Save(result, category, scale, subjectName)
		return resultArchivedMsg{path: path, err: err}
	}
}

// cancelPending tells the machine to abandon the pending call, then kills
// the subprocess behind it.
func (a *App) cancelPending() tea.Cmd {
	pending := a.snap.PendingOperation
	cmd := a.dispatch(workflow.Cancel())
	if pending != nil {
		if cancel, ok := a.cancels[pending.ID]; ok {
			cancel()
			delete(a.cancels, pending.ID)
		}
		a.logInfo("Operation %s cancelled", pending.ID)
	}
	return cmd
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// View renders the current state to a string.
func (a *App) View() string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		MarginBottom(1).
		Render("◇ ASSAY")
	sections := []string{header, a.renderState()}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render("LOG")
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
