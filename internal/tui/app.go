// Package tui provides the interactive time-clock board for crewclock.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/crewclock/internal/assistant"
	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/timeclock"
)

var (
	// Colors
	primaryColor   = lipgloss.Color("#2563EB")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	onlineStyle  = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(errorColor)
	waitingStyle = lipgloss.NewStyle().Foreground(warningColor)
)

// noticeTTL is how long a notification stays on screen.
const noticeTTL = 4 * time.Second

// Service is the time-clock logic the board drives.
type Service interface {
	Load(ctx context.Context) (*timeclock.Board, error)
	ClockAction(ctx context.Context, kind models.ActionKind, workerID, projectID int) (models.Outcome, error)
	Sync(ctx context.Context) models.SyncReport
	Drop(ctx context.Context, localID string) (models.PendingAction, error)
}

// Options configures the board.
type Options struct {
	Service   Service
	Assistant *assistant.Assistant
	// Online delivers back-online signals; each one triggers a sync.
	Online <-chan struct{}
	// IsOnline reports the latest connectivity check.
	IsOnline func() bool
	// Username is shown in the header when signed in.
	Username string
	// Refresh is the auto-reload interval; zero disables it.
	Refresh time.Duration
	// Timeout bounds each backend round trip started from the board.
	Timeout time.Duration
}

type mode int

const (
	modeWorkers mode = iota
	modeEntries
	modePending
	modeAsk
)

var modeNames = []string{"Workers", "Entries", "Pending", "Ask"}

// App is the main TUI application model.
type App struct {
	opts        Options
	board       *timeclock.Board
	loading     bool
	loadErr     error
	mode        mode
	workerIdx   int
	pendingIdx  int
	projectIdx  int          // -1 when no project is selected
	busy        map[int]bool // workers with a clock action in flight
	input       textinput.Model
	suggestions *Suggestions
	transcript  []string
	notice      string
	noticeErr   bool
	noticeSeq   int
	width       int
	height      int
}

type (
	boardLoadedMsg struct{ board *timeclock.Board }
	loadFailedMsg  struct{ err error }
	actionDoneMsg  struct {
		kind     models.ActionKind
		workerID int
		worker   string
		outcome  models.Outcome
		err      error
	}
	syncDoneMsg    struct{ report models.SyncReport }
	dropDoneMsg    struct{ err error }
	onlineMsg      struct{}
	tickMsg        struct{}
	clearNoticeMsg struct{ seq int }
)

// New creates a new board.
func New(opts Options) *App {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Assistant == nil {
		opts.Assistant = assistant.New(time.Local)
	}

	ti := textinput.New()
	ti.Placeholder = "/sync | /project <name> | /drop <id> | ask a question"
	ti.CharLimit = 256
	ti.Width = 80

	return &App{
		opts:        opts,
		loading:     true,
		projectIdx:  -1,
		busy:        make(map[int]bool),
		input:       ti,
		suggestions: NewSuggestions(),
		width:       80,
		height:      24,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.loadBoard(),
		a.waitForOnline(),
		a.tickCmd(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.input.Focused() {
			return a.updateInput(msg)
		}
		return a.updateKeys(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 6

	case boardLoadedMsg:
		a.loading = false
		a.loadErr = nil
		a.board = msg.board
		a.clampSelection()

	case loadFailedMsg:
		a.loading = false
		a.loadErr = msg.err

	case actionDoneMsg:
		delete(a.busy, msg.workerID)
		notice := timeclock.ActionNotice(msg.kind, msg.outcome, msg.err)
		failed := msg.err != nil
		if msg.outcome == models.OutcomeSynced && msg.worker != "" {
			notice = fmt.Sprintf("%s %s", msg.worker, strings.ToLower(notice))
		}
		return a, tea.Batch(a.notify(notice, failed), a.loadBoard())

	case syncDoneMsg:
		failed := msg.report.StillPending > 0
		return a, tea.Batch(a.notify(timeclock.SyncNotice(msg.report), failed), a.loadBoard())

	case dropDoneMsg:
		if msg.err != nil {
			return a, a.notify("Error: "+msg.err.Error(), true)
		}
		return a, tea.Batch(a.notify("Dropped queued action.", false), a.loadBoard())

	case onlineMsg:
		return a, tea.Batch(a.syncCmd(), a.waitForOnline())

	case tickMsg:
		return a, tea.Batch(a.loadBoard(), a.tickCmd())

	case clearNoticeMsg:
		if msg.seq == a.noticeSeq {
			a.notice = ""
			a.noticeErr = false
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return a, tea.Quit

	case "tab":
		a.mode = (a.mode + 1) % mode(len(modeNames))
		if a.mode == modeAsk {
			a.input.SetValue("")
			return a, a.input.Focus()
		}

	case "shift+tab":
		a.mode = (a.mode + mode(len(modeNames)) - 1) % mode(len(modeNames))

	case "/":
		a.input.SetValue("/")
		a.input.CursorEnd()
		a.suggestions.Update("/")
		return a, a.input.Focus()

	case "up", "k":
		switch a.mode {
		case modeWorkers:
			if a.workerIdx > 0 {
				a.workerIdx--
			}
		case modePending:
			if a.pendingIdx > 0 {
				a.pendingIdx--
			}
		}

	case "down", "j":
		switch a.mode {
		case modeWorkers:
			if a.board != nil && a.workerIdx < len(a.board.Workers)-1 {
				a.workerIdx++
			}
		case modePending:
			if a.board != nil && a.pendingIdx < len(a.board.Pending)-1 {
				a.pendingIdx++
			}
		}

	case "p":
		a.cycleProject()

	case "s":
		return a, a.syncCmd()

	case "r":
		return a, a.loadBoard()

	case "d":
		if a.mode == modePending && a.board != nil && len(a.board.Pending) > 0 {
			return a, a.dropCmd(a.board.Pending[a.pendingIdx].Action.LocalID)
		}

	case "enter", " ":
		if a.mode == modeWorkers {
			return a, a.clockSelected()
		}
	}
	return a, nil
}

func (a *App) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit

	case "esc":
		a.input.Blur()
		a.input.SetValue("")
		a.suggestions.Update("")
		if a.mode == modeAsk {
			a.mode = modeWorkers
		}
		return a, nil

	case "tab":
		if text, ok := a.suggestions.Accept(); ok {
			a.input.SetValue(text)
			a.input.CursorEnd()
			return a, nil
		}
		if a.mode == modeAsk {
			a.input.Blur()
			a.mode = modeWorkers
		}
		return a, nil

	case "up":
		if a.suggestions.IsVisible() {
			a.suggestions.Prev()
			return a, nil
		}

	case "down":
		if a.suggestions.IsVisible() {
			a.suggestions.Next()
			return a, nil
		}

	case "enter":
		if text, ok := a.suggestions.Accept(); ok {
			a.input.SetValue(text)
			a.input.CursorEnd()
			return a, nil
		}
		line := strings.TrimSpace(a.input.Value())
		a.input.SetValue("")
		if a.mode != modeAsk {
			a.input.Blur()
		}
		if line == "" {
			return a, nil
		}
		return a, a.executeCommand(line)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.suggestions.Update(a.input.Value())
	if a.board != nil && strings.HasPrefix(a.input.Value(), "@") {
		a.suggestions.SetNames(a.workerNames(), a.projectNames())
	}
	return a, cmd
}

// executeCommand runs a command-bar line. Plain text is a question for the
// assistant.
func (a *App) executeCommand(line string) tea.Cmd {
	if !strings.HasPrefix(line, "/") {
		return a.ask(line)
	}

	parts := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(parts) == 0 {
		return nil
	}
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "/"), parts[0]))

	switch parts[0] {
	case "sync":
		return a.syncCmd()
	case "refresh":
		return a.loadBoard()
	case "project":
		if a.board == nil {
			return a.notify("Board not loaded yet.", true)
		}
		if arg == "" {
			a.projectIdx = -1
			return a.notify("Project cleared.", false)
		}
		p, err := timeclock.FindProject(a.board.Projects, arg)
		if err != nil {
			return a.notify("Error: "+err.Error(), true)
		}
		for i := range a.board.Projects {
			if a.board.Projects[i].ID == p.ID {
				a.projectIdx = i
			}
		}
		return a.notify("Project: "+p.Name, false)
	case "drop":
		if arg == "" {
			return a.notify("Usage: /drop <local-id>", true)
		}
		return a.dropCmd(arg)
	case "ask":
		if arg == "" {
			return a.notify("Usage: /ask <question>", true)
		}
		return a.ask(arg)
	default:
		return a.notify("Unknown command: /"+parts[0], true)
	}
}

func (a *App) ask(question string) tea.Cmd {
	a.mode = modeAsk
	var d assistant.Data
	if a.board != nil {
		d = assistant.Data{
			Workers:  workersOf(a.board),
			Projects: a.board.Projects,
			Entries:  a.board.Entries,
		}
	}
	answer := a.opts.Assistant.Answer(question, d)
	a.transcript = append(a.transcript, "> "+question, answer)
	return a.input.Focus()
}

func (a *App) clockSelected() tea.Cmd {
	if a.board == nil || len(a.board.Workers) == 0 {
		return nil
	}
	row := a.board.Workers[a.workerIdx]
	project := a.selectedProject()
	if project == nil {
		return a.notify(timeclock.ActionNotice(row.Action, "", timeclock.ErrNoProject), true)
	}
	if a.busy[row.Worker.ID] {
		return nil
	}
	a.busy[row.Worker.ID] = true

	svc, timeout := a.opts.Service, a.opts.Timeout
	kind, workerID, projectID, name := row.Action, row.Worker.ID, project.ID, row.Worker.Name
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		outcome, err := svc.ClockAction(ctx, kind, workerID, projectID)
		return actionDoneMsg{kind: kind, workerID: workerID, worker: name, outcome: outcome, err: err}
	}
}

func (a *App) loadBoard() tea.Cmd {
	svc, timeout := a.opts.Service, a.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		board, err := svc.Load(ctx)
		if err != nil {
			return loadFailedMsg{err}
		}
		return boardLoadedMsg{board}
	}
}

func (a *App) syncCmd() tea.Cmd {
	svc := a.opts.Service
	return func() tea.Msg {
		return syncDoneMsg{svc.Sync(context.Background())}
	}
}

func (a *App) dropCmd(localID string) tea.Cmd {
	svc := a.opts.Service
	return func() tea.Msg {
		_, err := svc.Drop(context.Background(), localID)
		return dropDoneMsg{err}
	}
}

func (a *App) waitForOnline() tea.Cmd {
	ch := a.opts.Online
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return onlineMsg{}
	}
}

func (a *App) tickCmd() tea.Cmd {
	if a.opts.Refresh <= 0 {
		return nil
	}
	return tea.Tick(a.opts.Refresh, func(time.Time) tea.Msg { return tickMsg{} })
}

func (a *App) notify(text string, isErr bool) tea.Cmd {
	a.noticeSeq++
	a.notice = text
	a.noticeErr = isErr
	seq := a.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq} })
}

func (a *App) cycleProject() {
	if a.board == nil || len(a.board.Projects) == 0 {
		return
	}
	a.projectIdx++
	if a.projectIdx >= len(a.board.Projects) {
		a.projectIdx = -1
	}
}

func (a *App) selectedProject() *models.Project {
	if a.board == nil || a.projectIdx < 0 || a.projectIdx >= len(a.board.Projects) {
		return nil
	}
	return &a.board.Projects[a.projectIdx]
}

func (a *App) clampSelection() {
	if a.workerIdx >= len(a.board.Workers) {
		a.workerIdx = max(0, len(a.board.Workers)-1)
	}
	if a.pendingIdx >= len(a.board.Pending) {
		a.pendingIdx = max(0, len(a.board.Pending)-1)
	}
	if a.projectIdx >= len(a.board.Projects) {
		a.projectIdx = -1
	}
}

func (a *App) workerNames() []string {
	names := make([]string, len(a.board.Workers))
	for i, r := range a.board.Workers {
		names[i] = r.Worker.Name
	}
	return names
}

func (a *App) projectNames() []string {
	names := make([]string, len(a.board.Projects))
	for i, p := range a.board.Projects {
		names[i] = p.Name
	}
	return names
}

func workersOf(b *timeclock.Board) []models.Worker {
	out := make([]models.Worker, len(b.Workers))
	for i, r := range b.Workers {
		out[i] = r.Worker
	}
	return out
}
