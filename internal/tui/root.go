// Package tui is the interactive front end: log in, pick a project, write
// tasks and create them in Jira.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/batch"
	"github.com/clive/jira-tui/internal/catalog"
	"github.com/clive/jira-tui/internal/config"
	"github.com/clive/jira-tui/internal/logging"
	"github.com/clive/jira-tui/internal/model"
	"github.com/clive/jira-tui/internal/session"
	"github.com/clive/jira-tui/internal/tracker"
)

// ViewMode represents the current screen
type ViewMode int

const (
	ViewLoading   ViewMode = iota // Restoring the stored session
	ViewAuth                      // Login or register
	ViewProjects                  // Project picker
	ViewWorkspace                 // Task form
	ViewResults                   // Outcome of the last submission
	ViewSubtasks                  // Subtask catalog manager
	ViewSettings                  // Account and Jira credentials
	ViewHelp                      // Help overlay
)

// Options wires the model to its services
type Options struct {
	Config    *config.Config
	Logger    *logging.Logger
	Session   *session.Manager
	Catalog   *catalog.Catalog
	Tracker   tracker.Provider
	Submitter *batch.Submitter

	// SaveProject remembers the chosen project between runs. Optional.
	SaveProject func(key string) error
	// CopyText writes to the system clipboard. Defaults to clipboard.WriteAll.
	CopyText func(text string) error
}

// Model is the root Bubble Tea model
type Model struct {
	width  int
	height int
	ready  bool

	viewMode ViewMode
	prevMode ViewMode // restored when help closes

	opts   Options
	keys   KeyMap
	logger *logging.Logger

	// Session
	gen        uint64 // generation the loaded data belongs to
	user       model.User
	auth       AuthForm
	authCancel context.CancelFunc

	// Projects
	projects        []model.Project
	projectIdx      int
	projectsLoading bool
	projectsErr     string
	project         model.Project
	mode            config.WorkflowMode
	users           []model.Assignee

	// Subtask catalog
	subtasks       []model.SubtaskDefinition
	subtasksLoaded bool
	subtasksErr    string
	manager        subtaskManager

	ws         workspace
	submitting bool
	results    results
	settings   settingsForm

	status    string
	statusErr bool

	debug        DebugPanel
	spinnerIndex int
}

// NewRootModel creates the root model. It starts by restoring the stored session.
func NewRootModel(opts Options) Model {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger()
	}
	if opts.CopyText == nil {
		opts.CopyText = clipboard.WriteAll
	}

	return Model{
		viewMode: ViewLoading,
		opts:     opts,
		keys:     DefaultKeyMap(),
		logger:   opts.Logger.WithComponent("tui"),
		auth:     NewAuthForm(),
		ws:       newWorkspace(),
		manager:  newSubtaskManager(),
		settings: newSettingsForm(),
		debug:    NewDebugPanel(opts.Config.TUI.Debug),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		spinnerTickCmd(),
		m.restoreCmd(),
	)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
	if isErr {
		m.debug.AddEvent("error", text)
	}
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusErr = false
}

// stale reports whether a data message belongs to an older session
func (m *Model) stale(gen uint64, kind string) bool {
	if gen == m.gen {
		return false
	}
	m.debug.AddEvent("drop", fmt.Sprintf("%s from generation %d (current %d)", kind, gen, m.gen))
	return true
}

// failed records a data call error and, for a 401, re-checks the session
func (m *Model) failed(prefix string, err error) tea.Cmd {
	m.setStatus(prefix+": "+api.Message(err), true)
	if api.IsUnauthorized(err) {
		return m.refreshUserCmd()
	}
	return nil
}

// enterSession switches to the logged-in screens for snap
func (m *Model) enterSession(snap session.Snapshot) tea.Cmd {
	m.gen = snap.Generation
	m.user = snap.User
	m.auth = m.auth.Reset()
	m.settings = m.settings.Load(snap.User)
	m.viewMode = ViewProjects
	m.projectsLoading = true
	m.debug.AddEvent("session", fmt.Sprintf("authenticated as %s (generation %d)", snap.User.Username, snap.Generation))
	return m.loadProjectsCmd(false)
}

// leaveSession drops everything tied to the previous user
func (m *Model) leaveSession(notice string) {
	m.gen = m.opts.Session.Generation()
	m.user = model.User{}
	m.projects = nil
	m.projectIdx = 0
	m.project = model.Project{}
	m.users = nil
	m.subtasks = nil
	m.subtasksLoaded = false
	m.subtasksErr = ""
	m.submitting = false
	m.results = results{}
	m.ws = newWorkspace()
	m.manager = newSubtaskManager()
	m.settings = newSettingsForm()
	m.opts.Catalog.Reset()
	m.auth = m.auth.Reset()
	m.auth.Notice = notice
	m.viewMode = ViewAuth
	m.clearStatus()
}

// selectProject opens the workspace for p
func (m *Model) selectProject(p model.Project) tea.Cmd {
	changed := p.Key != m.project.Key
	m.project = p
	m.mode = m.opts.Config.ModeForProject(p.Key)
	m.viewMode = ViewWorkspace
	m.clearStatus()
	m.debug.AddEvent("project", p.Key+" ("+string(m.mode)+")")

	if !changed {
		return nil
	}
	m.users = nil
	m.ws = newWorkspace()
	if m.mode == config.ModeInstagram && m.subtasksLoaded {
		m.ws.form.SetDefaultSubtasks(model.SubtaskIDs(m.subtasks))
	}
	m.ws.load()

	cmds := []tea.Cmd{m.loadUsersCmd(p.Key), m.saveProjectCmd(p.Key)}
	if m.mode == config.ModeInstagram && !m.subtasksLoaded {
		cmds = append(cmds, m.loadSubtasksCmd(false))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.ws.resize(msg.Width)
		return m, nil

	case spinnerTickMsg:
		m.spinnerIndex++
		return m, spinnerTickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case restoredMsg:
		if msg.err != nil && !errors.Is(msg.err, session.ErrStale) {
			m.logger.Error("restore session failed", "error", msg.err)
		}
		if errors.Is(msg.err, session.ErrStale) && m.viewMode != ViewLoading {
			return m, nil
		}
		if msg.snap.IsAuthenticated() {
			return m, m.enterSession(msg.snap)
		}
		m.gen = msg.snap.Generation
		m.viewMode = ViewAuth
		return m, nil

	case authDoneMsg:
		return m.handleAuthDone(msg)

	case loggedOutMsg:
		m.leaveSession("Logged out")
		return m, nil

	case userRefreshedMsg:
		if m.stale(msg.gen, "user") {
			return m, nil
		}
		if msg.err != nil {
			if errors.Is(msg.err, session.ErrStale) {
				return m, nil
			}
			m.leaveSession("Session expired, please log in again")
			return m, nil
		}
		m.user = msg.user
		return m, nil

	case projectsLoadedMsg:
		if m.stale(msg.gen, "projects") {
			return m, nil
		}
		m.projectsLoading = false
		if msg.err != nil {
			m.projectsErr = api.Message(msg.err)
			return m, m.failed("Loading projects failed", msg.err)
		}
		m.projectsErr = ""
		m.projects = msg.projects
		m.debug.AddEvent("projects", fmt.Sprintf("%d loaded", len(msg.projects)))
		if m.projectIdx >= len(m.projects) {
			m.projectIdx = 0
		}
		// Jump straight to the remembered project on first load
		if m.project.Key == "" && m.viewMode == ViewProjects {
			for i, p := range m.projects {
				if p.Key == m.opts.Config.TUI.LastProject {
					m.projectIdx = i
					return m, m.selectProject(p)
				}
			}
		}
		return m, nil

	case usersLoadedMsg:
		if m.stale(msg.gen, "users") || msg.project != m.project.Key {
			return m, nil
		}
		if msg.err != nil {
			return m, m.failed("Loading assignees failed", msg.err)
		}
		m.users = msg.users
		return m, nil

	case subtasksLoadedMsg:
		if m.stale(msg.gen, "subtasks") {
			return m, nil
		}
		return m.handleSubtasksLoaded(msg)

	case batchDoneMsg:
		if m.stale(msg.gen, "batch") {
			return m, nil
		}
		return m.handleBatchDone(msg)

	case contentDoneMsg:
		if m.stale(msg.gen, "content") {
			return m, nil
		}
		return m.handleContentDone(msg)

	case jiraSavedMsg:
		if m.stale(msg.gen, "jira") {
			return m, nil
		}
		m.settings.Busy = false
		if msg.err != nil {
			m.settings.Error = api.Message(msg.err)
			if api.IsUnauthorized(msg.err) {
				m.leaveSession("Session expired, please log in again")
			}
			return m, nil
		}
		m.user = msg.user
		m.settings = m.settings.Load(msg.user)
		m.settings.Notice = "Jira credentials saved"
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.setStatus("Copy failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Copied %d link(s) to the clipboard", msg.count), false)
		return m, nil

	case projectSavedMsg:
		if msg.err != nil {
			m.logger.Warn("save last project failed", "error", msg.err)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleAuthDone(msg authDoneMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, session.ErrStale) {
		m.debug.AddEvent("drop", "superseded auth attempt")
		return m, nil
	}
	if m.authCancel != nil {
		m.authCancel()
		m.authCancel = nil
	}
	m.auth.Busy = false

	switch {
	case msg.err == nil:
		return m, m.enterSession(msg.snap)
	case errors.Is(msg.err, session.ErrAutoLoginFailed):
		m.gen = msg.snap.Generation
		m.auth = m.auth.PrefillLogin(msg.username)
		m.auth.Notice = "Account created. Log in to continue."
		return m, nil
	default:
		m.gen = msg.snap.Generation
		m.auth.Error = api.Message(msg.err)
		m.auth.Notice = ""
		return m, nil
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.authCancel != nil {
			m.authCancel()
		}
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Debug) {
		m.debug.Toggle()
		return m, nil
	}

	switch m.viewMode {
	case ViewLoading:
		return m, nil

	case ViewAuth:
		if m.auth.Busy && key.Matches(msg, m.keys.Escape) {
			if !m.opts.Session.Cancel() {
				// already committed; its authDoneMsg is on the way
				return m, nil
			}
			if m.authCancel != nil {
				m.authCancel()
				m.authCancel = nil
			}
			m.gen = m.opts.Session.Generation()
			m.auth.Busy = false
			m.auth.Notice = "Cancelled"
			return m, nil
		}
		var cmd tea.Cmd
		var action authAction
		m.auth, cmd, action = m.auth.HandleKey(msg, m.keys)
		if action != authSubmit {
			return m, cmd
		}
		ctx, cancel := context.WithCancel(context.Background())
		m.authCancel = cancel
		if m.auth.Mode == AuthRegister {
			return m, m.registerCmd(ctx, m.auth.Registration())
		}
		return m, m.loginCmd(ctx, m.auth.Username(), m.auth.Password())

	case ViewHelp:
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Escape) {
			m.viewMode = m.prevMode
		}
		return m, nil
	}

	// Global shortcuts for logged-in screens. Editing subtasks and settings
	// forms take priority so typed text is not swallowed.
	if !m.manager.editing && !m.settings.editing {
		switch {
		case key.Matches(msg, m.keys.Help):
			m.prevMode = m.viewMode
			m.viewMode = ViewHelp
			return m, nil
		case key.Matches(msg, m.keys.Logout):
			return m, m.logoutCmd()
		case key.Matches(msg, m.keys.Projects):
			m.viewMode = ViewProjects
			return m, nil
		case key.Matches(msg, m.keys.Subtasks):
			m.viewMode = ViewSubtasks
			if !m.subtasksLoaded {
				return m, m.loadSubtasksCmd(false)
			}
			return m, nil
		case key.Matches(msg, m.keys.Settings):
			m.settings = m.settings.Load(m.user)
			m.viewMode = ViewSettings
			return m, nil
		}
	}

	switch m.viewMode {
	case ViewProjects:
		return m.handleProjectsKey(msg)
	case ViewWorkspace:
		return m.handleWorkspaceKey(msg)
	case ViewResults:
		return m.handleResultsKey(msg)
	case ViewSubtasks:
		return m.handleSubtasksKey(msg)
	case ViewSettings:
		return m.handleSettingsKey(msg)
	}
	return m, nil
}

// back returns to the workspace if a project is open, else the picker
func (m *Model) back() {
	if m.project.Key != "" {
		m.viewMode = ViewWorkspace
	} else {
		m.viewMode = ViewProjects
	}
}

// View renders the current screen
func (m Model) View() string {
	spinner := spinnerFrames[m.spinnerIndex%len(spinnerFrames)]

	var body string
	switch m.viewMode {
	case ViewLoading:
		body = center(m.width, m.height, PanelStyle.Render(brand("")+"\n\n"+WarningStyle.Render(spinner+" Restoring session...")))
	case ViewAuth:
		body = m.auth.View(m.width, m.height, spinner)
	case ViewHelp:
		body = m.helpView()
	default:
		if !m.ready {
			return "Loading..."
		}
		body = m.frame(spinner)
	}

	if m.debug.IsEnabled() && m.ready {
		panel := m.debug.Render(m.width, 10)
		return lipgloss.JoinVertical(lipgloss.Left, body, panel)
	}
	return body
}

// frame wraps logged-in screens with header and status bar
func (m Model) frame(spinner string) string {
	var content string
	switch m.viewMode {
	case ViewProjects:
		content = m.projectsView(spinner)
	case ViewWorkspace:
		content = m.workspaceView(spinner)
	case ViewResults:
		content = m.resultsView()
	case ViewSubtasks:
		content = m.subtasksView(spinner)
	case ViewSettings:
		content = m.settingsView(spinner)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		content,
		m.renderStatusBar(spinner),
	)
}

func (m Model) renderHeader() string {
	var info string
	if m.project.Key != "" {
		info = SubtitleStyle.Render(" · " + m.project.Label())
		if m.mode == config.ModeInstagram {
			info += lipgloss.NewStyle().Foreground(ColorMagenta).Render(" · " + m.mode.Info().Name)
		}
	}
	userInfo := ""
	if m.user.Username != "" {
		userInfo = DimStyle.Render("  " + m.user.DisplayName())
	}
	return lipgloss.NewStyle().
		PaddingLeft(1).
		Width(m.width).
		Render(brand("")+info+userInfo) + "\n"
}

func (m Model) renderStatusBar(spinner string) string {
	var status string
	switch {
	case m.submitting:
		status = StatusBusyStyle.Render(spinner + " Creating tasks")
	case m.projectsLoading:
		status = StatusBusyStyle.Render(spinner + " Loading")
	default:
		status = StatusIdleStyle.Render("○ Ready")
	}

	if m.status != "" {
		style := SuccessStyle
		if m.statusErr {
			style = ErrorStyle
		}
		status += DimStyle.Render(" │ ") + style.Render(m.status)
	}

	mutedStyle := lipgloss.NewStyle().Foreground(ColorFgMuted)
	keyStyle := lipgloss.NewStyle().Foreground(ColorFgPrimary)
	hints := []string{"f1 help", "ctrl+p projects", "ctrl+b subtasks", "ctrl+o settings", "ctrl+c quit"}
	var hint strings.Builder
	for _, h := range hints {
		k, desc, _ := strings.Cut(h, " ")
		hint.WriteString(mutedStyle.Render(" │ ") + keyStyle.Render(k) + mutedStyle.Render(" "+desc))
	}

	return StatusBarStyle.Render(status + hint.String())
}

func (m Model) helpView() string {
	var b strings.Builder
	b.WriteString(HelpTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")
	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(HelpKeyStyle.Render(h.Key) + HelpDescStyle.Render(h.Desc) + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(DimStyle.Render("Subtasks screen: a add · e edit · d delete · K/J move · r reload"))
	b.WriteString("\n\n")
	b.WriteString(HelpDescStyle.Render("Press f1 or Esc to close"))

	return center(m.width, m.height, PanelStyle.Render(b.String()))
}
