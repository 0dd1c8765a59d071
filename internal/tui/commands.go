package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clive/jira-tui/internal/catalog"
	"github.com/clive/jira-tui/internal/model"
	"github.com/clive/jira-tui/internal/session"
)

// Session messages

type restoredMsg struct {
	snap session.Snapshot
	err  error
}

type authDoneMsg struct {
	snap     session.Snapshot
	err      error
	register bool
	username string
}

type loggedOutMsg struct{}

// userRefreshedMsg follows a 401 from any data call
type userRefreshedMsg struct {
	gen  uint64
	user model.User
	err  error
}

// Data messages carry the session generation they were requested under.
// Update drops any whose generation is no longer current.

type projectsLoadedMsg struct {
	gen      uint64
	projects []model.Project
	err      error
}

type usersLoadedMsg struct {
	gen     uint64
	project string
	users   []model.Assignee
	err     error
}

type subtasksLoadedMsg struct {
	gen   uint64
	items []model.SubtaskDefinition
	err   error
	op    string // "" for a plain load, otherwise the mutation name
}

type batchDoneMsg struct {
	gen     uint64
	project string
	result  model.BatchResult
	err     error
}

type contentDoneMsg struct {
	gen     uint64
	project string
	draftID string
	created model.CreatedTask
	err     error
}

type jiraSavedMsg struct {
	gen  uint64
	user model.User
	err  error
}

type clipboardMsg struct {
	count int
	err   error
}

type projectSavedMsg struct {
	err error
}

type spinnerTickMsg struct{}

// Spinner animation frames
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func spinnerTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m Model) restoreCmd() tea.Cmd {
	mgr := m.opts.Session
	return func() tea.Msg {
		snap, err := mgr.Restore(context.Background())
		return restoredMsg{snap: snap, err: err}
	}
}

func (m Model) loginCmd(ctx context.Context, username, password string) tea.Cmd {
	mgr := m.opts.Session
	return func() tea.Msg {
		snap, err := mgr.Login(ctx, username, password)
		return authDoneMsg{snap: snap, err: err, username: username}
	}
}

func (m Model) registerCmd(ctx context.Context, reg model.Registration) tea.Cmd {
	mgr := m.opts.Session
	return func() tea.Msg {
		snap, err := mgr.Register(ctx, reg)
		return authDoneMsg{snap: snap, err: err, register: true, username: reg.Username}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	mgr := m.opts.Session
	return func() tea.Msg {
		mgr.Logout(context.Background())
		return loggedOutMsg{}
	}
}

func (m Model) refreshUserCmd() tea.Cmd {
	mgr, gen := m.opts.Session, m.gen
	return func() tea.Msg {
		user, err := mgr.RefreshUser(context.Background())
		return userRefreshedMsg{gen: gen, user: user, err: err}
	}
}

func (m Model) loadProjectsCmd(force bool) tea.Cmd {
	provider, gen := m.opts.Tracker, m.gen
	return func() tea.Msg {
		if force {
			provider.ClearCache()
		}
		projects, err := provider.Projects(context.Background())
		return projectsLoadedMsg{gen: gen, projects: projects, err: err}
	}
}

func (m Model) loadUsersCmd(project string) tea.Cmd {
	provider, gen := m.opts.Tracker, m.gen
	return func() tea.Msg {
		users, err := provider.Users(context.Background(), project)
		return usersLoadedMsg{gen: gen, project: project, users: users, err: err}
	}
}

func (m Model) loadSubtasksCmd(reload bool) tea.Cmd {
	cat, gen := m.opts.Catalog, m.gen
	return func() tea.Msg {
		var items []model.SubtaskDefinition
		var err error
		if reload {
			items, err = cat.Reload(context.Background())
		} else {
			items, err = cat.List(context.Background())
		}
		return subtasksLoadedMsg{gen: gen, items: items, err: err}
	}
}

// mutateSubtasksCmd runs a catalog mutation; the catalog re-fetches afterwards
func (m Model) mutateSubtasksCmd(op string, fn func(ctx context.Context, c *catalog.Catalog) ([]model.SubtaskDefinition, error)) tea.Cmd {
	cat, gen := m.opts.Catalog, m.gen
	return func() tea.Msg {
		items, err := fn(context.Background(), cat)
		return subtasksLoadedMsg{gen: gen, items: items, err: err, op: op}
	}
}

func (m Model) submitCmd(project string, drafts []model.TaskDraft) tea.Cmd {
	submitter, gen := m.opts.Submitter, m.gen
	return func() tea.Msg {
		result, err := submitter.Submit(context.Background(), project, drafts)
		return batchDoneMsg{gen: gen, project: project, result: result, err: err}
	}
}

func (m Model) contentCmd(project string, draft model.TaskDraft) tea.Cmd {
	submitter, gen := m.opts.Submitter, m.gen
	return func() tea.Msg {
		created, err := submitter.SubmitSingle(context.Background(), project, draft)
		return contentDoneMsg{gen: gen, project: project, draftID: draft.ID, created: created, err: err}
	}
}

func (m Model) saveJiraCmd(creds model.JiraCredentials) tea.Cmd {
	mgr, gen := m.opts.Session, m.gen
	return func() tea.Msg {
		user, err := mgr.UpdateJiraCredentials(context.Background(), creds)
		return jiraSavedMsg{gen: gen, user: user, err: err}
	}
}

func (m Model) copyCmd(urls []string) tea.Cmd {
	copyText := m.opts.CopyText
	return func() tea.Msg {
		return clipboardMsg{count: len(urls), err: copyText(strings.Join(urls, "\n"))}
	}
}

func (m Model) saveProjectCmd(key string) tea.Cmd {
	save := m.opts.SaveProject
	if save == nil {
		return nil
	}
	return func() tea.Msg {
		return projectSavedMsg{err: save(key)}
	}
}
