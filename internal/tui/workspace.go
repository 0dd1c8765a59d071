package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/batch"
	"github.com/clive/jira-tui/internal/config"
	"github.com/clive/jira-tui/internal/model"
)

type wsField int

const (
	wsText wsField = iota
	wsDescription
	wsAssignee
	wsSubtasks
)

// workspace is the task form. The single editor input edits whichever text
// field has focus and is written back to the form when focus moves.
type workspace struct {
	form      *batch.Form
	row       int
	field     wsField
	editor    textinput.Model
	subCursor int
}

func newWorkspace() workspace {
	editor := textinput.New()
	editor.Prompt = ""
	editor.CharLimit = 255
	editor.Width = 60

	ws := workspace{form: batch.NewForm(nil), editor: editor}
	ws.load()
	return ws
}

func (ws *workspace) resize(width int) {
	w := width - 24
	if w < 20 {
		w = 20
	}
	ws.editor.Width = w
}

func (ws *workspace) current() model.TaskDraft {
	return ws.form.At(ws.row)
}

// commit writes the editor back into the focused draft
func (ws *workspace) commit() {
	id := ws.current().ID
	switch ws.field {
	case wsText:
		_ = ws.form.SetText(id, ws.editor.Value())
	case wsDescription:
		_ = ws.form.SetDescription(id, ws.editor.Value())
	}
}

// load points the editor at the focused field
func (ws *workspace) load() {
	if ws.row >= ws.form.Len() {
		ws.row = ws.form.Len() - 1
	}
	d := ws.current()
	switch ws.field {
	case wsText:
		ws.editor.SetValue(d.Text)
		ws.editor.Placeholder = "What needs to be done?"
		ws.editor.Focus()
	case wsDescription:
		ws.editor.SetValue(d.Description)
		ws.editor.Placeholder = "Optional description"
		ws.editor.Focus()
	default:
		ws.editor.Blur()
	}
	ws.editor.CursorEnd()
}

func (ws *workspace) lastField(mode config.WorkflowMode) wsField {
	if mode == config.ModeInstagram {
		return wsSubtasks
	}
	return wsAssignee
}

// move shifts focus by one field, wrapping across drafts
func (ws *workspace) move(delta int, mode config.WorkflowMode) {
	ws.commit()
	last := ws.lastField(mode)
	f := int(ws.field) + delta
	switch {
	case f > int(last):
		f = 0
		ws.row = (ws.row + 1) % ws.form.Len()
	case f < 0:
		f = int(last)
		ws.row = (ws.row - 1 + ws.form.Len()) % ws.form.Len()
	}
	ws.field = wsField(f)
	ws.load()
}

func (ws *workspace) moveRow(delta int) {
	ws.commit()
	r := ws.row + delta
	if r < 0 || r >= ws.form.Len() {
		return
	}
	ws.row = r
	ws.load()
}

// cycleAssignee steps through "unassigned" followed by users
func (ws *workspace) cycleAssignee(users []model.Assignee, delta int) {
	options := len(users) + 1
	idx := 0
	current := ws.current().AssigneeID
	for i, u := range users {
		if u.AccountID == current {
			idx = i + 1
			break
		}
	}
	idx = (idx + delta + options) % options
	id := ""
	if idx > 0 {
		id = users[idx-1].AccountID
	}
	_ = ws.form.SetAssignee(ws.current().ID, id)
}

func (m Model) handleWorkspaceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	ws := &m.ws

	switch {
	case key.Matches(msg, m.keys.Escape):
		ws.commit()
		m.viewMode = ViewProjects
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		ws.commit()
		if !ws.form.HasValid() {
			m.setStatus("Write at least one task first", true)
			return m, nil
		}
		m.submitting = true
		m.clearStatus()
		drafts := ws.form.Drafts()
		m.debug.AddEvent("submit", fmt.Sprintf("%s: %d drafts, %d valid", m.project.Key, len(drafts), ws.form.ValidCount()))
		return m, m.submitCmd(m.project.Key, drafts)

	case key.Matches(msg, m.keys.Content) && m.mode == config.ModeInstagram:
		ws.commit()
		d := ws.current()
		if d.IsBlank() {
			m.setStatus("This task is empty", true)
			return m, nil
		}
		m.submitting = true
		m.clearStatus()
		return m, m.contentCmd(m.project.Key, d)

	case key.Matches(msg, m.keys.AddTask):
		ws.commit()
		ws.form.Add()
		ws.row = ws.form.Len() - 1
		ws.field = wsText
		ws.load()
		return m, nil

	case key.Matches(msg, m.keys.RemoveTask):
		ws.commit()
		if err := ws.form.Remove(ws.current().ID); errors.Is(err, batch.ErrLastDraft) {
			m.setStatus("At least one task is required", true)
			return m, nil
		}
		ws.load()
		return m, nil

	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Enter):
		ws.move(1, m.mode)
		return m, nil

	case key.Matches(msg, m.keys.Prev):
		ws.move(-1, m.mode)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		ws.moveRow(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		ws.moveRow(1)
		return m, nil
	}

	switch ws.field {
	case wsAssignee:
		switch {
		case key.Matches(msg, m.keys.Left):
			ws.cycleAssignee(m.users, -1)
		case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.Toggle):
			ws.cycleAssignee(m.users, 1)
		}
		return m, nil

	case wsSubtasks:
		switch {
		case key.Matches(msg, m.keys.Left):
			if ws.subCursor > 0 {
				ws.subCursor--
			}
		case key.Matches(msg, m.keys.Right):
			if ws.subCursor < len(m.subtasks)-1 {
				ws.subCursor++
			}
		case key.Matches(msg, m.keys.Toggle):
			if ws.subCursor < len(m.subtasks) {
				_ = ws.form.ToggleSubtask(ws.current().ID, m.subtasks[ws.subCursor].ID)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	ws.editor, cmd = ws.editor.Update(msg)
	return m, cmd
}

func (m Model) handleBatchDone(msg batchDoneMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	if msg.err != nil {
		m.debug.AddEvent("batch", "failed: "+api.Message(msg.err))
		return m, m.failed("Creating tasks failed", msg.err)
	}

	m.debug.AddEvent("batch", fmt.Sprintf("%d/%d created, %d issues", msg.result.TotalCreated, msg.result.TotalRequested, msg.result.TotalTasksCreated))
	m.ws.form.Reset()
	m.ws.row, m.ws.field = 0, wsText
	m.ws.load()

	result := msg.result
	m.results = results{project: msg.project, batch: &result}
	m.viewMode = ViewResults
	m.clearStatus()
	return m, nil
}

func (m Model) handleContentDone(msg contentDoneMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	if msg.err != nil {
		return m, m.failed("Creating content failed", msg.err)
	}

	if err := m.ws.form.Remove(msg.draftID); errors.Is(err, batch.ErrLastDraft) {
		m.ws.form.Reset()
	}
	m.ws.row, m.ws.field = 0, wsText
	m.ws.load()

	created := msg.created
	m.results = results{project: msg.project, content: &created}
	m.viewMode = ViewResults
	m.clearStatus()
	return m, nil
}

func (m Model) workspaceView(spinner string) string {
	var b strings.Builder
	ws := m.ws

	title := "New tasks"
	if m.mode == config.ModeInstagram {
		title = "New content"
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString(DimStyle.Render(fmt.Sprintf("  %d ready of %d", ws.form.ValidCount(), ws.form.Len())))
	b.WriteString("\n\n")

	for i := 0; i < ws.form.Len(); i++ {
		b.WriteString(m.renderDraft(i))
		b.WriteString("\n")
	}

	if m.submitting {
		b.WriteString(WarningStyle.Render(spinner + " Creating tasks in " + m.project.Key + "..."))
	} else {
		hint := "tab next field · ctrl+n add task · ctrl+d remove · ctrl+s create all"
		if m.mode == config.ModeInstagram {
			hint += " · ctrl+e create this one"
		}
		b.WriteString(DimStyle.Render(hint))
	}
	return PanelStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) renderDraft(i int) string {
	ws := m.ws
	d := ws.form.At(i)
	focused := i == ws.row

	field := func(f wsField, label, value, placeholder string) string {
		active := focused && ws.field == f
		var v string
		switch {
		case active && (f == wsText || f == wsDescription):
			v = ws.editor.View()
		case value == "":
			v = PlaceholderStyle.Render(placeholder)
		default:
			v = ValueStyle.Render(value)
		}
		prefix := "  "
		if active {
			prefix = SelectedStyle.Render("❯ ")
		}
		return prefix + LabelStyle.Render(label) + v
	}

	var rows []string
	rows = append(rows,
		field(wsText, fmt.Sprintf("Task %d", i+1), d.Text, "What needs to be done?"),
		field(wsDescription, "Description", d.Description, "none"),
		field(wsAssignee, "Assignee", m.assigneeName(d.AssigneeID), "unassigned"),
	)
	if m.mode == config.ModeInstagram {
		rows = append(rows, field(wsSubtasks, "Subtasks", m.renderSubtaskChips(d, focused && ws.field == wsSubtasks), "none"))
	}

	style := DraftStyle
	if focused {
		style = DraftFocusedStyle
	}
	return style.Render(strings.Join(rows, "\n"))
}

func (m Model) assigneeName(accountID string) string {
	if accountID == "" {
		return ""
	}
	for _, u := range m.users {
		if u.AccountID == accountID {
			return u.DisplayName
		}
	}
	return accountID
}

func (m Model) renderSubtaskChips(d model.TaskDraft, active bool) string {
	if len(m.subtasks) == 0 {
		if m.subtasksErr != "" {
			return ErrorStyle.Render("could not load subtasks")
		}
		return ""
	}
	chips := make([]string, 0, len(m.subtasks))
	for i, s := range m.subtasks {
		mark := "○"
		style := DimStyle
		if d.HasSubtask(s.ID) {
			mark = "●"
			style = SuccessStyle
		}
		chip := style.Render(mark + " " + s.Title())
		if active && i == m.ws.subCursor {
			chip = CursorStyle.Render(mark + " " + s.Title())
		}
		chips = append(chips, chip)
	}
	return strings.Join(chips, "  ")
}
