package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/catalog"
	"github.com/clive/jira-tui/internal/config"
	"github.com/clive/jira-tui/internal/model"
)

const (
	stName = iota
	stEmoji
	stDescription
	stLabels
	stFieldCount
)

// subtaskManager is the state of the catalog screen. editID is 0 while
// creating a new definition.
type subtaskManager struct {
	cursor  int
	editing bool
	editID  model.SubtaskID
	inputs  [stFieldCount]textinput.Model
	focus   int
	busy    bool
	err     string
}

func newSubtaskManager() subtaskManager {
	var s subtaskManager
	prompts := [stFieldCount]string{"Name        ", "Emoji       ", "Description ", "Labels      "}
	placeholders := [stFieldCount]string{"Script", "📝", "optional", "comma separated"}
	for i := range s.inputs {
		in := textinput.New()
		in.Prompt = prompts[i]
		in.PromptStyle = InputPromptStyle
		in.Placeholder = placeholders[i]
		in.CharLimit = 200
		in.Width = 40
		s.inputs[i] = in
	}
	return s
}

func (s *subtaskManager) focusCurrent() {
	for i := range s.inputs {
		if i == s.focus {
			s.inputs[i].Focus()
		} else {
			s.inputs[i].Blur()
		}
	}
}

// start opens the editor, prefilled from def when editing
func (s *subtaskManager) start(def *model.SubtaskDefinition) {
	s.editing = true
	s.err = ""
	s.focus = stName
	s.editID = 0
	values := [stFieldCount]string{}
	if def != nil {
		s.editID = def.ID
		values = [stFieldCount]string{def.Name, def.Emoji, def.Description, catalog.FormatLabels(def.Labels)}
	}
	for i := range s.inputs {
		s.inputs[i].SetValue(values[i])
		s.inputs[i].CursorEnd()
	}
	s.focusCurrent()
}

func (s subtaskManager) value(i int) string {
	return strings.TrimSpace(s.inputs[i].Value())
}

// save returns the catalog call for the editor's contents
func (s subtaskManager) save() (string, func(context.Context, *catalog.Catalog) ([]model.SubtaskDefinition, error)) {
	name, emoji, desc := s.value(stName), s.value(stEmoji), s.value(stDescription)
	labels := catalog.ParseLabels(s.inputs[stLabels].Value())

	if s.editID == 0 {
		in := model.SubtaskInput{Name: name, Emoji: emoji, Description: desc, Labels: labels}
		return "create", func(ctx context.Context, c *catalog.Catalog) ([]model.SubtaskDefinition, error) {
			return c.Create(ctx, in)
		}
	}
	id := s.editID
	patch := model.SubtaskPatch{Name: &name, Emoji: &emoji, Description: &desc, Labels: labels}
	return "update", func(ctx context.Context, c *catalog.Catalog) ([]model.SubtaskDefinition, error) {
		return c.Update(ctx, id, patch)
	}
}

func (m Model) selectedSubtask() (model.SubtaskDefinition, bool) {
	if m.manager.cursor < 0 || m.manager.cursor >= len(m.subtasks) {
		return model.SubtaskDefinition{}, false
	}
	return m.subtasks[m.manager.cursor], true
}

func (m Model) handleSubtasksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mgr := &m.manager
	if mgr.busy {
		return m, nil
	}

	if mgr.editing {
		switch {
		case key.Matches(msg, m.keys.Escape):
			mgr.editing = false
			mgr.err = ""
			return m, nil
		case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Down):
			mgr.focus = (mgr.focus + 1) % stFieldCount
			mgr.focusCurrent()
			return m, nil
		case key.Matches(msg, m.keys.Prev), key.Matches(msg, m.keys.Up):
			mgr.focus = (mgr.focus - 1 + stFieldCount) % stFieldCount
			mgr.focusCurrent()
			return m, nil
		case key.Matches(msg, m.keys.Enter), key.Matches(msg, m.keys.Submit):
			if key.Matches(msg, m.keys.Enter) && mgr.focus < stFieldCount-1 {
				mgr.focus++
				mgr.focusCurrent()
				return m, nil
			}
			op, fn := mgr.save()
			mgr.busy = true
			mgr.err = ""
			return m, m.mutateSubtasksCmd(op, fn)
		}
		var cmd tea.Cmd
		mgr.inputs[mgr.focus], cmd = mgr.inputs[mgr.focus].Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if mgr.cursor > 0 {
			mgr.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if mgr.cursor < len(m.subtasks)-1 {
			mgr.cursor++
		}
	case key.Matches(msg, m.keys.Add):
		mgr.start(nil)
	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Enter):
		if def, ok := m.selectedSubtask(); ok {
			mgr.start(&def)
		}
	case key.Matches(msg, m.keys.Delete):
		def, ok := m.selectedSubtask()
		if !ok {
			return m, nil
		}
		mgr.busy = true
		return m, m.mutateSubtasksCmd("delete", func(ctx context.Context, c *catalog.Catalog) ([]model.SubtaskDefinition, error) {
			return c.Delete(ctx, def.ID)
		})
	case key.Matches(msg, m.keys.MoveUp), key.Matches(msg, m.keys.MoveDown):
		def, ok := m.selectedSubtask()
		if !ok {
			return m, nil
		}
		delta := 1
		if key.Matches(msg, m.keys.MoveUp) {
			delta = -1
		}
		if next := mgr.cursor + delta; next >= 0 && next < len(m.subtasks) {
			mgr.cursor = next
		}
		mgr.busy = true
		return m, m.mutateSubtasksCmd("reorder", func(ctx context.Context, c *catalog.Catalog) ([]model.SubtaskDefinition, error) {
			return c.Move(ctx, def.ID, delta)
		})
	case key.Matches(msg, m.keys.Refresh):
		mgr.busy = true
		return m, m.loadSubtasksCmd(true)
	case key.Matches(msg, m.keys.Escape):
		m.back()
	}
	return m, nil
}

func (m Model) handleSubtasksLoaded(msg subtasksLoadedMsg) (tea.Model, tea.Cmd) {
	m.manager.busy = false

	if msg.err != nil {
		if len(msg.items) > 0 {
			m.subtasks = msg.items
		}
		switch {
		case errors.Is(msg.err, catalog.ErrLastSubtask):
			m.setStatus("At least one subtask must remain", true)
			return m, nil
		case errors.Is(msg.err, catalog.ErrNameRequired), errors.Is(msg.err, catalog.ErrEmojiRequired):
			m.manager.err = msg.err.Error()
			return m, nil
		case msg.op == "":
			m.subtasksErr = api.Message(msg.err)
			return m, m.failed("Loading subtasks failed", msg.err)
		default:
			if m.manager.editing {
				m.manager.err = api.Message(msg.err)
			}
			return m, m.failed("Saving subtask failed", msg.err)
		}
	}

	first := !m.subtasksLoaded
	m.subtasks = msg.items
	m.subtasksLoaded = true
	m.subtasksErr = ""
	if m.manager.cursor >= len(m.subtasks) {
		m.manager.cursor = max(len(m.subtasks)-1, 0)
	}
	if first && m.mode == config.ModeInstagram {
		m.ws.form.SetDefaultSubtasks(model.SubtaskIDs(m.subtasks))
	}
	m.debug.AddEvent("subtasks", fmt.Sprintf("%d loaded (%s)", len(m.subtasks), orDefault(msg.op, "load")))

	switch msg.op {
	case "create":
		m.manager.editing = false
		m.manager.cursor = len(m.subtasks) - 1
		m.setStatus("Subtask created", false)
	case "update":
		m.manager.editing = false
		m.setStatus("Subtask updated", false)
	case "delete":
		m.setStatus("Subtask deleted", false)
	}
	return m, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (m Model) subtasksView(spinner string) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Subtasks"))
	b.WriteString(DimStyle.Render("  created under every Instagram task"))
	b.WriteString("\n\n")

	switch {
	case !m.subtasksLoaded && m.subtasksErr != "":
		b.WriteString(ErrorStyle.Render(m.subtasksErr))
		b.WriteString("\n\n" + DimStyle.Render("r retry"))
		return PanelStyle.Width(m.width - 2).Render(b.String())
	case !m.subtasksLoaded:
		b.WriteString(WarningStyle.Render(spinner + " Loading subtasks..."))
		return PanelStyle.Width(m.width - 2).Render(b.String())
	}

	if len(m.subtasks) == 0 {
		b.WriteString(DimStyle.Render("No subtasks yet. Press a to add one."))
		b.WriteString("\n")
	}
	for i, s := range m.subtasks {
		line := s.Title()
		if len(s.Labels) > 0 {
			line += DimStyle.Render("  [" + catalog.FormatLabels(s.Labels) + "]")
		}
		if i == m.manager.cursor && !m.manager.editing {
			b.WriteString(SelectedStyle.Render("❯ ") + CursorStyle.Render(line))
		} else {
			b.WriteString("  " + ValueStyle.Render(line))
		}
		if s.Description != "" {
			b.WriteString(DimStyle.Render("  " + truncate(s.Description, 50)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.manager.editing {
		b.WriteString(m.subtaskEditorView(spinner))
	} else if m.manager.busy {
		b.WriteString(WarningStyle.Render(spinner + " Saving..."))
	} else {
		b.WriteString(DimStyle.Render("a add · e edit · d delete · K/J move · r reload · Esc back"))
	}
	return PanelStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) subtaskEditorView(spinner string) string {
	var b strings.Builder
	title := "New subtask"
	if m.manager.editID != 0 {
		title = "Edit subtask"
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")
	for i, in := range m.manager.inputs {
		style := InputStyle
		if i == m.manager.focus {
			style = InputFocusedStyle
		}
		b.WriteString(style.Width(56).Render(in.View()))
		b.WriteString("\n")
	}
	switch {
	case m.manager.busy:
		b.WriteString(WarningStyle.Render(spinner + " Saving..."))
	case m.manager.err != "":
		b.WriteString(ErrorStyle.Render(m.manager.err))
	default:
		b.WriteString(DimStyle.Render("tab next · ctrl+s save · Esc cancel"))
	}
	return b.String()
}
