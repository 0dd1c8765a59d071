package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clive/jira-tui/internal/config"
)

func (m Model) handleProjectsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.projectIdx > 0 {
			m.projectIdx--
		}
	case key.Matches(msg, m.keys.Down):
		if m.projectIdx < len(m.projects)-1 {
			m.projectIdx++
		}
	case key.Matches(msg, m.keys.Enter):
		if m.projectIdx < len(m.projects) {
			return m, m.selectProject(m.projects[m.projectIdx])
		}
	case key.Matches(msg, m.keys.Refresh):
		m.projectsLoading = true
		m.projectsErr = ""
		return m, m.loadProjectsCmd(true)
	case key.Matches(msg, m.keys.Escape):
		if m.project.Key != "" {
			m.viewMode = ViewWorkspace
		}
	}
	return m, nil
}

func (m Model) projectsView(spinner string) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Select a project"))
	b.WriteString("\n\n")

	switch {
	case m.projectsLoading && len(m.projects) == 0:
		b.WriteString(WarningStyle.Render(spinner + " Loading projects..."))
	case m.projectsErr != "" && len(m.projects) == 0:
		b.WriteString(ErrorStyle.Render(m.projectsErr))
		b.WriteString("\n\n")
		b.WriteString(DimStyle.Render("r retry"))
	case len(m.projects) == 0:
		b.WriteString(DimStyle.Render("No projects available. Check your Jira settings (ctrl+o)."))
	default:
		for i, p := range m.projects {
			line := p.Label()
			if m.opts.Config.ModeForProject(p.Key) == config.ModeInstagram {
				line += DimStyle.Render("  Instagram")
			}
			if p.Key == m.project.Key {
				line += SuccessStyle.Render("  ●")
			}
			if i == m.projectIdx {
				b.WriteString(SelectedStyle.Render("❯ ") + CursorStyle.Render(line))
			} else {
				b.WriteString("  " + ValueStyle.Render(line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(DimStyle.Render("↑/↓ move · Enter select · r reload · Esc back"))
	}

	return PanelStyle.Width(m.width - 2).Render(b.String())
}
