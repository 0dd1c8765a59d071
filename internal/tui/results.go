package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clive/jira-tui/internal/model"
)

// results is the outcome of the last submission. Exactly one of batch or
// content is set after a submit.
type results struct {
	project string
	batch   *model.BatchResult
	content *model.CreatedTask
}

// urls lists every issue link worth copying
func (r results) urls() []string {
	switch {
	case r.batch != nil:
		return r.batch.URLs()
	case r.content != nil:
		urls := []string{r.content.URL}
		for _, s := range r.content.Subtasks {
			if s.URL != "" {
				urls = append(urls, s.URL)
			}
		}
		return urls
	}
	return nil
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Copy):
		urls := m.results.urls()
		if len(urls) == 0 {
			m.setStatus("Nothing to copy", true)
			return m, nil
		}
		return m, m.copyCmd(urls)
	case key.Matches(msg, m.keys.Enter), key.Matches(msg, m.keys.Escape):
		m.clearStatus()
		m.back()
	}
	return m, nil
}

func (m Model) resultsView() string {
	var b strings.Builder

	switch {
	case m.results.batch != nil:
		r := m.results.batch
		b.WriteString(TitleStyle.Render("Tasks created in " + m.results.project))
		b.WriteString("\n\n")

		summary := fmt.Sprintf("Created %d of %d (%.0f%%)", r.TotalCreated, r.TotalRequested, r.SuccessRate())
		if r.TotalFailed > 0 {
			b.WriteString(WarningStyle.Render(summary))
		} else {
			b.WriteString(SuccessStyle.Render(summary))
		}
		if r.TotalTasksCreated > r.TotalCreated {
			b.WriteString(DimStyle.Render(fmt.Sprintf("  %d issues including subtasks", r.TotalTasksCreated)))
		}
		b.WriteString("\n\n")

		for _, item := range r.Items {
			b.WriteString(renderResultItem(item))
			b.WriteString("\n")
		}

	case m.results.content != nil:
		c := m.results.content
		b.WriteString(TitleStyle.Render("Content created in " + m.results.project))
		b.WriteString("\n\n")
		line := SuccessStyle.Render("✓ "+c.MainTaskKey) + " " + LinkStyle.Render(c.URL)
		if c.ContentType != "" {
			line += DimStyle.Render("  " + c.ContentType)
		}
		b.WriteString(line + "\n")
		for _, s := range c.Subtasks {
			b.WriteString("    " + ValueStyle.Render(strings.TrimSpace(s.Emoji+" "+s.Phase)) + DimStyle.Render("  "+s.Key) + "\n")
		}
		b.WriteString(DimStyle.Render(fmt.Sprintf("\n%d issues in total", c.TotalTasks)))
		b.WriteString("\n")

	default:
		b.WriteString(DimStyle.Render("Nothing submitted yet"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(DimStyle.Render("c copy links · Enter continue"))
	return PanelStyle.Width(m.width - 2).Render(b.String())
}

func renderResultItem(item model.TaskResult) string {
	if !item.Succeeded() {
		return ErrorStyle.Render("✗ "+item.OriginalText) + DimStyle.Render("  "+item.Err)
	}
	line := SuccessStyle.Render("✓ "+item.Created.MainTaskKey) + " " + ValueStyle.Render(item.OriginalText)
	if n := len(item.Created.Subtasks); n > 0 {
		line += DimStyle.Render(fmt.Sprintf("  +%d subtasks", n))
	}
	if item.Created.URL != "" {
		line += "\n    " + LinkStyle.Render(item.Created.URL)
	}
	return line
}
