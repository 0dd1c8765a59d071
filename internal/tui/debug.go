package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DebugPanel shows recent events at the bottom of the screen
type DebugPanel struct {
	enabled bool
	lines   []string
	buffer  int
	now     func() time.Time
}

// NewDebugPanel creates a debug panel keeping the last 100 events
func NewDebugPanel(enabled bool) DebugPanel {
	return DebugPanel{
		enabled: enabled,
		buffer:  100,
		now:     time.Now,
	}
}

// IsEnabled returns whether the panel is shown
func (d *DebugPanel) IsEnabled() bool {
	return d.enabled
}

// Toggle shows or hides the panel. Events are recorded either way.
func (d *DebugPanel) Toggle() {
	d.enabled = !d.enabled
}

// AddEvent records an event such as a message or request outcome
func (d *DebugPanel) AddEvent(kind, details string) {
	line := d.now().Format("15:04:05.000") + " [" + kind + "]"
	if details != "" {
		line += " " + details
	}
	d.lines = append(d.lines, line)
	if len(d.lines) > d.buffer {
		d.lines = d.lines[len(d.lines)-d.buffer:]
	}
}

// Lines returns the recorded events, oldest first
func (d *DebugPanel) Lines() []string {
	return d.lines
}

// Render draws the last events that fit into height rows
func (d *DebugPanel) Render(width, height int) string {
	if !d.enabled {
		return ""
	}

	rows := height - 3
	if rows < 1 {
		rows = 1
	}
	maxLen := width - 4
	if maxLen < 10 {
		maxLen = 10
	}

	start := 0
	if len(d.lines) > rows {
		start = len(d.lines) - rows
	}
	var lines []string
	for _, line := range d.lines[start:] {
		lines = append(lines, truncate(line, maxLen))
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}

	title := lipgloss.NewStyle().Foreground(ColorYellow).Bold(true).Render("DEBUG")
	return lipgloss.NewStyle().
		Width(width-2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorYellow).
		Padding(0, 1).
		Render(title + "\n" + strings.Join(lines, "\n"))
}

// truncate shortens s to max runes with an ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
