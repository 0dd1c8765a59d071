package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clive/jira-tui/internal/model"
)

const (
	setJiraEmail = iota
	setJiraURL
	setJiraToken
	setFieldCount
)

// settingsForm edits the account's Jira credentials
type settingsForm struct {
	Busy   bool
	Error  string
	Notice string

	editing bool
	inputs  [setFieldCount]textinput.Model
	focus   int
}

func newSettingsForm() settingsForm {
	var s settingsForm
	prompts := [setFieldCount]string{"Jira email ", "Jira URL   ", "API token  "}
	placeholders := [setFieldCount]string{"you@example.com", "https://your-site.atlassian.net", "leave empty to keep the current token"}
	for i := range s.inputs {
		in := textinput.New()
		in.Prompt = prompts[i]
		in.PromptStyle = InputPromptStyle
		in.Placeholder = placeholders[i]
		in.CharLimit = 256
		in.Width = 44
		if i == setJiraToken {
			in.EchoMode = textinput.EchoPassword
		}
		s.inputs[i] = in
	}
	return s
}

// Load fills the inputs from the user's profile. The token is never shown.
func (s settingsForm) Load(u model.User) settingsForm {
	s.inputs[setJiraEmail].SetValue(u.JiraEmail)
	s.inputs[setJiraURL].SetValue(u.JiraBaseURL)
	s.inputs[setJiraToken].SetValue("")
	s.editing = false
	s.Error, s.Notice = "", ""
	return s
}

func (s *settingsForm) focusCurrent() {
	for i := range s.inputs {
		if i == s.focus {
			s.inputs[i].Focus()
		} else {
			s.inputs[i].Blur()
		}
	}
}

func (s settingsForm) credentials() model.JiraCredentials {
	return model.JiraCredentials{
		Email:    strings.TrimSpace(s.inputs[setJiraEmail].Value()),
		BaseURL:  strings.TrimRight(strings.TrimSpace(s.inputs[setJiraURL].Value()), "/"),
		APIToken: strings.TrimSpace(s.inputs[setJiraToken].Value()),
	}
}

func (s settingsForm) validate() string {
	c := s.credentials()
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return "Enter a valid Jira email"
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return "Jira URL must start with http:// or https://"
	}
	if c.Email == "" && c.BaseURL == "" && c.APIToken == "" {
		return "Nothing to save"
	}
	return ""
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.settings
	if s.Busy {
		return m, nil
	}

	if !s.editing {
		switch {
		case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Enter):
			s.editing = true
			s.focus = setJiraEmail
			s.Error, s.Notice = "", ""
			s.focusCurrent()
		case key.Matches(msg, m.keys.Escape):
			m.back()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Escape):
		m.settings = s.Load(m.user)
		return m, nil
	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Down):
		s.focus = (s.focus + 1) % setFieldCount
		s.focusCurrent()
		return m, nil
	case key.Matches(msg, m.keys.Prev), key.Matches(msg, m.keys.Up):
		s.focus = (s.focus - 1 + setFieldCount) % setFieldCount
		s.focusCurrent()
		return m, nil
	case key.Matches(msg, m.keys.Enter), key.Matches(msg, m.keys.Submit):
		if key.Matches(msg, m.keys.Enter) && s.focus < setFieldCount-1 {
			s.focus++
			s.focusCurrent()
			return m, nil
		}
		if errMsg := s.validate(); errMsg != "" {
			s.Error = errMsg
			return m, nil
		}
		s.Busy = true
		s.Error = ""
		return m, m.saveJiraCmd(s.credentials())
	}

	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return m, cmd
}

func (m Model) settingsView(spinner string) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Account"))
	b.WriteString("\n\n")

	row := func(label, value string) {
		if value == "" {
			value = PlaceholderStyle.Render("not set")
		} else {
			value = ValueStyle.Render(value)
		}
		b.WriteString(LabelStyle.Render(label) + value + "\n")
	}
	row("Username", m.user.Username)
	row("Email", m.user.Email)
	if m.user.LastLogin != nil {
		row("Last login", m.user.LastLogin.Local().Format("2006-01-02 15:04"))
	}
	b.WriteString("\n")

	b.WriteString(TitleStyle.Render("Jira"))
	if !m.user.HasJiraCredentials() {
		b.WriteString(WarningStyle.Render("  not configured"))
	}
	b.WriteString("\n\n")

	if m.settings.editing {
		for i, in := range m.settings.inputs {
			style := InputStyle
			if i == m.settings.focus {
				style = InputFocusedStyle
			}
			b.WriteString(style.Width(60).Render(in.View()))
			b.WriteString("\n")
		}
	} else {
		row("Jira email", m.user.JiraEmail)
		row("Jira URL", m.user.JiraBaseURL)
	}
	b.WriteString("\n")

	switch {
	case m.settings.Busy:
		b.WriteString(WarningStyle.Render(spinner + " Saving..."))
	case m.settings.Error != "":
		b.WriteString(ErrorStyle.Render(m.settings.Error))
	case m.settings.Notice != "":
		b.WriteString(SuccessStyle.Render(m.settings.Notice))
	case m.settings.editing:
		b.WriteString(DimStyle.Render("tab next · ctrl+s save · Esc cancel"))
	default:
		b.WriteString(DimStyle.Render("e edit Jira settings · Esc back"))
	}
	return PanelStyle.Width(m.width - 2).Render(b.String())
}
