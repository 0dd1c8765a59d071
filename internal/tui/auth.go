package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clive/jira-tui/internal/model"
)

// AuthMode selects between the login and register forms
type AuthMode int

const (
	AuthLogin AuthMode = iota
	AuthRegister
)

type authField int

const (
	fieldEmail authField = iota
	fieldUsername
	fieldPassword
	fieldJiraEmail
	fieldJiraURL
	fieldJiraToken
	authFieldCount
)

var (
	loginFields    = []authField{fieldUsername, fieldPassword}
	registerFields = []authField{fieldEmail, fieldUsername, fieldPassword, fieldJiraEmail, fieldJiraURL, fieldJiraToken}
)

// authAction tells the root model what the form wants done
type authAction int

const (
	authNone authAction = iota
	authSubmit
)

// AuthForm holds the login and register inputs
type AuthForm struct {
	Mode   AuthMode
	Error  string
	Notice string
	Busy   bool

	inputs [authFieldCount]textinput.Model
	focus  int
}

// NewAuthForm creates an empty login form
func NewAuthForm() AuthForm {
	var f AuthForm
	specs := [authFieldCount]struct {
		prompt, placeholder string
		secret              bool
	}{
		fieldEmail:     {"Email      ", "you@example.com", false},
		fieldUsername:  {"Username   ", "", false},
		fieldPassword:  {"Password   ", "", true},
		fieldJiraEmail: {"Jira email ", "optional", false},
		fieldJiraURL:   {"Jira URL   ", "https://your-site.atlassian.net", false},
		fieldJiraToken: {"Jira token ", "optional", true},
	}
	for i, spec := range specs {
		in := textinput.New()
		in.Prompt = spec.prompt
		in.PromptStyle = InputPromptStyle
		in.Placeholder = spec.placeholder
		in.CharLimit = 256
		in.Width = 40
		if spec.secret {
			in.EchoMode = textinput.EchoPassword
		}
		f.inputs[i] = in
	}
	f.focusCurrent()
	return f
}

func (f AuthForm) fields() []authField {
	if f.Mode == AuthRegister {
		return registerFields
	}
	return loginFields
}

func (f *AuthForm) focusCurrent() {
	current := f.fields()[f.focus]
	for i := range f.inputs {
		if authField(i) == current {
			f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
}

func (f AuthForm) value(field authField) string {
	return strings.TrimSpace(f.inputs[field].Value())
}

// SetMode switches forms, keeping what was typed
func (f AuthForm) SetMode(mode AuthMode) AuthForm {
	f.Mode = mode
	f.focus = 0
	f.Error = ""
	f.focusCurrent()
	return f
}

// PrefillLogin switches to login with username filled and the password focused
func (f AuthForm) PrefillLogin(username string) AuthForm {
	f = f.SetMode(AuthLogin)
	f.inputs[fieldUsername].SetValue(username)
	f.inputs[fieldPassword].SetValue("")
	f.focus = 1
	f.focusCurrent()
	return f
}

// Reset clears every input, e.g. after logout
func (f AuthForm) Reset() AuthForm {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	f.Error, f.Notice, f.Busy = "", "", false
	return f.SetMode(AuthLogin)
}

// Username returns the typed username
func (f AuthForm) Username() string {
	return f.value(fieldUsername)
}

// Password returns the typed password, untrimmed
func (f AuthForm) Password() string {
	return f.inputs[fieldPassword].Value()
}

// Registration builds the register payload
func (f AuthForm) Registration() model.Registration {
	return model.Registration{
		Email:        f.value(fieldEmail),
		Username:     f.value(fieldUsername),
		Password:     f.Password(),
		JiraEmail:    f.value(fieldJiraEmail),
		JiraAPIToken: f.value(fieldJiraToken),
		JiraBaseURL:  f.value(fieldJiraURL),
	}
}

// Validate returns a message for the first missing or malformed field
func (f AuthForm) Validate() string {
	if f.Username() == "" || f.Password() == "" {
		return "Username and password are required"
	}
	if f.Mode == AuthLogin {
		return ""
	}
	if !strings.Contains(f.value(fieldEmail), "@") {
		return "Enter a valid email"
	}
	if len(f.Username()) < 3 {
		return "Username must be at least 3 characters"
	}
	if len(f.Password()) < 8 {
		return "Password must be at least 8 characters"
	}
	if u := f.value(fieldJiraURL); u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return "Jira URL must start with http:// or https://"
	}
	return ""
}

// HandleKey processes a key press while the form is shown
func (f AuthForm) HandleKey(msg tea.KeyMsg, keys KeyMap) (AuthForm, tea.Cmd, authAction) {
	if f.Busy {
		return f, nil, authNone
	}

	switch {
	case key.Matches(msg, keys.SwitchMode):
		if f.Mode == AuthLogin {
			return f.SetMode(AuthRegister), nil, authNone
		}
		return f.SetMode(AuthLogin), nil, authNone

	case key.Matches(msg, keys.Next), key.Matches(msg, keys.Down):
		f.focus = (f.focus + 1) % len(f.fields())
		f.focusCurrent()
		return f, nil, authNone

	case key.Matches(msg, keys.Prev), key.Matches(msg, keys.Up):
		f.focus = (f.focus - 1 + len(f.fields())) % len(f.fields())
		f.focusCurrent()
		return f, nil, authNone

	case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Submit):
		if key.Matches(msg, keys.Enter) && f.focus < len(f.fields())-1 {
			f.focus++
			f.focusCurrent()
			return f, nil, authNone
		}
		if errMsg := f.Validate(); errMsg != "" {
			f.Error = errMsg
			return f, nil, authNone
		}
		f.Error, f.Notice = "", ""
		f.Busy = true
		return f, nil, authSubmit
	}

	current := f.fields()[f.focus]
	var cmd tea.Cmd
	f.inputs[current], cmd = f.inputs[current].Update(msg)
	return f, cmd, authNone
}

// View renders the form in a centered box
func (f AuthForm) View(width, height int, spinner string) string {
	title := "Log in"
	if f.Mode == AuthRegister {
		title = "Create account"
	}

	var content strings.Builder
	content.WriteString(brand("Task creation"))
	content.WriteString("\n\n")
	content.WriteString(TitleStyle.Render(title))
	content.WriteString("\n\n")

	for i, field := range f.fields() {
		style := InputStyle
		if i == f.focus {
			style = InputFocusedStyle
		}
		content.WriteString(style.Width(56).Render(f.inputs[field].View()))
		content.WriteString("\n")
		if f.Mode == AuthRegister && field == fieldPassword {
			content.WriteString(DimStyle.Render("Jira settings can be added later"))
			content.WriteString("\n")
		}
	}
	content.WriteString("\n")

	switch {
	case f.Busy:
		status := "Logging in..."
		if f.Mode == AuthRegister {
			status = "Creating account..."
		}
		content.WriteString(WarningStyle.Render(spinner + " " + status))
	case f.Error != "":
		content.WriteString(ErrorStyle.Render(f.Error))
	case f.Notice != "":
		content.WriteString(SuccessStyle.Render(f.Notice))
	}
	content.WriteString("\n\n")

	other := "ctrl+t create account"
	if f.Mode == AuthRegister {
		other = "ctrl+t back to login"
	}
	hint := "Enter next/submit · Ctrl+S submit · " + other + " · Ctrl+C quit"
	if f.Busy {
		hint = "Esc cancel · Ctrl+C quit"
	}
	content.WriteString(DimStyle.Render(hint))

	return center(width, height, PanelStyle.Render(content.String()))
}
