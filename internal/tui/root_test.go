package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/batch"
	"github.com/clive/jira-tui/internal/catalog"
	"github.com/clive/jira-tui/internal/config"
	"github.com/clive/jira-tui/internal/credentials"
	"github.com/clive/jira-tui/internal/devserver"
	"github.com/clive/jira-tui/internal/model"
	"github.com/clive/jira-tui/internal/session"
	"github.com/clive/jira-tui/internal/tracker"
)

// createTestModel wires a model to an in-process dev backend with one
// registered account
func createTestModel(t *testing.T) Model {
	t.Helper()
	return createTestModelWith(t, nil)
}

// createTestModelWith is createTestModel with wrap placed in front of the
// backend router
func createTestModelWith(t *testing.T, wrap func(http.Handler) http.Handler) Model {
	t.Helper()

	var handler http.Handler = devserver.New(nil).Router()
	if wrap != nil {
		handler = wrap(handler)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	base := api.NewClient(ts.URL, 0, nil)
	if _, err := base.Register(context.Background(), model.Registration{
		Email: "dana@example.test", Username: "dana", Password: "dana-password",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	store := credentials.NewStore(credentials.NewMemoryStorage())
	mgr := session.NewManager(base, store, nil)
	client := base.WithTokenSource(mgr)

	m := NewRootModel(Options{
		Config:    config.Default(),
		Session:   mgr,
		Catalog:   catalog.New(client, nil),
		Tracker:   tracker.NewJiraProvider(client, 0),
		Submitter: batch.NewSubmitter(client, nil),
		CopyText:  func(string) error { return nil },
	})
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

// update feeds msg and returns the concrete model
func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and feeds every resulting message back into the model
func run(m Model, cmd tea.Cmd) Model {
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batchMsg, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batchMsg {
			m = run(m, c)
		}
		return m
	}
	m, next := update(m, msg)
	return run(m, next)
}

func keyPress(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loggedIn restores, logs in and opens the given project
func loggedIn(t *testing.T, project string) Model {
	t.Helper()
	m := createTestModel(t)
	m = run(m, m.restoreCmd())
	if m.viewMode != ViewAuth {
		t.Fatalf("viewMode after empty restore = %v, want ViewAuth", m.viewMode)
	}
	m = run(m, m.loginCmd(context.Background(), "dana", "dana-password"))
	if m.viewMode != ViewProjects {
		t.Fatalf("viewMode after login = %v, want ViewProjects", m.viewMode)
	}
	for _, p := range m.projects {
		if p.Key == project {
			return run(m, m.selectProject(p))
		}
	}
	t.Fatalf("project %s not loaded", project)
	return m
}

func TestLoginLoadsProjects(t *testing.T) {
	m := loggedIn(t, "OPS")

	if m.user.Username != "dana" {
		t.Errorf("user = %q, want dana", m.user.Username)
	}
	if len(m.projects) != 2 {
		t.Fatalf("projects = %d, want 2", len(m.projects))
	}
	if m.viewMode != ViewWorkspace {
		t.Errorf("viewMode = %v, want ViewWorkspace", m.viewMode)
	}
	if m.mode != config.ModeStandard {
		t.Errorf("mode = %v, want standard", m.mode)
	}
	if len(m.users) != 1 || m.users[0].AccountID != "acc-ops" {
		t.Errorf("users = %+v", m.users)
	}
	if m.subtasksLoaded {
		t.Error("standard projects should not load subtasks")
	}
}

func TestInstagramProjectLoadsSubtasks(t *testing.T) {
	m := loggedIn(t, "KAN")

	if m.mode != config.ModeInstagram {
		t.Fatalf("mode = %v, want instagram", m.mode)
	}
	if !m.subtasksLoaded || len(m.subtasks) != 6 {
		t.Fatalf("subtasks loaded=%v len=%d, want 6", m.subtasksLoaded, len(m.subtasks))
	}
	got := m.ws.form.At(0).Subtasks
	if len(got) != 6 {
		t.Errorf("draft subtasks = %v, want every catalog entry preselected", got)
	}
	if m.ws.lastField(m.mode) != wsSubtasks {
		t.Error("instagram workspace should expose the subtask field")
	}
	if m.ws.lastField(config.ModeStandard) != wsAssignee {
		t.Error("standard workspace should end at the assignee field")
	}
}

func TestStaleMessagesAreDropped(t *testing.T) {
	m := createTestModel(t)
	m.gen = 5

	tests := []struct {
		name string
		msg  tea.Msg
	}{
		{"projects", projectsLoadedMsg{gen: 4, projects: []model.Project{{Key: "OLD"}}}},
		{"users", usersLoadedMsg{gen: 4, users: []model.Assignee{{AccountID: "x"}}}},
		{"subtasks", subtasksLoadedMsg{gen: 4, items: []model.SubtaskDefinition{{ID: 1}}}},
		{"batch", batchDoneMsg{gen: 4, result: model.BatchResult{TotalRequested: 1, TotalCreated: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(m.debug.Lines())
			got, _ := update(m, tt.msg)
			if len(got.projects) != 0 || len(got.users) != 0 || len(got.subtasks) != 0 {
				t.Errorf("stale %s message changed state", tt.name)
			}
			if got.viewMode == ViewResults {
				t.Errorf("stale %s message switched screens", tt.name)
			}
			lines := got.debug.Lines()
			if len(lines) != before+1 || !strings.Contains(lines[len(lines)-1], "[drop]") {
				t.Errorf("expected a drop event, got %v", lines)
			}
		})
	}
}

func TestBatchSubmit(t *testing.T) {
	m := loggedIn(t, "OPS")

	m.ws.editor.SetValue("Fix the login page")
	m, _ = update(m, keyPress(tea.KeyTab))
	if got := m.ws.form.At(0).Text; got != "Fix the login page" {
		t.Fatalf("draft text = %q", got)
	}

	m, cmd := update(m, keyPress(tea.KeyCtrlS))
	if !m.submitting || cmd == nil {
		t.Fatal("ctrl+s should start a submission")
	}
	if next, _ := update(m, keyPress(tea.KeyCtrlN)); next.ws.form.Len() != 1 {
		t.Error("form must not change while submitting")
	}

	m = run(m, cmd)
	if m.submitting {
		t.Error("submitting should be cleared")
	}
	if m.viewMode != ViewResults || m.results.batch == nil {
		t.Fatalf("viewMode = %v, want results", m.viewMode)
	}
	if m.results.batch.TotalCreated != 1 {
		t.Errorf("created = %d, want 1", m.results.batch.TotalCreated)
	}
	if m.ws.form.Len() != 1 || !m.ws.form.At(0).IsBlank() {
		t.Error("successful submit should reset the form")
	}
	if !strings.Contains(m.resultsView(), "Created 1 of 1 (100%)") {
		t.Errorf("results view missing summary:\n%s", m.resultsView())
	}

	m, cmd = update(m, runes("c"))
	m = run(m, cmd)
	if m.statusErr || !strings.Contains(m.status, "Copied 1") {
		t.Errorf("status = %q", m.status)
	}

	m, _ = update(m, keyPress(tea.KeyEnter))
	if m.viewMode != ViewWorkspace {
		t.Errorf("viewMode = %v, want workspace", m.viewMode)
	}
}

func TestBatchFailureKeepsDrafts(t *testing.T) {
	m := loggedIn(t, "OPS")
	id := m.ws.form.At(0).ID
	if err := m.ws.form.SetText(id, "Keep me"); err != nil {
		t.Fatal(err)
	}
	m.submitting = true

	m, _ = update(m, batchDoneMsg{
		gen:     m.gen,
		project: "OPS",
		err:     &api.Error{Kind: api.KindHTTP, Status: 502, Message: "upstream Jira unavailable"},
	})

	if m.submitting {
		t.Error("submitting should be cleared")
	}
	if m.viewMode != ViewWorkspace {
		t.Errorf("viewMode = %v, want workspace", m.viewMode)
	}
	if got := m.ws.form.At(0).Text; got != "Keep me" {
		t.Errorf("draft text = %q, want it kept", got)
	}
	if !m.statusErr || !strings.Contains(m.status, "upstream Jira unavailable") {
		t.Errorf("status = %q", m.status)
	}
}

func TestSubmitRequiresText(t *testing.T) {
	m := loggedIn(t, "OPS")
	m, cmd := update(m, keyPress(tea.KeyCtrlS))
	if cmd != nil || m.submitting {
		t.Error("blank form should not submit")
	}
	if !m.statusErr {
		t.Error("expected an error status")
	}
}

func TestContentSubmitRemovesDraft(t *testing.T) {
	m := loggedIn(t, "KAN")
	m.ws.editor.SetValue("Reel sobre Cartagena")
	m, _ = update(m, keyPress(tea.KeyCtrlN))
	m.ws.editor.SetValue("Carrusel de tips")
	m, _ = update(m, keyPress(tea.KeyShiftTab))
	m, _ = update(m, keyPress(tea.KeyShiftTab))
	m, _ = update(m, keyPress(tea.KeyShiftTab))
	m, _ = update(m, keyPress(tea.KeyShiftTab))
	if m.ws.row != 0 || m.ws.field != wsText {
		t.Fatalf("focus = row %d field %d, want first task text", m.ws.row, m.ws.field)
	}

	m, cmd := update(m, keyPress(tea.KeyCtrlE))
	if cmd == nil {
		t.Fatal("ctrl+e should create the focused content")
	}
	m = run(m, cmd)

	if m.results.content == nil || m.results.content.MainTaskKey == "" {
		t.Fatalf("content result = %+v", m.results.content)
	}
	if m.ws.form.Len() != 1 || m.ws.form.At(0).Text != "Carrusel de tips" {
		t.Errorf("remaining drafts = %+v", m.ws.form.Drafts())
	}
	if urls := m.results.urls(); len(urls) != 1+len(m.results.content.Subtasks) {
		t.Errorf("urls = %v", urls)
	}
}

func TestContentRequiresInstagramProject(t *testing.T) {
	m := loggedIn(t, "OPS")
	m.ws.editor.SetValue("Not content")
	_, cmd := update(m, keyPress(tea.KeyCtrlE))
	if cmd != nil {
		t.Error("ctrl+e should do nothing outside instagram projects")
	}
}

func TestAutoLoginFailurePrefillsLogin(t *testing.T) {
	m := createTestModel(t)
	m.viewMode = ViewAuth
	m.auth = m.auth.SetMode(AuthRegister)
	m.auth.Busy = true

	m, _ = update(m, authDoneMsg{
		err:      fmt.Errorf("%w: %w", session.ErrAutoLoginFailed, errors.New("boom")),
		register: true,
		username: "dana",
	})

	if m.auth.Mode != AuthLogin {
		t.Errorf("mode = %v, want login", m.auth.Mode)
	}
	if m.auth.Username() != "dana" {
		t.Errorf("username = %q, want dana", m.auth.Username())
	}
	if m.auth.Busy {
		t.Error("busy should be cleared")
	}
	if !strings.Contains(m.auth.Notice, "Account created") {
		t.Errorf("notice = %q", m.auth.Notice)
	}
}

func TestAuthErrorShown(t *testing.T) {
	m := createTestModel(t)
	m = run(m, m.restoreCmd())
	m = run(m, m.loginCmd(context.Background(), "dana", "wrong-password"))

	if m.viewMode != ViewAuth {
		t.Fatalf("viewMode = %v, want auth", m.viewMode)
	}
	if m.auth.Error == "" {
		t.Error("expected a login error")
	}
}

func TestStaleAuthResultIgnored(t *testing.T) {
	m := createTestModel(t)
	m.viewMode = ViewAuth
	m, _ = update(m, authDoneMsg{err: session.ErrStale})
	if m.viewMode != ViewAuth || m.auth.Error != "" {
		t.Error("superseded attempt should leave the form alone")
	}
}

// holdLogin blocks POST /auth/login until release is closed
func holdLogin(entered chan<- struct{}, release <-chan struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/auth/login" {
				entered <- struct{}{}
				<-release
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TestEscCancelsLogin(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	m := createTestModelWith(t, holdLogin(entered, release))
	m = run(m, m.restoreCmd())

	m, _ = update(m, runes("dana"))
	m, _ = update(m, keyPress(tea.KeyTab))
	m, _ = update(m, runes("dana-password"))
	m, cmd := update(m, keyPress(tea.KeyCtrlS))
	if !m.auth.Busy || cmd == nil {
		t.Fatal("submit should start a login")
	}
	cancelled := false
	inner := m.authCancel
	m.authCancel = func() { cancelled = true; inner() }

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	<-entered

	m, _ = update(m, keyPress(tea.KeyEsc))
	close(release)

	if !cancelled {
		t.Error("request context should be cancelled")
	}
	if m.auth.Busy {
		t.Error("busy should be cleared")
	}
	if m.auth.Notice != "Cancelled" {
		t.Errorf("notice = %q", m.auth.Notice)
	}

	m, _ = update(m, <-done)
	if m.viewMode != ViewAuth {
		t.Errorf("viewMode = %v, cancelled login must not enter the session", m.viewMode)
	}
	if m.opts.Session.Snapshot().IsAuthenticated() {
		t.Error("session should stay logged out")
	}
}

func TestEscAfterLoginCommittedIsIgnored(t *testing.T) {
	m := createTestModel(t)
	m = run(m, m.restoreCmd())

	m, _ = update(m, runes("dana"))
	m, _ = update(m, keyPress(tea.KeyTab))
	m, _ = update(m, runes("dana-password"))
	m, cmd := update(m, keyPress(tea.KeyCtrlS))
	if cmd == nil {
		t.Fatal("submit should start a login")
	}
	msg := cmd()

	m, _ = update(m, keyPress(tea.KeyEsc))
	if !m.auth.Busy {
		t.Error("form should stay busy until the result arrives")
	}
	if m.auth.Notice == "Cancelled" {
		t.Error("a committed login cannot be cancelled")
	}

	m = run(m, func() tea.Msg { return msg })
	if m.viewMode != ViewProjects {
		t.Errorf("viewMode = %v, want ViewProjects", m.viewMode)
	}
}

func TestSessionExpiryReturnsToLogin(t *testing.T) {
	m := loggedIn(t, "OPS")

	m, cmd := update(m, usersLoadedMsg{
		gen:     m.gen,
		project: "OPS",
		err:     &api.Error{Kind: api.KindHTTP, Status: 401, Message: "Could not validate credentials"},
	})
	if cmd == nil {
		t.Fatal("a 401 should re-check the session")
	}

	m, _ = update(m, userRefreshedMsg{gen: m.gen, err: errors.New("expired")})
	if m.viewMode != ViewAuth {
		t.Errorf("viewMode = %v, want auth", m.viewMode)
	}
	if m.project.Key != "" || m.projects != nil {
		t.Error("session data should be cleared")
	}
	if !strings.Contains(m.auth.Notice, "expired") {
		t.Errorf("notice = %q", m.auth.Notice)
	}
}

func TestLogout(t *testing.T) {
	m := loggedIn(t, "KAN")
	m, cmd := update(m, keyPress(tea.KeyCtrlL))
	m = run(m, cmd)

	if m.viewMode != ViewAuth {
		t.Errorf("viewMode = %v, want auth", m.viewMode)
	}
	if m.subtasksLoaded || m.opts.Catalog.Loaded() {
		t.Error("catalog should be reset")
	}
	if m.opts.Session.Snapshot().IsAuthenticated() {
		t.Error("session should be cleared")
	}
}

func TestHelpToggle(t *testing.T) {
	m := loggedIn(t, "OPS")

	m, _ = update(m, keyPress(tea.KeyF1))
	if m.viewMode != ViewHelp {
		t.Fatalf("viewMode = %v, want help", m.viewMode)
	}
	m, _ = update(m, keyPress(tea.KeyF1))
	if m.viewMode != ViewWorkspace {
		t.Errorf("viewMode = %v, want workspace", m.viewMode)
	}
}

func TestRemoveLastDraftRefused(t *testing.T) {
	m := loggedIn(t, "OPS")
	m, _ = update(m, keyPress(tea.KeyCtrlD))
	if m.ws.form.Len() != 1 {
		t.Errorf("len = %d, want 1", m.ws.form.Len())
	}
	if !m.statusErr {
		t.Error("expected an error status")
	}
}

func TestAssigneeCycles(t *testing.T) {
	m := loggedIn(t, "KAN")
	m, _ = update(m, keyPress(tea.KeyTab))
	m, _ = update(m, keyPress(tea.KeyTab))
	if m.ws.field != wsAssignee {
		t.Fatalf("field = %v, want assignee", m.ws.field)
	}

	want := []string{"acc-laura", "acc-santiago", ""}
	for _, id := range want {
		m, _ = update(m, keyPress(tea.KeyRight))
		if got := m.ws.form.At(0).AssigneeID; got != id {
			t.Errorf("assignee = %q, want %q", got, id)
		}
	}
}

func TestSubtaskManager(t *testing.T) {
	m := loggedIn(t, "KAN")
	m, _ = update(m, keyPress(tea.KeyCtrlB))
	if m.viewMode != ViewSubtasks {
		t.Fatalf("viewMode = %v, want subtasks", m.viewMode)
	}

	m, _ = update(m, runes("a"))
	if !m.manager.editing {
		t.Fatal("a should open the editor")
	}
	m.manager.inputs[stName].SetValue("Publicar")
	m.manager.inputs[stEmoji].SetValue("🚀")
	m.manager.inputs[stLabels].SetValue("social, social, final")
	m, cmd := update(m, keyPress(tea.KeyCtrlS))
	m = run(m, cmd)

	if m.manager.editing {
		t.Error("editor should close after saving")
	}
	if len(m.subtasks) != 7 {
		t.Fatalf("subtasks = %d, want 7", len(m.subtasks))
	}
	last := m.subtasks[6]
	if last.Name != "Publicar" || strings.Join(last.Labels, ",") != "social,final" {
		t.Errorf("created = %+v", last)
	}

	// Delete down to one, then the last delete is refused
	for len(m.subtasks) > 1 {
		m, cmd = update(m, runes("d"))
		m = run(m, cmd)
	}
	m, cmd = update(m, runes("d"))
	m = run(m, cmd)
	if len(m.subtasks) != 1 {
		t.Errorf("subtasks = %d, want 1", len(m.subtasks))
	}
	if !m.statusErr || !strings.Contains(m.status, "must remain") {
		t.Errorf("status = %q", m.status)
	}
}

func TestSubtaskEditorRequiresName(t *testing.T) {
	m := loggedIn(t, "KAN")
	m.viewMode = ViewSubtasks
	m, _ = update(m, runes("a"))
	m, cmd := update(m, keyPress(tea.KeyCtrlS))
	m = run(m, cmd)

	if !m.manager.editing {
		t.Error("editor should stay open")
	}
	if m.manager.err != catalog.ErrNameRequired.Error() {
		t.Errorf("err = %q", m.manager.err)
	}
}

func TestSettingsSaveJira(t *testing.T) {
	m := loggedIn(t, "OPS")
	m, _ = update(m, keyPress(tea.KeyCtrlO))
	if m.viewMode != ViewSettings {
		t.Fatalf("viewMode = %v, want settings", m.viewMode)
	}

	m, _ = update(m, runes("e"))
	m.settings.inputs[setJiraEmail].SetValue("dana@corp.test")
	m.settings.inputs[setJiraURL].SetValue("https://corp.atlassian.net/")
	m.settings.inputs[setJiraToken].SetValue("secret")
	m, cmd := update(m, keyPress(tea.KeyCtrlS))
	m = run(m, cmd)

	if m.settings.Error != "" {
		t.Fatalf("error = %q", m.settings.Error)
	}
	if m.user.JiraBaseURL != "https://corp.atlassian.net" {
		t.Errorf("jira url = %q", m.user.JiraBaseURL)
	}
	if m.settings.Notice == "" {
		t.Error("expected a saved notice")
	}
}

func TestAuthFormValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    AuthMode
		values  map[authField]string
		wantErr string
	}{
		{"login ok", AuthLogin, map[authField]string{fieldUsername: "dana", fieldPassword: "x"}, ""},
		{"login missing password", AuthLogin, map[authField]string{fieldUsername: "dana"}, "Username and password are required"},
		{"register bad email", AuthRegister, map[authField]string{fieldEmail: "nope", fieldUsername: "dana", fieldPassword: "long-enough"}, "Enter a valid email"},
		{"register short username", AuthRegister, map[authField]string{fieldEmail: "d@x.test", fieldUsername: "da", fieldPassword: "long-enough"}, "Username must be at least 3 characters"},
		{"register short password", AuthRegister, map[authField]string{fieldEmail: "d@x.test", fieldUsername: "dana", fieldPassword: "short"}, "Password must be at least 8 characters"},
		{"register bad jira url", AuthRegister, map[authField]string{fieldEmail: "d@x.test", fieldUsername: "dana", fieldPassword: "long-enough", fieldJiraURL: "corp.atlassian.net"}, "Jira URL must start with http:// or https://"},
		{"register ok", AuthRegister, map[authField]string{fieldEmail: "d@x.test", fieldUsername: "dana", fieldPassword: "long-enough"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewAuthForm().SetMode(tt.mode)
			for field, v := range tt.values {
				f.inputs[field].SetValue(v)
			}
			if got := f.Validate(); got != tt.wantErr {
				t.Errorf("Validate() = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestDebugPanel(t *testing.T) {
	d := NewDebugPanel(false)
	for i := 0; i < 150; i++ {
		d.AddEvent("tick", fmt.Sprint(i))
	}
	if len(d.Lines()) != 100 {
		t.Errorf("lines = %d, want 100", len(d.Lines()))
	}
	if !strings.HasSuffix(d.Lines()[0], "[tick] 50") {
		t.Errorf("oldest = %q", d.Lines()[0])
	}
	if d.Render(80, 10) != "" {
		t.Error("hidden panel should render nothing")
	}
	d.Toggle()
	if !strings.Contains(d.Render(80, 10), "[tick] 149") {
		t.Error("panel should show the newest event")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"ñañañañañañaña", 5, "ña..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
