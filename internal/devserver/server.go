// Package devserver is an in-memory stand-in for the task-creation backend.
// It serves the same REST surface with canned Jira behaviour so the client
// can be exercised offline and in tests.
package devserver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultJiraURL is used for issue links when an account has no Jira URL
const DefaultJiraURL = "https://jira.example.test"

type account struct {
	ID           int
	Email        string
	Username     string
	PasswordHash []byte
	JiraEmail    string
	JiraAPIToken string
	JiraBaseURL  string
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

type subtask struct {
	ID          int
	OwnerID     int
	Name        string
	Emoji       string
	Description string
	Labels      []string
	Order       int
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Project is a canned Jira project
type Project struct {
	Key         string
	Name        string
	ProjectType string
	Users       []ProjectUser
}

// ProjectUser is a canned assignable user
type ProjectUser struct {
	AccountID   string
	DisplayName string
	Email       string
}

// DefaultProjects is the project set served when none is configured
func DefaultProjects() []Project {
	return []Project{
		{
			Key: "KAN", Name: "Instagram Content", ProjectType: "software",
			Users: []ProjectUser{
				{AccountID: "acc-santiago", DisplayName: "Santiago", Email: "santiago@example.test"},
				{AccountID: "acc-laura", DisplayName: "Laura", Email: "laura@example.test"},
			},
		},
		{
			Key: "OPS", Name: "Operations", ProjectType: "business",
			Users: []ProjectUser{
				{AccountID: "acc-ops", DisplayName: "Ops Bot"},
			},
		},
	}
}

// defaultSubtasks are seeded for every new account
var defaultSubtasks = []struct{ name, emoji, desc string }{
	{"Selección de tomas", "🎬", "Elegir las mejores tomas del material"},
	{"Edición", "✂️", "Montaje y edición del contenido"},
	{"Diseño sonoro", "🎵", "Música, efectos y mezcla"},
	{"Color", "🎨", "Corrección y gradación de color"},
	{"Copy / Caption", "✍️", "Texto de la publicación"},
	{"Export", "📤", "Exportar en los formatos finales"},
}

// TaskHook lets tests force a per-task failure. A non-nil error fails that task.
type TaskHook func(text string) error

// Server holds all backend state behind one mutex
type Server struct {
	mu sync.Mutex

	accounts   map[int]*account
	byUsername map[string]*account
	tokens     map[string]int // token -> account id
	subtasks   map[int]*subtask
	projects   []Project
	issueSeq   map[string]int

	nextAccountID int
	nextSubtaskID int

	taskHook TaskHook
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithProjects replaces the canned project list
func WithProjects(projects []Project) Option {
	return func(s *Server) { s.projects = projects }
}

// WithTaskHook installs a per-task failure hook
func WithTaskHook(hook TaskHook) Option {
	return func(s *Server) { s.taskHook = hook }
}

// New creates an empty server
func New(logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		accounts:      make(map[int]*account),
		byUsername:    make(map[string]*account),
		tokens:        make(map[string]int),
		subtasks:      make(map[int]*subtask),
		projects:      DefaultProjects(),
		issueSeq:      make(map[string]int),
		nextAccountID: 1,
		nextSubtaskID: 1,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	errEmailTaken    = errors.New("Email already registered")
	errUsernameTaken = errors.New("Username already exists")
	errJiraURL       = errors.New("Jira URL must start with http:// or https://")
	errBadLogin      = errors.New("Invalid credentials")
	errInactive      = errors.New("Inactive user")
	errNotFound      = errors.New("Subtask not found")
	errLastSubtask   = errors.New("Cannot delete the last subtask. You must have at least one subtask.")
	errBadReorder    = errors.New("Invalid subtask IDs provided")
)

type registration struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	JiraEmail    string `json:"jira_email"`
	JiraAPIToken string `json:"jira_api_token"`
	JiraBaseURL  string `json:"jira_base_url"`
}

func validJiraURL(u string) bool {
	return u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func (s *Server) register(reg registration) (*account, error) {
	if !validJiraURL(reg.JiraBaseURL) {
		return nil, errJiraURL
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, reg.Email) {
			return nil, errEmailTaken
		}
	}
	if _, ok := s.byUsername[reg.Username]; ok {
		return nil, errUsernameTaken
	}

	acct := &account{
		ID:           s.nextAccountID,
		Email:        reg.Email,
		Username:     reg.Username,
		PasswordHash: hash,
		JiraEmail:    reg.JiraEmail,
		JiraAPIToken: reg.JiraAPIToken,
		JiraBaseURL:  strings.TrimRight(reg.JiraBaseURL, "/"),
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	s.nextAccountID++
	s.accounts[acct.ID] = acct
	s.byUsername[acct.Username] = acct

	for i, d := range defaultSubtasks {
		s.addSubtaskLocked(acct.ID, d.name, d.emoji, d.desc, []string{}, i)
	}
	return acct, nil
}

func (s *Server) login(username, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byUsername[username]
	if !ok {
		return "", errBadLogin
	}
	if bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)) != nil {
		return "", errBadLogin
	}
	if !acct.IsActive {
		return "", errInactive
	}

	now := s.now()
	acct.LastLogin = &now
	token := uuid.New().String()
	s.tokens[token] = acct.ID
	return token, nil
}

func (s *Server) logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// RevokeAll invalidates every issued token, as a server restart would
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]int)
}

// Deactivate marks an account inactive
func (s *Server) Deactivate(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byUsername[username]; ok {
		a.IsActive = false
	}
}

func (s *Server) accountForToken(token string) (*account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	acct, ok := s.accounts[id]
	return acct, ok
}

func (s *Server) updateJira(acct *account, email, apiToken, baseURL string) error {
	if !validJiraURL(baseURL) {
		return errJiraURL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if email != "" {
		acct.JiraEmail = email
	}
	if apiToken != "" {
		acct.JiraAPIToken = apiToken
	}
	if baseURL != "" {
		acct.JiraBaseURL = strings.TrimRight(baseURL, "/")
	}
	return nil
}

func (s *Server) addSubtaskLocked(owner int, name, emoji, desc string, labels []string, order int) *subtask {
	st := &subtask{
		ID:          s.nextSubtaskID,
		OwnerID:     owner,
		Name:        name,
		Emoji:       emoji,
		Description: desc,
		Labels:      labels,
		Order:       order,
		CreatedAt:   s.now(),
	}
	s.nextSubtaskID++
	s.subtasks[st.ID] = st
	return st
}

// subtasksLocked returns the owner's subtasks sorted by order then id
func (s *Server) subtasksLocked(owner int) []*subtask {
	var out []*subtask
	for _, st := range s.subtasks {
		if st.OwnerID == owner {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Server) listSubtasks(owner int) []subtask {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []subtask
	for _, st := range s.subtasksLocked(owner) {
		out = append(out, *st)
	}
	return out
}

func (s *Server) createSubtask(owner int, name, emoji, desc string, labels []string, order *int) subtask {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := len(s.subtasksLocked(owner))
	if order != nil {
		o = *order
	}
	return *s.addSubtaskLocked(owner, name, emoji, desc, labels, o)
}

type subtaskPatch struct {
	Name        *string  `json:"name"`
	Emoji       *string  `json:"emoji"`
	Description *string  `json:"description"`
	Labels      []string `json:"labels"`
	Order       *int     `json:"order"`
}

func (s *Server) updateSubtask(owner, id int, p subtaskPatch) (subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.subtasks[id]
	if !ok || st.OwnerID != owner {
		return subtask{}, errNotFound
	}
	if p.Name != nil {
		st.Name = *p.Name
	}
	if p.Emoji != nil {
		st.Emoji = *p.Emoji
	}
	if p.Description != nil {
		st.Description = *p.Description
	}
	if p.Labels != nil {
		st.Labels = p.Labels
	}
	if p.Order != nil {
		st.Order = *p.Order
	}
	now := s.now()
	st.UpdatedAt = &now
	return *st, nil
}

func (s *Server) deleteSubtask(owner, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.subtasks[id]
	if !ok || st.OwnerID != owner {
		return errNotFound
	}
	if len(s.subtasksLocked(owner)) <= 1 {
		return errLastSubtask
	}
	delete(s.subtasks, id)
	return nil
}

func (s *Server) reorderSubtasks(owner int, ids []int) ([]subtask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		st, ok := s.subtasks[id]
		if !ok || st.OwnerID != owner {
			return nil, errBadReorder
		}
	}
	for i, id := range ids {
		s.subtasks[id].Order = i
	}
	var out []subtask
	for _, st := range s.subtasksLocked(owner) {
		out = append(out, *st)
	}
	return out, nil
}

func (s *Server) project(key string) (Project, bool) {
	for _, p := range s.projects {
		if p.Key == key {
			return p, true
		}
	}
	return Project{}, false
}
