package credentials

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clive/jira-tui/internal/model"
)

// Storage keys. Both are always cleared together.
const (
	TokenKey = "jira_agent_token"
	UserKey  = "jira_agent_user"
)

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the storage for backend at path
func Open(backend, path string) (Storage, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStorage(path)
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}

// storedUser is the persisted shape of model.User
type storedUser struct {
	ID          int        `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	JiraEmail   string     `json:"jira_email,omitempty"`
	JiraBaseURL string     `json:"jira_base_url,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

func fromModel(u model.User) storedUser {
	return storedUser{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		JiraEmail:   u.JiraEmail,
		JiraBaseURL: u.JiraBaseURL,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
	}
}

func (s storedUser) toModel() model.User {
	return model.User{
		ID:          s.ID,
		Email:       s.Email,
		Username:    s.Username,
		JiraEmail:   s.JiraEmail,
		JiraBaseURL: s.JiraBaseURL,
		IsActive:    s.IsActive,
		IsSuperuser: s.IsSuperuser,
		CreatedAt:   s.CreatedAt,
		LastLogin:   s.LastLogin,
	}
}

// Store reads and writes the session token and cached profile
type Store struct {
	storage Storage
}

// NewStore wraps storage
func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Save persists both the token and the profile
func (s *Store) Save(token string, user model.User) error {
	if err := s.storage.Set(TokenKey, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := s.SaveUser(user); err != nil {
		_ = s.storage.Delete(TokenKey)
		return err
	}
	return nil
}

// SaveUser replaces the cached profile
func (s *Store) SaveUser(user model.User) error {
	data, err := json.Marshal(fromModel(user))
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.storage.Set(UserKey, string(data)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// Token returns the stored token, or "" if none
func (s *Store) Token() (string, error) {
	tok, _, err := s.storage.Get(TokenKey)
	return tok, err
}

// Load returns the stored token and profile. ok is false unless both are
// present and the profile decodes.
func (s *Store) Load() (token string, user model.User, ok bool, err error) {
	token, hasToken, err := s.storage.Get(TokenKey)
	if err != nil || !hasToken || token == "" {
		return "", model.User{}, false, err
	}

	raw, hasUser, err := s.storage.Get(UserKey)
	if err != nil || !hasUser {
		return "", model.User{}, false, err
	}

	var su storedUser
	if err := json.Unmarshal([]byte(raw), &su); err != nil {
		return "", model.User{}, false, nil
	}
	return token, su.toModel(), true, nil
}

// Clear removes the token and profile
func (s *Store) Clear() error {
	if err := s.storage.Delete(TokenKey, UserKey); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// Close releases the underlying storage
func (s *Store) Close() error {
	return s.storage.Close()
}
