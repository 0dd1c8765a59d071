// Package session owns the client's authentication state. Manager is the
// only writer; everything else reads Snapshots or asks for the token.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/credentials"
	"github.com/clive/jira-tui/internal/logging"
	"github.com/clive/jira-tui/internal/model"
)

// State of the session
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

var (
	// ErrStale is returned to a caller whose attempt was superseded by a
	// newer login, register, restore, logout or Cancel. State was not touched.
	ErrStale = errors.New("session attempt superseded")

	// ErrAutoLoginFailed marks a Register whose account was created but whose
	// follow-up login failed. The account exists server-side.
	ErrAutoLoginFailed = errors.New("account created but login failed")

	// ErrNotAuthenticated is wrapped by precondition errors for missing tokens
	ErrNotAuthenticated = api.ErrNoToken
)

// Snapshot is a read-only copy of the session
type Snapshot struct {
	State      State
	Generation uint64
	User       model.User
	Token      string
}

// IsAuthenticated reports whether the snapshot holds a usable session
func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.Token != ""
}

// Manager runs login, register, logout, refresh and restore
type Manager struct {
	client *api.Client
	store  *credentials.Store
	logger *logging.Logger

	mu    sync.RWMutex
	state State
	gen   uint64
	token string
	user  model.User

	listenMu  sync.Mutex
	listeners []func(Snapshot)
}

// NewManager creates an unauthenticated manager. Call Restore to hydrate.
func NewManager(client *api.Client, store *credentials.Store, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Manager{
		client: client,
		store:  store,
		logger: logger.WithComponent("session"),
	}
}

// Token returns the bearer token, or "" unless authenticated.
// Manager satisfies api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated {
		return ""
	}
	return m.token
}

// Snapshot returns a copy of the current session
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{State: m.state, Generation: m.gen, User: m.user, Token: m.token}
}

// Generation returns the id of the latest attempt
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

// OnChange registers fn to be called after every state change.
// fn runs on the goroutine that made the change, outside any lock.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.listenMu.Lock()
	defer m.listenMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(s Snapshot) {
	m.listenMu.Lock()
	listeners := append([]func(Snapshot){}, m.listeners...)
	m.listenMu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

// begin starts a new attempt and returns its generation
func (m *Manager) begin(cached model.User) uint64 {
	m.mu.Lock()
	m.gen++
	m.state = StateAuthenticating
	m.token = ""
	m.user = cached
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return snap.Generation
}

// fail rolls back to unauthenticated if gen is still current
func (m *Manager) fail(gen uint64, cause error) (Snapshot, error) {
	m.mu.Lock()
	if gen != m.gen {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, ErrStale
	}
	m.clearLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return snap, cause
}

// commit stores a successful attempt if gen is still current
func (m *Manager) commit(gen uint64, token string, user model.User) (Snapshot, error) {
	m.mu.Lock()
	if gen != m.gen {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, ErrStale
	}
	if err := m.store.Save(token, user); err != nil {
		m.clearLocked()
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.notify(snap)
		return snap, fmt.Errorf("persist session: %w", err)
	}
	m.state = StateAuthenticated
	m.token = token
	m.user = user
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("session established", "user_id", user.ID, "username", user.Username)
	m.notify(snap)
	return snap, nil
}

// clearLocked drops in-memory and persisted state. Caller holds mu.
func (m *Manager) clearLocked() {
	m.state = StateUnauthenticated
	m.token = ""
	m.user = model.User{}
	if err := m.store.Clear(); err != nil {
		m.logger.Error("clear credentials failed", "error", err)
	}
}

// Login exchanges credentials for a token, then fetches the profile. Any
// failure leaves the manager unauthenticated with nothing persisted.
func (m *Manager) Login(ctx context.Context, username, password string) (Snapshot, error) {
	gen := m.begin(model.User{})
	m.logger.Debug("login started", "username", username, "generation", gen)
	return m.login(ctx, gen, username, password)
}

func (m *Manager) login(ctx context.Context, gen uint64, username, password string) (Snapshot, error) {
	token, err := m.client.Login(ctx, username, password)
	if err != nil {
		m.logger.Info("login rejected", "username", username, "error", api.Message(err))
		return m.fail(gen, err)
	}

	user, err := m.client.WithToken(token).Me(ctx)
	if err != nil {
		m.logger.Warn("profile fetch after login failed", "error", api.Message(err))
		return m.fail(gen, err)
	}

	return m.commit(gen, token, user)
}

// Register creates an account and logs into it with the same credentials.
// If the login step fails the error wraps ErrAutoLoginFailed and the
// manager stays unauthenticated even though the account now exists.
func (m *Manager) Register(ctx context.Context, reg model.Registration) (Snapshot, error) {
	gen := m.begin(model.User{})
	m.logger.Debug("register started", "username", reg.Username, "generation", gen)

	if _, err := m.client.Register(ctx, reg); err != nil {
		m.logger.Info("register rejected", "username", reg.Username, "error", api.Message(err))
		return m.fail(gen, err)
	}

	snap, err := m.login(ctx, gen, reg.Username, reg.Password)
	if err != nil && !errors.Is(err, ErrStale) {
		m.logger.Warn("account created but auto-login failed", "username", reg.Username)
		return snap, fmt.Errorf("%w: %w", ErrAutoLoginFailed, err)
	}
	return snap, err
}

// RefreshUser re-fetches the profile. Any failure is treated as an expired
// session and logs out. Without a token it fails before any network call.
func (m *Manager) RefreshUser(ctx context.Context) (model.User, error) {
	m.mu.RLock()
	token, gen, state := m.token, m.gen, m.state
	m.mu.RUnlock()

	if state != StateAuthenticated || token == "" {
		return model.User{}, api.NoSession("GET /api/v1/auth/me")
	}

	user, err := m.client.WithToken(token).Me(ctx)

	m.mu.Lock()
	if gen != m.gen || token != m.token {
		m.mu.Unlock()
		return model.User{}, ErrStale
	}
	if err != nil {
		m.gen++
		m.clearLocked()
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.logger.Info("session expired on refresh", "error", api.Message(err))
		m.notify(snap)
		return model.User{}, err
	}
	m.user = user
	if serr := m.store.SaveUser(user); serr != nil {
		m.logger.Error("save refreshed user failed", "error", serr)
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return user, nil
}

// UpdateJiraCredentials changes the account's Jira settings and replaces
// the cached profile with the server's answer.
func (m *Manager) UpdateJiraCredentials(ctx context.Context, creds model.JiraCredentials) (model.User, error) {
	m.mu.RLock()
	token, gen := m.token, m.gen
	authed := m.state == StateAuthenticated
	m.mu.RUnlock()

	if !authed || token == "" {
		return model.User{}, api.NoSession("PUT /api/v1/auth/jira-credentials")
	}

	user, err := m.client.WithToken(token).UpdateJiraCredentials(ctx, creds)
	if err != nil {
		if api.IsUnauthorized(err) {
			m.expire(gen, token)
		}
		return model.User{}, err
	}

	m.mu.Lock()
	if gen != m.gen || token != m.token {
		m.mu.Unlock()
		return user, ErrStale
	}
	m.user = user
	if serr := m.store.SaveUser(user); serr != nil {
		m.logger.Error("save user failed", "error", serr)
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return user, nil
}

// expire logs out if the session is still the one identified by gen/token
func (m *Manager) expire(gen uint64, token string) {
	m.mu.Lock()
	if gen != m.gen || token != m.token {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.clearLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

// Logout asks the server to drop the token, ignoring any failure, then
// always clears local state. Any in-flight attempt becomes stale.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()

	if token != "" {
		if err := m.client.WithToken(token).Logout(ctx); err != nil {
			m.logger.Debug("server logout failed", "error", err)
		}
	}

	m.mu.Lock()
	m.gen++
	m.clearLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("logged out")
	m.notify(snap)
}

// Restore hydrates from the credential store and validates the token once.
// A missing, rejected or unverifiable token silently leaves the manager
// unauthenticated; only a storage read failure is returned.
func (m *Manager) Restore(ctx context.Context) (Snapshot, error) {
	return m.restore(ctx, false)
}

// Resume is Restore for one-shot commands. When the backend cannot be
// reached the stored credentials are kept and the transport error is
// returned; a rejected token is still cleared silently.
func (m *Manager) Resume(ctx context.Context) (Snapshot, error) {
	return m.restore(ctx, true)
}

func (m *Manager) restore(ctx context.Context, keepOnTransport bool) (Snapshot, error) {
	token, cached, ok, err := m.store.Load()
	if err != nil {
		m.logger.Error("read credentials failed", "error", err)
		return m.Snapshot(), fmt.Errorf("read credentials: %w", err)
	}
	if !ok {
		m.mu.Lock()
		m.clearLocked()
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, nil
	}

	gen := m.begin(cached)

	user, err := m.client.WithToken(token).Me(ctx)
	if err != nil && keepOnTransport && api.IsKind(err, api.KindTransport) {
		m.logger.Info("backend unreachable, keeping stored session", "error", err)
		return m.abandon(gen, err)
	}
	if err != nil {
		m.logger.Info("stored session rejected", "error", api.Message(err))
		snap, ferr := m.fail(gen, nil)
		if errors.Is(ferr, ErrStale) {
			return snap, ErrStale
		}
		return snap, nil
	}

	return m.commit(gen, token, user)
}

// abandon is fail without touching the credential store
func (m *Manager) abandon(gen uint64, cause error) (Snapshot, error) {
	m.mu.Lock()
	if gen != m.gen {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, ErrStale
	}
	m.state = StateUnauthenticated
	m.token = ""
	m.user = model.User{}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return snap, cause
}

// Cancel abandons an in-flight login, register or restore. Its eventual
// result is discarded. Persisted credentials are left alone. It reports
// false when no attempt was in flight, e.g. one that already committed.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	if m.state != StateAuthenticating {
		m.mu.Unlock()
		return false
	}
	m.gen++
	m.state = StateUnauthenticated
	m.token = ""
	m.user = model.User{}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return true
}
