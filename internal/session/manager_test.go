package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/credentials"
	"github.com/clive/jira-tui/internal/devserver"
	"github.com/clive/jira-tui/internal/model"
)

type testEnv struct {
	mgr     *Manager
	storage *credentials.MemoryStorage
	store   *credentials.Store
	backend *devserver.Server
	client  *api.Client
	calls   *atomic.Int64
}

// newEnv starts a dev backend. wrap, if non-nil, sits in front of it.
func newEnv(t *testing.T, wrap func(http.Handler) http.Handler) *testEnv {
	t.Helper()

	backend := devserver.New(nil)
	var handler http.Handler = backend.Router()
	if wrap != nil {
		handler = wrap(handler)
	}
	calls := &atomic.Int64{}
	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler.ServeHTTP(w, r)
	})
	ts := httptest.NewServer(counted)
	t.Cleanup(ts.Close)

	storage := credentials.NewMemoryStorage()
	store := credentials.NewStore(storage)
	client := api.NewClient(ts.URL, 0, nil)

	return &testEnv{
		mgr:     NewManager(client, store, nil),
		storage: storage,
		store:   store,
		backend: backend,
		client:  client,
		calls:   calls,
	}
}

var alice = model.Registration{
	Email:    "alice@example.test",
	Username: "alice",
	Password: "correct-horse",
}

func (e *testEnv) seedAccount(t *testing.T) {
	t.Helper()
	_, err := e.client.Register(context.Background(), alice)
	require.NoError(t, err)
}

func assertStoreEmpty(t *testing.T, e *testEnv) {
	t.Helper()
	for _, key := range []string{credentials.TokenKey, credentials.UserKey} {
		_, ok, err := e.storage.Get(key)
		require.NoError(t, err)
		assert.False(t, ok, "%s should be absent", key)
	}
}

func TestLoginPersistsTokenAndProfile(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAccount(t)

	snap, err := e.mgr.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, "alice", snap.User.Username)
	assert.Equal(t, snap.Token, e.mgr.Token())

	token, user, ok, err := e.store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap.Token, token)
	assert.Equal(t, snap.User.ID, user.ID)
	assert.Equal(t, "alice@example.test", user.Email)
}

func TestLoginWrongPasswordRollsBack(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAccount(t)

	before := e.mgr.Snapshot()
	snap, err := e.mgr.Login(context.Background(), "alice", "wrong")

	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", api.Message(err))
	assert.Equal(t, http.StatusUnauthorized, api.StatusOf(err))
	assert.True(t, api.IsKind(err, api.KindHTTP))

	assert.Equal(t, StateUnauthenticated, snap.State)
	assert.Equal(t, before.User, snap.User)
	assert.Empty(t, snap.Token)
	assert.Empty(t, e.mgr.Token())
	assertStoreEmpty(t, e)
}

func TestLoginFailureClearsPreviousSession(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAccount(t)

	_, err := e.mgr.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)

	_, err = e.mgr.Login(context.Background(), "alice", "nope")
	require.Error(t, err)
	assert.False(t, e.mgr.Snapshot().IsAuthenticated())
	assertStoreEmpty(t, e)
}

func TestLoginProfileFailureRollsBack(t *testing.T) {
	e := newEnv(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/auth/me" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	e.seedAccount(t)

	_, err := e.mgr.Login(context.Background(), "alice", "correct-horse")
	require.Error(t, err)
	assert.Equal(t, "HTTP 500", api.Message(err))
	assert.Empty(t, e.mgr.Token())
	assertStoreEmpty(t, e)
}

func TestLoginTransportError(t *testing.T) {
	store := credentials.NewStore(credentials.NewMemoryStorage())
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	mgr := NewManager(api.NewClient(url, 0, nil), store, nil)
	_, err := mgr.Login(context.Background(), "alice", "pw")

	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindTransport))
	assert.Equal(t, api.MsgConnection, api.Message(err))
	assert.Equal(t, StateUnauthenticated, mgr.Snapshot().State)
}

func TestRegisterLogsIn(t *testing.T) {
	e := newEnv(t, nil)

	snap, err := e.mgr.Register(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, "alice", snap.User.Username)
}

func TestRegisterRejected(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAccount(t)

	_, err := e.mgr.Register(context.Background(), alice)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAutoLoginFailed))
	assert.Equal(t, "Email already registered", api.Message(err))
	assert.Equal(t, StateUnauthenticated, e.mgr.Snapshot().State)
}

func TestRegisterAutoLoginFailure(t *testing.T) {
	e := newEnv(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/auth/login" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"message":"login temporarily disabled"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	snap, err := e.mgr.Register(context.Background(), alice)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAutoLoginFailed)
	assert.Equal(t, "login temporarily disabled", api.Message(err))
	assert.Equal(t, StateUnauthenticated, snap.State)
	assertStoreEmpty(t, e)

	// The account exists: a direct register attempt now collides.
	_, err = e.client.Register(context.Background(), alice)
	assert.Equal(t, "Email already registered", api.Message(err))
}

func TestRefreshUserWithoutTokenIsPrecondition(t *testing.T) {
	e := newEnv(t, nil)

	_, err := e.mgr.RefreshUser(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindPrecondition))
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, int64(0), e.calls.Load(), "no request should be sent")
}

func TestRefreshUserExpiredTokenLogsOut(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAccount(t)
	_, err := e.mgr.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)

	e.backend.RevokeAll()

	_, err = e.mgr.RefreshUser(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, StateUnauthenticated, e.mgr.Snapshot().State)
	assertStoreEmpty(t, e)
}

func TestRefreshUserUpdatesProfile(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAccount(t)
	_, err := e.mgr.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)

	user, err := e.mgr.RefreshUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotNil(t, user.LastLogin)
}

func TestRestore(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		e := newEnv(t, nil)
		e.seedAccount(t)
		token, err := e.client.Login(context.Background(), "alice", "correct-horse")
		require.NoError(t, err)
		require.NoError(t, e.store.Save(token, model.User{ID: 1, Username: "stale-name"}))

		snap, err := e.mgr.Restore(context.Background())
		require.NoError(t, err)
		assert.True(t, snap.IsAuthenticated())
		assert.Equal(t, "alice", snap.User.Username)

		_, saved, ok, err := e.store.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "alice", saved.Username, "stored profile should be refreshed")
	})

	t.Run("rejected token clears silently", func(t *testing.T) {
		e := newEnv(t, nil)
		e.seedAccount(t)
		require.NoError(t, e.store.Save("revoked-token", model.User{ID: 1, Username: "alice"}))

		snap, err := e.mgr.Restore(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StateUnauthenticated, snap.State)
		assertStoreEmpty(t, e)
	})

	t.Run("nothing stored", func(t *testing.T) {
		e := newEnv(t, nil)

		snap, err := e.mgr.Restore(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StateUnauthenticated, snap.State)
		assert.Equal(t, int64(0), e.calls.Load())
	})

	t.Run("token without profile is ignored", func(t *testing.T) {
		e := newEnv(t, nil)
		require.NoError(t, e.storage.Set(credentials.TokenKey, "orphan"))

		snap, err := e.mgr.Restore(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StateUnauthenticated, snap.State)
		assert.Equal(t, int64(0), e.calls.Load())
		assertStoreEmpty(t, e)
	})
}

func TestUnreachableBackendOnRestore(t *testing.T) {
	newStored := func(t *testing.T) (*Manager, *credentials.Store) {
		store := credentials.NewStore(credentials.NewMemoryStorage())
		require.NoError(t, store.Save("kept-token", model.User{ID: 1, Username: "alice"}))
		return NewManager(api.NewClient("http://127.0.0.1:1", 0, nil), store, nil), store
	}

	t.Run("resume keeps stored credentials", func(t *testing.T) {
		mgr, store := newStored(t)

		snap, err := mgr.Resume(context.Background())
		require.Error(t, err)
		assert.True(t, api.IsKind(err, api.KindTransport))
		assert.Equal(t, StateUnauthenticated, snap.State)

		token, user, ok, err := store.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "kept-token", token)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("restore clears silently", func(t *testing.T) {
		mgr, store := newStored(t)

		snap, err := mgr.Restore(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StateUnauthenticated, snap.State)
		_, _, ok, err := store.Load()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("resume still clears a rejected token", func(t *testing.T) {
		e := newEnv(t, nil)
		e.seedAccount(t)
		require.NoError(t, e.store.Save("revoked-token", model.User{ID: 1, Username: "alice"}))

		_, err := e.mgr.Resume(context.Background())
		require.NoError(t, err)
		assertStoreEmpty(t, e)
	})
}

func TestLogoutSwallowsServerFailure(t *testing.T) {
	e := newEnv(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/auth/logout" {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	e.seedAccount(t)
	_, err := e.mgr.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)

	e.mgr.Logout(context.Background())

	assert.Equal(t, StateUnauthenticated, e.mgr.Snapshot().State)
	assert.Empty(t, e.mgr.Token())
	assertStoreEmpty(t, e)
}

func TestLogoutInvalidatesServerToken(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAccount(t)
	snap, err := e.mgr.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)

	e.mgr.Logout(context.Background())

	_, err = e.client.WithToken(snap.Token).Me(context.Background())
	assert.True(t, api.IsUnauthorized(err))
}

// blockLogin holds /auth/login until release is closed
func blockLogin(entered chan<- struct{}, release <-chan struct{}) func(http.Handler) http.Handler {
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

func TestCancelledLoginIsDiscarded(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	e := newEnv(t, blockLogin(entered, release))
	e.seedAccount(t)

	var (
		wg  sync.WaitGroup
		err error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err = e.mgr.Login(context.Background(), "alice", "correct-horse")
	}()

	<-entered
	assert.Equal(t, StateAuthenticating, e.mgr.Snapshot().State)
	assert.True(t, e.mgr.Cancel())
	close(release)
	wg.Wait()

	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, StateUnauthenticated, e.mgr.Snapshot().State)
	assertStoreEmpty(t, e)
}

func TestNewerLoginWins(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	e := newEnv(t, blockLogin(entered, release))
	e.seedAccount(t)
	_, err := e.client.Register(context.Background(), model.Registration{
		Email: "bob@example.test", Username: "bob", Password: "bob-password",
	})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = e.mgr.Login(context.Background(), "alice", "correct-horse")
	}()
	<-entered

	wg.Add(1)
	var second Snapshot
	var secondErr error
	go func() {
		defer wg.Done()
		second, secondErr = e.mgr.Login(context.Background(), "bob", "bob-password")
	}()
	<-entered
	close(release)
	wg.Wait()

	assert.ErrorIs(t, firstErr, ErrStale)
	require.NoError(t, secondErr)
	assert.Equal(t, "bob", second.User.Username)
	assert.Equal(t, "bob", e.mgr.Snapshot().User.Username)

	_, user, ok, err := e.store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bob", user.Username)
}

func TestOnChangeSeesTransitions(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAccount(t)

	var (
		mu     sync.Mutex
		states []State
	)
	e.mgr.OnChange(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	})

	_, err := e.mgr.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)
	e.mgr.Logout(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateAuthenticating, StateAuthenticated, StateUnauthenticated}, states)
}

func TestUpdateJiraCredentials(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAccount(t)
	_, err := e.mgr.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)

	user, err := e.mgr.UpdateJiraCredentials(context.Background(), model.JiraCredentials{
		Email:   "alice@corp.test",
		BaseURL: "https://corp.atlassian.net/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://corp.atlassian.net", user.JiraBaseURL)
	assert.True(t, e.mgr.Snapshot().User.HasJiraCredentials())

	_, err = e.mgr.UpdateJiraCredentials(context.Background(), model.JiraCredentials{BaseURL: "ftp://nope"})
	assert.Equal(t, "Jira URL must start with http:// or https://", api.Message(err))
	assert.True(t, e.mgr.Snapshot().IsAuthenticated(), "validation errors keep the session")
}
