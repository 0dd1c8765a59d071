package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/devserver"
)

func newProvider(t *testing.T) (*JiraProvider, *atomic.Int64) {
	t.Helper()
	router := devserver.New(nil, devserver.WithProjects([]devserver.Project{
		{Key: "ZED", Name: "Last"},
		{Key: "ABC", Name: "First", Users: []devserver.ProjectUser{
			{AccountID: "2", DisplayName: "zoe"},
			{AccountID: "1", DisplayName: "Adam"},
		}},
	})).Router()

	hits := &atomic.Int64{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	return NewJiraProvider(api.NewClient(ts.URL, 0, nil), time.Minute), hits
}

func TestProjectsSortedAndCached(t *testing.T) {
	p, hits := newProvider(t)
	ctx := context.Background()

	projects, err := p.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "ABC", projects[0].Key)
	assert.Equal(t, "ABC - First", projects[0].Label())

	_, err = p.Projects(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load())

	p.ClearCache()
	_, err = p.Projects(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestCacheExpires(t *testing.T) {
	p, hits := newProvider(t)
	now := time.Now()
	p.now = func() time.Time { return now }

	_, err := p.Projects(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = p.Projects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestUsersSortedByName(t *testing.T) {
	p, _ := newProvider(t)

	users, err := p.Users(context.Background(), "ABC")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Adam", users[0].DisplayName)
	assert.Equal(t, "zoe", users[1].DisplayName)
}

func TestUsersUnknownProject(t *testing.T) {
	p, hits := newProvider(t)

	_, err := p.Users(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, api.StatusOf(err))

	_, _ = p.Users(context.Background(), "NOPE")
	assert.Equal(t, int64(2), hits.Load(), "errors are not cached")
}

func TestName(t *testing.T) {
	var p Provider = NewJiraProvider(nil, 0)
	assert.Equal(t, "Jira", p.Name())
}
