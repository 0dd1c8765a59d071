package tracker

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/model"
)

// DefaultCacheTTL is how long project and user lists are reused
const DefaultCacheTTL = 30 * time.Second

// JiraProvider implements Provider through the backend's Jira proxy
type JiraProvider struct {
	client *api.Client

	mu       sync.Mutex
	cache    map[string]cachedData
	cacheTTL time.Duration
	now      func() time.Time
}

type cachedData struct {
	data      any
	fetchedAt time.Time
}

// NewJiraProvider creates a provider. A zero ttl uses DefaultCacheTTL.
func NewJiraProvider(client *api.Client, ttl time.Duration) *JiraProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &JiraProvider{
		client:   client,
		cache:    make(map[string]cachedData),
		cacheTTL: ttl,
		now:      time.Now,
	}
}

// Name returns the display name
func (p *JiraProvider) Name() string {
	return "Jira"
}

// lookup returns a fresh cached value for key
func (p *JiraProvider) lookup(key string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cached, ok := p.cache[key]
	if !ok || p.now().Sub(cached.fetchedAt) >= p.cacheTTL {
		return nil, false
	}
	return cached.data, true
}

func (p *JiraProvider) store(key string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[key] = cachedData{data: data, fetchedAt: p.now()}
}

// Projects returns projects sorted by key. Failures are not cached.
func (p *JiraProvider) Projects(ctx context.Context) ([]model.Project, error) {
	if data, ok := p.lookup("projects"); ok {
		if projects, ok := data.([]model.Project); ok {
			return projects, nil
		}
	}

	projects, err := p.client.Projects(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(projects, func(i, j int) bool { return projects[i].Key < projects[j].Key })

	p.store("projects", projects)
	return projects, nil
}

// Users returns active users of a project sorted by display name
func (p *JiraProvider) Users(ctx context.Context, projectKey string) ([]model.Assignee, error) {
	cacheKey := "users:" + projectKey
	if data, ok := p.lookup(cacheKey); ok {
		if users, ok := data.([]model.Assignee); ok {
			return users, nil
		}
	}

	all, err := p.client.ProjectUsers(ctx, projectKey)
	if err != nil {
		return nil, err
	}

	users := make([]model.Assignee, 0, len(all))
	for _, u := range all {
		if u.Active {
			users = append(users, u)
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].DisplayName) < strings.ToLower(users[j].DisplayName)
	})

	p.store(cacheKey, users)
	return users, nil
}

// ClearCache clears the cache
func (p *JiraProvider) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string]cachedData)
}
