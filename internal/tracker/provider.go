// Package tracker is the read-only directory of projects and assignable users.
package tracker

import (
	"context"

	"github.com/clive/jira-tui/internal/model"
)

// Provider lists what the user can file tasks against
type Provider interface {
	// Name returns the display name of the tracker
	Name() string

	// Projects returns every project visible to the user
	Projects(ctx context.Context) ([]model.Project, error)

	// Users returns the users assignable in a project
	Users(ctx context.Context, projectKey string) ([]model.Assignee, error)

	// ClearCache drops any cached data
	ClearCache()
}
