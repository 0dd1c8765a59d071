package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/clive/jira-tui/internal/model"
)

// Projects lists the Jira projects visible to the account
func (c *Client) Projects(ctx context.Context) ([]model.Project, error) {
	var resp projectsJSON
	if err := c.do(ctx, request{method: http.MethodGet, path: "/projects", auth: authOptional}, &resp); err != nil {
		return nil, err
	}

	projects := make([]model.Project, 0, len(resp.Projects))
	for _, p := range resp.Projects {
		projects = append(projects, model.Project{Key: p.Key, Name: p.Name, ProjectType: p.ProjectType})
	}
	return projects, nil
}

// ProjectUsers lists the users assignable in a project
func (c *Client) ProjectUsers(ctx context.Context, projectKey string) ([]model.Assignee, error) {
	req := request{
		method: http.MethodGet,
		path:   "/projects/" + url.PathEscape(projectKey) + "/users",
		auth:   authOptional,
	}

	var resp projectUsersJSON
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}

	users := make([]model.Assignee, 0, len(resp.Users))
	for _, u := range resp.Users {
		users = append(users, model.Assignee{
			AccountID:   u.AccountID,
			DisplayName: u.DisplayName,
			Email:       deref(u.Email),
			Active:      u.Active,
			AvatarURL:   deref(u.AvatarURL),
		})
	}
	return users, nil
}
