package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/clive/jira-tui/internal/model"
)

// Login exchanges credentials for an access token. The body is form-encoded.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req := request{method: http.MethodPost, path: "/auth/login", form: form}

	var tok tokenJSON
	if err := c.do(ctx, req, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &Error{Kind: KindHTTP, Status: http.StatusOK, Message: "server returned no access token", Op: req.op()}
	}
	return tok.AccessToken, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, reg model.Registration) (model.User, error) {
	body := registerJSON{
		Email:        reg.Email,
		Username:     reg.Username,
		Password:     reg.Password,
		JiraEmail:    reg.JiraEmail,
		JiraAPIToken: reg.JiraAPIToken,
		JiraBaseURL:  reg.JiraBaseURL,
	}

	var u userJSON
	if err := c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: body}, &u); err != nil {
		return model.User{}, err
	}
	return u.toModel(), nil
}

// Me returns the profile of the token's owner
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u userJSON
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me", auth: authRequired}, &u); err != nil {
		return model.User{}, err
	}
	return u.toModel(), nil
}

// Logout asks the server to invalidate the token
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/logout", auth: authRequired}, nil)
}

// UpdateJiraCredentials changes the Jira settings stored for the account
func (c *Client) UpdateJiraCredentials(ctx context.Context, creds model.JiraCredentials) (model.User, error) {
	body := jiraCredentialsJSON{
		JiraEmail:    creds.Email,
		JiraAPIToken: creds.APIToken,
		JiraBaseURL:  creds.BaseURL,
	}

	var u userJSON
	req := request{method: http.MethodPut, path: "/auth/jira-credentials", auth: authRequired, body: body}
	if err := c.do(ctx, req, &u); err != nil {
		return model.User{}, err
	}
	return u.toModel(), nil
}
