package model

import "time"

// User is the profile of the authenticated account
type User struct {
	ID          int
	Email       string
	Username    string
	JiraEmail   string // empty when not configured
	JiraBaseURL string // empty when not configured
	IsActive    bool
	IsSuperuser bool
	CreatedAt   time.Time
	LastLogin   *time.Time
}

// HasJiraCredentials reports whether the account has Jira settings on file
func (u User) HasJiraCredentials() bool {
	return u.JiraEmail != "" && u.JiraBaseURL != ""
}

// DisplayName returns the username, falling back to the email
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Registration holds the fields sent when creating an account
type Registration struct {
	Email        string
	Username     string
	Password     string
	JiraEmail    string
	JiraAPIToken string
	JiraBaseURL  string
}

// JiraCredentials is a partial update of the account's Jira settings.
// Empty fields are left unchanged server-side.
type JiraCredentials struct {
	Email    string
	APIToken string
	BaseURL  string
}
