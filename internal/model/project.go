package model

// Project is a Jira project the user can file tasks into
type Project struct {
	Key         string
	Name        string
	ProjectType string
}

// Label returns "KEY - Name" for pickers
func (p Project) Label() string {
	if p.Name == "" {
		return p.Key
	}
	return p.Key + " - " + p.Name
}

// Assignee is a user that can be assigned issues in a project
type Assignee struct {
	AccountID   string
	DisplayName string
	Email       string
	Active      bool
	AvatarURL   string
}
