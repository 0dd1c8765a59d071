package config

import "strings"

// WorkflowMode decides how tasks for a project are created
type WorkflowMode string

const (
	ModeStandard  WorkflowMode = "standard"
	ModeInstagram WorkflowMode = "instagram"
)

// AvailableModes returns all workflow modes
func AvailableModes() []ModeInfo {
	return []ModeInfo{
		{
			ID:          ModeStandard,
			Name:        "Standard",
			Description: "One Jira issue per task",
		},
		{
			ID:          ModeInstagram,
			Name:        "Instagram",
			Description: "Content task with production subtasks",
		},
	}
}

// ModeInfo describes a workflow mode
type ModeInfo struct {
	ID          WorkflowMode
	Name        string
	Description string
}

// ModeForProject returns the workflow mode configured for a project key
func (c *Config) ModeForProject(key string) WorkflowMode {
	for _, k := range c.Workflow.InstagramProjects {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return ModeInstagram
		}
	}
	return ModeStandard
}

// Info returns the descriptor for the mode
func (m WorkflowMode) Info() ModeInfo {
	for _, info := range AvailableModes() {
		if info.ID == m {
			return info
		}
	}
	return ModeInfo{ID: m, Name: string(m)}
}
