package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/clive/jira-tui/internal/model"
)

// Wire shapes. Optional fields are pointers or omitempty so a missing field
// never fails decoding of the rest.

type userJSON struct {
	ID          int     `json:"id"`
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	JiraEmail   *string `json:"jira_email,omitempty"`
	JiraBaseURL *string `json:"jira_base_url,omitempty"`
	IsActive    bool    `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
	CreatedAt   string  `json:"created_at"`
	LastLogin   *string `json:"last_login,omitempty"`
}

type tokenJSON struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type registerJSON struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	JiraEmail    string `json:"jira_email,omitempty"`
	JiraAPIToken string `json:"jira_api_token,omitempty"`
	JiraBaseURL  string `json:"jira_base_url,omitempty"`
}

type jiraCredentialsJSON struct {
	JiraEmail    string `json:"jira_email,omitempty"`
	JiraAPIToken string `json:"jira_api_token,omitempty"`
	JiraBaseURL  string `json:"jira_base_url,omitempty"`
}

type projectJSON struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	ProjectType string `json:"project_type"`
}

type projectsJSON struct {
	Success  bool          `json:"success"`
	Total    int           `json:"total"`
	Projects []projectJSON `json:"projects"`
}

type assigneeJSON struct {
	AccountID   string  `json:"account_id"`
	DisplayName string  `json:"display_name"`
	Email       *string `json:"email,omitempty"`
	Active      bool    `json:"active"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

type projectUsersJSON struct {
	Success    bool           `json:"success"`
	ProjectKey string         `json:"project_key"`
	TotalUsers int            `json:"total_users"`
	Users      []assigneeJSON `json:"users"`
}

type batchTaskJSON struct {
	Text        string   `json:"text"`
	Description string   `json:"description,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	Subtasks    []string `json:"subtasks,omitempty"`
}

type batchRequestJSON struct {
	Tasks      []batchTaskJSON `json:"tasks"`
	ProjectKey string          `json:"project_key"`
}

type createdSubtaskJSON struct {
	Key   string `json:"key"`
	Phase string `json:"phase"`
	Emoji string `json:"emoji"`
	URL   string `json:"url"`
}

type taskResultJSON struct {
	Success      bool                 `json:"success"`
	MainTaskKey  *string              `json:"main_task_key,omitempty"`
	MainTaskURL  *string              `json:"main_task_url,omitempty"`
	ContentType  *string              `json:"content_type,omitempty"`
	Subtasks     []createdSubtaskJSON `json:"subtasks,omitempty"`
	TotalTasks   *int                 `json:"total_tasks,omitempty"`
	Error        *string              `json:"error,omitempty"`
	OriginalText string               `json:"original_text"`
}

type batchResponseJSON struct {
	Success           bool             `json:"success"`
	TotalRequested    int              `json:"total_requested"`
	TotalCreated      int              `json:"total_created"`
	TotalFailed       int              `json:"total_failed"`
	TotalTasksCreated int              `json:"total_tasks_created"`
	Results           []taskResultJSON `json:"results"`
}

type contentRequestJSON struct {
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
	ProjectKey  string `json:"project_key,omitempty"`
}

type subtaskJSON struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Emoji       string   `json:"emoji"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
	Order       *int     `json:"order,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   *string  `json:"updated_at,omitempty"`
}

type subtaskCreateJSON struct {
	Name        string   `json:"name"`
	Emoji       string   `json:"emoji"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
	Order       *int     `json:"order,omitempty"`
}

// subtaskUpdateJSON sends only the fields being changed. A non-nil empty
// Labels goes out as [] and clears the labels.
type subtaskUpdateJSON struct {
	Name        *string   `json:"name,omitempty"`
	Emoji       *string   `json:"emoji,omitempty"`
	Description *string   `json:"description,omitempty"`
	Labels      *[]string `json:"labels,omitempty"`
	Order       *int      `json:"order,omitempty"`
}

type reorderJSON struct {
	SubtaskIDs []int `json:"subtask_ids"`
}

// Health is the server's health check answer
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Timestamp layouts seen from the backend. Naive datetimes are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseTime(*s)
	if t.IsZero() {
		return nil
	}
	return &t
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (u userJSON) toModel() model.User {
	return model.User{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		JiraEmail:   deref(u.JiraEmail),
		JiraBaseURL: deref(u.JiraBaseURL),
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   parseTime(u.CreatedAt),
		LastLogin:   parseTimePtr(u.LastLogin),
	}
}

func (s subtaskJSON) toModel() model.SubtaskDefinition {
	labels := s.Labels
	if labels == nil {
		labels = []string{}
	}
	return model.SubtaskDefinition{
		ID:          model.SubtaskID(s.ID),
		Name:        s.Name,
		Emoji:       s.Emoji,
		Description: s.Description,
		Labels:      labels,
		Order:       deref(s.Order),
		CreatedAt:   parseTime(s.CreatedAt),
		UpdatedAt:   parseTimePtr(s.UpdatedAt),
	}
}

func (r taskResultJSON) toModel() model.TaskResult {
	out := model.TaskResult{OriginalText: r.OriginalText}
	if r.Success && r.MainTaskKey != nil {
		out.Created = &model.CreatedTask{
			MainTaskKey: *r.MainTaskKey,
			URL:         deref(r.MainTaskURL),
			ContentType: deref(r.ContentType),
			Subtasks:    toCreatedSubtasks(r.Subtasks),
			TotalTasks:  deref(r.TotalTasks),
		}
		return out
	}
	out.Err = strings.TrimSpace(deref(r.Error))
	if out.Err == "" {
		out.Err = "unknown error"
	}
	return out
}

func toCreatedSubtasks(in []createdSubtaskJSON) []model.CreatedSubtask {
	out := make([]model.CreatedSubtask, 0, len(in))
	for _, s := range in {
		out = append(out, model.CreatedSubtask{Key: s.Key, Phase: s.Phase, Emoji: s.Emoji, URL: s.URL})
	}
	return out
}

func (b batchResponseJSON) toModel() model.BatchResult {
	items := make([]model.TaskResult, 0, len(b.Results))
	for _, r := range b.Results {
		items = append(items, r.toModel())
	}
	return model.BatchResult{
		Success:           b.Success,
		TotalRequested:    b.TotalRequested,
		TotalCreated:      b.TotalCreated,
		TotalFailed:       b.TotalFailed,
		TotalTasksCreated: b.TotalTasksCreated,
		Items:             items,
	}
}

func subtaskIDStrings(ids []model.SubtaskID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.Itoa(int(id)))
	}
	return out
}
