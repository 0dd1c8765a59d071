package devserver

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type projectResponse struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	ProjectType string `json:"project_type"`
}

// Projects handles GET /projects
func (s *Server) Projects(w http.ResponseWriter, r *http.Request) {
	out := make([]projectResponse, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, projectResponse{Key: p.Key, Name: p.Name, ProjectType: p.ProjectType})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"total":    len(out),
		"projects": out,
	})
}

type projectUserResponse struct {
	AccountID   string  `json:"account_id"`
	DisplayName string  `json:"display_name"`
	Email       *string `json:"email"`
	Active      bool    `json:"active"`
	AvatarURL   *string `json:"avatar_url"`
}

// ProjectUsers handles GET /projects/{key}/users
func (s *Server) ProjectUsers(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	proj, ok := s.project(key)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Project '%s' not found", key))
		return
	}

	users := make([]projectUserResponse, 0, len(proj.Users))
	for _, u := range proj.Users {
		users = append(users, projectUserResponse{
			AccountID:   u.AccountID,
			DisplayName: u.DisplayName,
			Email:       optional(u.Email),
			Active:      true,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"project_key": key,
		"total_users": len(users),
		"users":       users,
	})
}

type batchRequest struct {
	Tasks []struct {
		Text        string   `json:"text"`
		Description string   `json:"description"`
		Assignee    string   `json:"assignee"`
		Subtasks    []string `json:"subtasks"`
	} `json:"tasks"`
	ProjectKey string `json:"project_key"`
}

type taskResult struct {
	Success bool `json:"success"`
	*workflow
	Error        *string `json:"error,omitempty"`
	OriginalText string  `json:"original_text"`
}

// CreateBatch handles POST /tasks/batch. Each task succeeds or fails on its own.
func (s *Server) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Tasks) == 0 || len(req.Tasks) > MaxBatchSize {
		writeValidation(w, "tasks", fmt.Sprintf("List should have between 1 and %d items", MaxBatchSize))
		return
	}
	if req.ProjectKey == "" {
		req.ProjectKey = "KAN"
	}

	acct := accountFrom(r)
	results := make([]taskResult, 0, len(req.Tasks))
	created, failed, issues := 0, 0, 0

	for _, t := range req.Tasks {
		wf, err := s.createWorkflow(acct, req.ProjectKey, t.Text, t.Assignee, t.Subtasks)
		if err != nil {
			msg := err.Error()
			results = append(results, taskResult{Success: false, Error: &msg, OriginalText: t.Text})
			failed++
			continue
		}
		results = append(results, taskResult{Success: true, workflow: &wf, OriginalText: t.Text})
		created++
		issues += wf.TotalTasks
	}

	s.logger.Info("batch processed", "project", req.ProjectKey, "created", created, "failed", failed)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":             failed == 0,
		"total_requested":     len(req.Tasks),
		"total_created":       created,
		"total_failed":        failed,
		"total_tasks_created": issues,
		"results":             results,
	})
}

// CreateContent handles POST /content/instagram
func (s *Server) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text        string `json:"text"`
		Description string `json:"description"`
		ProjectKey  string `json:"project_key"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ProjectKey == "" {
		req.ProjectKey = "KAN"
	}

	wf, err := s.createWorkflow(accountFrom(r), req.ProjectKey, req.Text, "", nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error parsing text: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, taskResult{Success: true, workflow: &wf, OriginalText: req.Text})
}
