package devserver

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"
)

type userResponse struct {
	ID          int     `json:"id"`
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	JiraEmail   *string `json:"jira_email"`
	JiraBaseURL *string `json:"jira_base_url"`
	IsActive    bool    `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
	CreatedAt   string  `json:"created_at"`
	LastLogin   *string `json:"last_login"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func toUserResponse(a account) userResponse {
	resp := userResponse{
		ID:          a.ID,
		Email:       a.Email,
		Username:    a.Username,
		JiraEmail:   optional(a.JiraEmail),
		JiraBaseURL: optional(a.JiraBaseURL),
		IsActive:    a.IsActive,
		CreatedAt:   formatTime(a.CreatedAt),
	}
	if a.LastLogin != nil {
		resp.LastLogin = optional(formatTime(*a.LastLogin))
	}
	return resp
}

// Register handles POST /auth/register
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registration
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeValidation(w, "email", "value is not a valid email address")
		return
	}
	if len(req.Username) < 3 {
		writeValidation(w, "username", "String should have at least 3 characters")
		return
	}
	if len(req.Password) < 8 {
		writeValidation(w, "password", "String should have at least 8 characters")
		return
	}

	acct, err := s.register(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("account registered", "username", acct.Username)
	writeJSON(w, http.StatusCreated, toUserResponse(*acct))
}

// Login handles POST /auth/login with a form body
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeValidation(w, "username", "Field required")
		return
	}

	token, err := s.login(username, password)
	switch {
	case errors.Is(err, errInactive):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

// Me handles GET /auth/me
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r)
	s.mu.Lock()
	snapshot := *acct
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, toUserResponse(snapshot))
}

// Logout handles POST /auth/logout
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.logout(token)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

// UpdateJiraCredentials handles PUT /auth/jira-credentials
func (s *Server) UpdateJiraCredentials(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JiraEmail    string `json:"jira_email"`
		JiraAPIToken string `json:"jira_api_token"`
		JiraBaseURL  string `json:"jira_base_url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	acct := accountFrom(r)
	if err := s.updateJira(acct, req.JiraEmail, req.JiraAPIToken, req.JiraBaseURL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	snapshot := *acct
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, toUserResponse(snapshot))
}

// Health handles GET /health
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": formatTime(s.now()),
	})
}
