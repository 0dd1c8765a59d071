package devserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type subtaskResponse struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Emoji       string   `json:"emoji"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
	Order       int      `json:"order"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   *string  `json:"updated_at"`
}

func toSubtaskResponse(st subtask) subtaskResponse {
	resp := subtaskResponse{
		ID:          st.ID,
		Name:        st.Name,
		Emoji:       st.Emoji,
		Description: st.Description,
		Labels:      st.Labels,
		Order:       st.Order,
		CreatedAt:   formatTime(st.CreatedAt),
	}
	if resp.Labels == nil {
		resp.Labels = []string{}
	}
	if st.UpdatedAt != nil {
		resp.UpdatedAt = optional(formatTime(*st.UpdatedAt))
	}
	return resp
}

func toSubtaskResponses(in []subtask) []subtaskResponse {
	out := make([]subtaskResponse, 0, len(in))
	for _, st := range in {
		out = append(out, toSubtaskResponse(st))
	}
	return out
}

// ListSubtasks handles GET /subtasks
func (s *Server) ListSubtasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSubtaskResponses(s.listSubtasks(accountFrom(r).ID)))
}

// CreateSubtask handles POST /subtasks
func (s *Server) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string   `json:"name"`
		Emoji       string   `json:"emoji"`
		Description string   `json:"description"`
		Labels      []string `json:"labels"`
		Order       *int     `json:"order"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeValidation(w, "name", "String should have at least 1 character")
		return
	}
	if req.Emoji == "" {
		writeValidation(w, "emoji", "String should have at least 1 character")
		return
	}

	st := s.createSubtask(accountFrom(r).ID, req.Name, req.Emoji, req.Description, req.Labels, req.Order)
	writeJSON(w, http.StatusCreated, toSubtaskResponse(st))
}

func subtaskIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeValidation(w, "subtask_id", "Input should be a valid integer")
		return 0, false
	}
	return id, true
}

// UpdateSubtask handles PUT /subtasks/{id}
func (s *Server) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	id, ok := subtaskIDParam(w, r)
	if !ok {
		return
	}
	var patch subtaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	st, err := s.updateSubtask(accountFrom(r).ID, id, patch)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSubtaskResponse(st))
}

// DeleteSubtask handles DELETE /subtasks/{id}
func (s *Server) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	id, ok := subtaskIDParam(w, r)
	if !ok {
		return
	}

	err := s.deleteSubtask(accountFrom(r).ID, id)
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errLastSubtask):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReorderSubtasks handles POST /subtasks/reorder
func (s *Server) ReorderSubtasks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubtaskIDs []int `json:"subtask_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	out, err := s.reorderSubtasks(accountFrom(r).ID, req.SubtaskIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSubtaskResponses(out))
}
