package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/clive/jira-tui/internal/model"
)

func subtaskPath(id model.SubtaskID) string {
	return "/subtasks/" + strconv.Itoa(int(id))
}

// ListSubtasks returns the account's subtask definitions in server order
func (c *Client) ListSubtasks(ctx context.Context) ([]model.SubtaskDefinition, error) {
	var resp []subtaskJSON
	if err := c.do(ctx, request{method: http.MethodGet, path: "/subtasks", auth: authRequired}, &resp); err != nil {
		return nil, err
	}

	defs := make([]model.SubtaskDefinition, 0, len(resp))
	for _, s := range resp {
		defs = append(defs, s.toModel())
	}
	return defs, nil
}

// CreateSubtask adds a subtask definition
func (c *Client) CreateSubtask(ctx context.Context, in model.SubtaskInput) (model.SubtaskDefinition, error) {
	labels := in.Labels
	if labels == nil {
		labels = []string{}
	}
	body := subtaskCreateJSON{
		Name:        in.Name,
		Emoji:       in.Emoji,
		Description: in.Description,
		Labels:      labels,
		Order:       in.Order,
	}

	var resp subtaskJSON
	if err := c.do(ctx, request{method: http.MethodPost, path: "/subtasks", auth: authRequired, body: body}, &resp); err != nil {
		return model.SubtaskDefinition{}, err
	}
	return resp.toModel(), nil
}

// UpdateSubtask applies a partial update
func (c *Client) UpdateSubtask(ctx context.Context, id model.SubtaskID, patch model.SubtaskPatch) (model.SubtaskDefinition, error) {
	body := subtaskUpdateJSON{
		Name:        patch.Name,
		Emoji:       patch.Emoji,
		Description: patch.Description,
		Order:       patch.Order,
	}
	if patch.Labels != nil {
		labels := patch.Labels
		body.Labels = &labels
	}

	var resp subtaskJSON
	if err := c.do(ctx, request{method: http.MethodPut, path: subtaskPath(id), auth: authRequired, body: body}, &resp); err != nil {
		return model.SubtaskDefinition{}, err
	}
	return resp.toModel(), nil
}

// DeleteSubtask removes a subtask definition
func (c *Client) DeleteSubtask(ctx context.Context, id model.SubtaskID) error {
	return c.do(ctx, request{method: http.MethodDelete, path: subtaskPath(id), auth: authRequired}, nil)
}

// ReorderSubtasks sets the order of the account's subtasks to ids
func (c *Client) ReorderSubtasks(ctx context.Context, ids []model.SubtaskID) error {
	body := reorderJSON{SubtaskIDs: make([]int, 0, len(ids))}
	for _, id := range ids {
		body.SubtaskIDs = append(body.SubtaskIDs, int(id))
	}
	return c.do(ctx, request{method: http.MethodPost, path: "/subtasks/reorder", auth: authRequired, body: body}, nil)
}
