package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/clive/jira-tui/internal/model"
)

// CreateBatch submits drafts as a single request. Drafts are sent as given;
// filtering blank entries is the caller's job.
func (c *Client) CreateBatch(ctx context.Context, projectKey string, drafts []model.TaskDraft) (model.BatchResult, error) {
	body := batchRequestJSON{
		Tasks:      make([]batchTaskJSON, 0, len(drafts)),
		ProjectKey: projectKey,
	}
	for _, d := range drafts {
		body.Tasks = append(body.Tasks, batchTaskJSON{
			Text:        d.Text,
			Description: d.Description,
			Assignee:    d.AssigneeID,
			Subtasks:    subtaskIDStrings(d.Subtasks),
		})
	}

	req := request{method: http.MethodPost, path: "/tasks/batch", auth: authRequired, body: body}

	var resp batchResponseJSON
	if err := c.do(ctx, req, &resp); err != nil {
		return model.BatchResult{}, err
	}

	result := resp.toModel()
	if err := result.Validate(); err != nil {
		return model.BatchResult{}, malformed(req.op(), http.StatusOK, err)
	}
	return result, nil
}

// CreateContent creates a single Instagram content workflow
func (c *Client) CreateContent(ctx context.Context, projectKey string, draft model.TaskDraft) (model.CreatedTask, error) {
	body := contentRequestJSON{
		Text:        strings.TrimSpace(draft.Text),
		Description: strings.TrimSpace(draft.Description),
		ProjectKey:  projectKey,
	}

	var resp taskResultJSON
	req := request{method: http.MethodPost, path: "/content/instagram", auth: authRequired, body: body}
	if err := c.do(ctx, req, &resp); err != nil {
		return model.CreatedTask{}, err
	}

	resp.Success = true
	resp.OriginalText = body.Text
	result := resp.toModel()
	if result.Created == nil {
		return model.CreatedTask{}, &Error{Kind: KindHTTP, Status: http.StatusOK, Message: result.Err, Op: req.op()}
	}
	return *result.Created, nil
}

// Health asks the server whether it is up
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, request{method: http.MethodGet, path: "/health"}, &h)
	return h, err
}
