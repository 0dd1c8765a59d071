package batch

import (
	"context"
	"errors"
	"strings"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/logging"
	"github.com/clive/jira-tui/internal/model"
)

var (
	// ErrNothingToSubmit is returned when every draft is blank. No request is sent.
	ErrNothingToSubmit = errors.New("no tasks to submit")
	// ErrNoProject is returned when no project key was given
	ErrNoProject = errors.New("no project selected")
)

// Submitter sends drafts to the backend
type Submitter struct {
	client *api.Client
	logger *logging.Logger
}

// NewSubmitter creates a submitter. client must carry the session's token source.
func NewSubmitter(client *api.Client, logger *logging.Logger) *Submitter {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Submitter{client: client, logger: logger.WithComponent("batch")}
}

// Submit filters drafts and sends what remains as a single batch. A
// transport or HTTP failure fails the whole batch; otherwise the server's
// per-item results are returned in server order.
func (s *Submitter) Submit(ctx context.Context, projectKey string, drafts []model.TaskDraft) (model.BatchResult, error) {
	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		return model.BatchResult{}, ErrNoProject
	}

	prepared := Prepare(drafts)
	if len(prepared) == 0 {
		return model.BatchResult{}, ErrNothingToSubmit
	}

	s.logger.Info("submitting batch", "project", projectKey, "tasks", len(prepared), "skipped", len(drafts)-len(prepared))

	result, err := s.client.CreateBatch(ctx, projectKey, prepared)
	if err != nil {
		s.logger.Warn("batch failed", "project", projectKey, "error", api.Message(err))
		return model.BatchResult{}, err
	}

	s.logger.Info("batch done",
		"project", projectKey,
		"created", result.TotalCreated,
		"failed", result.TotalFailed,
		"issues", result.TotalTasksCreated,
	)
	return result, nil
}

// SubmitForm submits a form's drafts. On success the form is reset to one
// empty draft; on any failure it is left untouched so the user can retry.
func (s *Submitter) SubmitForm(ctx context.Context, projectKey string, form *Form) (model.BatchResult, error) {
	result, err := s.Submit(ctx, projectKey, form.Drafts())
	if err != nil {
		return result, err
	}
	form.Reset()
	return result, nil
}

// SubmitSingle creates one Instagram content workflow
func (s *Submitter) SubmitSingle(ctx context.Context, projectKey string, draft model.TaskDraft) (model.CreatedTask, error) {
	if draft.IsBlank() {
		return model.CreatedTask{}, ErrNothingToSubmit
	}
	created, err := s.client.CreateContent(ctx, strings.TrimSpace(projectKey), draft)
	if err != nil {
		s.logger.Warn("content creation failed", "project", projectKey, "error", api.Message(err))
		return model.CreatedTask{}, err
	}
	s.logger.Info("content created", "key", created.MainTaskKey, "type", created.ContentType)
	return created, nil
}
