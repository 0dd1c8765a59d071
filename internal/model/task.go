package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TaskDraft is one editable entry in a submission form
type TaskDraft struct {
	ID          string // client-local, stable for the life of the form
	Text        string
	Description string
	AssigneeID  string
	Subtasks    []SubtaskID // ordered set
}

// NewDraft returns an empty draft with a fresh id and the given subtask selection
func NewDraft(subtasks []SubtaskID) TaskDraft {
	return TaskDraft{
		ID:       uuid.New().String(),
		Subtasks: append([]SubtaskID(nil), subtasks...),
	}
}

// IsBlank reports whether the draft has no usable text
func (d TaskDraft) IsBlank() bool {
	return strings.TrimSpace(d.Text) == ""
}

// HasSubtask reports whether id is selected
func (d TaskDraft) HasSubtask(id SubtaskID) bool {
	for _, s := range d.Subtasks {
		if s == id {
			return true
		}
	}
	return false
}

// CreatedSubtask is a child issue created for a task
type CreatedSubtask struct {
	Key   string
	Phase string
	Emoji string
	URL   string
}

// CreatedTask describes a successfully created main issue
type CreatedTask struct {
	MainTaskKey string
	URL         string
	ContentType string
	Subtasks    []CreatedSubtask
	TotalTasks  int
}

// TaskResult is the outcome of one submitted draft. Exactly one of Created
// or Err is set.
type TaskResult struct {
	OriginalText string
	Created      *CreatedTask
	Err          string
}

// Succeeded reports whether the task was created
func (r TaskResult) Succeeded() bool {
	return r.Created != nil
}

// BatchResult is the server's reconciliation of a batch submission
type BatchResult struct {
	Success           bool
	TotalRequested    int
	TotalCreated      int
	TotalFailed       int
	TotalTasksCreated int
	Items             []TaskResult
}

// ErrMalformedBatch is returned when server totals are inconsistent
var ErrMalformedBatch = errors.New("malformed batch response")

// Validate checks the aggregate invariants of the result
func (b BatchResult) Validate() error {
	if b.TotalCreated+b.TotalFailed != b.TotalRequested {
		return fmt.Errorf("%w: created %d + failed %d != requested %d",
			ErrMalformedBatch, b.TotalCreated, b.TotalFailed, b.TotalRequested)
	}
	if b.TotalTasksCreated < b.TotalCreated {
		return fmt.Errorf("%w: %d issues for %d created tasks",
			ErrMalformedBatch, b.TotalTasksCreated, b.TotalCreated)
	}
	return nil
}

// SuccessRate is the percentage of requested tasks that were created.
// It is 0 when nothing was requested.
func (b BatchResult) SuccessRate() float64 {
	if b.TotalRequested == 0 {
		return 0
	}
	return float64(b.TotalCreated) / float64(b.TotalRequested) * 100
}

// Succeeded returns the successful items in server order
func (b BatchResult) Succeeded() []TaskResult {
	var out []TaskResult
	for _, r := range b.Items {
		if r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the failed items in server order
func (b BatchResult) Failed() []TaskResult {
	var out []TaskResult
	for _, r := range b.Items {
		if !r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// URLs returns the main issue URLs of every created task
func (b BatchResult) URLs() []string {
	var urls []string
	for _, r := range b.Items {
		if r.Created != nil && r.Created.URL != "" {
			urls = append(urls, r.Created.URL)
		}
	}
	return urls
}
