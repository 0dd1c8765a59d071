// Package batch collects task drafts and submits them as one request.
package batch

import (
	"errors"
	"strings"

	"github.com/clive/jira-tui/internal/model"
)

// ErrLastDraft is returned when removing the only draft of a form
var ErrLastDraft = errors.New("a form needs at least one task")

// ErrUnknownDraft is returned for an id not in the form
var ErrUnknownDraft = errors.New("unknown task draft")

// Form is an ordered list of drafts. It always holds at least one.
// Not safe for concurrent use.
type Form struct {
	drafts   []model.TaskDraft
	defaults []model.SubtaskID
}

// NewForm returns a form with one empty draft. New drafts start with
// defaults selected.
func NewForm(defaults []model.SubtaskID) *Form {
	f := &Form{defaults: append([]model.SubtaskID(nil), defaults...)}
	f.Reset()
	return f
}

// Reset replaces every draft with a single empty one
func (f *Form) Reset() {
	f.drafts = []model.TaskDraft{model.NewDraft(f.defaults)}
}

// SetDefaultSubtasks changes the selection given to new drafts, and to
// existing drafts that never had one
func (f *Form) SetDefaultSubtasks(ids []model.SubtaskID) {
	f.defaults = append([]model.SubtaskID(nil), ids...)
	for i := range f.drafts {
		if f.drafts[i].Subtasks == nil {
			f.drafts[i].Subtasks = append([]model.SubtaskID(nil), ids...)
		}
	}
}

// Drafts returns a copy of the drafts in order
func (f *Form) Drafts() []model.TaskDraft {
	out := make([]model.TaskDraft, len(f.drafts))
	for i, d := range f.drafts {
		d.Subtasks = append([]model.SubtaskID(nil), d.Subtasks...)
		out[i] = d
	}
	return out
}

// Len is the number of drafts, blank ones included
func (f *Form) Len() int {
	return len(f.drafts)
}

// At returns the draft at index i
func (f *Form) At(i int) model.TaskDraft {
	return f.drafts[i]
}

// Index returns the position of id, or -1
func (f *Form) Index(id string) int {
	for i, d := range f.drafts {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Add appends an empty draft and returns it
func (f *Form) Add() model.TaskDraft {
	d := model.NewDraft(f.defaults)
	f.drafts = append(f.drafts, d)
	return d
}

// Remove deletes a draft. The last remaining draft cannot be removed.
func (f *Form) Remove(id string) error {
	i := f.Index(id)
	if i < 0 {
		return ErrUnknownDraft
	}
	if len(f.drafts) == 1 {
		return ErrLastDraft
	}
	f.drafts = append(f.drafts[:i], f.drafts[i+1:]...)
	return nil
}

func (f *Form) update(id string, fn func(*model.TaskDraft)) error {
	i := f.Index(id)
	if i < 0 {
		return ErrUnknownDraft
	}
	fn(&f.drafts[i])
	return nil
}

// SetText sets a draft's text
func (f *Form) SetText(id, text string) error {
	return f.update(id, func(d *model.TaskDraft) { d.Text = text })
}

// SetDescription sets a draft's description
func (f *Form) SetDescription(id, desc string) error {
	return f.update(id, func(d *model.TaskDraft) { d.Description = desc })
}

// SetAssignee sets a draft's assignee account id; "" clears it
func (f *Form) SetAssignee(id, accountID string) error {
	return f.update(id, func(d *model.TaskDraft) { d.AssigneeID = accountID })
}

// SetSubtasks replaces a draft's selection, dropping duplicates
func (f *Form) SetSubtasks(id string, ids []model.SubtaskID) error {
	return f.update(id, func(d *model.TaskDraft) { d.Subtasks = dedupe(ids) })
}

// ToggleSubtask adds or removes one subtask from a draft's selection
func (f *Form) ToggleSubtask(id string, sub model.SubtaskID) error {
	return f.update(id, func(d *model.TaskDraft) {
		for i, s := range d.Subtasks {
			if s == sub {
				d.Subtasks = append(d.Subtasks[:i:i], d.Subtasks[i+1:]...)
				return
			}
		}
		d.Subtasks = append(d.Subtasks, sub)
	})
}

// ValidCount is the number of drafts that would be submitted
func (f *Form) ValidCount() int {
	n := 0
	for _, d := range f.drafts {
		if !d.IsBlank() {
			n++
		}
	}
	return n
}

// HasValid reports whether anything would be submitted
func (f *Form) HasValid() bool {
	return f.ValidCount() > 0
}

// Prepare drops blank drafts and trims the rest, keeping order.
// Selections are passed through as-is, stale ids included.
func Prepare(drafts []model.TaskDraft) []model.TaskDraft {
	out := make([]model.TaskDraft, 0, len(drafts))
	for _, d := range drafts {
		if d.IsBlank() {
			continue
		}
		d.Text = strings.TrimSpace(d.Text)
		d.Description = strings.TrimSpace(d.Description)
		d.AssigneeID = strings.TrimSpace(d.AssigneeID)
		d.Subtasks = dedupe(d.Subtasks)
		out = append(out, d)
	}
	return out
}

func dedupe(ids []model.SubtaskID) []model.SubtaskID {
	out := make([]model.SubtaskID, 0, len(ids))
	seen := make(map[model.SubtaskID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
