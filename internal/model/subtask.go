package model

import (
	"strconv"
	"time"
)

// SubtaskID identifies a subtask definition on the server
type SubtaskID int

func (id SubtaskID) String() string {
	return strconv.Itoa(int(id))
}

// SubtaskDefinition is a user-defined template expanded into a child issue
// for every task created with it selected.
type SubtaskDefinition struct {
	ID          SubtaskID
	Name        string
	Emoji       string
	Description string
	Labels      []string
	Order       int
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Title returns the emoji-prefixed name
func (s SubtaskDefinition) Title() string {
	if s.Emoji == "" {
		return s.Name
	}
	return s.Emoji + " " + s.Name
}

// SubtaskInput is the payload for creating a subtask definition
type SubtaskInput struct {
	Name        string
	Emoji       string
	Description string
	Labels      []string
	Order       *int
}

// SubtaskPatch is a partial update. Nil fields are not sent.
type SubtaskPatch struct {
	Name        *string
	Emoji       *string
	Description *string
	Labels      []string // nil means unchanged
	Order       *int
}

// IsEmpty reports whether the patch changes nothing
func (p SubtaskPatch) IsEmpty() bool {
	return p.Name == nil && p.Emoji == nil && p.Description == nil && p.Labels == nil && p.Order == nil
}

// SubtaskIDs returns the ids of defs in order
func SubtaskIDs(defs []SubtaskDefinition) []SubtaskID {
	ids := make([]SubtaskID, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	return ids
}
