// Package catalog caches the user's subtask definitions. The server is the
// source of truth: every mutation is followed by a full re-fetch.
package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/logging"
	"github.com/clive/jira-tui/internal/model"
)

var (
	// ErrLastSubtask is returned when deleting the only remaining subtask
	ErrLastSubtask = errors.New("cannot delete the last subtask")
	// ErrNameRequired and ErrEmojiRequired reject incomplete definitions
	ErrNameRequired  = errors.New("subtask name is required")
	ErrEmojiRequired = errors.New("subtask emoji is required")
	// ErrUnknownSubtask is returned by Move for an id not in the catalog
	ErrUnknownSubtask = errors.New("unknown subtask")
)

// Catalog is the process-wide cache of subtask definitions
type Catalog struct {
	client *api.Client
	logger *logging.Logger

	mu     sync.Mutex
	loaded bool
	items  []model.SubtaskDefinition
	err    error
}

// New creates an empty catalog. client must carry the session's token source.
func New(client *api.Client, logger *logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Catalog{client: client, logger: logger.WithComponent("catalog")}
}

// List returns the cached definitions, fetching them on first use. On a
// failed fetch it returns an empty list and the error, which Err also
// reports until the next successful fetch.
func (c *Catalog) List(ctx context.Context) ([]model.SubtaskDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.copyLocked(), nil
	}
	if err := c.fetchLocked(ctx); err != nil {
		return []model.SubtaskDefinition{}, err
	}
	return c.copyLocked(), nil
}

// Reload discards the cache and fetches again
func (c *Catalog) Reload(ctx context.Context) ([]model.SubtaskDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.fetchLocked(ctx); err != nil {
		return c.copyLocked(), err
	}
	return c.copyLocked(), nil
}

// Items returns the cached definitions without touching the network
func (c *Catalog) Items() []model.SubtaskDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// Loaded reports whether a fetch has ever succeeded
func (c *Catalog) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Err returns the error of the last fetch, or nil
func (c *Catalog) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Lookup finds a cached definition by id
func (c *Catalog) Lookup(id model.SubtaskID) (model.SubtaskDefinition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.items {
		if d.ID == id {
			return d, true
		}
	}
	return model.SubtaskDefinition{}, false
}

// Reset forgets everything, e.g. after logout
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.items = nil
	c.err = nil
}

// Create adds a definition and returns the refreshed list
func (c *Catalog) Create(ctx context.Context, in model.SubtaskInput) ([]model.SubtaskDefinition, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Emoji = strings.TrimSpace(in.Emoji)
	if in.Name == "" {
		return c.Items(), ErrNameRequired
	}
	if in.Emoji == "" {
		return c.Items(), ErrEmojiRequired
	}
	in.Labels = NormalizeLabels(in.Labels)

	return c.mutate(ctx, "create", func() error {
		_, err := c.client.CreateSubtask(ctx, in)
		return err
	})
}

// Update patches a definition and returns the refreshed list
func (c *Catalog) Update(ctx context.Context, id model.SubtaskID, patch model.SubtaskPatch) ([]model.SubtaskDefinition, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return c.Items(), ErrNameRequired
	}
	if patch.Emoji != nil && strings.TrimSpace(*patch.Emoji) == "" {
		return c.Items(), ErrEmojiRequired
	}
	if patch.Labels != nil {
		patch.Labels = NormalizeLabels(patch.Labels)
	}

	return c.mutate(ctx, "update", func() error {
		_, err := c.client.UpdateSubtask(ctx, id, patch)
		return err
	})
}

// Delete removes a definition. It is refused locally when only one remains.
func (c *Catalog) Delete(ctx context.Context, id model.SubtaskID) ([]model.SubtaskDefinition, error) {
	if _, err := c.List(ctx); err != nil {
		return c.Items(), err
	}

	c.mu.Lock()
	remaining := len(c.items)
	c.mu.Unlock()
	if remaining <= 1 {
		return c.Items(), ErrLastSubtask
	}

	return c.mutate(ctx, "delete", func() error {
		return c.client.DeleteSubtask(ctx, id)
	})
}

// Reorder sets the server-side order to ids
func (c *Catalog) Reorder(ctx context.Context, ids []model.SubtaskID) ([]model.SubtaskDefinition, error) {
	return c.mutate(ctx, "reorder", func() error {
		return c.client.ReorderSubtasks(ctx, ids)
	})
}

// Move shifts one definition by delta positions, clamped to the list bounds
func (c *Catalog) Move(ctx context.Context, id model.SubtaskID, delta int) ([]model.SubtaskDefinition, error) {
	ids := model.SubtaskIDs(c.Items())
	from := -1
	for i, v := range ids {
		if v == id {
			from = i
			break
		}
	}
	if from < 0 {
		return c.Items(), ErrUnknownSubtask
	}

	to := from + delta
	if to < 0 {
		to = 0
	}
	if to > len(ids)-1 {
		to = len(ids) - 1
	}
	if to == from {
		return c.Items(), nil
	}

	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:to], append([]model.SubtaskID{id}, ids[to:]...)...)
	return c.Reorder(ctx, ids)
}

// mutate runs op and then re-fetches the whole list
func (c *Catalog) mutate(ctx context.Context, name string, op func() error) ([]model.SubtaskDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := op(); err != nil {
		c.logger.Info("subtask mutation failed", "op", name, "error", api.Message(err))
		return c.copyLocked(), err
	}
	if err := c.fetchLocked(ctx); err != nil {
		return c.copyLocked(), err
	}
	return c.copyLocked(), nil
}

func (c *Catalog) fetchLocked(ctx context.Context) error {
	items, err := c.client.ListSubtasks(ctx)
	if err != nil {
		c.err = err
		c.logger.Warn("fetch subtasks failed", "error", api.Message(err))
		return err
	}
	c.items = items
	c.loaded = true
	c.err = nil
	return nil
}

func (c *Catalog) copyLocked() []model.SubtaskDefinition {
	out := make([]model.SubtaskDefinition, len(c.items))
	copy(out, c.items)
	return out
}

// ParseLabels splits comma-separated input into an ordered label set
func ParseLabels(input string) []string {
	return NormalizeLabels(strings.Split(input, ","))
}

// NormalizeLabels trims labels, drops empties and keeps the first of duplicates
func NormalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// FormatLabels is the inverse of ParseLabels for editing
func FormatLabels(labels []string) string {
	return strings.Join(labels, ", ")
}
