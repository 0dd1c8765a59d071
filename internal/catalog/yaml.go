package catalog

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/clive/jira-tui/internal/model"
)

// exportFile is the on-disk shape of an exported catalog
type exportFile struct {
	Subtasks []exportItem `yaml:"subtasks"`
}

type exportItem struct {
	Name        string   `yaml:"name"`
	Emoji       string   `yaml:"emoji"`
	Description string   `yaml:"description,omitempty"`
	Labels      []string `yaml:"labels,omitempty"`
}

// Export writes defs as YAML, in order
func Export(w io.Writer, defs []model.SubtaskDefinition) error {
	doc := exportFile{Subtasks: make([]exportItem, 0, len(defs))}
	for _, d := range defs {
		doc.Subtasks = append(doc.Subtasks, exportItem{
			Name:        d.Name,
			Emoji:       d.Emoji,
			Description: d.Description,
			Labels:      d.Labels,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode subtasks: %w", err)
	}
	return enc.Close()
}

// ReadExport parses a file written by Export
func ReadExport(r io.Reader) ([]model.SubtaskInput, error) {
	var doc exportFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode subtasks: %w", err)
	}

	inputs := make([]model.SubtaskInput, 0, len(doc.Subtasks))
	for i, item := range doc.Subtasks {
		if item.Name == "" {
			return nil, fmt.Errorf("subtask %d: %w", i+1, ErrNameRequired)
		}
		if item.Emoji == "" {
			return nil, fmt.Errorf("subtask %d: %w", i+1, ErrEmojiRequired)
		}
		inputs = append(inputs, model.SubtaskInput{
			Name:        item.Name,
			Emoji:       item.Emoji,
			Description: item.Description,
			Labels:      NormalizeLabels(item.Labels),
		})
	}
	return inputs, nil
}

// Import creates every input, appending to the catalog, then re-fetches once.
// It stops at the first failure and reports how many were created.
func (c *Catalog) Import(ctx context.Context, inputs []model.SubtaskInput) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	created := 0
	for _, in := range inputs {
		if _, err := c.client.CreateSubtask(ctx, in); err != nil {
			_ = c.fetchLocked(ctx)
			return created, fmt.Errorf("import %q: %w", in.Name, err)
		}
		created++
	}
	return created, c.fetchLocked(ctx)
}
