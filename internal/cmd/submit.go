package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/config"
	"github.com/clive/jira-tui/internal/model"
)

type submitOptions struct {
	project     string
	description string
	assignee    string
	subtasks    []int
	fromFile    string
	content     bool
}

func newSubmitCmd() *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit [task text]...",
		Short: "Create one Jira task per argument in a single batch",
		Example: `  jira-tui submit -p KAN "Reel sobre Cartagena" "Carrusel de tips"
  jira-tui submit -p OPS --from-file tasks.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			texts := append([]string{}, args...)
			if opts.fromFile != "" {
				lines, err := readTaskLines(cmd, opts.fromFile)
				if err != nil {
					return err
				}
				texts = append(texts, lines...)
			}
			return withApp(func(a *app) error {
				return runSubmit(cmd, a, opts, texts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "project key (defaults to the last one used)")
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "description applied to every task")
	cmd.Flags().StringVarP(&opts.assignee, "assignee", "a", "", "assignee account id")
	cmd.Flags().IntSliceVarP(&opts.subtasks, "subtask", "s", nil, "subtask id to create (repeatable; default all)")
	cmd.Flags().StringVarP(&opts.fromFile, "from-file", "f", "", "read one task per line from a file, or - for stdin")
	cmd.Flags().BoolVar(&opts.content, "content", false, "create a single Instagram content task")
	return cmd
}

func runSubmit(cmd *cobra.Command, a *app, opts submitOptions, texts []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	project := strings.ToUpper(strings.TrimSpace(opts.project))
	if project == "" {
		project = a.cfg.TUI.LastProject
	}
	if project == "" {
		return errors.New("no project: pass --project")
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	ids := make([]model.SubtaskID, 0, len(opts.subtasks))
	for _, id := range opts.subtasks {
		ids = append(ids, model.SubtaskID(id))
	}

	drafts := make([]model.TaskDraft, 0, len(texts))
	for _, text := range texts {
		d := model.NewDraft(ids)
		d.Text = text
		d.Description = opts.description
		d.AssigneeID = opts.assignee
		drafts = append(drafts, d)
	}

	if opts.content {
		if a.cfg.ModeForProject(project) != config.ModeInstagram {
			return fmt.Errorf("%s is not an Instagram project", project)
		}
		if len(drafts) != 1 {
			return errors.New("--content takes exactly one task")
		}
		created, err := a.submitter.SubmitSingle(ctx, project, drafts[0])
		if err != nil {
			return fmt.Errorf("create content: %s", api.Message(err))
		}
		fmt.Fprintf(out, "✓ %s %s (%s, %d issues)\n", created.MainTaskKey, created.URL, created.ContentType, created.TotalTasks)
		for _, sub := range created.Subtasks {
			fmt.Fprintf(out, "    %s %s %s\n", sub.Emoji, sub.Key, sub.Phase)
		}
		return saveLastProject(a, project)
	}

	result, err := a.submitter.Submit(ctx, project, drafts)
	if err != nil {
		return fmt.Errorf("submit: %s", api.Message(err))
	}

	for _, item := range result.Items {
		if item.Succeeded() {
			fmt.Fprintf(out, "✓ %s %s  %s\n", item.Created.MainTaskKey, item.OriginalText, item.Created.URL)
			continue
		}
		fmt.Fprintf(out, "✗ %s: %s\n", item.OriginalText, item.Err)
	}
	fmt.Fprintf(out, "\nCreated %d of %d (%.0f%%), %d issues in total\n",
		result.TotalCreated, result.TotalRequested, result.SuccessRate(), result.TotalTasksCreated)

	if result.TotalCreated == 0 {
		return errors.New("no tasks were created")
	}
	return saveLastProject(a, project)
}

func saveLastProject(a *app, project string) error {
	if project == a.cfg.TUI.LastProject {
		return nil
	}
	if err := config.SaveLastProject("", project); err != nil {
		a.logger.Warn("save last project failed", "error", err)
	}
	return nil
}

// readTaskLines reads non-empty lines, skipping # comments
func readTaskLines(cmd *cobra.Command, path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
