package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clive/jira-tui/internal/api"
	"github.com/clive/jira-tui/internal/catalog"
	"github.com/clive/jira-tui/internal/model"
)

func newSubtasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subtasks",
		Aliases: []string{"subtask", "st"},
		Short:   "Manage the subtasks created under content tasks",
	}
	cmd.AddCommand(
		newSubtasksListCmd(),
		newSubtasksAddCmd(),
		newSubtasksEditCmd(),
		newSubtasksRmCmd(),
		newSubtasksReorderCmd(),
		newSubtasksExportCmd(),
		newSubtasksImportCmd(),
	)
	return cmd
}

// withCatalog restores the session and hands over the catalog
func withCatalog(cmd *cobra.Command, fn func(a *app, c *catalog.Catalog) error) error {
	return withApp(func(a *app) error {
		if _, err := a.requireSession(cmd.Context()); err != nil {
			return err
		}
		return fn(a, a.catalog)
	})
}

func printSubtasks(cmd *cobra.Command, defs []model.SubtaskDefinition) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tORDER\tSUBTASK\tLABELS")
	for _, d := range defs {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", d.ID, d.Order, d.Title(), catalog.FormatLabels(d.Labels))
	}
	return w.Flush()
}

func parseID(s string) (model.SubtaskID, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid subtask id %q", s)
	}
	return model.SubtaskID(n), nil
}

func newSubtasksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List subtask definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, func(a *app, c *catalog.Catalog) error {
				defs, err := c.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("list subtasks: %s", api.Message(err))
				}
				return printSubtasks(cmd, defs)
			})
		},
	}
}

func newSubtasksAddCmd() *cobra.Command {
	var (
		in     model.SubtaskInput
		labels string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a subtask definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			in.Labels = catalog.ParseLabels(labels)
			return withCatalog(cmd, func(a *app, c *catalog.Catalog) error {
				defs, err := c.Create(cmd.Context(), in)
				if err != nil {
					return fmt.Errorf("add subtask: %s", api.Message(err))
				}
				return printSubtasks(cmd, defs)
			})
		},
	}
	cmd.Flags().StringVarP(&in.Emoji, "emoji", "e", "", "emoji shown before the name")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "description copied into each created subtask")
	cmd.Flags().StringVarP(&labels, "labels", "l", "", "comma-separated Jira labels")
	return cmd
}

func newSubtasksEditCmd() *cobra.Command {
	var name, emoji, description, labels string
	var order int

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a subtask definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var patch model.SubtaskPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("emoji") {
				patch.Emoji = &emoji
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("labels") {
				patch.Labels = catalog.ParseLabels(labels)
			}
			if flags.Changed("order") {
				patch.Order = &order
			}
			if patch.IsEmpty() {
				return errors.New("nothing to change")
			}

			return withCatalog(cmd, func(a *app, c *catalog.Catalog) error {
				defs, err := c.Update(cmd.Context(), id, patch)
				if err != nil {
					return fmt.Errorf("edit subtask: %s", api.Message(err))
				}
				return printSubtasks(cmd, defs)
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&emoji, "emoji", "e", "", "new emoji")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&labels, "labels", "l", "", "new comma-separated labels (empty clears)")
	cmd.Flags().IntVar(&order, "order", 0, "new position value")
	return cmd
}

func newSubtasksRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a subtask definition",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withCatalog(cmd, func(a *app, c *catalog.Catalog) error {
				defs, err := c.Delete(cmd.Context(), id)
				if errors.Is(err, catalog.ErrLastSubtask) {
					return errors.New("cannot delete the last subtask, at least one must remain")
				}
				if err != nil {
					return fmt.Errorf("delete subtask: %s", api.Message(err))
				}
				return printSubtasks(cmd, defs)
			})
		},
	}
}

func newSubtasksReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Set the subtask order, listing ids first to last",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]model.SubtaskID, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return withCatalog(cmd, func(a *app, c *catalog.Catalog) error {
				defs, err := c.Reorder(cmd.Context(), ids)
				if err != nil {
					return fmt.Errorf("reorder subtasks: %s", api.Message(err))
				}
				return printSubtasks(cmd, defs)
			})
		},
	}
}

func newSubtasksExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the subtask definitions as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, func(a *app, c *catalog.Catalog) error {
				defs, err := c.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("list subtasks: %s", api.Message(err))
				}
				if len(args) == 0 || args[0] == "-" {
					return catalog.Export(cmd.OutOrStdout(), defs)
				}
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				if err := catalog.Export(f, defs); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
}

func newSubtasksImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add subtask definitions from a YAML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			inputs, err := catalog.ReadExport(r)
			if err != nil {
				return err
			}
			return withCatalog(cmd, func(a *app, c *catalog.Catalog) error {
				n, err := c.Import(cmd.Context(), inputs)
				if err != nil {
					return fmt.Errorf("import stopped after %d: %s", n, api.Message(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d subtasks\n", n)
				return nil
			})
		},
	}
}
