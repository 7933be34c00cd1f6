// ABOUTME: Tasks command lists the built-in and file-defined classification tasks
// ABOUTME: Shows label column and categories as a table or JSON
package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/comment-classifier/internal/config"
)

var tasksFile string

type taskInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	LabelColumn string   `json:"label_column"`
	Categories  []string `json:"categories"`
	TieBreak    string   `json:"tie_break,omitempty"`
	Default     bool     `json:"default"`
}

// NewTasksCmd creates the tasks command
func NewTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List classification tasks",
		Long: `List the classification tasks available to run, validate and mcp.

Built-in tasks are always listed. Tasks from --task-file (or
CLASSIFY_TASK_FILE) are added, replacing a built-in of the same name.`,
		Example: `  classify tasks
  classify tasks --task-file my-tasks.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: runTasks,
	}

	cmd.Flags().StringVar(&tasksFile, "task-file", "", "YAML file with extra task definitions")

	return cmd
}

func runTasks(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("task-file") {
		cfg.TaskFile = tasksFile
	}

	tasks, err := config.Tasks(cfg.TaskFile)
	if err != nil {
		return err
	}

	infos := make([]taskInfo, 0, len(tasks))
	for _, name := range config.TaskNames(tasks) {
		t := tasks[name]
		infos = append(infos, taskInfo{
			Name:        t.Name,
			Description: t.Description,
			LabelColumn: t.Column(),
			Categories:  t.Categories,
			TieBreak:    t.TieBreak,
			Default:     t.Name == config.DefaultTask,
		})
	}

	out := cmd.OutOrStdout()
	if wantJSON() {
		return printJSON(out, infos)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tLABEL COLUMN\tCATEGORIES\tDESCRIPTION")
	for _, info := range infos {
		name := info.Name
		if info.Default {
			name += " *"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, info.LabelColumn,
			strings.Join(info.Categories, ", "), truncate(info.Description, 50))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if !quiet {
		_, _ = fmt.Fprintln(out, "\n* default task")
	}
	return nil
}
