// ABOUTME: CLI command to export a SQLite result store as YAML or Markdown
// ABOUTME: Includes every run and a per-label total for one task
package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/comment-classifier/internal/storage"
	"github.com/harper/comment-classifier/internal/storage/sqlite"
)

var (
	exportTask   string
	exportOutput string
	exportType   string
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <results.db>",
		Short: "Export stored results to YAML or Markdown",
		Long: `Export the results of one task from a SQLite result store.

The export lists every run (model and tie-break rule), the number of
comments per label and one line per comment. "auto" names the shared
database under the XDG data directory. The format follows the
--output extension (.yaml, .yml or .md) unless --type is given.`,
		Example: `  classify export results.db --task bill-stance -o stance.md
  classify export results.db -o results.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().StringVarP(&exportTask, "task", "t", "", "Task to export (required when the store holds several)")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (required)")
	cmd.Flags().StringVar(&exportType, "type", "", "Export type: yaml or markdown")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	path := storage.ResolvePath(args[0])
	if !storage.IsDatabase(path) {
		return fmt.Errorf("%s is not a result database (.db or .sqlite); CSV results need no export", path)
	}

	kind, err := exportKind(exportType, exportOutput)
	if err != nil {
		return err
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	task := exportTask
	if task == "" {
		tasks, err := sqlite.Tasks(db)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		switch len(tasks) {
		case 0:
			return fmt.Errorf("%s holds no results", path)
		case 1:
			task = tasks[0]
		default:
			return fmt.Errorf("%s holds several tasks (%s); pick one with --task", path, strings.Join(tasks, ", "))
		}
	}

	switch kind {
	case "markdown":
		err = sqlite.ExportToMarkdown(db, task, exportOutput)
	default:
		err = sqlite.ExportToYAML(db, task, exportOutput)
	}
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}

	if !quiet {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %s results to %s\n", task, exportOutput)
	}
	return nil
}

func exportKind(explicit, output string) (string, error) {
	switch strings.ToLower(explicit) {
	case "yaml", "yml":
		return "yaml", nil
	case "markdown", "md":
		return "markdown", nil
	case "":
	default:
		return "", fmt.Errorf("--type must be yaml or markdown, got %q", explicit)
	}

	switch strings.ToLower(filepath.Ext(output)) {
	case ".md", ".markdown":
		return "markdown", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "", fmt.Errorf("cannot tell the export type from %q; use --type", output)
}
