// ABOUTME: CLI command for a human spot-check of classification results
// ABOUTME: Samples results, asks for labels on stdin and reports agreement and kappa
package commands

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/harper/comment-classifier/internal/config"
	"github.com/harper/comment-classifier/internal/input"
	"github.com/harper/comment-classifier/internal/storage"
	"github.com/harper/comment-classifier/internal/validation"
)

var (
	validateSamples  int
	validateOutput   string
	validateTask     string
	validateTaskFile string
	validateSeed     uint64
	validateInclude  string
)

// NewValidateCmd creates the validate command
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <input> <results>",
		Short: "Check a random sample of results against your own labels",
		Long: `Show a random sample of classified comments and ask for your label.

<input> is the same comment directory or JSON list given to run, and
<results> the CSV or database it wrote. Unparseable results are not
sampled. Your answers are saved with an agrees column, and percent
agreement plus Cohen's kappa are printed. Type q to stop early; the
answers given so far are still saved.`,
		Example: `  classify validate comments/ results.csv --samples 20
  classify validate comments.json results.db --task bill-stance`,
		Args: cobra.ExactArgs(2),
		RunE: runValidate,
	}

	cmd.Flags().IntVarP(&validateSamples, "samples", "n", 10, "Number of comments to review")
	cmd.Flags().StringVarP(&validateOutput, "output", "o", validation.DefaultOutput, "Where to write the responses")
	cmd.Flags().StringVarP(&validateTask, "task", "t", "", "Task the results belong to")
	cmd.Flags().StringVar(&validateTaskFile, "task-file", "", "YAML file with extra task definitions")
	cmd.Flags().Uint64Var(&validateSeed, "seed", 0, "Random seed for a repeatable sample (0 = random)")
	cmd.Flags().StringVar(&validateInclude, "include", input.DefaultInclude, "Glob of input files relative to <input>")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(validateSamples, "--samples"); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("task") {
		cfg.Task = validateTask
	}
	if cmd.Flags().Changed("task-file") {
		cfg.TaskFile = validateTaskFile
	}

	task, err := config.ResolveTask(cfg.Task, cfg.TaskFile)
	if err != nil {
		return err
	}
	categories, err := task.CategorySet()
	if err != nil {
		return err
	}

	loaded, err := input.Load(args[0], input.Options{Include: validateInclude})
	if err != nil {
		return err
	}
	texts := make(map[string]string, len(loaded.Comments))
	for _, c := range loaded.Comments {
		texts[c.ID] = c.Text
	}

	results, err := storage.ReadResults(args[1], storage.Options{Task: task.Name})
	if err != nil {
		return err
	}

	var rng *rand.Rand
	if validateSeed != 0 {
		rng = rand.New(rand.NewPCG(validateSeed, validateSeed))
	}
	samples := validation.SelectSamples(results, texts, validateSamples, rng)
	if len(samples) == 0 {
		return fmt.Errorf("no classified comments in %s match the comments in %s", args[1], args[0])
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Presenting %d random comments for validation (task %s).\n\n", len(samples), task.Name)

	prompter := validation.NewPrompter(cmd.InOrStdin(), out, categories)
	responses, err := prompter.Review(cmd.Context(), samples)
	if err != nil && !errors.Is(err, validation.ErrStopped) {
		return err
	}
	if len(responses) == 0 {
		_, _ = fmt.Fprintln(out, "No answers given; nothing saved.")
		return nil
	}

	if err := validation.WriteCSV(validateOutput, responses); err != nil {
		return err
	}

	rep := validation.Summarize(responses)
	if wantJSON() {
		return printJSON(out, map[string]any{
			"reviewed":  rep.Total,
			"agreed":    rep.Agreed,
			"agreement": rep.Agreement,
			"kappa":     rep.Kappa,
			"output":    validateOutput,
		})
	}
	_, _ = fmt.Fprintf(out, "\nValidation complete. Agreement with model: %.2f%% (%d/%d), Cohen's kappa %.3f\n",
		rep.Agreement, rep.Agreed, rep.Total, rep.Kappa)
	_, _ = fmt.Fprintf(out, "Responses saved to %s\n", validateOutput)
	return nil
}
