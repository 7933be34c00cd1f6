// ABOUTME: CLI command to classify a batch of comments, or estimate it with --dry-run
// ABOUTME: Appends one result per comment and prints a run summary
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/comment-classifier/internal/config"
	"github.com/harper/comment-classifier/internal/core"
	"github.com/harper/comment-classifier/internal/engine"
	"github.com/harper/comment-classifier/internal/input"
	"github.com/harper/comment-classifier/internal/llm"
	"github.com/harper/comment-classifier/internal/models"
	"github.com/harper/comment-classifier/internal/storage"
)

var (
	runTask           string
	runTaskFile       string
	runProvider       string
	runModel          string
	runMaxTokens      int
	runRetryAttempts  int
	runRetryDelay     time.Duration
	runRetryMalformed bool
	runTimeout        time.Duration
	runConcurrency    int
	runRPM            int
	runTokenizer      string
	runPrice          float64
	runTieBreak       string
	runInclude        string
	runIDField        string
	runTextField      string
	runDryRun         bool
	runSkipModelCheck bool
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <input> [output]",
		Short: "Classify comments from a directory or JSON list",
		Long: `Classify every comment under <input> and append results to [output].

<input> is a directory of comment files (.txt, .md, .html, .json lists)
or a single JSON comment list. [output] ends in .csv for a CSV file or
.db/.sqlite for a SQLite result table; "auto" uses a shared database
under the XDG data directory. Comments already present in the
output are skipped, so re-running after an interruption resumes.

With --dry-run nothing is sent to a model: each comment is chunked and
its input tokens (and cost, with --price) are estimated instead.`,
		Example: `  classify run comments/ results.csv --task strong-mayor-powers
  classify run comments.json results.db --task bill-stance --concurrency 4
  classify run comments/ --dry-run --price 0.30`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runRun,
	}

	f := cmd.Flags()
	f.StringVarP(&runTask, "task", "t", "", "Task name (default CLASSIFY_TASK or "+config.DefaultTask+")")
	f.StringVar(&runTaskFile, "task-file", "", "YAML file with extra task definitions")
	f.StringVar(&runProvider, "provider", "", "Model provider: gemini or openai")
	f.StringVarP(&runModel, "model", "m", "", "Model id (default depends on provider)")
	f.IntVar(&runMaxTokens, "max-tokens", 0, "Token budget per chunk (default 20000)")
	f.IntVar(&runRetryAttempts, "retry-attempts", 0, "Attempts per chunk including the first (default 3)")
	f.DurationVar(&runRetryDelay, "retry-delay", 0, "Base backoff between attempts (default 2s)")
	f.BoolVar(&runRetryMalformed, "retry-malformed", false, "Also retry output that maps to no label")
	f.DurationVar(&runTimeout, "timeout", 0, "Timeout per model call (default 60s)")
	f.IntVarP(&runConcurrency, "concurrency", "c", 0, "Comments classified in parallel (default 1)")
	f.IntVar(&runRPM, "rpm", 0, "Max requests per minute across workers (default unlimited)")
	f.StringVar(&runTokenizer, "tokenizer", "", "Token estimator: auto, tiktoken or approx")
	f.Float64Var(&runPrice, "price", 0, "Input price per million tokens, for dry-run cost")
	f.StringVar(&runTieBreak, "tie-break", "", "Tie rule: first-chunk or category-order (default from task)")
	f.StringVar(&runInclude, "include", input.DefaultInclude, "Glob of input files relative to <input>")
	f.StringVar(&runIDField, "id-field", "id", "Id field for array-style JSON lists")
	f.StringVar(&runTextField, "text-field", "comment", "Text field for JSON lists")
	f.BoolVar(&runDryRun, "dry-run", false, "Estimate tokens and cost without calling a model")
	f.BoolVar(&runSkipModelCheck, "skip-model-check", false, "Do not look the model up before running")

	return cmd
}

// applyRunFlags overrides config with flags the user actually set
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("task") {
		cfg.Task = runTask
	}
	if f.Changed("task-file") {
		cfg.TaskFile = runTaskFile
	}
	if f.Changed("provider") {
		cfg.Provider = strings.ToLower(runProvider)
		cfg.APIKey = config.APIKeyFor(cfg.Provider)
	}
	if f.Changed("model") {
		cfg.Model = runModel
	}
	if f.Changed("max-tokens") {
		cfg.MaxTokens = runMaxTokens
	}
	if f.Changed("retry-attempts") {
		cfg.RetryAttempts = runRetryAttempts
	}
	if f.Changed("retry-delay") {
		cfg.RetryDelay = runRetryDelay
	}
	if f.Changed("retry-malformed") {
		cfg.RetryMalformed = runRetryMalformed
	}
	if f.Changed("timeout") {
		cfg.Timeout = runTimeout
	}
	if f.Changed("concurrency") {
		cfg.Concurrency = runConcurrency
	}
	if f.Changed("rpm") {
		cfg.RequestsPerMinute = runRPM
	}
	if f.Changed("tokenizer") {
		cfg.Tokenizer = runTokenizer
	}
	if f.Changed("price") {
		cfg.PricePerMillion = runPrice
	}
	if f.Changed("tie-break") {
		cfg.TieBreak = runTieBreak
	}
	return cfg.Validate()
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}

	cfg := config.Read()
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	task, err := config.ResolveTask(cfg.Task, cfg.TaskFile)
	if err != nil {
		return err
	}

	loaded, err := input.Load(args[0], input.Options{Include: runInclude, IDField: runIDField, TextField: runTextField})
	if err != nil {
		return err
	}
	for _, e := range loaded.Errors {
		logger.Warn("skipping input", "err", e)
	}
	logger.Info("loaded comments", "path", args[0], "comments", len(loaded.Comments), "errors", len(loaded.Errors))

	output := ""
	if len(args) > 1 {
		output = args[1]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runDryRun {
		return runEstimate(ctx, cmd.OutOrStdout(), cfg, task, loaded, output)
	}
	if output == "" {
		return models.NewConfigError("an output path is required unless --dry-run is set")
	}

	provider, err := llm.NewProvider(ctx, llm.ProviderConfig{Provider: cfg.Provider, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	if err != nil {
		return err
	}

	categories, err := task.CategorySet()
	if err != nil {
		return err
	}
	sink, err := storage.Open(output, storage.Options{
		Task:        task.Name,
		LabelColumn: task.Column(),
		Categories:  categories,
		Model:       modelName(cfg),
		TieBreak:    firstSet(cfg.TieBreak, task.TieBreak, string(core.DefaultTieBreak)),
	})
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	e, err := engine.New(engine.Options{Config: cfg, Task: task, Provider: provider, Sink: sink, Logger: logger})
	if err != nil {
		return err
	}
	if !runSkipModelCheck {
		if err := e.CheckModel(ctx); err != nil {
			return err
		}
	}

	logger.Info("classifying", "task", task.Name, "model", e.Model, "provider", provider.Name(), "output", output)
	summary, runErr := e.Pipeline.Run(ctx, loaded.Comments)
	if summary != nil {
		for _, le := range loaded.Errors {
			summary.Total++
			summary.AddSkipped(le)
		}
		if err := printSummary(cmd.OutOrStdout(), summary, e.Categories); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if ctx.Err() != nil && !quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Interrupted: re-run the same command to resume.\n")
	}
	return nil
}

// runEstimate prints the dry-run table. An existing output is read so that
// resumed comments are left out, but nothing is created.
func runEstimate(ctx context.Context, w io.Writer, cfg *config.Config, task *config.Task, loaded *input.Result, output string) error {
	var sink core.ResultSink
	if output != "" {
		if _, err := os.Stat(storage.ResolvePath(output)); err == nil {
			categories, err := task.CategorySet()
			if err != nil {
				return err
			}
			s, err := storage.Open(output, storage.Options{
				Task:        task.Name,
				LabelColumn: task.Column(),
				Categories:  categories,
				Model:       modelName(cfg),
				TieBreak:    firstSet(cfg.TieBreak, task.TieBreak, string(core.DefaultTieBreak)),
			})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()
			sink = s
		}
	}

	e, err := engine.New(engine.Options{Config: cfg, Task: task, Sink: sink})
	if err != nil {
		return err
	}
	report, err := e.Pipeline.Estimate(ctx, loaded.Comments)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	report.Skipped += len(loaded.Errors)
	return printEstimate(w, report, e.Model)
}

func printEstimate(w io.Writer, report *core.EstimateReport, model string) error {
	if wantJSON() {
		return printJSON(w, map[string]any{
			"model":         model,
			"estimator":     report.Estimator,
			"comments":      report.Comments,
			"chunks":        report.Chunks,
			"chunk_tokens":  report.ChunkTokens,
			"prompt_tokens": report.PromptTokens,
			"total_tokens":  report.TotalTokens(),
			"cost":          report.Cost(),
			"resumed":       report.Resumed,
			"skipped":       report.Skipped,
		})
	}

	if !quiet {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(tw, "COMMENT\tCHUNKS\tTOKENS\n")
		_, _ = fmt.Fprintf(tw, "-------\t------\t------\n")
		for _, c := range report.Comments {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\n", truncate(c.CommentID, 40), c.Chunks, c.ChunkTokens+c.PromptTokens)
		}
		_ = tw.Flush()
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintf(w, "Dry run (%s, estimator %s)\n", model, report.Estimator)
	_, _ = fmt.Fprintf(w, "Comments: %d  Chunks: %d  Resumed: %d  Skipped: %d\n",
		len(report.Comments), report.Chunks, report.Resumed, report.Skipped)
	_, _ = fmt.Fprintf(w, "Tokens:   %d (text %d + prompt %d)\n",
		report.TotalTokens(), report.ChunkTokens, report.PromptTokens)
	if report.PricePerMillion > 0 {
		_, _ = fmt.Fprintf(w, "Cost:     %.4f at %.2f per million input tokens\n", report.Cost(), report.PricePerMillion)
	}
	return nil
}

func printSummary(w io.Writer, s *core.Summary, categories models.CategorySet) error {
	if wantJSON() {
		labels := make(map[string]int, len(s.Labels))
		for c, n := range s.Labels {
			labels[string(c)] = n
		}
		return printJSON(w, map[string]any{
			"total":          s.Total,
			"processed":      s.Processed,
			"skipped":        s.Skipped,
			"resumed":        s.Resumed,
			"unparseable":    s.Unparseable,
			"interrupted":    s.Interrupted,
			"tied":           s.Tied,
			"chunks":         s.Chunks,
			"chunk_failures": s.ChunkFailures,
			"labels":         labels,
		})
	}

	_, _ = fmt.Fprintf(w, "Processed: %d  Skipped: %d  Resumed: %d  Unparseable: %d  Interrupted: %d\n",
		s.Processed, s.Skipped, s.Resumed, s.Unparseable, s.Interrupted)
	_, _ = fmt.Fprintf(w, "Chunks: %d (%d failed)  Ties: %d\n", s.Chunks, s.ChunkFailures, s.Tied)

	if quiet || len(s.Labels) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "LABEL\tCOMMENTS\n")
	for _, c := range labelOrder(s.Labels, categories) {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", c, s.Labels[c])
	}
	return tw.Flush()
}

// labelOrder lists task categories first, then anything else (unparseable)
func labelOrder(counts map[models.Category]int, categories models.CategorySet) []models.Category {
	var out []models.Category
	for _, c := range categories {
		if counts[c] > 0 {
			out = append(out, c)
		}
	}
	var rest []models.Category
	for c := range counts {
		if !categories.Contains(c) {
			rest = append(rest, c)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

func modelName(cfg *config.Config) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return llm.DefaultModel(cfg.Provider)
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
