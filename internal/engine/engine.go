// ABOUTME: Wires config, task, tokenizer, classifier and sink into a pipeline
// ABOUTME: Shared by the run command, the dry-run estimate and the MCP server
package engine

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/harper/comment-classifier/internal/config"
	"github.com/harper/comment-classifier/internal/core"
	"github.com/harper/comment-classifier/internal/llm"
	"github.com/harper/comment-classifier/internal/logging"
	"github.com/harper/comment-classifier/internal/models"
	"github.com/harper/comment-classifier/internal/tokenizer"
	"github.com/harper/comment-classifier/internal/util"
)

// Options are the inputs to New. Provider and Sink may be nil for an
// estimate-only engine.
type Options struct {
	Config   *config.Config
	Task     *config.Task
	Provider llm.Provider
	Sink     core.ResultSink
	Logger   *log.Logger
}

// Engine is a pipeline configured for one task
type Engine struct {
	Task       *config.Task
	Categories models.CategorySet
	Model      string
	TieBreak   core.TieBreak
	Estimator  tokenizer.Estimator
	Pipeline   *core.Pipeline

	provider llm.Provider
}

// New resolves the model, tie-break and estimator and builds the pipeline.
// Every problem found here is a configuration error.
func New(opts Options) (*Engine, error) {
	cfg, task := opts.Config, opts.Task
	if cfg == nil || task == nil {
		return nil, models.NewConfigError("engine needs a config and a task")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	categories, err := task.CategorySet()
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = llm.DefaultModel(cfg.Provider)
	}

	tieBreak, err := core.ParseTieBreak(firstNonEmpty(cfg.TieBreak, task.TieBreak))
	if err != nil {
		return nil, err
	}

	est, err := tokenizer.ForModel(cfg.Tokenizer, model)
	if err != nil {
		return nil, models.NewConfigError("%v", err)
	}

	aggregator, err := core.NewAggregator(categories, tieBreak)
	if err != nil {
		return nil, err
	}

	var classifier core.ChunkClassifier
	if opts.Provider != nil {
		c, err := llm.NewClassifier(opts.Provider, llm.ClassifierConfig{
			Model:             model,
			Instruction:       task.Instruction,
			Categories:        categories,
			Retry:             util.RetryPolicy{MaxAttempts: cfg.RetryAttempts, BaseDelay: cfg.RetryDelay},
			RetryMalformed:    cfg.RetryMalformed,
			Timeout:           cfg.Timeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
		}, logger)
		if err != nil {
			return nil, err
		}
		classifier = c
	}

	pipeline, err := core.NewPipeline(core.NewChunkEngine(est), classifier, aggregator, opts.Sink, core.PipelineConfig{
		MaxTokens:       cfg.MaxTokens,
		Concurrency:     cfg.Concurrency,
		PromptOverhead:  llm.PromptOverhead(est, task.Instruction, categories),
		PricePerMillion: cfg.PricePerMillion,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("engine ready", "task", task.Name, "model", model, "estimator", est.Name(), "tie_break", tieBreak)

	return &Engine{
		Task:       task,
		Categories: categories,
		Model:      model,
		TieBreak:   tieBreak,
		Estimator:  est,
		Pipeline:   pipeline,
		provider:   opts.Provider,
	}, nil
}

// CheckModel asks the provider whether the configured model exists, when
// the provider supports the lookup
func (e *Engine) CheckModel(ctx context.Context) error {
	checker, ok := e.provider.(llm.ModelChecker)
	if !ok {
		return nil
	}
	if err := checker.CheckModel(ctx, e.Model); err != nil {
		if models.IsKind(err, models.ErrConfiguration) {
			return err
		}
		return fmt.Errorf("failed to check model %s: %w", e.Model, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
