// ABOUTME: Classifier turns one chunk into one ChunkResult via a Provider
// ABOUTME: Rate limited, retried with backoff, output parsed into the category set
package llm

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/harper/comment-classifier/internal/models"
	"github.com/harper/comment-classifier/internal/tokenizer"
	"github.com/harper/comment-classifier/internal/util"
)

// ClassifierConfig holds the per-task settings of a Classifier
type ClassifierConfig struct {
	Model             string
	Instruction       string
	Categories        models.CategorySet
	Retry             util.RetryPolicy
	RetryMalformed    bool
	Timeout           time.Duration // per call, 0 = none
	RequestsPerMinute int           // shared across workers, 0 = unlimited
}

// Classifier is safe for concurrent use by pipeline workers
type Classifier struct {
	provider Provider
	config   ClassifierConfig
	system   string
	limiter  *rate.Limiter
	logger   *log.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewClassifier validates cfg and builds the system prompt once
func NewClassifier(provider Provider, cfg ClassifierConfig, logger *log.Logger) (*Classifier, error) {
	if provider == nil {
		return nil, models.NewConfigError("classifier needs a provider")
	}
	if cfg.Model == "" {
		return nil, models.NewConfigError("model is required")
	}
	if len(cfg.Categories) < 2 {
		return nil, models.NewConfigError("a task needs at least 2 categories, got %d", len(cfg.Categories))
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Classifier{
		provider: provider,
		config:   cfg,
		system:   BuildSystemPrompt(cfg.Instruction, cfg.Categories),
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		sleep:    sleepContext,
	}, nil
}

// SystemPrompt returns the instruction sent with every chunk
func (c *Classifier) SystemPrompt() string {
	return c.system
}

// PromptOverhead estimates the instruction tokens added to each request
func (c *Classifier) PromptOverhead(est tokenizer.Estimator) int {
	return PromptOverhead(est, c.config.Instruction, c.config.Categories)
}

// PromptOverhead estimates the per-request instruction tokens without a provider
func PromptOverhead(est tokenizer.Estimator, instruction string, categories models.CategorySet) int {
	return est.Estimate(BuildSystemPrompt(instruction, categories))
}

// Classify runs the retry state machine for one chunk. It never returns an
// error: exhaustion yields an unparseable result with Failure and Err set.
func (c *Classifier) Classify(ctx context.Context, chunk models.Chunk) models.ChunkResult {
	itemID := fmt.Sprintf("%s#%d", chunk.CommentID, chunk.Index)
	logger := c.logger.With("chunk", itemID)

	req := Request{
		Model:      c.config.Model,
		System:     c.system,
		Text:       chunk.Text,
		Categories: c.config.Categories.Strings(),
	}

	result := models.ChunkResult{Chunk: chunk, Label: models.Unparseable}
	state := util.RetryState{}

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return canceled(ctx, result, err)
		}

		raw, err := c.call(ctx, req)
		result.Attempts = state.Attempt + 1

		if err != nil && ctx.Err() != nil {
			return canceled(ctx, result, err)
		}

		var kind models.FailureKind
		if err != nil {
			kind = ClassifyError(err)
			result.RawOutput = ""
			result.Err = &models.Error{Kind: errorKind(err, kind), ItemID: itemID, Message: "classification call failed", Cause: err}
		} else {
			result.RawOutput = raw
			if label, ok := c.config.Categories.Parse(raw); ok {
				result.Label = label
				result.Failure = models.FailureNone
				result.Err = nil
				return result
			}
			kind = models.FailureMalformed
			result.Err = &models.Error{
				Kind:    models.ErrMalformed,
				ItemID:  itemID,
				Message: fmt.Sprintf("output %q matches no category", truncate(raw, 80)),
			}
		}
		result.Failure = kind

		retryable := kind == models.FailureTransient || (kind == models.FailureMalformed && c.config.RetryMalformed)
		var again bool
		state, again = c.config.Retry.Next(state, retryable)
		if !again {
			logger.Warn("giving up on chunk", "failure", kind, "attempts", result.Attempts, "err", result.Err)
			result.Label = models.Unparseable
			return result
		}

		logger.Debug("retrying chunk", "failure", kind, "attempt", state.Attempt, "delay", state.NextDelay, "err", result.Err)
		if err := c.sleep(ctx, state.NextDelay); err != nil {
			return canceled(ctx, result, err)
		}
	}
}

func (c *Classifier) call(ctx context.Context, req Request) (string, error) {
	if c.config.Timeout <= 0 {
		return c.provider.Complete(ctx, req)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	return c.provider.Complete(callCtx, req)
}

func canceled(ctx context.Context, result models.ChunkResult, err error) models.ChunkResult {
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	result.Label = models.Unparseable
	result.Failure = models.FailureCanceled
	result.Err = err
	return result
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
