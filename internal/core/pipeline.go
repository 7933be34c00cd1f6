// ABOUTME: Pipeline drives comments through chunking, classification and voting
// ABOUTME: Bounded fan-out across comments with one ordered, flush-per-record writer
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/harper/comment-classifier/internal/models"
)

// ChunkClassifier labels one chunk; failures are reported inside the result
type ChunkClassifier interface {
	Classify(ctx context.Context, chunk models.Chunk) models.ChunkResult
}

// ResultSink persists one CommentResult per comment
type ResultSink interface {
	// Processed returns the ids already present, for resuming a run
	Processed() (map[string]bool, error)
	Write(result models.CommentResult) error
}

// PipelineConfig holds the per-run knobs of the pipeline
type PipelineConfig struct {
	MaxTokens       int     // chunk budget in estimated tokens
	Concurrency     int     // comments in flight, default 1
	PromptOverhead  int     // instruction tokens added to every request
	PricePerMillion float64 // input price used by dry-run cost
}

// Summary is the end-of-run report. Only the writer goroutine mutates it.
type Summary struct {
	Total         int
	Processed     int
	Skipped       int
	Resumed       int
	Unparseable   int
	Interrupted   int
	Tied          int
	Chunks        int
	ChunkFailures int
	Labels        map[models.Category]int
	Errors        []error
}

// AddSkipped records an item excluded from output because of an input error
func (s *Summary) AddSkipped(err error) {
	s.Skipped++
	s.Errors = append(s.Errors, err)
}

// Pipeline wires a ChunkEngine, ChunkClassifier, Aggregator and ResultSink
type Pipeline struct {
	chunker    *ChunkEngine
	classifier ChunkClassifier
	aggregator *Aggregator
	sink       ResultSink
	config     PipelineConfig
	logger     *log.Logger
}

// NewPipeline validates the configuration. classifier and sink may be nil when
// the pipeline is only used for Estimate.
func NewPipeline(chunker *ChunkEngine, classifier ChunkClassifier, aggregator *Aggregator, sink ResultSink, cfg PipelineConfig, logger *log.Logger) (*Pipeline, error) {
	if chunker == nil {
		return nil, models.NewConfigError("pipeline needs a chunker")
	}
	if aggregator == nil {
		return nil, models.NewConfigError("pipeline needs an aggregator")
	}
	if cfg.MaxTokens <= 0 {
		return nil, models.NewConfigError("max_tokens must be positive, got %d", cfg.MaxTokens)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PromptOverhead < 0 {
		cfg.PromptOverhead = 0
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Pipeline{
		chunker:    chunker,
		classifier: classifier,
		aggregator: aggregator,
		sink:       sink,
		config:     cfg,
		logger:     logger,
	}, nil
}

type job struct {
	seq     int
	comment models.Comment
}

type outcome struct {
	seq    int
	id     string
	result models.CommentResult
	err    error
}

// Run classifies every pending comment and writes one result per comment in
// input order. Cancelling ctx stops new calls; comments cut short are not
// written and are counted as Interrupted. A sink failure or a permanent
// provider error (bad credentials, unknown model) stops the run and is
// returned.
func (p *Pipeline) Run(ctx context.Context, comments []models.Comment) (*Summary, error) {
	if p.classifier == nil {
		return nil, models.NewConfigError("pipeline has no classifier")
	}
	if p.sink == nil {
		return nil, models.NewConfigError("pipeline has no result sink")
	}

	processed, err := p.sink.Processed()
	if err != nil {
		return nil, fmt.Errorf("failed to read existing results: %w", err)
	}

	summary := &Summary{Total: len(comments), Labels: make(map[models.Category]int)}
	jobs := p.selectPending(comments, processed, summary)

	p.logger.Info("starting run",
		"comments", len(comments), "pending", len(jobs), "resumed", summary.Resumed,
		"skipped", summary.Skipped, "concurrency", p.config.Concurrency)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan outcome, p.config.Concurrency)
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- p.writeOrdered(outcomes, summary, cancel)
	}()

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(p.config.Concurrency)

	launched := 0
	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		launched++
		g.Go(func() error {
			result, err := p.processComment(gctx, j.comment)
			outcomes <- outcome{seq: j.seq, id: j.comment.ID, result: result, err: err}
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)

	werr := <-writeErr
	summary.Interrupted += len(jobs) - launched

	if summary.Interrupted > 0 {
		p.logger.Warn("run interrupted", "interrupted", summary.Interrupted, "written", summary.Processed)
	}
	if werr != nil {
		return summary, werr
	}
	return summary, nil
}

// selectPending drops resumed, empty and duplicate comments
func (p *Pipeline) selectPending(comments []models.Comment, processed map[string]bool, summary *Summary) []job {
	seen := make(map[string]bool, len(comments))
	jobs := make([]job, 0, len(comments))

	for _, c := range comments {
		switch {
		case processed[c.ID]:
			summary.Resumed++
			p.logger.Debug("already classified, skipping", "comment", c.ID)
			continue
		case strings.TrimSpace(c.Text) == "":
			err := models.NewInputError(c.ID, "empty comment text", nil)
			summary.AddSkipped(err)
			p.logger.Warn("skipping comment", "comment", c.ID, "err", err)
			continue
		case seen[c.ID]:
			err := models.NewInputError(c.ID, "duplicate comment id", nil)
			summary.AddSkipped(err)
			p.logger.Warn("skipping comment", "comment", c.ID, "err", err)
			continue
		}
		seen[c.ID] = true
		jobs = append(jobs, job{seq: len(jobs), comment: c})
	}
	return jobs
}

// ClassifyComment runs one comment through chunking, classification and
// aggregation without touching the sink
func (p *Pipeline) ClassifyComment(ctx context.Context, comment models.Comment) (models.CommentResult, error) {
	if p.classifier == nil {
		return models.CommentResult{}, models.NewConfigError("pipeline has no classifier")
	}
	if strings.TrimSpace(comment.Text) == "" {
		return models.CommentResult{}, models.NewInputError(comment.ID, "empty comment text", nil)
	}
	return p.processComment(ctx, comment)
}

// processComment walks one comment through the state machine. Chunks are
// classified sequentially and aggregation waits for every chunk result.
func (p *Pipeline) processComment(ctx context.Context, comment models.Comment) (models.CommentResult, error) {
	logger := p.logger.With("comment", comment.ID)
	logger.Debug("state", "state", models.StatePending)

	chunks, err := p.chunker.ChunkComment(comment, p.config.MaxTokens)
	if err != nil {
		return models.CommentResult{}, err
	}
	logger.Debug("state", "state", models.StateChunked, "chunks", len(chunks))
	for _, ch := range chunks {
		if ch.TokenEstimate > p.config.MaxTokens {
			logger.Warn("chunk exceeds token budget", "index", ch.Index, "tokens", ch.TokenEstimate, "max", p.config.MaxTokens)
		}
	}

	logger.Debug("state", "state", models.StateClassifying)
	results := make([]models.ChunkResult, 0, len(chunks))
	for _, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return models.CommentResult{}, err
		}
		r := p.classifier.Classify(ctx, ch)
		if r.Failure == models.FailureCanceled {
			return models.CommentResult{}, context.Canceled
		}
		if r.Failure == models.FailurePermanent && models.IsKind(r.Err, models.ErrConfiguration) {
			return models.CommentResult{}, r.Err
		}
		if !r.Succeeded() {
			logger.Warn("chunk unparseable", "index", ch.Index, "failure", r.Failure, "attempts", r.Attempts, "err", r.Err)
		} else {
			logger.Debug("chunk classified", "index", ch.Index, "label", r.Label, "attempts", r.Attempts)
		}
		results = append(results, r)
	}

	result := p.aggregator.Aggregate(comment.ID, results)
	logger.Debug("state", "state", result.State, "label", result.FinalLabel)
	if result.State == models.StateAggregated {
		result.State = models.StateDone
	}
	return result, nil
}

// writeOrdered is the only goroutine touching the sink and the summary. It
// buffers out-of-order outcomes and writes them in input order.
func (p *Pipeline) writeOrdered(outcomes <-chan outcome, summary *Summary, cancel context.CancelFunc) error {
	pending := make(map[int]outcome)
	next := 0
	var fatalErr error

	emit := func(o outcome) {
		if o.err != nil {
			if errors.Is(o.err, context.Canceled) || errors.Is(o.err, context.DeadlineExceeded) {
				summary.Interrupted++
				return
			}
			if models.IsKind(o.err, models.ErrConfiguration) {
				summary.Interrupted++
				if fatalErr == nil {
					fatalErr = o.err
					p.logger.Error("stopping run", "comment", o.id, "err", o.err)
					cancel()
				}
				return
			}
			summary.Errors = append(summary.Errors, o.err)
			p.logger.Error("comment failed", "comment", o.id, "err", o.err)
			return
		}
		if fatalErr != nil {
			summary.Interrupted++
			return
		}
		if err := p.sink.Write(o.result); err != nil {
			fatalErr = fmt.Errorf("failed to write result for %s: %w", o.result.CommentID, err)
			summary.Interrupted++
			cancel()
			return
		}
		p.record(o.result, summary)
	}

	for o := range outcomes {
		pending[o.seq] = o
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			emit(ready)
			next++
		}
	}

	// gaps are comments never started; flush whatever finished after them
	seqs := make([]int, 0, len(pending))
	for seq := range pending {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)
	for _, seq := range seqs {
		emit(pending[seq])
	}

	return fatalErr
}

func (p *Pipeline) record(r models.CommentResult, summary *Summary) {
	summary.Processed++
	summary.Chunks += r.ChunkCount
	summary.ChunkFailures += r.UnparseableChunks
	summary.Labels[r.FinalLabel]++
	if r.IsUnparseable() {
		summary.Unparseable++
	}
	if r.Tied {
		summary.Tied++
	}
	p.logger.Info("classified",
		"comment", r.CommentID, "label", r.FinalLabel, "votes", p.aggregator.Margin(r),
		"done", summary.Processed)
}

// CommentEstimate is the dry-run cost of one comment
type CommentEstimate struct {
	CommentID    string `json:"comment_id"`
	Chunks       int    `json:"chunks"`
	ChunkTokens  int    `json:"chunk_tokens"`
	PromptTokens int    `json:"prompt_tokens"`
}

// EstimateReport totals a dry run
type EstimateReport struct {
	Estimator       string
	Comments        []CommentEstimate
	Chunks          int
	ChunkTokens     int
	PromptTokens    int
	PricePerMillion float64
	Resumed         int
	Skipped         int
	Errors          []error
}

// TotalTokens is the input token count a real run would send
func (r *EstimateReport) TotalTokens() int {
	return r.ChunkTokens + r.PromptTokens
}

// Cost is the estimated input cost in the price's currency
func (r *EstimateReport) Cost() float64 {
	return float64(r.TotalTokens()) * r.PricePerMillion / 1_000_000
}

// Estimate chunks every comment and totals token estimates without ever
// calling the classifier. Comments already in the sink, if one is set, are
// left out.
func (p *Pipeline) Estimate(ctx context.Context, comments []models.Comment) (*EstimateReport, error) {
	report := &EstimateReport{
		Estimator:       p.chunker.Estimator().Name(),
		PricePerMillion: p.config.PricePerMillion,
	}

	processed := map[string]bool{}
	if p.sink != nil {
		var err error
		if processed, err = p.sink.Processed(); err != nil {
			return nil, fmt.Errorf("failed to read existing results: %w", err)
		}
	}

	for _, c := range comments {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if processed[c.ID] {
			report.Resumed++
			continue
		}
		if strings.TrimSpace(c.Text) == "" {
			report.Skipped++
			report.Errors = append(report.Errors, models.NewInputError(c.ID, "empty comment text", nil))
			continue
		}

		chunks, err := p.chunker.ChunkComment(c, p.config.MaxTokens)
		if err != nil {
			return nil, err
		}

		est := CommentEstimate{
			CommentID:    c.ID,
			Chunks:       len(chunks),
			PromptTokens: p.config.PromptOverhead * len(chunks),
		}
		for _, ch := range chunks {
			est.ChunkTokens += ch.TokenEstimate
		}

		report.Comments = append(report.Comments, est)
		report.Chunks += est.Chunks
		report.ChunkTokens += est.ChunkTokens
		report.PromptTokens += est.PromptTokens
	}

	p.logger.Debug("dry run estimate",
		"comments", len(report.Comments), "chunks", report.Chunks,
		"tokens", report.TotalTokens(), "estimator", report.Estimator)
	return report, nil
}
