// ABOUTME: Tests for the Classifier retry state machine and label parsing
// ABOUTME: Uses a scripted fake provider; no network access
package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/comment-classifier/internal/models"
	"github.com/harper/comment-classifier/internal/tokenizer"
	"github.com/harper/comment-classifier/internal/util"
)

type reply struct {
	out string
	err error
}

// fakeProvider returns scripted replies in order, repeating the last one
type fakeProvider struct {
	mu       sync.Mutex
	replies  []reply
	requests []Request
}

func (f *fakeProvider) Complete(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i].out, f.replies[i].err
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func stance(t *testing.T) models.CategorySet {
	set, err := models.NewCategorySet("for", "against")
	require.NoError(t, err)
	return set
}

func newTestClassifier(t *testing.T, p Provider, mutate func(*ClassifierConfig)) *Classifier {
	t.Helper()
	cfg := ClassifierConfig{
		Model:       "test-model",
		Instruction: "Does the commenter support the bill?",
		Categories:  stance(t),
		Retry:       util.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClassifier(p, cfg, nil)
	require.NoError(t, err)
	c.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return c
}

var testChunk = models.Chunk{CommentID: "c-7", Index: 0, Text: "I fully support this bill."}

func TestNewClassifier_Validation(t *testing.T) {
	p := &fakeProvider{replies: []reply{{out: "for"}}}

	_, err := NewClassifier(nil, ClassifierConfig{Model: "m", Categories: stance(t)}, nil)
	assert.True(t, models.IsKind(err, models.ErrConfiguration))

	_, err = NewClassifier(p, ClassifierConfig{Categories: stance(t)}, nil)
	assert.True(t, models.IsKind(err, models.ErrConfiguration))

	_, err = NewClassifier(p, ClassifierConfig{Model: "m"}, nil)
	assert.True(t, models.IsKind(err, models.ErrConfiguration))
}

func TestClassify_Success(t *testing.T) {
	p := &fakeProvider{replies: []reply{{out: `{"label": "for"}`}}}
	c := newTestClassifier(t, p, nil)

	r := c.Classify(context.Background(), testChunk)

	assert.Equal(t, models.Category("for"), r.Label)
	assert.Equal(t, models.FailureNone, r.Failure)
	assert.Equal(t, 1, r.Attempts)
	assert.NoError(t, r.Err)
	assert.True(t, r.Succeeded())
	assert.Equal(t, testChunk, r.Chunk)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, testChunk.Text, req.Text)
	assert.Equal(t, []string{"for", "against"}, req.Categories)
	assert.Contains(t, req.System, "Does the commenter support the bill?")
	assert.Contains(t, req.System, "for, against")
}

func TestClassify_TransientTwiceThenSuccess(t *testing.T) {
	rateLimited := &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}
	p := &fakeProvider{replies: []reply{
		{err: rateLimited},
		{err: context.DeadlineExceeded},
		{out: "Against"},
	}}
	c := newTestClassifier(t, p, nil)

	r := c.Classify(context.Background(), testChunk)

	assert.Equal(t, 3, p.calls())
	assert.Equal(t, models.Category("against"), r.Label)
	assert.Equal(t, 3, r.Attempts)
	assert.Equal(t, models.FailureNone, r.Failure)
	assert.NoError(t, r.Err)
}

func TestClassify_TransientExhausted(t *testing.T) {
	p := &fakeProvider{replies: []reply{{err: &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable}}}}
	c := newTestClassifier(t, p, nil)

	r := c.Classify(context.Background(), testChunk)

	assert.Equal(t, 3, p.calls())
	assert.Equal(t, models.Unparseable, r.Label)
	assert.Equal(t, models.FailureTransient, r.Failure)
	assert.Equal(t, 3, r.Attempts)
	assert.True(t, models.IsKind(r.Err, models.ErrTransient))
}

func TestClassify_PermanentNotRetried(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind models.ErrorKind
	}{
		{"unauthorized stops the run", http.StatusUnauthorized, models.ErrConfiguration},
		{"unknown model stops the run", http.StatusNotFound, models.ErrConfiguration},
		{"bad request fails the chunk", http.StatusBadRequest, models.ErrInput},
		{"oversized request fails the chunk", http.StatusRequestEntityTooLarge, models.ErrInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{replies: []reply{{err: &openai.APIError{HTTPStatusCode: tt.status}}}}
			c := newTestClassifier(t, p, nil)

			r := c.Classify(context.Background(), testChunk)

			assert.Equal(t, 1, p.calls())
			assert.Equal(t, models.FailurePermanent, r.Failure)
			assert.Equal(t, models.Unparseable, r.Label)
			assert.True(t, models.IsKind(r.Err, tt.wantKind), "err = %v, want kind %v", r.Err, tt.wantKind)
		})
	}
}

func TestClassify_MalformedNotRetriedByDefault(t *testing.T) {
	p := &fakeProvider{replies: []reply{{out: "I cannot decide"}, {out: "for"}}}
	c := newTestClassifier(t, p, nil)

	r := c.Classify(context.Background(), testChunk)

	assert.Equal(t, 1, p.calls())
	assert.Equal(t, models.FailureMalformed, r.Failure)
	assert.Equal(t, models.Unparseable, r.Label)
	assert.Equal(t, "I cannot decide", r.RawOutput)
	assert.True(t, models.IsKind(r.Err, models.ErrMalformed))
}

func TestClassify_MalformedRetriedWhenConfigured(t *testing.T) {
	p := &fakeProvider{replies: []reply{{out: "maybe?"}, {out: "```\nfor\n```"}}}
	c := newTestClassifier(t, p, func(cfg *ClassifierConfig) { cfg.RetryMalformed = true })

	r := c.Classify(context.Background(), testChunk)

	assert.Equal(t, 2, p.calls())
	assert.Equal(t, models.Category("for"), r.Label)
	assert.Equal(t, 2, r.Attempts)
}

func TestClassify_CancelledContext(t *testing.T) {
	p := &fakeProvider{replies: []reply{{out: "for"}}}
	c := newTestClassifier(t, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := c.Classify(ctx, testChunk)

	assert.Equal(t, models.FailureCanceled, r.Failure)
	assert.Equal(t, models.Unparseable, r.Label)
	assert.ErrorIs(t, r.Err, context.Canceled)
	assert.Equal(t, 0, p.calls())
}

func TestClassify_CancelDuringBackoff(t *testing.T) {
	p := &fakeProvider{replies: []reply{{err: errors.New("connection reset")}}}
	c := newTestClassifier(t, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	r := c.Classify(ctx, testChunk)

	assert.Equal(t, 1, p.calls())
	assert.Equal(t, models.FailureCanceled, r.Failure)
}

func TestClassify_ConcurrentUse(t *testing.T) {
	p := &fakeProvider{replies: []reply{{out: "for"}}}
	c := newTestClassifier(t, p, func(cfg *ClassifierConfig) { cfg.RequestsPerMinute = 600000 })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chunk := testChunk
			chunk.Index = i
			r := c.Classify(context.Background(), chunk)
			assert.Equal(t, models.Category("for"), r.Label)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, p.calls())
}

func TestPromptOverhead(t *testing.T) {
	p := &fakeProvider{replies: []reply{{out: "for"}}}
	c := newTestClassifier(t, p, nil)
	est := tokenizer.NewApprox()

	got := c.PromptOverhead(est)
	assert.Equal(t, est.Estimate(c.SystemPrompt()), got)
	assert.Positive(t, got)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
