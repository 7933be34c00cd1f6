// ABOUTME: Tests for the OpenAI and Gemini providers against local HTTP fakes
// ABOUTME: Verifies the enum-constrained request shape and error status mapping
package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/harper/comment-classifier/internal/models"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	_, err := NewProvider(ctx, ProviderConfig{Provider: ProviderOpenAI})
	assert.True(t, models.IsKind(err, models.ErrConfiguration), "missing key should be a config error")

	_, err = NewProvider(ctx, ProviderConfig{Provider: "anthropic-ish", APIKey: "k"})
	assert.True(t, models.IsKind(err, models.ErrConfiguration), "unknown provider should be a config error")

	p, err := NewProvider(ctx, ProviderConfig{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Name())

	p, err = NewProvider(ctx, ProviderConfig{Provider: ProviderGemini, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p.Name())
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, DefaultOpenAIModel, DefaultModel("OpenAI"))
	assert.Equal(t, DefaultGeminiModel, DefaultModel("gemini"))
	assert.Equal(t, DefaultGeminiModel, DefaultModel(""))
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt("  Is the concept present?  ", models.CategorySet{"present", "absent"})

	assert.True(t, strings.HasPrefix(prompt, "Is the concept present?"))
	assert.Contains(t, prompt, "present, absent.")
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"label\":\"against\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL+"/v1")
	out, err := p.Complete(context.Background(), Request{
		Model:      "gpt-4o-mini",
		System:     "Classify.",
		Text:       "No to this bill.",
		Categories: []string{"for", "against"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"label":"against"}`, out)

	req := gjson.ParseBytes(body)
	assert.Equal(t, "gpt-4o-mini", req.Get("model").String())
	assert.Equal(t, "system", req.Get("messages.0.role").String())
	assert.Equal(t, "No to this bill.", req.Get("messages.1.content").String())
	assert.Equal(t, "json_schema", req.Get("response_format.type").String())
	assert.True(t, req.Get("response_format.json_schema.strict").Bool())
	assert.Equal(t, `["for","against"]`, req.Get("response_format.json_schema.schema.properties.label.enum").Raw)

	label, ok := models.CategorySet{"for", "against"}.Parse(out)
	assert.True(t, ok)
	assert.Equal(t, models.Category("against"), label)
}

func TestOpenAIProvider_RateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL+"/v1")
	_, err := p.Complete(context.Background(), Request{Model: "gpt-4o-mini", Categories: []string{"for", "against"}})
	require.Error(t, err)
	assert.Equal(t, models.FailureTransient, ClassifyError(err))
}

func TestOpenAIProvider_CheckModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/models/gpt-4o-mini") {
			_, _ = io.WriteString(w, `{"id": "gpt-4o-mini", "object": "model", "owned_by": "openai"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error": {"message": "The model does not exist", "type": "invalid_request_error", "code": "model_not_found"}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL+"/v1")
	assert.NoError(t, p.CheckModel(context.Background(), "gpt-4o-mini"))

	err := p.CheckModel(context.Background(), "gpt-nope")
	assert.True(t, models.IsKind(err, models.ErrConfiguration), "got %v", err)
}

func TestGeminiProvider_Complete(t *testing.T) {
	var body []byte
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates": [{"content": {"role": "model", "parts": [{"text": "present"}]}, "finishReason": "STOP"}]}`)
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(context.Background(), "test-key", srv.URL)
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), Request{
		Model:      "gemini-2.5-flash",
		System:     "Is strong mayor powers discussed?",
		Text:       "The mayor should not have a veto.",
		Categories: []string{"present", "absent"},
	})
	require.NoError(t, err)
	assert.Equal(t, "present", out)

	assert.Contains(t, path, "gemini-2.5-flash:generateContent")
	req := gjson.ParseBytes(body)
	assert.Equal(t, "text/x.enum", req.Get("generationConfig.responseMimeType").String())
	assert.Equal(t, `["present","absent"]`, req.Get("generationConfig.responseSchema.enum").Raw)
	assert.Equal(t, "The mayor should not have a veto.", req.Get("contents.0.parts.0.text").String())
}

func TestGeminiProvider_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error": {"code": 503, "message": "The model is overloaded.", "status": "UNAVAILABLE"}}`)
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(context.Background(), "test-key", srv.URL)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), Request{Model: "gemini-2.5-flash", Categories: []string{"present", "absent"}})
	require.Error(t, err)
	assert.Equal(t, models.FailureTransient, ClassifyError(err))
}
