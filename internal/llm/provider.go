// ABOUTME: Provider abstracts one constrained completion call to a hosted LLM
// ABOUTME: Builds the shared classification prompt and picks a backend by name
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/comment-classifier/internal/models"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultModel is the model used when none is configured
func DefaultModel(provider string) string {
	if strings.EqualFold(provider, ProviderOpenAI) {
		return DefaultOpenAIModel
	}
	return DefaultGeminiModel
}

// Request is everything a provider needs for one classification call
type Request struct {
	Model      string
	System     string
	Text       string
	Categories []string
}

// Provider performs a single remote call and returns the raw model output.
// It does not retry; the Classifier owns retries.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// ModelChecker is implemented by providers that can confirm a model id exists
type ModelChecker interface {
	CheckModel(ctx context.Context, model string) error
}

// ProviderConfig selects and configures a backend
type ProviderConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
}

// NewProvider builds the named provider; missing credentials are a configuration error
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, models.NewConfigError("%s API key is required", cfg.Provider)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL), nil
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.BaseURL)
	default:
		return nil, models.NewConfigError("unknown provider %q (want %s or %s)", cfg.Provider, ProviderOpenAI, ProviderGemini)
	}
}

// BuildSystemPrompt combines a task instruction with the closed answer set
func BuildSystemPrompt(instruction string, categories models.CategorySet) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(instruction))
	b.WriteString("\n\nAnswer with exactly one of the following labels and nothing else: ")
	b.WriteString(strings.Join(categories.Strings(), ", "))
	b.WriteString(".\nThe text may be one part of a longer comment; judge only the text given.")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:n], len(s))
}
