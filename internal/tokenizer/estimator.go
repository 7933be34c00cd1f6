// ABOUTME: Token estimators used for chunk budgets and dry-run cost reports
// ABOUTME: Exact tiktoken counts for OpenAI models, a documented ratio otherwise
package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/adrg/xdg"
	"github.com/pkoukk/tiktoken-go"
)

// DefaultCharsPerToken is the approximation ratio for roughly-English prose.
const DefaultCharsPerToken = 4

// FallbackEncoding is used when tiktoken has no mapping for a model.
const FallbackEncoding = "cl100k_base"

// Estimator approximates how many tokens a model will see for a text.
type Estimator interface {
	Estimate(text string) int
	Name() string
}

// Approx estimates ceil(runes / CharsPerToken).
type Approx struct {
	CharsPerToken int
}

// NewApprox returns the default 4 characters per token approximation.
func NewApprox() Approx {
	return Approx{CharsPerToken: DefaultCharsPerToken}
}

func (a Approx) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	ratio := a.CharsPerToken
	if ratio <= 0 {
		ratio = DefaultCharsPerToken
	}
	return (n + ratio - 1) / ratio
}

func (a Approx) Name() string {
	ratio := a.CharsPerToken
	if ratio <= 0 {
		ratio = DefaultCharsPerToken
	}
	return fmt.Sprintf("approx-%d", ratio)
}

// Tiktoken counts BPE tokens exactly for OpenAI encodings.
type Tiktoken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTiktoken loads the encoding for model, or cl100k_base when unknown.
func NewTiktoken(model string) (*Tiktoken, error) {
	ensureCacheDir()

	encoding, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return &Tiktoken{encoding: encoding, name: "tiktoken:" + model}, nil
	}

	encoding, err = tiktoken.GetEncoding(FallbackEncoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &Tiktoken{encoding: encoding, name: "tiktoken:" + FallbackEncoding}, nil
}

func (t *Tiktoken) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

func (t *Tiktoken) Name() string {
	return t.name
}

// ForModel picks an estimator. kind is "auto", "tiktoken" or "approx"; auto
// uses tiktoken only for OpenAI models since no local Gemini tokenizer exists.
// A tiktoken load failure degrades to Approx rather than failing the run.
func ForModel(kind, model string) (Estimator, error) {
	switch strings.ToLower(kind) {
	case "", "auto":
		if !IsOpenAIModel(model) {
			return NewApprox(), nil
		}
	case "approx":
		return NewApprox(), nil
	case "tiktoken":
	default:
		return nil, fmt.Errorf("unknown tokenizer %q (want auto, tiktoken or approx)", kind)
	}

	tk, err := NewTiktoken(model)
	if err != nil {
		return NewApprox(), nil
	}
	return tk, nil
}

// IsOpenAIModel reports whether model looks like an OpenAI model id.
func IsOpenAIModel(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range []string{"gpt-", "o1", "o3", "o4", "chatgpt-", "text-"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

// ensureCacheDir keeps tiktoken's vocabulary cache under the XDG cache home.
func ensureCacheDir() {
	if os.Getenv("TIKTOKEN_CACHE_DIR") != "" {
		return
	}
	dir := filepath.Join(xdg.CacheHome, "comment-classifier", "tiktoken")
	if err := os.MkdirAll(dir, 0o755); err == nil {
		_ = os.Setenv("TIKTOKEN_CACHE_DIR", dir)
	}
}
