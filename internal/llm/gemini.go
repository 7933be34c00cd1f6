// ABOUTME: Gemini provider using enum-constrained text/x.enum responses
// ABOUTME: The model can only answer with one of the task's category labels
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/harper/comment-classifier/internal/models"
)

// DefaultGeminiModel is used when the provider is gemini and no model is set
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider wraps the Google Gen AI client
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini API client; baseURL is for tests and proxies
func NewGeminiProvider(ctx context.Context, apiKey, baseURL string) (*GeminiProvider, error) {
	config := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

// Complete returns the enum value the model picked
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		ResponseMIMEType:  "text/x.enum",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeString,
			Enum: req.Categories,
		},
		Temperature: genai.Ptr[float32](0),
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Text), config)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	return resp.Text(), nil
}

// CheckModel turns an unknown model id into a configuration error
func (p *GeminiProvider) CheckModel(ctx context.Context, model string) error {
	_, err := p.client.Models.Get(ctx, model, nil)
	if err == nil {
		return nil
	}
	if code, ok := geminiStatus(err); ok && code == http.StatusNotFound {
		return models.NewConfigError("unknown Gemini model %q", model)
	}
	return fmt.Errorf("failed to look up model %q: %w", model, err)
}

// geminiStatus extracts the HTTP status from a genai API error
func geminiStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code, true
	}
	return 0, false
}
