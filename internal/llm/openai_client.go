// ABOUTME: OpenAI provider for constrained classification calls
// ABOUTME: Uses a strict JSON schema whose label property is an enum of categories
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/harper/comment-classifier/internal/models"
)

// DefaultOpenAIModel is the default model for chat completions
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIProvider wraps the OpenAI API client
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a provider; baseURL selects an OpenAI-compatible endpoint
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(config)}
}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

// Complete asks for {"label": <one of the categories>} and returns the raw content
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	schema := &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"label": {
				Type:        jsonschema.String,
				Enum:        req.Categories,
				Description: "the single label that best classifies the text",
			},
		},
		Required:             []string{"label"},
		AdditionalProperties: false,
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Text,
			},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "classification",
				Schema: schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	if resp.Choices[0].Message.Refusal != "" {
		return resp.Choices[0].Message.Refusal, nil
	}
	return resp.Choices[0].Message.Content, nil
}

// CheckModel turns an unknown model id into a configuration error
func (p *OpenAIProvider) CheckModel(ctx context.Context, model string) error {
	_, err := p.client.GetModel(ctx, model)
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
		return models.NewConfigError("unknown OpenAI model %q", model)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusNotFound {
		return models.NewConfigError("unknown OpenAI model %q", model)
	}
	return fmt.Errorf("failed to look up model %q: %w", model, err)
}
