// Package openai adapts OpenAI-compatible chat completion APIs to the
// single-prompt provider used by the enrichment client.
package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// APIError carries the HTTP status of a failed API call.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string { return e.Err.Error() }
func (e *APIError) Unwrap() error { return e.Err }

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Unauthorized reports whether the credential was rejected.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Provider sends prompts to a chat completion endpoint.
type Provider struct {
	client *goopenai.Client
	model  string
	system string
}

// NewProvider creates a Provider. An empty baseURL uses api.openai.com.
func NewProvider(apiKey, baseURL, model, system string) *Provider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Provider{client: goopenai.NewClientWithConfig(cfg), model: model, system: system}
}

// Name identifies the provider in logs and correction data.
func (p *Provider) Name() string { return "openai" }

// Model returns the configured model ID.
func (p *Provider) Model() string { return p.model }

// Complete sends prompt as a user message and returns the first choice.
func (p *Provider) Complete(ctx context.Context, prompt string, maxTokens int64, temperature float64) (string, error) {
	var msgs []goopenai.ChatCompletionMessage
	if p.system != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: p.system})
	}
	msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    msgs,
		MaxTokens:   int(maxTokens),
		Temperature: float32(temperature),
	})
	if err != nil {
		return "", wrapError(err)
	}

	zap.L().Debug("openai: completion",
		zap.String("model", p.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func wrapError(err error) error {
	wrapped := eris.Wrap(err, "openai: create chat completion")
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Err: wrapped}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Err: wrapped}
	}
	return wrapped
}
