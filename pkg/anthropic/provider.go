package anthropic

import (
	"context"

	"go.uber.org/zap"
)

// BuildCachedSystemBlocks constructs system content blocks with a cache
// breakpoint set to a 1-hour TTL, so the fixed correction instructions are
// billed once per hour instead of once per record.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{
		{
			Text: text,
			CacheControl: &CacheControl{
				TTL: "1h",
			},
		},
	}
}

// Provider turns single prompts into Messages API calls.
type Provider struct {
	client Client
	model  string
	system []SystemBlock
}

// NewProvider creates a Provider. system may be empty.
func NewProvider(client Client, model, system string) *Provider {
	return &Provider{client: client, model: model, system: BuildCachedSystemBlocks(system)}
}

// Name identifies the provider in logs and correction data.
func (p *Provider) Name() string { return "anthropic" }

// Model returns the configured model ID.
func (p *Provider) Model() string { return p.model }

// Complete sends prompt as a single user message and returns the text reply.
func (p *Provider) Complete(ctx context.Context, prompt string, maxTokens int64, temperature float64) (string, error) {
	temp := temperature
	resp, err := p.client.CreateMessage(ctx, MessageRequest{
		Model:       p.model,
		MaxTokens:   maxTokens,
		System:      p.system,
		Prompt:      prompt,
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(p.model, "correction")
	if resp.Truncated() {
		zap.L().Warn("anthropic: reply hit the token limit",
			zap.String("model", p.model),
			zap.Int64("max_tokens", maxTokens),
		)
	}
	return resp.Text, nil
}
