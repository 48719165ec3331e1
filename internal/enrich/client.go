// Package enrich calls the external text provider that repairs content,
// one rate-limited request at a time.
package enrich

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Provider completes a single prompt.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, maxTokens int64, temperature float64) (string, error)
}

// statusError is implemented by provider errors that carry an HTTP status.
type statusError interface {
	HTTPStatus() int
	Unauthorized() bool
}

// Options tune one call. Zero fields fall back to the client defaults.
type Options struct {
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

// Client wraps a Provider with the shared Limiter, a per-call timeout and
// error classification.
type Client struct {
	provider Provider
	limiter  *Limiter
	defaults Options
}

// NewClient creates a Client. A nil provider is allowed; every call then
// fails with a ConfigError.
func NewClient(p Provider, l *Limiter, defaults Options) *Client {
	if l == nil {
		l = NewLimiter(0)
	}
	if defaults.MaxTokens <= 0 {
		defaults.MaxTokens = 1024
	}
	if defaults.Timeout <= 0 {
		defaults.Timeout = 60 * time.Second
	}
	return &Client{provider: p, limiter: l, defaults: defaults}
}

// Limiter returns the shared limiter.
func (c *Client) Limiter() *Limiter { return c.limiter }

// ProviderName returns the configured provider, or "none".
func (c *Client) ProviderName() string {
	if c.provider == nil {
		return "none"
	}
	return c.provider.Name()
}

func (c *Client) merge(o Options) Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = c.defaults.MaxTokens
	}
	if o.Temperature == 0 {
		o.Temperature = c.defaults.Temperature
	}
	if o.Timeout <= 0 {
		o.Timeout = c.defaults.Timeout
	}
	return o
}

// Enrich waits for the limiter, sends prompt and returns the reply text.
func (c *Client) Enrich(ctx context.Context, prompt string, opts Options) (string, error) {
	if c.provider == nil {
		return "", &ConfigError{Reason: "no enrichment provider configured"}
	}
	opts = c.merge(opts)

	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return "", eris.Wrap(err, "enrich: rate limiter wait")
	}

	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	text, err := c.provider.Complete(callCtx, prompt, opts.MaxTokens, opts.Temperature)
	release(err == nil)
	if err != nil {
		return "", c.classify(ctx, callCtx, err)
	}
	zap.L().Debug("enrich: call complete",
		zap.String("provider", c.provider.Name()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_len", len(text)),
	)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *Client) classify(parent, callCtx context.Context, err error) error {
	if parent.Err() != nil {
		return eris.Wrap(parent.Err(), "enrich: cancelled")
	}
	name := c.provider.Name()
	var se statusError
	if errors.As(err, &se) {
		if se.Unauthorized() {
			return &ConfigError{Reason: name + " credential rejected", Err: err}
		}
		return &TransportError{Provider: name, StatusCode: se.HTTPStatus(), Err: err}
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &TransportError{Provider: name, Timeout: true, Err: err}
	}
	return &TransportError{Provider: name, Err: err}
}

const pingPrompt = `Reply with the single word "pong".`

// Ping sends a tiny request and returns its round-trip time, including any
// limiter wait.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := c.Enrich(ctx, pingPrompt, Options{MaxTokens: 8})
	return time.Since(start), err
}
