package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	domainllm "contentflow/internal/domain/services/llm"
	"contentflow/internal/service/ratelimit"
	"contentflow/internal/service/retry"
)

// Provider implements the LLMProvider interface for Anthropic (Claude) models.
// Calls wait on the shared anthropic rate limit and are retried on 429/5xx.
type Provider struct {
	client *anthropic.Client
	limits *ratelimit.Registry
	retry  retry.Config
}

// Option customises a Provider
type Option func(*Provider, *[]option.RequestOption)

// WithBaseURL points the client at another endpoint (used in tests)
func WithBaseURL(url string) Option {
	return func(_ *Provider, opts *[]option.RequestOption) {
		*opts = append(*opts, option.WithBaseURL(url))
	}
}

// WithRetry replaces the default retry policy
func WithRetry(cfg retry.Config) Option {
	return func(p *Provider, _ *[]option.RequestOption) { p.retry = cfg }
}

// NewProvider creates a new Anthropic provider with the given API key.
func NewProvider(apiKey string, limits *ratelimit.Registry, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if limits == nil {
		limits = ratelimit.NewRegistry(nil)
	}

	p := &Provider{limits: limits, retry: retry.DefaultConfig()}
	// Retries are handled here so they share the rate limiter
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	for _, opt := range opts {
		opt(p, &reqOpts)
	}

	client := anthropic.NewClient(reqOpts...)
	p.client = &client
	return p, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// SupportsModel returns true if this provider supports the given model.
// Anthropic models start with "claude-"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// GenerateResponse sends a single user prompt to Claude.
func (p *Provider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by Anthropic provider", req.Model)
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	var message *anthropic.Message
	err := retry.WithBackoff(ctx, p.retry, func(ctx context.Context) error {
		if err := p.limits.Wait(ctx, ratelimit.Anthropic); err != nil {
			return retry.Permanent(err)
		}
		m, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return classifyError(err)
		}
		message = m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	return convertFromAnthropicResponse(message), nil
}

// classifyError turns SDK status errors into retry.StatusError so the
// backoff loop can tell transient from permanent failures.
func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		statusErr := &retry.StatusError{StatusCode: apiErr.StatusCode, URL: "anthropic messages"}
		if retry.HTTPStatusRetryable(apiErr.StatusCode) {
			return statusErr
		}
		return retry.Permanent(statusErr)
	}
	return err
}

func convertFromAnthropicResponse(msg *anthropic.Message) *domainllm.GenerateResponse {
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &domainllm.GenerateResponse{
		Text:         text.String(),
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		StopReason:   string(msg.StopReason),
	}
}
