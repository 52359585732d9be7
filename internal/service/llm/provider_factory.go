package llm

import (
	"fmt"
	"strings"

	"contentflow/internal/config"
	domainllm "contentflow/internal/domain/services/llm"
	"contentflow/internal/service/llm/providers/anthropic"
	"contentflow/internal/service/llm/providers/lorem"
	"contentflow/internal/service/ratelimit"
)

// ProviderFactory creates LLM provider instances from configuration
type ProviderFactory struct {
	config *config.Config
	limits *ratelimit.Registry
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config, limits *ratelimit.Registry) *ProviderFactory {
	return &ProviderFactory{
		config: cfg,
		limits: limits,
	}
}

// Selection is the configured provider together with the model it will be asked for
type Selection struct {
	Provider domainllm.LLMProvider
	Model    string
}

// Select resolves LLM_PROVIDER and LLM_MODEL into a provider instance.
// The lorem provider substitutes its own model when LLM_MODEL names a real one.
func (f *ProviderFactory) Select() (*Selection, error) {
	providerName := strings.ToLower(f.config.LLMProvider)
	model := f.config.LLMModel

	if info, err := ParseModel(model); err == nil {
		model = info.Model
		if providerName == "" {
			providerName = info.Provider
		}
	}

	provider, err := f.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	if !provider.SupportsModel(model) {
		if providerName != "lorem" {
			return nil, fmt.Errorf("model %q is not supported by provider %s", model, providerName)
		}
		model = lorem.DefaultModel
	}

	return &Selection{Provider: provider, Model: model}, nil
}

// GetProvider returns a provider instance for the given provider name
//
// Supported providers:
//   - "anthropic" - Claude models via Anthropic API
//   - "lorem" - Mock provider for development (no API key required)
func (f *ProviderFactory) GetProvider(providerName string) (domainllm.LLMProvider, error) {
	switch providerName {
	case "anthropic":
		return f.createAnthropicProvider()
	case "lorem":
		return lorem.NewProvider(0), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s (supported: anthropic, lorem)", providerName)
	}
}

func (f *ProviderFactory) createAnthropicProvider() (domainllm.LLMProvider, error) {
	if f.config.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	provider, err := anthropic.NewProvider(f.config.AnthropicAPIKey, f.limits)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
	}

	return provider, nil
}
