package llm

import "context"

// LLMProvider defines the interface that all LLM providers must implement.
// Every call is a single prompt that expects a single text answer.
type LLMProvider interface {
	// GenerateResponse sends one prompt and returns the model's text.
	GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Name returns the provider name (e.g., "anthropic", "lorem")
	Name() string

	// SupportsModel returns true if the provider supports the given model.
	SupportsModel(model string) bool
}

// Task tells offline providers which answer shape the caller expects.
type Task string

const (
	TaskSummarize     Task = "summarize"
	TaskCategorize    Task = "categorize"
	TaskProposeThemes Task = "propose_themes"
)

// GenerateRequest contains the parameters for an LLM generation request.
type GenerateRequest struct {
	// Model is the model identifier (e.g., "claude-sonnet-4-5-20250929")
	Model string

	System string
	Prompt string

	MaxTokens   int
	Temperature *float64

	Task Task
}

// GenerateResponse contains the LLM provider's response.
type GenerateResponse struct {
	// Text is the concatenation of all text blocks
	Text string

	// Model is the model that was used (may differ from request if aliased)
	Model string

	InputTokens  int
	OutputTokens int

	// StopReason indicates why generation stopped (e.g., "end_turn", "max_tokens")
	StopReason string
}

// TotalTokens is input plus output tokens.
func (r *GenerateResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}
