package lorem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	loremgen "github.com/bozaro/golorem"

	domainllm "contentflow/internal/domain/services/llm"
)

// DefaultModel is used when the configured model is not a lorem- model
const DefaultModel = "lorem-fast"

// Provider is a mock LLM provider that generates lorem ipsum text.
// It answers every task with JSON in the shape the caller's prompt asks for,
// so the whole pipeline runs without an API key.
type Provider struct {
	mu        sync.Mutex
	generator *loremgen.Lorem
	delay     time.Duration
}

// NewProvider creates a new lorem ipsum provider. delay simulates API latency.
func NewProvider(delay time.Duration) *Provider {
	return &Provider{
		generator: loremgen.New(),
		delay:     delay,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// GenerateResponse returns canned JSON for the request's task
func (p *Provider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var payload any
	switch req.Task {
	case domainllm.TaskSummarize:
		payload = p.summary()
	case domainllm.TaskProposeThemes:
		payload = map[string]any{"themes": p.themes(3)}
	case domainllm.TaskCategorize:
		payload = map[string]any{"theme_matches": []any{}, "new_theme_suggestion": nil}
	default:
		p.mu.Lock()
		text := p.generator.Paragraph(2, 4)
		p.mu.Unlock()
		return p.response(req, text), nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("lorem: encode response: %w", err)
	}
	return p.response(req, string(b)), nil
}

func (p *Provider) response(req *domainllm.GenerateRequest, text string) *domainllm.GenerateResponse {
	return &domainllm.GenerateResponse{
		Text:         text,
		Model:        req.Model,
		InputTokens:  len(strings.Fields(req.System)) + len(strings.Fields(req.Prompt)),
		OutputTokens: len(strings.Fields(text)),
		StopReason:   "end_turn",
	}
}

func (p *Provider) summary() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()

	insights := make([]string, 3)
	for i := range insights {
		insights[i] = p.generator.Sentence(6, 12)
	}
	return map[string]any{
		"overview":         p.generator.Paragraph(2, 3),
		"key_insights":     insights,
		"implications":     p.generator.Sentence(8, 14),
		"suggested_themes": []string{titleCase(p.generator.Word(4, 9)), titleCase(p.generator.Word(4, 9))},
	}
}

func (p *Provider) themes(n int) []map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]map[string]string, 0, n)
	seen := make(map[string]bool)
	for len(out) < n {
		name := titleCase(p.generator.Word(4, 9)) + " " + titleCase(p.generator.Word(4, 9))
		if seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		out = append(out, map[string]string{
			"name":        name,
			"description": p.generator.Sentence(6, 10),
		})
	}
	return out
}

func titleCase(word string) string {
	r := []rune(word)
	if len(r) == 0 {
		return word
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
