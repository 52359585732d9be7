package themer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"contentflow/internal/config"
	models "contentflow/internal/domain/models/library"
	domainllm "contentflow/internal/domain/services/llm"
	"contentflow/internal/service/llm"
)

const (
	// MaxProposals caps how many themes one proposal run may create
	MaxProposals = 8

	maxTokens             = 2048
	categorizeTemperature = 0.3
	bootstrapTemperature  = 0.5
)

// ErrNoProposals is returned when the model proposed no usable themes
var ErrNoProposals = errors.New("no themes proposed")

// LLMThemer scores content against themes with one prompt per item
type LLMThemer struct {
	provider   domainllm.LLMProvider
	model      string
	allowNew   bool
	charBudget int
	logger     *slog.Logger
}

// Options configures an LLMThemer
type Options struct {
	// AllowNewThemes lets the model suggest a theme outside the existing set
	AllowNewThemes bool
	// CharBudget caps the text sent per prompt; zero disables truncation
	CharBudget int
}

// NewLLMThemer creates a themer backed by an LLM provider
func NewLLMThemer(provider domainllm.LLMProvider, model string, opts Options, logger *slog.Logger) *LLMThemer {
	return &LLMThemer{
		provider:   provider,
		model:      model,
		allowNew:   opts.AllowNewThemes,
		charBudget: opts.CharBudget,
		logger:     logger,
	}
}

type matchJSON struct {
	ThemeID    json.RawMessage `json:"theme_id"`
	Confidence float64         `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

type categorizationJSON struct {
	ThemeMatches       []matchJSON           `json:"theme_matches"`
	NewThemeSuggestion *models.ThemeProposal `json:"new_theme_suggestion"`
}

// AssignThemes returns clamped, unfiltered scores for known theme ids. An
// answer that cannot be parsed yields zero matches and no error.
func (t *LLMThemer) AssignThemes(ctx context.Context, text string, existing []models.Theme) (*models.ThemeMatches, error) {
	text, _ = llm.Truncate(text, t.charBudget)

	temp := categorizeTemperature
	resp, err := t.provider.GenerateResponse(ctx, &domainllm.GenerateRequest{
		Model:       t.model,
		System:      systemPrompt,
		Prompt:      categorizationPrompt(text, existing, t.allowNew),
		MaxTokens:   maxTokens,
		Temperature: &temp,
		Task:        domainllm.TaskCategorize,
	})
	if err != nil {
		return nil, fmt.Errorf("categorize: %w", err)
	}

	result := &models.ThemeMatches{ModelResponse: resp.Text}

	var parsed categorizationJSON
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		t.logger.Warn("could not parse categorization answer", "error", err)
		return result, nil
	}

	seen := make(map[string]bool)
	for _, m := range parsed.ThemeMatches {
		id, ok := resolveThemeID(m.ThemeID, existing)
		if !ok {
			t.logger.Debug("dropping match for unknown theme", "theme_id", string(m.ThemeID))
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		result.Scores = append(result.Scores, models.ThemeScore{
			ThemeID:    id,
			Confidence: Clamp(m.Confidence),
			Reasoning:  m.Reasoning,
		})
	}

	if t.allowNew && parsed.NewThemeSuggestion != nil {
		if p, ok := cleanProposal(*parsed.NewThemeSuggestion); ok {
			result.NewTheme = &p
		}
	}

	return result, nil
}

// ProposeThemes asks for up to MaxProposals broad themes covering corpus
func (t *LLMThemer) ProposeThemes(ctx context.Context, corpus []models.CorpusEntry) ([]models.ThemeProposal, error) {
	if len(corpus) == 0 {
		return nil, ErrNoProposals
	}

	temp := bootstrapTemperature
	resp, err := t.provider.GenerateResponse(ctx, &domainllm.GenerateRequest{
		Model:       t.model,
		System:      systemPrompt,
		Prompt:      bootstrapPrompt(corpus),
		MaxTokens:   maxTokens,
		Temperature: &temp,
		Task:        domainllm.TaskProposeThemes,
	})
	if err != nil {
		return nil, fmt.Errorf("propose themes: %w", err)
	}

	var parsed struct {
		Themes []models.ThemeProposal `json:"themes"`
	}
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return nil, fmt.Errorf("propose themes: %w", err)
	}

	proposals := DedupeProposals(parsed.Themes)
	if len(proposals) == 0 {
		return nil, ErrNoProposals
	}
	return proposals, nil
}

// resolveThemeID accepts the UUID we listed, or a 1-based position in the list
func resolveThemeID(raw json.RawMessage, existing []models.Theme) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		s = strconv.Itoa(int(n))
	}
	s = strings.TrimSpace(s)

	for _, theme := range existing {
		if strings.EqualFold(theme.ID, s) {
			return theme.ID, true
		}
	}
	if idx, err := strconv.Atoi(s); err == nil && idx >= 1 && idx <= len(existing) {
		return existing[idx-1].ID, true
	}
	return "", false
}

// Clamp bounds a confidence score to [0, 1]
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DedupeProposals trims names, drops blanks and case-insensitive repeats,
// and keeps at most MaxProposals.
func DedupeProposals(in []models.ThemeProposal) []models.ThemeProposal {
	out := make([]models.ThemeProposal, 0, len(in))
	seen := make(map[string]bool)
	for _, p := range in {
		p, ok := cleanProposal(p)
		if !ok || seen[strings.ToLower(p.Name)] {
			continue
		}
		seen[strings.ToLower(p.Name)] = true
		out = append(out, p)
		if len(out) == MaxProposals {
			break
		}
	}
	return out
}

func cleanProposal(p models.ThemeProposal) (models.ThemeProposal, bool) {
	p.Name = strings.Join(strings.Fields(p.Name), " ")
	if p.Name == "" {
		return p, false
	}
	if r := []rune(p.Name); len(r) > config.MaxThemeNameLength {
		p.Name = string(r[:config.MaxThemeNameLength])
	}
	p.Description = strings.TrimSpace(p.Description)
	if r := []rune(p.Description); len(r) > config.MaxThemeDescriptionLength {
		p.Description = string(r[:config.MaxThemeDescriptionLength])
	}
	return p, true
}
