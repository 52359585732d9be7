// Package summarizer turns extracted text into a structured summary with one
// LLM call.
package summarizer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	librarySvc "contentflow/internal/domain/services/library"
	domainllm "contentflow/internal/domain/services/llm"
	"contentflow/internal/service/llm"
)

const (
	maxTokens   = 4096
	temperature = 0.3
)

// partialInsight marks a summary whose answer could not be parsed as JSON
const partialInsight = "Summary generation partially failed - see overview"

// LLMSummarizer implements librarySvc.Summarizer on any LLM provider
type LLMSummarizer struct {
	provider   domainllm.LLMProvider
	model      string
	charBudget int
	logger     *slog.Logger
}

// New creates a summarizer. charBudget caps the text sent to the model;
// zero disables truncation.
func New(provider domainllm.LLMProvider, model string, charBudget int, logger *slog.Logger) *LLMSummarizer {
	return &LLMSummarizer{
		provider:   provider,
		model:      model,
		charBudget: charBudget,
		logger:     logger,
	}
}

type summaryJSON struct {
	Overview        *string  `json:"overview"`
	KeyInsights     []string `json:"key_insights"`
	Implications    *string  `json:"implications"`
	SuggestedThemes []string `json:"suggested_themes"`
}

// Summarize calls the model once. Transport and API failures, empty input and
// answers missing the overview come back as SummarizationFailedError. An
// answer that is not JSON at all is kept verbatim as the overview.
func (s *LLMSummarizer) Summarize(ctx context.Context, req *librarySvc.SummaryRequest) (*models.Summary, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &domain.SummarizationFailedError{Message: "no text to summarize"}
	}

	text, truncated := llm.Truncate(req.Text, s.charBudget)
	if truncated {
		s.logger.Debug("truncated text for summary", "title", req.Title, "budget", s.charBudget)
	}

	temp := temperature
	resp, err := s.provider.GenerateResponse(ctx, &domainllm.GenerateRequest{
		Model:       s.model,
		System:      systemPrompt,
		Prompt:      buildPrompt(req, text),
		MaxTokens:   maxTokens,
		Temperature: &temp,
		Task:        domainllm.TaskSummarize,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.Error("summary generation failed", "title", req.Title, "error", err)
		return nil, &domain.SummarizationFailedError{Message: "summary generation failed", Cause: err}
	}

	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		return nil, &domain.SummarizationFailedError{Message: "model returned an empty summary"}
	}

	modelVersion := resp.Model
	if modelVersion == "" {
		modelVersion = s.model
	}
	summary := &models.Summary{
		ModelVersion: modelVersion,
		TokenCount:   resp.OutputTokens,
		GeneratedAt:  time.Now().UTC(),
	}

	var parsed summaryJSON
	if err := llm.DecodeJSON(answer, &parsed); err != nil {
		s.logger.Warn("summary answer was not JSON, keeping raw text",
			"title", req.Title,
			"error", err,
			"response_prefix", prefix(answer, 200),
		)
		summary.Overview = answer
		summary.KeyInsights = []string{partialInsight}
		summary.SuggestedThemes = []string{}
		return summary, nil
	}

	if parsed.Overview == nil || strings.TrimSpace(*parsed.Overview) == "" {
		return nil, &domain.SummarizationFailedError{
			Message: "summary generation failed",
			Cause:   errors.New("model answer is missing overview"),
		}
	}

	summary.Overview = strings.TrimSpace(*parsed.Overview)
	summary.KeyInsights = nonEmpty(parsed.KeyInsights)
	if parsed.Implications != nil && strings.TrimSpace(*parsed.Implications) != "" {
		implications := strings.TrimSpace(*parsed.Implications)
		summary.Implications = &implications
	}
	summary.SuggestedThemes = nonEmpty(parsed.SuggestedThemes)

	return summary, nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
