package themer

import (
	"fmt"
	"strings"

	models "contentflow/internal/domain/models/library"
)

const systemPrompt = "You categorize research content into broad themes. You answer with a single JSON object and nothing else."

// SummaryText flattens a summary into the text the themer scores
func SummaryText(s *models.Summary) string {
	if s == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Overview: %s\n", s.Overview)
	if len(s.KeyInsights) > 0 {
		sb.WriteString("\nKey Insights:\n")
		for _, insight := range s.KeyInsights {
			fmt.Fprintf(&sb, "- %s\n", insight)
		}
	}
	if s.Implications != nil {
		fmt.Fprintf(&sb, "\nImplications: %s\n", *s.Implications)
	}
	if len(s.SuggestedThemes) > 0 {
		fmt.Fprintf(&sb, "\nSuggested themes: %s\n", strings.Join(s.SuggestedThemes, ", "))
	}
	return sb.String()
}

func categorizationPrompt(text string, existing []models.Theme, allowNew bool) string {
	var sb strings.Builder
	sb.WriteString("Given a content summary and the existing themes, decide which themes the content belongs to.\n\n")
	sb.WriteString("Content Summary:\n")
	sb.WriteString(text)
	sb.WriteString("\nExisting Themes:\n")
	if len(existing) == 0 {
		sb.WriteString("No existing themes yet.\n")
	}
	for _, t := range existing {
		desc := "No description"
		if t.Description != nil && *t.Description != "" {
			desc = *t.Description
		}
		fmt.Fprintf(&sb, "- id=%s | %s: %s\n", t.ID, t.Name, desc)
	}

	sb.WriteString(`
Task:
1. Identify which existing themes this content belongs to, if any
2. Give each match a confidence score between 0.0 and 1.0
`)
	if allowNew {
		sb.WriteString("3. If the content introduces a substantially new topic not covered by the existing themes, suggest one new broad theme\n")
	}
	sb.WriteString(`
Respond in JSON with this exact structure:
{
  "theme_matches": [
    {"theme_id": "<id from the list above>", "confidence": 0.85, "reasoning": "why this theme fits"}
  ],
  "new_theme_suggestion": {"name": "Theme Name", "description": "what it covers"} or null
}

Content can belong to several themes. New themes must be broad enough to hold many items.
Respond ONLY with valid JSON, no markdown fences or additional text.`)

	return sb.String()
}

func bootstrapPrompt(corpus []models.CorpusEntry) string {
	var sb strings.Builder
	sb.WriteString("You are analyzing a first batch of content summaries to identify broad themes for organizing future content.\n\n")
	sb.WriteString("Content Summaries:\n")
	for i, entry := range corpus {
		fmt.Fprintf(&sb, "\nSummary %d (%s):\nOverview: %s\n", i+1, entry.Title, entry.Overview)
		if len(entry.KeyInsights) > 0 {
			fmt.Fprintf(&sb, "Key Insights: %s\n", strings.Join(entry.KeyInsights, "; "))
		}
	}

	fmt.Fprintf(&sb, `
Identify between 1 and %d broad, distinct themes that cover the major topics above.
Good themes: "Machine Learning & AI", "Climate Science & Policy", "Healthcare Innovation".
Bad themes are too narrow: "GPT-4 Architecture", "This paper's findings".

Respond in JSON with this exact structure:
{
  "themes": [
    {"name": "Theme Name (2-4 words)", "description": "1-2 sentences on what the theme covers"}
  ]
}
Respond ONLY with valid JSON, no markdown fences or additional text.`, MaxProposals)

	return sb.String()
}
