package summarizer

import (
	"fmt"
	"strings"

	librarySvc "contentflow/internal/domain/services/library"
)

const systemPrompt = "You are an expert research analyst. You answer with a single JSON object and nothing else."

func buildPrompt(req *librarySvc.SummaryRequest, text string) string {
	contentType := string(req.SourceType)
	if contentType == "" {
		contentType = "content"
	}
	title := req.Title
	if title == "" {
		title = "Untitled"
	}
	author := req.Author
	if author == "" {
		author = "Unknown"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the following %s and provide a comprehensive, structured summary.\n\n", contentType)
	fmt.Fprintf(&sb, "Content Type: %s\nTitle: %s\nAuthor: %s\n\n", contentType, title, author)
	sb.WriteString("Content:\n")
	sb.WriteString(text)
	sb.WriteString(`

Respond in JSON with this exact structure:
{
  "overview": "A 2-3 paragraph overview of the main method, approach or thesis: what problem is addressed and how",
  "key_insights": ["3-5 specific findings or arguments, with examples or data when available"],
  "implications": "1-2 paragraphs on broader significance, applications and future directions",
  "suggested_themes": ["2-4 broad topics this belongs to, e.g. Machine Learning, Climate Policy"]
}

Explain the core idea rather than restating the title.
Respond ONLY with valid JSON, no markdown fences or additional text.`)

	return sb.String()
}
