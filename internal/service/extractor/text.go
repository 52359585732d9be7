package extractor

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\f\v\r]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// CollapseWhitespace squeezes runs of spaces and blank lines while keeping
// paragraph breaks.
func CollapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spaceRun.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// SingleLine joins all whitespace runs, newlines included, into single spaces
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// htmlToMarkdown sanitizes untrusted HTML then converts it to markdown text.
// Safe for concurrent use.
type htmlToMarkdown struct {
	policy    *bluemonday.Policy
	converter *md.Converter
}

func newHTMLToMarkdown() *htmlToMarkdown {
	return &htmlToMarkdown{
		policy:    bluemonday.UGCPolicy(),
		converter: md.NewConverter("", true, nil),
	}
}

func (h *htmlToMarkdown) Convert(html string) (string, error) {
	sanitized := h.policy.Sanitize(html)
	markdown, err := h.converter.ConvertString(sanitized)
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return CollapseWhitespace(markdown), nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseDate tries the date formats that show up in page metadata. It returns
// nil when none match.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
