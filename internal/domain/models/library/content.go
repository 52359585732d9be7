package library

import (
	"fmt"
	"strings"
	"time"
)

// SourceType identifies which extractor produced a content item.
type SourceType string

const (
	SourceTwitter SourceType = "twitter"
	SourcePDF     SourceType = "pdf"
	SourceArxiv   SourceType = "arxiv"
	SourceACM     SourceType = "acm"
	SourceWeb     SourceType = "web"
)

// AllSourceTypes lists every accepted source type in extractor priority order.
var AllSourceTypes = []SourceType{SourceTwitter, SourceArxiv, SourceACM, SourcePDF, SourceWeb}

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	for _, t := range AllSourceTypes {
		if s == t {
			return true
		}
	}
	return false
}

// ParseSourceTypes splits a comma-separated list, ignoring blanks.
func ParseSourceTypes(csv string) ([]SourceType, error) {
	var out []SourceType
	for _, part := range strings.Split(csv, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		st := SourceType(part)
		if !st.Valid() {
			return nil, fmt.Errorf("invalid source type %q", part)
		}
		out = append(out, st)
	}
	return out, nil
}

// SummaryStatus tracks whether a content item has a usable summary.
type SummaryStatus string

const (
	SummaryCompleted SummaryStatus = "completed"
	SummaryFailed    SummaryStatus = "failed"
)

// Content is one ingested item. Exactly one of SourceURL and FilePath is set.
type Content struct {
	ID                 string             `json:"id"`
	Title              *string            `json:"title"`
	Author             *string            `json:"author"`
	SourceType         SourceType         `json:"source_type"`
	SourceURL          *string            `json:"source_url"`
	FilePath           *string            `json:"file_path"`
	PublishDate        *time.Time         `json:"publish_date"`
	ExtractionMetadata map[string]any     `json:"extraction_metadata"`
	SummaryStatus      SummaryStatus      `json:"summary_status"`
	SummaryError       *string            `json:"summary_error,omitempty"`
	Summary            *Summary           `json:"summary"`
	Themes             []ThemeAssociation `json:"themes"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`

	// Stored but never serialized
	RawContent  string `json:"-"`
	ContentHash string `json:"-"`
}

// DisplayTitle returns the title or a placeholder for prompts and logs.
func (c *Content) DisplayTitle() string {
	if c.Title != nil && *c.Title != "" {
		return *c.Title
	}
	return "Untitled"
}

// Summary is the structured LLM digest of a content item.
type Summary struct {
	Overview        string    `json:"overview"`
	KeyInsights     []string  `json:"key_insights"`
	Implications    *string   `json:"implications"`
	SuggestedThemes []string  `json:"suggested_themes,omitempty"`
	ModelVersion    string    `json:"model_version,omitempty"`
	TokenCount      int       `json:"token_count,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// ThemeAssociation is a theme as seen from a content item.
type ThemeAssociation struct {
	ThemeID    string   `json:"theme_id"`
	ThemeName  string   `json:"theme_name"`
	Confidence *float64 `json:"confidence"`
	Color      *string  `json:"color"`
}

// ContentListItem is the compact form used in list and search pages.
type ContentListItem struct {
	ID             string             `json:"id"`
	Title          *string            `json:"title"`
	Author         *string            `json:"author"`
	SourceType     SourceType         `json:"source_type"`
	SourceURL      *string            `json:"source_url"`
	PublishDate    *time.Time         `json:"publish_date"`
	CreatedAt      time.Time          `json:"created_at"`
	SummaryStatus  SummaryStatus      `json:"summary_status"`
	SummaryPreview *string            `json:"summary_preview"`
	Themes         []ThemeAssociation `json:"themes"`
	Relevance      *float64           `json:"relevance,omitempty"`
}

// CorpusEntry is the slice of a summarized item the themer sees.
type CorpusEntry struct {
	ContentID   string
	Title       string
	Overview    string
	KeyInsights []string
}

// SummaryPreview truncates an overview to n runes, appending "..." when cut.
func SummaryPreview(overview string, n int) string {
	runes := []rune(overview)
	if len(runes) <= n {
		return overview
	}
	return string(runes[:n]) + "..."
}
