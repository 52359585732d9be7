package extractor

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/service/ratelimit"
)

// DefaultArxivAPIURL is the public arXiv export API
const DefaultArxivAPIURL = "http://export.arxiv.org/api/query"

// arXiv Atom feed structures

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID              string          `xml:"id"`
	Title           string          `xml:"title"`
	Summary         string          `xml:"summary"`
	Published       string          `xml:"published"`
	Updated         string          `xml:"updated"`
	Authors         []arxivAuthor   `xml:"author"`
	Links           []arxivLink     `xml:"link"`
	Categories      []arxivCategory `xml:"category"`
	PrimaryCategory arxivCategory   `xml:"primary_category"`
	Comment         string          `xml:"comment"`
	JournalRef      string          `xml:"journal_ref"`
	DOI             string          `xml:"doi"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Type  string `xml:"type,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// ArxivExtractor reads paper metadata and abstract from the arXiv API
type ArxivExtractor struct {
	fetcher *Fetcher
	apiURL  string
}

// NewArxivExtractor creates an arXiv extractor; an empty apiURL uses the public API
func NewArxivExtractor(fetcher *Fetcher, apiURL string) *ArxivExtractor {
	if apiURL == "" {
		apiURL = DefaultArxivAPIURL
	}
	return &ArxivExtractor{fetcher: fetcher, apiURL: apiURL}
}

func (e *ArxivExtractor) Name() string                  { return "arxiv" }
func (e *ArxivExtractor) SourceType() models.SourceType { return models.SourceArxiv }

func (e *ArxivExtractor) CanHandle(src *librarySvc.Source) bool {
	return !src.IsFile() && src.URL != "" && ClassifyURL(src.URL).SourceType == models.SourceArxiv
}

func (e *ArxivExtractor) Extract(ctx context.Context, src *librarySvc.Source) (*librarySvc.ExtractionResult, error) {
	arxivID := ClassifyURL(src.URL).ID
	if arxivID == "" {
		return nil, &domain.ValidationError{Message: "could not read an arXiv id from the url"}
	}

	query := url.Values{}
	query.Set("id_list", arxivID)
	resp, err := e.fetcher.Get(ctx, ratelimit.Arxiv, e.apiURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(resp.Body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: parse feed: %w", err)
	}
	// An unknown id yields an empty feed, or a single entry whose title is "Error"
	if len(feed.Entries) == 0 || strings.TrimSpace(feed.Entries[0].Title) == "Error" {
		return nil, fmt.Errorf("arxiv: paper %s not found", arxivID)
	}
	entry := feed.Entries[0]

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}
	categories := make([]string, 0, len(entry.Categories))
	for _, c := range entry.Categories {
		categories = append(categories, c.Term)
	}

	var pdfURL string
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			pdfURL = link.Href
		}
	}

	var text strings.Builder
	text.WriteString("Abstract:\n")
	text.WriteString(CollapseWhitespace(entry.Summary))
	if len(categories) > 0 {
		fmt.Fprintf(&text, "\n\nCategories: %s", strings.Join(categories, ", "))
	}
	if c := strings.TrimSpace(entry.Comment); c != "" {
		fmt.Fprintf(&text, "\n\nComments: %s", c)
	}
	if j := strings.TrimSpace(entry.JournalRef); j != "" {
		fmt.Fprintf(&text, "\n\nJournal Reference: %s", j)
	}
	if d := strings.TrimSpace(entry.DOI); d != "" {
		fmt.Fprintf(&text, "\n\nDOI: %s", d)
	}

	metadata := map[string]any{
		"url":              src.URL,
		"arxiv_id":         arxivID,
		"categories":       categories,
		"primary_category": entry.PrimaryCategory.Term,
		"authors_list":     authors,
	}
	if pdfURL != "" {
		metadata["pdf_url"] = pdfURL
	}
	if entry.DOI != "" {
		metadata["doi"] = strings.TrimSpace(entry.DOI)
	}
	if entry.JournalRef != "" {
		metadata["journal_ref"] = strings.TrimSpace(entry.JournalRef)
	}
	if entry.Updated != "" {
		metadata["updated"] = entry.Updated
	}

	result := &librarySvc.ExtractionResult{
		SourceType: models.SourceArxiv,
		Title:      SingleLine(entry.Title),
		Author:     strings.Join(authors, ", "),
		Text:       text.String(),
		Metadata:   metadata,
	}
	if published, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		published = published.UTC()
		result.PublishDate = &published
	}

	return result, nil
}
