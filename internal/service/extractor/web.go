package extractor

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	models "contentflow/internal/domain/models/library"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/service/ratelimit"
)

// minArticleChars below which readability output is treated as a miss
const minArticleChars = 200

var contentSelectors = []string{"article", "main", ".post-content", ".article-content", ".entry-content"}

// WebExtractor handles any http(s) page: readability first, then the main
// content container converted to markdown.
type WebExtractor struct {
	fetcher  *Fetcher
	markdown *htmlToMarkdown
}

// NewWebExtractor creates the catch-all web extractor
func NewWebExtractor(fetcher *Fetcher) *WebExtractor {
	return &WebExtractor{fetcher: fetcher, markdown: newHTMLToMarkdown()}
}

func (e *WebExtractor) Name() string                  { return "web" }
func (e *WebExtractor) SourceType() models.SourceType { return models.SourceWeb }

func (e *WebExtractor) CanHandle(src *librarySvc.Source) bool {
	if src.IsFile() || src.URL == "" {
		return false
	}
	return strings.HasPrefix(src.URL, "http://") || strings.HasPrefix(src.URL, "https://")
}

func (e *WebExtractor) Extract(ctx context.Context, src *librarySvc.Source) (*librarySvc.ExtractionResult, error) {
	resp, err := e.fetcher.Get(ctx, ratelimit.Web, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}

	pageURL := resp.FinalURL
	if pageURL == nil {
		pageURL, _ = url.Parse(src.URL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("web: parse html: %w", err)
	}

	metadata := map[string]any{"url": src.URL}
	result := &librarySvc.ExtractionResult{
		SourceType: models.SourceWeb,
		Metadata:   metadata,
	}

	article, err := readability.FromReader(bytes.NewReader(resp.Body), pageURL)
	if err == nil {
		result.Title = strings.TrimSpace(article.Title)
		result.Author = strings.TrimSpace(article.Byline)
		result.Text = CollapseWhitespace(article.TextContent)
		if article.SiteName != "" {
			metadata["site_name"] = article.SiteName
		}
		metadata["extraction_method"] = "readability"
	}

	if len([]rune(result.Text)) < minArticleChars {
		if text := e.fallbackText(doc); len([]rune(text)) > len([]rune(result.Text)) {
			result.Text = text
			metadata["extraction_method"] = "markdown"
		}
	}

	if result.Title == "" {
		result.Title = metaContent(doc, "og:title", "twitter:title")
	}
	if result.Title == "" {
		result.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if result.Title == "" {
		result.Title = "Untitled"
	}
	if result.Author == "" {
		result.Author = metaContent(doc, "author", "article:author")
	}

	result.PublishDate = ParseDate(metaContent(doc,
		"article:published_time", "datePublished", "date", "pubdate", "dc.date", "publish-date"))
	if result.PublishDate == nil {
		if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			result.PublishDate = ParseDate(dt)
		}
	}

	return result, nil
}

// fallbackText converts the main content container, or the stripped body,
// to markdown
func (e *WebExtractor) fallbackText(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if html, err := s.Html(); err == nil {
				if text, err := e.markdown.Convert(html); err == nil && text != "" {
					return text
				}
			}
		}
	}

	body := doc.Find("body").First()
	if body.Length() == 0 {
		return ""
	}
	body.Find("script, style, nav, header, footer, noscript").Remove()
	html, err := body.Html()
	if err != nil {
		return ""
	}
	text, err := e.markdown.Convert(html)
	if err != nil {
		return CollapseWhitespace(body.Text())
	}
	return text
}
