package extractor

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	models "contentflow/internal/domain/models/library"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/service/ratelimit"
)

const acmUnavailable = "Abstract not available. Please visit the ACM Digital Library for full content."

// ACMExtractor scrapes title, authors and abstract from ACM Digital Library pages
type ACMExtractor struct {
	fetcher *Fetcher
}

// NewACMExtractor creates an ACM extractor
func NewACMExtractor(fetcher *Fetcher) *ACMExtractor {
	return &ACMExtractor{fetcher: fetcher}
}

func (e *ACMExtractor) Name() string                  { return "acm" }
func (e *ACMExtractor) SourceType() models.SourceType { return models.SourceACM }

func (e *ACMExtractor) CanHandle(src *librarySvc.Source) bool {
	return !src.IsFile() && src.URL != "" && ClassifyURL(src.URL).SourceType == models.SourceACM
}

func (e *ACMExtractor) Extract(ctx context.Context, src *librarySvc.Source) (*librarySvc.ExtractionResult, error) {
	header := http.Header{}
	header.Set("User-Agent", BrowserUserAgent)
	header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.fetcher.Get(ctx, ratelimit.Web, src.URL, header)
	if err != nil {
		return nil, fmt.Errorf("acm: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("acm: parse html: %w", err)
	}

	title := firstText(doc, "h1.citation__title", "h1[property=name]")
	if title == "" {
		title = metaContent(doc, "dc.Title")
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = "Untitled ACM Paper"
	}

	var authors []string
	authorSel := doc.Find("span.loa__author-name")
	if authorSel.Length() == 0 {
		authorSel = doc.Find("a.author-name")
	}
	authorSel.Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	abstract := firstText(doc, "div.abstractSection", "div[property=description]", "section#abstract")
	if abstract == "" {
		abstract = metaContent(doc, "description")
	}
	abstract = strings.TrimSpace(strings.TrimPrefix(abstract, "Abstract"))

	var parts []string
	if abstract != "" {
		parts = append(parts, "Abstract:\n"+abstract)
	}
	doc.Find("div.section, div.article-section").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if text := CollapseWhitespace(s.Text()); text != "" {
			parts = append(parts, text)
		}
		return i < 4
	})
	if len(parts) == 0 {
		parts = append(parts, acmUnavailable)
	}

	doi := metaContent(doc, "dc.Identifier")
	if doi == "" {
		doi = strings.TrimSpace(doc.Find("a.issue-item__doi").First().Text())
	}
	if doi == "" {
		doi = ClassifyURL(src.URL).ID
	}

	metadata := map[string]any{
		"url":          src.URL,
		"authors_list": authors,
	}
	if doi != "" {
		metadata["doi"] = doi
	}

	result := &librarySvc.ExtractionResult{
		SourceType: models.SourceACM,
		Title:      SingleLine(title),
		Author:     strings.Join(authors, ", "),
		Text:       strings.Join(parts, "\n\n"),
		Metadata:   metadata,
	}

	date := metaContent(doc, "dc.Date")
	if date == "" {
		date = strings.TrimSpace(doc.Find("span.CitationCoverDate").First().Text())
	}
	result.PublishDate = ParseDate(date)

	return result, nil
}

// firstText returns the collapsed text of the first selector that matches
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if text := CollapseWhitespace(s.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// metaContent reads <meta name=... content=...> or <meta property=...>
func metaContent(doc *goquery.Document, names ...string) string {
	for _, name := range names {
		for _, attr := range []string{"name", "property", "itemprop"} {
			if v, ok := doc.Find(fmt.Sprintf(`meta[%s=%q]`, attr, name)).First().Attr("content"); ok {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
	}
	return ""
}
