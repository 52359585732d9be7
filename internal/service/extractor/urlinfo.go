package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
)

var (
	tweetIDPattern = regexp.MustCompile(`/status/(\d+)`)
	arxivIDPattern = regexp.MustCompile(`(?i)arxiv\.org/(abs|pdf)/([a-z\-]+/\d+|\d+\.\d+)`)
	acmDOIPattern  = regexp.MustCompile(`doi/(?:abs/|pdf/|full/)?([\d.]+/[\d.]+)`)
)

// NormalizeURL adds https:// when no scheme is given, drops the fragment and
// strips a trailing slash from the path. Schemes other than http and https
// are rejected.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &domain.ValidationError{Message: "url is required"}
	}

	if !strings.Contains(raw, "://") {
		// "mailto:x@y" and "javascript:..." have a scheme but no authority
		if i := strings.Index(raw, ":"); i > 0 && !strings.ContainsAny(raw[:i], "./") && !looksLikePort(raw[i+1:]) {
			return "", &domain.UnsupportedSourceError{Message: fmt.Sprintf("unsupported url scheme %q", strings.ToLower(raw[:i]))}
		}
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", &domain.ValidationError{Message: "url is not valid"}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &domain.UnsupportedSourceError{Message: fmt.Sprintf("unsupported url scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return "", &domain.ValidationError{Message: "url has no host"}
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")

	return u.String(), nil
}

func looksLikePort(rest string) bool {
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	if end == 0 {
		return false
	}
	for _, r := range rest[:end] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// URLInfo is the classification of a normalized URL
type URLInfo struct {
	SourceType models.SourceType
	// ID is the tweet id, arXiv id or ACM DOI when one can be read from the URL
	ID string
}

// ClassifyURL decides which source a normalized URL belongs to. The checks
// run in order twitter, arxiv, acm; everything else is web.
func ClassifyURL(normalized string) URLInfo {
	u, err := url.Parse(normalized)
	if err != nil {
		return URLInfo{SourceType: models.SourceWeb}
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case isTwitterHost(host):
		info := URLInfo{SourceType: models.SourceTwitter}
		if m := tweetIDPattern.FindStringSubmatch(u.Path); m != nil {
			info.ID = m[1]
		}
		return info

	case strings.Contains(host, "arxiv.org"):
		info := URLInfo{SourceType: models.SourceArxiv}
		if m := arxivIDPattern.FindStringSubmatch(normalized); m != nil {
			info.ID = m[2]
		}
		return info

	case strings.Contains(host, "acm.org"):
		info := URLInfo{SourceType: models.SourceACM}
		if m := acmDOIPattern.FindStringSubmatch(u.Path); m != nil {
			info.ID = m[1]
		}
		return info
	}

	return URLInfo{SourceType: models.SourceWeb}
}

func isTwitterHost(host string) bool {
	return host == "twitter.com" || strings.HasSuffix(host, ".twitter.com") ||
		host == "x.com" || strings.HasSuffix(host, ".x.com")
}
