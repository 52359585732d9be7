package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/service/ratelimit"
	"contentflow/internal/service/retry"
)

// BrowserUserAgent is sent to sites that refuse unknown clients
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Fetcher performs rate-limited, retried GET requests with a body size cap.
// It is shared by every HTTP-based extractor.
type Fetcher struct {
	client   *http.Client
	limits   *ratelimit.Registry
	retry    retry.Config
	maxBytes int64
}

// FetcherOption customises a Fetcher
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithRetry replaces the default retry policy
func WithRetry(cfg retry.Config) FetcherOption {
	return func(f *Fetcher) { f.retry = cfg }
}

// WithMaxBytes caps response bodies
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) { f.maxBytes = n }
}

// NewFetcher creates a fetcher with a 30s client timeout and three retries
func NewFetcher(limits *ratelimit.Registry, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		limits:   limits,
		retry:    retry.DefaultConfig(),
		maxBytes: config.MaxFetchBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.limits == nil {
		f.limits = ratelimit.NewRegistry(nil)
	}
	return f
}

// Response is a fully read HTTP response
type Response struct {
	Body        []byte
	ContentType string
	// FinalURL is the URL after redirects
	FinalURL *url.URL
}

// Get fetches rawURL under the named rate limit. Non-2xx responses come back
// as *retry.StatusError.
func (f *Fetcher) Get(ctx context.Context, limiter, rawURL string, header http.Header) (*Response, error) {
	var out *Response

	err := retry.WithBackoff(ctx, f.retry, func(ctx context.Context) error {
		if err := f.limits.Wait(ctx, limiter); err != nil {
			return retry.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("build request: %w", err))
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", BrowserUserAgent)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			return &retry.StatusError{StatusCode: resp.StatusCode, URL: rawURL}
		}

		if resp.ContentLength > f.maxBytes {
			return retry.Permanent(fmt.Errorf("response of %d bytes exceeds limit of %d", resp.ContentLength, f.maxBytes))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if int64(len(body)) > f.maxBytes {
			return retry.Permanent(fmt.Errorf("response exceeds limit of %d bytes", f.maxBytes))
		}

		out = &Response{
			Body:        body,
			ContentType: resp.Header.Get("Content-Type"),
			FinalURL:    resp.Request.URL,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
