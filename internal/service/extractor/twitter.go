package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/service/ratelimit"
)

// DefaultTwitterAPIURL is the X API v2 base
const DefaultTwitterAPIURL = "https://api.twitter.com"

// ErrMissingTwitterToken is returned when no bearer token is configured
var ErrMissingTwitterToken = errors.New("TWITTER_BEARER_TOKEN is not configured")

type twitterTweet struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	AuthorID       string         `json:"author_id"`
	ConversationID string         `json:"conversation_id"`
	CreatedAt      string         `json:"created_at"`
	PublicMetrics  map[string]int `json:"public_metrics,omitempty"`
}

type twitterUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Verified bool   `json:"verified"`
}

type tweetLookupResponse struct {
	Data     *twitterTweet `json:"data"`
	Includes struct {
		Users []twitterUser `json:"users"`
	} `json:"includes"`
	Errors []struct {
		Detail string `json:"detail"`
	} `json:"errors"`
}

type tweetSearchResponse struct {
	Data []twitterTweet `json:"data"`
}

// TwitterExtractor reads a tweet and the author's own replies in its thread
type TwitterExtractor struct {
	fetcher *Fetcher
	token   string
	apiURL  string
}

// NewTwitterExtractor creates a Twitter extractor; an empty apiURL uses the public API
func NewTwitterExtractor(fetcher *Fetcher, bearerToken, apiURL string) *TwitterExtractor {
	if apiURL == "" {
		apiURL = DefaultTwitterAPIURL
	}
	return &TwitterExtractor{fetcher: fetcher, token: bearerToken, apiURL: strings.TrimRight(apiURL, "/")}
}

func (e *TwitterExtractor) Name() string                  { return "twitter" }
func (e *TwitterExtractor) SourceType() models.SourceType { return models.SourceTwitter }

func (e *TwitterExtractor) CanHandle(src *librarySvc.Source) bool {
	return !src.IsFile() && src.URL != "" && ClassifyURL(src.URL).SourceType == models.SourceTwitter
}

func (e *TwitterExtractor) Extract(ctx context.Context, src *librarySvc.Source) (*librarySvc.ExtractionResult, error) {
	if e.token == "" {
		return nil, ErrMissingTwitterToken
	}
	tweetID := ClassifyURL(src.URL).ID
	if tweetID == "" {
		return nil, &domain.ValidationError{Message: "could not read a tweet id from the url"}
	}

	query := url.Values{}
	query.Set("expansions", "author_id")
	query.Set("tweet.fields", "created_at,author_id,conversation_id,public_metrics,entities")
	query.Set("user.fields", "name,username,verified")

	var lookup tweetLookupResponse
	if err := e.getJSON(ctx, fmt.Sprintf("%s/2/tweets/%s?%s", e.apiURL, tweetID, query.Encode()), &lookup); err != nil {
		return nil, err
	}
	if lookup.Data == nil {
		detail := "tweet not found"
		if len(lookup.Errors) > 0 {
			detail = lookup.Errors[0].Detail
		}
		return nil, fmt.Errorf("twitter: %s", detail)
	}
	tweet := lookup.Data

	var author *twitterUser
	for i := range lookup.Includes.Users {
		if lookup.Includes.Users[i].ID == tweet.AuthorID {
			author = &lookup.Includes.Users[i]
			break
		}
	}

	parts := []string{tweet.Text}
	threadComplete := true
	if tweet.ConversationID != "" {
		thread, err := e.thread(ctx, tweet)
		if err != nil {
			threadComplete = false
		}
		for _, t := range thread {
			parts = append(parts, "---\n"+t.Text)
		}
	}

	title := "Twitter Thread"
	var authorStr string
	metadata := map[string]any{
		"url":             src.URL,
		"tweet_id":        tweetID,
		"conversation_id": tweet.ConversationID,
		"thread_complete": threadComplete,
		"thread_length":   len(parts),
	}
	if author != nil {
		title = fmt.Sprintf("Tweet by @%s", author.Username)
		authorStr = "@" + author.Username
		if author.Name != "" {
			title = fmt.Sprintf("Tweet by %s (@%s)", author.Name, author.Username)
			authorStr = fmt.Sprintf("%s (@%s)", author.Name, author.Username)
		}
		metadata["author_username"] = author.Username
		metadata["author_verified"] = author.Verified
	}
	if len(tweet.PublicMetrics) > 0 {
		metadata["public_metrics"] = tweet.PublicMetrics
	}

	result := &librarySvc.ExtractionResult{
		SourceType: models.SourceTwitter,
		Title:      title,
		Author:     authorStr,
		Text:       strings.Join(parts, "\n"),
		Metadata:   metadata,
	}
	if created, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
		created = created.UTC()
		result.PublishDate = &created
	}

	return result, nil
}

// thread returns the author's other tweets in the conversation, oldest first
func (e *TwitterExtractor) thread(ctx context.Context, tweet *twitterTweet) ([]twitterTweet, error) {
	query := url.Values{}
	query.Set("query", "conversation_id:"+tweet.ConversationID)
	query.Set("max_results", "100")
	query.Set("tweet.fields", "created_at,author_id")

	var search tweetSearchResponse
	if err := e.getJSON(ctx, fmt.Sprintf("%s/2/tweets/search/recent?%s", e.apiURL, query.Encode()), &search); err != nil {
		return nil, err
	}

	var out []twitterTweet
	for _, t := range search.Data {
		if t.AuthorID == tweet.AuthorID && t.ID != tweet.ID {
			out = append(out, t)
		}
	}
	// RFC 3339 UTC timestamps sort lexically
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (e *TwitterExtractor) getJSON(ctx context.Context, rawURL string, dst any) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+e.token)
	header.Set("User-Agent", "contentflow/1.0")

	resp, err := e.fetcher.Get(ctx, ratelimit.Twitter, rawURL, header)
	if err != nil {
		return fmt.Errorf("twitter: %w", err)
	}
	if err := json.Unmarshal(resp.Body, dst); err != nil {
		return fmt.Errorf("twitter: decode response: %w", err)
	}
	return nil
}
