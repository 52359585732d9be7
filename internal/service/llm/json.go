package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a model answer holds no JSON object
var ErrNoJSON = errors.New("no JSON object in model response")

// ExtractJSON pulls the JSON payload out of a model answer. It handles
// ```json fences, bare ``` fences and prose around a single object.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if start := strings.Index(text, "```"); start >= 0 {
		body := text[start+3:]
		// Drop the info string ("json", "JSON", ...) up to the first newline
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
			body = body[nl+1:]
		} else {
			body = strings.TrimPrefix(strings.TrimPrefix(body, "json"), "JSON")
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return text
	}

	// Prose before or after the object
	first := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if first >= 0 && last > first {
		return text[first : last+1]
	}
	return text
}

// DecodeJSON extracts and unmarshals a model answer into dst
func DecodeJSON(text string, dst any) error {
	payload := ExtractJSON(text)
	if payload == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return fmt.Errorf("parse model JSON: %w", err)
	}
	return nil
}

// Truncate cuts text to at most budget runes, marking the cut
func Truncate(text string, budget int) (string, bool) {
	if budget <= 0 {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= budget {
		return text, false
	}
	return string(runes[:budget]) + "\n\n[Content truncated]", true
}
