package themer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	models "contentflow/internal/domain/models/library"
	"contentflow/internal/service/embedding"
)

// keywordProposals is how many themes KeywordThemer proposes at most
const keywordProposals = 5

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"from": true, "are": true, "was": true, "were": true, "have": true, "has": true,
	"into": true, "about": true, "their": true, "which": true, "these": true, "those": true,
	"its": true, "our": true, "can": true, "not": true, "but": true, "more": true,
	"such": true, "than": true, "also": true, "how": true, "what": true, "when": true,
	"overview": true, "insights": true, "implications": true, "key": true, "content": true,
	"paper": true, "article": true, "summary": true, "based": true, "using": true,
}

// KeywordThemer scores themes by word overlap. It needs no model and gives
// the same answer for the same input, which suits offline development.
type KeywordThemer struct{}

// NewKeywordThemer creates a keyword-overlap themer
func NewKeywordThemer() *KeywordThemer {
	return &KeywordThemer{}
}

// AssignThemes weighs name overlap at 0.7 and description overlap at 0.3
func (k *KeywordThemer) AssignThemes(_ context.Context, text string, existing []models.Theme) (*models.ThemeMatches, error) {
	words := wordSet(text)
	result := &models.ThemeMatches{}

	for _, theme := range existing {
		score := 0.7 * overlap(wordSet(theme.Name), words)
		if theme.Description != nil {
			score += 0.3 * overlap(wordSet(*theme.Description), words)
		}
		if score == 0 {
			continue
		}
		result.Scores = append(result.Scores, models.ThemeScore{
			ThemeID:    theme.ID,
			Confidence: Clamp(score),
			Reasoning:  "keyword overlap",
		})
	}

	return result, nil
}

// ProposeThemes turns the most frequent content words into themes
func (k *KeywordThemer) ProposeThemes(_ context.Context, corpus []models.CorpusEntry) ([]models.ThemeProposal, error) {
	counts := make(map[string]int)
	for _, entry := range corpus {
		text := entry.Title + " " + entry.Overview + " " + strings.Join(entry.KeyInsights, " ")
		for w := range wordSet(text) {
			if len([]rune(w)) >= 4 {
				counts[w]++
			}
		}
	}
	if len(counts) == 0 {
		return nil, ErrNoProposals
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	var out []models.ThemeProposal
	for _, w := range words {
		if len(out) >= keywordProposals || (len(out) > 0 && counts[w] < 2) {
			break
		}
		out = append(out, models.ThemeProposal{
			Name:        titleCase(w),
			Description: fmt.Sprintf("Content that discusses %s", w),
		})
	}
	return out, nil
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range embedding.Tokenize(text) {
		if !stopwords[tok] {
			set[tok] = true
		}
	}
	return set
}

// overlap is the share of want found in have
func overlap(want, have map[string]bool) float64 {
	if len(want) == 0 {
		return 0
	}
	hits := 0
	for w := range want {
		if have[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}

func titleCase(word string) string {
	r := []rune(word)
	if len(r) == 0 {
		return word
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
