package embedding

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashingEmbedder maps text to a fixed-width vector with the hashing trick
// over word unigrams and bigrams. Equal text always yields equal vectors.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates an embedder producing dims-wide vectors
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashingEmbedder{dims: dims}
}

// Dimensions returns the vector width
func (e *HashingEmbedder) Dimensions() int {
	return e.dims
}

// Embed returns an L2-normalized vector, or nil when text has no words
func (e *HashingEmbedder) Embed(text string) []float32 {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	vec := make([]float64, e.dims)
	add := func(feature string, weight float64) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dims))
		if sum&(1<<63) != 0 {
			weight = -weight
		}
		vec[idx] += weight
	}

	for i, tok := range tokens {
		add(tok, 1)
		if i > 0 {
			add(tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dims)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// Tokenize lowercases text and splits it into letter/digit runs of two or
// more characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}
