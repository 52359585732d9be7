package embedding

import (
	"math"
	"reflect"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestEmbedIsDeterministicAndNormalized(t *testing.T) {
	e := NewHashingEmbedder(256)

	a := e.Embed("Graph neural networks for molecule property prediction")
	b := e.Embed("Graph neural networks for molecule property prediction")

	if len(a) != 256 {
		t.Fatalf("len = %d, want 256", len(a))
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same text produced different vectors")
	}
	if n := cosine(a, a); math.Abs(n-1) > 1e-5 {
		t.Errorf("squared norm = %f, want 1", n)
	}
}

func TestEmbedSimilarityOrdering(t *testing.T) {
	e := NewHashingEmbedder(256)

	query := e.Embed("transformer language models")
	near := e.Embed("Scaling transformer language models to trillions of tokens")
	far := e.Embed("Sourdough bread baking at high altitude")

	if cosine(query, near) <= cosine(query, far) {
		t.Errorf("related text should score higher: near=%f far=%f", cosine(query, near), cosine(query, far))
	}
}

func TestEmbedEmpty(t *testing.T) {
	e := NewHashingEmbedder(0)
	if e.Dimensions() != 256 {
		t.Errorf("default dims = %d", e.Dimensions())
	}
	if v := e.Embed("  ... !"); v != nil {
		t.Errorf("expected nil vector for text without words, got %d dims", len(v))
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Hello, World! a GPT-4 café")
	want := []string{"hello", "world", "gpt", "café"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}
