package library

import (
	"context"

	models "contentflow/internal/domain/models/library"
)

// SummaryRequest is the input to a summarizer.
type SummaryRequest struct {
	Text       string
	Title      string
	Author     string
	SourceType models.SourceType
}

// Summarizer turns extracted text into a structured summary.
type Summarizer interface {
	Summarize(ctx context.Context, req *SummaryRequest) (*models.Summary, error)
}

// Themer scores content against existing themes and proposes new ones.
type Themer interface {
	// AssignThemes returns raw scores in [0,1] for the given themes. The caller
	// applies the confidence threshold, so low scores are still returned.
	AssignThemes(ctx context.Context, text string, existing []models.Theme) (*models.ThemeMatches, error)

	// ProposeThemes derives an initial theme set from a sample of the corpus.
	ProposeThemes(ctx context.Context, corpus []models.CorpusEntry) ([]models.ThemeProposal, error)
}

// Embedder maps text to a fixed-size vector for similarity ranking.
type Embedder interface {
	Embed(text string) []float32
	Dimensions() int
}
