package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	"contentflow/internal/domain/repositories"
	libraryRepo "contentflow/internal/domain/repositories/library"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/service/extractor"
	"contentflow/internal/service/themer"
)

// SourceExtractor is satisfied by *extractor.Registry
type SourceExtractor interface {
	Extract(ctx context.Context, src *librarySvc.Source) (*librarySvc.ExtractionResult, error)
}

// Options tunes theming behaviour
type Options struct {
	MinConfidence      float64
	BootstrapThreshold int
	BootstrapSample    int
	AllowNewThemes     bool
	MaxFileSize        int64
}

// OptionsFromConfig reads pipeline options from the service config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MinConfidence:      cfg.ThemeMinConfidence,
		BootstrapThreshold: cfg.ThemeBootstrapThreshold,
		BootstrapSample:    config.BootstrapSampleSize,
		AllowNewThemes:     cfg.ThemerAllowNewThemes,
		MaxFileSize:        cfg.MaxFileSize,
	}
}

// newThemeConfidence is recorded for a theme created from a model suggestion
const newThemeConfidence = 0.9

// Pipeline implements librarySvc.IngestionService
type Pipeline struct {
	extractor  SourceExtractor
	summarizer librarySvc.Summarizer
	themer     librarySvc.Themer
	embedder   librarySvc.Embedder
	contents   libraryRepo.ContentRepository
	themes     libraryRepo.ThemeRepository
	txManager  repositories.TransactionManager
	files      *FileStore
	opts       Options
	logger     *slog.Logger

	// bootstrapMu guards bootstrapped; the automatic proposal is attempted
	// at most once per process, whatever its outcome
	bootstrapMu  sync.Mutex
	bootstrapped bool
}

// NewPipeline wires the ingestion pipeline
func NewPipeline(
	extractor SourceExtractor,
	summarizer librarySvc.Summarizer,
	themer librarySvc.Themer,
	embedder librarySvc.Embedder,
	contents libraryRepo.ContentRepository,
	themes libraryRepo.ThemeRepository,
	txManager repositories.TransactionManager,
	files *FileStore,
	opts Options,
	logger *slog.Logger,
) *Pipeline {
	if opts.BootstrapSample <= 0 {
		opts.BootstrapSample = config.BootstrapSampleSize
	}
	return &Pipeline{
		extractor:  extractor,
		summarizer: summarizer,
		themer:     themer,
		embedder:   embedder,
		contents:   contents,
		themes:     themes,
		txManager:  txManager,
		files:      files,
		opts:       opts,
		logger:     logger,
	}
}

// Ingest runs extract, summarize, persist and theme for one submission
func (p *Pipeline) Ingest(ctx context.Context, sub *librarySvc.Submission) (*librarySvc.IngestResult, error) {
	if err := ValidateSubmission(sub, p.opts.MaxFileSize); err != nil {
		return nil, err
	}

	src, existing, err := p.prepare(ctx, sub)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		p.logger.Info("duplicate submission", "content_id", existing.ID, "url", src.URL)
		return &librarySvc.IngestResult{Content: existing, Duplicate: true}, nil
	}

	extracted, err := p.extractor.Extract(ctx, src)
	if err != nil {
		return nil, err
	}

	item := p.newContent(src, extracted)
	if src.IsFile() {
		path, err := p.files.Save(item.ContentHash, src.Data)
		if err != nil {
			return nil, fmt.Errorf("save upload: %w", err)
		}
		item.FilePath = &path
	}

	summary, sumErr := p.summarizer.Summarize(ctx, &librarySvc.SummaryRequest{
		Text:       extracted.Text,
		Title:      extracted.Title,
		Author:     extracted.Author,
		SourceType: item.SourceType,
	})
	if sumErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("summarization failed, storing without summary",
			"source_type", item.SourceType,
			"url", src.URL,
			"error", sumErr,
		)
		reason := summaryFailureReason(sumErr)
		item.SummaryStatus = models.SummaryFailed
		item.SummaryError = &reason
		summary = nil
	}

	created, err := p.persist(ctx, item, summary)
	if err != nil {
		return nil, err
	}
	if !created {
		winner, err := p.findExisting(ctx, item)
		if err != nil {
			return nil, err
		}
		p.logger.Info("lost duplicate race", "content_id", winner.ID, "source_type", item.SourceType)
		return &librarySvc.IngestResult{Content: winner, Duplicate: true}, nil
	}

	p.logger.Info("content ingested",
		"content_id", item.ID,
		"source_type", item.SourceType,
		"url", src.URL,
		"summary_status", item.SummaryStatus,
	)

	if summary != nil {
		p.applyThemes(ctx, item.ID, themingText(item, summary), p.opts.AllowNewThemes)
		p.maybeBootstrap(ctx)
	}

	stored, err := p.contents.GetByID(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return &librarySvc.IngestResult{Content: stored, SummaryFailed: summary == nil}, nil
}

// prepare builds the extractor source and returns an already stored item
// for the same URL or file, if any
func (p *Pipeline) prepare(ctx context.Context, sub *librarySvc.Submission) (*librarySvc.Source, *models.Content, error) {
	if sub.Upload != nil {
		src := &librarySvc.Source{
			Filename:    sub.Upload.Filename,
			ContentType: sub.Upload.ContentType,
			Data:        sub.Upload.Data,
		}
		existing, err := p.lookup(ctx, p.contents.GetByHash, FileHash(src.Data))
		return src, existing, err
	}

	normalized, err := extractor.NormalizeURL(sub.URL)
	if err != nil {
		return nil, nil, err
	}
	src := &librarySvc.Source{URL: normalized}
	existing, err := p.lookup(ctx, p.contents.GetBySourceURL, normalized)
	return src, existing, err
}

func (p *Pipeline) lookup(ctx context.Context, get func(context.Context, string) (*models.Content, error), key string) (*models.Content, error) {
	c, err := get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Pipeline) newContent(src *librarySvc.Source, r *librarySvc.ExtractionResult) *models.Content {
	now := time.Now()
	item := &models.Content{
		Title:              optional(r.Title),
		Author:             optional(r.Author),
		SourceType:         r.SourceType,
		PublishDate:        r.PublishDate,
		ExtractionMetadata: r.Metadata,
		SummaryStatus:      models.SummaryCompleted,
		RawContent:         r.Text,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if src.IsFile() {
		item.ContentHash = FileHash(src.Data)
		if item.ExtractionMetadata == nil {
			item.ExtractionMetadata = map[string]any{}
		}
		item.ExtractionMetadata["original_filename"] = src.Filename
	} else {
		item.SourceURL = &src.URL
		item.ContentHash = TextHash(r.Text, src.URL, r.Title)
	}
	return item
}

// persist writes the item and, when present, its summary in one transaction
func (p *Pipeline) persist(ctx context.Context, item *models.Content, summary *models.Summary) (bool, error) {
	var created bool
	err := p.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = p.contents.Create(ctx, item)
		if err != nil || !created {
			return err
		}
		if summary == nil {
			return nil
		}
		return p.contents.UpsertSummary(ctx, item.ID, summary, p.embed(item, summary))
	})
	if err != nil {
		return false, fmt.Errorf("persist content: %w", err)
	}
	return created, nil
}

func (p *Pipeline) findExisting(ctx context.Context, item *models.Content) (*models.Content, error) {
	if item.SourceURL != nil {
		if c, err := p.lookup(ctx, p.contents.GetBySourceURL, *item.SourceURL); err != nil || c != nil {
			return c, err
		}
	}
	return p.contents.GetByHash(ctx, item.ContentHash)
}

func (p *Pipeline) embed(item *models.Content, summary *models.Summary) []float32 {
	if p.embedder == nil {
		return nil
	}
	parts := []string{item.DisplayTitle()}
	if item.Author != nil {
		parts = append(parts, *item.Author)
	}
	parts = append(parts, summary.Overview)
	return p.embedder.Embed(strings.Join(parts, "\n"))
}

// Resummarize re-runs summarization on the stored raw text
func (p *Pipeline) Resummarize(ctx context.Context, contentID string) (*models.Content, error) {
	item, err := p.contents.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}

	summary, err := p.summarizer.Summarize(ctx, &librarySvc.SummaryRequest{
		Text:       item.RawContent,
		Title:      deref(item.Title),
		Author:     deref(item.Author),
		SourceType: item.SourceType,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if markErr := p.contents.MarkSummaryFailed(ctx, contentID, summaryFailureReason(err)); markErr != nil {
			p.logger.Error("failed to record summary failure", "content_id", contentID, "error", markErr)
		}
		var sumErr *domain.SummarizationFailedError
		if errors.As(err, &sumErr) {
			return nil, err
		}
		return nil, &domain.SummarizationFailedError{Message: "summary generation failed", Cause: err}
	}

	if err := p.contents.UpsertSummary(ctx, contentID, summary, p.embed(item, summary)); err != nil {
		return nil, err
	}
	p.logger.Info("content re-summarized", "content_id", contentID)

	p.applyThemes(ctx, contentID, themingText(item, summary), p.opts.AllowNewThemes)

	return p.contents.GetByID(ctx, contentID)
}

// ResummarizeFailed retries up to limit items whose summary failed and
// reports how many now have one
func (p *Pipeline) ResummarizeFailed(ctx context.Context, limit int) (int, error) {
	ids, err := p.contents.ListFailedSummaries(ctx, limit)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return fixed, ctx.Err()
		}
		if _, err := p.Resummarize(ctx, id); err != nil {
			p.logger.Warn("re-summarization failed", "content_id", id, "error", err)
			continue
		}
		fixed++
	}
	return fixed, nil
}

func summaryFailureReason(err error) string {
	var sumErr *domain.SummarizationFailedError
	if errors.As(err, &sumErr) && sumErr.Message != "" {
		return sumErr.Message
	}
	return "summary generation failed"
}

func themingText(item *models.Content, summary *models.Summary) string {
	return "Title: " + item.DisplayTitle() + "\n" + themer.SummaryText(summary)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
