package ingestion

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	"contentflow/internal/domain/repositories"
	libraryRepo "contentflow/internal/domain/repositories/library"
	librarySvc "contentflow/internal/domain/services/library"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeContents struct {
	mu       sync.Mutex
	items    map[string]*models.Content
	order    []string
	failures map[string]string

	// beforeCreate runs inside Create; tests use it to simulate a racing insert
	beforeCreate func(c *models.Content)
}

func newFakeContents() *fakeContents {
	return &fakeContents{items: map[string]*models.Content{}, failures: map[string]string{}}
}

func (f *fakeContents) Create(_ context.Context, c *models.Content) (bool, error) {
	if f.beforeCreate != nil {
		hook := f.beforeCreate
		f.beforeCreate = nil
		hook(c)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.ContentHash == c.ContentHash {
			return false, nil
		}
		if c.SourceURL != nil && existing.SourceURL != nil && *existing.SourceURL == *c.SourceURL {
			return false, nil
		}
	}
	c.ID = uuid.NewString()
	stored := *c
	f.items[c.ID] = &stored
	f.order = append(f.order, c.ID)
	return true, nil
}

func (f *fakeContents) insert(c *models.Content) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	stored := *c
	f.items[c.ID] = &stored
	f.order = append(f.order, c.ID)
}

func (f *fakeContents) get(match func(*models.Content) bool) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		if c, ok := f.items[id]; ok && match(c) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "content not found"}
}

func (f *fakeContents) GetByID(_ context.Context, id string) (*models.Content, error) {
	return f.get(func(c *models.Content) bool { return c.ID == id })
}

func (f *fakeContents) GetBySourceURL(_ context.Context, url string) (*models.Content, error) {
	return f.get(func(c *models.Content) bool { return c.SourceURL != nil && *c.SourceURL == url })
}

func (f *fakeContents) GetByHash(_ context.Context, hash string) (*models.Content, error) {
	return f.get(func(c *models.Content) bool { return c.ContentHash == hash })
}

func (f *fakeContents) Delete(_ context.Context, id string) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "content not found"}
	}
	delete(f.items, id)
	return c.FilePath, nil
}

func (f *fakeContents) List(context.Context, *models.ContentFilter) ([]models.ContentListItem, int, error) {
	return nil, 0, nil
}

func (f *fakeContents) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items), nil
}

func (f *fakeContents) UpsertSummary(_ context.Context, id string, s *models.Summary, _ []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return &domain.NotFoundError{Message: "content not found"}
	}
	c.Summary = s
	c.SummaryStatus = models.SummaryCompleted
	c.SummaryError = nil
	return nil
}

func (f *fakeContents) MarkSummaryFailed(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return &domain.NotFoundError{Message: "content not found"}
	}
	c.SummaryStatus = models.SummaryFailed
	c.SummaryError = &reason
	f.failures[id] = reason
	return nil
}

func (f *fakeContents) ListFailedSummaries(_ context.Context, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, id := range f.order {
		if c, ok := f.items[id]; ok && c.SummaryStatus == models.SummaryFailed && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeContents) RecentSummaries(_ context.Context, limit int) ([]models.CorpusEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CorpusEntry
	for i := len(f.order) - 1; i >= 0 && len(out) < limit; i-- {
		c, ok := f.items[f.order[i]]
		if !ok || c.Summary == nil {
			continue
		}
		out = append(out, models.CorpusEntry{
			ContentID:   c.ID,
			Title:       c.DisplayTitle(),
			Overview:    c.Summary.Overview,
			KeyInsights: c.Summary.KeyInsights,
		})
	}
	return out, nil
}

type fakeThemes struct {
	mu          sync.Mutex
	themes      []models.Theme
	assignments []models.ThemeAssignment
	listErr     error
}

func (f *fakeThemes) List(context.Context) ([]models.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Theme(nil), f.themes...), nil
}

func (f *fakeThemes) GetByID(_ context.Context, id string) (*models.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.themes {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "theme not found"}
}

func (f *fakeThemes) GetByName(_ context.Context, name string) (*models.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.themes {
		if strings.EqualFold(t.Name, name) {
			return &t, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "theme not found"}
}

func (f *fakeThemes) Create(_ context.Context, theme *models.Theme) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.themes {
		if strings.EqualFold(t.Name, theme.Name) {
			return &domain.ConflictError{Message: "theme already exists", ResourceType: "theme", ResourceID: t.ID}
		}
	}
	theme.ID = uuid.NewString()
	theme.CreatedAt = time.Now()
	theme.UpdatedAt = theme.CreatedAt
	f.themes = append(f.themes, *theme)
	return nil
}

func (f *fakeThemes) Update(context.Context, string, *libraryRepo.ThemeUpdate) (*models.Theme, error) {
	return nil, nil
}

func (f *fakeThemes) Delete(context.Context, string) error { return nil }

func (f *fakeThemes) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.themes), nil
}

func (f *fakeThemes) Assign(_ context.Context, a []models.ThemeAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments = append(f.assignments, a...)
	return nil
}

func (f *fakeThemes) assignedTo(contentID string) []models.ThemeAssignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ThemeAssignment
	for _, a := range f.assignments {
		if a.ContentID == contentID {
			out = append(out, a)
		}
	}
	return out
}

type fakeTx struct{}

func (fakeTx) ExecTx(ctx context.Context, fn repositories.TxFn) error { return fn(ctx) }

type fakeExtractor struct {
	mu     sync.Mutex
	calls  int
	result func(src *librarySvc.Source) *librarySvc.ExtractionResult
	err    error
}

func (f *fakeExtractor) Extract(_ context.Context, src *librarySvc.Source) (*librarySvc.ExtractionResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result(src), nil
	}
	return &librarySvc.ExtractionResult{
		SourceType: models.SourceWeb,
		Title:      "Title for " + src.URL + src.Filename,
		Author:     "Grace Hopper",
		Text:       "Body of " + src.URL + src.Filename,
		Metadata:   map[string]any{},
	}, nil
}

type fakeSummarizer struct {
	err   error
	calls int
}

func (f *fakeSummarizer) Summarize(_ context.Context, req *librarySvc.SummaryRequest) (*models.Summary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Summary{
		Overview:    "Overview of " + req.Title,
		KeyInsights: []string{"insight"},
		GeneratedAt: time.Now(),
	}, nil
}

type fakeThemer struct {
	mu           sync.Mutex
	scores       func(existing []models.Theme) *models.ThemeMatches
	assignErr    error
	proposals    []models.ThemeProposal
	proposeErr   error
	proposeCalls int
}

func (f *fakeThemer) AssignThemes(_ context.Context, _ string, existing []models.Theme) (*models.ThemeMatches, error) {
	if f.assignErr != nil {
		return nil, f.assignErr
	}
	if f.scores == nil {
		return &models.ThemeMatches{}, nil
	}
	return f.scores(existing), nil
}

func (f *fakeThemer) ProposeThemes(context.Context, []models.CorpusEntry) ([]models.ThemeProposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proposeCalls++
	if f.proposeErr != nil {
		return nil, f.proposeErr
	}
	return f.proposals, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(string) []float32 { return []float32{1, 0} }
func (fakeEmbedder) Dimensions() int        { return 2 }

type pipelineFixture struct {
	pipeline   *Pipeline
	contents   *fakeContents
	themes     *fakeThemes
	extractor  *fakeExtractor
	summarizer *fakeSummarizer
	themer     *fakeThemer
	files      *FileStore
}

func newFixture(dir string, opts Options) *pipelineFixture {
	f := &pipelineFixture{
		contents:   newFakeContents(),
		themes:     &fakeThemes{},
		extractor:  &fakeExtractor{},
		summarizer: &fakeSummarizer{},
		themer:     &fakeThemer{},
	}
	files, err := NewFileStore(dir)
	if err != nil {
		panic(err)
	}
	f.files = files
	f.pipeline = NewPipeline(f.extractor, f.summarizer, f.themer, fakeEmbedder{},
		f.contents, f.themes, fakeTx{}, files, opts, testLogger())
	return f
}
