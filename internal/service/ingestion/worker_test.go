package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/service/retry"
)

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]models.Job
	// history records every status a job was saved with
	history map[string][]models.JobStatus
	// getErrs are returned by successive Get calls before the real lookup
	getErrs  []error
	getCalls int
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]models.Job{}, history: map[string][]models.JobStatus{}}
}

func (f *fakeJobs) Create(_ context.Context, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = *job
	f.history[job.ID] = append(f.history[job.ID], job.Status)
	return nil
}

func (f *fakeJobs) Get(_ context.Context, id string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		return nil, err
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "job not found"}
	}
	return &job, nil
}

func (f *fakeJobs) Update(_ context.Context, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = *job
	f.history[job.ID] = append(f.history[job.ID], job.Status)
	return nil
}

type fakeQueue struct {
	ids        chan string
	enqueueErr error
}

func newFakeQueue() *fakeQueue { return &fakeQueue{ids: make(chan string, 16)} }

func (q *fakeQueue) Enqueue(_ context.Context, id string) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.ids <- id
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case id := <-q.ids:
		return id, nil
	case <-time.After(timeout):
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *fakeQueue) Ping(context.Context) error { return nil }

type stubPipeline struct {
	result *librarySvc.IngestResult
	err    error
	panics bool
	got    *librarySvc.Submission
}

func (s *stubPipeline) Ingest(_ context.Context, sub *librarySvc.Submission) (*librarySvc.IngestResult, error) {
	s.got = sub
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func (s *stubPipeline) Resummarize(context.Context, string) (*models.Content, error) { return nil, nil }
func (s *stubPipeline) ProposeThemes(context.Context) ([]models.Theme, error)        { return nil, nil }

func TestQueuedIngestor_Submit(t *testing.T) {
	dir := t.TempDir()
	files, _ := NewFileStore(dir)
	jobs, queue := newFakeJobs(), newFakeQueue()
	q := NewQueuedIngestor(jobs, queue, files, 1<<20, testLogger())
	ctx := context.Background()

	res, err := q.Submit(ctx, &librarySvc.Submission{URL: "arxiv.org/abs/1706.03762/"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Job == nil || res.Job.Status != models.JobPending || res.Job.Source != "https://arxiv.org/abs/1706.03762" {
		t.Errorf("job = %+v", res.Job)
	}
	if id := <-queue.ids; id != res.Job.ID {
		t.Errorf("enqueued %q, want %q", id, res.Job.ID)
	}

	res, err = q.Submit(ctx, &librarySvc.Submission{Upload: &librarySvc.Upload{Filename: "p.pdf", Data: pdfBytes}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Job.StoredPath != filepath.Join(dir, FileHash(pdfBytes)+".pdf") {
		t.Errorf("StoredPath = %q", res.Job.StoredPath)
	}
	if _, err := os.Stat(res.Job.StoredPath); err != nil {
		t.Errorf("upload not staged: %v", err)
	}

	if _, err := q.Submit(ctx, &librarySvc.Submission{Upload: &librarySvc.Upload{Filename: "p.docx", Data: []byte("x")}}); !errors.Is(err, domain.ErrUnsupportedSource) {
		t.Errorf("non-pdf err = %v", err)
	}
}

func TestQueuedIngestor_EnqueueFailureMarksJobFailed(t *testing.T) {
	files, _ := NewFileStore(t.TempDir())
	jobs, queue := newFakeJobs(), newFakeQueue()
	queue.enqueueErr = errors.New("redis down")
	q := NewQueuedIngestor(jobs, queue, files, 0, testLogger())

	if _, err := q.Submit(context.Background(), &librarySvc.Submission{URL: "https://example.com"}); err == nil {
		t.Fatal("expected error")
	}
	for _, job := range jobs.jobs {
		if job.Status != models.JobFailed {
			t.Errorf("status = %q, want failed", job.Status)
		}
	}
}

func TestWorker_Process(t *testing.T) {
	contentID := "c0ffee00-0000-0000-0000-000000000000"
	reason := "summary generation failed"

	tests := []struct {
		name       string
		pipeline   *stubPipeline
		wantStatus models.JobStatus
		wantError  string
	}{
		{
			name:       "completed",
			pipeline:   &stubPipeline{result: &librarySvc.IngestResult{Content: &models.Content{ID: contentID}}},
			wantStatus: models.JobCompleted,
		},
		{
			name: "partial",
			pipeline: &stubPipeline{result: &librarySvc.IngestResult{
				Content:       &models.Content{ID: contentID, SummaryError: &reason},
				SummaryFailed: true,
			}},
			wantStatus: models.JobPartial,
			wantError:  reason,
		},
		{
			name:       "domain error message kept",
			pipeline:   &stubPipeline{err: &domain.ExtractionFailedError{Message: "could not extract content from web source", Cause: errors.New("dial tcp")}},
			wantStatus: models.JobFailed,
			wantError:  "could not extract content from web source",
		},
		{
			name:       "other errors hidden",
			pipeline:   &stubPipeline{err: errors.New("pq: connection refused")},
			wantStatus: models.JobFailed,
			wantError:  "internal error",
		},
		{
			name:       "panic recovered",
			pipeline:   &stubPipeline{panics: true},
			wantStatus: models.JobFailed,
			wantError:  "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := newFakeJobs()
			_ = jobs.Create(context.Background(), &models.Job{ID: "job-1", Kind: models.JobKindURL, Status: models.JobPending, Source: "https://example.com"})

			w := NewWorker(jobs, newFakeQueue(), tt.pipeline, nil, nil, 1, testLogger())
			w.Process(context.Background(), "job-1")

			job, _ := jobs.Get(context.Background(), "job-1")
			if job.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", job.Status, tt.wantStatus)
			}
			if tt.wantError != "" && (job.Error == nil || *job.Error != tt.wantError) {
				t.Errorf("error = %v, want %q", job.Error, tt.wantError)
			}
			if tt.wantStatus != models.JobFailed && (job.ContentID == nil || *job.ContentID != contentID) {
				t.Errorf("content_id = %v", job.ContentID)
			}
			if h := jobs.history["job-1"]; len(h) != 3 || h[1] != models.JobProcessing {
				t.Errorf("status history = %v, want pending, processing, terminal", h)
			}
			if tt.pipeline.got == nil || tt.pipeline.got.URL != "https://example.com" {
				t.Errorf("submission = %+v", tt.pipeline.got)
			}
		})
	}
}

func TestWorker_ReadsStagedUpload(t *testing.T) {
	files, _ := NewFileStore(t.TempDir())
	path, err := files.Save(FileHash(pdfBytes), pdfBytes)
	if err != nil {
		t.Fatal(err)
	}
	jobs := newFakeJobs()
	_ = jobs.Create(context.Background(), &models.Job{ID: "job-2", Kind: models.JobKindUpload, Status: models.JobPending, Source: "p.pdf", StoredPath: path, ContentType: "application/pdf"})
	stub := &stubPipeline{result: &librarySvc.IngestResult{Content: &models.Content{ID: "c"}}}

	NewWorker(jobs, newFakeQueue(), stub, newFakeContents(), files, 1, testLogger()).Process(context.Background(), "job-2")

	if stub.got.Upload == nil || string(stub.got.Upload.Data) != string(pdfBytes) || stub.got.Upload.Filename != "p.pdf" {
		t.Errorf("submission = %+v", stub.got)
	}
}

func TestWorker_FailedUploadStagedFile(t *testing.T) {
	tests := []struct {
		name     string
		owned    bool
		pipeline *stubPipeline
		wantFile bool
	}{
		{
			name:     "extraction failure removes unowned file",
			pipeline: &stubPipeline{err: &domain.ExtractionFailedError{Message: "could not extract text from pdf"}},
		},
		{
			name:     "panic removes unowned file",
			pipeline: &stubPipeline{panics: true},
		},
		{
			name:     "file owned by a stored item is kept",
			owned:    true,
			pipeline: &stubPipeline{err: &domain.ExtractionFailedError{Message: "could not extract text from pdf"}},
			wantFile: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, _ := NewFileStore(t.TempDir())
			path, err := files.Save(FileHash(pdfBytes), pdfBytes)
			if err != nil {
				t.Fatal(err)
			}
			contents := newFakeContents()
			if tt.owned {
				contents.insert(&models.Content{ContentHash: FileHash(pdfBytes), FilePath: &path, SourceType: models.SourcePDF})
			}
			jobs := newFakeJobs()
			_ = jobs.Create(context.Background(), &models.Job{ID: "job-4", Kind: models.JobKindUpload, Status: models.JobPending, Source: "p.pdf", StoredPath: path})

			NewWorker(jobs, newFakeQueue(), tt.pipeline, contents, files, 1, testLogger()).Process(context.Background(), "job-4")

			if job, _ := jobs.Get(context.Background(), "job-4"); job.Status != models.JobFailed {
				t.Errorf("status = %q, want failed", job.Status)
			}
			_, statErr := os.Stat(path)
			if exists := statErr == nil; exists != tt.wantFile {
				t.Errorf("staged file exists = %v, want %v", exists, tt.wantFile)
			}
		})
	}
}

func TestWorker_JobLookup(t *testing.T) {
	timeout := errors.New("redis: i/o timeout")
	ok := &stubPipeline{result: &librarySvc.IngestResult{Content: &models.Content{ID: "c"}}}

	t.Run("transient failure is retried", func(t *testing.T) {
		jobs, queue := newFakeJobs(), newFakeQueue()
		_ = jobs.Create(context.Background(), &models.Job{ID: "job-5", Kind: models.JobKindURL, Status: models.JobPending, Source: "https://example.com"})
		jobs.getErrs = []error{timeout}

		w := NewWorker(jobs, queue, ok, nil, nil, 1, testLogger())
		w.lookupRetry = retry.Config{MaxRetries: 2}
		w.Process(context.Background(), "job-5")

		if job, _ := jobs.Get(context.Background(), "job-5"); job.Status != models.JobCompleted {
			t.Errorf("status = %q, want completed", job.Status)
		}
		if len(queue.ids) != 0 {
			t.Errorf("queue len = %d, want 0", len(queue.ids))
		}
	})

	t.Run("persistent failure requeues the id", func(t *testing.T) {
		jobs, queue := newFakeJobs(), newFakeQueue()
		_ = jobs.Create(context.Background(), &models.Job{ID: "job-6", Kind: models.JobKindURL, Status: models.JobPending, Source: "https://example.com"})
		jobs.getErrs = []error{timeout, timeout}

		w := NewWorker(jobs, queue, ok, nil, nil, 1, testLogger())
		w.lookupRetry = retry.Config{MaxRetries: 1}
		w.Process(context.Background(), "job-6")

		if jobs.getCalls != 2 {
			t.Errorf("Get calls = %d, want 2", jobs.getCalls)
		}
		select {
		case id := <-queue.ids:
			if id != "job-6" {
				t.Errorf("requeued %q", id)
			}
		default:
			t.Fatal("job id was not requeued")
		}

		w.Process(context.Background(), "job-6")
		if job, _ := jobs.Get(context.Background(), "job-6"); job.Status != models.JobCompleted {
			t.Errorf("status after requeue = %q, want completed", job.Status)
		}
	})

	t.Run("unknown job is dropped", func(t *testing.T) {
		jobs, queue := newFakeJobs(), newFakeQueue()

		w := NewWorker(jobs, queue, ok, nil, nil, 1, testLogger())
		w.lookupRetry = retry.Config{MaxRetries: 2}
		w.Process(context.Background(), "missing")

		if jobs.getCalls != 1 || len(queue.ids) != 0 {
			t.Errorf("Get calls = %d, queue len = %d; want 1 and 0", jobs.getCalls, len(queue.ids))
		}
	})
}

func TestWorker_RunDrainsQueueUntilCancelled(t *testing.T) {
	jobs, queue := newFakeJobs(), newFakeQueue()
	_ = jobs.Create(context.Background(), &models.Job{ID: "job-3", Kind: models.JobKindURL, Status: models.JobPending, Source: "https://example.com"})
	_ = queue.Enqueue(context.Background(), "job-3")

	w := NewWorker(jobs, queue, &stubPipeline{result: &librarySvc.IngestResult{Content: &models.Content{ID: "c"}}}, nil, nil, 2, testLogger())
	w.pollTimeout = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		job, _ := jobs.Get(context.Background(), "job-3")
		if job.Status == models.JobCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job was not processed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	p1, err := s.Save("abc", []byte("one"))
	if err != nil {
		t.Fatal(err)
	}
	p2, _ := s.Save("abc", []byte("two"))
	if p1 != p2 {
		t.Errorf("paths differ: %s vs %s", p1, p2)
	}
	if data, _ := s.Read(p1); string(data) != "one" {
		t.Errorf("existing file was overwritten: %q", data)
	}

	if _, err := s.Read(filepath.Join(dir, "..", "etc", "passwd")); err == nil {
		t.Error("read outside store allowed")
	}
	if err := s.Remove(p1); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(p1); err != nil {
		t.Errorf("second remove err = %v, want nil", err)
	}
}

func TestHashes(t *testing.T) {
	if TextHash("Hello   World", "u", "t") != TextHash("hello world", "u", "t") {
		t.Error("TextHash should ignore case and spacing")
	}
	if TextHash("x", "u1", "t") == TextHash("x", "u2", "t") {
		t.Error("TextHash should depend on url")
	}
	if got := FileHash([]byte("abc")); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("FileHash = %s", got)
	}
}
