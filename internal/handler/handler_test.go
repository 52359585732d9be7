package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"contentflow/internal/domain"
	models "contentflow/internal/domain/models/library"
	librarySvc "contentflow/internal/domain/services/library"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeIngestor struct {
	result *librarySvc.SubmitResult
	err    error
	calls  []*librarySvc.Submission
}

func (f *fakeIngestor) Submit(_ context.Context, sub *librarySvc.Submission) (*librarySvc.SubmitResult, error) {
	f.calls = append(f.calls, sub)
	return f.result, f.err
}

type fakeContents struct {
	librarySvc.ContentService
	items map[string]*models.Content
}

func (f *fakeContents) GetContent(_ context.Context, id string) (*models.Content, error) {
	if item, ok := f.items[id]; ok {
		return item, nil
	}
	return nil, &domain.NotFoundError{Message: "content not found"}
}

type fakeThemeService struct {
	librarySvc.ThemeService
	mu     sync.Mutex
	themes []models.Theme
}

func (f *fakeThemeService) ListThemes(context.Context) ([]models.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Theme{}, f.themes...), nil
}

func (f *fakeThemeService) CreateTheme(_ context.Context, req *librarySvc.CreateThemeRequest) (*models.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(req.Name) == "" {
		return nil, &domain.ValidationError{Message: "name: cannot be blank."}
	}
	for _, t := range f.themes {
		if strings.EqualFold(t.Name, req.Name) {
			return nil, &domain.ConflictError{Message: "theme '" + req.Name + "' already exists", ResourceType: "theme", ResourceID: t.ID}
		}
	}
	theme := models.Theme{ID: uuid.NewString(), Name: req.Name, Description: req.Description}
	f.themes = append(f.themes, theme)
	return &theme, nil
}

func (f *fakeThemeService) UpdateTheme(_ context.Context, id string, req *librarySvc.UpdateThemeRequest) (*models.Theme, error) {
	for i := range f.themes {
		if f.themes[i].ID == id {
			f.themes[i].Description = req.Description
			return &f.themes[i], nil
		}
	}
	return nil, &domain.NotFoundError{Message: "theme not found"}
}

type fakeJobs struct {
	jobs map[string]*models.Job
}

func (f *fakeJobs) GetJob(_ context.Context, id string) (*models.Job, error) {
	if job, ok := f.jobs[id]; ok {
		return job, nil
	}
	return nil, &domain.NotFoundError{Message: "job not found"}
}

type fakeChecker struct {
	dbErr, indexErr error
}

func (f fakeChecker) PingDatabase(context.Context) error     { return f.dbErr }
func (f fakeChecker) CheckVectorIndex(context.Context) error { return f.indexErr }

type pingFunc func(context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

type testAPI struct {
	mux      *http.ServeMux
	ingestor *fakeIngestor
	contents *fakeContents
	themes   *fakeThemeService
	jobs     *fakeJobs
}

func newTestAPI(maxFileSize int64) *testAPI {
	api := &testAPI{
		mux:      http.NewServeMux(),
		ingestor: &fakeIngestor{},
		contents: &fakeContents{items: map[string]*models.Content{}},
		themes:   &fakeThemeService{},
		jobs:     &fakeJobs{jobs: map[string]*models.Job{}},
	}
	logger := testLogger()
	hs := &Handlers{
		Content: NewContentHandler(api.ingestor, api.contents, nil, maxFileSize, logger),
		Search:  NewSearchHandler(api.contents, logger),
		Themes:  NewThemeHandler(api.themes, nil, logger),
		Jobs:    NewJobHandler(api.jobs, api.contents, logger),
		Health:  NewHealthHandler(fakeChecker{}, nil, logger),
	}
	hs.Register(api.mux)
	return api
}

func (a *testAPI) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/content/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestSubmitURL_Statuses(t *testing.T) {
	item := &models.Content{ID: uuid.NewString(), SourceType: models.SourceWeb}
	jobID := uuid.NewString()

	tests := []struct {
		name          string
		result        *librarySvc.SubmitResult
		wantCode      int
		wantStatus    string
		wantRetryable bool
	}{
		{"completed", &librarySvc.SubmitResult{Result: &librarySvc.IngestResult{Content: item}}, http.StatusCreated, StatusCompleted, false},
		{"partial", &librarySvc.SubmitResult{Result: &librarySvc.IngestResult{Content: item, SummaryFailed: true}}, http.StatusCreated, StatusPartial, true},
		{"duplicate", &librarySvc.SubmitResult{Result: &librarySvc.IngestResult{Content: item, Duplicate: true}}, http.StatusOK, StatusDuplicate, false},
		{"queued", &librarySvc.SubmitResult{Job: &models.Job{ID: jobID, Status: models.JobPending}}, http.StatusAccepted, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(1 << 20)
			api.ingestor.result = tt.result

			rec := api.do(t, jsonRequest(http.MethodPost, "/api/v1/content/url", `{"url":"https://example.com/a"}`))
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body)
			}
			resp := decode[SubmitResponse](t, rec)
			if resp.Status != tt.wantStatus || resp.Retryable != tt.wantRetryable {
				t.Errorf("resp = %+v", resp)
			}
			if tt.result.Job != nil {
				if resp.JobID == nil || *resp.JobID != jobID || resp.ContentID != nil {
					t.Errorf("queued resp = %+v", resp)
				}
			} else if resp.ContentID == nil || *resp.ContentID != item.ID {
				t.Errorf("content_id = %v", resp.ContentID)
			}
			if got := api.ingestor.calls[0].URL; got != "https://example.com/a" {
				t.Errorf("submitted url = %q", got)
			}
		})
	}
}

func TestSubmitURL_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantCode   int
		wantDetail string
	}{
		{"bad json", `{"url":`, nil, http.StatusBadRequest, "invalid request body"},
		{"validation", `{"url":""}`, &domain.ValidationError{Message: "url: cannot be blank."}, http.StatusBadRequest, "url: cannot be blank."},
		{"unsupported", `{"url":"ftp://x"}`, &domain.UnsupportedSourceError{Message: "unsupported URL scheme"}, http.StatusBadRequest, "unsupported URL scheme"},
		{"extraction", `{"url":"https://x.test"}`, &domain.ExtractionFailedError{Message: "could not fetch https://x.test", Cause: errors.New("dial")}, http.StatusBadGateway, "could not fetch https://x.test"},
		{"unexpected", `{"url":"https://x.test"}`, errors.New("pool exhausted"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(1 << 20)
			api.ingestor.err = tt.err

			rec := api.do(t, jsonRequest(http.MethodPost, "/api/v1/content/url", tt.body))
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
			if body := decode[map[string]string](t, rec); body["detail"] != tt.wantDetail {
				t.Errorf("detail = %q, want %q", body["detail"], tt.wantDetail)
			}
		})
	}
}

func TestUpload(t *testing.T) {
	pdf := []byte("%PDF-1.4 tiny")

	t.Run("too large", func(t *testing.T) {
		api := newTestAPI(16)
		rec := api.do(t, uploadRequest(t, "big.pdf", "application/pdf", append(pdf, bytes.Repeat([]byte("x"), 100)...)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %d", rec.Code)
		}
		if !strings.Contains(decode[map[string]string](t, rec)["detail"], "too large") {
			t.Errorf("body = %s", rec.Body)
		}
		if len(api.ingestor.calls) != 0 {
			t.Error("oversized upload reached the ingestor")
		}
	})

	t.Run("not a pdf", func(t *testing.T) {
		api := newTestAPI(1 << 20)
		for _, req := range []*http.Request{
			uploadRequest(t, "notes.txt", "text/plain", []byte("hello")),
			uploadRequest(t, "fake.pdf", "application/pdf", []byte("<html>")),
		} {
			if rec := api.do(t, req); rec.Code != http.StatusBadRequest {
				t.Errorf("code = %d", rec.Code)
			}
		}
		if len(api.ingestor.calls) != 0 {
			t.Error("rejected upload reached the ingestor")
		}
	})

	t.Run("missing field", func(t *testing.T) {
		api := newTestAPI(1 << 20)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/content/upload", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		if rec := api.do(t, req); rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d", rec.Code)
		}
	})

	t.Run("accepted", func(t *testing.T) {
		api := newTestAPI(1 << 20)
		api.ingestor.result = &librarySvc.SubmitResult{Result: &librarySvc.IngestResult{
			Content: &models.Content{ID: uuid.NewString(), SourceType: models.SourcePDF},
		}}
		rec := api.do(t, uploadRequest(t, "paper.pdf", "application/pdf", pdf))
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d: %s", rec.Code, rec.Body)
		}
		up := api.ingestor.calls[0].Upload
		if up == nil || up.Filename != "paper.pdf" || !bytes.Equal(up.Data, pdf) {
			t.Errorf("upload = %+v", up)
		}
	})
}

func TestGetContent_NotFound(t *testing.T) {
	api := newTestAPI(1 << 20)
	rec := api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/content/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
	if decode[map[string]string](t, rec)["detail"] != "content not found" {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestResummarize_InvalidID(t *testing.T) {
	api := newTestAPI(1 << 20)
	rec := api.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/content/nope/resummarize", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestPagination_NonInteger(t *testing.T) {
	api := newTestAPI(1 << 20)
	rec := api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/content?page=two", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestThemes_CreateThenList(t *testing.T) {
	api := newTestAPI(1 << 20)

	rec := api.do(t, jsonRequest(http.MethodPost, "/api/v1/themes", `{"name":"AI Safety"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create code = %d: %s", rec.Code, rec.Body)
	}
	created := decode[models.Theme](t, rec)

	rec = api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/themes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list code = %d", rec.Code)
	}
	listed := decode[[]map[string]any](t, rec)
	if len(listed) != 1 || listed[0]["id"] != created.ID || listed[0]["content_count"] != float64(0) {
		t.Errorf("list = %v", listed)
	}

	rec = api.do(t, jsonRequest(http.MethodPost, "/api/v1/themes", `{"name":"ai safety"}`))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate code = %d", rec.Code)
	}
	if rec = api.do(t, jsonRequest(http.MethodPost, "/api/v1/themes", `{"name":" "}`)); rec.Code != http.StatusBadRequest {
		t.Errorf("blank code = %d", rec.Code)
	}
}

func TestThemes_UpdateNullDescriptionClears(t *testing.T) {
	api := newTestAPI(1 << 20)
	desc := "old"
	theme, _ := api.themes.CreateTheme(context.Background(), &librarySvc.CreateThemeRequest{Name: "AI", Description: &desc})

	rec := api.do(t, jsonRequest(http.MethodPut, "/api/v1/themes/"+theme.ID, `{"description":null}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body)
	}
	got := api.themes.themes[0].Description
	if got == nil || *got != "" {
		t.Errorf("description = %v, want cleared", got)
	}

	rec = api.do(t, jsonRequest(http.MethodPut, "/api/v1/themes/"+theme.ID, `{"color":"#112233"}`))
	if rec.Code != http.StatusOK || api.themes.themes[0].Description != nil {
		t.Errorf("absent description should pass nil, got %v", api.themes.themes[0].Description)
	}
}

func TestGetJob(t *testing.T) {
	api := newTestAPI(1 << 20)
	contentID := uuid.NewString()
	api.contents.items[contentID] = &models.Content{ID: contentID, SourceType: models.SourceArxiv}
	done := &models.Job{ID: uuid.NewString(), Kind: models.JobKindURL, Status: models.JobCompleted, ContentID: &contentID}
	pending := &models.Job{ID: uuid.NewString(), Kind: models.JobKindUpload, Status: models.JobPending}
	api.jobs.jobs[done.ID] = done
	api.jobs.jobs[pending.ID] = pending

	rec := api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+done.ID, nil))
	resp := decode[JobResponse](t, rec)
	if rec.Code != http.StatusOK || resp.Status != models.JobCompleted || resp.Result == nil || resp.Result.ID != contentID {
		t.Errorf("done job = %d %+v", rec.Code, resp)
	}

	rec = api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+pending.ID, nil))
	if raw := rec.Body.String(); strings.Contains(raw, `"result"`) || strings.Contains(raw, `"content_id"`) {
		t.Errorf("pending job body = %s", raw)
	}

	if rec = api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), nil)); rec.Code != http.StatusNotFound {
		t.Errorf("missing job code = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	down := errors.New("down")
	tests := []struct {
		name       string
		checker    fakeChecker
		queue      Pinger
		wantCode   int
		wantStatus string
		wantQueue  string
	}{
		{"all ok inline", fakeChecker{}, nil, http.StatusOK, "ok", "disabled"},
		{"queue ok", fakeChecker{}, pingFunc(func(context.Context) error { return nil }), http.StatusOK, "ok", "ok"},
		{"index missing", fakeChecker{indexErr: down}, nil, http.StatusOK, "degraded", "disabled"},
		{"queue down", fakeChecker{}, pingFunc(func(context.Context) error { return down }), http.StatusOK, "degraded", "down"},
		{"database down", fakeChecker{dbErr: down}, nil, http.StatusServiceUnavailable, "down", "disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checker, tt.queue, testLogger())
			for _, path := range []string{"/health", "/api/v1/health"} {
				mux := http.NewServeMux()
				mux.HandleFunc("GET "+path, h.Health)
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

				if rec.Code != tt.wantCode {
					t.Errorf("%s code = %d, want %d", path, rec.Code, tt.wantCode)
				}
				resp := decode[HealthResponse](t, rec)
				if resp.Status != tt.wantStatus || resp.Queue != tt.wantQueue {
					t.Errorf("%s resp = %+v", path, resp)
				}
			}
		})
	}
}
