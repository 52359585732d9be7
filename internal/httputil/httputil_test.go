package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 7, false},
		{"page=3", 3, false},
		{"page=%20%204%20", 4, false},
		{"page=-1", -1, false},
		{"page=two", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
			got, err := QueryInt(r, "page", 7)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("QueryInt() = %d, %v; want %d, err=%v", got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestOptionalString(t *testing.T) {
	var body struct {
		Description OptionalString `json:"description"`
	}

	tests := []struct {
		json        string
		wantPresent bool
		wantValue   *string
	}{
		{`{}`, false, nil},
		{`{"description":null}`, true, nil},
		{`{"description":""}`, true, ptr("")},
		{`{"description":"text"}`, true, ptr("text")},
	}
	for _, tt := range tests {
		t.Run(tt.json, func(t *testing.T) {
			body.Description = OptionalString{}
			if err := json.Unmarshal([]byte(tt.json), &body); err != nil {
				t.Fatal(err)
			}
			got := body.Description
			if got.Present != tt.wantPresent || (got.Value == nil) != (tt.wantValue == nil) {
				t.Fatalf("got %+v", got)
			}
			if got.Value != nil && *got.Value != *tt.wantValue {
				t.Errorf("value = %q, want %q", *got.Value, *tt.wantValue)
			}
		})
	}

	if err := json.Unmarshal([]byte(`{"description":5}`), &body); err == nil {
		t.Error("expected error for a non-string value")
	}
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusConflict, "theme 'AI' already exists")

	if rec.Code != http.StatusConflict || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("code = %d, content type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"detail":"theme 'AI' already exists"}` {
		t.Errorf("body = %s", got)
	}
}

func TestParseJSON_RejectsOversizedBody(t *testing.T) {
	big := `{"url":"` + strings.Repeat("a", maxJSONBody) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(big))
	var dest map[string]string
	if err := ParseJSON(httptest.NewRecorder(), r, &dest); err == nil {
		t.Error("expected error for oversized body")
	}
}

func ptr(s string) *string { return &s }
