package library

import (
	"strings"
	"testing"
	"time"

	models "contentflow/internal/domain/models/library"
)

// ============================================================================
// UNIT TESTS - Query Building
// ============================================================================

func TestBuildSearchQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    *models.ContentFilter
		wantArgs  int
		contains  []string
		wantWhere bool
		wantRank  bool
	}{
		{
			name:   "empty filter has no where clause",
			filter: &models.ContentFilter{},
		},
		{
			name:      "source types use ANY",
			filter:    &models.ContentFilter{SourceTypes: []models.SourceType{models.SourceArxiv, models.SourceWeb}},
			wantArgs:  1,
			contains:  []string{"c.source_type = ANY($1)"},
			wantWhere: true,
		},
		{
			name:      "theme ids use EXISTS on assignment table",
			filter:    &models.ContentFilter{ThemeIDs: []string{"a"}},
			wantArgs:  1,
			contains:  []string{"EXISTS (SELECT 1 FROM test_content_themes ct", "ANY($1::uuid[])"},
			wantWhere: true,
		},
		{
			name:      "dates bound publish_date",
			filter:    &models.ContentFilter{DateFrom: &from, DateTo: &from},
			wantArgs:  2,
			contains:  []string{"c.publish_date >= $1", "c.publish_date <= $2"},
			wantWhere: true,
		},
		{
			name:      "query matches full text or substring",
			filter:    &models.ContentFilter{Query: "graph", Language: "english"},
			wantArgs:  3,
			contains:  []string{"websearch_to_tsquery($1::regconfig, $2)", "c.title ILIKE $3", "s.overview ILIKE $3", "'A'", "'C'"},
			wantWhere: true,
			wantRank:  true,
		},
		{
			name:     "blank query is ignored",
			filter:   &models.ContentFilter{Query: "   "},
			wantArgs: 0,
		},
		{
			name: "combined filters number placeholders in order",
			filter: &models.ContentFilter{
				SourceTypes: []models.SourceType{models.SourcePDF},
				ThemeIDs:    []string{"a", "b"},
				Query:       "llm",
				Language:    "english",
			},
			wantArgs:  5,
			contains:  []string{"ANY($1)", "ANY($2::uuid[])", "$3::regconfig", " AND "},
			wantWhere: true,
			wantRank:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sq := buildSearchQuery(tt.filter, "test_content_themes")

			if len(sq.args) != tt.wantArgs {
				t.Errorf("args = %d, want %d", len(sq.args), tt.wantArgs)
			}
			if (sq.where != "") != tt.wantWhere {
				t.Errorf("where = %q, wantWhere %v", sq.where, tt.wantWhere)
			}
			if (sq.docVec != "") != tt.wantRank {
				t.Errorf("docVec = %q, wantRank %v", sq.docVec, tt.wantRank)
			}
			for _, want := range tt.contains {
				if !strings.Contains(sq.where, want) {
					t.Errorf("where missing %q:\n%s", want, sq.where)
				}
			}
		})
	}
}

func TestBuildSearchQuery_LikeArgIsEscaped(t *testing.T) {
	sq := buildSearchQuery(&models.ContentFilter{Query: "100%_done", Language: "english"}, "ct")

	got, ok := sq.args[2].(string)
	if !ok {
		t.Fatalf("like arg type = %T", sq.args[2])
	}
	if want := `%100\%\_done%`; got != want {
		t.Errorf("like arg = %q, want %q", got, want)
	}
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"plain":   "plain",
		"50%":     `50\%`,
		"a_b":     `a\_b`,
		`back\sl`: `back\\sl`,
	}
	for in, want := range tests {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}
