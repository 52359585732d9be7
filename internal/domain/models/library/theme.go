package library

import "time"

// DefaultThemeColor is applied to manually created themes without a color.
const DefaultThemeColor = "#3B82F6"

// ThemePalette colors AI-proposed themes, cycling by theme count.
var ThemePalette = []string{
	"#FF5733", "#33FF57", "#3357FF", "#F333FF", "#FF33F3",
	"#33FFF3", "#F3FF33", "#FF8C33", "#8C33FF", "#33FF8C",
	"#FF3383", "#33FFA5", "#A533FF", "#FFA533", "#5733FF",
}

// PaletteColor picks the palette entry for the n-th theme.
func PaletteColor(n int) string {
	if n < 0 {
		n = -n
	}
	return ThemePalette[n%len(ThemePalette)]
}

// Theme is a category label. ContentCount is computed from live assignments.
type Theme struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	Color        *string   `json:"color"`
	ContentCount int       `json:"content_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ThemeAssignment links a content item to a theme. Confidence is nil for
// manual assignments.
type ThemeAssignment struct {
	ContentID  string
	ThemeID    string
	Confidence *float64
}

// ThemeScore is a raw themer output before threshold filtering.
type ThemeScore struct {
	ThemeID    string  `json:"theme_id"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ThemeProposal is a theme suggested by the themer.
type ThemeProposal struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ThemeMatches is the full themer answer for one item.
type ThemeMatches struct {
	Scores        []ThemeScore
	NewTheme      *ThemeProposal
	ModelResponse string
}
