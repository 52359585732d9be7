package config

const (
	// DefaultModel is the Anthropic model used for summaries and theming.
	DefaultModel = "claude-sonnet-4-5-20250929"

	// DefaultMaxFileSize is the upload limit in bytes (50 MiB).
	DefaultMaxFileSize = 52428800

	// DefaultMaxPageSize caps page_size on list and search endpoints.
	DefaultMaxPageSize = 100

	// DefaultPageSize is used when the client omits page_size.
	DefaultPageSize = 10

	// DefaultThemeMinConfidence discards theme matches scored below it.
	DefaultThemeMinConfidence = 0.5

	// DefaultThemeBootstrapThreshold is the corpus size at which initial
	// themes are proposed when none exist.
	DefaultThemeBootstrapThreshold = 10

	// DefaultVectorWeight scales cosine similarity in the relevance score.
	DefaultVectorWeight = 0.3

	// MaxThemeNameLength matches the themes.name column.
	MaxThemeNameLength = 100

	// MaxThemeDescriptionLength keeps descriptions to a short paragraph.
	MaxThemeDescriptionLength = 1000

	// MaxURLLength rejects absurd submissions before any network call.
	MaxURLLength = 2048

	// SummaryPreviewLength is the rune count of summary_preview in list views.
	SummaryPreviewLength = 200

	// BootstrapSampleSize is how many recent summaries feed theme proposal.
	BootstrapSampleSize = 20

	// MaxFetchBytes caps remote page and PDF downloads.
	MaxFetchBytes = 20 << 20
)
