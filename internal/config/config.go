package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	TablePrefix string
	AutoMigrate bool
	CORSOrigins string
	// LLM configuration
	AnthropicAPIKey string
	LLMProvider     string
	LLMModel        string
	// Uploads
	UploadDir   string
	MaxFileSize int64
	// Auth
	SecretKey string
	AuthMode  string // "none", "secret" or "jwks"
	JWKSURL   string
	// Async ingestion
	RedisURL          string
	IngestMode        string // "inline" or "queued"
	WorkerConcurrency int
	// Extractors
	TwitterBearerToken string
	// Themes
	ThemeMinConfidence      float64
	ThemeBootstrapThreshold int
	ThemerAllowNewThemes    bool
	// Search
	MaxPageSize  int
	SearchConfig string // Postgres text search configuration
	VectorWeight float64
	// Scheduler
	ResummarizeSchedule string
	// Logging
	LogDir string
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	apiKey := getEnv("ANTHROPIC_API_KEY", "")

	return &Config{
		Port:        getEnv("PORT", "8000"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", true),
		CORSOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		// LLM configuration
		AnthropicAPIKey: apiKey,
		LLMProvider:     getEnv("LLM_PROVIDER", getDefaultProvider(apiKey)),
		LLMModel:        getEnv("LLM_MODEL", DefaultModel),
		// Uploads
		UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", DefaultMaxFileSize),
		// Auth
		SecretKey: getEnv("SECRET_KEY", ""),
		AuthMode:  strings.ToLower(getEnv("AUTH_MODE", "none")),
		JWKSURL:   getEnv("JWKS_URL", ""),
		// Async ingestion
		RedisURL:          getEnv("REDIS_URL", ""),
		IngestMode:        strings.ToLower(getEnv("INGEST_MODE", "inline")),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),
		// Extractors
		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		// Themes
		ThemeMinConfidence:      getEnvFloat("THEME_MIN_CONFIDENCE", DefaultThemeMinConfidence),
		ThemeBootstrapThreshold: getEnvInt("THEME_BOOTSTRAP_THRESHOLD", DefaultThemeBootstrapThreshold),
		ThemerAllowNewThemes:    getEnvBool("THEMER_ALLOW_NEW_THEMES", true),
		// Search
		MaxPageSize:  getEnvInt("MAX_PAGE_SIZE", DefaultMaxPageSize),
		SearchConfig: getEnv("SEARCH_LANGUAGE", "english"),
		VectorWeight: getEnvFloat("VECTOR_WEIGHT", DefaultVectorWeight),
		// Scheduler (empty string disables it)
		ResummarizeSchedule: getEnvAllowEmpty("RESUMMARIZE_SCHEDULE", "@every 30m"),
		// Logging
		LogDir: getEnv("LOG_DIR", ""),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// Queued reports whether submissions go through the Redis job queue.
func (c *Config) Queued() bool {
	return c.IngestMode == "queued"
}

// getDefaultProvider falls back to the offline lorem provider when no API key is configured
func getDefaultProvider(apiKey string) string {
	if apiKey == "" {
		return "lorem"
	}
	return "anthropic"
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix, ok := os.LookupEnv("TABLE_PREFIX"); ok {
		return prefix
	}

	switch env {
	case "prod":
		return ""
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvInt64(key string, defaultValue int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}
