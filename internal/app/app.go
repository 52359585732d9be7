// Package app wires repositories, extractors, LLM services and the ingestion
// pipeline from configuration. Every binary under cmd/ builds on it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"contentflow/internal/capabilities"
	"contentflow/internal/config"
	libraryRepo "contentflow/internal/domain/repositories/library"
	librarySvc "contentflow/internal/domain/services/library"
	"contentflow/internal/repository/postgres"
	postgresLibrary "contentflow/internal/repository/postgres/library"
	"contentflow/internal/repository/redis"
	"contentflow/internal/service/embedding"
	"contentflow/internal/service/extractor"
	"contentflow/internal/service/ingestion"
	serviceLibrary "contentflow/internal/service/library"
	serviceLLM "contentflow/internal/service/llm"
	"contentflow/internal/service/ratelimit"
	"contentflow/internal/service/summarizer"
	"contentflow/internal/service/themer"
)

// App holds the wired services for one process
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Pool   *pgxpool.Pool
	Tables *postgres.TableNames
	Health *postgres.HealthChecker

	Contents libraryRepo.ContentRepository
	Themes   libraryRepo.ThemeRepository

	// Redis, Jobs and Queue are nil without REDIS_URL
	Redis *goredis.Client
	Jobs  libraryRepo.JobRepository
	Queue libraryRepo.JobQueue

	Files    *ingestion.FileStore
	Pipeline *ingestion.Pipeline
	Ingestor librarySvc.Ingestor

	ContentService librarySvc.ContentService
	ThemeService   librarySvc.ThemeService
	JobService     librarySvc.JobService
}

// New connects to Postgres (and Redis when configured) and builds every
// service. The caller must Close the result.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Queued() && cfg.RedisURL == "" {
		return nil, fmt.Errorf("INGEST_MODE=queued requires REDIS_URL")
	}

	a := &App{Config: cfg, Logger: logger}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.Tables = postgres.NewTableNames(cfg.TablePrefix)
	logger.Info("database connected", "table_prefix", cfg.TablePrefix)

	if cfg.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool, a.Tables); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("schema ready")
	}

	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	repoConfig := &postgres.RepositoryConfig{
		Pool:         a.Pool,
		Tables:       a.Tables,
		Logger:       logger,
		Language:     cfg.SearchConfig,
		VectorWeight: cfg.VectorWeight,
	}
	a.Contents = postgresLibrary.NewContentRepository(repoConfig)
	a.Themes = postgresLibrary.NewThemeRepository(repoConfig)
	a.Health = postgres.NewHealthChecker(a.Pool, a.Tables)
	txManager := postgres.NewTransactionManager(a.Pool, logger)

	if cfg.RedisURL != "" {
		rdb, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		a.Redis = rdb
		keys := redis.NewKeys(cfg.TablePrefix)
		a.Jobs = redis.NewJobRepository(rdb, keys, logger)
		a.Queue = redis.NewQueue(rdb, keys)
		logger.Info("redis connected", "queue", keys.Queue)
	}

	files, err := ingestion.NewFileStore(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}
	a.Files = files

	limits := ratelimit.NewRegistry(nil)
	fetcher := extractor.NewFetcher(limits)
	extractors := extractor.NewDefaultRegistry(extractor.Config{
		Fetcher:            fetcher,
		TwitterBearerToken: cfg.TwitterBearerToken,
	}, logger)

	summ, them, err := a.llmServices(limits)
	if err != nil {
		return err
	}
	embedder := embedding.NewHashingEmbedder(postgres.EmbeddingDimensions)

	a.Pipeline = ingestion.NewPipeline(
		extractors,
		summ,
		them,
		embedder,
		a.Contents,
		a.Themes,
		txManager,
		files,
		ingestion.OptionsFromConfig(cfg),
		logger,
	)

	if cfg.Queued() {
		a.Ingestor = ingestion.NewQueuedIngestor(a.Jobs, a.Queue, files, cfg.MaxFileSize, logger)
	} else {
		a.Ingestor = ingestion.NewInlineIngestor(a.Pipeline)
	}
	logger.Info("ingestion ready", "mode", cfg.IngestMode)

	a.ContentService = serviceLibrary.NewContentService(a.Contents, embedder, files, serviceLibrary.SearchOptions{
		MaxPageSize: cfg.MaxPageSize,
		Language:    cfg.SearchConfig,
	}, logger)
	a.ThemeService = serviceLibrary.NewThemeService(a.Themes, a.Contents, cfg.MaxPageSize, logger)
	a.JobService = serviceLibrary.NewJobService(a.Jobs)
	return nil
}

// llmServices picks the configured provider and builds the summarizer and
// themer on top of it. The lorem provider gets the keyword themer so that
// offline theming is deterministic.
func (a *App) llmServices(limits *ratelimit.Registry) (librarySvc.Summarizer, librarySvc.Themer, error) {
	caps, err := capabilities.NewRegistry()
	if err != nil {
		return nil, nil, fmt.Errorf("capability registry: %w", err)
	}

	sel, err := serviceLLM.NewProviderFactory(a.Config, limits).Select()
	if err != nil {
		return nil, nil, fmt.Errorf("llm provider: %w", err)
	}
	name := sel.Provider.Name()
	budget := caps.CharBudget(name, sel.Model)
	a.Logger.Info("llm provider selected", "provider", name, "model", sel.Model, "char_budget", budget)

	summ := summarizer.New(sel.Provider, sel.Model, budget, a.Logger)
	if name == "lorem" {
		return summ, themer.NewKeywordThemer(), nil
	}
	return summ, themer.NewLLMThemer(sel.Provider, sel.Model, themer.Options{
		AllowNewThemes: a.Config.ThemerAllowNewThemes,
		CharBudget:     budget,
	}, a.Logger), nil
}

// Close releases connections
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", "error", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
