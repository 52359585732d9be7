package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"contentflow/internal/auth"
	"contentflow/internal/config"
	"contentflow/internal/repository/postgres"
	postgresLibrary "contentflow/internal/repository/postgres/library"
	serviceLibrary "contentflow/internal/service/library"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed themes")
	clearData := flag.Bool("clear-data", false, "Delete all content and themes (keep schema)")
	themesPath := flag.String("themes", "", "YAML file of themes to seed (default: built-in starter set)")
	token := flag.String("token", "", "Print a development JWT for this subject (AUTH_MODE=secret)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: --drop-tables and --clear-data are disabled in production")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *token != "" {
		signed, err := auth.IssueToken(cfg.SecretKey, *token, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(signed)
		return
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	logger.Info("seed starting", "environment", cfg.Environment, "table_prefix", cfg.TablePrefix)

	if *dropTables {
		if err := postgres.DropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		logger.Info("tables dropped")
	}

	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	logger.Info("schema ready")

	if *clearData {
		if err := postgres.ClearData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		logger.Info("data cleared")
		return
	}
	if *schemaOnly {
		return
	}

	themes, err := loadSeedThemes(*themesPath)
	if err != nil {
		log.Fatalf("Failed to load themes: %v", err)
	}

	repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
	svc := serviceLibrary.NewThemeService(
		postgresLibrary.NewThemeRepository(repoConfig),
		postgresLibrary.NewContentRepository(repoConfig),
		cfg.MaxPageSize,
		logger,
	)
	created, err := seedThemes(ctx, svc, themes, logger)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	logger.Info("seed complete", "themes_created", created, "themes_in_file", len(themes))
}
