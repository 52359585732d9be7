package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"contentflow/internal/app"
	"contentflow/internal/auth"
	"contentflow/internal/config"
	"contentflow/internal/handler"
	"contentflow/internal/middleware"
	"contentflow/internal/scheduler"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg, "server")
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)
	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"ingest_mode", cfg.IngestMode,
		"auth_mode", cfg.AuthMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	verifier, err := auth.NewVerifier(ctx, cfg, logger)
	if err != nil {
		logger.Error("auth setup failed", "error", err)
		os.Exit(1)
	}
	if verifier != nil {
		defer verifier.Close()
	}

	// Queue health only matters when submissions go through it
	var queue handler.Pinger
	if cfg.Queued() {
		queue = a.Queue
	}

	handlers := &handler.Handlers{
		Content: handler.NewContentHandler(a.Ingestor, a.ContentService, a.Pipeline, cfg.MaxFileSize, logger),
		Search:  handler.NewSearchHandler(a.ContentService, logger),
		Themes:  handler.NewThemeHandler(a.ThemeService, a.Pipeline, logger),
		Jobs:    handler.NewJobHandler(a.JobService, a.ContentService, logger),
		Health:  handler.NewHealthHandler(a.Health, queue, logger),
	}

	mux := http.NewServeMux()
	handlers.Register(mux)

	// Order: CORS → Logging → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.Auth(verifier, logger, "/health", handler.APIPrefix+"/health")(h)
	h = middleware.Recovery(logger)(h)
	h = middleware.Logging(logger)(h)

	// CORS - Must be outermost to answer OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// The sweeper runs here in inline mode; queued deployments run it in cmd/worker
	if cfg.ResummarizeSchedule != "" && !cfg.Queued() {
		sched, err := scheduler.New(cfg.ResummarizeSchedule, a.Pipeline, scheduler.DefaultBatchSize, logger)
		if err != nil {
			logger.Error("scheduler setup failed", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute, // uploads up to MAX_FILE_SIZE
		WriteTimeout:      5 * time.Minute, // inline ingestion waits on extraction and the LLM
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

