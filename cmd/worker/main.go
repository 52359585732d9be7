package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"contentflow/internal/app"
	"contentflow/internal/config"
	"contentflow/internal/scheduler"
	"contentflow/internal/service/ingestion"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required for the worker")
	}

	logger, closeLog, err := config.NewLogger(cfg, "worker")
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.ResummarizeSchedule != "" {
		sched, err := scheduler.New(cfg.ResummarizeSchedule, a.Pipeline, scheduler.DefaultBatchSize, logger)
		if err != nil {
			logger.Error("scheduler setup failed", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	worker := ingestion.NewWorker(a.Jobs, a.Queue, a.Pipeline, a.Contents, a.Files, cfg.WorkerConcurrency, logger)
	worker.Run(ctx)
	logger.Info("worker stopped")
}
