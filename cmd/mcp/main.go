package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"contentflow/internal/app"
	"contentflow/internal/config"
	"contentflow/internal/mcpserver"
)

func main() {
	transport := flag.String("transport", "stdio", "Transport mode: stdio or http")
	addr := flag.String("addr", ":8081", "Listen address (only used with --transport http)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg, "mcp")
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	// stdout carries the protocol in stdio mode
	if *transport == "stdio" {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
	defer a.Close()

	srv := mcpserver.New(mcpserver.Services{
		Contents: a.ContentService,
		Themes:   a.ThemeService,
		Ingestor: a.Ingestor,
	}, logger)

	switch *transport {
	case "stdio":
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("Server error: %v", err)
		}
	case "http":
		handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return srv
		}, nil)
		server := &http.Server{Addr: *addr, Handler: handler}
		go func() {
			<-ctx.Done()
			_ = server.Shutdown(context.Background())
		}()
		logger.Info("mcp server listening", "addr", *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	default:
		log.Fatalf("Unknown transport: %s (use stdio or http)", *transport)
	}
}
