package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"contentflow/internal/httputil"
)

const healthTimeout = 3 * time.Second

// Health check values
const (
	healthOK       = "ok"
	healthDegraded = "degraded"
	healthDown     = "down"
	healthDisabled = "disabled"
)

// DatabaseChecker is satisfied by postgres.HealthChecker
type DatabaseChecker interface {
	PingDatabase(ctx context.Context) error
	CheckVectorIndex(ctx context.Context) error
}

// Pinger is satisfied by the job queue
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the GET /health body
type HealthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	VectorIndex string `json:"vector-index"`
	Queue       string `json:"queue"`
}

// HealthHandler reports dependency status
type HealthHandler struct {
	db     DatabaseChecker
	queue  Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a health handler; queue may be nil in inline mode
func NewHealthHandler(db DatabaseChecker, queue Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, logger: logger}
}

// Health runs every check in parallel. Only a dead database is fatal.
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Database: healthOK, VectorIndex: healthOK, Queue: healthDisabled}

	// Checks never fail the group; each records its own outcome
	var g errgroup.Group
	g.Go(func() error {
		if err := h.db.PingDatabase(ctx); err != nil {
			h.logger.Error("health: database", "error", err)
			resp.Database = healthDown
		}
		return nil
	})
	g.Go(func() error {
		if err := h.db.CheckVectorIndex(ctx); err != nil {
			h.logger.Warn("health: vector index", "error", err)
			resp.VectorIndex = healthDown
		}
		return nil
	})
	if h.queue != nil {
		g.Go(func() error {
			if err := h.queue.Ping(ctx); err != nil {
				h.logger.Warn("health: queue", "error", err)
				resp.Queue = healthDown
			} else {
				resp.Queue = healthOK
			}
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	switch {
	case resp.Database == healthDown:
		resp.Status = healthDown
		status = http.StatusServiceUnavailable
	case resp.VectorIndex == healthDown || resp.Queue == healthDown:
		resp.Status = healthDegraded
	default:
		resp.Status = healthOK
	}
	httputil.RespondJSON(w, status, resp)
}
