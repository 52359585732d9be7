// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultBatchSize is how many failed summaries one sweep retries
const DefaultBatchSize = 20

// sweepTimeout bounds one sweep
const sweepTimeout = 10 * time.Minute

// Resummarizer is satisfied by *ingestion.Pipeline
type Resummarizer interface {
	ResummarizeFailed(ctx context.Context, limit int) (int, error)
}

// Scheduler owns the cron runner
type Scheduler struct {
	cron   *cron.Cron
	target Resummarizer
	batch  int
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the re-summarization sweep on schedule (standard five-field
// cron or a descriptor such as "@every 30m"). Overlapping runs are skipped.
func New(schedule string, target Resummarizer, batch int, logger *slog.Logger) (*Scheduler, error) {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	logger = logger.With("component", "scheduler")

	s := &Scheduler{target: target, batch: batch, logger: logger}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid RESUMMARIZE_SCHEDULE %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "entries", len(s.cron.Entries()))
}

// Stop cancels a running sweep and waits for it to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, sweepTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.target.ResummarizeFailed(ctx, s.batch)
	if err != nil {
		s.logger.Error("resummarize sweep failed", "error", err, "recovered", n)
		return
	}
	if n > 0 {
		s.logger.Info("resummarize sweep", "recovered", n, "duration", time.Since(start))
	}
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
