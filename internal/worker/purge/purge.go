// Package purge removes revocation-list rows whose tokens have expired.
// Expired rows are inert, so the sweep is idempotent and safe to run at any
// cadence or concurrently with request traffic.
package purge

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Purger deletes expired revocations and reports how many went.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

const (
	defaultInterval = time.Hour
	defaultTimeout  = 30 * time.Second
)

// Job runs the revocation purge.
type Job struct {
	purger   Purger
	logger   *slog.Logger
	Interval time.Duration // sweep cadence (default: 1h)
	Timeout  time.Duration // budget of one sweep (default: 30s)
}

// NewJob returns a job with hourly cadence.
func NewJob(p Purger, logger *slog.Logger) *Job {
	return &Job{
		purger:   p,
		logger:   logger,
		Interval: defaultInterval,
		Timeout:  defaultTimeout,
	}
}

// Run performs one sweep.
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		j.logger.Error("revocation purge failed", slog.String("error", err.Error()))
		return fmt.Errorf("revocation purge: %w", err)
	}
	j.logger.Info("revocation purge completed",
		slog.Int64("deleted_count", n),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start sweeps once immediately and then every Interval until ctx is done.
// Failed sweeps are logged and retried on the next tick.  A non-positive
// Interval means the hourly default.
func (j *Job) Start(ctx context.Context) {
	interval := j.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	_ = j.Run(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = j.Run(ctx)
		}
	}
}
