package reaper

import (
	"context"
	"time"

	"github.com/prepdeck/testprep-service/internal/services"
	"github.com/prepdeck/testprep-service/internal/utils"
)

// Reaper periodically abandons sessions whose last activity is older
// than the idle timeout. Abandon is idempotent on terminal sessions, so
// overlapping or retried sweeps are harmless.
type Reaper struct {
	sessions    services.SessionService
	logger      utils.Logger
	idleTimeout time.Duration
	interval    time.Duration
}

func New(sessions services.SessionService, logger utils.Logger, idleTimeout, interval time.Duration) *Reaper {
	return &Reaper{
		sessions:    sessions,
		logger:      logger,
		idleTimeout: idleTimeout,
		interval:    interval,
	}
}

// Run sweeps until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("Session reaper started",
		"idle_timeout", r.idleTimeout.String(),
		"interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Session reaper stopped")
			return
		case <-ticker.C:
			if _, err := r.sessions.AbandonExpired(ctx, r.idleTimeout); err != nil {
				r.logger.Error("Session reap sweep failed", "error", err)
			}
		}
	}
}
