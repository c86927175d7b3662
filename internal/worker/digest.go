package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/streamlinehq/notify-api/internal/notification"
	"github.com/streamlinehq/notify-api/internal/repository"
)

// DigestWorker periodically sweeps for users whose digest window has elapsed
// and runs a digest pass for each. One user's failure never stops the sweep;
// sent_via_email makes reruns safe after a crash mid-sweep.
type DigestWorker struct {
	prefs     repository.PreferenceRepository
	service   notification.Service
	interval  time.Duration
	batchSize int
	logger    zerolog.Logger
}

func NewDigestWorker(prefs repository.PreferenceRepository, service notification.Service, interval time.Duration, batchSize int, logger zerolog.Logger) *DigestWorker {
	return &DigestWorker{
		prefs:     prefs,
		service:   service,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "digest_worker").Logger(),
	}
}

func (w *DigestWorker) Start(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.interval).Msg("digest worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("digest worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *DigestWorker) sweep(ctx context.Context) {
	due, err := w.prefs.ListDigestDue(ctx, time.Now(), w.batchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to list digest-due users")
		return
	}
	if len(due) == 0 {
		return
	}

	processed := 0
	for _, prefs := range due {
		if ctx.Err() != nil {
			return
		}
		if err := w.service.ProcessDigest(ctx, prefs.UserID); err != nil {
			w.logger.Error().Err(err).Str("user_id", prefs.UserID).Msg("digest pass failed")
			continue
		}
		processed++
	}

	w.logger.Info().Int("due", len(due)).Int("processed", processed).Msg("digest sweep complete")
}
