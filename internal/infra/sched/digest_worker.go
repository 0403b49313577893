package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-media-relay/internal/usecase"
)

// DigestWorker renews every user's pinned status digest on a slow cadence,
// so messages approaching the platform's edit window get recreated even
// when the user's queue is idle.
type DigestWorker struct {
	interval time.Duration
	digestUC usecase.DigestUseCase
	log      *zerolog.Logger
}

func NewDigestWorker(interval time.Duration, digestUC usecase.DigestUseCase, logger *zerolog.Logger) *DigestWorker {
	compLog := logger.With().Str("component", "DigestWorker").Logger()
	return &DigestWorker{
		interval: interval,
		digestUC: digestUC,
		log:      &compLog,
	}
}

func (w *DigestWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting digest worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping digest worker")
			return ctx.Err()
		case <-ticker.C:
			if err := w.digestUC.RefreshAll(ctx); err != nil {
				w.log.Error().Err(err).Msg("digest refresh pass failed")
			}
		}
	}
}
