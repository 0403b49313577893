package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"telegram-media-relay/internal/domain"
	"telegram-media-relay/internal/infra/metrics"
	"telegram-media-relay/internal/usecase"
)

// Leader gates the polling loop to one live instance.
type Leader interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// QueueWorker drives the job state machine on a fixed tick. One job is
// pulled per tick and the full interval is slept regardless of outcome,
// which bounds the collaborator call rate.
type QueueWorker struct {
	interval time.Duration
	procUC   usecase.ProcessUseCase
	digestUC usecase.DigestUseCase
	leader   Leader
	log      *zerolog.Logger
}

func NewQueueWorker(interval time.Duration, procUC usecase.ProcessUseCase, digestUC usecase.DigestUseCase, leader Leader, logger *zerolog.Logger) *QueueWorker {
	compLog := logger.With().Str("component", "QueueWorker").Logger()
	return &QueueWorker{
		interval: interval,
		procUC:   procUC,
		digestUC: digestUC,
		leader:   leader,
		log:      &compLog,
	}
}

func (w *QueueWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting queue worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping queue worker")
			if w.leader != nil {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := w.leader.Release(releaseCtx); err != nil {
					w.log.Warn().Err(err).Msg("leader lock not released")
				}
				cancel()
			}
			return ctx.Err()
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

func (w *QueueWorker) runCycle(ctx context.Context) {
	if w.leader != nil {
		if err := w.leader.Acquire(ctx); err != nil {
			if errors.Is(err, domain.ErrNotLeader) {
				w.log.Debug().Msg("another instance holds the scheduler lease")
				return
			}
			w.log.Error().Err(err).Msg("leader lease check failed")
			return
		}
	}

	job, err := w.procUC.ProcessNext(ctx, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return
		}
		// Store trouble: skip this cycle, the next tick retries the whole pull.
		w.log.Error().Err(err).Msg("processing cycle failed")
		return
	}
	metrics.IncDequeued()

	if w.digestUC != nil {
		if err := w.digestUC.SyncUser(ctx, job.UserID, job.ChatID); err != nil {
			w.log.Warn().Err(err).Int64("user_id", job.UserID).Msg("digest not refreshed after job step")
		}
	}
}
