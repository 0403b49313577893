package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-media-relay/internal/infra/metrics"
	"telegram-media-relay/internal/usecase"
)

// ReconcileWorker shifts overdue backlogs forward. The interesting run is
// the one at startup, which absorbs downtime; the periodic re-runs catch
// lag that builds up while the process is alive but the scheduler is not
// keeping pace.
type ReconcileWorker struct {
	interval time.Duration
	recUC    usecase.ReconcileUseCase
	log      *zerolog.Logger
}

func NewReconcileWorker(interval time.Duration, recUC usecase.ReconcileUseCase, logger *zerolog.Logger) *ReconcileWorker {
	compLog := logger.With().Str("component", "ReconcileWorker").Logger()
	return &ReconcileWorker{
		interval: interval,
		recUC:    recUC,
		log:      &compLog,
	}
}

func (w *ReconcileWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting reconcile worker")
	// Run once on startup, then on every tick
	w.runCheck(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping reconcile worker")
			return ctx.Err()
		case <-ticker.C:
			w.runCheck(ctx)
		}
	}
}

func (w *ReconcileWorker) runCheck(ctx context.Context) {
	shifted, err := w.recUC.ReconcileAll(ctx, time.Now())
	if err != nil {
		w.log.Error().Err(err).Msg("backlog reconciliation failed")
	}
	if shifted > 0 {
		metrics.AddBacklogShifts(shifted)
		w.log.Info().Int("users", shifted).Msg("overdue backlogs shifted")
	}
}
