package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-media-relay/internal/domain/ports/repository"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

type ReconcileUseCase interface {
	// ReconcileAll walks every user with a backlog and shifts overdue
	// schedules forward. Returns how many users were rescheduled.
	ReconcileAll(ctx context.Context, now time.Time) (int, error)
}

type reconcileUC struct {
	queue    repository.QueueRepository
	tm       repository.TransactionManager
	grace    time.Duration
	pageSize int
	log      *zerolog.Logger
}

func NewReconcileUseCase(
	queue repository.QueueRepository,
	tm repository.TransactionManager,
	grace time.Duration,
	pageSize int,
	logger *zerolog.Logger,
) *reconcileUC {
	compLog := logger.With().Str("component", "ReconcileUseCase").Logger()
	return &reconcileUC{queue: queue, tm: tm, grace: grace, pageSize: pageSize, log: &compLog}
}

func (u *reconcileUC) ReconcileAll(ctx context.Context, now time.Time) (int, error) {
	users, err := u.queue.ListUserIDsWithBacklog(ctx, repository.NoTX)
	if err != nil {
		return 0, err
	}
	shifted := 0
	for _, userID := range users {
		ok, err := u.reconcileUser(ctx, userID, now)
		if err != nil {
			u.log.Error().Err(err).Int64("user_id", userID).Msg("backlog reconciliation failed")
			continue
		}
		if ok {
			shifted++
		}
	}
	return shifted, nil
}

// reconcileUser shifts the user's whole backlog forward by the lag of its
// earliest item, so the backlog starts now while the spacing between the
// user's own jobs stays intact.
func (u *reconcileUC) reconcileUser(ctx context.Context, userID int64, now time.Time) (bool, error) {
	backlog, err := u.queue.UserQueue(ctx, repository.NoTX, userID, u.pageSize)
	if err != nil {
		return false, err
	}
	if len(backlog) == 0 {
		return false, nil
	}

	earliest := backlog[0].ScheduledTime
	lag := now.Sub(earliest)
	if lag <= u.grace {
		return false, nil
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, job := range backlog {
			newTime := job.ScheduledTime.Add(lag)
			if err := u.queue.Reschedule(ctx, tx, job.PostID, userID, newTime); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	u.log.Info().Int64("user_id", userID).Dur("lag", lag).Int("jobs", len(backlog)).
		Msg("backlog shifted forward")
	return true, nil
}
