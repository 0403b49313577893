package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-media-relay/internal/domain"
	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/domain/ports/adapter"
	"telegram-media-relay/internal/domain/ports/repository"
)

// Compile-time check
var _ QueueUseCase = (*queueUC)(nil)

// Pacer reserves the next scheduled slot for a user's job.
type Pacer interface {
	NextSlot(ctx context.Context, userID int64, now time.Time) (time.Time, error)
}

// EnqueueRequest is the validated intake payload coming from the chat layer.
type EnqueueRequest struct {
	UserID    int64
	ChatID    int64
	MessageID int
	PostID    string
	PostURL   string
}

type QueueUseCase interface {
	// Enqueue schedules one post for fetch-and-relay. Returns
	// domain.ErrDuplicateRequest when (post_id, user_id) is already known.
	Enqueue(ctx context.Context, req EnqueueRequest) (*model.Job, error)

	// EnqueueAccount walks all items of an account and enqueues each one,
	// skipping duplicates. Returns how many jobs were added.
	EnqueueAccount(ctx context.Context, req EnqueueRequest) (int, error)

	IsUnique(ctx context.Context, postID string, userID int64) (bool, error)

	// Reschedule moves a queued job to a new time, which must be strictly
	// in the future.
	Reschedule(ctx context.Context, postID string, userID int64, newTime time.Time) error

	GetUserQueue(ctx context.Context, userID int64, limit int) ([]*model.Job, error)
	GetUserProcessed(ctx context.Context, userID int64, limit int) ([]*model.ProcessedRecord, error)
}

type queueUC struct {
	queue      repository.QueueRepository
	processed  repository.ProcessedRepository
	downloader adapter.Downloader
	pacer      Pacer
	log        *zerolog.Logger
}

func NewQueueUseCase(
	queue repository.QueueRepository,
	processed repository.ProcessedRepository,
	downloader adapter.Downloader,
	pacer Pacer,
	logger *zerolog.Logger,
) *queueUC {
	compLog := logger.With().Str("component", "QueueUseCase").Logger()
	return &queueUC{queue: queue, processed: processed, downloader: downloader, pacer: pacer, log: &compLog}
}

func (u *queueUC) Enqueue(ctx context.Context, req EnqueueRequest) (*model.Job, error) {
	slot, err := u.pacer.NextSlot(ctx, req.UserID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("reserve slot: %w", err)
	}
	job, err := model.NewJob(req.UserID, req.PostID, req.PostURL, model.LinkTypePost, req.MessageID, req.ChatID, slot)
	if err != nil {
		return nil, err
	}
	if err := u.queue.Enqueue(ctx, repository.NoTX, job); err != nil {
		return nil, err
	}
	u.log.Info().Int64("user_id", req.UserID).Str("post_id", req.PostID).
		Time("scheduled_time", slot).Msg("job added to queue")
	return job, nil
}

func (u *queueUC) EnqueueAccount(ctx context.Context, req EnqueueRequest) (int, error) {
	added := 0
	cursor := ""
	for {
		items, next, err := u.downloader.ListAccountItems(ctx, req.PostID, cursor)
		if err != nil {
			return added, fmt.Errorf("list account items: %w", err)
		}
		for _, item := range items {
			slot, err := u.pacer.NextSlot(ctx, req.UserID, time.Now())
			if err != nil {
				return added, fmt.Errorf("reserve slot: %w", err)
			}
			job, err := model.NewJob(req.UserID, item.PostID, item.PostURL, model.LinkTypeAccount, req.MessageID, req.ChatID, slot)
			if err != nil {
				return added, err
			}
			job.PostOwner = req.PostID
			switch err := u.queue.Enqueue(ctx, repository.NoTX, job); {
			case err == nil:
				added++
			case errors.Is(err, domain.ErrDuplicateRequest):
				// Items seen in a previous walk of the same account.
				continue
			default:
				return added, err
			}
		}
		if next == "" {
			break
		}
		cursor = next
	}
	u.log.Info().Int64("user_id", req.UserID).Str("account", req.PostID).
		Int("added", added).Msg("account items added to queue")
	return added, nil
}

func (u *queueUC) IsUnique(ctx context.Context, postID string, userID int64) (bool, error) {
	return u.queue.IsUnique(ctx, repository.NoTX, postID, userID)
}

func (u *queueUC) Reschedule(ctx context.Context, postID string, userID int64, newTime time.Time) error {
	if !newTime.After(time.Now()) {
		return domain.ErrScheduleNotFuture
	}
	return u.queue.Reschedule(ctx, repository.NoTX, postID, userID, newTime)
}

func (u *queueUC) GetUserQueue(ctx context.Context, userID int64, limit int) ([]*model.Job, error) {
	return u.queue.UserQueue(ctx, repository.NoTX, userID, limit)
}

func (u *queueUC) GetUserProcessed(ctx context.Context, userID int64, limit int) ([]*model.ProcessedRecord, error) {
	return u.processed.UserProcessed(ctx, repository.NoTX, userID, limit)
}
