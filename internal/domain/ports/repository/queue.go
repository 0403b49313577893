package repository

import (
	"context"
	"time"

	"telegram-media-relay/internal/domain/model"
)

// QueueRepository is the durable table of pending jobs keyed by
// (post_id, user_id).
type QueueRepository interface {
	// Enqueue inserts a waiting job. Returns domain.ErrDuplicateRequest when
	// (post_id, user_id) is already present in the queue or processed table.
	Enqueue(ctx context.Context, tx Tx, job *model.Job) error

	// DequeueDue returns the earliest job with scheduled_time <= now and a
	// non-terminal state, or domain.ErrNotFound when none is due. Error-state
	// jobs stay eligible so they are retried on every due cycle. The row is
	// locked for the duration of the fetch so a second scheduler instance
	// cannot pick it concurrently.
	DequeueDue(ctx context.Context, now time.Time) (*model.Job, error)

	// Transition updates state and optional status fields of the user's job
	// in place. When newState is terminal, the row is atomically copied into
	// the processed table and deleted from the queue within one transaction.
	// Another user's job for the same post is never touched.
	Transition(ctx context.Context, postID string, userID int64, newState model.JobState, upd StatusUpdate) error

	// Reschedule moves the job's scheduled_time. Time validation happens in
	// the use-case layer.
	Reschedule(ctx context.Context, tx Tx, postID string, userID int64, newTime time.Time) error

	// UserQueue lists the user's pending jobs ordered by scheduled_time
	// ascending, bounded by limit.
	UserQueue(ctx context.Context, tx Tx, userID int64, limit int) ([]*model.Job, error)

	// CountByState returns queue depth per lifecycle state.
	CountByState(ctx context.Context, tx Tx) (map[model.JobState]int, error)

	// CountByUser returns how many jobs the user has queued.
	CountByUser(ctx context.Context, tx Tx, userID int64) (int, error)

	// IsUnique reports whether (post_id, user_id) is absent from both the
	// queue and the processed table.
	IsUnique(ctx context.Context, tx Tx, postID string, userID int64) (bool, error)

	// ListUserIDsWithBacklog returns distinct user ids that currently have
	// queued jobs, for the reconciler to walk.
	ListUserIDsWithBacklog(ctx context.Context, tx Tx) ([]int64, error)
}

// StatusUpdate carries the optional fields of a state transition. Nil fields
// are left untouched.
type StatusUpdate struct {
	DownloadStatus *model.DownloadStatus
	UploadStatus   *model.UploadStatus
	PostOwner      *string
}
