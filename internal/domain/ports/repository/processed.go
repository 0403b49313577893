package repository

import (
	"context"

	"telegram-media-relay/internal/domain/model"
)

// ProcessedRepository is the append-only table of jobs that reached a
// terminal state. Records are never mutated after insertion.
type ProcessedRepository interface {
	Insert(ctx context.Context, tx Tx, rec *model.ProcessedRecord) error

	// UserProcessed lists the user's most recent terminal records, newest
	// first, bounded by limit.
	UserProcessed(ctx context.Context, tx Tx, userID int64, limit int) ([]*model.ProcessedRecord, error)

	CountByUser(ctx context.Context, tx Tx, userID int64) (int, error)
	Count(ctx context.Context, tx Tx) (int, error)
}
