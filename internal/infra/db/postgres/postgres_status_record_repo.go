package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-media-relay/internal/domain"
	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/domain/ports/repository"
)

var _ repository.StatusRecordRepository = (*statusRecordRepo)(nil)

type statusRecordRepo struct {
	pool *pgxpool.Pool
}

func NewStatusRecordRepo(pool *pgxpool.Pool) *statusRecordRepo {
	return &statusRecordRepo{pool: pool}
}

func (r *statusRecordRepo) Find(ctx context.Context, tx repository.Tx, chatID int64, messageType string) (*model.StatusRecord, error) {
	const q = `
SELECT message_id, chat_id, message_type, content_hash, producer, synchronization_state, created_at, updated_at
FROM status_records
WHERE chat_id = $1 AND message_type = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, chatID, messageType)
	if err != nil {
		return nil, err
	}

	var rec model.StatusRecord
	var state string
	err = row.Scan(&rec.MessageID, &rec.ChatID, &rec.MessageType, &rec.ContentHash, &rec.Producer,
		&state, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	rec.SyncState = model.SyncState(state)
	return &rec, nil
}

func (r *statusRecordRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.StatusRecord) error {
	const q = `
INSERT INTO status_records (message_id, chat_id, message_type, content_hash, producer, synchronization_state, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now());`
	_, err := execSQL(ctx, r.pool, tx, q,
		rec.MessageID, rec.ChatID, rec.MessageType, rec.ContentHash, rec.Producer, model.SyncStateAdded)
	if isUniqueViolation(err) {
		return domain.ErrStatusClaimHeld
	}
	return err
}

// Claim is the cooperative lock: the row moves to 'updating' only when no
// other caller holds it. The WHERE clause makes the check-and-set atomic.
// A holder that stopped touching the row for longer than staleAfter is
// presumed dead and its claim is taken over.
func (r *statusRecordRepo) Claim(ctx context.Context, chatID int64, messageType string, staleAfter time.Duration) error {
	const q = `
UPDATE status_records
SET synchronization_state = $1, updated_at = now()
WHERE chat_id = $2 AND message_type = $3
	AND (synchronization_state <> $1 OR ($4 > 0 AND updated_at < now() - make_interval(secs => $4)));`
	tag, err := execSQL(ctx, r.pool, repository.NoTX, q, model.SyncStateUpdating, chatID, messageType, staleAfter.Seconds())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStatusClaimHeld
	}
	return nil
}

func (r *statusRecordRepo) Release(ctx context.Context, tx repository.Tx, chatID int64, messageType string, messageID int, contentHash string, recreated bool) error {
	q := `
UPDATE status_records
SET message_id = $1, content_hash = $2, synchronization_state = $3, updated_at = now()`
	if recreated {
		// A fresh message restarts the platform edit window.
		q += `, created_at = now()`
	}
	q += ` WHERE chat_id = $4 AND message_type = $5;`

	tag, err := execSQL(ctx, r.pool, tx, q, messageID, contentHash, model.SyncStateUpdated, chatID, messageType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
