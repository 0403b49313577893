package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-media-relay/internal/domain"
	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/domain/ports/repository"
)

var _ repository.ProcessedRepository = (*processedRepo)(nil)

type processedRepo struct {
	pool *pgxpool.Pool
}

func NewProcessedRepo(pool *pgxpool.Pool) *processedRepo {
	return &processedRepo{pool: pool}
}

const processedColumns = `id, user_id, post_id, post_url, post_owner, link_type, message_id, chat_id,
download_status, upload_status, state, timestamp`

func scanProcessed(row pgx.Row) (*model.ProcessedRecord, error) {
	var rec model.ProcessedRecord
	var linkType, downloadStatus, uploadStatus, state string
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.PostID, &rec.PostURL, &rec.PostOwner, &linkType, &rec.MessageID, &rec.ChatID,
		&downloadStatus, &uploadStatus, &state, &rec.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	rec.LinkType = model.LinkType(linkType)
	rec.DownloadStatus = model.DownloadStatus(downloadStatus)
	rec.UploadStatus = model.UploadStatus(uploadStatus)
	rec.State = model.JobState(state)
	return &rec, nil
}

func (r *processedRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.ProcessedRecord) error {
	const q = `
INSERT INTO processed (id, user_id, post_id, post_url, post_owner, link_type, message_id, chat_id,
	download_status, upload_status, state, timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`
	_, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.UserID, rec.PostID, rec.PostURL, rec.PostOwner, rec.LinkType, rec.MessageID, rec.ChatID,
		rec.DownloadStatus, rec.UploadStatus, rec.State, rec.Timestamp)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateRequest
	}
	return err
}

func (r *processedRepo) UserProcessed(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.ProcessedRecord, error) {
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT `+processedColumns+` FROM processed WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2;`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ProcessedRecord
	for rows.Next() {
		rec, err := scanProcessed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *processedRepo) CountByUser(ctx context.Context, tx repository.Tx, userID int64) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM processed WHERE user_id = $1;`, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *processedRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM processed;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
