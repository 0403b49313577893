package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-media-relay/internal/domain"
	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/domain/ports/repository"
)

var _ repository.QueueRepository = (*queueRepo)(nil)

type queueRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewQueueRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *queueRepo {
	return &queueRepo{pool: pool, tm: tm}
}

const queueColumns = `id, user_id, post_id, post_url, post_owner, link_type, message_id, chat_id,
scheduled_time, download_status, upload_status, state, created_at, updated_at`

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var linkType, downloadStatus, uploadStatus, state string
	err := row.Scan(
		&j.ID, &j.UserID, &j.PostID, &j.PostURL, &j.PostOwner, &linkType, &j.MessageID, &j.ChatID,
		&j.ScheduledTime, &downloadStatus, &uploadStatus, &state, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	j.LinkType = model.LinkType(linkType)
	j.DownloadStatus = model.DownloadStatus(downloadStatus)
	j.UploadStatus = model.UploadStatus(uploadStatus)
	j.State = model.JobState(state)
	return &j, nil
}

func (r *queueRepo) Enqueue(ctx context.Context, tx repository.Tx, job *model.Job) error {
	unique, err := r.IsUnique(ctx, tx, job.PostID, job.UserID)
	if err != nil {
		return err
	}
	if !unique {
		return domain.ErrDuplicateRequest
	}

	job.UpdatedAt = time.Now()
	const q = `
INSERT INTO queue (id, user_id, post_id, post_url, post_owner, link_type, message_id, chat_id,
	scheduled_time, download_status, upload_status, state, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, job.UserID, job.PostID, job.PostURL, job.PostOwner, job.LinkType, job.MessageID, job.ChatID,
		job.ScheduledTime, job.DownloadStatus, job.UploadStatus, job.State, job.CreatedAt, job.UpdatedAt)
	if isUniqueViolation(err) {
		// Lost the race between the uniqueness check and the insert.
		return domain.ErrDuplicateRequest
	}
	return err
}

func (r *queueRepo) DequeueDue(ctx context.Context, now time.Time) (*model.Job, error) {
	var job *model.Job

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const q = `
SELECT ` + queueColumns + `
FROM queue
WHERE scheduled_time <= $1 AND state IN ('waiting', 'processing', 'error')
ORDER BY scheduled_time
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, q, now)
		if err != nil {
			return err
		}
		job, err = scanJob(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *queueRepo) Transition(ctx context.Context, postID string, userID int64, newState model.JobState, upd repository.StatusUpdate) error {
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		q := `UPDATE queue SET state = $1, updated_at = now()`
		args := []interface{}{newState}
		if upd.DownloadStatus != nil {
			args = append(args, *upd.DownloadStatus)
			q += `, download_status = $` + strconv.Itoa(len(args))
		}
		if upd.UploadStatus != nil {
			args = append(args, *upd.UploadStatus)
			q += `, upload_status = $` + strconv.Itoa(len(args))
		}
		if upd.PostOwner != nil {
			args = append(args, *upd.PostOwner)
			q += `, post_owner = $` + strconv.Itoa(len(args))
		}
		args = append(args, postID)
		q += ` WHERE post_id = $` + strconv.Itoa(len(args))
		args = append(args, userID)
		q += ` AND user_id = $` + strconv.Itoa(len(args)) + `;`

		tag, err := execSQL(ctx, r.pool, tx, q, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}

		if newState != model.JobStateProcessed && newState != model.JobStateNotSupported {
			return nil
		}

		// Terminal: copy the row into the processed table and drop it from
		// the queue inside the same transaction.
		row, err := pickRow(ctx, r.pool, tx, `SELECT `+queueColumns+` FROM queue WHERE post_id = $1 AND user_id = $2;`, postID, userID)
		if err != nil {
			return err
		}
		job, err := scanJob(row)
		if err != nil {
			return err
		}
		rec := job.Snapshot(newState, time.Now())

		const ins = `
INSERT INTO processed (id, user_id, post_id, post_url, post_owner, link_type, message_id, chat_id,
	download_status, upload_status, state, timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`
		if _, err := execSQL(ctx, r.pool, tx, ins,
			rec.ID, rec.UserID, rec.PostID, rec.PostURL, rec.PostOwner, rec.LinkType, rec.MessageID, rec.ChatID,
			rec.DownloadStatus, rec.UploadStatus, rec.State, rec.Timestamp); err != nil {
			return err
		}
		_, err = execSQL(ctx, r.pool, tx, `DELETE FROM queue WHERE post_id = $1 AND user_id = $2;`, postID, userID)
		return err
	})
}

func (r *queueRepo) Reschedule(ctx context.Context, tx repository.Tx, postID string, userID int64, newTime time.Time) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE queue SET scheduled_time = $1, updated_at = now() WHERE post_id = $2 AND user_id = $3;`,
		newTime, postID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *queueRepo) UserQueue(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.Job, error) {
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT `+queueColumns+` FROM queue WHERE user_id = $1 ORDER BY scheduled_time ASC LIMIT $2;`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *queueRepo) CountByState(ctx context.Context, tx repository.Tx) (map[model.JobState]int, error) {
	rows, err := pickRows(ctx, r.pool, tx, `SELECT state, COUNT(*) FROM queue GROUP BY state;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.JobState]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.JobState(state)] = n
	}
	return out, rows.Err()
}

func (r *queueRepo) CountByUser(ctx context.Context, tx repository.Tx, userID int64) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM queue WHERE user_id = $1;`, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *queueRepo) IsUnique(ctx context.Context, tx repository.Tx, postID string, userID int64) (bool, error) {
	const q = `
SELECT EXISTS (SELECT 1 FROM queue WHERE post_id = $1 AND user_id = $2)
	OR EXISTS (SELECT 1 FROM processed WHERE post_id = $1 AND user_id = $2);`
	row, err := pickRow(ctx, r.pool, tx, q, postID, userID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return !exists, nil
}

func (r *queueRepo) ListUserIDsWithBacklog(ctx context.Context, tx repository.Tx) ([]int64, error) {
	rows, err := pickRows(ctx, r.pool, tx, `SELECT DISTINCT user_id FROM queue;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
