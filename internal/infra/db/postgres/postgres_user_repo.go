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

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (user_id, chat_id, status)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q, u.UserID, u.ChatID, u.Status)
	return err
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, userID int64) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT user_id, chat_id, status, created_at FROM users WHERE user_id = $1;`, userID)
	if err != nil {
		return nil, err
	}
	var u model.User
	var status string
	if err := row.Scan(&u.UserID, &u.ChatID, &status, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	u.Status = model.UserStatus(status)
	return &u, nil
}

func (r *userRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.User, error) {
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT user_id, chat_id, status, created_at FROM users ORDER BY created_at LIMIT $1;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		var u model.User
		var status string
		if err := rows.Scan(&u.UserID, &u.ChatID, &status, &u.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		u.Status = model.UserStatus(status)
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (r *userRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
