package repository

import (
	"context"

	"telegram-media-relay/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	// Save inserts the user or leaves an existing row untouched.
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, userID int64) (*model.User, error)
	List(ctx context.Context, tx Tx, limit int) ([]*model.User, error)
	Count(ctx context.Context, tx Tx) (int, error)
}
