package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"telegram-media-relay/internal/domain"
	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/domain/ports/repository"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

type UserUseCase interface {
	// RegisterOrFetch returns the stored user, creating an allowed record on
	// first contact when the user is on the allow-list, a denied one otherwise.
	RegisterOrFetch(ctx context.Context, userID, chatID int64) (*model.User, error)

	// Authorize returns domain.ErrUserDenied unless the user is allowed.
	Authorize(ctx context.Context, userID, chatID int64) error
}

type userUC struct {
	users    repository.UserRepository
	allowed  map[int64]struct{}
	allowAll bool
	log      *zerolog.Logger
}

// NewUserUseCase builds the access-control use case. An empty allow-list
// means every user is accepted.
func NewUserUseCase(users repository.UserRepository, allowedIDs []int64, logger *zerolog.Logger) *userUC {
	compLog := logger.With().Str("component", "UserUseCase").Logger()
	allowed := make(map[int64]struct{}, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = struct{}{}
	}
	return &userUC{
		users:    users,
		allowed:  allowed,
		allowAll: len(allowedIDs) == 0,
		log:      &compLog,
	}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, userID, chatID int64) (*model.User, error) {
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	status := model.UserStatusDenied
	if u.allowAll {
		status = model.UserStatusAllowed
	} else if _, ok := u.allowed[userID]; ok {
		status = model.UserStatusAllowed
	}
	user = &model.User{UserID: userID, ChatID: chatID, Status: status}
	if err := u.users.Save(ctx, repository.NoTX, user); err != nil {
		return nil, err
	}
	u.log.Info().Int64("user_id", userID).Str("status", string(status)).Msg("new user registered")
	return user, nil
}

func (u *userUC) Authorize(ctx context.Context, userID, chatID int64) error {
	user, err := u.RegisterOrFetch(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if user.Status != model.UserStatusAllowed {
		u.log.Warn().Int64("user_id", userID).Msg("request from denied user rejected")
		return domain.ErrUserDenied
	}
	return nil
}
