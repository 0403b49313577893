package repository

import (
	"context"
	"time"

	"telegram-media-relay/internal/domain/model"
)

// StatusRecordRepository tracks the one live digest message per
// (chat_id, message_type).
type StatusRecordRepository interface {
	// Find returns the record for (chatID, messageType) or domain.ErrNotFound.
	Find(ctx context.Context, tx Tx, chatID int64, messageType string) (*model.StatusRecord, error)

	// Insert creates the row with sync state 'added'.
	Insert(ctx context.Context, tx Tx, rec *model.StatusRecord) error

	// Claim atomically moves the row to 'updating'. Returns
	// domain.ErrStatusClaimHeld when another caller already holds the claim.
	// A claim whose holder has not touched the row for longer than staleAfter
	// is treated as abandoned and taken over, so a crash between claim and
	// release cannot wedge the record.
	Claim(ctx context.Context, chatID int64, messageType string, staleAfter time.Duration) error

	// Release stores the rendered hash and message id and moves the row back
	// to 'updated'. When recreated is true created_at is reset as well, since
	// the edit window of the underlying message starts over.
	Release(ctx context.Context, tx Tx, chatID int64, messageType string, messageID int, contentHash string, recreated bool) error
}
