package adapter

import "context"

// TelegramBotAdapter is the narrow messaging surface the engine consumes.
// Send returns the id of the created message so the digest synchronizer can
// track it.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	PinMessage(ctx context.Context, chatID int64, messageID int) error
}
