package telegram

import (
	"context"
	"log"
	"sync"

	"telegram-media-relay/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements adapter.TelegramBotAdapter for local/dev runs.
// It logs calls instead of talking to Telegram and hands out sequential
// message ids so the digest synchronizer behaves normally.
type NoopBotAdapter struct {
	mu     sync.Mutex
	nextID int
}

func NewNoopBotAdapter() *NoopBotAdapter {
	return &NoopBotAdapter{}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.mu.Unlock()
	log.Printf("[noop-telegram] send to chat %d (message %d): %s\n", chatID, id, text)
	return id, nil
}

func (b *NoopBotAdapter) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	log.Printf("[noop-telegram] edit message %d in chat %d: %s\n", messageID, chatID, text)
	return nil
}

func (b *NoopBotAdapter) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	log.Printf("[noop-telegram] delete message %d in chat %d\n", messageID, chatID)
	return nil
}

func (b *NoopBotAdapter) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	log.Printf("[noop-telegram] pin message %d in chat %d\n", messageID, chatID)
	return nil
}
