package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-media-relay/internal/application"
	"telegram-media-relay/internal/config"
	"telegram-media-relay/internal/domain/ports/adapter"
	"telegram-media-relay/internal/infra/worker"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// RealTelegramBotAdapter implements adapter.TelegramBotAdapter with tgbotapi
// and runs the long-polling intake loop, fanning updates out over a worker
// pool so a slow account walk does not block other chats.
type RealTelegramBotAdapter struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	facade      *application.BotFacade
	pool        *worker.Pool
	adminIDsMap map[int64]struct{}
	log         *zerolog.Logger

	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, pool *worker.Pool, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	adminMap := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		adminMap[id] = struct{}{}
	}

	compLog := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{
		bot:         bot,
		cfg:         cfg,
		pool:        pool,
		adminIDsMap: adminMap,
		log:         &compLog,
	}, nil
}

// SetFacade wires the chat handlers in. The adapter is constructed before
// the facade because the digest synchronizer needs the messaging surface;
// call this before StartPolling.
func (r *RealTelegramBotAdapter) SetFacade(facade *application.BotFacade) {
	r.facade = facade
}

// SendMessage sends HTML-formatted text and returns the created message id,
// which the digest synchronizer tracks for later edits.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	sent, err := r.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (r *RealTelegramBotAdapter) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	_, err := r.bot.Send(edit)
	return err
}

func (r *RealTelegramBotAdapter) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := r.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (r *RealTelegramBotAdapter) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := r.bot.Request(tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	})
	return err
}

// StartPolling pulls updates until ctx is canceled.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	r.log.Info().Str("username", r.bot.Self.UserName).Msg("Starting update polling")
	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			r.log.Info().Msg("Stopping update polling")
			return ctx.Err()
		case update := <-updates:
			upd := update
			if err := r.pool.Submit(func(taskCtx context.Context) error {
				return r.handleUpdate(taskCtx, upd)
			}); err != nil {
				r.log.Warn().Err(err).Msg("update dropped")
			}
		}
	}
}

// StopPolling stops the polling loop gracefully.
func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if r.facade == nil || update.Message == nil || update.Message.From == nil {
		return nil
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	messageID := update.Message.MessageID
	text := strings.TrimSpace(update.Message.Text)

	var reply string
	var err error
	switch {
	case text == "/start":
		reply, err = r.facade.HandleStart(ctx, userID, chatID)
	case text == "/stats":
		if !r.isAdmin(userID) {
			return nil
		}
		reply, err = r.facade.HandleStats(ctx)
	default:
		reply, err = r.facade.HandleIncoming(ctx, userID, chatID, messageID, text)
	}
	if err != nil {
		r.log.Error().Err(err).Int64("user_id", userID).Msg("update handling failed")
	}
	if reply == "" {
		return err
	}
	if _, sendErr := r.SendMessage(ctx, chatID, reply); sendErr != nil {
		r.log.Error().Err(sendErr).Int64("chat_id", chatID).Msg("reply not sent")
		return sendErr
	}
	return err
}

func (r *RealTelegramBotAdapter) isAdmin(userID int64) bool {
	_, ok := r.adminIDsMap[userID]
	return ok
}
