package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-media-relay/internal/domain"
	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/domain/ports/adapter"
	"telegram-media-relay/internal/domain/ports/repository"
	"telegram-media-relay/internal/infra/metrics"
)

// Compile-time check
var _ DigestUseCase = (*digestUC)(nil)

// DigestConfig are the timing knobs of the synchronization protocol.
type DigestConfig struct {
	RenewAfter  time.Duration // recreate the message past this age
	EditWindow  time.Duration // the platform refuses edits past this age
	ClaimPoll   time.Duration // poll step while another caller holds the claim
	ClaimStale  time.Duration // steal a claim whose holder went quiet this long
	SyncTimeout time.Duration // per-user bound during a full refresh pass
	WindowSize  int           // queue/processed entries shown per section
}

type DigestUseCase interface {
	// SyncUser brings the user's status digest message in line with the
	// current queue and history. Safe to call from concurrent paths: callers
	// serialize on the status record's cooperative claim.
	SyncUser(ctx context.Context, userID, chatID int64) error

	// RefreshAll syncs the digest of every known user.
	RefreshAll(ctx context.Context) error
}

type digestUC struct {
	queue     repository.QueueRepository
	processed repository.ProcessedRepository
	statuses  repository.StatusRecordRepository
	users     repository.UserRepository
	bot       adapter.TelegramBotAdapter
	cfg       DigestConfig
	log       *zerolog.Logger
}

func NewDigestUseCase(
	queue repository.QueueRepository,
	processed repository.ProcessedRepository,
	statuses repository.StatusRecordRepository,
	users repository.UserRepository,
	bot adapter.TelegramBotAdapter,
	cfg DigestConfig,
	logger *zerolog.Logger,
) *digestUC {
	if cfg.RenewAfter <= 0 {
		cfg.RenewAfter = 24 * time.Hour
	}
	if cfg.EditWindow <= 0 {
		cfg.EditWindow = 48 * time.Hour
	}
	if cfg.ClaimPoll <= 0 {
		cfg.ClaimPoll = time.Second
	}
	if cfg.ClaimStale <= 0 {
		cfg.ClaimStale = 5 * time.Minute
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = time.Minute
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 5
	}
	compLog := logger.With().Str("component", "DigestUseCase").Logger()
	return &digestUC{
		queue:     queue,
		processed: processed,
		statuses:  statuses,
		users:     users,
		bot:       bot,
		cfg:       cfg,
		log:       &compLog,
	}
}

func (u *digestUC) RefreshAll(ctx context.Context) error {
	users, err := u.users.List(ctx, repository.NoTX, 1000)
	if err != nil {
		return err
	}
	var firstErr error
	for _, usr := range users {
		// A bounded context per user keeps one slow or contended chat from
		// stalling the rest of the pass.
		syncCtx, cancel := context.WithTimeout(ctx, u.cfg.SyncTimeout)
		err := u.SyncUser(syncCtx, usr.UserID, usr.ChatID)
		cancel()
		if err != nil {
			u.log.Error().Err(err).Int64("user_id", usr.UserID).Msg("digest refresh failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (u *digestUC) SyncUser(ctx context.Context, userID, chatID int64) error {
	text, err := u.render(ctx, userID)
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}
	hash := model.ContentHash(text)

	rec, err := u.statuses.Find(ctx, repository.NoTX, chatID, model.StatusMessageType)
	if errors.Is(err, domain.ErrNotFound) {
		return u.create(ctx, chatID, text, hash)
	}
	if err != nil {
		return err
	}

	rec, err = u.claim(ctx, rec)
	if err != nil {
		return err
	}

	age := time.Since(rec.CreatedAt)
	switch {
	case age > u.cfg.RenewAfter:
		return u.recreate(ctx, rec, age, text, hash)
	case hash != rec.ContentHash:
		return u.edit(ctx, rec, text, hash)
	default:
		// Content unchanged; the claim still has to be released.
		metrics.IncDigestSync("unchanged")
		return u.statuses.Release(ctx, repository.NoTX, rec.ChatID, rec.MessageType, rec.MessageID, rec.ContentHash, false)
	}
}

// claim takes the record's cooperative lock, polling while another caller
// holds it. Update frequency per chat is low, so the 1-second granularity
// costs little. A claim whose holder has gone quiet past the staleness
// cutoff is taken over, so a crash mid-sync never wedges the record.
func (u *digestUC) claim(ctx context.Context, rec *model.StatusRecord) (*model.StatusRecord, error) {
	for {
		if rec.SyncState != model.SyncStateUpdating || time.Since(rec.UpdatedAt) > u.cfg.ClaimStale {
			err := u.statuses.Claim(ctx, rec.ChatID, rec.MessageType, u.cfg.ClaimStale)
			if err == nil {
				// Re-read for the hash and created_at the concurrent holder
				// may have written before releasing.
				return u.statuses.Find(ctx, repository.NoTX, rec.ChatID, rec.MessageType)
			}
			if !errors.Is(err, domain.ErrStatusClaimHeld) {
				return nil, err
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(u.cfg.ClaimPoll):
		}
		var err error
		rec, err = u.statuses.Find(ctx, repository.NoTX, rec.ChatID, rec.MessageType)
		if err != nil {
			return nil, err
		}
	}
}

func (u *digestUC) create(ctx context.Context, chatID int64, text, hash string) error {
	messageID, err := u.bot.SendMessage(ctx, chatID, text)
	if err != nil {
		metrics.IncDigestSync("failed")
		u.log.Error().Err(err).Int64("chat_id", chatID).Msg("digest message not sent, no record written")
		return err
	}
	if err := u.bot.PinMessage(ctx, chatID, messageID); err != nil {
		u.log.Warn().Err(err).Int64("chat_id", chatID).Msg("digest message not pinned")
	}
	rec := &model.StatusRecord{
		MessageID:   messageID,
		ChatID:      chatID,
		MessageType: model.StatusMessageType,
		ContentHash: hash,
		Producer:    "bot",
	}
	if err := u.statuses.Insert(ctx, repository.NoTX, rec); err != nil {
		return err
	}
	metrics.IncDigestSync("created")
	u.log.Info().Int64("chat_id", chatID).Int("message_id", messageID).Msg("digest message created")
	return nil
}

// recreate replaces a message the platform will soon refuse to edit. The old
// message is deleted best-effort, and only while it is still young enough for
// the platform to allow deletion.
func (u *digestUC) recreate(ctx context.Context, rec *model.StatusRecord, age time.Duration, text, hash string) error {
	if age <= u.cfg.EditWindow {
		if err := u.bot.DeleteMessage(ctx, rec.ChatID, rec.MessageID); err != nil {
			u.log.Warn().Err(err).Int64("chat_id", rec.ChatID).Int("message_id", rec.MessageID).
				Msg("stale digest message not deleted")
		}
	} else {
		u.log.Warn().Int64("chat_id", rec.ChatID).Int("message_id", rec.MessageID).
			Dur("age", age).Msg("digest message past the edit window, leaving it in place")
	}

	messageID, err := u.bot.SendMessage(ctx, rec.ChatID, text)
	if err != nil {
		metrics.IncDigestSync("failed")
		u.log.Error().Err(err).Int64("chat_id", rec.ChatID).Msg("digest renewal not sent")
		// Release with the previous content so the next cycle retries from scratch.
		return u.releaseUnchanged(ctx, rec, err)
	}
	if err := u.bot.PinMessage(ctx, rec.ChatID, messageID); err != nil {
		u.log.Warn().Err(err).Int64("chat_id", rec.ChatID).Msg("digest message not pinned")
	}
	if err := u.statuses.Release(ctx, repository.NoTX, rec.ChatID, rec.MessageType, messageID, hash, true); err != nil {
		return err
	}
	metrics.IncDigestSync("recreated")
	u.log.Info().Int64("chat_id", rec.ChatID).Int("message_id", messageID).Msg("digest message renewed")
	return nil
}

func (u *digestUC) edit(ctx context.Context, rec *model.StatusRecord, text, hash string) error {
	if err := u.bot.EditMessage(ctx, rec.ChatID, rec.MessageID, text); err != nil {
		metrics.IncDigestSync("failed")
		u.log.Error().Err(err).Int64("chat_id", rec.ChatID).Int("message_id", rec.MessageID).
			Msg("digest message not edited")
		return u.releaseUnchanged(ctx, rec, err)
	}
	if err := u.statuses.Release(ctx, repository.NoTX, rec.ChatID, rec.MessageType, rec.MessageID, hash, false); err != nil {
		return err
	}
	metrics.IncDigestSync("edited")
	return nil
}

// releaseUnchanged drops the claim without committing a new hash: the stored
// record keeps describing the message that actually exists in the chat.
func (u *digestUC) releaseUnchanged(ctx context.Context, rec *model.StatusRecord, cause error) error {
	if err := u.statuses.Release(ctx, repository.NoTX, rec.ChatID, rec.MessageType, rec.MessageID, rec.ContentHash, false); err != nil {
		u.log.Error().Err(err).Int64("chat_id", rec.ChatID).Msg("claim release failed")
	}
	return cause
}

// render builds the digest: the head of the queue and the most recent
// history, with totals.
func (u *digestUC) render(ctx context.Context, userID int64) (string, error) {
	queued, err := u.queue.UserQueue(ctx, repository.NoTX, userID, u.cfg.WindowSize)
	if err != nil {
		return "", err
	}
	queueTotal, err := u.queue.CountByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return "", err
	}
	history, err := u.processed.UserProcessed(ctx, repository.NoTX, userID, u.cfg.WindowSize)
	if err != nil {
		return "", err
	}
	historyTotal, err := u.processed.CountByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Queue</b> (%d)\n", queueTotal)
	if len(queued) == 0 {
		b.WriteString("<code>queue is empty</code>\n")
	}
	for _, j := range queued {
		fmt.Fprintf(&b, "+ <code>%s: will be started %s</code>\n", j.PostID, j.ScheduledTime.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "\n<b>Processed</b> (%d)\n", historyTotal)
	if len(history) == 0 {
		b.WriteString("<code>no processed posts</code>\n")
	}
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]
		fmt.Fprintf(&b, "* <code>%s: %s at %s</code>\n", rec.PostID, rec.State, rec.Timestamp.Format("2006-01-02 15:04"))
	}
	return b.String(), nil
}
