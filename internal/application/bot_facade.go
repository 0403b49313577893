package application

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"telegram-media-relay/internal/domain"
	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/infra/messages"
	"telegram-media-relay/internal/usecase"
)

// Supported link shapes. Post shortcodes are exactly 11 characters; an
// account link is the profile URL without a path beyond the username.
var (
	postLinkRe    = regexp.MustCompile(`^https://www\.instagram\.com/(?:p|reel)/([A-Za-z0-9_-]{11})/?(?:\?.*)?$`)
	accountLinkRe = regexp.MustCompile(`^https://www\.instagram\.com/([A-Za-z0-9._]{1,30})/?$`)
)

// ParsedLink is one recognized link from an incoming message.
type ParsedLink struct {
	Type model.LinkType
	ID   string
	URL  string
}

// ParseLink classifies a single trimmed line. Returns
// domain.ErrInvalidArgument for anything that is not a supported link.
func ParseLink(line string) (ParsedLink, error) {
	if m := postLinkRe.FindStringSubmatch(line); m != nil {
		return ParsedLink{Type: model.LinkTypePost, ID: m[1], URL: line}, nil
	}
	if m := accountLinkRe.FindStringSubmatch(line); m != nil {
		name := m[1]
		if name == "p" || name == "reel" {
			return ParsedLink{}, domain.ErrInvalidArgument
		}
		return ParsedLink{Type: model.LinkTypeAccount, ID: name, URL: line}, nil
	}
	return ParsedLink{}, domain.ErrInvalidArgument
}

// BotFacade composes the use cases into the chat surface: every handler
// returns the string the adapter should send back, so the transport layer
// stays free of domain decisions.
type BotFacade struct {
	queueUC  usecase.QueueUseCase
	userUC   usecase.UserUseCase
	digestUC usecase.DigestUseCase
	statsUC  usecase.StatsUseCase
	catalog  *messages.Catalog
	log      *zerolog.Logger
}

func NewBotFacade(
	queueUC usecase.QueueUseCase,
	userUC usecase.UserUseCase,
	digestUC usecase.DigestUseCase,
	statsUC usecase.StatsUseCase,
	catalog *messages.Catalog,
	logger *zerolog.Logger,
) *BotFacade {
	compLog := logger.With().Str("component", "BotFacade").Logger()
	return &BotFacade{
		queueUC:  queueUC,
		userUC:   userUC,
		digestUC: digestUC,
		statsUC:  statsUC,
		catalog:  catalog,
		log:      &compLog,
	}
}

// HandleStart registers the user and brings up their pinned digest.
func (b *BotFacade) HandleStart(ctx context.Context, userID, chatID int64) (string, error) {
	user, err := b.userUC.RegisterOrFetch(ctx, userID, chatID)
	if err != nil {
		return b.catalog.T("internal_error"), err
	}
	if user.Status != model.UserStatusAllowed {
		return b.catalog.T("denied"), nil
	}
	if err := b.digestUC.SyncUser(ctx, userID, chatID); err != nil {
		b.log.Warn().Err(err).Int64("user_id", userID).Msg("digest not created on /start")
	}
	return b.catalog.T("welcome"), nil
}

// HandleIncoming takes a free-form message: one or more links, one per
// line. Each line is classified and enqueued independently; the reply
// summarizes what happened.
func (b *BotFacade) HandleIncoming(ctx context.Context, userID, chatID int64, messageID int, text string) (string, error) {
	if err := b.userUC.Authorize(ctx, userID, chatID); err != nil {
		if errors.Is(err, domain.ErrUserDenied) {
			return b.catalog.T("denied"), nil
		}
		return b.catalog.T("internal_error"), err
	}

	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return b.catalog.T("unknown_command"), nil
	}

	accepted, duplicates, invalid := 0, 0, 0
	var single string // reply when the message held exactly one line
	for _, line := range lines {
		reply, outcome := b.handleLine(ctx, userID, chatID, messageID, line)
		single = reply
		switch outcome {
		case lineAccepted:
			accepted++
		case lineDuplicate:
			duplicates++
		default:
			invalid++
		}
	}

	if accepted > 0 {
		if err := b.digestUC.SyncUser(ctx, userID, chatID); err != nil {
			b.log.Warn().Err(err).Int64("user_id", userID).Msg("digest not refreshed after intake")
		}
	}

	if len(lines) == 1 {
		return single, nil
	}
	return b.catalog.T("intake_summary", accepted, duplicates, invalid), nil
}

type lineOutcome int

const (
	lineAccepted lineOutcome = iota
	lineDuplicate
	lineInvalid
)

func (b *BotFacade) handleLine(ctx context.Context, userID, chatID int64, messageID int, line string) (string, lineOutcome) {
	link, err := ParseLink(line)
	if err != nil {
		return b.catalog.T("post_invalid", line), lineInvalid
	}

	req := usecase.EnqueueRequest{
		UserID:    userID,
		ChatID:    chatID,
		MessageID: messageID,
		PostID:    link.ID,
		PostURL:   link.URL,
	}

	if link.Type == model.LinkTypeAccount {
		added, err := b.queueUC.EnqueueAccount(ctx, req)
		if err != nil {
			b.log.Error().Err(err).Int64("user_id", userID).Str("account", link.ID).Msg("account intake failed")
			return b.catalog.T("internal_error"), lineInvalid
		}
		if added == 0 {
			return b.catalog.T("account_empty", link.ID), lineDuplicate
		}
		return b.catalog.T("account_queued", link.ID, added), lineAccepted
	}

	job, err := b.queueUC.Enqueue(ctx, req)
	switch {
	case err == nil:
		return b.catalog.T("post_queued", link.ID, job.ScheduledTime.Format("2006-01-02 15:04")), lineAccepted
	case errors.Is(err, domain.ErrDuplicateRequest):
		return b.catalog.T("post_duplicate", link.ID), lineDuplicate
	default:
		b.log.Error().Err(err).Int64("user_id", userID).Str("post_id", link.ID).Msg("post intake failed")
		return b.catalog.T("internal_error"), lineInvalid
	}
}

// HandleStats renders the admin stats reply.
func (b *BotFacade) HandleStats(ctx context.Context) (string, error) {
	stats, err := b.statsUC.Snapshot(ctx)
	if err != nil {
		return b.catalog.T("internal_error"), err
	}
	return b.catalog.T("stats",
		stats.QueueByState[string(model.JobStateWaiting)],
		stats.QueueByState[string(model.JobStateProcessing)],
		stats.QueueByState[string(model.JobStateError)],
		stats.ProcessedTotal,
		stats.UsersTotal,
	), nil
}
