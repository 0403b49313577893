package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-media-relay/internal/domain/ports/repository"
	"telegram-media-relay/internal/infra/metrics"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Stats is a point-in-time snapshot of the engine served by the admin API.
type Stats struct {
	QueueByState   map[string]int `json:"queue_by_state"`
	ProcessedTotal int            `json:"processed_total"`
	UsersTotal     int            `json:"users_total"`
}

type StatsUseCase interface {
	Snapshot(ctx context.Context) (*Stats, error)
}

type statsUC struct {
	queue     repository.QueueRepository
	processed repository.ProcessedRepository
	users     repository.UserRepository
	log       *zerolog.Logger
}

func NewStatsUseCase(
	queue repository.QueueRepository,
	processed repository.ProcessedRepository,
	users repository.UserRepository,
	logger *zerolog.Logger,
) *statsUC {
	compLog := logger.With().Str("component", "StatsUseCase").Logger()
	return &statsUC{queue: queue, processed: processed, users: users, log: &compLog}
}

func (u *statsUC) Snapshot(ctx context.Context) (*Stats, error) {
	counts, err := u.queue.CountByState(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byState := make(map[string]int, len(counts))
	for st, n := range counts {
		byState[string(st)] = n
		metrics.SetQueueDepth(string(st), int64(n))
	}
	processedTotal, err := u.processed.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	usersTotal, err := u.users.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	return &Stats{
		QueueByState:   byState,
		ProcessedTotal: processedTotal,
		UsersTotal:     usersTotal,
	}, nil
}
