package repository

import (
	"context"
	"tradejournal/internal/domain"
)

const statsKey = "summary"

// StatsRepository keeps the simple trade counters
type StatsRepository interface {
	Get(ctx context.Context, userID string) (*domain.Stats, error)
	Put(ctx context.Context, userID string, stats domain.Stats) error
}

type statsRepositoryHandler struct {
	Store DocumentRepository
}

func NewStatsRepository(store DocumentRepository) StatsRepository {
	return statsRepositoryHandler{
		Store: store,
	}
}

// Get returns zeroed counters for a user with no trades
func (h statsRepositoryHandler) Get(ctx context.Context, userID string) (*domain.Stats, error) {
	out := domain.Stats{}
	if _, err := getJSON(ctx, h.Store, userID, CollectionStats, statsKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h statsRepositoryHandler) Put(ctx context.Context, userID string, stats domain.Stats) error {
	return putJSON(ctx, h.Store, userID, CollectionStats, statsKey, stats)
}
