package repository

import (
	"context"
	"fmt"
	"tradejournal/internal/domain"
)

type DividendHistoryRepository interface {
	Get(ctx context.Context, userID, date string) (*domain.DividendHistory, error)
	Put(ctx context.Context, userID string, history domain.DividendHistory) error
	Delete(ctx context.Context, userID, date string) error
}

type dividendHistoryRepositoryHandler struct {
	Store DocumentRepository
}

func NewDividendHistoryRepository(store DocumentRepository) DividendHistoryRepository {
	return dividendHistoryRepositoryHandler{
		Store: store,
	}
}

func (h dividendHistoryRepositoryHandler) Get(ctx context.Context, userID, date string) (*domain.DividendHistory, error) {
	out := domain.DividendHistory{}
	found, err := getJSON(ctx, h.Store, userID, CollectionDividendHistory, date, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if out.Date == "" {
		out.Date = date
	}
	return &out, nil
}

func (h dividendHistoryRepositoryHandler) Put(ctx context.Context, userID string, history domain.DividendHistory) error {
	return putJSON(ctx, h.Store, userID, CollectionDividendHistory, history.Date, history)
}

func (h dividendHistoryRepositoryHandler) Delete(ctx context.Context, userID, date string) error {
	err := h.Store.Delete(ctx, userID, CollectionDividendHistory, date)
	if err != nil {
		return fmt.Errorf("failed to delete dividend history for %s: %w", date, err)
	}
	return nil
}
