package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"tradejournal/internal/domain"
)

// RefetchQueueRepository is the durable per-user queue of
// (ticker, date) pairs that were valued without a price
type RefetchQueueRepository interface {
	// Enqueue reports false if the pair was already queued
	Enqueue(ctx context.Context, userID, ticker, date string) (bool, error)
	Put(ctx context.Context, userID string, item domain.RefetchItem) error
	Remove(ctx context.Context, userID string, item domain.RefetchItem) error
	List(ctx context.Context, userID string) ([]domain.RefetchItem, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

type refetchQueueRepositoryHandler struct {
	Store DocumentRepository
	now   func() time.Time
}

func NewRefetchQueueRepository(store DocumentRepository) RefetchQueueRepository {
	return refetchQueueRepositoryHandler{
		Store: store,
		now:   time.Now,
	}
}

func (h refetchQueueRepositoryHandler) Enqueue(ctx context.Context, userID, ticker, date string) (bool, error) {
	key := domain.RefetchKey(ticker, date)
	existing, err := h.Store.Get(ctx, userID, CollectionPriceRefetchQueue, key)
	if err != nil {
		return false, fmt.Errorf("failed to check refetch queue: %w", err)
	}
	if existing != nil {
		return false, nil
	}
	item := domain.RefetchItem{
		Ticker:     ticker,
		Date:       date,
		EnqueuedAt: h.now().UTC(),
	}
	if err := h.Put(ctx, userID, item); err != nil {
		return false, err
	}
	return true, nil
}

func (h refetchQueueRepositoryHandler) Put(ctx context.Context, userID string, item domain.RefetchItem) error {
	return putJSON(ctx, h.Store, userID, CollectionPriceRefetchQueue, item.Key(), item)
}

func (h refetchQueueRepositoryHandler) Remove(ctx context.Context, userID string, item domain.RefetchItem) error {
	err := h.Store.Delete(ctx, userID, CollectionPriceRefetchQueue, item.Key())
	if err != nil {
		return fmt.Errorf("failed to dequeue %s: %w", item.Key(), err)
	}
	return nil
}

func (h refetchQueueRepositoryHandler) List(ctx context.Context, userID string) ([]domain.RefetchItem, error) {
	docs, err := h.Store.List(ctx, userID, CollectionPriceRefetchQueue, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list refetch queue: %w", err)
	}
	out := []domain.RefetchItem{}
	for _, doc := range docs {
		item := domain.RefetchItem{}
		if err := json.Unmarshal(doc.Data, &item); err != nil {
			return nil, fmt.Errorf("failed to decode refetch item %s: %w", doc.Key, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func (h refetchQueueRepositoryHandler) ListUserIDs(ctx context.Context) ([]string, error) {
	return h.Store.ListUserIDs(ctx, CollectionPriceRefetchQueue)
}
