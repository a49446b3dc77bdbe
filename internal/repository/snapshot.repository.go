package repository

import (
	"context"
	"fmt"
	"tradejournal/internal/domain"
	"tradejournal/internal/util"
)

type SnapshotRepository interface {
	// Get returns nil if no snapshot is stored for the date
	Get(ctx context.Context, userID, date string) (*domain.DailySnapshot, error)
	Put(ctx context.Context, userID string, snapshot *domain.DailySnapshot) error
	Delete(ctx context.Context, userID, date string) error
	// List returns snapshots in [start, end] ascending. empty bounds are open
	List(ctx context.Context, userID, start, end string) ([]*domain.DailySnapshot, error)
	// GetLatestBefore returns the nearest snapshot strictly before date
	GetLatestBefore(ctx context.Context, userID, date string) (*domain.DailySnapshot, error)
}

type snapshotRepositoryHandler struct {
	Store DocumentRepository
}

func NewSnapshotRepository(store DocumentRepository) SnapshotRepository {
	return snapshotRepositoryHandler{
		Store: store,
	}
}

func (h snapshotRepositoryHandler) Get(ctx context.Context, userID, date string) (*domain.DailySnapshot, error) {
	doc, err := h.Store.Get(ctx, userID, CollectionDailySnapshots, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for %s: %w", date, err)
	}
	if doc == nil {
		return nil, nil
	}
	return NormalizeSnapshot(doc.Key, doc.Data)
}

func (h snapshotRepositoryHandler) Put(ctx context.Context, userID string, snapshot *domain.DailySnapshot) error {
	if !util.IsValidDate(snapshot.Date) {
		return fmt.Errorf("failed to put snapshot: invalid date %q", snapshot.Date)
	}
	snapshot.Version = domain.SnapshotVersion
	return putJSON(ctx, h.Store, userID, CollectionDailySnapshots, snapshot.Date, snapshot)
}

func (h snapshotRepositoryHandler) Delete(ctx context.Context, userID, date string) error {
	err := h.Store.Delete(ctx, userID, CollectionDailySnapshots, date)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot for %s: %w", date, err)
	}
	return nil
}

func (h snapshotRepositoryHandler) List(ctx context.Context, userID, start, end string) ([]*domain.DailySnapshot, error) {
	docs, err := h.Store.List(ctx, userID, CollectionDailySnapshots, ListOptions{
		StartKey: start,
		EndKey:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return normalizeAll(docs)
}

func (h snapshotRepositoryHandler) GetLatestBefore(ctx context.Context, userID, date string) (*domain.DailySnapshot, error) {
	end, err := util.AddDays(date, -1)
	if err != nil {
		return nil, err
	}
	docs, err := h.Store.List(ctx, userID, CollectionDailySnapshots, ListOptions{
		EndKey:     end,
		Limit:      1,
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot before %s: %w", date, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return NormalizeSnapshot(docs[0].Key, docs[0].Data)
}

func normalizeAll(docs []Document) ([]*domain.DailySnapshot, error) {
	out := make([]*domain.DailySnapshot, 0, len(docs))
	for _, doc := range docs {
		s, err := NormalizeSnapshot(doc.Key, doc.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
