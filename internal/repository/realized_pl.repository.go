package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"tradejournal/internal/domain"
	"tradejournal/internal/util"

	"github.com/shopspring/decimal"
)

type RealizedPLRepository interface {
	Get(ctx context.Context, userID, date string) (*domain.RealizedPLEntry, error)
	Put(ctx context.Context, userID string, entry domain.RealizedPLEntry) error
	GetLatestBefore(ctx context.Context, userID, date string) (*domain.RealizedPLEntry, error)
	List(ctx context.Context, userID, start, end string) ([]domain.RealizedPLEntry, error)
	// EnsureDate creates the entry for date by carrying the previous
	// cumulative value forward
	EnsureDate(ctx context.Context, userID, date string) (*domain.RealizedPLEntry, error)
}

type realizedPLRepositoryHandler struct {
	Store DocumentRepository
}

func NewRealizedPLRepository(store DocumentRepository) RealizedPLRepository {
	return realizedPLRepositoryHandler{
		Store: store,
	}
}

func (h realizedPLRepositoryHandler) Get(ctx context.Context, userID, date string) (*domain.RealizedPLEntry, error) {
	out := domain.RealizedPLEntry{}
	found, err := getJSON(ctx, h.Store, userID, CollectionRealizedPLByDate, date, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	out.Date = date
	return &out, nil
}

func (h realizedPLRepositoryHandler) Put(ctx context.Context, userID string, entry domain.RealizedPLEntry) error {
	return putJSON(ctx, h.Store, userID, CollectionRealizedPLByDate, entry.Date, entry)
}

func (h realizedPLRepositoryHandler) GetLatestBefore(ctx context.Context, userID, date string) (*domain.RealizedPLEntry, error) {
	end, err := util.AddDays(date, -1)
	if err != nil {
		return nil, err
	}
	entries, err := h.list(ctx, userID, ListOptions{
		EndKey:     end,
		Limit:      1,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (h realizedPLRepositoryHandler) List(ctx context.Context, userID, start, end string) ([]domain.RealizedPLEntry, error) {
	return h.list(ctx, userID, ListOptions{
		StartKey: start,
		EndKey:   end,
	})
}

func (h realizedPLRepositoryHandler) list(ctx context.Context, userID string, opts ListOptions) ([]domain.RealizedPLEntry, error) {
	docs, err := h.Store.List(ctx, userID, CollectionRealizedPLByDate, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list realized pl: %w", err)
	}
	out := []domain.RealizedPLEntry{}
	for _, doc := range docs {
		entry := domain.RealizedPLEntry{}
		if err := json.Unmarshal(doc.Data, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode realized pl %s: %w", doc.Key, err)
		}
		entry.Date = doc.Key
		out = append(out, entry)
	}
	return out, nil
}

func (h realizedPLRepositoryHandler) EnsureDate(ctx context.Context, userID, date string) (*domain.RealizedPLEntry, error) {
	existing, err := h.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	previous, err := h.GetLatestBefore(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	entry := domain.RealizedPLEntry{
		Date:                 date,
		RealizedPL:           decimal.Zero,
		CumulativeRealizedPL: decimal.Zero,
	}
	if previous != nil {
		entry.CumulativeRealizedPL = previous.CumulativeRealizedPL
	}
	if err := h.Put(ctx, userID, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
