package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"tradejournal/internal/domain"
)

// PositionRepository holds the open positions, one document per ticker
type PositionRepository interface {
	Get(ctx context.Context, userID, ticker string) (*domain.CurrentPosition, error)
	Put(ctx context.Context, userID string, position domain.CurrentPosition) error
	Delete(ctx context.Context, userID, ticker string) error
	GetPortfolio(ctx context.Context, userID string) (*domain.Portfolio, error)
}

type positionRepositoryHandler struct {
	Store DocumentRepository
}

func NewPositionRepository(store DocumentRepository) PositionRepository {
	return positionRepositoryHandler{
		Store: store,
	}
}

func (h positionRepositoryHandler) Get(ctx context.Context, userID, ticker string) (*domain.CurrentPosition, error) {
	out := domain.CurrentPosition{}
	found, err := getJSON(ctx, h.Store, userID, CollectionCurrentPositions, ticker, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

func (h positionRepositoryHandler) Put(ctx context.Context, userID string, position domain.CurrentPosition) error {
	if position.IsFlat() {
		return h.Delete(ctx, userID, position.Ticker)
	}
	return putJSON(ctx, h.Store, userID, CollectionCurrentPositions, position.Ticker, position)
}

func (h positionRepositoryHandler) Delete(ctx context.Context, userID, ticker string) error {
	err := h.Store.Delete(ctx, userID, CollectionCurrentPositions, ticker)
	if err != nil {
		return fmt.Errorf("failed to delete position %s: %w", ticker, err)
	}
	return nil
}

func (h positionRepositoryHandler) GetPortfolio(ctx context.Context, userID string) (*domain.Portfolio, error) {
	docs, err := h.Store.List(ctx, userID, CollectionCurrentPositions, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	portfolio := domain.NewPortfolio()
	for _, doc := range docs {
		p := domain.CurrentPosition{}
		if err := json.Unmarshal(doc.Data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode position %s: %w", doc.Key, err)
		}
		if p.Ticker == "" {
			p.Ticker = doc.Key
		}
		portfolio.Positions[p.Ticker] = &p
	}
	return portfolio, nil
}
