package l1_service

import (
	"context"
	"fmt"
	"time"
	"tradejournal/internal/calculator"
	"tradejournal/internal/domain"
	"tradejournal/internal/repository"

	"github.com/shopspring/decimal"
)

// TradeService keeps the current-positions book. history is the
// backfill walks' job
type TradeService interface {
	ApplyToPositions(ctx context.Context, userID string, delta domain.TradeDelta, allowPartial bool) (*PositionChange, error)
}

type tradeServiceHandler struct {
	PositionRepository repository.PositionRepository
	now                func() time.Time
}

func NewTradeService(positionRepository repository.PositionRepository) TradeService {
	return tradeServiceHandler{
		PositionRepository: positionRepository,
		now:                time.Now,
	}
}

type PositionChange struct {
	Position        domain.CurrentPosition
	RequestedShares decimal.Decimal
	AppliedShares   decimal.Decimal
	// zero for entries
	RealizedPL decimal.Decimal
}

func (c PositionChange) Partial() bool {
	return c.AppliedShares.LessThan(c.RequestedShares)
}

func (h tradeServiceHandler) ApplyToPositions(ctx context.Context, userID string, delta domain.TradeDelta, allowPartial bool) (*PositionChange, error) {
	existing, err := h.PositionRepository.Get(ctx, userID, delta.Ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to load position %s: %w", delta.Ticker, err)
	}
	position := domain.CurrentPosition{
		Ticker: delta.Ticker,
		Lots:   []domain.Lot{},
	}
	if existing != nil {
		position = *existing.DeepCopy()
	}

	change, err := applyToPosition(&position, delta, allowPartial)
	if err != nil {
		return nil, err
	}

	position.UpdatedAt = h.now().UTC()
	if err := h.PositionRepository.Put(ctx, userID, position); err != nil {
		return nil, fmt.Errorf("failed to save position %s: %w", delta.Ticker, err)
	}
	change.Position = position
	return change, nil
}

func applyToPosition(position *domain.CurrentPosition, delta domain.TradeDelta, allowPartial bool) (*PositionChange, error) {
	change := &PositionChange{
		RequestedShares: delta.Shares,
		AppliedShares:   delta.Shares,
		RealizedPL:      decimal.Zero,
	}

	if delta.IsEntry() {
		switch delta.Direction {
		case domain.DirectionLong:
			position.Lots = calculator.PushLot(position.Lots, domain.Lot{
				Shares: delta.Shares,
				Price:  delta.Price,
				Date:   delta.Date,
			})
		case domain.DirectionShort:
			short := domain.ShortPosition{
				Shares:        position.ShortShares,
				AvgShortPrice: position.AvgShortPrice,
			}
			calculator.OpenShort(&short, delta.Shares, delta.Price)
			position.ShortShares = short.Shares
			position.AvgShortPrice = short.AvgShortPrice
		}
		return change, nil
	}

	available := position.LongShares()
	if delta.Direction == domain.DirectionShort {
		available = position.ShortShares
	}
	if delta.Shares.GreaterThan(available) {
		if !allowPartial || !available.IsPositive() {
			return nil, domain.OverWithdrawalError{
				Ticker:    delta.Ticker,
				Direction: delta.Direction,
				Requested: delta.Shares,
				Available: available,
			}
		}
		change.AppliedShares = available
	}

	switch delta.Direction {
	case domain.DirectionLong:
		consumed := calculator.ConsumeLots(position.Lots, change.AppliedShares)
		position.Lots = consumed.RemainingLots
		change.RealizedPL = consumed.RemovedShares.Mul(delta.Price).Sub(consumed.RemovedCost)
	case domain.DirectionShort:
		change.RealizedPL = position.AvgShortPrice.Sub(delta.Price).Mul(change.AppliedShares)
		position.ShortShares = position.ShortShares.Sub(change.AppliedShares)
		if position.ShortShares.IsZero() {
			position.AvgShortPrice = decimal.Zero
		}
	}
	return change, nil
}
