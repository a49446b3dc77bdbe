package l2_service

import (
	"context"
	"fmt"
	"time"
	"tradejournal/internal/calculator"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	"tradejournal/internal/metrics"
	"tradejournal/internal/repository"
	l1_service "tradejournal/internal/service/l1"
	"tradejournal/internal/util"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const LiveSnapshotTTL = 15 * time.Minute

// LiveSnapshotService values today's book from current positions and
// live quotes. it never reads or walks history beyond yesterday's
// counters
type LiveSnapshotService interface {
	Get(ctx context.Context, userID string) (*domain.DailySnapshot, error)
	// Refresh skips the memo
	Refresh(ctx context.Context, userID string) (*domain.DailySnapshot, error)
	// Invalidate drops the memo and today's persisted document
	Invalidate(ctx context.Context, userID string) error
}

type liveSnapshotServiceHandler struct {
	CacheRepository      repository.LiveSnapshotCacheRepository
	PositionRepository   repository.PositionRepository
	RealizedPLRepository repository.RealizedPLRepository
	SnapshotService      l1_service.SnapshotService
	PriceService         l1_service.PriceService
	TTL                  time.Duration

	group *singleflight.Group
	now   func() time.Time
}

func NewLiveSnapshotService(
	cacheRepository repository.LiveSnapshotCacheRepository,
	positionRepository repository.PositionRepository,
	realizedPLRepository repository.RealizedPLRepository,
	snapshotService l1_service.SnapshotService,
	priceService l1_service.PriceService,
) LiveSnapshotService {
	return liveSnapshotServiceHandler{
		CacheRepository:      cacheRepository,
		PositionRepository:   positionRepository,
		RealizedPLRepository: realizedPLRepository,
		SnapshotService:      snapshotService,
		PriceService:         priceService,
		TTL:                  LiveSnapshotTTL,
		group:                &singleflight.Group{},
		now:                  time.Now,
	}
}

func (h liveSnapshotServiceHandler) Get(ctx context.Context, userID string) (*domain.DailySnapshot, error) {
	log := logger.FromContext(ctx)

	cached, err := h.CacheRepository.Get(ctx, userID)
	if err != nil {
		// a broken cache only costs a recompute
		log.Warnf("failed to read live snapshot cache for %s: %v", userID, err)
	}
	if cached != nil && cached.Date == h.SnapshotService.Today() {
		metrics.LiveSnapshotRequests.WithLabelValues("hit").Inc()
		return cached, nil
	}
	return h.compute(ctx, userID)
}

func (h liveSnapshotServiceHandler) Refresh(ctx context.Context, userID string) (*domain.DailySnapshot, error) {
	return h.compute(ctx, userID)
}

// compute collapses concurrent misses for one user into a single
// oracle call
func (h liveSnapshotServiceHandler) compute(ctx context.Context, userID string) (*domain.DailySnapshot, error) {
	v, err, shared := h.group.Do(userID, func() (interface{}, error) {
		return h.build(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		metrics.LiveSnapshotRequests.WithLabelValues("shared").Inc()
	} else {
		metrics.LiveSnapshotRequests.WithLabelValues("miss").Inc()
	}
	return v.(*domain.DailySnapshot).DeepCopy(), nil
}

func (h liveSnapshotServiceHandler) build(ctx context.Context, userID string) (*domain.DailySnapshot, error) {
	log := logger.FromContext(ctx)
	profile, _ := domain.GetProfile(ctx)
	_, endSpan := profile.StartNewSpan("compute live snapshot")
	defer endSpan()

	today := h.SnapshotService.Today()
	yesterday, err := util.AddDays(today, -1)
	if err != nil {
		return nil, err
	}

	base, err := h.SnapshotService.GetOrSynthesize(ctx, userID, yesterday)
	if err != nil {
		return nil, fmt.Errorf("failed to load yesterday's snapshot: %w", err)
	}
	if base == nil {
		base, err = h.SnapshotService.GetLatestBefore(ctx, userID, today)
		if err != nil {
			return nil, err
		}
	}

	portfolio, err := h.PositionRepository.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	realized, err := h.RealizedPLRepository.EnsureDate(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load realized pl: %w", err)
	}
	todaysTrades, err := h.SnapshotService.PendingEntries(ctx, userID, today, nil)
	if err != nil {
		return nil, err
	}

	snapshot := liveSnapshotFromPositions(today, base, portfolio, todaysTrades)
	snapshot.CumulativeRealizedPL = realized.CumulativeRealizedPL

	symbols := portfolio.HeldSymbols()
	prices, err := h.PriceService.GetLivePrices(ctx, symbols)
	if err != nil {
		log.Warnf("live prices unavailable for %s: %v", userID, err)
		prices = map[string]decimal.Decimal{}
	}
	fillFromLastClose(prices, base)
	missing := calculator.Revalue(snapshot, prices)
	if len(missing) > 0 {
		log.Warnf("no live price for %v, valued at 0", missing)
	}

	computedAt := h.now().UTC()
	snapshot.Live = true
	snapshot.ComputedAt = &computedAt

	if err := h.SnapshotService.Put(ctx, userID, snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist live snapshot: %w", err)
	}
	if err := h.CacheRepository.Set(ctx, userID, snapshot, h.TTL); err != nil {
		log.Warnf("failed to cache live snapshot for %s: %v", userID, err)
	}
	return snapshot, nil
}

func (h liveSnapshotServiceHandler) Invalidate(ctx context.Context, userID string) error {
	if err := h.CacheRepository.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to invalidate live snapshot: %w", err)
	}
	if err := h.SnapshotService.Delete(ctx, userID, h.SnapshotService.Today()); err != nil {
		return fmt.Errorf("failed to delete today's snapshot: %w", err)
	}
	return nil
}

// liveSnapshotFromPositions carries yesterday's counters and adds the
// trades dated today, which no persisted day reflects yet
func liveSnapshotFromPositions(today string, base *domain.DailySnapshot, portfolio *domain.Portfolio, todaysTrades []domain.JournalEntry) *domain.DailySnapshot {
	snapshot := domain.NewEmptySnapshot(today)
	if base != nil {
		snapshot.CumulativeTrades = base.CumulativeTrades
		snapshot.CumulativeInvested = base.CumulativeInvested
		snapshot.TotalDividendReceived = base.TotalDividendReceived
	}
	for _, trade := range todaysTrades {
		snapshot.CumulativeTrades++
		if trade.Action == domain.TradeActionEntry {
			snapshot.CumulativeInvested = snapshot.CumulativeInvested.Add(trade.Delta().Notional())
		}
	}

	for _, symbol := range portfolio.HeldSymbols() {
		position := portfolio.Positions[symbol]
		if shares := position.LongShares(); shares.IsPositive() {
			lots := make([]domain.Lot, len(position.Lots))
			copy(lots, position.Lots)
			snapshot.LongPositions[symbol] = &domain.LongPosition{
				Ticker:    symbol,
				Lots:      lots,
				Shares:    shares,
				CostBasis: calculator.CostBasis(lots),
			}
		}
		if position.ShortShares.IsPositive() {
			snapshot.ShortPositions[symbol] = &domain.ShortPosition{
				Ticker:        symbol,
				Shares:        position.ShortShares,
				AvgShortPrice: position.AvgShortPrice,
			}
		}
	}
	return snapshot
}

// fillFromLastClose uses yesterday's close for tickers the quote feed
// skipped
func fillFromLastClose(prices map[string]decimal.Decimal, base *domain.DailySnapshot) {
	if base == nil {
		return
	}
	for ticker, p := range base.LongPositions {
		if _, ok := prices[ticker]; !ok && p.Price.IsPositive() && !p.PriceMissing {
			prices[ticker] = p.Price
		}
	}
	for ticker, p := range base.ShortPositions {
		if _, ok := prices[ticker]; !ok && p.Price.IsPositive() && !p.PriceMissing {
			prices[ticker] = p.Price
		}
	}
}
