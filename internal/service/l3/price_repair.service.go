package l3_service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"tradejournal/internal/calculator"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	"tradejournal/internal/metrics"
	"tradejournal/internal/repository"
	l1_service "tradejournal/internal/service/l1"

	"github.com/shopspring/decimal"
)

// a pair the oracle still can't price after this many runs is dropped
const MaxRefetchAttempts = 5

type PriceRepairService interface {
	RepairUser(ctx context.Context, userID string) (*RepairResult, error)
	RepairAll(ctx context.Context) (*RepairResult, error)
}

type RepairResult struct {
	Repaired int `json:"repaired"`
	Retried  int `json:"retried"`
	Dropped  int `json:"dropped"`
}

func (r *RepairResult) add(o RepairResult) {
	r.Repaired += o.Repaired
	r.Retried += o.Retried
	r.Dropped += o.Dropped
}

type priceRepairServiceHandler struct {
	RefetchQueueRepository repository.RefetchQueueRepository
	SnapshotService        l1_service.SnapshotService
	PriceService           l1_service.PriceService

	locks *UserLocks
}

func NewPriceRepairService(
	refetchQueueRepository repository.RefetchQueueRepository,
	snapshotService l1_service.SnapshotService,
	priceService l1_service.PriceService,
	locks *UserLocks,
) PriceRepairService {
	return priceRepairServiceHandler{
		RefetchQueueRepository: refetchQueueRepository,
		SnapshotService:        snapshotService,
		PriceService:           priceService,
		locks:                  locks,
	}
}

func (h priceRepairServiceHandler) RepairUser(ctx context.Context, userID string) (*RepairResult, error) {
	ctx = logger.WithUser(ctx, userID)
	log := logger.FromContext(ctx)
	unlock := h.locks.Lock(userID)
	defer unlock()

	items, err := h.RefetchQueueRepository.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := &RepairResult{}
	if len(items) == 0 {
		return result, nil
	}

	// one oracle call per ticker over the dates it is missing
	byTicker := map[string][]domain.RefetchItem{}
	for _, item := range items {
		byTicker[item.Ticker] = append(byTicker[item.Ticker], item)
	}
	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		queued := byTicker[ticker]
		sort.Slice(queued, func(i, j int) bool {
			return queued[i].Date < queued[j].Date
		})
		cache, err := h.PriceService.LoadPriceCache(ctx, []string{ticker}, queued[0].Date, queued[len(queued)-1].Date)
		if err != nil {
			return nil, err
		}
		for _, item := range queued {
			outcome, err := h.repairItem(ctx, userID, item, cache)
			if err != nil {
				return nil, err
			}
			metrics.RefetchProcessed.WithLabelValues(outcome).Inc()
			switch outcome {
			case "repaired":
				result.Repaired++
			case "retried":
				result.Retried++
			case "dropped":
				result.Dropped++
			}
		}
	}

	log.Infof("price repair for %s: %d repaired, %d retried, %d dropped", userID, result.Repaired, result.Retried, result.Dropped)
	return result, nil
}

func (h priceRepairServiceHandler) repairItem(ctx context.Context, userID string, item domain.RefetchItem, cache *l1_service.PriceCache) (string, error) {
	log := logger.FromContext(ctx)

	snapshot, err := h.SnapshotService.Get(ctx, userID, item.Date)
	if err != nil {
		return "", err
	}
	_, heldLong := snapshotLong(snapshot, item.Ticker)
	_, heldShort := snapshotShort(snapshot, item.Ticker)
	if snapshot == nil || (!heldLong && !heldShort) {
		// the day or the position is gone, nothing left to price
		return "dropped", h.RefetchQueueRepository.Remove(ctx, userID, item)
	}

	price, ok := cache.Get(item.Ticker, item.Date)
	if ok && price.IsPositive() {
		repriceSnapshot(snapshot, item.Ticker, price)
		if err := h.SnapshotService.Put(ctx, userID, snapshot); err != nil {
			return "", fmt.Errorf("failed to save repaired snapshot %s: %w", item.Date, err)
		}
		return "repaired", h.RefetchQueueRepository.Remove(ctx, userID, item)
	}

	item.Attempts++
	if item.Attempts >= MaxRefetchAttempts {
		log.Warnf("giving up on a price for %s on %s after %d attempts", item.Ticker, item.Date, item.Attempts)
		return "dropped", h.RefetchQueueRepository.Remove(ctx, userID, item)
	}
	return "retried", h.RefetchQueueRepository.Put(ctx, userID, item)
}

func snapshotLong(s *domain.DailySnapshot, ticker string) (*domain.LongPosition, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.LongPositions[ticker]
	return p, ok
}

func snapshotShort(s *domain.DailySnapshot, ticker string) (*domain.ShortPosition, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.ShortPositions[ticker]
	return p, ok
}

func repriceSnapshot(s *domain.DailySnapshot, ticker string, price decimal.Decimal) {
	if p, ok := s.LongPositions[ticker]; ok {
		calculator.RevalueLong(p, &price)
	}
	if p, ok := s.ShortPositions[ticker]; ok {
		calculator.RevalueShort(p, &price)
	}
	s.Totals = calculator.ComputeTotals(s)
	calculator.SyncLegacyAggregates(s)
}

type repairWorkResult struct {
	UserID string
	Result *RepairResult
	Err    error
}

// RepairAll drains every user's queue with a small worker pool. one
// user's failure doesn't stop the others
func (h priceRepairServiceHandler) RepairAll(ctx context.Context) (*RepairResult, error) {
	log := logger.FromContext(ctx)
	userIDs, err := h.RefetchQueueRepository.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued users: %w", err)
	}

	inputCh := make(chan string, len(userIDs))
	resultCh := make(chan repairWorkResult, len(userIDs))
	numGoroutines := 4
	for _, userID := range userIDs {
		inputCh <- userID
	}
	close(inputCh)

	// one count per worker, so users still queued on cancel don't
	// hold the wait open
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for userID := range inputCh {
				if ctx.Err() != nil {
					return
				}
				res, err := h.RepairUser(ctx, userID)
				resultCh <- repairWorkResult{
					UserID: userID,
					Result: res,
					Err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	total := &RepairResult{}
	errs := []error{}
	for res := range resultCh {
		if res.Err != nil {
			log.Errorf("price repair failed for %s: %v", res.UserID, res.Err)
			errs = append(errs, fmt.Errorf("%s: %w", res.UserID, res.Err))
			continue
		}
		total.add(*res.Result)
	}
	if ctx.Err() != nil {
		errs = append(errs, fmt.Errorf("price repair stopped early: %w", ctx.Err()))
	}
	return total, errors.Join(errs...)
}
