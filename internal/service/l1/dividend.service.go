package l1_service

import (
	"context"
	"fmt"
	"tradejournal/internal/calculator"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	"tradejournal/internal/metrics"
	"tradejournal/internal/repository"
	"tradejournal/internal/util"

	"github.com/shopspring/decimal"
)

// DividendCalendar is date -> ticker -> cash dividend per share
type DividendCalendar map[string]map[string]decimal.Decimal

func (c DividendCalendar) On(date string) map[string]decimal.Decimal {
	if rates, ok := c[date]; ok {
		return rates
	}
	return map[string]decimal.Decimal{}
}

type DividendService interface {
	LoadCalendar(ctx context.Context, tickers []string, start, end string) DividendCalendar
	// Reconcile converges what is credited for date to the shares held.
	// tickers without a declared rate on date are left alone
	Reconcile(ctx context.Context, userID, date string, shares map[string]decimal.Decimal, rates map[string]decimal.Decimal, applyToSnapshot bool) (*ReconcileResult, error)
}

type ReconcileResult struct {
	Date string
	// change in the credited total. zero on a repeat run
	Delta         decimal.Decimal
	LedgerChanged bool
	// the snapshot for date after the change, nil if not applied
	Snapshot *domain.DailySnapshot
}

type dividendServiceHandler struct {
	DividendOracle            repository.DividendOracle
	DividendHistoryRepository repository.DividendHistoryRepository
	SnapshotRepository        repository.SnapshotRepository
}

func NewDividendService(
	dividendOracle repository.DividendOracle,
	dividendHistoryRepository repository.DividendHistoryRepository,
	snapshotRepository repository.SnapshotRepository,
) DividendService {
	return dividendServiceHandler{
		DividendOracle:            dividendOracle,
		DividendHistoryRepository: dividendHistoryRepository,
		SnapshotRepository:        snapshotRepository,
	}
}

// LoadCalendar never fails. without oracle data nothing is in scope,
// so nothing already credited gets touched
func (h dividendServiceHandler) LoadCalendar(ctx context.Context, tickers []string, start, end string) DividendCalendar {
	calendar := DividendCalendar{}
	if len(tickers) == 0 || end < start {
		return calendar
	}
	byTicker, err := h.DividendOracle.GetDividends(ctx, dedupe(tickers), start, end)
	if err != nil {
		logger.FromContext(ctx).Warnf("failed to load dividends between %s and %s: %v", start, end, err)
		return calendar
	}
	for ticker, byDate := range byTicker {
		for date, rate := range byDate {
			if _, ok := calendar[date]; !ok {
				calendar[date] = map[string]decimal.Decimal{}
			}
			calendar[date][ticker] = rate
		}
	}
	return calendar
}

func (h dividendServiceHandler) Reconcile(ctx context.Context, userID, date string, shares map[string]decimal.Decimal, rates map[string]decimal.Decimal, applyToSnapshot bool) (*ReconcileResult, error) {
	result := &ReconcileResult{
		Date:  date,
		Delta: decimal.Zero,
	}
	if len(rates) == 0 {
		return result, nil
	}
	desired := calculator.DividendEntries(shares, rates)

	changed, err := h.reconcileLedger(ctx, userID, date, desired, rates)
	if err != nil {
		return nil, err
	}
	result.LedgerChanged = changed

	if !applyToSnapshot {
		return result, nil
	}

	snapshot, err := h.SnapshotRepository.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if snapshot == nil || snapshot.Live {
		return result, nil
	}

	entries, delta := calculator.ConvergeDividends(snapshot.Dividends, desired, rates)
	if delta.IsZero() && dividendsEqual(entries, snapshot.Dividends) {
		result.Snapshot = snapshot
		return result, nil
	}
	snapshot.Dividends = entries
	snapshot.TotalDividendReceived = snapshot.TotalDividendReceived.Add(delta)
	calculator.SyncLegacyAggregates(snapshot)
	if err := h.SnapshotRepository.Put(ctx, userID, snapshot); err != nil {
		return nil, fmt.Errorf("failed to credit dividends on %s: %w", date, err)
	}
	result.Snapshot = snapshot
	result.Delta = delta

	if !delta.IsZero() {
		metrics.DividendAdjustments.Inc()
		if err := h.propagate(ctx, userID, date, delta); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (h dividendServiceHandler) reconcileLedger(ctx context.Context, userID, date string, desired []domain.DividendEntry, rates map[string]decimal.Decimal) (bool, error) {
	history, err := h.DividendHistoryRepository.Get(ctx, userID, date)
	if err != nil {
		return false, err
	}
	current := []domain.DividendEntry{}
	if history != nil {
		current = history.Entries
	}

	entries, _ := calculator.ConvergeDividends(current, desired, rates)
	if dividendsEqual(entries, current) {
		return false, nil
	}
	if len(entries) == 0 {
		return true, h.DividendHistoryRepository.Delete(ctx, userID, date)
	}
	err = h.DividendHistoryRepository.Put(ctx, userID, domain.DividendHistory{
		Date:    date,
		Entries: entries,
		Total:   calculator.SumDividends(entries),
	})
	if err != nil {
		return false, fmt.Errorf("failed to write dividend history for %s: %w", date, err)
	}
	return true, nil
}

// every later snapshot carries the running total, so they all move
func (h dividendServiceHandler) propagate(ctx context.Context, userID, date string, delta decimal.Decimal) error {
	start, err := util.AddDays(date, 1)
	if err != nil {
		return err
	}
	later, err := h.SnapshotRepository.List(ctx, userID, start, "")
	if err != nil {
		return err
	}
	for _, s := range later {
		s.TotalDividendReceived = s.TotalDividendReceived.Add(delta)
		calculator.SyncLegacyAggregates(s)
		if err := h.SnapshotRepository.Put(ctx, userID, s); err != nil {
			return fmt.Errorf("failed to carry dividend change to %s: %w", s.Date, err)
		}
	}
	return nil
}

func dividendsEqual(a, b []domain.DividendEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Ticker != b[i].Ticker ||
			!a[i].Shares.Equal(b[i].Shares) ||
			!a[i].AmountPerShare.Equal(b[i].AmountPerShare) ||
			!a[i].Amount.Equal(b[i].Amount) {
			return false
		}
	}
	return true
}
