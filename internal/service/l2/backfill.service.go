package l2_service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"tradejournal/internal/calculator"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	"tradejournal/internal/metrics"
	l1_service "tradejournal/internal/service/l1"
	"tradejournal/internal/util"

	"github.com/shopspring/decimal"
)

// BackfillService rewrites history after a back-dated trade. today is
// never touched here, the live snapshot covers it
type BackfillService interface {
	// ApplyEntry walks [effectiveDate, yesterday]. persisted days get
	// the new lot, absent days are derived from the day before
	ApplyEntry(ctx context.Context, userID string, entry domain.JournalEntry) (*WalkResult, error)
	// ApplyExit amends every persisted day in [effectiveDate, yesterday]
	// in place. entry.RealizedPL must already be booked
	ApplyExit(ctx context.Context, userID string, entry domain.JournalEntry) (*WalkResult, error)
	// Resume reruns a walk that failed with a BackfillError from its
	// Date. the dividends of the day before are settled again first
	Resume(ctx context.Context, userID string, entry domain.JournalEntry, from string) (*WalkResult, error)
}

type WalkResult struct {
	Start         string   `json:"start,omitempty"`
	End           string   `json:"end,omitempty"`
	DaysWritten   int      `json:"daysWritten"`
	MissingPrices []string `json:"missingPrices,omitempty"`
	// days that held fewer shares than the exit took off
	ShortDays []string `json:"shortDays,omitempty"`
}

type backfillServiceHandler struct {
	SnapshotService l1_service.SnapshotService
	PriceService    l1_service.PriceService
	DividendService l1_service.DividendService
}

func NewBackfillService(
	snapshotService l1_service.SnapshotService,
	priceService l1_service.PriceService,
	dividendService l1_service.DividendService,
) BackfillService {
	return backfillServiceHandler{
		SnapshotService: snapshotService,
		PriceService:    priceService,
		DividendService: dividendService,
	}
}

func (h backfillServiceHandler) walkBounds(effectiveDate string) (string, bool, error) {
	yesterday, err := util.AddDays(h.SnapshotService.Today(), -1)
	if err != nil {
		return "", false, err
	}
	return yesterday, effectiveDate <= yesterday, nil
}

func (h backfillServiceHandler) ApplyEntry(ctx context.Context, userID string, entry domain.JournalEntry) (*WalkResult, error) {
	return h.walkEntry(ctx, userID, entry, entry.EffectiveDate)
}

func (h backfillServiceHandler) ApplyExit(ctx context.Context, userID string, entry domain.JournalEntry) (*WalkResult, error) {
	return h.walkExit(ctx, userID, entry, entry.EffectiveDate)
}

func (h backfillServiceHandler) Resume(ctx context.Context, userID string, entry domain.JournalEntry, from string) (*WalkResult, error) {
	if from < entry.EffectiveDate {
		from = entry.EffectiveDate
	}
	if from > entry.EffectiveDate {
		if err := h.replayDividends(ctx, userID, entry, from); err != nil {
			return nil, err
		}
	}
	if entry.Action == domain.TradeActionExit {
		return h.walkExit(ctx, userID, entry, from)
	}
	return h.walkEntry(ctx, userID, entry, from)
}

// walkEntry adds the entry's lot to every day from `from` on. when
// resuming, the day before `from` already holds the lot, so absent
// days only pick it up on the effective date itself
func (h backfillServiceHandler) walkEntry(ctx context.Context, userID string, entry domain.JournalEntry, from string) (*WalkResult, error) {
	log := logger.FromContext(ctx)
	profile, _ := domain.GetProfile(ctx)

	end, ok, err := h.walkBounds(from)
	if err != nil {
		return nil, err
	}
	result := &WalkResult{MissingPrices: []string{}}
	if !ok {
		return result, nil
	}
	result.Start = from
	result.End = end

	_, endSpan := profile.StartNewSpan(fmt.Sprintf("backfill entry %s from %s", entry.Ticker, from))
	defer endSpan()

	previous, err := h.SnapshotService.GetLatestBefore(ctx, userID, from)
	if err != nil {
		return nil, err
	}
	persisted, err := h.SnapshotService.List(ctx, userID, from, end)
	if err != nil {
		return nil, err
	}
	tickers := collectTickers(entry.Ticker, previous, persisted)

	priceCache, err := h.PriceService.LoadPriceCache(ctx, tickers, from, end)
	if err != nil {
		return nil, err
	}
	calendar := h.DividendService.LoadCalendar(ctx, tickers, from, end)

	dates, err := util.DateRange(from, end)
	if err != nil {
		return nil, err
	}
	delta := entry.Delta()
	for _, date := range dates {
		// reloaded every day, a dividend correction may have moved it
		existing, err := h.SnapshotService.Get(ctx, userID, date)
		if err != nil {
			return nil, h.abort("entry", date, entry.Ticker, err)
		}

		var snapshot *domain.DailySnapshot
		var missing []string
		pending := []domain.JournalEntry{}
		if existing != nil {
			snapshot = existing.DeepCopy()
			calculator.ApplyDelta(snapshot, delta)
			missing = repriceTicker(snapshot, entry.Ticker, priceCache, date)
		} else {
			pending, err = h.SnapshotService.PendingEntries(ctx, userID, date, &entry.ID)
			if err != nil {
				return nil, h.abort("entry", date, entry.Ticker, err)
			}
			deltas := []domain.TradeDelta{}
			for _, p := range pending {
				deltas = append(deltas, p.Delta())
			}
			if date == entry.EffectiveDate {
				deltas = append(deltas, delta)
			}
			built := calculator.BuildSnapshot(calculator.BuildInput{
				Date:     date,
				Previous: previous,
				Deltas:   deltas,
				Prices:   priceCache.PricesOn(date),
			})
			snapshot = built.Snapshot
			missing = built.MissingPrices
		}

		if err := h.SnapshotService.Put(ctx, userID, snapshot); err != nil {
			return nil, h.abort("entry", date, entry.Ticker, err)
		}
		metrics.SnapshotsWritten.WithLabelValues("entry").Inc()
		result.DaysWritten++

		if err := h.SnapshotService.MarkBackfilled(ctx, userID, pending, date); err != nil {
			return nil, h.abortAfterWrite("entry", date, entry.Ticker, err)
		}
		h.SnapshotService.EnqueueMissingPrices(ctx, userID, date, missing)
		for _, t := range missing {
			result.MissingPrices = append(result.MissingPrices, domain.RefetchKey(t, date))
		}

		snapshot, err = h.reconcileDividends(ctx, userID, snapshot, calendar)
		if err != nil {
			return nil, h.abortAfterWrite("entry", date, entry.Ticker, err)
		}
		previous = snapshot
	}

	log.Infof("backfilled %s entry for %s across %d days", entry.Ticker, userID, result.DaysWritten)
	return result, nil
}

func (h backfillServiceHandler) walkExit(ctx context.Context, userID string, entry domain.JournalEntry, from string) (*WalkResult, error) {
	log := logger.FromContext(ctx)
	profile, _ := domain.GetProfile(ctx)

	end, ok, err := h.walkBounds(from)
	if err != nil {
		return nil, err
	}
	result := &WalkResult{MissingPrices: []string{}}
	if !ok {
		return result, nil
	}
	result.Start = from
	result.End = end

	realized := decimal.Zero
	if entry.RealizedPL != nil {
		realized = *entry.RealizedPL
	}

	// absent days would otherwise be derived later from a predecessor
	// that still holds the exited shares
	persisted, err := h.SnapshotService.EnsureRange(ctx, userID, from, end)
	if err != nil {
		// nothing is amended yet, the whole walk has to run again
		synthesisErr := domain.BackfillError{}
		if errors.As(err, &synthesisErr) {
			err = synthesisErr.Err
		}
		return nil, h.abort("exit", from, entry.Ticker, err)
	}

	_, endSpan := profile.StartNewSpan(fmt.Sprintf("backfill exit %s from %s", entry.Ticker, from))
	defer endSpan()

	tickers := collectTickers(entry.Ticker, nil, persisted)
	calendar := h.DividendService.LoadCalendar(ctx, tickers, from, end)

	for _, s := range persisted {
		date := s.Date
		existing, err := h.SnapshotService.Get(ctx, userID, date)
		if err != nil {
			return nil, h.abort("exit", date, entry.Ticker, err)
		}
		if existing == nil {
			continue
		}
		snapshot := existing.DeepCopy()
		var amended calculator.ExitAmendment
		switch entry.Direction {
		case domain.DirectionLong:
			amended = calculator.AmendLongExit(snapshot, entry.Ticker, entry.Shares)
		case domain.DirectionShort:
			amended = calculator.AmendShortCover(snapshot, entry.Ticker, entry.Shares)
		}
		if amended.RemovedShares.LessThan(entry.Shares) {
			log.Warnf("%s held %s %s shares of %s, exit of %s trimmed", date, amended.RemovedShares.String(), entry.Direction, entry.Ticker, entry.Shares.String())
			result.ShortDays = append(result.ShortDays, date)
		}
		snapshot.CumulativeTrades++
		snapshot.CumulativeRealizedPL = snapshot.CumulativeRealizedPL.Add(realized)
		calculator.SyncLegacyAggregates(snapshot)

		if err := h.SnapshotService.Put(ctx, userID, snapshot); err != nil {
			return nil, h.abort("exit", date, entry.Ticker, err)
		}
		metrics.SnapshotsWritten.WithLabelValues("exit").Inc()
		result.DaysWritten++

		if _, err := h.reconcileDividends(ctx, userID, snapshot, calendar); err != nil {
			return nil, h.abortAfterWrite("exit", date, entry.Ticker, err)
		}
	}

	log.Infof("backfilled %s exit for %s across %d days", entry.Ticker, userID, result.DaysWritten)
	return result, nil
}

func (h backfillServiceHandler) reconcileDividends(ctx context.Context, userID string, snapshot *domain.DailySnapshot, calendar l1_service.DividendCalendar) (*domain.DailySnapshot, error) {
	rates := calendar.On(snapshot.Date)
	if len(rates) == 0 {
		return snapshot, nil
	}
	reconciled, err := h.DividendService.Reconcile(ctx, userID, snapshot.Date, snapshot.LongShares(), rates, true)
	if err != nil {
		return nil, err
	}
	if reconciled.Snapshot != nil {
		return reconciled.Snapshot, nil
	}
	return snapshot, nil
}

// replayDividends settles the day before from, whose snapshot was
// written before the walk stopped. Reconcile converges, so a day that
// was already settled is left as it is
func (h backfillServiceHandler) replayDividends(ctx context.Context, userID string, entry domain.JournalEntry, from string) error {
	walk := "entry"
	if entry.Action == domain.TradeActionExit {
		walk = "exit"
	}
	date, err := util.AddDays(from, -1)
	if err != nil {
		return err
	}
	snapshot, err := h.SnapshotService.Get(ctx, userID, date)
	if err != nil {
		return h.abort(walk, from, entry.Ticker, err)
	}
	if snapshot == nil || snapshot.Live {
		return nil
	}
	calendar := h.DividendService.LoadCalendar(ctx, collectTickers(entry.Ticker, snapshot, nil), date, date)
	if _, err := h.reconcileDividends(ctx, userID, snapshot, calendar); err != nil {
		return h.abort(walk, from, entry.Ticker, err)
	}
	return nil
}

// abortAfterWrite is for failures once date is persisted with the
// trade applied. the walk resumes on the day after
func (h backfillServiceHandler) abortAfterWrite(walk, date, ticker string, err error) error {
	next, dateErr := util.AddDays(date, 1)
	if dateErr != nil {
		return h.abort(walk, date, ticker, err)
	}
	return h.abort(walk, next, ticker, err)
}

func (h backfillServiceHandler) abort(walk, date, ticker string, err error) error {
	metrics.BackfillFailures.WithLabelValues(walk).Inc()
	return domain.BackfillError{
		Date:   date,
		Ticker: ticker,
		Err:    err,
	}
}

// repriceTicker values the one position the entry touched and leaves
// the rest of the day as it was priced
func repriceTicker(s *domain.DailySnapshot, ticker string, cache *l1_service.PriceCache, date string) []string {
	var px *decimal.Decimal
	if price, ok := cache.Get(ticker, date); ok && price.IsPositive() {
		px = &price
	}
	if p, ok := s.LongPositions[ticker]; ok {
		calculator.RevalueLong(p, px)
	}
	if p, ok := s.ShortPositions[ticker]; ok {
		calculator.RevalueShort(p, px)
	}
	s.Totals = calculator.ComputeTotals(s)
	calculator.SyncLegacyAggregates(s)
	if px == nil {
		return []string{ticker}
	}
	return []string{}
}

func collectTickers(ticker string, previous *domain.DailySnapshot, snapshots []*domain.DailySnapshot) []string {
	set := map[string]struct{}{ticker: {}}
	if previous != nil {
		for _, t := range previous.HeldTickers() {
			set[t] = struct{}{}
		}
	}
	for _, s := range snapshots {
		for _, t := range s.HeldTickers() {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
