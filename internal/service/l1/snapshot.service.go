package l1_service

import (
	"context"
	"fmt"
	"sort"
	"time"
	"tradejournal/internal/calculator"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	"tradejournal/internal/metrics"
	"tradejournal/internal/repository"
	"tradejournal/internal/util"

	"github.com/google/uuid"
)

// dividends show up in the oracle a day or two after the ex date
const dividendLagDays = 2

// SnapshotService is the only way the rest of the app reads the
// ledger. absent days are derived from the nearest earlier snapshot
// and persisted on first read
type SnapshotService interface {
	Today() string
	// Get returns the persisted snapshot. a live document from an
	// earlier day counts as absent
	Get(ctx context.Context, userID, date string) (*domain.DailySnapshot, error)
	Put(ctx context.Context, userID string, snapshot *domain.DailySnapshot) error
	Delete(ctx context.Context, userID, date string) error
	// GetLatestBefore skips stale live documents
	GetLatestBefore(ctx context.Context, userID, date string) (*domain.DailySnapshot, error)
	List(ctx context.Context, userID, start, end string) ([]*domain.DailySnapshot, error)
	GetOrSynthesize(ctx context.Context, userID, date string) (*domain.DailySnapshot, error)
	// EnsureRange persists every missing day in [start, end], capped at
	// yesterday, and returns the range
	EnsureRange(ctx context.Context, userID, start, end string) ([]*domain.DailySnapshot, error)
	// PendingEntries are trades effective on date that no persisted
	// snapshot reflects yet
	PendingEntries(ctx context.Context, userID, date string, exclude *uuid.UUID) ([]domain.JournalEntry, error)
	MarkBackfilled(ctx context.Context, userID string, entries []domain.JournalEntry, date string) error
	EnqueueMissingPrices(ctx context.Context, userID, date string, tickers []string)
}

type snapshotServiceHandler struct {
	SnapshotRepository     repository.SnapshotRepository
	JournalRepository      repository.JournalRepository
	RefetchQueueRepository repository.RefetchQueueRepository
	PriceService           PriceService
	DividendService        DividendService
	now                    func() time.Time
}

func NewSnapshotService(
	snapshotRepository repository.SnapshotRepository,
	journalRepository repository.JournalRepository,
	refetchQueueRepository repository.RefetchQueueRepository,
	priceService PriceService,
	dividendService DividendService,
	now func() time.Time,
) SnapshotService {
	// now decides which day is "today"
	if now == nil {
		now = time.Now
	}
	return snapshotServiceHandler{
		SnapshotRepository:     snapshotRepository,
		JournalRepository:      journalRepository,
		RefetchQueueRepository: refetchQueueRepository,
		PriceService:           priceService,
		DividendService:        dividendService,
		now:                    now,
	}
}

func (h snapshotServiceHandler) Today() string {
	return util.EasternDate(h.now())
}

func (h snapshotServiceHandler) isStale(s *domain.DailySnapshot) bool {
	return s != nil && s.Live && s.Date < h.Today()
}

func (h snapshotServiceHandler) Get(ctx context.Context, userID, date string) (*domain.DailySnapshot, error) {
	s, err := h.SnapshotRepository.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if h.isStale(s) {
		return nil, nil
	}
	return s, nil
}

func (h snapshotServiceHandler) Put(ctx context.Context, userID string, snapshot *domain.DailySnapshot) error {
	return h.SnapshotRepository.Put(ctx, userID, snapshot)
}

func (h snapshotServiceHandler) Delete(ctx context.Context, userID, date string) error {
	return h.SnapshotRepository.Delete(ctx, userID, date)
}

func (h snapshotServiceHandler) GetLatestBefore(ctx context.Context, userID, date string) (*domain.DailySnapshot, error) {
	s, _, err := h.latestBefore(ctx, userID, date)
	return s, err
}

func (h snapshotServiceHandler) List(ctx context.Context, userID, start, end string) ([]*domain.DailySnapshot, error) {
	all, err := h.SnapshotRepository.List(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	out := []*domain.DailySnapshot{}
	for _, s := range all {
		if !h.isStale(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (h snapshotServiceHandler) GetOrSynthesize(ctx context.Context, userID, date string) (*domain.DailySnapshot, error) {
	if !util.IsValidDate(date) {
		return nil, domain.ValidationError{Message: fmt.Sprintf("invalid date %q", date)}
	}
	snapshots, err := h.EnsureRange(ctx, userID, date, date)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return snapshots[0], nil
}

func (h snapshotServiceHandler) latestBefore(ctx context.Context, userID, date string) (*domain.DailySnapshot, string, error) {
	// a stale live doc is re-derived, so the walk has to start there
	walkFrom := ""
	for {
		s, err := h.SnapshotRepository.GetLatestBefore(ctx, userID, date)
		if err != nil {
			return nil, "", err
		}
		if !h.isStale(s) {
			return s, walkFrom, nil
		}
		walkFrom = s.Date
		date = s.Date
	}
}

func (h snapshotServiceHandler) EnsureRange(ctx context.Context, userID, start, end string) ([]*domain.DailySnapshot, error) {
	log := logger.FromContext(ctx)
	profile, _ := domain.GetProfile(ctx)

	yesterday, err := util.AddDays(h.Today(), -1)
	if err != nil {
		return nil, err
	}
	if end == "" || end > yesterday {
		end = yesterday
	}
	if start > end {
		return []*domain.DailySnapshot{}, nil
	}

	existing, err := h.List(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	dates, err := util.DateRange(start, end)
	if err != nil {
		return nil, err
	}
	if len(existing) == len(dates) {
		return existing, nil
	}
	byDate := map[string]*domain.DailySnapshot{}
	for _, s := range existing {
		byDate[s.Date] = s
	}
	firstMissing := ""
	for _, d := range dates {
		if _, ok := byDate[d]; !ok {
			firstMissing = d
			break
		}
	}

	previous, staleFrom, err := h.latestBefore(ctx, userID, firstMissing)
	if err != nil {
		return nil, err
	}
	walkStart := firstMissing
	if previous != nil {
		walkStart = util.MustAddDays(previous.Date, 1)
	} else {
		// nothing persisted yet. start from the first trade, if any
		entries, err := h.JournalRepository.List(ctx, userID, "", end)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return existing, nil
		}
		walkStart = entries[0].EffectiveDate
	}
	if staleFrom != "" && staleFrom < walkStart {
		walkStart = staleFrom
	}

	persisted, err := h.List(ctx, userID, walkStart, end)
	if err != nil {
		return nil, err
	}
	for _, s := range persisted {
		byDate[s.Date] = s
	}
	walkDates, err := util.DateRange(walkStart, end)
	if err != nil {
		return nil, err
	}
	if len(persisted) == len(walkDates) {
		// the gap is before the first trade
		return existing, nil
	}

	_, endSpan := profile.StartNewSpan("synthesize snapshots")
	defer endSpan()

	journal, err := h.JournalRepository.List(ctx, userID, walkStart, end)
	if err != nil {
		return nil, err
	}
	entriesByDate := map[string][]domain.JournalEntry{}
	tickerSet := map[string]struct{}{}
	for _, e := range journal {
		entriesByDate[e.EffectiveDate] = append(entriesByDate[e.EffectiveDate], e)
		tickerSet[e.Ticker] = struct{}{}
	}
	if previous != nil {
		for _, t := range previous.HeldTickers() {
			tickerSet[t] = struct{}{}
		}
	}
	for _, s := range persisted {
		for _, t := range s.HeldTickers() {
			tickerSet[t] = struct{}{}
		}
	}
	tickers := make([]string, 0, len(tickerSet))
	for t := range tickerSet {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	priceCache, err := h.PriceService.LoadPriceCache(ctx, tickers, walkStart, end)
	if err != nil {
		return nil, err
	}
	calendar := h.DividendService.LoadCalendar(ctx, tickers, util.MustAddDays(walkStart, -dividendLagDays), end)

	written := 0
	for _, date := range walkDates {
		if s, ok := byDate[date]; ok {
			previous = s
			continue
		}

		// a late dividend two days back moves the running total of
		// every day after it, the predecessor included
		lagged, err := h.reconcileLagged(ctx, userID, date, byDate, calendar)
		if err != nil {
			metrics.BackfillFailures.WithLabelValues("synthesis").Inc()
			return nil, domain.BackfillError{Date: date, Err: err}
		}
		if lagged && previous != nil {
			reloaded, err := h.SnapshotRepository.Get(ctx, userID, previous.Date)
			if err != nil {
				return nil, domain.BackfillError{Date: date, Err: err}
			}
			if reloaded != nil {
				previous = reloaded
				byDate[previous.Date] = previous
			}
		}

		pending := []domain.JournalEntry{}
		deltas := []domain.TradeDelta{}
		for _, e := range entriesByDate[date] {
			if e.BackfilledThrough < date {
				pending = append(pending, e)
				deltas = append(deltas, e.Delta())
			}
		}

		result := calculator.BuildSnapshot(calculator.BuildInput{
			Date:          date,
			Previous:      previous,
			Deltas:        deltas,
			Prices:        priceCache.PricesOn(date),
			DividendRates: calendar.On(date),
		})
		snapshot := result.Snapshot
		// the ledger converges, a rerun after a failed write settles it
		// to the same entries
		if _, err := h.DividendService.Reconcile(ctx, userID, date, snapshot.LongShares(), calendar.On(date), false); err != nil {
			metrics.BackfillFailures.WithLabelValues("synthesis").Inc()
			return nil, domain.BackfillError{Date: date, Err: err}
		}
		if err := h.SnapshotRepository.Put(ctx, userID, snapshot); err != nil {
			metrics.BackfillFailures.WithLabelValues("synthesis").Inc()
			return nil, domain.BackfillError{Date: date, Err: err}
		}
		metrics.SnapshotsWritten.WithLabelValues("synthesis").Inc()
		written++
		byDate[date] = snapshot

		// persisted days never read pending entries again, so a
		// failure here leaves nothing to redo on date
		if err := h.MarkBackfilled(ctx, userID, pending, date); err != nil {
			metrics.BackfillFailures.WithLabelValues("synthesis").Inc()
			return nil, domain.BackfillError{Date: util.MustAddDays(date, 1), Err: err}
		}
		h.EnqueueMissingPrices(ctx, userID, date, result.MissingPrices)
		previous = snapshot
	}

	if written > 0 {
		log.Infof("synthesized %d snapshots for %s between %s and %s", written, userID, walkStart, end)
	}

	return h.List(ctx, userID, start, end)
}

func (h snapshotServiceHandler) reconcileLagged(ctx context.Context, userID, date string, byDate map[string]*domain.DailySnapshot, calendar DividendCalendar) (bool, error) {
	lagDate := util.MustAddDays(date, -dividendLagDays)
	rates := calendar.On(lagDate)
	if len(rates) == 0 {
		return false, nil
	}
	lagSnapshot, ok := byDate[lagDate]
	if !ok {
		s, err := h.Get(ctx, userID, lagDate)
		if err != nil {
			return false, err
		}
		if s == nil {
			return false, nil
		}
		lagSnapshot = s
	}
	result, err := h.DividendService.Reconcile(ctx, userID, lagDate, lagSnapshot.LongShares(), rates, true)
	if err != nil {
		return false, err
	}
	if result.Snapshot != nil {
		byDate[lagDate] = result.Snapshot
	}
	return !result.Delta.IsZero(), nil
}

func (h snapshotServiceHandler) PendingEntries(ctx context.Context, userID, date string, exclude *uuid.UUID) ([]domain.JournalEntry, error) {
	entries, err := h.JournalRepository.ListEffectiveOn(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	out := []domain.JournalEntry{}
	for _, e := range entries {
		if exclude != nil && e.ID == *exclude {
			continue
		}
		if e.BackfilledThrough < date {
			out = append(out, e)
		}
	}
	return out, nil
}

func (h snapshotServiceHandler) MarkBackfilled(ctx context.Context, userID string, entries []domain.JournalEntry, date string) error {
	for _, e := range entries {
		if e.BackfilledThrough >= date {
			continue
		}
		e.BackfilledThrough = date
		if err := h.JournalRepository.Put(ctx, userID, e); err != nil {
			return fmt.Errorf("failed to mark %s backfilled: %w", e.ID.String(), err)
		}
	}
	return nil
}

// EnqueueMissingPrices records each unpriced ticker once. a queue
// failure is logged and the day stands at 0
func (h snapshotServiceHandler) EnqueueMissingPrices(ctx context.Context, userID, date string, tickers []string) {
	log := logger.FromContext(ctx)
	for _, ticker := range tickers {
		added, err := h.RefetchQueueRepository.Enqueue(ctx, userID, ticker, date)
		if err != nil {
			log.Warnf("failed to queue price refetch for %s on %s: %v", ticker, date, err)
			continue
		}
		if added {
			metrics.RefetchEnqueued.Inc()
		}
	}
}
