package l3_service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	"tradejournal/internal/repository"
	l1_service "tradejournal/internal/service/l1"
	l2_service "tradejournal/internal/service/l2"
	"tradejournal/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradingService records a trade against the positions book, the
// journal and history, in that order. one user at a time
type TradingService interface {
	RecordTrade(ctx context.Context, userID string, input RecordTradeInput) (*RecordTradeResult, error)
	ResumeBackfill(ctx context.Context, userID string, entryID uuid.UUID, from string) (*l2_service.WalkResult, error)
	GetStats(ctx context.Context, userID string) (*domain.Stats, error)
}

type RecordTradeInput struct {
	Ticker    string
	Action    domain.TradeAction
	Direction domain.Direction
	Shares    decimal.Decimal
	Price     decimal.Decimal
	// empty means today
	Date  string
	Notes string
	Tags  []string
	// exit what is held instead of rejecting an oversized exit
	AllowPartial bool
}

type RecordTradeResult struct {
	Entry           domain.JournalEntry    `json:"entry"`
	RequestedShares decimal.Decimal        `json:"requestedShares"`
	AppliedShares   decimal.Decimal        `json:"appliedShares"`
	Partial         bool                   `json:"partial"`
	RealizedPL      *decimal.Decimal       `json:"realizedPL,omitempty"`
	Backfill        *l2_service.WalkResult `json:"backfill"`
}

type tradingServiceHandler struct {
	TradeService         l1_service.TradeService
	SnapshotService      l1_service.SnapshotService
	BackfillService      l2_service.BackfillService
	LiveSnapshotService  l2_service.LiveSnapshotService
	JournalRepository    repository.JournalRepository
	RealizedPLRepository repository.RealizedPLRepository
	StatsRepository      repository.StatsRepository

	locks *UserLocks
	now   func() time.Time
}

func NewTradingService(
	tradeService l1_service.TradeService,
	snapshotService l1_service.SnapshotService,
	backfillService l2_service.BackfillService,
	liveSnapshotService l2_service.LiveSnapshotService,
	journalRepository repository.JournalRepository,
	realizedPLRepository repository.RealizedPLRepository,
	statsRepository repository.StatsRepository,
	locks *UserLocks,
) TradingService {
	return tradingServiceHandler{
		TradeService:         tradeService,
		SnapshotService:      snapshotService,
		BackfillService:      backfillService,
		LiveSnapshotService:  liveSnapshotService,
		JournalRepository:    journalRepository,
		RealizedPLRepository: realizedPLRepository,
		StatsRepository:      statsRepository,
		locks:                locks,
		now:                  time.Now,
	}
}

func (h tradingServiceHandler) validate(input *RecordTradeInput) error {
	input.Ticker = strings.ToUpper(strings.TrimSpace(input.Ticker))
	if input.Ticker == "" {
		return domain.ValidationError{Message: "ticker is required"}
	}
	if input.Action != domain.TradeActionEntry && input.Action != domain.TradeActionExit {
		return domain.ValidationError{Message: fmt.Sprintf("unknown action %q", input.Action)}
	}
	if !input.Direction.IsValid() {
		return domain.ValidationError{Message: fmt.Sprintf("unknown direction %q", input.Direction)}
	}
	if !input.Shares.IsPositive() {
		return domain.ValidationError{Message: "shares must be positive"}
	}
	if input.Price.IsNegative() {
		return domain.ValidationError{Message: "price must not be negative"}
	}
	today := h.SnapshotService.Today()
	if input.Date == "" {
		input.Date = today
	}
	if !util.IsValidDate(input.Date) {
		return domain.ValidationError{Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", input.Date)}
	}
	if input.Date > today {
		return domain.ValidationError{Message: fmt.Sprintf("trade date %s is in the future", input.Date)}
	}
	return nil
}

func (h tradingServiceHandler) RecordTrade(ctx context.Context, userID string, input RecordTradeInput) (*RecordTradeResult, error) {
	log := logger.FromContext(ctx)
	if err := h.validate(&input); err != nil {
		return nil, err
	}

	unlock := h.locks.Lock(userID)
	defer unlock()

	delta := domain.TradeDelta{
		Ticker:    input.Ticker,
		Action:    input.Action,
		Direction: input.Direction,
		Shares:    input.Shares,
		Price:     input.Price,
		Date:      input.Date,
	}
	if input.Action == domain.TradeActionExit {
		held, err := h.heldSince(ctx, userID, input)
		if err != nil {
			return nil, err
		}
		if held != nil && input.Shares.GreaterThan(*held) {
			if !input.AllowPartial || !held.IsPositive() {
				return nil, domain.OverWithdrawalError{
					Ticker:    input.Ticker,
					Direction: input.Direction,
					Requested: input.Shares,
					Available: *held,
				}
			}
			delta.Shares = *held
		}
	}
	change, err := h.TradeService.ApplyToPositions(ctx, userID, delta, input.AllowPartial)
	if err != nil {
		return nil, err
	}

	yesterday, err := util.AddDays(h.SnapshotService.Today(), -1)
	if err != nil {
		return nil, err
	}
	entry := domain.JournalEntry{
		ID:            uuid.New(),
		Ticker:        input.Ticker,
		Action:        input.Action,
		Direction:     input.Direction,
		Shares:        change.AppliedShares,
		Price:         input.Price,
		EffectiveDate: input.Date,
		CreatedAt:     h.now().UTC(),
		Notes:         input.Notes,
		Tags:          input.Tags,
		// past trades are walked below, today's wait for today to
		// be persisted
		BackfilledThrough: yesterday,
	}
	result := &RecordTradeResult{
		RequestedShares: input.Shares,
		AppliedShares:   change.AppliedShares,
		Partial:         change.AppliedShares.LessThan(input.Shares),
	}
	if input.Action == domain.TradeActionExit {
		realized := change.RealizedPL
		entry.RealizedPL = &realized
		result.RealizedPL = &realized
	}

	if err := h.JournalRepository.Put(ctx, userID, entry); err != nil {
		return nil, fmt.Errorf("failed to write journal entry: %w", err)
	}
	result.Entry = entry

	if entry.RealizedPL != nil {
		if err := h.recordRealizedPL(ctx, userID, entry.EffectiveDate, *entry.RealizedPL); err != nil {
			return nil, err
		}
	}
	if err := h.updateStats(ctx, userID, entry); err != nil {
		return nil, err
	}

	var walk *l2_service.WalkResult
	var walkErr error
	if entry.Action == domain.TradeActionEntry {
		walk, walkErr = h.BackfillService.ApplyEntry(ctx, userID, entry)
	} else {
		walk, walkErr = h.BackfillService.ApplyExit(ctx, userID, entry)
	}

	// today's book changed either way
	if err := h.LiveSnapshotService.Invalidate(ctx, userID); err != nil {
		log.Warnf("failed to invalidate live snapshot for %s: %v", userID, err)
	}
	if walkErr != nil {
		backfillErr := domain.BackfillError{}
		if errors.As(walkErr, &backfillErr) {
			log.Errorf("backfill of %s stopped at %s, resume with entry %s: %v", entry.Ticker, backfillErr.Date, entry.ID.String(), walkErr)
		}
		return nil, walkErr
	}
	result.Backfill = walk

	log.Infof("recorded %s %s %s x%s on %s for %s", entry.Action, entry.Direction, entry.Ticker, entry.Shares.String(), entry.EffectiveDate, userID)
	return result, nil
}

// heldSince is the smallest holding between a back-dated exit and
// yesterday. every one of those days loses the exited shares, so none
// may go below zero. nil when the exit is dated today
func (h tradingServiceHandler) heldSince(ctx context.Context, userID string, input RecordTradeInput) (*decimal.Decimal, error) {
	yesterday, err := util.AddDays(h.SnapshotService.Today(), -1)
	if err != nil {
		return nil, err
	}
	if input.Date > yesterday {
		return nil, nil
	}
	history, err := h.SnapshotService.EnsureRange(ctx, userID, input.Date, yesterday)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings since %s: %w", input.Date, err)
	}
	held := decimal.Zero
	if len(history) > 0 {
		held = heldOn(history[0], input.Ticker, input.Direction)
	}
	for _, s := range history {
		held = decimal.Min(held, heldOn(s, input.Ticker, input.Direction))
	}
	// a gap before the first snapshot holds nothing
	if len(history) == 0 || history[0].Date != input.Date {
		held = decimal.Zero
	}
	return &held, nil
}

func heldOn(s *domain.DailySnapshot, ticker string, direction domain.Direction) decimal.Decimal {
	if direction == domain.DirectionShort {
		if p, ok := s.ShortPositions[ticker]; ok {
			return p.Shares
		}
		return decimal.Zero
	}
	if p, ok := s.LongPositions[ticker]; ok {
		return p.Shares
	}
	return decimal.Zero
}

func (h tradingServiceHandler) ResumeBackfill(ctx context.Context, userID string, entryID uuid.UUID, from string) (*l2_service.WalkResult, error) {
	if !util.IsValidDate(from) {
		return nil, domain.ValidationError{Message: fmt.Sprintf("invalid date %q", from)}
	}
	unlock := h.locks.Lock(userID)
	defer unlock()

	entries, err := h.JournalRepository.List(ctx, userID, "", "")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == entryID {
			walk, err := h.BackfillService.Resume(ctx, userID, e, from)
			if err != nil {
				return nil, err
			}
			if err := h.LiveSnapshotService.Invalidate(ctx, userID); err != nil {
				return nil, err
			}
			return walk, nil
		}
	}
	return nil, domain.ValidationError{Message: fmt.Sprintf("no journal entry %s", entryID.String())}
}

// recordRealizedPL books an exit on its date and moves the running
// total of every later date with it
func (h tradingServiceHandler) recordRealizedPL(ctx context.Context, userID, date string, realized decimal.Decimal) error {
	entry, err := h.RealizedPLRepository.EnsureDate(ctx, userID, date)
	if err != nil {
		return err
	}
	entry.RealizedPL = entry.RealizedPL.Add(realized)
	entry.CumulativeRealizedPL = entry.CumulativeRealizedPL.Add(realized)
	if err := h.RealizedPLRepository.Put(ctx, userID, *entry); err != nil {
		return fmt.Errorf("failed to record realized pl: %w", err)
	}

	later, err := h.RealizedPLRepository.List(ctx, userID, util.MustAddDays(date, 1), "")
	if err != nil {
		return err
	}
	for _, l := range later {
		l.CumulativeRealizedPL = l.CumulativeRealizedPL.Add(realized)
		if err := h.RealizedPLRepository.Put(ctx, userID, l); err != nil {
			return fmt.Errorf("failed to carry realized pl to %s: %w", l.Date, err)
		}
	}
	return nil
}

func (h tradingServiceHandler) updateStats(ctx context.Context, userID string, entry domain.JournalEntry) error {
	stats, err := h.StatsRepository.Get(ctx, userID)
	if err != nil {
		return err
	}
	stats.TotalTrades++
	if entry.Action == domain.TradeActionEntry {
		stats.TotalEntries++
	} else {
		stats.TotalExits++
	}
	if entry.RealizedPL != nil {
		stats.TotalRealizedPL = stats.TotalRealizedPL.Add(*entry.RealizedPL)
		if entry.RealizedPL.IsPositive() {
			stats.WinningExits++
		} else if entry.RealizedPL.IsNegative() {
			stats.LosingExits++
		}
	}
	stats.UpdatedAt = h.now().UTC()
	return h.StatsRepository.Put(ctx, userID, *stats)
}

func (h tradingServiceHandler) GetStats(ctx context.Context, userID string) (*domain.Stats, error) {
	return h.StatsRepository.Get(ctx, userID)
}
