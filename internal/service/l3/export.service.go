package l3_service

import (
	"context"
	"fmt"
	"tradejournal/internal/calculator"
	"tradejournal/internal/domain"
	"tradejournal/internal/repository"
	l1_service "tradejournal/internal/service/l1"
	"tradejournal/internal/util"

	"github.com/gocarina/gocsv"
)

type ExportService interface {
	// SnapshotSeries fills any gaps in [start, end] and returns the
	// persisted days. empty start means the first trade
	SnapshotSeries(ctx context.Context, userID, start, end string) ([]*domain.DailySnapshot, error)
	SnapshotsCSV(ctx context.Context, userID, start, end string) ([]byte, error)
}

type exportServiceHandler struct {
	SnapshotService   l1_service.SnapshotService
	JournalRepository repository.JournalRepository
}

func NewExportService(snapshotService l1_service.SnapshotService, journalRepository repository.JournalRepository) ExportService {
	return exportServiceHandler{
		SnapshotService:   snapshotService,
		JournalRepository: journalRepository,
	}
}

type snapshotRow struct {
	Date                  string `csv:"date"`
	LongMarketValue       string `csv:"long_market_value"`
	ShortLiability        string `csv:"short_liability"`
	EquityNoCash          string `csv:"equity_no_cash"`
	UnrealizedPL          string `csv:"unrealized_pl"`
	CumulativeRealizedPL  string `csv:"cumulative_realized_pl"`
	TotalDividendReceived string `csv:"total_dividend_received"`
	TotalPL               string `csv:"total_pl"`
	CumulativeTrades      int    `csv:"cumulative_trades"`
	CumulativeInvested    string `csv:"cumulative_invested"`
	Positions             int    `csv:"positions"`
	PriceMissing          bool   `csv:"price_missing"`
}

func (h exportServiceHandler) SnapshotSeries(ctx context.Context, userID, start, end string) ([]*domain.DailySnapshot, error) {
	yesterday := util.MustAddDays(h.SnapshotService.Today(), -1)
	if end == "" || end > yesterday {
		end = yesterday
	}
	if start == "" {
		entries, err := h.JournalRepository.List(ctx, userID, "", "")
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return []*domain.DailySnapshot{}, nil
		}
		start = entries[0].EffectiveDate
	}
	if !util.IsValidDate(start) || !util.IsValidDate(end) {
		return nil, domain.ValidationError{Message: fmt.Sprintf("invalid range %q to %q", start, end)}
	}
	if start > end {
		return []*domain.DailySnapshot{}, nil
	}
	return h.SnapshotService.EnsureRange(ctx, userID, start, end)
}

func (h exportServiceHandler) SnapshotsCSV(ctx context.Context, userID, start, end string) ([]byte, error) {
	snapshots, err := h.SnapshotSeries(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	rows := make([]snapshotRow, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, toSnapshotRow(s))
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot csv: %w", err)
	}
	return out, nil
}

func toSnapshotRow(s *domain.DailySnapshot) snapshotRow {
	missing := false
	for _, p := range s.LongPositions {
		missing = missing || p.PriceMissing
	}
	for _, p := range s.ShortPositions {
		missing = missing || p.PriceMissing
	}
	return snapshotRow{
		Date:                  s.Date,
		LongMarketValue:       s.Totals.TotalLongMarketValue.StringFixed(2),
		ShortLiability:        s.Totals.TotalShortLiability.StringFixed(2),
		EquityNoCash:          s.Totals.EquityNoCash.StringFixed(2),
		UnrealizedPL:          s.Totals.UnrealizedPLNet.StringFixed(2),
		CumulativeRealizedPL:  s.CumulativeRealizedPL.StringFixed(2),
		TotalDividendReceived: s.TotalDividendReceived.StringFixed(2),
		TotalPL:               calculator.TotalPL(s).StringFixed(2),
		CumulativeTrades:      s.CumulativeTrades,
		CumulativeInvested:    s.CumulativeInvested.StringFixed(2),
		Positions:             len(s.LongPositions) + len(s.ShortPositions),
		PriceMissing:          missing,
	}
}
