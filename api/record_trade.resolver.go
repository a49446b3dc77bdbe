package api

import (
	"fmt"
	"tradejournal/internal/domain"
	l3_service "tradejournal/internal/service/l3"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RecordTradeRequest struct {
	Ticker       string           `json:"ticker"`
	Direction    domain.Direction `json:"direction"`
	Shares       decimal.Decimal  `json:"shares"`
	Price        decimal.Decimal  `json:"price"`
	Date         string           `json:"date"`
	Notes        string           `json:"notes"`
	Tags         []string         `json:"tags"`
	AllowPartial bool             `json:"allowPartial"`
}

func (m *ApiHandler) recordEntry(c *gin.Context) {
	m.recordTrade(c, domain.TradeActionEntry)
}

func (m *ApiHandler) recordExit(c *gin.Context) {
	m.recordTrade(c, domain.TradeActionExit)
}

func (m *ApiHandler) recordTrade(c *gin.Context, action domain.TradeAction) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var requestBody RecordTradeRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to parse trade: %w", err), c, 400)
		return
	}
	if requestBody.Direction == "" {
		requestBody.Direction = domain.DirectionLong
	}

	result, err := m.TradingService.RecordTrade(requestContext(c), userID, l3_service.RecordTradeInput{
		Ticker:       requestBody.Ticker,
		Action:       action,
		Direction:    requestBody.Direction,
		Shares:       requestBody.Shares,
		Price:        requestBody.Price,
		Date:         requestBody.Date,
		Notes:        requestBody.Notes,
		Tags:         requestBody.Tags,
		AllowPartial: requestBody.AllowPartial,
	})
	if err != nil {
		returnServiceError(err, c)
		return
	}

	c.JSON(200, result)
}

type ResumeBackfillRequest struct {
	EntryID uuid.UUID `json:"entryID"`
	From    string    `json:"from"`
}

func (m *ApiHandler) resumeBackfill(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var requestBody ResumeBackfillRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to parse request: %w", err), c, 400)
		return
	}

	walk, err := m.TradingService.ResumeBackfill(requestContext(c), userID, requestBody.EntryID, requestBody.From)
	if err != nil {
		returnServiceError(err, c)
		return
	}
	c.JSON(200, walk)
}

func (m *ApiHandler) getStats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	stats, err := m.TradingService.GetStats(requestContext(c), userID)
	if err != nil {
		returnErrorJson(fmt.Errorf("failed to get stats: %w", err), c)
		return
	}
	c.JSON(200, stats)
}
