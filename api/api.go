package api

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"
	"tradejournal/internal/app"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	"tradejournal/internal/metrics"
	l2_service "tradejournal/internal/service/l2"
	l3_service "tradejournal/internal/service/l3"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ApiHandler struct {
	// nil when documents are kept in memory
	Db *sql.DB

	TradingService      l3_service.TradingService
	AnalysisService     l3_service.AnalysisService
	ExportService       l3_service.ExportService
	PriceRepairService  l3_service.PriceRepairService
	LiveSnapshotService l2_service.LiveSnapshotService
	// nil without SES
	AnalysisDigestApp app.AnalysisDigestApp
	PriceRepairApp    *app.PriceRepairApp

	JwtDecodeToken string
	tokenVerifier  *tokenVerifier
}

func (m *ApiHandler) InitializeRouterEngine() *gin.Engine {
	if m.tokenVerifier == nil {
		m.tokenVerifier = newTokenVerifier(m.JwtDecodeToken)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(m.logRequestMiddleware)
	router.Use(metrics.GinMiddleware())

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to tradejournal"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	authed := router.Group("/", m.authMiddleware)
	authed.POST("/trades", m.recordEntry)
	authed.POST("/trades/exit", m.recordExit)
	authed.POST("/trades/resume", m.resumeBackfill)
	authed.GET("/stats", m.getStats)
	authed.GET("/snapshot/live", m.getLiveSnapshot)
	authed.POST("/snapshot/refresh", m.refreshLiveSnapshot)
	authed.POST("/snapshots", m.getSnapshots)
	authed.POST("/snapshots/csv", m.exportSnapshotsCSV)
	authed.POST("/analysis", m.analysis)
	authed.POST("/analysis/email", m.emailAnalysis)
	authed.POST("/repairPrices", m.repairPrices)

	return router
}

func (m *ApiHandler) StartApi(port int) error {
	router := m.InitializeRouterEngine()
	return router.Run(fmt.Sprintf(":%d", port))
}

func returnErrorJson(err error, c *gin.Context) {
	returnErrorJsonCode(err, c, 500)
}

func returnErrorJsonCode(err error, c *gin.Context, code int) {
	logger.FromContext(c.Request.Context()).Errorf("%s %s returned %d: %v", c.Request.Method, c.Request.URL.Path, code, err)
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
	})
}

// returnServiceError maps the domain error types to status codes
func returnServiceError(err error, c *gin.Context) {
	overErr := domain.OverWithdrawalError{}
	validationErr := domain.ValidationError{}
	backfillErr := domain.BackfillError{}

	switch {
	case errors.As(err, &overErr):
		logger.FromContext(c.Request.Context()).Warnf("rejected exit: %v", err)
		c.AbortWithStatusJSON(409, gin.H{
			"error":     err.Error(),
			"ticker":    overErr.Ticker,
			"requested": overErr.Requested,
			"available": overErr.Available,
		})
	case errors.As(err, &validationErr):
		returnErrorJsonCode(err, c, 400)
	case errors.As(err, &backfillErr):
		logger.FromContext(c.Request.Context()).Errorf("backfill failed: %v", err)
		c.AbortWithStatusJSON(500, gin.H{
			"error":  err.Error(),
			"date":   backfillErr.Date,
			"ticker": backfillErr.Ticker,
		})
	default:
		returnErrorJson(err, c)
	}
}

// userID is set by authMiddleware
func userID(c *gin.Context) (string, bool) {
	v, ok := c.Get("userAccountID")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func requireUser(c *gin.Context) (string, bool) {
	id, ok := userID(c)
	if !ok {
		returnErrorJsonCode(fmt.Errorf("must be logged in"), c, 401)
		return "", false
	}
	return id, true
}

func requestContext(c *gin.Context) context.Context {
	return c.Request.Context()
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r responseBodyWriter) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// logRequestMiddleware puts a request-scoped logger and profile on the
// request context and logs each request when it completes
func (m *ApiHandler) logRequestMiddleware(ctx *gin.Context) {
	w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: ctx.Writer}
	ctx.Writer = w

	body, err := ctx.GetRawData()
	if err != nil {
		logger.FromContext(ctx.Request.Context()).Warnf("failed to get raw data: %v", err)
	}
	ctx.Request.Body = io.NopCloser(bytes.NewReader(body))

	requestID := uuid.New().String()
	log := logger.FromContext(ctx.Request.Context()).With(
		"requestID", requestID,
		"method", ctx.Request.Method,
		"route", ctx.Request.URL.Path,
	)
	profile, endProfile := domain.NewProfile()
	reqCtx := logger.WithLogger(ctx.Request.Context(), log)
	reqCtx = domain.WithProfile(reqCtx, profile)
	ctx.Request = ctx.Request.WithContext(reqCtx)
	ctx.Header("X-Request-ID", requestID)

	start := time.Now().UTC()
	ctx.Next()
	endProfile()

	status := ctx.Writer.Status()
	fields := []interface{}{
		"status", status,
		"durationMs", time.Since(start).Milliseconds(),
		"requestBytes", len(body),
		"ip", ctx.ClientIP(),
	}
	if summary := profile.Summary(); len(summary.Spans) > 0 {
		fields = append(fields, "profile", summary)
	}
	if status >= 500 {
		fields = append(fields, "response", w.body.String())
		log.Errorw("request failed", fields...)
		return
	}
	log.Infow("request", fields...)
}

func (m *ApiHandler) authMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := ""
	if len(header) > len("Bearer ") && header[:len("Bearer ")] == "Bearer " {
		token = header[len("Bearer "):]
	}
	if token == "" {
		returnErrorJsonCode(fmt.Errorf("missing bearer token"), c, 401)
		return
	}
	claims, err := m.tokenVerifier.parse(token)
	if err != nil {
		returnErrorJsonCode(err, c, 401)
		return
	}
	if claims.Subject == "" {
		returnErrorJsonCode(fmt.Errorf("token has no subject"), c, 401)
		return
	}
	c.Set("userAccountID", claims.Subject)
	c.Request = c.Request.WithContext(logger.WithUser(c.Request.Context(), claims.Subject))
	c.Next()
}
