package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// labelled by walk: entry, exit or synthesis
	SnapshotsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradejournal_snapshots_written_total",
		Help: "Daily snapshots persisted, by the walk that wrote them",
	}, []string{"walk"})

	BackfillFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradejournal_backfill_failures_total",
		Help: "Backfill walks aborted by a storage error",
	}, []string{"walk"})

	RefetchEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradejournal_price_refetch_enqueued_total",
		Help: "Ticker/date pairs queued because no price was available",
	})

	// result is repaired, retried or dropped
	RefetchProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradejournal_price_refetch_processed_total",
		Help: "Queued prices handled by the repair job",
	}, []string{"result"})

	DividendAdjustments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradejournal_dividend_adjustments_total",
		Help: "Reconciliations that changed a credited dividend total",
	})

	// result is hit, miss or shared
	LiveSnapshotRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradejournal_live_snapshot_requests_total",
		Help: "Live snapshot reads by cache outcome",
	}, []string{"result"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradejournal_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradejournal_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request metrics against the route pattern,
// not the raw path, to keep label cardinality bounded
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
