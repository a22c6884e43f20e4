// Package metrics 同步管道的 Prometheus 指标
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 同步执行
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmbsync_sync_runs_total",
			Help: "Total number of account sync runs by type and outcome",
		},
		[]string{"sync_type", "status"},
	)

	syncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gmbsync_sync_duration_seconds",
			Help:    "Account sync duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"sync_type"},
	)

	rowsSyncedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmbsync_rows_synced_total",
			Help: "Rows upserted by resource type",
		},
		[]string{"resource"},
	)

	// 资源拉取降级（403/404/其它非2xx）
	fetchDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmbsync_fetch_degraded_total",
			Help: "Provider fetches degraded to an empty result",
		},
		[]string{"resource", "status"},
	)

	locationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmbsync_location_failures_total",
			Help: "Per-location sub-stage failures skipped by the orchestrator",
		},
		[]string{"resource"},
	)

	// 令牌刷新
	tokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmbsync_token_refresh_total",
			Help: "OAuth token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	// 自动回复
	autoReplyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmbsync_auto_reply_total",
			Help: "Auto-reply handoffs by outcome",
		},
		[]string{"outcome"},
	)

	// HTTP
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gmbsync_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gmbsync_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func ObserveSync(syncType, status string, took time.Duration) {
	syncRunsTotal.WithLabelValues(syncType, status).Inc()
	syncDuration.WithLabelValues(syncType).Observe(took.Seconds())
}

func AddRowsSynced(resource string, n int) {
	if n > 0 {
		rowsSyncedTotal.WithLabelValues(resource).Add(float64(n))
	}
}

func IncFetchDegraded(resource string, status int) {
	fetchDegradedTotal.WithLabelValues(resource, strconv.Itoa(status)).Inc()
}

func IncLocationFailure(resource string) {
	locationFailuresTotal.WithLabelValues(resource).Inc()
}

func IncTokenRefresh(outcome string) {
	tokenRefreshTotal.WithLabelValues(outcome).Inc()
}

func IncAutoReply(outcome string) {
	autoReplyTotal.WithLabelValues(outcome).Inc()
}

// GinMiddleware 记录请求数与耗时，path 使用路由模板避免高基数
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
