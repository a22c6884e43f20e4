package api

import (
	"context"
	"net/http"
	"time"

	"GBPSync/internal/metrics"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Pinger 依赖健康检查（数据库、Redis）
type Pinger func(ctx context.Context) error

// RouterDeps 路由依赖
type RouterDeps struct {
	Accounts    *AccountHandler
	Reviews     *ReviewHandler
	Dashboard   *DashboardHandler
	Internal    *InternalHandler
	CronSecret  string
	Checks      map[string]Pinger
	EnablePprof bool
	Logger      *logrus.Logger
}

// NewRouter 注册全部路由
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger), metrics.GinMiddleware())

	if d.EnablePprof {
		// 注册ppof 方便调试和监测性能问题
		pprof.Register(r)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(d.Checks))

	r.POST("/internal/sync", RequireCronSecret(d.CronSecret), d.Internal.Sync)

	gmb := r.Group("/api/gmb/accounts/:account_id", RequireUser())
	gmb.POST("/sync", d.Accounts.TriggerSync)
	gmb.GET("/sync/runs", d.Accounts.ListSyncRuns)
	gmb.DELETE("", d.Accounts.Disconnect)
	gmb.GET("/overview", d.Dashboard.Overview)
	gmb.POST("/reviews/:review_id/reply", d.Reviews.Reply)
	gmb.POST("/reviews/bulk-reply", d.Reviews.BulkReply)
	return r
}

func healthz(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := gin.H{}
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": result})
	}
}

// requestLogger 按 logrus 输出访问日志，/metrics 与 /healthz 不记录
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "/metrics" || path == "/healthz" {
			return
		}
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"took_ms": time.Since(start).Milliseconds(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("HTTP 请求")
			return
		}
		entry.Debug("HTTP 请求")
	}
}
