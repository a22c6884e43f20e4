package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"GBPSync/internal/model"
	"GBPSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ScheduledRunner 全量账号同步
type ScheduledRunner interface {
	Run(ctx context.Context, syncType model.SyncType) (service.RunSummary, error)
}

type InternalHandler struct {
	syncer    service.AccountSyncer
	scheduled ScheduledRunner
	logger    *logrus.Logger
}

func NewInternalHandler(syncer service.AccountSyncer, scheduled ScheduledRunner, logger *logrus.Logger) *InternalHandler {
	return &InternalHandler{syncer: syncer, scheduled: scheduled, logger: logger}
}

type internalSyncRequest struct {
	AccountID string `json:"account_id"`
	SyncType  string `json:"sync_type"`
}

// Sync 定时器/运维触发；不带 account_id 时同步所有活跃账号
// POST /internal/sync
func (h *InternalHandler) Sync(c *gin.Context) {
	var req internalSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "请求体格式错误")
		return
	}
	syncType, ok := model.ParseSyncType(req.SyncType)
	if !ok {
		badRequest(c, "sync_type 只能是 full 或 incremental")
		return
	}

	if req.AccountID != "" {
		result, err := h.syncer.SyncAccount(c.Request.Context(), req.AccountID, syncType)
		if err != nil {
			writeError(c, h.logger, "InternalSync", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
		return
	}

	summary, err := h.scheduled.Run(c.Request.Context(), syncType)
	if err != nil {
		writeError(c, h.logger, "InternalSyncAll", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": summary.Failed == 0, "summary": summary})
}
