package api

import (
	"context"
	"net/http"
	"strconv"

	"GBPSync/internal/model"
	"GBPSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AccountOperations 账号的用户侧操作
type AccountOperations interface {
	SyncForUser(ctx context.Context, userID, accountID string, syncType model.SyncType) (*service.SyncResult, error)
	Disconnect(ctx context.Context, userID, accountID string) error
	ListSyncRuns(ctx context.Context, userID, accountID string, limit int) ([]*model.SyncRun, error)
}

type AccountHandler struct {
	accounts AccountOperations
	logger   *logrus.Logger
}

func NewAccountHandler(accounts AccountOperations, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// TriggerSync 手动同步
// POST /api/gmb/accounts/:account_id/sync?type=full|incremental
func (h *AccountHandler) TriggerSync(c *gin.Context) {
	syncType, ok := model.ParseSyncType(c.Query("type"))
	if !ok {
		badRequest(c, "type 只能是 full 或 incremental")
		return
	}

	result, err := h.accounts.SyncForUser(c.Request.Context(), userID(c), c.Param("account_id"), syncType)
	if err != nil {
		writeError(c, h.logger, "TriggerSync", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// ListSyncRuns 最近的同步记录
// GET /api/gmb/accounts/:account_id/sync/runs?limit=20
func (h *AccountHandler) ListSyncRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	runs, err := h.accounts.ListSyncRuns(c.Request.Context(), userID(c), c.Param("account_id"), limit)
	if err != nil {
		writeError(c, h.logger, "ListSyncRuns", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Disconnect 停用账号
// DELETE /api/gmb/accounts/:account_id
func (h *AccountHandler) Disconnect(c *gin.Context) {
	if err := h.accounts.Disconnect(c.Request.Context(), userID(c), c.Param("account_id")); err != nil {
		writeError(c, h.logger, "Disconnect", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
