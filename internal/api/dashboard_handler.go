package api

import (
	"context"
	"net/http"
	"strconv"

	"GBPSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type OverviewProvider interface {
	Overview(ctx context.Context, userID, accountID string, days int) (*service.Overview, error)
}

type DashboardHandler struct {
	dashboard OverviewProvider
	logger    *logrus.Logger
}

func NewDashboardHandler(dashboard OverviewProvider, logger *logrus.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

// Overview 健康分、瓶颈、环比与门店亮点
// GET /api/gmb/accounts/:account_id/overview?days=30
func (h *DashboardHandler) Overview(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 || days > 365 {
		badRequest(c, "days 取值范围 1-365")
		return
	}

	overview, err := h.dashboard.Overview(c.Request.Context(), userID(c), c.Param("account_id"), days)
	if err != nil {
		writeError(c, h.logger, "Overview", err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
