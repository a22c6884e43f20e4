package api

import (
	"context"
	"net/http"

	"GBPSync/internal/model"
	"GBPSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// maxBulkReplies 单次批量回复上限
const maxBulkReplies = 50

// ReviewReplier 手动/批量回复
type ReviewReplier interface {
	Reply(ctx context.Context, userID, accountID, reviewID, comment string) (*model.Review, error)
	BulkReply(ctx context.Context, userID, accountID string, items []service.ReplyItem) ([]service.ReplyOutcome, error)
}

type ReviewHandler struct {
	replier ReviewReplier
	logger  *logrus.Logger
}

func NewReviewHandler(replier ReviewReplier, logger *logrus.Logger) *ReviewHandler {
	return &ReviewHandler{replier: replier, logger: logger}
}

type replyRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// Reply POST /api/gmb/accounts/:account_id/reviews/:review_id/reply
func (h *ReviewHandler) Reply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "comment 不能为空")
		return
	}

	review, err := h.replier.Reply(c.Request.Context(), userID(c), c.Param("account_id"), c.Param("review_id"), req.Comment)
	if err != nil {
		writeError(c, h.logger, "Reply", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "review": review})
}

type bulkReplyRequest struct {
	Items []service.ReplyItem `json:"items" binding:"required"`
}

// BulkReply POST /api/gmb/accounts/:account_id/reviews/bulk-reply
func (h *ReviewHandler) BulkReply(c *gin.Context) {
	var req bulkReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Items) == 0 {
		badRequest(c, "items 不能为空")
		return
	}
	if len(req.Items) > maxBulkReplies {
		badRequest(c, "单次最多回复 50 条")
		return
	}

	outcomes, err := h.replier.BulkReply(c.Request.Context(), userID(c), c.Param("account_id"), req.Items)
	if err != nil {
		writeError(c, h.logger, "BulkReply", err)
		return
	}
	succeeded := 0
	for _, o := range outcomes {
		if o.Success {
			succeeded++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"total":     len(outcomes),
		"succeeded": succeeded,
		"failed":    len(outcomes) - succeeded,
		"results":   outcomes,
	})
}
