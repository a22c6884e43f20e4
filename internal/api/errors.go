package api

import (
	"context"
	"errors"
	"net/http"

	"GBPSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// writeError SyncError 按错误码映射状态；其它错误一律 500，不暴露内部信息
func writeError(c *gin.Context, logger *logrus.Logger, op string, err error) {
	entry := logger.WithError(err).WithField("op", op)
	if se, ok := service.AsSyncError(err); ok {
		status := se.HTTPStatus()
		if status >= http.StatusInternalServerError {
			entry.Error("请求失败")
		} else {
			entry.Warn("请求失败")
		}
		c.JSON(status, gin.H{
			"code":               se.Code,
			"message":            se.Message,
			"reconnect_required": se.ReconnectRequired(),
		})
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		entry.Warn("请求超时")
		c.JSON(http.StatusGatewayTimeout, gin.H{"code": "TIMEOUT", "message": "请求超时"})
		return
	}
	entry.Error("请求失败")
	c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "内部错误"})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": service.CodeInvalidRequest, "message": message})
}
