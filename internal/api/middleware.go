package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderUserID 上游鉴权网关写入的用户 ID
	HeaderUserID = "X-User-ID"
	// HeaderCronSecret 内部触发的共享密钥
	HeaderCronSecret = "X-Cron-Secret"

	ctxUserID = "user_id"
)

// RequireUser 没有 X-User-ID 的请求直接 401
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "缺少用户身份"})
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// RequireCronSecret 密钥未配置时拒绝所有内部调用
func RequireCronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderCronSecret)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "密钥无效"})
			return
		}
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
