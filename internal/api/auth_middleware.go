package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const deviceContextKey = "device-session"

// SessionMiddleware 匿名设备会话中间件
// 会话只标识设备,不关联任何账号信息
func (h *HTTPHandler) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Code:    ErrCodeUnauthorized,
				Message: "缺少授权头",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Code:    ErrCodeUnauthorized,
				Message: "无效的授权头格式",
			})
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Code:    ErrCodeUnauthorized,
				Message: "缺少 Bearer Token",
			})
			return
		}

		claims, err := h.sessions.ParseToken(tokenString)
		if err != nil {
			logrus.WithError(err).Warn("failed to parse session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIError{
				Code:    ErrCodeSessionExpired,
				Message: "会话无效或已过期",
			})
			return
		}

		c.Set(deviceContextKey, claims.DeviceID)
		c.Next()
	}
}

// OptionalSession 解析会话但不强制要求,匿名请求照常放行
func (h *HTTPHandler) OptionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if claims, err := h.sessions.ParseToken(strings.TrimSpace(parts[1])); err == nil {
				c.Set(deviceContextKey, claims.DeviceID)
			}
		}
		c.Next()
	}
}

// CurrentDeviceID 从上下文获取当前设备标识,未认证时返回空串
func CurrentDeviceID(c *gin.Context) string {
	value, exists := c.Get(deviceContextKey)
	if !exists {
		return ""
	}
	deviceID, ok := value.(string)
	if !ok {
		return ""
	}
	return deviceID
}
