package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stylesync/internal/entity"
)

type createSessionRequest struct {
	DeviceID string `json:"device_id"`
}

// CreateSession 签发匿名设备会话
// 调用方可带上已有的 device_id 续签,否则分配一个新的
func (h *HTTPHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	_ = c.ShouldBindJSON(&req)

	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	token, expiresAt, err := h.sessions.IssueToken(deviceID)
	if err != nil {
		logrus.WithError(err).Error("failed to issue session token")
		InternalError(c, "创建会话失败")
		return
	}

	c.JSON(http.StatusOK, entity.SessionResponse{
		Token:     token,
		DeviceID:  deviceID,
		ExpiresAt: expiresAt,
	})
}
