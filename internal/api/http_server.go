package api

import (
	"strings"
	"time"

	"stylesync/internal/auth"
	"stylesync/internal/config"
	"stylesync/internal/model"
	"stylesync/internal/service"
	"stylesync/internal/storage"
	"stylesync/internal/upstream"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg               config.Config
	repo              model.Repository
	archive           storage.Archive
	storagePublicBase string
	sessions          *auth.Manager
	upstream          *upstream.Client
	limiter           *sessionLimiter

	// 服务层
	recordService *service.RecordService
}

// NewHTTPHandler 创建 HTTP 处理器实例
// 上游密钥缺失或仍为占位符时在这里直接失败,不会带病启动
func NewHTTPHandler(cfg config.Config, repo model.Repository, archive storage.Archive) (*HTTPHandler, error) {
	upstreamClient, err := upstream.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	expiry := time.Duration(cfg.SessionExpirationMinutes) * time.Minute
	sessions, err := auth.NewManager(cfg.SessionSecret, cfg.SessionIssuer, expiry)
	if err != nil {
		return nil, err
	}

	return &HTTPHandler{
		cfg:               cfg,
		repo:              repo,
		archive:           archive,
		storagePublicBase: normalisePublicBase(cfg.StoragePublicBaseURL),
		sessions:          sessions,
		upstream:          upstreamClient,
		limiter:           newSessionLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		recordService:     service.NewRecordService(repo, archive),
	}, nil
}

// normalisePublicBase 规范化公共 URL 基础路径
func normalisePublicBase(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = "/files"
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return strings.TrimRight(trimmed, "/")
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}
