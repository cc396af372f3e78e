package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stylesync/internal/entity"
)

// ListTryOnRecords 分页列出当前设备的试穿记录
func (h *HTTPHandler) ListTryOnRecords(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusOK, entity.TryOnRecordListResponse{
			Records: []entity.TryOnRecordItem{},
			Meta:    &entity.Meta{Page: 1, PageSize: 0, Total: 0},
		})
		return
	}

	deviceID := CurrentDeviceID(c)
	if deviceID == "" {
		Unauthorized(c, "需要设备会话")
		return
	}

	var params entity.TryOnRecordQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		InvalidPayload(c)
		return
	}
	params.SessionID = deviceID

	params.Status = strings.ToLower(strings.TrimSpace(params.Status))
	if params.Status == "all" {
		params.Status = ""
	}

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	records, meta, err := h.repo.ListTryOnRecords(ctx, &params)
	if err != nil {
		logrus.WithError(err).Error("failed to list tryon records")
		InternalError(c, "加载试穿记录失败")
		return
	}

	items := make([]entity.TryOnRecordItem, 0, len(records))
	for _, record := range records {
		items = append(items, h.makeRecordItem(record))
	}

	if meta == nil {
		meta = &entity.Meta{Page: params.Page, PageSize: params.PageSize, Total: int64(len(items))}
	}

	c.JSON(http.StatusOK, entity.TryOnRecordListResponse{Records: items, Meta: meta})
}

// GetTryOnRecord 获取单条记录,只能看自己设备的
func (h *HTTPHandler) GetTryOnRecord(c *gin.Context) {
	record, ok := h.loadOwnedRecord(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.makeRecordItem(*record))
}

// DeleteTryOnRecord 删除单条记录
func (h *HTTPHandler) DeleteTryOnRecord(c *gin.Context) {
	record, ok := h.loadOwnedRecord(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.DeleteTryOnRecord(ctx, record.ID); err != nil {
		logrus.WithError(err).WithField("record_id", record.ID).Error("failed to delete tryon record")
		InternalError(c, "删除试穿记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": record.ID})
}

// loadOwnedRecord 按路径参数加载记录并校验归属
func (h *HTTPHandler) loadOwnedRecord(c *gin.Context) (*entity.DbTryOnRecord, bool) {
	if h.repo == nil {
		ServiceUnavailable(c, "未配置数据库")
		return nil, false
	}

	deviceID := CurrentDeviceID(c)
	if deviceID == "" {
		Unauthorized(c, "需要设备会话")
		return nil, false
	}

	recordID, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || recordID == 0 {
		BadRequest(c, ErrCodeInvalidRequest, "无效的记录编号")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	record, err := h.repo.GetTryOnRecord(ctx, uint(recordID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeRecordNotFound, "记录不存在")
			return nil, false
		}
		logrus.WithError(err).WithField("record_id", recordID).Error("failed to load tryon record")
		InternalError(c, "加载试穿记录失败")
		return nil, false
	}

	// 归属不匹配按不存在处理,避免探测他人记录
	if record.SessionID != deviceID {
		NotFound(c, ErrCodeRecordNotFound, "记录不存在")
		return nil, false
	}

	return record, true
}

func (h *HTTPHandler) makeRecordItem(record entity.DbTryOnRecord) entity.TryOnRecordItem {
	item := entity.TryOnRecordItem{
		ID:              record.ID,
		SubjectKind:     record.SubjectKind,
		SubjectLabel:    record.SubjectLabel,
		GarmentLabel:    record.GarmentLabel,
		BackgroundKind:  record.BackgroundKind,
		BackgroundLabel: record.BackgroundLabel,
		Seed:            record.Seed,
		Status:          record.Status,
		ErrorCategory:   record.ErrorCategory,
		ErrorMessage:    record.ErrorMessage,
		ProcessingMs:    record.ProcessingMs,
		InputImages:     h.makeRecordImages(record.InputImages.ToSlice()),
		CreatedAt:       record.CreatedAt,
	}
	if trimmed := strings.TrimSpace(record.ResultImage); trimmed != "" {
		item.ResultImage = &entity.RecordImage{
			Path: trimmed,
			URL:  h.publicURL(trimmed),
		}
	}
	return item
}

func (h *HTTPHandler) makeRecordImages(paths []string) []entity.RecordImage {
	if len(paths) == 0 {
		return []entity.RecordImage{}
	}
	items := make([]entity.RecordImage, 0, len(paths))
	for _, p := range paths {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		items = append(items, entity.RecordImage{
			Path: trimmed,
			URL:  h.publicURL(trimmed),
		})
	}
	return items
}

// publicURL 把归档相对路径拼成可访问地址
func (h *HTTPHandler) publicURL(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	base := h.storagePublicBase
	if base == "" {
		base = "/files"
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), strings.TrimLeft(trimmed, "/"))
}
