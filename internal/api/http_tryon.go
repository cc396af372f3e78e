package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"stylesync/internal/entity"
	"stylesync/internal/service"
	"stylesync/internal/upstream"
	"stylesync/internal/utils"
)

const recordLabelLimit = 40

// 代理入站只收这三种,上游宣称的支持范围
var proxyAllowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// proxyError 代理端点的失败响应固定为 {"error": string}
func proxyError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// GenerateTryOn 代理一次虚拟试穿生成
// 校验入站字段,重组 multipart 转发上游,密钥只走请求头
func (h *HTTPHandler) GenerateTryOn(c *gin.Context) {
	limitKey := CurrentDeviceID(c)
	if limitKey == "" {
		limitKey = c.ClientIP()
	}
	if !h.limiter.allow(limitKey) {
		proxyError(c, http.StatusTooManyRequests, "Too many requests. Please wait a moment and try again.")
		return
	}

	// 三张图加请求体开销的总上限
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes*3+1<<20)

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		proxyError(c, http.StatusBadRequest, "The request body must be multipart/form-data with image fields.")
		return
	}
	form := c.Request.MultipartForm

	avatarImage, err := h.readImagePart(form, "avatar_image")
	if err != nil {
		proxyError(c, http.StatusBadRequest, err.Error())
		return
	}
	clothingImage, err := h.readImagePart(form, "clothing_image")
	if err != nil {
		proxyError(c, http.StatusBadRequest, err.Error())
		return
	}
	backgroundImage, err := h.readImagePart(form, "background_image")
	if err != nil {
		proxyError(c, http.StatusBadRequest, err.Error())
		return
	}

	avatarPrompt := strings.TrimSpace(formValue(form, "avatar_prompt"))
	backgroundPrompt := strings.TrimSpace(formValue(form, "background_prompt"))
	seed := strings.TrimSpace(formValue(form, "seed"))

	if avatarImage == nil && avatarPrompt == "" {
		proxyError(c, http.StatusBadRequest, "Either a model image or an avatar description is required.")
		return
	}
	if clothingImage == nil {
		proxyError(c, http.StatusBadRequest, "A clothing image is required.")
		return
	}

	request := upstream.Request{
		ClothingImage: clothingImage,
		Seed:          seed,
	}
	// 图片和描述同时出现时描述优先,图片只在没有描述时转发
	if avatarImage != nil && avatarPrompt == "" {
		request.AvatarImage = avatarImage
	} else {
		request.AvatarPrompt = avatarPrompt
	}
	if backgroundImage != nil && backgroundPrompt == "" {
		request.BackgroundImage = backgroundImage
	} else if backgroundPrompt != "" {
		request.BackgroundPrompt = backgroundPrompt
	}

	attempt := h.makeAttempt(c, request)

	started := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.UpstreamTimeout)
	defer cancel()

	result, err := h.upstream.TryOn(ctx, request)
	attempt.ProcessingMs = time.Since(started).Milliseconds()

	if err != nil {
		status, category, message := translateUpstreamError(err)
		attempt.ErrorCategory = category
		attempt.ErrorMessage = message
		h.recordService.RecordAsync(attempt)

		logrus.WithError(err).WithFields(logrus.Fields{
			"category": category,
			"status":   status,
		}).Warn("tryon_proxy_failed")
		proxyError(c, status, message)
		return
	}

	attempt.ResultData = result.Data
	attempt.ContentType = result.ContentType
	attempt.Seed = result.Seed
	h.recordService.RecordAsync(attempt)

	c.Header("Cache-Control", "no-store")
	c.Header("Content-Length", fmt.Sprintf("%d", len(result.Data)))
	if result.Seed != "" {
		c.Header("X-Seed", result.Seed)
	}
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// readImagePart 读取一个可选的图片字段,做大小和类型检查
func (h *HTTPHandler) readImagePart(form *multipart.Form, field string) (*upstream.FilePart, error) {
	if form == nil || len(form.File[field]) == 0 {
		return nil, nil
	}
	header := form.File[field][0]

	if h.cfg.MaxUploadBytes > 0 && header.Size > h.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("The %s file exceeds the maximum size of %dMB.", field, h.cfg.MaxUploadBytes/(1024*1024))
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("The %s file could not be read.", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("The %s file could not be read.", field)
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" {
		contentType = strings.ToLower(http.DetectContentType(data))
	}
	if !proxyAllowedTypes[contentType] {
		return nil, fmt.Errorf("The %s file must be a JPEG, PNG, or WebP image.", field)
	}

	return &upstream.FilePart{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func formValue(form *multipart.Form, field string) string {
	if form == nil || len(form.Value[field]) == 0 {
		return ""
	}
	return form.Value[field][0]
}

// makeAttempt 从请求字段整理出落库用的描述信息
func (h *HTTPHandler) makeAttempt(c *gin.Context, request upstream.Request) service.TryOnAttempt {
	attempt := service.TryOnAttempt{
		SessionID:      CurrentDeviceID(c),
		GarmentLabel:   request.ClothingImage.Filename,
		BackgroundKind: entity.SourceKindAuto,
		Seed:           request.Seed,
	}

	if request.AvatarImage != nil {
		attempt.SubjectKind = entity.SourceKindImage
		attempt.SubjectLabel = request.AvatarImage.Filename
		attempt.Inputs = append(attempt.Inputs, service.InputImage{
			Data:        request.AvatarImage.Data,
			ContentType: request.AvatarImage.ContentType,
		})
	} else {
		attempt.SubjectKind = entity.SourceKindPrompt
		attempt.SubjectLabel = utils.TruncateLabel(request.AvatarPrompt, recordLabelLimit)
	}

	attempt.Inputs = append(attempt.Inputs, service.InputImage{
		Data:        request.ClothingImage.Data,
		ContentType: request.ClothingImage.ContentType,
	})

	if request.BackgroundImage != nil {
		attempt.BackgroundKind = entity.SourceKindImage
		attempt.BackgroundLabel = request.BackgroundImage.Filename
		attempt.Inputs = append(attempt.Inputs, service.InputImage{
			Data:        request.BackgroundImage.Data,
			ContentType: request.BackgroundImage.ContentType,
		})
	} else if request.BackgroundPrompt != "" {
		attempt.BackgroundKind = entity.SourceKindPrompt
		attempt.BackgroundLabel = utils.TruncateLabel(request.BackgroundPrompt, recordLabelLimit)
	}

	return attempt
}

// translateUpstreamError 上游失败翻译成固定的用户可见类别,不泄漏上游内部信息
func translateUpstreamError(err error) (status int, category string, message string) {
	switch {
	case errors.Is(err, upstream.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "timeout", "The image service took too long to respond. Please try again."
	case errors.Is(err, upstream.ErrBadInput):
		return http.StatusBadRequest, "bad_input", "The image service rejected the supplied images. Please check them and try again."
	case errors.Is(err, upstream.ErrAuth):
		return http.StatusInternalServerError, "auth", "The image service rejected our credentials. Please contact support."
	case errors.Is(err, upstream.ErrRateLimited):
		return http.StatusServiceUnavailable, "rate_limited", "The image service is busy. Please try again shortly."
	case errors.Is(err, upstream.ErrBadContract):
		return http.StatusInternalServerError, "bad_contract", "The image service returned an unexpected response."
	case errors.Is(err, upstream.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable", "The image service is temporarily unavailable. Please try again later."
	default:
		return http.StatusInternalServerError, "internal", "Failed to generate the virtual try-on. Please try again."
	}
}
