package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"stylesync/internal/entity"
	"stylesync/internal/model"
	"stylesync/internal/storage"
	"stylesync/internal/utils"
)

// RecordService 试穿记录服务，负责落库和归档每次代理生成
type RecordService struct {
	repo    model.Repository
	archive storage.Archive
}

// NewRecordService 创建记录服务实例
func NewRecordService(repo model.Repository, archive storage.Archive) *RecordService {
	return &RecordService{
		repo:    repo,
		archive: archive,
	}
}

// InputImage 一张待归档的输入图片
type InputImage struct {
	Data        []byte
	ContentType string
}

// TryOnAttempt 一次代理生成的完整描述
type TryOnAttempt struct {
	SessionID string

	SubjectKind     string
	SubjectLabel    string
	GarmentLabel    string
	BackgroundKind  string
	BackgroundLabel string
	Seed            string

	Inputs []InputImage

	// 成功时的结果图片,失败时为空
	ResultData  []byte
	ContentType string

	ErrorCategory string
	ErrorMessage  string
	ProcessingMs  int64
}

// RecordAsync 异步落库,不阻塞代理响应
// 匿名请求没有设备标识,记录无人能查,直接跳过
func (s *RecordService) RecordAsync(attempt TryOnAttempt) {
	if s == nil || s.repo == nil || attempt.SessionID == "" {
		return
	}
	go s.handleAttempt(attempt)
}

// handleAttempt 处理单次记录:先建记录,再归档图片,最后补写归档路径
func (s *RecordService) handleAttempt(attempt TryOnAttempt) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	status := entity.RecordStatusSuccess
	if attempt.ErrorMessage != "" {
		status = entity.RecordStatusFailure
	}

	record := &entity.DbTryOnRecord{
		SessionID:       attempt.SessionID,
		SubjectKind:     attempt.SubjectKind,
		SubjectLabel:    attempt.SubjectLabel,
		GarmentLabel:    attempt.GarmentLabel,
		BackgroundKind:  attempt.BackgroundKind,
		BackgroundLabel: attempt.BackgroundLabel,
		Seed:            attempt.Seed,
		Status:          status,
		ErrorCategory:   attempt.ErrorCategory,
		ErrorMessage:    attempt.ErrorMessage,
		ProcessingMs:    attempt.ProcessingMs,
	}

	if err := s.repo.CreateTryOnRecord(ctx, record); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"session_id": attempt.SessionID,
			"status":     status,
		}).Error("failed to create tryon record")
		return
	}

	var updates entity.TryOnRecordUpdates
	var storageIssues []string

	// 归档输入图片
	if paths, err := s.archiveInputs(ctx, attempt.Inputs); err != nil {
		storageIssues = append(storageIssues, fmt.Sprintf("input images: %v", err))
		if len(paths) > 0 {
			inputImages := entity.StringArray(paths)
			updates.InputImages = &inputImages
		}
	} else if len(paths) > 0 {
		inputImages := entity.StringArray(paths)
		updates.InputImages = &inputImages
	}

	// 归档结果图片
	if len(attempt.ResultData) > 0 {
		path, err := s.archiveResult(ctx, attempt)
		if err != nil {
			storageIssues = append(storageIssues, fmt.Sprintf("result image: %v", err))
		} else {
			updates.ResultImage = &path
			contentType := attempt.ContentType
			updates.ContentType = &contentType
			byteSize := int64(len(attempt.ResultData))
			updates.ByteSize = &byteSize
		}
	}

	// 存储问题记入错误信息但不改变成功状态
	if len(storageIssues) > 0 {
		logrus.WithFields(logrus.Fields{
			"record_id": record.ID,
			"issues":    strings.Join(storageIssues, "; "),
		}).Warn("failed to archive tryon images")
		combined := appendStorageNotes(attempt.ErrorMessage, storageIssues)
		updates.ErrorMessage = &combined
	}

	s.updateRecord(record.ID, updates)
}

// archiveInputs 输入图按内容 MD5 命名,重复上传直接复用
func (s *RecordService) archiveInputs(ctx context.Context, inputs []InputImage) ([]string, error) {
	if s.archive == nil || len(inputs) == 0 {
		return nil, nil
	}

	var (
		paths []string
		errs  []string
	)
	for idx, input := range inputs {
		if len(input.Data) == 0 {
			continue
		}
		path, err := s.archive.Put(ctx, input.Data, storage.PutOptions{
			Kind:         storage.KindInputs,
			Extension:    extensionFor(input.ContentType, input.Data),
			BaseName:     computeInputBaseName(input.Data),
			SkipIfExists: true,
		})
		if err != nil {
			errs = append(errs, fmt.Sprintf("%d: %v", idx, err))
			continue
		}
		paths = append(paths, path)
	}

	if len(errs) > 0 {
		return paths, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return paths, nil
}

func (s *RecordService) archiveResult(ctx context.Context, attempt TryOnAttempt) (string, error) {
	if s.archive == nil {
		return "", nil
	}
	return s.archive.Put(ctx, attempt.ResultData, storage.PutOptions{
		Kind:      storage.KindResults,
		Extension: extensionFor(attempt.ContentType, attempt.ResultData),
		BaseName:  buildResultBaseName(attempt.SessionID),
	})
}

// updateRecord 补写归档结果
func (s *RecordService) updateRecord(recordID uint, updates entity.TryOnRecordUpdates) {
	if s.repo == nil || recordID == 0 || updates.IsEmpty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.UpdateTryOnRecord(ctx, recordID, updates); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"record_id": recordID,
		}).Error("failed to update tryon record")
	}
}

// appendStorageNotes 合并存储问题说明
func appendStorageNotes(existing string, notes []string) string {
	if len(notes) == 0 {
		return existing
	}
	combined := strings.Join(notes, "; ")
	if strings.TrimSpace(existing) == "" {
		return combined
	}
	return existing + "; " + combined
}

// computeInputBaseName 计算输入文件的基础名称（使用 MD5 哈希）
func computeInputBaseName(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// buildResultBaseName 构建结果文件的基础名称
func buildResultBaseName(sessionID string) string {
	token := strings.TrimSpace(sessionID)
	if len(token) > 12 {
		token = token[:12]
	}
	if token == "" {
		token = "anon"
	}
	return fmt.Sprintf("%s_%d", token, time.Now().UTC().UnixNano())
}

func extensionFor(contentType string, data []byte) string {
	ext := utils.ExtensionFromMime(contentType)
	if ext == "" {
		ext = utils.ExtensionFromMime(http.DetectContentType(data))
	}
	if ext == "" {
		ext = "bin"
	}
	return ext
}
