package storage

import (
	"context"
	"fmt"
	"strings"
	"stylesync/internal/config"
)

const (
	// TypeLocal 表示本地文件系统归档。
	TypeLocal = "local"
	// TypeS3 表示 Amazon S3 或兼容的归档后端。
	TypeS3 = "s3"
	// TypeOSS 表示阿里云 OSS 归档。
	TypeOSS = "oss"
	// TypeCOS 表示腾讯云 COS 归档。
	TypeCOS = "cos"
	// TypeR2 表示 Cloudflare R2 归档。
	TypeR2 = "r2"
)

// 归档分类：代理请求的输入图与生成结果图分开存放。
const (
	KindInputs  = "inputs"
	KindResults = "results"
)

// PutOptions 控制归档后端如何持久化文件。
//
// Kind 用于在对象键上组织文件，Extension 提示首选的文件扩展名（不含前导点）。
// SkipIfExists 用于按内容寻址的输入图去重。
type PutOptions struct {
	Kind         string
	Extension    string
	BaseName     string
	SkipIfExists bool
}

// Archive 持久化二进制图片数据并返回归档键（例如本地归档的相对路径）。
type Archive interface {
	Put(ctx context.Context, data []byte, opts PutOptions) (string, error)
}

// LocalDirServer 由暴露可通过 HTTP 直接提供服务的本地目录的归档驱动实现。
type LocalDirServer interface {
	BaseDir() string
}

// NewArchive 根据配置实例化归档后端。
func NewArchive(cfg config.Config) (Archive, error) {
	typeName := strings.ToLower(strings.TrimSpace(cfg.StorageType))
	switch typeName {
	case "", TypeLocal:
		return NewLocalArchive(cfg.StorageLocalDir)
	case TypeS3:
		return NewS3Archive(cfg)
	case TypeOSS:
		return NewOSSArchive(cfg)
	case TypeCOS:
		return NewCOSArchive(cfg)
	case TypeR2:
		return NewR2Archive(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}
