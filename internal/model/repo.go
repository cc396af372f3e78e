package model

import (
	"context"
	"stylesync/internal/entity"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 试穿记录
	CreateTryOnRecord(ctx context.Context, record *entity.DbTryOnRecord) error
	UpdateTryOnRecord(ctx context.Context, id uint, updates entity.TryOnRecordUpdates) error
	ListTryOnRecords(ctx context.Context, params *entity.TryOnRecordQuery) ([]entity.DbTryOnRecord, *entity.Meta, error)
	GetTryOnRecord(ctx context.Context, id uint) (*entity.DbTryOnRecord, error)
	DeleteTryOnRecord(ctx context.Context, id uint) error
}
