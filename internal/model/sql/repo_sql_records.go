package sql

import (
	"context"
	"fmt"
	"strings"
	"stylesync/internal/entity"

	"gorm.io/gorm"
)

// CreateTryOnRecord inserts a new try-on record into the database.
func (r *GormRepository) CreateTryOnRecord(ctx context.Context, record *entity.DbTryOnRecord) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// UpdateTryOnRecord updates a try-on record with the provided fields.
func (r *GormRepository) UpdateTryOnRecord(ctx context.Context, id uint, updates entity.TryOnRecordUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid try-on record id")
	}
	if updates.IsEmpty() {
		return fmt.Errorf("no updates provided")
	}
	return r.db.WithContext(ctx).Model(&entity.DbTryOnRecord{}).Where("id = ?", id).Updates(updates.ToMap()).Error
}

// ListTryOnRecords retrieves paginated try-on records, newest first.
func (r *GormRepository) ListTryOnRecords(ctx context.Context, params *entity.TryOnRecordQuery) ([]entity.DbTryOnRecord, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbTryOnRecord{})
	if params != nil {
		if trimmed := strings.TrimSpace(params.SessionID); trimmed != "" {
			query = query.Where("session_id = ?", trimmed)
		}
		if trimmed := strings.ToLower(strings.TrimSpace(params.Status)); trimmed != "" && trimmed != "all" {
			query = query.Where("status = ?", trimmed)
		}
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, nil, err
	}

	page := 1
	pageSize := 20
	if params != nil {
		if params.Page > 0 {
			page = int(params.Page)
		}
		if params.PageSize > 0 {
			pageSize = int(params.PageSize)
		}
	}

	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}

	var records []entity.DbTryOnRecord
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&records).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(totalCount, page, pageSize)
	return records, meta, nil
}

// GetTryOnRecord retrieves a single try-on record by ID.
func (r *GormRepository) GetTryOnRecord(ctx context.Context, id uint) (*entity.DbTryOnRecord, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid try-on record id")
	}

	var record entity.DbTryOnRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load try-on record: %w", err)
	}
	return &record, nil
}

// DeleteTryOnRecord removes a try-on record by ID.
func (r *GormRepository) DeleteTryOnRecord(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid try-on record id")
	}

	result := r.db.WithContext(ctx).Delete(&entity.DbTryOnRecord{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
