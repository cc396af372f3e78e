package db

import (
	"stylesync/internal/entity/common"
	"time"
)

// TryOnRecord stores one proxied generation attempt.
type TryOnRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SessionID string `gorm:"column:session_id;type:varchar(64);index" json:"session_id"`

	SubjectKind     string `gorm:"column:subject_kind;type:varchar(16)" json:"subject_kind"`   // image | prompt
	SubjectLabel    string `gorm:"column:subject_label;type:varchar(255)" json:"subject_label"`
	GarmentLabel    string `gorm:"column:garment_label;type:varchar(255)" json:"garment_label"`
	BackgroundKind  string `gorm:"column:background_kind;type:varchar(16)" json:"background_kind"` // image | prompt | auto
	BackgroundLabel string `gorm:"column:background_label;type:varchar(255)" json:"background_label"`
	Seed            string `gorm:"column:seed;type:varchar(64)" json:"seed"`

	Status        string `gorm:"column:status;type:varchar(16);index" json:"status"` // success | failure
	ErrorCategory string `gorm:"column:error_category;type:varchar(32)" json:"error_category"`
	ErrorMessage  string `gorm:"column:error_message;type:text" json:"error_message"`
	ProcessingMs  int64  `gorm:"column:processing_ms" json:"processing_ms"`

	InputImages common.StringArray `gorm:"column:input_images;type:json" json:"input_images"`
	ResultImage string             `gorm:"column:result_image;type:varchar(512)" json:"result_image"`
	ContentType string             `gorm:"column:content_type;type:varchar(64)" json:"content_type"`
	ByteSize    int64              `gorm:"column:byte_size" json:"byte_size"`
}

// TableName 指定表名
func (TryOnRecord) TableName() string {
	return "tryon_records"
}
