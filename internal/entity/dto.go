package entity

import "time"

// TryOnRecordQuery 记录列表查询参数
type TryOnRecordQuery struct {
	Page      int64  `form:"page"`
	PageSize  int64  `form:"page_size"`
	Status    string `form:"status"` // success | failure | all
	SessionID string `form:"-"`
}

// RecordImage 带公共访问地址的归档图片
type RecordImage struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// TryOnRecordItem 记录列表项
type TryOnRecordItem struct {
	ID              uint          `json:"id"`
	SubjectKind     string        `json:"subject_kind"`
	SubjectLabel    string        `json:"subject_label"`
	GarmentLabel    string        `json:"garment_label"`
	BackgroundKind  string        `json:"background_kind,omitempty"`
	BackgroundLabel string        `json:"background_label,omitempty"`
	Seed            string        `json:"seed,omitempty"`
	Status          string        `json:"status"`
	ErrorCategory   string        `json:"error_category,omitempty"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	ProcessingMs    int64         `json:"processing_ms"`
	InputImages     []RecordImage `json:"input_images"`
	ResultImage     *RecordImage  `json:"result_image,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// TryOnRecordListResponse 记录列表响应
type TryOnRecordListResponse struct {
	Records []TryOnRecordItem `json:"records"`
	Meta    *Meta             `json:"meta"`
}

// SessionResponse 会话创建响应
type SessionResponse struct {
	Token     string    `json:"token"`
	DeviceID  string    `json:"device_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
