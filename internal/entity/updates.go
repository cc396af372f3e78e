package entity

// TryOnRecordUpdates 试穿记录更新字段
type TryOnRecordUpdates struct {
	Status        *string
	ErrorCategory *string
	ErrorMessage  *string
	ProcessingMs  *int64
	InputImages   *StringArray
	ResultImage   *string
	ContentType   *string
	ByteSize      *int64
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u TryOnRecordUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Status != nil {
		updates["status"] = *u.Status
	}
	if u.ErrorCategory != nil {
		updates["error_category"] = *u.ErrorCategory
	}
	if u.ErrorMessage != nil {
		updates["error_message"] = *u.ErrorMessage
	}
	if u.ProcessingMs != nil {
		updates["processing_ms"] = *u.ProcessingMs
	}
	if u.InputImages != nil {
		updates["input_images"] = *u.InputImages
	}
	if u.ResultImage != nil {
		updates["result_image"] = *u.ResultImage
	}
	if u.ContentType != nil {
		updates["content_type"] = *u.ContentType
	}
	if u.ByteSize != nil {
		updates["byte_size"] = *u.ByteSize
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u TryOnRecordUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}
