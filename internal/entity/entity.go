package entity

// Re-export common types from the common package.

import (
	"stylesync/internal/entity/common"
	"stylesync/internal/entity/db"
)

type StringArray = common.StringArray
type Meta = common.Meta

type DbTryOnRecord = db.TryOnRecord

// 记录状态
const (
	RecordStatusSuccess = "success"
	RecordStatusFailure = "failure"
)

// 主体/背景来源类型
const (
	SourceKindImage  = "image"
	SourceKindPrompt = "prompt"
	SourceKindAuto   = "auto"
)
