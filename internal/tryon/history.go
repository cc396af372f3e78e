package tryon

import "time"

// DefaultHistoryLimit 历史记录上限,超出后淘汰最旧的一条
const DefaultHistoryLimit = 10

// HistoryEntry 历史记录的持久化形态
// 瞬态结果落盘时 URL 置空,重新加载时丢弃
type HistoryEntry struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Timestamp    int64  `json:"timestamp"`
	Model        string `json:"model"`
	Garment      string `json:"garment"`
	Background   string `json:"background,omitempty"`
	Seed         string `json:"seed,omitempty"`
	ProcessingMs int64  `json:"processing_ms"`
}

// Store 历史与限流窗口的持久化
type Store interface {
	SaveHistory(entries []HistoryEntry) error
	LoadHistory() ([]HistoryEntry, error)
	SaveWindow(state WindowState) error
	LoadWindow() (WindowState, bool, error)
}

func entryFromResult(result *Result) HistoryEntry {
	entry := HistoryEntry{
		ID:           result.ID,
		URL:          result.URL,
		Timestamp:    result.Timestamp.UnixMilli(),
		Model:        result.Model,
		Garment:      result.Garment,
		Background:   result.Background,
		Seed:         result.Seed,
		ProcessingMs: result.ProcessingTime.Milliseconds(),
	}
	if result.Transient() {
		entry.URL = ""
	}
	return entry
}

func resultFromEntry(entry HistoryEntry) *Result {
	return &Result{
		ID:             entry.ID,
		URL:            entry.URL,
		Timestamp:      time.UnixMilli(entry.Timestamp),
		Model:          entry.Model,
		Garment:        entry.Garment,
		Background:     entry.Background,
		Seed:           entry.Seed,
		ProcessingTime: time.Duration(entry.ProcessingMs) * time.Millisecond,
	}
}
