package tryon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	historyFileName = "stylesync_history.json"
	windowFileName  = "stylesync_requests.json"
)

// FileStore 基于 JSON 文件的本地持久化
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) SaveHistory(entries []HistoryEntry) error {
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return s.writeJSON(historyFileName, entries)
}

func (s *FileStore) LoadHistory() ([]HistoryEntry, error) {
	var entries []HistoryEntry
	ok, err := s.readJSON(historyFileName, &entries)
	if err != nil || !ok {
		return nil, err
	}
	return entries, nil
}

func (s *FileStore) SaveWindow(state WindowState) error {
	return s.writeJSON(windowFileName, state)
}

func (s *FileStore) LoadWindow() (WindowState, bool, error) {
	var state WindowState
	ok, err := s.readJSON(windowFileName, &state)
	return state, ok, err
}

// writeJSON 先写临时文件再改名,避免读到半截内容
func (s *FileStore) writeJSON(name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(s.dir, name))
}

func (s *FileStore) readJSON(name string, value interface{}) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		// 文件损坏按空处理,下次保存会覆盖
		return false, nil
	}
	return true, nil
}

// memoryStore 仅用于未配置持久化目录时的进程内兜底
type memoryStore struct {
	history []HistoryEntry
	window  *WindowState
}

func (s *memoryStore) SaveHistory(entries []HistoryEntry) error {
	s.history = append([]HistoryEntry(nil), entries...)
	return nil
}

func (s *memoryStore) LoadHistory() ([]HistoryEntry, error) {
	return append([]HistoryEntry(nil), s.history...), nil
}

func (s *memoryStore) SaveWindow(state WindowState) error {
	copied := state
	s.window = &copied
	return nil
}

func (s *memoryStore) LoadWindow() (WindowState, bool, error) {
	if s.window == nil {
		return WindowState{}, false, nil
	}
	return *s.window, true, nil
}
