package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalArchive persists archived images on the local filesystem.
type LocalArchive struct {
	baseDir string
}

// NewLocalArchive creates a LocalArchive rooted at baseDir, creating the
// directory if it does not exist.
func NewLocalArchive(baseDir string) (*LocalArchive, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = "datas/results"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &LocalArchive{baseDir: baseDir}, nil
}

// BaseDir returns the root directory used for archived files.
func (a *LocalArchive) BaseDir() string {
	return a.baseDir
}

// Put writes the bytes to disk and returns a relative key usable for
// building a public URL.
func (a *LocalArchive) Put(ctx context.Context, data []byte, opts PutOptions) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty payload")
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	key := objectKey(opts.Kind, opts.BaseName, opts.Extension)
	absPath := filepath.Join(a.baseDir, filepath.FromSlash(key))

	if opts.SkipIfExists {
		if _, err := os.Stat(absPath); err == nil {
			return key, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(absPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return key, nil
}

var _ Archive = (*LocalArchive)(nil)
var _ LocalDirServer = (*LocalArchive)(nil)
