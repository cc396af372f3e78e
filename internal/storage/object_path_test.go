package storage

import (
	"strings"
	"testing"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name       string
		kind       string
		baseName   string
		ext        string
		wantPrefix string
		wantSuffix string
	}{
		{
			name:       "结果图",
			kind:       "results",
			baseName:   "abc123",
			ext:        "jpg",
			wantPrefix: "results/",
			wantSuffix: "/abc123.jpg",
		},
		{
			name:       "空分类回退",
			kind:       "",
			baseName:   "abc",
			ext:        "png",
			wantPrefix: "results/",
			wantSuffix: "/abc.png",
		},
		{
			name:       "非法字符被剔除",
			kind:       "In puts!",
			baseName:   "My File",
			ext:        ".WEBP",
			wantPrefix: "inputs/",
			wantSuffix: "/my-file.webp",
		},
		{
			name:       "空扩展名回退",
			kind:       "inputs",
			baseName:   "x",
			ext:        "",
			wantPrefix: "inputs/",
			wantSuffix: "/x.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := objectKey(tt.kind, tt.baseName, tt.ext)
			if !strings.HasPrefix(key, tt.wantPrefix) {
				t.Errorf("expected prefix %q, got %q", tt.wantPrefix, key)
			}
			if !strings.HasSuffix(key, tt.wantSuffix) {
				t.Errorf("expected suffix %q, got %q", tt.wantSuffix, key)
			}
		})
	}
}

func TestJoinPrefix(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		key      string
		expected string
	}{
		{name: "无前缀", prefix: "", key: "results/a.jpg", expected: "results/a.jpg"},
		{name: "普通前缀", prefix: "stylesync", key: "results/a.jpg", expected: "stylesync/results/a.jpg"},
		{name: "前缀去斜杠", prefix: "/stylesync/", key: "/results/a.jpg", expected: "stylesync/results/a.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinPrefix(tt.prefix, tt.key); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDetectContentType(t *testing.T) {
	if ct := detectContentType("jpg"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
	if ct := detectContentType(""); ct != "application/octet-stream" {
		t.Errorf("expected fallback content type, got %q", ct)
	}
}
