package tryon

import (
	"errors"
	"sync"
	"time"
)

// ErrReleased 句柄已释放,图片字节不再可用
var ErrReleased = errors.New("image handle already released")

// ImageHandle 持有一次生成结果的图片字节
// 结果被挤出历史或历史被清空时释放,释放后 URL 失效
type ImageHandle struct {
	mu       sync.Mutex
	id       string
	data     []byte
	released bool
}

func newImageHandle(id string, data []byte) *ImageHandle {
	return &ImageHandle{id: id, data: data}
}

// URL 进程内引用,形如 memory://<id>,不跨进程
func (h *ImageHandle) URL() string {
	return "memory://" + h.id
}

func (h *ImageHandle) Bytes() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, ErrReleased
	}
	return h.data, nil
}

// Release 幂等,重复调用无副作用
func (h *ImageHandle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	h.data = nil
}

func (h *ImageHandle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Result 一次成功生成的结果
type Result struct {
	ID             string
	URL            string
	Timestamp      time.Time
	Model          string
	Garment        string
	Background     string
	Seed           string
	ProcessingTime time.Duration

	handle *ImageHandle
}

// Transient 为真时 URL 只在本进程内有效
func (r *Result) Transient() bool {
	return r.handle != nil
}

// Bytes 结果图片字节,仅对未释放的瞬态结果可用
func (r *Result) Bytes() ([]byte, error) {
	if r.handle == nil {
		return nil, errors.New("result is stored on disk, read it from URL")
	}
	return r.handle.Bytes()
}

func (r *Result) release() {
	if r.handle != nil {
		r.handle.Release()
	}
}
