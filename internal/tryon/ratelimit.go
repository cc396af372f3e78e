package tryon

import "time"

const (
	// DefaultRateLimit 每窗口允许的生成次数
	DefaultRateLimit = 100
	// DefaultRateWindow 限流窗口长度
	DefaultRateWindow = time.Minute
)

// WindowState 固定窗口限流的持久化状态
type WindowState struct {
	Count     int   `json:"count"`
	ResetTime int64 `json:"resetTime"`
}

// RateLimiter 固定窗口限流器,状态写入 Store 以便跨进程生效
// 每次尝试都计数,包括之后失败的请求
type RateLimiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

func newRateLimiter(store Store, limit int, window time.Duration, now func() time.Time) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{store: store, limit: limit, window: window, now: now}
}

// Allow 记一次尝试,窗口配额用尽时返回 false
// 持久化失败不阻断请求,状态退化为进程内
func (l *RateLimiter) Allow() bool {
	nowMs := l.now().UnixMilli()
	state, ok, err := l.store.LoadWindow()
	if err != nil || !ok || nowMs > state.ResetTime {
		state = WindowState{Count: 1, ResetTime: nowMs + l.window.Milliseconds()}
		_ = l.store.SaveWindow(state)
		return true
	}
	if state.Count >= l.limit {
		return false
	}
	state.Count++
	_ = l.store.SaveWindow(state)
	return true
}

// Remaining 当前窗口剩余配额
func (l *RateLimiter) Remaining() int {
	nowMs := l.now().UnixMilli()
	state, ok, err := l.store.LoadWindow()
	if err != nil || !ok || nowMs > state.ResetTime {
		return l.limit
	}
	remaining := l.limit - state.Count
	if remaining < 0 {
		return 0
	}
	return remaining
}
