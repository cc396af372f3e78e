package api

import (
	"sync"
	"time"
)

// sessionLimiter 服务端滑动窗口限流,按设备会话计数
// 进程内状态,重启即清零,客户端侧还有一层本地窗口兜底
type sessionLimiter struct {
	mu      sync.Mutex
	windows map[string]*limiterWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

type limiterWindow struct {
	count int
	reset time.Time
}

func newSessionLimiter(limit int, window time.Duration) *sessionLimiter {
	if limit <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	return &sessionLimiter{
		windows: make(map[string]*limiterWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// allow 判断 key 是否还有配额,有则立即计数
func (l *sessionLimiter) allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, ok := l.windows[key]
	if !ok || now.After(state.reset) {
		l.prune(now)
		l.windows[key] = &limiterWindow{count: 1, reset: now.Add(l.window)}
		return true
	}
	if state.count >= l.limit {
		return false
	}
	state.count++
	return true
}

// prune 顺手清理已过期的窗口,避免匿名 key 无限膨胀
func (l *sessionLimiter) prune(now time.Time) {
	for key, state := range l.windows {
		if now.After(state.reset) {
			delete(l.windows, key)
		}
	}
}
