package tryon

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	current := time.UnixMilli(1_700_000_000_000)
	clock := func() time.Time { return current }
	limiter := newRateLimiter(&memoryStore{}, 3, time.Minute, clock)

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Fatalf("attempt %d should pass", i+1)
		}
	}
	if limiter.Allow() {
		t.Fatal("超出配额的第 4 次尝试应被拒绝")
	}
	if got := limiter.Remaining(); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}

	// 窗口过期后计数归零
	current = current.Add(time.Minute + time.Second)
	if !limiter.Allow() {
		t.Fatal("expired window should reset the counter")
	}
	if got := limiter.Remaining(); got != 2 {
		t.Fatalf("remaining = %d, want 2", got)
	}
}

func TestRateLimiterStateSurvivesRestart(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	current := time.UnixMilli(1_700_000_000_000)
	clock := func() time.Time { return current }

	first := newRateLimiter(store, 2, time.Minute, clock)
	first.Allow()
	first.Allow()

	// 同一个存储重新构造,窗口状态应延续
	second := newRateLimiter(store, 2, time.Minute, clock)
	if second.Allow() {
		t.Fatal("restarted limiter should still be exhausted")
	}
}

func TestRateLimiterSingleSlot(t *testing.T) {
	store := &memoryStore{}
	limiter := newRateLimiter(store, 1, time.Minute, time.Now)
	if !limiter.Allow() {
		t.Fatal("fresh limiter should allow")
	}
	if limiter.Allow() {
		t.Fatal("limit of one should reject the second attempt")
	}
}
