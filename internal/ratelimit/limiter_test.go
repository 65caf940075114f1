package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// 時刻を手動で進められるテスト用クロック
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// 上限以内のリクエストはすべて許可され、残り回数が減っていくことを検証
func TestCheck_WithinLimit_Allows(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiterWithClock(clock.Now)
	policy := Policy{Window: time.Second, MaxRequests: 3}

	for i := 0; i < 3; i++ {
		res := l.Check("login:1.2.3.4", policy)
		if !res.Allowed {
			t.Errorf("call %d: Allowed = false, want true", i+1)
		}
		wantRemaining := 3 - (i + 1)
		if res.Remaining != wantRemaining {
			t.Errorf("call %d: Remaining = %d, want %d", i+1, res.Remaining, wantRemaining)
		}
	}
}

// MaxRequests+1回目の呼び出しが最初の拒否となることを検証
func TestCheck_ExceedingCall_IsRejected(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiterWithClock(clock.Now)
	policy := Policy{Window: time.Second, MaxRequests: 3}

	for i := 0; i < 3; i++ {
		if res := l.Check("login:1.2.3.4", policy); !res.Allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}

	res := l.Check("login:1.2.3.4", policy)
	if res.Allowed {
		t.Error("4th call: Allowed = true, want false")
	}
	if res.Remaining != 0 {
		t.Errorf("4th call: Remaining = %d, want 0", res.Remaining)
	}
	if res.ResetIn <= 0 {
		t.Errorf("4th call: ResetIn = %v, want > 0", res.ResetIn)
	}
}

// ウィンドウ経過後はカウンタがリセットされることを検証
func TestCheck_AfterWindow_Resets(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiterWithClock(clock.Now)
	policy := Policy{Window: time.Second, MaxRequests: 3}

	for i := 0; i < 4; i++ {
		l.Check("login:1.2.3.4", policy)
	}

	clock.Advance(time.Second + time.Millisecond)

	res := l.Check("login:1.2.3.4", policy)
	if !res.Allowed {
		t.Error("Allowed = false after window reset, want true")
	}
	if res.Remaining != policy.MaxRequests-1 {
		t.Errorf("Remaining = %d, want %d", res.Remaining, policy.MaxRequests-1)
	}
	if res.ResetIn != policy.Window {
		t.Errorf("ResetIn = %v, want %v", res.ResetIn, policy.Window)
	}
}

// 異なる識別子は互いに干渉しないことを検証
func TestCheck_DifferentKeys_DoNotInterfere(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiterWithClock(clock.Now)
	policy := Policy{Window: time.Second, MaxRequests: 2}

	// login:1.2.3.4 を使い切る
	for i := 0; i < 3; i++ {
		l.Check("login:1.2.3.4", policy)
	}
	if res := l.Check("login:1.2.3.4", policy); res.Allowed {
		t.Fatal("expected login:1.2.3.4 to be exhausted")
	}

	// 別の識別子は影響を受けない
	res := l.Check("login:5.6.7.8", policy)
	if !res.Allowed {
		t.Error("login:5.6.7.8 should not be affected by login:1.2.3.4")
	}
	if res.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", res.Remaining)
	}
}

// 期限切れカウンタが掃除で削除されることを検証
func TestSweep_RemovesExpiredCounters(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiterWithClock(clock.Now)
	policy := Policy{Window: time.Second, MaxRequests: 3}

	l.Check("login:1.2.3.4", policy)
	l.Check("register:1.2.3.4", policy)
	if l.Size() != 2 {
		t.Fatalf("Size = %d, want 2", l.Size())
	}

	clock.Advance(2 * time.Second)
	l.sweep()

	if l.Size() != 0 {
		t.Errorf("Size = %d after sweep, want 0", l.Size())
	}
}

// 有効期間内のカウンタは掃除で削除されないことを検証
func TestSweep_KeepsActiveCounters(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiterWithClock(clock.Now)

	l.Check("login:1.2.3.4", Policy{Window: time.Hour, MaxRequests: 5})
	l.Check("api:1.2.3.4", Policy{Window: time.Millisecond, MaxRequests: 5})

	clock.Advance(time.Second)
	l.sweep()

	if l.Size() != 1 {
		t.Errorf("Size = %d after sweep, want 1", l.Size())
	}
}

// 同一キーへの並行Checkでも数え漏れが発生しないことを検証
func TestCheck_ConcurrentSameKey_NoUndercount(t *testing.T) {
	l := NewLimiter()
	defer l.Stop()

	policy := Policy{Window: time.Minute, MaxRequests: 50}

	const total = 100
	var wg sync.WaitGroup
	allowed := make(chan bool, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Check("login:1.2.3.4", policy).Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	allowedCount := 0
	for a := range allowed {
		if a {
			allowedCount++
		}
	}

	if allowedCount != 50 {
		t.Errorf("allowed count = %d, want exactly 50", allowedCount)
	}
}

// Stopが冪等であることを検証
func TestStop_Idempotent(t *testing.T) {
	l := NewLimiter()
	l.Stop()
	l.Stop() // 2回目の呼び出しでpanicしないこと
}

// 既定ポリシーが仕様どおりであることを検証
func TestDefaultPolicies(t *testing.T) {
	if LoginPolicy.Window != 15*time.Minute || LoginPolicy.MaxRequests != 5 {
		t.Errorf("LoginPolicy = %+v, want 5 req / 15 min", LoginPolicy)
	}
	if RegisterPolicy.Window != time.Hour || RegisterPolicy.MaxRequests != 3 {
		t.Errorf("RegisterPolicy = %+v, want 3 req / 60 min", RegisterPolicy)
	}
	if APIPolicy.Window != time.Minute || APIPolicy.MaxRequests != 60 {
		t.Errorf("APIPolicy = %+v, want 60 req / 1 min", APIPolicy)
	}
}
