// Package ratelimit は固定ウィンドウ方式のレート制限を提供する。
// プロセス内のカウンタテーブルで識別子ごとの試行回数を数える。
// 永続化は行わないため、プロセス再起動で全カウンタはリセットされる。
package ratelimit

import (
	"sync"
	"time"
)

// Policy は1種類のレート制限の設定を表す。
type Policy struct {
	Window      time.Duration // ウィンドウ幅
	MaxRequests int           // ウィンドウ内の最大リクエスト数
}

// 既定のポリシー。呼び出し側はエンドポイントに応じて選択する。
var (
	// LoginPolicy はログイン試行の制限（15分あたり5回）。
	LoginPolicy = Policy{Window: 15 * time.Minute, MaxRequests: 5}
	// RegisterPolicy は新規登録の制限（1時間あたり3回）。
	RegisterPolicy = Policy{Window: time.Hour, MaxRequests: 3}
	// APIPolicy はAPI全般の制限（1分あたり60回）。
	APIPolicy = Policy{Window: time.Minute, MaxRequests: 60}
)

// Result はレート制限チェックの結果を表す。
type Result struct {
	Allowed   bool          // リクエストを許可するか
	Remaining int           // ウィンドウ内の残り許容回数
	ResetIn   time.Duration // ウィンドウがリセットされるまでの時間
}

// counter は1識別子分のウィンドウカウンタ。
type counter struct {
	count   int
	resetAt time.Time
}

// defaultSweepInterval は期限切れカウンタの掃除間隔。
const defaultSweepInterval = 5 * time.Minute

// Limiter は識別子ごとの固定ウィンドウカウンタを管理する。
// テーブルはミューテックスで保護され、同一キーへの並行インクリメントでも
// 数え漏れは発生しない。
// now はテストで時刻を差し替えるために注入可能にしてある。
type Limiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewLimiter は新しいLimiterを生成し、バックグラウンドで
// 期限切れエントリの定期掃除を開始する。
// 使い終わったらStopを呼び出して掃除ゴルーチンを停止すること。
func NewLimiter() *Limiter {
	l := &Limiter{
		counters: make(map[string]*counter),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	go l.sweepLoop(defaultSweepInterval)

	return l
}

// NewLimiterWithClock は時刻取得関数を指定してLimiterを生成する。
// 掃除ゴルーチンは起動しない。テスト用。
func NewLimiterWithClock(now func() time.Time) *Limiter {
	return &Limiter{
		counters: make(map[string]*counter),
		now:      now,
		stopCh:   make(chan struct{}),
	}
}

// Stop は掃除のバックグラウンドゴルーチンを停止する。冪等。
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

// Check は識別子に対するリクエストを1回分カウントし、許可可否を返す。
// 制限超過を引き起こした呼び出し自体もカウントに含まれるため、
// MaxRequests+1 回目の呼び出しが最初の拒否となる。
// 識別子は "<エンドポイント名>:<クライアント識別子>" の形式で構築し、
// エンドポイント間の干渉を避けること。
func (l *Limiter) Check(identifier string, policy Policy) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[identifier]
	if !ok || !c.resetAt.After(now) {
		// 初回、またはウィンドウ期限切れ: カウンタを作り直す
		l.counters[identifier] = &counter{
			count:   1,
			resetAt: now.Add(policy.Window),
		}
		return Result{
			Allowed:   true,
			Remaining: policy.MaxRequests - 1,
			ResetIn:   policy.Window,
		}
	}

	c.count++

	if c.count > policy.MaxRequests {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetIn:   c.resetAt.Sub(now),
		}
	}

	return Result{
		Allowed:   true,
		Remaining: policy.MaxRequests - c.count,
		ResetIn:   c.resetAt.Sub(now),
	}
}

// Size は現在保持しているカウンタ数を返す。テストおよびメトリクス用。
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

// sweepLoop はバックグラウンドで期限切れカウンタを定期的に削除する。
func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCh:
			return
		}
	}
}

// sweep はウィンドウが既に終了したカウンタをテーブルから削除する。
// 掃除の遅延は正しさに影響せず、メモリ使用量にのみ影響する。
func (l *Limiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.counters {
		if !c.resetAt.After(now) {
			delete(l.counters, key)
		}
	}
}
