// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"net/http"
	"strings"

	"github.com/hitoshi/cineman/internal/model"
	"github.com/hitoshi/cineman/internal/session"
)

// SessionResolver はセッション解決に必要なインターフェース。
// session.Resolverの部分集合として定義する。
type SessionResolver interface {
	Resolve(req *http.Request) *model.TokenPayload
}

// TokenVerifyRecorder はトークン検証失敗のメトリクス記録インターフェース。
type TokenVerifyRecorder interface {
	RecordTokenVerifyFailure()
}

// GuardConfig はルートガードミドルウェアの設定。
type GuardConfig struct {
	// LoginPath は未認証リクエストのリダイレクト先（ログイン画面）。
	LoginPath string
	// PublicPaths は認証不要のパス（前方一致）の許可リスト。
	PublicPaths []string
	// CookieDomain / CookieSecure は無効トークンCookieの削除に使用する。
	CookieDomain string
	CookieSecure bool
	// Metrics が非nilの場合、無効トークンの検出を記録する。
	Metrics TokenVerifyRecorder
}

// DefaultPublicPaths は既定の認証不要パス。
// 認証エントリポイント、静的アセット、ヘルスチェック、メトリクスを含む。
func DefaultPublicPaths() []string {
	return []string{
		"/api/auth/login",
		"/api/auth/register",
		"/api/auth/logout",
		"/api/csrf-token",
		"/auth/login",
		"/auth/register",
		"/pending",
		"/rejected",
		"/health",
		"/metrics",
		"/static/",
		"/favicon",
	}
}

// NewGuardMiddleware は保護ルートの前段でトークンの有効性を検証する
// ルートガードミドルウェアを返す。
//
// 判定は次の状態機械に従う:
//   - 許可リストのパス: 認証なしで通過
//   - トークンなし: ログイン画面へリダイレクト（APIパスは401）
//   - 無効トークン: Cookieを削除してログイン画面へリダイレクト（APIパスは401）
//   - 有効な管理者トークン: 無条件で通過
//   - 有効な一般トークン: 通過（凍結・承認状態の確認はDBアクセスを伴うため、
//     レイテンシ上の理由から後段のハンドラに委ねる）
//
// 通過したリクエストにはデコード済みセッションをコンテキストに注入する。
func NewGuardMiddleware(resolver SessionResolver, config GuardConfig) func(next http.Handler) http.Handler {
	publicPaths := config.PublicPaths
	if publicPaths == nil {
		publicPaths = DefaultPublicPaths()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			// 1. 許可リストのパスはガードを素通りする
			if isPublicPath(path, publicPaths) {
				next.ServeHTTP(w, r)
				return
			}

			// 2. Cookieの有無を確認（なければ検証は試みない）
			cookie, err := r.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				rejectUnauthenticated(w, r, config, false)
				return
			}

			// 3. トークンを検証
			payload := resolver.Resolve(r)
			if payload == nil {
				// 無効トークン: Cookieを削除してから拒否する
				if config.Metrics != nil {
					config.Metrics.RecordTokenVerifyFailure()
				}
				rejectUnauthenticated(w, r, config, true)
				return
			}

			// 4. 管理者は以降のチェックなしで通過
			ctx := session.WithSession(r.Context(), payload)
			if payload.IsAdmin() {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// 5. 一般ユーザーも通過（状態チェックはハンドラ側の責務）
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isPublicPath はパスが許可リストに含まれるかを判定する。
// 完全一致または前方一致で判定する。
func isPublicPath(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// rejectUnauthenticated は未認証リクエストを拒否する。
// APIパスには401のJSON、それ以外はログイン画面へのリダイレクトを返す。
// clearCookieが真の場合は無効トークンのCookieを削除する。
func rejectUnauthenticated(w http.ResponseWriter, r *http.Request, config GuardConfig, clearCookie bool) {
	if clearCookie {
		http.SetCookie(w, &http.Cookie{
			Name:     session.CookieName,
			Value:    "",
			Path:     "/",
			Domain:   config.CookieDomain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   config.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	if strings.HasPrefix(r.URL.Path, "/api/") {
		WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	http.Redirect(w, r, config.LoginPath, http.StatusTemporaryRedirect)
}
