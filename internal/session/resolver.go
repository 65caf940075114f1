// Package session はリクエストからの認証セッション解決を提供する。
// セッションはCookie内の署名付きトークンをデコードした派生物であり、
// リクエスト処理の間だけ存在し、永続化されない。
package session

import (
	"context"
	"net/http"

	"github.com/hitoshi/cineman/internal/model"
)

// CookieName はアイデンティティトークンを保持するCookieの名前。
const CookieName = "token"

// TokenVerifier はトークン検証に必要なインターフェース。
// token.Serviceの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenStr string) (*model.TokenPayload, error)
}

// Resolver はリクエストのCookieからセッションを解決する。
// 読み取りとデコードのみを行い、副作用は持たない。
// ユーザーレコードの最新状態（凍結・承認状態等）が必要な場合は、
// 呼び出し側がUserRepositoryからsession.UserIDで取得すること。
type Resolver struct {
	verifier TokenVerifier
}

// NewResolver はResolverを生成する。
func NewResolver(verifier TokenVerifier) *Resolver {
	return &Resolver{verifier: verifier}
}

// Resolve はリクエストのCookieからトークンを読み取り、検証して
// デコード済みペイロードを返す。
// Cookieが存在しない場合は検証を試みずにnilを返す。
// 検証失敗（期限切れ・改ざん・形式不正）もnilを返し、区別しない。
func (r *Resolver) Resolve(req *http.Request) *model.TokenPayload {
	cookie, err := req.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	payload, err := r.verifier.Verify(cookie.Value)
	if err != nil {
		return nil
	}

	return payload
}

// IsAdmin はリクエストのセッションが管理者ロールかどうかを返す。
// セッションが解決できない場合はfalseを返す。
func (r *Resolver) IsAdmin(req *http.Request) bool {
	return r.Resolve(req).IsAdmin()
}

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey struct{}

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey{}

// WithSession はコンテキストにセッションペイロードを注入する。
// ルートガードミドルウェアとテストで使用する。
func WithSession(ctx context.Context, payload *model.TokenPayload) context.Context {
	return context.WithValue(ctx, sessionContextKey, payload)
}

// FromContext はリクエストコンテキストからセッションを取得する。
// ルートガードを通過したリクエストでのみ有効。
func FromContext(ctx context.Context) (*model.TokenPayload, bool) {
	payload, ok := ctx.Value(sessionContextKey).(*model.TokenPayload)
	if !ok || payload == nil {
		return nil, false
	}
	return payload, true
}
