package middleware

import "net/http"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			// 動画プレイヤーの埋め込み(iframe)を許可しつつ、それ以外を制限する
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; img-src 'self' https://image.tmdb.org data:; frame-src https://vidsrc.to https://vidsrc.xyz; media-src 'self' https:")
			next.ServeHTTP(w, r)
		})
	}
}
