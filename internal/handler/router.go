package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/cineman/internal/metrics"
	"github.com/hitoshi/cineman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	SessionResolver   middleware.SessionResolver
	GuardConfig       middleware.GuardConfig
	APILimiter        *middleware.APILimiter

	// メトリクス
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// 認証
	AuthService    AuthServiceInterface
	AuthConfig     AuthHandlerConfig
	PreAuthLimiter RateLimitChecker

	// カタログ
	ContentService ContentServiceInterface

	// お気に入り
	FavoriteService FavoriteServiceInterface

	// ユーザー管理
	UserAdminService UserAdminServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Metrics → CSRF → Guard → Logging
//
// Guardは許可リスト方式のため全ルートに適用し、認証前エンドポイントは
// 許可リスト（GuardConfig.PublicPaths）で素通りさせる。
// 認証済みAPIのトークンバケット制限（APILimiter）は保護ルートのグループにのみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
	r.Use(middleware.NewGuardMiddleware(deps.SessionResolver, deps.GuardConfig))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.AuthService, deps.PreAuthLimiter, deps.Metrics, deps.AuthConfig)
	contentHandler := NewContentHandler(deps.ContentService)
	favoriteHandler := NewFavoriteHandler(deps.FavoriteService)
	adminHandler := NewAdminHandler(deps.UserAdminService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	r.Handle("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
	})

	// --- 認証が必要なルート ---
	// ガード通過済みのリクエストに対し、ユーザーごとのAPIレート制限を適用する。
	r.Group(func(r chi.Router) {
		r.Use(deps.APILimiter.Middleware())

		r.Get("/api/auth/me", authHandler.Me)

		// カタログ閲覧
		r.Route("/api/content", func(r chi.Router) {
			r.Get("/", contentHandler.List)
			r.Get("/{id}", contentHandler.Get)
		})

		// お気に入り管理
		r.Route("/api/favorites", func(r chi.Router) {
			r.Get("/", favoriteHandler.List)
			r.Post("/", favoriteHandler.Add)

			r.Route("/{tmdbID}", func(r chi.Router) {
				r.Delete("/", favoriteHandler.Remove)
				r.Get("/check", favoriteHandler.CheckByID)
			})
		})

		// 管理者専用ルート
		r.Route("/api/admin", func(r chi.Router) {
			r.Get("/stats", adminHandler.Stats)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", adminHandler.ListUsers)
				r.Get("/pending", adminHandler.ListPendingUsers)

				r.Route("/{id}", func(r chi.Router) {
					r.Delete("/", adminHandler.DeleteUser)
					r.Post("/approve", adminHandler.ApproveUser)
					r.Post("/reject", adminHandler.RejectUser)
					r.Post("/ban", adminHandler.BanUser)
					r.Post("/unban", adminHandler.UnbanUser)
					r.Post("/make-admin", adminHandler.MakeAdmin)
					r.Post("/remove-admin", adminHandler.RemoveAdmin)
				})
			})

			// カタログ管理
			r.Route("/content", func(r chi.Router) {
				r.Post("/", contentHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", contentHandler.Update)
					r.Delete("/", contentHandler.Delete)
				})
			})
		})
	})

	return r
}
