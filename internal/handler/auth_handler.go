// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/cineman/internal/middleware"
	"github.com/hitoshi/cineman/internal/model"
	"github.com/hitoshi/cineman/internal/ratelimit"
	"github.com/hitoshi/cineman/internal/session"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
	TokenTTL() time.Duration
}

// RateLimitChecker は認証前エンドポイントのレート制限インターフェース。
// ratelimit.Limiterの部分集合として定義する。
type RateLimitChecker interface {
	Check(identifier string, policy ratelimit.Policy) ratelimit.Result
}

// AuthMetricsRecorder は認証フローのメトリクス記録インターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type AuthMetricsRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordRegistration()
	RecordRateLimitRejection(endpoint string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler は登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	limiter RateLimitChecker
	metrics AuthMetricsRecorder
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, limiter RateLimitChecker, metrics AuthMetricsRecorder, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		limiter: limiter,
		metrics: metrics,
		config:  config,
	}
}

// registerRequest は新規登録リクエストのボディ。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register は新規ユーザー登録を処理する。
// POST /api/auth/register
// 登録はIPあたり1時間に3回まで。作成されたアカウントは承認待ち状態となる。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, "register", ratelimit.RegisterPolicy) {
		return
	}

	var req registerRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	user, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordRegistration()

	writeJSON(w, http.StatusCreated, map[string]any{
		"user": toUserResponse(user),
	})
}

// Login は認証情報を検証し、トークンCookieを設定する。
// POST /api/auth/login
// ログイン試行はIPあたり15分に5回まで。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, "login", ratelimit.LoginPolicy) {
		return
	}

	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	user, tokenStr, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordLoginFailure(loginFailureReason(err))
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordLoginSuccess()

	// トークンCookieの有効期間はトークン自体の有効期間に揃える
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    tokenStr,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.service.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserResponse(user),
	})
}

// Logout はトークンCookieを削除する。
// POST /api/auth/logout
// トークンはステートレスなため、サーバー側の無効化は行わない。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /api/auth/me
// トークン発行後の凍結はここで検出され、403となる。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireSession(w, r)
	if !ok {
		return
	}

	user, err := h.service.CurrentUser(r.Context(), payload.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserResponse(user),
	})
}

// checkRateLimit は認証前エンドポイントの固定ウィンドウレート制限を確認する。
// 制限超過の場合は429を書き込み、falseを返す。
// 識別子は "<エンドポイント名>:<クライアントIP>" で構築する。
func (h *AuthHandler) checkRateLimit(w http.ResponseWriter, r *http.Request, endpoint string, policy ratelimit.Policy) bool {
	result := h.limiter.Check(endpoint+":"+middleware.ClientIP(r), policy)
	if result.Allowed {
		return true
	}

	h.metrics.RecordRateLimitRejection(endpoint)

	resetSec := int(math.Ceil(result.ResetIn.Seconds()))
	if resetSec < 1 {
		resetSec = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(resetSec))
	middleware.WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitedError(resetSec))
	return false
}

// loginFailureReason はログイン失敗エラーをメトリクスの理由ラベルに変換する。
func loginFailureReason(err error) string {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return "internal"
	}
	switch apiErr.Code {
	case model.ErrCodeInvalidCredentials:
		return "invalid_credentials"
	case model.ErrCodeAccountBanned:
		return "banned"
	case model.ErrCodeAccountPending:
		return "pending"
	case model.ErrCodeAccountRejected:
		return "rejected"
	case model.ErrCodeMissingFields:
		return "missing_fields"
	default:
		return "other"
	}
}
