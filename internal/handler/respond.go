package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/cineman/internal/middleware"
	"github.com/hitoshi/cineman/internal/model"
	"github.com/hitoshi/cineman/internal/session"
)

// userResponse はユーザー情報のAPIレスポンス。
// パスワードハッシュは決して含めない。
type userResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Status     string    `json:"status"`
	IsBanned   bool      `json:"isBanned"`
	Avatar     string    `json:"avatar,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       string(user.Role),
		Status:     string(user.Status),
		IsBanned:   user.IsBanned,
		Avatar:     user.Avatar,
		CreatedAt:  user.CreatedAt,
		LastActive: user.LastActive,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSONBody はリクエストボディをJSONとしてデコードする。
func decodeJSONBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// newInvalidRequestError はリクエストボディ解析失敗のエラーを生成する。
func newInvalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// requireSession はコンテキストからセッションを取得する。
// セッションがない場合は401を書き込み、falseを返す。
func requireSession(w http.ResponseWriter, r *http.Request) (*model.TokenPayload, bool) {
	payload, ok := session.FromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return nil, false
	}
	return payload, true
}

// requireAdmin はセッションが管理者であることを確認する。
// 管理者でない場合は403を書き込み、falseを返す。
func requireAdmin(w http.ResponseWriter, r *http.Request) (*model.TokenPayload, bool) {
	payload, ok := requireSession(w, r)
	if !ok {
		return nil, false
	}
	if !payload.IsAdmin() {
		middleware.WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
			Code:     "FORBIDDEN",
			Message:  "この操作には管理者権限が必要です。",
			Category: "auth",
			Action:   "管理者アカウントでログインしてください。",
		})
		return nil, false
	}
	return payload, true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeAccountBanned, model.ErrCodeAccountPending, model.ErrCodeAccountRejected,
		model.ErrCodeForbiddenSelf, model.ErrCodeForbiddenAdmin:
		return http.StatusForbidden
	case model.ErrCodeEmailTaken, model.ErrCodeDuplicateFavorite:
		return http.StatusConflict
	case model.ErrCodeMissingFields, model.ErrCodeInvalidEmail, model.ErrCodeWeakPassword,
		model.ErrCodeUnsafeURL:
		return http.StatusBadRequest
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeUserNotFound, model.ErrCodeContentNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
