package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/cineman/internal/model"
)

// UserAdminServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type UserAdminServiceInterface interface {
	List(ctx context.Context, search string, page, limit int) ([]*model.User, int, error)
	ListPending(ctx context.Context) ([]*model.User, error)
	Approve(ctx context.Context, targetID string) error
	Reject(ctx context.Context, targetID string) error
	Ban(ctx context.Context, actorID, targetID string) error
	Unban(ctx context.Context, targetID string) error
	MakeAdmin(ctx context.Context, targetID string) error
	RemoveAdmin(ctx context.Context, actorID, targetID string) error
	Delete(ctx context.Context, actorID, targetID string) error
	Stats(ctx context.Context) (*model.PortalStats, error)
}

// AdminHandler はユーザー管理・統計のHTTPハンドラー。
// すべてのエンドポイントは管理者権限を必須とする。
type AdminHandler struct {
	service UserAdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service UserAdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// userListResponse はユーザー一覧のAPIレスポンス。
type userListResponse struct {
	Users []userResponse `json:"users"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// ListUsers はユーザー一覧を返す。
// GET /api/admin/users?search=xxx&page=1&limit=20
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	q := r.URL.Query()
	page := 1
	limit := defaultPageLimit
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		if l > maxPageLimit {
			l = maxPageLimit
		}
		limit = l
	}

	users, total, err := h.service.List(r.Context(), q.Get("search"), page, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userListResponse{
		Users: toUserResponses(users),
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// ListPendingUsers は承認待ちユーザー一覧を返す。
// GET /api/admin/users/pending
func (h *AdminHandler) ListPendingUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	users, err := h.service.ListPending(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": toUserResponses(users),
	})
}

// ApproveUser は承認待ちユーザーを承認する。
// POST /api/admin/users/:id/approve
func (h *AdminHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	h.runModeration(w, r, payload, func(ctx context.Context, _ *model.TokenPayload, targetID string) error {
		return h.service.Approve(ctx, targetID)
	})
}

// RejectUser は承認待ちユーザーの登録申請を却下する。
// POST /api/admin/users/:id/reject
func (h *AdminHandler) RejectUser(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	h.runModeration(w, r, payload, func(ctx context.Context, _ *model.TokenPayload, targetID string) error {
		return h.service.Reject(ctx, targetID)
	})
}

// BanUser はユーザーを凍結する。
// POST /api/admin/users/:id/ban
func (h *AdminHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	h.runModeration(w, r, payload, func(ctx context.Context, actor *model.TokenPayload, targetID string) error {
		return h.service.Ban(ctx, actor.UserID, targetID)
	})
}

// UnbanUser はユーザーの凍結を解除する。
// POST /api/admin/users/:id/unban
func (h *AdminHandler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	h.runModeration(w, r, payload, func(ctx context.Context, _ *model.TokenPayload, targetID string) error {
		return h.service.Unban(ctx, targetID)
	})
}

// MakeAdmin はユーザーに管理者権限を付与する。
// POST /api/admin/users/:id/make-admin
func (h *AdminHandler) MakeAdmin(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	h.runModeration(w, r, payload, func(ctx context.Context, _ *model.TokenPayload, targetID string) error {
		return h.service.MakeAdmin(ctx, targetID)
	})
}

// RemoveAdmin はユーザーの管理者権限を剥奪する。
// POST /api/admin/users/:id/remove-admin
func (h *AdminHandler) RemoveAdmin(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	h.runModeration(w, r, payload, func(ctx context.Context, actor *model.TokenPayload, targetID string) error {
		return h.service.RemoveAdmin(ctx, actor.UserID, targetID)
	})
}

// DeleteUser はユーザーを削除する。
// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	h.runModeration(w, r, payload, func(ctx context.Context, actor *model.TokenPayload, targetID string) error {
		return h.service.Delete(ctx, actor.UserID, targetID)
	})
}

// Stats は管理ダッシュボード用の集計値を返す。
// GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// runModeration はURLパラメータの対象ユーザーIDに対して管理操作を実行する。
// 成功時は204を返す。呼び出し側で管理者チェック済みであること。
func (h *AdminHandler) runModeration(w http.ResponseWriter, r *http.Request, actor *model.TokenPayload, op func(ctx context.Context, actor *model.TokenPayload, targetID string) error) {
	if err := op(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toUserResponses はユーザーのスライスをAPIレスポンスに変換する。
func toUserResponses(users []*model.User) []userResponse {
	responses := make([]userResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, toUserResponse(u))
	}
	return responses
}
