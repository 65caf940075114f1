package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/cineman/internal/model"
)

// mockUserAdminService はUserAdminServiceInterfaceのモック実装。
type mockUserAdminService struct {
	listFn        func(ctx context.Context, search string, page, limit int) ([]*model.User, int, error)
	listPendingFn func(ctx context.Context) ([]*model.User, error)
	approveFn     func(ctx context.Context, targetID string) error
	rejectFn      func(ctx context.Context, targetID string) error
	banFn         func(ctx context.Context, actorID, targetID string) error
	unbanFn       func(ctx context.Context, targetID string) error
	makeAdminFn   func(ctx context.Context, targetID string) error
	removeAdminFn func(ctx context.Context, actorID, targetID string) error
	deleteFn      func(ctx context.Context, actorID, targetID string) error
	statsFn       func(ctx context.Context) (*model.PortalStats, error)
}

func (m *mockUserAdminService) List(ctx context.Context, search string, page, limit int) ([]*model.User, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, search, page, limit)
	}
	return nil, 0, nil
}

func (m *mockUserAdminService) ListPending(ctx context.Context) ([]*model.User, error) {
	if m.listPendingFn != nil {
		return m.listPendingFn(ctx)
	}
	return nil, nil
}

func (m *mockUserAdminService) Approve(ctx context.Context, targetID string) error {
	if m.approveFn != nil {
		return m.approveFn(ctx, targetID)
	}
	return nil
}

func (m *mockUserAdminService) Reject(ctx context.Context, targetID string) error {
	if m.rejectFn != nil {
		return m.rejectFn(ctx, targetID)
	}
	return nil
}

func (m *mockUserAdminService) Ban(ctx context.Context, actorID, targetID string) error {
	if m.banFn != nil {
		return m.banFn(ctx, actorID, targetID)
	}
	return nil
}

func (m *mockUserAdminService) Unban(ctx context.Context, targetID string) error {
	if m.unbanFn != nil {
		return m.unbanFn(ctx, targetID)
	}
	return nil
}

func (m *mockUserAdminService) MakeAdmin(ctx context.Context, targetID string) error {
	if m.makeAdminFn != nil {
		return m.makeAdminFn(ctx, targetID)
	}
	return nil
}

func (m *mockUserAdminService) RemoveAdmin(ctx context.Context, actorID, targetID string) error {
	if m.removeAdminFn != nil {
		return m.removeAdminFn(ctx, actorID, targetID)
	}
	return nil
}

func (m *mockUserAdminService) Delete(ctx context.Context, actorID, targetID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actorID, targetID)
	}
	return nil
}

func (m *mockUserAdminService) Stats(ctx context.Context) (*model.PortalStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &model.PortalStats{}, nil
}

// --- 権限チェックのテスト ---

// TestAdminHandler_RequiresAdmin は全エンドポイントが管理者権限を要求することを検証する。
func TestAdminHandler_RequiresAdmin(t *testing.T) {
	h := NewAdminHandler(&mockUserAdminService{})

	endpoints := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"ListUsers", h.ListUsers},
		{"ListPendingUsers", h.ListPendingUsers},
		{"ApproveUser", h.ApproveUser},
		{"RejectUser", h.RejectUser},
		{"BanUser", h.BanUser},
		{"UnbanUser", h.UnbanUser},
		{"MakeAdmin", h.MakeAdmin},
		{"RemoveAdmin", h.RemoveAdmin},
		{"DeleteUser", h.DeleteUser},
		{"Stats", h.Stats},
	}

	for _, ep := range endpoints {
		t.Run(ep.name+"/no_session", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/test", nil)
			w := httptest.NewRecorder()
			ep.handler(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
		t.Run(ep.name+"/regular_user", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/test", nil)
			req = withSession(req, userSession())
			w := httptest.NewRecorder()
			ep.handler(w, req)
			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
			}
		})
	}
}

// --- GET /api/admin/users テスト ---

func TestAdminHandler_ListUsers_Success(t *testing.T) {
	svc := &mockUserAdminService{
		listFn: func(ctx context.Context, search string, page, limit int) ([]*model.User, int, error) {
			if search != "taro" {
				t.Errorf("search = %q, want taro", search)
			}
			if page != 2 || limit != 5 {
				t.Errorf("pagination = (%d, %d), want (2, 5)", page, limit)
			}
			return []*model.User{testUser()}, 11, nil
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users?search=taro&page=2&limit=5", nil)
	req = withSession(req, adminSession())
	w := httptest.NewRecorder()

	h.ListUsers(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result userListResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Total != 11 {
		t.Errorf("total = %d, want 11", result.Total)
	}
	if len(result.Users) != 1 || result.Users[0].ID != "user-1" {
		t.Errorf("unexpected users: %+v", result.Users)
	}
}

func TestAdminHandler_ListPendingUsers_Success(t *testing.T) {
	svc := &mockUserAdminService{
		listPendingFn: func(ctx context.Context) ([]*model.User, error) {
			pending := testUser()
			pending.Status = model.StatusPending
			return []*model.User{pending}, nil
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users/pending", nil)
	req = withSession(req, adminSession())
	w := httptest.NewRecorder()

	h.ListPendingUsers(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	result := decodeBody(t, w)
	users, ok := result["users"].([]any)
	if !ok || len(users) != 1 {
		t.Fatalf("users = %v, want 1 user", result["users"])
	}
}

// --- 管理操作のテスト ---

func TestAdminHandler_ApproveUser_Success(t *testing.T) {
	approved := ""
	svc := &mockUserAdminService{
		approveFn: func(ctx context.Context, targetID string) error {
			approved = targetID
			return nil
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/user-9/approve", nil)
	req = withChiURLParam(req, "id", "user-9")
	req = withSession(req, adminSession())
	w := httptest.NewRecorder()

	h.ApproveUser(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if approved != "user-9" {
		t.Errorf("approved = %q, want user-9", approved)
	}
}

func TestAdminHandler_BanUser_PassesActorID(t *testing.T) {
	var gotActor, gotTarget string
	svc := &mockUserAdminService{
		banFn: func(ctx context.Context, actorID, targetID string) error {
			gotActor = actorID
			gotTarget = targetID
			return nil
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/user-9/ban", nil)
	req = withChiURLParam(req, "id", "user-9")
	req = withSession(req, adminSession())
	w := httptest.NewRecorder()

	h.BanUser(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotActor != "admin-1" || gotTarget != "user-9" {
		t.Errorf("ban args = (%q, %q), want (admin-1, user-9)", gotActor, gotTarget)
	}
}

func TestAdminHandler_BanUser_ForbiddenSelf(t *testing.T) {
	svc := &mockUserAdminService{
		banFn: func(ctx context.Context, actorID, targetID string) error {
			return model.NewForbiddenSelfError()
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/users/admin-1/ban", nil)
	req = withChiURLParam(req, "id", "admin-1")
	req = withSession(req, adminSession())
	w := httptest.NewRecorder()

	h.BanUser(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}

	result := decodeBody(t, w)
	if result["code"] != "FORBIDDEN_SELF" {
		t.Errorf("code = %v, want FORBIDDEN_SELF", result["code"])
	}
}

func TestAdminHandler_DeleteUser_ForbiddenAdmin(t *testing.T) {
	svc := &mockUserAdminService{
		deleteFn: func(ctx context.Context, actorID, targetID string) error {
			return model.NewForbiddenAdminError()
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users/admin-2", nil)
	req = withChiURLParam(req, "id", "admin-2")
	req = withSession(req, adminSession())
	w := httptest.NewRecorder()

	h.DeleteUser(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestAdminHandler_DeleteUser_NotFound(t *testing.T) {
	svc := &mockUserAdminService{
		deleteFn: func(ctx context.Context, actorID, targetID string) error {
			return model.NewUserNotFoundError()
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users/missing", nil)
	req = withChiURLParam(req, "id", "missing")
	req = withSession(req, adminSession())
	w := httptest.NewRecorder()

	h.DeleteUser(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- GET /api/admin/stats テスト ---

func TestAdminHandler_Stats_Success(t *testing.T) {
	svc := &mockUserAdminService{
		statsFn: func(ctx context.Context) (*model.PortalStats, error) {
			return &model.PortalStats{
				TotalUsers:   100,
				PendingUsers: 5,
				TotalContent: 40,
				TotalViews:   12345,
			}, nil
		},
	}
	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req = withSession(req, adminSession())
	w := httptest.NewRecorder()

	h.Stats(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	result := decodeBody(t, w)
	if result["totalUsers"] != float64(100) {
		t.Errorf("totalUsers = %v, want 100", result["totalUsers"])
	}
	if result["pendingUsers"] != float64(5) {
		t.Errorf("pendingUsers = %v, want 5", result["pendingUsers"])
	}
}
