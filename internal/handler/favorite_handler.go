package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/cineman/internal/middleware"
	"github.com/hitoshi/cineman/internal/model"
)

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	List(ctx context.Context, userID string) ([]*model.Favorite, error)
	Add(ctx context.Context, userID string, favorite *model.Favorite) (*model.Favorite, error)
	Remove(ctx context.Context, userID string, tmdbID int, contentType model.ContentType) error
	Check(ctx context.Context, userID string, tmdbID int, contentType model.ContentType) (bool, error)
}

// FavoriteHandler はお気に入り管理のHTTPハンドラー。
type FavoriteHandler struct {
	service FavoriteServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// addFavoriteRequest はお気に入り追加リクエストのボディ。
type addFavoriteRequest struct {
	TMDBID  int     `json:"tmdbId"`
	Type    string  `json:"type"`
	Title   string  `json:"title"`
	TitleAr string  `json:"titleAr"`
	Poster  string  `json:"poster"`
	Rating  float64 `json:"rating"`
	Year    string  `json:"year"`
}

// favoriteResponse はお気に入りのAPIレスポンス。
type favoriteResponse struct {
	ID      string    `json:"id"`
	TMDBID  int       `json:"tmdbId"`
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	TitleAr string    `json:"titleAr,omitempty"`
	Poster  string    `json:"poster"`
	Rating  float64   `json:"rating"`
	Year    string    `json:"year"`
	AddedAt time.Time `json:"addedAt"`
}

// List はユーザーのお気に入り一覧を返す。
// GET /api/favorites
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireSession(w, r)
	if !ok {
		return
	}

	favorites, err := h.service.List(r.Context(), payload.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]favoriteResponse, 0, len(favorites))
	for _, f := range favorites {
		items = append(items, toFavoriteResponse(f))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
	})
}

// Add はお気に入りを追加する。
// POST /api/favorites
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req addFavoriteRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	favorite, err := h.service.Add(r.Context(), payload.UserID, &model.Favorite{
		TMDBID:  req.TMDBID,
		Type:    model.ContentType(req.Type),
		Title:   req.Title,
		TitleAr: req.TitleAr,
		Poster:  req.Poster,
		Rating:  req.Rating,
		Year:    req.Year,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFavoriteResponse(favorite))
}

// Remove はお気に入りを削除する。
// DELETE /api/favorites/:tmdbID?type=movie
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireSession(w, r)
	if !ok {
		return
	}

	tmdbID, contentType, ok := parseFavoriteKey(w, r)
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), payload.UserID, tmdbID, contentType); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckByID は指定作品がお気に入り登録済みかどうかを返す。
// GET /api/favorites/:tmdbID/check?type=movie
func (h *FavoriteHandler) CheckByID(w http.ResponseWriter, r *http.Request) {
	payload, ok := requireSession(w, r)
	if !ok {
		return
	}

	tmdbID, contentType, ok := parseFavoriteKey(w, r)
	if !ok {
		return
	}

	isFavorite, err := h.service.Check(r.Context(), payload.UserID, tmdbID, contentType)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"isFavorite": isFavorite,
	})
}

// parseFavoriteKey はURLパラメータとクエリから(tmdbID, type)の組を取り出す。
// 不正な場合は400を書き込み、falseを返す。
func parseFavoriteKey(w http.ResponseWriter, r *http.Request) (int, model.ContentType, bool) {
	tmdbID, err := strconv.Atoi(chi.URLParam(r, "tmdbID"))
	if err != nil || tmdbID == 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return 0, "", false
	}

	contentType := model.ContentType(r.URL.Query().Get("type"))
	if contentType != model.TypeMovie && contentType != model.TypeSeries {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return 0, "", false
	}

	return tmdbID, contentType, true
}

// toFavoriteResponse はmodel.FavoriteからAPIレスポンスに変換する。
func toFavoriteResponse(f *model.Favorite) favoriteResponse {
	return favoriteResponse{
		ID:      f.ID,
		TMDBID:  f.TMDBID,
		Type:    string(f.Type),
		Title:   f.Title,
		TitleAr: f.TitleAr,
		Poster:  f.Poster,
		Rating:  f.Rating,
		Year:    f.Year,
		AddedAt: f.AddedAt,
	}
}
