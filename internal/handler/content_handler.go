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

// 一覧のページネーション既定値。
const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ContentServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type ContentServiceInterface interface {
	List(ctx context.Context, filter model.ContentFilter) ([]*model.Content, int, error)
	Get(ctx context.Context, id string) (*model.Content, error)
	Create(ctx context.Context, content *model.Content) (*model.Content, error)
	Update(ctx context.Context, content *model.Content) (*model.Content, error)
	Delete(ctx context.Context, id string) error
}

// ContentHandler はカタログ作品のHTTPハンドラー。
type ContentHandler struct {
	service ContentServiceInterface
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(service ContentServiceInterface) *ContentHandler {
	return &ContentHandler{service: service}
}

// contentRequest は作品の登録・更新リクエストのボディ。
type contentRequest struct {
	TMDBID        int             `json:"tmdbId"`
	Title         string          `json:"title"`
	TitleAr       string          `json:"titleAr"`
	Description   string          `json:"description"`
	DescriptionAr string          `json:"descriptionAr"`
	Type          string          `json:"type"`
	Poster        string          `json:"poster"`
	Backdrop      string          `json:"backdrop"`
	VideoURL      string          `json:"videoUrl"`
	TrailerURL    string          `json:"trailerUrl"`
	Category      string          `json:"category"`
	Genres        []string        `json:"genres"`
	Year          int             `json:"year"`
	Rating        float64         `json:"rating"`
	Duration      int             `json:"duration"`
	Episodes      []model.Episode `json:"episodes"`
	Featured      bool            `json:"featured"`
}

// contentResponse は作品情報のAPIレスポンス。
type contentResponse struct {
	ID            string          `json:"id"`
	TMDBID        int             `json:"tmdbId"`
	Title         string          `json:"title"`
	TitleAr       string          `json:"titleAr,omitempty"`
	Description   string          `json:"description"`
	DescriptionAr string          `json:"descriptionAr,omitempty"`
	Type          string          `json:"type"`
	Poster        string          `json:"poster"`
	Backdrop      string          `json:"backdrop"`
	VideoURL      string          `json:"videoUrl"`
	TrailerURL    string          `json:"trailerUrl,omitempty"`
	Category      string          `json:"category"`
	Genres        []string        `json:"genres"`
	Year          int             `json:"year"`
	Rating        float64         `json:"rating"`
	Duration      int             `json:"duration"`
	Views         int64           `json:"views"`
	Episodes      []model.Episode `json:"episodes,omitempty"`
	Featured      bool            `json:"featured"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// contentListResponse は作品一覧のAPIレスポンス。
type contentListResponse struct {
	Items []contentResponse `json:"items"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// List は作品一覧を返す。
// GET /api/content?type=movie&category=action&featured=true&search=xxx&page=1&limit=20
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseContentFilter(r)

	contents, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]contentResponse, 0, len(contents))
	for _, c := range contents {
		items = append(items, toContentResponse(c))
	}

	writeJSON(w, http.StatusOK, contentListResponse{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

// Get は作品詳細を返す。視聴回数を1加算する。
// GET /api/content/:id
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	content, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toContentResponse(content))
}

// Create は新規作品を登録する。
// POST /api/admin/content（管理者専用）
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	var req contentRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	content, err := h.service.Create(r.Context(), toContent(&req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toContentResponse(content))
}

// Update は作品情報を更新する。
// PUT /api/admin/content/:id（管理者専用）
func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	var req contentRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	content := toContent(&req)
	content.ID = chi.URLParam(r, "id")

	updated, err := h.service.Update(r.Context(), content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toContentResponse(updated))
}

// Delete は作品を削除する。
// DELETE /api/admin/content/:id（管理者専用）
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseContentFilter はクエリパラメータから一覧の絞り込み条件を組み立てる。
func parseContentFilter(r *http.Request) model.ContentFilter {
	q := r.URL.Query()

	filter := model.ContentFilter{
		Type:     model.ContentType(q.Get("type")),
		Category: q.Get("category"),
		Featured: q.Get("featured") == "true",
		Search:   q.Get("search"),
		Page:     1,
		Limit:    defaultPageLimit,
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
		filter.Limit = limit
	}

	return filter
}

// toContent はリクエストボディからmodel.Contentに変換する。
func toContent(req *contentRequest) *model.Content {
	return &model.Content{
		TMDBID:        req.TMDBID,
		Title:         req.Title,
		TitleAr:       req.TitleAr,
		Description:   req.Description,
		DescriptionAr: req.DescriptionAr,
		Type:          model.ContentType(req.Type),
		Poster:        req.Poster,
		Backdrop:      req.Backdrop,
		VideoURL:      req.VideoURL,
		TrailerURL:    req.TrailerURL,
		Category:      req.Category,
		Genres:        req.Genres,
		Year:          req.Year,
		Rating:        req.Rating,
		Duration:      req.Duration,
		Episodes:      req.Episodes,
		Featured:      req.Featured,
	}
}

// toContentResponse はmodel.ContentからAPIレスポンスに変換する。
func toContentResponse(c *model.Content) contentResponse {
	return contentResponse{
		ID:            c.ID,
		TMDBID:        c.TMDBID,
		Title:         c.Title,
		TitleAr:       c.TitleAr,
		Description:   c.Description,
		DescriptionAr: c.DescriptionAr,
		Type:          string(c.Type),
		Poster:        c.Poster,
		Backdrop:      c.Backdrop,
		VideoURL:      c.VideoURL,
		TrailerURL:    c.TrailerURL,
		Category:      c.Category,
		Genres:        c.Genres,
		Year:          c.Year,
		Rating:        c.Rating,
		Duration:      c.Duration,
		Views:         c.Views,
		Episodes:      c.Episodes,
		Featured:      c.Featured,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}
