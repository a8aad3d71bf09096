package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/gameportal/internal/model"
)

// TaxonomyServiceInterface はカテゴリ・タグハンドラーが必要とするサービスインターフェース。
type TaxonomyServiceInterface interface {
	ListTags(ctx context.Context) ([]*model.Tag, error)
	CreateTag(ctx context.Context, name string) (*model.Tag, error)
	DeleteTag(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]*model.Category, error)
	CreateCategory(ctx context.Context, name string) (*model.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// TaxonomyHandler はカテゴリ・タグのHTTPハンドラー。
type TaxonomyHandler struct {
	service TaxonomyServiceInterface
}

// NewTaxonomyHandler はTaxonomyHandlerを生成する。
func NewTaxonomyHandler(service TaxonomyServiceInterface) *TaxonomyHandler {
	return &TaxonomyHandler{service: service}
}

// nameRequest は名前のみを受け取るリクエストのボディ。
// 空白のみの名前はサービス層で検証する。
type nameRequest struct {
	Name string `json:"name" validate:"max=100"`
}

// ListTags はタグ一覧を名前順で返す。
// GET /api/admin/tags
func (h *TaxonomyHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTagResponses(tags))
}

// CreateTag はタグを作成する。名前またはスラッグが既存ならTAG_EXISTS。
// POST /api/admin/tags
func (h *TaxonomyHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tag, err := h.service.CreateTag(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, taxonomyResponse{ID: tag.ID, Name: tag.Name, Slug: tag.Slug})
}

// DeleteTag はタグを削除する。
// DELETE /api/admin/tags/{id}
func (h *TaxonomyHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTag(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeMessage(w, "タグを削除しました。")
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories, GET /api/admin/categories
func (h *TaxonomyHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponses(categories))
}

// CreateCategory はカテゴリを作成する。
// POST /api/admin/categories
func (h *TaxonomyHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, taxonomyResponse{ID: c.ID, Name: c.Name, Slug: c.Slug})
}

// DeleteCategory はカテゴリを削除する。使用中のゲームがあればCATEGORY_IN_USE。
// DELETE /api/admin/categories/{id}
func (h *TaxonomyHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeMessage(w, "カテゴリを削除しました。")
}
