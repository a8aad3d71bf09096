package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/gameportal/internal/siteconfig"
)

// SiteServiceInterface はサイト設定ハンドラーが必要とするサービスインターフェース。
type SiteServiceInterface interface {
	Config(ctx context.Context) (map[string]string, error)
	UpdateConfig(ctx context.Context, values map[string]string) (map[string]string, error)
	SEOSettings(ctx context.Context) (map[string]string, error)
	UpdateSEOSettings(ctx context.Context, values map[string]string) (map[string]string, error)
	GameSEO(ctx context.Context, slug string) (*siteconfig.SEO, error)
}

// SiteHandler はサイト設定・SEO設定のHTTPハンドラー。
type SiteHandler struct {
	service SiteServiceInterface
}

// NewSiteHandler はSiteHandlerを生成する。
func NewSiteHandler(service SiteServiceInterface) *SiteHandler {
	return &SiteHandler{service: service}
}

// Config はサイト設定をキー・値のマップで返す。
// GET /api/site-config, GET /api/admin/site-config
func (h *SiteHandler) Config(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.Config(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// UpdateConfig はサイト設定を更新する。
// PUT /api/admin/site-config
func (h *SiteHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if !decodeJSON(w, r, &req) {
		return
	}

	values, err := h.service.UpdateConfig(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// SEOSettings はSEOテンプレート設定を返す。
// GET /api/admin/seo-settings
func (h *SiteHandler) SEOSettings(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.SEOSettings(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// UpdateSEOSettings はSEOテンプレート設定を更新する。
// PUT /api/admin/seo-settings
func (h *SiteHandler) UpdateSEOSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if !decodeJSON(w, r, &req) {
		return
	}

	values, err := h.service.UpdateSEOSettings(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// GameSEO はゲームページのタイトル・説明文をテンプレートから生成して返す。
// GET /api/seo/games/{slug}
func (h *SiteHandler) GameSEO(w http.ResponseWriter, r *http.Request) {
	seo, err := h.service.GameSEO(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seo)
}
