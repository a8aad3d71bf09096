package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/gameportal/internal/advert"
	"github.com/hitoshi/gameportal/internal/model"
)

// AdvertServiceInterface は広告ハンドラーが必要とするサービスインターフェース。
type AdvertServiceInterface interface {
	Eligible(ctx context.Context, location string) ([]*model.Advertisement, error)
	List(ctx context.Context) ([]*model.Advertisement, error)
	Create(ctx context.Context, in advert.Input) (*model.Advertisement, error)
	Update(ctx context.Context, id string, in advert.Input) (*model.Advertisement, error)
	Delete(ctx context.Context, id string) error
}

// AdvertHandler は広告のHTTPハンドラー。
type AdvertHandler struct {
	service AdvertServiceInterface
}

// NewAdvertHandler はAdvertHandlerを生成する。
func NewAdvertHandler(service AdvertServiceInterface) *AdvertHandler {
	return &AdvertHandler{service: service}
}

// advertisementRequest は広告登録・更新リクエストのボディ。
// is_activeを省略した場合は有効として扱う。
type advertisementRequest struct {
	Name      string     `json:"name" validate:"required,max=200"`
	Location  string     `json:"location" validate:"required,max=100"`
	AdType    string     `json:"ad_type" validate:"max=50"`
	Code      string     `json:"code" validate:"max=20000"`
	IsActive  *bool      `json:"is_active"`
	SortOrder int        `json:"sort_order"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

type advertisementsResponse struct {
	Advertisements []advertisementResponse `json:"advertisements"`
}

// Eligible は現在表示すべき広告を返す。
// GET /api/advertisements?location=
func (h *AdvertHandler) Eligible(w http.ResponseWriter, r *http.Request) {
	ads, err := h.service.Eligible(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advertisementsResponse{Advertisements: toAdvertisementResponses(ads)})
}

// List は全広告を返す。
// GET /api/admin/advertisements
func (h *AdvertHandler) List(w http.ResponseWriter, r *http.Request) {
	ads, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advertisementsResponse{Advertisements: toAdvertisementResponses(ads)})
}

// Create は広告を登録する。
// POST /api/admin/advertisements
func (h *AdvertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req advertisementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ad, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdvertisementResponse(ad))
}

// Update は広告を更新する。
// PUT /api/admin/advertisements/{id}
func (h *AdvertHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req advertisementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ad, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdvertisementResponse(ad))
}

// Delete は広告を削除する。
// DELETE /api/admin/advertisements/{id}
func (h *AdvertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeMessage(w, "広告を削除しました。")
}

func (req advertisementRequest) toInput() advert.Input {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return advert.Input{
		Name:      req.Name,
		Location:  req.Location,
		Type:      req.AdType,
		Code:      req.Code,
		IsActive:  active,
		SortOrder: req.SortOrder,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
}
