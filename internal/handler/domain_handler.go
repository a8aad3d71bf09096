package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/gameportal/internal/model"
)

// DomainServiceInterface はドメインハンドラーが必要とするサービスインターフェース。
type DomainServiceInterface interface {
	List(ctx context.Context) ([]*model.DomainBinding, error)
	Create(ctx context.Context, rawDomain string) (*model.DomainBinding, error)
	Delete(ctx context.Context, id string) error
	Check(ctx context.Context, id string) (*model.DomainCheckResult, error)
}

// DomainHandler はドメインバインディングのHTTPハンドラー。
type DomainHandler struct {
	service DomainServiceInterface
}

// NewDomainHandler はDomainHandlerを生成する。
func NewDomainHandler(service DomainServiceInterface) *DomainHandler {
	return &DomainHandler{service: service}
}

type domainRequest struct {
	Domain string `json:"domain" validate:"required,max=253"`
}

// List はドメイン一覧を返す。
// GET /api/admin/domains
func (h *DomainHandler) List(w http.ResponseWriter, r *http.Request) {
	domains, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]domainResponse, len(domains))
	for i, d := range domains {
		out[i] = toDomainResponse(d)
	}
	writeJSON(w, http.StatusOK, out)
}

// Create はドメインを登録する。登録直後は未検証（is_active=false）。
// POST /api/admin/domains
func (h *DomainHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domainRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.service.Create(r.Context(), req.Domain)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDomainResponse(d))
}

// Delete はドメインを削除する。
// DELETE /api/admin/domains/{id}
func (h *DomainHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeMessage(w, "ドメインを削除しました。")
}

// Check はCNAMEレコードを確認し、検証結果を保存して返す。
// GET /api/admin/domains/check/{id}
func (h *DomainHandler) Check(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Check(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDomainCheckResponse(result))
}
