package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/gameportal/internal/model"
)

// UserServiceInterface はユーザー管理ハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
	ChangeRole(ctx context.Context, actorID, userID string, role model.Role) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=USER ADMIN"`
}

// List はユーザー一覧を返す。
// GET /api/admin/users?limit=&offset=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context(), queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, out)
}

// ChangeRole はユーザーのロールを変更する。自分自身の降格はできない。
// PUT /api/admin/users/{id}/role
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.ChangeRole(r.Context(), actorID, chi.URLParam(r, "id"), model.Role(req.Role))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
