package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/gameportal/internal/engagement"
	"github.com/hitoshi/gameportal/internal/middleware"
	"github.com/hitoshi/gameportal/internal/model"
)

// EngagementServiceInterface はレビュー・お気に入り・集計ハンドラーが必要とするサービスインターフェース。
type EngagementServiceInterface interface {
	ListReviews(ctx context.Context, gameID string) ([]*model.GameReview, error)
	SubmitReview(ctx context.Context, userID, gameID string, rating int, comment string) (*model.GameReview, error)
	DeleteReview(ctx context.Context, p engagement.Principal, reviewID string) error
	Favorites(ctx context.Context, userID string) ([]*model.Game, error)
	AddFavorite(ctx context.Context, userID, gameID string) error
	RemoveFavorite(ctx context.Context, userID, gameID string) error
	Stats(ctx context.Context) (*model.DashboardStats, error)
}

// EngagementHandler はレビュー・お気に入り・ダッシュボード集計のHTTPハンドラー。
type EngagementHandler struct {
	service EngagementServiceInterface
}

// NewEngagementHandler はEngagementHandlerを生成する。
func NewEngagementHandler(service EngagementServiceInterface) *EngagementHandler {
	return &EngagementHandler{service: service}
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// ListReviews はゲームのレビュー一覧を返す。
// GET /api/games/{id}/reviews
func (h *EngagementHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListReviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]reviewResponse, len(reviews))
	for i, rv := range reviews {
		out[i] = toReviewResponse(rv)
	}
	writeJSON(w, http.StatusOK, out)
}

// SubmitReview は自分のレビューを投稿または更新する。
// POST /api/games/{id}/reviews
func (h *EngagementHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	review, err := h.service.SubmitReview(r.Context(), userID, chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewResponse(review))
}

// DeleteReview はレビューを削除する。投稿者本人または管理者のみ。
// DELETE /api/reviews/{id}
func (h *EngagementHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	err := h.service.DeleteReview(r.Context(), engagement.Principal{UserID: p.UserID, Role: p.Role}, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeMessage(w, "レビューを削除しました。")
}

// Favorites はログインユーザーのお気に入りゲームを返す。
// GET /api/favorites
func (h *EngagementHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	games, err := h.service.Favorites(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gamesResponse{Games: toGameResponses(games)})
}

// AddFavorite はゲームをお気に入りに追加する。追加済みでも成功とする。
// PUT /api/favorites/{gameId}
func (h *EngagementHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.AddFavorite(r.Context(), userID, chi.URLParam(r, "gameId")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFavorite はゲームをお気に入りから外す。
// DELETE /api/favorites/{gameId}
func (h *EngagementHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveFavorite(r.Context(), userID, chi.URLParam(r, "gameId")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats は管理画面ダッシュボードの集計値を返す。
// GET /api/admin/stats
func (h *EngagementHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsResponse(stats))
}

// requireUserID はコンテキストからユーザーIDを取得する。
// 取得できない場合は401を書き込みfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}
