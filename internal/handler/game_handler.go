package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/gameportal/internal/catalog"
	"github.com/hitoshi/gameportal/internal/game"
	"github.com/hitoshi/gameportal/internal/middleware"
	"github.com/hitoshi/gameportal/internal/model"
	"github.com/hitoshi/gameportal/internal/visitor"
)

// GameServiceInterface はゲームハンドラーが必要とするサービスインターフェース。
type GameServiceInterface interface {
	List(ctx context.Context, filter model.GameFilter) ([]*model.Game, error)
	Get(ctx context.Context, id string) (*model.Game, error)
	GetBySlug(ctx context.Context, slug string) (*model.Game, error)
	Create(ctx context.Context, in game.Input) (*model.Game, error)
	Update(ctx context.Context, id string, in game.Input) (*model.Game, error)
	Delete(ctx context.Context, id string) error
	SetPin(ctx context.Context, id string, pin model.Pin) (*model.Game, error)
	IssueAccessToken(ctx context.Context, gameID string) (string, time.Time, error)
	Redeem(ctx context.Context, gameID, token string, visit game.Visit) (*model.Game, error)
	Probe(ctx context.Context, id string) (*game.ProbeResult, error)
}

// CatalogImporter はフィードからゲームを一括登録する。
type CatalogImporter interface {
	Import(ctx context.Context, feedURL, category string) (*catalog.Result, error)
}

// VisitorDetector はリクエストから訪問者情報を推定する。
type VisitorDetector interface {
	Detect(r *http.Request) visitor.Info
}

// GameHandler はゲーム関連のHTTPハンドラー。
type GameHandler struct {
	service  GameServiceInterface
	importer CatalogImporter
	detector VisitorDetector
}

// NewGameHandler はGameHandlerを生成する。
func NewGameHandler(service GameServiceInterface, importer CatalogImporter, detector VisitorDetector) *GameHandler {
	return &GameHandler{
		service:  service,
		importer: importer,
		detector: detector,
	}
}

// gameRequest はゲーム登録・更新リクエストのボディ。
type gameRequest struct {
	Slug         string   `json:"slug" validate:"max=200"`
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"max=20000"`
	ThumbnailURL string   `json:"thumbnail_url" validate:"max=2048"`
	GameURL      string   `json:"game_url" validate:"required,max=2048"`
	Category     string   `json:"category" validate:"max=100"`
	Tags         []string `json:"tags" validate:"max=30,dive,max=50"`
}

// stickyRequest はピン留め更新リクエストのボディ。
type stickyRequest struct {
	IsPinned     *bool      `json:"is_pinned" validate:"required"`
	PinOrder     *int       `json:"pin_order" validate:"omitempty,min=0"`
	PinExpiresAt *time.Time `json:"pin_expires_at"`
}

// importRequest はカタログインポートリクエストのボディ。
type importRequest struct {
	FeedURL  string `json:"feed_url" validate:"required,url"`
	Category string `json:"category" validate:"max=100"`
}

type accessTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type gamesResponse struct {
	Games []gameResponse `json:"games"`
}

// ListGames は公開ゲーム一覧を返す。ピン留め中のゲームが先頭に並ぶ。
// GET /api/games?category=&tag=&q=&limit=&offset=
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	games, err := h.service.List(r.Context(), model.GameFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Tag:      strings.TrimSpace(q.Get("tag")),
		Query:    strings.TrimSpace(q.Get("q")),
		Limit:    queryInt(r, "limit", 0),
		Offset:   queryInt(r, "offset", 0),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gamesResponse{Games: toGameResponses(games)})
}

// GetGameBySlug はスラッグでゲーム詳細を返す。
// GET /api/games/{slug}
func (h *GameHandler) GetGameBySlug(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameResponse(g))
}

// IssueAccessToken はゲーム起動用の短期アクセストークンを発行する。
// GET /api/games/{id}/access-token
func (h *GameHandler) IssueAccessToken(w http.ResponseWriter, r *http.Request) {
	token, expiresAt, err := h.service.IssueAccessToken(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accessTokenResponse{Token: token, ExpiresAt: expiresAt})
}

// ProxyGame はアクセストークンを検証し、ゲーム本体のURLへリダイレクトする。
// GET /api/proxy-game?gameId=&token=
func (h *GameHandler) ProxyGame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// 1. 訪問者情報の推定（ログイン中ならユーザーIDも記録する）
	info := h.detector.Detect(r)
	visit := game.Visit{
		Country: info.Country,
		Device:  info.Device,
		IsBot:   info.IsBot,
	}
	if userID, err := middleware.UserIDFromContext(r.Context()); err == nil {
		visit.UserID = userID
	}

	// 2. トークン検証とプレイ記録
	g, err := h.service.Redeem(r.Context(), q.Get("gameId"), q.Get("token"), visit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 3. ゲーム本体へリダイレクト
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, g.GameURL, http.StatusFound)
}

// AdminListGames は管理画面向けのゲーム一覧を返す。
// GET /api/admin/games
func (h *GameHandler) AdminListGames(w http.ResponseWriter, r *http.Request) {
	h.ListGames(w, r)
}

// AdminGetGame はIDでゲーム詳細を返す。
// GET /api/admin/games/{id}
func (h *GameHandler) AdminGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameResponse(g))
}

// CreateGame はゲームを登録する。
// POST /api/admin/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req gameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	g, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGameResponse(g))
}

// UpdateGame はゲームを更新する。
// PUT /api/admin/games/{id}
func (h *GameHandler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	var req gameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	g, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameResponse(g))
}

// DeleteGame はゲームを削除する。
// DELETE /api/admin/games/{id}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeMessage(w, "ゲームを削除しました。")
}

// SetSticky はゲームのピン留め状態を更新する。
// PUT /api/admin/games/{id}/sticky
func (h *GameHandler) SetSticky(w http.ResponseWriter, r *http.Request) {
	var req stickyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	g, err := h.service.SetPin(r.Context(), chi.URLParam(r, "id"), model.Pin{
		Pinned:    *req.IsPinned,
		Order:     req.PinOrder,
		ExpiresAt: req.PinExpiresAt,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGameResponse(g))
}

// ProbeGame はゲームURLに到達できるかを確認する。
// POST /api/admin/games/{id}/probe
func (h *GameHandler) ProbeGame(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Probe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ImportGames はフィードからゲームを一括登録する。
// POST /api/admin/games/import
func (h *GameHandler) ImportGames(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.importer.Import(r.Context(), req.FeedURL, req.Category)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (req gameRequest) toInput() game.Input {
	return game.Input{
		Slug:         req.Slug,
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		GameURL:      req.GameURL,
		Category:     req.Category,
		Tags:         req.Tags,
	}
}
