package handler

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/gameportal/internal/middleware"
	"github.com/hitoshi/gameportal/internal/model"
)

// HealthChecker はDB接続などの疎通確認を行う。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	HSTS              bool
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
	StaticDir      string

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ゲーム
	GameService     GameServiceInterface
	CatalogImporter CatalogImporter
	VisitorDetector VisitorDetector

	// 管理対象
	TaxonomyService   TaxonomyServiceInterface
	AdvertService     AdvertServiceInterface
	DomainService     DomainServiceInterface
	SiteService       SiteServiceInterface
	EngagementService EngagementServiceInterface
	UserService       UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → Logging → SecurityHeaders → CORS
//	  /api:       CSRF → OptionalSession → RateLimit(General) → [Session → RequireRole(ADMIN)]
//	  その他:     AccessGate → 静的ファイル
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	gameHandler := NewGameHandler(deps.GameService, deps.CatalogImporter, deps.VisitorDetector)
	taxonomyHandler := NewTaxonomyHandler(deps.TaxonomyService)
	advertHandler := NewAdvertHandler(deps.AdvertService)
	domainHandler := NewDomainHandler(deps.DomainService)
	siteHandler := NewSiteHandler(deps.SiteService)
	engagementHandler := NewEngagementHandler(deps.EngagementService)
	userHandler := NewUserHandler(deps.UserService)

	requireSession := middleware.NewSessionMiddleware(deps.SessionFinder)

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// --- 認証 ---
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.AuthMiddleware())
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/reset-password", authHandler.RequestPasswordReset)
				r.Post("/reset-password/confirm", authHandler.ConfirmPasswordReset)
				r.Post("/admin-setup", authHandler.AdminSetup)
			})
			r.Post("/logout", authHandler.Logout)
			r.With(requireSession).Get("/me", authHandler.Me)
		})

		// --- 公開API ---
		r.Get("/games", gameHandler.ListGames)
		r.Get("/games/{slug}", gameHandler.GetGameBySlug)
		r.Get("/games/{id}/access-token", gameHandler.IssueAccessToken)
		r.Get("/games/{id}/reviews", engagementHandler.ListReviews)
		r.Get("/proxy-game", gameHandler.ProxyGame)
		r.Get("/categories", taxonomyHandler.ListCategories)
		r.Get("/advertisements", advertHandler.Eligible)
		r.Get("/site-config", siteHandler.Config)
		r.Get("/seo/games/{slug}", siteHandler.GameSEO)

		// --- ログインユーザー向けAPI ---
		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Post("/games/{id}/reviews", engagementHandler.SubmitReview)
			r.Delete("/reviews/{id}", engagementHandler.DeleteReview)
			r.Get("/favorites", engagementHandler.Favorites)
			r.Put("/favorites/{gameId}", engagementHandler.AddFavorite)
			r.Delete("/favorites/{gameId}", engagementHandler.RemoveFavorite)
		})

		// --- 管理API ---
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireSession)
			r.Use(middleware.RequireRole(model.RoleAdmin))

			r.Route("/games", func(r chi.Router) {
				r.Get("/", gameHandler.AdminListGames)
				r.Post("/", gameHandler.CreateGame)
				r.Post("/import", gameHandler.ImportGames)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", gameHandler.AdminGetGame)
					r.Put("/", gameHandler.UpdateGame)
					r.Delete("/", gameHandler.DeleteGame)
					r.Put("/sticky", gameHandler.SetSticky)
					r.Post("/probe", gameHandler.ProbeGame)
				})
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", taxonomyHandler.ListTags)
				r.Post("/", taxonomyHandler.CreateTag)
				r.Delete("/{id}", taxonomyHandler.DeleteTag)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", taxonomyHandler.ListCategories)
				r.Post("/", taxonomyHandler.CreateCategory)
				r.Delete("/{id}", taxonomyHandler.DeleteCategory)
			})

			r.Route("/advertisements", func(r chi.Router) {
				r.Get("/", advertHandler.List)
				r.Post("/", advertHandler.Create)
				r.Put("/{id}", advertHandler.Update)
				r.Delete("/{id}", advertHandler.Delete)
			})

			r.Route("/domains", func(r chi.Router) {
				r.Get("/", domainHandler.List)
				r.Post("/", domainHandler.Create)
				r.Get("/check/{id}", domainHandler.Check)
				r.Delete("/{id}", domainHandler.Delete)
			})

			r.Get("/site-config", siteHandler.Config)
			r.Put("/site-config", siteHandler.UpdateConfig)
			r.Get("/seo-settings", siteHandler.SEOSettings)
			r.Put("/seo-settings", siteHandler.UpdateSEOSettings)

			r.Get("/users", userHandler.List)
			r.Put("/users/{id}/role", userHandler.ChangeRole)
			r.Get("/stats", engagementHandler.Stats)
		})
	})

	// --- ページ（/admin, /embed はアクセス制御の対象） ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAccessGate(deps.SessionFinder))
		r.Handle("/*", pageHandler(deps.StaticDir))
	})

	return r
}

// healthHandler はDB疎通を確認し、結果を返すハンドラーを生成する。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// pageHandler は静的フロントエンドを配信する。
// 存在しないパスはクライアントサイドルーティングのためindex.htmlを返す。
// dirが空の場合はページを配信しない。
func pageHandler(dir string) http.Handler {
	if dir == "" {
		return http.NotFoundHandler()
	}

	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
	})
}
