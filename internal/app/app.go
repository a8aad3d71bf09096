package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/gameportal/internal/advert"
	"github.com/hitoshi/gameportal/internal/auth"
	"github.com/hitoshi/gameportal/internal/catalog"
	"github.com/hitoshi/gameportal/internal/config"
	"github.com/hitoshi/gameportal/internal/database"
	"github.com/hitoshi/gameportal/internal/engagement"
	"github.com/hitoshi/gameportal/internal/events"
	"github.com/hitoshi/gameportal/internal/game"
	"github.com/hitoshi/gameportal/internal/handler"
	"github.com/hitoshi/gameportal/internal/logger"
	"github.com/hitoshi/gameportal/internal/metrics"
	"github.com/hitoshi/gameportal/internal/middleware"
	"github.com/hitoshi/gameportal/internal/repository"
	"github.com/hitoshi/gameportal/internal/security"
	"github.com/hitoshi/gameportal/internal/siteconfig"
	"github.com/hitoshi/gameportal/internal/sitedomain"
	"github.com/hitoshi/gameportal/internal/taxonomy"
	"github.com/hitoshi/gameportal/internal/user"
	"github.com/hitoshi/gameportal/internal/visitor"
	"github.com/hitoshi/gameportal/internal/worker/cleanup"
	"github.com/hitoshi/gameportal/internal/worker/domaincheck"
)

// cleanupInterval はクリーンアップジョブの実行間隔。
const cleanupInterval = cleanup.DefaultInterval

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再構成
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck("http://localhost:" + port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("env", cfg.AppEnv),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はプロセス共有のDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Shared(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return db, nil
}

// newPublisher はKafkaブローカーが設定されていればKafkaへ、なければログへイベントを発行するPublisherを返す。
func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) > 0 {
		slog.Info("event publisher: kafka", slog.Any("brokers", cfg.KafkaBrokers))
		return events.NewKafkaPublisher(cfg.KafkaBrokers)
	}
	slog.Info("event publisher: log (KAFKA_BROKERS not set)")
	return events.NewLogPublisher(slog.Default())
}

// newVisitorDetector はGeoIPデータベースが設定されていれば国判定付きのDetectorを返す。
// 読み込みに失敗した場合は国判定なしで続行する。
func newVisitorDetector(cfg *config.Config) (*visitor.Detector, func()) {
	if cfg.GeoIPDBPath == "" {
		return visitor.NewDetector(nil), func() {}
	}

	locator, err := visitor.OpenGeoIP(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("geoip database unavailable, country detection disabled",
			slog.String("path", cfg.GeoIPDBPath),
			slog.String("error", err.Error()),
		)
		return visitor.NewDetector(nil), func() {}
	}
	return visitor.NewDetector(locator), func() { _ = locator.Close() }
}

// buildRouterDeps はDB接続と設定から全サービスを組み立て、ルーターの依存関係を返す。
func buildRouterDeps(cfg *config.Config, db *sql.DB, pub events.Publisher, detector handler.VisitorDetector, reg *prometheus.Registry) *handler.RouterDeps {
	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	tokenRepo := repository.NewPostgresResetTokenRepo(db)
	gameRepo := repository.NewPostgresGameRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)
	tagRepo := repository.NewPostgresTagRepo(db)
	adRepo := repository.NewPostgresAdvertisementRepo(db)
	domainRepo := repository.NewPostgresDomainRepo(db)
	configRepo := repository.NewPostgresSettingRepo(db, repository.SiteConfigTable)
	settingsRepo := repository.NewPostgresSettingRepo(db, repository.SiteSettingsTable)
	playRepo := repository.NewPostgresPlayRepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)

	// 2. 横断的コンポーネントの初期化
	collector := metrics.NewCollector(reg)
	notifier := events.NewNotifier(pub, cfg.KafkaInvalidationTopic, cfg.KafkaMailTopic)
	urlGuard := security.NewURLGuard()
	sanitizer := security.NewSanitizer()

	// 3. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionRepo, tokenRepo, notifier, auth.ServiceConfig{
		SessionMaxAge:   cfg.SessionMaxAge,
		ResetTokenTTL:   cfg.ResetTokenTTL,
		BaseURL:         cfg.BaseURL,
		AdminSetupKey:   cfg.AdminSetupKey,
		AllowAdminSetup: !cfg.IsProduction(),
	})
	gameService := game.NewService(
		gameRepo, categoryRepo, playRepo,
		game.NewTokenSigner(cfg.AccessTokenSecret, cfg.AccessTokenTTL),
		notifier, urlGuard, sanitizer, collector,
	)
	importer := catalog.NewImporter(gameService, urlGuard, cfg.ImportTimeout, cfg.ImportMaxSize, collector, slog.Default())

	// 4. ルーターの依存関係
	return &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		HSTS:           cfg.CookieSecure,
		RateLimiter:    middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(cfg.RateLimitAuth)),
		Logger:         slog.Default(),
		StatusRecorder: collector,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),
		StaticDir:      cfg.StaticDir,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		GameService:     gameService,
		CatalogImporter: importer,
		VisitorDetector: detector,

		TaxonomyService:   taxonomy.NewService(categoryRepo, tagRepo, gameRepo),
		AdvertService:     advert.NewService(adRepo),
		DomainService:     sitedomain.NewService(domainRepo, nil, cfg.DomainCNAMETarget, collector),
		SiteService:       siteconfig.NewService(configRepo, settingsRepo, gameRepo),
		EngagementService: engagement.NewService(gameRepo, userRepo, playRepo, reviewRepo, favoriteRepo, sanitizer),
		UserService:       user.NewService(userRepo),
	}
}

// newRegistry はアプリケーション用のPrometheusレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newServer はタイムアウトを設定したHTTPサーバーを生成する。
func newServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	// 2. 外部連携（イベント発行、GeoIP）
	pub := newPublisher(cfg)
	defer pub.Close()

	detector, closeDetector := newVisitorDetector(cfg)
	defer closeDetector()

	// 3. ルーターの構築
	deps := buildRouterDeps(cfg, db, pub, detector, newRegistry())
	defer deps.RateLimiter.Stop()

	server := newServer(cfg.ServerPort, handler.NewRouter(deps))

	// 4. HTTPサーバーの起動
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れデータのクリーンアップとドメインの定期再検証を並行して実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	// 2. ジョブの初期化
	domains := sitedomain.NewService(
		repository.NewPostgresDomainRepo(db), nil, cfg.DomainCNAMETarget, metrics.Nop{},
	)
	scheduler := domaincheck.NewScheduler(domains, slog.Default(), cfg.DomainCheckConcurrency)
	cleanupJob := cleanup.NewCleanupJob(
		repository.NewPostgresSessionRepo(db),
		repository.NewPostgresResetTokenRepo(db),
		repository.NewPostgresGameRepo(db),
		slog.Default(),
	)

	// 3. シグナルで停止するコンテキスト
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cleanupInterval),
		slog.Duration("domain_check_interval", cfg.DomainCheckInterval),
		slog.Int("domain_check_concurrency", cfg.DomainCheckConcurrency),
	)

	var g errgroup.Group
	g.Go(func() error {
		cleanupJob.Start(ctx, cleanupInterval)
		return nil
	})
	g.Go(func() error {
		scheduler.Start(ctx, cfg.DomainCheckInterval)
		return nil
	})
	_ = g.Wait()

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	latest, err := database.LatestVersion()
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
		slog.Uint64("latest_version", uint64(latest)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// baseURLの /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
