package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/cineman/internal/auth"
	"github.com/hitoshi/cineman/internal/config"
	"github.com/hitoshi/cineman/internal/content"
	"github.com/hitoshi/cineman/internal/database"
	"github.com/hitoshi/cineman/internal/favorite"
	"github.com/hitoshi/cineman/internal/handler"
	"github.com/hitoshi/cineman/internal/logger"
	"github.com/hitoshi/cineman/internal/metadata"
	"github.com/hitoshi/cineman/internal/metrics"
	"github.com/hitoshi/cineman/internal/middleware"
	"github.com/hitoshi/cineman/internal/ratelimit"
	"github.com/hitoshi/cineman/internal/repository"
	"github.com/hitoshi/cineman/internal/security"
	"github.com/hitoshi/cineman/internal/session"
	"github.com/hitoshi/cineman/internal/token"
	"github.com/hitoshi/cineman/internal/user"
	syncpkg "github.com/hitoshi/cineman/internal/worker/sync"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandCreateAdmin:
		return runCreateAdmin(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	contentRepo := repository.NewPostgresContentRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)
	statsRepo := repository.NewPostgresStatsRepo(db)

	// 3. セキュリティサービスの初期化
	sanitizer := security.NewInputSanitizer()
	urlGuard := security.NewURLGuard()

	// 4. トークンサービスとセッションリゾルバの初期化
	tokenService, err := token.NewService(token.Config{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}
	resolver := session.NewResolver(tokenService)

	// 5. ドメインサービスの初期化
	authService := auth.NewService(userRepo, tokenService, sanitizer)
	contentService := content.NewService(contentRepo, sanitizer, urlGuard)
	favoriteService := favorite.NewService(favoriteRepo, sanitizer)
	userService := user.NewService(userRepo, statsRepo)

	// 6. レート制限の初期化
	// 認証前エンドポイント用の固定ウィンドウ制限と、
	// 認証済みユーザー用のトークンバケット制限を併用する。
	preAuthLimiter := ratelimit.NewLimiter()
	defer preAuthLimiter.Stop()

	apiLimiterCfg := middleware.DefaultAPILimiterConfig()
	if cfg.APIRateLimit > 0 {
		apiLimiterCfg.Rate = rate.Limit(float64(cfg.APIRateLimit) / 60.0)
		apiLimiterCfg.Burst = cfg.APIRateLimit
	}
	apiLimiter := middleware.NewAPILimiter(apiLimiterCfg)
	defer apiLimiter.Stop()

	// 7. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 8. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		SessionResolver: resolver,
		GuardConfig: middleware.GuardConfig{
			LoginPath:    "/auth/login",
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
			Metrics:      collector,
		},
		APILimiter:      apiLimiter,
		Metrics:         collector,
		MetricsGatherer: registry,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},
		PreAuthLimiter: preAuthLimiter,

		ContentService:   contentService,
		FavoriteService:  favoriteService,
		UserAdminService: userService,
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、カタログ同期ジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	contentRepo := repository.NewPostgresContentRepo(db)

	// 3. TMDBクライアントの初期化
	// アウトバウンドリクエストはSSRF防止機能付きクライアントを経由させる
	urlGuard := security.NewURLGuard()
	tmdbClient := metadata.NewClient(
		urlGuard.NewSafeClient(cfg.TMDBTimeout),
		slog.Default(), cfg.TMDBAPIKey, cfg.TMDBLanguage,
	)

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. 同期ジョブの初期化
	syncer := syncpkg.NewSyncer(tmdbClient, contentRepo, collector, slog.Default())

	// メトリクスとヘルスチェック用の軽量HTTPサーバー
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	metricsServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", slog.String("error", err.Error()))
		}
	}()

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("sync_interval", cfg.SyncInterval),
		slog.String("tmdb_language", cfg.TMDBLanguage),
	)

	// 同期ジョブをメインgoroutineで実行（ブロッキング）
	syncer.Start(ctx, cfg.SyncInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("worker metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runCreateAdmin は初期管理者アカウントを作成する。
// 登録フローは常に承認待ちの一般ユーザーを作成するため、
// 新規デプロイではこのサブコマンドで最初の承認済み管理者を投入する。
// 認証情報はADMIN_NAME / ADMIN_EMAIL / ADMIN_PASSWORD環境変数から読み込む。
func runCreateAdmin(cfg *config.Config) error {
	name := os.Getenv("ADMIN_NAME")
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if name == "" || email == "" || password == "" {
		return fmt.Errorf("ADMIN_NAME, ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	userRepo := repository.NewPostgresUserRepo(db)
	sanitizer := security.NewInputSanitizer()
	tokenService, err := token.NewService(token.Config{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}
	authService := auth.NewService(userRepo, tokenService, sanitizer)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := authService.BootstrapAdmin(ctx, name, email, password)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	slog.Info("admin user created",
		slog.String("user_id", admin.ID),
		slog.String("email", admin.Email),
	)
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
