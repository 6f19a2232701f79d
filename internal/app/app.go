package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/storefront/internal/auth"
	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/catalog"
	"github.com/hitoshi/storefront/internal/config"
	"github.com/hitoshi/storefront/internal/currency"
	"github.com/hitoshi/storefront/internal/database"
	"github.com/hitoshi/storefront/internal/handler"
	"github.com/hitoshi/storefront/internal/logger"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/security"
	"github.com/hitoshi/storefront/internal/storage"
	"github.com/hitoshi/storefront/internal/view"
	"github.com/hitoshi/storefront/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, os.Getenv("LOG_LEVEL"))

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
		slog.String("store_backend", cfg.StoreBackend),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandImportCatalog:
		return runImportCatalog(context.Background(), cfg, args[1:], os.Stdout)
	default:
		return runServe(cfg)
	}
}

// runServe はストアフロントのHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ストア接続
	backend, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 3. カタログ
	cat, err := loadCatalog(context.Background(), cfg, newImporter(cfg))
	if err != nil {
		return err
	}
	collector.SetCatalogProducts(cat.Len())

	// 4. ルーターの構築
	router, stopRouter, err := buildRouter(cfg, backend, cat, collector, metrics.Handler(reg))
	if err != nil {
		return err
	}
	defer stopRouter()

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilSignal(server, "storefront server")
}

// buildRouter はストア・カタログ・メトリクスからハンドラーを組み立てる。
// 返り値のstopはレート制限のクリーンアップgoroutineを停止する。
func buildRouter(cfg *config.Config, backend *storeBackend, cat *catalog.Catalog, collector *metrics.Collector, metricsHandler http.Handler) (http.Handler, func(), error) {
	adapter := storage.New(backend.kv, collector, slog.Default())

	creds, err := auth.NewCredentialVerifier(cfg.PasswordScheme)
	if err != nil {
		return nil, nil, err
	}
	authService := auth.NewService(adapter, creds, auth.ServiceConfig{
		RedirectTo:    "/",
		RedirectAfter: cfg.AuthRedirectDelay,
	})
	authService.SetMetrics(collector)

	formatter := currency.NewFormatter(cfg.StoreLocale)
	renderer, err := view.NewRenderer(formatter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load templates: %w", err)
	}

	rl := middleware.NewRateLimiter(middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		HTTPMetrics:       collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Visitor: middleware.VisitorConfig{
			MaxAge:       cfg.VisitorMaxAge,
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rl,

		CartService: cart.NewService(adapter, collector),
		AuthService: authService,
		Catalog:     cat,
		Renderer:    renderer,
		Formatter:   formatter,

		HealthChecker:  backend.pinger,
		MetricsHandler: metricsHandler,
	}

	return handler.NewRouter(deps), rl.Stop, nil
}

// runWorker はクリーンアップワーカーを起動する。
// 保持期間を超えた訪問者スコープを定期的に削除し、/metricsを公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	backend, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	if backend.purger == nil {
		slog.Info("store backend expires scopes by itself; cleanup worker has nothing to do",
			slog.String("store_backend", cfg.StoreBackend),
		)
		return nil
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	job := cleanup.NewCleanupJob(backend.purger, slog.Default(), collector)
	job.RetentionDays = cfg.ScopeRetentionDays

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("interval", cfg.CleanupInterval),
		slog.Int("retention_days", cfg.ScopeRetentionDays),
	)

	// クリーンアップをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.CleanupInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.StoreBackend != config.BackendPostgres {
		return fmt.Errorf("migrate requires STORE_BACKEND=%s (got %s)", config.BackendPostgres, cfg.StoreBackend)
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if version, dirty, err := database.Version(cfg.DatabaseURL); err == nil {
		slog.Info("database migrations completed successfully",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}
	return nil
}

// runImportCatalog は取り込み元から商品を抽出し、カタログYAMLとして書き出す。
// 使い方: import-catalog <URLまたはファイル> [出力ファイル]
// 出力ファイルを省略した場合はstdoutに書き出す。
func runImportCatalog(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: storefront import-catalog <source> [output.yaml]")
	}

	products, err := newImporter(cfg).Import(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to import catalog: %w", err)
	}
	if len(products) == 0 {
		return fmt.Errorf("no products found in %s", args[0])
	}

	out := stdout
	if len(args) > 1 {
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", args[1], err)
		}
		defer f.Close()
		out = f
	}

	if err := catalog.EncodeYAML(out, products); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
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

// serveUntilSignal はサーバーを起動し、SIGINT/SIGTERMでグレースフルシャットダウンする。
func serveUntilSignal(server *http.Server, name string) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down " + name + "...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

func newImporter(cfg *config.Config) *catalog.Importer {
	return catalog.NewImporter(
		security.NewFetchGuard(cfg.FetchTimeout, cfg.FetchMaxSize),
		security.NewDescriptionSanitizer(),
		slog.Default(),
	)
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
