package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/agrimarket/internal/cache"
	"github.com/hitoshi/agrimarket/internal/cart"
	"github.com/hitoshi/agrimarket/internal/catalog"
	"github.com/hitoshi/agrimarket/internal/config"
	"github.com/hitoshi/agrimarket/internal/database"
	"github.com/hitoshi/agrimarket/internal/handler"
	"github.com/hitoshi/agrimarket/internal/live"
	"github.com/hitoshi/agrimarket/internal/logger"
	"github.com/hitoshi/agrimarket/internal/metrics"
	"github.com/hitoshi/agrimarket/internal/middleware"
	"github.com/hitoshi/agrimarket/internal/news"
	"github.com/hitoshi/agrimarket/internal/payment"
	"github.com/hitoshi/agrimarket/internal/prediction"
	"github.com/hitoshi/agrimarket/internal/repository"
	"github.com/hitoshi/agrimarket/internal/resilience"
	"github.com/hitoshi/agrimarket/internal/security"
	"github.com/hitoshi/agrimarket/internal/user"
	"github.com/hitoshi/agrimarket/internal/wishlist"
	"github.com/hitoshi/agrimarket/internal/worker/recount"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// shutdownTimeout はグレースフルシャットダウンの猶予。
const shutdownTimeout = 30 * time.Second

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
		slog.Bool("redis", cfg.RedisEnabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandRecount:
		return runRecount(ctx, w, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Connect(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. Redis（任意）
	rdb := openRedis(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 4. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	productRepo := repository.NewPostgresProductRepo(db)
	cartRepo := repository.NewPostgresCartRepo(db)
	wishlistRepo := repository.NewPostgresWishlistRepo(db)

	// 5. キャッシュとライブ配信
	var productCache cache.ProductCache = cache.NoopCache{}
	var newsCache cache.NewsCache = cache.NoopNewsCache{}
	broker := live.NewBroker()
	if rdb != nil {
		productCache = cache.NewRedisProductCache(rdb, cfg.ProductCacheTTL)
		newsCache = cache.NewRedisNewsCache(rdb, cfg.NewsCacheTTL)

		relay := live.NewRedisRelay(rdb, broker, uuid.NewString())
		go func() {
			if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("live relay stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// 6. ドメインサービスの初期化
	sanitizer := security.NewSanitizer()
	catalogService := newCatalogService(db, productCache, sanitizer, collector)
	cartService := cart.NewService(cartRepo, productRepo, broker, collector)
	wishlistService := wishlist.NewService(wishlistRepo, productRepo, broker, collector)
	userService := user.NewService(userRepo, identRepo)

	// 7. 外部連携（それぞれ専用のクライアントとブレーカーを持つ）
	newsService := news.NewService(
		resilience.InstrumentClient(security.NewSafeClient(cfg.NewsFetchTimeout)),
		cfg.NewsFeedURL, cfg.NewsMaxSize, newsCache, sanitizer, collector,
	)
	predictionClient := prediction.NewClient(
		resilience.InstrumentClient(&http.Client{Timeout: cfg.PredictionTimeout}),
		cfg.MLInferenceURL, cfg.PredictionMaxUpload, collector,
	)
	gateway := payment.NewGateway(
		resilience.InstrumentClient(&http.Client{Timeout: cfg.PaymentTimeout}),
		cfg.PaymentAPIURL, cfg.PaymentKeyID, cfg.PaymentKeySecret, collector,
	)
	checkoutService := payment.NewCheckoutService(cartService, gateway)

	// 8. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.PerMinuteConfig(cfg.RateLimitGeneral, cfg.RateLimitMutation))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		HealthChecker:     db,
		Resolver:          userService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		StatusRecorder:    collector,
		Gatherer:          registry,
		AdminToken:        cfg.AdminToken,

		CatalogService:  catalogService,
		AdminService:    catalogService,
		CartService:     cartService,
		WishlistService: wishlistService,
		UserService:     userService,

		CheckoutService:   checkoutService,
		NewsService:       newsService,
		PredictionService: predictionClient,

		Broker: broker,
	})

	if cfg.AdminToken == "" {
		slog.Info("admin routes disabled (ADMIN_TOKEN not set)")
	}

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           otelhttp.NewHandler(router, cfg.OTelServiceName),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// ライブ配信のハンドラーは自身でデッドラインを解除する
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		// 開いたままのライブ配信接続は猶予後に切断する
		slog.Warn("forcing server close", slog.String("error", err.Error()))
		if cerr := server.Close(); cerr != nil {
			return fmt.Errorf("server shutdown failed: %w", cerr)
		}
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、カテゴリ再集計のスケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	catalogService := newCatalogService(db, nil, security.NewSanitizer(), nil)
	job := recount.NewJob(catalogService, slog.Default())

	slog.Info("worker starting",
		slog.Duration("recount_interval", cfg.RecountInterval),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	recount.NewScheduler(job, slog.Default()).Start(ctx, cfg.RecountInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runRecount は全カテゴリを1回だけ再集計し、更新件数をJSONで書き出す。
func runRecount(ctx context.Context, w io.Writer, cfg *config.Config) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	updated, err := recount.NewJob(newCatalogService(db, nil, security.NewSanitizer(), nil), slog.Default()).Run(ctx)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(map[string]int64{"updated": updated})
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

// newCatalogService はカタログサービスを組み立てる。recorderがnilの場合は記録しない。
func newCatalogService(db *sql.DB, productCache cache.ProductCache, sanitizer security.Sanitizer, recorder *metrics.Collector) *catalog.Service {
	var rec catalog.RecountRecorder
	if recorder != nil {
		rec = recorder
	}
	return catalog.NewService(
		repository.NewPostgresCategoryRepo(db),
		repository.NewPostgresProductRepo(db),
		productCache,
		sanitizer,
		rec,
	)
}

// openRedis はRedisが設定されていればクライアントを返す。
// 疎通できない場合も起動は続け、キャッシュはミスとして扱われる。
func openRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if !cfg.RedisEnabled() {
		slog.Info("redis disabled; using in-process cache and live broker only")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis ping failed; continuing",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
	} else {
		slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
	}
	return rdb
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
