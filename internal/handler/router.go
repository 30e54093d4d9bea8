package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/agrimarket/internal/metrics"
	"github.com/hitoshi/agrimarket/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// HealthChecker はDB接続の疎通確認を行う。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
// nilのサービスに対応するルートは登録しない。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	Resolver          middleware.SubjectResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder
	Gatherer          prometheus.Gatherer
	AdminToken        string

	// ドメインサービス
	CatalogService  CatalogServiceInterface
	AdminService    AdminServiceInterface
	CartService     CartServiceInterface
	WishlistService WishlistServiceInterface
	UserService     UserServiceInterface

	// 外部連携
	CheckoutService   CheckoutServiceInterface
	NewsService       NewsServiceInterface
	PredictionService PredictionServiceInterface

	// ライブ配信
	Broker        LiveSubscriber
	LiveHeartbeat time.Duration
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → Recovery → Logging → SecurityHeaders → Identity → RateLimit(General) → RateLimit(Mutation)
//
// /health と /metrics はCORS以外のチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（プリフライトを含む全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	if deps.HealthChecker != nil {
		r.Get("/health", healthHandler(deps.HealthChecker))
	}
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRecoveryMiddleware())
		r.Use(middleware.NewLoggingMiddleware(slog.Default(), deps.StatusRecorder))
		r.Use(middleware.NewSecurityHeadersMiddleware())

		// --- 認証不要のルート ---
		if deps.CatalogService != nil {
			catalogHandler := NewCatalogHandler(deps.CatalogService)
			r.Get("/api/products", catalogHandler.ListProducts)
			r.Get("/api/products/{id}", catalogHandler.GetProduct)
			r.Get("/api/categories", catalogHandler.ListCategories)
			r.Get("/api/categories/{id}/products", catalogHandler.ListByCategory)
		}
		if deps.NewsService != nil {
			r.Get("/api/news", NewNewsHandler(deps.NewsService).Latest)
		}

		// --- 管理API（トークン設定時のみ） ---
		if deps.AdminToken != "" && deps.AdminService != nil {
			adminHandler := NewAdminHandler(deps.AdminService)
			r.Route("/api/admin", func(r chi.Router) {
				r.Use(middleware.NewAdminTokenMiddleware(deps.AdminToken))
				r.Post("/categories", adminHandler.CreateCategory)
				r.Post("/categories/recount", adminHandler.Recount)
				r.Post("/products", adminHandler.CreateProduct)
				r.Delete("/products/{id}", adminHandler.DeleteProduct)
			})
		}

		if deps.UserService == nil || deps.Resolver == nil {
			return
		}
		userHandler := NewUserHandler(deps.UserService)

		// 初回サインインはまだ内部ユーザーが無いため外部IDだけを要求する
		r.With(middleware.NewSubjectMiddleware()).Post("/api/users/sync", userHandler.Sync)

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: Identity → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewIdentityMiddleware(deps.Resolver))
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.GeneralMiddleware())
			}
			mutationLimit := func(next http.Handler) http.Handler { return next }
			if deps.RateLimiter != nil {
				mutationLimit = deps.RateLimiter.MutationMiddleware()
			}

			r.Get("/api/users/me", userHandler.Me)
			r.Delete("/api/users/me", userHandler.Withdraw)

			if deps.CartService != nil {
				cartHandler := NewCartHandler(deps.CartService)
				r.Route("/api/cart", func(r chi.Router) {
					r.Use(mutationLimit)
					r.Get("/", cartHandler.GetCart)
					r.Get("/total", cartHandler.GetTotal)
					r.Post("/items", cartHandler.AddItem)
					r.Put("/items/{id}", cartHandler.UpdateItem)
					r.Delete("/items/{id}", cartHandler.RemoveItem)
				})
			}

			if deps.WishlistService != nil {
				wishlistHandler := NewWishlistHandler(deps.WishlistService)
				r.Route("/api/wishlist", func(r chi.Router) {
					r.Use(mutationLimit)
					r.Get("/", wishlistHandler.GetWishlist)
					r.Post("/items", wishlistHandler.AddItem)
					r.Delete("/items/{id}", wishlistHandler.RemoveItem)
					r.Post("/items/{id}/move-to-cart", wishlistHandler.MoveToCart)
				})
			}

			if deps.CheckoutService != nil {
				r.Post("/api/checkout/orders", NewCheckoutHandler(deps.CheckoutService).CreateOrder)
			}
			if deps.PredictionService != nil {
				r.Post("/api/predictions", NewPredictionHandler(deps.PredictionService).Predict)
			}

			if deps.Broker != nil && deps.CartService != nil && deps.WishlistService != nil {
				liveHandler := NewLiveHandler(deps.Broker, deps.CartService, deps.WishlistService, deps.LiveHeartbeat)
				r.Get("/api/live/cart", liveHandler.Cart)
				r.Get("/api/live/wishlist", liveHandler.Wishlist)
			}
		})
	})

	return r
}

// healthHandler はDBの疎通を確認する。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
