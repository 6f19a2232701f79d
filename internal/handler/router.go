package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/repository"
	"github.com/hitoshi/storefront/internal/view"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	HTTPMetrics       middleware.HTTPMetrics
	CORSAllowedOrigin string
	Visitor           middleware.VisitorConfig
	CSRF              middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// ドメイン
	CartService CartServiceInterface
	AuthService AuthServiceInterface
	Catalog     ProductCatalog
	Renderer    PageRenderer
	Formatter   PriceFormatter

	// 運用エンドポイント
	HealthChecker  repository.Pinger
	MetricsHandler http.Handler
}

// NewRouter はHTMLページ・JSON API・運用エンドポイントを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Visitor → Logging → RateLimit(General) → CSRF
//
// /health と /metrics は訪問者Cookieを発行しないようスタックの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	pages := NewPageHandler(deps.CartService, deps.AuthService, deps.Catalog, deps.Renderer)
	cartAPI := NewCartHandler(deps.CartService, deps.Catalog, deps.Formatter)
	authAPI := NewAuthHandler(deps.AuthService)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSecurityHeadersMiddleware())
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(middleware.NewVisitorMiddleware(deps.Visitor))
		r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPMetrics))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		authLimit := deps.RateLimiter.AuthMiddleware()

		r.Handle("/static/*", view.StaticHandler())
		r.NotFound(pages.NotFound)

		// --- HTMLページ ---
		r.Get("/", pages.Index)
		r.Get("/products", pages.Products)
		r.Get("/products/{id}", pages.Product)
		r.Get("/cart", pages.Cart)
		r.Get("/checkout", pages.Checkout)

		r.Post("/cart/add", pages.AddToCart)
		r.Route("/cart/items/{id}", func(r chi.Router) {
			r.Post("/inc", pages.IncrementLine)
			r.Post("/dec", pages.DecrementLine)
			r.Post("/remove", pages.RemoveLine)
		})

		r.Get("/login", pages.LoginPage)
		r.With(authLimit).Post("/login", pages.Login)
		r.Get("/signup", pages.SignupPage)
		r.With(authLimit).Post("/signup", pages.Signup)
		r.Post("/logout", pages.Logout)

		// --- JSON API ---
		r.Route("/api", func(r chi.Router) {
			r.Get("/csrf-token", middleware.NewCSRFTokenHandler().ServeHTTP)

			r.Get("/cart", cartAPI.GetCart)
			r.Post("/cart/items", cartAPI.AddItem)
			r.Route("/cart/items/{id}", func(r chi.Router) {
				r.Patch("/", cartAPI.ChangeQty)
				r.Delete("/", cartAPI.RemoveItem)
			})

			r.Route("/auth", func(r chi.Router) {
				r.With(authLimit).Post("/signup", authAPI.Signup)
				r.With(authLimit).Post("/login", authAPI.Login)
				r.Post("/logout", authAPI.Logout)
				r.Get("/session", authAPI.Session)
			})
		})
	})

	return r
}
