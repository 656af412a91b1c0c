package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BradenHooton/loginguard/internal/handlers"
	"github.com/BradenHooton/loginguard/internal/middleware"
	"github.com/BradenHooton/loginguard/internal/web"
)

// Options configure the route-level middleware
type Options struct {
	LoginPath      string
	RateLimit      middleware.RateLimitConfig
	CSRF           middleware.CSRFConfig
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	loginHandler *handlers.LoginHandler,
	pagesHandler *handlers.PagesHandler,
	opts Options,
) {
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}

	router.Handle("/static/*", http.StripPrefix("/static/", web.Static()))
	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// HTML pages rendered for the identity server
	router.Group(func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.CSRFProtection(opts.CSRF, opts.Logger))

		r.Get(loginPath, loginHandler.ShowLogin)
		r.With(middleware.RateLimitByIP(opts.RateLimit, nil)).Post(loginPath, loginHandler.SubmitLogin)

		r.Get("/error", pagesHandler.Error)
		r.Get("/info", pagesHandler.Info)
		r.Get("/approval-pending", pagesHandler.ApprovalPending)
		r.Get("/post-broker-login", pagesHandler.ApprovalPending)
		r.Get(handlers.RegisterPath, pagesHandler.Register)
	})

	// Page-shell API, side-effect free
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.CORS(middleware.ShellCORSConfig(opts.AllowedOrigins)))

		r.Get("/lockout", loginHandler.LockoutStatus)
		r.With(middleware.RateLimitByIP(opts.RateLimit, nil)).Post("/validate", loginHandler.Validate)
	})
}
