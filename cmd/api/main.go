package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BradenHooton/loginguard/internal/background"
	"github.com/BradenHooton/loginguard/internal/config"
	"github.com/BradenHooton/loginguard/internal/controller"
	"github.com/BradenHooton/loginguard/internal/database"
	"github.com/BradenHooton/loginguard/internal/handlers"
	"github.com/BradenHooton/loginguard/internal/kvstore"
	"github.com/BradenHooton/loginguard/internal/ledger"
	"github.com/BradenHooton/loginguard/internal/metrics"
	middlewareCustom "github.com/BradenHooton/loginguard/internal/middleware"
	"github.com/BradenHooton/loginguard/internal/pagecontext"
	"github.com/BradenHooton/loginguard/internal/routes"
	"github.com/BradenHooton/loginguard/internal/web"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store", cfg.Store.Backend),
		slog.String("identifier_kind", string(cfg.Form.IdentifierKind)))

	cookieCfg := kvstore.CookieConfig{
		Domain:   cfg.Cookie.Domain,
		Path:     "/",
		Secure:   cfg.Cookie.Secure,
		SameSite: cfg.Cookie.SameSite,
	}

	csrfKey := []byte(cfg.Cookie.CSRFKey)
	if len(csrfKey) == 0 {
		csrfKey = securecookie.GenerateRandomKey(32)
		if csrfKey == nil {
			logger.Error("failed to generate CSRF key")
			os.Exit(1)
		}
		logger.Warn("CSRF_AUTH_KEY not set, using a per-process key")
	}

	// Key-value store backend
	var (
		db             *database.DB
		cleanupManager *background.CleanupManager
		stores         handlers.StoreFactory
	)

	switch cfg.Store.Backend {
	case config.StoreCookie:
		signingKey := []byte(cfg.Store.SigningKey)
		stores = func(w http.ResponseWriter, r *http.Request) kvstore.Store {
			return kvstore.NewCookieStore(w, r, signingKey, cookieCfg)
		}
	case config.StoreMemory:
		mem := kvstore.NewMemoryStore(cfg.Store.CleanupInterval)
		stores = deviceScoped(mem)
	case config.StorePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err = database.NewConnection(ctx, &cfg.Database, logger)
		if err == nil {
			err = db.Migrate(ctx)
		}
		cancel()
		if err != nil {
			logger.Error("failed to initialize store database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()

		pg := kvstore.NewPostgresStore(db.Pool)
		cleanupManager = background.NewCleanupManager(pg, logger, cfg.Store.CleanupInterval)
		stores = deviceScoped(pg)
	}

	// Sessions hold the chosen locale
	sessions := scs.New()
	sessions.Store = memstore.New()
	sessions.Lifetime = 24 * time.Hour
	sessions.Cookie.Name = "lg_session"
	sessions.Cookie.Domain = cfg.Cookie.Domain
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.Secure = cfg.Cookie.Secure
	sessions.Cookie.SameSite = kvstore.ParseSameSite(cfg.Cookie.SameSite)

	renderer, err := web.NewRenderer()
	if err != nil {
		logger.Error("failed to parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	auditLogger := pkglogger.NewAuditLogger(logger)
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	pages := pagecontext.NewBuilder(cfg.IdentityServer, cfg.Form.DefaultLocale, sessions)

	loginHandler := handlers.NewLoginHandler(stores, pages, renderer, handlers.LoginHandlerConfig{
		Brand: cfg.Form.BrandName,
		Ledger: ledger.Config{
			Threshold:       cfg.Throttle.Threshold,
			LockoutDuration: cfg.Throttle.LockoutDuration,
			RecordTTL:       cfg.Throttle.RecordTTL,
			KeyPrefix:       cfg.Store.KeyPrefix,
		},
		Controller: controller.Options{
			IdentifierKind:        cfg.Form.IdentifierKind,
			IdentifierField:       cfg.Form.IdentifierField,
			ServerIdentifierField: cfg.Form.ServerIdentifierField,
			PasswordField:         cfg.Form.PasswordField,
			KeyPrefix:             cfg.Store.KeyPrefix,
			RememberTTL:           cfg.Store.RememberTTL,
			Env:                   cfg.Server.Env,
		},
		IPConfig: ipConfig,
	}, logger, auditLogger, m)

	pagesHandler := handlers.NewPagesHandler(pages, renderer, handlers.PagesConfig{
		Brand:           cfg.Form.BrandName,
		LoginPath:       cfg.IdentityServer.LoginURL,
		AccountURL:      cfg.IdentityServer.AccountURL,
		AllowedHosts:    cfg.IdentityServer.AllowedRedirectHosts,
		EmailAsUsername: cfg.IdentityServer.EmailAsUsername,
	}, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{
		Env:               cfg.Server.Env,
		FormActionOrigins: formActionOrigins(cfg.IdentityServer),
	}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(sessions.LoadAndSave)
	router.Use(middlewareCustom.DeviceID(cookieCfg))

	// Register routes
	routes.RegisterRoutes(router, loginHandler, pagesHandler, routes.Options{
		LoginPath: loginPath(cfg.IdentityServer.LoginURL),
		RateLimit: middlewareCustom.RateLimitConfig{
			RequestsPerMinute: cfg.Throttle.RequestsPerMinute,
			IPConfig:          ipConfig,
		},
		CSRF:           middlewareCustom.CSRFConfig{AuthKey: csrfKey, Cookie: cookieCfg},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       prometheus.DefaultGatherer,
		Logger:         logger,
	})

	// Health check, including the store database when there is one
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "store": cfg.Store.Backend})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	if cleanupManager != nil {
		go cleanupManager.Start(cleanupCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	if cleanupManager != nil {
		cleanupManager.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// deviceScoped keys a shared server-side store by the browser's device id
func deviceScoped(store kvstore.Store) handlers.StoreFactory {
	return func(_ http.ResponseWriter, r *http.Request) kvstore.Store {
		return kvstore.NewScoped(store, fmt.Sprintf("device_%s:", middlewareCustom.GetDeviceID(r.Context())))
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// origin returns scheme://host of an absolute URL
func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// formActionOrigins lists the identity server origins our forms post to
func formActionOrigins(idp config.IdentityServerConfig) []string {
	origins := []string{origin(idp.FormAction)}
	if idp.RegistrationAllowed {
		if o := origin(idp.RegistrationURL); !slices.Contains(origins, o) {
			origins = append(origins, o)
		}
	}
	return origins
}

// loginPath is the path part of the configured login URL
func loginPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "/login"
	}
	return u.Path
}
