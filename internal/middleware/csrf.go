package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/BradenHooton/loginguard/internal/kvstore"
)

const (
	csrfCookieName = "lg_csrf"
	csrfFormField  = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
)

// CSRFConfig holds the key and cookie settings for the CSRF token
type CSRFConfig struct {
	AuthKey []byte // 32 bytes
	Cookie  kvstore.CookieConfig
}

// CSRFProtection guards the HTML form with gorilla/csrf. State-changing
// requests must echo the token in the csrf_token form field or the
// X-CSRF-Token header. Without secure cookies the deployment is plain HTTP,
// so the Referer check for HTTPS is skipped.
func CSRFProtection(config CSRFConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	protect := csrf.Protect(config.AuthKey,
		csrf.CookieName(csrfCookieName),
		csrf.FieldName(csrfFormField),
		csrf.RequestHeader(csrfHeader),
		csrf.Path("/"),
		csrf.Domain(config.Cookie.Domain),
		csrf.Secure(config.Cookie.Secure),
		csrf.HttpOnly(true),
		csrf.SameSite(sameSiteMode(config.Cookie.SameSite)),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("CSRF token validation failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("reason", csrf.FailureReason(r)))
			http.Error(w, "CSRF token invalid", http.StatusForbidden)
		})),
	)

	return func(next http.Handler) http.Handler {
		h := protect(next)
		if config.Cookie.Secure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// CSRFToken returns the masked token for the request, for embedding in forms
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}

func sameSiteMode(s string) csrf.SameSiteMode {
	switch kvstore.ParseSameSite(s) {
	case http.SameSiteStrictMode:
		return csrf.SameSiteStrictMode
	case http.SameSiteLaxMode:
		return csrf.SameSiteLaxMode
	case http.SameSiteNoneMode:
		return csrf.SameSiteNoneMode
	default:
		return csrf.SameSiteDefaultMode
	}
}
