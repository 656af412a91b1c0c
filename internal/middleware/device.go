package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/BradenHooton/loginguard/internal/kvstore"
)

const deviceCookieName = "lg_device"

type deviceContextKey struct{}

// DeviceID assigns every browser a random, long-lived identifier. Server-side
// stores scope their keys by it so state stays per browser, like the cookie store.
func DeviceID(cookie kvstore.CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(deviceCookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}

			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     deviceCookieName,
					Value:    id,
					Path:     "/",
					Domain:   cookie.Domain,
					MaxAge:   int((400 * 24 * time.Hour).Seconds()),
					HttpOnly: true,
					Secure:   cookie.Secure,
					SameSite: kvstore.ParseSameSite(cookie.SameSite),
				})
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), deviceContextKey{}, id)))
		})
	}
}

// GetDeviceID returns the device identifier set by DeviceID, or "" outside it
func GetDeviceID(ctx context.Context) string {
	id, _ := ctx.Value(deviceContextKey{}).(string)
	return id
}
