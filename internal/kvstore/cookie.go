package kvstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// browsers cap cookie lifetimes at 400 days
const maxCookieAge = 400 * 24 * time.Hour

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Path     string
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
}

type cookieClaims struct {
	Value string `json:"v"`
	jwt.RegisteredClaims
}

// CookieStore keeps entries in the visitor's browser, one HS256-signed cookie
// per key. It is bound to a single request/response pair; writes made during
// the request are visible to later reads in the same request.
type CookieStore struct {
	w          http.ResponseWriter
	r          *http.Request
	config     CookieConfig
	signingKey []byte
	now        func() time.Time
	pending    map[string]*string // nil marks a deletion
}

// NewCookieStore creates a CookieStore for one request
func NewCookieStore(w http.ResponseWriter, r *http.Request, signingKey []byte, config CookieConfig) *CookieStore {
	if config.Path == "" {
		config.Path = "/"
	}
	return &CookieStore{
		w:          w,
		r:          r,
		config:     config,
		signingKey: signingKey,
		now:        time.Now,
		pending:    make(map[string]*string),
	}
}

// WithClock overrides the time source used for expiry
func (s *CookieStore) WithClock(now func() time.Time) *CookieStore {
	s.now = now
	return s
}

func (s *CookieStore) Get(_ context.Context, key string) (string, bool, error) {
	if v, ok := s.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}

	cookie, err := s.r.Cookie(key)
	if errors.Is(err, http.ErrNoCookie) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ErrCorrupt(key)
	}

	claims := &cookieClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrCorrupt(key), err)
	}

	// a validly signed value copied under another name is still corrupt
	if claims.Subject != key {
		return "", false, ErrCorrupt(key)
	}

	return claims.Value, true, nil
}

// Set signs value and writes it as a cookie. A non-positive ttl uses the
// longest lifetime browsers accept.
func (s *CookieStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 || ttl > maxCookieAge {
		ttl = maxCookieAge
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := cookieClaims{
		Value: value,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return fmt.Errorf("kvstore: sign cookie %q: %w", key, err)
	}

	http.SetCookie(s.w, &http.Cookie{
		Name:     key,
		Value:    signed,
		Path:     s.config.Path,
		Domain:   s.config.Domain,
		Expires:  expiresAt,
		MaxAge:   int(math.Ceil(ttl.Seconds())),
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: ParseSameSite(s.config.SameSite),
	})
	s.pending[key] = &value
	return nil
}

func (s *CookieStore) Delete(_ context.Context, key string) error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     s.config.Path,
		Domain:   s.config.Domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: ParseSameSite(s.config.SameSite),
	})
	s.pending[key] = nil
	return nil
}

// ParseSameSite converts string to http.SameSite constant
func ParseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
