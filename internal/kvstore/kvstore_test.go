package kvstore_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/loginguard/internal/kvstore"
	"github.com/BradenHooton/loginguard/internal/models"
)

var signingKey = []byte("test-signing-key-0123456789abcdef")

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(time.Minute)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v", time.Hour))
	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "never-set"))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(time.Minute)

	require.NoError(t, store.Set(ctx, "short", "v", 20*time.Millisecond))
	require.NoError(t, store.Set(ctx, "forever", "v", 0))

	time.Sleep(50 * time.Millisecond)

	_, ok, _ := store.Get(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestScoped(t *testing.T) {
	ctx := context.Background()
	inner := kvstore.NewMemoryStore(time.Minute)
	a := kvstore.NewScoped(inner, "device_a:")
	b := kvstore.NewScoped(inner, "device_b:")

	require.NoError(t, a.Set(ctx, "k", "from-a", time.Hour))

	_, ok, _ := b.Get(ctx, "k")
	assert.False(t, ok)

	v, ok, _ := a.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "from-a", v)

	v, ok, _ = inner.Get(ctx, "device_a:k")
	assert.True(t, ok)
	assert.Equal(t, "from-a", v)

	require.NoError(t, a.Delete(ctx, "k"))
	assert.Equal(t, 0, inner.Len())
}

// roundTrip copies the cookies written to rec onto a fresh request
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return req
}

func TestCookieStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rec := httptest.NewRecorder()
	store := kvstore.NewCookieStore(rec, httptest.NewRequest(http.MethodPost, "/login", nil), signingKey,
		kvstore.CookieConfig{Secure: true, SameSite: "lax"})

	require.NoError(t, store.Set(ctx, "lg_pending", `{"identifier":"a@x.com"}`, 15*time.Minute))

	// visible within the same request
	v, ok, err := store.Get(ctx, "lg_pending")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"identifier":"a@x.com"}`, v)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "lg_pending", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, 900, cookies[0].MaxAge)
	assert.NotContains(t, cookies[0].Value, "a@x.com")

	next := kvstore.NewCookieStore(httptest.NewRecorder(), roundTrip(rec), signingKey, kvstore.CookieConfig{})
	v, ok, err = next.Get(ctx, "lg_pending")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"identifier":"a@x.com"}`, v)
}

func TestCookieStore_Delete(t *testing.T) {
	ctx := context.Background()
	rec := httptest.NewRecorder()
	store := kvstore.NewCookieStore(rec, httptest.NewRequest(http.MethodGet, "/", nil), signingKey, kvstore.CookieConfig{})

	require.NoError(t, store.Set(ctx, "k", "v", time.Hour))
	require.NoError(t, store.Delete(ctx, "k"))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, -1, cookies[1].MaxAge)
}

func TestCookieStore_Expired(t *testing.T) {
	ctx := context.Background()
	rec := httptest.NewRecorder()
	now := time.Now()
	store := kvstore.NewCookieStore(rec, httptest.NewRequest(http.MethodGet, "/", nil), signingKey, kvstore.CookieConfig{}).
		WithClock(func() time.Time { return now })
	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	later := kvstore.NewCookieStore(httptest.NewRecorder(), roundTrip(rec), signingKey, kvstore.CookieConfig{}).
		WithClock(func() time.Time { return now.Add(2 * time.Minute) })
	_, ok, err := later.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCookieStore_RejectsTamperedValues(t *testing.T) {
	ctx := context.Background()
	rec := httptest.NewRecorder()
	store := kvstore.NewCookieStore(rec, httptest.NewRequest(http.MethodGet, "/", nil), signingKey, kvstore.CookieConfig{})
	require.NoError(t, store.Set(ctx, "k", "v", time.Hour))
	signed := rec.Result().Cookies()[0].Value

	tests := []struct {
		name   string
		cookie *http.Cookie
		key    string
	}{
		{"unsigned value", &http.Cookie{Name: "k", Value: `{"failureCount":0}`}, "k"},
		{"truncated signature", &http.Cookie{Name: "k", Value: signed[:len(signed)-4]}, "k"},
		{"copied under another name", &http.Cookie{Name: "other", Value: signed}, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(tt.cookie)
			s := kvstore.NewCookieStore(httptest.NewRecorder(), req, signingKey, kvstore.CookieConfig{})

			_, ok, err := s.Get(ctx, tt.key)
			assert.False(t, ok)
			assert.ErrorIs(t, err, models.ErrCorruptEntry)
		})
	}

	t.Run("wrong key", func(t *testing.T) {
		s := kvstore.NewCookieStore(httptest.NewRecorder(), roundTrip(rec), []byte("another-signing-key-0123456789ab"), kvstore.CookieConfig{})
		_, ok, err := s.Get(ctx, "k")
		assert.False(t, ok)
		assert.ErrorIs(t, err, models.ErrCorruptEntry)
	})
}

func TestCookieStore_LongTTLIsCapped(t *testing.T) {
	rec := httptest.NewRecorder()
	store := kvstore.NewCookieStore(rec, httptest.NewRequest(http.MethodGet, "/", nil), signingKey, kvstore.CookieConfig{})
	require.NoError(t, store.Set(context.Background(), "k", "v", 0))

	assert.Equal(t, 400*24*60*60, rec.Result().Cookies()[0].MaxAge)
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, kvstore.ParseSameSite("strict"))
	assert.Equal(t, http.SameSiteLaxMode, kvstore.ParseSameSite("lax"))
	assert.Equal(t, http.SameSiteNoneMode, kvstore.ParseSameSite("none"))
	assert.Equal(t, http.SameSiteDefaultMode, kvstore.ParseSameSite(""))
}
