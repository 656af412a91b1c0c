package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/loginguard/internal/config"
	"github.com/BradenHooton/loginguard/internal/controller"
	"github.com/BradenHooton/loginguard/internal/kvstore"
	"github.com/BradenHooton/loginguard/internal/ledger"
	"github.com/BradenHooton/loginguard/internal/metrics"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/pagecontext"
	"github.com/BradenHooton/loginguard/internal/web"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
)

const (
	testFormAction   = "https://idp.example.com/realms/demo/login-actions/authenticate"
	testRegistration = "https://idp.example.com/realms/demo/login-actions/registration"
	testAccountURL   = "https://idp.example.com/realms/demo/account"
)

// testEnv bundles a LoginHandler over one shared in-memory store
type testEnv struct {
	store   *kvstore.MemoryStore
	login   *LoginHandler
	pages   *PagesHandler
	metrics *metrics.Metrics
	now     time.Time
}

func newTestEnv(t *testing.T, kind models.IdentifierKind) *testEnv {
	t.Helper()

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		store:   kvstore.NewMemoryStore(time.Minute),
		metrics: metrics.NewUnregistered(),
		now:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	builder := pagecontext.NewBuilder(config.IdentityServerConfig{
		FormAction:          testFormAction,
		RealmName:           "demo",
		RegistrationURL:     testRegistration,
		RegistrationAllowed: true,
	}, "ko", nil)

	env.login = NewLoginHandler(
		func(http.ResponseWriter, *http.Request) kvstore.Store { return env.store },
		builder,
		renderer,
		LoginHandlerConfig{
			Brand:      "Demo",
			Ledger:     ledger.Config{Now: func() time.Time { return env.now }},
			Controller: controller.Options{IdentifierKind: kind},
		},
		logger,
		pkglogger.NewAuditLogger(logger),
		env.metrics,
	)
	env.pages = NewPagesHandler(builder, renderer, PagesConfig{
		Brand:        "Demo",
		LoginPath:    "/login",
		AccountURL:   testAccountURL,
		AllowedHosts: []string{"app.example.com"},
	}, logger)
	return env
}

// NewFormRequest creates a form-encoded POST request
func NewFormRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}
