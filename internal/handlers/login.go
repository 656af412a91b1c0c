package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/loginguard/internal/controller"
	"github.com/BradenHooton/loginguard/internal/gate"
	"github.com/BradenHooton/loginguard/internal/kvstore"
	"github.com/BradenHooton/loginguard/internal/ledger"
	"github.com/BradenHooton/loginguard/internal/metrics"
	"github.com/BradenHooton/loginguard/internal/middleware"
	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/pagecontext"
	"github.com/BradenHooton/loginguard/internal/web"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
)

// StoreFactory returns the key-value store for the browser behind r
type StoreFactory func(w http.ResponseWriter, r *http.Request) kvstore.Store

// LoginHandlerConfig holds the login variant and throttle settings
type LoginHandlerConfig struct {
	Brand      string
	Ledger     ledger.Config
	Controller controller.Options
	IPConfig   *pkghttp.IPConfig
}

// LoginHandler serves the login page and forwards accepted submissions
type LoginHandler struct {
	stores   StoreFactory
	pages    *pagecontext.Builder
	renderer *web.Renderer
	config   LoginHandlerConfig
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
	metrics  *metrics.Metrics
}

// NewLoginHandler creates a new LoginHandler
func NewLoginHandler(
	stores StoreFactory,
	pages *pagecontext.Builder,
	renderer *web.Renderer,
	config LoginHandlerConfig,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
	m *metrics.Metrics,
) *LoginHandler {
	return &LoginHandler{
		stores:   stores,
		pages:    pages,
		renderer: renderer,
		config:   config,
		logger:   logger,
		audit:    audit,
		metrics:  m,
	}
}

// loginPage is the data the login template renders
type loginPage struct {
	Locale          string
	Title           string
	Brand           string
	PostURL         string
	RegisterURL     string
	CSRFToken       string
	IdentifierKind  string
	IdentifierField string
	PasswordField   string
	Prefill         string
	Page            models.PageContext
	Form            models.FormState
	Notice          *models.ServerMessage
}

func (h *LoginHandler) ledgerFor(w http.ResponseWriter, r *http.Request) (*ledger.Ledger, kvstore.Store) {
	store := h.stores(w, r)
	return ledger.New(store, h.config.Ledger, h.logger), store
}

func (h *LoginHandler) newController(w http.ResponseWriter, r *http.Request, page models.PageContext) *controller.Controller {
	l, store := h.ledgerFor(w, r)
	return controller.New(controller.Deps{
		Ledger:  l,
		Gate:    gate.New(l),
		Store:   store,
		Logger:  h.logger,
		Audit:   h.audit,
		Metrics: h.metrics,
	}, page, h.config.Controller)
}

// ShowLogin renders the login page and reconciles the previous round trip
func (h *LoginHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	page := h.pages.Build(r)
	c := h.newController(w, r, page)
	c.Load(r.Context())

	h.render(w, r, http.StatusOK, c, c.PrefillIdentifier())
}

// SubmitLogin runs the validation gate and, when it passes, renders the
// self-submitting form that carries the credentials to the identity server.
func (h *LoginHandler) SubmitLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid form body")
		return
	}

	page := h.pages.Build(r)
	c := h.newController(w, r, page)

	c.SetRememberMe(r.PostFormValue("rememberMe") == "on")
	if r.PostFormValue("passwordVisible") == "true" {
		c.TogglePasswordVisibility()
	}

	identifier := r.PostFormValue(c.Options().IdentifierField)
	sub, err := c.Submit(r.Context(), controller.SubmitInput{
		Identifier: identifier,
		Password:   r.PostFormValue(c.Options().PasswordField),
		ClientIP:   pkghttp.ExtractClientIP(r, h.config.IPConfig),
	})
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, models.ErrLocked) {
			status = http.StatusTooManyRequests
		}
		h.render(w, r, status, c, identifier)
		return
	}

	data := redirectPage{
		Locale: page.Locale,
		Title:  h.config.Brand,
		Brand:  h.config.Brand,
		Action: sub.Action,
		Fields: sub.Fields,
	}
	if err := h.renderer.Render(w, http.StatusOK, web.PageRedirect, data); err != nil {
		h.logger.Error("failed to render redirect page", slog.Any("error", err))
	}
}

// redirectPage is the data the self-submitting form renders
type redirectPage struct {
	Locale string
	Title  string
	Brand  string
	Action string
	Fields map[string][]string
}

func (h *LoginHandler) render(w http.ResponseWriter, r *http.Request, status int, c *controller.Controller, prefill string) {
	page := c.Page()
	opts := c.Options()

	data := loginPage{
		Locale:          page.Locale,
		Title:           h.config.Brand,
		Brand:           h.config.Brand,
		PostURL:         h.pages.SubmitURL(r, r.URL.Path),
		RegisterURL:     h.pages.SubmitURL(r, RegisterPath),
		CSRFToken:       middleware.CSRFToken(r),
		IdentifierKind:  string(opts.IdentifierKind),
		IdentifierField: opts.IdentifierField,
		PasswordField:   opts.PasswordField,
		Prefill:         strings.TrimSpace(prefill),
		Page:            page,
		Form:            c.FormState(),
	}
	if msg := page.ServerMessage; msg != nil && !msg.IsError() && c.State() == controller.Reloaded {
		data.Notice = msg
	}

	if err := h.renderer.Render(w, status, web.PageLogin, data); err != nil {
		h.logger.Error("failed to render login page", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
