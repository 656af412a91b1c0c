package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/loginguard/internal/pagecontext"
	"github.com/BradenHooton/loginguard/internal/web"
)

// RegisterPath serves the registration form
const RegisterPath = "/register"

// registerFields are the registration inputs, in form order
var registerFields = []string{"firstName", "lastName", "username", "email", "password", "password-confirm"}

// PagesConfig holds the settings for the auxiliary pages
type PagesConfig struct {
	Brand           string
	LoginPath       string
	AccountURL      string // realm account page, the landing after approval without redirect_uri
	AllowedHosts    []string
	EmailAsUsername bool
}

// PagesHandler serves the identity server's auxiliary pages
type PagesHandler struct {
	pages    *pagecontext.Builder
	renderer *web.Renderer
	config   PagesConfig
	logger   *slog.Logger
}

// NewPagesHandler creates a new PagesHandler
func NewPagesHandler(pages *pagecontext.Builder, renderer *web.Renderer, config PagesConfig, logger *slog.Logger) *PagesHandler {
	return &PagesHandler{
		pages:    pages,
		renderer: renderer,
		config:   config,
		logger:   logger,
	}
}

type errorPage struct {
	Locale   string
	Title    string
	Brand    string
	Message  string
	BackURL  string
	LoginURL string
}

type infoPage struct {
	Locale    string
	Title     string
	Brand     string
	Header    string
	Message   string
	ActionURL string
	BackURL   string
}

type approvalPage struct {
	Locale   string
	Title    string
	Brand    string
	LoginURL string
}

type registerPage struct {
	Locale          string
	Title           string
	Brand           string
	Action          string
	EmailAsUsername bool
	Values          map[string]string
	Errors          map[string]string
	Message         string
	LoginURL        string
}

// Error renders the identity server's error page
func (h *PagesHandler) Error(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := errorPage{
		Locale:   h.pages.ResolveLocale(r),
		Title:    h.config.Brand,
		Brand:    h.config.Brand,
		Message:  firstOf(q.Get("message"), q.Get("error_description")),
		BackURL:  h.link(q.Get("client_base_url")),
		LoginURL: h.pages.SubmitURL(r, h.config.LoginPath),
	}
	h.render(w, http.StatusOK, web.PageError, data)
}

// Info renders the identity server's info page
func (h *PagesHandler) Info(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := infoPage{
		Locale:    h.pages.ResolveLocale(r),
		Title:     h.config.Brand,
		Brand:     h.config.Brand,
		Header:    q.Get("header"),
		Message:   q.Get("message"),
		ActionURL: h.link(firstOf(q.Get("action_uri"), q.Get("page_redirect_uri"))),
		BackURL:   h.link(q.Get("client_base_url")),
	}
	h.render(w, http.StatusOK, web.PageInfo, data)
}

// ApprovalPending shows the waiting screen for accounts awaiting approval.
// Once approved (approvalYN=Y) the browser goes to an allow-listed
// redirect_uri, or to the account page when only client_id is known. A
// post-broker-login landing without an authentication session goes back to
// the login page.
func (h *PagesHandler) ApprovalPending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if strings.Contains(r.URL.Path, "post-broker-login") && q.Get("session_code") == "" && q.Get("tab_id") == "" {
		http.Redirect(w, r, h.config.LoginPath, http.StatusFound)
		return
	}

	if q.Get("approvalYN") == "Y" {
		target := q.Get("redirect_uri")
		switch {
		case target != "" && safeRedirect(target, h.config.AllowedHosts):
			http.Redirect(w, r, target, http.StatusFound)
			return
		case target != "":
			h.logger.Warn("approval redirect rejected", slog.String("redirect_uri", target))
		case q.Get("client_id") != "" && h.config.AccountURL != "":
			http.Redirect(w, r, h.config.AccountURL, http.StatusFound)
			return
		}
	}

	data := approvalPage{
		Locale:   h.pages.ResolveLocale(r),
		Title:    h.config.Brand,
		Brand:    h.config.Brand,
		LoginURL: h.pages.SubmitURL(r, h.config.LoginPath),
	}
	h.render(w, http.StatusOK, web.PageApproval, data)
}

// Register renders the registration form. It posts straight to the identity
// server; submitted values and per-field errors come back on the query as
// <field> and error_<field>. Passwords are never echoed.
func (h *PagesHandler) Register(w http.ResponseWriter, r *http.Request) {
	page := h.pages.Build(r)
	if !page.RegistrationAllowed {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	data := registerPage{
		Locale:          page.Locale,
		Title:           h.config.Brand,
		Brand:           h.config.Brand,
		Action:          h.pages.RegistrationAction(r),
		EmailAsUsername: h.config.EmailAsUsername,
		Values:          make(map[string]string),
		Errors:          make(map[string]string),
		LoginURL:        h.pages.SubmitURL(r, h.config.LoginPath),
	}
	for _, field := range registerFields {
		if msg := strings.TrimSpace(q.Get("error_" + field)); msg != "" {
			data.Errors[field] = msg
		}
		if !strings.HasPrefix(field, "password") {
			data.Values[field] = q.Get(field)
		}
	}
	if page.ServerMessage != nil {
		data.Message = page.ServerMessage.Summary
	}

	h.render(w, http.StatusOK, web.PageRegister, data)
}

func (h *PagesHandler) link(target string) string {
	if safeRedirect(target, h.config.AllowedHosts) {
		return target
	}
	return ""
}

func (h *PagesHandler) render(w http.ResponseWriter, status int, page string, data any) {
	if err := h.renderer.Render(w, status, page, data); err != nil {
		h.logger.Error("failed to render page", slog.String("page", page), slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
