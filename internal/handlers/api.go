package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/loginguard/internal/controller"
	"github.com/BradenHooton/loginguard/internal/gate"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
)

// LockoutResponse is the body of GET /api/lockout
type LockoutResponse struct {
	Locked      bool   `json:"locked"`
	RemainingMs int64  `json:"remainingMs"`
	Message     string `json:"message,omitempty"`
}

// ValidateRequestBody is the body of POST /api/validate
type ValidateRequestBody struct {
	Identifier string `json:"identifier" validate:"max=320"`
	Password   string `json:"password" validate:"max=1024"`
}

// ValidateResponse is the gate verdict returned to the shell
type ValidateResponse struct {
	OK          bool   `json:"ok"`
	Reason      string `json:"reason"`
	Focus       string `json:"focus,omitempty"`
	RemainingMs int64  `json:"remainingMs,omitempty"`
	Message     string `json:"message,omitempty"`
}

// LockoutStatus reports the lockout state of one identifier without mutating it
func (h *LoginHandler) LockoutStatus(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("identifier")
	if strings.TrimSpace(identifier) == "" {
		pkghttp.WriteBadRequest(w, "identifier is required")
		return
	}

	l, _ := h.ledgerFor(w, r)
	status := l.CheckLockout(r.Context(), identifier)

	resp := LockoutResponse{Locked: status.Locked, RemainingMs: status.RemainingMillis()}
	if status.Locked {
		locale := h.pages.ResolveLocale(r)
		resp.Message = controller.RejectionMessage(locale, h.config.Controller.IdentifierKind,
			gate.Result{Kind: gate.Locked, Remaining: status.Remaining})
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Validate runs the validation gate for the shell without submitting anything
func (h *LoginHandler) Validate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 8<<10)

	var req ValidateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "validation_failed", err.Error(), ve.Field)
			return
		}
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	l, _ := h.ledgerFor(w, r)
	res := gate.New(l).Validate(r.Context(), req.Identifier, req.Password, l.Now())

	resp := ValidateResponse{
		OK:          res.OK(),
		Reason:      res.Kind.String(),
		Focus:       string(res.Focus),
		RemainingMs: res.RemainingMillis(),
	}
	if !res.OK() {
		locale := h.pages.ResolveLocale(r)
		resp.Message = controller.RejectionMessage(locale, h.config.Controller.IdentifierKind, res)
		h.logger.Debug("shell validation rejected",
			slog.String("reason", resp.Reason),
			pkglogger.IdentifierAttr(req.Identifier))
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
