// Package controller drives the login form lifecycle for one page instance:
// gate checks on submit intent, field-name normalisation for the identity
// server, and reconciliation of the server's verdict after the page reloads.
//
// A page reload ends the controller. The next page gets a fresh Controller
// whose only links to the previous one are the key-value store and the page
// context the identity server renders.
package controller

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BradenHooton/loginguard/internal/gate"
	"github.com/BradenHooton/loginguard/internal/i18n"
	"github.com/BradenHooton/loginguard/internal/kvstore"
	"github.com/BradenHooton/loginguard/internal/metrics"
	"github.com/BradenHooton/loginguard/internal/models"
	pkglogger "github.com/BradenHooton/loginguard/pkg/logger"
)

const (
	DefaultRememberTTL = 30 * 24 * time.Hour
	DefaultPendingTTL  = 15 * time.Minute
)

// Ledger is the attempt ledger as seen by the controller
type Ledger interface {
	gate.LockoutChecker
	RecordOutcome(ctx context.Context, identifier string, succeeded bool) (models.AttemptRecord, error)
	Now() time.Time
}

// Validator is the validation gate as seen by the controller
type Validator interface {
	Validate(ctx context.Context, identifier, password string, now time.Time) gate.Result
}

// Deps are the collaborators a Controller needs
type Deps struct {
	Ledger  Ledger
	Gate    Validator
	Store   kvstore.Store
	Logger  *slog.Logger
	Audit   *pkglogger.AuditLogger
	Metrics *metrics.Metrics
}

// Options parameterise the login variant
type Options struct {
	IdentifierKind        models.IdentifierKind
	IdentifierField       string // name of the identifier input on our form
	ServerIdentifierField string // name the identity server expects
	PasswordField         string
	CredentialField       string
	KeyPrefix             string
	RememberTTL           time.Duration
	PendingTTL            time.Duration
	Env                   string // client IPs are redacted from logs in production
}

func (o Options) withDefaults() Options {
	if o.IdentifierKind == "" {
		o.IdentifierKind = models.IdentifierEmail
	}
	if o.IdentifierField == "" {
		o.IdentifierField = string(o.IdentifierKind)
	}
	if o.ServerIdentifierField == "" {
		o.ServerIdentifierField = "username"
	}
	if o.PasswordField == "" {
		o.PasswordField = "password"
	}
	if o.CredentialField == "" {
		o.CredentialField = "credentialId"
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = "lg_"
	}
	if o.RememberTTL <= 0 {
		o.RememberTTL = DefaultRememberTTL
	}
	if o.PendingTTL <= 0 {
		o.PendingTTL = DefaultPendingTTL
	}
	return o
}

// SubmitInput holds the raw credential values of one submit intent. Toggle
// state travels through SetRememberMe and TogglePasswordVisibility.
type SubmitInput struct {
	Identifier string
	Password   string
	ClientIP   string
}

// Submission is the form the browser must POST natively to the identity server
type Submission struct {
	Action string
	Fields url.Values
}

// Controller is the submission state machine for one page instance
type Controller struct {
	deps  Deps
	opts  Options
	page  models.PageContext
	form  models.FormState
	state State
}

// New creates a Controller in the Idle state. It performs no I/O.
func New(deps Deps, page models.PageContext, opts Options) *Controller {
	return &Controller{
		deps:  deps,
		opts:  opts.withDefaults(),
		page:  page,
		form:  models.FormState{FieldErrors: make(map[models.Field]string)},
		state: Idle,
	}
}

// Load reconciles the page the identity server just rendered. A server error
// message is a failed attempt for the prior identifier; no message at all is
// a success. Messages of other types leave the ledger alone.
func (c *Controller) Load(ctx context.Context) {
	c.state = Reloaded
	c.loadRemembered(ctx)

	pending := c.takePending(ctx)
	identifier := pending
	if c.page.PriorUsername != nil && strings.TrimSpace(*c.page.PriorUsername) != "" {
		identifier = *c.page.PriorUsername
	}

	msg := c.page.ServerMessage
	if msg.IsError() && msg.Summary != "" {
		summary := msg.Summary
		c.form.ServerError = &summary
	}

	if identifier == "" {
		return
	}

	switch {
	case msg.IsError():
		c.recordFailure(ctx, identifier, msg.Summary)
	case msg == nil:
		c.recordSuccess(ctx, identifier)
	}
}

func (c *Controller) recordFailure(ctx context.Context, identifier, reason string) {
	now := c.deps.Ledger.Now()
	wasLocked := c.deps.Ledger.CheckLockoutAt(ctx, identifier, now).Locked

	rec, err := c.deps.Ledger.RecordOutcome(ctx, identifier, false)
	if err != nil {
		c.storageError("record_failure", "attempt", err)
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.Outcomes.WithLabelValues("failure").Inc()
	}
	if c.deps.Audit != nil {
		c.deps.Audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     "login_outcome",
			Identifier:    identifier,
			Success:       false,
			FailureReason: reason,
		})
	}

	if !wasLocked && rec.IsLockedAt(now) {
		if c.deps.Metrics != nil {
			c.deps.Metrics.Lockouts.Inc()
		}
		if c.deps.Audit != nil {
			c.deps.Audit.LogLockout(ctx, identifier, rec.FailureCount, *rec.LockoutUntil)
		}
	}
}

func (c *Controller) recordSuccess(ctx context.Context, identifier string) {
	if _, err := c.deps.Ledger.RecordOutcome(ctx, identifier, true); err != nil {
		c.storageError("record_success", "attempt", err)
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.Outcomes.WithLabelValues("success").Inc()
	}
	if c.deps.Audit != nil {
		c.deps.Audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:  "login_outcome",
			Identifier: identifier,
			Success:    true,
		})
	}
}

// Submit handles a submit intent. On rejection the form is re-enabled, the
// matching message is set and the gate's error is returned. On success the
// remember-me preference is persisted and the Submission to POST is returned;
// the controller then stays in Submitting.
func (c *Controller) Submit(ctx context.Context, in SubmitInput) (*Submission, error) {
	if c.state == Submitting {
		return nil, models.ErrSubmitInProgress
	}

	c.state = Validating
	c.form.IsSubmitting = true

	res := c.deps.Gate.Validate(ctx, in.Identifier, in.Password, c.deps.Ledger.Now())
	if !res.OK() {
		c.block(res)
		c.deps.Logger.Info("submission blocked",
			slog.String("reason", res.Kind.String()),
			pkglogger.IdentifierAttr(in.Identifier))
		return nil, res.Err()
	}

	c.persistRemembered(ctx, in.Identifier)
	c.markPending(ctx, in.Identifier)

	fields := url.Values{}
	fields.Set(c.opts.ServerIdentifierField, in.Identifier)
	fields.Set(c.opts.PasswordField, in.Password)
	if c.page.SelectedCredentialID != nil && *c.page.SelectedCredentialID != "" {
		fields.Set(c.opts.CredentialField, *c.page.SelectedCredentialID)
	}

	c.clearMessages()
	c.form.Focus = ""
	c.state = Submitting

	if c.deps.Metrics != nil {
		c.deps.Metrics.Submissions.Inc()
	}
	c.deps.Logger.Info("submission forwarded",
		pkglogger.IdentifierAttr(in.Identifier),
		pkglogger.RedactedAttr("client_ip", in.ClientIP, c.opts.Env))

	return &Submission{Action: c.page.FormAction, Fields: fields}, nil
}

func (c *Controller) block(res gate.Result) {
	c.state = Blocked
	c.form.IsSubmitting = false
	c.clearMessages()
	c.form.Focus = res.Focus

	msg := RejectionMessage(c.page.Locale, c.opts.IdentifierKind, res)
	switch res.Kind {
	case gate.EmptyIdentifier, gate.EmptyPassword:
		c.form.FieldErrors[res.Focus] = msg
	case gate.Locked:
		c.form.LockoutMessage = msg
		c.form.LockoutRemainingMs = res.RemainingMillis()
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.GateRejections.WithLabelValues(res.Kind.String()).Inc()
	}
}

// RejectionMessage returns the localised message for a rejected gate result
func RejectionMessage(locale string, kind models.IdentifierKind, res gate.Result) string {
	switch res.Kind {
	case gate.EmptyIdentifier:
		if kind == models.IdentifierUsername {
			return i18n.T(locale, i18n.MsgEmptyUsername)
		}
		return i18n.T(locale, i18n.MsgEmptyEmail)
	case gate.EmptyPassword:
		return i18n.T(locale, i18n.MsgEmptyPassword)
	case gate.Locked:
		return i18n.T(locale, i18n.MsgLocked, i18n.FormatRemaining(res.Remaining))
	default:
		return ""
	}
}

func (c *Controller) clearMessages() {
	c.form.FieldErrors = make(map[models.Field]string)
	c.form.ServerError = nil
	c.form.LockoutMessage = ""
	c.form.LockoutRemainingMs = 0
}

// EditField clears the edited field's error along with the server error and
// any lockout message, and abandons a blocked submission.
func (c *Controller) EditField(field models.Field) {
	if c.state == Submitting {
		return
	}
	delete(c.form.FieldErrors, field)
	c.form.ServerError = nil
	c.form.LockoutMessage = ""
	c.form.LockoutRemainingMs = 0
	c.state = Idle
}

// TogglePasswordVisibility flips between masked and plain password input. The
// rendered page reads the result through FormState().PasswordInputType.
func (c *Controller) TogglePasswordVisibility() {
	c.form.PasswordVisible = !c.form.PasswordVisible
}

// SetRememberMe sets the remember-me toggle. The next accepted Submit
// persists the identifier when it is on and forgets it when it is off.
func (c *Controller) SetRememberMe(v bool) {
	c.form.RememberMe = v
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	return c.state
}

// Page returns the page context the controller was created with
func (c *Controller) Page() models.PageContext {
	return c.page
}

// Options returns the effective options
func (c *Controller) Options() Options {
	return c.opts
}

// FormState returns a copy of the form state
func (c *Controller) FormState() models.FormState {
	s := c.form
	s.FieldErrors = make(map[models.Field]string, len(c.form.FieldErrors))
	for k, v := range c.form.FieldErrors {
		s.FieldErrors[k] = v
	}
	return s
}

// PrefillIdentifier returns the value the identifier input should start with
func (c *Controller) PrefillIdentifier() string {
	if c.form.RememberedIdentifier != nil {
		return *c.form.RememberedIdentifier
	}
	if c.page.PriorUsername != nil {
		return *c.page.PriorUsername
	}
	if c.page.LoginHint != nil {
		return *c.page.LoginHint
	}
	return ""
}
