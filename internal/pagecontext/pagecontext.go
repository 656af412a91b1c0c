// Package pagecontext reconstructs the identity server's page context from the
// request the server redirected the browser with, plus static realm settings.
package pagecontext

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/BradenHooton/loginguard/internal/config"
	"github.com/BradenHooton/loginguard/internal/i18n"
	"github.com/BradenHooton/loginguard/internal/models"
)

const localeSessionKey = "kc_locale"

// actionParams are copied from the page URL onto the form action so the
// identity server can find its authentication session.
var actionParams = []string{"session_code", "execution", "client_id", "tab_id", "client_data"}

// Builder assembles PageContexts
type Builder struct {
	idp           config.IdentityServerConfig
	defaultLocale string
	sessions      *scs.SessionManager
}

// NewBuilder creates a Builder. sessions may be nil, in which case the
// session step of locale resolution is skipped.
func NewBuilder(idp config.IdentityServerConfig, defaultLocale string, sessions *scs.SessionManager) *Builder {
	if i18n.Normalize(defaultLocale) == "" {
		defaultLocale = i18n.Korean
	}
	return &Builder{idp: idp, defaultLocale: i18n.Normalize(defaultLocale), sessions: sessions}
}

// Build reads the page context for r
func (b *Builder) Build(r *http.Request) models.PageContext {
	q := r.URL.Query()

	page := models.PageContext{
		FormAction:           b.formAction(q),
		PriorUsername:        firstNonEmpty(q, "username"),
		LoginHint:            firstNonEmpty(q, "login_hint"),
		ServerMessage:        serverMessage(q),
		SelectedCredentialID: firstNonEmpty(q, "credential_id"),
		SocialProviders:      b.idp.SocialProviders,
		Locale:               b.ResolveLocale(r),
		RealmName:            b.idp.RealmName,
		RegistrationURL:      b.idp.RegistrationURL,
		ResetCredentialsURL:  b.idp.ResetCredentialsURL,
		RegistrationAllowed:  b.idp.RegistrationAllowed && b.idp.RegistrationURL != "",
		ResetPasswordAllowed: b.idp.ResetPasswordAllowed && b.idp.ResetCredentialsURL != "",
	}

	return page
}

// ResolveLocale picks the page locale: kc_locale query parameter, then the
// session, then the browser's first Accept-Language entry, then the default.
// A locale taken from the query is remembered in the session.
func (b *Builder) ResolveLocale(r *http.Request) string {
	if loc := i18n.Normalize(r.URL.Query().Get("kc_locale")); loc != "" {
		if b.sessions != nil {
			b.sessions.Put(r.Context(), localeSessionKey, loc)
		}
		return loc
	}

	if b.sessions != nil {
		if loc := i18n.Normalize(b.sessions.GetString(r.Context(), localeSessionKey)); loc != "" {
			return loc
		}
	}

	if loc := i18n.FromAcceptLanguage(r.Header.Get("Accept-Language")); loc != "" {
		return loc
	}

	return b.defaultLocale
}

// SubmitURL returns path with the parts of the current query the next page
// needs: the identity server's session parameters, the selected credential
// and the locale. Server messages are dropped so they do not reappear.
func (b *Builder) SubmitURL(r *http.Request, path string) string {
	q := r.URL.Query()
	out := url.Values{}
	for _, p := range append(actionParams, "credential_id", "kc_locale") {
		if v := q.Get(p); v != "" {
			out.Set(p, v)
		}
	}
	if len(out) == 0 {
		return path
	}
	return path + "?" + out.Encode()
}

// RegistrationAction is the identity server's registration endpoint with the
// current page's session parameters.
func (b *Builder) RegistrationAction(r *http.Request) string {
	return withActionParams(b.idp.RegistrationURL, r.URL.Query())
}

// formAction is always the configured action; only the session parameters
// of the current page are carried over.
func (b *Builder) formAction(q url.Values) string {
	return withActionParams(b.idp.FormAction, q)
}

func withActionParams(action string, q url.Values) string {
	u, err := url.Parse(action)
	if err != nil {
		return action
	}
	aq := u.Query()
	for _, p := range actionParams {
		if v := q.Get(p); v != "" {
			aq.Set(p, v)
		}
	}
	u.RawQuery = aq.Encode()
	return u.String()
}

func serverMessage(q url.Values) *models.ServerMessage {
	summary := q.Get("message")
	if summary == "" {
		summary = q.Get("error_description")
	}
	if summary == "" {
		summary = q.Get("error")
	}
	if strings.TrimSpace(summary) == "" {
		return nil
	}

	msgType := models.MessageType(strings.ToLower(q.Get("message_type")))
	switch msgType {
	case models.MessageSuccess, models.MessageWarning, models.MessageError, models.MessageInfo:
	default:
		msgType = models.MessageError
	}

	return &models.ServerMessage{Type: msgType, Summary: summary}
}

func firstNonEmpty(q url.Values, keys ...string) *string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return &v
		}
	}
	return nil
}
