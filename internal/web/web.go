// Package web embeds the page templates and static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/BradenHooton/loginguard/internal/i18n"
	"github.com/BradenHooton/loginguard/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page template names
const (
	PageLogin    = "login.html"
	PageRedirect = "redirect.html"
	PageError    = "error.html"
	PageInfo     = "info.html"
	PageApproval = "approval.html"
	PageRegister = "register.html"
)

var funcs = template.FuncMap{
	"t": func(locale, key string) string {
		return i18n.T(locale, key)
	},
	"fieldError": func(errs map[models.Field]string, field string) string {
		return errs[models.Field(field)]
	},
	"field": newFormField,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// formField is one labelled input of a multi-field form
type formField struct {
	Locale       string
	Name         string
	Label        string
	Type         string
	Autocomplete string
	Value        string
	Error        string
}

var fieldLabels = map[string]string{
	"firstName":        i18n.MsgFirstName,
	"lastName":         i18n.MsgLastName,
	"username":         i18n.MsgUsernameLabel,
	"email":            i18n.MsgEmailLabel,
	"password":         i18n.MsgPasswordLabel,
	"password-confirm": i18n.MsgPasswordConfirm,
}

func newFormField(locale string, values, errs map[string]string, name, inputType, autocomplete string) formField {
	label, ok := fieldLabels[name]
	if !ok {
		label = name
	}
	return formField{
		Locale:       locale,
		Name:         name,
		Label:        label,
		Type:         inputType,
		Autocomplete: autocomplete,
		Value:        values[name],
		Error:        errs[name],
	}
}

// Renderer renders the embedded pages inside the shared layout
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page template
func NewRenderer() (*Renderer, error) {
	names := []string{PageLogin, PageRedirect, PageError, PageInfo, PageApproval, PageRegister}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}

	for _, name := range names {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render executes page with data and writes it with status. Output is
// buffered so a template error never leaves a half-written page.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded static assets
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
