package models

// Field names a login form input the controller tracks errors for
type Field string

const (
	FieldIdentifier Field = "identifier"
	FieldPassword   Field = "password"
)

// IdentifierKind selects between the email and username login variants
type IdentifierKind string

const (
	IdentifierEmail    IdentifierKind = "email"
	IdentifierUsername IdentifierKind = "username"
)

// ParseIdentifierKind maps a config value to an IdentifierKind, defaulting to email
func ParseIdentifierKind(s string) IdentifierKind {
	if IdentifierKind(s) == IdentifierUsername {
		return IdentifierUsername
	}
	return IdentifierEmail
}

// FormState is the ephemeral per-page state of the login form
type FormState struct {
	FieldErrors          map[Field]string
	ServerError          *string
	LockoutMessage       string
	LockoutRemainingMs   int64
	Focus                Field
	IsSubmitting         bool
	RememberedIdentifier *string
	RememberMe           bool
	PasswordVisible      bool
}

// PasswordInputType returns the input type matching the visibility toggle
func (s FormState) PasswordInputType() string {
	if s.PasswordVisible {
		return "text"
	}
	return "password"
}

// HasErrors reports whether any message is currently shown
func (s FormState) HasErrors() bool {
	return len(s.FieldErrors) > 0 || s.ServerError != nil || s.LockoutMessage != ""
}
