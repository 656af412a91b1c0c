package models

// MessageType is the severity the identity server attaches to a page message
type MessageType string

const (
	MessageSuccess MessageType = "success"
	MessageWarning MessageType = "warning"
	MessageError   MessageType = "error"
	MessageInfo    MessageType = "info"
)

// ServerMessage is the localized outcome message from the previous round trip
type ServerMessage struct {
	Type    MessageType `json:"type"`
	Summary string      `json:"summary"`
}

// IsError reports whether the message signals a failed authentication
func (m *ServerMessage) IsError() bool {
	return m != nil && m.Type == MessageError
}

// SocialProvider is an additional login link offered by the identity server
type SocialProvider struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	LoginURL    string `json:"loginUrl"`
}

// PageContext is the read-only state the identity server provides at render time
type PageContext struct {
	FormAction           string
	PriorUsername        *string
	LoginHint            *string // relying party hint; pre-fill only
	ServerMessage        *ServerMessage
	SelectedCredentialID *string
	SocialProviders      []SocialProvider
	Locale               string

	RealmName            string
	RegistrationURL      string
	ResetCredentialsURL  string
	RegistrationAllowed  bool
	ResetPasswordAllowed bool
}
