package models

// Provider identifies how a session was established.
type Provider string

// Provider constants
const (
	ProviderGoogle Provider = "google"
	ProviderGuest  Provider = "guest"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderGuest
}

// SessionProfile is the persisted signed-in identity.
// TS is the creation time in epoch milliseconds.
type SessionProfile struct {
	SignedIn bool     `json:"signedIn"`
	Provider Provider `json:"provider"`
	TS       int64    `json:"ts"`

	// Optional claims taken from the identity provider's token.
	Subject string `json:"subject,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}
