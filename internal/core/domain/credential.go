package domain

import "time"

// Credential stores the OAuth tokens obtained from the Awair provider.
// It is an immutable value: a refresh never mutates an existing Credential,
// it produces a brand-new one, because the provider may rotate the refresh
// token itself. The core never persists a Credential; the caller owns it.
type Credential struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	// The provider may omit it.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`
	// ExpiresAt is the absolute expiry instant, computed from the issuance
	// time plus the provider-declared lifetime. Zero means unknown lifetime.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the access token has expired at the given instant.
// A zero ExpiresAt means the provider declared no lifetime; such a credential
// never expires on the client side.
func (c Credential) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// Valid reports whether the credential may be used for API calls at the
// given instant. An expired credential must be refreshed first.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && !c.Expired(now)
}

// HasRefreshToken reports whether a refresh token is available.
func (c Credential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// OAuthApp holds the registered OAuth application's client settings.
// These identify the application to the provider; they are configuration,
// not user credentials.
type OAuthApp struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
}
