package driven

import (
	"context"

	"github.com/openair-labs/awair-export/internal/core/domain"
)

// TokenEndpoint performs the two grant types against the provider's token
// URL. For Awair the refresh URL equals the token URL; implementations for
// other providers may differ.
type TokenEndpoint interface {
	// Exchange trades an authorization code for a fresh Credential.
	// Fails with *domain.TokenExchangeError on a non-2xx response or a
	// body without an access token.
	Exchange(ctx context.Context, app domain.OAuthApp, code string) (domain.Credential, error)

	// Refresh obtains a brand-new Credential using a refresh token.
	// The provider may rotate the refresh token; the returned Credential
	// replaces the old one wholesale. Fails with *domain.RefreshError.
	Refresh(ctx context.Context, app domain.OAuthApp, refreshToken string) (domain.Credential, error)
}
