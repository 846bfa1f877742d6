package services

import (
	"context"
	"time"

	"github.com/openair-labs/awair-export/internal/core/domain"
	"github.com/openair-labs/awair-export/internal/core/ports/driven"
	"github.com/openair-labs/awair-export/internal/logger"
)

// TokenRefresher decides whether a Credential is stale and performs the
// refresh grant against the provider's token endpoint.
//
// Expiry is checked lazily, before each resource call; there is no
// background timer. A failed refresh is terminal for that attempt: the
// refresher never retries on its own, because refresh tokens can be
// single-use and a blind retry can burn them. Retrying (or re-authorizing)
// is the caller's decision.
type TokenRefresher struct {
	endpoint driven.TokenEndpoint
	now      func() time.Time
}

// NewTokenRefresher creates a refresher backed by the given token endpoint.
func NewTokenRefresher(endpoint driven.TokenEndpoint) *TokenRefresher {
	return &TokenRefresher{
		endpoint: endpoint,
		now:      time.Now,
	}
}

// Refresh obtains a brand-new Credential using the credential's refresh
// token. The old credential must be discarded wholesale, not merged: the
// provider may have rotated the refresh token.
//
// Fails with *domain.RefreshError (wrapping domain.ErrNoRefreshToken when
// the provider never issued one).
func (r *TokenRefresher) Refresh(ctx context.Context, app domain.OAuthApp, cred domain.Credential) (domain.Credential, error) {
	if !cred.HasRefreshToken() {
		return domain.Credential{}, &domain.RefreshError{Err: domain.ErrNoRefreshToken}
	}

	fresh, err := r.endpoint.Refresh(ctx, app, cred.RefreshToken)
	if err != nil {
		return domain.Credential{}, err
	}

	logger.Debug("refreshed credential, new expiry %s", fresh.ExpiresAt.Format(time.RFC3339))
	return fresh, nil
}

// EnsureValid returns the credential unchanged if it is still valid,
// otherwise attempts exactly one refresh and returns the replacement.
// Every resource call in the export pipeline routes through here first.
func (r *TokenRefresher) EnsureValid(ctx context.Context, app domain.OAuthApp, cred domain.Credential) (domain.Credential, error) {
	if cred.Valid(r.now()) {
		return cred, nil
	}
	return r.Refresh(ctx, app, cred)
}
