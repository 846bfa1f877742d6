package driven

import (
	"context"

	"github.com/openair-labs/awair-export/internal/core/domain"
)

// ResourceClient issues authenticated calls against the provider's resource
// endpoints. It has a uniform contract: the raw JSON body on 2xx, a typed
// error otherwise.
//
// Error contract:
//   - *domain.APIError for any non-2xx response. 401 means the credential
//     was rejected despite passing the expiry check; the caller should force
//     re-authorization instead of refreshing.
//   - *domain.NetworkError for transport failures (timeout, DNS, reset).
//     These are retryable; implementations perform a small bounded retry
//     with backoff before surfacing one.
type ResourceClient interface {
	// Get issues an authenticated GET for path (e.g. "/v1/users/self") and
	// returns the raw response body.
	Get(ctx context.Context, path string, cred domain.Credential) ([]byte, error)
}
