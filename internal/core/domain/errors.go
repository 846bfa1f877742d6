package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent credential and export failures.
// These are distinct from infrastructure errors.
var (
	// ErrStateMismatch indicates the OAuth state returned by the provider
	// does not match the one sent. This is the CSRF defense: the flow must
	// be aborted and authorization restarted.
	ErrStateMismatch = errors.New("authorization state mismatch")

	// ErrNoRefreshToken indicates a refresh was attempted on a credential
	// the provider issued without a refresh token.
	ErrNoRefreshToken = errors.New("credential has no refresh token")
)

// TokenExchangeError indicates the authorization-code exchange was rejected
// or returned a body without an access token. The caller must restart
// authorization.
type TokenExchangeError struct {
	Status int
	Body   string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Body)
}

// RefreshError indicates a token refresh failed. It carries the provider's
// status and body for diagnostics. The caller must restart authorization;
// refresh is never retried automatically since refresh tokens can be
// single-use and a blind retry can burn them.
type RefreshError struct {
	Status int
	Body   string
	Err    error
}

func (e *RefreshError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token refresh failed: %v", e.Err)
	}
	return fmt.Sprintf("token refresh failed with status %d: %s", e.Status, e.Body)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// APIError indicates a resource call was rejected by the provider.
// A 401 means the credential is invalid despite passing the expiry check;
// the caller should force re-authorization rather than retry.
type APIError struct {
	Status int
	Body   string
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d on %s: %s", e.Status, e.Path, e.Body)
}

// NetworkError indicates a transport-level failure (timeout, DNS, connection
// reset). Unlike APIError it is not a property of the credential and is
// retryable with bounded backoff.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MalformedResponseError indicates the provider returned JSON of an
// unexpected shape. The raw body is carried for logging; the export that
// triggered it fails whole, never partially.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed provider response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether the error is a resource-call rejection with
// status 401, meaning the credential was rejected outright.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 401
}

// IsRetryable reports whether the error is a transport failure the caller
// may retry with backoff.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
