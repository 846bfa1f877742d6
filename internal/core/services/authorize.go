package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/openair-labs/awair-export/internal/core/domain"
	"github.com/openair-labs/awair-export/internal/core/ports/driven"
)

// AuthorizationClient drives the front half of the authorization-code flow:
// it builds the provider authorization URL and exchanges the returned code
// for a Credential. It keeps no state between calls; the anti-CSRF state
// token is handed to the caller for safekeeping.
type AuthorizationClient struct {
	endpoint    driven.TokenEndpoint
	authBaseURL string
}

// NewAuthorizationClient creates an authorization client for the given
// provider authorization base URL.
func NewAuthorizationClient(endpoint driven.TokenEndpoint, authBaseURL string) *AuthorizationClient {
	return &AuthorizationClient{
		endpoint:    endpoint,
		authBaseURL: authBaseURL,
	}
}

// BuildAuthorizationRequest constructs the provider authorization URL and a
// single-use state token. The state is returned for the caller to store and
// compare on callback; this component does not retain it.
func (a *AuthorizationClient) BuildAuthorizationRequest(app domain.OAuthApp) (authURL, state string, err error) {
	state, err = generateState()
	if err != nil {
		return "", "", fmt.Errorf("generate state: %w", err)
	}

	params := url.Values{
		"client_id":     {app.ClientID},
		"redirect_uri":  {app.RedirectURI},
		"scope":         {app.Scope},
		"state":         {state},
		"response_type": {"code"},
	}

	return a.authBaseURL + "?" + params.Encode(), state, nil
}

// ExchangeCode validates the callback state and trades the authorization
// code for a Credential.
//
// The state comparison happens before any network I/O: a mismatch fails with
// domain.ErrStateMismatch regardless of whether the code is valid. On match,
// a single synchronous token-endpoint call is made; a rejected exchange
// surfaces as *domain.TokenExchangeError.
func (a *AuthorizationClient) ExchangeCode(
	ctx context.Context,
	app domain.OAuthApp,
	code, expectedState, receivedState string,
) (domain.Credential, error) {
	if expectedState == "" || receivedState != expectedState {
		return domain.Credential{}, domain.ErrStateMismatch
	}

	cred, err := a.endpoint.Exchange(ctx, app, code)
	if err != nil {
		return domain.Credential{}, err
	}
	return cred, nil
}
