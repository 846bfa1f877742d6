// Package oauth implements the token-endpoint port against an OAuth2
// provider's token URL. For Awair the refresh URL equals the token URL.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openair-labs/awair-export/internal/core/domain"
	"github.com/openair-labs/awair-export/internal/core/ports/driven"
)

// RequestTimeout bounds each token-endpoint call. A hung call surfaces as a
// network error instead of blocking the flow indefinitely.
const RequestTimeout = 10 * time.Second

// Ensure Endpoint implements the port.
var _ driven.TokenEndpoint = (*Endpoint)(nil)

// Endpoint performs authorization-code exchange and refresh grants against
// a single token URL.
type Endpoint struct {
	tokenURL   string
	httpClient *http.Client
}

// NewEndpoint creates a token endpoint client for the given token URL.
func NewEndpoint(tokenURL string) *Endpoint {
	return &Endpoint{
		tokenURL:   tokenURL,
		httpClient: &http.Client{Timeout: RequestTimeout},
	}
}

// tokenResponse is the provider's JSON shape for both grant types.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Exchange trades an authorization code for a Credential.
func (e *Endpoint) Exchange(ctx context.Context, app domain.OAuthApp, code string) (domain.Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", app.ClientID)
	form.Set("client_secret", app.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", app.RedirectURI)

	status, body, err := e.post(ctx, form)
	if err != nil {
		return domain.Credential{}, &domain.NetworkError{Op: "token exchange", Err: err}
	}
	if status < 200 || status > 299 {
		return domain.Credential{}, &domain.TokenExchangeError{Status: status, Body: string(body)}
	}

	cred, err := parseCredential(body)
	if err != nil {
		return domain.Credential{}, &domain.TokenExchangeError{Status: status, Body: string(body)}
	}
	return cred, nil
}

// Refresh obtains a brand-new Credential from a refresh token.
func (e *Endpoint) Refresh(ctx context.Context, app domain.OAuthApp, refreshToken string) (domain.Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", app.ClientID)
	form.Set("client_secret", app.ClientSecret)
	form.Set("refresh_token", refreshToken)

	status, body, err := e.post(ctx, form)
	if err != nil {
		return domain.Credential{}, &domain.RefreshError{Err: &domain.NetworkError{Op: "token refresh", Err: err}}
	}
	if status < 200 || status > 299 {
		return domain.Credential{}, &domain.RefreshError{Status: status, Body: string(body)}
	}

	cred, err := parseCredential(body)
	if err != nil {
		return domain.Credential{}, &domain.RefreshError{Status: status, Body: string(body), Err: err}
	}
	return cred, nil
}

// post submits the form and returns the status and full body. The response
// body is always drained and closed, including on error statuses.
func (e *Endpoint) post(ctx context.Context, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// parseCredential decodes a token response and computes the absolute expiry
// from the provider-declared lifetime. A missing access token is malformed.
func parseCredential(body []byte) (domain.Credential, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return domain.Credential{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return domain.Credential{}, fmt.Errorf("token response missing access_token")
	}

	cred := domain.Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
	}
	if tr.ExpiresIn > 0 {
		cred.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return cred, nil
}
