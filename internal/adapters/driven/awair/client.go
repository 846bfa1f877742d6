// Package awair implements the resource-client port against the Awair
// developer API.
package awair

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/openair-labs/awair-export/internal/core/domain"
	"github.com/openair-labs/awair-export/internal/core/ports/driven"
	"github.com/openair-labs/awair-export/internal/logger"
)

const (
	// DefaultBaseURL is the Awair developer API base.
	DefaultBaseURL = "https://developer-apis.awair.is"

	// DefaultTimeout bounds each resource call.
	DefaultTimeout = 10 * time.Second

	// MaxAttempts is the bounded attempt count for transport failures.
	// API rejections are never retried here; only network errors are,
	// since they are not a property of the credential.
	MaxAttempts = 3

	// RetryBaseDelay is the initial backoff delay, doubled per attempt.
	RetryBaseDelay = 500 * time.Millisecond
)

// Ensure Client implements the port.
var _ driven.ResourceClient = (*Client)(nil)

// Client issues authenticated GETs against the Awair resource endpoints.
// It is stateless apart from the rate limiter and safe for concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	limiter *RateLimiter
}

// NewClient creates a resource client. An empty baseURL selects the
// production Awair API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		timeout: DefaultTimeout,
		limiter: NewRateLimiter(DefaultRequestsPerSecond, DefaultBurst),
	}
}

// Get fetches path with the credential's bearer token. Transport failures
// are retried with exponential backoff up to MaxAttempts; any non-2xx
// response surfaces immediately as *domain.APIError.
func (c *Client) Get(ctx context.Context, path string, cred domain.Credential) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := RetryBaseDelay << (attempt - 1)
			logger.Debug("retrying %s after %s (attempt %d/%d)", path, delay, attempt+1, MaxAttempts)
			select {
			case <-ctx.Done():
				return nil, &domain.NetworkError{Op: "get " + path, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		body, err := c.get(ctx, path, cred)
		if err == nil {
			return body, nil
		}
		if !domain.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) get(ctx context.Context, path string, cred domain.Credential) ([]byte, error) {
	tokenType := cred.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cred.AccessToken,
		TokenType:   tokenType,
	}))
	httpClient.Timeout = c.timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Op: "get " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Op: "read " + path, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		c.limiter.RecordRateLimitError(retryAfter)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.APIError{Status: resp.StatusCode, Body: string(body), Path: path}
	}
	return body, nil
}
