package orcid

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Retry and backoff constants.
const (
	maxRetries     = 3
	baseBackoff    = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	userAgent      = "orcid-go/0.1"
)

// DefaultBaseURL is the ORCID public API endpoint.
const DefaultBaseURL = "https://pub.orcid.org/v3.0"

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer per Go
// convention "accept interfaces, return structs". A nil TokenSource means
// anonymous access (the public API allows it, with tighter rate limits).
type TokenSource interface {
	Token() (string, error)
}

// ClientCredentialsTokenSource returns a TokenSource backed by the OAuth2
// client-credentials flow, which is how ORCID issues public API tokens
// (scope /read-public).
func ClientCredentialsTokenSource(ctx context.Context, tokenURL, clientID, clientSecret string) TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{"/read-public"},
	}

	return &oauth2TokenSource{src: cfg.TokenSource(ctx)}
}

// oauth2TokenSource adapts oauth2.TokenSource (which caches and refreshes
// tokens internally) to the string-valued TokenSource this package consumes.
type oauth2TokenSource struct {
	src oauth2.TokenSource
}

func (s *oauth2TokenSource) Token() (string, error) {
	tok, err := s.src.Token()
	if err != nil {
		return "", fmt.Errorf("orcid: obtaining token: %w", err)
	}

	return tok.AccessToken, nil
}

// Client is an HTTP client for the ORCID API. It handles request
// construction, authentication, retry with exponential backoff, and error
// classification.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	headers    map[string]string
	logger     *slog.Logger

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates an ORCID API client. baseURL is typically
// DefaultBaseURL; a trailing slash is trimmed. headers are extra headers
// sent on every request (deployment-specific, e.g. a member API key).
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, headers map[string]string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		token:      token,
		headers:    headers,
		logger:     logger,
		sleepFunc:  timeSleep,
	}
}

// Get executes a GET request against the API. The path is appended to the
// client's base URL. The caller is responsible for closing the response
// body on success.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	url := c.baseURL + path

	var attempt int
	for {
		resp, err := c.doOnce(ctx, url)
		if err != nil {
			// Context cancellation is not retryable.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("orcid: request canceled: %w", ctx.Err())
			}

			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("path", path),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("orcid: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("orcid: GET %s failed after %d retries: %w", path, maxRetries, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("orcid: request canceled: %w", err)
			}

			attempt++

			continue
		}

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}
}

// doOnce builds and executes a single request attempt.
func (c *Client) doOnce(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	if c.token != nil {
		tok, err := c.token.Token()
		if err != nil {
			return nil, err
		}

		req.Header.Set("Authorization", "Bearer "+tok)
	}

	return c.httpClient.Do(req)
}

// retryBackoff returns the backoff for an HTTP-level retry, honoring a
// Retry-After header when the server sends one.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			d := time.Duration(secs) * time.Second
			if d > maxBackoff {
				d = maxBackoff
			}

			return d
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with jitter for the given attempt.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	// Full jitter would thunder less, but +/- 25% matches observed rate
	// limiter behavior well enough.
	jitter := backoff * jitterFraction * (2*rand.Float64() - 1)

	return time.Duration(backoff + jitter)
}

// timeSleep waits for d or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
