package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds each request unless WithHTTPClient supplies a client.
const DefaultTimeout = 10 * time.Second

// SDKClient talks to the delegation broker on behalf of a mini-app. It
// covers the unauthenticated OAuth endpoints and mints Sessions for the
// authenticated wallet endpoints.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// CheckScopes makes Sessions refuse calls whose required scopes were not
	// granted, before anything is sent. Tests of the broker's own scope
	// enforcement turn it off.
	CheckScopes bool
}

// Option customises an SDKClient.
type Option func(*SDKClient)

func WithHTTPClient(hc *http.Client) Option { return func(c *SDKClient) { c.HTTPClient = hc } }

// WithoutScopeChecks disables client-side scope checks.
func WithoutScopeChecks() Option { return func(c *SDKClient) { c.CheckScopes = false } }

// NewSDKClient returns a client for the broker at baseURL.
func NewSDKClient(baseURL string, opts ...Option) *SDKClient {
	c := &SDKClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		HTTPClient:  &http.Client{Timeout: DefaultTimeout},
		CheckScopes: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthenticateWithMatrixToken exchanges the user's chat session token for a
// TEP token. A *ConsentRequiredError means the user must approve scopes via
// SubmitConsent before retrying.
func (c *SDKClient) AuthenticateWithMatrixToken(ctx context.Context, req ExchangeRequest) (*Session, error) {
	tr, err := c.TokenExchangeGrant(ctx, req)
	if err != nil {
		return nil, err
	}
	return newSession(c, req.ClientID, tr), nil
}

// AuthenticateWithCode completes the authorization flow started by
// StartAuthorization. requestID is the state from the callback.
func (c *SDKClient) AuthenticateWithCode(ctx context.Context, clientID, requestID, matrixAccessToken, codeVerifier string) (*Session, error) {
	tr, err := c.AuthorizationGrant(ctx, clientID, requestID, matrixAccessToken, codeVerifier)
	if err != nil {
		return nil, err
	}
	return newSession(c, clientID, tr), nil
}

func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, clientID, refreshToken string) (*Session, error) {
	tr, err := c.RefreshGrant(ctx, clientID, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, clientID, tr), nil
}

// NewSessionFromTokens resumes a session from stored tokens. expiresIn is
// the remaining lifetime of accessToken in seconds.
func (c *SDKClient) NewSessionFromTokens(clientID, accessToken, refreshToken, scope string, expiresIn int) *Session {
	return newSession(c, clientID, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Scope:        scope,
		ExpiresIn:    expiresIn,
	})
}
