// Package dasclient talks to the delegated-authentication service that owns
// the user's primary chat session. Every call is an authenticated form POST
// with a bounded timeout and no retry.
package dasclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mona-chen/jean/pkg/slogx"
)

const (
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeTokenExchange     = "urn:ietf:params:oauth:grant-type:token-exchange"
	TokenTypeAccessToken       = "urn:ietf:params:oauth:token-type:access_token"

	// DefaultTimeout bounds every outbound call.
	DefaultTimeout = 30 * time.Second

	// FallbackSessionTTL is reported when token exchange fails and the
	// caller's own token is handed back.
	FallbackSessionTTL = 300
)

// DefaultScopes are requested for service and exchanged tokens.
var DefaultScopes = []string{"openid", "urn:matrix:org.matrix.msc2967.client:api:*"}

// Config configures a Client.
type Config struct {
	ClientID         string
	ClientSecret     string
	ClientSecretFile string
	TokenURL         string
	IntrospectionURL string
	RevocationURL    string
	Scopes           []string
	Timeout          time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	ClientID         string
	TokenURL         string
	IntrospectionURL string
	RevocationURL    string
	Scopes           []string
	HTTPClient       *http.Client
	Now              func() time.Time

	secret string
}

// New builds a Client. A secret file, when it exists, wins over the inline
// secret; having neither is an error.
func New(cfg Config) (*Client, error) {
	secret := cfg.ClientSecret
	if cfg.ClientSecretFile != "" {
		b, err := os.ReadFile(cfg.ClientSecretFile)
		switch {
		case err == nil:
			secret = strings.TrimSpace(string(b))
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("dasclient: read client secret: %w", err)
		}
	}
	if secret == "" {
		return nil, errors.New("dasclient: client secret not configured")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("dasclient: client id not configured")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &Client{
		ClientID:         cfg.ClientID,
		TokenURL:         cfg.TokenURL,
		IntrospectionURL: cfg.IntrospectionURL,
		RevocationURL:    cfg.RevocationURL,
		Scopes:           scopes,
		HTTPClient:       &http.Client{Timeout: timeout},
		Now:              time.Now,
		secret:           secret,
	}, nil
}

// ClientCredentialsGrant obtains a service token for the broker itself.
func (c *Client) ClientCredentialsGrant(ctx context.Context) (*Token, error) {
	form := url.Values{
		"grant_type": {GrantTypeClientCredentials},
		"scope":      {strings.Join(c.Scopes, " ")},
	}

	var tok Token
	if err := c.post(ctx, "client_credentials", c.TokenURL, form, &tok); err != nil {
		return nil, err
	}
	tok.ExpiresAt = c.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return &tok, nil
}

// Introspect returns the delegation service's view of token. An inactive
// token is not an error; callers check Active.
func (c *Client) Introspect(ctx context.Context, token string) (*Introspection, error) {
	var info Introspection
	if err := c.post(ctx, "introspect", c.IntrospectionURL, url.Values{"token": {token}}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ValidateForChatOperations introspects token and requires it to be active
// and unexpired before the broker uses it on the user's behalf.
func (c *Client) ValidateForChatOperations(ctx context.Context, token string) (*Introspection, error) {
	info, err := c.Introspect(ctx, token)
	if err != nil {
		return nil, err
	}
	if !info.Active {
		return nil, &Error{Kind: KindInvalidToken, Op: "validate", Description: "access token is not active"}
	}
	if info.Expired(c.Now()) {
		return nil, &Error{Kind: KindInvalidToken, Op: "validate", Description: "access token has expired"}
	}
	return info, nil
}

// ExchangeForSession trades subjectToken for a fresh upstream session token
// scoped for chat operations. When the exchange is refused the caller's
// token is returned unchanged with FallbackSessionTTL, since the subject
// token was already validated by introspection.
func (c *Client) ExchangeForSession(ctx context.Context, subjectToken string) *Token {
	form := url.Values{
		"grant_type":           {GrantTypeTokenExchange},
		"subject_token":        {subjectToken},
		"subject_token_type":   {TokenTypeAccessToken},
		"requested_token_type": {TokenTypeAccessToken},
		"scope":                {strings.Join(c.Scopes, " ")},
	}

	var tok Token
	if err := c.post(ctx, "token_exchange", c.TokenURL, form, &tok); err != nil || tok.AccessToken == "" {
		slogx.FromContext(ctx).Warn("session token exchange failed, reusing subject token",
			"err", err,
		)
		tok = Token{AccessToken: subjectToken, TokenType: "Bearer", ExpiresIn: FallbackSessionTTL}
	}
	if tok.ExpiresIn <= 0 {
		tok.ExpiresIn = FallbackSessionTTL
	}
	tok.ExpiresAt = c.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return &tok
}

// Revoke asks the delegation service to revoke token. Failures are logged
// and swallowed.
func (c *Client) Revoke(ctx context.Context, token, hint string) {
	form := url.Values{"token": {token}}
	if hint != "" {
		form.Set("token_type_hint", hint)
	}

	if err := c.post(ctx, "revoke", c.RevocationURL, form, nil); err != nil {
		slogx.FromContext(ctx).Warn("token revocation failed",
			"token", slogx.Redact(token),
			"err", err,
		)
	}
}

func (c *Client) post(ctx context.Context, op, endpoint string, form url.Values, out any) error {
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Kind: KindBroker, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if id := slogx.RequestID(ctx); id != "" {
		req.Header.Set(slogx.RequestIDHeader, id)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &Error{Kind: KindBroker, Op: op, Temporary: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Kind: KindBroker, Op: op, Temporary: true, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(op, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindBroker, Op: op, Status: resp.StatusCode, Description: "unparseable response", Err: err}
	}
	return nil
}

func parseError(op string, status int, body []byte) error {
	e := &Error{Kind: KindBroker, Op: op, Status: status, Temporary: status >= 500}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		e.Description = "delegation service error"
		return e
	}

	switch eb.Error {
	case "invalid_client":
		e.Kind = KindInvalidCredentials
		e.Description = "delegation service rejected client credentials"
	case "invalid_token":
		e.Kind = KindInvalidToken
		e.Description = eb.Description
		if e.Description == "" {
			e.Description = "token is invalid or expired"
		}
	default:
		e.Description = eb.Description
		if e.Description == "" {
			e.Description = "delegation service error"
		}
	}
	return e
}
