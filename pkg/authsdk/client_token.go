package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Token exchange identifiers per RFC 8693.
const (
	GrantTypeTokenExchange     = "urn:ietf:params:oauth:grant-type:token-exchange"
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
	TokenTypeAccessToken       = "urn:ietf:params:oauth:token-type:access_token"
)

// ExchangeRequest describes a token-exchange grant.
type ExchangeRequest struct {
	ClientID     string
	ClientSecret string

	// SubjectToken is the user's chat session access token.
	SubjectToken string

	Scopes         []string
	MiniAppContext map[string]any
}

// TokenExchangeGrant exchanges a chat session token for a TEP token.
func (c *SDKClient) TokenExchangeGrant(ctx context.Context, req ExchangeRequest) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":         {GrantTypeTokenExchange},
		"subject_token":      {req.SubjectToken},
		"subject_token_type": {TokenTypeAccessToken},
		"client_id":          {req.ClientID},
	}
	if req.ClientSecret != "" {
		data.Set("client_secret", req.ClientSecret)
	}
	if len(req.Scopes) > 0 {
		data.Set("scope", strings.Join(req.Scopes, " "))
	}
	if req.MiniAppContext != nil {
		b, err := json.Marshal(req.MiniAppContext)
		if err != nil {
			return nil, fmt.Errorf("failed to encode miniapp_context: %w", err)
		}
		data.Set("miniapp_context", string(b))
	}

	return c.requestToken(ctx, data)
}

// AuthorizationGrant completes a browser authorization. requestID is the
// state the broker put on the redirect to the delegation service.
func (c *SDKClient) AuthorizationGrant(
	ctx context.Context,
	clientID, requestID, matrixAccessToken, codeVerifier string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":          {GrantTypeAuthorizationCode},
		"client_id":           {clientID},
		"state":               {requestID},
		"matrix_access_token": {matrixAccessToken},
	}
	if codeVerifier != "" {
		data.Set("code_verifier", codeVerifier)
	}

	return c.requestToken(ctx, data)
}

// RefreshGrant requests a new TEP token using a refresh handle.
func (c *SDKClient) RefreshGrant(
	ctx context.Context,
	clientID, refreshToken string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {GrantTypeRefreshToken},
		"refresh_token": {refreshToken},
		"client_id":     {clientID},
	}

	return c.requestToken(ctx, data)
}

// SubmitConsent approves or declines the scopes in a consent challenge.
// Declining returns ErrConsentDeclined.
func (c *SDKClient) SubmitConsent(ctx context.Context, sessionID string, approved bool) (*ConsentResponse, error) {
	data := url.Values{
		"session":  {sessionID},
		"approved": {fmt.Sprint(approved)},
	}

	var out ConsentResponse
	if err := c.postForm(ctx, "/v1/oauth2/consent", data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Introspect asks the broker whether a TEP token is active.
func (c *SDKClient) Introspect(ctx context.Context, token string) (*IntrospectionResponse, error) {
	data := url.Values{"token": {token}}

	var out IntrospectionResponse
	if err := c.postForm(ctx, "/v1/oauth2/introspect", data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeToken revokes a refresh handle or forwards a chat session token to
// the delegation service. The broker answers 200 either way.
func (c *SDKClient) RevokeToken(ctx context.Context, clientID, token, hint string) error {
	data := url.Values{
		"token":     {token},
		"client_id": {clientID},
	}
	if hint != "" {
		data.Set("token_type_hint", hint)
	}

	return c.postForm(ctx, "/v1/oauth2/revoke", data, nil)
}

func (c *SDKClient) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	var tokenResp TokenResponse
	if err := c.postForm(ctx, "/v1/oauth2/token", data, &tokenResp); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}

// consentSession extracts the session id from a consent_ui_endpoint.
func consentSession(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	return u.Query().Get("session")
}
