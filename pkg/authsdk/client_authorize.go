package authsdk

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mona-chen/jean/pkg/cryptox"
)

// PKCEChallenge is an RFC 7636 S256 pair. Keep Verifier for the token
// request; Challenge goes on the authorize URL.
type PKCEChallenge struct {
	Verifier  string
	Challenge string
	Method    string
}

// GeneratePKCEChallenge returns a fresh pair with a 256-bit verifier.
func GeneratePKCEChallenge() (*PKCEChallenge, error) {
	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}
	return &PKCEChallenge{Verifier: verifier, Challenge: S256Challenge(verifier), Method: "S256"}, nil
}

// S256Challenge computes BASE64URL(SHA256(verifier)).
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func authorizePath(clientID, redirectURI, state string, scopes []string, pkce *PKCEChallenge) string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
	}
	if state != "" {
		q.Set("state", state)
	}
	if len(scopes) > 0 {
		q.Set("scope", strings.Join(scopes, " "))
	}
	if pkce != nil {
		q.Set("code_challenge", pkce.Challenge)
		q.Set("code_challenge_method", pkce.Method)
	}
	return "/v1/oauth2/authorize?" + q.Encode()
}

// BuildAuthorizeURL returns the broker authorize URL for a browser redirect.
// The broker rejects requests without a state and an S256 challenge.
//
//	pkce, _ := authsdk.GeneratePKCEChallenge()
//	u := client.BuildAuthorizeURL("ma_shop", "https://shop.example/cb", "xyz", []string{"wallet:pay"}, pkce)
func (c *SDKClient) BuildAuthorizeURL(clientID, redirectURI, state string, scopes []string, pkce *PKCEChallenge) string {
	return c.BaseURL + authorizePath(clientID, redirectURI, state, scopes, pkce)
}

// StartAuthorization calls the authorize endpoint without following the
// redirect and returns the delegation service URL the browser should visit.
func (c *SDKClient) StartAuthorization(
	ctx context.Context,
	clientID, redirectURI, state string,
	scopes []string,
	pkce *PKCEChallenge,
) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, authorizePath(clientID, redirectURI, state, scopes, pkce), "", nil)
	if err != nil {
		return "", err
	}

	hc := *c.HTTPClient
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return "", parseErrorResponse(resp, body)
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", errors.New("authorize response missing Location header")
	}
	return loc, nil
}

// ParseAuthorizationCallback extracts the state from the delegation service
// callback. The state is the broker's authorization request id and is passed
// to AuthorizationGrant.
func ParseAuthorizationCallback(callbackURL string) (code, state string, err error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse callback URL: %w", err)
	}

	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", "", fmt.Errorf("authorization error: %s - %s", e, q.Get("error_description"))
	}

	state = q.Get("state")
	if state == "" {
		return "", "", fmt.Errorf("callback missing state")
	}

	return q.Get("code"), state, nil
}
