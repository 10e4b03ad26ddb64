package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/mona-chen/jean/pkg/dasclient"
	"github.com/mona-chen/jean/pkg/jwtx"
)

// TestTokenExchange_NonSensitiveScopes exchanges a chat token for scopes
// that need no consent.
func TestTokenExchange_NonSensitiveScopes(t *testing.T) {
	f := setupBroker(t)

	resp, err := f.client.TokenExchangeGrant(t.Context(), authsdk.ExchangeRequest{
		ClientID:       shopAppID,
		SubjectToken:   aliceToken,
		Scopes:         []string{"user:read", "wallet:balance"},
		MiniAppContext: map[string]any{"room_id": "!room:tween.example"},
	})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(resp.AccessToken, jwtx.TokenPrefix), "TEP tokens carry the tep. prefix")
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, 86400, resp.ExpiresIn)
	require.Equal(t, "user:read wallet:balance", resp.Scope)
	require.Equal(t, aliceID, resp.UserID)
	require.NotEmpty(t, resp.WalletID)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "mat_"+aliceToken, resp.MatrixAccessToken)
	require.True(t, resp.DelegatedSession)

	claims, err := f.codec.Decode(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, aliceID, claims.Subject)
	require.Equal(t, shopAppID, claims.MiniAppID())
	require.Equal(t, "!room:tween.example", claims.MiniAppContext["room_id"])
}

// TestTokenExchange_ConsentFlow walks the consent_required challenge, the
// approval and the retried exchange.
func TestTokenExchange_ConsentFlow(t *testing.T) {
	f := setupBroker(t)
	ctx := t.Context()
	req := authsdk.ExchangeRequest{
		ClientID:     shopAppID,
		SubjectToken: aliceToken,
		Scopes:       []string{"user:read", "wallet:pay"},
	}

	_, err := f.client.TokenExchangeGrant(ctx, req)
	var consent *authsdk.ConsentRequiredError
	require.True(t, errors.As(err, &consent), "expected consent_required, got %v", err)
	require.Equal(t, []string{"wallet:pay"}, consent.RequiredScopes)
	require.Equal(t, []string{"user:read"}, consent.PreApprovedScopes)
	require.NotEmpty(t, consent.SessionID)
	require.Equal(t, "/oauth2/consent?session="+consent.SessionID, consent.ConsentEndpoint)

	ack, err := f.client.SubmitConsent(ctx, consent.SessionID, true)
	require.NoError(t, err)
	require.Equal(t, "Consent recorded successfully", ack.Message)

	resp, err := f.client.TokenExchangeGrant(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "user:read wallet:pay", resp.Scope)

	claims, err := f.codec.Decode(resp.AccessToken)
	require.NoError(t, err)
	require.Len(t, claims.ApprovalHistory, 1)
	require.Equal(t, "wallet:pay", claims.ApprovalHistory[0].Scope)

	t.Run("session is single use", func(t *testing.T) {
		_, err := f.client.SubmitConsent(ctx, consent.SessionID, true)
		oe := assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
		require.Equal(t, "Invalid or expired consent session", oe.Description)
	})
}

func TestConsent_Declined(t *testing.T) {
	f := setupBroker(t)
	ctx := t.Context()

	_, err := f.client.TokenExchangeGrant(ctx, authsdk.ExchangeRequest{
		ClientID: shopAppID, SubjectToken: aliceToken, Scopes: []string{"wallet:pay"},
	})
	var consent *authsdk.ConsentRequiredError
	require.True(t, errors.As(err, &consent))

	_, err = f.client.SubmitConsent(ctx, consent.SessionID, false)
	assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeConsentDeclined)

	// Still not approved.
	_, err = f.client.TokenExchangeGrant(ctx, authsdk.ExchangeRequest{
		ClientID: shopAppID, SubjectToken: aliceToken, Scopes: []string{"wallet:pay"},
	})
	require.True(t, errors.As(err, &consent))
}

func TestConsent_JSONBody(t *testing.T) {
	f := setupBroker(t)

	resp, err := http.Post(f.baseURL+"/v1/oauth2/consent", "application/json",
		strings.NewReader(`{"session":"nope","approved":true}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "invalid_request", body["error"])
	require.Equal(t, "Invalid or expired consent session", body["error_description"])
}

// TestTokenExchange_Errors covers the validation order of the exchange.
func TestTokenExchange_Errors(t *testing.T) {
	f := setupBroker(t)
	ctx := t.Context()

	tests := []struct {
		name   string
		req    authsdk.ExchangeRequest
		status int
		code   string
		desc   string
	}{
		{
			name:   "unknown client",
			req:    authsdk.ExchangeRequest{ClientID: "ma_nope", SubjectToken: aliceToken},
			status: http.StatusUnauthorized,
			code:   authsdk.ErrorCodeInvalidClient,
			desc:   "Unknown client_id",
		},
		{
			name:   "confidential client without secret",
			req:    authsdk.ExchangeRequest{ClientID: vaultAppID, SubjectToken: aliceToken},
			status: http.StatusUnauthorized,
			code:   authsdk.ErrorCodeInvalidClient,
			desc:   "client_secret is required for confidential clients",
		},
		{
			name:   "confidential client wrong secret",
			req:    authsdk.ExchangeRequest{ClientID: vaultAppID, ClientSecret: "wrong", SubjectToken: aliceToken},
			status: http.StatusUnauthorized,
			code:   authsdk.ErrorCodeInvalidClient,
			desc:   "Invalid client credentials",
		},
		{
			name:   "scope outside registration",
			req:    authsdk.ExchangeRequest{ClientID: vaultAppID, ClientSecret: vaultSecret, SubjectToken: aliceToken, Scopes: []string{"wallet:pay"}},
			status: http.StatusBadRequest,
			code:   authsdk.ErrorCodeInvalidScope,
		},
		{
			name:   "inactive subject token",
			req:    authsdk.ExchangeRequest{ClientID: shopAppID, SubjectToken: "syt_revoked"},
			status: http.StatusBadRequest,
			code:   authsdk.ErrorCodeInvalidGrant,
			desc:   "Subject token is not active",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.client.TokenExchangeGrant(ctx, tt.req)
			oe := assertOAuth2Error(t, err, tt.status, tt.code)
			if tt.desc != "" {
				require.Equal(t, tt.desc, oe.Description)
			}
		})
	}

	t.Run("confidential client with secret", func(t *testing.T) {
		resp, err := f.client.TokenExchangeGrant(ctx, authsdk.ExchangeRequest{
			ClientID: vaultAppID, ClientSecret: vaultSecret, SubjectToken: aliceToken, Scopes: []string{"user:read"},
		})
		require.NoError(t, err)
		require.Equal(t, "user:read", resp.Scope)
	})
}

func postForm(t *testing.T, f *brokerFixture, path string, form url.Values) (int, map[string]any) {
	t.Helper()
	resp, err := http.PostForm(f.baseURL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestTokenEndpoint_RequestValidation(t *testing.T) {
	f := setupBroker(t)

	t.Run("unsupported grant", func(t *testing.T) {
		status, body := postForm(t, f, "/v1/oauth2/token", url.Values{"grant_type": {"password"}})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "unsupported_grant_type", body["error"])
	})

	t.Run("missing fields", func(t *testing.T) {
		status, body := postForm(t, f, "/v1/oauth2/token", url.Values{
			"grant_type": {dasclient.GrantTypeTokenExchange},
			"client_id":  {shopAppID},
		})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid_request", body["error"])
		require.Equal(t, "subject_token, subject_token_type and client_id are required", body["error_description"])
	})

	t.Run("wrong subject token type", func(t *testing.T) {
		status, body := postForm(t, f, "/v1/oauth2/token", url.Values{
			"grant_type":         {dasclient.GrantTypeTokenExchange},
			"client_id":          {shopAppID},
			"subject_token":      {aliceToken},
			"subject_token_type": {"urn:ietf:params:oauth:token-type:id_token"},
		})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid_request", body["error"])
	})

	t.Run("malformed miniapp_context", func(t *testing.T) {
		status, body := postForm(t, f, "/v1/oauth2/token", url.Values{
			"grant_type":         {dasclient.GrantTypeTokenExchange},
			"client_id":          {shopAppID},
			"subject_token":      {aliceToken},
			"subject_token_type": {dasclient.TokenTypeAccessToken},
			"miniapp_context":    {"{not json"},
		})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "Invalid miniapp_context JSON", body["error_description"])
	})

	t.Run("json body rejected", func(t *testing.T) {
		resp, err := http.Post(f.baseURL+"/v1/oauth2/token", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

// TestTokenExchange_DelegationFailures maps delegation service errors.
func TestTokenExchange_DelegationFailures(t *testing.T) {
	f := setupBroker(t)
	req := authsdk.ExchangeRequest{ClientID: shopAppID, SubjectToken: aliceToken}

	t.Run("service down", func(t *testing.T) {
		f.das.fail(&dasclient.Error{Kind: dasclient.KindBroker, Op: "introspect", Temporary: true})
		_, err := f.client.TokenExchangeGrant(t.Context(), req)
		assertOAuth2Error(t, err, http.StatusServiceUnavailable, authsdk.ErrorCodeTemporarilyUnavailable)
	})

	t.Run("broker credentials rejected", func(t *testing.T) {
		f.das.fail(&dasclient.Error{Kind: dasclient.KindInvalidCredentials, Op: "introspect", Status: 401})
		_, err := f.client.TokenExchangeGrant(t.Context(), req)
		assertOAuth2Error(t, err, http.StatusInternalServerError, authsdk.ErrorCodeServerError)
	})

	t.Run("invalid subject token", func(t *testing.T) {
		f.das.fail(&dasclient.Error{Kind: dasclient.KindInvalidToken, Op: "introspect", Description: "token is invalid or expired"})
		_, err := f.client.TokenExchangeGrant(t.Context(), req)
		oe := assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant)
		require.Equal(t, "token is invalid or expired", oe.Description)
	})
}

func TestRefreshGrant(t *testing.T) {
	f := setupBroker(t)
	ctx := t.Context()

	session := f.login(t, aliceToken, "user:read")
	first := session.RefreshToken()

	resp, err := f.client.RefreshGrant(ctx, shopAppID, first)
	require.NoError(t, err)
	require.NotEqual(t, first, resp.RefreshToken, "refresh rotates the handle")
	require.Equal(t, "user:read", resp.Scope)
	require.Equal(t, aliceID, resp.UserID)
	require.Equal(t, session.WalletID(), resp.WalletID)
	require.NotEmpty(t, resp.WalletID)

	t.Run("unknown handle", func(t *testing.T) {
		_, err := f.client.RefreshGrant(ctx, shopAppID, "rt_unknown")
		oe := assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant)
		require.Equal(t, "Refresh token expired or invalid", oe.Description)
	})

	t.Run("revoked handle", func(t *testing.T) {
		require.NoError(t, f.client.RevokeToken(ctx, shopAppID, resp.RefreshToken, "refresh_token"))
		_, err := f.client.RefreshGrant(ctx, shopAppID, resp.RefreshToken)
		assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant)
	})
}

// TestAuthorizationCodeFlow starts a browser authorization and completes it
// with the PKCE verifier and the user's chat token.
func TestAuthorizationCodeFlow(t *testing.T) {
	f := setupBroker(t)
	ctx := t.Context()

	pkce, err := authsdk.GeneratePKCEChallenge()
	require.NoError(t, err)

	location, err := f.client.StartAuthorization(ctx, shopAppID, shopRedirect, "client-state",
		[]string{"user:read"}, pkce)
	require.NoError(t, err)

	u, err := url.Parse(location)
	require.NoError(t, err)
	require.Equal(t, "mas.test", u.Host)
	requestID := u.Query().Get("state")
	require.NotEmpty(t, requestID)
	require.NotEqual(t, "client-state", requestID, "state is replaced with the request id")

	t.Run("omitted verifier", func(t *testing.T) {
		_, err := f.client.AuthorizationGrant(ctx, shopAppID, requestID, aliceToken, "")
		oe := assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant)
		require.Equal(t, "code_verifier is required", oe.Description)
	})

	t.Run("wrong verifier", func(t *testing.T) {
		_, err := f.client.AuthorizationGrant(ctx, shopAppID, requestID, aliceToken, "wrong-verifier")
		assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant)
	})

	resp, err := f.client.AuthorizationGrant(ctx, shopAppID, requestID, aliceToken, pkce.Verifier)
	require.NoError(t, err)
	require.Equal(t, aliceID, resp.UserID)
	require.Equal(t, "user:read", resp.Scope)

	t.Run("request is single use", func(t *testing.T) {
		_, err := f.client.AuthorizationGrant(ctx, shopAppID, requestID, aliceToken, pkce.Verifier)
		assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant)
	})
}

func TestAuthorize_Errors(t *testing.T) {
	f := setupBroker(t)
	ctx := t.Context()

	pkce, err := authsdk.GeneratePKCEChallenge()
	require.NoError(t, err)

	t.Run("unknown client is a bad request", func(t *testing.T) {
		_, err := f.client.StartAuthorization(ctx, "ma_nope", shopRedirect, "s", []string{"user:read"}, pkce)
		assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidClient)
	})

	t.Run("unregistered redirect", func(t *testing.T) {
		_, err := f.client.StartAuthorization(ctx, shopAppID, "https://evil.example/cb", "s", []string{"user:read"}, pkce)
		assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})

	t.Run("unknown scope", func(t *testing.T) {
		_, err := f.client.StartAuthorization(ctx, shopAppID, shopRedirect, "s", []string{"admin:all"}, pkce)
		assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidScope)
	})

	t.Run("missing PKCE", func(t *testing.T) {
		_, err := f.client.StartAuthorization(ctx, shopAppID, shopRedirect, "s", []string{"user:read"}, nil)
		assertOAuth2Error(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})
}

func TestIntrospect(t *testing.T) {
	f := setupBroker(t)
	ctx := t.Context()

	session := f.login(t, aliceToken, "user:read")

	info, err := f.client.Introspect(ctx, session.AccessToken())
	require.NoError(t, err)
	require.True(t, info.Active)
	require.Equal(t, aliceID, info.Sub)
	require.Equal(t, shopAppID, info.ClientID)
	require.Equal(t, "user:read", info.Scope)
	require.NotEmpty(t, info.WalletID)
	require.Greater(t, info.Exp, info.Iat)

	info, err = f.client.Introspect(ctx, "tep.not.a.token")
	require.NoError(t, err)
	require.False(t, info.Active, "invalid tokens are inactive, not errors")
}

func TestRevoke_ForwardsChatTokens(t *testing.T) {
	f := setupBroker(t)

	require.NoError(t, f.client.RevokeToken(t.Context(), shopAppID, aliceToken, "access_token"))
	require.Equal(t, []string{aliceToken}, f.das.revoked)

	status, _ := postForm(t, f, "/v1/oauth2/revoke", url.Values{"token": {"rt_never_issued"}})
	require.Equal(t, http.StatusOK, status)
}
