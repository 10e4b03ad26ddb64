package authsdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mona-chen/jean/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	mu     sync.Mutex
	forms  []map[string]string
	bearer []string
	mux    *http.ServeMux
}

func newFakeBroker(t *testing.T) (*fakeBroker, *authsdk.SDKClient) {
	f := &fakeBroker{mux: http.NewServeMux()}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		f.mu.Lock()
		f.forms = append(f.forms, form)
		f.bearer = append(f.bearer, r.Header.Get("Authorization"))
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, authsdk.NewSDKClient(srv.URL + "/")
}

func (f *fakeBroker) lastForm() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[len(f.forms)-1]
}

func (f *fakeBroker) lastBearer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bearer[len(f.bearer)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestTokenExchangeGrant_SendsForm(t *testing.T) {
	f, client := newFakeBroker(t)
	f.mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "tep.abc", "token_type": "Bearer", "expires_in": 86400,
			"refresh_token": "rt_x", "scope": "user:read", "user_id": "@alice:h",
			"wallet_id": "tw_alice_h", "matrix_access_token": "mat_1", "matrix_expires_in": 300,
			"delegated_session": true,
		})
	})

	tok, err := client.TokenExchangeGrant(context.Background(), authsdk.ExchangeRequest{
		ClientID:       "ma_shop",
		SubjectToken:   "syt_alice",
		Scopes:         []string{"user:read", "wallet:pay"},
		MiniAppContext: map[string]any{"room_id": "!r:h"},
	})
	require.NoError(t, err)
	require.Equal(t, "tep.abc", tok.AccessToken)
	require.Equal(t, "tw_alice_h", tok.WalletID)
	require.True(t, tok.DelegatedSession)

	form := f.lastForm()
	require.Equal(t, authsdk.GrantTypeTokenExchange, form["grant_type"])
	require.Equal(t, authsdk.TokenTypeAccessToken, form["subject_token_type"])
	require.Equal(t, "syt_alice", form["subject_token"])
	require.Equal(t, "user:read wallet:pay", form["scope"])
	require.JSONEq(t, `{"room_id":"!r:h"}`, form["miniapp_context"])
	require.NotContains(t, form, "client_secret")
}

func TestTokenExchangeGrant_ConsentRequired(t *testing.T) {
	f, client := newFakeBroker(t)
	f.mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		(&authsdk.ConsentRequiredError{
			RequiredScopes:    []string{"wallet:pay"},
			PreApprovedScopes: []string{"user:read"},
			ConsentEndpoint:   "/oauth2/consent?session=abc123",
		}).WriteError(w)
	})
	f.mux.HandleFunc("POST /v1/oauth2/consent", func(w http.ResponseWriter, r *http.Request) {
		if r.PostForm.Get("approved") != "true" {
			authsdk.ErrConsentDeclined.WriteError(w)
			return
		}
		writeJSON(w, http.StatusOK, authsdk.ConsentResponse{Message: "Consent recorded successfully"})
	})

	_, err := client.TokenExchangeGrant(context.Background(), authsdk.ExchangeRequest{ClientID: "ma_shop", SubjectToken: "syt"})
	var consent *authsdk.ConsentRequiredError
	require.ErrorAs(t, err, &consent)
	require.Equal(t, []string{"wallet:pay"}, consent.RequiredScopes)
	require.Equal(t, []string{"user:read"}, consent.PreApprovedScopes)
	require.Equal(t, "abc123", consent.SessionID)

	resp, err := client.SubmitConsent(context.Background(), consent.SessionID, true)
	require.NoError(t, err)
	require.Equal(t, "Consent recorded successfully", resp.Message)
	require.Equal(t, "abc123", f.lastForm()["session"])

	_, err = client.SubmitConsent(context.Background(), consent.SessionID, false)
	require.ErrorIs(t, err, authsdk.ErrConsentDeclined)
}

func TestErrors_MatchPredefined(t *testing.T) {
	f, client := newFakeBroker(t)
	f.mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		authsdk.ErrInvalidGrant.WithDescription("Matrix token is not active").WriteError(w)
	})

	_, err := client.RefreshGrant(context.Background(), "ma_shop", "rt_nope")
	require.ErrorIs(t, err, authsdk.ErrInvalidGrant)

	var oe *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oe)
	require.Equal(t, "Matrix token is not active", oe.Description)
}

func TestSession_RefreshesAndRotates(t *testing.T) {
	f, client := newFakeBroker(t)
	f.mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if r.PostForm.Get("refresh_token") != "rt_old" {
			authsdk.ErrInvalidGrant.WriteError(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "tep.new", "token_type": "Bearer", "expires_in": 86400,
			"refresh_token": "rt_new", "scope": "wallet:pay",
		})
	})
	f.mux.HandleFunc("POST /v1/wallet/p2p/p2p_1/accept", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"transfer_id": "p2p_1", "status": "completed"})
	})

	// Already inside the 30 second refresh window.
	session := client.NewSessionFromTokens("ma_shop", "tep.old", "rt_old", "wallet:pay", 10)

	tr, err := session.AcceptP2P(context.Background(), "p2p_1")
	require.NoError(t, err)
	require.Equal(t, "completed", tr.Status)
	require.Equal(t, "Bearer tep.new", f.lastBearer())
	require.Equal(t, "rt_new", session.RefreshToken())
}

func TestSession_InitiateP2P(t *testing.T) {
	f, client := newFakeBroker(t)
	f.mux.HandleFunc("POST /v1/wallet/p2p/initiate", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.InitiateP2PRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Recipient == "@nobody:h" {
			(&authsdk.RecipientNoWalletError{Recipient: req.Recipient, CanInvite: true, InviteURL: authsdk.InviteWalletURL}).WriteError(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"transfer_id": "p2p_1", "status": "pending_recipient_acceptance",
			"amount": json.Number(req.Amount), "event_id": "$ev1",
		})
	})

	session := client.NewSessionFromTokens("ma_shop", "tep.tok", "rt", "wallet:pay", 3600)
	tr, err := session.InitiateP2P(context.Background(), authsdk.InitiateP2PRequest{
		Recipient: "@bob:h", Amount: "5000.00", Currency: "USD", IdempotencyKey: "k1", RoomID: "!r:h",
	})
	require.NoError(t, err)
	require.Equal(t, "$ev1", tr.EventID)
	require.Equal(t, json.Number("5000.00"), tr.Amount)
	require.Equal(t, "Bearer tep.tok", f.lastBearer())

	_, err = session.InitiateP2P(context.Background(), authsdk.InitiateP2PRequest{
		Recipient: "@nobody:h", Amount: "1", Currency: "USD", IdempotencyKey: "k2",
	})
	var noWallet *authsdk.RecipientNoWalletError
	require.True(t, errors.As(err, &noWallet))
	require.Equal(t, "@nobody:h", noWallet.Recipient)
	require.Equal(t, authsdk.InviteWalletURL, noWallet.InviteURL)
}

func TestSession_ClientSideScopeCheck(t *testing.T) {
	_, client := newFakeBroker(t)
	session := client.NewSessionFromTokens("ma_shop", "tep.tok", "rt", "user:read", 3600)

	_, err := session.InitiateP2P(context.Background(), authsdk.InitiateP2PRequest{Recipient: "@bob:h"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "wallet:pay")
}

func TestStartAuthorization_ReturnsLocation(t *testing.T) {
	f, client := newFakeBroker(t)
	f.mux.HandleFunc("GET /v1/oauth2/authorize", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code_challenge_method") != "S256" {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
		http.Redirect(w, r, "https://mas.example/authorize?state=req1", http.StatusFound)
	})

	pkce, err := authsdk.GeneratePKCEChallenge()
	require.NoError(t, err)

	loc, err := client.StartAuthorization(context.Background(), "ma_shop", "https://shop/cb", "s1", []string{"user:read"}, pkce)
	require.NoError(t, err)
	require.Equal(t, "https://mas.example/authorize?state=req1", loc)

	_, err = client.StartAuthorization(context.Background(), "ma_shop", "https://shop/cb", "s1", nil, nil)
	require.ErrorIs(t, err, authsdk.ErrInvalidRequest)
}

func TestSession_RetriesOnceAfterInvalidToken(t *testing.T) {
	f, client := newFakeBroker(t)
	f.mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "tep.rotated", "token_type": "Bearer", "expires_in": 86400,
			"refresh_token": "rt_2", "scope": "wallet:pay", "user_id": "@alice:h", "wallet_id": "tw_alice",
		})
	})
	f.mux.HandleFunc("POST /v1/wallet/p2p/p2p_1/accept", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tep.rotated" {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transfer_id": "p2p_1", "status": "completed"})
	})

	session := client.NewSessionFromTokens("ma_shop", "tep.revoked", "rt_1", "wallet:pay", 3600)

	tr, err := session.AcceptP2P(context.Background(), "p2p_1")
	require.NoError(t, err)
	require.Equal(t, "completed", tr.Status)
	require.Equal(t, "rt_2", session.RefreshToken())
	require.Equal(t, "@alice:h", session.UserID())
	require.Equal(t, "tw_alice", session.WalletID())
	require.True(t, session.ExpiresAt().After(time.Now().Add(time.Hour)))
}

func TestSession_NoRetryWithoutRefreshHandle(t *testing.T) {
	f, client := newFakeBroker(t)
	f.mux.HandleFunc("POST /v1/wallet/p2p/p2p_1/accept", func(w http.ResponseWriter, r *http.Request) {
		authsdk.ErrInvalidToken.WriteError(w)
	})

	session := client.NewSessionFromTokens("ma_shop", "tep.revoked", "", "wallet:pay", 3600)

	_, err := session.AcceptP2P(context.Background(), "p2p_1")
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}

func TestSession_RevokeClearsTokens(t *testing.T) {
	f, client := newFakeBroker(t)
	f.mux.HandleFunc("POST /v1/oauth2/revoke", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	session := client.NewSessionFromTokens("ma_shop", "tep.tok", "rt_1", "wallet:pay", 3600)
	require.NoError(t, session.Revoke(context.Background()))
	require.Equal(t, "rt_1", f.lastForm()["token"])
	require.Equal(t, "refresh_token", f.lastForm()["token_type_hint"])
	require.Empty(t, session.AccessToken())

	_, err := session.AcceptP2P(context.Background(), "p2p_1")
	require.ErrorIs(t, err, authsdk.ErrSessionClosed)
	require.ErrorIs(t, session.Revoke(context.Background()), authsdk.ErrSessionClosed)
}

func TestAuthenticateWithCode(t *testing.T) {
	f, client := newFakeBroker(t)
	f.mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "tep.code", "token_type": "Bearer", "expires_in": 86400,
			"refresh_token": "rt_code", "scope": "user:read",
		})
	})

	session, err := client.AuthenticateWithCode(context.Background(), "ma_shop", "req1", "mat_tok", "verifier")
	require.NoError(t, err)
	require.Equal(t, "tep.code", session.AccessToken())
	require.True(t, session.HasScope("user:read"))

	form := f.lastForm()
	require.Equal(t, "authorization_code", form["grant_type"])
	require.Equal(t, "req1", form["state"])
	require.Equal(t, "verifier", form["code_verifier"])
}
