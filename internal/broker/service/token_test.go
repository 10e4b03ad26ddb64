package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mona-chen/jean/internal/broker/cache"
	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/pkg/cryptox"
	"github.com/mona-chen/jean/pkg/dasclient"
	"github.com/mona-chen/jean/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func exchangeReq(scopes ...string) ExchangeRequest {
	return ExchangeRequest{
		ClientID:         "ma_shop",
		SubjectToken:     "syt_alice",
		SubjectTokenType: dasclient.TokenTypeAccessToken,
		Scopes:           scopes,
	}
}

func TestExchange_NonSensitiveScopes(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	req := exchangeReq("user:read", "wallet:balance")
	req.MiniAppContext = map[string]any{"room_id": "!r:tween.example"}
	bundle, err := f.svc.Exchange(ctx, req)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(bundle.AccessToken, jwtx.TokenPrefix))
	require.Equal(t, "Bearer", bundle.TokenType)
	require.EqualValues(t, 86400, bundle.ExpiresIn)
	require.Equal(t, "user:read wallet:balance", bundle.Scope)
	require.Equal(t, "@alice:tween.example", bundle.UserID)
	require.Equal(t, "tw__alice_tween.example", bundle.WalletID)
	require.Equal(t, "syt_alice", bundle.MatrixAccessToken)
	require.True(t, bundle.DelegatedSession)
	require.True(t, strings.HasPrefix(bundle.RefreshToken, "rt_"))

	claims, err := f.svc.Codec.Decode(bundle.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "@alice:tween.example", claims.Subject)
	require.Equal(t, "ma_shop", claims.MiniAppID())
	require.Equal(t, "Alice", claims.UserContext.DisplayName)
	require.Equal(t, "!r:tween.example", claims.MiniAppContext["room_id"])
	require.True(t, strings.HasPrefix(claims.SessionID, "sess_"))

	var rec domain.RefreshRecord
	require.NoError(t, cache.GetJSON(ctx, f.cache, cache.PrefixRefreshToken+bundle.RefreshToken, &rec))
	require.Equal(t, "@alice:tween.example", rec.UserID)
	require.Equal(t, []string{"user:read", "wallet:balance"}, rec.Scope)

	f.svc.Wait()
	require.Equal(t, []string{"@alice:tween.example"}, f.wallets.users)
}

func TestExchange_ConsentFlow(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	_, err := f.svc.Exchange(ctx, exchangeReq("user:read", "wallet:pay"))
	var consent *ConsentRequiredError
	require.ErrorAs(t, err, &consent)
	require.Equal(t, []string{"wallet:pay"}, consent.RequiredScopes)
	require.Equal(t, []string{"user:read"}, consent.PreApprovedScopes)
	require.NotEmpty(t, consent.SessionID)

	_, err = f.svc.Consent.Submit(ctx, consent.SessionID, true)
	require.NoError(t, err)

	bundle, err := f.svc.Exchange(ctx, exchangeReq("user:read", "wallet:pay"))
	require.NoError(t, err)
	require.Equal(t, "user:read wallet:pay", bundle.Scope)

	claims, err := f.svc.Codec.Decode(bundle.AccessToken)
	require.NoError(t, err)
	require.Len(t, claims.ApprovalHistory, 1)
	require.Equal(t, "wallet:pay", claims.ApprovalHistory[0].Scope)
	require.Equal(t, domain.ApprovalMethodUserConsent, claims.ApprovalHistory[0].ApprovalMethod)

	// The session was consumed.
	_, err = f.svc.Consent.Submit(ctx, consent.SessionID, true)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestExchange_ConsentDeclined(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	_, err := f.svc.Exchange(ctx, exchangeReq("wallet:pay"))
	var consent *ConsentRequiredError
	require.ErrorAs(t, err, &consent)

	_, err = f.svc.Consent.Submit(ctx, consent.SessionID, false)
	require.ErrorIs(t, err, ErrConsentDeclined)
	require.Equal(t, "User declined consent", Description(err))

	// Nothing was recorded, so consent is asked again.
	_, err = f.svc.Exchange(ctx, exchangeReq("wallet:pay"))
	require.ErrorAs(t, err, &consent)
}

func TestExchange_Validation(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	hash, err := f.svc.Hasher.Hash("s3cret")
	require.NoError(t, err)
	seedApp(t, f.store, domain.MiniApp{
		AppID:      "ma_bank",
		ClientType: domain.ClientTypeConfidential,
		Status:     domain.MiniAppActive,
		SecretHash: hash,
	})
	seedApp(t, f.store, domain.MiniApp{
		AppID:      "ma_old",
		ClientType: domain.ClientTypePublic,
		Status:     domain.MiniAppDeprecated,
	})

	tests := []struct {
		name   string
		mutate func(*ExchangeRequest)
		target error
		desc   string
	}{
		{"missing subject", func(r *ExchangeRequest) { r.SubjectToken = "" }, ErrInvalidRequest,
			"subject_token, subject_token_type and client_id are required"},
		{"wrong token type", func(r *ExchangeRequest) { r.SubjectTokenType = "jwt" }, ErrInvalidRequest,
			"subject_token_type must be " + dasclient.TokenTypeAccessToken},
		{"unknown client", func(r *ExchangeRequest) { r.ClientID = "ma_nope" }, ErrInvalidClient, "Unknown client_id"},
		{"inactive client", func(r *ExchangeRequest) { r.ClientID = "ma_old" }, ErrInvalidClient, "Mini-app not found or inactive"},
		{"confidential without secret", func(r *ExchangeRequest) { r.ClientID = "ma_bank" }, ErrInvalidClient,
			"client_secret is required for confidential clients"},
		{"confidential wrong secret", func(r *ExchangeRequest) { r.ClientID = "ma_bank"; r.ClientSecret = "nope" },
			ErrInvalidClient, "Invalid client credentials"},
		{"unregistered scope", func(r *ExchangeRequest) { r.Scopes = []string{"storage:write"} }, ErrInvalidScope, ""},
		{"inactive subject", func(r *ExchangeRequest) { r.SubjectToken = "syt_gone" }, ErrInvalidGrant,
			"Subject token is not active"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := exchangeReq("user:read")
			tc.mutate(&req)
			_, err := f.svc.Exchange(ctx, req)
			require.ErrorIs(t, err, tc.target)
			if tc.desc != "" {
				require.Equal(t, tc.desc, Description(err))
			}
		})
	}

	t.Run("confidential with secret", func(t *testing.T) {
		req := exchangeReq("user:read")
		req.ClientID = "ma_bank"
		req.ClientSecret = "s3cret"
		_, err := f.svc.Exchange(ctx, req)
		require.NoError(t, err)
	})
}

func TestExchange_SubjectWithoutUser(t *testing.T) {
	f := newTokenFixture(t)
	f.das.tokens["syt_anon"] = &dasclient.Introspection{Active: true}

	req := exchangeReq("user:read")
	req.SubjectToken = "syt_anon"
	_, err := f.svc.Exchange(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidGrant)
	require.Equal(t, "Matrix token does not contain valid user ID", Description(err))
}

func TestExchange_DelegationErrorsPassThrough(t *testing.T) {
	f := newTokenFixture(t)
	f.das.err = &dasclient.Error{Kind: dasclient.KindBroker, Op: "introspect", Temporary: true}

	_, err := f.svc.Exchange(context.Background(), exchangeReq("user:read"))
	require.True(t, dasclient.IsTemporary(err))
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	first, err := f.svc.Exchange(ctx, exchangeReq("user:read"))
	require.NoError(t, err)

	next, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, next.RefreshToken)
	require.NotEqual(t, first.AccessToken, next.AccessToken)
	require.Equal(t, "user:read", next.Scope)
	require.Equal(t, "@alice:tween.example", next.UserID)
	require.Equal(t, "tw__alice_tween.example", next.WalletID)

	claims, err := f.svc.Codec.Decode(next.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "tw__alice_tween.example", claims.WalletID)

	// The old handle stays valid until it expires.
	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, "rt_unknown")
	require.ErrorIs(t, err, ErrInvalidGrant)
	require.Equal(t, "Refresh token expired or invalid", Description(err))
}

func TestRefresh_UserGone(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	require.NoError(t, cache.SetJSON(ctx, f.cache, cache.PrefixRefreshToken+"rt_ghost",
		domain.RefreshRecord{UserID: "@ghost:tween.example", MiniAppID: "ma_shop"}, DefaultRefreshTTL))

	_, err := f.svc.Refresh(ctx, "rt_ghost")
	require.ErrorIs(t, err, ErrInvalidGrant)
	require.Equal(t, "User not found", Description(err))
}

func TestExchangeAuthorizationCode(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	challenge := s256ForTest(verifier)

	authz := &AuthorizeService{Store: f.store, Cache: f.cache}
	redirect, err := authz.Begin(ctx, AuthorizeRequest{
		ResponseType:        "code",
		ClientID:            "ma_shop",
		RedirectURI:         "https://shop.example/cb",
		Scope:               []string{"user:read", "wallet:pay"},
		State:               "xyz",
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)
	requestID := stateFrom(t, redirect)

	t.Run("missing matrix token", func(t *testing.T) {
		_, err := f.svc.ExchangeAuthorizationCode(ctx, AuthorizationCodeRequest{ClientID: "ma_shop", RequestID: requestID})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("bad verifier", func(t *testing.T) {
		_, err := f.svc.ExchangeAuthorizationCode(ctx, AuthorizationCodeRequest{
			ClientID: "ma_shop", RequestID: requestID, MatrixAccessToken: "syt_alice", CodeVerifier: "wrong",
		})
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("missing verifier", func(t *testing.T) {
		_, err := f.svc.ExchangeAuthorizationCode(ctx, AuthorizationCodeRequest{
			ClientID: "ma_shop", RequestID: requestID, MatrixAccessToken: "syt_alice",
		})
		require.ErrorIs(t, err, ErrInvalidGrant)
		require.Equal(t, "code_verifier is required", Description(err))
	})

	t.Run("client mismatch", func(t *testing.T) {
		_, err := f.svc.ExchangeAuthorizationCode(ctx, AuthorizationCodeRequest{
			ClientID: "ma_other", RequestID: requestID, MatrixAccessToken: "syt_alice",
		})
		require.ErrorIs(t, err, ErrInvalidGrant)
	})

	bundle, err := f.svc.ExchangeAuthorizationCode(ctx, AuthorizationCodeRequest{
		ClientID: "ma_shop", RequestID: requestID, MatrixAccessToken: "syt_alice", CodeVerifier: verifier,
	})
	require.NoError(t, err)
	require.Equal(t, "user:read wallet:pay", bundle.Scope)

	_, err = f.svc.ExchangeAuthorizationCode(ctx, AuthorizationCodeRequest{
		ClientID: "ma_shop", RequestID: requestID, MatrixAccessToken: "syt_alice",
	})
	require.ErrorIs(t, err, ErrInvalidGrant)
	require.Equal(t, "Authorization request not found", Description(err))
}

func TestIntrospect(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	bundle, err := f.svc.Exchange(ctx, exchangeReq("user:read"))
	require.NoError(t, err)

	info := f.svc.Introspect(ctx, bundle.AccessToken)
	require.True(t, info.Active)
	require.Equal(t, "@alice:tween.example", info.Subject)
	require.Equal(t, "ma_shop", info.Audience)
	require.Equal(t, "user:read", info.Scope)
	require.Equal(t, jwtx.TokenTypeTEP, info.TokenType)
	require.Equal(t, int64(86400), info.Exp-info.Iat)

	require.False(t, f.svc.Introspect(ctx, "tep.garbage").Active)
	require.False(t, f.svc.Introspect(ctx, "").Active)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	f := newTokenFixture(t)

	bundle, err := f.svc.Exchange(ctx, exchangeReq("user:read"))
	require.NoError(t, err)

	f.svc.Revoke(ctx, bundle.RefreshToken, "")
	_, err = f.svc.Refresh(ctx, bundle.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidGrant)
	require.Empty(t, f.das.revoked)

	f.svc.Revoke(ctx, "syt_alice", "access_token")
	require.Equal(t, []string{"syt_alice"}, f.das.revoked)

	_, err = f.svc.Refresh(ctx, "anything")
	require.True(t, errors.Is(err, ErrInvalidGrant))
}
