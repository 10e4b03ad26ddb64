package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mona-chen/jean/internal/broker/cache"
	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/store"
	"github.com/mona-chen/jean/pkg/cryptox"
	"github.com/mona-chen/jean/pkg/dasclient"
	"github.com/mona-chen/jean/pkg/jwtx"
	"github.com/mona-chen/jean/pkg/slogx"
)

const (
	GrantTypeTokenExchange     = dasclient.GrantTypeTokenExchange
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"

	// DefaultRefreshTTL is the lifetime of a refresh handle.
	DefaultRefreshTTL = 30 * 24 * time.Hour

	// DefaultRegistrationTimeout bounds the background wallet registration.
	DefaultRegistrationTimeout = 10 * time.Second

	refreshPrefix = "rt_"
)

// DelegationBroker is the subset of the delegation service client the
// token service needs.
type DelegationBroker interface {
	Introspect(ctx context.Context, token string) (*dasclient.Introspection, error)
	ExchangeForSession(ctx context.Context, subjectToken string) *dasclient.Token
	Revoke(ctx context.Context, token, hint string)
}

// WalletRegistrar creates the ledger wallet for a newly delegated user.
type WalletRegistrar interface {
	RegisterWallet(ctx context.Context, userID, sessionToken string) error
}

// ExchangeRequest is a token-exchange grant.
type ExchangeRequest struct {
	ClientID         string
	ClientSecret     string
	SubjectToken     string
	SubjectTokenType string
	Scopes           []string
	MiniAppContext   map[string]any
}

// AuthorizationCodeRequest completes a browser authorization.
type AuthorizationCodeRequest struct {
	ClientID          string
	RequestID         string // the state returned by the delegation service
	MatrixAccessToken string
	CodeVerifier      string
}

// Introspection is the RFC 7662 view of a TEP token.
type Introspection struct {
	Active    bool   `json:"active"`
	Subject   string `json:"sub,omitempty"`
	Audience  string `json:"aud,omitempty"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	JTI       string `json:"jti,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	WalletID  string `json:"wallet_id,omitempty"`
}

// TokenService is the token endpoint's core: it validates grants, adjudicates
// consent and mints TEP tokens.
type TokenService struct {
	Codec   *jwtx.Codec
	Store   store.Store
	Cache   cache.KV
	DAS     DelegationBroker
	Wallets WalletRegistrar
	Consent *ConsentResolver
	Users   *UserService
	Hasher  cryptox.SecretHasher

	RefreshTTL          time.Duration
	RegistrationTimeout time.Duration

	bg sync.WaitGroup
}

// Wait blocks until background wallet registrations have finished.
func (s *TokenService) Wait() { s.bg.Wait() }

// Exchange implements the token-exchange grant.
func (s *TokenService) Exchange(ctx context.Context, req ExchangeRequest) (*domain.TokenBundle, error) {
	l := slogx.FromContext(ctx)

	if req.SubjectToken == "" || req.SubjectTokenType == "" || req.ClientID == "" {
		return nil, describe(ErrInvalidRequest, "subject_token, subject_token_type and client_id are required")
	}
	if req.SubjectTokenType != dasclient.TokenTypeAccessToken {
		return nil, describe(ErrInvalidRequest, "subject_token_type must be %s", dasclient.TokenTypeAccessToken)
	}

	app, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if outside := app.ScopesOutside(req.Scopes); len(outside) > 0 {
		return nil, describe(ErrInvalidScope, "Scopes not registered for this mini-app: %s", strings.Join(outside, ", "))
	}

	intro, user, err := s.introspectSubject(ctx, req.SubjectToken, "Subject token is not active")
	if err != nil {
		return nil, err
	}

	decision, err := s.Consent.Resolve(ctx, user.MatrixUserID, app.AppID, req.Scopes)
	if err != nil {
		return nil, err
	}
	if decision.ConsentRequired {
		l.Info("consent required",
			slog.String("matrix_user_id", user.MatrixUserID),
			slog.String("miniapp_id", app.AppID),
			slog.Any("scopes", decision.ConsentRequiredScopes),
		)
		return nil, &ConsentRequiredError{
			SessionID:         decision.SessionID,
			RequiredScopes:    decision.ConsentRequiredScopes,
			PreApprovedScopes: decision.PreApprovedScopes,
		}
	}

	return s.issue(ctx, user, app.AppID, decision.AuthorizedScopes, req.MiniAppContext, intro, req.SubjectToken)
}

// ExchangeAuthorizationCode completes a browser authorization started by
// AuthorizeService.Begin. Scopes were fixed at authorize time, so consent is
// not re-evaluated. The authorization request is single use.
func (s *TokenService) ExchangeAuthorizationCode(ctx context.Context, req AuthorizationCodeRequest) (*domain.TokenBundle, error) {
	var ar domain.AuthRequest
	key := cache.PrefixAuthRequest + req.RequestID
	if req.RequestID == "" {
		return nil, describe(ErrInvalidGrant, "Authorization request not found")
	}
	if err := cache.GetJSON(ctx, s.Cache, key, &ar); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, describe(ErrInvalidGrant, "Authorization request not found")
		}
		return nil, err
	}

	if req.MatrixAccessToken == "" {
		return nil, describe(ErrInvalidRequest, "matrix_access_token is required")
	}
	if req.ClientID != "" && req.ClientID != ar.ClientID {
		return nil, describe(ErrInvalidGrant, "client_id does not match the authorization request")
	}
	if ar.CodeChallenge != "" {
		if req.CodeVerifier == "" {
			return nil, describe(ErrInvalidGrant, "code_verifier is required")
		}
		if !verifyS256(ar.CodeChallenge, req.CodeVerifier) {
			return nil, describe(ErrInvalidGrant, "PKCE verification failed")
		}
	}

	app, err := s.Store.MiniApps().GetMiniApp(ctx, ar.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, describe(ErrInvalidClient, "Unknown client_id")
		}
		return nil, err
	}

	intro, user, err := s.introspectSubject(ctx, req.MatrixAccessToken, "Matrix token is not active")
	if err != nil {
		return nil, err
	}

	bundle, err := s.issue(ctx, user, app.AppID, ar.Scope, nil, intro, req.MatrixAccessToken)
	if err != nil {
		return nil, err
	}

	if err := s.Cache.Delete(ctx, key); err != nil {
		slogx.FromContext(ctx).Warn("failed to delete authorization request", "err", err)
	}
	return bundle, nil
}

// Refresh implements the refresh_token grant. The record is copied under a
// new handle and the old handle is left to expire, so a client retrying a
// refresh it never saw the answer to still succeeds.
func (s *TokenService) Refresh(ctx context.Context, handle string) (*domain.TokenBundle, error) {
	var rec domain.RefreshRecord
	if handle == "" {
		return nil, describe(ErrInvalidGrant, "Refresh token expired or invalid")
	}
	if err := cache.GetJSON(ctx, s.Cache, cache.PrefixRefreshToken+handle, &rec); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, describe(ErrInvalidGrant, "Refresh token expired or invalid")
		}
		return nil, err
	}

	user, err := s.Users.Lookup(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, describe(ErrInvalidGrant, "User not found")
		}
		return nil, err
	}

	approvals, err := s.Consent.ApprovalHistory(ctx, user.MatrixUserID, rec.MiniAppID, rec.Scope)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.Codec.Mint(jwtx.TEPParams{
		Subject:   user.MatrixUserID,
		MiniAppID: rec.MiniAppID,
		Scopes:    rec.Scope,
		WalletID:  user.WalletID,
		SessionID: cryptox.PrefixedToken("sess_", 24),
		Approvals: approvals,
	})
	if err != nil {
		return nil, err
	}

	next, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.Cache, cache.PrefixRefreshToken+next, rec, s.refreshTTL()); err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("refreshed TEP token",
		slog.String("matrix_user_id", user.MatrixUserID),
		slog.String("miniapp_id", rec.MiniAppID),
		slog.String("jti", claims.ID),
	)

	return &domain.TokenBundle{
		AccessToken:  jwtx.TokenPrefix + token,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn(claims),
		RefreshToken: next,
		Scope:        strings.Join(rec.Scope, " "),
		UserID:       user.MatrixUserID,
		WalletID:     user.WalletID,
	}, nil
}

// Introspect reports whether token is a valid TEP token. Any decode failure
// is simply inactive.
func (s *TokenService) Introspect(ctx context.Context, token string) Introspection {
	claims, err := s.Codec.Decode(token)
	if err != nil {
		slogx.FromContext(ctx).Debug("introspected inactive token", "err", err)
		return Introspection{Active: false}
	}

	return Introspection{
		Active:    true,
		Subject:   claims.Subject,
		Audience:  claims.MiniAppID(),
		Scope:     claims.Scope,
		ClientID:  claims.ClientID,
		Exp:       claims.ExpiresAt.Unix(),
		Iat:       claims.IssuedAt.Unix(),
		JTI:       claims.ID,
		TokenType: claims.TokenType,
		WalletID:  claims.WalletID,
	}
}

// Revoke drops a refresh handle or forwards any other token to the
// delegation service. It never fails.
func (s *TokenService) Revoke(ctx context.Context, token, hint string) {
	if token == "" {
		return
	}
	if hint == GrantTypeRefreshToken || strings.HasPrefix(token, refreshPrefix) {
		if err := s.Cache.Delete(ctx, cache.PrefixRefreshToken+token); err != nil {
			slogx.FromContext(ctx).Warn("failed to revoke refresh token",
				"token", slogx.Redact(token), "err", err)
		}
		return
	}
	s.DAS.Revoke(ctx, token, hint)
}

func (s *TokenService) authenticateClient(ctx context.Context, clientID, secret string) (domain.MiniApp, error) {
	app, err := s.Store.MiniApps().GetMiniApp(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.MiniApp{}, describe(ErrInvalidClient, "Unknown client_id")
		}
		return domain.MiniApp{}, err
	}
	if !app.IsActive() {
		return domain.MiniApp{}, describe(ErrInvalidClient, "Mini-app not found or inactive")
	}

	if app.RequiresSecret() {
		if secret == "" {
			return domain.MiniApp{}, describe(ErrInvalidClient, "client_secret is required for confidential clients")
		}
		if s.Hasher.Verify(secret, app.SecretHash) != nil {
			slogx.FromContext(ctx).Info("client authentication failed", slog.String("client_id", clientID))
			return domain.MiniApp{}, describe(ErrInvalidClient, "Invalid client credentials")
		}
	}
	return app, nil
}

// introspectSubject validates a chat session token and provisions its user.
// Delegation service errors are returned unchanged for the caller to map.
func (s *TokenService) introspectSubject(ctx context.Context, token, inactiveMsg string) (*dasclient.Introspection, domain.User, error) {
	intro, err := s.DAS.Introspect(ctx, token)
	if err != nil {
		return nil, domain.User{}, err
	}
	if !intro.Active {
		return nil, domain.User{}, describe(ErrInvalidGrant, "%s", inactiveMsg)
	}
	if intro.Subject == "" {
		return nil, domain.User{}, describe(ErrInvalidGrant, "Matrix token does not contain valid user ID")
	}

	user, err := s.Users.Provision(ctx, intro.Subject)
	if err != nil {
		return nil, domain.User{}, err
	}
	return intro, user, nil
}

// issue mints the TEP token, stores its refresh record and kicks off wallet
// registration.
func (s *TokenService) issue(
	ctx context.Context,
	user domain.User,
	appID string,
	scopes []string,
	miniAppContext map[string]any,
	intro *dasclient.Introspection,
	subjectToken string,
) (*domain.TokenBundle, error) {
	approvals, err := s.Consent.ApprovalHistory(ctx, user.MatrixUserID, appID, scopes)
	if err != nil {
		return nil, err
	}

	session := s.DAS.ExchangeForSession(ctx, subjectToken)

	token, claims, err := s.Codec.Mint(jwtx.TEPParams{
		Subject:   user.MatrixUserID,
		MiniAppID: appID,
		Scopes:    scopes,
		WalletID:  user.WalletID,
		SessionID: cryptox.PrefixedToken("sess_", 24),
		UserContext: jwtx.UserContext{
			DisplayName: intro.DisplayName,
			AvatarURL:   intro.AvatarURL,
		},
		MiniAppContext:  miniAppContext,
		Approvals:       approvals,
		DeviceID:        intro.DeviceID,
		MatrixSessionID: intro.SessionID,
	})
	if err != nil {
		return nil, err
	}

	handle := cryptox.PrefixedToken(refreshPrefix, 24)
	rec := domain.RefreshRecord{
		UserID:    user.MatrixUserID,
		MiniAppID: appID,
		Scope:     scopes,
		CreatedAt: claims.IssuedAt.Time,
	}
	if err := cache.SetJSON(ctx, s.Cache, cache.PrefixRefreshToken+handle, rec, s.refreshTTL()); err != nil {
		return nil, err
	}

	s.registerWallet(ctx, user.MatrixUserID, session.AccessToken)

	slogx.FromContext(ctx).Info("issued TEP token",
		slog.String("matrix_user_id", user.MatrixUserID),
		slog.String("miniapp_id", appID),
		slog.String("jti", claims.ID),
		slog.String("scope", claims.Scope),
	)

	return &domain.TokenBundle{
		AccessToken:       jwtx.TokenPrefix + token,
		TokenType:         "Bearer",
		ExpiresIn:         expiresIn(claims),
		RefreshToken:      handle,
		Scope:             claims.Scope,
		UserID:            user.MatrixUserID,
		WalletID:          user.WalletID,
		MatrixAccessToken: session.AccessToken,
		MatrixExpiresIn:   session.ExpiresIn,
		DelegatedSession:  true,
	}, nil
}

// registerWallet runs outside the request; failures are logged only.
func (s *TokenService) registerWallet(ctx context.Context, userID, sessionToken string) {
	if s.Wallets == nil {
		return
	}
	timeout := s.RegistrationTimeout
	if timeout <= 0 {
		timeout = DefaultRegistrationTimeout
	}
	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer cancel()
		if err := s.Wallets.RegisterWallet(bgCtx, userID, sessionToken); err != nil {
			slogx.FromContext(bgCtx).Warn("wallet registration failed",
				"matrix_user_id", userID, "err", err)
		}
	}()
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return DefaultRefreshTTL
}

func expiresIn(c jwtx.TEPClaims) int64 {
	return int64(c.ExpiresAt.Sub(c.IssuedAt.Time).Seconds())
}
