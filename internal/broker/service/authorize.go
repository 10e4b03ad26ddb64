package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/mona-chen/jean/internal/broker/cache"
	"github.com/mona-chen/jean/internal/broker/domain"
	"github.com/mona-chen/jean/internal/broker/store"
	"github.com/mona-chen/jean/pkg/cryptox"
	"github.com/mona-chen/jean/pkg/slogx"
)

const (
	// DefaultAuthRequestTTL bounds the browser round trip through the
	// delegation service.
	DefaultAuthRequestTTL = 15 * time.Minute

	// DefaultDASAuthURL is used when no authorization endpoint is configured.
	DefaultDASAuthURL = "https://auth.tween.example/oauth2/authorize"
)

// KnownScopes are the scopes a mini-app may request at the authorize
// endpoint.
var KnownScopes = []string{
	"user:read",
	"user:read:extended",
	"user:read:contacts",
	"wallet:balance",
	"wallet:pay",
	"wallet:history",
	"messaging:send",
	"messaging:read",
	"storage:read",
	"storage:write",
}

// AuthorizeService starts the browser authorization flow. It remembers the
// request and hands the browser to the delegation service, which calls back
// with the request id as state.
type AuthorizeService struct {
	Store      store.Store
	Cache      cache.KV
	DASAuthURL string
	TTL        time.Duration
	Now        func() time.Time
}

// AuthorizeRequest is the query of GET /v1/oauth2/authorize.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// Begin validates req, caches it and returns the delegation service URL the
// browser is redirected to.
func (s *AuthorizeService) Begin(ctx context.Context, req AuthorizeRequest) (string, error) {
	if missing := req.missing(); len(missing) > 0 {
		return "", describe(ErrInvalidRequest, "Missing required parameters: %s", strings.Join(missing, ", "))
	}
	if req.ResponseType != "code" {
		return "", describe(ErrUnsupportedResponseType, "Only response_type=code is supported")
	}
	if req.CodeChallengeMethod != "S256" {
		return "", describe(ErrInvalidRequest, "code_challenge_method must be S256")
	}

	var unknown []string
	for _, sc := range req.Scope {
		if !slices.Contains(KnownScopes, sc) {
			unknown = append(unknown, sc)
		}
	}
	if len(unknown) > 0 {
		return "", describe(ErrInvalidScope, "Invalid scopes: %s", strings.Join(unknown, ", "))
	}

	app, err := s.Store.MiniApps().GetMiniApp(ctx, req.ClientID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "", describe(ErrInvalidClient, "Mini-app not found or inactive")
	case err != nil:
		return "", err
	}
	if !app.IsActive() {
		return "", describe(ErrInvalidClient, "Mini-app not found or inactive")
	}
	if !app.AllowsRedirect(req.RedirectURI) {
		return "", describe(ErrInvalidRequest, "redirect_uri is not registered for this mini-app")
	}

	id, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	ar := domain.AuthRequest{
		ID:                  id,
		ClientID:            app.AppID,
		RedirectURI:         req.RedirectURI,
		Scope:               req.Scope,
		State:               req.State,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		MiniAppName:         app.Name,
		CreatedAt:           s.now().UTC(),
	}
	if err := cache.SetJSON(ctx, s.Cache, cache.PrefixAuthRequest+id, ar, s.ttl()); err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("authorization started",
		"miniapp_id", app.AppID, "scope", strings.Join(req.Scope, " "))

	return s.redirectURL(ar), nil
}

func (s *AuthorizeService) redirectURL(ar domain.AuthRequest) string {
	base := s.DASAuthURL
	if base == "" {
		base = DefaultDASAuthURL
	}
	q := url.Values{
		"client_id":             {ar.ClientID},
		"redirect_uri":          {ar.RedirectURI},
		"response_type":         {"code"},
		"scope":                 {strings.Join(ar.Scope, " ")},
		"state":                 {ar.ID},
		"code_challenge":        {ar.CodeChallenge},
		"code_challenge_method": {"S256"},
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

func (r AuthorizeRequest) missing() []string {
	var out []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"response_type", r.ResponseType},
		{"client_id", r.ClientID},
		{"redirect_uri", r.RedirectURI},
		{"scope", strings.Join(r.Scope, " ")},
		{"state", r.State},
		{"code_challenge", r.CodeChallenge},
		{"code_challenge_method", r.CodeChallengeMethod},
	} {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name)
		}
	}
	return out
}

func (s *AuthorizeService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultAuthRequestTTL
}

func (s *AuthorizeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// verifyS256 checks a PKCE verifier against its S256 challenge.
func verifyS256(challenge, verifier string) bool {
	sum := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(challenge), []byte(computed)) == 1
}
