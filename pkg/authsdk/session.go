package authsdk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// RefreshSkew is how long before expiry a Session refreshes its token.
const RefreshSkew = 30 * time.Second

// ErrSessionClosed is returned by a Session after Revoke.
var ErrSessionClosed = errors.New("authsdk: session revoked")

// Session holds a TEP token and its refresh handle for one user and mini-app.
// It refreshes the token shortly before expiry and is safe for concurrent use.
type Session struct {
	client   *SDKClient
	clientID string

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	scopes       map[string]bool
	userID       string
	walletID     string
}

func newSession(client *SDKClient, clientID string, tr *TokenResponse) *Session {
	s := &Session{client: client, clientID: clientID}
	s.apply(tr)
	return s
}

// apply installs a token response. Callers hold mu or own s exclusively.
func (s *Session) apply(tr *TokenResponse) {
	s.accessToken = tr.AccessToken
	if tr.RefreshToken != "" {
		s.refreshToken = tr.RefreshToken
	}
	s.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	s.scopes = parseScopes(tr.Scope)
	if tr.UserID != "" {
		s.userID = tr.UserID
	}
	if tr.WalletID != "" {
		s.walletID = tr.WalletID
	}
}

func parseScopes(scope string) map[string]bool {
	fields := strings.Fields(scope)
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		out[f] = true
	}
	return out
}

func (s *Session) fresh() bool {
	return s.accessToken != "" && time.Now().Add(RefreshSkew).Before(s.expiresAt)
}

// getValidToken returns the access token, refreshing it first when it is
// inside RefreshSkew of expiry.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.fresh() {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	return s.forceRefresh(ctx, "")
}

// forceRefresh refreshes unless another caller already replaced stale.
func (s *Session) forceRefresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stale != "" && s.accessToken != stale {
		return s.accessToken, nil
	}
	if stale == "" && s.fresh() {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		if s.accessToken == "" {
			return "", ErrSessionClosed
		}
		return "", errors.New("access token expired and no refresh token available")
	}

	tr, err := s.client.RefreshGrant(ctx, s.clientID, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.apply(tr)
	return s.accessToken, nil
}

// Revoke revokes the refresh handle and clears the session. Later calls on
// the session return ErrSessionClosed.
func (s *Session) Revoke(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.refreshToken
	s.accessToken, s.refreshToken = "", ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if refreshToken == "" {
		return ErrSessionClosed
	}
	return s.client.RevokeToken(ctx, s.clientID, refreshToken, "refresh_token")
}

// AccessToken returns the current access token without refreshing it.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh handle. It rotates on every
// refresh.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// ExpiresAt is when the current access token expires.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// UserID is the chat user the session acts for, when the broker reported it.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) WalletID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.walletID
}

// Scopes returns the granted scopes in no particular order.
func (s *Session) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.scopes))
	for scope := range s.scopes {
		out = append(out, scope)
	}
	return out
}

func (s *Session) HasScope(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[scope]
}

// HasAllScopes reports whether every scope was granted.
func (s *Session) HasAllScopes(scopes ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, scope := range scopes {
		if !s.scopes[scope] {
			return false
		}
	}
	return true
}

func (s *Session) HasAnyScope(scopes ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, scope := range scopes {
		if s.scopes[scope] {
			return true
		}
	}
	return false
}

// checkScopes fails fast when the client checks scopes locally and the
// session lacks one of required.
func (s *Session) checkScopes(required ...string) error {
	if !s.client.CheckScopes || len(required) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for _, scope := range required {
		if !s.scopes[scope] {
			missing = append(missing, scope)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required scope(s): %s", strings.Join(missing, ", "))
	}
	return nil
}
