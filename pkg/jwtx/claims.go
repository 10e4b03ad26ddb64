package jwtx

import (
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mona-chen/jean/pkg/cryptox"
	"github.com/mona-chen/jean/pkg/idx"
)

const (
	// TokenTypeTEP is the token_type discriminator carried by every TEP token.
	TokenTypeTEP = "tep_access_token"

	// TokenPrefix is prepended to the compact JWT on the wire so mini-apps can
	// tell TEP tokens apart from upstream chat tokens.
	TokenPrefix = "tep."

	// DefaultTEPTTL is the lifetime of a TEP token.
	DefaultTEPTTL = 24 * time.Hour

	// MaxApprovalHistory caps the approval_history claim.
	MaxApprovalHistory = 10

	// DelegatedFromMatrix marks tokens minted from a chat homeserver session.
	DelegatedFromMatrix = "matrix_session"

	unknownRef            = "unknown"
	defaultApprovalMethod = "initial"
	defaultRole           = "member"
)

// UserContext is the display information shown to the mini-app.
type UserContext struct {
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// MASSession describes the upstream delegated session backing the token.
type MASSession struct {
	Active         bool   `json:"active"`
	RefreshTokenID string `json:"refresh_token_id"`
}

// Permissions is the room permission subset granted to the mini-app.
type Permissions struct {
	CanSendMessages   bool `json:"can_send_messages"`
	CanInviteUsers    bool `json:"can_invite_users"`
	CanEditMessages   bool `json:"can_edit_messages"`
	CanDeleteMessages bool `json:"can_delete_messages"`
	CanAddReactions   bool `json:"can_add_reactions"`
}

// DefaultPermissions lets a mini-app post and react but nothing else.
func DefaultPermissions() Permissions {
	return Permissions{CanSendMessages: true, CanAddReactions: true}
}

// AuthorizationContext is present only when the mini-app was launched from a room.
type AuthorizationContext struct {
	RoomID      string      `json:"room_id"`
	Roles       []string    `json:"roles"`
	Permissions Permissions `json:"permissions"`
}

// Approval is one entry of the approval_history claim.
type Approval struct {
	Scope          string    `json:"scope"`
	ApprovedAt     time.Time `json:"approved_at"`
	ApprovalMethod string    `json:"approval_method"`
}

// MatrixSessionRef points at the homeserver session the token was derived from.
type MatrixSessionRef struct {
	DeviceID  string `json:"device_id"`
	SessionID string `json:"session_id"`
}

// TEPClaims is the full claim set of a TEP token. Once signed it is never
// mutated; refresh always mints a new value with a new jti.
type TEPClaims struct {
	jwt.RegisteredClaims

	TokenType string `json:"token_type"`
	ClientID  string `json:"client_id"`
	AZP       string `json:"azp"`

	// Scope is space-delimited, as in OAuth2 responses.
	Scope string `json:"scope"`

	WalletID  string `json:"wallet_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	UserContext    UserContext    `json:"user_context"`
	MiniAppContext map[string]any `json:"miniapp_context,omitempty"`
	MASSession     MASSession     `json:"mas_session"`

	AuthorizationContext *AuthorizationContext `json:"authorization_context,omitempty"`
	ApprovalHistory      []Approval            `json:"approval_history,omitempty"`

	DelegatedFrom    string            `json:"delegated_from,omitempty"`
	MatrixSessionRef *MatrixSessionRef `json:"matrix_session_ref,omitempty"`
}

// Scopes returns the granted scopes as a slice.
func (c *TEPClaims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// HasScope reports whether scope was granted.
func (c *TEPClaims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope)
}

// MiniAppID returns the audience the token was minted for.
func (c *TEPClaims) MiniAppID() string {
	if len(c.Audience) == 0 {
		return ""
	}
	return c.Audience[0]
}

// TEPParams is everything the caller decides about a token. Fields left
// empty get the defaults applied by NewTEPClaims.
type TEPParams struct {
	Subject   string
	MiniAppID string
	Scopes    []string

	WalletID  string
	SessionID string

	UserContext    UserContext
	MiniAppContext map[string]any

	// RoomRoles overrides the default ["member"] when a room is present.
	RoomRoles []string

	Approvals []Approval

	// RefreshTokenID defaults to "rt_" plus 16 random alphanumerics.
	RefreshTokenID string

	// DeviceID and MatrixSessionID default to "unknown".
	DeviceID        string
	MatrixSessionID string
}

// NewTEPClaims builds a complete claim set for issuer at now.
func NewTEPClaims(issuer string, p TEPParams, ttl time.Duration, now time.Time) TEPClaims {
	if ttl <= 0 {
		ttl = DefaultTEPTTL
	}

	refreshID := p.RefreshTokenID
	if refreshID == "" {
		refreshID = cryptox.PrefixedToken("rt_", 16)
	}

	c := TEPClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings{p.MiniAppID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TokenType:      TokenTypeTEP,
		ClientID:       p.MiniAppID,
		AZP:            p.MiniAppID,
		Scope:          strings.Join(p.Scopes, " "),
		WalletID:       p.WalletID,
		SessionID:      p.SessionID,
		UserContext:    p.UserContext,
		MiniAppContext: p.MiniAppContext,
		MASSession:     MASSession{Active: true, RefreshTokenID: refreshID},
		DelegatedFrom:  DelegatedFromMatrix,
		MatrixSessionRef: &MatrixSessionRef{
			DeviceID:  orDefault(p.DeviceID, unknownRef),
			SessionID: orDefault(p.MatrixSessionID, unknownRef),
		},
	}

	if room, _ := p.MiniAppContext["room_id"].(string); room != "" {
		roles := p.RoomRoles
		if len(roles) == 0 {
			roles = []string{defaultRole}
		}
		c.AuthorizationContext = &AuthorizationContext{
			RoomID:      room,
			Roles:       roles,
			Permissions: DefaultPermissions(),
		}
	}

	c.ApprovalHistory = normalizeApprovals(p.Approvals)
	return c
}

func normalizeApprovals(in []Approval) []Approval {
	if len(in) == 0 {
		return nil
	}
	out := make([]Approval, 0, min(len(in), MaxApprovalHistory))
	for _, a := range in {
		if len(out) == MaxApprovalHistory {
			break
		}
		a.ApprovalMethod = orDefault(a.ApprovalMethod, defaultApprovalMethod)
		a.ApprovedAt = a.ApprovedAt.UTC()
		out = append(out, a)
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// NewJTI returns a unique, time-sortable identifier for the "jti" claim.
func NewJTI() string {
	return idx.New(idx.Token).String()
}

// Validate runs the post-signature checks in a fixed order, each with its
// own error: issuer, audience presence, token type, expiry, not-before.
func (c *TEPClaims) Validate(issuer string, now time.Time, leeway time.Duration) error {
	if issuer != "" && c.Issuer != issuer {
		return ErrIssuer
	}
	if len(c.Audience) == 0 || c.Audience[0] == "" {
		return ErrAudience
	}
	if c.TokenType != TokenTypeTEP {
		return ErrTokenType
	}
	if c.ExpiresAt == nil || !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Add(leeway).Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
