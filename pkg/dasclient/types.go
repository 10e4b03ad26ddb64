package dasclient

import "time"

// Token is a service token obtained with the client_credentials grant or
// a session token obtained with token exchange.
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"-"`
}

// Introspection is the RFC 7662 response plus the homeserver extensions
// (device_id, sid, display_name, avatar_url).
type Introspection struct {
	Active      bool   `json:"active"`
	Subject     string `json:"sub,omitempty"`
	Scope       string `json:"scope,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	Username    string `json:"username,omitempty"`
	Exp         int64  `json:"exp,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
	SessionID   string `json:"sid,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Expired reports whether exp is set and not after now.
func (i *Introspection) Expired(now time.Time) bool {
	return i.Exp != 0 && now.Unix() > i.Exp
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}
