package domain

import "time"

// ConsentSession is the cached state between a consent_required response
// and the user's decision. Cached for 15 minutes at "consent:<id>".
type ConsentSession struct {
	UserID                string   `json:"user_id"`
	MiniAppID             string   `json:"miniapp_id"`
	PreApprovedScopes     []string `json:"pre_approved_scopes"`
	ConsentRequiredScopes []string `json:"consent_required_scopes"`
}

// RefreshRecord backs a refresh handle. Cached for 30 days at
// "refresh_token:<handle>".
type RefreshRecord struct {
	UserID    string    `json:"user_id"`
	MiniAppID string    `json:"miniapp_id"`
	Scope     []string  `json:"scope"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthRequest is a pending browser authorization. Cached for 15 minutes at
// "auth_request:<id>".
type AuthRequest struct {
	ID                  string    `json:"id"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scope               []string  `json:"scope"`
	State               string    `json:"state"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	MiniAppName         string    `json:"miniapp_name"`
	CreatedAt           time.Time `json:"created_at"`
}
