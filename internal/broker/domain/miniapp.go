package domain

import (
	"regexp"
	"slices"
	"time"
)

type ClientType string

const (
	ClientTypePublic       ClientType = "public"
	ClientTypeConfidential ClientType = "confidential"
	ClientTypeHybrid       ClientType = "hybrid"
)

type MiniAppStatus string

const (
	MiniAppActive     MiniAppStatus = "active"
	MiniAppDeprecated MiniAppStatus = "deprecated"
	MiniAppRemoved    MiniAppStatus = "removed"
)

var miniAppIDPattern = regexp.MustCompile(`^ma_[a-zA-Z0-9]+$`)

// ValidMiniAppID reports whether id has the "ma_<alnum>" shape.
func ValidMiniAppID(id string) bool { return miniAppIDPattern.MatchString(id) }

// MiniApp is a registered client of the broker.
type MiniApp struct {
	AppID            string
	Name             string
	Description      string
	ClientType       ClientType
	Status           MiniAppStatus
	SecretHash       string // argon2id PHC string, empty for public apps
	RedirectURIs     []string
	RegisteredScopes []string // empty means no ceiling
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActive reports whether the app may obtain tokens.
func (m MiniApp) IsActive() bool { return m.Status == MiniAppActive }

// RequiresSecret reports whether token requests must authenticate.
func (m MiniApp) RequiresSecret() bool {
	return m.ClientType == ClientTypeConfidential || (m.ClientType == ClientTypeHybrid && m.SecretHash != "")
}

// ScopesOutside returns the requested scopes the app did not register.
func (m MiniApp) ScopesOutside(requested []string) []string {
	if len(m.RegisteredScopes) == 0 {
		return nil
	}
	var out []string
	for _, s := range requested {
		if !slices.Contains(m.RegisteredScopes, s) {
			out = append(out, s)
		}
	}
	return out
}

// AllowsRedirect reports whether uri is registered. Apps without
// registered URIs accept any.
func (m MiniApp) AllowsRedirect(uri string) bool {
	return len(m.RedirectURIs) == 0 || slices.Contains(m.RedirectURIs, uri)
}
