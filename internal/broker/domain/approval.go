package domain

import "time"

const (
	ApprovalMethodInitial     = "initial"
	ApprovalMethodUserConsent = "user_consent"
)

// Approval records that a user approved a scope for a mini-app. Records are
// append-only; re-approval adds another row.
type Approval struct {
	ID         string
	UserID     string // matrix user id
	MiniAppID  string
	Scope      string
	ApprovedAt time.Time
	Method     string
	CreatedAt  time.Time
}
