package domain

import (
	"strings"
	"time"
)

// User is a chat user the broker has issued a TEP token for. Users are
// provisioned on first exchange.
type User struct {
	ID               string // ULID
	MatrixUserID     string // "@local:domain"
	MatrixUsername   string
	MatrixHomeserver string
	WalletID         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SplitMatrixUserID splits "@local:domain" into its parts. Missing parts are
// returned empty.
func SplitMatrixUserID(id string) (local, domain string) {
	id = strings.TrimPrefix(id, "@")
	local, domain, _ = strings.Cut(id, ":")
	return local, domain
}

// WalletIDFor derives the wallet id for a subject: "tw_" plus the subject
// with '@' and ':' replaced by '_'.
func WalletIDFor(subject string) string {
	if subject == "" {
		return "tw_unknown"
	}
	return "tw_" + strings.NewReplacer("@", "_", ":", "_").Replace(subject)
}
