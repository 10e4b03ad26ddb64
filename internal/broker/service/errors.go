package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrConsentDeclined         = errors.New("consent_declined")
	ErrServerError             = errors.New("server_error")

	ErrInsufficientScope  = errors.New("insufficient_scope")
	ErrDuplicateRequest   = errors.New("duplicate_request")
	ErrRecipientNoWallet  = errors.New("recipient_no_wallet")
	ErrNotRoomMember      = errors.New("not_room_member")
	ErrTransferNotFound   = errors.New("transfer_not_found")
	ErrPaymentNotFound    = errors.New("payment_not_found")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// describedError attaches a caller-facing description to a sentinel.
type describedError struct {
	err  error
	desc string
}

func (e *describedError) Error() string { return e.err.Error() + ": " + e.desc }
func (e *describedError) Unwrap() error { return e.err }

func describe(sentinel error, format string, args ...any) error {
	return &describedError{err: sentinel, desc: fmt.Sprintf(format, args...)}
}

// Description returns the caller-facing text attached to err, or "".
func Description(err error) string {
	var d *describedError
	if errors.As(err, &d) {
		return d.desc
	}
	return ""
}

// ConsentRequiredError is returned by the token exchange when the user must
// approve sensitive scopes first. It is a distinguished outcome rather than
// a failure: the client sends the user to the consent page and retries.
type ConsentRequiredError struct {
	SessionID         string
	RequiredScopes    []string
	PreApprovedScopes []string
}

func (e *ConsentRequiredError) Error() string {
	return "consent required for " + strings.Join(e.RequiredScopes, " ")
}
