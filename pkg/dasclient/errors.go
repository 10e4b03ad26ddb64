package dasclient

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the client can return.
type Kind int

const (
	// KindBroker covers transport failures, unexpected statuses and bodies
	// that could not be parsed.
	KindBroker Kind = iota
	// KindInvalidCredentials means the delegation service rejected our
	// client_id/client_secret.
	KindInvalidCredentials
	// KindInvalidToken means the subject token was rejected or has expired.
	KindInvalidToken
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindInvalidToken:
		return "invalid_token"
	default:
		return "broker_error"
	}
}

// Error is the only error type returned by Client.
type Error struct {
	Kind        Kind
	Op          string
	Status      int
	Description string

	// Temporary is set for transport failures and 5xx responses, which a
	// caller may retry later.
	Temporary bool

	Err error
}

// Sentinels for errors.Is matching on Kind.
var (
	ErrBroker             = &Error{Kind: KindBroker}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken}
)

func (e *Error) Error() string {
	msg := fmt.Sprintf("dasclient: %s: %s", e.Op, e.Kind)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or KindBroker for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBroker
}

// IsTemporary reports whether err is worth retrying later.
func IsTemporary(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Temporary
}
