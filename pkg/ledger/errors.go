package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies ledger failures.
type Kind int

const (
	// KindUnavailable: connection failure, 5xx/429, or an open breaker.
	KindUnavailable Kind = iota
	// KindRejected: the ledger answered with a 4xx for this request.
	KindRejected
	// KindMalformed: a 2xx whose body could not be decoded.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindMalformed:
		return "malformed"
	default:
		return "unavailable"
	}
}

// Error is the only error type returned by Client.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Code    string
	Message string
	Err     error
}

var (
	ErrUnavailable = &Error{Kind: KindUnavailable}
	ErrRejected    = &Error{Kind: KindRejected}
	ErrMalformed   = &Error{Kind: KindMalformed}
)

func (e *Error) Error() string {
	msg := fmt.Sprintf("ledger: %s: %s", e.Op, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// IsAlreadyFinal reports whether the ledger refused a transition because
// the transfer is already in a terminal state.
func IsAlreadyFinal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindRejected && e.Status == http.StatusConflict
}

// IsNotFound reports whether the ledger does not know the transfer.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindRejected && e.Status == http.StatusNotFound
}

// countsAsFailure decides what trips the breaker: only failures that say
// something about the ledger's health.
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind != KindRejected
	}
	return true
}
