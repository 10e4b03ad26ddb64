// Package idx generates prefixed, time-sortable identifiers: a short kind
// prefix, an underscore and a ULID, e.g. "usr_01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZB".
// IDs of one kind sort by creation time.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind is the prefix naming what an ID identifies.
type Kind string

const (
	User     Kind = "usr"
	Approval Kind = "apv"
	Token    Kind = "jti"
	Request  Kind = "req"
)

// ID is "<kind>_<ulid>".
type ID string

// ErrInvalid reports a string that is not a well-formed ID of the expected
// kind.
var ErrInvalid = errors.New("idx: invalid id")

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a new ID of kind k for the current time.
func New(k Kind) ID {
	return NewAt(k, time.Now())
}

// NewAt returns a new ID of kind k stamped with t. IDs created within the
// same millisecond are still strictly increasing.
func NewAt(k Kind, t time.Time) ID {
	mu.Lock()
	u := ulid.MustNew(ulid.Timestamp(t), entropy)
	mu.Unlock()
	return ID(string(k) + "_" + u.String())
}

// Parse checks that s is an ID of kind k.
func Parse(k Kind, s string) (ID, error) {
	prefix, rest, ok := strings.Cut(strings.TrimSpace(s), "_")
	if !ok || Kind(prefix) != k {
		return "", ErrInvalid
	}
	if _, err := ulid.ParseStrict(rest); err != nil {
		return "", ErrInvalid
	}
	return ID(prefix + "_" + rest), nil
}

func (id ID) String() string { return string(id) }

func (id ID) Kind() Kind {
	prefix, _, _ := strings.Cut(string(id), "_")
	return Kind(prefix)
}

// Time returns the creation time, or the zero time when id is malformed.
func (id ID) Time() time.Time {
	_, rest, ok := strings.Cut(string(id), "_")
	if !ok {
		return time.Time{}
	}
	u, err := ulid.ParseStrict(rest)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}
