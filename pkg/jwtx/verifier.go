package jwtx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"slices"
	"strings"
)

// Decode failures. Each post-signature check has its own error so callers
// and logs can tell them apart.
var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgorithm   = errors.New("jwtx: algorithm not allowed")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: missing audience")
	ErrTokenType   = errors.New("jwtx: wrong token type")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Verifier validates a TEP token and returns its claims.
type Verifier interface {
	Decode(token string) (*TEPClaims, error)
}

type header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// peekHeader decodes the JOSE header without verifying anything so the
// algorithm can be checked before any key is selected.
func peekHeader(token string) (header, error) {
	var h header

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return h, ErrMalformed
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return h, ErrMalformed
	}
	if err := json.Unmarshal(raw, &h); err != nil {
		return h, ErrMalformed
	}
	if !slices.Contains(AllowedAlgorithms, h.Alg) {
		return h, ErrAlgorithm
	}
	return h, nil
}
