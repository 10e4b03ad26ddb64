package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateToken creates a cryptographically secure random token of the
// specified byte length, base64url encoded without padding.
//
// Consent session ids, authorization request ids and rotated refresh handles
// all use TokenSize256.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Alphanumeric returns n characters drawn uniformly from [a-zA-Z0-9].
func Alphanumeric(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", n)
	}

	out := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out), nil
}

// PrefixedToken returns prefix followed by n alphanumerics, e.g. "rt_..." or
// "sess_...". It panics if the system random source fails.
func PrefixedToken(prefix string, n int) string {
	s, err := Alphanumeric(n)
	if err != nil {
		panic(fmt.Sprintf("cryptox: %v", err))
	}
	return prefix + s
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token so
// handles can be correlated in logs without printing them.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
