package jwtx

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"

	"github.com/mona-chen/jean/pkg/cryptox"
)

// JWK represents an RSA public key in JSON Web Key format (RFC 7517).
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`

	N string `json:"n,omitempty"` // modulus (base64url)
	E string `json:"e,omitempty"` // exponent (base64url)
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// NewRSAJWK builds a JWK for an RSA public key.
func NewRSAJWK(kid, use, alg string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: use,
		Alg: alg,
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// PublicKey decodes the JWK into an RSA public key.
func (j JWK) PublicKey() (*rsa.PublicKey, error) {
	if j.Kty != "RSA" {
		return nil, errors.New("jwtx: unsupported kty " + j.Kty)
	}
	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}

// PEM converts the JWK to a PKIX PEM public key, handy for debugging with
// tools like jwt.io.
func (j JWK) PEM() (string, error) {
	pub, err := j.PublicKey()
	if err != nil {
		return "", err
	}
	b, err := cryptox.EncodeRSAPublicKey(pub)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
