package jwtx

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mona-chen/jean/pkg/cryptox"
)

// Supported JWT signing algorithms. Anything else is rejected on decode.
const (
	AlgorithmRS256 = "RS256"
	AlgorithmRS384 = "RS384"
	AlgorithmRS512 = "RS512"
)

// AllowedAlgorithms is the decode allow-list.
var AllowedAlgorithms = []string{AlgorithmRS256, AlgorithmRS384, AlgorithmRS512}

// Signer is our interface for anything that can sign TEP tokens.
type Signer interface {
	Alg() string
	KID() string
	Sign(TEPClaims) (string, error)
	PublicJWK() JWK
	Validate() error
}

// RSASigner signs with one of the RS* methods.
type RSASigner struct {
	kid    string
	key    *rsa.PrivateKey
	method *jwt.SigningMethodRSA
}

// NewRSASigner creates a signer for alg (RS256, RS384 or RS512) from PEM bytes.
func NewRSASigner(kid, alg string, pemKey []byte) (*RSASigner, error) {
	key, err := cryptox.ParseRSAPrivateKey(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}
	return newRSASigner(kid, alg, key)
}

func newRSASigner(kid, alg string, key *rsa.PrivateKey) (*RSASigner, error) {
	if alg == "" {
		alg = AlgorithmRS256
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodRSA)
	if !ok {
		return nil, fmt.Errorf("jwtx: unsupported signing algorithm %q", alg)
	}
	if kid == "" {
		return nil, errors.New("jwtx: key id is required")
	}
	return &RSASigner{kid: kid, key: key, method: method}, nil
}

func (s *RSASigner) Alg() string { return s.method.Alg() }
func (s *RSASigner) KID() string { return s.kid }

// Sign turns claims into a compact JWT with the kid header set.
func (s *RSASigner) Sign(claims TEPClaims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// PublicJWK returns the JWK published in the JWKS.
func (s *RSASigner) PublicJWK() JWK {
	return NewRSAJWK(s.kid, "sig", s.Alg(), &s.key.PublicKey)
}

func (s *RSASigner) Validate() error {
	if s.key == nil {
		return errors.New("jwtx: nil RSA key")
	}
	return s.key.Validate()
}
