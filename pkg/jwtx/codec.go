package jwtx

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Codec encodes and decodes TEP tokens with the keys of a KeyStore.
type Codec struct {
	keys   *KeyStore
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithTTL overrides DefaultTEPTTL.
func WithTTL(ttl time.Duration) CodecOption { return func(c *Codec) { c.ttl = ttl } }

// WithLeeway tolerates clock skew on exp/nbf.
func WithLeeway(d time.Duration) CodecOption { return func(c *Codec) { c.leeway = d } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CodecOption { return func(c *Codec) { c.now = now } }

// NewCodec returns a Codec issuing tokens as issuer.
func NewCodec(keys *KeyStore, issuer string, opts ...CodecOption) *Codec {
	c := &Codec{
		keys:   keys,
		issuer: issuer,
		ttl:    DefaultTEPTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issuer returns the iss value stamped on every token.
func (c *Codec) Issuer() string { return c.issuer }

// Mint builds claims from p and signs them. The returned claims are exactly
// what was signed.
func (c *Codec) Mint(p TEPParams) (string, TEPClaims, error) {
	claims := NewTEPClaims(c.issuer, p, c.ttl, c.now().UTC().Truncate(time.Second))
	token, err := c.keys.Signer().Sign(claims)
	if err != nil {
		return "", TEPClaims{}, fmt.Errorf("jwtx: sign: %w", err)
	}
	return token, claims, nil
}

// Encode is Mint without the claims.
func (c *Codec) Encode(p TEPParams) (string, error) {
	token, _, err := c.Mint(p)
	return token, err
}

// Decode verifies token and returns its claims. A leading TokenPrefix is
// accepted and stripped.
func (c *Codec) Decode(token string) (*TEPClaims, error) {
	token = strings.TrimPrefix(token, TokenPrefix)

	h, err := peekHeader(token)
	if err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(AllowedAlgorithms),
		jwt.WithoutClaimsValidation(),
	)

	claims := &TEPClaims{}
	_, err = parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if h.Kid == "" {
			return nil, ErrUnknownKID
		}
		pub, err := c.keys.KeySet().Get(h.Kid)
		if err != nil {
			return nil, ErrUnknownKID
		}
		return pub, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownKID):
		return nil, ErrUnknownKID
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSig
	default:
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := claims.Validate(c.issuer, c.now().UTC(), c.leeway); err != nil {
		return nil, err
	}
	return claims, nil
}
