package jwtx

import (
	"errors"
	"fmt"

	"github.com/mona-chen/jean/pkg/cryptox"
)

// ErrNoSigningKey is returned when no private key is configured and
// ephemeral keys are not allowed.
var ErrNoSigningKey = errors.New("jwtx: no signing key configured")

// KeyStoreOptions configures a KeyStore.
type KeyStoreOptions struct {
	// KID is embedded in every token header.
	KID string

	// Algorithm is one of RS256, RS384, RS512. Defaults to RS256.
	Algorithm string

	// PrivateKeyPEM is the signing key (PKCS1 or PKCS8).
	PrivateKeyPEM []byte

	// RetiredPublicKeys maps kid to the PEM public key of previously used
	// signing keys whose tokens must still verify.
	RetiredPublicKeys map[string][]byte

	// AllowEphemeral permits generating a throwaway key when PrivateKeyPEM is
	// empty. Tokens signed with it cannot be verified after a restart, so this
	// must never be set in production.
	AllowEphemeral bool

	// RSABits is the size of an ephemeral key. Defaults to 2048.
	RSABits int
}

// KeyStore owns the signing key and the verification key set. It is built
// once at startup and shared read-only.
type KeyStore struct {
	signer    *RSASigner
	keys      *KeySet
	ephemeral bool
}

// NewKeyStore loads or, when explicitly allowed, generates the signing key.
func NewKeyStore(opts KeyStoreOptions) (*KeyStore, error) {
	pemKey := opts.PrivateKeyPEM
	ephemeral := false

	if len(pemKey) == 0 {
		if !opts.AllowEphemeral {
			return nil, ErrNoSigningKey
		}
		bits := opts.RSABits
		if bits == 0 {
			bits = cryptox.MinRSABits
		}
		var err error
		pemKey, err = cryptox.GenerateRSAKey(bits)
		if err != nil {
			return nil, err
		}
		ephemeral = true
	}

	signer, err := NewRSASigner(opts.KID, opts.Algorithm, pemKey)
	if err != nil {
		return nil, err
	}
	if err := signer.Validate(); err != nil {
		return nil, err
	}

	keys := NewKeySet()
	for kid, pub := range opts.RetiredPublicKeys {
		if kid == opts.KID {
			continue
		}
		key, err := cryptox.ParseRSAPublicKey(pub)
		if err != nil {
			return nil, fmt.Errorf("jwtx: retired key %q: %w", kid, err)
		}
		if err := keys.AddJWK(NewRSAJWK(kid, "sig", signer.Alg(), key)); err != nil {
			return nil, err
		}
	}
	if err := keys.AddSigner(signer); err != nil {
		return nil, err
	}

	return &KeyStore{signer: signer, keys: keys, ephemeral: ephemeral}, nil
}

// Signer returns the active signer.
func (k *KeyStore) Signer() Signer { return k.signer }

// KeySet returns the verification keys.
func (k *KeyStore) KeySet() *KeySet { return k.keys }

// Ephemeral reports whether the signing key was generated at startup.
func (k *KeyStore) Ephemeral() bool { return k.ephemeral }

// IsReady reports whether the store can both sign and verify.
func (k *KeyStore) IsReady() bool {
	return k != nil && k.signer != nil && k.keys.IsReady()
}
