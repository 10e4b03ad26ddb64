package jwtx

import (
	"crypto/rsa"
	"errors"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds the public verification keys by kid. The signing key is
// always present; retired keys stay until their tokens have expired.
type KeySet struct {
	mu  sync.RWMutex
	jks JWKS
	pub map[string]*rsa.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]*rsa.PublicKey)}
}

// AddSigner registers a Signer's public JWK.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK adds a JWK, replacing any earlier key with the same kid.
func (k *KeySet) AddJWK(j JWK) error {
	if j.Kid == "" {
		return errors.New("jwtx: JWK without kid")
	}
	key, err := j.PublicKey()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.pub[j.Kid]; exists {
		keys := k.jks.Keys[:0]
		for _, existing := range k.jks.Keys {
			if existing.Kid != j.Kid {
				keys = append(keys, existing)
			}
		}
		k.jks.Keys = keys
	}
	k.pub[j.Kid] = key
	k.jks.Keys = append(k.jks.Keys, j)
	return nil
}

// Get returns the public key for the given kid.
func (k *KeySet) Get(kid string) (*rsa.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// PublicJWKS returns a snapshot for HTTP serving.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return JWKS{Keys: append([]JWK(nil), k.jks.Keys...)}
}

// IsReady returns true if at least one key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}
