package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// MinRSABits is the smallest modulus accepted for signing keys.
const MinRSABits = 2048

// GenerateRSAKey generates a new RSA private key with the specified bit size
// and returns it PEM encoded (PKCS1).
func GenerateRSAKey(bits int) ([]byte, error) {
	if bits < MinRSABits {
		return nil, fmt.Errorf("cryptox: RSA key size must be at least %d bits", MinRSABits)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate RSA key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}), nil
}

// ParseRSAPrivateKey loads an RSA private key from PEM bytes. Both PKCS1 and
// PKCS8 encodings are accepted since key tooling disagrees on the default.
func ParseRSAPrivateKey(pemKey []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("cryptox: invalid PEM for RSA key")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("cryptox: parse PKCS1: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("cryptox: parse PKCS8: %w", err)
		}
		key, ok := priv.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("cryptox: not an RSA private key")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("cryptox: unsupported PEM type %q", block.Type)
	}
}

// ParseRSAPublicKey loads an RSA public key from a PKIX ("PUBLIC KEY") or
// PKCS1 ("RSA PUBLIC KEY") PEM block.
func ParseRSAPublicKey(pemKey []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("cryptox: invalid PEM for RSA public key")
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("cryptox: parse PKIX: %w", err)
		}
		key, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("cryptox: not an RSA public key")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("cryptox: unsupported PEM type %q", block.Type)
	}
}

// EncodeRSAPublicKey returns the PKIX PEM form of pub.
func EncodeRSAPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
