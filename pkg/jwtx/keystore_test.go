package jwtx_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"

	"github.com/mona-chen/jean/pkg/cryptox"
	"github.com/mona-chen/jean/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestKeyStoreRequiresKey(t *testing.T) {
	_, err := jwtx.NewKeyStore(jwtx.KeyStoreOptions{KID: "k"})
	require.ErrorIs(t, err, jwtx.ErrNoSigningKey)
}

func TestKeyStoreEphemeral(t *testing.T) {
	ks, err := jwtx.NewKeyStore(jwtx.KeyStoreOptions{KID: "k", AllowEphemeral: true})
	require.NoError(t, err)
	require.True(t, ks.Ephemeral())
	require.True(t, ks.IsReady())
	require.Equal(t, jwtx.AlgorithmRS256, ks.Signer().Alg())
}

func TestKeyStoreRejectsBadConfig(t *testing.T) {
	pemKey, _ := newKeyPEM(t)

	_, err := jwtx.NewKeyStore(jwtx.KeyStoreOptions{KID: "k", Algorithm: "ES256", PrivateKeyPEM: pemKey})
	require.Error(t, err)

	_, err = jwtx.NewKeyStore(jwtx.KeyStoreOptions{PrivateKeyPEM: pemKey})
	require.Error(t, err, "kid is required")

	_, err = jwtx.NewKeyStore(jwtx.KeyStoreOptions{KID: "k", PrivateKeyPEM: []byte("garbage")})
	require.Error(t, err)
}

func TestKeyStoreRetiredKeysVerify(t *testing.T) {
	oldPEM, _ := newKeyPEM(t)
	oldStore, err := jwtx.NewKeyStore(jwtx.KeyStoreOptions{KID: "old", PrivateKeyPEM: oldPEM})
	require.NoError(t, err)
	oldToken, err := jwtx.NewCodec(oldStore, testIssuer).Encode(sampleParams())
	require.NoError(t, err)

	oldKey, err := cryptox.ParseRSAPrivateKey(oldPEM)
	require.NoError(t, err)
	oldPub, err := cryptox.EncodeRSAPublicKey(&oldKey.PublicKey)
	require.NoError(t, err)

	newPEM, _ := newKeyPEM(t)
	ks, err := jwtx.NewKeyStore(jwtx.KeyStoreOptions{
		KID:               "new",
		PrivateKeyPEM:     newPEM,
		RetiredPublicKeys: map[string][]byte{"old": oldPub},
	})
	require.NoError(t, err)

	_, err = jwtx.NewCodec(ks, testIssuer).Decode(oldToken)
	require.NoError(t, err)

	jwks := ks.KeySet().PublicJWKS()
	require.Len(t, jwks.Keys, 2)
}

func TestKeySetJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	set := jwtx.NewKeySet()
	require.False(t, set.IsReady())

	jwk := jwtx.NewRSAJWK("kid-1", "sig", "RS256", &key.PublicKey)
	require.NoError(t, set.AddJWK(jwk))
	require.NoError(t, set.AddJWK(jwk))
	require.True(t, set.IsReady())
	require.Len(t, set.PublicJWKS().Keys, 1, "re-adding a kid replaces it")

	pub, err := set.Get("kid-1")
	require.NoError(t, err)
	require.True(t, key.PublicKey.Equal(pub))

	_, err = set.Get("missing")
	require.ErrorIs(t, err, jwtx.ErrNoKey)

	raw, err := json.Marshal(set.PublicJWKS())
	require.NoError(t, err)
	require.Contains(t, string(raw), `"kty":"RSA"`)

	pemStr, err := jwk.PEM()
	require.NoError(t, err)
	require.Contains(t, pemStr, "BEGIN PUBLIC KEY")
}
