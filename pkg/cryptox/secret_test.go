package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecretHasher(t *testing.T) {
	h := SecretHasher{Pepper: "pepper"}

	tests := []struct {
		name   string
		secret string
	}{
		{"simple", "s3cret"},
		{"long", strings.Repeat("a", 100)},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.secret)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
			require.Len(t, strings.Split(hash, "$"), 6)

			require.NoError(t, h.Verify(tt.secret, hash))
			require.ErrorIs(t, h.Verify(tt.secret+"x", hash), ErrSecretMismatch)
		})
	}
}

func TestSecretHasher_PepperMatters(t *testing.T) {
	hash, err := SecretHasher{Pepper: "one"}.Hash("s3cret")
	require.NoError(t, err)

	require.ErrorIs(t, SecretHasher{Pepper: "two"}.Verify("s3cret", hash), ErrSecretMismatch)
}

func TestSecretHasher_MalformedHash(t *testing.T) {
	h := SecretHasher{}
	require.Error(t, h.Verify("x", "plain"))
	require.Error(t, h.Verify("x", "$bcrypt$v=19$m=1,t=1,p=1$aa$bb"))
	require.Error(t, h.Verify("x", "$argon2id$v=19$garbage$aa$bb"))
}

func TestLoadPepper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets", "pepper")

	first, err := LoadPepper(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := LoadPepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
