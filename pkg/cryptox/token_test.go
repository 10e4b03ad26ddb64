package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"128-bit token", TokenSize128, 22},
		{"256-bit token", TokenSize256, 43},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.Len(t, token, tt.want)

			token2, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, token2, "tokens should be unique")
		})
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestAlphanumeric(t *testing.T) {
	s, err := Alphanumeric(24)
	require.NoError(t, err)
	require.Len(t, s, 24)
	for _, r := range s {
		require.True(t, strings.ContainsRune(alphanumeric, r), "unexpected rune %q", r)
	}

	_, err = Alphanumeric(0)
	require.Error(t, err)
}

func TestPrefixedToken(t *testing.T) {
	rt := PrefixedToken("rt_", 24)
	require.True(t, strings.HasPrefix(rt, "rt_"))
	require.Len(t, rt, 27)
	require.NotEqual(t, rt, PrefixedToken("rt_", 24))
}

func TestFingerprintToken(t *testing.T) {
	fp1a := FingerprintToken("test-token-1")
	fp1b := FingerprintToken("test-token-1")
	fp2 := FingerprintToken("test-token-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2)
	require.Len(t, fp1a, 43, "SHA-256 base64url should be 43 chars")
}
