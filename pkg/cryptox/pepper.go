package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadPepper reads the pepper stored at path, creating it with fresh random
// bytes when the file does not exist yet. The pepper is mixed into every
// client secret hash, so losing the file invalidates all stored secrets.
func LoadPepper(path string) (string, error) {
	path = filepath.Clean(path)

	b, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(b)), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("cryptox: read pepper: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("cryptox: create pepper dir: %w", err)
	}

	raw := make([]byte, keyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	pepper := base64.RawURLEncoding.EncodeToString(raw)

	if err := os.WriteFile(path, []byte(pepper), 0o600); err != nil {
		return "", fmt.Errorf("cryptox: write pepper: %w", err)
	}
	return pepper, nil
}
