package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mona-chen/jean/pkg/jwtx"
)

// InitSigningKeys builds the KeyStore that signs and verifies TEP tokens.
//
// Key material comes from TEP_PRIVATE_KEY or, when that is empty,
// TEP_PRIVATE_KEY_FILE. Without either, startup fails unless an ephemeral
// key was explicitly allowed; LoadConfig already refuses that in prod.
func InitSigningKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyStore, error) {
	pem := []byte(cfg.PrivateKey)
	if len(pem) == 0 && cfg.PrivateKeyFile != "" {
		b, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read TEP private key: %w", err)
		}
		pem = b
	}

	keys, err := jwtx.NewKeyStore(jwtx.KeyStoreOptions{
		KID:            cfg.KeyID,
		Algorithm:      cfg.Algorithm,
		PrivateKeyPEM:  pem,
		AllowEphemeral: cfg.AllowEphemeralKey && !cfg.Production(),
	})
	if err != nil {
		return nil, fmt.Errorf("initialize TEP signing key: %w", err)
	}

	if keys.Ephemeral() {
		logger.Warn("generated ephemeral TEP signing key; tokens will not verify after restart",
			"kid", cfg.KeyID,
		)
	} else {
		logger.Info("TEP signing key loaded",
			"kid", cfg.KeyID,
			"algorithm", cfg.Algorithm,
			"source", keySource(cfg),
		)
	}
	return keys, nil
}

func keySource(cfg Config) string {
	if cfg.PrivateKey != "" {
		return "env"
	}
	return "file:" + cfg.PrivateKeyFile
}
