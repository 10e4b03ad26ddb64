// Package cache holds the broker's short-lived shared state: consent
// sessions, authorization requests, refresh handles and idempotency guards.
// Every entry carries a TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// KV is a TTL key/value store shared by all broker instances.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores value only when key is absent and reports whether it did.
	// It is the primitive behind the idempotency guards and must be atomic.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Key prefixes.
const (
	PrefixConsent      = "consent:"
	PrefixAuthRequest  = "auth_request:"
	PrefixRefreshToken = "refresh_token:"
	PrefixP2PInitiate  = "p2p_idempotent:"
	PrefixP2PConfirm   = "p2p_confirm:"
)

// GetJSON loads key and decodes it into v.
func GetJSON(ctx context.Context, kv KV, key string, v any) error {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, kv KV, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}
	return kv.Set(ctx, key, raw, ttl)
}
