package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is an in-process KV for single-instance deployments and tests.
// Expired entries are dropped lazily and by Sweep.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry

	// Now is the clock; tests may replace it before first use.
	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), Now: time.Now}
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.Now().Add(ttl)
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if e.expired(m.Now()) {
		delete(m.entries, key)
		return nil, ErrMiss
	}
	return append([]byte(nil), e.value...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{value: append([]byte(nil), value...), expiresAt: m.expiry(ttl)}
	return nil
}

func (m *Memory) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok && !e.expired(m.Now()) {
		return false, nil
	}
	m.entries[key] = entry{value: append([]byte(nil), value...), expiresAt: m.expiry(ttl)}
	return true, nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	n := 0
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }
