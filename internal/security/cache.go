package security

import (
	"sync"
	"time"

	"github.com/wanjune/yuu-transfer/internal/adapters/realclock"
	"github.com/wanjune/yuu-transfer/internal/ports"
)

// DefaultSecretTTL is how long a resolved secret stays cached.
const DefaultSecretTTL = 15 * time.Minute

type cachedSecret struct {
	data      []byte
	createdAt time.Time
}

// SecretCache holds resolved secrets for a limited time so a long-running
// server does not hit the keyring or prompt on every call. Expired entries
// are wiped.
type SecretCache struct {
	mu      sync.Mutex
	entries map[string]*cachedSecret
	ttl     time.Duration
	clock   ports.Clock
}

// SecretCacheOption configures a SecretCache.
type SecretCacheOption func(*SecretCache)

// WithClock sets the clock used for expiry.
func WithClock(clock ports.Clock) SecretCacheOption {
	return func(c *SecretCache) {
		c.clock = clock
	}
}

// NewSecretCache creates a cache whose entries live for ttl.
func NewSecretCache(ttl time.Duration, opts ...SecretCacheOption) *SecretCache {
	if ttl <= 0 {
		ttl = DefaultSecretTTL
	}
	c := &SecretCache{
		entries: make(map[string]*cachedSecret),
		ttl:     ttl,
		clock:   realclock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores a copy of secret under key, replacing any earlier value.
func (c *SecretCache) Set(key string, secret []byte) {
	data := make([]byte, len(secret))
	copy(data, secret)

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[key]; ok {
		WipeBytes(old.data)
	}
	c.entries[key] = &cachedSecret{data: data, createdAt: c.clock.Now()}
}

// Get returns a copy of the secret under key, or nil when absent or expired.
func (c *SecretCache) Get(key string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.clock.Now().Sub(e.createdAt) > c.ttl {
		WipeBytes(e.data)
		delete(c.entries, key)
		return nil
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out
}

// Clear wipes the secret under key.
func (c *SecretCache) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		WipeBytes(e.data)
		delete(c.entries, key)
	}
}

// ClearAll wipes every cached secret.
func (c *SecretCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		WipeBytes(e.data)
		delete(c.entries, k)
	}
}

// Len returns the number of entries, expired ones included.
func (c *SecretCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
