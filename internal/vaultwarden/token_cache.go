package vaultwarden

import (
	"sync"
	"time"
)

// refreshSkew is subtracted from a token's lifetime so a new token is
// obtained shortly before the old one actually expires.
const refreshSkew = 15 * time.Second

// tokenCache stores the access token in memory for per-process caching.
// Thread-safe; tokens are never persisted to disk.
type tokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// Get returns the cached token if it exists and is not expired.
func (c *tokenCache) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == "" || time.Now().After(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

// Set stores a token with the specified lifetime, minus the refresh skew.
func (c *tokenCache) Set(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl > refreshSkew {
		ttl -= refreshSkew
	}
	c.token = token
	c.expiresAt = time.Now().Add(ttl)
}

// Clear removes the cached token.
func (c *tokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.expiresAt = time.Time{}
}
