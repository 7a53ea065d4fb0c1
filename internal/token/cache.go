package token

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	// verifyCacheCounters sizes ristretto's frequency sketch.
	verifyCacheCounters = 100_000
	// verifyCacheMaxCost bounds the number of cached verifications.
	verifyCacheMaxCost = 10_000
	// verifyCacheBuffer is ristretto's Get buffer size.
	verifyCacheBuffer = 64
)

// CacheEntry records a successful signature verification.
type CacheEntry struct {
	Subject   string
	ExpiresAt time.Time
}

// VerifyCache caches successful token signature verifications so
// repeated requests with the same bearer token skip the HMAC check.
// Entries are keyed by signing secret and token, expire with the token
// they describe, and cached hits still go through expiry and subject
// re-resolution in Service.Verify, so caching never extends a token's
// life, outlives a deactivation, or survives a secret rotation.
//
// A nil *VerifyCache is valid and disables caching.
type VerifyCache struct {
	cache *ristretto.Cache[string, CacheEntry]
}

// NewVerifyCache creates a verification cache.
func NewVerifyCache() (*VerifyCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, CacheEntry]{
		NumCounters: verifyCacheCounters,
		MaxCost:     verifyCacheMaxCost,
		BufferItems: verifyCacheBuffer,
	})
	if err != nil {
		return nil, err
	}
	return &VerifyCache{cache: cache}, nil
}

// cacheKey hashes the signing secret together with the token, so raw
// token material is not retained and entries written under one secret
// are invisible after the secret rotates. The secret is length-prefixed
// to keep the (secret, token) split unambiguous.
func cacheKey(secret []byte, tokenString string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:", len(secret))
	h.Write(secret)
	h.Write([]byte(tokenString))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached verification for the token under the given
// signing secret, if present.
func (c *VerifyCache) Lookup(secret []byte, tokenString string) (CacheEntry, bool) {
	if c == nil || c.cache == nil {
		return CacheEntry{}, false
	}
	return c.cache.Get(cacheKey(secret, tokenString))
}

// Store records a successful verification. The entry's TTL is capped
// at the token's remaining lifetime.
func (c *VerifyCache) Store(secret []byte, tokenString, subject string, expiresAt, now time.Time) {
	if c == nil || c.cache == nil {
		return
	}
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return
	}
	c.cache.SetWithTTL(cacheKey(secret, tokenString), CacheEntry{
		Subject:   subject,
		ExpiresAt: expiresAt,
	}, 1, remaining)
}

// Wait blocks until pending writes are visible. Test helper.
func (c *VerifyCache) Wait() {
	if c != nil && c.cache != nil {
		c.cache.Wait()
	}
}

// Close releases the cache's resources.
func (c *VerifyCache) Close() {
	if c != nil && c.cache != nil {
		c.cache.Close()
	}
}
