// Package core holds the repository contracts and small cache services shared by the service layer.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/target/tempguard-api/internal/domain/model"
)

// CacheRepository defines the interface for caching operations.
// This follows the hexagonal architecture pattern where the core defines interfaces
// and the data layer provides implementations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// LookupCache stores product lookup answers by normalized product code.
type LookupCache struct {
	cache CacheRepository
	ttl   time.Duration
}

// NewLookupCache creates a LookupCache. A nil cache or non-positive ttl disables caching.
func NewLookupCache(cache CacheRepository, ttl time.Duration) *LookupCache {
	return &LookupCache{cache: cache, ttl: ttl}
}

// Enabled reports whether answers are cached at all.
func (c *LookupCache) Enabled() bool {
	return c != nil && c.cache != nil && c.ttl > 0
}

// Get returns the cached answer for code, or nil on a miss.
func (c *LookupCache) Get(ctx context.Context, code string) (*model.ProductSuggestion, error) {
	if !c.Enabled() || code == "" {
		return nil, nil
	}
	raw, err := c.cache.Get(ctx, c.key(code))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var s model.ProductSuggestion
	if err := json.Unmarshal(raw, &s); err != nil {
		// Corrupt entries are dropped and treated as a miss.
		_, _ = c.cache.Delete(ctx, c.key(code))
		return nil, nil
	}
	return &s, nil
}

// Put caches the answer for code.
func (c *LookupCache) Put(ctx context.Context, code string, s *model.ProductSuggestion) error {
	if !c.Enabled() || code == "" || s == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal suggestion: %w", err)
	}
	return c.cache.Set(ctx, c.key(code), raw, c.ttl)
}

func (c *LookupCache) key(code string) string {
	return "lookup:product:" + code
}
