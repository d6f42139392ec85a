package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const listingPrefix = "listings:"

// ListingCache is the read-through cache in front of the available-leads
// query, keyed by (provider, filter parameters) with a short TTL. A nil
// *ListingCache is valid and disables caching, so callers never branch on
// whether Redis is configured.
type ListingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis and pings it so a bad URL fails at startup, not on
// the first request.
func New(redisURL string, ttl time.Duration) (*ListingCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &ListingCache{rdb: client, ttl: ttl}, nil
}

// NewWithClient wraps an existing client; tests use it with miniredis.
func NewWithClient(client *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{rdb: client, ttl: ttl}
}

func (c *ListingCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// Key derives the cache key for a provider's filtered listing request.
func Key(providerID string, filters map[string]string) string {
	raw, _ := json.Marshal(filters)
	sum := sha256.Sum256(raw)
	return listingPrefix + providerID + ":" + hex.EncodeToString(sum[:8])
}

// Get unmarshals a cached listing into dest. ok is false on miss or when the
// cache is disabled; cache errors degrade to a miss.
func (c *ListingCache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false
	}
	return true
}

// Set stores a listing under the configured TTL. Errors are swallowed: the
// cache is an optimization, never a dependency.
func (c *ListingCache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate drops every cached listing. Allocation and unlock change which
// leads are available to whom, so both call this after committing.
func (c *ListingCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, listingPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan listing keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("delete listing keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
