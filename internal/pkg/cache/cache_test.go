package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*ListingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWithClient(client, 30*time.Second), mr
}

type listing struct {
	LeadID string `json:"lead_id"`
	Price  int    `json:"price"`
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	key := Key("provider-1", map[string]string{"category": "plumbing"})
	stored := []listing{{LeadID: "a", Price: 3}, {LeadID: "b", Price: 7}}
	c.Set(ctx, key, stored)

	var got []listing
	require.True(t, c.Get(ctx, key, &got))
	assert.Equal(t, stored, got)
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	c, _ := setupCache(t)

	var got []listing
	assert.False(t, c.Get(context.Background(), Key("provider-2", nil), &got))
}

func TestCacheKeyVariesByProviderAndFilters(t *testing.T) {
	a := Key("provider-1", map[string]string{"category": "plumbing"})
	b := Key("provider-1", map[string]string{"category": "roofing"})
	c := Key("provider-2", map[string]string{"category": "plumbing"})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, Key("provider-1", map[string]string{"category": "plumbing"}))
}

func TestCacheEntriesExpire(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	key := Key("provider-1", nil)
	c.Set(ctx, key, []listing{{LeadID: "a"}})

	mr.FastForward(time.Minute)

	var got []listing
	assert.False(t, c.Get(ctx, key, &got))
}

func TestInvalidateDropsOnlyListingKeys(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	c.Set(ctx, Key("provider-1", nil), []listing{{LeadID: "a"}})
	c.Set(ctx, Key("provider-2", map[string]string{"category": "roofing"}), []listing{{LeadID: "b"}})
	require.NoError(t, mr.Set("unrelated:key", "keep"))

	require.NoError(t, c.Invalidate(ctx))

	var got []listing
	assert.False(t, c.Get(ctx, Key("provider-1", nil), &got))
	assert.False(t, c.Get(ctx, Key("provider-2", map[string]string{"category": "roofing"}), &got))

	kept, err := mr.Get("unrelated:key")
	require.NoError(t, err)
	assert.Equal(t, "keep", kept)
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *ListingCache
	ctx := context.Background()

	c.Set(ctx, "k", []listing{{LeadID: "a"}})

	var got []listing
	assert.False(t, c.Get(ctx, "k", &got))
	assert.NoError(t, c.Invalidate(ctx))
	assert.NoError(t, c.Close())
}
