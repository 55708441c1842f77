package balances

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache keeps computed account balances in redis behind a per-business
// version counter. Invalidation bumps the counter, so stale entries are
// never served and simply expire. A nil *Cache is a no-op.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(businessID uuid.UUID) string {
	return "balances:ver:" + businessID.String()
}

func (c *Cache) version(ctx context.Context, businessID uuid.UUID) int64 {
	v, err := c.client.Get(ctx, versionKey(businessID)).Int64()
	if err != nil {
		return 0
	}
	return v
}

func (c *Cache) key(ctx context.Context, businessID, accountID uuid.UUID, asOf *time.Time) string {
	at := "latest"
	if asOf != nil {
		at = asOf.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("balances:v%d:%s:acct:%s:asof:%s",
		c.version(ctx, businessID), businessID, accountID, at)
}

// GetAccount returns a cached balance, if present.
func (c *Cache) GetAccount(ctx context.Context, businessID, accountID uuid.UUID, asOf *time.Time) (AccountBalance, bool) {
	if c == nil || c.client == nil {
		return AccountBalance{}, false
	}
	raw, err := c.client.Get(ctx, c.key(ctx, businessID, accountID, asOf)).Bytes()
	if err != nil {
		return AccountBalance{}, false
	}
	var out AccountBalance
	if err := json.Unmarshal(raw, &out); err != nil {
		return AccountBalance{}, false
	}
	return out, true
}

// SetAccount stores a computed balance. Failures are ignored; the cache is
// an optimisation, never a source of truth.
func (c *Cache) SetAccount(ctx context.Context, businessID uuid.UUID, b AccountBalance) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(ctx, businessID, b.AccountID, b.AsOf), raw, c.ttl)
}

// InvalidateBusiness drops every cached balance for a business by bumping
// its version counter. Called after imports and balance syncs.
func (c *Cache) InvalidateBusiness(ctx context.Context, businessID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Incr(ctx, versionKey(businessID))
}
