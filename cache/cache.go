// Package cache is the tenant-namespaced read cache. Every key carries
// the tenant id as a typed field; there is no way to build a key without
// one, which is what keeps cached data from leaking across tenants.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Scope string

const (
	ScopeCatalog      Scope = "catalog"
	ScopeAvailability Scope = "availability"
)

// Key identifies one cached entry. TenantID and Scope are mandatory.
type Key struct {
	TenantID string
	Scope    Scope
	Ref      string
}

func (k Key) String() string {
	return fmt.Sprintf("mais:%s:%s:%s", k.TenantID, k.Scope, k.Ref)
}

var ErrMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, k Key) ([]byte, error)
	Set(ctx context.Context, k Key, v []byte, ttl time.Duration) error
	// Invalidate drops every entry in one tenant's scope. Called inside
	// the mutating flow, not fire-and-forget.
	Invalidate(ctx context.Context, tenantID string, scope Scope) error
}

type redisCache struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) Cache { return &redisCache{rdb: rdb} }

func (c *redisCache) Get(ctx context.Context, k Key) ([]byte, error) {
	v, err := c.rdb.Get(ctx, k.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return v, err
}

func (c *redisCache) Set(ctx context.Context, k Key, v []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, k.String(), v, ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context, tenantID string, scope Scope) error {
	pattern := fmt.Sprintf("mais:%s:%s:*", tenantID, scope)

	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
