package access

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/taskhive/taskhive/pkg/observability"
)

// RedisCache layers a shared Redis cache over an access resolver so that
// resolutions survive process restarts and are shared across instances.
// The in-memory cache inside the resolver still applies underneath.
type RedisCache struct {
	resolver *Resolver
	redis    *redis.Client
	ttl      time.Duration
	metrics  *observability.Metrics
}

// NewRedisCache creates a Redis-backed access cache on top of an
// existing client. The caller owns the client and its lifecycle; the
// cache never dials or closes connections itself.
func NewRedisCache(resolver *Resolver, client *redis.Client, ttl time.Duration, metrics *observability.Metrics) *RedisCache {
	return &RedisCache{
		resolver: resolver,
		redis:    client,
		ttl:      ttl,
		metrics:  metrics,
	}
}

func redisOrgKey(userID, orgID, workspaceID int64) string {
	return fmt.Sprintf("access:org:%d:%d:%d", userID, orgID, workspaceID)
}

// ResolveOrgAccess resolves org access through the Redis cache. Redis
// failures degrade to a direct resolution rather than a denial.
func (c *RedisCache) ResolveOrgAccess(ctx context.Context, userID, orgID, workspaceID int64) (*UserAccess, error) {
	key := redisOrgKey(userID, orgID, workspaceID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var access UserAccess
		if err := json.Unmarshal([]byte(cached), &access); err == nil {
			c.record(true)
			return &access, nil
		}
	}
	c.record(false)

	access, err := c.resolver.ResolveOrgAccess(ctx, userID, orgID, workspaceID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(access); err == nil {
		c.redis.Set(ctx, key, data, c.ttl)
	}
	return access, nil
}

// ResolveProjectAccess passes through to the resolver. Project access is
// not cached: membership unions are cheap and mutate often.
func (c *RedisCache) ResolveProjectAccess(ctx context.Context, userID, projectID int64) (*ProjectAccess, error) {
	return c.resolver.ResolveProjectAccess(ctx, userID, projectID)
}

// Invalidate drops the cached access for one user in one org from both
// layers. A Redis failure only widens the cache window, so the error is
// not surfaced to mutation handlers.
func (c *RedisCache) Invalidate(userID, orgID int64) {
	_ = c.InvalidateContext(context.Background(), userID, orgID)
}

// InvalidateContext is Invalidate with a caller-supplied context and the
// Redis error exposed. Every workspace variant of the entry is dropped.
func (c *RedisCache) InvalidateContext(ctx context.Context, userID, orgID int64) error {
	c.resolver.Invalidate(userID, orgID)
	return c.deleteMatching(ctx, fmt.Sprintf("access:org:%d:%d:*", userID, orgID))
}

// InvalidateOrg drops every cached access entry for an organization
func (c *RedisCache) InvalidateOrg(orgID int64) {
	_ = c.InvalidateOrgContext(context.Background(), orgID)
}

// InvalidateOrgContext is InvalidateOrg with a caller-supplied context
// and the Redis error exposed.
func (c *RedisCache) InvalidateOrgContext(ctx context.Context, orgID int64) error {
	c.resolver.InvalidateOrg(orgID)
	return c.deleteMatching(ctx, fmt.Sprintf("access:org:*:%d:*", orgID))
}

func (c *RedisCache) deleteMatching(ctx context.Context, pattern string) error {
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

func (c *RedisCache) record(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHitsTotal.WithLabelValues("org", "redis").Inc()
	} else {
		c.metrics.CacheMissesTotal.WithLabelValues("org", "redis").Inc()
	}
}
