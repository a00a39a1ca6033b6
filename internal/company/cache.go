package company

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/visitor-insights/internal/pkg/logger"
)

const cacheKeyPrefix = "company:ip:"

// CachedResolver is a Redis read-through cache in front of another Resolver.
// Unknown results are cached too, for a shorter time.
type CachedResolver struct {
	next       Resolver
	rdb        *redis.Client
	ttl        time.Duration
	unknownTTL time.Duration
}

// NewCachedResolver wraps next. A non-positive ttl defaults to 24h.
func NewCachedResolver(next Resolver, rdb *redis.Client, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedResolver{next: next, rdb: rdb, ttl: ttl, unknownTTL: ttl / 4}
}

func (c *CachedResolver) Resolve(ctx context.Context, ip string) (string, error) {
	key := cacheKeyPrefix + ip
	name, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return name, nil
	case !errors.Is(err, redis.Nil):
		// cache outage degrades to the backing resolver
		logger.Warn("company: cache read failed", "ip", ip, "error", err)
	}

	name, err = c.next.Resolve(ctx, ip)
	if err != nil {
		return "", err
	}

	ttl := c.ttl
	if name == Unknown {
		ttl = c.unknownTTL
	}
	if err := c.rdb.Set(ctx, key, name, ttl).Err(); err != nil {
		logger.Warn("company: cache write failed", "ip", ip, "error", err)
	}
	return name, nil
}
