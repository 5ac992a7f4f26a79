// Package storage holds the redis fast path for presence. The gateway's
// presence collection stays the durable record; the cached marker only
// accelerates hot reads and its TTL bounds how stale the cached answer can
// get. The durable record deliberately has no timeout semantics.
package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	redisx "github.com/RWACH777/yasa-tasker-sub000/service/storage/redis"
)

const defaultPresenceTTL = 30 * time.Second

// presence key: yt:presence:<user>
func presenceKey(user string) string { return "yt:presence:" + user }

// PresenceCache marks users online with a TTL-keyed value.
type PresenceCache struct {
	ttl time.Duration
}

func NewPresenceCache(ttl time.Duration) *PresenceCache {
	if ttl <= 0 {
		ttl = defaultPresenceTTL
	}
	return &PresenceCache{ttl: ttl}
}

// SetOnline marks the user online and renews the TTL.
func (c *PresenceCache) SetOnline(ctx context.Context, userID string) error {
	return redisx.GetRedis().Set(ctx, presenceKey(userID), "1", c.ttl).Err()
}

// SetOffline actively removes the marker.
func (c *PresenceCache) SetOffline(ctx context.Context, userID string) error {
	return redisx.GetRedis().Del(ctx, presenceKey(userID)).Err()
}

// IsOnline reports whether the marker exists. A missing key is a plain
// false, not an error.
func (c *PresenceCache) IsOnline(ctx context.Context, userID string) (bool, error) {
	_, err := redisx.GetRedis().Get(ctx, presenceKey(userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
