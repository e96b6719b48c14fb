package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oggyb/sloi/internal/config"
	"github.com/redis/go-redis/v9"
)

// ErrLimitReached is returned by ReserveSwipe when the counter is at the cap.
var ErrLimitReached = errors.New("daily swipe limit reached")

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForDailySwipes generates the Redis key of a user's swipe counter for one day.
// day is formatted as 2006-01-02 in the reference timezone.
func (c *RedisCache) KeyForDailySwipes(userID, day string) string {
	return fmt.Sprintf("swipes:daily:%s:%s", userID, day)
}

// reserveScript atomically seeds, compares and increments the daily counter.
//
//	KEYS[1] counter key
//	ARGV[1] seed value used when the key is missing (ledger count)
//	ARGV[2] limit
//	ARGV[3] ttl seconds
//
// Returns the new counter value, or -1 when the limit is already reached.
var reserveScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
	current = tonumber(ARGV[1])
	redis.call('SET', KEYS[1], current, 'EX', tonumber(ARGV[3]))
else
	current = tonumber(current)
end
if current >= tonumber(ARGV[2]) then
	return -1
end
return redis.call('INCR', KEYS[1])
`)

// ReserveSwipe takes one slot of the daily counter.
//
// Behavior:
//   - If the key is missing it is seeded with `seed` and expires after ttl.
//   - If the counter is >= limit nothing changes and ErrLimitReached is returned.
//   - Otherwise the counter is incremented and its new value returned.
//
// The whole sequence runs as one Lua script, so concurrent swipes of the same
// user cannot both take the last slot.
func (c *RedisCache) ReserveSwipe(ctx context.Context, key string, seed int64, limit int, ttl time.Duration) (int64, error) {
	secs := int64(ttl / time.Second)
	if secs <= 0 {
		secs = 1
	}
	n, err := reserveScript.Run(ctx, c.Client, []string{key}, seed, limit, secs).Int64()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrLimitReached
	}
	return n, nil
}

// releaseScript decrements the counter only while the key exists and is
// positive, so a release after expiry leaves nothing behind.
var releaseScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current or tonumber(current) <= 0 then
	return 0
end
return redis.call('DECR', KEYS[1])
`)

// ReleaseSwipe gives back a slot taken by ReserveSwipe. Never goes below zero
// and never recreates an expired key.
func (c *RedisCache) ReleaseSwipe(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, c.Client, []string{key}).Err()
}

// GetDailySwipes reads the counter. Cache miss returns ok=false.
func (c *RedisCache) GetDailySwipes(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}
