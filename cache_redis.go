package polyquery

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// RedisCache is a Cache implementation backed by go-redis, using
// msgpack for value encoding. It is optional read-through caching,
// disabled by default and wired into queryOne/queryMany only when the
// router's cache configuration option enables it.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing *redis.Client. prefix namespaces
// every key this cache touches, so DeletePrefix/Clear never reach
// keys belonging to another consumer of the same Redis instance.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return b, err
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

// DeletePrefix implements Cache. Uses SCAN rather than KEYS so a large
// keyspace doesn't block the Redis event loop.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, c.key(prefix)+"*", 0).Iterator()
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
	return c.client.Del(ctx, keys...).Err()
}

// Clear implements Cache by deleting everything under this cache's
// own prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	return c.DeletePrefix(ctx, "")
}

// EncodeValue msgpack-encodes v for storage via Set.
func EncodeValue(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// DecodeValue msgpack-decodes b (as returned by Get) into v.
func DecodeValue(b []byte, v any) error {
	return msgpack.Unmarshal(b, v)
}

var _ Cache = (*RedisCache)(nil)
