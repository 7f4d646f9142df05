package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis for the engine's advisory caches: resolved sheet
// topics and the published-session index.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to the given address. An empty address falls back to
// the conventional localhost port.
func NewClient(addr string) *Client {
	if addr == "" {
		addr = "localhost:6379"
	}
	return &Client{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

// Set stores a value with an expiration; 0 keeps it forever.
func (c *Client) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value. A missing key returns redis.Nil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Del removes a key.
func (c *Client) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Ping checks connectivity, used by the health checker.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// IsNil reports whether err means "key not found".
func IsNil(err error) bool {
	return err == redis.Nil
}
