package service

import (
	"context"
	"time"

	"forum-session-demo/backend/internal/forum"
	"forum-session-demo/backend/pkg/cache"
	"forum-session-demo/backend/shared/redis"
)

// Gateway is the forum surface the services depend on. *forum.Client
// implements it; tests substitute an in-memory fake.
type Gateway interface {
	CreateTopic(ctx context.Context, categoryID int, title, body string, tags []string) (forum.TopicRef, error)
	CreateReply(ctx context.Context, topicID, body string) (string, error)
	EditPost(ctx context.Context, postID, body string) error
	GetPost(ctx context.Context, postID string) (string, error)
	GetTopic(ctx context.Context, topicID string, page int) (forum.Topic, error)
	GetFeed(ctx context.Context, feedURL string) (string, error)
	FindTopicsByTag(ctx context.Context, tag string) ([]string, error)
	FeedURL(topicID string) string
	TopicURL(topicID string) string
}

// KeyValue is the advisory cache used for tag-to-topic resolution and the
// published-session index. Entries are hints, never authority: the sheet
// store re-verifies every cached topic id against the forum before using it.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

type redisKV struct {
	client *redis.Client
}

// NewRedisKV adapts the shared redis client to the KeyValue interface.
func NewRedisKV(client *redis.Client) KeyValue {
	return &redisKV{client: client}
}

func (r *redisKV) Get(ctx context.Context, key string) (string, bool) {
	v, err := r.client.Get(ctx, key)
	if err != nil {
		return "", false
	}
	return v, true
}

func (r *redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) {
	_ = r.client.Set(ctx, key, value, ttl)
}

type memoryKV struct {
	cache *cache.Cache
}

// NewMemoryKV adapts the in-memory cache to the KeyValue interface, used
// when redis is disabled.
func NewMemoryKV(c *cache.Cache) KeyValue {
	return &memoryKV{cache: c}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, bool) {
	return m.cache.Get(key)
}

func (m *memoryKV) Set(_ context.Context, key, value string, ttl time.Duration) {
	m.cache.SetWithTTL(key, value, ttl)
}
