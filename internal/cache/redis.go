package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/hitoshi/agrimarket/internal/model"
	"github.com/redis/go-redis/v9"
)

// maxJitter は同時失効を避けるためにTTLへ加算する揺らぎの上限（分）。
const maxJitter = 5

// RedisProductCache はRedisに商品をJSONで保存するProductCache。
type RedisProductCache struct {
	client  redis.Cmdable
	baseTTL time.Duration
}

// NewRedisProductCache はRedisProductCacheを生成する。
func NewRedisProductCache(client redis.Cmdable, baseTTL time.Duration) *RedisProductCache {
	return &RedisProductCache{client: client, baseTTL: baseTTL}
}

func (c *RedisProductCache) Get(ctx context.Context, productID string) (*model.Product, error) {
	var p model.Product
	if err := getJSON(ctx, c.client, productKey(productID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RedisProductCache) Set(ctx context.Context, product *model.Product) error {
	jitter := time.Duration(rand.IntN(maxJitter)) * time.Minute
	return setJSON(ctx, c.client, productKey(product.ID), product, c.baseTTL+jitter)
}

func (c *RedisProductCache) Delete(ctx context.Context, productID string) error {
	if err := c.client.Del(ctx, productKey(productID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// RedisNewsCache はフィードURL単位でニュースを保存するNewsCache。
type RedisNewsCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisNewsCache はRedisNewsCacheを生成する。
func NewRedisNewsCache(client redis.Cmdable, ttl time.Duration) *RedisNewsCache {
	return &RedisNewsCache{client: client, ttl: ttl}
}

func (c *RedisNewsCache) Get(ctx context.Context, feedURL string) (*model.NewsFeed, error) {
	var feed model.NewsFeed
	if err := getJSON(ctx, c.client, newsKey(feedURL), &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// Set はフィードを保存する。フォールバック記事はキャッシュしない。
func (c *RedisNewsCache) Set(ctx context.Context, feedURL string, feed *model.NewsFeed) error {
	if feed.Fallback {
		return nil
	}
	return setJSON(ctx, c.client, newsKey(feedURL), feed, c.ttl)
}

func getJSON(ctx context.Context, client redis.Cmdable, key string, v any) error {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func setJSON(ctx context.Context, client redis.Cmdable, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func productKey(productID string) string {
	return fmt.Sprintf("product:%s", productID)
}

func newsKey(feedURL string) string {
	return fmt.Sprintf("news:%s", feedURL)
}

var (
	_ ProductCache = (*RedisProductCache)(nil)
	_ NewsCache    = (*RedisNewsCache)(nil)
)
