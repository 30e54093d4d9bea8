// Package cache はRedisを使った読み取りキャッシュを提供する。
package cache

import (
	"context"
	"errors"

	"github.com/hitoshi/agrimarket/internal/model"
)

// ErrCacheMiss はキーが存在しない場合に返される。
var ErrCacheMiss = errors.New("cache miss")

// ProductCache は商品単位のキャッシュ。
type ProductCache interface {
	Get(ctx context.Context, productID string) (*model.Product, error)
	Set(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, productID string) error
}

// NewsCache はニュースフィードのキャッシュ。
type NewsCache interface {
	Get(ctx context.Context, feedURL string) (*model.NewsFeed, error)
	Set(ctx context.Context, feedURL string, feed *model.NewsFeed) error
}

// NoopCache はRedisが設定されていない場合に使う常にミスするキャッシュ。
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*model.Product, error) { return nil, ErrCacheMiss }
func (NoopCache) Set(context.Context, *model.Product) error           { return nil }
func (NoopCache) Delete(context.Context, string) error                { return nil }

// NoopNewsCache はRedisが設定されていない場合のニュースキャッシュ。
type NoopNewsCache struct{}

func (NoopNewsCache) Get(context.Context, string) (*model.NewsFeed, error) { return nil, ErrCacheMiss }
func (NoopNewsCache) Set(context.Context, string, *model.NewsFeed) error   { return nil }

var (
	_ ProductCache = NoopCache{}
	_ NewsCache    = NoopNewsCache{}
)
