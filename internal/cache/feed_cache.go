package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
)

// ErrMiss is returned by Get when nothing is cached for the username.
var ErrMiss = errors.New("feed cache miss")

// FeedCache holds the public feed of a username as JSON.
type FeedCache struct {
	R   *redis.Client
	TTL time.Duration
}

func key(username string) string { return "feed:" + username }

func (c *FeedCache) Get(ctx context.Context, username string) ([]model.Post, error) {
	b, err := c.R.Get(ctx, key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var posts []model.Post
	return posts, json.Unmarshal(b, &posts)
}

func (c *FeedCache) Set(ctx context.Context, username string, posts []model.Post) error {
	b, err := json.Marshal(posts)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key(username), b, c.TTL).Err()
}

func (c *FeedCache) Delete(ctx context.Context, username string) error {
	return c.R.Del(ctx, key(username)).Err()
}
