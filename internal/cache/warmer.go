package cache

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
)

// Loader reads a public feed straight from the database.
type Loader func(ctx context.Context, username string) ([]model.Post, error)

type Store interface {
	Set(ctx context.Context, username string, posts []model.Post) error
}

// Warmer consumes post events from Kafka and refills the public feed cache of
// the affected username, so the next profile view is served from Redis.
type Warmer struct {
	cache Store
	load  Loader
}

func NewWarmer(cache Store, load Loader) *Warmer {
	return &Warmer{cache: cache, load: load}
}

func (w *Warmer) Handle(ctx context.Context, record []byte) {
	log := observability.GetLogger(ctx)

	var ev model.PostEvent
	if err := json.Unmarshal(record, &ev); err != nil {
		log.Warn("feed warmer: bad event payload", zap.Error(err))
		return
	}
	username := ev.Post.DisplayName
	if username == "" {
		return
	}

	posts, err := w.load(ctx, username)
	if err != nil {
		log.Warn("feed warmer: load failed", zap.String("username", username), zap.Error(err))
		return
	}
	if err := w.cache.Set(ctx, username, posts); err != nil {
		log.Warn("feed warmer: cache set failed", zap.String("username", username), zap.Error(err))
	}
}
