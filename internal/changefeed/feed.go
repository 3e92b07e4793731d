// Package changefeed fans post mutations out to every live dashboard of the
// post's owner, across service instances, over Redis pub/sub.
package changefeed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
)

type Feed struct {
	client *redis.Client
}

func New(client *redis.Client) *Feed {
	return &Feed{client: client}
}

func channel(ownerID string) string {
	return "journal:posts:" + ownerID
}

// Publish announces ev to subscribers of the post owner's channel.
func (f *Feed) Publish(ctx context.Context, ev model.PostEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	observability.GetLogger(ctx).Debug("changefeed: publish",
		zap.String("op", string(ev.Op)), zap.String("post_id", ev.Post.ID))
	return f.client.Publish(ctx, channel(ev.Post.OwnerID), payload).Err()
}

// Subscribe delivers the owner's events until ctx is cancelled or the returned
// cancel function runs. The channel is closed when delivery stops.
func (f *Feed) Subscribe(ctx context.Context, ownerID string) (<-chan model.PostEvent, func() error, error) {
	name := channel(ownerID)
	pubsub := f.client.Subscribe(ctx, name)

	// Wait for the subscription to be confirmed so no write made after
	// Subscribe returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan model.PostEvent, 16)
	go func() {
		log := observability.GetLogger(ctx)
		log.Debug("changefeed: subscribed", zap.String("channel", name))
		defer close(out)

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev model.PostEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn("changefeed: bad payload", zap.String("channel", name), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, pubsub.Close, nil
}
