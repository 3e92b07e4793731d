// Package store is the post store adapter: every read and write the
// dashboard and profile pages make goes through PostStore.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/cache"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/tx"
)

// DefaultPublicLimit caps the public feed of a profile.
const DefaultPublicLimit = 50

// PostStore is the contract the controllers are written against.
type PostStore interface {
	Create(ctx context.Context, np model.NewPost) (string, error)
	Update(ctx context.Context, ownerID, id, content string) error
	Delete(ctx context.Context, ownerID, id string) error
	// Query returns the owner's posts newest first. limit <= 0 means all.
	Query(ctx context.Context, ownerID string, limit int) ([]model.Post, error)
	// QueryPublic returns the newest posts of a username.
	QueryPublic(ctx context.Context, username string) ([]model.Post, error)
	// Subscribe opens a live view of the owner's posts.
	Subscribe(ctx context.Context, ownerID string) (*Subscription, error)
}

type PostRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, np model.NewPost) (model.Post, error)
	UpdateContent(ctx context.Context, tx *sql.Tx, ownerID, id, content string) (model.Post, error)
	Delete(ctx context.Context, tx *sql.Tx, ownerID, id string) (model.Post, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Post, error)
	ListByUsername(ctx context.Context, username string, limit int) ([]model.Post, error)
}

type OutboxWriter interface {
	InsertTx(ctx context.Context, tx *sql.Tx, topic, key string, payload []byte) error
}

type ChangeFeed interface {
	Publish(ctx context.Context, ev model.PostEvent) error
	Subscribe(ctx context.Context, ownerID string) (<-chan model.PostEvent, func() error, error)
}

type FeedCache interface {
	Get(ctx context.Context, username string) ([]model.Post, error)
	Set(ctx context.Context, username string, posts []model.Post) error
	Delete(ctx context.Context, username string) error
}

type Store struct {
	Repo        PostRepository
	Outbox      OutboxWriter
	Feed        ChangeFeed
	Cache       FeedCache
	Tx          tx.Transactor
	Topic       string
	PublicLimit int
}

var _ PostStore = (*Store)(nil)

func (s *Store) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return observability.Tracer().Start(ctx, "store."+name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if op != "" {
		observability.PostsWrittenTotal.WithLabelValues(op, result).Inc()
	}
	span.End()
}

func (s *Store) Create(ctx context.Context, np model.NewPost) (id string, err error) {
	ctx, span := s.span(ctx, "Create", attribute.String("owner_id", np.OwnerID))
	defer func() { finish(span, "create", err) }()

	if err := np.Validate(); err != nil {
		return "", err
	}

	var post model.Post
	err = s.Tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		post, err = s.Repo.Insert(ctx, tx, np)
		if err != nil {
			return err
		}
		return s.record(ctx, tx, model.OpCreated, post)
	})
	if err != nil {
		return "", err
	}

	s.afterWrite(ctx, model.OpCreated, post)
	return post.ID, nil
}

func (s *Store) Update(ctx context.Context, ownerID, id, content string) (err error) {
	ctx, span := s.span(ctx, "Update", attribute.String("owner_id", ownerID), attribute.String("post_id", id))
	defer func() { finish(span, "update", err) }()

	if model.IsBlank(content) {
		return model.ErrEmptyContent
	}

	var post model.Post
	err = s.Tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		post, err = s.Repo.UpdateContent(ctx, tx, ownerID, id, content)
		if err != nil {
			return err
		}
		return s.record(ctx, tx, model.OpUpdated, post)
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, model.OpUpdated, post)
	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) (err error) {
	ctx, span := s.span(ctx, "Delete", attribute.String("owner_id", ownerID), attribute.String("post_id", id))
	defer func() { finish(span, "delete", err) }()

	var post model.Post
	err = s.Tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		post, err = s.Repo.Delete(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		return s.record(ctx, tx, model.OpDeleted, post)
	})
	if err != nil {
		return err
	}

	s.afterWrite(ctx, model.OpDeleted, post)
	return nil
}

func (s *Store) record(ctx context.Context, tx *sql.Tx, op model.Op, post model.Post) error {
	if s.Outbox == nil {
		return nil
	}
	payload, err := json.Marshal(event(op, post))
	if err != nil {
		return err
	}
	return s.Outbox.InsertTx(ctx, tx, s.Topic, post.DisplayName, payload)
}

// afterWrite runs once the write has committed. Its failures are logged and
// never reported to the caller: the post is already stored.
func (s *Store) afterWrite(ctx context.Context, op model.Op, post model.Post) {
	log := observability.GetLogger(ctx)

	if s.Cache != nil {
		if err := s.Cache.Delete(ctx, post.DisplayName); err != nil {
			log.Warn("feed cache invalidate failed", zap.String("username", post.DisplayName), zap.Error(err))
		}
	}
	if s.Feed != nil {
		if err := s.Feed.Publish(ctx, event(op, post)); err != nil {
			log.Warn("changefeed publish failed", zap.String("post_id", post.ID), zap.Error(err))
		}
	}
}

func event(op model.Op, post model.Post) model.PostEvent {
	return model.PostEvent{Op: op, Post: post, OccurredAt: time.Now().UnixMilli()}
}

func (s *Store) Query(ctx context.Context, ownerID string, limit int) (posts []model.Post, err error) {
	ctx, span := s.span(ctx, "Query", attribute.String("owner_id", ownerID))
	defer func() { finish(span, "", err) }()

	return s.Repo.ListByOwner(ctx, ownerID, limit)
}

// publicLimit never exceeds DefaultPublicLimit, whatever was configured.
func (s *Store) publicLimit() int {
	if s.PublicLimit > 0 {
		return min(s.PublicLimit, DefaultPublicLimit)
	}
	return DefaultPublicLimit
}

// LoadPublic reads a public feed from the database, bypassing the cache.
func (s *Store) LoadPublic(ctx context.Context, username string) ([]model.Post, error) {
	return s.Repo.ListByUsername(ctx, username, s.publicLimit())
}

func (s *Store) QueryPublic(ctx context.Context, username string) (posts []model.Post, err error) {
	ctx, span := s.span(ctx, "QueryPublic", attribute.String("username", username))
	defer func() { finish(span, "", err) }()

	log := observability.GetLogger(ctx)

	if s.Cache != nil {
		posts, err := s.Cache.Get(ctx, username)
		switch {
		case err == nil:
			observability.FeedCacheLookups.WithLabelValues("hit").Inc()
			return posts, nil
		case errors.Is(err, cache.ErrMiss):
			observability.FeedCacheLookups.WithLabelValues("miss").Inc()
		default:
			observability.FeedCacheLookups.WithLabelValues("error").Inc()
			log.Warn("feed cache read failed", zap.String("username", username), zap.Error(err))
		}
	}

	posts, err = s.LoadPublic(ctx, username)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, username, posts); err != nil {
			log.Warn("feed cache fill failed", zap.String("username", username), zap.Error(err))
		}
	}
	return posts, nil
}

// Subscribe takes the initial snapshot only after the changefeed is attached,
// so a write racing with Subscribe shows up in either the snapshot or the
// events and is never lost.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	events, stop, err := s.Feed.Subscribe(subCtx, ownerID)
	if err != nil {
		cancel()
		return nil, err
	}

	initial, err := s.Repo.ListByOwner(subCtx, ownerID, 0)
	if err != nil {
		stop()
		cancel()
		return nil, err
	}

	reload := func(ctx context.Context) ([]model.Post, error) {
		return s.Repo.ListByOwner(ctx, ownerID, 0)
	}
	return newSubscription(subCtx, cancel, initial, events, stop, reload), nil
}
