package store

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
)

// Subscription is a live, ordered view of one owner's posts. Each change
// event is folded into the local list and the whole new list is delivered on
// Changes, newest first. Close stops delivery and closes Changes.
type Subscription struct {
	mu      sync.Mutex
	current []model.Post

	changes chan []model.Post
	reload  func(ctx context.Context) ([]model.Post, error)
	stop    func() error
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// NewSubscription builds a subscription over an arbitrary event source. It is
// what Store.Subscribe uses and what in-memory stores hand out.
func NewSubscription(ctx context.Context, initial []model.Post, events <-chan model.PostEvent,
	reload func(ctx context.Context) ([]model.Post, error)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	return newSubscription(ctx, cancel, initial, events, nil, reload)
}

func newSubscription(ctx context.Context, cancel context.CancelFunc, initial []model.Post,
	events <-chan model.PostEvent, stop func() error, reload func(ctx context.Context) ([]model.Post, error)) *Subscription {
	s := &Subscription{
		current: slices.Clone(initial),
		changes: make(chan []model.Post, 1),
		reload:  reload,
		stop:    stop,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx, events)
	return s
}

// Snapshot returns a copy of the current list.
func (s *Subscription) Snapshot() []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.current)
}

// Changes delivers full replacement lists. Only the latest undelivered list
// is kept; a slow reader skips intermediate states, never the final one.
func (s *Subscription) Changes() <-chan []model.Post { return s.changes }

func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		if s.stop != nil {
			err = s.stop()
		}
		<-s.done
	})
	return err
}

func (s *Subscription) run(ctx context.Context, events <-chan model.PostEvent) {
	defer close(s.done)
	defer close(s.changes)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.mu.Lock()
			next, ok := apply(s.current, ev)
			s.mu.Unlock()
			if !ok {
				var err error
				next, err = s.reload(ctx)
				if err != nil {
					observability.GetLogger(ctx).Warn("subscription resync failed", zap.Error(err))
					continue
				}
			}
			s.mu.Lock()
			s.current = next
			s.mu.Unlock()
			s.deliver(slices.Clone(next))
		}
	}
}

func (s *Subscription) deliver(posts []model.Post) {
	for {
		select {
		case s.changes <- posts:
			return
		default:
		}
		select {
		case <-s.changes:
		default:
		}
	}
}

// apply folds one event into posts. It reports false when the event cannot
// be applied locally and the list must be reloaded.
func apply(posts []model.Post, ev model.PostEvent) ([]model.Post, bool) {
	idx := slices.IndexFunc(posts, func(p model.Post) bool { return p.ID == ev.Post.ID })

	switch ev.Op {
	case model.OpCreated:
		next := slices.Clone(posts)
		if idx >= 0 {
			next = slices.Delete(next, idx, idx+1)
		}
		return insertSorted(next, ev.Post), true

	case model.OpUpdated:
		if idx < 0 {
			return nil, false
		}
		next := slices.Clone(posts)
		next[idx].Content = ev.Post.Content
		return next, true

	case model.OpDeleted:
		if idx < 0 {
			return posts, true
		}
		return slices.Delete(slices.Clone(posts), idx, idx+1), true
	}
	return nil, false
}

// insertSorted places p ahead of the first post it is newer than. Pending
// times count as newest.
func insertSorted(posts []model.Post, p model.Post) []model.Post {
	at := len(posts)
	for i, q := range posts {
		if newer(p.CreatedAt, q.CreatedAt) {
			at = i
			break
		}
	}
	return slices.Insert(posts, at, p)
}

func newer(a, b model.CreationTime) bool {
	am, aok := a.Millis()
	bm, bok := b.Millis()
	switch {
	case !aok:
		return bok
	case !bok:
		return false
	}
	return am > bm
}
