// Package storetest provides an in-memory store.PostStore for tests.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/store"
)

// Memory keeps posts newest first and feeds every subscriber of the owner.
// Setting one of the Err fields makes the matching call fail.
type Memory struct {
	mu     sync.Mutex
	posts  []model.Post
	subs   map[string][]chan model.PostEvent
	nextID int
	clock  int64

	CreateErr error
	UpdateErr error
	DeleteErr error
	QueryErr  error
	PublicErr error

	Creates int
	Updates int
	Deletes int
}

var _ store.PostStore = (*Memory)(nil)

func New(seed ...model.Post) *Memory {
	m := &Memory{subs: map[string][]chan model.PostEvent{}, clock: 1_700_000_000_000}
	m.posts = slices.Clone(seed)
	return m
}

func (m *Memory) SetCreateErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateErr = err
}

func (m *Memory) SetUpdateErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateErr = err
}

func (m *Memory) Create(_ context.Context, np model.NewPost) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Creates++
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if err := np.Validate(); err != nil {
		return "", err
	}
	m.nextID++
	m.clock += 60_000
	p := model.Post{
		ID:          fmt.Sprintf("post-%d", m.nextID),
		OwnerID:     np.OwnerID,
		DisplayName: np.DisplayName,
		Content:     np.Content,
		Kind:        np.Kind,
		CreatedAt:   model.Known(m.clock),
	}
	m.posts = append([]model.Post{p}, m.posts...)
	m.emit(model.PostEvent{Op: model.OpCreated, Post: p})
	return p.ID, nil
}

func (m *Memory) index(id string) int {
	return slices.IndexFunc(m.posts, func(p model.Post) bool { return p.ID == id })
}

func (m *Memory) Update(_ context.Context, ownerID, id, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates++
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if model.IsBlank(content) {
		return model.ErrEmptyContent
	}
	i := m.index(id)
	if i < 0 {
		return model.ErrPostNotFound
	}
	if m.posts[i].OwnerID != ownerID {
		return model.ErrNotOwner
	}
	m.posts[i].Content = content
	m.emit(model.PostEvent{Op: model.OpUpdated, Post: m.posts[i]})
	return nil
}

func (m *Memory) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	i := m.index(id)
	if i < 0 {
		return model.ErrPostNotFound
	}
	if m.posts[i].OwnerID != ownerID {
		return model.ErrNotOwner
	}
	p := m.posts[i]
	m.posts = slices.Delete(m.posts, i, i+1)
	m.emit(model.PostEvent{Op: model.OpDeleted, Post: p})
	return nil
}

func (m *Memory) Query(_ context.Context, ownerID string, limit int) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.filter(func(p model.Post) bool { return p.OwnerID == ownerID }, limit), nil
}

func (m *Memory) QueryPublic(_ context.Context, username string) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublicErr != nil {
		return nil, m.PublicErr
	}
	return m.filter(func(p model.Post) bool { return p.DisplayName == username }, store.DefaultPublicLimit), nil
}

func (m *Memory) Subscribe(ctx context.Context, ownerID string) (*store.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	ch := make(chan model.PostEvent, 64)
	m.subs[ownerID] = append(m.subs[ownerID], ch)
	initial := m.filter(func(p model.Post) bool { return p.OwnerID == ownerID }, 0)
	reload := func(ctx context.Context) ([]model.Post, error) { return m.Query(ctx, ownerID, 0) }
	return store.NewSubscription(ctx, initial, ch, reload), nil
}

func (m *Memory) filter(keep func(model.Post) bool, limit int) []model.Post {
	out := []model.Post{}
	for _, p := range m.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Memory) emit(ev model.PostEvent) {
	for _, ch := range m.subs[ev.Post.OwnerID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
