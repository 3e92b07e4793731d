// Package dashboard holds the state of one signed-in user's dashboard: the
// draft, the live post list, the edit slot and the listing filters.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/grouping"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/store"
)

var (
	ErrNoSession    = errors.New("no authenticated session")
	ErrSubmitting   = errors.New("a post is already being submitted")
	ErrNotEditing   = errors.New("no post is in edit mode")
	ErrNotConfirmed = errors.New("delete requires confirmation")
)

const (
	noticeCreateFailed = "发布失败，请稍后再试"
	noticeUpdateFailed = "保存失败，请稍后再试"
	noticeDeleteFailed = "删除失败，请稍后再试"
	noticeSyncFailed   = "同步失败，请刷新页面"
)

// Owner identifies the signed-in user. Handle is stamped onto every post as
// its username.
type Owner struct {
	AccountID string
	Handle    string
}

type Controller struct {
	mu    sync.Mutex
	store store.PostStore
	owner Owner

	draft      string
	draftKind  model.Kind
	submitting bool
	posts      []model.Post
	edit       EditSession
	search     string
	kind       grouping.KindFilter
	fold       *grouping.FoldState
	openDiary  string
	notice     string

	sub     *store.Subscription
	changes chan View
	started bool
	stopped bool
	done    chan struct{}
}

func New(s store.PostStore, owner Owner) *Controller {
	return &Controller{
		store:     s,
		owner:     owner,
		draftKind: model.KindStatus,
		edit:      NotEditing{},
		kind:      grouping.All,
		fold:      grouping.NewFoldState(),
		changes:   make(chan View, 1),
		done:      make(chan struct{}),
	}
}

func (c *Controller) signedIn() bool { return c.owner.AccountID != "" }

// Start opens the live subscription. Every later change to the owner's posts
// is pushed on Changes until Stop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if !c.signedIn() {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.started || c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	sub, err := c.store.Subscribe(ctx, c.owner.AccountID)
	if err != nil {
		observability.GetLogger(ctx).Warn("dashboard subscribe failed",
			zap.String("owner_id", c.owner.AccountID), zap.Error(err))
		c.mu.Lock()
		c.started = false
		c.notice = noticeSyncFailed
		c.emit()
		c.mu.Unlock()
		return fmt.Errorf("subscribe: %w", err)
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		sub.Close()
		return nil
	}
	c.sub = sub
	c.replacePosts(sub.Snapshot())
	c.mu.Unlock()

	go c.follow(sub)
	return nil
}

func (c *Controller) follow(sub *store.Subscription) {
	defer close(c.done)
	for posts := range sub.Changes() {
		c.mu.Lock()
		if c.stopped {
			c.mu.Unlock()
			return
		}
		c.replacePosts(posts)
		c.mu.Unlock()
	}
}

// Load fills the list with a one-shot query instead of a subscription.
func (c *Controller) Load(ctx context.Context) error {
	if !c.signedIn() {
		return ErrNoSession
	}
	posts, err := c.store.Query(ctx, c.owner.AccountID, 0)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replacePosts(posts)
	return nil
}

// Stop ends the subscription and closes Changes. Transient state goes with
// the controller.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	sub := c.sub
	close(c.changes)
	c.mu.Unlock()

	if sub != nil {
		sub.Close()
		<-c.done
	}
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.render()
}

// Changes pushes a fresh View after every state change. Only the newest
// undelivered view is kept.
func (c *Controller) Changes() <-chan View { return c.changes }

func (c *Controller) SetDraft(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = content
	c.emit()
}

func (c *Controller) SetDraftKind(k model.Kind) error {
	if !k.Valid() {
		return model.ErrInvalidKind
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draftKind = k
	c.emit()
	return nil
}

// CreatePost submits the draft. Blank drafts, a missing session and a
// submission already in flight are refused without touching the store. The
// draft is cleared only when the store accepted it.
func (c *Controller) CreatePost(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case !c.signedIn():
		c.mu.Unlock()
		return ErrNoSession
	case model.IsBlank(c.draft):
		c.mu.Unlock()
		return model.ErrEmptyContent
	case c.submitting:
		c.mu.Unlock()
		return ErrSubmitting
	}
	np := model.NewPost{
		OwnerID:     c.owner.AccountID,
		DisplayName: c.owner.Handle,
		Content:     c.draft,
		Kind:        c.draftKind,
	}
	c.submitting = true
	c.emit()
	c.mu.Unlock()

	_, err := c.store.Create(ctx, np)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		observability.GetLogger(ctx).Warn("create post failed",
			zap.String("owner_id", np.OwnerID), zap.Error(err))
		c.notice = noticeCreateFailed
		c.emit()
		return fmt.Errorf("create post: %w", err)
	}
	c.draft = ""
	c.notice = ""
	c.emit()
	return nil
}

// EnterEdit puts one post in edit mode, replacing any other, with the buffer
// seeded from the post's content.
func (c *Controller) EnterEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.posts, func(p model.Post) bool { return p.ID == id })
	if i < 0 {
		return model.ErrPostNotFound
	}
	c.edit = Editing{PostID: id, Buffer: c.posts[i].Content}
	c.emit()
	return nil
}

func (c *Controller) ExitEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edit = NotEditing{}
	c.emit()
}

func (c *Controller) SetEditBuffer(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.edit.(Editing)
	if !ok {
		return ErrNotEditing
	}
	e.Buffer = text
	c.edit = e
	c.emit()
	return nil
}

// UpdatePost saves the edit buffer. On failure the post stays in edit mode
// with the attempted text.
func (c *Controller) UpdatePost(ctx context.Context) error {
	c.mu.Lock()
	e, ok := c.edit.(Editing)
	switch {
	case !c.signedIn():
		c.mu.Unlock()
		return ErrNoSession
	case !ok:
		c.mu.Unlock()
		return ErrNotEditing
	case model.IsBlank(e.Buffer):
		c.mu.Unlock()
		return model.ErrEmptyContent
	}
	c.mu.Unlock()

	err := c.store.Update(ctx, c.owner.AccountID, e.PostID, e.Buffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		observability.GetLogger(ctx).Warn("update post failed",
			zap.String("post_id", e.PostID), zap.Error(err))
		c.notice = noticeUpdateFailed
		c.emit()
		return fmt.Errorf("update post: %w", err)
	}
	if cur, ok := c.edit.(Editing); ok && cur.PostID == e.PostID {
		c.edit = NotEditing{}
	}
	c.notice = ""
	c.emit()
	return nil
}

// DeletePost removes a post for good. confirmed must carry the user's
// explicit confirmation.
func (c *Controller) DeletePost(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if !c.signedIn() {
		return ErrNoSession
	}

	err := c.store.Delete(ctx, c.owner.AccountID, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		observability.GetLogger(ctx).Warn("delete post failed",
			zap.String("post_id", id), zap.Error(err))
		c.notice = noticeDeleteFailed
		c.emit()
		return fmt.Errorf("delete post: %w", err)
	}
	if e, ok := c.edit.(Editing); ok && e.PostID == id {
		c.edit = NotEditing{}
	}
	if c.openDiary == id {
		c.openDiary = ""
	}
	c.notice = ""
	c.emit()
	return nil
}

func (c *Controller) SetSearch(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = s
	c.recompute()
}

func (c *Controller) SetKind(k grouping.KindFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kind = k
	c.recompute()
}

func (c *Controller) ToggleMonth(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fold.Toggle(label)
	c.emit()
}

// ToggleDiary opens one diary entry, closing any other. Toggling the open
// one closes it.
func (c *Controller) ToggleDiary(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openDiary == id {
		c.openDiary = ""
	} else {
		c.openDiary = id
	}
	c.emit()
}

// replacePosts swaps in a new list. An edit or opened diary whose post is
// gone is dropped.
func (c *Controller) replacePosts(posts []model.Post) {
	c.posts = posts
	has := func(id string) bool {
		return slices.ContainsFunc(posts, func(p model.Post) bool { return p.ID == id })
	}
	if e, ok := c.edit.(Editing); ok && !has(e.PostID) {
		c.edit = NotEditing{}
	}
	if c.openDiary != "" && !has(c.openDiary) {
		c.openDiary = ""
	}
	c.recompute()
}

func (c *Controller) listing() grouping.View {
	return grouping.Compute(c.posts, c.search, c.kind)
}

// recompute applies the fold policy to a new listing. It runs only when the
// posts or the filters change, so a month toggled during a search stays
// toggled until the next change. Callers hold c.mu.
func (c *Controller) recompute() {
	c.fold.Sync(c.listing().Buckets, c.search)
	c.emit()
}

// emit pushes the current view. Callers hold c.mu.
func (c *Controller) emit() {
	if c.stopped {
		return
	}
	v := c.render()
	for {
		select {
		case c.changes <- v:
			return
		default:
		}
		select {
		case <-c.changes:
		default:
		}
	}
}

func (c *Controller) render() View {
	listing := c.listing()
	v := View{
		Owner:       c.owner.Handle,
		ProfilePath: "/" + c.owner.Handle,
		Draft:       c.draft,
		DraftKind:   c.draftKind,
		Submitting:  c.submitting,
		Search:      c.search,
		Kind:        c.kind,
		OpenDiary:   c.openDiary,
		Months:      buildMonths(listing, c.fold),
		Total:       listing.Total,
		Matched:     listing.Matched,
		Empty:       listing.Empty,
		NoMatches:   listing.NoMatches,
		Notice:      c.notice,
	}
	if e, ok := c.edit.(Editing); ok {
		v.Editing = &EditView{PostID: e.PostID, Buffer: e.Buffer}
	}
	return v
}
