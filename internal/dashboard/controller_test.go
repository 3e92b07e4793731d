package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/grouping"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/store/storetest"
)

var owner = Owner{AccountID: "acct-1", Handle: "lin"}

func at(year int, month time.Month, day int) model.CreationTime {
	return model.FromTime(time.Date(year, month, day, 12, 0, 0, 0, grouping.DisplayZone))
}

func seeded() []model.Post {
	return []model.Post{
		{ID: "a", OwnerID: "acct-1", DisplayName: "lin", Content: "march one", Kind: model.KindStatus, CreatedAt: at(2025, time.March, 9)},
		{ID: "b", OwnerID: "acct-1", DisplayName: "lin", Content: "march two", Kind: model.KindDiary, CreatedAt: at(2025, time.March, 1)},
		{ID: "c", OwnerID: "acct-1", DisplayName: "lin", Content: "february", Kind: model.KindStatus, CreatedAt: at(2025, time.February, 14)},
		{ID: "z", OwnerID: "acct-2", DisplayName: "mo", Content: "not mine", Kind: model.KindStatus, CreatedAt: at(2025, time.March, 5)},
	}
}

func started(t *testing.T, mem *storetest.Memory) *Controller {
	t.Helper()
	c := New(mem, owner)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Stop)
	return c
}

func TestStart_LoadsOwnPostsWithDefaultFold(t *testing.T) {
	c := started(t, storetest.New(seeded()...))

	v := c.Snapshot()
	assert.Equal(t, 3, v.Total)
	require.Len(t, v.Months, 2)
	assert.Equal(t, "2025年3月", v.Months[0].Label)
	assert.True(t, v.Months[0].Expanded)
	assert.Len(t, v.Months[0].Cards, 2)
	assert.False(t, v.Months[1].Expanded)
	assert.Empty(t, v.Months[1].Cards)
	assert.Equal(t, "/lin", v.ProfilePath)
}

func TestToggleMonth_LeavesOthersAlone(t *testing.T) {
	c := started(t, storetest.New(seeded()...))

	c.ToggleMonth("2025年2月")
	v := c.Snapshot()
	assert.True(t, v.Months[0].Expanded)
	assert.True(t, v.Months[1].Expanded)
}

func TestCreatePost_WhitespaceIsNoop(t *testing.T) {
	mem := storetest.New()
	c := started(t, mem)

	c.SetDraft("   ")
	err := c.CreatePost(context.Background())
	assert.ErrorIs(t, err, model.ErrEmptyContent)
	assert.Zero(t, mem.Creates)
	assert.Equal(t, "   ", c.Snapshot().Draft)
}

func TestCreatePost_RequiresSession(t *testing.T) {
	mem := storetest.New()
	c := New(mem, Owner{})
	c.SetDraft("hello")

	assert.ErrorIs(t, c.CreatePost(context.Background()), ErrNoSession)
	assert.ErrorIs(t, c.Start(context.Background()), ErrNoSession)
	assert.Zero(t, mem.Creates)
}

func TestCreatePost_SuccessClearsDraftAndShowsPost(t *testing.T) {
	mem := storetest.New()
	c := started(t, mem)

	c.SetDraft("雨后")
	require.NoError(t, c.SetDraftKind(model.KindDiary))
	require.NoError(t, c.CreatePost(context.Background()))

	assert.Equal(t, "", c.Snapshot().Draft)
	assert.Eventually(t, func() bool { return c.Snapshot().Total == 1 }, time.Second, 10*time.Millisecond)

	card := c.Snapshot().Months[0].Cards[0]
	assert.Equal(t, "lin", card.DisplayName)
	assert.Equal(t, model.KindDiary, card.Kind)
	assert.Equal(t, "雨后", card.Title)
	assert.Equal(t, "Diary", card.Badge)
}

func TestCreatePost_FailureKeepsDraft(t *testing.T) {
	mem := storetest.New()
	mem.SetCreateErr(errors.New("store unavailable"))
	c := started(t, mem)

	c.SetDraft("keep me")
	err := c.CreatePost(context.Background())
	assert.Error(t, err)

	v := c.Snapshot()
	assert.Equal(t, "keep me", v.Draft)
	assert.False(t, v.Submitting)
	assert.NotEmpty(t, v.Notice)

	mem.SetCreateErr(nil)
	require.NoError(t, c.CreatePost(context.Background()))
	assert.Empty(t, c.Snapshot().Notice)
}

func TestUpdatePost_WithoutEditIsNoop(t *testing.T) {
	mem := storetest.New(seeded()...)
	c := started(t, mem)

	assert.ErrorIs(t, c.UpdatePost(context.Background()), ErrNotEditing)
	assert.ErrorIs(t, c.SetEditBuffer("x"), ErrNotEditing)
	assert.Zero(t, mem.Updates)
}

func TestEditSession_SingleSlot(t *testing.T) {
	c := started(t, storetest.New(seeded()...))

	require.NoError(t, c.EnterEdit("a"))
	require.NoError(t, c.EnterEdit("b"))

	v := c.Snapshot()
	require.NotNil(t, v.Editing)
	assert.Equal(t, "b", v.Editing.PostID)
	assert.Equal(t, "march two", v.Editing.Buffer)

	assert.ErrorIs(t, c.EnterEdit("missing"), model.ErrPostNotFound)

	c.ExitEdit()
	assert.Nil(t, c.Snapshot().Editing)
}

func TestUpdatePost_SuccessExitsEdit(t *testing.T) {
	mem := storetest.New(seeded()...)
	c := started(t, mem)

	require.NoError(t, c.EnterEdit("a"))
	require.NoError(t, c.SetEditBuffer("march one, edited"))
	require.NoError(t, c.UpdatePost(context.Background()))

	assert.Nil(t, c.Snapshot().Editing)
	assert.Eventually(t, func() bool {
		v := c.Snapshot()
		return len(v.Months) > 0 && len(v.Months[0].Cards) > 0 && v.Months[0].Cards[0].Content == "march one, edited"
	}, time.Second, 10*time.Millisecond)
}

func TestUpdatePost_BlankBufferIsNoop(t *testing.T) {
	mem := storetest.New(seeded()...)
	c := started(t, mem)

	require.NoError(t, c.EnterEdit("a"))
	require.NoError(t, c.SetEditBuffer(" \t"))
	assert.ErrorIs(t, c.UpdatePost(context.Background()), model.ErrEmptyContent)
	assert.Zero(t, mem.Updates)
	assert.NotNil(t, c.Snapshot().Editing)
}

func TestUpdatePost_FailureKeepsEditMode(t *testing.T) {
	mem := storetest.New(seeded()...)
	mem.SetUpdateErr(errors.New("timeout"))
	c := started(t, mem)

	require.NoError(t, c.EnterEdit("a"))
	require.NoError(t, c.SetEditBuffer("attempted"))
	assert.Error(t, c.UpdatePost(context.Background()))

	v := c.Snapshot()
	require.NotNil(t, v.Editing)
	assert.Equal(t, "attempted", v.Editing.Buffer)
}

func TestDeletePost_NeedsConfirmation(t *testing.T) {
	mem := storetest.New(seeded()...)
	c := started(t, mem)

	assert.ErrorIs(t, c.DeletePost(context.Background(), "a", false), ErrNotConfirmed)
	assert.Zero(t, mem.Deletes)

	require.NoError(t, c.EnterEdit("a"))
	require.NoError(t, c.DeletePost(context.Background(), "a", true))
	assert.Nil(t, c.Snapshot().Editing)
	assert.Eventually(t, func() bool { return c.Snapshot().Total == 2 }, time.Second, 10*time.Millisecond)
}

func TestDeletePost_OtherOwnersPost(t *testing.T) {
	c := started(t, storetest.New(seeded()...))
	err := c.DeletePost(context.Background(), "z", true)
	assert.ErrorIs(t, err, model.ErrNotOwner)
}

func TestSearch_ForcesAllMonthsOpen(t *testing.T) {
	c := started(t, storetest.New(seeded()...))

	c.SetSearch("MARCH")
	v := c.Snapshot()
	require.Len(t, v.Months, 1)
	assert.True(t, v.Months[0].Expanded)
	assert.Equal(t, 2, v.Matched)

	c.SetSearch("")
	c.SetKind(grouping.Only(model.KindStatus))
	v = c.Snapshot()
	assert.Equal(t, 2, v.Matched)

	c.SetSearch("nothing matches this")
	v = c.Snapshot()
	assert.True(t, v.NoMatches)
	assert.False(t, v.Empty)
}

func TestToggleDiary_SingleOpen(t *testing.T) {
	c := started(t, storetest.New(seeded()...))

	c.ToggleDiary("b")
	assert.Equal(t, "b", c.Snapshot().OpenDiary)
	c.ToggleDiary("a")
	assert.Equal(t, "a", c.Snapshot().OpenDiary)
	c.ToggleDiary("a")
	assert.Equal(t, "", c.Snapshot().OpenDiary)
}

func TestStop_ClosesChanges(t *testing.T) {
	c := New(storetest.New(seeded()...), owner)
	require.NoError(t, c.Start(context.Background()))

	c.Stop()
	c.Stop()

	for range c.Changes() {
	}
	c.SetDraft("after stop")
}

func TestLoad_OneShot(t *testing.T) {
	c := New(storetest.New(seeded()...), owner)
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 3, c.Snapshot().Total)
}
