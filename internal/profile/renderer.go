// Package profile renders the public, read-only page of one username from a
// snapshot of that user's posts.
package profile

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/grouping"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
)

type Tab string

const (
	TabDiary  Tab = "diary"
	TabStatus Tab = "status"
)

// ParseTab falls back to the diary tab for anything it does not recognize.
func ParseTab(s string) Tab {
	if strings.EqualFold(s, string(TabStatus)) {
		return TabStatus
	}
	return TabDiary
}

const avatarBase = "https://api.dicebear.com/9.x/notionists/svg"

// AvatarURL is the generated avatar of a username.
func AvatarURL(username string) string {
	q := url.Values{}
	q.Set("seed", username)
	q.Set("backgroundColor", "eaf7fb")
	return avatarBase + "?" + q.Encode()
}

type Page struct {
	Username     string      `json:"username"`
	DisplayName  string      `json:"display_name,omitempty"`
	Title        string      `json:"title"`
	AvatarURL    string      `json:"avatar_url"`
	LatestStatus *StatusCard `json:"latest_status,omitempty"`
	Tab          Tab         `json:"tab"`
	DiaryCount   int         `json:"diary_count"`
	StatusCount  int         `json:"status_count"`
	Months       []Month     `json:"months"`
	Empty        bool        `json:"empty"`
}

// Month is a bucket of the visible tab. Exactly one of Diaries and Statuses
// is filled, and only while the month is expanded.
type Month struct {
	Label    string       `json:"label"`
	Expanded bool         `json:"expanded"`
	Count    int          `json:"count"`
	Diaries  []DiaryCard  `json:"diaries,omitempty"`
	Statuses []StatusCard `json:"statuses,omitempty"`
}

type DiaryCard struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Time    string `json:"time"`
	Written string `json:"written,omitempty"`
	Content string `json:"content,omitempty"`
	Open    bool   `json:"open"`
}

type StatusCard struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Day     string `json:"day"`
	Clock   string `json:"clock"`
}

// Renderer holds the page's only state: the visible tab, the fold state of
// each tab and the opened diary. It never changes the posts it was given.
type Renderer struct {
	username  string
	profile   *model.Profile
	posts     []model.Post
	tab       Tab
	folds     map[Tab]*grouping.FoldState
	openDiary string
}

// NewRenderer takes posts already capped and sorted newest first.
func NewRenderer(username string, posts []model.Post) *Renderer {
	return &Renderer{
		username: username,
		posts:    posts,
		tab:      TabDiary,
		folds: map[Tab]*grouping.FoldState{
			TabDiary:  grouping.NewFoldState(),
			TabStatus: grouping.NewFoldState(),
		},
	}
}

// SetProfile attaches the stored profile of the username. Pages of handles
// that never signed in render without one.
func (r *Renderer) SetProfile(p *model.Profile) { r.profile = p }

func (r *Renderer) SetTab(t Tab) {
	if t != TabStatus {
		t = TabDiary
	}
	r.tab = t
}

func (r *Renderer) Tab() Tab { return r.tab }

// ToggleMonth flips a month of the visible tab.
func (r *Renderer) ToggleMonth(label string) {
	r.listing(r.tab)
	r.folds[r.tab].Toggle(label)
}

// ToggleDiary opens one diary entry, closing any other.
func (r *Renderer) ToggleDiary(id string) {
	if r.openDiary == id {
		r.openDiary = ""
		return
	}
	r.openDiary = id
}

func kindOf(t Tab) model.Kind {
	if t == TabStatus {
		return model.KindStatus
	}
	return model.KindDiary
}

func (r *Renderer) listing(t Tab) grouping.View {
	v := grouping.Compute(r.posts, "", grouping.Only(kindOf(t)))
	r.folds[t].Sync(v.Buckets, "")
	return v
}

func (r *Renderer) Page() Page {
	diaries := r.listing(TabDiary)
	statuses := r.listing(TabStatus)

	visible := diaries
	if r.tab == TabStatus {
		visible = statuses
	}

	p := Page{
		Username:    r.username,
		Title:       fmt.Sprintf("%s 的逍遥游", r.username),
		AvatarURL:   AvatarURL(r.username),
		Tab:         r.tab,
		DiaryCount:  diaries.Matched,
		StatusCount: statuses.Matched,
		Months:      r.months(visible),
		Empty:       visible.Matched == 0,
	}
	if r.profile != nil {
		p.DisplayName = r.profile.DisplayName
		if r.profile.AvatarRef != "" {
			p.AvatarURL = r.profile.AvatarRef
		}
	}
	// Pending posts never reach a bucket but are still the newest status.
	if i := slices.IndexFunc(r.posts, func(post model.Post) bool { return post.Kind == model.KindStatus }); i >= 0 {
		latest := statusCard(r.posts[i])
		p.LatestStatus = &latest
	}
	return p
}

func (r *Renderer) months(v grouping.View) []Month {
	fold := r.folds[r.tab]
	out := make([]Month, 0, len(v.Buckets))
	for _, b := range v.Buckets {
		m := Month{Label: b.Label, Expanded: fold.Expanded(b.Label), Count: len(b.Posts)}
		if m.Expanded {
			for _, p := range b.Posts {
				if r.tab == TabStatus {
					m.Statuses = append(m.Statuses, statusCard(p))
				} else {
					m.Diaries = append(m.Diaries, r.diaryCard(p))
				}
			}
		}
		out = append(out, m)
	}
	return out
}

func (r *Renderer) diaryCard(p model.Post) DiaryCard {
	c := DiaryCard{
		ID:    p.ID,
		Title: grouping.DiaryTitle(p.Content),
		Time:  grouping.FormatCard(p.CreatedAt),
		Open:  p.ID == r.openDiary,
	}
	if c.Open {
		c.Content = p.Content
		c.Written = grouping.FormatFull(p.CreatedAt)
	}
	return c
}

func statusCard(p model.Post) StatusCard {
	return StatusCard{
		ID:      p.ID,
		Content: p.Content,
		Day:     grouping.FormatDay(p.CreatedAt),
		Clock:   grouping.FormatClock(p.CreatedAt),
	}
}
