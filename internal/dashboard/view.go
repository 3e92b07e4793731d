package dashboard

import (
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/grouping"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
)

// View is everything a client needs to draw the dashboard.
type View struct {
	Owner       string              `json:"owner"`
	ProfilePath string              `json:"profile_path"`
	Draft       string              `json:"draft"`
	DraftKind   model.Kind          `json:"draft_kind"`
	Submitting  bool                `json:"submitting"`
	Search      string              `json:"search"`
	Kind        grouping.KindFilter `json:"kind"`
	Editing     *EditView           `json:"editing,omitempty"`
	OpenDiary   string              `json:"open_diary,omitempty"`
	Months      []Month             `json:"months"`
	Total       int                 `json:"total"`
	Matched     int                 `json:"matched"`
	Empty       bool                `json:"empty"`
	NoMatches   bool                `json:"no_matches"`
	Notice      string              `json:"notice,omitempty"`
}

type EditView struct {
	PostID string `json:"post_id"`
	Buffer string `json:"buffer"`
}

// Month is one bucket. Cards are only filled in while it is expanded.
type Month struct {
	Label    string `json:"label"`
	Expanded bool   `json:"expanded"`
	Count    int    `json:"count"`
	Cards    []Card `json:"cards,omitempty"`
}

type Card struct {
	model.Post
	Time  string `json:"time"`
	Badge string `json:"badge"`
	Title string `json:"title,omitempty"`
}

func buildMonths(listing grouping.View, fold *grouping.FoldState) []Month {
	months := make([]Month, 0, len(listing.Buckets))
	for _, b := range listing.Buckets {
		m := Month{Label: b.Label, Expanded: fold.Expanded(b.Label), Count: len(b.Posts)}
		if m.Expanded {
			m.Cards = make([]Card, 0, len(b.Posts))
			for _, p := range b.Posts {
				m.Cards = append(m.Cards, newCard(p))
			}
		}
		months = append(months, m)
	}
	return months
}

func newCard(p model.Post) Card {
	c := Card{Post: p, Time: grouping.FormatShort(p.CreatedAt), Badge: p.Kind.Label()}
	if p.Kind == model.KindDiary {
		c.Title = grouping.DiaryTitle(p.Content)
	}
	return c
}
