// Package grouping turns a flat post list into the month buckets shown on the
// dashboard and the public profile.
//
// Every function here expects its input sorted by CreatedAt, newest first, the
// order the store returns. Nothing re-sorts: bucket order and the default fold
// state follow the input order, so an unsorted list yields unsorted buckets
// instead of an error.
package grouping

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/model"
)

// KindFilter selects all posts or a single kind.
type KindFilter string

const All KindFilter = "all"

// Only narrows a filter to one post kind.
func Only(k model.Kind) KindFilter { return KindFilter(k) }

// ParseKindFilter accepts "", "all", or anything model.ParseKind understands.
func ParseKindFilter(s string) (KindFilter, error) {
	if s == "" || strings.EqualFold(s, string(All)) {
		return All, nil
	}
	k, err := model.ParseKind(s)
	if err != nil {
		return "", err
	}
	return Only(k), nil
}

func (f KindFilter) match(k model.Kind) bool {
	return f == All || f == "" || model.Kind(f) == k
}

// Bucket holds the posts of one calendar month, in input order.
type Bucket struct {
	Label string       `json:"label"`
	Posts []model.Post `json:"posts"`
}

// Filter keeps the posts whose content contains search, ignoring case, and
// whose kind passes the filter. An empty search matches everything.
func Filter(posts []model.Post, search string, kind KindFilter) []model.Post {
	fold := cases.Fold()
	needle := fold.String(search)

	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if !kind.match(p.Kind) {
			continue
		}
		if needle != "" && !strings.Contains(fold.String(p.Content), needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// GroupByMonth partitions posts by MonthLabel. Buckets come out in the order
// their first post appears. Posts without a creation time are dropped.
func GroupByMonth(posts []model.Post) []Bucket {
	var buckets []Bucket
	index := make(map[string]int)

	for _, p := range posts {
		if !p.CreatedAt.IsKnown() {
			continue
		}
		label := MonthLabel(p.CreatedAt)
		i, ok := index[label]
		if !ok {
			i = len(buckets)
			index[label] = i
			buckets = append(buckets, Bucket{Label: label})
		}
		buckets[i].Posts = append(buckets[i].Posts, p)
	}
	return buckets
}

// View is a computed listing. Empty and NoMatches are distinct so callers can
// tell "nothing written yet" from "nothing matched".
type View struct {
	Buckets   []Bucket `json:"buckets"`
	Total     int      `json:"total"`
	Matched   int      `json:"matched"`
	Empty     bool     `json:"empty"`
	NoMatches bool     `json:"no_matches"`
}

// Compute runs Filter then GroupByMonth.
func Compute(posts []model.Post, search string, kind KindFilter) View {
	filtered := Filter(posts, search, kind)
	buckets := GroupByMonth(filtered)

	matched := 0
	for _, b := range buckets {
		matched += len(b.Posts)
	}

	return View{
		Buckets:   buckets,
		Total:     len(posts),
		Matched:   matched,
		Empty:     len(posts) == 0,
		NoMatches: len(posts) > 0 && len(buckets) == 0,
	}
}
