package grouping

import "maps"

// FoldState tracks which month buckets are expanded. It is UI state only.
type FoldState struct {
	expanded    map[string]bool
	initialized bool
}

func NewFoldState() *FoldState {
	return &FoldState{expanded: make(map[string]bool)}
}

// Sync applies the fold policy to a freshly computed bucket list:
//   - the first non-empty computation without a search expands only the
//     first bucket;
//   - while search is non-empty every present bucket is forced open.
//
// Buckets that show up later start collapsed.
func (f *FoldState) Sync(buckets []Bucket, search string) {
	if search != "" {
		for _, b := range buckets {
			f.expanded[b.Label] = true
		}
		if len(buckets) > 0 {
			f.initialized = true
		}
		return
	}

	if f.initialized || len(buckets) == 0 {
		return
	}
	f.initialized = true
	f.expanded[buckets[0].Label] = true
}

// Toggle flips one bucket and leaves the others alone.
func (f *FoldState) Toggle(label string) {
	f.expanded[label] = !f.expanded[label]
}

func (f *FoldState) Expanded(label string) bool { return f.expanded[label] }

// Snapshot returns a copy safe to hand to a renderer.
func (f *FoldState) Snapshot() map[string]bool {
	return maps.Clone(f.expanded)
}
