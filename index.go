package chm

import (
	"sort"
	"strings"
)

// entryIndex supports path lookup over the archive's entry table in
// O(log n), keyed by lower-cased path.
type entryIndex struct {
	entries []Entry
	byPath  []int // indices into entries, sorted by lower-cased path
}

func newEntryIndex(entries []Entry) *entryIndex {
	idx := &entryIndex{entries: entries}
	idx.byPath = make([]int, len(entries))
	for i := range entries {
		idx.byPath[i] = i
	}
	sort.Slice(idx.byPath, func(a, b int) bool {
		return strings.ToLower(entries[idx.byPath[a]].Path) < strings.ToLower(entries[idx.byPath[b]].Path)
	})
	return idx
}

// Lookup returns the entry for an exact, case-insensitive path match.
func (idx *entryIndex) Lookup(path string) (Entry, bool) {
	key := strings.ToLower(path)
	n := sort.Search(len(idx.byPath), func(i int) bool {
		return strings.ToLower(idx.entries[idx.byPath[i]].Path) >= key
	})
	if n >= len(idx.byPath) || strings.ToLower(idx.entries[idx.byPath[n]].Path) != key {
		return Entry{}, false
	}
	return idx.entries[idx.byPath[n]], true
}

// All returns every entry in file order.
func (idx *entryIndex) All() []Entry {
	return idx.entries
}
