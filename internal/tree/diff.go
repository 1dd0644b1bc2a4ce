package tree

import (
	"sort"

	"github.com/Ning0612/typnote/internal/domain"
)

// Changes summarizes how two snapshots differ, by path.
// It is used for reporting only; snapshots are always replaced wholesale.
type Changes struct {
	Added   []string
	Removed []string

	// Retyped lists paths that switched between file and directory
	Retyped []string
}

// Empty reports whether nothing changed
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Retyped) == 0
}

// Diff compares the prev and next snapshots. Result paths are sorted.
func Diff(prev, next []domain.Entry) Changes {
	before := index(prev)
	after := index(next)

	var c Changes
	for path, kind := range after {
		was, ok := before[path]
		switch {
		case !ok:
			c.Added = append(c.Added, path)
		case was != kind:
			c.Retyped = append(c.Retyped, path)
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			c.Removed = append(c.Removed, path)
		}
	}

	sort.Strings(c.Added)
	sort.Strings(c.Removed)
	sort.Strings(c.Retyped)
	return c
}

func index(entries []domain.Entry) map[string]domain.EntryKind {
	m := make(map[string]domain.EntryKind)
	for _, e := range Flatten(entries) {
		m[e.Path] = e.Kind
	}
	return m
}
