package tree

import "github.com/Ning0612/typnote/internal/domain"

// Find returns the entry at path, searching depth first
func Find(entries []domain.Entry, path string) (*domain.Entry, bool) {
	for i := range entries {
		if entries[i].Path == path {
			return &entries[i], true
		}
		if entries[i].IsDirectory() {
			if found, ok := Find(entries[i].Children, path); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// Count returns the number of entries at every depth
func Count(entries []domain.Entry) int {
	n := 0
	for _, e := range entries {
		n++
		n += Count(e.Children)
	}
	return n
}

// Flatten returns every entry in pre-order, children dropped
func Flatten(entries []domain.Entry) []domain.Entry {
	var out []domain.Entry
	for _, e := range entries {
		flat := e
		flat.Children = nil
		out = append(out, flat)
		out = append(out, Flatten(e.Children)...)
	}
	return out
}

// Clone deep copies a tree so callers cannot alias a snapshot
func Clone(entries []domain.Entry) []domain.Entry {
	if entries == nil {
		return nil
	}
	out := make([]domain.Entry, len(entries))
	for i, e := range entries {
		out[i] = e
		if e.IsDirectory() {
			out[i].Children = Clone(e.Children)
			if out[i].Children == nil {
				out[i].Children = []domain.Entry{}
			}
		}
	}
	return out
}
