package tree

import (
	"path/filepath"
	"strings"
)

// JoinPath appends name to parent with exactly one separator between them.
// Trailing separators on parent are trimmed first, so the filesystem root
// joins as "/name" and never "//name".
func JoinPath(parent, name string) string {
	trimmed := strings.TrimRight(parent, `/\`)
	if trimmed == "" {
		if parent == "" {
			return name
		}
		// parent was only separators, i.e. the filesystem root
		return parent[:1] + name
	}
	return trimmed + string(filepath.Separator) + name
}

// Within reports whether path is root or lies beneath it
func Within(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if root == path {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// IsHidden reports whether name is excluded by prefix.
// An empty prefix hides nothing.
func IsHidden(name, prefix string) bool {
	return prefix != "" && strings.HasPrefix(name, prefix)
}
