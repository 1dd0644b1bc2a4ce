package domain

import "encoding/json"

// EntryKind tags an Entry as a file or a directory
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
)

// String returns the string representation of the kind
func (k EntryKind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// DirEntry is a single row returned by listing a directory
type DirEntry struct {
	Name        string
	IsDirectory bool
	IsFile      bool

	// IsSymlink marks a symbolic link. Links are never followed, so
	// IsFile is also set for them.
	IsSymlink bool
}

// Entry is a file-or-directory node in the in-memory mirror of a workspace.
// Children is only populated for directories and reflects the filesystem
// as of the load that produced it.
type Entry struct {
	// Name is the last path element
	Name string

	// Path is the parent path joined with Name by a single separator
	Path string

	// Kind tells files and directories apart
	Kind EntryKind

	// Children in filesystem listing order; non-nil for directories
	Children []Entry
}

// NewFile returns a file entry
func NewFile(name, path string) Entry {
	return Entry{Name: name, Path: path, Kind: KindFile}
}

// NewDirectory returns a directory entry. A nil children slice is stored as empty.
func NewDirectory(name, path string, children []Entry) Entry {
	if children == nil {
		children = []Entry{}
	}
	return Entry{Name: name, Path: path, Kind: KindDirectory, Children: children}
}

// IsDirectory returns true if this entry is a directory
func (e Entry) IsDirectory() bool {
	return e.Kind == KindDirectory
}

// IsFile returns true if this entry is a regular file
func (e Entry) IsFile() bool {
	return e.Kind == KindFile
}

type entryJSON struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	IsDirectory bool    `json:"isDirectory"`
	IsFile      bool    `json:"isFile"`
	Children    []Entry `json:"children,omitempty"`
}

// MarshalJSON emits the boolean pair used by the view layer
func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{
		Name:        e.Name,
		Path:        e.Path,
		IsDirectory: e.IsDirectory(),
		IsFile:      e.IsFile(),
	}
	if e.IsDirectory() {
		out.Children = e.Children
		if out.Children == nil {
			out.Children = []Entry{}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the form produced by MarshalJSON
func (e *Entry) UnmarshalJSON(data []byte) error {
	var in entryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.IsDirectory {
		*e = NewDirectory(in.Name, in.Path, in.Children)
	} else {
		*e = NewFile(in.Name, in.Path)
	}
	return nil
}
