package domain

import "fmt"

// DefaultSpaceIcon is used when a space is registered without an icon
const DefaultSpaceIcon = "😊"

// Space is a named root directory registered as a top-level project
type Space struct {
	// Name is the unique identifier shown in the space switcher
	Name string `json:"name" mapstructure:"name" yaml:"name"`

	// Icon is an emoji
	Icon string `json:"icon" mapstructure:"icon" yaml:"icon"`

	// RootPath is the directory the tree loader walks
	RootPath string `json:"rootPath" mapstructure:"root_path" yaml:"root_path"`
}

// Validate checks the space has both a name and a root
func (s Space) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: space name cannot be empty", ErrInvalidName)
	}
	if s.RootPath == "" {
		return fmt.Errorf("%w: space %s has no root path", ErrInvalidPath, s.Name)
	}
	return nil
}

// WithDefaults fills in the icon when missing
func (s Space) WithDefaults() Space {
	if s.Icon == "" {
		s.Icon = DefaultSpaceIcon
	}
	return s
}

// Favorite is a pinned document
type Favorite struct {
	Name  string `json:"name"`
	Path  string `json:"url"`
	Emoji string `json:"emoji"`
}

// Validate checks the favorite points somewhere
func (f Favorite) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: favorite name cannot be empty", ErrInvalidName)
	}
	if f.Path == "" {
		return fmt.Errorf("%w: favorite %s has no path", ErrInvalidPath, f.Name)
	}
	return nil
}

// User is the local profile shown in the sidebar footer
type User struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// DefaultUser is stored on first read of the profile
func DefaultUser() User {
	return User{Name: "Guest", Email: "me", Avatar: "/avatars/shadcn.jpg"}
}
