// Package update defines the metadata record exchanged between the local and
// remote sides of a mirror. Records are treated as immutable values: every
// edit returns a new record.
package update

import (
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Type is the kind of filesystem entry an Update describes.
type Type int

const (
	TypeNone Type = iota
	TypeFile
	TypeDirectory
	TypeSymlink
)

func (t Type) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	default:
		return "none"
	}
}

// initialSyncMarker is the Data payload of a record that signals the end of a
// side's initial scan.
var initialSyncMarker = []byte("initialSyncMarker")

// Update is a metadata snapshot for one path.
type Update struct {
	// Path is relative, slash separated, with no leading or trailing slash.
	// It is cleared once the record is stored in a tree.
	Path         string `json:"path,omitempty" yaml:"path,omitempty"`
	Directory    bool   `json:"directory,omitempty" yaml:"directory,omitempty"`
	Symlink      string `json:"symlink,omitempty" yaml:"symlink,omitempty"`
	Delete       bool   `json:"delete,omitempty" yaml:"delete,omitempty"`
	ModTime      int64  `json:"modTime" yaml:"modTime"`
	IgnoreString string `json:"ignoreString,omitempty" yaml:"ignoreString,omitempty"`
	Data         []byte `json:"-" yaml:"-"`
}

// NewInitialSyncMarker returns the record a producer sends after its initial
// full scan.
func NewInitialSyncMarker() *Update {
	return &Update{Data: initialSyncMarker}
}

// IsInitialSyncMarker reports whether u marks the end of an initial scan.
func IsInitialSyncMarker(u *Update) bool {
	return u != nil && u.Path == "" && bytes.Equal(u.Data, initialSyncMarker)
}

func (u *Update) clone() *Update {
	c := *u
	return &c
}

// WithPath returns a copy of u with the given path.
func (u *Update) WithPath(path string) *Update {
	c := u.clone()
	c.Path = path
	return c
}

// WithoutPath returns a copy of u with the path cleared.
func (u *Update) WithoutPath() *Update {
	return u.WithPath("")
}

// WithModTime returns a copy of u with the given modification time.
func (u *Update) WithModTime(millis int64) *Update {
	c := u.clone()
	c.ModTime = millis
	return c
}

// WithoutData returns a copy of u with the data payload dropped.
func (u *Update) WithoutData() *Update {
	c := u.clone()
	c.Data = nil
	return c
}

func (u *Update) IsDirectory() bool {
	return u.Directory
}

func (u *Update) IsSymlink() bool {
	return u.Symlink != ""
}

func (u *Update) IsFile() bool {
	return !u.IsDirectory() && !u.IsSymlink()
}

// TypeOf returns the entry type of u, or TypeNone when u is nil.
func TypeOf(u *Update) Type {
	switch {
	case u == nil:
		return TypeNone
	case u.IsDirectory():
		return TypeDirectory
	case u.IsSymlink():
		return TypeSymlink
	default:
		return TypeFile
	}
}

// String renders u for logs. The data payload is reduced to its size.
func (u *Update) String() string {
	if u == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s type=%s delete=%t modTime=%d data=%s",
		u.displayPath(), TypeOf(u), u.Delete, u.ModTime, humanize.Bytes(uint64(len(u.Data))))
}

func (u *Update) displayPath() string {
	if u.Path == "" {
		return "."
	}
	return u.Path
}
