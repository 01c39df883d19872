// Package updatetree holds the local and remote metadata of a mirrored
// directory in a single tree, one node per path.
//
// Each node stores both sides' latest records, so diffing the two sides is a
// per-node comparison. Nodes track whether they changed since the consumer
// last drained them, and cache whether .gitignore rules (inherited from
// their ancestors) exclude them.
//
// A Tree is not safe for concurrent use. It expects a single producer calling
// AddLocal/AddRemote and a single consumer calling VisitDirty, serialized by
// the caller (see package mirror).
package updatetree

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openmined/syftmirror/internal/pathrules"
	"github.com/openmined/syftmirror/internal/update"
)

const (
	pathSep        = "/"
	ignoreFileName = ".gitignore"
)

var (
	ErrInvalidPath = errors.New("update path should not start or end with slash")
	ErrNilUpdate   = errors.New("update is nil")
)

// Matcher decides whether a relative path is matched by a rule set.
type Matcher interface {
	HasAnyRules() bool
	Matches(path string, isDir bool) bool
}

// Tree is a tree of file and directory metadata for both sides of a mirror.
type Tree struct {
	root          *Node
	extraIncludes Matcher
	extraExcludes Matcher
	debugPrefixes []string
	now           func() time.Time
}

// New returns a tree with no extra rules.
func New() *Tree {
	return NewWithRules(pathrules.New(), pathrules.New(), nil)
}

// NewWithRules returns a tree that, besides any .gitignore files it sees,
// ignores paths matched by extraExcludes unless they are matched by
// extraIncludes. Paths starting with one of debugPrefixes (or matching it as
// a doublestar glob) are traced during ignore evaluation.
func NewWithRules(extraIncludes, extraExcludes Matcher, debugPrefixes []string) *Tree {
	if extraIncludes == nil {
		extraIncludes = pathrules.New()
	}
	if extraExcludes == nil {
		extraExcludes = pathrules.New()
	}
	t := &Tree{
		extraIncludes: extraIncludes,
		extraExcludes: extraExcludes,
		debugPrefixes: debugPrefixes,
		now:           time.Now,
	}
	t.root = newNode(t, nil, "")
	t.root.setLocal(&update.Update{Directory: true})
	t.root.setRemote(&update.Update{Directory: true})
	return t
}

// Root returns the node for the empty path.
func (t *Tree) Root() *Node {
	return t.root
}

// AddLocal records a locally observed update.
//
// Updates are expected in parent-first order, e.g. the record for foo must
// arrive before the one for foo/bar.txt.
func (t *Tree) AddLocal(u *update.Update) error {
	return t.addUpdate(u, true)
}

// AddRemote records a remotely observed update. See AddLocal.
func (t *Tree) AddRemote(u *update.Update) error {
	return t.addUpdate(u, false)
}

func (t *Tree) addUpdate(u *update.Update, local bool) error {
	if u == nil {
		return ErrNilUpdate
	}
	node, err := t.Find(u.Path)
	if err != nil {
		return err
	}
	if local {
		node.setLocal(u)
	} else {
		node.setRemote(u)
	}
	return nil
}

// Find returns the node for path, creating it and any missing ancestors.
func (t *Tree) Find(path string) (*Node, error) {
	if path == "" {
		return t.root, nil
	}
	if strings.HasPrefix(path, pathSep) || strings.HasSuffix(path, pathSep) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	current := t.root
	for _, part := range strings.Split(path, pathSep) {
		if part == "" {
			continue
		}
		current = current.child(part)
	}
	return current, nil
}

// Visit invokes visitor on every node, root included, breadth first.
func (t *Tree) Visit(visitor func(*Node)) {
	walk(t.root, func(n *Node) bool {
		visitor(n)
		return true
	})
}

// VisitDirty invokes visitor on every node changed since the previous call,
// breadth first. All nodes are clean once it returns.
func (t *Tree) VisitDirty(visitor func(*Node)) {
	walk(t.root, func(n *Node) bool {
		if n.isDirty {
			visitor(n)
			n.isDirty = false
		}
		cont := n.hasDirtyDescendant
		n.hasDirtyDescendant = false
		return cont
	})
}

func (t *Tree) String() string {
	var sb strings.Builder
	t.Visit(func(n *Node) {
		fmt.Fprintf(&sb, "%s local=%s remote=%s\n", n.Path(), modTimeOf(n.local), modTimeOf(n.remote))
	})
	return sb.String()
}

func modTimeOf(u *update.Update) string {
	if u == nil {
		return "-"
	}
	return fmt.Sprint(u.ModTime)
}

// walk visits nodes breadth first from start, enqueueing a node's children
// only when visitor returns true for it.
func walk(start *Node, visitor func(*Node) bool) {
	queue := []*Node{start}
	for len(queue) > 0 {
		node := queue[0]
		queue[0] = nil
		queue = queue[1:]
		if visitor(node) && node.kind == kindDirectory {
			queue = append(queue, node.children...)
		}
	}
}
