package updatetree

import (
	"strings"

	"github.com/openmined/syftmirror/internal/pathrules"
	"github.com/openmined/syftmirror/internal/update"
)

type childKind uint8

const (
	// kindNotADirectory nodes have no children; any previous subtree has
	// been dropped.
	kindNotADirectory childKind = iota
	kindDirectory
)

type ignoreState uint8

const (
	ignoreUnknown ignoreState = iota
	ignoreYes
	ignoreNo
)

// Node is a file, directory or symlink within the tree.
type Node struct {
	tree     *Tree
	parent   *Node
	name     string
	kind     childKind
	children []*Node
	// ignoreRules holds the rules of this directory's .gitignore, if any
	ignoreRules        *pathrules.PathRules
	hasDirtyDescendant bool
	isDirty            bool
	local              *update.Update
	remote             *update.Update
	ignore             ignoreState
}

func newNode(tree *Tree, parent *Node, name string) *Node {
	return &Node{
		tree:   tree,
		parent: parent,
		name:   name,
	}
}

func (n *Node) Name() string {
	return n.name
}

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Path returns the node's relative path, rebuilt from its ancestors.
func (n *Node) Path() string {
	if n.parent == nil {
		return ""
	}
	parts := []string{n.name}
	for current := n.parent; current != nil && current.parent != nil; current = current.parent {
		parts = append(parts, current.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, pathSep)
}

// Children returns the node's children, or nil when it is not known to be a
// directory.
// The returned slice must not be modified.
func (n *Node) Children() []*Node {
	if n.kind != kindDirectory {
		return nil
	}
	return n.children
}

// Local returns the latest local record, without its path.
func (n *Node) Local() *update.Update {
	return n.local
}

// Remote returns the latest remote record, without its path.
func (n *Node) Remote() *update.Update {
	return n.remote
}

// RestorePath returns a copy of u carrying this node's path, for sending to
// the other side or the file system.
func (n *Node) RestorePath(u *update.Update) *update.Update {
	if u == nil {
		return nil
	}
	return u.WithPath(n.Path())
}

// ClearData drops the remote record's data payload once it has been
// written out.
func (n *Node) ClearData() {
	if n.remote != nil {
		n.remote = n.remote.WithoutData()
	}
}

// IsDirectory reports whether the local record (or, lacking one, the remote
// record) is a directory.
func (n *Node) IsDirectory() bool {
	switch {
	case n.local != nil:
		return n.local.IsDirectory()
	case n.remote != nil:
		return n.remote.IsDirectory()
	default:
		return false
	}
}

// IsSameType reports whether both sides agree on the entry type.
func (n *Node) IsSameType() bool {
	return update.TypeOf(n.local) == update.TypeOf(n.remote)
}

func (n *Node) setLocal(u *update.Update) {
	// Deletions rarely carry a mod time. The best guess is the last known
	// one, ticked by 1 so the delete is newer than the write it removes.
	if n.local != nil && u.Delete && u.ModTime == 0 {
		var tick int64 = 1
		if n.local.Delete {
			tick = 0
		}
		u = u.WithModTime(n.local.ModTime + tick)
	}
	n.local = u.WithoutPath()
	// If we're no longer a directory, or we got deleted, drop our subtree
	if !u.IsDirectory() || u.Delete {
		n.kind = kindNotADirectory
		n.children = nil
	} else {
		n.markDirectory()
	}
	n.updateParentIgnoreRulesIfNeeded()
	n.markDirty()
}

func (n *Node) setRemote(u *update.Update) {
	n.remote = u.WithoutPath()
	if u.IsDirectory() && !u.Delete {
		n.markDirectory()
	}
	n.updateParentIgnoreRulesIfNeeded()
	n.markDirty()
}

// child returns the child named name, creating it if necessary.
func (n *Node) child(name string) *Node {
	n.markDirectory()
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	c := newNode(n.tree, n, name)
	n.children = append(n.children, c)
	return c
}

func (n *Node) markDirectory() {
	if n.kind == kindDirectory {
		return
	}
	n.kind = kindDirectory
	n.children = []*Node{}
}

func (n *Node) markDirty() {
	n.isDirty = true
	for p := n.parent; p != nil; p = p.parent {
		p.hasDirtyDescendant = true
	}
}

func (n *Node) String() string {
	return n.name
}
