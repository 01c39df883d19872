package updatetree

import (
	"log/slog"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/syftmirror/internal/pathrules"
)

// ShouldIgnore reports whether the node is excluded from syncing, either by
// a .gitignore in one of its ancestors or by the tree's extra excludes. Extra
// includes win over both. The result is cached until an ancestor's
// .gitignore changes.
func (n *Node) ShouldIgnore() bool {
	switch n.ignore {
	case ignoreYes:
		return true
	case ignoreNo:
		return false
	}

	path := n.Path()
	isDir := n.IsDirectory()
	debug := n.tree.shouldDebug(path)

	gitIgnored := false
	for p := n.parent; p != nil; p = p.parent {
		if p.ShouldIgnore() {
			if debug {
				slog.Debug("ignore trace", "path", path, "ignoredParent", p.Path())
			}
			gitIgnored = true
			break
		}
		if !p.ignoreRules.HasAnyRules() {
			continue
		}
		// for dir1/dir2/foo.txt, dir1's .gitignore sees dir2/foo.txt
		relative := strings.TrimPrefix(path[len(p.Path()):], pathSep)
		if p.ignoreRules.Matches(relative, isDir) {
			if debug {
				slog.Debug("ignore trace", "path", path, "relative", relative, "isDir", isDir,
					"rulesOf", p.Path(), "rules", p.ignoreRules.String())
			}
			gitIgnored = true
			break
		}
	}

	extraIncluded := n.tree.extraIncludes.Matches(path, isDir)
	extraExcluded := n.tree.extraExcludes.Matches(path, isDir)
	ignored := (gitIgnored || extraExcluded) && !extraIncluded
	if debug {
		slog.Debug("ignore trace", "path", path, "gitIgnored", gitIgnored,
			"extraIncluded", extraIncluded, "extraExcluded", extraExcluded)
	}

	if ignored {
		n.ignore = ignoreYes
	} else {
		n.ignore = ignoreNo
	}
	return ignored
}

// updateParentIgnoreRulesIfNeeded pushes a .gitignore's text to its
// directory, taking it from whichever side is newer.
func (n *Node) updateParentIgnoreRulesIfNeeded() {
	if n.name != ignoreFileName || n.parent == nil {
		return
	}
	if n.IsLocalNewer() {
		n.parent.setIgnoreRules(n.local.IgnoreString)
	} else if n.IsRemoteNewer() {
		n.parent.setIgnoreRules(n.remote.IgnoreString)
	}
}

func (n *Node) setIgnoreRules(text string) {
	if n.ignoreRules == nil {
		n.ignoreRules = pathrules.New()
	}
	n.ignoreRules.SetRules(text)
	walk(n, func(node *Node) bool {
		node.ignore = ignoreUnknown
		return true
	})
}

func (t *Tree) shouldDebug(path string) bool {
	for _, prefix := range t.debugPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
		if ok, _ := doublestar.Match(prefix, path); ok {
			return true
		}
	}
	return false
}
