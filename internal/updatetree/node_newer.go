package updatetree

import (
	"time"

	"github.com/openmined/syftmirror/internal/update"
)

const (
	futureSkew     = time.Hour
	futureFallback = time.Minute
)

// IsLocalNewer reports whether the local record should overwrite the remote.
func (n *Node) IsLocalNewer() bool {
	return n.isNewer(n.local, n.remote)
}

// IsRemoteNewer reports whether the remote record should overwrite the local.
func (n *Node) IsRemoteNewer() bool {
	return n.isNewer(n.remote, n.local)
}

func (n *Node) isNewer(a, b *update.Update) bool {
	if a == nil {
		return false
	}
	if b != nil && n.tree.sanityCheckTimestamp(a.ModTime) <= n.tree.sanityCheckTimestamp(b.ModTime) {
		return false
	}
	// no-op deletes
	if a.Delete && (b == nil || b.Delete) {
		return false
	}
	// mod times of directories that exist on both sides don't matter
	if !a.Delete && a.IsDirectory() && b != nil && b.IsDirectory() {
		return false
	}
	return true
}

// sanityCheckTimestamp keeps a bogus far-future mod time (e.g. Jan 3000)
// from beating every real write forever. Anything more than an hour ahead
// is treated as a minute ago.
func (t *Tree) sanityCheckTimestamp(millis int64) int64 {
	now := t.now()
	if millis > now.Add(futureSkew).UnixMilli() {
		return now.Add(-futureFallback).UnixMilli()
	}
	return millis
}
