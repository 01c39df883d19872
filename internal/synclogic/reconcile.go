// Package synclogic turns the dirty nodes of an update tree into sync
// operations.
package synclogic

import (
	"log/slog"

	"github.com/openmined/syftmirror/internal/updatetree"
)

// Reconcile drains the tree's dirty nodes and decides, per path, which side
// should be copied over the other.
func Reconcile(tree *updatetree.Tree) *ReconcileOperations {
	ops := NewReconcileOperations()
	tree.VisitDirty(func(node *updatetree.Node) {
		if node.Parent() == nil {
			return
		}
		reconcileNode(node, ops)
	})
	return ops
}

func reconcileNode(node *updatetree.Node, ops *ReconcileOperations) {
	path := node.Path()

	if node.ShouldIgnore() {
		ops.Ignored.Add(path)
		return
	}

	op := &SyncOperation{
		Path:   path,
		Local:  node.RestorePath(node.Local()),
		Remote: node.RestorePath(node.Remote()),
	}

	switch {
	case node.IsLocalNewer():
		if op.Local.Delete {
			op.Type = OpDeleteRemote
			ops.RemoteDeletes[path] = op
		} else {
			op.Type = OpWriteRemote
			ops.RemoteWrites[path] = op
		}
	case node.IsRemoteNewer():
		if op.Remote.Delete {
			op.Type = OpDeleteLocal
			ops.LocalDeletes[path] = op
		} else {
			op.Type = OpWriteLocal
			ops.LocalWrites[path] = op
		}
	default:
		ops.Unchanged.Add(path)
		return
	}

	slog.Debug("reconcile", "op", op.Type, "path", path, "local", op.Local, "remote", op.Remote)
}
