package synclogic

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// BatchLocalWrite holds paths whose remote copy should be written locally.
type BatchLocalWrite map[string]*SyncOperation

// BatchRemoteWrite holds paths whose local copy should be pushed.
type BatchRemoteWrite map[string]*SyncOperation

// BatchLocalDelete holds paths deleted remotely that should be deleted locally.
type BatchLocalDelete map[string]*SyncOperation

// BatchRemoteDelete holds paths deleted locally that should be deleted remotely.
type BatchRemoteDelete map[string]*SyncOperation

// ReconcileOperations is the result of one drain of the tree.
type ReconcileOperations struct {
	LocalWrites   BatchLocalWrite
	RemoteWrites  BatchRemoteWrite
	LocalDeletes  BatchLocalDelete
	RemoteDeletes BatchRemoteDelete
	Unchanged     mapset.Set[string]
	Ignored       mapset.Set[string]
}

// NewReconcileOperations returns an empty ReconcileOperations.
func NewReconcileOperations() *ReconcileOperations {
	return &ReconcileOperations{
		LocalWrites:   make(BatchLocalWrite),
		RemoteWrites:  make(BatchRemoteWrite),
		LocalDeletes:  make(BatchLocalDelete),
		RemoteDeletes: make(BatchRemoteDelete),
		Unchanged:     mapset.NewThreadUnsafeSet[string](),
		Ignored:       mapset.NewThreadUnsafeSet[string](),
	}
}

// HasChanges returns true if there is any write or delete to perform.
func (r *ReconcileOperations) HasChanges() bool {
	return r.Len() > 0
}

// Len returns the number of writes and deletes.
func (r *ReconcileOperations) Len() int {
	return len(r.LocalWrites) + len(r.RemoteWrites) + len(r.LocalDeletes) + len(r.RemoteDeletes)
}

// Operations returns every write and delete ordered by path.
func (r *ReconcileOperations) Operations() []*SyncOperation {
	ops := make([]*SyncOperation, 0, r.Len())
	for _, op := range r.RemoteWrites {
		ops = append(ops, op)
	}
	for _, op := range r.LocalWrites {
		ops = append(ops, op)
	}
	for _, op := range r.RemoteDeletes {
		ops = append(ops, op)
	}
	for _, op := range r.LocalDeletes {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path == ops[j].Path {
			return ops[i].Type < ops[j].Type
		}
		return ops[i].Path < ops[j].Path
	})
	return ops
}

// Merge folds other into r. Later operations for the same path win.
func (r *ReconcileOperations) Merge(other *ReconcileOperations) {
	for path, op := range other.LocalWrites {
		r.forget(path)
		r.LocalWrites[path] = op
	}
	for path, op := range other.RemoteWrites {
		r.forget(path)
		r.RemoteWrites[path] = op
	}
	for path, op := range other.LocalDeletes {
		r.forget(path)
		r.LocalDeletes[path] = op
	}
	for path, op := range other.RemoteDeletes {
		r.forget(path)
		r.RemoteDeletes[path] = op
	}
	for path := range other.Unchanged.Iter() {
		r.forget(path)
		r.Unchanged.Add(path)
	}
	for path := range other.Ignored.Iter() {
		r.forget(path)
		r.Ignored.Add(path)
	}
}

func (r *ReconcileOperations) forget(path string) {
	delete(r.LocalWrites, path)
	delete(r.RemoteWrites, path)
	delete(r.LocalDeletes, path)
	delete(r.RemoteDeletes, path)
	r.Unchanged.Remove(path)
	r.Ignored.Remove(path)
}
