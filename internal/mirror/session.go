// Package mirror serializes access to an update tree. A Session owns the
// tree from a single goroutine; producers feed it through channels and
// drained plans come back through a handler or an explicit Drain.
package mirror

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/openmined/syftmirror/internal/synclogic"
	"github.com/openmined/syftmirror/internal/update"
	"github.com/openmined/syftmirror/internal/updatetree"
)

const (
	defaultDrainInterval = time.Second
	defaultQueueSize     = 1024
)

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrSessionRunning = errors.New("session already running")
)

// Handler receives every non-empty plan drained automatically.
type Handler func(ctx context.Context, ops *synclogic.ReconcileOperations)

type SessionOpts struct {
	DrainInterval time.Duration
	QueueSize     int
	Handler       Handler
}

type Session struct {
	tree   *updatetree.Tree
	opts   SessionOpts
	local  chan *update.Update
	remote chan *update.Update
	drains chan chan *synclogic.ReconcileOperations
	ready  chan struct{}
	closed chan struct{}

	running     atomic.Bool
	localReady  bool
	remoteReady bool
}

func NewSession(tree *updatetree.Tree, opts SessionOpts) *Session {
	if opts.DrainInterval <= 0 {
		opts.DrainInterval = defaultDrainInterval
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	return &Session{
		tree:   tree,
		opts:   opts,
		local:  make(chan *update.Update, opts.QueueSize),
		remote: make(chan *update.Update, opts.QueueSize),
		drains: make(chan chan *synclogic.ReconcileOperations),
		ready:  make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// AddLocal queues a local record. It blocks until the record is accepted,
// ctx is done or the session stops.
func (s *Session) AddLocal(ctx context.Context, u *update.Update) error {
	return s.enqueue(ctx, s.local, u)
}

// AddRemote queues a remote record. See AddLocal.
func (s *Session) AddRemote(ctx context.Context, u *update.Update) error {
	return s.enqueue(ctx, s.remote, u)
}

func (s *Session) enqueue(ctx context.Context, ch chan<- *update.Update, u *update.Update) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	case ch <- u:
		return nil
	}
}

// Ready is closed once both sides have sent their initial sync marker.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Drain applies every queued record and returns the plan for all paths
// changed since the previous drain.
func (s *Session) Drain(ctx context.Context) (*synclogic.ReconcileOperations, error) {
	reply := make(chan *synclogic.ReconcileOperations, 1)
	select {
	case <-s.closed:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case s.drains <- reply:
	}

	select {
	case <-s.closed:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case ops := <-reply:
		return ops, nil
	}
}

// Run owns the tree until ctx is done. It can only be called once.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSessionRunning
	}
	defer close(s.closed)

	slog.Debug("mirror session start", "drainInterval", s.opts.DrainInterval)

	// a timer, not a ticker, so a slow handler does not queue drains
	timer := time.NewTimer(s.opts.DrainInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("mirror session stop")
			return nil
		case u := <-s.local:
			s.apply(u, true)
		case u := <-s.remote:
			s.apply(u, false)
		case reply := <-s.drains:
			s.flushQueued()
			reply <- synclogic.Reconcile(s.tree)
		case <-timer.C:
			s.autoDrain(ctx)
			timer.Reset(s.opts.DrainInterval)
		}
	}
}

func (s *Session) apply(u *update.Update, local bool) {
	if update.IsInitialSyncMarker(u) {
		s.markReady(local)
		return
	}

	var err error
	if local {
		err = s.tree.AddLocal(u)
	} else {
		err = s.tree.AddRemote(s.stampRemoteDelete(u))
	}
	if err != nil {
		slog.Warn("mirror dropped update", "local", local, "update", u, "error", err)
	}
}

// stampRemoteDelete gives a remote delete without a mod time the previous
// remote mod time ticked by 1 (0 if that was already a delete), the same
// rule the tree applies to local deletes. Without it a remote delete would
// never beat the local copy it removes.
func (s *Session) stampRemoteDelete(u *update.Update) *update.Update {
	if u == nil || !u.Delete || u.ModTime != 0 {
		return u
	}
	node, err := s.tree.Find(u.Path)
	if err != nil || node.Remote() == nil {
		return u
	}
	prev := node.Remote()
	var tick int64 = 1
	if prev.Delete {
		tick = 0
	}
	return u.WithModTime(prev.ModTime + tick)
}

func (s *Session) markReady(local bool) {
	if s.isReady() {
		return
	}
	if local {
		s.localReady = true
	} else {
		s.remoteReady = true
	}
	slog.Debug("mirror initial sync done", "local", local)
	if s.localReady && s.remoteReady {
		slog.Info("mirror ready")
		close(s.ready)
	}
}

func (s *Session) isReady() bool {
	return s.localReady && s.remoteReady
}

// flushQueued applies records already sitting in the queues.
func (s *Session) flushQueued() {
	for {
		select {
		case u := <-s.local:
			s.apply(u, true)
		case u := <-s.remote:
			s.apply(u, false)
		default:
			return
		}
	}
}

func (s *Session) autoDrain(ctx context.Context) {
	// one-sided state before both scans finish would read as deletions
	if !s.isReady() {
		return
	}

	ops := synclogic.Reconcile(s.tree)
	if !ops.HasChanges() {
		return
	}

	slog.Info("mirror drain",
		"pushes", len(ops.RemoteWrites),
		"pulls", len(ops.LocalWrites),
		"remoteDeletes", len(ops.RemoteDeletes),
		"localDeletes", len(ops.LocalDeletes),
		"ignored", ops.Ignored.Cardinality(),
	)
	if s.opts.Handler != nil {
		s.opts.Handler(ctx, ops)
	}
}
