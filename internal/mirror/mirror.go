package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openmined/syftmirror/internal/config"
	"github.com/openmined/syftmirror/internal/pathrules"
	"github.com/openmined/syftmirror/internal/scanner"
	"github.com/openmined/syftmirror/internal/synclogic"
	"github.com/openmined/syftmirror/internal/update"
	"github.com/openmined/syftmirror/internal/updatetree"
	"github.com/openmined/syftmirror/internal/watcher"
	"golang.org/x/sync/errgroup"
)

// Mirror compares a local directory against a remote one.
type Mirror struct {
	config   *config.Config
	includes *pathrules.PathRules
	excludes *pathrules.PathRules
}

func New(cfg *config.Config) (*Mirror, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	includes, excludes, err := cfg.Rules()
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return &Mirror{
		config:   cfg,
		includes: includes,
		excludes: excludes,
	}, nil
}

func (m *Mirror) newSession(handler Handler) *Session {
	tree := updatetree.NewWithRules(m.includes, m.excludes, m.config.DebugPrefixes)
	return NewSession(tree, SessionOpts{
		DrainInterval: m.config.DrainInterval,
		Handler:       handler,
	})
}

// Diff scans both directories once and returns the resulting plan.
func (m *Mirror) Diff(ctx context.Context) (*synclogic.ReconcileOperations, error) {
	slog.Info("mirror diff", "local", m.config.LocalDir, "remote", m.config.RemoteDir)

	session := m.newSession(nil)

	eg, egCtx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(egCtx)
	defer stop()

	eg.Go(func() error {
		return session.Run(runCtx)
	})
	m.goScan(egCtx, eg, m.config.LocalDir, session.AddLocal)
	m.goScan(egCtx, eg, m.config.RemoteDir, session.AddRemote)

	var ops *synclogic.ReconcileOperations
	select {
	case <-session.Ready():
		var err error
		ops, err = session.Drain(egCtx)
		if err != nil {
			stop()
			_ = eg.Wait()
			return nil, fmt.Errorf("drain: %w", err)
		}
	case <-egCtx.Done():
	}

	stop()
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if ops == nil {
		return nil, ctx.Err()
	}
	return ops, nil
}

// Watch scans both directories, then follows changes on both sides and
// hands every non-empty plan to handler until ctx is done.
func (m *Mirror) Watch(ctx context.Context, handler Handler) error {
	slog.Info("mirror watch", "local", m.config.LocalDir, "remote", m.config.RemoteDir)

	// watchers start before the scans so nothing changed mid-scan is lost
	localWatcher, err := m.startWatcher(ctx, m.config.LocalDir)
	if err != nil {
		return fmt.Errorf("watch local: %w", err)
	}
	defer localWatcher.Stop()

	remoteWatcher, err := m.startWatcher(ctx, m.config.RemoteDir)
	if err != nil {
		return fmt.Errorf("watch remote: %w", err)
	}
	defer remoteWatcher.Stop()

	session := m.newSession(handler)
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return session.Run(egCtx)
	})
	m.goScan(egCtx, eg, m.config.LocalDir, session.AddLocal)
	m.goScan(egCtx, eg, m.config.RemoteDir, session.AddRemote)
	eg.Go(func() error {
		return forward(egCtx, localWatcher.Updates(), session.AddLocal)
	})
	eg.Go(func() error {
		return forward(egCtx, remoteWatcher.Updates(), session.AddRemote)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("mirror watch failure", "error", err)
		return err
	}

	slog.Info("mirror watch stopped")
	return nil
}

type addFunc func(ctx context.Context, u *update.Update) error

func (m *Mirror) goScan(ctx context.Context, eg *errgroup.Group, dir string, add addFunc) {
	eg.Go(func() error {
		if err := scanner.Scan(ctx, dir, func(u *update.Update) error {
			return add(ctx, u)
		}); err != nil {
			return fmt.Errorf("scan %s: %w", dir, err)
		}
		return nil
	})
}

func (m *Mirror) startWatcher(ctx context.Context, dir string) (*watcher.Watcher, error) {
	w := watcher.New(dir)
	w.FilterPaths(m.shouldDropEvent)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// shouldDropEvent drops events for paths the extra rules exclude. The tree
// still applies .gitignore rules to whatever gets through.
func (m *Mirror) shouldDropEvent(relPath string) bool {
	return m.excludes.Matches(relPath, false) && !m.includes.Matches(relPath, false)
}

func forward(ctx context.Context, updates <-chan *update.Update, add addFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-updates:
			if err := add(ctx, u); err != nil {
				return err
			}
		}
	}
}
