package worker

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/interfaces"
	"github.com/secmon-lab/autoreply/pkg/utils/errutil"
	"github.com/secmon-lab/autoreply/pkg/utils/logging"
)

// SessionSweepWorker removes wizard sessions that were abandoned before they were finalized
//
// Architecture assumptions:
// - Pruning is idempotent, so running it from several instances at once is harmless
type SessionSweepWorker struct {
	store    interfaces.ActionStore
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// SessionSweepOption configures SessionSweepWorker
type SessionSweepOption func(*SessionSweepWorker)

// WithClock replaces the clock used to compute the cutoff
func WithClock(now func() time.Time) SessionSweepOption {
	return func(w *SessionSweepWorker) {
		w.now = now
	}
}

// NewSessionSweepWorker creates a worker that prunes sessions idle for longer than ttl every
// interval. A zero ttl disables the worker.
func NewSessionSweepWorker(store interfaces.ActionStore, ttl, interval time.Duration, opts ...SessionSweepOption) *SessionSweepWorker {
	w := &SessionSweepWorker{
		store:    store,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enabled reports whether Start launches the sweep loop
func (w *SessionSweepWorker) Enabled() bool {
	return w.ttl > 0 && w.interval > 0
}

// Start begins the background sweep loop. It does not block.
func (w *SessionSweepWorker) Start(ctx context.Context) error {
	if !w.Enabled() {
		logging.Default().Info("session sweep worker disabled")
		close(w.doneCh)
		return nil
	}

	logging.Default().Info("session sweep worker starting",
		"ttl", w.ttl.String(),
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *SessionSweepWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.doneCh
	logging.Default().Info("session sweep worker stopped")
}

func (w *SessionSweepWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.sweepAndReport(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweepAndReport(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("session sweep worker context cancelled")
			return
		}
	}
}

func (w *SessionSweepWorker) sweepAndReport(ctx context.Context) {
	if _, err := w.Sweep(ctx); err != nil {
		// Keep running, the next tick retries
		errutil.Handle(ctx, err, "session sweep failed")
	}
}

// Sweep performs a single prune cycle and returns the number of sessions removed
func (w *SessionSweepWorker) Sweep(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.ttl)

	n, err := w.store.PruneProvisional(ctx, cutoff)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to prune provisional actions", goerr.V("cutoff", cutoff))
	}

	if n > 0 {
		logging.Default().Info("pruned abandoned wizard sessions", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
