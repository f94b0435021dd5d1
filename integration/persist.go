package integration

import (
	"context"
	"sync"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	"github.com/AzielCF/az-connect/pkg/eventworker"
	"github.com/sirupsen/logrus"
)

// snapshotWriter persists committed channels off the store lock. Commits are
// coalesced per channel: only the latest snapshot is kept, and at most one
// drain per channel runs at a time, so a full worker queue can delay a save
// but never lose the final state.
type snapshotWriter struct {
	repo channel.SnapshotRepository
	pool *eventworker.Pool

	mu     sync.Mutex
	latest map[string]channel.Channel
	busy   map[string]bool
	wg     sync.WaitGroup
}

func newSnapshotWriter(repo channel.SnapshotRepository, pool *eventworker.Pool) *snapshotWriter {
	return &snapshotWriter{
		repo:   repo,
		pool:   pool,
		latest: map[string]channel.Channel{},
		busy:   map[string]bool{},
	}
}

// Listen is registered as a store listener.
func (w *snapshotWriter) Listen(ev channel.ChangeEvent) {
	snapshot := ev.Channel.Clone()

	w.mu.Lock()
	w.latest[snapshot.ID] = snapshot
	if w.busy[snapshot.ID] {
		w.mu.Unlock()
		return
	}
	w.busy[snapshot.ID] = true
	w.wg.Add(1)
	w.mu.Unlock()

	id := snapshot.ID
	job := eventworker.Job{
		Key:  id,
		Kind: "persist",
		Handler: func(ctx context.Context) error {
			return w.drain(ctx, id)
		},
	}
	if w.pool == nil || !w.pool.TryDispatch(job) {
		go func() {
			_ = w.drain(context.Background(), id)
		}()
	}
}

// drain saves the latest snapshot of id until no newer one is waiting.
func (w *snapshotWriter) drain(ctx context.Context, id string) error {
	defer w.wg.Done()
	var lastErr error
	for {
		w.mu.Lock()
		snapshot, ok := w.latest[id]
		if !ok {
			delete(w.busy, id)
			w.mu.Unlock()
			return lastErr
		}
		delete(w.latest, id)
		w.mu.Unlock()

		if err := w.repo.SaveChannel(ctx, snapshot); err != nil {
			logrus.WithError(err).Errorf("[INTEGRATION] Failed to persist %s (%s)", id, snapshot.Status)
			lastErr = err
		}
	}
}

// Flush blocks until every pending snapshot has been written.
func (w *snapshotWriter) Flush() {
	w.wg.Wait()
}
