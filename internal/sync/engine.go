// Package sync is the offline mutation engine: it queues writes made
// while offline, persists them, and drains them to the server in priority
// order when connectivity allows.
package sync

import (
	"context"
	stdsync "sync"
	"sync/atomic"
	"time"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
	"github.com/farhanfatur/Attendance-App/internal/logging"
	"github.com/farhanfatur/Attendance-App/internal/models"
	"github.com/farhanfatur/Attendance-App/internal/sync/executor"
	"github.com/farhanfatur/Attendance-App/internal/sync/notify"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
	"github.com/farhanfatur/Attendance-App/internal/sync/reachability"
	"github.com/farhanfatur/Attendance-App/internal/sync/scheduler"
	"github.com/farhanfatur/Attendance-App/internal/sync/store"
)

// ConflictRecorder persists resolved conflicts.
type ConflictRecorder interface {
	CreateConflictLog(ctx context.Context, entry *models.ConflictLog) error
}

// Engine owns one offline queue.
//
// mu guards the queue, persistence and the degraded-mode error. It is
// never held across a network call or while listeners run. draining is
// the single-flight guard for ProcessQueue.
type Engine struct {
	mu     stdsync.Mutex
	q      *queue.Queue
	closed bool
	seq    uint64

	lastErr     error
	lastDrainAt time.Time

	draining atomic.Bool

	store store.Store
	exec  executor.Executor
	reach reachability.Monitor
	hub   *notify.Hub
	sched *scheduler.Scheduler
	cfg   settings

	// active tracks running drains, kicked or called directly, so Close
	// can wait for them before the final save.
	active stdsync.WaitGroup
}

// New loads the persisted queue and returns a ready engine. Items saved
// mid-drain (status syncing) are reset to pending. A nil reach is treated
// as always online.
func New(ctx context.Context, st store.Store, exec executor.Executor, reach reachability.Monitor, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, apperrors.New(apperrors.ErrInvalid, "store is required")
	}
	if exec == nil {
		return nil, apperrors.New(apperrors.ErrInvalid, "executor is required")
	}
	if reach == nil {
		reach = reachability.Always{}
	}

	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	items, err := st.Load(ctx)
	if err != nil {
		logging.Warn("Queue load failed, starting empty", map[string]interface{}{
			"error": err.Error(),
		})
		items = nil
	}

	recovered := 0
	kept := items[:0]
	for _, item := range items {
		switch item.Status {
		case queue.StatusCompleted:
			continue
		case queue.StatusSyncing:
			item.Status = queue.StatusPending
			recovered++
		}
		// A pending item with no budget left would never be attempted.
		if item.Status == queue.StatusPending && !item.AwaitingManual && item.Exhausted() {
			item.Status = queue.StatusFailed
			if item.ErrorMessage == "" {
				item.ErrorMessage = "retry budget exhausted"
			}
		}
		kept = append(kept, item)
	}

	e := &Engine{
		q:     queue.New(kept),
		store: st,
		exec:  exec,
		reach: reach,
		hub:   notify.NewHub(),
		cfg:   cfg,
	}
	e.sched = scheduler.New(func(ctx context.Context) { e.ProcessQueue(ctx) }, reach,
		scheduler.Config{Interval: cfg.syncInterval})

	logging.Info("Sync engine started", map[string]interface{}{
		"items":     e.q.Len(),
		"recovered": recovered,
	})
	return e, nil
}

// Subscribe registers fn for queue events and returns its unsubscribe function.
func (e *Engine) Subscribe(fn func(notify.Event)) func() {
	return e.hub.Subscribe(fn)
}

// GetQueue returns a snapshot of the queue in drain order.
func (e *Engine) GetQueue() []queue.QueueItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.q.All()
}

// GetItem returns a copy of the item with id.
func (e *Engine) GetItem(id string) (queue.QueueItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, ok := e.q.Get(id)
	if !ok {
		return queue.QueueItem{}, apperrors.Newf(apperrors.ErrNotFound, "queue item %s not found", id)
	}
	return item.Clone(), nil
}

// GetStats returns item counts by status.
func (e *Engine) GetStats() queue.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.q.Stats()
}

// LastError returns the most recent persistence error, or nil once a
// later save succeeded.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Status is a point-in-time view of the engine.
type Status struct {
	Online            bool        `json:"online"`
	Draining          bool        `json:"draining"`
	BackgroundRunning bool        `json:"backgroundRunning"`
	LastDrainAt       *time.Time  `json:"lastDrainAt,omitempty"`
	Degraded          bool        `json:"degraded"`
	LastError         string      `json:"lastError,omitempty"`
	Stats             queue.Stats `json:"stats"`
}

// Status returns the current engine status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	s := Status{
		Draining: e.draining.Load(),
		Degraded: e.lastErr != nil,
		Stats:    e.q.Stats(),
	}
	if e.lastErr != nil {
		s.LastError = e.lastErr.Error()
	}
	if !e.lastDrainAt.IsZero() {
		t := e.lastDrainAt
		s.LastDrainAt = &t
	}
	e.mu.Unlock()

	s.Online = e.reach.IsOnline()
	s.BackgroundRunning = e.sched.IsRunning()
	return s
}

// StartBackgroundSync starts the periodic and reachability triggers.
func (e *Engine) StartBackgroundSync(ctx context.Context) {
	e.sched.Start(ctx)
}

// StopBackgroundSync stops the background triggers.
func (e *Engine) StopBackgroundSync() {
	e.sched.Stop()
}

// Close stops background work, waits for in-flight drains and writes the
// queue one last time.
func (e *Engine) Close() error {
	e.sched.Stop()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.active.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.Save(context.Background(), e.q.All()); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "final queue save failed", err)
	}
	return nil
}

// persistLocked writes the queue and updates degraded mode. Callers hold mu.
// The returned error is informational; the in-memory state stays authoritative.
func (e *Engine) persistLocked(ctx context.Context) error {
	err := e.store.Save(ctx, e.q.All())
	if err != nil {
		if e.lastErr == nil {
			logging.ErrorWithCode("Queue persistence failed, continuing in memory",
				string(apperrors.ErrPersistence), err, map[string]interface{}{"items": e.q.Len()})
		}
		e.lastErr = err
		e.cfg.metrics.RecordPersistFailure()
		return err
	}
	if e.lastErr != nil {
		logging.Info("Queue persistence recovered", nil)
	}
	e.lastErr = nil
	return nil
}

// changedLocked builds the queue.changed event (and a degraded event when
// saveErr is set). Callers hold mu and publish after unlocking.
func (e *Engine) changedLocked(saveErr error) []notify.Event {
	e.seq++
	stats := e.q.Stats()
	events := []notify.Event{{
		Kind:     notify.KindQueueChanged,
		Seq:      e.seq,
		Snapshot: e.q.All(),
		Stats:    &stats,
	}}
	if saveErr != nil {
		events = append(events, notify.Event{
			Kind: notify.KindPersistenceDegraded,
			Seq:  e.seq,
			Err:  saveErr,
		})
	}
	return events
}

func (e *Engine) publish(events []notify.Event) {
	for _, ev := range events {
		e.hub.Publish(ev)
	}
}

// kick starts a drain in the background if online. Callers must not hold mu.
func (e *Engine) kick() {
	if e.reach.IsOnline() {
		go e.ProcessQueue(context.Background())
	}
}
