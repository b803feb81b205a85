package sync

import (
	"context"
	"time"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
	"github.com/farhanfatur/Attendance-App/internal/logging"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
	"github.com/farhanfatur/Attendance-App/internal/uuid"
)

// EnqueueOptions overrides per-item defaults. Zero values keep the default.
type EnqueueOptions struct {
	Priority           *int
	ConflictResolution queue.ConflictResolution
	MaxRetries         int
}

// Enqueue validates and queues a mutation and returns its id. The item is
// persisted before Enqueue returns. Being offline is not an error; when
// online a drain starts in the background.
func (e *Engine) Enqueue(ctx context.Context, actionType queue.ActionType, payload map[string]interface{}, opts EnqueueOptions) (string, error) {
	if !actionType.Valid() {
		return "", apperrors.Newf(apperrors.ErrInvalidActionType, "unknown action type %q", actionType)
	}
	if opts.ConflictResolution != "" && !opts.ConflictResolution.Valid() {
		return "", apperrors.Newf(apperrors.ErrInvalid, "unknown conflict resolution %q", opts.ConflictResolution)
	}
	if opts.MaxRetries < 0 {
		return "", apperrors.New(apperrors.ErrInvalid, "maxRetries must not be negative")
	}
	payload, err := queue.NormalizePayload(payload)
	if err != nil {
		return "", err
	}

	item := queue.QueueItem{
		ID:                 uuid.New(),
		ActionType:         actionType,
		Payload:            payload,
		RetryCount:         0,
		MaxRetries:         e.cfg.maxRetries,
		Priority:           e.cfg.priorities.Lookup(actionType),
		ConflictResolution: e.cfg.conflictResolution,
		Status:             queue.StatusPending,
		LocalVersion:       1,
	}
	if opts.Priority != nil {
		item.Priority = *opts.Priority
	}
	if opts.ConflictResolution != "" {
		item.ConflictResolution = opts.ConflictResolution
	}
	if opts.MaxRetries > 0 {
		item.MaxRetries = opts.MaxRetries
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", apperrors.New(apperrors.ErrEngineClosed, "engine is closed")
	}
	if e.cfg.maxQueueSize > 0 && e.q.Len() >= e.cfg.maxQueueSize {
		e.mu.Unlock()
		return "", apperrors.Newf(apperrors.ErrQueueFull, "queue is full (%d items)", e.cfg.maxQueueSize)
	}
	item.CreatedAt = e.cfg.now()
	e.q.Insert(item)
	saveErr := e.persistLocked(ctx)
	events := e.changedLocked(saveErr)
	e.mu.Unlock()

	logging.Info("Item enqueued", map[string]interface{}{
		"item_id":     item.ID,
		"action_type": string(item.ActionType),
		"priority":    item.Priority,
	})

	e.cfg.metrics.RecordEnqueue(string(item.ActionType))
	e.publish(events)
	e.kick()
	return item.ID, nil
}

// RetryItem resets an item's retry budget and makes it eligible again.
// Items held for manual conflict review are released with a local version
// above the server's. Items currently syncing cannot be retried.
func (e *Engine) RetryItem(ctx context.Context, id string) error {
	e.mu.Lock()
	item, ok := e.q.Get(id)
	if !ok {
		e.mu.Unlock()
		return apperrors.Newf(apperrors.ErrNotFound, "queue item %s not found", id)
	}
	if item.Status == queue.StatusSyncing {
		e.mu.Unlock()
		return apperrors.Newf(apperrors.ErrInvalid, "queue item %s is syncing", id)
	}
	resetForRetry(item)
	saveErr := e.persistLocked(ctx)
	events := e.changedLocked(saveErr)
	e.mu.Unlock()

	logging.Info("Item retry requested", map[string]interface{}{"item_id": id})

	e.publish(events)
	e.kick()
	return nil
}

// RetryAllFailed resets every failed item and returns how many were reset.
func (e *Engine) RetryAllFailed(ctx context.Context) int {
	e.mu.Lock()
	count := 0
	for _, snapshot := range e.q.All() {
		if snapshot.Status != queue.StatusFailed {
			continue
		}
		if item, ok := e.q.Get(snapshot.ID); ok {
			resetForRetry(item)
			count++
		}
	}
	if count == 0 {
		e.mu.Unlock()
		return 0
	}
	saveErr := e.persistLocked(ctx)
	events := e.changedLocked(saveErr)
	e.mu.Unlock()

	logging.Info("Failed items retry requested", map[string]interface{}{"count": count})

	e.publish(events)
	e.kick()
	return count
}

func resetForRetry(item *queue.QueueItem) {
	item.RetryCount = 0
	item.ErrorMessage = ""
	item.NextRetryAt = nil
	item.Status = queue.StatusPending
	if item.AwaitingManual {
		item.AwaitingManual = false
		if item.ServerVersion >= item.LocalVersion {
			item.LocalVersion = item.ServerVersion + 1
		} else {
			item.LocalVersion++
		}
	}
}

// RemoveItem drops an item. Removing an item that is syncing discards the
// in-flight result.
func (e *Engine) RemoveItem(ctx context.Context, id string) error {
	e.mu.Lock()
	if !e.q.Remove(id) {
		e.mu.Unlock()
		return apperrors.Newf(apperrors.ErrNotFound, "queue item %s not found", id)
	}
	saveErr := e.persistLocked(ctx)
	events := e.changedLocked(saveErr)
	e.mu.Unlock()

	logging.Info("Item removed", map[string]interface{}{"item_id": id})

	e.publish(events)
	return nil
}

// ClearOldItems removes failed items, and items held for manual review,
// created more than maxAge ago. Items currently syncing are never removed.
// It returns the number of items removed.
func (e *Engine) ClearOldItems(ctx context.Context, maxAge time.Duration) int {
	e.mu.Lock()
	cutoff := e.cfg.now().Add(-maxAge)
	removed := e.q.RemoveWhere(func(item *queue.QueueItem) bool {
		if item.Status == queue.StatusSyncing {
			return false
		}
		if item.Status != queue.StatusFailed && !item.AwaitingManual {
			return false
		}
		return item.CreatedAt.Before(cutoff)
	})
	if len(removed) == 0 {
		e.mu.Unlock()
		return 0
	}
	saveErr := e.persistLocked(ctx)
	events := e.changedLocked(saveErr)
	e.mu.Unlock()

	logging.Info("Old items cleared", map[string]interface{}{
		"count":       len(removed),
		"max_age_sec": maxAge.Seconds(),
	})

	e.publish(events)
	return len(removed)
}
