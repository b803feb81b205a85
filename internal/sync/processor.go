package sync

import (
	"context"
	"time"

	"github.com/farhanfatur/Attendance-App/internal/logging"
	"github.com/farhanfatur/Attendance-App/internal/sync/conflict"
	"github.com/farhanfatur/Attendance-App/internal/sync/executor"
	"github.com/farhanfatur/Attendance-App/internal/sync/notify"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
	"github.com/farhanfatur/Attendance-App/internal/telemetry"
	"github.com/farhanfatur/Attendance-App/internal/uuid"
)

// Reasons a drain did not run.
const (
	SkipInFlight = "in-flight"
	SkipOffline  = "offline"
	SkipClosed   = "closed"
)

type priorState struct {
	status        queue.Status
	lastAttemptAt *time.Time
}

// DrainResult summarizes one ProcessQueue call.
type DrainResult struct {
	Skipped     string `json:"skipped,omitempty"`
	Attempted   int    `json:"attempted"`
	Succeeded   int    `json:"succeeded"`
	Conflicts   int    `json:"conflicts"`
	Retried     int    `json:"retried"`
	Failed      int    `json:"failed"`
	Discarded   int    `json:"discarded"`
	Unattempted int    `json:"unattempted"`
	Persisted   bool   `json:"persisted"`
}

// ProcessQueue drains one batch. It returns immediately when another drain
// is in flight or the device is offline. Items are sent one at a time in
// queue order; the queue lock is released during each network call so
// reads and enqueues stay available. The queue is persisted once after
// the batch, then listeners are notified.
func (e *Engine) ProcessQueue(ctx context.Context) DrainResult {
	var res DrainResult

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		res.Skipped = SkipClosed
		return res
	}
	e.active.Add(1)
	e.mu.Unlock()
	defer e.active.Done()

	if !e.draining.CompareAndSwap(false, true) {
		res.Skipped = SkipInFlight
		return res
	}
	released := false
	release := func() {
		if !released {
			released = true
			e.draining.Store(false)
		}
	}
	defer release()

	if !e.reach.IsOnline() {
		res.Skipped = SkipOffline
		return res
	}

	// Select the batch and mark it syncing.
	e.mu.Lock()
	now := e.cfg.now()
	due := e.q.Due(now, e.cfg.batchSize)
	batch := make([]queue.QueueItem, 0, len(due))
	prev := make(map[string]priorState, len(due))
	for _, item := range due {
		prev[item.ID] = priorState{status: item.Status, lastAttemptAt: item.LastAttemptAt}
		item.Status = queue.StatusSyncing
		t := now
		item.LastAttemptAt = &t
		batch = append(batch, item.Clone())
	}
	e.mu.Unlock()

	if len(batch) == 0 {
		return res
	}

	logging.Info("Drain started", map[string]interface{}{"batch_size": len(batch)})
	started := time.Now()

	var records []conflict.Record
	var events []notify.Event

	for i, sent := range batch {
		if ctx.Err() != nil {
			res.Unattempted = len(batch) - i
			break
		}

		outcome := e.exec.Execute(ctx, sent)
		res.Attempted++

		e.mu.Lock()
		live, ok := e.q.Get(sent.ID)
		if !ok || live.Status != queue.StatusSyncing {
			// Removed (or reset) while the call was in flight.
			e.mu.Unlock()
			res.Discarded++
			logging.Debug("Discarding result for item changed during drain", map[string]interface{}{
				"item_id": sent.ID,
				"outcome": outcome.Kind.String(),
			})
			continue
		}

		switch outcome.Kind {
		case executor.OutcomeSuccess:
			e.q.Remove(live.ID)
			res.Succeeded++
			logging.Info("Item synced", map[string]interface{}{
				"item_id":     live.ID,
				"action_type": string(live.ActionType),
			})

		case executor.OutcomeConflict:
			r := conflict.Resolve(*live, outcome.ServerPayload, outcome.ServerVersion, e.cfg.now())
			if r.Remove {
				e.q.Remove(live.ID)
				events = append(events, notify.Event{
					Kind:          notify.KindServerWins,
					ItemID:        r.Record.ItemID,
					ActionType:    r.Record.ActionType,
					ServerPayload: r.ServerPayload,
				})
			} else {
				*live = r.Item
			}
			rec := r.Record
			records = append(records, rec)
			res.Conflicts++
			logging.Info("Conflict resolved", map[string]interface{}{
				"item_id":        rec.ItemID,
				"strategy":       string(rec.Strategy),
				"local_version":  rec.LocalVersion,
				"server_version": rec.ServerVersion,
			})

		default:
			live.RetryCount++
			live.ErrorMessage = outcome.Message
			if live.Exhausted() {
				live.Status = queue.StatusFailed
				live.NextRetryAt = nil
				res.Failed++
				logging.Warn("Item failed permanently", map[string]interface{}{
					"item_id":     live.ID,
					"retry_count": live.RetryCount,
					"error":       outcome.Message,
				})
			} else {
				live.Status = queue.StatusPending
				live.NextRetryAt = nil
				if d := e.cfg.backoff.Delay(live.RetryCount); d > 0 {
					next := e.cfg.now().Add(d)
					live.NextRetryAt = &next
				}
				res.Retried++
				logging.Info("Item will be retried", map[string]interface{}{
					"item_id":     live.ID,
					"retry_count": live.RetryCount,
					"error":       outcome.Message,
				})
			}
		}
		e.mu.Unlock()
	}

	// Items never attempted return to their prior state.
	e.mu.Lock()
	for _, sent := range batch {
		if live, ok := e.q.Get(sent.ID); ok && live.Status == queue.StatusSyncing {
			live.Status = prev[sent.ID].status
			live.LastAttemptAt = prev[sent.ID].lastAttemptAt
		}
	}
	e.q.Resort()
	e.lastDrainAt = e.cfg.now()
	saveErr := e.persistLocked(ctx)
	res.Persisted = saveErr == nil
	changed := e.changedLocked(saveErr)
	for i := range events {
		events[i].Seq = e.seq
	}
	e.mu.Unlock()

	e.recordConflicts(records)
	release()

	e.cfg.metrics.RecordDrain(telemetry.DrainCounts{
		Attempted: res.Attempted,
		Succeeded: res.Succeeded,
		Conflicts: res.Conflicts,
		Retried:   res.Retried,
		Failed:    res.Failed,
		Discarded: res.Discarded,
	}, time.Since(started))

	for i := range records {
		rec := records[i]
		e.hub.Publish(notify.Event{
			Kind:       notify.KindConflictResolved,
			Seq:        changed[0].Seq,
			ItemID:     rec.ItemID,
			ActionType: rec.ActionType,
			Record:     &rec,
		})
	}
	e.publish(events)
	e.publish(changed)

	logging.Info("Drain finished", map[string]interface{}{
		"attempted": res.Attempted,
		"succeeded": res.Succeeded,
		"conflicts": res.Conflicts,
		"retried":   res.Retried,
		"failed":    res.Failed,
	})
	return res
}

func (e *Engine) recordConflicts(records []conflict.Record) {
	for _, rec := range records {
		e.cfg.metrics.RecordConflict(string(rec.Strategy))
	}
	if e.cfg.conflictLog == nil {
		return
	}
	for _, rec := range records {
		if err := e.cfg.conflictLog.CreateConflictLog(context.Background(), rec.ToModel(uuid.New())); err != nil {
			logging.Warn("Failed to record conflict", map[string]interface{}{
				"item_id": rec.ItemID,
				"error":   err.Error(),
			})
		}
	}
}
