// Package conflict decides what happens to a queued item after the server
// reports a version conflict. Resolve is pure: it returns the new item
// state and a record of the decision, and the caller applies both.
package conflict

import (
	"time"

	"github.com/farhanfatur/Attendance-App/internal/models"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

// MergedKey tags a payload produced by the merge strategy.
const MergedKey = "_merged"

// ManualMessage is the error message set on items held for manual review.
const ManualMessage = "conflict requires manual resolution"

// Record describes one resolved conflict.
type Record struct {
	ItemID        string                   `json:"itemId"`
	ActionType    queue.ActionType         `json:"actionType"`
	Strategy      queue.ConflictResolution `json:"strategy"`
	LocalVersion  int64                    `json:"localVersion"`
	ServerVersion int64                    `json:"serverVersion"`
	DetectedAt    time.Time                `json:"detectedAt"`
}

// ToModel converts the record to a conflict_log row.
func (r Record) ToModel(id string) *models.ConflictLog {
	return &models.ConflictLog{
		ID:            models.UUID(id),
		ItemID:        models.UUID(r.ItemID),
		ActionType:    string(r.ActionType),
		Resolution:    string(r.Strategy),
		LocalVersion:  r.LocalVersion,
		ServerVersion: r.ServerVersion,
		DetectedAt:    r.DetectedAt.Unix(),
	}
}

// Result is the outcome of Resolve.
type Result struct {
	// Item is the updated item state. Ignored when Remove is set.
	Item queue.QueueItem

	// Remove drops the item from the queue (server-wins).
	Remove bool

	// ServerPayload is handed to listeners on server-wins so the owning
	// feature can overwrite its optimistic local state.
	ServerPayload map[string]interface{}

	Record Record
}

// Resolve applies the item's conflict strategy.
//
//   - client-wins: bump localVersion past the server's and retry as-is
//   - server-wins: drop the item and surface the server payload
//   - merge: overlay local fields on the server payload, tag it, retry
//   - manual: park the item as failed until a caller retries it
//
// Unknown strategies are treated as manual so nothing is silently lost.
func Resolve(item queue.QueueItem, serverPayload map[string]interface{}, serverVersion int64, now time.Time) Result {
	out := item.Clone()
	strategy := item.ConflictResolution
	if !strategy.Valid() {
		strategy = queue.ResolutionManual
	}

	res := Result{
		Record: Record{
			ItemID:        item.ID,
			ActionType:    item.ActionType,
			Strategy:      strategy,
			LocalVersion:  item.LocalVersion,
			ServerVersion: serverVersion,
			DetectedAt:    now,
		},
	}

	switch strategy {
	case queue.ResolutionClientWins:
		out.LocalVersion = nextVersion(out.LocalVersion, serverVersion)
		out.ServerVersion = serverVersion
		requeue(&out)

	case queue.ResolutionServerWins:
		res.Remove = true
		res.ServerPayload = queue.ClonePayload(serverPayload)

	case queue.ResolutionMerge:
		out.Payload = Merge(serverPayload, item.Payload)
		out.LocalVersion = nextVersion(out.LocalVersion, serverVersion)
		out.ServerVersion = serverVersion
		requeue(&out)

	case queue.ResolutionManual:
		out.Status = queue.StatusFailed
		out.ServerVersion = serverVersion
		out.AwaitingManual = true
		out.ErrorMessage = ManualMessage
		out.NextRetryAt = nil
	}

	res.Item = out
	return res
}

func requeue(item *queue.QueueItem) {
	item.Status = queue.StatusPending
	item.ErrorMessage = ""
	item.NextRetryAt = nil
}

// nextVersion bumps local by one, and past server when the server is ahead.
func nextVersion(local, server int64) int64 {
	if server > local {
		return server + 1
	}
	return local + 1
}

// Merge combines server and local payloads. Local values win on
// overlapping keys; nested objects present on both sides are merged
// recursively. The result carries MergedKey = true.
func Merge(server, local map[string]interface{}) map[string]interface{} {
	out := mergeMaps(server, local)
	out[MergedKey] = true
	return out
}

func mergeMaps(server, local map[string]interface{}) map[string]interface{} {
	out := queue.ClonePayload(server)
	if out == nil {
		out = make(map[string]interface{}, len(local))
	}
	for k, lv := range local {
		lm, lok := lv.(map[string]interface{})
		sm, sok := out[k].(map[string]interface{})
		if lok && sok {
			out[k] = mergeMaps(sm, lm)
			continue
		}
		out[k] = queue.CloneValue(lv)
	}
	return out
}

// IsMerged reports whether payload was produced by Merge.
func IsMerged(payload map[string]interface{}) bool {
	v, _ := payload[MergedKey].(bool)
	return v
}
