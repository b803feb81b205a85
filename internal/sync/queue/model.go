package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/farhanfatur/Attendance-App/internal/models"
)

// ToModel converts a QueueItem to a SyncQueue row for database storage.
// position records the item's index in queue order.
func (item *QueueItem) ToModel(position int) (*models.SyncQueue, error) {
	payloadJSON, err := json.Marshal(item.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return &models.SyncQueue{
		ID:                 models.UUID(item.ID),
		ActionType:         string(item.ActionType),
		Payload:            json.RawMessage(payloadJSON),
		CreatedAt:          item.CreatedAt.UnixNano(),
		RetryCount:         item.RetryCount,
		MaxRetries:         item.MaxRetries,
		Priority:           item.Priority,
		ConflictResolution: string(item.ConflictResolution),
		Status:             string(item.Status),
		ErrorMessage:       item.ErrorMessage,
		LastAttemptAt:      unixNanoOrZero(item.LastAttemptAt),
		NextRetryAt:        unixNanoOrZero(item.NextRetryAt),
		LocalVersion:       item.LocalVersion,
		ServerVersion:      item.ServerVersion,
		AwaitingManual:     item.AwaitingManual,
		Position:           position,
	}, nil
}

// FromModel creates a QueueItem from a SyncQueue row.
func FromModel(model *models.SyncQueue) (*QueueItem, error) {
	var payload map[string]interface{}
	if err := DecodeJSON(model.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return &QueueItem{
		ID:                 string(model.ID),
		ActionType:         ActionType(model.ActionType),
		Payload:            payload,
		CreatedAt:          time.Unix(0, model.CreatedAt).UTC(),
		RetryCount:         model.RetryCount,
		MaxRetries:         model.MaxRetries,
		Priority:           model.Priority,
		ConflictResolution: ConflictResolution(model.ConflictResolution),
		Status:             Status(model.Status),
		ErrorMessage:       model.ErrorMessage,
		LastAttemptAt:      timeOrNil(model.LastAttemptAt),
		NextRetryAt:        timeOrNil(model.NextRetryAt),
		LocalVersion:       model.LocalVersion,
		ServerVersion:      model.ServerVersion,
		AwaitingManual:     model.AwaitingManual,
	}, nil
}

func unixNanoOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

func timeOrNil(n int64) *time.Time {
	if n == 0 {
		return nil
	}
	t := time.Unix(0, n).UTC()
	return &t
}
