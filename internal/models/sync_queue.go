package models

import "encoding/json"

// SyncQueue is one queued mutation as stored in the sync_queue table.
// Timestamps are Unix nanoseconds so rows round-trip without loss; zero
// means unset for the optional ones.
type SyncQueue struct {
	ID                 UUID            `db:"id" json:"id"`
	ActionType         string          `db:"action_type" json:"action_type"`
	Payload            json.RawMessage `db:"payload" json:"payload"`
	CreatedAt          int64           `db:"created_at" json:"created_at"`
	RetryCount         int             `db:"retry_count" json:"retry_count"`
	MaxRetries         int             `db:"max_retries" json:"max_retries"`
	Priority           int             `db:"priority" json:"priority"`
	ConflictResolution string          `db:"conflict_resolution" json:"conflict_resolution"`
	Status             string          `db:"status" json:"status"` // pending, syncing, failed
	ErrorMessage       string          `db:"error_message" json:"error_message,omitempty"`
	LastAttemptAt      int64           `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	NextRetryAt        int64           `db:"next_retry_at" json:"next_retry_at,omitempty"`
	LocalVersion       int64           `db:"local_version" json:"local_version"`
	ServerVersion      int64           `db:"server_version" json:"server_version"`
	AwaitingManual     bool            `db:"awaiting_manual" json:"awaiting_manual"`
	Position           int             `db:"position" json:"position"`
}

// TableName returns the table name for SyncQueue.
func (SyncQueue) TableName() string {
	return "sync_queue"
}
