package models

import "time"

// ConflictLog records a resolved server conflict for user awareness.
type ConflictLog struct {
	ID            UUID   `db:"id" json:"id"`
	ItemID        UUID   `db:"item_id" json:"item_id"`
	ActionType    string `db:"action_type" json:"action_type"`
	Resolution    string `db:"resolution" json:"resolution"` // client-wins, server-wins, merge, manual
	LocalVersion  int64  `db:"local_version" json:"local_version"`
	ServerVersion int64  `db:"server_version" json:"server_version"`
	DetectedAt    int64  `db:"detected_at" json:"detected_at"`
}

// TableName returns the table name for ConflictLog.
func (ConflictLog) TableName() string {
	return "conflict_log"
}

// DetectedAtTime returns the DetectedAt as time.Time.
func (c *ConflictLog) DetectedAtTime() time.Time {
	return time.Unix(c.DetectedAt, 0)
}
