// Package queue holds the offline mutation queue model: the item schema,
// the action and status enumerations, the default priority table and the
// ordering every in-memory queue view keeps.
package queue

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"time"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
)

// ActionType identifies the kind of mutation an item carries. It selects the
// default priority and the remote endpoint.
type ActionType string

const (
	ActionCheckIn        ActionType = "attendance-check-in"
	ActionCheckOut       ActionType = "attendance-check-out"
	ActionTaskUpdate     ActionType = "task-update"
	ActionReportSubmit   ActionType = "report-submit"
	ActionLocationUpdate ActionType = "location-update"
	ActionPhotoUpload    ActionType = "photo-upload"
)

var actionTypes = []ActionType{
	ActionCheckIn,
	ActionCheckOut,
	ActionTaskUpdate,
	ActionReportSubmit,
	ActionLocationUpdate,
	ActionPhotoUpload,
}

// ActionTypes returns the closed set of supported action types.
func ActionTypes() []ActionType {
	out := make([]ActionType, len(actionTypes))
	copy(out, actionTypes)
	return out
}

// Valid reports whether a is one of the supported action types.
func (a ActionType) Valid() bool {
	for _, known := range actionTypes {
		if a == known {
			return true
		}
	}
	return false
}

// ParseActionType validates s against the supported action types.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(s)
	if !a.Valid() {
		return "", apperrors.Newf(apperrors.ErrInvalidActionType, "unknown action type %q", s)
	}
	return a, nil
}

// Status represents the lifecycle state of a queued item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSyncing   Status = "syncing"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
)

// ConflictResolution selects how a server-reported conflict is handled.
type ConflictResolution string

const (
	ResolutionClientWins ConflictResolution = "client-wins"
	ResolutionServerWins ConflictResolution = "server-wins"
	ResolutionMerge      ConflictResolution = "merge"
	ResolutionManual     ConflictResolution = "manual"
)

// Valid reports whether r is a known strategy.
func (r ConflictResolution) Valid() bool {
	switch r {
	case ResolutionClientWins, ResolutionServerWins, ResolutionMerge, ResolutionManual:
		return true
	}
	return false
}

// ParseConflictResolution validates s as a conflict strategy.
func ParseConflictResolution(s string) (ConflictResolution, error) {
	r := ConflictResolution(s)
	if !r.Valid() {
		return "", apperrors.Newf(apperrors.ErrInvalid, "unknown conflict resolution %q", s)
	}
	return r, nil
}

// QueueItem is one pending local mutation.
type QueueItem struct {
	ID                 string                 `json:"id"`
	ActionType         ActionType             `json:"actionType"`
	Payload            map[string]interface{} `json:"payload"`
	CreatedAt          time.Time              `json:"createdAt"`
	RetryCount         int                    `json:"retryCount"`
	MaxRetries         int                    `json:"maxRetries"`
	Priority           int                    `json:"priority"`
	ConflictResolution ConflictResolution     `json:"conflictResolution"`
	Status             Status                 `json:"status"`
	ErrorMessage       string                 `json:"errorMessage,omitempty"`
	LastAttemptAt      *time.Time             `json:"lastAttemptAt,omitempty"`
	NextRetryAt        *time.Time             `json:"nextRetryAt,omitempty"`
	LocalVersion       int64                  `json:"localVersion"`
	ServerVersion      int64                  `json:"serverVersion,omitempty"`

	// AwaitingManual marks an item parked by the manual conflict strategy.
	// Such items are never picked up by a drain until explicitly retried.
	AwaitingManual bool `json:"awaitingManual,omitempty"`
}

// Exhausted reports whether the retry budget is spent.
func (item *QueueItem) Exhausted() bool {
	return item.RetryCount >= item.MaxRetries
}

// Eligible reports whether a drain at now may attempt the item.
func (item *QueueItem) Eligible(now time.Time) bool {
	if item.AwaitingManual || item.Exhausted() {
		return false
	}
	switch item.Status {
	case StatusPending:
		return item.NextRetryAt == nil || !item.NextRetryAt.After(now)
	case StatusFailed:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of the item; the payload is copied recursively.
func (item QueueItem) Clone() QueueItem {
	out := item
	out.Payload = ClonePayload(item.Payload)
	if item.LastAttemptAt != nil {
		t := *item.LastAttemptAt
		out.LastAttemptAt = &t
	}
	if item.NextRetryAt != nil {
		t := *item.NextRetryAt
		out.NextRetryAt = &t
	}
	return out
}

// ClonePayload deep-copies a payload mapping.
func ClonePayload(p map[string]interface{}) map[string]interface{} {
	if p == nil {
		return nil
	}
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies a decoded JSON value. Scalars, json.Number
// included, are immutable and returned as is.
func CloneValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		return ClonePayload(tv)
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i := range tv {
			out[i] = CloneValue(tv[i])
		}
		return out
	default:
		return v
	}
}

// NormalizePayload checks that p is a finite, serializable mapping and
// returns it in decoded-JSON form, numbers as json.Number. NaN and infinite
// numbers, channels and funcs are rejected by the encoder.
func NormalizePayload(p map[string]interface{}) (map[string]interface{}, error) {
	if p == nil {
		return map[string]interface{}{}, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidPayload, "payload is not serializable", err)
	}
	var out map[string]interface{}
	if err := DecodeJSON(data, &out); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidPayload, "payload is not a JSON object", err)
	}
	if out == nil {
		out = map[string]interface{}{}
	}
	return out, nil
}

// DecodeJSON unmarshals one JSON value from data, keeping numbers as
// json.Number so integers beyond 2^53 survive. Trailing data is an error.
func DecodeJSON(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
