// Package queue provides unit tests for the queue model and ordering.
package queue

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
)

var baseTime = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newItem(id string, priority int, offset time.Duration) QueueItem {
	return QueueItem{
		ID:                 id,
		ActionType:         ActionTaskUpdate,
		Payload:            map[string]interface{}{"task_id": id},
		CreatedAt:          baseTime.Add(offset),
		MaxRetries:         3,
		Priority:           priority,
		ConflictResolution: ResolutionClientWins,
		Status:             StatusPending,
		LocalVersion:       1,
	}
}

func ids(items []QueueItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =====================================================
// Enumeration Tests
// =====================================================

// TestParseActionType verifies the closed action enumeration.
func TestParseActionType(t *testing.T) {
	for _, a := range ActionTypes() {
		if _, err := ParseActionType(string(a)); err != nil {
			t.Errorf("ParseActionType(%q) error = %v", a, err)
		}
	}

	_, err := ParseActionType("expense-claim")
	if !apperrors.Is(err, apperrors.ErrInvalidActionType) {
		t.Errorf("ParseActionType(unknown) error = %v, want INVALID_ACTION_TYPE", err)
	}
}

// TestParseConflictResolution verifies strategy parsing.
func TestParseConflictResolution(t *testing.T) {
	for _, s := range []string{"client-wins", "server-wins", "merge", "manual"} {
		if _, err := ParseConflictResolution(s); err != nil {
			t.Errorf("ParseConflictResolution(%q) error = %v", s, err)
		}
	}
	if _, err := ParseConflictResolution("last-write-wins"); err == nil {
		t.Error("ParseConflictResolution(unknown) should fail")
	}
}

// =====================================================
// Ordering Tests
// =====================================================

// TestQueue_orderPriorityThenCreatedAt verifies (priority desc, createdAt asc).
func TestQueue_orderPriorityThenCreatedAt(t *testing.T) {
	q := New([]QueueItem{
		newItem("photo", 10, 0),
		newItem("late-checkin", 100, 2*time.Second),
		newItem("task", 70, time.Second),
		newItem("early-checkin", 100, time.Second),
	})

	got := ids(q.All())
	want := []string{"early-checkin", "late-checkin", "task", "photo"}
	if !equalIDs(got, want) {
		t.Errorf("All() order = %v, want %v", got, want)
	}
}

// TestQueue_insertKeepsOrder verifies Insert places items at their sorted position.
func TestQueue_insertKeepsOrder(t *testing.T) {
	q := New(nil)
	q.Insert(newItem("b", 50, 2*time.Second))
	q.Insert(newItem("a", 50, time.Second))
	q.Insert(newItem("c", 90, 3*time.Second))
	q.Insert(newItem("d", 10, 0))
	q.Insert(newItem("e", 50, 2*time.Second))

	got := ids(q.All())
	want := []string{"c", "a", "b", "e", "d"}
	if !equalIDs(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

// TestQueue_resortAfterEdit verifies Resort restores the invariant.
func TestQueue_resortAfterEdit(t *testing.T) {
	q := New([]QueueItem{newItem("a", 10, 0), newItem("b", 20, 0)})

	item, _ := q.Get("a")
	item.Priority = 30
	q.Resort()

	if got := ids(q.All()); !equalIDs(got, []string{"a", "b"}) {
		t.Errorf("order after resort = %v", got)
	}
}

// =====================================================
// View Tests
// =====================================================

// TestQueue_viewsAndStats verifies Pending and Stats.
func TestQueue_viewsAndStats(t *testing.T) {
	syncing := newItem("s", 50, 0)
	syncing.Status = StatusSyncing
	failed := newItem("f", 50, time.Second)
	failed.Status = StatusFailed

	q := New([]QueueItem{newItem("p", 50, 2*time.Second), syncing, failed})

	if got := ids(q.Pending()); !equalIDs(got, []string{"f", "p"}) {
		t.Errorf("Pending() = %v", got)
	}

	stats := q.Stats()
	want := Stats{Total: 3, Pending: 1, Syncing: 1, Failed: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

// TestQueue_snapshotIsolation verifies snapshots do not alias live items.
func TestQueue_snapshotIsolation(t *testing.T) {
	item := newItem("a", 10, 0)
	item.Payload["nested"] = map[string]interface{}{"k": "v"}
	q := New([]QueueItem{item})

	snap := q.All()
	snap[0].Payload["task_id"] = "mutated"
	snap[0].Payload["nested"].(map[string]interface{})["k"] = "mutated"

	live, _ := q.Get("a")
	if live.Payload["task_id"] != "a" {
		t.Error("snapshot mutation leaked into queue payload")
	}
	if live.Payload["nested"].(map[string]interface{})["k"] != "v" {
		t.Error("snapshot mutation leaked into nested payload")
	}
}

// TestQueue_remove verifies Remove and RemoveWhere.
func TestQueue_remove(t *testing.T) {
	q := New([]QueueItem{newItem("a", 10, 0), newItem("b", 20, 0), newItem("c", 30, 0)})

	if !q.Remove("b") {
		t.Error("Remove(b) = false")
	}
	if q.Remove("b") {
		t.Error("second Remove(b) = true")
	}

	removed := q.RemoveWhere(func(item *QueueItem) bool { return item.Priority > 20 })
	if !equalIDs(removed, []string{"c"}) {
		t.Errorf("RemoveWhere() = %v", removed)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
	if _, ok := q.Get("c"); ok {
		t.Error("removed item still indexed")
	}
}

// =====================================================
// Eligibility Tests
// =====================================================

// TestQueue_Due verifies selection honors eligibility, order and limit.
func TestQueue_Due(t *testing.T) {
	now := baseTime.Add(time.Minute)
	later := now.Add(time.Minute)

	backingOff := newItem("backoff", 90, 0)
	backingOff.NextRetryAt = &later

	exhausted := newItem("exhausted", 80, 0)
	exhausted.Status = StatusFailed
	exhausted.RetryCount = 3

	manual := newItem("manual", 70, 0)
	manual.Status = StatusFailed
	manual.AwaitingManual = true

	syncing := newItem("syncing", 60, 0)
	syncing.Status = StatusSyncing

	retryable := newItem("retryable", 50, 0)
	retryable.Status = StatusFailed
	retryable.RetryCount = 1

	q := New([]QueueItem{
		backingOff, exhausted, manual, syncing, retryable,
		newItem("p1", 40, 0), newItem("p2", 30, 0),
	})

	var got []string
	for _, item := range q.Due(now, 0) {
		got = append(got, item.ID)
	}
	if !equalIDs(got, []string{"retryable", "p1", "p2"}) {
		t.Errorf("Due(unlimited) = %v", got)
	}

	limited := q.Due(now, 2)
	if len(limited) != 2 || limited[0].ID != "retryable" || limited[1].ID != "p1" {
		t.Errorf("Due(2) returned %d items", len(limited))
	}

	if len(q.Due(later, 0)) != 4 {
		t.Error("backoff item should be due once its retry time arrives")
	}
}

// =====================================================
// Payload Tests
// =====================================================

// TestNormalizePayload verifies non-finite values are rejected and numbers
// come back as json.Number.
func TestNormalizePayload(t *testing.T) {
	got, err := NormalizePayload(map[string]interface{}{
		"lat":    1.5,
		"taskId": int64(9007199254740993),
		"tags":   []interface{}{"a"},
	})
	if err != nil {
		t.Fatalf("NormalizePayload(valid) error = %v", err)
	}
	if got["lat"] != json.Number("1.5") {
		t.Errorf("lat = %#v, want json.Number(1.5)", got["lat"])
	}
	if got["taskId"] != json.Number("9007199254740993") {
		t.Errorf("taskId = %#v, want exact integer", got["taskId"])
	}

	empty, err := NormalizePayload(nil)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("NormalizePayload(nil) = %v, %v, want empty map", empty, err)
	}

	_, err = NormalizePayload(map[string]interface{}{"lat": math.NaN()})
	if !apperrors.Is(err, apperrors.ErrInvalidPayload) {
		t.Errorf("NormalizePayload(NaN) error = %v, want INVALID_PAYLOAD", err)
	}
	if _, err := NormalizePayload(map[string]interface{}{"ch": make(chan int)}); err == nil {
		t.Error("NormalizePayload(chan) should fail")
	}
}

// TestDecodeJSON verifies large integers survive and trailing data is rejected.
func TestDecodeJSON(t *testing.T) {
	var v map[string]interface{}
	if err := DecodeJSON([]byte(`{"id":9007199254740993}`), &v); err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if v["id"] != json.Number("9007199254740993") {
		t.Errorf("id = %#v", v["id"])
	}
	if err := DecodeJSON([]byte(`{} {}`), &v); err == nil {
		t.Error("DecodeJSON() with trailing value should fail")
	}
	if err := DecodeJSON([]byte(`{"a":`), &v); err == nil {
		t.Error("DecodeJSON() with truncated input should fail")
	}
}

// =====================================================
// Row Conversion Tests
// =====================================================

// TestModelRoundTrip verifies ToModel/FromModel is lossless.
func TestModelRoundTrip(t *testing.T) {
	attempt := baseTime.Add(123456789 * time.Nanosecond)
	next := attempt.Add(2 * time.Second)

	item := newItem("01890a5d-ac96-774b-bcce-b302099a8057", 100, 42*time.Nanosecond)
	item.RetryCount = 1
	item.ErrorMessage = "503 Service Unavailable"
	item.LastAttemptAt = &attempt
	item.NextRetryAt = &next
	item.ServerVersion = 7
	item.AwaitingManual = true

	row, err := item.ToModel(3)
	if err != nil {
		t.Fatalf("ToModel() error = %v", err)
	}
	if row.Position != 3 {
		t.Errorf("Position = %d, want 3", row.Position)
	}

	back, err := FromModel(row)
	if err != nil {
		t.Fatalf("FromModel() error = %v", err)
	}

	if back.ID != item.ID || !back.CreatedAt.Equal(item.CreatedAt) || back.ServerVersion != 7 ||
		!back.AwaitingManual || back.ErrorMessage != item.ErrorMessage {
		t.Errorf("FromModel() = %+v, want %+v", back, item)
	}
	if back.LastAttemptAt == nil || !back.LastAttemptAt.Equal(attempt) {
		t.Errorf("LastAttemptAt = %v, want %v", back.LastAttemptAt, attempt)
	}
	if back.NextRetryAt == nil || !back.NextRetryAt.Equal(next) {
		t.Errorf("NextRetryAt = %v, want %v", back.NextRetryAt, next)
	}
}

// =====================================================
// Backoff and Priority Tests
// =====================================================

// TestBackoff_Delay verifies the exponential curve and its clamp.
func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Min: time.Second, Max: 10 * time.Second, Multiplier: 2}

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{60, 10 * time.Second},
	}

	for _, tt := range tests {
		if got := b.Delay(tt.retry); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}

	if (Backoff{}).Delay(3) != 0 {
		t.Error("zero Backoff should disable delays")
	}
}

// TestParsePriorities verifies YAML overrides.
func TestParsePriorities(t *testing.T) {
	table, err := ParsePriorities([]byte("attendance-check-in: 120\nphoto-upload: 5\n"))
	if err != nil {
		t.Fatalf("ParsePriorities() error = %v", err)
	}

	merged := DefaultPriorities().With(table)
	if merged.Lookup(ActionCheckIn) != 120 || merged.Lookup(ActionPhotoUpload) != 5 {
		t.Errorf("merged table = %v", merged)
	}
	if merged.Lookup(ActionTaskUpdate) != 70 {
		t.Errorf("untouched priority = %d, want 70", merged.Lookup(ActionTaskUpdate))
	}

	if _, err := ParsePriorities([]byte("teleport: 1\n")); !apperrors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("unknown action error = %v", err)
	}
}
