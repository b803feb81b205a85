// Package main tests for the mobile bridge.
// These tests drive the JSON-in/JSON-out functions without cgo.
package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/farhanfatur/Attendance-App/internal/app"
	"github.com/farhanfatur/Attendance-App/internal/sync/executor"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error"`
}

func parse(t *testing.T, raw string) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("Invalid response %q: %v", raw, err)
	}
	return env
}

func mustOK(t *testing.T, raw string, v interface{}) {
	t.Helper()
	env := parse(t, raw)
	if !env.OK {
		t.Fatalf("Expected ok response, got %+v", env.Error)
	}
	if v != nil {
		if err := json.Unmarshal(env.Data, v); err != nil {
			t.Fatalf("Invalid data %s: %v", env.Data, err)
		}
	}
}

// setupBridge starts a bridge over an in-memory queue.
func setupBridge(t *testing.T, exec executor.Executor) *bridge {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("FIELDSYNC_STORE", "memory")
	t.Setenv("FIELDSYNC_LOG_LEVEL", "ERROR")
	t.Setenv("FIELDSYNC_RETRY_DELAY_MIN", "0s")

	if exec == nil {
		exec = executor.Func(func(context.Context, queue.QueueItem) executor.Outcome { return executor.Success() })
	}
	b := &bridge{}
	mustOK(t, b.init(`{"online":false}`, app.WithExecutor(exec)), nil)
	t.Cleanup(func() { b.shutdown() })
	return b
}

func TestBridge_NotInitialized(t *testing.T) {
	b := &bridge{}
	env := parse(t, b.getQueue())
	if env.OK || env.Error.Code != "ENGINE_CLOSED" {
		t.Errorf("Expected ENGINE_CLOSED, got %+v", env)
	}
	if b.lastError() == "" {
		t.Error("Last error should be recorded")
	}
}

func TestBridge_InitInvalidRequest(t *testing.T) {
	b := &bridge{}
	env := parse(t, b.init("{"))
	if env.OK || env.Error.Code != "INVALID_INPUT" {
		t.Errorf("Expected INVALID_INPUT, got %+v", env)
	}
}

func TestBridge_EnqueueAndRead(t *testing.T) {
	b := setupBridge(t, nil)

	var created map[string]string
	mustOK(t, b.enqueue(`{"actionType":"location-update","payload":{"lat":1.5,"lng":2.5}}`), &created)

	var items []queue.QueueItem
	mustOK(t, b.getQueue(), &items)
	if len(items) != 1 || items[0].ID != created["id"] || items[0].Priority != 50 {
		t.Fatalf("Unexpected queue %+v", items)
	}

	var item queue.QueueItem
	mustOK(t, b.getItem(created["id"]), &item)
	if item.Payload["lat"] != 1.5 {
		t.Errorf("Unexpected payload %v", item.Payload)
	}

	var stats queue.Stats
	mustOK(t, b.getStats(), &stats)
	if stats.Pending != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	env := parse(t, b.getItem("missing"))
	if env.OK || env.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected NOT_FOUND, got %+v", env)
	}
}

func TestBridge_EnqueueErrors(t *testing.T) {
	b := setupBridge(t, nil)

	tests := []struct {
		name string
		req  string
		code string
	}{
		{"not json", "nope", "INVALID_INPUT"},
		{"unknown action", `{"actionType":"teleport"}`, "INVALID_ACTION_TYPE"},
		{"bad strategy", `{"actionType":"task-update","conflictResolution":"coin"}`, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := parse(t, b.enqueue(tt.req))
			if env.OK || env.Error.Code != tt.code {
				t.Errorf("Expected %s, got %+v", tt.code, env)
			}
		})
	}
}

func TestBridge_ConnectivityAndDrain(t *testing.T) {
	calls := make(chan string, 10)
	exec := executor.Func(func(_ context.Context, item queue.QueueItem) executor.Outcome {
		calls <- item.ID
		return executor.Retryable("offline upstream")
	})
	b := setupBridge(t, exec)

	var created map[string]string
	mustOK(t, b.enqueue(`{"actionType":"report-submit","maxRetries":1}`), &created)

	var res struct {
		Skipped string `json:"skipped"`
		Failed  int    `json:"failed"`
	}
	mustOK(t, b.processQueue(), &res)
	if res.Skipped != "offline" {
		t.Errorf("Expected offline skip, got %+v", res)
	}

	mustOK(t, b.setOnline(true), nil)
	<-calls

	var stats queue.Stats
	for i := 0; i < 200; i++ {
		mustOK(t, b.getStats(), &stats)
		if stats.Failed == 1 {
			break
		}
		b.processQueue()
	}
	if stats.Failed != 1 {
		t.Fatalf("Item should fail, stats %+v", stats)
	}

	mustOK(t, b.setOnline(false), nil)
	var retried map[string]int
	mustOK(t, b.retryAllFailed(), &retried)
	if retried["retried"] != 1 {
		t.Errorf("Unexpected retry result %v", retried)
	}
	mustOK(t, b.retryItem(created["id"]), nil)
	mustOK(t, b.removeItem(created["id"]), nil)

	env := parse(t, b.removeItem(created["id"]))
	if env.OK {
		t.Error("Second remove should fail")
	}
}

func TestBridge_PollEvents(t *testing.T) {
	b := setupBridge(t, nil)
	mustOK(t, b.enqueue(`{"actionType":"attendance-check-out"}`), nil)
	mustOK(t, b.enqueue(`{"actionType":"attendance-check-out"}`), nil)

	var events []struct {
		Kind string `json:"kind"`
		Seq  uint64 `json:"seq"`
	}
	mustOK(t, b.pollEvents(), &events)
	if len(events) != 2 || events[0].Kind != "queue.changed" || events[0].Seq >= events[1].Seq {
		t.Errorf("Unexpected events %+v", events)
	}

	mustOK(t, b.pollEvents(), &events)
	if len(events) != 0 {
		t.Error("Poll should drain the buffer")
	}
}

func TestBridge_ClearOldAndStatus(t *testing.T) {
	b := setupBridge(t, nil)

	env := parse(t, b.clearOldItems(-1))
	if env.OK {
		t.Error("Negative max age should be rejected")
	}

	var removed map[string]int
	mustOK(t, b.clearOldItems(3600), &removed)
	if removed["removed"] != 0 {
		t.Errorf("Unexpected result %v", removed)
	}

	var metrics struct {
		Enqueued int `json:"enqueued"`
	}
	mustOK(t, b.metrics(), &metrics)
	if metrics.Enqueued != 0 {
		t.Errorf("Unexpected metrics %+v", metrics)
	}

	var status struct {
		Online bool `json:"online"`
	}
	mustOK(t, b.status(), &status)
	if status.Online {
		t.Error("Bridge was initialized offline")
	}
}

func TestBridge_InitTwiceAndShutdown(t *testing.T) {
	b := setupBridge(t, nil)
	mustOK(t, b.init(""), nil)
	mustOK(t, b.shutdown(), nil)
	mustOK(t, b.shutdown(), nil)

	env := parse(t, b.getStats())
	if env.OK {
		t.Error("Calls after shutdown should fail")
	}
}
