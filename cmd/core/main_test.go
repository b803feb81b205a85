// Package main tests for the operator CLI.
// These tests run commands against a sqlite queue in a temp directory.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/farhanfatur/Attendance-App/internal/app"
	"github.com/farhanfatur/Attendance-App/internal/sync/executor"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
	"github.com/farhanfatur/Attendance-App/internal/sync/reachability"
)

// setupEnv points the CLI at a fresh data directory.
func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("FIELDSYNC_DATA_DIR", dir)
	t.Setenv("FIELDSYNC_STORE", "sqlite")
	t.Setenv("FIELDSYNC_LOG_LEVEL", "ERROR")
	t.Setenv("FIELDSYNC_RETRY_DELAY_MIN", "0s")
}

func runCLI(t *testing.T, opts []app.Option, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut, opts...)
	return code, out.String(), errOut.String()
}

func offline() []app.Option {
	return []app.Option{app.WithMonitor(reachability.NewManual(false))}
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, nil, "version")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.HasPrefix(out, "fieldsync v"+Version) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestUsage(t *testing.T) {
	code, _, errOut := runCLI(t, nil)
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if !strings.Contains(errOut, "usage:") {
		t.Errorf("usage not printed: %q", errOut)
	}
}

func TestUnknownCommand(t *testing.T) {
	setupEnv(t)
	code, _, errOut := runCLI(t, offline(), "teleport")
	if code != 1 || !strings.Contains(errOut, "unknown command") {
		t.Errorf("code = %d, stderr = %q", code, errOut)
	}
}

func TestEnqueueListStats(t *testing.T) {
	setupEnv(t)

	code, out, errOut := runCLI(t, offline(), "-json", "enqueue", "-priority", "5", "task-update", `{"taskId":"t1"}`)
	if code != 0 {
		t.Fatalf("enqueue failed: %s", errOut)
	}
	var created map[string]string
	if err := json.Unmarshal([]byte(out), &created); err != nil || created["id"] == "" {
		t.Fatalf("unexpected enqueue output %q", out)
	}

	// A second process sees the persisted item.
	code, out, _ = runCLI(t, offline(), "-json", "list")
	if code != 0 {
		t.Fatal("list failed")
	}
	var items []queue.QueueItem
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("list output is not JSON: %v", err)
	}
	if len(items) != 1 || items[0].ID != created["id"] || items[0].Priority != 5 {
		t.Errorf("items = %+v", items)
	}
	if items[0].Payload["taskId"] != "t1" {
		t.Errorf("payload = %v", items[0].Payload)
	}

	code, out, _ = runCLI(t, offline(), "stats")
	if code != 0 || !strings.Contains(out, "total=1 pending=1") {
		t.Errorf("stats output %q", out)
	}
}

func TestEnqueueRejectsBadInput(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing action", []string{"enqueue"}},
		{"unknown action", []string{"enqueue", "teleport"}},
		{"bad payload", []string{"enqueue", "task-update", "not-json"}},
		{"bad strategy", []string{"enqueue", "-strategy", "coin", "task-update"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, _ := runCLI(t, offline(), tt.args...); code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
		})
	}
}

func TestDrainRetryRemove(t *testing.T) {
	setupEnv(t)

	failing := executor.Func(func(context.Context, queue.QueueItem) executor.Outcome {
		return executor.Retryable("server down")
	})
	online := []app.Option{app.WithExecutor(failing), app.WithMonitor(reachability.NewManual(true))}

	_, out, _ := runCLI(t, offline(), "enqueue", "-max-retries", "1", "report-submit")
	id := strings.TrimSpace(out)

	code, out, _ := runCLI(t, online, "drain")
	if code != 0 || !strings.Contains(out, "failed=1") {
		t.Fatalf("drain output %q", out)
	}

	_, out, _ = runCLI(t, offline(), "list")
	if !strings.Contains(out, "failed") || !strings.Contains(out, "server down") {
		t.Errorf("list after drain %q", out)
	}

	code, out, _ = runCLI(t, offline(), "retry-all")
	if code != 0 || !strings.Contains(out, "Retrying 1") {
		t.Errorf("retry-all output %q", out)
	}

	code, _, _ = runCLI(t, offline(), "retry", id)
	if code != 0 {
		t.Error("retry failed")
	}

	code, _, _ = runCLI(t, offline(), "remove", id)
	if code != 0 {
		t.Error("remove failed")
	}
	code, _, errOut := runCLI(t, offline(), "remove", id)
	if code != 1 || !strings.Contains(errOut, "not found") {
		t.Errorf("second remove: code=%d stderr=%q", code, errOut)
	}
}

func TestDrainOffline(t *testing.T) {
	setupEnv(t)
	code, out, _ := runCLI(t, offline(), "drain")
	if code != 0 || !strings.Contains(out, "drain skipped: offline") {
		t.Errorf("drain output %q", out)
	}
}

func TestClearOldAndConflicts(t *testing.T) {
	setupEnv(t)

	code, out, _ := runCLI(t, offline(), "clear-old", "-max-age", "1h")
	if code != 0 || !strings.Contains(out, "Removed 0") {
		t.Errorf("clear-old output %q", out)
	}

	conflicting := executor.Func(func(context.Context, queue.QueueItem) executor.Outcome {
		return executor.Conflict(map[string]interface{}{"status": "open"}, 2)
	})
	runCLI(t, offline(), "enqueue", "-strategy", "server-wins", "task-update")
	runCLI(t, []app.Option{app.WithExecutor(conflicting), app.WithMonitor(reachability.NewManual(true))}, "drain")

	code, out, _ = runCLI(t, offline(), "conflicts")
	if code != 0 || !strings.Contains(out, "server-wins") {
		t.Errorf("conflicts output %q", out)
	}
}
