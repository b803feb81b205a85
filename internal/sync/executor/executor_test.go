package executor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

func testItem(action queue.ActionType) queue.QueueItem {
	return queue.QueueItem{
		ID:           "0190d6c0-0000-7000-8000-00000000000a",
		ActionType:   action,
		Payload:      map[string]interface{}{"task": "t1", "status": "done"},
		CreatedAt:    time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		LocalVersion: 2,
		Status:       queue.StatusSyncing,
	}
}

type captured struct {
	method string
	path   string
	header http.Header
	body   RequestBody
}

func newServer(t *testing.T, status int, respBody string) (*httptest.Server, *[]captured) {
	t.Helper()
	var mu sync.Mutex
	var calls []captured

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body RequestBody
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)

		mu.Lock()
		calls = append(calls, captured{r.Method, r.URL.Path, r.Header.Clone(), body})
		mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestHTTPExecutor_Success(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"ok":true}`)
	exec := NewHTTPExecutor(HTTPConfig{BaseURL: srv.URL + "/", Token: "secret"})

	item := testItem(queue.ActionTaskUpdate)
	out := exec.Execute(context.Background(), item)

	assert.Equal(t, OutcomeSuccess, out.Kind)
	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPut, call.method)
	assert.Equal(t, "/api/tasks", call.path)
	assert.Equal(t, item.ID, call.header.Get("Idempotency-Key"))
	assert.Equal(t, "Bearer secret", call.header.Get("Authorization"))
	assert.Equal(t, item.ID, call.body.ClientItemID)
	assert.Equal(t, int64(2), call.body.LocalVersion)
	assert.True(t, item.CreatedAt.Equal(call.body.CreatedAt))
	assert.Equal(t, "done", call.body.Payload["status"])
}

func TestHTTPExecutor_Classification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    OutcomeKind
		wantVersion int64
		wantServer  bool
	}{
		{"created", http.StatusCreated, ``, OutcomeSuccess, 0, false},
		{"conflict 409", http.StatusConflict, `{"serverPayload":{"status":"open"},"serverVersion":7}`, OutcomeConflict, 7, true},
		{"conflict 412 no body", http.StatusPreconditionFailed, ``, OutcomeConflict, 0, false},
		{"conflict flagged in 200", http.StatusOK, `{"conflict":true,"serverPayload":{"a":1},"serverVersion":3}`, OutcomeConflict, 3, true},
		{"server error", http.StatusInternalServerError, `boom`, OutcomeRetryable, 0, false},
		{"unauthorized", http.StatusUnauthorized, ``, OutcomeRetryable, 0, false},
		{"bad request", http.StatusBadRequest, `{"error":"x"}`, OutcomeRetryable, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.body)
			out := NewHTTPExecutor(HTTPConfig{BaseURL: srv.URL}).Execute(context.Background(), testItem(queue.ActionCheckIn))

			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantVersion, out.ServerVersion)
			assert.Equal(t, tt.wantServer, out.ServerPayload != nil)
			if tt.wantKind == OutcomeRetryable {
				assert.NotEmpty(t, out.Message)
			}
		})
	}
}

func TestHTTPExecutor_TransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	out := NewHTTPExecutor(HTTPConfig{BaseURL: url}).Execute(context.Background(), testItem(queue.ActionCheckOut))
	assert.Equal(t, OutcomeRetryable, out.Kind)
	assert.Contains(t, out.Message, "request failed")
}

func TestHTTPExecutor_TimeoutIsRetryable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	exec := NewHTTPExecutor(HTTPConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	out := exec.Execute(context.Background(), testItem(queue.ActionReportSubmit))
	assert.Equal(t, OutcomeRetryable, out.Kind)
}

func TestHTTPExecutor_UnknownRoute(t *testing.T) {
	exec := NewHTTPExecutor(HTTPConfig{BaseURL: "http://unused", Routes: Routes{}})
	out := exec.Execute(context.Background(), testItem(queue.ActionTaskUpdate))
	assert.Equal(t, OutcomeRetryable, out.Kind)
}

func TestHTTPExecutor_DoesNotMutateItem(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, ``)
	item := testItem(queue.ActionTaskUpdate)
	before := item.Clone()

	NewHTTPExecutor(HTTPConfig{BaseURL: srv.URL}).Execute(context.Background(), item)
	assert.Equal(t, before, item)
}

func TestDefaultRoutes_CoverAllActionTypes(t *testing.T) {
	routes := DefaultRoutes()
	for _, a := range queue.ActionTypes() {
		_, ok := routes[a]
		assert.True(t, ok, "missing route for %s", a)
	}
}

func TestFunc(t *testing.T) {
	var got string
	var exec Executor = Func(func(_ context.Context, item queue.QueueItem) Outcome {
		got = item.ID
		return Retryable("later")
	})
	out := exec.Execute(context.Background(), testItem(queue.ActionCheckIn))
	assert.Equal(t, OutcomeRetryable, out.Kind)
	assert.Equal(t, "later", out.Message)
	assert.Equal(t, testItem(queue.ActionCheckIn).ID, got)
	assert.Equal(t, "retryable", out.Kind.String())
}

// =====================================================
// Media staging
// =====================================================

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	headErr error
}

func (m *memObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	m.puts++
	return nil
}

func (m *memObjects) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.headErr != nil {
		return false, m.headErr
	}
	_, ok := m.objects[key]
	return ok, nil
}

func photoItem(t *testing.T) queue.QueueItem {
	t.Helper()
	p := filepath.Join(t.TempDir(), "site.JPG")
	require.NoError(t, os.WriteFile(p, []byte("hello"), 0644))

	item := testItem(queue.ActionPhotoUpload)
	item.Payload = map[string]interface{}{KeyLocalPath: p, "caption": "gate"}
	return item
}

func TestMediaStager_Stage(t *testing.T) {
	objects := &memObjects{}
	stager := NewMediaStager(objects, "")
	item := photoItem(t)

	payload, err := stager.Stage(context.Background(), item)
	require.NoError(t, err)

	key, _ := payload[KeyObjectKey].(string)
	assert.Equal(t, "photos/2c/f2/2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824.jpg", key)
	assert.NotContains(t, payload, KeyLocalPath)
	assert.Equal(t, "gate", payload["caption"])
	assert.Contains(t, item.Payload, KeyLocalPath, "item payload must be untouched")
	assert.Equal(t, []byte("hello"), objects.objects[key])

	// Re-staging the same content skips the upload.
	_, err = stager.Stage(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, 1, objects.puts)
}

func TestMediaStager_Errors(t *testing.T) {
	item := testItem(queue.ActionPhotoUpload)
	item.Payload = map[string]interface{}{KeyLocalPath: "/does/not/exist.jpg"}
	_, err := NewMediaStager(&memObjects{}, "").Stage(context.Background(), item)
	assert.Error(t, err)

	_, err = NewMediaStager(&memObjects{headErr: errors.New("denied")}, "").Stage(context.Background(), photoItem(t))
	assert.Error(t, err)
}

func TestHTTPExecutor_StagesPhotos(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, ``)
	objects := &memObjects{}
	exec := NewHTTPExecutor(HTTPConfig{BaseURL: srv.URL}, WithStager(NewMediaStager(objects, "uploads")))

	out := exec.Execute(context.Background(), photoItem(t))
	require.Equal(t, OutcomeSuccess, out.Kind)
	require.Len(t, *calls, 1)
	assert.Contains(t, (*calls)[0].body.Payload[KeyObjectKey], "uploads/")
	assert.Equal(t, "/api/photos", (*calls)[0].path)

	// A staging failure is retryable and makes no request.
	bad := testItem(queue.ActionPhotoUpload)
	bad.Payload = map[string]interface{}{KeyLocalPath: "/missing.jpg"}
	out = exec.Execute(context.Background(), bad)
	assert.Equal(t, OutcomeRetryable, out.Kind)
	assert.Len(t, *calls, 1)
}
