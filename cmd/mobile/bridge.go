// Package main provides the FFI bridge for mobile platforms.
//
// Every call takes and returns JSON. Responses use one envelope:
//
//	{"ok":true,"data":...}
//	{"ok":false,"error":{"code":"NOT_FOUND","message":"..."}}
//
// The app shell owns connectivity: it reports changes with SetOnline. Queue
// events are buffered and collected with PollEvents.
package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/farhanfatur/Attendance-App/internal/app"
	"github.com/farhanfatur/Attendance-App/internal/config"
	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
	fieldsync "github.com/farhanfatur/Attendance-App/internal/sync"
	"github.com/farhanfatur/Attendance-App/internal/sync/notify"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
	"github.com/farhanfatur/Attendance-App/internal/sync/reachability"
)

// maxBufferedEvents bounds the event buffer between polls. The oldest
// events are dropped first; the newest queue.changed snapshot is always kept.
const maxBufferedEvents = 256

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error *errorBody  `json:"error,omitempty"`
}

// bridge holds the single engine behind the exported functions.
type bridge struct {
	mu     sync.Mutex
	app    *app.App
	reach  *reachability.Manual
	cancel context.CancelFunc
	unsub  func()

	eventsMu sync.Mutex
	events   []notify.Event

	lastErrMu sync.RWMutex
	lastErr   string
}

var core = &bridge{}

// InitRequest configures the engine. Empty fields fall back to the
// FIELDSYNC_ environment.
type InitRequest struct {
	DataDir    string `json:"dataDir"`
	APIBaseURL string `json:"apiBaseUrl"`
	APIToken   string `json:"apiToken"`
	Online     bool   `json:"online"`
}

func (b *bridge) init(reqJSON string, opts ...app.Option) string {
	var req InitRequest
	if reqJSON != "" {
		if err := json.Unmarshal([]byte(reqJSON), &req); err != nil {
			return b.fail(apperrors.Wrap(apperrors.ErrInvalid, "invalid init request", err))
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.app != nil {
		return b.ok(map[string]bool{"initialized": true})
	}

	cfg, err := config.Load()
	if err != nil {
		return b.fail(err)
	}
	if req.DataDir != "" {
		cfg.DataDir = req.DataDir
	}
	if req.APIBaseURL != "" {
		cfg.APIBaseURL = req.APIBaseURL
	}
	if req.APIToken != "" {
		cfg.APIToken = req.APIToken
	}

	reach := reachability.NewManual(req.Online)
	ctx, cancel := context.WithCancel(context.Background())
	a, err := app.New(ctx, cfg, append([]app.Option{app.WithMonitor(reach)}, opts...)...)
	if err != nil {
		cancel()
		return b.fail(err)
	}

	b.app, b.reach, b.cancel = a, reach, cancel
	b.unsub = a.Engine.Subscribe(b.buffer)
	a.Engine.StartBackgroundSync(ctx)
	return b.ok(map[string]bool{"initialized": true})
}

func (b *bridge) shutdown() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.app == nil {
		return b.ok(nil)
	}

	b.unsub()
	b.cancel()
	err := b.app.Close()
	b.app, b.reach, b.cancel, b.unsub = nil, nil, nil, nil
	if err != nil {
		return b.fail(err)
	}
	return b.ok(nil)
}

func (b *bridge) engine() (*fieldsync.Engine, *reachability.Manual, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.app == nil {
		return nil, nil, apperrors.New(apperrors.ErrEngineClosed, "engine not initialized")
	}
	return b.app.Engine, b.reach, nil
}

// EnqueueRequest is the body of Enqueue.
type EnqueueRequest struct {
	ActionType         string                 `json:"actionType"`
	Payload            map[string]interface{} `json:"payload"`
	Priority           *int                   `json:"priority,omitempty"`
	ConflictResolution string                 `json:"conflictResolution,omitempty"`
	MaxRetries         int                    `json:"maxRetries,omitempty"`
}

func (b *bridge) enqueue(reqJSON string) string {
	e, _, err := b.engine()
	if err != nil {
		return b.fail(err)
	}
	var req EnqueueRequest
	if err := queue.DecodeJSON([]byte(reqJSON), &req); err != nil {
		return b.fail(apperrors.Wrap(apperrors.ErrInvalid, "invalid enqueue request", err))
	}

	id, err := e.Enqueue(context.Background(), queue.ActionType(req.ActionType), req.Payload, fieldsync.EnqueueOptions{
		Priority:           req.Priority,
		ConflictResolution: queue.ConflictResolution(req.ConflictResolution),
		MaxRetries:         req.MaxRetries,
	})
	if err != nil {
		return b.fail(err)
	}
	return b.ok(map[string]string{"id": id})
}

func (b *bridge) getQueue() string {
	e, _, err := b.engine()
	if err != nil {
		return b.fail(err)
	}
	return b.ok(e.GetQueue())
}

func (b *bridge) getItem(id string) string {
	e, _, err := b.engine()
	if err != nil {
		return b.fail(err)
	}
	item, err := e.GetItem(id)
	if err != nil {
		return b.fail(err)
	}
	return b.ok(item)
}

func (b *bridge) getStats() string {
	e, _, err := b.engine()
	if err != nil {
		return b.fail(err)
	}
	return b.ok(e.GetStats())
}

func (b *bridge) status() string {
	e, _, err := b.engine()
	if err != nil {
		return b.fail(err)
	}
	return b.ok(e.Status())
}

func (b *bridge) retryItem(id string) string {
	e, _, err := b.engine()
	if err != nil {
		return b.fail(err)
	}
	if err := e.RetryItem(context.Background(), id); err != nil {
		return b.fail(err)
	}
	return b.ok(map[string]string{"id": id})
}

func (b *bridge) retryAllFailed() string {
	e, _, err := b.engine()
	if err != nil {
		return b.fail(err)
	}
	return b.ok(map[string]int{"retried": e.RetryAllFailed(context.Background())})
}

func (b *bridge) removeItem(id string) string {
	e, _, err := b.engine()
	if err != nil {
		return b.fail(err)
	}
	if err := e.RemoveItem(context.Background(), id); err != nil {
		return b.fail(err)
	}
	return b.ok(map[string]string{"id": id})
}

func (b *bridge) clearOldItems(maxAgeSeconds int64) string {
	e, _, err := b.engine()
	if err != nil {
		return b.fail(err)
	}
	if maxAgeSeconds < 0 {
		return b.fail(apperrors.New(apperrors.ErrInvalid, "max age must not be negative"))
	}
	n := e.ClearOldItems(context.Background(), time.Duration(maxAgeSeconds)*time.Second)
	return b.ok(map[string]int{"removed": n})
}

func (b *bridge) processQueue() string {
	e, _, err := b.engine()
	if err != nil {
		return b.fail(err)
	}
	return b.ok(e.ProcessQueue(context.Background()))
}

func (b *bridge) setOnline(online bool) string {
	_, reach, err := b.engine()
	if err != nil {
		return b.fail(err)
	}
	reach.SetOnline(online)
	return b.ok(map[string]bool{"online": online})
}

func (b *bridge) metrics() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.app == nil {
		return b.fail(apperrors.New(apperrors.ErrEngineClosed, "engine not initialized"))
	}
	return b.ok(b.app.Metrics.Snapshot())
}

// buffer is the engine subscriber. It must not block.
func (b *bridge) buffer(ev notify.Event) {
	b.eventsMu.Lock()
	defer b.eventsMu.Unlock()

	b.events = append(b.events, ev)
	if len(b.events) > maxBufferedEvents {
		b.events = b.events[len(b.events)-maxBufferedEvents:]
	}
}

type polledEvent struct {
	notify.Event
	Error string `json:"error,omitempty"`
}

func (b *bridge) pollEvents() string {
	b.eventsMu.Lock()
	events := b.events
	b.events = nil
	b.eventsMu.Unlock()

	out := make([]polledEvent, 0, len(events))
	for _, ev := range events {
		pe := polledEvent{Event: ev}
		if ev.Err != nil {
			pe.Error = ev.Err.Error()
		}
		out = append(out, pe)
	}
	return b.ok(out)
}

func (b *bridge) ok(data interface{}) string {
	return marshal(response{OK: true, Data: data})
}

func (b *bridge) fail(err error) string {
	b.lastErrMu.Lock()
	b.lastErr = err.Error()
	b.lastErrMu.Unlock()

	return marshal(response{Error: &errorBody{
		Code:    string(apperrors.CodeOf(err)),
		Message: err.Error(),
	}})
}

func (b *bridge) lastError() string {
	b.lastErrMu.RLock()
	defer b.lastErrMu.RUnlock()
	return b.lastErr
}

func marshal(r response) string {
	data, err := json.Marshal(r)
	if err != nil {
		return `{"ok":false,"error":{"code":"INTERNAL_ERROR","message":"failed to encode response"}}`
	}
	return string(data)
}

func main() {
	// Main function is required for c-shared build mode
	// but is not actually executed when used as shared library
}
