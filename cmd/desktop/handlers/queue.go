// Package handlers provides REST API handlers for the offline queue.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
	"github.com/farhanfatur/Attendance-App/internal/logging"
	"github.com/farhanfatur/Attendance-App/internal/models"
	fieldsync "github.com/farhanfatur/Attendance-App/internal/sync"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
	"github.com/farhanfatur/Attendance-App/internal/telemetry"
)

// ConflictLister returns recent conflict log entries.
type ConflictLister interface {
	ConflictLogs(ctx context.Context, limit int) ([]*models.ConflictLog, error)
}

// QueueHandler handles queue operations.
type QueueHandler struct {
	engine    fieldsync.EngineInterface
	conflicts ConflictLister
	metrics   *telemetry.Recorder
}

// NewQueueHandler creates a new QueueHandler. conflicts may be nil.
func NewQueueHandler(engine fieldsync.EngineInterface, conflicts ConflictLister) *QueueHandler {
	return &QueueHandler{engine: engine, conflicts: conflicts}
}

// SetMetrics sets the recorder served by GET /metrics.
func (h *QueueHandler) SetMetrics(m *telemetry.Recorder) {
	h.metrics = m
}

// Routes mounts the queue API on r.
func (h *QueueHandler) Routes(r chi.Router) {
	r.Get("/status", h.GetStatus)
	r.Get("/conflicts", h.ListConflicts)
	r.Get("/metrics", h.GetMetrics)

	r.Route("/queue", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Post("/", h.Enqueue)
		r.Get("/stats", h.GetStats)
		r.Post("/drain", h.Drain)
		r.Post("/retry-failed", h.RetryAllFailed)
		r.Post("/clear-old", h.ClearOld)
		r.Get("/{id}", h.GetItem)
		r.Delete("/{id}", h.RemoveItem)
		r.Post("/{id}/retry", h.RetryItem)
	})
}

// EnqueueRequest is the body of POST /queue.
type EnqueueRequest struct {
	ActionType         string                 `json:"actionType"`
	Payload            map[string]interface{} `json:"payload"`
	Priority           *int                   `json:"priority,omitempty"`
	ConflictResolution string                 `json:"conflictResolution,omitempty"`
	MaxRetries         int                    `json:"maxRetries,omitempty"`
}

// Enqueue handles POST /queue
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}

	id, err := h.engine.Enqueue(r.Context(), queue.ActionType(req.ActionType), req.Payload, fieldsync.EnqueueOptions{
		Priority:           req.Priority,
		ConflictResolution: queue.ConflictResolution(req.ConflictResolution),
		MaxRetries:         req.MaxRetries,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// ListItems handles GET /queue
// Optional ?status= filters by item status.
func (h *QueueHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items := h.engine.GetQueue()

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := items[:0]
		for _, it := range items {
			if string(it.Status) == status {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

// GetItem handles GET /queue/{id}
func (h *QueueHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.engine.GetItem(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// RemoveItem handles DELETE /queue/{id}
func (h *QueueHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RemoveItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetryItem handles POST /queue/{id}/retry
func (h *QueueHandler) RetryItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.RetryItem(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

// RetryAllFailed handles POST /queue/retry-failed
func (h *QueueHandler) RetryAllFailed(w http.ResponseWriter, r *http.Request) {
	n := h.engine.RetryAllFailed(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]int{"retried": n})
}

// ClearOld handles POST /queue/clear-old?max_age=168h
func (h *QueueHandler) ClearOld(w http.ResponseWriter, r *http.Request) {
	maxAge := 7 * 24 * time.Hour
	if raw := r.URL.Query().Get("max_age"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			writeError(w, apperrors.Newf(apperrors.ErrInvalid, "invalid max_age %q", raw))
			return
		}
		maxAge = d
	}

	n := h.engine.ClearOldItems(r.Context(), maxAge)
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// Drain handles POST /queue/drain
// The drain runs on the request; an overlapping drain is reported as skipped.
func (h *QueueHandler) Drain(w http.ResponseWriter, r *http.Request) {
	res := h.engine.ProcessQueue(r.Context())
	writeJSON(w, http.StatusOK, res)
}

// GetStats handles GET /queue/stats
func (h *QueueHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.GetStats())
}

// GetStatus handles GET /status
func (h *QueueHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Status())
}

// GetMetrics handles GET /metrics
func (h *QueueHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

// ListConflicts handles GET /conflicts?limit=50
func (h *QueueHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	if h.conflicts == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": []interface{}{}})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 50
	}

	logs, err := h.conflicts.ConflictLogs(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": logs})
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := statusFor(code)
	if status >= 500 {
		logging.ErrorWithCode("Request failed", string(code), err)
	}
	writeJSON(w, status, ErrorResponse{Code: string(code), Message: err.Error()})
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrInvalid, apperrors.ErrInvalidActionType, apperrors.ErrInvalidPayload:
		return http.StatusBadRequest
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrQueueFull:
		return http.StatusTooManyRequests
	case apperrors.ErrEngineClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
