package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/farhanfatur/Attendance-App/internal/logging"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

// RequestBody is the JSON sent for every mutation. ClientItemID is the
// idempotency key the server deduplicates on.
type RequestBody struct {
	Payload      map[string]interface{} `json:"payload"`
	ClientItemID string                 `json:"clientItemId"`
	LocalVersion int64                  `json:"localVersion"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// conflictBody is the server's conflict response.
type conflictBody struct {
	Conflict      bool                   `json:"conflict"`
	ServerPayload map[string]interface{} `json:"serverPayload"`
	ServerVersion int64                  `json:"serverVersion"`
}

// HTTPConfig configures an HTTPExecutor.
type HTTPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Routes  Routes
}

// HTTPExecutor sends mutations to the field API over HTTP.
type HTTPExecutor struct {
	baseURL string
	token   string
	timeout time.Duration
	routes  Routes
	client  *http.Client
	stager  *MediaStager
}

// HTTPOption configures an HTTPExecutor.
type HTTPOption func(*HTTPExecutor)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPExecutor) { e.client = c }
}

// WithStager uploads photo attachments before sending photo-upload items.
func WithStager(s *MediaStager) HTTPOption {
	return func(e *HTTPExecutor) { e.stager = s }
}

// NewHTTPExecutor creates an HTTPExecutor.
func NewHTTPExecutor(cfg HTTPConfig, opts ...HTTPOption) *HTTPExecutor {
	routes := cfg.Routes
	if routes == nil {
		routes = DefaultRoutes()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	e := &HTTPExecutor{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: timeout,
		routes:  routes,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute sends item once and classifies the response:
// 2xx is success unless the body flags a conflict, 409 and 412 are
// conflicts, everything else (including timeouts) is retryable.
func (e *HTTPExecutor) Execute(ctx context.Context, item queue.QueueItem) Outcome {
	route, ok := e.routes[item.ActionType]
	if !ok {
		return Retryable(fmt.Sprintf("no route for action type %s", item.ActionType))
	}

	payload := item.Payload
	if e.stager != nil && item.ActionType == queue.ActionPhotoUpload {
		staged, err := e.stager.Stage(ctx, item)
		if err != nil {
			return Retryable(err.Error())
		}
		payload = staged
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}

	body, err := json.Marshal(RequestBody{
		Payload:      payload,
		ClientItemID: item.ID,
		LocalVersion: item.LocalVersion,
		CreatedAt:    item.CreatedAt,
	})
	if err != nil {
		return Retryable(fmt.Sprintf("failed to encode request: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, route.Method, e.baseURL+route.Path, bytes.NewReader(body))
	if err != nil {
		return Retryable(fmt.Sprintf("failed to build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", item.ID)
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		logging.Debug("Request failed", map[string]interface{}{
			"item_id": item.ID,
			"error":   err.Error(),
		})
		return Retryable(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Retryable(fmt.Sprintf("failed to read response: %v", err))
	}

	return classify(resp.StatusCode, respBody)
}

func classify(status int, body []byte) Outcome {
	switch {
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		var cb conflictBody
		_ = queue.DecodeJSON(body, &cb)
		return Conflict(cb.ServerPayload, cb.ServerVersion)
	case status >= 200 && status < 300:
		if len(body) > 0 {
			var cb conflictBody
			if err := queue.DecodeJSON(body, &cb); err == nil && cb.Conflict {
				return Conflict(cb.ServerPayload, cb.ServerVersion)
			}
		}
		return Success()
	default:
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg == "" {
			return Retryable(fmt.Sprintf("server returned %d", status))
		}
		return Retryable(fmt.Sprintf("server returned %d: %s", status, msg))
	}
}
