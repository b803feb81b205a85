package sync

import (
	"time"

	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
	"github.com/farhanfatur/Attendance-App/internal/telemetry"
)

// Defaults used when no option overrides them.
const (
	DefaultBatchSize    = 10
	DefaultMaxRetries   = 3
	DefaultSyncInterval = 30 * time.Second
	DefaultMaxQueueSize = 1000
)

type settings struct {
	batchSize          int
	maxRetries         int
	conflictResolution queue.ConflictResolution
	priorities         queue.PriorityTable
	backoff            queue.Backoff
	syncInterval       time.Duration
	maxQueueSize       int
	now                func() time.Time
	conflictLog        ConflictRecorder
	metrics            *telemetry.Recorder
}

func defaultSettings() settings {
	return settings{
		batchSize:          DefaultBatchSize,
		maxRetries:         DefaultMaxRetries,
		conflictResolution: queue.ResolutionClientWins,
		priorities:         queue.DefaultPriorities(),
		backoff:            queue.DefaultBackoff(),
		syncInterval:       DefaultSyncInterval,
		maxQueueSize:       DefaultMaxQueueSize,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// Option configures an Engine.
type Option func(*settings)

// WithBatchSize sets how many items one drain attempts.
func WithBatchSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithDefaultMaxRetries sets the retry budget for items enqueued without one.
// Every item gets at least one attempt, so values below 1 are ignored.
func WithDefaultMaxRetries(n int) Option {
	return func(s *settings) {
		if n >= 1 {
			s.maxRetries = n
		}
	}
}

// WithDefaultConflictResolution sets the strategy for items enqueued without one.
func WithDefaultConflictResolution(r queue.ConflictResolution) Option {
	return func(s *settings) {
		if r.Valid() {
			s.conflictResolution = r
		}
	}
}

// WithPriorities replaces the default priority table.
func WithPriorities(t queue.PriorityTable) Option {
	return func(s *settings) {
		if t != nil {
			s.priorities = t
		}
	}
}

// WithBackoff sets the per-item retry delay curve. A zero Min disables it.
func WithBackoff(b queue.Backoff) Option {
	return func(s *settings) { s.backoff = b }
}

// WithSyncInterval sets the background drain interval.
func WithSyncInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.syncInterval = d
		}
	}
}

// WithMaxQueueSize bounds the queue. Zero or less means unbounded.
func WithMaxQueueSize(n int) Option {
	return func(s *settings) { s.maxQueueSize = n }
}

// WithNow injects the clock.
func WithNow(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = func() time.Time { return now().UTC() }
		}
	}
}

// WithConflictLog records every resolved conflict.
func WithConflictLog(r ConflictRecorder) Option {
	return func(s *settings) { s.conflictLog = r }
}

// WithMetrics counts enqueues, drains and conflicts in r.
func WithMetrics(r *telemetry.Recorder) Option {
	return func(s *settings) { s.metrics = r }
}
