package sync

import (
	"context"
	"time"

	"github.com/farhanfatur/Attendance-App/internal/sync/notify"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

// EngineInterface is the public engine API. The desktop and mobile
// front ends depend on it rather than on *Engine, so handlers can be
// tested against a fake.
type EngineInterface interface {
	Enqueue(ctx context.Context, actionType queue.ActionType, payload map[string]interface{}, opts EnqueueOptions) (string, error)
	GetQueue() []queue.QueueItem
	GetItem(id string) (queue.QueueItem, error)
	GetStats() queue.Stats
	RetryItem(ctx context.Context, id string) error
	RetryAllFailed(ctx context.Context) int
	RemoveItem(ctx context.Context, id string) error
	ClearOldItems(ctx context.Context, maxAge time.Duration) int
	Subscribe(fn func(notify.Event)) func()
	ProcessQueue(ctx context.Context) DrainResult
	StartBackgroundSync(ctx context.Context)
	StopBackgroundSync()
	Status() Status
	LastError() error
	Close() error
}

var _ EngineInterface = (*Engine)(nil)
