package db

import (
	"context"

	"github.com/farhanfatur/Attendance-App/internal/models"
)

// SyncQueueRepository persists the ordered mutation queue.
type SyncQueueRepository interface {
	ReplaceSyncQueue(ctx context.Context, rows []*models.SyncQueue) error
	ListSyncQueue(ctx context.Context) ([]*models.SyncQueue, error)
	CountSyncQueue(ctx context.Context) (int, error)
}

// ConflictLogRepository records resolved conflicts.
type ConflictLogRepository interface {
	CreateConflictLog(ctx context.Context, entry *models.ConflictLog) error
	ListConflictLogs(ctx context.Context, limit int) ([]*models.ConflictLog, error)
}

// KVRepository stores opaque values by key.
type KVRepository interface {
	GetKV(ctx context.Context, key string) ([]byte, error)
	PutKV(ctx context.Context, key string, value []byte) error
	DeleteKV(ctx context.Context, key string) error
}

// RepositoryInterface combines all repository interfaces.
type RepositoryInterface interface {
	SyncQueueRepository
	ConflictLogRepository
	KVRepository
	Close() error
}

// Compile-time interface checks.
var (
	_ SyncQueueRepository   = (*Repository)(nil)
	_ ConflictLogRepository = (*Repository)(nil)
	_ KVRepository          = (*Repository)(nil)
	_ RepositoryInterface   = (*Repository)(nil)
)
