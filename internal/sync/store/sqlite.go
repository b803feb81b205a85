package store

import (
	"context"

	"github.com/farhanfatur/Attendance-App/internal/db"
	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
	"github.com/farhanfatur/Attendance-App/internal/logging"
	"github.com/farhanfatur/Attendance-App/internal/models"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

// SQLiteKV is a BlobStore over the kv_store table.
type SQLiteKV struct {
	repo db.KVRepository
}

// NewSQLiteKV wraps a repository.
func NewSQLiteKV(repo db.KVRepository) *SQLiteKV {
	return &SQLiteKV{repo: repo}
}

// Get returns the value for key, or nil if absent.
func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	return s.repo.GetKV(ctx, key)
}

// Set upserts value under key.
func (s *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	return s.repo.PutKV(ctx, key, value)
}

// Move copies the raw value for from to to, then deletes from.
func (s *SQLiteKV) Move(ctx context.Context, from, to string) error {
	data, err := s.repo.GetKV(ctx, from)
	if err != nil || data == nil {
		return err
	}
	if err := s.repo.PutKV(ctx, to, data); err != nil {
		return err
	}
	return s.repo.DeleteKV(ctx, from)
}

// SQLiteStore keeps one sync_queue row per item, so the queue can be
// inspected with plain SQL. Save replaces all rows in one transaction.
type SQLiteStore struct {
	repo db.SyncQueueRepository
}

// NewSQLiteStore wraps a repository.
func NewSQLiteStore(repo db.SyncQueueRepository) *SQLiteStore {
	return &SQLiteStore{repo: repo}
}

// Load reads all rows in saved order. Unreadable rows are skipped.
func (s *SQLiteStore) Load(ctx context.Context) ([]queue.QueueItem, error) {
	rows, err := s.repo.ListSyncQueue(ctx)
	if err != nil {
		logging.Warn("Queue table unreadable, starting empty", map[string]interface{}{
			"error": err.Error(),
		})
		return []queue.QueueItem{}, nil
	}

	items := make([]queue.QueueItem, 0, len(rows))
	for _, row := range rows {
		item, err := queue.FromModel(row)
		if err != nil {
			logging.Warn("Skipping corrupt queue row", map[string]interface{}{
				"item_id": row.ID.String(),
				"error":   err.Error(),
			})
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

// Save writes items as rows, positions following slice order.
func (s *SQLiteStore) Save(ctx context.Context, items []queue.QueueItem) error {
	rows := make([]*models.SyncQueue, 0, len(items))
	for i := range items {
		row, err := items[i].ToModel(i)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrPersistence, "failed to encode item "+items[i].ID, err)
		}
		rows = append(rows, row)
	}
	if err := s.repo.ReplaceSyncQueue(ctx, rows); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "failed to write queue", err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ Store     = (*KVStore)(nil)
	_ Store     = (*SQLiteStore)(nil)
	_ BlobStore = (*MemoryKV)(nil)
	_ BlobStore = (*FileKV)(nil)
	_ BlobStore = (*RedisKV)(nil)
	_ BlobStore = (*SQLiteKV)(nil)
)
