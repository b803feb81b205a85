package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
	"github.com/farhanfatur/Attendance-App/internal/models"
)

// Repository provides data access methods for the queue database.
type Repository struct {
	db *sql.DB

	// stmtCache caches prepared statements for better performance
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var errs []error
	r.stmtCache.Range(func(key, value interface{}) bool {
		if stmt, ok := value.(*sql.Stmt); ok {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		r.stmtCache.Delete(key)
		return true
	})
	return errors.Join(errs...)
}

// PrepareStmt returns a cached prepared statement or creates a new one.
func (r *Repository) PrepareStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if cached, ok := r.stmtCache.Load(query); ok {
		return cached.(*sql.Stmt), nil
	}

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// =====================================================
// Sync Queue Operations
// =====================================================

const insertSyncQueueSQL = `
	INSERT INTO sync_queue (id, action_type, payload, created_at, retry_count, max_retries,
		priority, conflict_resolution, status, error_message, last_attempt_at, next_retry_at,
		local_version, server_version, awaiting_manual, position)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ReplaceSyncQueue atomically replaces the stored queue with rows.
// Either every row is written or the previous contents are kept.
func (r *Repository) ReplaceSyncQueue(ctx context.Context, rows []*models.SyncQueue) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sync_queue"); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to clear sync queue", err)
	}

	if len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertSyncQueueSQL)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare insert", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			_, err := stmt.ExecContext(ctx,
				row.ID, row.ActionType, []byte(row.Payload), row.CreatedAt, row.RetryCount, row.MaxRetries,
				row.Priority, row.ConflictResolution, row.Status, row.ErrorMessage, row.LastAttemptAt,
				row.NextRetryAt, row.LocalVersion, row.ServerVersion, row.AwaitingManual, row.Position,
			)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrDatabase, fmt.Sprintf("failed to insert item %s", row.ID), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to commit sync queue", err)
	}
	return nil
}

// ListSyncQueue returns all stored queue rows in their saved order.
func (r *Repository) ListSyncQueue(ctx context.Context) ([]*models.SyncQueue, error) {
	query := `
		SELECT id, action_type, payload, created_at, retry_count, max_retries, priority,
			conflict_resolution, status, error_message, last_attempt_at, next_retry_at,
			local_version, server_version, awaiting_manual, position
		FROM sync_queue
		ORDER BY position ASC`

	stmt, err := r.PrepareStmt(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare query", err)
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list sync queue", err)
	}
	defer rows.Close()

	var out []*models.SyncQueue
	for rows.Next() {
		var row models.SyncQueue
		var payload []byte
		if err := rows.Scan(
			&row.ID, &row.ActionType, &payload, &row.CreatedAt, &row.RetryCount, &row.MaxRetries,
			&row.Priority, &row.ConflictResolution, &row.Status, &row.ErrorMessage,
			&row.LastAttemptAt, &row.NextRetryAt, &row.LocalVersion, &row.ServerVersion,
			&row.AwaitingManual, &row.Position,
		); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan sync queue row", err)
		}
		row.Payload = payload
		out = append(out, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to iterate sync queue", err)
	}
	return out, nil
}

// CountSyncQueue returns the number of stored queue rows.
func (r *Repository) CountSyncQueue(ctx context.Context) (int, error) {
	stmt, err := r.PrepareStmt(ctx, "SELECT COUNT(*) FROM sync_queue")
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare query", err)
	}
	var n int
	if err := stmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "failed to count sync queue", err)
	}
	return n, nil
}

// =====================================================
// Conflict Log Operations
// =====================================================

// CreateConflictLog records a resolved conflict.
func (r *Repository) CreateConflictLog(ctx context.Context, entry *models.ConflictLog) error {
	query := `
		INSERT INTO conflict_log (id, item_id, action_type, resolution, local_version, server_version, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	stmt, err := r.PrepareStmt(ctx, query)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare insert", err)
	}

	_, err = stmt.ExecContext(ctx, entry.ID, entry.ItemID, entry.ActionType, entry.Resolution,
		entry.LocalVersion, entry.ServerVersion, entry.DetectedAt)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to create conflict log", err)
	}
	return nil
}

// ListConflictLogs returns the most recent conflicts, newest first.
func (r *Repository) ListConflictLogs(ctx context.Context, limit int) ([]*models.ConflictLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, item_id, action_type, resolution, local_version, server_version, detected_at
		FROM conflict_log
		ORDER BY detected_at DESC, id DESC
		LIMIT ?`

	stmt, err := r.PrepareStmt(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare query", err)
	}

	rows, err := stmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to list conflict logs", err)
	}
	defer rows.Close()

	var out []*models.ConflictLog
	for rows.Next() {
		var entry models.ConflictLog
		if err := rows.Scan(&entry.ID, &entry.ItemID, &entry.ActionType, &entry.Resolution,
			&entry.LocalVersion, &entry.ServerVersion, &entry.DetectedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan conflict log", err)
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

// =====================================================
// Key/Value Operations
// =====================================================

// GetKV returns the value stored under key, or nil if the key is absent.
func (r *Repository) GetKV(ctx context.Context, key string) ([]byte, error) {
	stmt, err := r.PrepareStmt(ctx, "SELECT value FROM kv_store WHERE key = ?")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare query", err)
	}

	var value []byte
	err = stmt.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to read key "+key, err)
	}
	return value, nil
}

// PutKV stores value under key, replacing any previous value.
func (r *Repository) PutKV(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	stmt, err := r.PrepareStmt(ctx, query)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare upsert", err)
	}
	if _, err := stmt.ExecContext(ctx, key, value, time.Now().Unix()); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to write key "+key, err)
	}
	return nil
}

// DeleteKV removes key. Deleting a missing key is not an error.
func (r *Repository) DeleteKV(ctx context.Context, key string) error {
	stmt, err := r.PrepareStmt(ctx, "DELETE FROM kv_store WHERE key = ?")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare delete", err)
	}
	if _, err := stmt.ExecContext(ctx, key); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to delete key "+key, err)
	}
	return nil
}
