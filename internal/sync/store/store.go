// Package store persists the offline queue. A Store loads and saves the
// ordered item list; it holds no ordering or validation logic of its own.
package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
	"github.com/farhanfatur/Attendance-App/internal/logging"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

// DefaultKey is the blob key the queue is stored under.
const DefaultKey = "fieldsync:queue"

// Store loads and saves the queue.
// Load returns an empty slice when nothing was persisted or the stored data
// is unreadable; only Save reports I/O failures.
type Store interface {
	Load(ctx context.Context) ([]queue.QueueItem, error)
	Save(ctx context.Context, items []queue.QueueItem) error
}

// BlobStore is an opaque durable key-value store.
// Get returns nil, nil for a missing key.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Mover is implemented by BlobStores that can rename a key without
// reading its value.
type Mover interface {
	Move(ctx context.Context, from, to string) error
}

// KVStore stores the queue as a single JSON array under one key.
//
// A blob that cannot be read (I/O error, wrong encryption key) loads as an
// empty queue, but it is never overwritten: the next Save first moves it
// to "<key>.unreadable.<timestamp>" and refuses to write if that fails.
type KVStore struct {
	blobs BlobStore
	key   string

	mu         sync.Mutex
	unreadable bool
	now        func() time.Time
}

// NewKVStore creates a KVStore. An empty key uses DefaultKey.
func NewKVStore(blobs BlobStore, key string) *KVStore {
	if key == "" {
		key = DefaultKey
	}
	return &KVStore{blobs: blobs, key: key, now: time.Now}
}

// Load reads and decodes the stored queue.
func (s *KVStore) Load(ctx context.Context) ([]queue.QueueItem, error) {
	data, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		logging.Warn("Queue blob unreadable, starting empty", map[string]interface{}{
			"key":   s.key,
			"error": err.Error(),
		})
		s.mu.Lock()
		s.unreadable = true
		s.mu.Unlock()
		return []queue.QueueItem{}, nil
	}
	return Decode(data), nil
}

// Save encodes items and writes them under the store key.
func (s *KVStore) Save(ctx context.Context, items []queue.QueueItem) error {
	data, err := Encode(items)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unreadable {
		aside := s.key + ".unreadable." + s.now().UTC().Format("20060102T150405.000000000Z")
		if err := moveBlob(ctx, s.blobs, s.key, aside); err != nil {
			return apperrors.Wrap(apperrors.ErrPersistence, "unreadable queue could not be moved aside", err)
		}
		logging.Warn("Moved unreadable queue aside", map[string]interface{}{
			"key":   s.key,
			"moved": aside,
		})
		s.unreadable = false
	}

	if err := s.blobs.Set(ctx, s.key, data); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "failed to write queue", err)
	}
	return nil
}

// moveBlob renames from to to, copying through Get and Set when the
// store cannot rename.
func moveBlob(ctx context.Context, blobs BlobStore, from, to string) error {
	if m, ok := blobs.(Mover); ok {
		return m.Move(ctx, from, to)
	}
	data, err := blobs.Get(ctx, from)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	return blobs.Set(ctx, to, data)
}

// Encode serializes items as a JSON array. A nil slice encodes as [].
func Encode(items []queue.QueueItem) ([]byte, error) {
	if items == nil {
		items = []queue.QueueItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "failed to encode queue", err)
	}
	return data, nil
}

// Decode parses a JSON array of items. Payload numbers decode as
// json.Number. Empty or corrupt input yields an empty queue; entries
// without an id are dropped.
func Decode(data []byte) []queue.QueueItem {
	if len(data) == 0 {
		return []queue.QueueItem{}
	}

	var items []queue.QueueItem
	if err := queue.DecodeJSON(data, &items); err != nil {
		logging.Warn("Persisted queue is corrupt, starting empty", map[string]interface{}{
			"bytes": len(data),
			"error": err.Error(),
		})
		return []queue.QueueItem{}
	}

	out := items[:0]
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		out = append(out, item)
	}
	if len(out) != len(items) {
		logging.Warn("Dropped persisted items without id", map[string]interface{}{
			"dropped": len(items) - len(out),
		})
	}
	return out
}
