package executor

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/farhanfatur/Attendance-App/internal/logging"
	"github.com/farhanfatur/Attendance-App/internal/sync/objectstore"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

// Payload keys used by photo-upload items.
const (
	KeyLocalPath = "localPath"
	KeyObjectKey = "objectKey"
)

// ObjectStore is where staged attachments are written.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// MediaStager uploads the file referenced by a photo-upload payload and
// swaps localPath for the object key in the request it returns.
type MediaStager struct {
	store  ObjectStore
	prefix string
}

// NewMediaStager creates a stager writing under prefix.
func NewMediaStager(store ObjectStore, prefix string) *MediaStager {
	if prefix == "" {
		prefix = "photos"
	}
	return &MediaStager{store: store, prefix: prefix}
}

// Stage returns the payload to send for item. The item's own payload is
// never modified. Payloads without localPath are returned as a copy.
func (s *MediaStager) Stage(ctx context.Context, item queue.QueueItem) (map[string]interface{}, error) {
	payload := queue.ClonePayload(item.Payload)
	if payload == nil {
		payload = map[string]interface{}{}
	}

	localPath, _ := payload[KeyLocalPath].(string)
	if localPath == "" {
		return payload, nil
	}

	hash, size, err := objectstore.HashFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", localPath, err)
	}
	ext := filepath.Ext(localPath)
	key := objectstore.ContentKey(s.prefix, hash, ext)

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		f, err := os.Open(localPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", localPath, err)
		}
		defer f.Close()

		if err := s.store.Put(ctx, key, f, size, mime.TypeByExtension(ext)); err != nil {
			return nil, err
		}
		logging.Info("Staged photo", map[string]interface{}{
			"item_id":    item.ID,
			"object_key": key,
			"size":       size,
		})
	}

	delete(payload, KeyLocalPath)
	payload[KeyObjectKey] = key
	payload["sha256"] = hash
	return payload, nil
}
