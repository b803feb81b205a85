package store

import (
	"context"

	"github.com/farhanfatur/Attendance-App/internal/crypto"
	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
	"github.com/farhanfatur/Attendance-App/internal/logging"
)

// SealedKV encrypts values before they reach the wrapped BlobStore.
// Unsealed values written before encryption was enabled are still readable
// and get sealed on the next Set.
type SealedKV struct {
	blobs  BlobStore
	sealer *crypto.Sealer
}

// NewSealedKV wraps blobs with sealer.
func NewSealedKV(blobs BlobStore, sealer *crypto.Sealer) *SealedKV {
	return &SealedKV{blobs: blobs, sealer: sealer}
}

// Get reads and opens the value for key.
func (s *SealedKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.blobs.Get(ctx, key)
	if err != nil || len(data) == 0 {
		return data, err
	}
	if !crypto.IsSealed(data) {
		logging.Warn("Reading unsealed queue blob", map[string]interface{}{"key": key})
		return data, nil
	}

	plain, err := s.sealer.Open(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to open sealed "+key, err)
	}
	return plain, nil
}

// Set seals value and writes it under key.
func (s *SealedKV) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to seal "+key, err)
	}
	return s.blobs.Set(ctx, key, sealed)
}

// Move moves the sealed bytes without opening them.
func (s *SealedKV) Move(ctx context.Context, from, to string) error {
	return moveBlob(ctx, s.blobs, from, to)
}
