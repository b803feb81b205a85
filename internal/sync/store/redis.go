package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
)

// RedisClient is the subset of *redis.Client used by RedisKV.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Rename(ctx context.Context, key, newkey string) *redis.StatusCmd
}

// RedisKV is a BlobStore backed by Redis strings, for shared or kiosk devices
// that keep the queue off the local disk.
type RedisKV struct {
	client RedisClient
}

// NewRedisKV wraps a Redis client.
func NewRedisKV(client RedisClient) *RedisKV {
	return &RedisKV{client: client}
}

// Get returns the value for key, or nil if it does not exist.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "redis get failed", err)
	}
	return data, nil
}

// Set stores value under key without expiry.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "redis set failed", err)
	}
	return nil
}

// Move renames from to to. A missing key is not an error.
func (r *RedisKV) Move(ctx context.Context, from, to string) error {
	n, err := r.client.Exists(ctx, from).Result()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "redis exists failed", err)
	}
	if n == 0 {
		return nil
	}
	if err := r.client.Rename(ctx, from, to).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "redis rename failed", err)
	}
	return nil
}

// RedisOptions controls how Connect reaches the server.
type RedisOptions struct {
	URL            string
	ConnectTimeout time.Duration
	RetryAttempts  int
	RetryInterval  time.Duration
}

// Connect parses the URL and pings the server, retrying until it answers.
func Connect(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	connOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "invalid redis url", err)
	}

	var lastErr error
	for range opts.RetryAttempts {
		client := redis.NewClient(connOpts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(apperrors.ErrStorage, "redis not ready", errors.Join(lastErr, ctx.Err()))
		case <-time.After(opts.RetryInterval):
		}
	}
	return nil, apperrors.Wrap(apperrors.ErrStorage, "redis not ready", lastErr)
}
