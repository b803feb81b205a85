// Package app assembles an engine and its backends from a Config. The
// CLI, the desktop server and the mobile bridge all start through it.
package app

import (
	"context"
	"errors"
	"os"

	"github.com/farhanfatur/Attendance-App/internal/config"
	"github.com/farhanfatur/Attendance-App/internal/crypto"
	"github.com/farhanfatur/Attendance-App/internal/db"
	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
	"github.com/farhanfatur/Attendance-App/internal/logging"
	"github.com/farhanfatur/Attendance-App/internal/models"
	fieldsync "github.com/farhanfatur/Attendance-App/internal/sync"
	"github.com/farhanfatur/Attendance-App/internal/sync/executor"
	"github.com/farhanfatur/Attendance-App/internal/sync/objectstore"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
	"github.com/farhanfatur/Attendance-App/internal/sync/reachability"
	"github.com/farhanfatur/Attendance-App/internal/sync/store"
	"github.com/farhanfatur/Attendance-App/internal/telemetry"
)

// App owns an engine and everything it was built on.
type App struct {
	Config *config.Config
	Engine *fieldsync.Engine

	// Repo is set only for the sqlite store.
	Repo *db.Repository

	Metrics *telemetry.Recorder

	prober  *reachability.Prober
	closers []func() error
}

// Option overrides a component New would otherwise build from config.
type Option func(*overrides)

type overrides struct {
	exec  executor.Executor
	reach reachability.Monitor
	store store.Store
}

// WithExecutor replaces the HTTP executor.
func WithExecutor(e executor.Executor) Option {
	return func(o *overrides) { o.exec = e }
}

// WithMonitor replaces the reachability source.
func WithMonitor(m reachability.Monitor) Option {
	return func(o *overrides) { o.reach = m }
}

// WithStore replaces the configured queue store.
func WithStore(s store.Store) Option {
	return func(o *overrides) { o.store = s }
}

// New builds the configured store, executor and reachability monitor and
// starts an engine over them. Background sync is not started.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (a *App, err error) {
	var o overrides
	for _, opt := range opts {
		opt(&o)
	}

	logging.Init(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	a = &App{Config: cfg, Metrics: telemetry.NewRecorder()}
	defer func() {
		if err != nil {
			_ = a.closeAll()
			a = nil
		}
	}()

	st := o.store
	if st == nil {
		if st, err = a.openStore(ctx); err != nil {
			return nil, err
		}
	}

	exec := o.exec
	if exec == nil {
		if exec, err = a.buildExecutor(ctx); err != nil {
			return nil, err
		}
	}

	reach := o.reach
	if reach == nil {
		reach = a.buildMonitor(ctx)
	}

	priorities, err := cfg.Priorities()
	if err != nil {
		return nil, err
	}

	engineOpts := []fieldsync.Option{
		fieldsync.WithBatchSize(cfg.BatchSize),
		fieldsync.WithDefaultMaxRetries(cfg.DefaultMaxRetries),
		fieldsync.WithDefaultConflictResolution(queue.ConflictResolution(cfg.DefaultConflictResolution)),
		fieldsync.WithPriorities(priorities),
		fieldsync.WithBackoff(cfg.Backoff()),
		fieldsync.WithSyncInterval(cfg.SyncInterval),
		fieldsync.WithMaxQueueSize(cfg.MaxQueueSize),
		fieldsync.WithMetrics(a.Metrics),
	}
	if a.Repo != nil {
		engineOpts = append(engineOpts, fieldsync.WithConflictLog(a.Repo))
	}

	a.Engine, err = fieldsync.New(ctx, st, exec, reach, engineOpts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) (store.Store, error) {
	cfg := a.Config
	switch cfg.Store {
	case config.StoreSQLite:
		d, err := db.OpenMigrated(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		a.Repo = db.NewRepository(d.DB)
		a.closers = append(a.closers, d.Close, a.Repo.Close)
		return store.NewSQLiteStore(a.Repo), nil

	case config.StoreFile:
		kv, err := store.NewFileKV(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return a.kvStore(kv, store.DefaultKey)

	case config.StoreRedis:
		client, err := store.Connect(ctx, store.RedisOptions{URL: cfg.RedisURL})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return a.kvStore(store.NewRedisKV(client), cfg.RedisKey)

	default:
		logging.Warn("Using in-memory queue store, items will not survive a restart", nil)
		return store.NewMemoryStore(), nil
	}
}

// kvStore seals blobs when an encryption key is configured.
func (a *App) kvStore(blobs store.BlobStore, key string) (store.Store, error) {
	if a.Config.EncryptionKey == "" {
		return store.NewKVStore(blobs, key), nil
	}
	sealer, err := crypto.NewSealer(a.Config.EncryptionKey, key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "invalid encryption key", err)
	}
	return store.NewKVStore(store.NewSealedKV(blobs, sealer), key), nil
}

func (a *App) buildExecutor(ctx context.Context) (executor.Executor, error) {
	cfg := a.Config
	var opts []executor.HTTPOption

	if cfg.S3.Enabled() {
		s3, err := objectstore.New(ctx, objectstore.Config{
			Provider:  cfg.S3.Provider,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			AccountID: cfg.S3.AccountID,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, executor.WithStager(executor.NewMediaStager(s3, cfg.S3.Prefix)))
		logging.Info("Photo staging enabled", map[string]interface{}{
			"provider": cfg.S3.Provider,
			"bucket":   cfg.S3.Bucket,
		})
	}

	return executor.NewHTTPExecutor(executor.HTTPConfig{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.APIToken,
		Timeout: cfg.RequestTimeout,
	}, opts...), nil
}

func (a *App) buildMonitor(ctx context.Context) reachability.Monitor {
	cfg := a.Config
	if cfg.ReachabilityURL == "" {
		return reachability.Always{}
	}
	a.prober = reachability.NewProber(cfg.ReachabilityURL, cfg.ReachabilityInterval, cfg.RequestTimeout)
	a.prober.Start(ctx)
	return a.prober
}

// ConflictLogs returns the most recent recorded conflicts. Only the sqlite
// store keeps a conflict log; other stores return an empty list.
func (a *App) ConflictLogs(ctx context.Context, limit int) ([]*models.ConflictLog, error) {
	if a.Repo == nil {
		return []*models.ConflictLog{}, nil
	}
	return a.Repo.ListConflictLogs(ctx, limit)
}

// Close flushes the engine, stops probing and releases every backend.
func (a *App) Close() error {
	var errs []error
	if a.Engine != nil {
		errs = append(errs, a.Engine.Close())
	}
	errs = append(errs, a.closeAll())
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	if a.prober != nil {
		a.prober.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
