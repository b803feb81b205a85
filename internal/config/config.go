// Package config loads runtime settings from the environment.
//
// Every key is prefixed with FIELDSYNC_, e.g. FIELDSYNC_BATCH_SIZE. A .env
// file in the working directory is loaded first when present; real
// environment variables win over it.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

// Prefix is prepended to every environment key.
const Prefix = "FIELDSYNC_"

// Queue store backends.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// S3 configures photo staging. Staging is disabled when Bucket is empty.
type S3 struct {
	Provider  string `env:"PROVIDER" envDefault:"aws"`
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION"`
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	AccountID string `env:"ACCOUNT_ID"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
	Prefix    string `env:"PREFIX" envDefault:"photos"`
}

// Enabled reports whether a bucket is configured.
func (s S3) Enabled() bool {
	return s.Bucket != ""
}

// Config holds all settings for the engine and its hosts.
type Config struct {
	DataDir  string `env:"DATA_DIR" envDefault:"./data"`
	Store    string `env:"STORE" envDefault:"sqlite"`
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisKey string `env:"REDIS_KEY" envDefault:"fieldsync:queue"`

	// EncryptionKey seals file and redis snapshots when set.
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	BatchSize                 int           `env:"BATCH_SIZE" envDefault:"10"`
	SyncInterval              time.Duration `env:"SYNC_INTERVAL" envDefault:"30s"`
	DefaultMaxRetries         int           `env:"DEFAULT_MAX_RETRIES" envDefault:"3"`
	DefaultConflictResolution string        `env:"DEFAULT_CONFLICT_RESOLUTION" envDefault:"client-wins"`
	MaxQueueSize              int           `env:"MAX_QUEUE_SIZE" envDefault:"1000"`
	RetryDelayMin             time.Duration `env:"RETRY_DELAY_MIN" envDefault:"1s"`
	RetryDelayMax             time.Duration `env:"RETRY_DELAY_MAX" envDefault:"5m"`
	BackoffMultiplier         float64       `env:"BACKOFF_MULTIPLIER" envDefault:"2"`
	PriorityFile              string        `env:"PRIORITY_FILE"`

	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	APIToken       string        `env:"API_TOKEN"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	ReachabilityURL      string        `env:"REACHABILITY_URL"`
	ReachabilityInterval time.Duration `env:"REACHABILITY_INTERVAL" envDefault:"15s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8090"`

	S3 S3 `envPrefix:"S3_"`
}

// Load reads the given .env files (or ./.env when none are given and it
// exists) and parses the environment into a Config. The result is validated.
func Load(files ...string) (*Config, error) {
	if err := loadDotEnv(files); err != nil {
		return nil, err
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "parse environment", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		// A missing default .env is normal.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return apperrors.Wrap(apperrors.ErrConfigInvalid, "load .env", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "load env file", err)
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreFile, StoreRedis, StoreMemory:
	default:
		return apperrors.Newf(apperrors.ErrConfigInvalid, "unknown store %q", c.Store)
	}
	if c.BatchSize <= 0 {
		return apperrors.New(apperrors.ErrConfigInvalid, "batch size must be positive")
	}
	if c.DefaultMaxRetries < 1 {
		return apperrors.New(apperrors.ErrConfigInvalid, "default max retries must be at least 1")
	}
	if !queue.ConflictResolution(c.DefaultConflictResolution).Valid() {
		return apperrors.Newf(apperrors.ErrConfigInvalid, "unknown conflict resolution %q", c.DefaultConflictResolution)
	}
	if c.SyncInterval <= 0 {
		return apperrors.New(apperrors.ErrConfigInvalid, "sync interval must be positive")
	}
	if c.RetryDelayMin < 0 || c.RetryDelayMax < 0 {
		return apperrors.New(apperrors.ErrConfigInvalid, "retry delays must not be negative")
	}
	if c.RetryDelayMax > 0 && c.RetryDelayMin > c.RetryDelayMax {
		return apperrors.New(apperrors.ErrConfigInvalid, "retry delay min exceeds max")
	}
	if c.BackoffMultiplier < 1 {
		return apperrors.New(apperrors.ErrConfigInvalid, "backoff multiplier must be at least 1")
	}
	if c.Store == StoreRedis && c.RedisURL == "" {
		return apperrors.New(apperrors.ErrConfigInvalid, "redis store requires REDIS_URL")
	}
	return nil
}

// Backoff returns the per-item retry curve.
func (c *Config) Backoff() queue.Backoff {
	return queue.Backoff{
		Min:        c.RetryDelayMin,
		Max:        c.RetryDelayMax,
		Multiplier: c.BackoffMultiplier,
	}
}

// Priorities returns the default priority table with PriorityFile
// overrides applied.
func (c *Config) Priorities() (queue.PriorityTable, error) {
	table := queue.DefaultPriorities()
	if c.PriorityFile == "" {
		return table, nil
	}
	overrides, err := queue.LoadPriorityFile(c.PriorityFile)
	if err != nil {
		return nil, err
	}
	return table.With(overrides), nil
}
