package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 3, cfg.DefaultMaxRetries)
	assert.Equal(t, "client-wins", cfg.DefaultConflictResolution)
	assert.Equal(t, 1000, cfg.MaxQueueSize)
	assert.Equal(t, "127.0.0.1:8090", cfg.HTTPAddr)
	assert.Equal(t, "aws", cfg.S3.Provider)
	assert.False(t, cfg.S3.Enabled())
	assert.Equal(t, queue.DefaultBackoff(), cfg.Backoff())
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FIELDSYNC_STORE", "redis")
	t.Setenv("FIELDSYNC_BATCH_SIZE", "25")
	t.Setenv("FIELDSYNC_SYNC_INTERVAL", "1m")
	t.Setenv("FIELDSYNC_DEFAULT_CONFLICT_RESOLUTION", "merge")
	t.Setenv("FIELDSYNC_RETRY_DELAY_MIN", "500ms")
	t.Setenv("FIELDSYNC_S3_BUCKET", "field-photos")
	t.Setenv("FIELDSYNC_S3_PROVIDER", "minio")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.Equal(t, "merge", cfg.DefaultConflictResolution)
	assert.Equal(t, 500*time.Millisecond, cfg.Backoff().Min)
	assert.True(t, cfg.S3.Enabled())
	assert.Equal(t, "minio", cfg.S3.Provider)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "field.env")
	require.NoError(t, os.WriteFile(path, []byte("FIELDSYNC_BATCH_SIZE=7\nFIELDSYNC_API_TOKEN=secret\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("FIELDSYNC_BATCH_SIZE")
		os.Unsetenv("FIELDSYNC_API_TOKEN")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.BatchSize)
	assert.Equal(t, "secret", cfg.APIToken)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigInvalid))
}

func TestLoad_BadValue(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FIELDSYNC_BATCH_SIZE", "many")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigInvalid))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Store:                     StoreSQLite,
			BatchSize:                 10,
			SyncInterval:              time.Second,
			DefaultMaxRetries:         3,
			DefaultConflictResolution: "client-wins",
			RetryDelayMin:             time.Second,
			RetryDelayMax:             time.Minute,
			BackoffMultiplier:         2,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store = "etcd" }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"negative retries", func(c *Config) { c.DefaultMaxRetries = -1 }},
		{"zero retries", func(c *Config) { c.DefaultMaxRetries = 0 }},
		{"unknown strategy", func(c *Config) { c.DefaultConflictResolution = "last-write-wins" }},
		{"zero interval", func(c *Config) { c.SyncInterval = 0 }},
		{"min above max", func(c *Config) { c.RetryDelayMin = time.Hour }},
		{"negative delay", func(c *Config) { c.RetryDelayMin = -time.Second }},
		{"multiplier below one", func(c *Config) { c.BackoffMultiplier = 0.5 }},
		{"redis without url", func(c *Config) { c.Store = StoreRedis; c.RedisURL = "" }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrConfigInvalid))
		})
	}
}

func TestPriorities(t *testing.T) {
	cfg := &Config{}
	table, err := cfg.Priorities()
	require.NoError(t, err)
	assert.Equal(t, queue.DefaultPriorities(), table)

	path := filepath.Join(t.TempDir(), "priorities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("photo-upload: 90\n"), 0o600))
	cfg.PriorityFile = path

	table, err = cfg.Priorities()
	require.NoError(t, err)
	assert.Equal(t, 90, table.Lookup(queue.ActionPhotoUpload))
	assert.Equal(t, 100, table.Lookup(queue.ActionCheckIn))
}

func TestPriorities_UnknownAction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "priorities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("teleport: 1\n"), 0o600))

	_, err := (&Config{PriorityFile: path}).Priorities()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigInvalid))
}
