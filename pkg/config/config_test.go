package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "memory", cfg.Metadata.Driver)
	require.Equal(t, "memory", cfg.BlockStore.Driver)
	require.Equal(t, "INFO", cfg.Logging.Level)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 9090, cfg.Metrics.Port)
	require.True(t, cfg.Metrics.IsEnabled())
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deuce.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
metadata:
  driver: postgres
  postgres:
    host: db.internal
    port: 5432
    database: deuce
    user: deuce
    password: secret
block_store:
  driver: s3
  s3:
    bucket: deuce-blocks
    region: us-east-1
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "postgres", cfg.Metadata.Driver)
	require.Equal(t, "db.internal", cfg.Metadata.Postgres.Host)
	require.Equal(t, "prefer", cfg.Metadata.Postgres.SSLMode)
	require.Equal(t, "s3", cfg.BlockStore.Driver)
	require.Equal(t, "deuce-blocks", cfg.BlockStore.S3.Bucket)
	require.Equal(t, uint(3), cfg.BlockStore.S3.MaxRetries)
}

func TestLoad_MissingPostgresFieldsFailValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deuce.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
metadata:
  driver: postgres
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingS3BucketFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deuce.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
block_store:
  driver: s3
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DEUCE_SERVER_PORT", "7777")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7777, cfg.Server.Port)
}
