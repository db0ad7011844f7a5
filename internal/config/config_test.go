package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, "storage:\n  local_path: "+filepath.Join(t.TempDir(), "uploads")+"\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 72*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, 3, cfg.Generation.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.Generation.RetryBaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Generation.RateLimitCooldown)
	assert.Equal(t, "<br>", cfg.Generation.NewlineMarker)
	assert.DirExists(t, cfg.Storage.LocalPath)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := writeConfig(t, "ai:\n  model: from-file\nstorage:\n  type: minio\n")
	t.Setenv("GEMINI_API_KEY", "k-123")
	t.Setenv("AI_MODEL", "from-env")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "k-123", cfg.AI.APIKey)
	assert.True(t, cfg.AI.Configured())
	assert.Equal(t, "from-env", cfg.AI.Model)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
}

func TestLoadConfigRejectsWeakSecretInRelease(t *testing.T) {
	dir := writeConfig(t, "server:\n  mode: release\njwt:\n  secret: short\nstorage:\n  type: minio\n")

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "minio")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.Mode)
}

func TestDSN(t *testing.T) {
	dsn, err := DatabaseConfig{Driver: "postgres", Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "host=h user=u password=p dbname=d port=5432 sslmode=disable", dsn)

	dsn, err = DatabaseConfig{Driver: "sqlite"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "file::memory:?cache=shared", dsn)

	_, err = DatabaseConfig{Driver: "oracle"}.DSN()
	assert.Error(t, err)
}
