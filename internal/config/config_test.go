package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sibya/sibya/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, "mongodb", cfg.Database.Type)
	assert.Equal(t, "Sibya", cfg.Database.Name)
	assert.Empty(t, cfg.Database.URI)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "public/uploads", cfg.Storage.Local.BasePath)
	assert.Equal(t, "/uploads", cfg.Storage.URLPrefix)
	assert.Equal(t, int64(5*1024*1024), cfg.Storage.MaxFileSize)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/gif"}, cfg.Storage.AllowedContentTypes)
	assert.Equal(t, "24h", cfg.Security.JWTExpiration)
}

func TestLoad(t *testing.T) {
	t.Run("Missing file falls back to defaults", func(t *testing.T) {
		chdir(t, t.TempDir())

		cfg, err := config.Load(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, "Sibya", cfg.Database.Name)
	})

	t.Run("File values are read and defaults fill the gaps", func(t *testing.T) {
		chdir(t, t.TempDir())
		dir := t.TempDir()
		body := `{"port": 8080, "database": {"type": "sqlite", "uri": "dev.db"}, "storage": {"maxFileSize": 1024}}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0o600))

		cfg, err := config.Load(dir)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "sqlite", cfg.Database.Type)
		assert.Equal(t, "dev.db", cfg.Database.URI)
		assert.Equal(t, int64(1024), cfg.Storage.MaxFileSize)
		assert.Equal(t, "/uploads", cfg.Storage.URLPrefix)
	})

	t.Run("Environment overrides file", func(t *testing.T) {
		chdir(t, t.TempDir())
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"database": {"uri": "mongodb://file"}}`), 0o600))
		t.Setenv("MONGODB_URI", "mongodb://env:27017")
		t.Setenv("SIBYA_PORT", "9090")
		t.Setenv("JWT_SECRET", "s3cret")

		cfg, err := config.Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "mongodb://env:27017", cfg.Database.URI)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, "s3cret", cfg.Security.JWTSecret)
	})

	t.Run(".env file is loaded", func(t *testing.T) {
		chdir(t, t.TempDir())
		require.NoError(t, os.WriteFile(".env", []byte("WEBHOOK_SECRET=whsec_dGVzdA==\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("WEBHOOK_SECRET") })

		cfg, err := config.Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "whsec_dGVzdA==", cfg.Security.WebhookSecret)
		assert.True(t, cfg.Security.HasWebhookSecret())
	})

	t.Run("Invalid port", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("SIBYA_PORT", "eighty")

		_, err := config.Load(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("Malformed file", func(t *testing.T) {
		chdir(t, t.TempDir())
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0o600))

		_, err := config.Load(dir)
		assert.Error(t, err)
	})
}

func TestLocation(t *testing.T) {
	cfg := config.DefaultConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Timezone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Timezone = "Mars/Olympus_Mons"
	_, err = cfg.Location()
	assert.Error(t, err)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
