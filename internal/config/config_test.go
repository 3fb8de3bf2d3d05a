package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_ENV", "nonexistent")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "release", cfg.Mode)
	require.Equal(t, "http://localhost:8000", cfg.BackendURL)
	require.Equal(t, "ws://localhost:8080/api/ws/signal", cfg.MediaURL)
	require.Equal(t, "main", cfg.Room)
	require.Equal(t, "silence", cfg.CaptureSource)
	require.Equal(t, "info", cfg.LogLevel)
	require.NotEmpty(t, cfg.CredentialsPath)
	require.Equal(t, 8000, cfg.DevServer.Port)
	require.Equal(t, 24*time.Hour, cfg.DevServer.AccessTTL)
	require.Equal(t, time.Hour, cfg.DevServer.MediaTTL)
}

func TestLoadFromFile(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("CONFIG_ENV", "test")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := []byte(`
mode: debug
backend_url: http://backend.test:9000
room: lobby
capture_source: ogg
capture_ogg_path: /tmp/sample.ogg
dev_server:
  port: 9001
  media_ttl: 30m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Mode)
	require.Equal(t, "http://backend.test:9000", cfg.BackendURL)
	require.Equal(t, "lobby", cfg.Room)
	require.Equal(t, "ogg", cfg.CaptureSource)
	require.Equal(t, "/tmp/sample.ogg", cfg.CaptureOggPath)
	require.Equal(t, 9001, cfg.DevServer.Port)
	require.Equal(t, 30*time.Minute, cfg.DevServer.MediaTTL)
	// unset keys keep their defaults
	require.Equal(t, "ws://localhost:8080/api/ws/signal", cfg.MediaURL)
}

func TestEnvOverridesFileAndDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_ENV", "nonexistent")
	t.Setenv("VOICE_BACKEND_URL", "http://env.test:8123")
	t.Setenv("VOICE_MEDIA_URL", "ws://env.test:8124/signal")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://env.test:8123", cfg.BackendURL)
	require.Equal(t, "ws://env.test:8124/signal", cfg.MediaURL)
}
