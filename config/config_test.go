package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	conf, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, conf.DataDir)
	assert.Equal(t, "localhost:8080", conf.Addr())
	assert.Equal(t, 5*time.Minute, conf.CacheTTL())
	assert.Equal(t, 30*time.Second, conf.Timeout())
	assert.Equal(t, slog.LevelInfo, conf.SlogLevel())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	body := `{"instance_name": "malawi", "port": 9000, "rate_limit": 5, "cache_ttl_seconds": 0, "log_level": "DEBUG"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644))

	conf, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "malawi", conf.InstanceName)
	assert.Equal(t, "localhost:9000", conf.Addr())
	assert.Equal(t, 5, conf.RateLimit)
	assert.Zero(t, conf.CacheTTL())
	assert.Equal(t, slog.LevelDebug, conf.SlogLevel())
	assert.Equal(t, 6, conf.LegendSteps)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"port": "x"}`), 0o644))

	_, err := Load(dir)
	assert.ErrorContains(t, err, "failed to read config.json")
}
