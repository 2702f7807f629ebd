package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: "9090"
database:
  driver: sqlite
  path: %s
download:
  dir: %s
  timeout: 15s
regions:
  geojson_path: data/regions.geojson
imports:
  permits:
    list_url: https://example.test/permits
  stations:
    list_url: https://example.test/stations
    chunk_size: 250
operators:
  - key: orange
    mnc: 3
    name: Orange
  - key: plus
    mnc: 1
    name: Plus
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := []byte(fmt.Sprintf(sampleYAML, filepath.Join(dir, "db", "permits.db"), filepath.Join(dir, "downloads")))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, body, 0o644))
	return path
}

func TestLoad_DefaultsAndParsing(t *testing.T) {
	path := writeConfig(t)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 15*time.Second, cfg.Download.Timeout)
	assert.Equal(t, "code", cfg.Regions.CodeProperty)
	assert.Equal(t, "name", cfg.Regions.NameProperty)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.DirExists(t, cfg.Download.Dir)

	permits, ok := cfg.Import("permits")
	require.True(t, ok)
	assert.Equal(t, DefaultChunkSize, permits.ChunkSize)

	stations, ok := cfg.Import("stations")
	require.True(t, ok)
	assert.Equal(t, 250, stations.ChunkSize)

	_, ok = cfg.Import("unknown")
	assert.False(t, ok)

	assert.Equal(t, []string{"orange", "plus"}, cfg.OperatorKeys())
	op, ok := cfg.Operator("ORANGE")
	require.True(t, ok)
	assert.Equal(t, 3, op.MNC)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t)
	t.Setenv("PERMITSYNC_DB_DRIVER", "MySQL")
	t.Setenv("PERMITSYNC_DB_HOST", "db.internal")
	t.Setenv("PERMITSYNC_DB_PASSWORD", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "3306", cfg.Database.Port)
}

func TestLoad_BadTimeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  timeout: soon\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadConfig_SetsAppConfig(t *testing.T) {
	path := writeConfig(t)
	t.Cleanup(func() { AppConfig = Config{} })

	require.NoError(t, LoadConfig(path))
	assert.Equal(t, "9090", AppConfig.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
