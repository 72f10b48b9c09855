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

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vidsheet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 100.0, cfg.ReadoutMs)
	assert.False(t, cfg.ShowAllSources)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "", cfg.DB)
	assert.Equal(t, 100*time.Millisecond, cfg.ReadoutInterval())
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	path := writeConfig(t, `
readout_ms: 250
show_all_sources: true
log_level: debug
db: sessions.db
`)
	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, 250.0, cfg.ReadoutMs)
	assert.True(t, cfg.ShowAllSources)
	assert.Equal(t, "sessions.db", cfg.DB)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "readout_ms: 250\n")
	t.Setenv("VIDSHEET_READOUT_MS", "40")
	t.Setenv("VIDSHEET_DB", "env.db")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 40.0, cfg.ReadoutMs)
	assert.Equal(t, "env.db", cfg.DB)
}

func TestLoad_SetOverridesEverything(t *testing.T) {
	v := New()
	v.Set(KeyShowAllSources, true)

	cfg, err := Load(v, writeConfig(t, "show_all_sources: false\n"))
	require.NoError(t, err)
	assert.True(t, cfg.ShowAllSources)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(New(), writeConfig(t, "readout_ms: -5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "readout_ms must be >= 0")

	_, err = Load(New(), writeConfig(t, "log_level: loud\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}
