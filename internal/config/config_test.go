package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"POPDASH_DATA", "POPDASH_ADDR", "POPDASH_LOG_LEVEL", "POPDASH_WATCH"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "Cleaned_Philippine_Population.csv", cfg.DataPath)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "Philippine Population Dashboard", cfg.Server.Title)
	assert.Equal(t, "png", cfg.Charts.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "popdash.yaml")

	cfg := DefaultConfig()
	cfg.DataPath = "/data/pop.csv"
	cfg.Server.ShutdownTimeout = 3 * time.Second
	cfg.Charts.Format = "svg"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "popdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\nlogging:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched fields keep their defaults.
	assert.Equal(t, "Philippine Population Dashboard", cfg.Server.Title)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("POPDASH_DATA", "/tmp/x.csv")
	t.Setenv("POPDASH_ADDR", "127.0.0.1:1")
	t.Setenv("POPDASH_WATCH", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.csv", cfg.DataPath)
	assert.Equal(t, "127.0.0.1:1", cfg.Server.Addr)
	assert.False(t, cfg.Watch)

	t.Setenv("POPDASH_WATCH", "maybe")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("charts:\n  format: gif\n  width: -1\n"), 0o644))
	_, err := Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charts.format")
	assert.Contains(t, err.Error(), "charts size")

	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("server: [\n"), 0o644))
	_, err = Load(garbage)
	assert.Error(t, err)
}
