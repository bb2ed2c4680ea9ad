package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/incoming", cfg.Dirs.Incoming)
	assert.Equal(t, "data/process", cfg.Dirs.Process)
	assert.Equal(t, "data/output", cfg.Dirs.Output)
	assert.Equal(t, "config/rules.json", cfg.Docs.Rules)
	assert.Equal(t, "config/columns_metadata.json", cfg.Docs.Columns)
	assert.Equal(t, "config/settings.json", cfg.Docs.Settings)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "data/dedup_mapping.json", cfg.Store.Path)
	assert.Equal(t, "", cfg.Quality.MetadataDB)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentFiles)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.RatePerSecond)
	assert.Equal(t, 50, cfg.Server.MaxUploadMiB)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	doc := map[string]any{
		"store":  map[string]any{"driver": "sqlite", "path": "state/dedup.db"},
		"log":    map[string]any{"level": "debug", "format": "console"},
		"server": map[string]any{"port": 9090},
		"batch":  map[string]any{"max_concurrent_files": 8},
	}
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "state/dedup.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrentFiles)
	// Defaults still apply for unset values
	assert.Equal(t, "data/incoming", cfg.Dirs.Incoming)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yamlDoc := "store:\n  driver: sqlite\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlDoc), 0o644))

	t.Setenv("MATCHKEY_STORE_DRIVER", "postgres")
	t.Setenv("MATCHKEY_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("MATCHKEY_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "file"
	cfg.Store.Path = "data/dedup_mapping.json"
	cfg.Batch.MaxConcurrentFiles = 4
	cfg.Server.Port = 8080
	cfg.Server.RatePerSecond = 10
	cfg.Server.MaxUploadMiB = 50
	return cfg
}

func TestValidateStoreDriver(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("match"))

	cfg.Store.Driver = "postgres"
	err := cfg.Validate("match")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/matchkey"
	assert.NoError(t, cfg.Validate("match"))

	cfg.Store.Driver = "redis"
	err = cfg.Validate("match")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be")

	cfg.Store.Driver = "file"
	cfg.Store.Path = ""
	err = cfg.Validate("match")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateBatchConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.MaxConcurrentFiles = 0
	err := cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_files must be between 1 and 32")

	cfg.Batch.MaxConcurrentFiles = 33
	err = cfg.Validate("batch")
	assert.Error(t, err)

	cfg.Batch.MaxConcurrentFiles = 32
	assert.NoError(t, cfg.Validate("batch"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
