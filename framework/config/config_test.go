package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-container/framework/config"
)

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_NAME", "APP_ENV", "DEBUG_ADDR", "LOG_LEVEL", "LOG_OUTPUT_PATHS", "METRICS_ENABLED", "CONTAINER_WARM"} {
		t.Setenv(k, "")
	}
	cfg := config.Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "GoContainer", cfg.App.Name)
	assert.Equal(t, "local", cfg.App.Env)
	assert.Equal(t, ":8000", cfg.App.DebugAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"stdout"}, cfg.Log.OutputPaths)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Container.Warm)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("APP_NAME", "MyApp")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_OUTPUT_PATHS", "stdout,/tmp/app.log")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("CONTAINER_MANIFEST", "services.yaml")
	t.Setenv("CONTAINER_WARM", "1")

	cfg := config.Load()

	assert.Equal(t, "MyApp", cfg.App.Name)
	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"stdout", "/tmp/app.log"}, cfg.Log.OutputPaths)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "services.yaml", cfg.Container.Manifest)
	assert.True(t, cfg.Container.Warm)
}

func TestLoad_DotEnvFile(t *testing.T) {
	t.Setenv("APP_NAME", "")
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_NAME=FromDotEnv\n"), 0o600))
	// godotenv never overrides variables that already exist
	require.NoError(t, os.Unsetenv("APP_NAME"))
	t.Cleanup(func() { os.Unsetenv("APP_NAME") })

	cfg := config.Load(path)
	assert.Equal(t, "FromDotEnv", cfg.App.Name)
}

func TestLoadFile_YAMLThenEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("LOG_LEVEL", "warn")
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: yaml-app
  env: testing
log:
  level: debug
container:
  manifest: graph.yaml
  warm: true
`), 0o600))

	cfg, err := config.LoadFile(path, filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.Equal(t, "yaml-app", cfg.App.Name)
	assert.Equal(t, "testing", cfg.App.Env)
	assert.Equal(t, "warn", cfg.Log.Level, "env wins over file")
	assert.Equal(t, "graph.yaml", cfg.Container.Manifest)
	assert.True(t, cfg.Container.Warm)
	assert.Equal(t, ":8000", cfg.App.DebugAddr, "defaults kept for missing keys")
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: [unterminated"), 0o600))
	_, err = config.LoadFile(path)
	assert.Error(t, err)
}

// ── Get / GetInt / GetBool ───────────────────────────────────────────────────

func TestGet(t *testing.T) {
	t.Setenv("CUSTOM_KEY", "hello")
	assert.Equal(t, "hello", config.Get("CUSTOM_KEY", "default"))
	assert.Equal(t, "fallback", config.Get("MISSING_KEY_FOR_TEST", "fallback"))
}

func TestGetInt(t *testing.T) {
	t.Setenv("SOME_INT", "42")
	assert.Equal(t, 42, config.GetInt("SOME_INT", 0))

	t.Setenv("SOME_INT", "notanint")
	assert.Equal(t, 99, config.GetInt("SOME_INT", 99))
}

func TestGetBool(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		t.Setenv("BOOL_KEY", val)
		assert.True(t, config.GetBool("BOOL_KEY", false), val)
	}
	t.Setenv("BOOL_KEY", "false")
	assert.False(t, config.GetBool("BOOL_KEY", true))

	t.Setenv("BOOL_KEY", "notabool")
	assert.True(t, config.GetBool("BOOL_KEY", true))
}
