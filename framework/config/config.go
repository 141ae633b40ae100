package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Container ContainerConfig `yaml:"container"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"` // local | production | testing
	Debug     bool   `yaml:"debug"`
	DebugAddr string `yaml:"debug_addr"`
}

type LogConfig struct {
	Level       string   `yaml:"level"`
	Encoding    string   `yaml:"encoding"` // json | console
	OutputPaths []string `yaml:"output_paths"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

type ContainerConfig struct {
	// Manifest is an optional YAML dump of the service graph.
	Manifest string `yaml:"manifest"`
	// Warm builds every shared service during boot.
	Warm bool `yaml:"warm"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "GoContainer",
			Env:       "local",
			Debug:     true,
			DebugAddr: ":8000",
		},
		Log: LogConfig{
			Level:       "info",
			Encoding:    "json",
			OutputPaths: []string{"stdout"},
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "container",
		},
	}
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	cfg := Default()
	applyEnv(cfg)
	return cfg
}

// LoadFile reads a YAML file over the defaults, then applies .env and
// environment overrides. Environment wins over the file.
func LoadFile(path string, envFiles ...string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	_ = godotenv.Load(files...)
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.App.Name = env("APP_NAME", cfg.App.Name)
	cfg.App.Env = env("APP_ENV", cfg.App.Env)
	cfg.App.Debug = envBool("APP_DEBUG", cfg.App.Debug)
	cfg.App.DebugAddr = env("DEBUG_ADDR", cfg.App.DebugAddr)

	cfg.Log.Level = env("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Encoding = env("LOG_ENCODING", cfg.Log.Encoding)
	if v := os.Getenv("LOG_OUTPUT_PATHS"); v != "" {
		cfg.Log.OutputPaths = strings.Split(v, ",")
	}

	cfg.Metrics.Enabled = envBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Namespace = env("METRICS_NAMESPACE", cfg.Metrics.Namespace)

	cfg.Container.Manifest = env("CONTAINER_MANIFEST", cfg.Container.Manifest)
	cfg.Container.Warm = envBool("CONTAINER_WARM", cfg.Container.Warm)
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
