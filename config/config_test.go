package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	return Load("test", io.Discard, args)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 4, cfg.Workers)
	assert.Zero(t, cfg.QueueCapacity)
	assert.Zero(t, cfg.ReadTimeout)
	assert.Zero(t, cfg.WriteTimeout)
	assert.Equal(t, 1<<20, cfg.MaxBodyBytes)
	assert.False(t, cfg.ReusePort)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "development", cfg.Env)
	assert.Empty(t, cfg.LogLevel)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WORKERS", "16")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("APP_ENV", "production")
	t.Setenv("REUSE_PORT", "true")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "production", cfg.Env)
	assert.True(t, cfg.ReusePort)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WORKERS", "16")

	cfg, err := load(t, "-port", "7000", "-queue=32", "-write-timeout", "500ms")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, 32, cfg.QueueCapacity)
	assert.Equal(t, 500*time.Millisecond, cfg.WriteTimeout)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8181\nworkers: 2\nlog_level: warn\n"), 0o600))

	cfg, err := load(t, "-config", path, "-workers", "3")
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Port)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Env)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(t, "-config="+filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadFlag(t *testing.T) {
	_, err := load(t, "-port", "not-a-number")
	assert.Error(t, err)

	_, err = load(t, "-unknown")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Port: 8080, Workers: 4, Env: "development"}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative port", func(c *Config) { c.Port = -1 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative queue", func(c *Config) { c.QueueCapacity = -1 }},
		{"negative timeout", func(c *Config) { c.ReadTimeout = -time.Second }},
		{"negative body limit", func(c *Config) { c.MaxBodyBytes = -1 }},
		{"unknown env", func(c *Config) { c.Env = "staging" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
