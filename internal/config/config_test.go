package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 4, cfg.Crawler.WorkersPerJob)
	require.Equal(t, "pagelens-crawler/0.1", cfg.Crawler.UserAgent)
	require.False(t, cfg.Crawler.RespectRobots)
	require.Equal(t, 1, cfg.Crawler.MaxDepthDefault)
	require.Equal(t, 50, cfg.Crawler.MaxPagesDefault)
	require.Equal(t, 2.0, cfg.Crawler.RateDefault)
	require.Equal(t, 30*time.Second, cfg.FetchTimeout())
	require.Equal(t, int64(10<<20), cfg.HTTP.MaxBodyBytes)
	require.Equal(t, "job", cfg.Limiter.Scope)
	require.False(t, cfg.Auth.Enabled)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
crawler:
  workers_per_job: 8
  user_agent: custom-agent/2.0
limiter:
  scope: global
  global_rps: 25
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 8, cfg.Crawler.WorkersPerJob)
	require.Equal(t, "custom-agent/2.0", cfg.Crawler.UserAgent)
	require.Equal(t, "global", cfg.Limiter.Scope)
	require.Equal(t, 25.0, cfg.Limiter.GlobalRPS)
	// Untouched keys keep their defaults.
	require.Equal(t, 50, cfg.Crawler.MaxPagesDefault)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CRAWLER_SERVER_PORT", "7070")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	t.Run("zero port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("zero workers", func(t *testing.T) {
		cfg := base()
		cfg.Crawler.WorkersPerJob = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("zero timeout", func(t *testing.T) {
		cfg := base()
		cfg.HTTP.TimeoutSeconds = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("bad limiter scope", func(t *testing.T) {
		cfg := base()
		cfg.Limiter.Scope = "per-host"
		require.Error(t, cfg.Validate())
	})

	t.Run("global scope needs rps", func(t *testing.T) {
		cfg := base()
		cfg.Limiter.Scope = "global"
		cfg.Limiter.GlobalRPS = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("auth enabled needs key", func(t *testing.T) {
		cfg := base()
		cfg.Auth.Enabled = true
		cfg.Auth.APIKey = ""
		require.Error(t, cfg.Validate())
	})
}
