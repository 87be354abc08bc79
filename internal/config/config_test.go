package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ModeOffline, cfg.Mode)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 8*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.EnableLocalAuth)
	assert.Equal(t, 0.001, cfg.MathTolerance)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3010", "http://localhost:3020"}, cfg.CORSOrigins())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://db/classroom")
	t.Setenv("MATH_TOLERANCE", "0.05")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , https://b.example ,")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ModeOnline, cfg.Mode)
	assert.False(t, cfg.EnableLocalAuth)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://db/classroom", cfg.DBDSN)
	assert.Equal(t, 0.05, cfg.MathTolerance)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classroom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9090\"\ntoken_ttl: 30m\nlog_level: debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsNegativeTolerance(t *testing.T) {
	t.Setenv("MATH_TOLERANCE", "-1")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classroom.env")
	require.NoError(t, os.WriteFile(path, []byte("SITE_ID=lab-2\nLOGIN_RATE_PER_MINUTE=3\nHTTP_ADDR=:7000\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("HTTP_ADDR", ":7001")
	t.Cleanup(func() {
		os.Unsetenv("SITE_ID")
		os.Unsetenv("LOGIN_RATE_PER_MINUTE")
	})

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "lab-2", cfg.SiteID)
	assert.Equal(t, 3, cfg.LoginRatePerMinute)
	// real environment wins over the file
	assert.Equal(t, ":7001", cfg.HTTPAddr)
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.SiteID)
	assert.Equal(t, 10, cfg.LoginRatePerMinute)
}
