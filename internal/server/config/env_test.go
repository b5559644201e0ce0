package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDotenv(t *testing.T, files ...string) {
	t.Helper()
	orig := dotenvFiles
	dotenvFiles = files
	t.Cleanup(func() { dotenvFiles = orig })
}

func TestParseEnv(t *testing.T) {
	withDotenv(t)

	t.Setenv(EnvHTTPAddr, ":9999")
	t.Setenv(EnvDatabaseDSN, "postgres://env")
	t.Setenv(EnvSecretKey, "env-secret")
	t.Setenv(EnvAccessTokenTTL, "90s")
	t.Setenv(EnvRefreshTokenTTL, "48h")
	t.Setenv(EnvDesktopCodeTTL, "2m")
	t.Setenv(EnvRedisAddr, "redis:6379")
	t.Setenv(EnvLoginRateLimit, "3")
	t.Setenv(EnvLoginRateWindow, "15s")
	t.Setenv(EnvMaxConcurrentHashes, "6")
	t.Setenv(EnvLogLevel, "warn")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, ":9999", cfg.EndpointAddrHTTP)
	assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, 90*time.Second, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 48*time.Hour, cfg.RefreshTokenValidityDuration)
	assert.Equal(t, 2*time.Minute, cfg.DesktopCodeValidityDuration)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.LoginRateLimit)
	assert.Equal(t, 15*time.Second, cfg.LoginRateWindow)
	assert.Equal(t, 6, cfg.MaxConcurrentHashes)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestParseEnv_UnsetKeepsDefaults(t *testing.T) {
	withDotenv(t)

	cfg := &Config{}
	cfg.LoadDefaults()
	want := *cfg

	for _, k := range []string{EnvHTTPAddr, EnvSecretKey, EnvAccessTokenTTL, EnvLoginRateLimit} {
		if v, ok := os.LookupEnv(k); ok {
			t.Setenv(k, v)
			require.NoError(t, os.Unsetenv(k))
		}
	}

	parseEnv(cfg)
	assert.Equal(t, want, *cfg)
}

func TestParseEnv_DotenvDoesNotOverrideProcessEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"LINGO_LOG_LEVEL=debug\nLINGO_REDIS_ADDR=from-file:6379\n"), 0o600))
	withDotenv(t, path)

	t.Setenv(EnvLogLevel, "error")
	// godotenv.Load sets variables in the process; register them for cleanup.
	t.Setenv(EnvRedisAddr, "")
	require.NoError(t, os.Unsetenv(EnvRedisAddr))

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "from-file:6379", cfg.RedisAddr)
}

func TestParseEnv_InvalidValuesPanic(t *testing.T) {
	withDotenv(t)

	t.Run("duration", func(t *testing.T) {
		t.Setenv(EnvAccessTokenTTL, "soon")
		cfg := &Config{}
		assert.Panics(t, func() { parseEnv(cfg) })
	})

	t.Run("int", func(t *testing.T) {
		t.Setenv(EnvLoginRateLimit, "many")
		cfg := &Config{}
		assert.Panics(t, func() { parseEnv(cfg) })
	})
}
