package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_http":              "www.example:9000",
		"database_dsn":                    "lingo.db",
		"secret_key":                      "my_secret_key",
		"access_token_validity_duration":  "1m",
		"refresh_token_validity_duration": "3m",
		"desktop_code_validity_duration":  "30s",
		"redis_addr":                      "redis:6379",
		"login_rate_limit":                5,
		"login_rate_window":               "10s",
		"max_concurrent_hashes":           2,
		"log_level":                       "debug",
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-config", path})

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "lingo.db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 3*time.Minute, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 30*time.Second, cfg.DesktopCodeValidityDuration)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, 5, cfg.LoginRateLimit)
		assert.Equal(t, 10*time.Second, cfg.LoginRateWindow)
		assert.Equal(t, 2, cfg.MaxConcurrentHashes)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("short flag", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-c", path})
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
	})

	t.Run("absent fields keep previous values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{
			"secret_key": "only_this",
		})

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-c", partial})

		assert.Equal(t, "only_this", cfg.SecretKey)
		assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
		assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	})

	t.Run("no config flag is a no-op", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		want := *cfg

		parseJson(cfg, []string{"-a", ":1"})
		assert.Equal(t, want, *cfg)
	})
}

func Test_parseJson_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := &Config{}
		assert.Panics(t, func() {
			parseJson(cfg, []string{"-c", filepath.Join(t.TempDir(), "nope.json")})
		})
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

		cfg := &Config{}
		assert.Panics(t, func() { parseJson(cfg, []string{"-c", path}) })
	})

	t.Run("invalid duration", func(t *testing.T) {
		path := writeTempJSON(t, "", "", map[string]any{
			"access_token_validity_duration": "soon",
		})

		cfg := &Config{}
		assert.Panics(t, func() { parseJson(cfg, []string{"-c", path}) })
	})
}
