package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv.
const (
	EnvHTTPAddr            = "LINGO_HTTP_ADDR"
	EnvDatabaseDSN         = "LINGO_DATABASE_DSN"
	EnvSecretKey           = "LINGO_SECRET_KEY"
	EnvAccessTokenTTL      = "LINGO_ACCESS_TOKEN_TTL"
	EnvRefreshTokenTTL     = "LINGO_REFRESH_TOKEN_TTL"
	EnvDesktopCodeTTL      = "LINGO_DESKTOP_CODE_TTL"
	EnvRedisAddr           = "LINGO_REDIS_ADDR"
	EnvLoginRateLimit      = "LINGO_LOGIN_RATE_LIMIT"
	EnvLoginRateWindow     = "LINGO_LOGIN_RATE_WINDOW"
	EnvMaxConcurrentHashes = "LINGO_MAX_CONCURRENT_HASHES"
	EnvLogLevel            = "LINGO_LOG_LEVEL"
)

// dotenvFiles is a test seam for the .env files loaded before reading the
// environment.
var dotenvFiles = []string{".env"}

// parseEnv overlays LINGO_* environment variables onto config. Variables in
// a .env file in the working directory are loaded first but never override
// ones already set in the process environment. Durations use Go syntax
// ("15m"). Unparseable values panic.
func parseEnv(config *Config) {
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				panic(fmt.Errorf("load %s: %w", f, err))
			}
		}
	}

	envString(EnvHTTPAddr, &config.EndpointAddrHTTP)
	envString(EnvDatabaseDSN, &config.DatabaseDSN)
	envString(EnvSecretKey, &config.SecretKey)
	envString(EnvRedisAddr, &config.RedisAddr)
	envString(EnvLogLevel, &config.LogLevel)

	envDuration(EnvAccessTokenTTL, &config.AccessTokenValidityDuration)
	envDuration(EnvRefreshTokenTTL, &config.RefreshTokenValidityDuration)
	envDuration(EnvDesktopCodeTTL, &config.DesktopCodeValidityDuration)
	envDuration(EnvLoginRateWindow, &config.LoginRateWindow)

	envInt(EnvLoginRateLimit, &config.LoginRateLimit)
	envInt(EnvMaxConcurrentHashes, &config.MaxConcurrentHashes)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envDuration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = d
}

func envInt(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = n
}
