package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/lingokeeper/internal/flagx"
	"github.com/dmitrijs2005/lingokeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Duration fields accept
// "15m"-style strings or integer nanoseconds. Absent fields keep the value
// they had before the file was read.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	DesktopCodeValidityDuration  *timex.Duration `json:"desktop_code_validity_duration"`
	RedisAddr                    *string         `json:"redis_addr"`
	LoginRateLimit               *int            `json:"login_rate_limit"`
	LoginRateWindow              *timex.Duration `json:"login_rate_window"`
	MaxConcurrentHashes          *int            `json:"max_concurrent_hashes"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config in args, if any, and copies
// the fields it sets into config. An unreadable file or invalid JSON panics,
// since the server must not start on a half-applied configuration.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.DesktopCodeValidityDuration != nil {
		config.DesktopCodeValidityDuration = c.DesktopCodeValidityDuration.Duration
	}
	if c.LoginRateWindow != nil {
		config.LoginRateWindow = c.LoginRateWindow.Duration
	}
	if c.LoginRateLimit != nil {
		config.LoginRateLimit = *c.LoginRateLimit
	}
	if c.MaxConcurrentHashes != nil {
		config.MaxConcurrentHashes = *c.MaxConcurrentHashes
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
