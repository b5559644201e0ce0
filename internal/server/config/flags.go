package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-k int      desktop code validity, minutes
//	-e string   Redis address for rate limiting
//	-n int      login attempts allowed per window
//	-w int      rate limit window, seconds
//	-j int      max concurrent password hashes
//	-l string   log level
//
// Only the flags listed above are considered, so flags belonging to other
// components (e.g. -c) do not cause parse errors.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-r", "-k", "-e", "-n", "-w", "-j", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidity := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	desktopCodeValidity := fs.Int("k", int(config.DesktopCodeValidityDuration.Minutes()), "desktop code validity (in minutes)")

	fs.StringVar(&config.RedisAddr, "e", config.RedisAddr, "redis address for rate limiting")
	fs.IntVar(&config.LoginRateLimit, "n", config.LoginRateLimit, "login attempts per window")
	rateWindow := fs.Int("w", int(config.LoginRateWindow.Seconds()), "rate limit window (in seconds)")
	fs.IntVar(&config.MaxConcurrentHashes, "j", config.MaxConcurrentHashes, "max concurrent password hashes")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Durations are only overwritten when their flag was given, so sub-minute
	// values coming from JSON or the environment survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidity) * time.Minute
		case "k":
			config.DesktopCodeValidityDuration = time.Duration(*desktopCodeValidity) * time.Minute
		case "w":
			config.LoginRateWindow = time.Duration(*rateWindow) * time.Second
		}
	})
}
