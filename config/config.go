package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	RedisURL      string
	StoragePrefix string
	ChannelName   string
	// PollInterval enables the polling fallback when > 0. The pub/sub
	// relay is disabled in that case and subscribers see up to one
	// interval of cross-process latency.
	PollInterval time.Duration
	MaxTextLen   int
	// IdentityClientID configures the external identity handshake.
	// Empty means the handshake is not set up and sign-in with an
	// external provider is rejected up front.
	IdentityClientID string
}

func Load() Config {
	return Config{
		RedisURL:         getenv("ATAA_REDIS_URL", "redis://localhost:6379/0"),
		StoragePrefix:    getenv("ATAA_STORAGE_PREFIX", "ataa_db_"),
		ChannelName:      getenv("ATAA_CHANNEL", "ataa_realtime_channel"),
		PollInterval:     time.Duration(getenvInt("ATAA_POLL_INTERVAL_MS", 0)) * time.Millisecond,
		MaxTextLen:       getenvInt("ATAA_MAX_TEXT", 1000),
		IdentityClientID: getenv("ATAA_IDENTITY_CLIENT_ID", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
