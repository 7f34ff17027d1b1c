package claimapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls API behavior and abuse limits.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	GlobalLimit int
	IPLimit     int
	WalletLimit int
	RateWindow  time.Duration
}

// LoadConfigFromEnv loads API config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:   envBool("FAIRDROP_API_TRUST_PROXY", false),
		MaxBodyBytes: envInt64("FAIRDROP_API_MAX_BODY_BYTES", 1<<20), // 1 MiB
		GlobalLimit:  envInt("FAIRDROP_API_GLOBAL_LIMIT", 500),
		IPLimit:      envInt("FAIRDROP_API_IP_LIMIT", 30),
		WalletLimit:  envInt("FAIRDROP_API_WALLET_LIMIT", 10),
		RateWindow:   envDuration("FAIRDROP_API_RATE_WINDOW", time.Minute),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.GlobalLimit <= 0 {
		cfg.GlobalLimit = 500
	}
	if cfg.IPLimit <= 0 {
		cfg.IPLimit = 30
	}
	if cfg.WalletLimit <= 0 {
		cfg.WalletLimit = 10
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}

	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
