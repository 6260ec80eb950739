package config

import (
	"fmt"
	"os"
	"time"
)

// TierPolicy is everything the core derives from a subscription tier:
// submissions per hour and how long completed results stay fresh.
type TierPolicy struct {
	ScansPerHour int
	CacheTTL     time.Duration
}

type Config struct {
	Env           string
	ListenAddr    string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NatsURL       string
	ScanWorkers   int
	ScanTimeout   time.Duration
	MaxQueueDepth int
	PollInterval  time.Duration
	Tiers         map[string]TierPolicy
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		if _, err := fmt.Sscanf(v, "%d", &out); err == nil {
			return out
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func Load() (Config, error) {
	cfg := Config{
		Env:           getenv("APP_ENV", "development"),
		ListenAddr:    getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),
		NatsURL:       os.Getenv("NATS_URL"),
		ScanWorkers:   getenvInt("SCAN_WORKERS", 4),
		ScanTimeout:   getenvDuration("SCAN_TIMEOUT", 300*time.Second),
		MaxQueueDepth: getenvInt("MAX_QUEUE_DEPTH", 100),
		PollInterval:  getenvDuration("POLL_INTERVAL", 500*time.Millisecond),
		Tiers: map[string]TierPolicy{
			"free":       {ScansPerHour: getenvInt("TIER_FREE_SCANS", 25), CacheTTL: getenvDuration("TIER_FREE_TTL", 24 * time.Hour)},
			"pro":        {ScansPerHour: getenvInt("TIER_PRO_SCANS", 100), CacheTTL: getenvDuration("TIER_PRO_TTL", 6 * time.Hour)},
			"enterprise": {ScansPerHour: getenvInt("TIER_ENTERPRISE_SCANS", 1000), CacheTTL: getenvDuration("TIER_ENTERPRISE_TTL", time.Hour)},
		},
	}
	if cfg.DatabaseURL == "" {
		// Not fatal for early local runs; warn via error value so callers can decide.
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

// TierPolicy resolves a tier name; unknown tiers get the free policy, which
// is the most restrictive.
func (c Config) TierPolicy(tier string) TierPolicy {
	if p, ok := c.Tiers[tier]; ok {
		return p
	}
	return c.Tiers["free"]
}

// LimitFor and TTLFor are the two shapes the store adapters want.
func (c Config) LimitFor(tier string) int { return c.TierPolicy(tier).ScansPerHour }
func (c Config) TTLFor(tier string) time.Duration { return c.TierPolicy(tier).CacheTTL }
