package config

import (
    "os"
    "strconv"
    "time"
)

// CacheConfig tunes the browse response cache.  When Enabled is false
// or no Redis client is configured, caching is disabled.  The cache
// fronts the read-only browse endpoints and keeps two freshness tiers:
// LiveTTL for payloads that mirror the ledger (availability, category
// remainders, seat statuses), CatalogTTL for back-office catalogue
// metadata that changes rarely.
type CacheConfig struct {
    Enabled      bool
    LiveTTL      time.Duration
    CatalogTTL   time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      getenv("CACHE_ENABLED", "true") == "true",
        LiveTTL:      parseDur(getenv("CACHE_LIVE_TTL", "5s")),
        CatalogTTL:   parseDur(getenv("CACHE_CATALOG_TTL", "60s")),
        Prefix:       getenv("CACHE_PREFIX", "browse"),
        MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
    }
}

// Helper functions shared with config.go, redis.go and ratelimit.go.
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func atoi(s string) int {
    i, _ := strconv.Atoi(s)
    return i
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
