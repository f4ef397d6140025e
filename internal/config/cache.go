package config

import (
	"os"
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware that fronts
// the statistics endpoints. When Enabled is false or no Redis client is
// configured, caching is disabled. KeyStrategy determines which parts of the
// request contribute to the cache key.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables. Defaults are used when variables
// are not set or invalid.
func LoadCacheConfig() CacheConfig {
	p := parser{lookup: os.LookupEnv}
	return CacheConfig{
		Enabled:      p.boolean("CACHE_ENABLED", true),
		Methods:      parseMethods(p.str("CACHE_METHODS", "GET")),
		TTL:          p.dur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  p.str("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       p.str("CACHE_PREFIX", "bank-cache"),
		MaxBodyBytes: p.integer("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, part := range splitList(s) {
		m[strings.ToUpper(part)] = true
	}
	return m
}
