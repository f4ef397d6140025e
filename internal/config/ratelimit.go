package config

import (
	"os"
	"time"
)

// RateLimitConfig configures the Redis token bucket in front of the
// authentication endpoints.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
	p := parser{lookup: os.LookupEnv}
	def := RateLimitConfig{
		Enabled:        p.boolean("RATE_LIMIT_ENABLED", true),
		Capacity:       p.integer("RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   p.integer("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: p.dur("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
		TTL:            p.dur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    p.str("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         p.str("RATE_LIMIT_PREFIX", "rl"),
		Debug:          p.boolean("RATE_LIMIT_DEBUG", false),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}
