package config

import "time"

// MetaCacheConfig defines settings for the post metadata read-through cache.
// When Enabled is false or no Redis client is configured, metadata reads go
// straight to the database.  TTL bounds how long a cached value may be served
// and Prefix namespaces the Redis keys.
type MetaCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadMetaCacheConfig reads META_CACHE_* variables.  Defaults are used when
// variables are not set.
func LoadMetaCacheConfig() MetaCacheConfig {
	cfg := MetaCacheConfig{
		Enabled: envBool("META_CACHE_ENABLED", true),
		TTL:     envDur("META_CACHE_TTL", 5*time.Minute),
		Prefix:  envStr("META_CACHE_PREFIX", "postmeta"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	return cfg
}
