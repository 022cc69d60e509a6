package config

import (
	"strings"
	"time"
)

// Key strategies for the book response cache.  Path parameters are always
// part of the key; the strategy decides what else is.
const (
	KeyRoute            = "route"
	KeyRouteQuery       = "route_query"
	KeyMethodRoute      = "method_route"
	KeyMethodRouteQuery = "method_route_query"
)

// CacheConfig controls the Redis cache in front of the public book
// listings.  Every key is written under Prefix, which is what lets a book
// write invalidate all cached pages at once.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int // larger responses are served but not stored
}

// LoadCacheConfig reads the CACHE_* variables.
func LoadCacheConfig() CacheConfig {
	cc := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  getenv("CACHE_KEY_STRATEGY", KeyRouteQuery),
		Prefix:       getenv("CACHE_PREFIX", "cache:books"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	return cc.Normalize()
}

// Normalize lower-cases the strategy and falls back to route_query for
// unknown values; a blank prefix or non-positive TTL gets the default.
func (cc CacheConfig) Normalize() CacheConfig {
	switch s := strings.ToLower(strings.TrimSpace(cc.KeyStrategy)); s {
	case KeyRoute, KeyRouteQuery, KeyMethodRoute, KeyMethodRouteQuery:
		cc.KeyStrategy = s
	default:
		cc.KeyStrategy = KeyRouteQuery
	}
	cc.Prefix = strings.TrimRight(strings.TrimSpace(cc.Prefix), ":")
	if cc.Prefix == "" {
		cc.Prefix = "cache:books"
	}
	if cc.TTL <= 0 {
		cc.TTL = 30 * time.Second
	}
	if cc.Methods == nil {
		cc.Methods = map[string]bool{"GET": true}
	}
	return cc
}

// parseMethods turns "get, head" into {"GET": true, "HEAD": true}.  Only
// safe methods are honored.
func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		switch p = strings.TrimSpace(strings.ToUpper(p)); p {
		case "GET", "HEAD":
			m[p] = true
		}
	}
	return m
}
