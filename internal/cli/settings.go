package cli

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// envPrefix is the prefix for environment variable overrides.
	envPrefix = "SINK"

	// defaultManifestName is the manifest looked up in the working directory
	// when no path is given.
	defaultManifestName = "sink.toml"

	// defaultCacheTTL bounds how long GitHub release lookups are reused.
	defaultCacheTTL = time.Hour
)

// Settings holds environment-driven configuration. Every field maps to a
// SINK_* environment variable; command-line flags take precedence where a
// flag exists.
type Settings struct {
	// Manifest is the manifest path (SINK_MANIFEST).
	Manifest string
	// Token authenticates GitHub API requests (SINK_GITHUB_TOKEN).
	Token string
	// CacheDir overrides the response cache location (SINK_CACHE_DIR).
	CacheDir string
	// CacheTTL bounds release lookup reuse (SINK_CACHE_TTL, e.g. "30m").
	CacheTTL time.Duration
	// RedisAddr selects the Redis cache backend (SINK_CACHE_REDIS).
	RedisAddr string
	// NoCache disables caching entirely (SINK_NO_CACHE).
	NoCache bool
}

// LoadSettings reads settings from the environment, applying defaults for
// anything unset.
func LoadSettings() *Settings {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("manifest", defaultManifestName)
	v.SetDefault("cache.ttl", defaultCacheTTL)

	return &Settings{
		Manifest:  v.GetString("manifest"),
		Token:     v.GetString("github.token"),
		CacheDir:  v.GetString("cache.dir"),
		CacheTTL:  v.GetDuration("cache.ttl"),
		RedisAddr: v.GetString("cache.redis"),
		NoCache:   v.GetBool("no.cache"),
	}
}
