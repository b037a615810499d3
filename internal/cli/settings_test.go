package cli

import (
	"testing"
	"time"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s := LoadSettings()

	if s.Manifest != defaultManifestName {
		t.Errorf("Manifest = %q, want %q", s.Manifest, defaultManifestName)
	}
	if s.CacheTTL != defaultCacheTTL {
		t.Errorf("CacheTTL = %v, want %v", s.CacheTTL, defaultCacheTTL)
	}
	if s.Token != "" || s.RedisAddr != "" || s.NoCache {
		t.Errorf("unset settings not empty: %+v", s)
	}
}

func TestLoadSettingsFromEnvironment(t *testing.T) {
	t.Setenv("SINK_MANIFEST", "deps/sink.toml")
	t.Setenv("SINK_GITHUB_TOKEN", "ghp_test")
	t.Setenv("SINK_CACHE_DIR", "/tmp/sink-cache")
	t.Setenv("SINK_CACHE_TTL", "30m")
	t.Setenv("SINK_CACHE_REDIS", "localhost:6379")
	t.Setenv("SINK_NO_CACHE", "true")

	s := LoadSettings()

	if s.Manifest != "deps/sink.toml" {
		t.Errorf("Manifest = %q", s.Manifest)
	}
	if s.Token != "ghp_test" {
		t.Errorf("Token = %q", s.Token)
	}
	if s.CacheDir != "/tmp/sink-cache" {
		t.Errorf("CacheDir = %q", s.CacheDir)
	}
	if s.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL = %v, want 30m", s.CacheTTL)
	}
	if s.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", s.RedisAddr)
	}
	if !s.NoCache {
		t.Error("NoCache = false, want true")
	}
}
