package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{BaseURL: "http://localhost:8080/server/api"}
	cfg.ApplyDefaults()

	if cfg.Name != "hyperdata" || cfg.Environment != "development" {
		t.Errorf("unexpected identity defaults: %q %q", cfg.Name, cfg.Environment)
	}
	if cfg.HTTP.BaseURL != cfg.BaseURL {
		t.Errorf("http.base_url should inherit base_url, got %q", cfg.HTTP.BaseURL)
	}
	if cfg.Cache.Policy != PolicyStaleWhileRevalidate {
		t.Errorf("expected stale-while-revalidate by default, got %q", cfg.Cache.Policy)
	}
	if cfg.Cache.Backend != BackendMemory || cfg.Cache.TTL != defaultCacheTTL {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestConfig_RedisBackendEnablesRedis(t *testing.T) {
	cfg := Config{BaseURL: "http://localhost/api", Cache: CacheConfig{Backend: BackendRedis}}
	cfg.ApplyDefaults()
	if !cfg.Cache.Redis.Enabled || cfg.Cache.KeyPrefix != "hyperdata:" {
		t.Errorf("expected redis enabled with prefix, got %+v", cfg.Cache)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "addr") {
		t.Errorf("expected missing redis addr error, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing base url", func(c *Config) { c.BaseURL = "" }, "base_url"},
		{"bad base url", func(c *Config) { c.BaseURL = "not a url" }, "base_url"},
		{"bad policy", func(c *Config) { c.Cache.Policy = "sometimes" }, "cache.policy"},
		{"bad backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, "environment"},
		{"bad sample rate", func(c *Config) { c.Metrics.SampleRate = 2 }, "metrics.sample_rate"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{BaseURL: "http://localhost/api"}
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected %q in %q", tc.errMsg, err.Error())
			}
		})
	}
}

type fakeFS struct {
	files  map[string]bool
	loaded []string
}

func (f *fakeFS) Exists(path string) bool { return f.files[path] }
func (f *fakeFS) LoadEnv(path string) error {
	f.loaded = append(f.loaded, path)
	return nil
}

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "halctl.yml")
	yaml := `
base_url: http://localhost:8080/server/api
endpoints:
  item: core/items
cache:
  ttl: 2m
  policy: refetch
http:
  timeout: 5s
  headers:
    X-Client: halctl
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HALCTL_CACHE_BACKEND", "redis")
	t.Setenv("HALCTL_DISCOVER", "true")

	fs := &fakeFS{files: map[string]bool{path: true, "./.env": true}}
	var cfg Config
	if err := LoadConfig("halctl", &cfg, WithFileSystem(fs), WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.BaseURL != "http://localhost:8080/server/api" {
		t.Errorf("unexpected base_url %q", cfg.BaseURL)
	}
	if cfg.Endpoints["item"] != "core/items" {
		t.Errorf("unexpected endpoints %v", cfg.Endpoints)
	}
	if cfg.Cache.TTL != 2*time.Minute || cfg.Cache.Policy != PolicyRefetch {
		t.Errorf("unexpected cache section %+v", cfg.Cache)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("unexpected http timeout %v", cfg.HTTP.Timeout)
	}
	if cfg.Cache.Backend != BackendRedis {
		t.Errorf("env should override backend, got %q", cfg.Cache.Backend)
	}
	if !cfg.Discover {
		t.Error("env should set discover")
	}
	if !slices.Equal(fs.loaded, []string{"./.env"}) {
		t.Errorf("expected ./.env to be loaded, got %v", fs.loaded)
	}
}

func TestLoadConfig_MissingExplicitFileIsIgnored(t *testing.T) {
	var cfg Config
	fs := &fakeFS{files: map[string]bool{}}
	if err := LoadConfig("halctl", &cfg, WithFileSystem(fs), WithConfigFile("/nope.yml")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("CACHE_KEY_PREFIX")
	for _, want := range []string{"cache_key_prefix", "cache.key.prefix", "cache.key_prefix", "cache_key.prefix"} {
		if !slices.Contains(got, want) {
			t.Errorf("missing variant %q in %v", want, got)
		}
	}
	if got := envKeyVariants("DISCOVER"); !slices.Equal(got, []string{"discover"}) {
		t.Errorf("single-part key should map to itself, got %v", got)
	}
}
