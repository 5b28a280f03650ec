package config

import (
	"fmt"
	"time"

	"github.com/kbukum/hyperdata/httpclient"
	"github.com/kbukum/hyperdata/logger"
	"github.com/kbukum/hyperdata/redis"
	"github.com/kbukum/hyperdata/validation"
)

// CachePolicy decides how the request tracker treats a stale cache entry.
type CachePolicy string

const (
	// PolicyStaleWhileRevalidate serves the stale entry, then emits the
	// revalidated one when the background refetch succeeds.
	PolicyStaleWhileRevalidate CachePolicy = "stale-while-revalidate"
	// PolicyRefetch ignores stale entries and goes to the transport.
	PolicyRefetch CachePolicy = "refetch"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

const (
	defaultName     = "hyperdata"
	defaultCacheTTL = 15 * time.Minute
)

// Config is the full configuration of the data layer.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`

	// BaseURL is the API root every endpoint path is resolved against.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	// Endpoints maps resource types to link paths below BaseURL and extends
	// the built-in table.
	Endpoints map[string]string `yaml:"endpoints" mapstructure:"endpoints"`
	// Discover fetches the API root document and registers its _links as
	// endpoints on first use.
	Discover bool `yaml:"discover" mapstructure:"discover"`

	HTTP    httpclient.Config `yaml:"http" mapstructure:"http"`
	Cache   CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Logging logger.Config     `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// CacheConfig configures the object cache.
type CacheConfig struct {
	// TTL is how long an entry stays fresh. Zero means entries go stale only
	// through invalidation.
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
	Policy  CachePolicy   `yaml:"policy" mapstructure:"policy" validate:"oneof=stale-while-revalidate refetch"`
	Backend string        `yaml:"backend" mapstructure:"backend" validate:"oneof=memory redis"`
	// KeyPrefix namespaces entries in a shared redis.
	KeyPrefix string       `yaml:"key_prefix" mapstructure:"key_prefix"`
	Redis     redis.Config `yaml:"redis" mapstructure:"redis"`
}

// MetricsConfig configures OpenTelemetry export. Instruments are always
// recorded; they only leave the process when Enabled is set.
type MetricsConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.HTTP.BaseURL == "" {
		c.HTTP.BaseURL = c.BaseURL
	}
	if c.HTTP.Name == "" {
		c.HTTP.Name = c.Name
	}
	c.HTTP.ApplyDefaults()

	if c.Cache.TTL == 0 {
		c.Cache.TTL = defaultCacheTTL
	}
	if c.Cache.Policy == "" {
		c.Cache.Policy = PolicyStaleWhileRevalidate
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendMemory
	}
	if c.Cache.Backend == BackendRedis {
		c.Cache.Redis.Enabled = true
		if c.Cache.KeyPrefix == "" {
			c.Cache.KeyPrefix = c.Name + ":"
		}
	}
	c.Cache.Redis.ApplyDefaults()

	c.Logging.ApplyDefaults()

	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = "localhost:4318"
	}
	if c.Metrics.Interval <= 0 {
		c.Metrics.Interval = 15 * time.Second
	}
	if c.Metrics.SampleRate == 0 {
		c.Metrics.SampleRate = 1.0
	}
}

// Validate checks struct tags first, then each section's own rules.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("config.http: %w", err)
	}
	if err := c.Cache.Redis.Validate(); err != nil {
		return fmt.Errorf("config.cache.redis: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
