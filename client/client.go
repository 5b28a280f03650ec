// Package client wires the data layer together from configuration.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/kbukum/hyperdata/builder"
	"github.com/kbukum/hyperdata/config"
	"github.com/kbukum/hyperdata/content"
	"github.com/kbukum/hyperdata/dataservice"
	"github.com/kbukum/hyperdata/endpoint"
	"github.com/kbukum/hyperdata/hal"
	"github.com/kbukum/hyperdata/httpclient"
	"github.com/kbukum/hyperdata/logger"
	"github.com/kbukum/hyperdata/objectcache"
	"github.com/kbukum/hyperdata/observability"
	"github.com/kbukum/hyperdata/redis"
	"github.com/kbukum/hyperdata/remotedata"
	"github.com/kbukum/hyperdata/request"
)

// Client owns every collaborator of the data layer.
type Client struct {
	cfg config.Config
	log *logger.Logger

	adapter  *httpclient.Adapter
	redis    *redis.Client
	cache    *objectcache.Cache
	tracker  *request.Tracker
	resolver *endpoint.Resolver
	builder  *builder.Builder

	Items            *content.ItemService
	Bundles          *content.BundleService
	Bitstreams       *content.BitstreamService
	BitstreamFormats *content.BitstreamFormatService

	mu       sync.RWMutex
	services map[hal.ResourceType]any
	closed   bool
}

type options struct {
	httpClient *http.Client
	metrics    *observability.CacheMetrics
}

// Option configures New.
type Option func(*options)

// WithHTTPClient replaces the transport's *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithMetrics records on m instead of the global meter provider.
func WithMetrics(m *observability.CacheMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// New builds a client from cfg. With the redis backend the server must answer
// a ping. With discovery enabled the API root is read once; a failed
// discovery is logged and the static endpoint table is used.
func New(ctx context.Context, cfg config.Config, log *logger.Logger, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observability.DefaultCacheMetrics()
	}
	log = logger.OrNop(log)

	c := &Client{cfg: cfg, log: log.WithComponent("client"), services: make(map[hal.ResourceType]any)}

	var httpOpts []httpclient.Option
	if o.httpClient != nil {
		httpOpts = append(httpOpts, httpclient.WithHTTPClient(o.httpClient))
	}
	adapter, err := httpclient.New(cfg.HTTP, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	c.adapter = adapter

	store, err := c.newStore(ctx)
	if err != nil {
		return nil, err
	}
	c.cache = objectcache.New(store, cfg.Cache.TTL, log, objectcache.WithMetrics(o.metrics))
	c.tracker = request.New(adapter, c.cache, log,
		request.WithPolicy(cfg.Cache.Policy),
		request.WithMetrics(o.metrics))
	c.resolver = endpoint.New(cfg.BaseURL, cfg.Endpoints, adapter, log)
	if cfg.Discover {
		if err := c.resolver.Discover(ctx); err != nil {
			c.log.Warn("using static endpoint table", logger.Fields(logger.FieldError, err.Error()))
		}
	}
	c.builder = builder.New(c.tracker, c.resolver, log)

	if err := c.registerContent(); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.log.Info("data layer ready", logger.Fields(
		"base_url", cfg.BaseURL,
		"cache_backend", cfg.Cache.Backend,
		"cache_policy", string(cfg.Cache.Policy),
	))
	return c, nil
}

func (c *Client) newStore(ctx context.Context) (objectcache.Store, error) {
	if c.cfg.Cache.Backend != config.BackendRedis {
		return objectcache.NewMemoryStore(), nil
	}
	rc, err := redis.New(c.cfg.Cache.Redis, c.log)
	if err != nil {
		return nil, fmt.Errorf("cache backend: %w", err)
	}
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("cache backend: %w", err)
	}
	c.redis = rc
	return redis.NewEntryStore(rc, c.cfg.Cache.KeyPrefix), nil
}

func (c *Client) registerContent() error {
	deps := c.Deps()
	var err error
	if c.Items, err = content.NewItemService(deps); err != nil {
		return err
	}
	if c.Bundles, err = content.NewBundleService(deps); err != nil {
		return err
	}
	if c.BitstreamFormats, err = content.NewBitstreamFormatService(deps); err != nil {
		return err
	}
	if c.Bitstreams, err = content.NewBitstreamService(deps, c.Bundles, c.BitstreamFormats); err != nil {
		return err
	}
	c.services[content.TypeItem] = c.Items
	c.services[content.TypeBundle] = c.Bundles.Service
	c.services[content.TypeBitstream] = c.Bitstreams.Service
	c.services[content.TypeBitstreamFormat] = c.BitstreamFormats
	return nil
}

// Deps returns the collaborators a dataservice.Service needs.
func (c *Client) Deps() dataservice.Deps {
	return dataservice.Deps{
		Resolver: c.resolver,
		Tracker:  c.tracker,
		Builder:  c.builder,
		Log:      c.log,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() config.Config { return c.cfg }

// Tracker returns the request tracker.
func (c *Client) Tracker() *request.Tracker { return c.tracker }

// Resolver returns the endpoint resolver.
func (c *Client) Resolver() *endpoint.Resolver { return c.resolver }

// Fetch reads href as a raw document, resolving links.
func (c *Client) Fetch(href string, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*hal.Document]] {
	return c.builder.Build(href, links...)
}

// FetchList reads a page of the collection at href.
func (c *Client) FetchList(href string, options *hal.FindListOptions, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*hal.Document]] {
	return c.builder.BuildList(href, options, links...)
}

// Close stops the tracker and releases the transport and cache backend.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.tracker != nil {
		c.tracker.Close()
	}
	var errs []error
	if c.adapter != nil {
		errs = append(errs, c.adapter.Close(context.Background()))
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	return errors.Join(errs...)
}

// Register creates a service for a resource type beyond the built-in content
// types and adds it to the registry.
func Register[T any, PT hal.Object[T]](c *Client, cfg dataservice.Config) (*dataservice.Service[T, PT], error) {
	svc, err := dataservice.New[T, PT](cfg, c.Deps())
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.services[cfg.Type]; exists {
		return nil, fmt.Errorf("service for %q already registered", cfg.Type)
	}
	c.services[cfg.Type] = svc
	return svc, nil
}

// Service returns the registered service for resourceType. ok is false when
// none is registered or it serves a different model.
func Service[T any, PT hal.Object[T]](c *Client, resourceType hal.ResourceType) (svc *dataservice.Service[T, PT], ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	svc, ok = c.services[resourceType].(*dataservice.Service[T, PT])
	return svc, ok
}
