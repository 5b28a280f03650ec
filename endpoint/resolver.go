// Package endpoint maps resource types to absolute request URLs.
package endpoint

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/hyperdata/errors"
	"github.com/kbukum/hyperdata/hal"
	"github.com/kbukum/hyperdata/httpclient"
	"github.com/kbukum/hyperdata/logger"
	"github.com/kbukum/hyperdata/observability"
)

// DefaultTable is the built-in resource type to path table.
var DefaultTable = map[string]string{
	"items":            "core/items",
	"bundles":          "core/bundles",
	"bitstreams":       "core/bitstreams",
	"bitstreamformats": "core/bitstreamformats",
}

// Resolver resolves resource types against a base URL.
type Resolver struct {
	baseURL string
	adapter *httpclient.Adapter
	log     *logger.Logger

	mu    sync.RWMutex
	table map[string]string

	group      singleflight.Group
	discovered bool
}

// New creates a resolver. The table entries are added on top of DefaultTable.
// adapter is only needed for Discover and may be nil.
func New(baseURL string, table map[string]string, adapter *httpclient.Adapter, log *logger.Logger) *Resolver {
	t := maps.Clone(DefaultTable)
	for k, v := range table {
		t[k] = strings.Trim(v, "/")
	}
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		adapter: adapter,
		log:     logger.OrNop(log).WithComponent("endpoint-resolver"),
		table:   t,
	}
}

// BaseURL returns the API root.
func (r *Resolver) BaseURL() string {
	return r.baseURL
}

// Resolve returns the absolute URL for resourceType with each relation
// appended as a path segment. Values that are already absolute URLs are used
// as they are.
func (r *Resolver) Resolve(resourceType string, relations ...string) (string, error) {
	r.mu.RLock()
	path, ok := r.table[resourceType]
	r.mu.RUnlock()
	if !ok {
		return "", errors.EndpointNotFound(resourceType)
	}

	base := path
	if !isAbsolute(path) {
		base = r.baseURL + "/" + path
	}
	for _, rel := range relations {
		rel = strings.Trim(rel, "/")
		if rel == "" {
			return "", errors.EndpointNotFound(resourceType + "/")
		}
		base += "/" + url.PathEscape(rel)
	}
	return base, nil
}

// Register adds or replaces the path for resourceType.
func (r *Resolver) Register(resourceType, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if isAbsolute(path) {
		r.table[resourceType] = path
		return
	}
	r.table[resourceType] = strings.Trim(path, "/")
}

type rootDocument struct {
	Links hal.Links `json:"_links"`
}

// Discover fetches the API root document once and registers every relation
// it links, except self, as an endpoint. Concurrent callers share one fetch;
// after a successful discovery later calls return immediately.
func (r *Resolver) Discover(ctx context.Context) error {
	r.mu.RLock()
	done := r.discovered
	r.mu.RUnlock()
	if done {
		return nil
	}
	if r.adapter == nil {
		return errors.New(errors.ErrCodeServiceUnavailable, "endpoint discovery needs a transport", http.StatusServiceUnavailable)
	}

	_, err, _ := r.group.Do("root", func() (any, error) {
		r.mu.RLock()
		done := r.discovered
		r.mu.RUnlock()
		if done {
			return nil, nil
		}

		ctx, span := observability.StartSpan(ctx, observability.SpanDiscover,
			trace.WithAttributes(attribute.String(observability.AttrRequestKey, r.baseURL)))
		resp, err := httpclient.Get[rootDocument](ctx, r.adapter, r.baseURL)
		observability.EndSpan(span, err)
		if err != nil {
			r.log.Warn("endpoint discovery failed", logger.Fields(logger.FieldHref, r.baseURL, logger.FieldError, err.Error()))
			return nil, fmt.Errorf("discover endpoints at %s: %w", r.baseURL, err)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		n := 0
		for rel, links := range resp.Data.Links {
			if rel == "self" || len(links) == 0 {
				continue
			}
			r.table[rel] = links[0].URL()
			n++
		}
		r.discovered = true
		r.log.Info("endpoints discovered", logger.Fields("count", n))
		return nil, nil
	})
	return err
}

// Href returns the untemplated href of relation on doc, or EndpointNotFound
// when doc does not link it.
func (r *Resolver) Href(doc *hal.Document, relation string) (string, error) {
	if doc == nil {
		return "", errors.EndpointNotFound(relation)
	}
	href, ok := doc.Href(relation)
	if !ok {
		return "", errors.EndpointNotFound(string(doc.Type) + "." + relation)
	}
	return href, nil
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
