package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName is the meter and tracer name of the data layer.
const InstrumentationName = "github.com/kbukum/hyperdata"

// CacheMetrics counts how requests are satisfied: by the transport, by joining
// an in-flight request, or from the object cache.
type CacheMetrics struct {
	transportCalls metric.Int64Counter
	dedupJoins     metric.Int64Counter
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
	staleHits      metric.Int64Counter
	invalidations  metric.Int64Counter
	failures       metric.Int64Counter
}

// NewCacheMetrics creates the instruments on meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	m := &CacheMetrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.transportCalls, "hyperdata.transport.calls", "Requests dispatched to the transport"},
		{&m.dedupJoins, "hyperdata.tracker.joins", "Callers that joined an in-flight request"},
		{&m.cacheHits, "hyperdata.cache.hits", "Requests answered by a fresh cache entry"},
		{&m.cacheMisses, "hyperdata.cache.misses", "Requests with no usable cache entry"},
		{&m.staleHits, "hyperdata.cache.stale_hits", "Requests answered by a stale cache entry"},
		{&m.invalidations, "hyperdata.cache.invalidations", "Cache entries marked stale"},
		{&m.failures, "hyperdata.transport.failures", "Transport calls that settled as failed"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

// DefaultCacheMetrics creates the instruments on the global meter provider.
// It panics if an instrument cannot be created.
func DefaultCacheMetrics() *CacheMetrics {
	m, err := NewCacheMetrics(Meter(InstrumentationName))
	if err != nil {
		panic(err)
	}
	return m
}

// RecordTransportCall counts a dispatch for the given HTTP method.
func (m *CacheMetrics) RecordTransportCall(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.transportCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordFailure counts a failed transport call by status code.
func (m *CacheMetrics) RecordFailure(ctx context.Context, status int) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.Int("status", status)))
}

// RecordJoin counts a caller sharing an in-flight request.
func (m *CacheMetrics) RecordJoin(ctx context.Context) {
	if m == nil {
		return
	}
	m.dedupJoins.Add(ctx, 1)
}

// RecordHit counts a fresh cache hit.
func (m *CacheMetrics) RecordHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1)
}

// RecordMiss counts a cache miss.
func (m *CacheMetrics) RecordMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(ctx, 1)
}

// RecordStaleHit counts a stale cache hit.
func (m *CacheMetrics) RecordStaleHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.staleHits.Add(ctx, 1)
}

// RecordInvalidations counts n entries marked stale.
func (m *CacheMetrics) RecordInvalidations(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.invalidations.Add(ctx, int64(n))
}
