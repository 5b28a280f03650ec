package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out[m.Name] += dp.Value
			}
		}
	}
	return out
}

func TestCacheMetrics_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewCacheMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewCacheMetrics: %v", err)
	}
	ctx := context.Background()
	m.RecordTransportCall(ctx, "GET")
	m.RecordTransportCall(ctx, "GET")
	m.RecordJoin(ctx)
	m.RecordHit(ctx)
	m.RecordMiss(ctx)
	m.RecordStaleHit(ctx)
	m.RecordInvalidations(ctx, 3)
	m.RecordInvalidations(ctx, 0)
	m.RecordFailure(ctx, 404)

	got := collect(t, reader)
	want := map[string]int64{
		"hyperdata.transport.calls":     2,
		"hyperdata.tracker.joins":       1,
		"hyperdata.cache.hits":          1,
		"hyperdata.cache.misses":        1,
		"hyperdata.cache.stale_hits":    1,
		"hyperdata.cache.invalidations": 3,
		"hyperdata.transport.failures":  1,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}

func TestCacheMetrics_NilIsNoop(t *testing.T) {
	var m *CacheMetrics
	m.RecordHit(context.Background())
	m.RecordTransportCall(context.Background(), "GET")
}

func TestDefaultExportConfig(t *testing.T) {
	cfg := DefaultExportConfig("svc")
	if cfg.ServiceName != "svc" || cfg.Interval != 15*time.Second || cfg.SampleRate != 1.0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ServiceVersion == "" {
		t.Error("expected the build version")
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		want := "ParentBased{root:" + tt.want
		if got := Sampler(tt.rate).Description(); !strings.HasPrefix(got, want) {
			t.Errorf("Sampler(%v) = %q, want prefix %q", tt.rate, got, want)
		}
	}
}

func TestEndSpan_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), SpanFetch)
	EndSpan(span, errors.New("boom"))

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if len(ended[0].Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
	if ended[0].Status().Description != "boom" {
		t.Errorf("unexpected status %+v", ended[0].Status())
	}
}
