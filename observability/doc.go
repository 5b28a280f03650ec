// Package observability wires OpenTelemetry into the data layer: OTLP
// exporters for metrics and traces, a span helper for transport dispatch, and
// the counters the request tracker and object cache report into.
//
// Instruments are created on the global meter provider, so they are no-ops
// until Init installs real providers.
package observability
