// Package resilience provides the fault-tolerance primitives the HTTP
// transport composes: retry with exponential backoff, a circuit breaker, and a
// token-bucket rate limiter.
//
// None of them are applied by the request tracker itself. Retry of a failed
// remote-data fetch is a caller decision; these primitives only shape
// individual transport calls when the transport is configured to use them.
package resilience
