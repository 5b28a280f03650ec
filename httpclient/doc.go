// Package httpclient is the transport boundary of the data layer: a
// configurable HTTP adapter with retry, circuit breaking and rate limiting,
// returning raw bodies alongside classified errors.
//
// The request tracker only depends on the Do method; everything else here is
// convenience for the composition root and for endpoint discovery.
//
// # Basic Usage
//
//	a, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://repository.example.org/server/api",
//	    Timeout: 30 * time.Second,
//	})
//
//	resp, err := a.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/core/items/123",
//	})
//
// # With Resilience
//
//	a, err := httpclient.New(httpclient.Config{
//	    BaseURL:        "https://repository.example.org/server/api",
//	    Retry:          httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("rest"),
//	})
package httpclient
