package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/hyperdata/resilience"
)

func TestAdapter_Do_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/core/items/123" {
			t.Errorf("expected /core/items/123, got %s", r.URL.Path)
		}
		if !strings.Contains(r.Header.Get("Accept"), "application/hal+json") {
			t.Errorf("expected HAL accept header, got %q", r.Header.Get("Accept"))
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "hyperdata/") {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/hal+json")
		_, _ = w.Write([]byte(`{"type":"item","name":"Alice"}`))
	}))
	defer srv.Close()

	a, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/core/items/123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() || resp.StatusText() != "OK" {
		t.Errorf("expected 200 OK, got %d %s", resp.StatusCode, resp.StatusText())
	}
	if !strings.Contains(string(resp.Body), "Alice") {
		t.Errorf("response body should contain Alice, got %s", string(resp.Body))
	}
}

func TestAdapter_Do_AbsolutePathAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("size"); got != "1" {
			t.Errorf("expected size=1, got %q", got)
		}
		if got := r.URL.Query().Get("embed"); got != "owner" {
			t.Errorf("expected existing query to survive, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := New(Config{BaseURL: "http://unused.invalid"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   srv.URL + "/core/bundles?embed=owner",
		Query:  map[string]string{"size": "1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdapter_Do_PATCHHeadersOverrideDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json-patch+json" {
			t.Errorf("expected json-patch content type, got %s", ct)
		}
		if r.Header.Get("X-Default") != "yes" {
			t.Error("expected default header")
		}
		var ops []map[string]any
		_ = json.NewDecoder(r.Body).Decode(&ops)
		if len(ops) != 1 {
			t.Errorf("expected 1 op, got %d", len(ops))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := New(Config{BaseURL: srv.URL, Headers: map[string]string{"X-Default": "yes"}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.Do(context.Background(), Request{
		Method:  http.MethodPatch,
		Path:    "/core/items/1",
		Headers: map[string]string{"Content-Type": "application/json-patch+json"},
		Body:    []map[string]any{{"op": "replace", "path": "/name", "value": "x"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdapter_Do_NotFoundCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":404,"error":"Not Found","message":"No such item"}`))
	}))
	defer srv.Close()

	a, _ := New(Config{BaseURL: srv.URL})
	resp, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/core/items/missing"})
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("expected the 404 response alongside the error, got %+v", resp)
	}
	var he *Error
	if !errors.As(err, &he) {
		t.Fatal("expected *Error")
	}
	if he.Message != "No such item" || he.StatusText() != "Not Found" {
		t.Errorf("unexpected error fields: %q / %q", he.Message, he.StatusText())
	}
}

func TestAdapter_Do_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	a, _ := New(Config{BaseURL: url, Timeout: time.Second})
	_, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !IsConnection(err) {
		t.Fatalf("expected connection error, got %v", err)
	}
	var he *Error
	if errors.As(err, &he) && he.StatusCode != 0 {
		t.Errorf("connection errors carry status 0, got %d", he.StatusCode)
	}
}

func TestAdapter_Do_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	a, _ := New(Config{BaseURL: srv.URL, Retry: retry})

	resp, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected success on third call, got %d after %d calls", resp.StatusCode, calls)
	}
}

func TestAdapter_Do_DoesNotRetryNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	a, _ := New(Config{BaseURL: srv.URL, Retry: retry})
	_, _ = a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestAdapter_CircuitBreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a, _ := New(Config{
		BaseURL:        srv.URL,
		CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour},
	})
	_, _ = a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if a.IsAvailable(context.Background()) {
		t.Fatal("expected breaker to be open")
	}
	_, err := a.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	var he *Error
	if !errors.As(err, &he) || he.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 from open breaker, got %v", err)
	}
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Error("expected ErrCircuitOpen in chain")
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{CircuitBreaker: &resilience.CircuitBreakerConfig{}}
	cfg.ApplyDefaults()
	if cfg.Timeout != defaultTimeout || cfg.Name != "http" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.CircuitBreaker.Name != "http" || cfg.CircuitBreaker.IsFailure == nil {
		t.Error("breaker should inherit name and failure filter")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{401, ErrCodeAuth, false},
		{404, ErrCodeNotFound, false},
		{422, ErrCodeValidation, false},
		{429, ErrCodeRateLimit, true},
		{503, ErrCodeServer, true},
	}
	for _, tt := range tests {
		e := ClassifyStatusCode(tt.status, nil)
		if e.Code != tt.code || e.Retryable != tt.retryable {
			t.Errorf("status %d: got %s/%v, want %s/%v", tt.status, e.Code, e.Retryable, tt.code, tt.retryable)
		}
	}
	if ClassifyStatusCode(204, nil) != nil {
		t.Error("2xx should not classify as an error")
	}
}

type rootDoc struct {
	Links map[string]struct {
		Href string `json:"href"`
	} `json:"_links"`
}

func TestGet_Typed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("projection") != "full" {
			t.Errorf("expected projection query param")
		}
		_, _ = w.Write([]byte(`{"_links":{"items":{"href":"http://x/core/items"}}}`))
	}))
	defer srv.Close()

	a, _ := New(Config{BaseURL: srv.URL})
	resp, err := Get[rootDoc](context.Background(), a, "/", WithQueryParam("projection", "full"), WithHeader("X-Test", "1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Data.Links["items"].Href != "http://x/core/items" {
		t.Errorf("unexpected decoded data: %+v", resp.Data)
	}
}

func TestGet_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	a, _ := New(Config{BaseURL: srv.URL})
	if _, err := Get[rootDoc](context.Background(), a, "/"); err == nil {
		t.Fatal("expected decode error")
	}
}
