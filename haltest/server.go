// Package haltest runs a fake HAL API for tests.
package haltest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// Request is one request the server received.
type Request struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	Body        []byte
}

type route struct {
	status int
	body   []byte
	fn     gin.HandlerFunc
}

// Server is a gin-backed HAL API with per-path hit counters. Routes are keyed
// by method and path; the query string is ignored for matching.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]route
	hits     map[string]int
	gates    map[string]chan struct{}
	requests []Request
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		routes: make(map[string]route),
		hits:   make(map[string]int),
		gates:  make(map[string]chan struct{}),
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.NoRoute(s.serve)

	s.Server = httptest.NewServer(engine)
	t.Cleanup(s.Close)
	return s
}

// Href returns the absolute URL of path on this server.
func (s *Server) Href(path string) string {
	return s.URL + "/" + strings.TrimLeft(path, "/")
}

// Handle answers method on path with status and body. body is sent as is
// when it is a string or []byte and JSON-encoded otherwise.
func (s *Server) Handle(method, path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[routeKey(method, path)] = route{status: status, body: encode(body)}
}

// HandleFunc answers method on path with fn.
func (s *Server) HandleFunc(method, path string, fn gin.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[routeKey(method, path)] = route{fn: fn}
}

// JSON answers GET path with 200 and body.
func (s *Server) JSON(path string, body any) {
	s.Handle(http.MethodGet, path, http.StatusOK, body)
}

// Fail answers GET path with status and a server error body.
func (s *Server) Fail(path string, status int, message string) {
	s.Handle(http.MethodGet, path, status, gin.H{
		"status":  status,
		"error":   http.StatusText(status),
		"message": message,
		"path":    path,
	})
}

// Collection serves elements under GET path as a paginated HAL collection
// embedded under rel. The size and page (0-based) query parameters select the
// page; without size every element is returned.
func (s *Server) Collection(path, rel string, elements ...any) {
	s.HandleFunc(http.MethodGet, path, func(c *gin.Context) {
		size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(len(elements))))
		page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
		if size <= 0 {
			size = max(len(elements), 1)
		}
		from := min(page*size, len(elements))
		to := min(from+size, len(elements))
		pages := (len(elements) + size - 1) / size
		slice := append(make([]any, 0, to-from), elements[from:to]...)

		c.JSON(http.StatusOK, gin.H{
			"_embedded": gin.H{rel: slice},
			"_links":    gin.H{"self": gin.H{"href": s.Href(path)}},
			"page": gin.H{
				"size":          size,
				"totalElements": len(elements),
				"totalPages":    pages,
				"number":        page,
			},
		})
	})
}

// Block holds every request to path until the returned release func is
// called.
func (s *Server) Block(path string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[cleanPath(path)] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, cleanPath(path))
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Hits returns how many requests path received, any method.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[cleanPath(path)]
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Resource builds a HAL object of type typ whose self link is path. links maps
// relation names to server paths.
func (s *Server) Resource(typ, path string, fields map[string]any, links map[string]string) map[string]any {
	obj := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		obj[k] = v
	}
	obj["type"] = typ
	hl := gin.H{"self": gin.H{"href": s.Href(path)}}
	for rel, p := range links {
		hl[rel] = gin.H{"href": s.Href(p)}
	}
	obj["_links"] = hl
	return obj
}

func (s *Server) serve(c *gin.Context) {
	path := cleanPath(c.Request.URL.Path)
	body, _ := io.ReadAll(c.Request.Body)

	s.mu.Lock()
	s.hits[path]++
	s.requests = append(s.requests, Request{
		Method:      c.Request.Method,
		Path:        path,
		Query:       c.Request.URL.RawQuery,
		ContentType: c.GetHeader("Content-Type"),
		Body:        body,
	})
	r, ok := s.routes[routeKey(c.Request.Method, path)]
	gate := s.gates[path]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-c.Request.Context().Done():
			return
		}
	}

	switch {
	case !ok:
		c.JSON(http.StatusNotFound, gin.H{
			"status":  http.StatusNotFound,
			"error":   http.StatusText(http.StatusNotFound),
			"message": "No resource at " + path,
			"path":    path,
		})
	case r.fn != nil:
		r.fn(c)
	default:
		c.Data(r.status, "application/hal+json", r.body)
	}
}

func routeKey(method, path string) string {
	return method + " " + cleanPath(path)
}

func cleanPath(path string) string {
	return "/" + strings.Trim(path, "/")
}

func encode(body any) []byte {
	switch b := body.(type) {
	case nil:
		return nil
	case []byte:
		return b
	case string:
		return []byte(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			panic("haltest: encode body: " + err.Error())
		}
		return data
	}
}
