package request

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/hyperdata/config"
	"github.com/kbukum/hyperdata/hal"
	"github.com/kbukum/hyperdata/httpclient"
	"github.com/kbukum/hyperdata/logger"
	"github.com/kbukum/hyperdata/objectcache"
	"github.com/kbukum/hyperdata/observability"
	"github.com/kbukum/hyperdata/remotedata"
)

// Fetcher is the transport boundary.
type Fetcher interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// FetchFunc performs one transport call for a tracked request.
type FetchFunc func(ctx context.Context) (*httpclient.Response, error)

// ErrClosed is reported to subscribers of a tracker that has been closed.
var ErrClosed = errors.New("request tracker closed")

// Tracker deduplicates requests and feeds the object cache.
type Tracker struct {
	fetcher Fetcher
	cache   *objectcache.Cache
	policy  config.CachePolicy
	log     *logger.Logger
	metrics *observability.CacheMetrics
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[Key]*tracked
	sends   map[string]*tracked
	closed  bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPolicy sets how stale cache entries are treated.
func WithPolicy(p config.CachePolicy) Option {
	return func(tr *Tracker) { tr.policy = p }
}

// WithMetrics records dispatch and cache outcomes on m.
func WithMetrics(m *observability.CacheMetrics) Option {
	return func(tr *Tracker) { tr.metrics = m }
}

// New creates a Tracker over fetcher and cache.
func New(fetcher Fetcher, cache *objectcache.Cache, log *logger.Logger, opts ...Option) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &Tracker{
		fetcher: fetcher,
		cache:   cache,
		policy:  config.PolicyStaleWhileRevalidate,
		log:     logger.OrNop(log).WithComponent("request-tracker"),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[Key]*tracked),
		sends:   make(map[string]*tracked),
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// Get tracks a GET of href with query options.
func (tr *Tracker) Get(href string, query url.Values) remotedata.Stream[Entry] {
	key := GetKey(href, query)
	return tr.Track(key, func(ctx context.Context) (*httpclient.Response, error) {
		return tr.fetcher.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: key.URL})
	})
}

// Track returns the snapshot stream for key, dispatching fetch only when no
// request for key is in flight and the cache has no fresh entry.
func (tr *Tracker) Track(key Key, fetch FetchFunc) remotedata.Stream[Entry] {
	return remotedata.NewStream(func(ctx context.Context, emit remotedata.Emit[Entry]) {
		t, hit := tr.getOrCreate(ctx, key, fetch)
		if t == nil {
			emit(hit)
			return
		}
		defer tr.release(t)
		t.replay(ctx, emit)
	})
}

// Send dispatches a request that bypasses deduplication and the cache, as
// mutations must. The request runs once, on first subscription; every
// subscription replays its snapshots.
func (tr *Tracker) Send(req httpclient.Request) remotedata.Stream[Entry] {
	key := NewKey(req.Method, req.Path, nil)
	var (
		once sync.Once
		t    *tracked
	)
	start := func() *tracked {
		once.Do(func() {
			t = newTracked(tr.ctx, uuid.NewString(), key)
			t.appendLocked(Entry{State: remotedata.StateRequestPending, LastUpdated: tr.now()})

			tr.mu.Lock()
			defer tr.mu.Unlock()
			if tr.closed {
				t.settle(tr.closedEntry())
				return
			}
			tr.sends[t.id] = t
			tr.wg.Add(1)
			go tr.dispatch(t, func(ctx context.Context) (*httpclient.Response, error) {
				return tr.fetcher.Do(ctx, req)
			}, false, false)
		})
		return t
	}
	return remotedata.NewStream(func(ctx context.Context, emit remotedata.Emit[Entry]) {
		start().replay(ctx, emit)
	})
}

// Invalidate marks the cache entry for key stale.
func (tr *Tracker) Invalidate(ctx context.Context, key Key) error {
	return tr.cache.Invalidate(ctx, key.String())
}

// InvalidateByType marks every cache entry containing resourceType stale.
func (tr *Tracker) InvalidateByType(ctx context.Context, resourceType string) (int, error) {
	return tr.cache.InvalidateByType(ctx, resourceType)
}

// InvalidateCollection marks every cached page of the collection at href
// stale, whatever query options it was fetched with.
func (tr *Tracker) InvalidateCollection(ctx context.Context, href string) (int, error) {
	return tr.cache.InvalidateByType(ctx, CollectionTag(href))
}

// Remove deletes the cache entry for key.
func (tr *Tracker) Remove(ctx context.Context, key Key) error {
	return tr.cache.Remove(ctx, key.String())
}

// Pending returns the number of requests in flight.
func (tr *Tracker) Pending() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.pending) + len(tr.sends)
}

// Subscribers returns how many subscriptions share the in-flight request for
// key.
func (tr *Tracker) Subscribers(key Key) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if t, ok := tr.pending[key]; ok {
		return t.subscribers
	}
	return 0
}

// Close cancels every request in flight and waits for them to settle.
// Subscribers still listening receive a Failed snapshot.
func (tr *Tracker) Close() {
	tr.mu.Lock()
	tr.closed = true
	tr.mu.Unlock()
	tr.cancel()
	tr.wg.Wait()
}

func (tr *Tracker) getOrCreate(ctx context.Context, key Key, fetch FetchFunc) (*tracked, Entry) {
	if t := tr.join(ctx, key); t != nil {
		return t, Entry{}
	}

	cached, err := tr.cache.Get(ctx, key.String())
	if err != nil {
		tr.log.Warn("cache read failed", logger.Fields(logger.FieldKey, key.String(), logger.FieldError, err.Error()))
		cached = nil
	}
	stale := cached != nil && tr.cache.IsStale(cached)
	if cached != nil && !stale {
		tr.metrics.RecordHit(ctx)
		return nil, tr.cachedEntry(key, cached, false)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if t, ok := tr.pending[key]; ok {
		t.subscribers++
		tr.metrics.RecordJoin(ctx)
		return t, Entry{}
	}
	if tr.closed {
		e := tr.closedEntry()
		e.Key = key
		return nil, *e
	}

	t := newTracked(tr.ctx, uuid.NewString(), key)
	t.subscribers = 1
	revalidate := stale && tr.policy == config.PolicyStaleWhileRevalidate
	if revalidate {
		tr.metrics.RecordStaleHit(ctx)
		t.appendLocked(tr.cachedEntry(key, cached, true))
	} else {
		tr.metrics.RecordMiss(ctx)
		t.appendLocked(Entry{State: remotedata.StateRequestPending, LastUpdated: tr.now()})
	}
	tr.pending[key] = t
	tr.wg.Add(1)
	go tr.dispatch(t, fetch, revalidate, key.Method == http.MethodGet)
	return t, Entry{}
}

func (tr *Tracker) join(ctx context.Context, key Key) *tracked {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	t, ok := tr.pending[key]
	if !ok {
		return nil
	}
	t.subscribers++
	tr.metrics.RecordJoin(ctx)
	return t
}

// release drops one subscriber. When the last one leaves a request that is
// still pending, the request is forgotten and its transport call cancelled.
func (tr *Tracker) release(t *tracked) {
	tr.mu.Lock()
	t.subscribers--
	abandoned := t.subscribers == 0 && !t.isDone()
	if abandoned && tr.pending[t.key] == t {
		delete(tr.pending, t.key)
	}
	tr.mu.Unlock()

	if abandoned {
		tr.log.Debug("last subscriber left, cancelling", logger.Fields(logger.FieldKey, t.key.String()))
		t.cancel()
	}
}

func (tr *Tracker) dispatch(t *tracked, fetch FetchFunc, revalidate, cacheable bool) {
	defer tr.wg.Done()

	if !revalidate {
		t.append(Entry{State: remotedata.StateResponsePending, LastUpdated: tr.now()})
	}

	ctx, span := observability.StartSpan(t.ctx, observability.SpanFetch, trace.WithAttributes(
		attribute.String(observability.AttrRequestKey, t.key.String()),
		attribute.String(observability.AttrMethod, t.key.Method),
	))
	tr.metrics.RecordTransportCall(ctx, t.key.Method)
	tr.log.Debug("dispatching", logger.Fields(logger.FieldKey, t.key.String(), logger.FieldRequestID, t.id))

	start := tr.now()
	resp, err := fetch(ctx)
	if err == nil && resp == nil {
		resp = &httpclient.Response{StatusCode: http.StatusNoContent}
	}
	if resp != nil {
		span.SetAttributes(attribute.Int(observability.AttrStatusCode, resp.StatusCode))
	}
	observability.EndSpan(span, err)

	var final *Entry
	switch {
	case err == nil:
		if cacheable {
			tr.store(ctx, t.key, resp.Body)
		}
		final = &Entry{State: remotedata.StateSuccess, Response: resp, LastUpdated: tr.now()}
		tr.log.Debug("settled", logger.Fields(
			logger.FieldKey, t.key.String(),
			logger.FieldStatus, resp.StatusCode,
			logger.FieldDuration, tr.now().Sub(start).Milliseconds(),
		))
	case t.ctx.Err() != nil && tr.ctx.Err() == nil:
		tr.log.Debug("abandoned request cancelled", logger.Fields(logger.FieldKey, t.key.String()))
	case revalidate && !gone(err):
		tr.log.Warn("revalidation failed, keeping stale entry", logger.Fields(
			logger.FieldKey, t.key.String(), logger.FieldError, err.Error()))
	default:
		info := remotedata.ErrorFrom(err)
		if tr.ctx.Err() != nil {
			info = remotedata.ErrorInfo{Message: ErrClosed.Error()}
		}
		if revalidate {
			if rmErr := tr.cache.Remove(ctx, t.key.String()); rmErr != nil {
				tr.log.Warn("cache remove failed", logger.Fields(logger.FieldKey, t.key.String(), logger.FieldError, rmErr.Error()))
			}
		}
		tr.metrics.RecordFailure(ctx, info.StatusCode)
		final = &Entry{State: remotedata.StateFailed, Response: resp, Err: &info, LastUpdated: tr.now()}
		tr.log.Warn("request failed", logger.Fields(
			logger.FieldKey, t.key.String(),
			logger.FieldStatus, info.StatusCode,
			logger.FieldError, info.Message,
		))
	}

	tr.mu.Lock()
	if tr.pending[t.key] == t {
		delete(tr.pending, t.key)
	}
	delete(tr.sends, t.id)
	tr.mu.Unlock()

	t.settle(final)
}

// gone reports whether err says the resource no longer exists, as opposed
// to a transient failure a stale entry can ride out.
func gone(err error) bool {
	switch remotedata.ErrorFrom(err).StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return true
	}
	return false
}

// store writes a successful body to the cache, then gives every embedded
// resource with a self link an entry of its own unless a fresh one exists.
func (tr *Tracker) store(ctx context.Context, key Key, body []byte) {
	doc, err := hal.Parse(body)
	if err != nil {
		if putErr := tr.cache.Put(ctx, key.String(), body); putErr != nil {
			tr.log.Warn("cache write failed", logger.Fields(logger.FieldKey, key.String(), logger.FieldError, putErr.Error()))
		}
		return
	}
	types := doc.Types()
	if doc.IsCollection() {
		types = append(types, CollectionTag(key.URL))
	}
	if err := tr.cache.Put(ctx, key.String(), body, types...); err != nil {
		tr.log.Warn("cache write failed", logger.Fields(logger.FieldKey, key.String(), logger.FieldError, err.Error()))
		return
	}

	doc.Walk(func(d *hal.Document) {
		if d == doc || d.Self == "" || d.Type == "" {
			return
		}
		childKey := GetKey(d.Self, nil).String()
		if existing, err := tr.cache.Get(ctx, childKey); err == nil && existing != nil && !tr.cache.IsStale(existing) {
			return
		}
		if err := tr.cache.Put(ctx, childKey, d.Raw, d.Types()...); err != nil {
			tr.log.Warn("cache write failed", logger.Fields(logger.FieldKey, childKey, logger.FieldError, err.Error()))
		}
	})
}

func (tr *Tracker) cachedEntry(key Key, e *objectcache.Entry, stale bool) Entry {
	return Entry{
		ID:    uuid.NewString(),
		Key:   key,
		State: remotedata.StateSuccess,
		Response: &httpclient.Response{
			StatusCode: http.StatusOK,
			Body:       e.Representation,
		},
		LastUpdated: e.Timestamp,
		Stale:       stale,
	}
}

func (tr *Tracker) closedEntry() *Entry {
	return &Entry{
		ID:          uuid.NewString(),
		State:       remotedata.StateFailed,
		Err:         &remotedata.ErrorInfo{Message: ErrClosed.Error()},
		LastUpdated: tr.now(),
	}
}
