// Package builder composes tracked requests into remote data streams and
// resolves hypermedia links on the payloads they return.
package builder

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/hyperdata/errors"
	"github.com/kbukum/hyperdata/hal"
	"github.com/kbukum/hyperdata/logger"
	"github.com/kbukum/hyperdata/remotedata"
	"github.com/kbukum/hyperdata/request"
)

// Tracker is the part of the request tracker the builder reads through.
type Tracker interface {
	Get(href string, query url.Values) remotedata.Stream[request.Entry]
}

// Linker finds the href of a relation on a payload. It returns an
// ENDPOINT_NOT_FOUND error when the payload does not link the relation.
type Linker interface {
	Href(doc *hal.Document, relation string) (string, error)
}

// Builder turns an href plus link descriptors into a composite stream.
type Builder struct {
	tracker Tracker
	linker  Linker
	log     *logger.Logger
}

// New creates a builder reading through tracker and following relations
// through linker.
func New(tracker Tracker, linker Linker, log *logger.Logger) *Builder {
	return &Builder{
		tracker: tracker,
		linker:  linker,
		log:     logger.OrNop(log).WithComponent("builder"),
	}
}

// Build tracks a GET of href and resolves links on every successful payload.
//
// Pending snapshots of the primary request are forwarded. Once a payload
// arrives, each descriptor whose relation the payload embeds or links is
// resolved, concurrently; linked relations become tracked requests of their
// own through Build. While those are in flight the composite reports
// ResponsePending. Results land in Document.Resolved. Any nested failure
// fails the composite. For a collection the descriptors apply to every
// element.
func (b *Builder) Build(href string, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*hal.Document]] {
	return remotedata.NewStream(func(ctx context.Context, emit remotedata.Emit[remotedata.RemoteData[*hal.Document]]) {
		if err := hal.ValidateAll(links); err != nil {
			emit(remotedata.Failed[*hal.Document](remotedata.ErrorFrom(errors.InvalidInput("links", err.Error()))))
			return
		}

		last := remotedata.State(-1)
		send := func(rd remotedata.RemoteData[*hal.Document]) bool {
			last = rd.State()
			return emit(rd)
		}
		b.tracker.Get(href, nil).Run(ctx, func(e request.Entry) bool {
			if e.State != remotedata.StateSuccess {
				return send(remotedata.Convert[*hal.Document](e.RemoteData()))
			}
			if len(links) > 0 && last != remotedata.StateResponsePending && !last.IsTerminal() {
				if !send(remotedata.ResponsePending[*hal.Document]()) {
					return false
				}
			}
			return send(b.compose(ctx, e, links))
		})
	})
}

// BuildList is Build for collection endpoints, with list options encoded
// into the query.
func (b *Builder) BuildList(href string, options *hal.FindListOptions, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*hal.Document]] {
	return b.Build(request.GetKey(href, options.Query()).URL, links...)
}

func (b *Builder) compose(ctx context.Context, e request.Entry, links []*hal.LinkDescriptor) remotedata.RemoteData[*hal.Document] {
	finish := func(rd remotedata.RemoteData[*hal.Document]) remotedata.RemoteData[*hal.Document] {
		rd = rd.WithTimeCompleted(e.LastUpdated)
		if e.Stale && rd.HasSucceeded() {
			rd = rd.WithStale()
		}
		return rd
	}

	if e.Response == nil || len(e.Response.Body) == 0 {
		return finish(remotedata.SuccessEmpty[*hal.Document]())
	}
	doc, err := hal.Parse(e.Response.Body)
	if err != nil {
		return remotedata.Failed[*hal.Document](remotedata.ErrorFrom(errors.InvalidFormat("HAL document", err)))
	}
	if len(links) == 0 {
		return finish(remotedata.Success(doc))
	}

	if err := b.resolve(ctx, doc, links); err != nil {
		b.log.Warn("link resolution failed", logger.Fields(logger.FieldHref, doc.Self, logger.FieldError, err.Error()))
		return remotedata.Failed[*hal.Document](remotedata.ErrorFrom(err))
	}
	return finish(remotedata.Success(doc))
}

// resolve applies links to doc, or to each element when doc is a collection.
// Relations absent from a payload are skipped. Descriptors sharing a relation
// are merged first, so each document is only written by one call.
func (b *Builder) resolve(ctx context.Context, doc *hal.Document, links []*hal.LinkDescriptor) error {
	links = hal.Merge(links...)
	targets := []*hal.Document{doc}
	if doc.IsCollection() {
		targets = doc.Elements()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		for _, d := range links {
			if embedded, ok := target.EmbeddedRelation(d.Relation); ok {
				mu.Lock()
				target.SetResolved(d.Relation, embedded)
				mu.Unlock()
				if len(d.Links) > 0 {
					g.Go(func() error { return b.resolve(gctx, embedded, d.Links) })
				}
				continue
			}

			href, err := b.linker.Href(target, d.Relation)
			if errors.Is(err, errors.ErrCodeEndpointNotFound) {
				continue
			}
			g.Go(func() error {
				if err != nil {
					return err
				}
				rd := remotedata.Await(gctx, b.Build(href, d.Links...))
				if rd.HasFailed() {
					info := rd.Error()
					return errors.LinkResolution(d.Relation, info.StatusCode, info.Message).
						WithDetail("href", href)
				}
				resolved, _ := rd.Payload()
				mu.Lock()
				target.SetResolved(d.Relation, resolved)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("resolve links on %s: %w", doc.Self, err)
	}
	return nil
}
