// Package dataservice provides a generic client for one HAL resource type.
//
// Reads go through the builder, so concurrent identical reads share one
// transport call and repeated reads are served from the object cache.
// Mutations bypass both and invalidate every cached entry that could hold the
// changed resource.
package dataservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kbukum/hyperdata/builder"
	"github.com/kbukum/hyperdata/endpoint"
	"github.com/kbukum/hyperdata/hal"
	"github.com/kbukum/hyperdata/httpclient"
	"github.com/kbukum/hyperdata/logger"
	"github.com/kbukum/hyperdata/remotedata"
	"github.com/kbukum/hyperdata/request"
	"github.com/kbukum/hyperdata/validation"
)

// ContentTypeJSONPatch is sent with Patch requests.
const ContentTypeJSONPatch = "application/json-patch+json"

// Config describes the resource a Service serves.
type Config struct {
	// Type is the payload "type" of the resource, e.g. "item".
	Type hal.ResourceType `validate:"required"`
	// LinkPath is the endpoint table key, e.g. "items".
	LinkPath string `validate:"required"`
	// DefaultLinks are followed when a read names no links.
	DefaultLinks []*hal.LinkDescriptor
}

// Deps are the collaborators a Service reads and writes through.
type Deps struct {
	Resolver *endpoint.Resolver
	Tracker  *request.Tracker
	Builder  *builder.Builder
	Log      *logger.Logger
}

// PatchOperation is one JSON Patch operation.
type PatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Service is the client for model T.
type Service[T any, PT hal.Object[T]] struct {
	cfg  Config
	href string
	deps Deps
	log  *logger.Logger
}

// New creates a service. The link path is resolved and the default links are
// validated here; both failures are configuration faults.
func New[T any, PT hal.Object[T]](cfg Config, deps Deps) (*Service[T, PT], error) {
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	if deps.Resolver == nil || deps.Tracker == nil || deps.Builder == nil {
		return nil, fmt.Errorf("dataservice %s: resolver, tracker and builder are required", cfg.LinkPath)
	}
	if err := hal.ValidateAll(cfg.DefaultLinks); err != nil {
		return nil, fmt.Errorf("dataservice %s: default links: %w", cfg.LinkPath, err)
	}
	href, err := deps.Resolver.Resolve(cfg.LinkPath)
	if err != nil {
		return nil, fmt.Errorf("dataservice %s: %w", cfg.LinkPath, err)
	}
	return &Service[T, PT]{
		cfg:  cfg,
		href: href,
		deps: deps,
		log:  logger.OrNop(deps.Log).WithComponent("dataservice").WithFields(logger.Fields(logger.FieldType, string(cfg.Type))),
	}, nil
}

// Type returns the resource type.
func (s *Service[T, PT]) Type() hal.ResourceType {
	return s.cfg.Type
}

// LinkPath returns the endpoint table key.
func (s *Service[T, PT]) LinkPath() string {
	return s.cfg.LinkPath
}

// Href returns the collection endpoint.
func (s *Service[T, PT]) Href() string {
	return s.href
}

// FindByHref reads the resource at href.
func (s *Service[T, PT]) FindByHref(href string, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*T]] {
	return remotedata.MapPayload(s.deps.Builder.Build(href, s.links(links)...), hal.DecodeObject[T, PT])
}

// FindByID reads the resource with id under the link path.
func (s *Service[T, PT]) FindByID(id string, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*T]] {
	href, err := s.deps.Resolver.Resolve(s.cfg.LinkPath, id)
	if err != nil {
		return failed[*T](err)
	}
	return s.FindByHref(href, links...)
}

// FindAll reads a page of the collection endpoint.
func (s *Service[T, PT]) FindAll(options *hal.FindListOptions, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*hal.PaginatedList[*T]]] {
	return s.FindAllByHref(s.href, options, links...)
}

// FindAllByHref reads a page of the collection at href. Links apply to every
// element.
func (s *Service[T, PT]) FindAllByHref(href string, options *hal.FindListOptions, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*hal.PaginatedList[*T]]] {
	if options != nil {
		if err := validation.Validate(options); err != nil {
			return failed[*hal.PaginatedList[*T]](err)
		}
	}
	return remotedata.MapPayload(s.deps.Builder.BuildList(href, options, s.links(links)...), hal.DecodeList[T, PT])
}

// SearchBy reads a page from the named search endpoint, linkPath/search/method.
func (s *Service[T, PT]) SearchBy(method string, options *hal.FindListOptions, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*hal.PaginatedList[*T]]] {
	href, err := s.deps.Resolver.Resolve(s.cfg.LinkPath, "search", method)
	if err != nil {
		return failed[*hal.PaginatedList[*T]](err)
	}
	return s.FindAllByHref(href, options, links...)
}

// Create posts obj to the collection endpoint.
func (s *Service[T, PT]) Create(obj PT) remotedata.Stream[remotedata.RemoteData[*T]] {
	body, err := json.Marshal(obj)
	if err != nil {
		return failed[*T](err)
	}
	return s.mutate(httpclient.Request{Method: http.MethodPost, Path: s.href, Body: body}, "")
}

// Update replaces obj at its self link.
func (s *Service[T, PT]) Update(obj PT) remotedata.Stream[remotedata.RemoteData[*T]] {
	self := obj.HAL().Self()
	if self == "" {
		return failed[*T](fmt.Errorf("update %s: object has no self link", s.cfg.Type))
	}
	body, err := json.Marshal(obj)
	if err != nil {
		return failed[*T](err)
	}
	return s.mutate(httpclient.Request{Method: http.MethodPut, Path: self, Body: body}, self)
}

// Patch applies ops to obj at its self link.
func (s *Service[T, PT]) Patch(obj PT, ops []PatchOperation) remotedata.Stream[remotedata.RemoteData[*T]] {
	self := obj.HAL().Self()
	if self == "" {
		return failed[*T](fmt.Errorf("patch %s: object has no self link", s.cfg.Type))
	}
	body, err := json.Marshal(ops)
	if err != nil {
		return failed[*T](err)
	}
	return s.mutate(httpclient.Request{
		Method:  http.MethodPatch,
		Path:    self,
		Headers: map[string]string{"Content-Type": ContentTypeJSONPatch},
		Body:    body,
	}, self)
}

// Delete deletes the resource at href. Success carries no payload.
func (s *Service[T, PT]) Delete(href string) remotedata.Stream[remotedata.RemoteData[*T]] {
	return s.mutate(httpclient.Request{Method: http.MethodDelete, Path: href}, href)
}

// Invalidate marks the cached resource at href stale.
func (s *Service[T, PT]) Invalidate(ctx context.Context, href string) error {
	return s.deps.Tracker.Invalidate(ctx, request.GetKey(href, nil))
}

// InvalidateAll marks every cached entry containing this resource type, and
// every page of the collection endpoint, stale.
func (s *Service[T, PT]) InvalidateAll(ctx context.Context) (int, error) {
	n, err := s.deps.Tracker.InvalidateByType(ctx, string(s.cfg.Type))
	if err != nil {
		return n, err
	}
	m, err := s.deps.Tracker.InvalidateCollection(ctx, s.href)
	return n + m, err
}

func (s *Service[T, PT]) mutate(req httpclient.Request, self string) remotedata.Stream[remotedata.RemoteData[*T]] {
	sent := s.deps.Tracker.Send(req)
	return remotedata.NewStream(func(ctx context.Context, emit remotedata.Emit[remotedata.RemoteData[*T]]) {
		sent.Run(ctx, func(e request.Entry) bool {
			rd := e.RemoteData()
			if !rd.HasSucceeded() {
				return emit(remotedata.Convert[*T](rd))
			}
			s.invalidateAfter(ctx, req.Method, self)
			return emit(decodeResponse[T, PT](rd))
		})
	})
}

func (s *Service[T, PT]) invalidateAfter(ctx context.Context, method, self string) {
	if self != "" {
		var err error
		if method == http.MethodDelete {
			err = s.deps.Tracker.Remove(ctx, request.GetKey(self, nil))
		} else {
			err = s.Invalidate(ctx, self)
		}
		if err != nil {
			s.log.Warn("invalidate after mutation failed", logger.Fields(logger.FieldHref, self, logger.FieldError, err.Error()))
		}
	}
	n, err := s.InvalidateAll(ctx)
	if err != nil {
		s.log.Warn("invalidate after mutation failed", logger.Fields(logger.FieldOperation, method, logger.FieldError, err.Error()))
		return
	}
	s.log.Debug("invalidated after mutation", logger.Fields(logger.FieldOperation, method, logger.FieldHref, self, "count", n))
}

func (s *Service[T, PT]) links(links []*hal.LinkDescriptor) []*hal.LinkDescriptor {
	if len(links) == 0 {
		return s.cfg.DefaultLinks
	}
	return links
}

func decodeResponse[T any, PT hal.Object[T]](rd remotedata.RemoteData[*httpclient.Response]) remotedata.RemoteData[*T] {
	resp, _ := rd.Payload()
	if resp == nil || len(resp.Body) == 0 {
		return remotedata.SuccessEmpty[*T]().WithTimeCompleted(rd.TimeCompleted())
	}
	doc, err := hal.Parse(resp.Body)
	if err != nil {
		return remotedata.Failed[*T](remotedata.ErrorFrom(err)).WithTimeCompleted(rd.TimeCompleted())
	}
	v, err := hal.DecodeObject[T, PT](doc)
	if err != nil {
		return remotedata.Failed[*T](remotedata.ErrorFrom(err)).WithTimeCompleted(rd.TimeCompleted())
	}
	return remotedata.Success(v).WithTimeCompleted(rd.TimeCompleted())
}

func failed[P any](err error) remotedata.Stream[remotedata.RemoteData[P]] {
	return remotedata.Just(remotedata.Failed[P](remotedata.ErrorFrom(err)))
}
