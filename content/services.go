package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/hyperdata/dataservice"
	"github.com/kbukum/hyperdata/errors"
	"github.com/kbukum/hyperdata/hal"
	"github.com/kbukum/hyperdata/remotedata"
)

// ItemService reads and writes items.
type ItemService = dataservice.Service[Item, *Item]

// BitstreamFormatService reads bitstream formats.
type BitstreamFormatService = dataservice.Service[BitstreamFormat, *BitstreamFormat]

// NewItemService creates the item client.
func NewItemService(deps dataservice.Deps) (*ItemService, error) {
	return dataservice.New[Item](dataservice.Config{Type: TypeItem, LinkPath: PathItems}, deps)
}

// NewBitstreamFormatService creates the bitstream format client.
func NewBitstreamFormatService(deps dataservice.Deps) (*BitstreamFormatService, error) {
	return dataservice.New[BitstreamFormat](dataservice.Config{Type: TypeBitstreamFormat, LinkPath: PathBitstreamFormats}, deps)
}

// BundleService reads and writes bundles.
type BundleService struct {
	*dataservice.Service[Bundle, *Bundle]
}

// NewBundleService creates the bundle client.
func NewBundleService(deps dataservice.Deps) (*BundleService, error) {
	svc, err := dataservice.New[Bundle](dataservice.Config{Type: TypeBundle, LinkPath: PathBundles}, deps)
	if err != nil {
		return nil, err
	}
	return &BundleService{Service: svc}, nil
}

// FindAllByItem reads a page of the item's bundles.
func (s *BundleService) FindAllByItem(item *Item, options *hal.FindListOptions, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*hal.PaginatedList[*Bundle]]] {
	href, ok := item.Href(RelBundles)
	if !ok {
		return notFound[*hal.PaginatedList[*Bundle]](fmt.Sprintf("Item %s has no bundles link", item.UUID))
	}
	return s.FindAllByHref(href, options, links...)
}

// FindByItemAndName returns the first bundle of item called name, or a 404.
// Every page of the item's bundles is searched.
func (s *BundleService) FindByItemAndName(item *Item, name string, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*Bundle]] {
	if _, ok := item.Href(RelBundles); !ok {
		return notFound[*Bundle](fmt.Sprintf("Item %s has no bundles link", item.UUID))
	}
	return findFirst(
		func(options *hal.FindListOptions) remotedata.Stream[remotedata.RemoteData[*hal.PaginatedList[*Bundle]]] {
			return s.FindAllByItem(item, options, links...)
		},
		func(b *Bundle) bool { return b.Name == name },
		errors.NotFound(fmt.Sprintf("The bundle %s of item %s was not found", name, item.UUID)),
	)
}

// BitstreamService reads and writes bitstreams.
type BitstreamService struct {
	*dataservice.Service[Bitstream, *Bitstream]
	bundles *BundleService
	formats *BitstreamFormatService
}

// NewBitstreamService creates the bitstream client.
func NewBitstreamService(deps dataservice.Deps, bundles *BundleService, formats *BitstreamFormatService) (*BitstreamService, error) {
	svc, err := dataservice.New[Bitstream](dataservice.Config{Type: TypeBitstream, LinkPath: PathBitstreams}, deps)
	if err != nil {
		return nil, err
	}
	return &BitstreamService{Service: svc, bundles: bundles, formats: formats}, nil
}

// FindAllByBundle reads a page of the bundle's bitstreams.
func (s *BitstreamService) FindAllByBundle(bundle *Bundle, options *hal.FindListOptions, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*hal.PaginatedList[*Bitstream]]] {
	href, ok := bundle.Href(RelBitstreams)
	if !ok {
		return notFound[*hal.PaginatedList[*Bitstream]](fmt.Sprintf("Bundle %s has no bitstreams link", bundle.Name))
	}
	return s.FindAllByHref(href, options, links...)
}

// FindAllByItemAndBundleName reads a page of the bitstreams in the item's
// bundle called bundleName. A failed bundle lookup is passed through.
func (s *BitstreamService) FindAllByItemAndBundleName(item *Item, bundleName string, options *hal.FindListOptions, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*hal.PaginatedList[*Bitstream]]] {
	return remotedata.Chain(s.bundles.FindByItemAndName(item, bundleName), func(b *Bundle) remotedata.Stream[remotedata.RemoteData[*hal.PaginatedList[*Bitstream]]] {
		return s.FindAllByBundle(b, options, links...)
	})
}

// GetThumbnailFor returns the first bitstream of the item's THUMBNAIL bundle.
func (s *BitstreamService) GetThumbnailFor(item *Item) remotedata.Stream[remotedata.RemoteData[*Bitstream]] {
	page := &hal.FindListOptions{ElementsPerPage: 1, CurrentPage: 1}
	return remotedata.MapPayload(s.FindAllByItemAndBundleName(item, ThumbnailBundle, page), func(list *hal.PaginatedList[*Bitstream]) (*Bitstream, error) {
		first, ok := list.First()
		if !ok {
			return nil, remotedata.NotFound("No thumbnail found")
		}
		return first, nil
	})
}

// GetMatchingThumbnail returns the THUMBNAIL bitstream whose name starts with
// the name of original. Every page of the bundle is searched.
func (s *BitstreamService) GetMatchingThumbnail(item *Item, original *Bitstream) remotedata.Stream[remotedata.RemoteData[*Bitstream]] {
	return remotedata.Chain(s.bundles.FindByItemAndName(item, ThumbnailBundle), func(b *Bundle) remotedata.Stream[remotedata.RemoteData[*Bitstream]] {
		return findFirst(
			func(options *hal.FindListOptions) remotedata.Stream[remotedata.RemoteData[*hal.PaginatedList[*Bitstream]]] {
				return s.FindAllByBundle(b, options)
			},
			func(bs *Bitstream) bool { return strings.HasPrefix(bs.Name, original.Name) },
			remotedata.NotFound("No matching thumbnail found"),
		)
	})
}

// GetFormat follows the bitstream's format relation.
func (s *BitstreamService) GetFormat(bitstream *Bitstream, links ...*hal.LinkDescriptor) remotedata.Stream[remotedata.RemoteData[*BitstreamFormat]] {
	href, ok := bitstream.Href(RelFormat)
	if !ok {
		return notFound[*BitstreamFormat](fmt.Sprintf("Bitstream %s has no format link", bitstream.Name))
	}
	return s.formats.FindByHref(href, links...)
}

func notFound[P any](message string) remotedata.Stream[remotedata.RemoteData[P]] {
	return remotedata.Just(remotedata.Failed[P](remotedata.NotFound(message)))
}

// scanPageSize is the page size used when searching a whole collection.
var scanPageSize = 100

// findFirst walks the pages of a collection in order until match accepts an
// element, and fails with missing once the last page is exhausted. Loading
// snapshots of the first page are forwarded; a failed page fails the search.
func findFirst[T any](
	list func(*hal.FindListOptions) remotedata.Stream[remotedata.RemoteData[*hal.PaginatedList[T]]],
	match func(T) bool,
	missing error,
) remotedata.Stream[remotedata.RemoteData[T]] {
	return remotedata.NewStream(func(ctx context.Context, emit remotedata.Emit[remotedata.RemoteData[T]]) {
		for page := 1; ; page++ {
			next := false
			alive := true
			list(&hal.FindListOptions{ElementsPerPage: scanPageSize, CurrentPage: page}).Run(ctx, func(rd remotedata.RemoteData[*hal.PaginatedList[T]]) bool {
				l, ok := rd.Payload()
				switch {
				case rd.IsLoading():
					if page > 1 {
						return true
					}
					alive = emit(remotedata.Convert[T](rd))
				case !rd.HasSucceeded() || !ok:
					alive = emit(remotedata.Convert[T](rd))
				default:
					for _, v := range l.Page {
						if match(v) {
							out := remotedata.Success(v).WithTimeCompleted(rd.TimeCompleted())
							if rd.IsStale() {
								out = out.WithStale()
							}
							alive = emit(out)
							return alive
						}
					}
					if l.PageInfo.CurrentPage < l.PageInfo.TotalPages {
						next = true
						return false
					}
					alive = emit(remotedata.Failed[T](remotedata.ErrorFrom(missing)).WithTimeCompleted(rd.TimeCompleted()))
				}
				return alive
			})
			if !next || !alive {
				return
			}
		}
	})
}
