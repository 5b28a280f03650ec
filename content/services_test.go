package content

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/kbukum/hyperdata/builder"
	"github.com/kbukum/hyperdata/dataservice"
	"github.com/kbukum/hyperdata/endpoint"
	"github.com/kbukum/hyperdata/hal"
	"github.com/kbukum/hyperdata/haltest"
	"github.com/kbukum/hyperdata/httpclient"
	"github.com/kbukum/hyperdata/objectcache"
	"github.com/kbukum/hyperdata/remotedata"
	"github.com/kbukum/hyperdata/request"
)

type fixture struct {
	srv        *haltest.Server
	items      *ItemService
	bundles    *BundleService
	bitstreams *BitstreamService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := haltest.New(t)
	adapter, err := httpclient.New(httpclient.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	cache := objectcache.New(objectcache.NewMemoryStore(), time.Minute, nil)
	tr := request.New(adapter, cache, nil)
	t.Cleanup(tr.Close)
	resolver := endpoint.New(srv.URL, nil, nil, nil)
	deps := dataservice.Deps{
		Resolver: resolver,
		Tracker:  tr,
		Builder:  builder.New(tr, resolver, nil),
	}

	items, err := NewItemService(deps)
	if err != nil {
		t.Fatal(err)
	}
	bundles, err := NewBundleService(deps)
	if err != nil {
		t.Fatal(err)
	}
	formats, err := NewBitstreamFormatService(deps)
	if err != nil {
		t.Fatal(err)
	}
	bitstreams, err := NewBitstreamService(deps, bundles, formats)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{srv: srv, items: items, bundles: bundles, bitstreams: bitstreams}
}

func await[T any](t *testing.T, s remotedata.Stream[remotedata.RemoteData[T]]) remotedata.RemoteData[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := remotedata.Collect(ctx, s)
	if len(got) == 0 {
		t.Fatal("stream emitted nothing")
	}
	for _, rd := range got[:len(got)-1] {
		if rd.HasCompleted() {
			t.Fatalf("terminal snapshot %v before the end", rd)
		}
	}
	return got[len(got)-1]
}

// seed serves item 1 with the given bundles, each holding bitstreams named
// by the map value.
func (f *fixture) seed(t *testing.T, bundles map[string][]string) *Item {
	t.Helper()
	srv := f.srv
	srv.JSON("/core/items/1", srv.Resource("item", "/core/items/1",
		map[string]any{"id": "1", "uuid": "item-1", "name": "Report"},
		map[string]string{RelBundles: "/core/items/1/bundles"}))

	var bundleObjs []any
	for name, files := range bundles {
		bpath := "/core/bundles/" + name
		bundleObjs = append(bundleObjs, srv.Resource("bundle", bpath, map[string]any{"name": name},
			map[string]string{RelBitstreams: bpath + "/bitstreams"}))
		var elems []any
		for _, file := range files {
			fpath := "/core/bitstreams/" + file
			elems = append(elems, srv.Resource("bitstream", fpath,
				map[string]any{"name": file, "sizeBytes": 10},
				map[string]string{RelFormat: fpath + "/format"}))
		}
		srv.Collection(bpath+"/bitstreams", "bitstreams", elems...)
	}
	srv.Collection("/core/items/1/bundles", "bundles", bundleObjs...)

	item, _ := await(t, f.items.FindByID("1")).Payload()
	return item
}

func TestBitstreamService_LinkPath(t *testing.T) {
	f := newFixture(t)
	if got := f.bitstreams.LinkPath(); got != "bitstreams" {
		t.Errorf("LinkPath = %q", got)
	}
}

func TestGetThumbnailFor_SingleThumbnail(t *testing.T) {
	f := newFixture(t)
	item := f.seed(t, map[string][]string{
		"ORIGINAL":  {"cover.pdf"},
		"THUMBNAIL": {"cover.jpg"},
	})

	rd := await(t, f.bitstreams.GetThumbnailFor(item))
	thumb, ok := rd.Payload()
	if !rd.HasSucceeded() || !ok || thumb.Name != "cover.jpg" {
		t.Fatalf("rd = %v", rd)
	}
	reqs := f.srv.Requests()
	last := reqs[len(reqs)-1]
	if last.Path != "/core/bundles/THUMBNAIL/bitstreams" || last.Query != "page=0&size=1" {
		t.Errorf("thumbnail page request = %s?%s", last.Path, last.Query)
	}
}

func TestGetThumbnailFor_NoThumbnailBundle(t *testing.T) {
	f := newFixture(t)
	item := f.seed(t, map[string][]string{"ORIGINAL": {"cover.pdf"}})

	rd := await(t, f.bitstreams.GetThumbnailFor(item))
	if !rd.HasFailed() {
		t.Fatalf("rd = %v", rd)
	}
	if info := rd.Error(); info.StatusCode != http.StatusNotFound {
		t.Errorf("error = %+v", info)
	}
}

func TestGetThumbnailFor_EmptyThumbnailBundle(t *testing.T) {
	f := newFixture(t)
	item := f.seed(t, map[string][]string{"THUMBNAIL": nil})

	rd := await(t, f.bitstreams.GetThumbnailFor(item))
	info := rd.Error()
	if info == nil || info.StatusCode != http.StatusNotFound || info.Message != "No thumbnail found" {
		t.Fatalf("rd = %v", rd)
	}
}

func TestGetThumbnailFor_MirrorsBundleFailure(t *testing.T) {
	f := newFixture(t)
	item := f.seed(t, map[string][]string{"THUMBNAIL": {"a.jpg"}})
	f.srv.Fail("/core/items/1/bundles", http.StatusServiceUnavailable, "maintenance")

	rd := await(t, f.bitstreams.GetThumbnailFor(item))
	if !rd.HasFailed() || rd.Error().StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("rd = %v", rd)
	}
}

func TestGetMatchingThumbnail(t *testing.T) {
	f := newFixture(t)
	item := f.seed(t, map[string][]string{
		"ORIGINAL":  {"report.pdf"},
		"THUMBNAIL": {"other.jpg", "report.pdf.jpg"},
	})

	got, ok := await(t, f.bitstreams.GetMatchingThumbnail(item, &Bitstream{Name: "report.pdf"})).Payload()
	if !ok || got.Name != "report.pdf.jpg" {
		t.Fatalf("got %+v", got)
	}

	rd := await(t, f.bitstreams.GetMatchingThumbnail(item, &Bitstream{Name: "data.csv"}))
	info := rd.Error()
	if !rd.HasFailed() || info.StatusCode != http.StatusNotFound || info.Message != "No matching thumbnail found" {
		t.Fatalf("rd = %v", rd)
	}
}

func TestFindByItemAndName(t *testing.T) {
	f := newFixture(t)
	item := f.seed(t, map[string][]string{"ORIGINAL": {"a.pdf"}, "LICENSE": {"license.txt"}})

	b, ok := await(t, f.bundles.FindByItemAndName(item, "LICENSE")).Payload()
	if !ok || b.Name != "LICENSE" {
		t.Fatalf("bundle = %+v", b)
	}

	rd := await(t, f.bundles.FindByItemAndName(item, "TEXT"))
	if !rd.HasFailed() || rd.Error().StatusCode != http.StatusNotFound {
		t.Fatalf("rd = %v", rd)
	}
}

func TestFindByItemAndName_SearchesEveryPage(t *testing.T) {
	orig := scanPageSize
	scanPageSize = 1
	t.Cleanup(func() { scanPageSize = orig })

	f := newFixture(t)
	item := f.seed(t, map[string][]string{"ORIGINAL": nil, "LICENSE": nil, "TEXT": nil})

	for _, name := range []string{"ORIGINAL", "LICENSE", "TEXT"} {
		b, ok := await(t, f.bundles.FindByItemAndName(item, name)).Payload()
		if !ok || b.Name != name {
			t.Fatalf("%s: bundle = %+v", name, b)
		}
	}

	rd := await(t, f.bundles.FindByItemAndName(item, "THUMBNAIL"))
	if !rd.HasFailed() || rd.Error().StatusCode != http.StatusNotFound {
		t.Fatalf("rd = %v", rd)
	}
	pages := map[string]bool{}
	for _, r := range f.srv.Requests() {
		if r.Path == "/core/items/1/bundles" {
			pages[r.Query] = true
		}
	}
	for _, q := range []string{"page=0&size=1", "page=1&size=1", "page=2&size=1"} {
		if !pages[q] {
			t.Errorf("page %q never requested; got %v", q, pages)
		}
	}
}

func TestGetMatchingThumbnail_SearchesEveryPage(t *testing.T) {
	orig := scanPageSize
	scanPageSize = 1
	t.Cleanup(func() { scanPageSize = orig })

	f := newFixture(t)
	item := f.seed(t, map[string][]string{
		"THUMBNAIL": {"a.jpg", "b.jpg", "report.pdf.jpg"},
	})

	got, ok := await(t, f.bitstreams.GetMatchingThumbnail(item, &Bitstream{Name: "report.pdf"})).Payload()
	if !ok || got.Name != "report.pdf.jpg" {
		t.Fatalf("got %+v", got)
	}
}

func TestGetFormat(t *testing.T) {
	f := newFixture(t)
	item := f.seed(t, map[string][]string{"ORIGINAL": {"a.pdf"}})
	f.srv.JSON("/core/bitstreams/a.pdf/format", f.srv.Resource("bitstreamformat", "/core/bitstreamformats/3",
		map[string]any{"shortDescription": "Adobe PDF", "mimetype": "application/pdf"}, nil))

	list, _ := await(t, f.bitstreams.FindAllByItemAndBundleName(item, "ORIGINAL", nil)).Payload()
	pdf, _ := list.First()
	format, ok := await(t, f.bitstreams.GetFormat(pdf)).Payload()
	if !ok || format.MimeType != "application/pdf" {
		t.Fatalf("format = %+v", format)
	}

	if rd := await(t, f.bitstreams.GetFormat(&Bitstream{Name: "orphan"})); !rd.HasFailed() {
		t.Errorf("missing format link: %v", rd)
	}
}

func TestItem_ResolvedAccessors(t *testing.T) {
	f := newFixture(t)
	f.seed(t, map[string][]string{"ORIGINAL": {"a.pdf", "b.pdf"}})

	rd := await(t, f.items.FindByID("1", hal.Follow(RelBundles, hal.Follow(RelBitstreams))))
	item, _ := rd.Payload()
	bundles, ok, err := item.Bundles()
	if err != nil || !ok || bundles.Len() != 1 {
		t.Fatalf("bundles = %+v, %v, %v", bundles, ok, err)
	}
	original, _ := bundles.First()
	files, ok, err := original.Bitstreams()
	if err != nil || !ok || files.Len() != 2 {
		t.Fatalf("bitstreams = %+v, %v, %v", files, ok, err)
	}
	if _, ok, _ := item.Thumbnail(); ok {
		t.Error("thumbnail resolved without a descriptor")
	}
}
