package request

import (
	"net/http"
	"net/url"
)

// Key identifies a request: the method plus the fully resolved URL, query
// options included.
type Key struct {
	Method string
	URL    string
}

// NewKey builds a key with a canonical URL: query options are merged into the
// href's own query and encoded in sorted order, and the fragment is dropped.
func NewKey(method, href string, query url.Values) Key {
	return Key{Method: method, URL: canonicalURL(href, query)}
}

// GetKey is NewKey for GET.
func GetKey(href string, query url.Values) Key {
	return NewKey(http.MethodGet, href, query)
}

// String renders the key as "METHOD URL"; it is the object cache key.
func (k Key) String() string {
	return k.Method + " " + k.URL
}

func canonicalURL(href string, query url.Values) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	q := u.Query()
	for k, vs := range query {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

// CollectionTag is the index tag under which every page of the collection at
// href is cached, so that an empty page can still be invalidated.
func CollectionTag(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return "collection " + href
	}
	u.RawQuery = ""
	u.Fragment = ""
	return "collection " + u.String()
}
