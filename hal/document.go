package hal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// ResourceType is the value of a payload's "type" field.
type ResourceType string

// Document is a parsed HAL representation.
type Document struct {
	// Raw is the representation exactly as received.
	Raw  json.RawMessage
	Type ResourceType
	// Self is the untemplated href of the "self" link.
	Self  string
	Links Links
	// Embedded holds "_embedded" resources. A single embedded object is
	// stored as a one-element slice.
	Embedded map[string][]*Document
	// Page is set on paginated collections.
	Page *PageInfo
	// Resolved holds relations resolved by the builder, keyed by relation.
	Resolved map[string]*Document

	single      map[string]bool
	rawEmbedded map[string]json.RawMessage
}

type wireDocument struct {
	Type     ResourceType               `json:"type"`
	Links    Links                      `json:"_links"`
	Embedded map[string]json.RawMessage `json:"_embedded"`
	Page     *wirePage                  `json:"page"`
}

// Parse decodes a HAL representation. Raw keeps a reference to data.
func Parse(data []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	doc := &Document{
		Raw:   data,
		Type:  w.Type,
		Links: w.Links,
	}
	doc.Self, _ = w.Links.Href("self")
	if w.Page != nil {
		info := w.Page.info()
		doc.Page = &info
	}

	if len(w.Embedded) > 0 {
		doc.Embedded = make(map[string][]*Document, len(w.Embedded))
		doc.single = make(map[string]bool)
		doc.rawEmbedded = w.Embedded
	}
	for rel, msg := range w.Embedded {
		msg = bytes.TrimSpace(msg)
		if len(msg) == 0 || bytes.Equal(msg, []byte("null")) {
			continue
		}
		if msg[0] != '[' {
			child, err := Parse(msg)
			if err != nil {
				return nil, fmt.Errorf("embedded %q: %w", rel, err)
			}
			doc.Embedded[rel] = []*Document{child}
			doc.single[rel] = true
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(msg, &items); err != nil {
			return nil, fmt.Errorf("embedded %q: %w", rel, err)
		}
		children := make([]*Document, 0, len(items))
		for i, item := range items {
			child, err := Parse(item)
			if err != nil {
				return nil, fmt.Errorf("embedded %q[%d]: %w", rel, i, err)
			}
			children = append(children, child)
		}
		doc.Embedded[rel] = children
	}
	return doc, nil
}

// IsCollection reports whether the document is a page of elements rather than
// a single resource.
func (d *Document) IsCollection() bool {
	if d.Page != nil {
		return true
	}
	return d.Type == "" && len(d.Embedded) == 1 && !d.single[d.embeddedRels()[0]]
}

// Elements returns the elements of a collection document.
func (d *Document) Elements() []*Document {
	if !d.IsCollection() {
		return nil
	}
	for _, rel := range d.embeddedRels() {
		if !d.single[rel] {
			return d.Embedded[rel]
		}
	}
	return nil
}

// PageInfo returns the page metadata, synthesizing a single page for
// collections sent without it.
func (d *Document) PageInfo() PageInfo {
	if d.Page != nil {
		return *d.Page
	}
	n := len(d.Elements())
	return PageInfo{ElementsPerPage: n, TotalElements: n, TotalPages: 1, CurrentPage: 1}
}

// Href returns the untemplated href of rel.
func (d *Document) Href(rel string) (string, bool) {
	return d.Links.Href(rel)
}

// HasRelation reports whether rel is linked or embedded.
func (d *Document) HasRelation(rel string) bool {
	if _, ok := d.Embedded[rel]; ok {
		return true
	}
	_, ok := d.Links.Href(rel)
	return ok
}

// EmbeddedRelation returns rel as a document if it is embedded. An embedded
// array comes back as a collection document over its elements.
func (d *Document) EmbeddedRelation(rel string) (*Document, bool) {
	children, ok := d.Embedded[rel]
	if !ok {
		return nil, false
	}
	if d.single[rel] {
		return children[0], true
	}
	coll := &Document{
		Raw:      d.rawEmbedded[rel],
		Embedded: map[string][]*Document{rel: children},
	}
	coll.Self, _ = d.Links.Href(rel)
	return coll, true
}

// SetResolved records the resolved document for rel.
func (d *Document) SetResolved(rel string, resolved *Document) {
	if d.Resolved == nil {
		d.Resolved = make(map[string]*Document)
	}
	d.Resolved[rel] = resolved
}

// Types returns the distinct resource types in the document, embedded
// resources included, sorted.
func (d *Document) Types() []string {
	seen := map[string]bool{}
	d.Walk(func(doc *Document) {
		if doc.Type != "" {
			seen[string(doc.Type)] = true
		}
	})
	return slices.Sorted(maps.Keys(seen))
}

// Walk calls fn for d and every embedded document beneath it, depth first.
func (d *Document) Walk(fn func(*Document)) {
	fn(d)
	for _, rel := range d.embeddedRels() {
		for _, child := range d.Embedded[rel] {
			child.Walk(fn)
		}
	}
}

func (d *Document) embeddedRels() []string {
	return slices.Sorted(maps.Keys(d.Embedded))
}
