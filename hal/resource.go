package hal

import (
	"encoding/json"
	"fmt"
)

// Resource is embedded by every typed model. It carries the common HAL fields
// and, after decoding, the document the model came from.
type Resource struct {
	ID    string       `json:"id,omitempty"`
	UUID  string       `json:"uuid,omitempty"`
	Type  ResourceType `json:"type,omitempty"`
	Links Links        `json:"_links,omitempty"`

	doc *Document
}

// Object is the constraint for typed models: a pointer to a struct that
// embeds Resource.
type Object[T any] interface {
	*T
	HAL() *Resource
}

// HAL returns the embedded Resource.
func (r *Resource) HAL() *Resource {
	return r
}

// Self returns the href of the self link.
func (r *Resource) Self() string {
	href, _ := r.Links.Href("self")
	return href
}

// Href returns the href of rel.
func (r *Resource) Href(rel string) (string, bool) {
	return r.Links.Href(rel)
}

// Document returns the document this resource was decoded from, if any.
func (r *Resource) Document() *Document {
	return r.doc
}

// Resolved returns the resolved document for rel, falling back to an embedded
// one.
func (r *Resource) Resolved(rel string) (*Document, bool) {
	if r.doc == nil {
		return nil, false
	}
	if d, ok := r.doc.Resolved[rel]; ok {
		return d, true
	}
	return r.doc.EmbeddedRelation(rel)
}

// DecodeObject decodes a single-resource document into a typed model.
func DecodeObject[T any, PT Object[T]](doc *Document) (*T, error) {
	if doc == nil {
		return nil, fmt.Errorf("decode: nil document")
	}
	var v T
	if err := json.Unmarshal(doc.Raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", doc.Type, err)
	}
	PT(&v).HAL().doc = doc
	return &v, nil
}

// DecodeList decodes a collection document into a page of typed models.
func DecodeList[T any, PT Object[T]](doc *Document) (*PaginatedList[*T], error) {
	if doc == nil {
		return nil, fmt.Errorf("decode: nil document")
	}
	elems := doc.Elements()
	page := make([]*T, 0, len(elems))
	for _, e := range elems {
		v, err := DecodeObject[T, PT](e)
		if err != nil {
			return nil, err
		}
		page = append(page, v)
	}
	return &PaginatedList[*T]{Page: page, PageInfo: doc.PageInfo()}, nil
}

// LinkedObject decodes the resolved relation rel of r. ok is false when rel
// was not resolved.
func LinkedObject[T any, PT Object[T]](r *Resource, rel string) (v *T, ok bool, err error) {
	d, ok := r.Resolved(rel)
	if !ok {
		return nil, false, nil
	}
	v, err = DecodeObject[T, PT](d)
	return v, err == nil, err
}

// LinkedList decodes the resolved collection relation rel of r.
func LinkedList[T any, PT Object[T]](r *Resource, rel string) (v *PaginatedList[*T], ok bool, err error) {
	d, ok := r.Resolved(rel)
	if !ok {
		return nil, false, nil
	}
	v, err = DecodeList[T, PT](d)
	return v, err == nil, err
}
