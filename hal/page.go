package hal

import (
	"net/url"
	"strconv"
	"strings"
)

// PageInfo describes one page of a paginated collection. CurrentPage is
// 1-based; the wire format counts from 0.
type PageInfo struct {
	ElementsPerPage int `json:"elementsPerPage"`
	TotalElements   int `json:"totalElements"`
	TotalPages      int `json:"totalPages"`
	CurrentPage     int `json:"currentPage"`
}

// wirePage is the "page" object as the server sends it.
type wirePage struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}

func (w wirePage) info() PageInfo {
	return PageInfo{
		ElementsPerPage: w.Size,
		TotalElements:   w.TotalElements,
		TotalPages:      w.TotalPages,
		CurrentPage:     w.Number + 1,
	}
}

// PaginatedList is one page of typed elements. An empty Page is a valid
// result.
type PaginatedList[T any] struct {
	Page     []T      `json:"page"`
	PageInfo PageInfo `json:"pageInfo"`
}

// Len returns the number of elements on this page.
func (p *PaginatedList[T]) Len() int {
	return len(p.Page)
}

// First returns the first element, if any.
func (p *PaginatedList[T]) First() (T, bool) {
	var zero T
	if len(p.Page) == 0 {
		return zero, false
	}
	return p.Page[0], true
}

// SortDirection orders a sorted query.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// SortOptions sorts a collection query by one field.
type SortOptions struct {
	Field     string        `validate:"required"`
	Direction SortDirection `validate:"omitempty,oneof=ASC DESC"`
}

// FindListOptions are the query options of a collection request.
type FindListOptions struct {
	ElementsPerPage int `validate:"gte=0"`
	// CurrentPage is 1-based; zero leaves paging to the server.
	CurrentPage int `validate:"gte=0"`
	Sort        *SortOptions
	// Filters are passed through as query parameters.
	Filters map[string]string
}

// Query encodes the options as URL query parameters.
func (o *FindListOptions) Query() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	if o.ElementsPerPage > 0 {
		q.Set("size", strconv.Itoa(o.ElementsPerPage))
	}
	if o.CurrentPage > 0 {
		q.Set("page", strconv.Itoa(o.CurrentPage-1))
	}
	if o.Sort != nil && o.Sort.Field != "" {
		dir := o.Sort.Direction
		if dir == "" {
			dir = SortAsc
		}
		q.Set("sort", o.Sort.Field+","+strings.ToUpper(string(dir)))
	}
	for k, v := range o.Filters {
		q.Set(k, v)
	}
	return q
}
