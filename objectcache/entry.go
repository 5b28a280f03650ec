package objectcache

import (
	"slices"
	"time"
)

// Entry is one cached representation.
type Entry struct {
	Key string `json:"key"`
	// Representation is the response body, stored and returned byte for byte.
	Representation []byte `json:"representation"`
	// Types lists every resource type present in the representation,
	// including embedded resources.
	Types       []string  `json:"types"`
	Timestamp   time.Time `json:"timestamp"`
	Invalidated bool      `json:"invalidated"`
}

// Clone returns a deep copy, so stores never share byte slices with callers.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Representation = slices.Clone(e.Representation)
	c.Types = slices.Clone(e.Types)
	return &c
}

// HasType reports whether the representation contains resourceType.
func (e *Entry) HasType(resourceType string) bool {
	return slices.Contains(e.Types, resourceType)
}
