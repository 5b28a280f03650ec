package hal

import (
	"errors"
	"fmt"
	"strings"
)

// LinkDescriptor names a relation to resolve on a payload, and the relations
// to resolve in turn on the related resource.
type LinkDescriptor struct {
	Relation string
	Links    []*LinkDescriptor
}

// Follow builds a descriptor for rel with nested descriptors.
//
//	hal.Follow("bundles", hal.Follow("bitstreams"))
func Follow(rel string, nested ...*LinkDescriptor) *LinkDescriptor {
	return &LinkDescriptor{Relation: rel, Links: nested}
}

// Validate rejects nil descriptors and empty relation names at any depth.
func (d *LinkDescriptor) Validate() error {
	if d == nil {
		return errors.New("link descriptor is nil")
	}
	if strings.TrimSpace(d.Relation) == "" {
		return errors.New("link descriptor has an empty relation")
	}
	for _, n := range d.Links {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("%s: %w", d.Relation, err)
		}
	}
	return nil
}

// String renders the descriptor tree as "rel(nested,...)".
func (d *LinkDescriptor) String() string {
	if len(d.Links) == 0 {
		return d.Relation
	}
	parts := make([]string, len(d.Links))
	for i, n := range d.Links {
		parts[i] = n.String()
	}
	return d.Relation + "(" + strings.Join(parts, ",") + ")"
}

// ValidateAll validates every descriptor.
func ValidateAll(descriptors []*LinkDescriptor) error {
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Merge combines descriptors naming the same relation at each level, so a
// relation is resolved once with the union of its nested descriptors. The
// inputs are not modified.
func Merge(descriptors ...*LinkDescriptor) []*LinkDescriptor {
	var out []*LinkDescriptor
	byRel := make(map[string]*LinkDescriptor)
	nested := make(map[string][]*LinkDescriptor)
	for _, d := range descriptors {
		if _, ok := byRel[d.Relation]; !ok {
			m := &LinkDescriptor{Relation: d.Relation}
			byRel[d.Relation] = m
			out = append(out, m)
		}
		nested[d.Relation] = append(nested[d.Relation], d.Links...)
	}
	for _, m := range out {
		m.Links = Merge(nested[m.Relation]...)
	}
	return out
}

// ParsePaths turns dotted relation paths into a merged descriptor forest:
// "bundles.bitstreams" and "bundles.item" share one "bundles" descriptor.
func ParsePaths(paths ...string) ([]*LinkDescriptor, error) {
	var roots []*LinkDescriptor
	for _, p := range paths {
		level := &roots
		for _, rel := range strings.Split(p, ".") {
			if strings.TrimSpace(rel) == "" {
				return nil, fmt.Errorf("invalid link path %q", p)
			}
			var found *LinkDescriptor
			for _, d := range *level {
				if d.Relation == rel {
					found = d
					break
				}
			}
			if found == nil {
				found = Follow(rel)
				*level = append(*level, found)
			}
			level = &found.Links
		}
	}
	return roots, nil
}
