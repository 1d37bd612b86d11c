// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validator

import (
	"fmt"

	"github.com/taibuivan/strata/pkg/schema"
)

// Index validates an index declaration against its collection schema and
// the adapter's physical limits.
type Index struct {
	collection        *schema.Collection
	maxLength         int
	arrayIndexSupport bool

	desc string
}

// NewIndex returns an index validator. maxLength is the dialect's combined
// key-length limit for non-fulltext indexes; arrayIndexSupport reports
// whether the adapter can index array columns at all.
func NewIndex(collection *schema.Collection, maxLength int, arrayIndexSupport bool) *Index {
	return &Index{
		collection:        collection,
		maxLength:         maxLength,
		arrayIndexSupport: arrayIndexSupport,
	}
}

func (v *Index) Valid(value any) bool {
	var index schema.Index
	switch raw := value.(type) {
	case schema.Index:
		index = raw
	case *schema.Index:
		index = *raw
	default:
		v.desc = "value must be an index declaration"
		return false
	}

	if !validIndexType(index.Type) {
		v.desc = fmt.Sprintf("unknown index type %q", string(index.Type))
		return false
	}
	if len(index.Attributes) == 0 {
		v.desc = "index must cover at least one attribute"
		return false
	}
	if len(index.Orders) > 0 && len(index.Orders) != len(index.Attributes) {
		v.desc = "orders must match the attribute list one-to-one"
		return false
	}
	if len(index.Lengths) > 0 && len(index.Lengths) != len(index.Attributes) {
		v.desc = "lengths must match the attribute list one-to-one"
		return false
	}

	seen := make(map[string]struct{}, len(index.Attributes))
	arrayAttributes := 0
	totalLength := 0

	for i, name := range index.Attributes {
		if _, dup := seen[name]; dup {
			v.desc = fmt.Sprintf("duplicate attribute %q in index", name)
			return false
		}
		seen[name] = struct{}{}

		attribute := v.resolve(name)
		if attribute == nil {
			v.desc = fmt.Sprintf("attribute %q not found in collection", name)
			return false
		}

		if index.Type == schema.IndexFulltext && attribute.Type != schema.TypeString {
			v.desc = fmt.Sprintf("fulltext index requires string attributes, %q is %s", name, attribute.Type)
			return false
		}

		length := 0
		if i < len(index.Lengths) {
			length = index.Lengths[i]
		}

		if attribute.Array {
			arrayAttributes++
			if !v.arrayIndexSupport {
				v.desc = "array attributes cannot be indexed by this adapter"
				return false
			}
			if index.Type != schema.IndexKey {
				v.desc = fmt.Sprintf("array attribute %q is only allowed in a key index", name)
				return false
			}
			if length == 0 {
				v.desc = fmt.Sprintf("array attribute %q requires an explicit index length", name)
				return false
			}
		}

		if length == 0 && attribute.Type == schema.TypeString {
			length = attribute.Size
		}
		totalLength += length
	}

	if arrayAttributes > 1 {
		v.desc = "an index may cover at most one array attribute"
		return false
	}
	if index.Type != schema.IndexFulltext && v.maxLength > 0 && totalLength > v.maxLength {
		v.desc = fmt.Sprintf("combined index length %d exceeds the maximum of %d", totalLength, v.maxLength)
		return false
	}
	return true
}

func (v *Index) Description() string {
	if v.desc == "" {
		return "a valid index declaration"
	}
	return v.desc
}

// resolve finds the attribute in the collection schema or the injected
// system attributes.
func (v *Index) resolve(name string) *schema.Attribute {
	if a := v.collection.Attribute(name); a != nil {
		return a
	}
	for _, system := range schema.SystemAttributes() {
		if system.Name() == name {
			s := system
			return &s
		}
	}
	return nil
}

func validIndexType(t schema.IndexType) bool {
	for _, known := range schema.IndexTypes {
		if t == known {
			return true
		}
	}
	return false
}

// # Index dependency

// IndexDependency rejects deleting or renaming an array attribute while an
// index still references it; the index must be dropped first because its
// physical expression embeds the attribute.
type IndexDependency struct {
	collection        *schema.Collection
	arrayIndexSupport bool

	desc string
}

// NewIndexDependency returns an index-dependency validator for the
// collection.
func NewIndexDependency(collection *schema.Collection, arrayIndexSupport bool) *IndexDependency {
	return &IndexDependency{collection: collection, arrayIndexSupport: arrayIndexSupport}
}

func (v *IndexDependency) Valid(value any) bool {
	var attribute schema.Attribute
	switch raw := value.(type) {
	case schema.Attribute:
		attribute = raw
	case *schema.Attribute:
		attribute = *raw
	default:
		v.desc = "value must be an attribute declaration"
		return false
	}

	if !v.arrayIndexSupport || !attribute.Array {
		return true
	}

	for _, index := range v.collection.Indexes {
		for _, name := range index.Attributes {
			if name == attribute.Name() {
				v.desc = fmt.Sprintf("attribute %q is still referenced by index %q", attribute.Name(), index.Name())
				return false
			}
		}
	}
	return true
}

func (v *IndexDependency) Description() string {
	if v.desc == "" {
		return "an attribute with no dependent array indexes"
	}
	return v.desc
}
