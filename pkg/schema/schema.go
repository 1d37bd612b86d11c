// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package schema defines the metadata model for collections: typed attributes,
physical indexes, and relationship options.

Collections are persisted as documents of the reserved "_metadata" collection
with their attribute and index lists serialized as JSON, so every type here
carries stable JSON tags.
*/
package schema

import "encoding/json"

// MetadataCollection is the fixed id of the collection that stores every
// other collection's schema.
const MetadataCollection = "_metadata"

// # Attribute types

// AttributeType is the logical type of an attribute.
type AttributeType string

const (
	TypeString       AttributeType = "string"
	TypeInteger      AttributeType = "integer"
	TypeFloat        AttributeType = "float"
	TypeBoolean      AttributeType = "boolean"
	TypeDateTime     AttributeType = "timestamptz"
	TypeJSON         AttributeType = "json"
	TypeRelationship AttributeType = "relationship"
	TypeVirtual      AttributeType = "virtual"
	TypeUUID         AttributeType = "uuid"
)

// AttributeTypes lists every valid attribute type.
var AttributeTypes = []AttributeType{
	TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeDateTime,
	TypeJSON, TypeRelationship, TypeVirtual, TypeUUID,
}

// Attribute declares one typed field of a collection.
type Attribute struct {
	ID            string          `json:"$id"`
	Key           string          `json:"key"`
	Type          AttributeType   `json:"type"`
	Size          int             `json:"size,omitempty"`
	Required      bool            `json:"required,omitempty"`
	Array         bool            `json:"array,omitempty"`
	Filters       []string        `json:"filters,omitempty"`
	Format        string          `json:"format,omitempty"`
	FormatOptions map[string]any  `json:"formatOptions,omitempty"`
	Default       any             `json:"default,omitempty"`
	Options       *RelationOptions `json:"options,omitempty"`
}

// Name returns the attribute's key, falling back to its id.
func (a Attribute) Name() string {
	if a.Key != "" {
		return a.Key
	}
	return a.ID
}

// IsVirtual reports whether the attribute has no physical column of its own:
// declared virtual, or the non-storing side of a relationship.
func (a Attribute) IsVirtual() bool {
	if a.Type == TypeVirtual {
		return true
	}
	if a.Type == TypeRelationship && a.Options != nil {
		return !a.Options.StoresID()
	}
	return false
}

// # Index types

// IndexType is the physical index flavor.
type IndexType string

const (
	IndexKey      IndexType = "key"
	IndexUnique   IndexType = "unique"
	IndexFulltext IndexType = "fulltext"
	IndexSpatial  IndexType = "spatial"
)

// IndexTypes lists every valid index type.
var IndexTypes = []IndexType{IndexKey, IndexUnique, IndexFulltext, IndexSpatial}

// Index declares one physical lookup structure over collection attributes.
type Index struct {
	ID         string    `json:"$id"`
	Key        string    `json:"key,omitempty"`
	Type       IndexType `json:"type"`
	Attributes []string  `json:"attributes"`
	Orders     []string  `json:"orders,omitempty"`
	Lengths    []int     `json:"lengths,omitempty"`
}

// Name returns the index's key, falling back to its id.
func (i Index) Name() string {
	if i.Key != "" {
		return i.Key
	}
	return i.ID
}

// # Relationships

// RelationType is the cardinality of a relationship.
type RelationType string

const (
	RelationOneToOne   RelationType = "oneToOne"
	RelationOneToMany  RelationType = "oneToMany"
	RelationManyToOne  RelationType = "manyToOne"
	RelationManyToMany RelationType = "manyToMany"
)

// Side marks which endpoint of a relationship an attribute sits on.
type Side string

const (
	SideParent Side = "parent"
	SideChild  Side = "child"
)

// OnDelete is the referential action applied when the related document is
// deleted.
type OnDelete string

const (
	OnDeleteCascade  OnDelete = "cascade"
	OnDeleteRestrict OnDelete = "restrict"
	OnDeleteSetNull  OnDelete = "setNull"
)

// RelationOptions configures a relationship attribute.
type RelationOptions struct {
	RelationType      RelationType `json:"relationType"`
	Side              Side         `json:"side"`
	RelatedCollection string       `json:"relatedCollection"`
	TwoWay            bool         `json:"twoWay,omitempty"`
	TwoWayKey         string       `json:"twoWayKey,omitempty"`
	OnDelete          OnDelete     `json:"onDelete,omitempty"`
}

// StoresID reports whether this side of the relationship holds a physical
// id column. One-to-one stores on the parent; one-to-many stores on the
// child; many-to-one stores on the child side declaration (the "parent" of
// the inverted one-to-many); many-to-many stores in a junction collection,
// never inline.
func (o RelationOptions) StoresID() bool {
	switch o.RelationType {
	case RelationOneToOne:
		return o.Side == SideParent || o.TwoWay && o.Side == SideChild
	case RelationOneToMany:
		return o.Side == SideChild
	case RelationManyToOne:
		return o.Side == SideParent
	case RelationManyToMany:
		return false
	}
	return false
}

// Many reports whether this side resolves to a list of related documents.
func (o RelationOptions) Many() bool {
	switch o.RelationType {
	case RelationOneToMany:
		return o.Side == SideParent
	case RelationManyToOne:
		return o.Side == SideChild
	case RelationManyToMany:
		return true
	}
	return false
}

// # Collection

// Collection is the full schema of one collection.
type Collection struct {
	ID               string      `json:"$id"`
	Name             string      `json:"name"`
	Attributes       []Attribute `json:"attributes"`
	Indexes          []Index     `json:"indexes"`
	Permissions      []string    `json:"$permissions,omitempty"`
	DocumentSecurity bool        `json:"documentSecurity,omitempty"`
	Enabled          bool        `json:"enabled"`
}

// Attribute finds a declared attribute by key or id. It returns nil when the
// collection does not declare it.
func (c *Collection) Attribute(name string) *Attribute {
	for i := range c.Attributes {
		if c.Attributes[i].Name() == name || c.Attributes[i].ID == name {
			return &c.Attributes[i]
		}
	}
	return nil
}

// Index finds a declared index by key or id. It returns nil when the
// collection does not declare it.
func (c *Collection) Index(name string) *Index {
	for i := range c.Indexes {
		if c.Indexes[i].Name() == name || c.Indexes[i].ID == name {
			return &c.Indexes[i]
		}
	}
	return nil
}

// Clone deep-copies the collection schema.
func (c *Collection) Clone() *Collection {
	// JSON round-trip keeps the copy honest as the schema types evolve.
	raw, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	clone := &Collection{}
	if err := json.Unmarshal(raw, clone); err != nil {
		return nil
	}
	return clone
}

// SystemAttributes returns the attributes injected into every collection's
// effective schema before structure validation.
func SystemAttributes() []Attribute {
	return []Attribute{
		{ID: "$id", Key: "$id", Type: TypeString, Size: 36},
		{ID: "$sequence", Key: "$sequence", Type: TypeInteger, Size: 8},
		{ID: "$collection", Key: "$collection", Type: TypeString, Size: 36},
		{ID: "$tenant", Key: "$tenant", Type: TypeInteger, Size: 8},
		{ID: "$createdAt", Key: "$createdAt", Type: TypeDateTime},
		{ID: "$updatedAt", Key: "$updatedAt", Type: TypeDateTime},
		{ID: "$permissions", Key: "$permissions", Type: TypeString, Size: 255, Array: true},
	}
}

// Metadata returns the schema of the reserved metadata collection itself.
func Metadata() *Collection {
	return &Collection{
		ID:   MetadataCollection,
		Name: MetadataCollection,
		Attributes: []Attribute{
			{ID: "name", Key: "name", Type: TypeString, Size: 256, Required: true},
			{ID: "attributes", Key: "attributes", Type: TypeJSON, Filters: []string{"json"}},
			{ID: "indexes", Key: "indexes", Type: TypeJSON, Filters: []string{"json"}},
			{ID: "documentSecurity", Key: "documentSecurity", Type: TypeBoolean, Required: true},
		},
		Enabled: true,
	}
}
