// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validator

import (
	"fmt"
	"math"
	"sync"

	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/schema"
)

// # Attribute formats

// FormatFactory builds a validator for one attribute from its declared
// format options.
type FormatFactory func(attribute schema.Attribute) Validator

var (
	formatsMu sync.RWMutex
	formats   = make(map[string]FormatFactory)
)

// RegisterFormat makes a named attribute format available to the structure
// validator. Registering a duplicate name fails.
func RegisterFormat(name string, factory FormatFactory) error {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	if _, dup := formats[name]; dup {
		return fmt.Errorf("validator: format %q already registered", name)
	}
	formats[name] = factory
	return nil
}

func formatFor(attribute schema.Attribute) (Validator, bool) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	factory, ok := formats[attribute.Format]
	if !ok {
		return nil, false
	}
	return factory(attribute), true
}

// # Structure

// Structure validates a full document against its collection schema:
// required attributes, unknown attributes, per-type value checks, array
// elements, and relationship value shapes.
type Structure struct {
	collection *schema.Collection
	// Partial skips the required-attribute check for partial updates.
	Partial bool

	desc string
}

// NewStructure returns a structure validator for create payloads.
func NewStructure(collection *schema.Collection) *Structure {
	return &Structure{collection: collection}
}

// NewPartialStructure returns a structure validator for partial updates:
// absent attributes are not an error.
func NewPartialStructure(collection *schema.Collection) *Structure {
	return &Structure{collection: collection, Partial: true}
}

func (v *Structure) Valid(value any) bool {
	document, ok := value.(*doc.Doc)
	if !ok {
		v.desc = "value must be a document"
		return false
	}
	if v.collection.ID == "" {
		v.desc = "collection is not available in the schema"
		return false
	}

	effective := v.effectiveSchema()

	// Unknown attributes are rejected outright.
	for _, key := range document.Keys() {
		if _, declared := effective[key]; !declared {
			v.desc = fmt.Sprintf("unknown attribute %q", key)
			return false
		}
	}

	// All required attributes must be present on create.
	if !v.Partial {
		for _, attribute := range v.collection.Attributes {
			if attribute.Required && !document.Has(attribute.Name()) {
				v.desc = fmt.Sprintf("missing required attribute %q", attribute.Name())
				return false
			}
		}
	}

	for _, key := range document.Keys() {
		attribute := effective[key]
		if !v.validAttributeValue(attribute, document.Get(key)) {
			return false
		}
	}
	return true
}

func (v *Structure) Description() string {
	if v.desc == "" {
		return "a document matching the collection schema"
	}
	return v.desc
}

// effectiveSchema merges declared attributes with the injected system set.
func (v *Structure) effectiveSchema() map[string]schema.Attribute {
	effective := make(map[string]schema.Attribute)
	for _, system := range schema.SystemAttributes() {
		effective[system.Name()] = system
	}
	for _, attribute := range v.collection.Attributes {
		effective[attribute.Name()] = attribute
	}
	return effective
}

func (v *Structure) validAttributeValue(attribute schema.Attribute, value any) bool {
	name := attribute.Name()

	if attribute.Type == schema.TypeRelationship {
		return v.validRelationshipValue(attribute, value)
	}
	if attribute.Type == schema.TypeVirtual {
		return true
	}

	if value == nil {
		if attribute.Required {
			v.desc = fmt.Sprintf("attribute %q is required and cannot be null", name)
			return false
		}
		return true
	}

	if attribute.Array {
		list, ok := value.([]any)
		if !ok {
			if typed, isStrings := value.([]string); isStrings {
				list = make([]any, len(typed))
				for i, s := range typed {
					list[i] = s
				}
			} else {
				v.desc = fmt.Sprintf("attribute %q must be an array", name)
				return false
			}
		}
		for _, element := range list {
			if element == nil {
				continue
			}
			if !v.validScalar(attribute, element) {
				return false
			}
		}
		return true
	}

	return v.validScalar(attribute, value)
}

// validScalar checks one non-null scalar against the attribute type, size,
// and optional format.
func (v *Structure) validScalar(attribute schema.Attribute, value any) bool {
	name := attribute.Name()

	var typeValidator Validator
	switch attribute.Type {
	case schema.TypeString:
		typeValidator = NewText(attribute.Size, 0)
	case schema.TypeInteger:
		if attribute.Size >= 8 {
			typeValidator = NewRange(math.MinInt64, math.MaxInt64, FormatInteger)
		} else {
			typeValidator = NewRange(math.MinInt32, math.MaxInt32, FormatInteger)
		}
	case schema.TypeFloat:
		typeValidator = NewFloat()
	case schema.TypeBoolean:
		typeValidator = NewBoolean()
	case schema.TypeDateTime:
		typeValidator = NewDateTime()
	case schema.TypeJSON:
		typeValidator = NewJSON()
	case schema.TypeUUID:
		typeValidator = NewUUID()
	default:
		v.desc = fmt.Sprintf("attribute %q has unknown type %q", name, string(attribute.Type))
		return false
	}

	if !typeValidator.Valid(value) {
		v.desc = fmt.Sprintf("attribute %q: %s", name, typeValidator.Description())
		return false
	}

	if attribute.Format != "" {
		formatValidator, known := formatFor(attribute)
		if !known {
			v.desc = fmt.Sprintf("attribute %q uses unknown format %q", name, attribute.Format)
			return false
		}
		if !formatValidator.Valid(value) {
			v.desc = fmt.Sprintf("attribute %q: %s", name, formatValidator.Description())
			return false
		}
	}
	return true
}

// validRelationshipValue enforces side semantics: the "many" sides accept a
// mutation object with set/connect/disconnect id lists ("set" is mandatory
// on create); every other side accepts a related id string or null.
func (v *Structure) validRelationshipValue(attribute schema.Attribute, value any) bool {
	name := attribute.Name()
	options := attribute.Options
	if options == nil {
		v.desc = fmt.Sprintf("relationship attribute %q is missing its options", name)
		return false
	}

	if !options.Many() {
		switch value.(type) {
		case nil, string:
			return true
		case *doc.Doc:
			// A populated related document is accepted back on write.
			return true
		}
		v.desc = fmt.Sprintf("relationship attribute %q must be a related id or null", name)
		return false
	}

	if value == nil {
		if !v.Partial {
			v.desc = fmt.Sprintf("relationship attribute %q requires a mutation object on create", name)
			return false
		}
		return true
	}

	mutation, ok := value.(map[string]any)
	if !ok {
		v.desc = fmt.Sprintf("relationship attribute %q must be an object with set, connect, or disconnect", name)
		return false
	}

	for key, ids := range mutation {
		switch key {
		case "set", "connect", "disconnect":
			if _, isList := toStringList(ids); !isList {
				v.desc = fmt.Sprintf("relationship attribute %q: %q must be a list of ids", name, key)
				return false
			}
		default:
			v.desc = fmt.Sprintf("relationship attribute %q has unknown mutation key %q", name, key)
			return false
		}
	}

	if !v.Partial {
		if _, hasSet := mutation["set"]; !hasSet {
			v.desc = fmt.Sprintf("relationship attribute %q requires \"set\" on create", name)
			return false
		}
	}
	return true
}
