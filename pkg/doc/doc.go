// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package doc implements the Document entity: an insertion-ordered mapping from
attribute names to values, with typed accessors for the engine's system fields.

# Value model

Values are plain Go values: nil, bool, int64, float64, string, [time.Time],
[]any, or nested [*Doc]. Any map carrying an "$id" or "$collection" key is
automatically lifted into a child [*Doc] at construction time, and slices of
such maps become slices of [*Doc].

# Ordering

Attribute order is the insertion order, preserved through [Doc.Clone],
[Doc.MarshalJSON], and [Doc.UnmarshalJSON]. This keeps filter application and
cache round-trips deterministic.
*/
package doc

import (
	"fmt"
	"time"

	"github.com/taibuivan/strata/apperr"
)

// # System fields

const (
	// FieldID is the caller-visible unique document id.
	FieldID = "$id"
	// FieldSequence is the storage-assigned monotonic integer.
	FieldSequence = "$sequence"
	// FieldCollection is the owning collection id.
	FieldCollection = "$collection"
	// FieldTenant is the optional tenant isolation dimension.
	FieldTenant = "$tenant"
	// FieldCreatedAt is the creation timestamp.
	FieldCreatedAt = "$createdAt"
	// FieldUpdatedAt is the last-write timestamp.
	FieldUpdatedAt = "$updatedAt"
	// FieldPermissions is the list of permission strings.
	FieldPermissions = "$permissions"
)

// Doc is an insertion-ordered attribute map.
//
// The zero value is not usable; construct with [New] or [FromMap].
type Doc struct {
	keys   []string
	values map[string]any
}

// New returns an empty document.
func New() *Doc {
	return &Doc{values: make(map[string]any)}
}

// FromMap builds a document from a plain map, lifting nested documents.
//
// Iteration order of Go maps is random, so system fields are emitted first
// (in their canonical order) followed by user attributes sorted by name.
// Use [New] with chained [Doc.Set] calls when a specific order matters.
//
// It fails with a validation error when "$id" is present but not a string,
// or "$permissions" is present but not a list.
func FromMap(m map[string]any) (*Doc, error) {
	if id, ok := m[FieldID]; ok {
		if _, isString := id.(string); !isString {
			return nil, apperr.Validation("$id must be a string")
		}
	}
	if perms, ok := m[FieldPermissions]; ok {
		switch perms.(type) {
		case []any, []string, nil:
		default:
			return nil, apperr.Validation("$permissions must be a list")
		}
	}

	d := New()
	for _, key := range orderedKeys(m) {
		d.Set(key, m[key])
	}
	return d, nil
}

// MustFromMap is [FromMap] for statically known-valid input; it panics on error.
func MustFromMap(m map[string]any) *Doc {
	d, err := FromMap(m)
	if err != nil {
		panic(err)
	}
	return d
}

// # Core operations

// Get returns the value stored under name, or nil when absent.
func (d *Doc) Get(name string) any {
	return d.values[name]
}

// GetDefault returns the value stored under name, or def when absent.
func (d *Doc) GetDefault(name string, def any) any {
	if v, ok := d.values[name]; ok {
		return v
	}
	return def
}

// Set stores value under name, lifting nested documents. Setting an existing
// name keeps its position; a new name is appended.
func (d *Doc) Set(name string, value any) *Doc {
	if _, exists := d.values[name]; !exists {
		d.keys = append(d.keys, name)
	}
	d.values[name] = lift(value)
	return d
}

// Update stores value under name unless value is nil, in which case the
// document is left untouched.
func (d *Doc) Update(name string, value any) *Doc {
	if value == nil {
		return d
	}
	return d.Set(name, value)
}

// Append adds value to the end of the slice stored under name. The field is
// created as a one-element slice when absent; it fails when the existing
// value is not a slice.
func (d *Doc) Append(name string, value any) error {
	return d.insert(name, value, false)
}

// Prepend adds value to the front of the slice stored under name, with the
// same absence and type rules as [Doc.Append].
func (d *Doc) Prepend(name string, value any) error {
	return d.insert(name, value, true)
}

func (d *Doc) insert(name string, value any, front bool) error {
	current, exists := d.values[name]
	if !exists || current == nil {
		d.Set(name, []any{lift(value)})
		return nil
	}
	list, ok := current.([]any)
	if !ok {
		return apperr.Validationf("attribute %q is not an array", name)
	}
	if front {
		d.values[name] = append([]any{lift(value)}, list...)
	} else {
		d.values[name] = append(list, lift(value))
	}
	return nil
}

// Delete removes name from the document. Unknown names are a no-op.
func (d *Doc) Delete(name string) {
	if _, exists := d.values[name]; !exists {
		return
	}
	delete(d.values, name)
	for i, k := range d.keys {
		if k == name {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Has reports whether name is present.
func (d *Doc) Has(name string) bool {
	_, ok := d.values[name]
	return ok
}

// Keys returns the attribute names in insertion order.
func (d *Doc) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Empty reports whether the document has no attributes.
func (d *Doc) Empty() bool { return len(d.keys) == 0 }

// # Predicate-driven search

// FindWhere scans the value stored under name. When the value is a slice it
// returns the first element matching pred; otherwise it returns the value
// itself when it matches. The boolean reports whether a match was found.
func (d *Doc) FindWhere(name string, pred func(v any) bool) (any, bool) {
	current, exists := d.values[name]
	if !exists {
		return nil, false
	}
	if list, ok := current.([]any); ok {
		for _, v := range list {
			if pred(v) {
				return v, true
			}
		}
		return nil, false
	}
	if pred(current) {
		return current, true
	}
	return nil, false
}

// ReplaceWhere replaces the first matching element (or the scalar value)
// under name with replacement. It reports whether a replacement happened.
func (d *Doc) ReplaceWhere(name string, pred func(v any) bool, replacement any) bool {
	current, exists := d.values[name]
	if !exists {
		return false
	}
	if list, ok := current.([]any); ok {
		for i, v := range list {
			if pred(v) {
				list[i] = lift(replacement)
				return true
			}
		}
		return false
	}
	if pred(current) {
		d.values[name] = lift(replacement)
		return true
	}
	return false
}

// DeleteWhere removes every matching element from the slice under name, or
// the whole field when the scalar value matches. It reports whether anything
// was removed.
func (d *Doc) DeleteWhere(name string, pred func(v any) bool) bool {
	current, exists := d.values[name]
	if !exists {
		return false
	}
	if list, ok := current.([]any); ok {
		kept := list[:0:0]
		removed := false
		for _, v := range list {
			if pred(v) {
				removed = true
				continue
			}
			kept = append(kept, v)
		}
		if removed {
			d.values[name] = kept
		}
		return removed
	}
	if pred(current) {
		d.Delete(name)
		return true
	}
	return false
}

// # Typed system accessors

// ID returns the "$id" system field, or "" when unset.
func (d *Doc) ID() string {
	id, _ := d.values[FieldID].(string)
	return id
}

// Sequence returns the "$sequence" system field coerced to int64.
func (d *Doc) Sequence() int64 {
	return toInt64(d.values[FieldSequence])
}

// Collection returns the "$collection" system field, or "" when unset.
func (d *Doc) Collection() string {
	c, _ := d.values[FieldCollection].(string)
	return c
}

// TenantID returns the "$tenant" system field; ok is false for a null tenant.
func (d *Doc) TenantID() (id int64, ok bool) {
	v, exists := d.values[FieldTenant]
	if !exists || v == nil {
		return 0, false
	}
	return toInt64(v), true
}

// CreatedAt returns the "$createdAt" timestamp, or the zero time when unset.
func (d *Doc) CreatedAt() time.Time { return d.timeField(FieldCreatedAt) }

// UpdatedAt returns the "$updatedAt" timestamp, or the zero time when unset.
func (d *Doc) UpdatedAt() time.Time { return d.timeField(FieldUpdatedAt) }

func (d *Doc) timeField(name string) time.Time {
	switch v := d.values[name].(type) {
	case time.Time:
		return v
	case string:
		if t, err := ParseDateTime(v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Permissions returns the "$permissions" list coerced to strings.
func (d *Doc) Permissions() []string {
	switch v := d.values[FieldPermissions].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// # Export and cloning

// Map converts the document to a plain map. Nested documents become maps and
// slices are copied. allow keeps only the named attributes (nil keeps all);
// disallow removes the named attributes after allow is applied.
func (d *Doc) Map(allow, disallow []string) map[string]any {
	allowed := toSet(allow)
	blocked := toSet(disallow)

	out := make(map[string]any, len(d.keys))
	for _, key := range d.keys {
		if allowed != nil {
			if _, ok := allowed[key]; !ok {
				continue
			}
		}
		if _, ok := blocked[key]; ok {
			continue
		}
		out[key] = lower(d.values[key])
	}
	return out
}

// Clone returns a deep copy of the document.
func (d *Doc) Clone() *Doc {
	clone := &Doc{
		keys:   make([]string, len(d.keys)),
		values: make(map[string]any, len(d.values)),
	}
	copy(clone.keys, d.keys)
	for k, v := range d.values {
		clone.values[k] = deepCopy(v)
	}
	return clone
}

// String renders the document as ordered JSON for debugging.
func (d *Doc) String() string {
	b, err := d.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("doc!%v", err)
	}
	return string(b)
}

// # Internal helpers

// lift converts plain maps bearing "$id" or "$collection" into child
// documents, recursing through slices.
func lift(value any) any {
	switch v := value.(type) {
	case map[string]any:
		_, hasID := v[FieldID]
		_, hasCollection := v[FieldCollection]
		if hasID || hasCollection {
			if child, err := FromMap(v); err == nil {
				return child
			}
		}
		lifted := make(map[string]any, len(v))
		for k, item := range v {
			lifted[k] = lift(item)
		}
		return lifted
	case []any:
		lifted := make([]any, len(v))
		for i, item := range v {
			lifted[i] = lift(item)
		}
		return lifted
	case []map[string]any:
		lifted := make([]any, len(v))
		for i, item := range v {
			lifted[i] = lift(item)
		}
		return lifted
	default:
		return value
	}
}

// lower is the inverse of lift: child documents become plain maps.
func lower(value any) any {
	switch v := value.(type) {
	case *Doc:
		return v.Map(nil, nil)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = lower(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = lower(item)
		}
		return out
	default:
		return value
	}
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case *Doc:
		return v.Clone()
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopy(item)
		}
		return out
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = deepCopy(item)
		}
		return out
	default:
		return value
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	case uint64:
		return int64(n)
	}
	return 0
}

func toSet(names []string) map[string]struct{} {
	if names == nil {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
