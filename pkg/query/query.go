// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package query implements the structured query DSL consumed by the engine.

A query is a typed node: a method, an optional target attribute, and a list
of values. Nodes are grouped by purpose ([GroupByType]) before compilation:
filter conditions, selections, order clauses, pagination, cursors, and
populate requests each flow to a different part of the planner.
*/
package query

import (
	"github.com/taibuivan/strata/pkg/doc"
)

// Method identifies the operation a query node performs.
type Method string

// # Methods

const (
	// Comparison filters.
	MethodEqual            Method = "equal"
	MethodNotEqual         Method = "notEqual"
	MethodLessThan         Method = "lessThan"
	MethodLessThanEqual    Method = "lessThanEqual"
	MethodGreaterThan      Method = "greaterThan"
	MethodGreaterThanEqual Method = "greaterThanEqual"
	MethodBetween          Method = "between"
	MethodContains         Method = "contains"
	MethodSearch           Method = "search"
	MethodStartsWith       Method = "startsWith"
	MethodEndsWith         Method = "endsWith"
	MethodIsNull           Method = "isNull"
	MethodIsNotNull        Method = "isNotNull"

	// Logical grouping; values are nested filter queries.
	MethodOr  Method = "or"
	MethodAnd Method = "and"

	// Result shaping.
	MethodSelect       Method = "select"
	MethodOrderAsc     Method = "orderAsc"
	MethodOrderDesc    Method = "orderDesc"
	MethodLimit        Method = "limit"
	MethodOffset       Method = "offset"
	MethodCursorAfter  Method = "cursorAfter"
	MethodCursorBefore Method = "cursorBefore"

	// Relationship resolution; values are nested queries for the target.
	MethodPopulate Method = "populate"
)

// Query is a single node of the DSL.
type Query struct {
	Method    Method
	Attribute string
	Values    []any
}

// # Filter constructors

// Equal matches documents whose attribute equals any of the given values.
func Equal(attribute string, values ...any) Query {
	return Query{Method: MethodEqual, Attribute: attribute, Values: values}
}

// NotEqual matches documents whose attribute differs from value.
func NotEqual(attribute string, value any) Query {
	return Query{Method: MethodNotEqual, Attribute: attribute, Values: []any{value}}
}

// LessThan matches attribute < value.
func LessThan(attribute string, value any) Query {
	return Query{Method: MethodLessThan, Attribute: attribute, Values: []any{value}}
}

// LessThanEqual matches attribute <= value.
func LessThanEqual(attribute string, value any) Query {
	return Query{Method: MethodLessThanEqual, Attribute: attribute, Values: []any{value}}
}

// GreaterThan matches attribute > value.
func GreaterThan(attribute string, value any) Query {
	return Query{Method: MethodGreaterThan, Attribute: attribute, Values: []any{value}}
}

// GreaterThanEqual matches attribute >= value.
func GreaterThanEqual(attribute string, value any) Query {
	return Query{Method: MethodGreaterThanEqual, Attribute: attribute, Values: []any{value}}
}

// Between matches low <= attribute <= high.
func Between(attribute string, low, high any) Query {
	return Query{Method: MethodBetween, Attribute: attribute, Values: []any{low, high}}
}

// Contains matches array attributes containing any value, or substring
// matches on string attributes.
func Contains(attribute string, values ...any) Query {
	return Query{Method: MethodContains, Attribute: attribute, Values: values}
}

// Search performs a fulltext match; the attribute must be covered by a
// fulltext index.
func Search(attribute string, value string) Query {
	return Query{Method: MethodSearch, Attribute: attribute, Values: []any{value}}
}

// StartsWith matches string attributes by prefix.
func StartsWith(attribute string, value string) Query {
	return Query{Method: MethodStartsWith, Attribute: attribute, Values: []any{value}}
}

// EndsWith matches string attributes by suffix.
func EndsWith(attribute string, value string) Query {
	return Query{Method: MethodEndsWith, Attribute: attribute, Values: []any{value}}
}

// IsNull matches documents whose attribute is null.
func IsNull(attribute string) Query {
	return Query{Method: MethodIsNull, Attribute: attribute}
}

// IsNotNull matches documents whose attribute is not null.
func IsNotNull(attribute string) Query {
	return Query{Method: MethodIsNotNull, Attribute: attribute}
}

// Or groups nested filters with OR semantics; at least two are required.
func Or(queries ...Query) Query {
	return Query{Method: MethodOr, Values: toValues(queries)}
}

// And groups nested filters with AND semantics; at least two are required.
func And(queries ...Query) Query {
	return Query{Method: MethodAnd, Values: toValues(queries)}
}

// # Result shaping constructors

// Select limits returned attributes to the given names.
func Select(attributes ...string) Query {
	values := make([]any, len(attributes))
	for i, a := range attributes {
		values[i] = a
	}
	return Query{Method: MethodSelect, Values: values}
}

// OrderAsc sorts ascending by attribute.
func OrderAsc(attribute string) Query {
	return Query{Method: MethodOrderAsc, Attribute: attribute}
}

// OrderDesc sorts descending by attribute.
func OrderDesc(attribute string) Query {
	return Query{Method: MethodOrderDesc, Attribute: attribute}
}

// Limit caps the number of returned documents.
func Limit(n int) Query {
	return Query{Method: MethodLimit, Values: []any{n}}
}

// Offset skips the first n documents.
func Offset(n int) Query {
	return Query{Method: MethodOffset, Values: []any{n}}
}

// CursorAfter pages strictly after the cursor document or id.
func CursorAfter(cursor any) Query {
	return Query{Method: MethodCursorAfter, Values: []any{cursor}}
}

// CursorBefore pages strictly before the cursor document or id.
func CursorBefore(cursor any) Query {
	return Query{Method: MethodCursorBefore, Values: []any{cursor}}
}

// Populate resolves the named relationship attribute, applying the nested
// queries to the related collection.
func Populate(attribute string, queries ...Query) Query {
	return Query{Method: MethodPopulate, Attribute: attribute, Values: toValues(queries)}
}

// # Node classification

// IsFilter reports whether the node is a filter condition (including the
// logical or/and groupings).
func (q Query) IsFilter() bool {
	switch q.Method {
	case MethodEqual, MethodNotEqual, MethodLessThan, MethodLessThanEqual,
		MethodGreaterThan, MethodGreaterThanEqual, MethodBetween,
		MethodContains, MethodSearch, MethodStartsWith, MethodEndsWith,
		MethodIsNull, MethodIsNotNull, MethodOr, MethodAnd:
		return true
	}
	return false
}

// Nested returns the child queries of an or/and/populate node.
func (q Query) Nested() []Query {
	out := make([]Query, 0, len(q.Values))
	for _, v := range q.Values {
		if child, ok := v.(Query); ok {
			out = append(out, child)
		}
	}
	return out
}

// Clone deep-copies the node, including nested queries and cursor documents.
func (q Query) Clone() Query {
	clone := Query{Method: q.Method, Attribute: q.Attribute}
	if q.Values == nil {
		return clone
	}
	clone.Values = make([]any, len(q.Values))
	for i, v := range q.Values {
		clone.Values[i] = cloneValue(v)
	}
	return clone
}

// CloneSlice deep-copies a query list.
func CloneSlice(queries []Query) []Query {
	if queries == nil {
		return nil
	}
	out := make([]Query, len(queries))
	for i, q := range queries {
		out[i] = q.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Query:
		return t.Clone()
	case *doc.Doc:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func toValues(queries []Query) []any {
	values := make([]any, len(queries))
	for i, q := range queries {
		values[i] = q
	}
	return values
}
