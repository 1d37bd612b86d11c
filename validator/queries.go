// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validator

import (
	"fmt"

	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/query"
	"github.com/taibuivan/strata/pkg/schema"
)

// Queries validates a query list against a collection schema: target
// attributes, value cardinality, array and type constraints, logical
// grouping arity, and cursor shape.
type Queries struct {
	collection *schema.Collection
	// MaxValues caps the number of values a single filter may carry.
	MaxValues int
	// RequireIndexes additionally demands a covering fulltext index for
	// search filters.
	RequireIndexes bool

	desc string
}

// NewQueries returns a query-list validator. maxValues caps per-filter value
// counts; 0 applies the engine default of 100.
func NewQueries(collection *schema.Collection, maxValues int) *Queries {
	if maxValues <= 0 {
		maxValues = 100
	}
	return &Queries{collection: collection, MaxValues: maxValues}
}

// NewIndexedQueries is [NewQueries] with fulltext-index enforcement for
// search filters.
func NewIndexedQueries(collection *schema.Collection, maxValues int) *Queries {
	v := NewQueries(collection, maxValues)
	v.RequireIndexes = true
	return v
}

func (v *Queries) Valid(value any) bool {
	var queries []query.Query
	switch raw := value.(type) {
	case []query.Query:
		queries = raw
	case query.Query:
		queries = []query.Query{raw}
	default:
		v.desc = "value must be a query list"
		return false
	}

	for _, q := range queries {
		if !v.validQuery(q) {
			return false
		}
	}
	return true
}

func (v *Queries) Description() string {
	if v.desc == "" {
		return "a valid query list"
	}
	return v.desc
}

func (v *Queries) validQuery(q query.Query) bool {
	switch q.Method {
	case query.MethodEqual:
		return v.validFilter(q, 1, v.MaxValues)
	case query.MethodNotEqual, query.MethodLessThan, query.MethodLessThanEqual,
		query.MethodGreaterThan, query.MethodGreaterThanEqual,
		query.MethodStartsWith, query.MethodEndsWith:
		return v.validFilter(q, 1, 1)
	case query.MethodBetween:
		return v.validFilter(q, 2, 2)
	case query.MethodIsNull, query.MethodIsNotNull:
		return v.validFilter(q, 0, 0)
	case query.MethodContains:
		return v.validContains(q)
	case query.MethodSearch:
		return v.validSearch(q)
	case query.MethodOr, query.MethodAnd:
		return v.validLogical(q)
	case query.MethodSelect:
		return v.validSelect(q)
	case query.MethodOrderAsc, query.MethodOrderDesc:
		return v.validOrder(q)
	case query.MethodLimit, query.MethodOffset:
		return v.validPagination(q)
	case query.MethodCursorAfter, query.MethodCursorBefore:
		return v.validCursor(q)
	case query.MethodPopulate:
		return v.validPopulate(q)
	}
	v.desc = fmt.Sprintf("unknown query method %q", string(q.Method))
	return false
}

// resolve finds the target attribute in the schema or the system set.
func (v *Queries) resolve(name string) *schema.Attribute {
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

// validTarget checks the attribute exists and is physically queryable.
func (v *Queries) validTarget(q query.Query) *schema.Attribute {
	attribute := v.resolve(q.Attribute)
	if attribute == nil {
		v.desc = fmt.Sprintf("query attribute %q not found in schema", q.Attribute)
		return nil
	}
	if attribute.IsVirtual() {
		v.desc = fmt.Sprintf("cannot query virtual attribute %q; it has no physical column on this side", q.Attribute)
		return nil
	}
	return attribute
}

func (v *Queries) validFilter(q query.Query, min, max int) bool {
	attribute := v.validTarget(q)
	if attribute == nil {
		return false
	}
	if len(q.Values) < min {
		v.desc = fmt.Sprintf("%s on %q requires at least %d value(s)", q.Method, q.Attribute, min)
		return false
	}
	if max >= 0 && len(q.Values) > max {
		v.desc = fmt.Sprintf("%s on %q accepts at most %d value(s)", q.Method, q.Attribute, max)
		return false
	}
	// Array attributes only answer contains and null checks.
	if attribute.Array && min > 0 {
		v.desc = fmt.Sprintf("array attribute %q only supports contains, isNull, and isNotNull", q.Attribute)
		return false
	}
	return true
}

func (v *Queries) validContains(q query.Query) bool {
	attribute := v.validTarget(q)
	if attribute == nil {
		return false
	}
	if len(q.Values) == 0 {
		v.desc = fmt.Sprintf("contains on %q requires at least one value", q.Attribute)
		return false
	}
	if len(q.Values) > v.MaxValues {
		v.desc = fmt.Sprintf("contains on %q accepts at most %d values", q.Attribute, v.MaxValues)
		return false
	}
	if !attribute.Array && attribute.Type != schema.TypeString && attribute.Type != schema.TypeJSON {
		v.desc = fmt.Sprintf("contains requires an array or string attribute, %q is %s", q.Attribute, attribute.Type)
		return false
	}
	return true
}

func (v *Queries) validSearch(q query.Query) bool {
	attribute := v.validTarget(q)
	if attribute == nil {
		return false
	}
	if len(q.Values) != 1 {
		v.desc = fmt.Sprintf("search on %q requires exactly one value", q.Attribute)
		return false
	}
	if attribute.Type != schema.TypeString {
		v.desc = fmt.Sprintf("search requires a string attribute, %q is %s", q.Attribute, attribute.Type)
		return false
	}
	if v.RequireIndexes && !v.fulltextCovered(q.Attribute) {
		v.desc = fmt.Sprintf("search on %q requires a fulltext index covering it", q.Attribute)
		return false
	}
	return true
}

func (v *Queries) fulltextCovered(attribute string) bool {
	for _, index := range v.collection.Indexes {
		if index.Type != schema.IndexFulltext {
			continue
		}
		for _, covered := range index.Attributes {
			if covered == attribute {
				return true
			}
		}
	}
	return false
}

func (v *Queries) validLogical(q query.Query) bool {
	children := q.Nested()
	if len(children) < 2 {
		v.desc = fmt.Sprintf("%s requires at least two nested filter queries", q.Method)
		return false
	}
	for _, child := range children {
		if !child.IsFilter() {
			v.desc = fmt.Sprintf("%s only accepts filter queries, got %q", q.Method, string(child.Method))
			return false
		}
		if !v.validQuery(child) {
			return false
		}
	}
	return true
}

func (v *Queries) validSelect(q query.Query) bool {
	for _, raw := range q.Values {
		name, ok := raw.(string)
		if !ok {
			v.desc = "select values must be attribute names"
			return false
		}
		if name == "*" {
			continue
		}
		if v.resolve(name) == nil {
			v.desc = fmt.Sprintf("selected attribute %q not found in schema", name)
			return false
		}
	}
	return true
}

func (v *Queries) validOrder(q query.Query) bool {
	attribute := v.validTarget(q)
	if attribute == nil {
		return false
	}
	if attribute.Array {
		v.desc = fmt.Sprintf("cannot order by array attribute %q", q.Attribute)
		return false
	}
	return true
}

func (v *Queries) validPagination(q query.Query) bool {
	if len(q.Values) != 1 {
		v.desc = fmt.Sprintf("%s requires exactly one value", q.Method)
		return false
	}
	if _, ok := asNonNegativeInt(q.Values[0]); !ok {
		v.desc = fmt.Sprintf("%s requires a non-negative integer", q.Method)
		return false
	}
	return true
}

func (v *Queries) validCursor(q query.Query) bool {
	if len(q.Values) != 1 {
		v.desc = "cursor requires exactly one value"
		return false
	}
	switch cursor := q.Values[0].(type) {
	case string:
		key := NewKey(false)
		if !key.Valid(cursor) {
			v.desc = fmt.Sprintf("cursor id: %s", key.Description())
			return false
		}
	case *doc.Doc:
		if cursor.ID() == "" {
			v.desc = "cursor document is missing its id"
			return false
		}
	default:
		v.desc = "cursor must be a document or an id string"
		return false
	}
	return true
}

func (v *Queries) validPopulate(q query.Query) bool {
	attribute := v.resolve(q.Attribute)
	if attribute == nil {
		v.desc = fmt.Sprintf("populate attribute %q not found in schema", q.Attribute)
		return false
	}
	if attribute.Type != schema.TypeRelationship {
		v.desc = fmt.Sprintf("populate requires a relationship attribute, %q is %s", q.Attribute, attribute.Type)
		return false
	}
	// Nested queries validate against the related collection's schema at
	// resolution time, where that schema is loaded.
	return true
}

func asNonNegativeInt(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		if n >= 0 {
			return n, true
		}
	case int64:
		if n >= 0 {
			return int(n), true
		}
	case float64:
		if n >= 0 && n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
