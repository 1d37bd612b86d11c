// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package query

// Builder accumulates query nodes through a fluent API.
//
// Build returns a deep clone, so a builder seeded with [From] round-trips
// its input exactly and the built slice shares no state with the builder.
//
// Builder is not safe for concurrent use.
type Builder struct {
	queries []Query
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// From seeds a builder with a deep clone of the given queries.
func From(queries []Query) *Builder {
	return &Builder{queries: CloneSlice(queries)}
}

// Add appends arbitrary prebuilt nodes.
func (b *Builder) Add(queries ...Query) *Builder {
	b.queries = append(b.queries, CloneSlice(queries)...)
	return b
}

// Equal appends an equality filter.
func (b *Builder) Equal(attribute string, values ...any) *Builder {
	return b.Add(Equal(attribute, values...))
}

// NotEqual appends an inequality filter.
func (b *Builder) NotEqual(attribute string, value any) *Builder {
	return b.Add(NotEqual(attribute, value))
}

// LessThan appends a less-than filter.
func (b *Builder) LessThan(attribute string, value any) *Builder {
	return b.Add(LessThan(attribute, value))
}

// GreaterThan appends a greater-than filter.
func (b *Builder) GreaterThan(attribute string, value any) *Builder {
	return b.Add(GreaterThan(attribute, value))
}

// Between appends a range filter.
func (b *Builder) Between(attribute string, low, high any) *Builder {
	return b.Add(Between(attribute, low, high))
}

// Search appends a fulltext filter.
func (b *Builder) Search(attribute, value string) *Builder {
	return b.Add(Search(attribute, value))
}

// Select appends a selection.
func (b *Builder) Select(attributes ...string) *Builder {
	return b.Add(Select(attributes...))
}

// OrderAsc appends an ascending order clause.
func (b *Builder) OrderAsc(attribute string) *Builder {
	return b.Add(OrderAsc(attribute))
}

// OrderDesc appends a descending order clause.
func (b *Builder) OrderDesc(attribute string) *Builder {
	return b.Add(OrderDesc(attribute))
}

// Limit appends a limit clause.
func (b *Builder) Limit(n int) *Builder {
	return b.Add(Limit(n))
}

// Offset appends an offset clause.
func (b *Builder) Offset(n int) *Builder {
	return b.Add(Offset(n))
}

// CursorAfter appends an after-cursor clause.
func (b *Builder) CursorAfter(cursor any) *Builder {
	return b.Add(CursorAfter(cursor))
}

// CursorBefore appends a before-cursor clause.
func (b *Builder) CursorBefore(cursor any) *Builder {
	return b.Add(CursorBefore(cursor))
}

// Populate appends a populate clause.
func (b *Builder) Populate(attribute string, queries ...Query) *Builder {
	return b.Add(Populate(attribute, queries...))
}

// Build returns a deep clone of the accumulated queries.
func (b *Builder) Build() []Query {
	return CloneSlice(b.queries)
}
