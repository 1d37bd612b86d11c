// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package query

// Sort directions used by order clauses.
const (
	DirectionAsc  = "ASC"
	DirectionDesc = "DESC"
)

// Cursor paging directions.
const (
	CursorDirectionAfter  = "after"
	CursorDirectionBefore = "before"
)

// Order is one entry of the ordered attribute → direction mapping.
type Order struct {
	Attribute string
	Direction string
}

// Grouped partitions a query list by purpose, ready for planning.
type Grouped struct {
	// Filters holds the condition nodes in submission order.
	Filters []Query
	// Selections holds the attribute names from select nodes.
	Selections []string
	// Orders preserves order-clause insertion order; the first clause for an
	// attribute wins.
	Orders []Order
	// Limit is the requested cap, or -1 when unset.
	Limit int
	// Offset is the requested skip, or 0 when unset.
	Offset int
	// Cursor is the boundary document ([*doc.Doc]) or id (string); nil when unset.
	Cursor any
	// CursorDirection is [CursorDirectionAfter] or [CursorDirectionBefore].
	CursorDirection string
	// Populate maps relationship attribute names to their nested queries.
	Populate map[string][]Query
}

// GroupByType partitions queries into a [Grouped]. Later limit, offset, and
// cursor nodes override earlier ones; duplicate order attributes keep their
// first direction.
func GroupByType(queries []Query) Grouped {
	grouped := Grouped{Limit: -1, Populate: make(map[string][]Query)}
	seenOrders := make(map[string]struct{})

	for _, q := range queries {
		switch {
		case q.IsFilter():
			grouped.Filters = append(grouped.Filters, q)

		case q.Method == MethodSelect:
			for _, v := range q.Values {
				if name, ok := v.(string); ok {
					grouped.Selections = append(grouped.Selections, name)
				}
			}

		case q.Method == MethodOrderAsc || q.Method == MethodOrderDesc:
			if _, dup := seenOrders[q.Attribute]; dup {
				continue
			}
			seenOrders[q.Attribute] = struct{}{}
			direction := DirectionAsc
			if q.Method == MethodOrderDesc {
				direction = DirectionDesc
			}
			grouped.Orders = append(grouped.Orders, Order{Attribute: q.Attribute, Direction: direction})

		case q.Method == MethodLimit:
			if len(q.Values) == 1 {
				grouped.Limit = asInt(q.Values[0])
			}

		case q.Method == MethodOffset:
			if len(q.Values) == 1 {
				grouped.Offset = asInt(q.Values[0])
			}

		case q.Method == MethodCursorAfter || q.Method == MethodCursorBefore:
			if len(q.Values) == 1 {
				grouped.Cursor = q.Values[0]
				grouped.CursorDirection = CursorDirectionAfter
				if q.Method == MethodCursorBefore {
					grouped.CursorDirection = CursorDirectionBefore
				}
			}

		case q.Method == MethodPopulate:
			grouped.Populate[q.Attribute] = q.Nested()
		}
	}
	return grouped
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
