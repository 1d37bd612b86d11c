// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/strata/apperr"
	"github.com/taibuivan/strata/pkg/convert"
	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/query"
	"github.com/taibuivan/strata/pkg/schema"
)

// # Value binding

// placeholder renders the bind placeholder for one value, casting encoded
// string forms into their column types.
func placeholder(attribute *schema.Attribute, value any) string {
	if attribute == nil {
		return "?"
	}
	if attribute.Array {
		switch attribute.Type {
		case schema.TypeJSON:
			return "?::jsonb[]"
		case schema.TypeDateTime:
			return "?::timestamptz[]"
		case schema.TypeUUID:
			return "?::uuid[]"
		}
		return "?"
	}
	if _, isString := value.(string); !isString {
		return "?"
	}
	switch attribute.Type {
	case schema.TypeJSON:
		return "?::jsonb"
	case schema.TypeDateTime:
		return "?::timestamptz"
	case schema.TypeUUID:
		return "?::uuid"
	}
	return "?"
}

// bindValue converts an engine value into a driver-bindable one.
func bindValue(attribute *schema.Attribute, value any) any {
	if value == nil {
		return nil
	}
	if attribute != nil && attribute.Array {
		return bindArray(attribute, value)
	}
	if t, ok := value.(time.Time); ok {
		return t.UTC()
	}
	return value
}

// bindArray converts an array attribute value into a typed slice the driver
// can encode as a native array.
func bindArray(attribute *schema.Attribute, value any) any {
	list, ok := value.([]any)
	if !ok {
		return value
	}

	switch attribute.Type {
	case schema.TypeInteger:
		out := make([]int64, 0, len(list))
		for _, v := range list {
			out = append(out, convert.ToInt64(v))
		}
		return out
	case schema.TypeFloat:
		out := make([]float64, 0, len(list))
		for _, v := range list {
			out = append(out, convert.ToFloat64(v))
		}
		return out
	case schema.TypeBoolean:
		out := make([]bool, 0, len(list))
		for _, v := range list {
			b, _ := v.(bool)
			out = append(out, b)
		}
		return out
	default:
		out := make([]string, 0, len(list))
		for _, v := range list {
			switch s := v.(type) {
			case string:
				out = append(out, s)
			case time.Time:
				out = append(out, doc.FormatDateTime(s))
			default:
				out = append(out, fmt.Sprintf("%v", s))
			}
		}
		return out
	}
}

// normalize converts driver-scanned values back into engine values.
func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case time.Time:
		return t.UTC()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	case []int64:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	case []bool:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	case []time.Time:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item.UTC()
		}
		return out
	default:
		return v
	}
}

// # Column selection and scanning

// storedAttributes returns the collection attributes that own a physical
// column.
func storedAttributes(collection *schema.Collection) []schema.Attribute {
	out := make([]schema.Attribute, 0, len(collection.Attributes))
	for _, attribute := range collection.Attributes {
		if attribute.IsVirtual() {
			continue
		}
		out = append(out, attribute)
	}
	return out
}

// selectList builds the physical column list and the parallel engine field
// names. System columns always travel; selections narrow user attributes.
func (a *Adapter) selectList(collection *schema.Collection, selections []string) (columns []string, fields []string) {
	columns = []string{
		QuoteIdent(colSequence), QuoteIdent(colUID),
		QuoteIdent(colCreatedAt), QuoteIdent(colUpdatedAt),
		QuoteIdent(colPermissions),
	}
	fields = []string{
		doc.FieldSequence, doc.FieldID,
		doc.FieldCreatedAt, doc.FieldUpdatedAt,
		doc.FieldPermissions,
	}
	if a.meta.SharedTables {
		columns = append(columns, QuoteIdent(colTenant))
		fields = append(fields, doc.FieldTenant)
	}

	var wanted map[string]struct{}
	if len(selections) > 0 && !containsWildcard(selections) {
		wanted = make(map[string]struct{}, len(selections))
		for _, s := range selections {
			wanted[s] = struct{}{}
		}
	}

	for _, attribute := range storedAttributes(collection) {
		if wanted != nil {
			if _, ok := wanted[attribute.Name()]; !ok {
				continue
			}
		}
		columns = append(columns, QuoteIdent(attribute.Name()))
		fields = append(fields, attribute.Name())
	}
	return columns, fields
}

func containsWildcard(selections []string) bool {
	for _, s := range selections {
		if s == "*" {
			return true
		}
	}
	return false
}

// scanDoc builds a document from one row's values, in field order.
func scanDoc(collection *schema.Collection, fields []string, values []any) *doc.Doc {
	d := doc.New()
	d.Set(doc.FieldID, "")
	d.Set(doc.FieldSequence, int64(0))
	d.Set(doc.FieldCollection, collection.ID)

	for i, field := range fields {
		d.Set(field, normalize(values[i]))
	}
	return d
}

// # Conditions

// buildConditions renders the WHERE fragment for a filter list, including
// the implicit tenant condition in shared-table mode.
func (a *Adapter) buildConditions(collection *schema.Collection, filters []query.Query) (string, []any, error) {
	parts, args, err := a.conditionList(collection, filters, " AND ")
	if err != nil {
		return "", nil, err
	}

	if a.meta.SharedTables {
		parts = appendFragment(parts, QuoteIdent(colTenant)+" = ?", " AND ")
		args = append(args, a.meta.TenantID)
	}
	return parts, args, nil
}

func appendFragment(existing, fragment, joiner string) string {
	if existing == "" {
		return fragment
	}
	return existing + joiner + fragment
}

func (a *Adapter) conditionList(collection *schema.Collection, filters []query.Query, joiner string) (string, []any, error) {
	var parts []string
	var args []any

	for _, q := range filters {
		sql, qArgs, err := a.condition(collection, q)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, qArgs...)
	}
	return strings.Join(parts, joiner), args, nil
}

// condition renders one filter node.
func (a *Adapter) condition(collection *schema.Collection, q query.Query) (string, []any, error) {
	attribute := collection.Attribute(q.Attribute)
	col := column(q.Attribute)

	switch q.Method {
	case query.MethodEqual:
		if len(q.Values) == 1 {
			return col + " = " + placeholder(attribute, q.Values[0]),
				[]any{bindValue(attribute, q.Values[0])}, nil
		}
		marks := make([]string, len(q.Values))
		args := make([]any, len(q.Values))
		for i, v := range q.Values {
			marks[i] = placeholder(attribute, v)
			args[i] = bindValue(attribute, v)
		}
		return col + " IN (" + strings.Join(marks, ", ") + ")", args, nil

	case query.MethodNotEqual:
		return col + " != " + placeholder(attribute, q.Values[0]),
			[]any{bindValue(attribute, q.Values[0])}, nil
	case query.MethodLessThan:
		return col + " < " + placeholder(attribute, q.Values[0]),
			[]any{bindValue(attribute, q.Values[0])}, nil
	case query.MethodLessThanEqual:
		return col + " <= " + placeholder(attribute, q.Values[0]),
			[]any{bindValue(attribute, q.Values[0])}, nil
	case query.MethodGreaterThan:
		return col + " > " + placeholder(attribute, q.Values[0]),
			[]any{bindValue(attribute, q.Values[0])}, nil
	case query.MethodGreaterThanEqual:
		return col + " >= " + placeholder(attribute, q.Values[0]),
			[]any{bindValue(attribute, q.Values[0])}, nil

	case query.MethodBetween:
		p1 := placeholder(attribute, q.Values[0])
		p2 := placeholder(attribute, q.Values[1])
		return col + " BETWEEN " + p1 + " AND " + p2,
			[]any{bindValue(attribute, q.Values[0]), bindValue(attribute, q.Values[1])}, nil

	case query.MethodContains:
		return a.containsCondition(attribute, col, q)

	case query.MethodSearch:
		return fmt.Sprintf("to_tsvector('simple', COALESCE(%s, '')) @@ plainto_tsquery('simple', ?)", col),
			[]any{q.Values[0]}, nil

	case query.MethodStartsWith:
		return col + " LIKE ?", []any{escapeLike(fmt.Sprintf("%v", q.Values[0])) + "%"}, nil
	case query.MethodEndsWith:
		return col + " LIKE ?", []any{"%" + escapeLike(fmt.Sprintf("%v", q.Values[0]))}, nil

	case query.MethodIsNull:
		return col + " IS NULL", nil, nil
	case query.MethodIsNotNull:
		return col + " IS NOT NULL", nil, nil

	case query.MethodOr, query.MethodAnd:
		joiner := " OR "
		if q.Method == query.MethodAnd {
			joiner = " AND "
		}
		inner, args, err := a.conditionList(collection, q.Nested(), joiner)
		if err != nil {
			return "", nil, err
		}
		return "(" + inner + ")", args, nil
	}

	return "", nil, apperr.Validationf("unsupported filter method %q", string(q.Method))
}

func (a *Adapter) containsCondition(attribute *schema.Attribute, col string, q query.Query) (string, []any, error) {
	if attribute != nil && attribute.Array {
		// Overlap: the column holds at least one of the requested values.
		return col + " && " + placeholder(attribute, nil),
			[]any{bindArray(attribute, q.Values)}, nil
	}

	expr := col
	if attribute != nil && attribute.Type == schema.TypeJSON {
		expr = col + "::text"
	}
	parts := make([]string, len(q.Values))
	args := make([]any, len(q.Values))
	for i, v := range q.Values {
		parts[i] = expr + " LIKE ?"
		args[i] = "%" + escapeLike(fmt.Sprintf("%v", v)) + "%"
	}
	if len(parts) == 1 {
		return parts[0], args, nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// # Ordering and cursors

// effectiveOrders appends the $sequence tie-break to the requested orders.
func effectiveOrders(grouped query.Grouped) []query.Order {
	orders := make([]query.Order, 0, len(grouped.Orders)+1)
	hasSequence := false
	for _, o := range grouped.Orders {
		if o.Attribute == doc.FieldSequence || o.Attribute == doc.FieldID {
			hasSequence = true
		}
		orders = append(orders, o)
	}
	if !hasSequence {
		direction := query.DirectionAsc
		if len(orders) > 0 {
			direction = orders[len(orders)-1].Direction
		}
		orders = append(orders, query.Order{Attribute: doc.FieldSequence, Direction: direction})
	}
	return orders
}

func orderSQL(orders []query.Order) string {
	parts := make([]string, len(orders))
	for i, o := range orders {
		parts[i] = column(o.Attribute) + " " + o.Direction
	}
	return strings.Join(parts, ", ")
}

// cursorCondition builds the strict boundary for cursor paging: an OR over
// order-prefix comparisons, so mixed sort directions stay correct.
func (a *Adapter) cursorCondition(collection *schema.Collection, orders []query.Order, cursor *doc.Doc, direction string) (string, []any, error) {
	var alternatives []string
	var args []any

	for boundary := 0; boundary < len(orders); boundary++ {
		var clauses []string
		for i := 0; i <= boundary; i++ {
			o := orders[i]
			value := cursorValue(cursor, o.Attribute)
			attribute := collection.Attribute(o.Attribute)

			if i < boundary {
				clauses = append(clauses, column(o.Attribute)+" = "+placeholder(attribute, value))
				args = append(args, bindValue(attribute, value))
				continue
			}

			op := compareOp(o.Direction, direction)
			clauses = append(clauses, column(o.Attribute)+" "+op+" "+placeholder(attribute, value))
			args = append(args, bindValue(attribute, value))
		}
		alternatives = append(alternatives, "("+strings.Join(clauses, " AND ")+")")
	}

	return "(" + strings.Join(alternatives, " OR ") + ")", args, nil
}

// compareOp picks the strict comparison: after follows the sort direction,
// before inverts it.
func compareOp(sortDirection, cursorDirection string) string {
	forward := sortDirection == query.DirectionAsc
	if cursorDirection == query.CursorDirectionBefore {
		forward = !forward
	}
	if forward {
		return ">"
	}
	return "<"
}

func cursorValue(cursor *doc.Doc, attribute string) any {
	if attribute == doc.FieldSequence {
		return cursor.Sequence()
	}
	return cursor.Get(attribute)
}

// # Document CRUD

// insertColumns assembles the column, placeholder, and argument lists for
// one document.
func (a *Adapter) insertColumns(collection *schema.Collection, document *doc.Doc) (columns, marks []string, args []any) {
	add := func(col, mark string, arg any) {
		columns = append(columns, col)
		marks = append(marks, mark)
		args = append(args, arg)
	}

	createdAt := document.Get(doc.FieldCreatedAt)
	updatedAt := document.Get(doc.FieldUpdatedAt)

	add(QuoteIdent(colUID), "?", document.ID())
	add(QuoteIdent(colCreatedAt), timestampMark(createdAt), bindValue(nil, timestampBind(createdAt)))
	add(QuoteIdent(colUpdatedAt), timestampMark(updatedAt), bindValue(nil, timestampBind(updatedAt)))
	add(QuoteIdent(colPermissions), "?", toTextArray(document.Permissions()))
	if a.meta.SharedTables {
		var tenant any
		if id, ok := document.TenantID(); ok {
			tenant = id
		} else if !a.meta.TenantPerDocument {
			tenant = a.meta.TenantID
		}
		add(QuoteIdent(colTenant), "?", tenant)
	}

	for _, attribute := range storedAttributes(collection) {
		if !document.Has(attribute.Name()) {
			continue
		}
		attr := attribute
		value := document.Get(attribute.Name())
		add(QuoteIdent(attribute.Name()), placeholder(&attr, value), bindValue(&attr, value))
	}
	return columns, marks, args
}

func timestampMark(v any) string {
	if _, ok := v.(string); ok {
		return "?::timestamptz"
	}
	return "?"
}

func timestampBind(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}

func toTextArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func (a *Adapter) CreateDocument(ctx context.Context, collection *schema.Collection, document *doc.Doc) (*doc.Doc, error) {
	columns, marks, args := a.insertColumns(collection, document)

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		a.table(collection.ID),
		strings.Join(columns, ", "),
		strings.Join(marks, ", "),
		QuoteIdent(colSequence),
	)

	var sequence int64
	if err := a.client.QueryRow(ctx, insert, args...).Scan(&sequence); err != nil {
		return nil, wrapError(err)
	}
	document.Set(doc.FieldSequence, sequence)
	return document, nil
}

func (a *Adapter) CreateDocuments(ctx context.Context, collection *schema.Collection, documents []*doc.Doc) ([]*doc.Doc, error) {
	err := a.WithTransaction(ctx, func(ctx context.Context) error {
		for _, document := range documents {
			if _, err := a.CreateDocument(ctx, collection, document); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}

func (a *Adapter) UpsertDocuments(ctx context.Context, collection *schema.Collection, documents []*doc.Doc) ([]*doc.Doc, error) {
	conflictTarget := QuoteIdent(colUID)
	if a.meta.SharedTables {
		conflictTarget = QuoteIdent(colTenant) + ", " + QuoteIdent(colUID)
	}

	err := a.WithTransaction(ctx, func(ctx context.Context) error {
		for _, document := range documents {
			columns, marks, args := a.insertColumns(collection, document)

			var updates []string
			for _, col := range columns {
				if col == QuoteIdent(colUID) || col == QuoteIdent(colCreatedAt) || col == QuoteIdent(colTenant) {
					continue
				}
				updates = append(updates, col+" = EXCLUDED."+col)
			}

			upsert := fmt.Sprintf(
				"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
				a.table(collection.ID),
				strings.Join(columns, ", "),
				strings.Join(marks, ", "),
				conflictTarget,
				strings.Join(updates, ", "),
				QuoteIdent(colSequence),
			)

			var sequence int64
			if err := a.client.QueryRow(ctx, upsert, args...).Scan(&sequence); err != nil {
				return wrapError(err)
			}
			document.Set(doc.FieldSequence, sequence)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}

func (a *Adapter) UpdateDocument(ctx context.Context, collection *schema.Collection, documentID string, document *doc.Doc) (*doc.Doc, error) {
	var sets []string
	var args []any

	updatedAt := document.Get(doc.FieldUpdatedAt)
	if updatedAt != nil {
		sets = append(sets, QuoteIdent(colUpdatedAt)+" = "+timestampMark(updatedAt))
		args = append(args, timestampBind(updatedAt))
	}
	if document.Has(doc.FieldPermissions) {
		sets = append(sets, QuoteIdent(colPermissions)+" = ?")
		args = append(args, toTextArray(document.Permissions()))
	}

	for _, attribute := range storedAttributes(collection) {
		if !document.Has(attribute.Name()) {
			continue
		}
		attr := attribute
		value := document.Get(attribute.Name())
		sets = append(sets, QuoteIdent(attribute.Name())+" = "+placeholder(&attr, value))
		args = append(args, bindValue(&attr, value))
	}
	if len(sets) == 0 {
		return document, nil
	}

	where := QuoteIdent(colUID) + " = ?"
	args = append(args, documentID)
	if a.meta.SharedTables {
		where += " AND " + QuoteIdent(colTenant) + " = ?"
		args = append(args, a.meta.TenantID)
	}

	update := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		a.table(collection.ID), strings.Join(sets, ", "), where)

	tag, err := a.client.Exec(ctx, update, args...)
	if err != nil {
		return nil, wrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("Document")
	}
	return document, nil
}

func (a *Adapter) UpdateDocuments(ctx context.Context, collection *schema.Collection, updates *doc.Doc, filters []query.Query) (int64, error) {
	var sets []string
	var args []any

	updatedAt := updates.Get(doc.FieldUpdatedAt)
	if updatedAt != nil {
		sets = append(sets, QuoteIdent(colUpdatedAt)+" = "+timestampMark(updatedAt))
		args = append(args, timestampBind(updatedAt))
	}
	for _, attribute := range storedAttributes(collection) {
		if !updates.Has(attribute.Name()) {
			continue
		}
		attr := attribute
		value := updates.Get(attribute.Name())
		sets = append(sets, QuoteIdent(attribute.Name())+" = "+placeholder(&attr, value))
		args = append(args, bindValue(&attr, value))
	}
	if len(sets) == 0 {
		return 0, nil
	}

	where, whereArgs, err := a.buildConditions(collection, filters)
	if err != nil {
		return 0, err
	}
	args = append(args, whereArgs...)

	update := fmt.Sprintf("UPDATE %s SET %s", a.table(collection.ID), strings.Join(sets, ", "))
	if where != "" {
		update += " WHERE " + where
	}

	tag, err := a.client.Exec(ctx, update, args...)
	if err != nil {
		return 0, wrapError(err)
	}
	return tag.RowsAffected(), nil
}

func (a *Adapter) DeleteDocument(ctx context.Context, collection *schema.Collection, documentID string) error {
	where := QuoteIdent(colUID) + " = ?"
	args := []any{documentID}
	if a.meta.SharedTables {
		where += " AND " + QuoteIdent(colTenant) + " = ?"
		args = append(args, a.meta.TenantID)
	}

	tag, err := a.client.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s", a.table(collection.ID), where), args...)
	if err != nil {
		return wrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Document")
	}
	return nil
}

func (a *Adapter) DeleteDocuments(ctx context.Context, collection *schema.Collection, filters []query.Query) (int64, error) {
	where, args, err := a.buildConditions(collection, filters)
	if err != nil {
		return 0, err
	}

	del := "DELETE FROM " + a.table(collection.ID)
	if where != "" {
		del += " WHERE " + where
	}

	tag, err := a.client.Exec(ctx, del, args...)
	if err != nil {
		return 0, wrapError(err)
	}
	return tag.RowsAffected(), nil
}

func (a *Adapter) GetDocument(ctx context.Context, collection *schema.Collection, documentID string, selections []string) (*doc.Doc, error) {
	columns, fields := a.selectList(collection, selections)

	where := QuoteIdent(colUID) + " = ?"
	args := []any{documentID}
	if a.meta.SharedTables {
		where += " AND " + QuoteIdent(colTenant) + " = ?"
		args = append(args, a.meta.TenantID)
	}

	sel := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1",
		strings.Join(columns, ", "), a.table(collection.ID), where)

	rows, err := a.client.Query(ctx, sel, args...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, wrapError(err)
		}
		return doc.New(), nil
	}
	values, err := rows.Values()
	if err != nil {
		return nil, wrapError(err)
	}
	return scanDoc(collection, fields, values), nil
}

func (a *Adapter) Find(ctx context.Context, collection *schema.Collection, grouped query.Grouped) ([]*doc.Doc, error) {
	columns, fields := a.selectList(collection, grouped.Selections)

	where, args, err := a.buildConditions(collection, grouped.Filters)
	if err != nil {
		return nil, err
	}

	orders := effectiveOrders(grouped)
	if cursor, ok := grouped.Cursor.(*doc.Doc); ok && cursor != nil {
		boundary, cursorArgs, err := a.cursorCondition(collection, orders, cursor, grouped.CursorDirection)
		if err != nil {
			return nil, err
		}
		where = appendFragment(where, boundary, " AND ")
		args = append(args, cursorArgs...)
	}

	sel := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), a.table(collection.ID))
	if where != "" {
		sel += " WHERE " + where
	}
	sel += " ORDER BY " + orderSQL(orders)
	if grouped.Limit >= 0 {
		sel += " LIMIT ?"
		args = append(args, grouped.Limit)
	}
	if grouped.Offset > 0 {
		sel += " OFFSET ?"
		args = append(args, grouped.Offset)
	}

	rows, err := a.client.Query(ctx, sel, args...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	var documents []*doc.Doc
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, wrapError(err)
		}
		documents = append(documents, scanDoc(collection, fields, values))
	}
	return documents, wrapError(rows.Err())
}

func (a *Adapter) Count(ctx context.Context, collection *schema.Collection, filters []query.Query, max int) (int64, error) {
	where, args, err := a.buildConditions(collection, filters)
	if err != nil {
		return 0, err
	}

	inner := "SELECT 1 FROM " + a.table(collection.ID)
	if where != "" {
		inner += " WHERE " + where
	}
	if max > 0 {
		inner += " LIMIT ?"
		args = append(args, max)
	}

	var count int64
	err = a.client.QueryRow(ctx, "SELECT COUNT(1) FROM ("+inner+") sub", args...).Scan(&count)
	if err != nil {
		return 0, wrapError(err)
	}
	return count, nil
}

func (a *Adapter) Sum(ctx context.Context, collection *schema.Collection, attribute string, filters []query.Query, max int) (float64, error) {
	where, args, err := a.buildConditions(collection, filters)
	if err != nil {
		return 0, err
	}

	inner := fmt.Sprintf("SELECT %s AS v FROM %s", column(attribute), a.table(collection.ID))
	if where != "" {
		inner += " WHERE " + where
	}
	if max > 0 {
		inner += " LIMIT ?"
		args = append(args, max)
	}

	var sum float64
	err = a.client.QueryRow(ctx, "SELECT COALESCE(SUM(v), 0) FROM ("+inner+") sub", args...).Scan(&sum)
	if err != nil {
		return 0, wrapError(err)
	}
	return sum, nil
}

func (a *Adapter) Increase(ctx context.Context, collection *schema.Collection, documentID, attribute string, by float64, limit *float64, updatedAt string) (bool, error) {
	col := column(attribute)

	sets := col + " = " + col + " + ?, " + QuoteIdent(colUpdatedAt) + " = ?::timestamptz"
	args := []any{by, updatedAt}

	where := QuoteIdent(colUID) + " = ?"
	args = append(args, documentID)
	if a.meta.SharedTables {
		where += " AND " + QuoteIdent(colTenant) + " = ?"
		args = append(args, a.meta.TenantID)
	}
	if limit != nil {
		// by > 0 caps at a maximum, by < 0 floors at a minimum.
		if by >= 0 {
			where += " AND " + col + " + ? <= ?"
		} else {
			where += " AND " + col + " + ? >= ?"
		}
		args = append(args, by, *limit)
	}

	update := fmt.Sprintf("UPDATE %s SET %s WHERE %s", a.table(collection.ID), sets, where)
	tag, err := a.client.Exec(ctx, update, args...)
	if err != nil {
		return false, wrapError(err)
	}
	return tag.RowsAffected() > 0, nil
}
