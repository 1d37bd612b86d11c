// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package database_test

import (
	"context"
	"reflect"
	"sync"

	"github.com/taibuivan/strata/adapter"
	"github.com/taibuivan/strata/apperr"
	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/query"
	"github.com/taibuivan/strata/pkg/schema"
)

// memoryAdapter is an in-process [adapter.Adapter] used to test the facade
// without a SQL backend. Documents live in maps keyed by collection and id,
// insertion order is preserved, and the filter evaluator covers the
// comparison subset the facade tests issue. GetDocument calls are counted
// per collection so cache behavior is observable.
type memoryAdapter struct {
	mu      sync.Mutex
	meta    adapter.Meta
	schemas map[string]struct{}
	tables  map[string][]schema.Attribute
	docs    map[string]map[string]*doc.Doc
	order   map[string][]string
	seq     int64

	getCalls map[string]int
}

func newMemoryAdapter() *memoryAdapter {
	return &memoryAdapter{
		schemas:  map[string]struct{}{},
		tables:   map[string][]schema.Attribute{},
		docs:     map[string]map[string]*doc.Doc{},
		order:    map[string][]string{},
		getCalls: map[string]int{},
	}
}

// documentReads returns how many times GetDocument ran for a collection.
func (m *memoryAdapter) documentReads(collectionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls[collectionID]
}

// stored returns the raw document map of a collection, for assertions on
// what actually reached storage.
func (m *memoryAdapter) stored(collectionID, documentID string) *doc.Doc {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[collectionID][documentID]; ok {
		return d.Clone()
	}
	return nil
}

func (m *memoryAdapter) rowCount(collectionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[collectionID])
}

func (m *memoryAdapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		Fulltext:      true,
		ArrayIndexes:  true,
		NativeArrays:  true,
		BatchDDL:      true,
		Relationships: true,
		Upserts:       true,
		MaxVarchar:    10485760,
	}
}

func (m *memoryAdapter) SetMeta(meta adapter.Meta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta = meta
}

func (m *memoryAdapter) Meta() adapter.Meta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta
}

func (m *memoryAdapter) Ping(context.Context) error { return nil }

func (m *memoryAdapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// # Schema container

func (m *memoryAdapter) CreateSchema(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[name] = struct{}{}
	return nil
}

func (m *memoryAdapter) SchemaExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.schemas[name]
	return ok, nil
}

func (m *memoryAdapter) DeleteSchema(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schemas, name)
	return nil
}

// # Collections

func (m *memoryAdapter) CreateCollection(_ context.Context, collectionID string, attributes []schema.Attribute, _ []schema.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tables[collectionID]; exists {
		return apperr.Conflict("collection already exists: " + collectionID)
	}
	m.tables[collectionID] = append([]schema.Attribute{}, attributes...)
	m.docs[collectionID] = map[string]*doc.Doc{}
	m.order[collectionID] = nil
	return nil
}

func (m *memoryAdapter) DeleteCollection(_ context.Context, collectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, collectionID)
	delete(m.docs, collectionID)
	delete(m.order, collectionID)
	return nil
}

func (m *memoryAdapter) CollectionExists(_ context.Context, collectionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tables[collectionID]
	return ok, nil
}

func (m *memoryAdapter) AnalyzeCollection(_ context.Context, collectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[collectionID]; !ok {
		return apperr.NotFound("Collection")
	}
	return nil
}

func (m *memoryAdapter) GetSizeOfCollection(_ context.Context, collectionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[collectionID]; !ok {
		return 0, apperr.NotFound("Collection")
	}
	return int64(8192 + len(m.docs[collectionID])*512), nil
}

func (m *memoryAdapter) GetSizeOfDocument(_ context.Context, collectionID, documentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.docs[collectionID][documentID]
	if !ok {
		return 0, apperr.NotFound("Document")
	}
	raw, err := stored.MarshalJSON()
	if err != nil {
		return 0, err
	}
	return int64(len(raw)), nil
}

func (m *memoryAdapter) GetSchemaAttributes(_ context.Context, collectionID string) ([]adapter.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	columns := make([]adapter.Column, 0, len(m.tables[collectionID]))
	for _, attribute := range m.tables[collectionID] {
		columns = append(columns, adapter.Column{
			Name:     attribute.Name(),
			Type:     string(attribute.Type),
			Nullable: !attribute.Required,
		})
	}
	return columns, nil
}

// # Attributes

func (m *memoryAdapter) CreateAttribute(_ context.Context, collectionID string, attribute schema.Attribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[collectionID] = append(m.tables[collectionID], attribute)
	return nil
}

func (m *memoryAdapter) CreateAttributes(ctx context.Context, collectionID string, attributes []schema.Attribute) error {
	for _, attribute := range attributes {
		if err := m.CreateAttribute(ctx, collectionID, attribute); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryAdapter) UpdateAttribute(_ context.Context, collectionID string, attribute schema.Attribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.tables[collectionID] {
		if existing.Name() == attribute.Name() {
			m.tables[collectionID][i] = attribute
			return nil
		}
	}
	return apperr.NotFound("Attribute")
}

func (m *memoryAdapter) RenameAttribute(_ context.Context, collectionID, old, new string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.tables[collectionID] {
		if existing.Name() == old {
			m.tables[collectionID][i].ID = new
			m.tables[collectionID][i].Key = new
		}
	}
	for _, row := range m.docs[collectionID] {
		if row.Has(old) {
			row.Set(new, row.Get(old))
			row.Delete(old)
		}
	}
	return nil
}

func (m *memoryAdapter) DeleteAttribute(_ context.Context, collectionID string, attribute schema.Attribute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := m.tables[collectionID]
	for i, existing := range table {
		if existing.Name() == attribute.Name() {
			m.tables[collectionID] = append(table[:i], table[i+1:]...)
			break
		}
	}
	for _, row := range m.docs[collectionID] {
		row.Delete(attribute.Name())
	}
	return nil
}

// # Indexes

func (m *memoryAdapter) CreateIndex(context.Context, string, schema.Index, []schema.Attribute) error {
	return nil
}

func (m *memoryAdapter) RenameIndex(context.Context, string, string, string) error { return nil }

func (m *memoryAdapter) DeleteIndex(context.Context, string, string) error { return nil }

// # Documents

func (m *memoryAdapter) CreateDocument(_ context.Context, collection *schema.Collection, document *doc.Doc) (*doc.Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(collection.ID, document)
}

// insert stores a clone under the document id; callers hold the lock.
func (m *memoryAdapter) insert(collectionID string, document *doc.Doc) (*doc.Doc, error) {
	if _, ok := m.docs[collectionID]; !ok {
		return nil, apperr.NotFound("Collection")
	}
	id := document.ID()
	if _, dup := m.docs[collectionID][id]; dup {
		return nil, apperr.Conflict("duplicate document id: " + id)
	}
	m.seq++
	document.Set(doc.FieldSequence, m.seq)
	m.docs[collectionID][id] = document.Clone()
	m.order[collectionID] = append(m.order[collectionID], id)
	return document, nil
}

func (m *memoryAdapter) CreateDocuments(_ context.Context, collection *schema.Collection, documents []*doc.Doc) ([]*doc.Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, document := range documents {
		if _, err := m.insert(collection.ID, document); err != nil {
			return nil, err
		}
	}
	return documents, nil
}

func (m *memoryAdapter) UpsertDocuments(_ context.Context, collection *schema.Collection, documents []*doc.Doc) ([]*doc.Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, document := range documents {
		existing, ok := m.docs[collection.ID][document.ID()]
		if !ok {
			if _, err := m.insert(collection.ID, document); err != nil {
				return nil, err
			}
			continue
		}
		// Existing rows keep their creation timestamp.
		for _, key := range document.Keys() {
			if key == doc.FieldCreatedAt {
				continue
			}
			existing.Set(key, document.Get(key))
		}
	}
	return documents, nil
}

func (m *memoryAdapter) UpdateDocument(_ context.Context, collection *schema.Collection, documentID string, document *doc.Doc) (*doc.Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.docs[collection.ID][documentID]
	if !ok {
		return nil, apperr.NotFound("Document")
	}
	for _, key := range document.Keys() {
		existing.Set(key, document.Get(key))
	}
	return existing.Clone(), nil
}

func (m *memoryAdapter) UpdateDocuments(_ context.Context, collection *schema.Collection, updates *doc.Doc, filters []query.Query) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected int64
	for _, id := range m.order[collection.ID] {
		row := m.docs[collection.ID][id]
		if !matchAll(row, filters) {
			continue
		}
		for _, key := range updates.Keys() {
			row.Set(key, updates.Get(key))
		}
		affected++
	}
	return affected, nil
}

func (m *memoryAdapter) DeleteDocument(_ context.Context, collection *schema.Collection, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(collection.ID, documentID)
	return nil
}

func (m *memoryAdapter) remove(collectionID, documentID string) {
	delete(m.docs[collectionID], documentID)
	for i, id := range m.order[collectionID] {
		if id == documentID {
			m.order[collectionID] = append(m.order[collectionID][:i], m.order[collectionID][i+1:]...)
			break
		}
	}
}

func (m *memoryAdapter) DeleteDocuments(_ context.Context, collection *schema.Collection, filters []query.Query) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []string
	for _, id := range m.order[collection.ID] {
		if matchAll(m.docs[collection.ID][id], filters) {
			matched = append(matched, id)
		}
	}
	for _, id := range matched {
		m.remove(collection.ID, id)
	}
	return int64(len(matched)), nil
}

func (m *memoryAdapter) GetDocument(_ context.Context, collection *schema.Collection, documentID string, _ []string) (*doc.Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls[collection.ID]++
	if row, ok := m.docs[collection.ID][documentID]; ok {
		return row.Clone(), nil
	}
	return doc.New(), nil
}

func (m *memoryAdapter) Find(_ context.Context, collection *schema.Collection, grouped query.Grouped) ([]*doc.Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []*doc.Doc
	skipped := 0
	for _, id := range m.order[collection.ID] {
		row := m.docs[collection.ID][id]
		if !matchAll(row, grouped.Filters) {
			continue
		}
		if skipped < grouped.Offset {
			skipped++
			continue
		}
		rows = append(rows, row.Clone())
		if grouped.Limit > 0 && len(rows) == grouped.Limit {
			break
		}
	}
	return rows, nil
}

func (m *memoryAdapter) Count(_ context.Context, collection *schema.Collection, filters []query.Query, max int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, id := range m.order[collection.ID] {
		if matchAll(m.docs[collection.ID][id], filters) {
			count++
			if max > 0 && count == int64(max) {
				break
			}
		}
	}
	return count, nil
}

func (m *memoryAdapter) Sum(_ context.Context, collection *schema.Collection, attribute string, filters []query.Query, max int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	scanned := 0
	for _, id := range m.order[collection.ID] {
		row := m.docs[collection.ID][id]
		if !matchAll(row, filters) {
			continue
		}
		if value, ok := toFloat(row.Get(attribute)); ok {
			sum += value
		}
		scanned++
		if max > 0 && scanned == max {
			break
		}
	}
	return sum, nil
}

func (m *memoryAdapter) Increase(_ context.Context, collection *schema.Collection, documentID, attribute string, by float64, limit *float64, updatedAt string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.docs[collection.ID][documentID]
	if !ok {
		return false, apperr.NotFound("Document")
	}
	current, _ := toFloat(row.Get(attribute))
	next := current + by
	if limit != nil {
		if by > 0 && next > *limit {
			return false, nil
		}
		if by < 0 && next < *limit {
			return false, nil
		}
	}
	row.Set(attribute, next)
	row.Set(doc.FieldUpdatedAt, updatedAt)
	return true, nil
}

// # Filter evaluation

func matchAll(row *doc.Doc, filters []query.Query) bool {
	for _, filter := range filters {
		if !matchFilter(row, filter) {
			return false
		}
	}
	return true
}

func matchFilter(row *doc.Doc, filter query.Query) bool {
	value := fieldValue(row, filter.Attribute)
	switch filter.Method {
	case query.MethodEqual:
		for _, want := range filter.Values {
			if valueEqual(value, want) {
				return true
			}
		}
		return false
	case query.MethodNotEqual:
		return len(filter.Values) == 1 && !valueEqual(value, filter.Values[0])
	case query.MethodGreaterThan:
		return compareNumeric(value, filter.Values[0], func(a, b float64) bool { return a > b })
	case query.MethodGreaterThanEqual:
		return compareNumeric(value, filter.Values[0], func(a, b float64) bool { return a >= b })
	case query.MethodLessThan:
		return compareNumeric(value, filter.Values[0], func(a, b float64) bool { return a < b })
	case query.MethodLessThanEqual:
		return compareNumeric(value, filter.Values[0], func(a, b float64) bool { return a <= b })
	case query.MethodIsNull:
		return value == nil
	case query.MethodIsNotNull:
		return value != nil
	case query.MethodOr:
		for _, nested := range filter.Values {
			if q, ok := nested.(query.Query); ok && matchFilter(row, q) {
				return true
			}
		}
		return false
	case query.MethodAnd:
		for _, nested := range filter.Values {
			if q, ok := nested.(query.Query); ok && !matchFilter(row, q) {
				return false
			}
		}
		return true
	}
	// Methods the tests never filter on match everything.
	return true
}

func fieldValue(row *doc.Doc, attribute string) any {
	if attribute == doc.FieldID {
		return row.ID()
	}
	return row.Get(attribute)
}

func valueEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func compareNumeric(a, b any, cmp func(a, b float64) bool) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && cmp(af, bf)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
