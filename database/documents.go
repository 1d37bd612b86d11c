// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package database

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/strata/access"
	"github.com/taibuivan/strata/apperr"
	"github.com/taibuivan/strata/cache"
	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/permission"
	"github.com/taibuivan/strata/pkg/query"
	"github.com/taibuivan/strata/pkg/schema"
	"github.com/taibuivan/strata/validator"
)

// bulkParallelism bounds concurrent per-document preparation in bulk writes.
const bulkParallelism = 8

// # Authorization

// authorized reports whether the active role set grants kind on the
// collection, or on the document when document security is enabled.
func (db *Database) authorized(ctx context.Context, kind permission.Kind, collection *schema.Collection, document *doc.Doc) bool {
	if access.Verify(ctx, kind, collection.Permissions) {
		return true
	}
	if collection.DocumentSecurity && document != nil {
		return access.Verify(ctx, kind, document.Permissions())
	}
	return false
}

// # Write pipeline

// prepareWrite runs the shared half of the write pipeline: permissions
// aggregation, structure validation, relationship extraction, and filter
// encoding. The document is mutated in place.
func (db *Database) prepareWrite(ctx context.Context, collection *schema.Collection, document *doc.Doc, partial bool) ([]relationshipValue, error) {
	if document.Has(doc.FieldPermissions) {
		perms := validator.NewPermissions()
		if !perms.Valid(document.Get(doc.FieldPermissions)) {
			return nil, apperr.Validation(perms.Description()).WithField(doc.FieldPermissions)
		}
		aggregated, err := permission.AggregateStrings(document.Permissions())
		if err != nil {
			return nil, apperr.Validation(err.Error()).WithField(doc.FieldPermissions)
		}
		document.Set(doc.FieldPermissions, aggregated)
	}

	structure := validator.NewStructure(collection)
	if partial {
		structure = validator.NewPartialStructure(collection)
	}
	if !structure.Valid(document) {
		return nil, apperr.Validation(structure.Description())
	}

	pending, err := extractRelationships(collection, document)
	if err != nil {
		return nil, err
	}
	if err := db.encodeDocument(ctx, collection, document); err != nil {
		return nil, err
	}
	return pending, nil
}

// finishRead runs the shared half of the read pipeline on one adapter row.
func (db *Database) finishRead(ctx context.Context, collection *schema.Collection, document *doc.Doc) error {
	document.Set(doc.FieldCollection, collection.ID)
	reviveSystemDates(document)
	return db.decodeDocument(ctx, collection, document)
}

// reviveSystemDates re-types system timestamps that crossed a serialization
// boundary as canonical strings.
func reviveSystemDates(document *doc.Doc) {
	for _, field := range []string{doc.FieldCreatedAt, doc.FieldUpdatedAt} {
		if s, ok := document.Get(field).(string); ok && s != "" {
			if t, err := doc.ParseDateTime(s); err == nil {
				document.Set(field, t)
			}
		}
	}
}

// CreateDocument validates, encodes, authorizes, and persists one document.
func (db *Database) CreateDocument(ctx context.Context, collectionID string, document *doc.Doc) (*doc.Doc, error) {
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !access.Verify(ctx, permission.KindCreate, collection.Permissions) {
		return nil, apperr.Authorization("missing create permission on " + collection.ID)
	}

	document.Set(doc.FieldID, resolveID(document.ID()))
	document.Set(doc.FieldCollection, collection.ID)
	db.stampCreate(document)

	pending, err := db.prepareWrite(ctx, collection, document, false)
	if err != nil {
		return nil, err
	}

	err = db.adapter.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := db.adapter.CreateDocument(ctx, collection, document); err != nil {
			return err
		}
		return db.applyRelationships(ctx, collection, document.ID(), pending)
	})
	if err != nil {
		return nil, err
	}

	if err := db.finishRead(ctx, collection, document); err != nil {
		return nil, err
	}
	db.cacheFlush(ctx, db.cacheKey().Collection(collection.ID))
	db.trigger(ctx, EventDocumentCreate, collection.ID, document)
	return document, nil
}

// CreateDocuments persists several documents in one transaction. Document
// preparation runs in parallel; storage order follows the input.
func (db *Database) CreateDocuments(ctx context.Context, collectionID string, documents []*doc.Doc) ([]*doc.Doc, error) {
	if len(documents) == 0 {
		return documents, nil
	}
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !access.Verify(ctx, permission.KindCreate, collection.Permissions) {
		return nil, apperr.Authorization("missing create permission on " + collection.ID)
	}

	pending := make([][]relationshipValue, len(documents))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(bulkParallelism)
	for i, document := range documents {
		i, document := i, document
		group.Go(func() error {
			document.Set(doc.FieldID, resolveID(document.ID()))
			document.Set(doc.FieldCollection, collection.ID)
			db.stampCreate(document)

			p, err := db.prepareWrite(groupCtx, collection, document, false)
			pending[i] = p
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	err = db.adapter.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := db.adapter.CreateDocuments(ctx, collection, documents); err != nil {
			return err
		}
		for i, document := range documents {
			if err := db.applyRelationships(ctx, collection, document.ID(), pending[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, document := range documents {
		if err := db.finishRead(ctx, collection, document); err != nil {
			return nil, err
		}
	}
	db.cacheFlush(ctx, db.cacheKey().Collection(collection.ID))
	db.trigger(ctx, EventDocumentsCreate, collection.ID, len(documents))
	return documents, nil
}

// CreateOrUpdateDocuments upserts several documents by id in one
// transaction. Existing rows keep their $createdAt.
func (db *Database) CreateOrUpdateDocuments(ctx context.Context, collectionID string, documents []*doc.Doc) ([]*doc.Doc, error) {
	if len(documents) == 0 {
		return documents, nil
	}
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !db.adapter.Capabilities().Upserts {
		return nil, apperr.Validation("dialect does not support upserts")
	}
	if !access.Verify(ctx, permission.KindCreate, collection.Permissions) ||
		!access.Verify(ctx, permission.KindUpdate, collection.Permissions) {
		return nil, apperr.Authorization("missing create or update permission on " + collection.ID)
	}

	pending := make([][]relationshipValue, len(documents))
	for i, document := range documents {
		document.Set(doc.FieldID, resolveID(document.ID()))
		document.Set(doc.FieldCollection, collection.ID)
		db.stampCreate(document)

		p, err := db.prepareWrite(ctx, collection, document, false)
		if err != nil {
			return nil, err
		}
		pending[i] = p
	}

	err = db.adapter.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := db.adapter.UpsertDocuments(ctx, collection, documents); err != nil {
			return err
		}
		for i, document := range documents {
			if err := db.applyRelationships(ctx, collection, document.ID(), pending[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, document := range documents {
		if err := db.finishRead(ctx, collection, document); err != nil {
			return nil, err
		}
	}
	db.cacheFlush(ctx, db.cacheKey().Collection(collection.ID))
	db.trigger(ctx, EventDocumentsUpsert, collection.ID, len(documents))
	return documents, nil
}

// UpdateDocument applies a partial update and returns the fresh document.
func (db *Database) UpdateDocument(ctx context.Context, collectionID, documentID string, updates *doc.Doc) (*doc.Doc, error) {
	if documentID == "" {
		return nil, apperr.Validation("document id is required").WithField(doc.FieldID)
	}
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	existing, err := db.adapter.GetDocument(ctx, collection, documentID, nil)
	if err != nil {
		return nil, err
	}
	if existing.Empty() {
		return nil, apperr.NotFound("Document")
	}
	if !db.authorized(ctx, permission.KindUpdate, collection, existing) {
		return nil, apperr.Authorization("missing update permission on " + collection.ID)
	}

	// System fields the caller must not rewrite.
	updates.Delete(doc.FieldID)
	updates.Delete(doc.FieldSequence)
	updates.Delete(doc.FieldCollection)
	updates.Delete(doc.FieldTenant)
	if !db.preserveDates {
		updates.Delete(doc.FieldCreatedAt)
	}
	db.stampUpdate(updates)

	pending, err := db.prepareWrite(ctx, collection, updates, true)
	if err != nil {
		return nil, err
	}

	err = db.adapter.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := db.adapter.UpdateDocument(ctx, collection, documentID, updates); err != nil {
			return err
		}
		return db.applyRelationships(ctx, collection, documentID, pending)
	})
	if err != nil {
		return nil, err
	}

	fresh, err := db.adapter.GetDocument(ctx, collection, documentID, nil)
	if err != nil {
		return nil, err
	}
	if err := db.finishRead(ctx, collection, fresh); err != nil {
		return nil, err
	}

	db.cacheFlush(ctx,
		db.cacheKey().Document(collection.ID, documentID),
		db.cacheKey().Collection(collection.ID),
	)
	db.trigger(ctx, EventDocumentUpdate, collection.ID, fresh)
	return fresh, nil
}

// UpdateDocuments applies the same partial update to every matching
// document and returns the affected count.
func (db *Database) UpdateDocuments(ctx context.Context, collectionID string, updates *doc.Doc, queries ...query.Query) (int64, error) {
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	if !access.Verify(ctx, permission.KindUpdate, collection.Permissions) {
		return 0, apperr.Authorization("missing update permission on " + collection.ID)
	}
	if err := db.validQueries(collection, queries); err != nil {
		return 0, err
	}

	updates.Delete(doc.FieldID)
	updates.Delete(doc.FieldSequence)
	updates.Delete(doc.FieldCollection)
	updates.Delete(doc.FieldTenant)
	updates.Delete(doc.FieldCreatedAt)
	updates.Delete(doc.FieldPermissions)
	db.stampUpdate(updates)

	if _, err := db.prepareWrite(ctx, collection, updates, true); err != nil {
		return 0, err
	}

	grouped := query.GroupByType(queries)
	affected, err := db.adapter.UpdateDocuments(ctx, collection, updates, grouped.Filters)
	if err != nil {
		return 0, err
	}

	db.cacheFlush(ctx, db.cacheKey().Collection(collection.ID))
	db.trigger(ctx, EventDocumentsUpdate, collection.ID, affected)
	return affected, nil
}

// DeleteDocument removes one document after applying relationship delete
// actions.
func (db *Database) DeleteDocument(ctx context.Context, collectionID, documentID string) error {
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return err
	}

	existing, err := db.adapter.GetDocument(ctx, collection, documentID, nil)
	if err != nil {
		return err
	}
	if existing.Empty() {
		return apperr.NotFound("Document")
	}
	if !db.authorized(ctx, permission.KindDelete, collection, existing) {
		return apperr.Authorization("missing delete permission on " + collection.ID)
	}

	err = db.adapter.WithTransaction(ctx, func(ctx context.Context) error {
		if err := db.enforceOnDelete(ctx, collection, documentID); err != nil {
			return err
		}
		return db.adapter.DeleteDocument(ctx, collection, documentID)
	})
	if err != nil {
		return err
	}

	if err := db.finishRead(ctx, collection, existing); err != nil {
		return err
	}
	db.cacheFlush(ctx,
		db.cacheKey().Document(collection.ID, documentID),
		db.cacheKey().Collection(collection.ID),
	)
	db.trigger(ctx, EventDocumentDelete, collection.ID, existing)
	return nil
}

// DeleteDocuments removes every matching document and returns the count.
// Relationship delete actions are not applied row by row; collections with
// restrict relationships should delete individually.
func (db *Database) DeleteDocuments(ctx context.Context, collectionID string, queries ...query.Query) (int64, error) {
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	if !access.Verify(ctx, permission.KindDelete, collection.Permissions) {
		return 0, apperr.Authorization("missing delete permission on " + collection.ID)
	}
	if err := db.validQueries(collection, queries); err != nil {
		return 0, err
	}

	grouped := query.GroupByType(queries)
	affected, err := db.adapter.DeleteDocuments(ctx, collection, grouped.Filters)
	if err != nil {
		return 0, err
	}

	db.cacheFlush(ctx, db.cacheKey().Collection(collection.ID))
	db.trigger(ctx, EventDocumentsDelete, collection.ID, affected)
	return affected, nil
}

// # Read pipeline

// GetDocument reads one document through the cache. Unauthorized access
// surfaces as NotFound so callers cannot probe for ids.
func (db *Database) GetDocument(ctx context.Context, collectionID, documentID string, queries ...query.Query) (*doc.Doc, error) {
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if err := db.validQueries(collection, queries); err != nil {
		return nil, err
	}
	grouped := query.GroupByType(queries)

	collectionRead := access.Verify(ctx, permission.KindRead, collection.Permissions)
	if !collectionRead && !collection.DocumentSecurity {
		return nil, apperr.NotFound("Document")
	}

	key := db.cacheKey().DocumentFiltered(collection.ID, documentID,
		cache.FilterHash(cache.FilterInputs{Selections: grouped.Selections}))

	var document *doc.Doc
	if raw, ok := db.cacheGet(ctx, key); ok {
		cached := doc.New()
		if err := json.Unmarshal(raw, cached); err == nil {
			document = cached
		}
	}
	if document == nil {
		row, err := db.adapter.GetDocument(ctx, collection, documentID, grouped.Selections)
		if err != nil {
			return nil, err
		}
		if row.Empty() {
			return nil, apperr.NotFound("Document")
		}
		if raw, err := json.Marshal(row); err == nil {
			db.cacheSet(ctx, key, raw, []string{
				db.cacheKey().Collection(collection.ID),
				db.cacheKey().Document(collection.ID, documentID),
			})
		}
		document = row
	}

	if !collectionRead && !access.Verify(ctx, permission.KindRead, document.Permissions()) {
		return nil, apperr.NotFound("Document")
	}
	if err := db.finishRead(ctx, collection, document); err != nil {
		return nil, err
	}
	if len(grouped.Populate) > 0 {
		if err := db.populate(ctx, collection, []*doc.Doc{document}, grouped.Populate, nil); err != nil {
			return nil, err
		}
	}

	db.trigger(ctx, EventDocumentRead, collection.ID, document)
	return document, nil
}

// Find returns the documents matching the queries. With document security
// enabled, rows the active roles cannot read are filtered out.
func (db *Database) Find(ctx context.Context, collectionID string, queries ...query.Query) ([]*doc.Doc, error) {
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if err := db.validQueries(collection, queries); err != nil {
		return nil, err
	}

	collectionRead := access.Verify(ctx, permission.KindRead, collection.Permissions)
	if !collectionRead && !collection.DocumentSecurity {
		return nil, apperr.Authorization("missing read permission on " + collection.ID)
	}

	grouped := query.GroupByType(queries)
	db.capLimit(&grouped)

	rows, err := db.adapter.Find(ctx, collection, grouped)
	if err != nil {
		return nil, err
	}

	documents := make([]*doc.Doc, 0, len(rows))
	for _, row := range rows {
		if !collectionRead && !access.Verify(ctx, permission.KindRead, row.Permissions()) {
			continue
		}
		if err := db.finishRead(ctx, collection, row); err != nil {
			return nil, err
		}
		documents = append(documents, row)
	}

	if len(grouped.Populate) > 0 {
		if err := db.populate(ctx, collection, documents, grouped.Populate, nil); err != nil {
			return nil, err
		}
	}

	db.trigger(ctx, EventDocumentFind, collection.ID, len(documents))
	return documents, nil
}

// FindOne returns the first match, or an empty document when nothing
// matches or the match is not readable.
func (db *Database) FindOne(ctx context.Context, collectionID string, queries ...query.Query) (*doc.Doc, error) {
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if err := db.validQueries(collection, queries); err != nil {
		return nil, err
	}

	grouped := query.GroupByType(queries)
	grouped.Limit = 1

	rows, err := db.adapter.Find(ctx, collection, grouped)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return doc.New(), nil
	}

	document := rows[0]
	if !db.authorized(ctx, permission.KindRead, collection, document) {
		return doc.New(), nil
	}
	if err := db.finishRead(ctx, collection, document); err != nil {
		return nil, err
	}
	if len(grouped.Populate) > 0 {
		if err := db.populate(ctx, collection, []*doc.Doc{document}, grouped.Populate, nil); err != nil {
			return nil, err
		}
	}

	db.trigger(ctx, EventDocumentRead, collection.ID, document)
	return document, nil
}

// # Aggregates

// Count counts matching documents; a limit query bounds the scan.
func (db *Database) Count(ctx context.Context, collectionID string, queries ...query.Query) (int64, error) {
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	if err := db.validQueries(collection, queries); err != nil {
		return 0, err
	}
	if !access.Verify(ctx, permission.KindRead, collection.Permissions) {
		return 0, apperr.Authorization("missing read permission on " + collection.ID)
	}

	grouped := query.GroupByType(queries)
	max := 0
	if grouped.Limit >= 0 {
		max = grouped.Limit
	}

	count, err := db.adapter.Count(ctx, collection, grouped.Filters, max)
	if err != nil {
		return 0, err
	}
	db.trigger(ctx, EventDocumentCount, collection.ID, count)
	return count, nil
}

// Sum totals a numeric attribute over matching documents.
func (db *Database) Sum(ctx context.Context, collectionID, attribute string, queries ...query.Query) (float64, error) {
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	if err := db.numericAttribute(collection, attribute); err != nil {
		return 0, err
	}
	if err := db.validQueries(collection, queries); err != nil {
		return 0, err
	}
	if !access.Verify(ctx, permission.KindRead, collection.Permissions) {
		return 0, apperr.Authorization("missing read permission on " + collection.ID)
	}

	grouped := query.GroupByType(queries)
	max := 0
	if grouped.Limit >= 0 {
		max = grouped.Limit
	}

	sum, err := db.adapter.Sum(ctx, collection, attribute, grouped.Filters, max)
	if err != nil {
		return 0, err
	}
	db.trigger(ctx, EventDocumentSum, collection.ID, attribute, sum)
	return sum, nil
}

// Increase atomically adds by (> 0) to a numeric attribute, optionally
// capped at max.
func (db *Database) Increase(ctx context.Context, collectionID, documentID, attribute string, by float64, max *float64) error {
	if err := db.shift(ctx, collectionID, documentID, attribute, by, max); err != nil {
		return err
	}
	db.trigger(ctx, EventDocumentIncrease, collectionID, documentID, attribute, by)
	return nil
}

// Decrease atomically subtracts by (> 0) from a numeric attribute,
// optionally floored at min.
func (db *Database) Decrease(ctx context.Context, collectionID, documentID, attribute string, by float64, min *float64) error {
	if err := db.shift(ctx, collectionID, documentID, attribute, -by, min); err != nil {
		return err
	}
	db.trigger(ctx, EventDocumentDecrease, collectionID, documentID, attribute, by)
	return nil
}

func (db *Database) shift(ctx context.Context, collectionID, documentID, attribute string, by float64, limit *float64) error {
	if by == 0 {
		return apperr.Validation("shift amount must be non-zero").WithField(attribute)
	}
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return err
	}
	if err := db.numericAttribute(collection, attribute); err != nil {
		return err
	}

	existing, err := db.adapter.GetDocument(ctx, collection, documentID, nil)
	if err != nil {
		return err
	}
	if existing.Empty() {
		return apperr.NotFound("Document")
	}
	if !db.authorized(ctx, permission.KindUpdate, collection, existing) {
		return apperr.Authorization("missing update permission on " + collection.ID)
	}

	updatedAt := doc.FormatDateTime(db.now().UTC())
	updated, err := db.adapter.Increase(ctx, collection, documentID, attribute, by, limit, updatedAt)
	if err != nil {
		return err
	}
	if !updated {
		return apperr.Conflict("numeric limit exceeded").WithField(attribute)
	}

	db.cacheFlush(ctx,
		db.cacheKey().Document(collection.ID, documentID),
		db.cacheKey().Collection(collection.ID),
	)
	return nil
}

func (db *Database) numericAttribute(collection *schema.Collection, name string) error {
	attribute := collection.Attribute(name)
	if attribute == nil {
		return apperr.NotFound("Attribute")
	}
	if attribute.Type != schema.TypeInteger && attribute.Type != schema.TypeFloat {
		return apperr.Validation("attribute is not numeric").WithField(name)
	}
	return nil
}

// # Cache maintenance

// PurgeCachedDocument drops every cached shape of one document.
func (db *Database) PurgeCachedDocument(ctx context.Context, collectionID, documentID string) {
	db.cacheFlush(ctx, db.cacheKey().Document(collectionID, documentID))
	db.trigger(ctx, EventDocumentPurge, collectionID, documentID)
}
