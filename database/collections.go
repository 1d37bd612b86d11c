// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package database

import (
	"context"
	"encoding/json"

	"github.com/taibuivan/strata/apperr"
	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/query"
	"github.com/taibuivan/strata/pkg/schema"
	"github.com/taibuivan/strata/validator"
)

// # Metadata serialization

// collectionToDoc renders a collection schema as a metadata document with
// the attribute and index lists pre-serialized to JSON.
func collectionToDoc(collection *schema.Collection) (*doc.Doc, error) {
	attributes, err := json.Marshal(collection.Attributes)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	indexes, err := json.Marshal(collection.Indexes)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	d := doc.New()
	d.Set(doc.FieldID, collection.ID)
	d.Set(doc.FieldCollection, schema.MetadataCollection)
	d.Set(doc.FieldPermissions, collection.Permissions)
	d.Set("name", collection.Name)
	d.Set("attributes", string(attributes))
	d.Set("indexes", string(indexes))
	d.Set("documentSecurity", collection.DocumentSecurity)
	return d, nil
}

// collectionFromDoc parses a metadata document back into a schema.
func collectionFromDoc(d *doc.Doc) (*schema.Collection, error) {
	collection := &schema.Collection{
		ID:          d.ID(),
		Name:        d.GetDefault("name", "").(string),
		Permissions: d.Permissions(),
		Enabled:     true,
	}
	if security, ok := d.Get("documentSecurity").(bool); ok {
		collection.DocumentSecurity = security
	}

	if raw := jsonString(d.Get("attributes")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &collection.Attributes); err != nil {
			return nil, apperr.Database("corrupt collection metadata", err).WithField("attributes")
		}
	}
	if raw := jsonString(d.Get("indexes")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &collection.Indexes); err != nil {
			return nil, apperr.Database("corrupt collection metadata", err).WithField("indexes")
		}
	}
	return collection, nil
}

func jsonString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}

// # Lookup

// collection resolves a collection schema without emitting events: the
// metadata collection itself short-circuits, everything else reads through
// the cache.
func (db *Database) collection(ctx context.Context, collectionID string) (*schema.Collection, error) {
	if collectionID == schema.MetadataCollection {
		return schema.Metadata(), nil
	}

	key := db.cacheKey().Document(schema.MetadataCollection, collectionID)
	if raw, ok := db.cacheGet(ctx, key); ok {
		cached := &schema.Collection{}
		if err := json.Unmarshal(raw, cached); err == nil {
			return cached, nil
		}
	}

	row, err := db.adapter.GetDocument(ctx, schema.Metadata(), collectionID, nil)
	if err != nil {
		return nil, err
	}
	if row.Empty() {
		return nil, apperr.NotFound("Collection")
	}

	collection, err := collectionFromDoc(row)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(collection); err == nil {
		db.cacheSet(ctx, key, raw, []string{db.cacheKey().Collection(schema.MetadataCollection)})
	}
	return collection, nil
}

// GetCollection returns a collection's schema.
func (db *Database) GetCollection(ctx context.Context, collectionID string) (*schema.Collection, error) {
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	db.trigger(ctx, EventCollectionRead, collection)
	return collection, nil
}

// ListCollections returns every collection schema, optionally narrowed by
// queries against the metadata collection.
func (db *Database) ListCollections(ctx context.Context, queries ...query.Query) ([]*schema.Collection, error) {
	metadata := schema.Metadata()
	if err := db.validQueries(metadata, queries); err != nil {
		return nil, err
	}

	grouped := query.GroupByType(queries)
	db.capLimit(&grouped)

	rows, err := db.adapter.Find(ctx, metadata, grouped)
	if err != nil {
		return nil, err
	}

	collections := make([]*schema.Collection, 0, len(rows))
	for _, row := range rows {
		collection, err := collectionFromDoc(row)
		if err != nil {
			return nil, err
		}
		collections = append(collections, collection)
	}
	db.trigger(ctx, EventCollectionList, len(collections))
	return collections, nil
}

// # Lifecycle

// CreateCollection validates a collection schema, issues its DDL, and
// records it in the metadata collection. The table and the metadata row are
// created in one transaction.
func (db *Database) CreateCollection(ctx context.Context, collection *schema.Collection) (*schema.Collection, error) {
	if collection.ID == schema.MetadataCollection {
		return nil, apperr.Validation("collection id is reserved").WithField("$id")
	}
	if key := validator.NewKey(false); !key.Valid(collection.ID) {
		return nil, apperr.Validation(key.Description()).WithField("$id")
	}
	if perms := validator.NewPermissions(); len(collection.Permissions) > 0 && !perms.Valid(collection.Permissions) {
		return nil, apperr.Validation(perms.Description()).WithField("$permissions")
	}
	if err := db.validAttributes(collection.Attributes); err != nil {
		return nil, err
	}
	caps := db.adapter.Capabilities()
	indexCheck := validator.NewIndex(collection, caps.MaxIndexLength, caps.ArrayIndexes)
	for _, index := range collection.Indexes {
		if !indexCheck.Valid(index) {
			return nil, apperr.Validation(indexCheck.Description()).WithField(index.Name())
		}
	}

	switch _, err := db.collection(ctx, collection.ID); {
	case err == nil:
		return nil, apperr.Conflict("collection already exists: " + collection.ID)
	case !apperr.IsNotFound(err):
		return nil, err
	}

	metadataDoc, err := collectionToDoc(collection)
	if err != nil {
		return nil, err
	}
	db.stampCreate(metadataDoc)

	err = db.adapter.WithTransaction(ctx, func(ctx context.Context) error {
		if err := db.adapter.CreateCollection(ctx, collection.ID, collection.Attributes, collection.Indexes); err != nil {
			return err
		}
		_, err := db.adapter.CreateDocument(ctx, schema.Metadata(), metadataDoc)
		return err
	})
	if err != nil {
		return nil, err
	}

	db.cacheFlush(ctx, db.cacheKey().Collection(schema.MetadataCollection))
	db.trigger(ctx, EventCollectionCreate, collection)
	return collection, nil
}

// validAttributes runs the shared per-attribute checks used on collection
// create and attribute create.
func (db *Database) validAttributes(attributes []schema.Attribute) error {
	key := validator.NewKey(false)
	seen := map[string]struct{}{}

	for _, attribute := range attributes {
		name := attribute.Name()
		if !key.Valid(name) {
			return apperr.Validation(key.Description()).WithField(name)
		}
		if _, dup := seen[name]; dup {
			return apperr.Conflict("duplicate attribute: " + name)
		}
		seen[name] = struct{}{}

		if !validAttributeType(attribute.Type) {
			return apperr.Validationf("unknown attribute type %q", string(attribute.Type))
		}
		if attribute.Type == schema.TypeRelationship && attribute.Options == nil {
			return apperr.Validation("relationship attribute requires options").WithField(name)
		}
	}
	return nil
}

func validAttributeType(t schema.AttributeType) bool {
	for _, known := range schema.AttributeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// UpdateCollection updates the mutable schema surface: name, permissions,
// and document security.
func (db *Database) UpdateCollection(ctx context.Context, collectionID, name string, permissions []string, documentSecurity bool) (*schema.Collection, error) {
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if collectionID == schema.MetadataCollection {
		return nil, apperr.Validation("metadata collection cannot be updated")
	}
	if perms := validator.NewPermissions(); len(permissions) > 0 && !perms.Valid(permissions) {
		return nil, apperr.Validation(perms.Description()).WithField("$permissions")
	}

	if name != "" {
		collection.Name = name
	}
	collection.Permissions = permissions
	collection.DocumentSecurity = documentSecurity

	if err := db.saveCollection(ctx, collection); err != nil {
		return nil, err
	}
	db.trigger(ctx, EventCollectionUpdate, collection)
	db.trigger(ctx, EventPermissionsUpdate, collection.ID, permissions)
	return collection, nil
}

// saveCollection rewrites the metadata row and drops the cached schema.
func (db *Database) saveCollection(ctx context.Context, collection *schema.Collection) error {
	metadataDoc, err := collectionToDoc(collection)
	if err != nil {
		return err
	}
	db.stampUpdate(metadataDoc)

	if _, err := db.adapter.UpdateDocument(ctx, schema.Metadata(), collection.ID, metadataDoc); err != nil {
		return err
	}
	db.cacheFlush(ctx,
		db.cacheKey().Collection(schema.MetadataCollection),
		db.cacheKey().Collection(collection.ID),
	)
	return nil
}

// DeleteCollection drops the physical table and the metadata row.
func (db *Database) DeleteCollection(ctx context.Context, collectionID string) error {
	if collectionID == schema.MetadataCollection {
		return apperr.Validation("metadata collection cannot be deleted")
	}
	collection, err := db.collection(ctx, collectionID)
	if err != nil {
		return err
	}

	err = db.adapter.WithTransaction(ctx, func(ctx context.Context) error {
		if err := db.adapter.DeleteCollection(ctx, collection.ID); err != nil {
			return err
		}
		return db.adapter.DeleteDocument(ctx, schema.Metadata(), collection.ID)
	})
	if err != nil {
		return err
	}

	db.cacheFlush(ctx,
		db.cacheKey().Collection(schema.MetadataCollection),
		db.cacheKey().Collection(collection.ID),
	)
	db.trigger(ctx, EventCollectionDelete, collection)
	return nil
}

// GetCollectionSize returns the physical size of the collection in bytes.
func (db *Database) GetCollectionSize(ctx context.Context, collectionID string) (int64, error) {
	if _, err := db.collection(ctx, collectionID); err != nil {
		return 0, err
	}
	return db.adapter.GetSizeOfCollection(ctx, collectionID)
}

// GetDocumentSize returns the stored size of a single document in bytes.
func (db *Database) GetDocumentSize(ctx context.Context, collectionID, documentID string) (int64, error) {
	if _, err := db.collection(ctx, collectionID); err != nil {
		return 0, err
	}
	return db.adapter.GetSizeOfDocument(ctx, collectionID, documentID)
}

// AnalyzeCollection refreshes backend planner statistics.
func (db *Database) AnalyzeCollection(ctx context.Context, collectionID string) error {
	if _, err := db.collection(ctx, collectionID); err != nil {
		return err
	}
	return db.adapter.AnalyzeCollection(ctx, collectionID)
}

// validQueries checks a query list against a collection schema, including
// the fulltext-index coverage rule for search.
func (db *Database) validQueries(collection *schema.Collection, queries []query.Query) error {
	if len(queries) == 0 {
		return nil
	}
	check := validator.NewIndexedQueries(collection, db.maxQueryValues)
	if !check.Valid(queries) {
		return apperr.Validation(check.Description())
	}
	return nil
}

// capLimit applies the default and maximum page size.
func (db *Database) capLimit(grouped *query.Grouped) {
	if grouped.Limit < 0 {
		grouped.Limit = defaultQueryLimit
	}
	if grouped.Limit > db.maxLimit {
		grouped.Limit = db.maxLimit
	}
}
