// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package database

import (
	"context"

	"github.com/taibuivan/strata/apperr"
	"github.com/taibuivan/strata/pkg/schema"
	"github.com/taibuivan/strata/validator"
)

// # Attributes

// CreateAttribute adds one attribute to a collection: a physical column
// (unless virtual) plus the metadata entry.
func (db *Database) CreateAttribute(ctx context.Context, collectionID string, attribute schema.Attribute) error {
	collection, err := db.mutableCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	if err := db.validNewAttributes(collection, []schema.Attribute{attribute}); err != nil {
		return err
	}

	if err := db.adapter.CreateAttribute(ctx, collection.ID, attribute); err != nil {
		return err
	}

	collection.Attributes = append(collection.Attributes, attribute)
	if err := db.saveCollection(ctx, collection); err != nil {
		return err
	}
	db.trigger(ctx, EventAttributeCreate, collection.ID, attribute)
	return nil
}

// CreateAttributes adds several attributes. With batch DDL support the
// columns and the metadata row commit atomically; without it the columns
// are added one by one and already-added ones are dropped on failure.
func (db *Database) CreateAttributes(ctx context.Context, collectionID string, attributes []schema.Attribute) error {
	if len(attributes) == 0 {
		return nil
	}
	collection, err := db.mutableCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	if err := db.validNewAttributes(collection, attributes); err != nil {
		return err
	}

	if db.adapter.Capabilities().BatchDDL {
		err = db.adapter.WithTransaction(ctx, func(ctx context.Context) error {
			return db.adapter.CreateAttributes(ctx, collection.ID, attributes)
		})
		if err != nil {
			return err
		}
	} else {
		var added []schema.Attribute
		for _, attribute := range attributes {
			if err := db.adapter.CreateAttribute(ctx, collection.ID, attribute); err != nil {
				for _, rollback := range added {
					if dropErr := db.adapter.DeleteAttribute(ctx, collection.ID, rollback); dropErr != nil {
						db.logger.Warn("attribute rollback failed",
							"collection", collection.ID, "attribute", rollback.Name(), "error", dropErr)
					}
				}
				return err
			}
			added = append(added, attribute)
		}
	}

	collection.Attributes = append(collection.Attributes, attributes...)
	if err := db.saveCollection(ctx, collection); err != nil {
		return err
	}
	for _, attribute := range attributes {
		db.trigger(ctx, EventAttributeCreate, collection.ID, attribute)
	}
	return nil
}

// UpdateAttribute alters an attribute's type, size, or flags in place.
// Strings may only grow; other type changes rely on the dialect cast.
func (db *Database) UpdateAttribute(ctx context.Context, collectionID string, attribute schema.Attribute) error {
	collection, err := db.mutableCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	existing := collection.Attribute(attribute.Name())
	if existing == nil {
		return apperr.NotFound("Attribute")
	}
	if existing.Type == schema.TypeString && attribute.Type == schema.TypeString &&
		attribute.Size > 0 && attribute.Size < existing.Size {
		return apperr.Validation("string attribute cannot shrink").WithField(attribute.Name())
	}

	if !attribute.IsVirtual() {
		if err := db.adapter.UpdateAttribute(ctx, collection.ID, attribute); err != nil {
			return err
		}
	}

	*existing = attribute
	if err := db.saveCollection(ctx, collection); err != nil {
		return err
	}
	db.trigger(ctx, EventAttributeUpdate, collection.ID, attribute)
	return nil
}

// RenameAttribute renames an attribute and rewrites index references to it.
func (db *Database) RenameAttribute(ctx context.Context, collectionID, oldKey, newKey string) error {
	collection, err := db.mutableCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	attribute := collection.Attribute(oldKey)
	if attribute == nil {
		return apperr.NotFound("Attribute")
	}
	if key := validator.NewKey(false); !key.Valid(newKey) {
		return apperr.Validation(key.Description()).WithField(newKey)
	}
	if collection.Attribute(newKey) != nil {
		return apperr.Conflict("attribute already exists: " + newKey)
	}
	if err := db.checkIndexDependency(collection, *attribute); err != nil {
		return err
	}

	if !attribute.IsVirtual() {
		if err := db.adapter.RenameAttribute(ctx, collection.ID, oldKey, newKey); err != nil {
			return err
		}
	}

	attribute.ID = newKey
	attribute.Key = newKey
	for i := range collection.Indexes {
		for j, name := range collection.Indexes[i].Attributes {
			if name == oldKey {
				collection.Indexes[i].Attributes[j] = newKey
			}
		}
	}
	if err := db.saveCollection(ctx, collection); err != nil {
		return err
	}
	db.trigger(ctx, EventAttributeUpdate, collection.ID, *attribute)
	return nil
}

// DeleteAttribute drops an attribute. It fails while any index still
// references the attribute; for two-way relationships the companion
// attribute on the related collection is removed as well.
func (db *Database) DeleteAttribute(ctx context.Context, collectionID, key string) error {
	collection, err := db.mutableCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	attribute := collection.Attribute(key)
	if attribute == nil {
		return apperr.NotFound("Attribute")
	}
	if err := db.checkIndexDependency(collection, *attribute); err != nil {
		return err
	}

	if attribute.Type == schema.TypeRelationship {
		if err := db.deleteCompanionAttribute(ctx, collection.ID, *attribute); err != nil {
			return err
		}
	}

	if err := db.adapter.DeleteAttribute(ctx, collection.ID, *attribute); err != nil {
		return err
	}

	removed := *attribute
	kept := collection.Attributes[:0]
	for _, a := range collection.Attributes {
		if a.Name() != key {
			kept = append(kept, a)
		}
	}
	collection.Attributes = kept

	if err := db.saveCollection(ctx, collection); err != nil {
		return err
	}
	db.trigger(ctx, EventAttributeDelete, collection.ID, removed)
	return nil
}

// checkIndexDependency rejects attribute removal or rename while an index
// still references the attribute.
func (db *Database) checkIndexDependency(collection *schema.Collection, attribute schema.Attribute) error {
	caps := db.adapter.Capabilities()
	if attribute.Array {
		dependency := validator.NewIndexDependency(collection, caps.ArrayIndexes)
		if !dependency.Valid(attribute) {
			return apperr.Dependency(dependency.Description())
		}
		return nil
	}
	for _, index := range collection.Indexes {
		for _, name := range index.Attributes {
			if name == attribute.Name() {
				return apperr.Dependency("attribute is referenced by index " + index.Name())
			}
		}
	}
	return nil
}

// mutableCollection resolves a collection that schema mutations may touch.
func (db *Database) mutableCollection(ctx context.Context, collectionID string) (*schema.Collection, error) {
	if collectionID == schema.MetadataCollection {
		return nil, apperr.Validation("metadata collection cannot be altered")
	}
	return db.collection(ctx, collectionID)
}

// validNewAttributes runs shared checks plus per-collection conflicts.
func (db *Database) validNewAttributes(collection *schema.Collection, attributes []schema.Attribute) error {
	if err := db.validAttributes(attributes); err != nil {
		return err
	}
	for _, attribute := range attributes {
		if collection.Attribute(attribute.Name()) != nil {
			return apperr.Conflict("attribute already exists: " + attribute.Name())
		}
	}
	return nil
}

// # Indexes

// CreateIndex validates and creates one index, physically and in metadata.
func (db *Database) CreateIndex(ctx context.Context, collectionID string, index schema.Index) error {
	collection, err := db.mutableCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	if collection.Index(index.Name()) != nil {
		return apperr.Conflict("index already exists: " + index.Name())
	}

	caps := db.adapter.Capabilities()
	if index.Type == schema.IndexFulltext && !caps.Fulltext {
		return apperr.Validation("dialect does not support fulltext indexes")
	}
	check := validator.NewIndex(collection, caps.MaxIndexLength, caps.ArrayIndexes)
	if !check.Valid(index) {
		return apperr.Validation(check.Description()).WithField(index.Name())
	}

	if err := db.adapter.CreateIndex(ctx, collection.ID, index, collection.Attributes); err != nil {
		return err
	}

	collection.Indexes = append(collection.Indexes, index)
	if err := db.saveCollection(ctx, collection); err != nil {
		return err
	}
	db.trigger(ctx, EventIndexCreate, collection.ID, index)
	return nil
}

// RenameIndex renames an index physically and in metadata.
func (db *Database) RenameIndex(ctx context.Context, collectionID, oldID, newID string) error {
	collection, err := db.mutableCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	index := collection.Index(oldID)
	if index == nil {
		return apperr.NotFound("Index")
	}
	if key := validator.NewKey(false); !key.Valid(newID) {
		return apperr.Validation(key.Description()).WithField(newID)
	}
	if collection.Index(newID) != nil {
		return apperr.Conflict("index already exists: " + newID)
	}

	if err := db.adapter.RenameIndex(ctx, collection.ID, oldID, newID); err != nil {
		return err
	}

	index.ID = newID
	index.Key = newID
	if err := db.saveCollection(ctx, collection); err != nil {
		return err
	}
	db.trigger(ctx, EventIndexRename, collection.ID, oldID, newID)
	return nil
}

// DeleteIndex drops an index physically and in metadata.
func (db *Database) DeleteIndex(ctx context.Context, collectionID, indexID string) error {
	collection, err := db.mutableCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	index := collection.Index(indexID)
	if index == nil {
		return apperr.NotFound("Index")
	}

	if err := db.adapter.DeleteIndex(ctx, collection.ID, index.ID); err != nil {
		return err
	}

	removed := *index
	kept := collection.Indexes[:0]
	for _, i := range collection.Indexes {
		if i.Name() != indexID && i.ID != indexID {
			kept = append(kept, i)
		}
	}
	collection.Indexes = kept

	if err := db.saveCollection(ctx, collection); err != nil {
		return err
	}
	db.trigger(ctx, EventIndexDelete, collection.ID, removed)
	return nil
}

// deleteCompanionAttribute removes the two-way companion of a relationship
// attribute from the related collection.
func (db *Database) deleteCompanionAttribute(ctx context.Context, collectionID string, attribute schema.Attribute) error {
	options := attribute.Options
	if options == nil || !options.TwoWay || options.TwoWayKey == "" {
		return nil
	}

	related, err := db.collection(ctx, options.RelatedCollection)
	if apperr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	companion := related.Attribute(options.TwoWayKey)
	if companion == nil {
		return nil
	}

	if !companion.IsVirtual() {
		if err := db.adapter.DeleteAttribute(ctx, related.ID, *companion); err != nil {
			return err
		}
	}

	kept := related.Attributes[:0]
	for _, a := range related.Attributes {
		if a.Name() != companion.Name() {
			kept = append(kept, a)
		}
	}
	related.Attributes = kept
	return db.saveCollection(ctx, related)
}
