// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package database

import (
	"context"

	"github.com/taibuivan/strata/access"
	"github.com/taibuivan/strata/apperr"
	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/query"
	"github.com/taibuivan/strata/pkg/schema"
	"github.com/taibuivan/strata/validator"
)

// Relationship describes a link between two collections.
type Relationship struct {
	SourceCollection string
	TargetCollection string
	Type             schema.RelationType
	TwoWay           bool
	// Key is the attribute on the source; defaults to the target collection id.
	Key string
	// TwoWayKey is the attribute on the target; defaults to the source
	// collection id.
	TwoWayKey string
	OnDelete  schema.OnDelete
}

// CreateRelationship declares a relationship by creating companion
// attributes on both collections. The side that stores the related id gets
// a physical column; many-to-many pairs get a junction collection.
func (db *Database) CreateRelationship(ctx context.Context, rel Relationship) error {
	source, err := db.mutableCollection(ctx, rel.SourceCollection)
	if err != nil {
		return err
	}
	target, err := db.mutableCollection(ctx, rel.TargetCollection)
	if err != nil {
		return err
	}

	if rel.Key == "" {
		rel.Key = target.ID
	}
	if rel.TwoWayKey == "" {
		rel.TwoWayKey = source.ID
	}
	if rel.OnDelete == "" {
		rel.OnDelete = schema.OnDeleteRestrict
	}

	key := validator.NewKey(false)
	if !key.Valid(rel.Key) {
		return apperr.Validation(key.Description()).WithField(rel.Key)
	}
	if !key.Valid(rel.TwoWayKey) {
		return apperr.Validation(key.Description()).WithField(rel.TwoWayKey)
	}
	if source.Attribute(rel.Key) != nil {
		return apperr.Conflict("attribute already exists: " + rel.Key)
	}
	if target.Attribute(rel.TwoWayKey) != nil {
		return apperr.Conflict("attribute already exists: " + rel.TwoWayKey)
	}

	sourceAttr := schema.Attribute{
		ID:   rel.Key,
		Key:  rel.Key,
		Type: schema.TypeRelationship,
		Options: &schema.RelationOptions{
			RelationType:      rel.Type,
			Side:              schema.SideParent,
			RelatedCollection: target.ID,
			TwoWay:            rel.TwoWay,
			TwoWayKey:         rel.TwoWayKey,
			OnDelete:          rel.OnDelete,
		},
	}
	targetAttr := schema.Attribute{
		ID:   rel.TwoWayKey,
		Key:  rel.TwoWayKey,
		Type: schema.TypeRelationship,
		Options: &schema.RelationOptions{
			RelationType:      rel.Type,
			Side:              schema.SideChild,
			RelatedCollection: source.ID,
			TwoWay:            rel.TwoWay,
			TwoWayKey:         rel.Key,
			OnDelete:          rel.OnDelete,
		},
	}

	err = db.adapter.WithTransaction(ctx, func(ctx context.Context) error {
		if sourceAttr.Options.StoresID() {
			if err := db.adapter.CreateAttribute(ctx, source.ID, sourceAttr); err != nil {
				return err
			}
		}
		if targetAttr.Options.StoresID() {
			if err := db.adapter.CreateAttribute(ctx, target.ID, targetAttr); err != nil {
				return err
			}
		}
		if rel.Type == schema.RelationManyToMany {
			return db.createJunction(ctx, source.ID, target.ID, rel.Key)
		}
		return nil
	})
	if err != nil {
		return err
	}

	source.Attributes = append(source.Attributes, sourceAttr)
	if err := db.saveCollection(ctx, source); err != nil {
		return err
	}
	target.Attributes = append(target.Attributes, targetAttr)
	if err := db.saveCollection(ctx, target); err != nil {
		return err
	}

	db.trigger(ctx, EventAttributeCreate, source.ID, sourceAttr)
	db.trigger(ctx, EventAttributeCreate, target.ID, targetAttr)
	return nil
}

// # Junction collections

// junctionID names the hidden collection backing a many-to-many pair.
func junctionID(sourceID, key string) string {
	return "_" + sourceID + "_" + key
}

// Junction column keys.
const (
	junctionSource = "sourceId"
	junctionTarget = "targetId"
)

func junctionSchema(sourceID, targetID, key string) *schema.Collection {
	id := junctionID(sourceID, key)
	return &schema.Collection{
		ID:   id,
		Name: id,
		Attributes: []schema.Attribute{
			{ID: junctionSource, Key: junctionSource, Type: schema.TypeString, Size: 36, Required: true},
			{ID: junctionTarget, Key: junctionTarget, Type: schema.TypeString, Size: 36, Required: true},
		},
		Indexes: []schema.Index{
			{ID: "pair", Type: schema.IndexUnique, Attributes: []string{junctionSource, junctionTarget}},
			{ID: "target", Type: schema.IndexKey, Attributes: []string{junctionTarget}},
		},
		Enabled: true,
	}
}

func (db *Database) createJunction(ctx context.Context, sourceID, targetID, key string) error {
	junction := junctionSchema(sourceID, targetID, key)

	metadataDoc, err := collectionToDoc(junction)
	if err != nil {
		return err
	}
	db.stampCreate(metadataDoc)

	if err := db.adapter.CreateCollection(ctx, junction.ID, junction.Attributes, junction.Indexes); err != nil {
		return err
	}
	_, err = db.adapter.CreateDocument(ctx, schema.Metadata(), metadataDoc)
	return err
}

// # Write-side application

// relationshipValue is one pending relationship mutation extracted from a
// document before storage.
type relationshipValue struct {
	attribute  schema.Attribute
	set        []string
	connect    []string
	disconnect []string
	replace    bool
}

// extractRelationships normalizes relationship values on a document.
// Stored sides collapse to the related id; virtual sides are removed from
// the document and returned as pending mutations to run after the write.
func extractRelationships(collection *schema.Collection, document *doc.Doc) ([]relationshipValue, error) {
	var pending []relationshipValue

	for _, attribute := range collection.Attributes {
		if attribute.Type != schema.TypeRelationship || attribute.Options == nil {
			continue
		}
		if !document.Has(attribute.Name()) {
			continue
		}
		value := document.Get(attribute.Name())

		if attribute.Options.StoresID() {
			switch v := value.(type) {
			case nil, string:
			case *doc.Doc:
				document.Set(attribute.Name(), v.ID())
			default:
				return nil, apperr.Validation("invalid relationship value").WithField(attribute.Name())
			}
			continue
		}

		rv := relationshipValue{attribute: attribute}
		switch v := value.(type) {
		case nil:
		case map[string]any:
			var err error
			if rv.set, err = idList(v["set"]); err != nil {
				return nil, apperr.Validation("invalid relationship ids").WithField(attribute.Name())
			}
			rv.replace = v["set"] != nil
			if rv.connect, err = idList(v["connect"]); err != nil {
				return nil, apperr.Validation("invalid relationship ids").WithField(attribute.Name())
			}
			if rv.disconnect, err = idList(v["disconnect"]); err != nil {
				return nil, apperr.Validation("invalid relationship ids").WithField(attribute.Name())
			}
		default:
			return nil, apperr.Validation("invalid relationship value").WithField(attribute.Name())
		}
		document.Delete(attribute.Name())
		pending = append(pending, rv)
	}
	return pending, nil
}

func idList(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch id := item.(type) {
			case string:
				out = append(out, id)
			case *doc.Doc:
				out = append(out, id.ID())
			default:
				return nil, apperr.Validation("relationship ids must be strings")
			}
		}
		return out, nil
	}
	return nil, apperr.Validation("relationship ids must be a list")
}

// applyRelationships runs the pending mutations for a document: linking and
// unlinking child rows or junction rows. Internal writes skip authorization.
func (db *Database) applyRelationships(ctx context.Context, collection *schema.Collection, documentID string, pending []relationshipValue) error {
	if len(pending) == 0 {
		return nil
	}
	return access.Skip(ctx, func(ctx context.Context) error {
		for _, rv := range pending {
			options := rv.attribute.Options
			if options.RelationType == schema.RelationManyToMany {
				if err := db.syncJunction(ctx, collection.ID, rv, documentID); err != nil {
					return err
				}
				continue
			}
			if err := db.syncChildren(ctx, rv, documentID); err != nil {
				return err
			}
		}
		return nil
	})
}

// syncChildren rewrites the child-side foreign key for a one-to-many set.
func (db *Database) syncChildren(ctx context.Context, rv relationshipValue, parentID string) error {
	options := rv.attribute.Options
	related, err := db.collection(ctx, options.RelatedCollection)
	if err != nil {
		return err
	}

	link := doc.New()
	link.Set(options.TwoWayKey, parentID)
	unlink := doc.New()
	unlink.Set(options.TwoWayKey, nil)
	db.stampUpdate(link)
	db.stampUpdate(unlink)

	if rv.replace {
		// Detach every current child, then attach the new set.
		if _, err := db.adapter.UpdateDocuments(ctx, related, unlink,
			[]query.Query{query.Equal(options.TwoWayKey, parentID)}); err != nil {
			return err
		}
		if len(rv.set) > 0 {
			if _, err := db.adapter.UpdateDocuments(ctx, related, link,
				[]query.Query{query.Equal(doc.FieldID, anyList(rv.set)...)}); err != nil {
				return err
			}
		}
	}
	if len(rv.connect) > 0 {
		if _, err := db.adapter.UpdateDocuments(ctx, related, link,
			[]query.Query{query.Equal(doc.FieldID, anyList(rv.connect)...)}); err != nil {
			return err
		}
	}
	if len(rv.disconnect) > 0 {
		if _, err := db.adapter.UpdateDocuments(ctx, related, unlink,
			[]query.Query{query.Equal(doc.FieldID, anyList(rv.disconnect)...)}); err != nil {
			return err
		}
	}
	return nil
}

// syncJunction maintains junction rows for a many-to-many set.
func (db *Database) syncJunction(ctx context.Context, collectionID string, rv relationshipValue, documentID string) error {
	options := rv.attribute.Options

	// The junction lives under the parent declaration; from the child side
	// the roles swap.
	jID := junctionID(collectionID, rv.attribute.Name())
	mine, theirs := junctionSource, junctionTarget
	if options.Side == schema.SideChild {
		jID = junctionID(options.RelatedCollection, options.TwoWayKey)
		mine, theirs = junctionTarget, junctionSource
	}

	junction, err := db.collection(ctx, jID)
	if err != nil {
		return err
	}

	if rv.replace {
		if _, err := db.adapter.DeleteDocuments(ctx, junction,
			[]query.Query{query.Equal(mine, documentID)}); err != nil {
			return err
		}
	}
	attach := append(append([]string{}, rv.set...), rv.connect...)
	for _, relatedID := range attach {
		row := doc.New()
		row.Set(doc.FieldID, resolveID(""))
		row.Set(mine, documentID)
		row.Set(theirs, relatedID)
		db.stampCreate(row)
		if _, err := db.adapter.CreateDocument(ctx, junction, row); err != nil {
			return err
		}
	}
	if len(rv.disconnect) > 0 {
		if _, err := db.adapter.DeleteDocuments(ctx, junction, []query.Query{
			query.Equal(mine, documentID),
			query.Equal(theirs, anyList(rv.disconnect)...),
		}); err != nil {
			return err
		}
	}
	return nil
}

func anyList(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// # Delete actions

// enforceOnDelete applies each relationship's referential action before a
// document is deleted: restrict blocks, cascade removes related rows,
// setNull detaches them.
func (db *Database) enforceOnDelete(ctx context.Context, collection *schema.Collection, documentID string) error {
	for _, attribute := range collection.Attributes {
		if attribute.Type != schema.TypeRelationship || attribute.Options == nil {
			continue
		}
		options := attribute.Options

		if options.RelationType == schema.RelationManyToMany {
			if err := db.detachJunction(ctx, collection.ID, attribute, documentID); err != nil {
				return err
			}
			continue
		}
		if options.StoresID() {
			// This side holds the foreign key; deleting the row severs the
			// link by itself.
			continue
		}

		related, err := db.collection(ctx, options.RelatedCollection)
		if err != nil {
			return err
		}
		filters := []query.Query{query.Equal(options.TwoWayKey, documentID)}

		switch options.OnDelete {
		case schema.OnDeleteRestrict:
			count, err := db.adapter.Count(ctx, related, filters, 1)
			if err != nil {
				return err
			}
			if count > 0 {
				return apperr.Dependency("document is referenced by " + related.ID)
			}
		case schema.OnDeleteCascade:
			if _, err := db.adapter.DeleteDocuments(ctx, related, filters); err != nil {
				return err
			}
			db.cacheFlush(ctx, db.cacheKey().Collection(related.ID))
		case schema.OnDeleteSetNull:
			unlink := doc.New()
			unlink.Set(options.TwoWayKey, nil)
			db.stampUpdate(unlink)
			if _, err := db.adapter.UpdateDocuments(ctx, related, unlink, filters); err != nil {
				return err
			}
			db.cacheFlush(ctx, db.cacheKey().Collection(related.ID))
		}
	}
	return nil
}

func (db *Database) detachJunction(ctx context.Context, collectionID string, attribute schema.Attribute, documentID string) error {
	options := attribute.Options
	jID := junctionID(collectionID, attribute.Name())
	mine := junctionSource
	if options.Side == schema.SideChild {
		jID = junctionID(options.RelatedCollection, options.TwoWayKey)
		mine = junctionTarget
	}
	junction, err := db.collection(ctx, jID)
	if apperr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = db.adapter.DeleteDocuments(ctx, junction, []query.Query{query.Equal(mine, documentID)})
	return err
}
