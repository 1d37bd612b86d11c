// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package database

import (
	"context"

	"github.com/taibuivan/strata/access"
	"github.com/taibuivan/strata/apperr"
	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/permission"
	"github.com/taibuivan/strata/pkg/query"
	"github.com/taibuivan/strata/pkg/schema"
)

// populate resolves relationship attributes on a batch of documents,
// substituting related documents (or lists of them) for stored ids. The
// visited set carries every collection already on the resolution path so
// relationship cycles terminate.
func (db *Database) populate(ctx context.Context, collection *schema.Collection, documents []*doc.Doc, populateQueries map[string][]query.Query, visited map[string]struct{}) error {
	if len(documents) == 0 || len(populateQueries) == 0 {
		return nil
	}
	if visited == nil {
		visited = map[string]struct{}{}
	}
	visited[collection.ID] = struct{}{}

	for name, nested := range populateQueries {
		attribute := collection.Attribute(name)
		if attribute == nil || attribute.Type != schema.TypeRelationship || attribute.Options == nil {
			return apperr.Validation("cannot populate non-relationship attribute").WithField(name)
		}
		options := attribute.Options

		if _, seen := visited[options.RelatedCollection]; seen {
			// Cycle: leave the raw value in place.
			continue
		}
		related, err := db.collection(ctx, options.RelatedCollection)
		if err != nil {
			return err
		}
		if err := db.validQueries(related, nested); err != nil {
			return err
		}
		if !access.Verify(ctx, permission.KindRead, related.Permissions) && !related.DocumentSecurity {
			// Not readable at all; leave unresolved rather than leaking.
			continue
		}

		grouped := query.GroupByType(nested)
		visited[related.ID] = struct{}{}

		switch {
		case options.StoresID():
			err = db.populateStored(ctx, related, documents, *attribute, grouped, visited)
		case options.RelationType == schema.RelationManyToMany:
			err = db.populateJunction(ctx, collection, related, documents, *attribute, grouped, visited)
		default:
			err = db.populateVirtual(ctx, related, documents, *attribute, grouped, visited)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// populateFetch runs one related-collection read for populate: filters
// merged, permission post-filtering and decoding applied, nested populate
// recursed.
func (db *Database) populateFetch(ctx context.Context, related *schema.Collection, grouped query.Grouped, extra ...query.Query) ([]*doc.Doc, func(map[string]struct{}) error, error) {
	merged := grouped
	merged.Filters = append(append([]query.Query{}, grouped.Filters...), extra...)
	if merged.Limit < 0 || merged.Limit > db.maxLimit {
		merged.Limit = db.maxLimit
	}

	rows, err := db.adapter.Find(ctx, related, merged)
	if err != nil {
		return nil, nil, err
	}

	collectionRead := access.Verify(ctx, permission.KindRead, related.Permissions)
	documents := make([]*doc.Doc, 0, len(rows))
	for _, row := range rows {
		if !collectionRead && !access.Verify(ctx, permission.KindRead, row.Permissions()) {
			continue
		}
		if err := db.finishRead(ctx, related, row); err != nil {
			return nil, nil, err
		}
		documents = append(documents, row)
	}

	recurse := func(visited map[string]struct{}) error {
		if len(grouped.Populate) == 0 {
			return nil
		}
		return db.populate(ctx, related, documents, grouped.Populate, visited)
	}
	return documents, recurse, nil
}

// populateStored resolves sides that hold the related id in a column.
func (db *Database) populateStored(ctx context.Context, related *schema.Collection, documents []*doc.Doc, attribute schema.Attribute, grouped query.Grouped, visited map[string]struct{}) error {
	ids := make([]any, 0, len(documents))
	for _, document := range documents {
		if id, ok := document.Get(attribute.Name()).(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	relatedDocs, recurse, err := db.populateFetch(ctx, related, grouped, query.Equal(doc.FieldID, ids...))
	if err != nil {
		return err
	}
	if err := recurse(visited); err != nil {
		return err
	}

	byID := make(map[string]*doc.Doc, len(relatedDocs))
	for _, rd := range relatedDocs {
		byID[rd.ID()] = rd
	}
	for _, document := range documents {
		id, _ := document.Get(attribute.Name()).(string)
		if rd, ok := byID[id]; ok {
			document.Set(attribute.Name(), rd)
		}
	}
	return nil
}

// populateVirtual resolves sides whose link lives on the other collection.
func (db *Database) populateVirtual(ctx context.Context, related *schema.Collection, documents []*doc.Doc, attribute schema.Attribute, grouped query.Grouped, visited map[string]struct{}) error {
	options := attribute.Options

	parentIDs := make([]any, 0, len(documents))
	for _, document := range documents {
		if document.ID() != "" {
			parentIDs = append(parentIDs, document.ID())
		}
	}
	if len(parentIDs) == 0 {
		return nil
	}

	children, recurse, err := db.populateFetch(ctx, related, grouped, query.Equal(options.TwoWayKey, parentIDs...))
	if err != nil {
		return err
	}
	if err := recurse(visited); err != nil {
		return err
	}

	byParent := map[string][]any{}
	for _, child := range children {
		parentID, _ := child.Get(options.TwoWayKey).(string)
		byParent[parentID] = append(byParent[parentID], child)
	}
	for _, document := range documents {
		group := byParent[document.ID()]
		if options.Many() {
			if group == nil {
				group = []any{}
			}
			document.Set(attribute.Name(), group)
			continue
		}
		if len(group) > 0 {
			document.Set(attribute.Name(), group[0])
		} else {
			document.Set(attribute.Name(), nil)
		}
	}
	return nil
}

// populateJunction resolves many-to-many sides through the junction
// collection.
func (db *Database) populateJunction(ctx context.Context, collection, related *schema.Collection, documents []*doc.Doc, attribute schema.Attribute, grouped query.Grouped, visited map[string]struct{}) error {
	options := attribute.Options

	jID := junctionID(collection.ID, attribute.Name())
	mine, theirs := junctionSource, junctionTarget
	if options.Side == schema.SideChild {
		jID = junctionID(options.RelatedCollection, options.TwoWayKey)
		mine, theirs = junctionTarget, junctionSource
	}
	junction, err := db.collection(ctx, jID)
	if err != nil {
		return err
	}

	ids := make([]any, 0, len(documents))
	for _, document := range documents {
		if document.ID() != "" {
			ids = append(ids, document.ID())
		}
	}
	if len(ids) == 0 {
		return nil
	}

	pairs, err := db.adapter.Find(ctx, junction, query.Grouped{
		Filters: []query.Query{query.Equal(mine, ids...)},
		Limit:   db.maxLimit,
	})
	if err != nil {
		return err
	}

	relatedIDs := make([]any, 0, len(pairs))
	linked := map[string][]string{}
	for _, pair := range pairs {
		from, _ := pair.Get(mine).(string)
		to, _ := pair.Get(theirs).(string)
		if from == "" || to == "" {
			continue
		}
		linked[from] = append(linked[from], to)
		relatedIDs = append(relatedIDs, to)
	}
	if len(relatedIDs) == 0 {
		for _, document := range documents {
			document.Set(attribute.Name(), []any{})
		}
		return nil
	}

	relatedDocs, recurse, err := db.populateFetch(ctx, related, grouped, query.Equal(doc.FieldID, relatedIDs...))
	if err != nil {
		return err
	}
	if err := recurse(visited); err != nil {
		return err
	}

	byID := make(map[string]*doc.Doc, len(relatedDocs))
	for _, rd := range relatedDocs {
		byID[rd.ID()] = rd
	}
	for _, document := range documents {
		group := []any{}
		for _, to := range linked[document.ID()] {
			if rd, ok := byID[to]; ok {
				group = append(group, rd)
			}
		}
		document.Set(attribute.Name(), group)
	}
	return nil
}
