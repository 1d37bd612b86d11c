// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/strata/apperr"
	"github.com/taibuivan/strata/pkg/schema"
)

/*
TestCreateAttribute verifies single and batched attribute creation with the
shared validation rules.
*/
func TestCreateAttribute(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	// 1. A new attribute lands in the schema
	err := db.CreateAttribute(ctx, "articles", schema.Attribute{
		ID: "summary", Key: "summary", Type: schema.TypeString, Size: 500,
	})
	require.NoError(t, err)

	got, err := db.GetCollection(ctx, "articles")
	require.NoError(t, err)
	require.NotNil(t, got.Attribute("summary"))
	assert.Equal(t, 500, got.Attribute("summary").Size)

	// 2. Existing names conflict
	err = db.CreateAttribute(ctx, "articles", schema.Attribute{
		ID: "title", Key: "title", Type: schema.TypeString, Size: 10,
	})
	assert.True(t, apperr.IsConflict(err))

	// 3. Invalid keys and types fail validation
	err = db.CreateAttribute(ctx, "articles", schema.Attribute{ID: "_hidden", Type: schema.TypeString})
	assert.True(t, apperr.IsValidation(err))
	err = db.CreateAttribute(ctx, "articles", schema.Attribute{ID: "blob", Type: "binary"})
	assert.True(t, apperr.IsValidation(err))

	// 4. The metadata collection cannot be altered
	err = db.CreateAttribute(ctx, schema.MetadataCollection, schema.Attribute{
		ID: "extra", Type: schema.TypeString,
	})
	assert.True(t, apperr.IsValidation(err))

	// 5. Batches land together
	err = db.CreateAttributes(ctx, "articles", []schema.Attribute{
		{ID: "slug", Key: "slug", Type: schema.TypeString, Size: 100},
		{ID: "weight", Key: "weight", Type: schema.TypeFloat},
	})
	require.NoError(t, err)
	got, err = db.GetCollection(ctx, "articles")
	require.NoError(t, err)
	assert.NotNil(t, got.Attribute("slug"))
	assert.NotNil(t, got.Attribute("weight"))
}

/*
TestUpdateAttribute verifies in-place alteration and the string shrink rule.
*/
func TestUpdateAttribute(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	// 1. Growing a string is fine
	err := db.UpdateAttribute(ctx, "articles", schema.Attribute{
		ID: "title", Key: "title", Type: schema.TypeString, Size: 200, Required: true,
	})
	require.NoError(t, err)
	got, err := db.GetCollection(ctx, "articles")
	require.NoError(t, err)
	assert.Equal(t, 200, got.Attribute("title").Size)

	// 2. Shrinking is rejected
	err = db.UpdateAttribute(ctx, "articles", schema.Attribute{
		ID: "title", Key: "title", Type: schema.TypeString, Size: 50,
	})
	assert.True(t, apperr.IsValidation(err))

	// 3. Unknown attributes are not found
	err = db.UpdateAttribute(ctx, "articles", schema.Attribute{
		ID: "bogus", Key: "bogus", Type: schema.TypeString, Size: 10,
	})
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestRenameAttribute verifies renames, conflict rules, and index reference
rewriting.
*/
func TestRenameAttribute(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	// 1. A plain rename sticks
	require.NoError(t, db.RenameAttribute(ctx, "articles", "score", "rating"))
	got, err := db.GetCollection(ctx, "articles")
	require.NoError(t, err)
	assert.Nil(t, got.Attribute("score"))
	assert.NotNil(t, got.Attribute("rating"))

	// 2. Renaming over an existing attribute conflicts
	err = db.RenameAttribute(ctx, "articles", "rating", "title")
	assert.True(t, apperr.IsConflict(err))

	// 3. Indexed scalar attributes block the rename until the index is gone
	require.NoError(t, db.CreateIndex(ctx, "articles", schema.Index{
		ID: "idx_title", Type: schema.IndexKey, Attributes: []string{"title"},
	}))
	err = db.RenameAttribute(ctx, "articles", "title", "headline")
	assert.True(t, apperr.IsDependency(err))

	// 4. Unknown attributes and bad keys fail
	assert.True(t, apperr.IsNotFound(db.RenameAttribute(ctx, "articles", "bogus", "other")))
	assert.True(t, apperr.IsValidation(db.RenameAttribute(ctx, "articles", "rating", "_rating")))
}

/*
TestDeleteAttribute verifies removal and the index dependency guard.
*/
func TestDeleteAttribute(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	// 1. An indexed attribute cannot be dropped
	require.NoError(t, db.CreateIndex(ctx, "articles", schema.Index{
		ID: "idx_views", Type: schema.IndexKey, Attributes: []string{"views"},
	}))
	err := db.DeleteAttribute(ctx, "articles", "views")
	assert.True(t, apperr.IsDependency(err))

	// 2. Dropping the index clears the way
	require.NoError(t, db.DeleteIndex(ctx, "articles", "idx_views"))
	require.NoError(t, db.DeleteAttribute(ctx, "articles", "views"))
	got, err := db.GetCollection(ctx, "articles")
	require.NoError(t, err)
	assert.Nil(t, got.Attribute("views"))

	// 3. Unknown attributes are not found
	assert.True(t, apperr.IsNotFound(db.DeleteAttribute(ctx, "articles", "views")))
}

/*
TestIndexLifecycle verifies create, rename, and delete for indexes.
*/
func TestIndexLifecycle(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	// 1. A valid index lands in the schema
	require.NoError(t, db.CreateIndex(ctx, "articles", schema.Index{
		ID: "idx_title", Type: schema.IndexKey, Attributes: []string{"title"},
	}))
	got, err := db.GetCollection(ctx, "articles")
	require.NoError(t, err)
	assert.NotNil(t, got.Index("idx_title"))

	// 2. Duplicates conflict, invalid declarations fail validation
	err = db.CreateIndex(ctx, "articles", schema.Index{
		ID: "idx_title", Type: schema.IndexKey, Attributes: []string{"views"},
	})
	assert.True(t, apperr.IsConflict(err))
	err = db.CreateIndex(ctx, "articles", schema.Index{
		ID: "idx_bad", Type: schema.IndexKey, Attributes: []string{"bogus"},
	})
	assert.True(t, apperr.IsValidation(err))

	// 3. Renames stick and guard against collisions
	require.NoError(t, db.RenameIndex(ctx, "articles", "idx_title", "idx_primary"))
	got, err = db.GetCollection(ctx, "articles")
	require.NoError(t, err)
	assert.Nil(t, got.Index("idx_title"))
	assert.NotNil(t, got.Index("idx_primary"))
	assert.True(t, apperr.IsNotFound(db.RenameIndex(ctx, "articles", "idx_title", "other")))

	// 4. Deletes remove the declaration
	require.NoError(t, db.DeleteIndex(ctx, "articles", "idx_primary"))
	got, err = db.GetCollection(ctx, "articles")
	require.NoError(t, err)
	assert.Nil(t, got.Index("idx_primary"))
	assert.True(t, apperr.IsNotFound(db.DeleteIndex(ctx, "articles", "idx_primary")))
}
