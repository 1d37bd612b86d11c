// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package database_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/strata/access"
	"github.com/taibuivan/strata/adapter"
	"github.com/taibuivan/strata/apperr"
	"github.com/taibuivan/strata/database"
	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/schema"
)

// newEngine builds a facade over a fresh in-memory adapter with the schema
// container and metadata collection in place. The returned context carries
// an isolated access scope.
func newEngine(t *testing.T, opts ...database.Option) (*database.Database, *memoryAdapter, context.Context) {
	t.Helper()

	backend := newMemoryAdapter()
	opts = append([]database.Option{
		database.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	db := database.New(backend, opts...)
	db.SetMeta(adapter.Meta{Database: "strata", Schema: "public"})

	ctx := access.Init(context.Background())
	require.NoError(t, db.Create(ctx))
	return db, backend, ctx
}

// articlesCollection is the document-pipeline fixture. Without explicit
// permissions every action is granted to "any".
func articlesCollection(permissions ...string) *schema.Collection {
	if len(permissions) == 0 {
		permissions = []string{`create("any")`, `read("any")`, `update("any")`, `delete("any")`}
	}
	return &schema.Collection{
		ID:          "articles",
		Name:        "articles",
		Permissions: permissions,
		Attributes: []schema.Attribute{
			{ID: "title", Key: "title", Type: schema.TypeString, Size: 100, Required: true},
			{ID: "views", Key: "views", Type: schema.TypeInteger, Size: 8},
			{ID: "score", Key: "score", Type: schema.TypeFloat},
			{ID: "meta", Key: "meta", Type: schema.TypeJSON, Filters: []string{"json"}},
			{ID: "publishedAt", Key: "publishedAt", Type: schema.TypeDateTime, Filters: []string{"datetime"}},
		},
		Enabled: true,
	}
}

func seedArticles(t *testing.T, ctx context.Context, db *database.Database, permissions ...string) {
	t.Helper()
	_, err := db.CreateCollection(ctx, articlesCollection(permissions...))
	require.NoError(t, err)
}

func newArticle(id, title string, views int64) *doc.Doc {
	return doc.New().
		Set(doc.FieldID, id).
		Set("title", title).
		Set("views", views)
}

/*
TestEngineEvents verifies the facade's event surface: wildcard listeners
observe document writes, silence scopes mute them, and Off unsubscribes.
*/
func TestEngineEvents(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	var seen []string
	err := db.On("*", "probe", func(_ context.Context, _ string, args ...any) error {
		seen = append(seen, args[0].(string))
		return nil
	})
	require.NoError(t, err)

	// 1. A create fires document_create on the wildcard channel
	_, err = db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 0))
	require.NoError(t, err)
	assert.Contains(t, seen, database.EventDocumentCreate)

	// 2. Silent mutes the listener for the scope's duration
	before := len(seen)
	err = db.Silent(ctx, nil, func(ctx context.Context) error {
		_, err := db.CreateDocument(ctx, "articles", newArticle("a-2", "second", 0))
		return err
	})
	require.NoError(t, err)
	assert.Len(t, seen, before)

	// 3. Off unsubscribes for good
	db.Off("*", "probe")
	_, err = db.CreateDocument(ctx, "articles", newArticle("a-3", "third", 0))
	require.NoError(t, err)
	assert.Len(t, seen, before)
}

/*
TestInstanceFilters verifies that an instance-scoped filter encodes on write,
decodes on read, and that duplicate registration conflicts.
*/
func TestInstanceFilters(t *testing.T) {
	db, backend, ctx := newEngine(t)

	masked := database.Filter{
		Encode: func(_ context.Context, value any, _ *doc.Doc, _ *database.Database) (any, error) {
			return "masked:" + value.(string), nil
		},
		Decode: func(_ context.Context, value any, _ *doc.Doc, _ *database.Database) (any, error) {
			return value.(string)[len("masked:"):], nil
		},
	}
	require.NoError(t, db.AddFilter("mask", masked))

	// 1. Registering the same name twice conflicts
	assert.True(t, apperr.IsConflict(db.AddFilter("mask", masked)))

	// 2. The filter runs on the write path and reverses on the read path
	collection := articlesCollection()
	collection.Attributes = append(collection.Attributes,
		schema.Attribute{ID: "secret", Key: "secret", Type: schema.TypeString, Size: 100, Filters: []string{"mask"}})
	_, err := db.CreateCollection(ctx, collection)
	require.NoError(t, err)

	created, err := db.CreateDocument(ctx, "articles",
		newArticle("a-1", "first", 0).Set("secret", "plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", created.Get("secret"))
	assert.Equal(t, "masked:plain", backend.stored("articles", "a-1").Get("secret"))

	got, err := db.GetDocument(ctx, "articles", "a-1")
	require.NoError(t, err)
	assert.Equal(t, "plain", got.Get("secret"))
}

/*
TestSchemaContainer verifies Create idempotency on the metadata collection
and the Exists/Delete lifecycle.
*/
func TestSchemaContainer(t *testing.T) {
	db, _, ctx := newEngine(t)

	// 1. newEngine already created the container; creating again is safe
	require.NoError(t, db.Create(ctx))

	exists, err := db.Exists(ctx, "public")
	require.NoError(t, err)
	assert.True(t, exists)

	// 2. Delete drops the container
	require.NoError(t, db.Delete(ctx, "public"))
	exists, err = db.Exists(ctx, "public")
	require.NoError(t, err)
	assert.False(t, exists)
}
