// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/strata/access"
	"github.com/taibuivan/strata/apperr"
	"github.com/taibuivan/strata/cache"
	"github.com/taibuivan/strata/database"
	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/pointer"
	"github.com/taibuivan/strata/pkg/query"
)

/*
TestCreateDocument verifies the write pipeline: id resolution, timestamps,
filter encoding, permission aggregation, and the validation and
authorization gates.
*/
func TestCreateDocument(t *testing.T) {
	db, backend, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	// 1. A full document round-trips with filters applied both ways
	published := time.Date(2026, 3, 1, 10, 30, 0, 500000000, time.UTC)
	created, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 7).
		Set("meta", map[string]any{"draft": true}).
		Set("publishedAt", published))
	require.NoError(t, err)

	assert.Equal(t, "a-1", created.ID())
	assert.Equal(t, "articles", created.Collection())
	assert.WithinDuration(t, time.Now().UTC(), created.CreatedAt(), 5*time.Second)
	assert.Equal(t, created.CreatedAt(), created.UpdatedAt())
	assert.Equal(t, map[string]any{"draft": true}, created.Get("meta"))
	assert.Equal(t, published, created.Get("publishedAt"))

	// 2. Storage holds the encoded forms, not the live values
	stored := backend.stored("articles", "a-1")
	assert.JSONEq(t, `{"draft":true}`, stored.Get("meta").(string))
	assert.Equal(t, "2026-03-01 10:30:00.500", stored.Get("publishedAt"))

	// 3. Empty and sentinel ids mint a fresh one
	minted, err := db.CreateDocument(ctx, "articles",
		doc.New().Set(doc.FieldID, database.IDUnique).Set("title", "second"))
	require.NoError(t, err)
	assert.Len(t, minted.ID(), 36)

	// 4. Document permissions are validated and aggregated
	granted, err := db.CreateDocument(ctx, "articles", newArticle("a-3", "third", 0).
		Set(doc.FieldPermissions, []string{`read("any")`, `write("user:u-1")`}))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		`read("any")`, `create("user:u-1")`, `update("user:u-1")`, `delete("user:u-1")`,
	}, granted.Permissions())

	// 5. Structure failures surface as validation errors
	_, err = db.CreateDocument(ctx, "articles", doc.New().Set("views", int64(1)))
	assert.True(t, apperr.IsValidation(err))
	_, err = db.CreateDocument(ctx, "articles", doc.New().Set("title", "x").Set("bogus", 1))
	assert.True(t, apperr.IsValidation(err))

	// 6. Unknown collections are not found
	_, err = db.CreateDocument(ctx, "ghost", newArticle("", "x", 0))
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestCreateDocument_Unauthorized verifies the create permission gate.
*/
func TestCreateDocument_Unauthorized(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db, `read("any")`)

	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 0))
	assert.True(t, apperr.IsAuthorization(err))
}

/*
TestGetDocument verifies reads, missing lookups, and that unauthorized
access surfaces as not-found rather than leaking document existence.
*/
func TestGetDocument(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db, `create("any")`, `read("user:reader")`)

	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 7))
	require.NoError(t, err)

	// 1. A reader role resolves the document
	reader := access.Init(context.Background())
	access.SetRole(reader, "user:reader")
	got, err := db.GetDocument(reader, "articles", "a-1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Get("title"))
	assert.EqualValues(t, 7, got.Get("views"))

	// 2. Missing documents are not found
	_, err = db.GetDocument(reader, "articles", "ghost")
	assert.True(t, apperr.IsNotFound(err))

	// 3. Without the read grant the id is not probeable
	_, err = db.GetDocument(ctx, "articles", "a-1")
	assert.True(t, apperr.IsNotFound(err))
	assert.False(t, apperr.IsAuthorization(err))
}

/*
TestGetDocument_DocumentSecurity verifies per-document read grants when the
collection enables document security.
*/
func TestGetDocument_DocumentSecurity(t *testing.T) {
	db, _, ctx := newEngine(t)
	collection := articlesCollection(`create("any")`)
	collection.DocumentSecurity = true
	_, err := db.CreateCollection(ctx, collection)
	require.NoError(t, err)

	_, err = db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 0).
		Set(doc.FieldPermissions, []string{`read("user:owner")`}))
	require.NoError(t, err)

	// 1. The owner role reads through the document grant
	owner := access.Init(context.Background())
	access.SetRole(owner, "user:owner")
	got, err := db.GetDocument(owner, "articles", "a-1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Get("title"))

	// 2. Anyone else sees not-found
	_, err = db.GetDocument(ctx, "articles", "a-1")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestFind verifies filtering, pagination, the collection-level read gate, and
per-document post-filtering under document security.
*/
func TestFind(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	for i, title := range []string{"first", "second", "third"} {
		_, err := db.CreateDocument(ctx, "articles",
			newArticle("", title, int64(10*(i+1))))
		require.NoError(t, err)
	}

	// 1. Unfiltered find returns everything
	all, err := db.Find(ctx, "articles")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// 2. Filters narrow the result
	heavy, err := db.Find(ctx, "articles", query.GreaterThan("views", 15))
	require.NoError(t, err)
	assert.Len(t, heavy, 2)

	one, err := db.Find(ctx, "articles", query.Equal("title", "second"))
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.EqualValues(t, 20, one[0].Get("views"))

	// 3. Limit and offset page through
	page, err := db.Find(ctx, "articles", query.Limit(2))
	require.NoError(t, err)
	assert.Len(t, page, 2)
	rest, err := db.Find(ctx, "articles", query.Offset(2))
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	// 4. Invalid queries fail validation
	_, err = db.Find(ctx, "articles", query.Equal("bogus", 1))
	assert.True(t, apperr.IsValidation(err))
}

/*
TestFind_Authorization verifies the two read modes: a hard authorization
failure without document security, row filtering with it.
*/
func TestFind_Authorization(t *testing.T) {
	// 1. Without document security a missing read grant is an error
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db, `create("any")`)
	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 0))
	require.NoError(t, err)

	_, err = db.Find(ctx, "articles")
	assert.True(t, apperr.IsAuthorization(err))

	// 2. With document security unreadable rows are silently dropped
	db2, _, ctx2 := newEngine(t)
	collection := articlesCollection(`create("any")`)
	collection.DocumentSecurity = true
	_, err = db2.CreateCollection(ctx2, collection)
	require.NoError(t, err)

	_, err = db2.CreateDocument(ctx2, "articles", newArticle("a-1", "mine", 0).
		Set(doc.FieldPermissions, []string{`read("user:alice")`}))
	require.NoError(t, err)
	_, err = db2.CreateDocument(ctx2, "articles", newArticle("a-2", "locked", 0))
	require.NoError(t, err)

	alice := access.Init(context.Background())
	access.SetRole(alice, "user:alice")
	visible, err := db2.Find(alice, "articles")
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "mine", visible[0].Get("title"))

	none, err := db2.Find(ctx2, "articles")
	require.NoError(t, err)
	assert.Empty(t, none)
}

/*
TestFindOne verifies the first-match contract: an empty document on both
misses and unauthorized matches.
*/
func TestFindOne(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 10))
	require.NoError(t, err)
	_, err = db.CreateDocument(ctx, "articles", newArticle("a-2", "second", 20))
	require.NoError(t, err)

	// 1. The first match comes back
	got, err := db.FindOne(ctx, "articles", query.Equal("title", "second"))
	require.NoError(t, err)
	assert.Equal(t, "a-2", got.ID())

	// 2. A miss is an empty document, not an error
	got, err = db.FindOne(ctx, "articles", query.Equal("title", "ghost"))
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

/*
TestFindOne_Unauthorized verifies that an unreadable match also comes back
empty.
*/
func TestFindOne_Unauthorized(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db, `create("any")`)
	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 0))
	require.NoError(t, err)

	got, err := db.FindOne(ctx, "articles", query.Equal("title", "first"))
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

/*
TestCountAndSum verifies the aggregate operations, their scan caps, and
their gates.
*/
func TestCountAndSum(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	for i, title := range []string{"first", "second", "third"} {
		_, err := db.CreateDocument(ctx, "articles",
			newArticle("", title, int64(10*(i+1))))
		require.NoError(t, err)
	}

	// 1. Counts with and without filters
	count, err := db.Count(ctx, "articles")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	count, err = db.Count(ctx, "articles", query.GreaterThan("views", 15))
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// 2. A limit query caps the scan
	count, err = db.Count(ctx, "articles", query.Limit(2))
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// 3. Sums respect filters and require a numeric attribute
	sum, err := db.Sum(ctx, "articles", "views")
	require.NoError(t, err)
	assert.EqualValues(t, 60, sum)

	sum, err = db.Sum(ctx, "articles", "views", query.GreaterThan("views", 15))
	require.NoError(t, err)
	assert.EqualValues(t, 50, sum)

	_, err = db.Sum(ctx, "articles", "title")
	assert.True(t, apperr.IsValidation(err))
	_, err = db.Sum(ctx, "articles", "bogus")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestCountAndSum_Unauthorized verifies that aggregates need the collection
read grant.
*/
func TestCountAndSum_Unauthorized(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db, `create("any")`)

	_, err := db.Count(ctx, "articles")
	assert.True(t, apperr.IsAuthorization(err))
	_, err = db.Sum(ctx, "articles", "views")
	assert.True(t, apperr.IsAuthorization(err))
}

/*
TestIncreaseDecrease verifies atomic numeric shifts, the inclusive limits,
and their failure modes.
*/
func TestIncreaseDecrease(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 10))
	require.NoError(t, err)

	// 1. An unbounded increase lands
	require.NoError(t, db.Increase(ctx, "articles", "a-1", "views", 5, nil))
	got, err := db.GetDocument(ctx, "articles", "a-1")
	require.NoError(t, err)
	assert.EqualValues(t, 15, got.Get("views"))

	// 2. Exceeding the maximum conflicts and leaves the value alone
	err = db.Increase(ctx, "articles", "a-1", "views", 5, pointer.To(17.0))
	assert.True(t, apperr.IsConflict(err))
	got, err = db.GetDocument(ctx, "articles", "a-1")
	require.NoError(t, err)
	assert.EqualValues(t, 15, got.Get("views"))

	// 3. Decrease honors the floor the same way
	require.NoError(t, db.Decrease(ctx, "articles", "a-1", "views", 5, pointer.To(0.0)))
	got, err = db.GetDocument(ctx, "articles", "a-1")
	require.NoError(t, err)
	assert.EqualValues(t, 10, got.Get("views"))

	err = db.Decrease(ctx, "articles", "a-1", "views", 20, pointer.To(0.0))
	assert.True(t, apperr.IsConflict(err))

	// 4. Zero shifts, non-numeric targets, and missing rows fail
	assert.True(t, apperr.IsValidation(db.Increase(ctx, "articles", "a-1", "views", 0, nil)))
	assert.True(t, apperr.IsValidation(db.Increase(ctx, "articles", "a-1", "title", 1, nil)))
	assert.True(t, apperr.IsNotFound(db.Increase(ctx, "articles", "a-1", "bogus", 1, nil)))
	assert.True(t, apperr.IsNotFound(db.Increase(ctx, "articles", "ghost", "views", 1, nil)))
}

/*
TestIncrease_Unauthorized verifies the update gate on numeric shifts.
*/
func TestIncrease_Unauthorized(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db, `create("any")`, `read("any")`)

	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 10))
	require.NoError(t, err)

	err = db.Increase(ctx, "articles", "a-1", "views", 1, nil)
	assert.True(t, apperr.IsAuthorization(err))
}

/*
TestUpdateDocument verifies partial updates, system-field protection, and
the update gates.
*/
func TestUpdateDocument(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	created, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 10))
	require.NoError(t, err)

	// 1. A partial update touches only the given attributes
	fresh, err := db.UpdateDocument(ctx, "articles", "a-1", doc.New().Set("title", "renamed"))
	require.NoError(t, err)
	assert.Equal(t, "renamed", fresh.Get("title"))
	assert.EqualValues(t, 10, fresh.Get("views"))

	// 2. Callers cannot rewrite identity or creation time
	fresh, err = db.UpdateDocument(ctx, "articles", "a-1", doc.New().
		Set(doc.FieldID, "hijacked").
		Set(doc.FieldCreatedAt, time.Unix(0, 0)).
		Set("views", int64(11)))
	require.NoError(t, err)
	assert.Equal(t, "a-1", fresh.ID())
	assert.True(t, fresh.CreatedAt().Equal(created.CreatedAt()))
	assert.EqualValues(t, 11, fresh.Get("views"))

	// 3. Present values are still validated
	_, err = db.UpdateDocument(ctx, "articles", "a-1", doc.New().Set("views", "many"))
	assert.True(t, apperr.IsValidation(err))

	// 4. Empty ids and missing documents fail
	_, err = db.UpdateDocument(ctx, "articles", "", doc.New().Set("title", "x"))
	assert.True(t, apperr.IsValidation(err))
	_, err = db.UpdateDocument(ctx, "articles", "ghost", doc.New().Set("title", "x"))
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestUpdateDocument_Unauthorized verifies the update gate.
*/
func TestUpdateDocument_Unauthorized(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db, `create("any")`, `read("any")`)

	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 0))
	require.NoError(t, err)

	_, err = db.UpdateDocument(ctx, "articles", "a-1", doc.New().Set("title", "x"))
	assert.True(t, apperr.IsAuthorization(err))
}

/*
TestUpdateDocuments verifies filtered bulk updates and the system fields
they refuse to touch.
*/
func TestUpdateDocuments(t *testing.T) {
	db, backend, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	for i := 1; i <= 3; i++ {
		_, err := db.CreateDocument(ctx, "articles",
			newArticle("", "post", int64(10*i)))
		require.NoError(t, err)
	}

	// 1. Only matching rows change
	affected, err := db.UpdateDocuments(ctx, "articles",
		doc.New().Set("score", 1.5), query.GreaterThan("views", 15))
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)

	scored, err := db.Find(ctx, "articles", query.Equal("score", 1.5))
	require.NoError(t, err)
	assert.Len(t, scored, 2)

	// 2. Ids and permissions in the update payload are discarded
	affected, err = db.UpdateDocuments(ctx, "articles", doc.New().
		Set(doc.FieldID, "hijacked").
		Set(doc.FieldPermissions, []string{`read("user:x")`}).
		Set("score", 2.0))
	require.NoError(t, err)
	assert.EqualValues(t, 3, affected)
	assert.Equal(t, 3, backend.rowCount("articles"))
	for _, row := range scored {
		assert.Empty(t, backend.stored("articles", row.ID()).Permissions())
	}

	// 3. Gates still apply
	_, err = db.UpdateDocuments(ctx, "articles", doc.New().Set("bogus", 1))
	assert.True(t, apperr.IsValidation(err))
}

/*
TestDeleteDocument verifies single deletes and their gates.
*/
func TestDeleteDocument(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 0))
	require.NoError(t, err)

	// 1. The document disappears
	require.NoError(t, db.DeleteDocument(ctx, "articles", "a-1"))
	_, err = db.GetDocument(ctx, "articles", "a-1")
	assert.True(t, apperr.IsNotFound(err))

	// 2. Deleting it again is not found
	err = db.DeleteDocument(ctx, "articles", "a-1")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestDeleteDocuments verifies filtered bulk deletes.
*/
func TestDeleteDocuments(t *testing.T) {
	db, backend, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	for _, title := range []string{"keep", "drop", "drop"} {
		_, err := db.CreateDocument(ctx, "articles", newArticle("", title, 0))
		require.NoError(t, err)
	}

	affected, err := db.DeleteDocuments(ctx, "articles", query.Equal("title", "drop"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)
	assert.Equal(t, 1, backend.rowCount("articles"))

	// No filters removes everything
	affected, err = db.DeleteDocuments(ctx, "articles")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.Equal(t, 0, backend.rowCount("articles"))
}

/*
TestDeleteDocuments_Unauthorized verifies the delete gate on both shapes.
*/
func TestDeleteDocuments_Unauthorized(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db, `create("any")`, `read("any")`)

	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 0))
	require.NoError(t, err)

	assert.True(t, apperr.IsAuthorization(db.DeleteDocument(ctx, "articles", "a-1")))
	_, err = db.DeleteDocuments(ctx, "articles")
	assert.True(t, apperr.IsAuthorization(err))
}

/*
TestBulkCreate verifies batched creation and duplicate handling.
*/
func TestBulkCreate(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	// 1. Every document lands with an id
	created, err := db.CreateDocuments(ctx, "articles", []*doc.Doc{
		newArticle("b-1", "one", 1),
		newArticle("", "two", 2),
		newArticle("b-3", "three", 3),
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	for _, document := range created {
		assert.NotEmpty(t, document.ID())
	}
	count, err := db.Count(ctx, "articles")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	// 2. Duplicate ids in the batch conflict
	_, err = db.CreateDocuments(ctx, "articles", []*doc.Doc{
		newArticle("b-9", "x", 0),
		newArticle("b-9", "y", 0),
	})
	assert.True(t, apperr.IsConflict(err))

	// 3. Empty batches are a no-op
	none, err := db.CreateDocuments(ctx, "articles", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

/*
TestUpsert verifies create-or-update semantics: new rows insert, existing
rows keep their creation timestamp, and the operation needs both grants.
*/
func TestUpsert(t *testing.T) {
	db, backend, ctx := newEngine(t)
	seedArticles(t, ctx, db)

	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 10))
	require.NoError(t, err)
	originalCreatedAt := backend.stored("articles", "a-1").CreatedAt()

	_, err = db.CreateOrUpdateDocuments(ctx, "articles", []*doc.Doc{
		newArticle("a-1", "revised", 11),
		newArticle("a-2", "brand new", 0),
	})
	require.NoError(t, err)

	// 1. The existing row updated in place and kept its creation time
	assert.Equal(t, 2, backend.rowCount("articles"))
	revised := backend.stored("articles", "a-1")
	assert.Equal(t, "revised", revised.Get("title"))
	assert.True(t, revised.CreatedAt().Equal(originalCreatedAt))

	// 2. The new row exists
	fresh, err := db.GetDocument(ctx, "articles", "a-2")
	require.NoError(t, err)
	assert.Equal(t, "brand new", fresh.Get("title"))
}

/*
TestUpsert_Unauthorized verifies that upserts require create and update
together.
*/
func TestUpsert_Unauthorized(t *testing.T) {
	db, _, ctx := newEngine(t)
	seedArticles(t, ctx, db, `create("any")`, `read("any")`)

	_, err := db.CreateOrUpdateDocuments(ctx, "articles", []*doc.Doc{
		newArticle("a-1", "first", 0),
	})
	assert.True(t, apperr.IsAuthorization(err))
}

/*
TestDocumentCache verifies that reads populate the cache, writes invalidate
it, and purges force the next read back to storage.
*/
func TestDocumentCache(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db, backend, ctx := newEngine(t, database.WithCache(cache.NewRedis(client)))
	seedArticles(t, ctx, db)

	_, err := db.CreateDocument(ctx, "articles", newArticle("a-1", "first", 7))
	require.NoError(t, err)

	// 1. The second read is served from the cache
	_, err = db.GetDocument(ctx, "articles", "a-1")
	require.NoError(t, err)
	cached, err := db.GetDocument(ctx, "articles", "a-1")
	require.NoError(t, err)
	assert.Equal(t, "first", cached.Get("title"))
	assert.EqualValues(t, 7, cached.Get("views"))
	assert.Equal(t, 1, backend.documentReads("articles"))

	// 2. An update evicts the cached document
	_, err = db.UpdateDocument(ctx, "articles", "a-1", doc.New().Set("title", "renamed"))
	require.NoError(t, err)
	// The update itself reads twice: the existing row and the fresh one.
	assert.Equal(t, 3, backend.documentReads("articles"))

	fresh, err := db.GetDocument(ctx, "articles", "a-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", fresh.Get("title"))
	assert.Equal(t, 4, backend.documentReads("articles"))

	// 3. Purging drops every cached shape of the document
	_, err = db.GetDocument(ctx, "articles", "a-1")
	require.NoError(t, err)
	assert.Equal(t, 4, backend.documentReads("articles"))

	db.PurgeCachedDocument(ctx, "articles", "a-1")
	_, err = db.GetDocument(ctx, "articles", "a-1")
	require.NoError(t, err)
	assert.Equal(t, 5, backend.documentReads("articles"))
}
