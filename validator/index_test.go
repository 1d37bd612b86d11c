// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/strata/pkg/schema"
	"github.com/taibuivan/strata/validator"
)

/*
TestIndex verifies declaration rules: types, coverage, duplicate attributes,
and parallel orders/lengths lists.
*/
func TestIndex(t *testing.T) {
	v := validator.NewIndex(booksCollection(), 0, true)

	// 1. A plain key index passes, system attributes included
	assert.True(t, v.Valid(schema.Index{
		ID: "idx", Type: schema.IndexKey, Attributes: []string{"title", "$createdAt"},
	}), v.Description())

	// 2. Unknown types and empty coverage fail
	assert.False(t, v.Valid(schema.Index{ID: "idx", Type: "hash", Attributes: []string{"title"}}))
	assert.False(t, v.Valid(schema.Index{ID: "idx", Type: schema.IndexKey}))

	// 3. Unknown and duplicate attributes fail
	assert.False(t, v.Valid(schema.Index{ID: "idx", Type: schema.IndexKey, Attributes: []string{"bogus"}}))
	assert.False(t, v.Valid(schema.Index{ID: "idx", Type: schema.IndexKey, Attributes: []string{"title", "title"}}))

	// 4. Orders and lengths must parallel the attribute list
	assert.False(t, v.Valid(schema.Index{
		ID: "idx", Type: schema.IndexKey,
		Attributes: []string{"title", "pages"},
		Orders:     []string{"ASC"},
	}))
	assert.False(t, v.Valid(schema.Index{
		ID: "idx", Type: schema.IndexKey,
		Attributes: []string{"title"},
		Lengths:    []int{10, 20},
	}))
}

/*
TestIndex_Fulltext verifies that fulltext indexes only cover string
attributes.
*/
func TestIndex_Fulltext(t *testing.T) {
	v := validator.NewIndex(booksCollection(), 0, true)

	assert.True(t, v.Valid(schema.Index{
		ID: "ft", Type: schema.IndexFulltext, Attributes: []string{"title"},
	}), v.Description())

	assert.False(t, v.Valid(schema.Index{
		ID: "ft", Type: schema.IndexFulltext, Attributes: []string{"pages"},
	}))
}

/*
TestIndex_Arrays verifies the array-attribute rules: adapter support, key
indexes only, explicit lengths, and the one-array cap.
*/
func TestIndex_Arrays(t *testing.T) {
	v := validator.NewIndex(booksCollection(), 0, true)

	// 1. A key index with an explicit length passes
	assert.True(t, v.Valid(schema.Index{
		ID: "idx", Type: schema.IndexKey, Attributes: []string{"tags"}, Lengths: []int{20},
	}), v.Description())

	// 2. Arrays need an explicit length
	assert.False(t, v.Valid(schema.Index{
		ID: "idx", Type: schema.IndexKey, Attributes: []string{"tags"},
	}))

	// 3. Arrays are only allowed in key indexes
	assert.False(t, v.Valid(schema.Index{
		ID: "idx", Type: schema.IndexUnique, Attributes: []string{"tags"}, Lengths: []int{20},
	}))

	// 4. Adapters without array index support reject them outright
	unsupported := validator.NewIndex(booksCollection(), 0, false)
	assert.False(t, unsupported.Valid(schema.Index{
		ID: "idx", Type: schema.IndexKey, Attributes: []string{"tags"}, Lengths: []int{20},
	}))
}

/*
TestIndex_LengthCap verifies the combined key-length limit.
*/
func TestIndex_LengthCap(t *testing.T) {
	v := validator.NewIndex(booksCollection(), 120, true)

	// 1. Implicit string sizes count toward the cap (title is 100)
	assert.True(t, v.Valid(schema.Index{
		ID: "idx", Type: schema.IndexKey, Attributes: []string{"title"},
	}), v.Description())

	// 2. Exceeding the cap fails (100 + 100 > 120)
	collection := booksCollection()
	collection.Attributes = append(collection.Attributes,
		schema.Attribute{ID: "subtitle", Key: "subtitle", Type: schema.TypeString, Size: 100})
	capped := validator.NewIndex(collection, 120, true)
	assert.False(t, capped.Valid(schema.Index{
		ID: "idx", Type: schema.IndexKey, Attributes: []string{"title", "subtitle"},
	}))

	// 3. Fulltext indexes are exempt from the cap
	assert.True(t, capped.Valid(schema.Index{
		ID: "ft", Type: schema.IndexFulltext, Attributes: []string{"title", "subtitle"},
	}), capped.Description())
}

/*
TestIndexDependency verifies that indexed array attributes block deletion
and renaming.
*/
func TestIndexDependency(t *testing.T) {
	collection := booksCollection()
	collection.Indexes = append(collection.Indexes, schema.Index{
		ID: "idx_tags", Type: schema.IndexKey, Attributes: []string{"tags"}, Lengths: []int{20},
	})

	v := validator.NewIndexDependency(collection, true)

	// 1. An indexed array attribute is blocked
	assert.False(t, v.Valid(*collection.Attribute("tags")))
	assert.NotEmpty(t, v.Description())

	// 2. Scalar attributes pass even when indexed
	assert.True(t, v.Valid(*collection.Attribute("title")))

	// 3. Without adapter array-index support the check is moot
	moot := validator.NewIndexDependency(collection, false)
	assert.True(t, moot.Valid(*collection.Attribute("tags")))
}
