// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package adapter defines the dialect boundary of the engine.

An Adapter turns engine-level schema and document operations into SQL for
one backend. The engine never writes SQL itself: it validates, encodes, and
authorizes, then hands the adapter a collection schema plus documents or
grouped queries. Capability flags let the engine refuse operations a dialect
cannot express instead of failing downstream.

The reference implementation is [adapter/postgres]. Flags a dialect does not
declare default to false.
*/
package adapter

import (
	"context"

	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/query"
	"github.com/taibuivan/strata/pkg/schema"
)

// Capabilities declares what a dialect can physically do.
type Capabilities struct {
	// Fulltext indexes are supported.
	Fulltext bool
	// ArrayIndexes allows indexing array columns.
	ArrayIndexes bool
	// NativeArrays stores array attributes as native arrays; when false the
	// adapter falls back to jsonb and casts on read.
	NativeArrays bool
	// CastOnRead reports whether reads re-cast fallback-encoded columns.
	CastOnRead bool
	// BatchDDL allows several DDL statements in one atomic batch.
	BatchDDL bool
	// Relationships reports relationship support.
	Relationships bool
	// Upserts reports INSERT-or-UPDATE support.
	Upserts bool
	// MaxVarchar is the widest varchar; longer strings become text.
	MaxVarchar int
	// MaxIndexLength is the combined key-length limit for non-fulltext
	// indexes; 0 means unlimited.
	MaxIndexLength int
	// MaxDocumentSize bounds one row's encoded size; 0 means unlimited.
	MaxDocumentSize int
}

// Meta is the schema identity every physical name derives from:
// namespace + schema + tenant form the key space.
type Meta struct {
	Database          string
	Schema            string
	Namespace         string
	SharedTables      bool
	TenantID          int64
	TenantPerDocument bool
}

// Column describes one physical column during schema introspection.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Default  string
}

// Adapter is the dialect-specific storage backend.
type Adapter interface {
	// Capabilities returns the dialect's static capability flags.
	Capabilities() Capabilities

	// SetMeta fixes the schema identity. Must be called before any other
	// operation.
	SetMeta(meta Meta)
	// Meta returns the current schema identity.
	Meta() Meta

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// WithTransaction runs fn inside a transaction scope. Nested calls open
	// savepoints; the outermost scope retries deadlocks.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// # Schema container

	// CreateSchema creates the physical schema container if absent.
	CreateSchema(ctx context.Context, name string) error
	// SchemaExists reports whether the schema container exists.
	SchemaExists(ctx context.Context, name string) (bool, error)
	// DeleteSchema drops the schema container and everything in it.
	DeleteSchema(ctx context.Context, name string) error

	// # Collections

	CreateCollection(ctx context.Context, collectionID string, attributes []schema.Attribute, indexes []schema.Index) error
	DeleteCollection(ctx context.Context, collectionID string) error
	// CollectionExists reports whether the physical table exists.
	CollectionExists(ctx context.Context, collectionID string) (bool, error)
	// AnalyzeCollection refreshes backend statistics for the planner.
	AnalyzeCollection(ctx context.Context, collectionID string) error
	// GetSizeOfCollection returns the physical size in bytes.
	GetSizeOfCollection(ctx context.Context, collectionID string) (int64, error)
	// GetSizeOfDocument returns the stored size of one row in bytes.
	GetSizeOfDocument(ctx context.Context, collectionID, documentID string) (int64, error)
	// GetSchemaAttributes introspects the physical columns.
	GetSchemaAttributes(ctx context.Context, collectionID string) ([]Column, error)

	// # Attributes

	CreateAttribute(ctx context.Context, collectionID string, attribute schema.Attribute) error
	// CreateAttributes adds several columns; atomic when BatchDDL is set.
	CreateAttributes(ctx context.Context, collectionID string, attributes []schema.Attribute) error
	// UpdateAttribute alters type or size in place, subject to resize rules.
	UpdateAttribute(ctx context.Context, collectionID string, attribute schema.Attribute) error
	RenameAttribute(ctx context.Context, collectionID, old, new string) error
	DeleteAttribute(ctx context.Context, collectionID string, attribute schema.Attribute) error

	// # Indexes

	CreateIndex(ctx context.Context, collectionID string, index schema.Index, attributes []schema.Attribute) error
	RenameIndex(ctx context.Context, collectionID, old, new string) error
	DeleteIndex(ctx context.Context, collectionID, indexID string) error

	// # Documents

	CreateDocument(ctx context.Context, collection *schema.Collection, document *doc.Doc) (*doc.Doc, error)
	CreateDocuments(ctx context.Context, collection *schema.Collection, documents []*doc.Doc) ([]*doc.Doc, error)
	UpsertDocuments(ctx context.Context, collection *schema.Collection, documents []*doc.Doc) ([]*doc.Doc, error)
	UpdateDocument(ctx context.Context, collection *schema.Collection, documentID string, document *doc.Doc) (*doc.Doc, error)
	// UpdateDocuments applies the same attribute updates to every document
	// matching the filters, returning the affected count.
	UpdateDocuments(ctx context.Context, collection *schema.Collection, updates *doc.Doc, filters []query.Query) (int64, error)
	DeleteDocument(ctx context.Context, collection *schema.Collection, documentID string) error
	DeleteDocuments(ctx context.Context, collection *schema.Collection, filters []query.Query) (int64, error)
	GetDocument(ctx context.Context, collection *schema.Collection, documentID string, selections []string) (*doc.Doc, error)
	Find(ctx context.Context, collection *schema.Collection, grouped query.Grouped) ([]*doc.Doc, error)
	Count(ctx context.Context, collection *schema.Collection, filters []query.Query, max int) (int64, error)
	Sum(ctx context.Context, collection *schema.Collection, attribute string, filters []query.Query, max int) (float64, error)
	// Increase atomically adds by to a numeric attribute; a non-nil limit is
	// the inclusive maximum (by > 0) or minimum (by < 0). It reports whether
	// a row was updated.
	Increase(ctx context.Context, collection *schema.Collection, documentID, attribute string, by float64, limit *float64, updatedAt string) (bool, error)
}
