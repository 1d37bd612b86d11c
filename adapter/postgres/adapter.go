// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/taibuivan/strata/adapter"
	"github.com/taibuivan/strata/pkg/schema"
)

// Physical limits of the PostgreSQL dialect.
const (
	// maxVarchar is the widest varchar the adapter declares; longer string
	// attributes become text.
	maxVarchar = 16383
	// maxIndexLength approximates the btree entry limit (a third of an 8k
	// page) in characters.
	maxIndexLength = 2700
	// relationColumnSize fits any document id.
	relationColumnSize = 255
)

// Internal column names of every physical collection table.
const (
	colSequence    = "_id"
	colUID         = "_uid"
	colCreatedAt   = "_createdAt"
	colUpdatedAt   = "_updatedAt"
	colPermissions = "_permissions"
	colTenant      = "_tenant"
)

// internalColumns maps system fields to their physical columns.
var internalColumns = map[string]string{
	"$sequence":    colSequence,
	"$id":          colUID,
	"$createdAt":   colCreatedAt,
	"$updatedAt":   colUpdatedAt,
	"$permissions": colPermissions,
	"$tenant":      colTenant,
}

// Adapter is the PostgreSQL implementation of [adapter.Adapter].
type Adapter struct {
	client *Client
	meta   adapter.Meta
}

// New returns an adapter over the given client.
func New(client *Client) *Adapter {
	return &Adapter{client: client}
}

// Client exposes the underlying SQL client.
func (a *Adapter) Client() *Client { return a.client }

func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		Fulltext:       true,
		ArrayIndexes:   true,
		NativeArrays:   true,
		CastOnRead:     false,
		BatchDDL:       true,
		Relationships:  true,
		Upserts:        true,
		MaxVarchar:     maxVarchar,
		MaxIndexLength: maxIndexLength,
	}
}

func (a *Adapter) SetMeta(meta adapter.Meta) { a.meta = meta }

func (a *Adapter) Meta() adapter.Meta { return a.meta }

func (a *Adapter) Ping(ctx context.Context) error { return a.client.Ping(ctx) }

func (a *Adapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return a.client.WithTransaction(ctx, fn)
}

// # Physical naming

// tableName renders the unqualified physical table name for a collection.
func (a *Adapter) tableName(collectionID string) string {
	if a.meta.Namespace == "" {
		return collectionID
	}
	return a.meta.Namespace + "_" + collectionID
}

// table renders the schema-qualified, quoted table reference.
func (a *Adapter) table(collectionID string) string {
	return QuoteIdent(a.meta.Schema) + "." + QuoteIdent(a.tableName(collectionID))
}

// column maps an engine attribute name to its quoted physical column.
func column(name string) string {
	if physical, ok := internalColumns[name]; ok {
		return QuoteIdent(physical)
	}
	return QuoteIdent(name)
}

// columnType renders the physical type for an attribute.
func (a *Adapter) columnType(attribute schema.Attribute) (string, error) {
	var base string
	switch attribute.Type {
	case schema.TypeString:
		if attribute.Size > 0 && attribute.Size <= maxVarchar {
			base = fmt.Sprintf("VARCHAR(%d)", attribute.Size)
		} else {
			base = "TEXT"
		}
	case schema.TypeInteger:
		if attribute.Size >= 8 {
			base = "BIGINT"
		} else {
			base = "INTEGER"
		}
	case schema.TypeFloat:
		base = "DOUBLE PRECISION"
	case schema.TypeBoolean:
		base = "BOOLEAN"
	case schema.TypeDateTime:
		base = "TIMESTAMPTZ"
	case schema.TypeJSON:
		base = "JSONB"
	case schema.TypeUUID:
		base = "UUID"
	case schema.TypeRelationship:
		base = fmt.Sprintf("VARCHAR(%d)", relationColumnSize)
	default:
		return "", fmt.Errorf("postgres: no column type for attribute type %q", string(attribute.Type))
	}

	if attribute.Array {
		base += "[]"
	}
	return base, nil
}

// # Schema container

func (a *Adapter) CreateSchema(ctx context.Context, name string) error {
	_, err := a.client.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+QuoteIdent(name))
	return wrapError(err)
}

func (a *Adapter) SchemaExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := a.client.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = ?)",
		name,
	).Scan(&exists)
	if err != nil {
		return false, wrapError(err)
	}
	return exists, nil
}

func (a *Adapter) DeleteSchema(ctx context.Context, name string) error {
	_, err := a.client.Exec(ctx, "DROP SCHEMA IF EXISTS "+QuoteIdent(name)+" CASCADE")
	return wrapError(err)
}

// # Collections

func (a *Adapter) CreateCollection(ctx context.Context, collectionID string, attributes []schema.Attribute, indexes []schema.Index) error {
	columns := []string{
		QuoteIdent(colSequence) + " BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY",
		QuoteIdent(colUID) + " VARCHAR(255) NOT NULL",
		QuoteIdent(colCreatedAt) + " TIMESTAMPTZ",
		QuoteIdent(colUpdatedAt) + " TIMESTAMPTZ",
		QuoteIdent(colPermissions) + " TEXT[] NOT NULL DEFAULT '{}'",
	}
	if a.meta.SharedTables {
		columns = append(columns, QuoteIdent(colTenant)+" BIGINT")
	}

	for _, attribute := range attributes {
		if attribute.IsVirtual() {
			continue
		}
		columnType, err := a.columnType(attribute)
		if err != nil {
			return err
		}
		columns = append(columns, QuoteIdent(attribute.Name())+" "+columnType)
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", a.table(collectionID), strings.Join(columns, ", "))
	if _, err := a.client.Exec(ctx, create); err != nil {
		return wrapError(err)
	}

	// The id must be unique per tenant in shared-table mode, globally
	// otherwise.
	uidColumns := QuoteIdent(colUID)
	if a.meta.SharedTables {
		uidColumns = QuoteIdent(colTenant) + ", " + QuoteIdent(colUID)
	}
	uidIndex := fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)",
		QuoteIdent(a.tableName(collectionID)+"_uid"), a.table(collectionID), uidColumns)
	if _, err := a.client.Exec(ctx, uidIndex); err != nil {
		return wrapError(err)
	}

	for _, index := range indexes {
		if err := a.CreateIndex(ctx, collectionID, index, attributes); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) DeleteCollection(ctx context.Context, collectionID string) error {
	_, err := a.client.Exec(ctx, "DROP TABLE IF EXISTS "+a.table(collectionID))
	return wrapError(err)
}

func (a *Adapter) CollectionExists(ctx context.Context, collectionID string) (bool, error) {
	var exists bool
	err := a.client.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = ? AND table_name = ?)",
		a.meta.Schema, a.tableName(collectionID),
	).Scan(&exists)
	if err != nil {
		return false, wrapError(err)
	}
	return exists, nil
}

func (a *Adapter) AnalyzeCollection(ctx context.Context, collectionID string) error {
	_, err := a.client.Exec(ctx, "ANALYZE "+a.table(collectionID))
	return wrapError(err)
}

func (a *Adapter) GetSizeOfCollection(ctx context.Context, collectionID string) (int64, error) {
	var size int64
	err := a.client.QueryRow(ctx,
		"SELECT pg_total_relation_size(?::regclass)",
		a.table(collectionID),
	).Scan(&size)
	if err != nil {
		return 0, wrapError(err)
	}
	return size, nil
}

func (a *Adapter) GetSizeOfDocument(ctx context.Context, collectionID, documentID string) (int64, error) {
	var size int64
	err := a.client.QueryRow(ctx,
		fmt.Sprintf("SELECT pg_column_size(t.*) FROM %s AS t WHERE %s = ?",
			a.table(collectionID), QuoteIdent(colUID)),
		documentID,
	).Scan(&size)
	if err != nil {
		return 0, wrapError(err)
	}
	return size, nil
}

func (a *Adapter) GetSchemaAttributes(ctx context.Context, collectionID string) ([]adapter.Column, error) {
	rows, err := a.client.Query(ctx, `
		SELECT column_name, data_type, is_nullable, COALESCE(column_default, '')
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`,
		a.meta.Schema, a.tableName(collectionID),
	)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	var columns []adapter.Column
	for rows.Next() {
		var col adapter.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Default); err != nil {
			return nil, wrapError(err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, wrapError(rows.Err())
}

// # Attributes

func (a *Adapter) CreateAttribute(ctx context.Context, collectionID string, attribute schema.Attribute) error {
	return a.CreateAttributes(ctx, collectionID, []schema.Attribute{attribute})
}

// CreateAttributes adds all columns in a single ALTER TABLE, which Postgres
// applies atomically.
func (a *Adapter) CreateAttributes(ctx context.Context, collectionID string, attributes []schema.Attribute) error {
	var actions []string
	for _, attribute := range attributes {
		if attribute.IsVirtual() {
			continue
		}
		columnType, err := a.columnType(attribute)
		if err != nil {
			return err
		}
		actions = append(actions, "ADD COLUMN "+QuoteIdent(attribute.Name())+" "+columnType)
	}
	if len(actions) == 0 {
		return nil
	}

	alter := fmt.Sprintf("ALTER TABLE %s %s", a.table(collectionID), strings.Join(actions, ", "))
	_, err := a.client.Exec(ctx, alter)
	return wrapError(err)
}

func (a *Adapter) UpdateAttribute(ctx context.Context, collectionID string, attribute schema.Attribute) error {
	if attribute.IsVirtual() {
		return nil
	}
	columnType, err := a.columnType(attribute)
	if err != nil {
		return err
	}

	alter := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
		a.table(collectionID),
		QuoteIdent(attribute.Name()),
		columnType,
		QuoteIdent(attribute.Name()),
		columnType,
	)
	_, err = a.client.Exec(ctx, alter)
	return wrapError(err)
}

func (a *Adapter) RenameAttribute(ctx context.Context, collectionID, old, new string) error {
	rename := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		a.table(collectionID), QuoteIdent(old), QuoteIdent(new))
	_, err := a.client.Exec(ctx, rename)
	return wrapError(err)
}

func (a *Adapter) DeleteAttribute(ctx context.Context, collectionID string, attribute schema.Attribute) error {
	if attribute.IsVirtual() {
		return nil
	}
	drop := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		a.table(collectionID), QuoteIdent(attribute.Name()))
	_, err := a.client.Exec(ctx, drop)
	return wrapError(err)
}

// # Indexes

// indexName renders the physical, per-schema-unique index name.
func (a *Adapter) indexName(collectionID, indexID string) string {
	return a.tableName(collectionID) + "_" + indexID
}

func (a *Adapter) CreateIndex(ctx context.Context, collectionID string, index schema.Index, attributes []schema.Attribute) error {
	arrayColumns := make(map[string]bool, len(attributes))
	for _, attribute := range attributes {
		if attribute.Array {
			arrayColumns[attribute.Name()] = true
		}
	}

	name := QuoteIdent(a.indexName(collectionID, index.Name()))
	table := a.table(collectionID)

	switch index.Type {
	case schema.IndexFulltext:
		vectors := make([]string, len(index.Attributes))
		for i, attribute := range index.Attributes {
			vectors[i] = fmt.Sprintf("to_tsvector('simple', COALESCE(%s, ''))", column(attribute))
		}
		create := fmt.Sprintf("CREATE INDEX %s ON %s USING GIN ((%s))",
			name, table, strings.Join(vectors, " || "))
		_, err := a.client.Exec(ctx, create)
		return wrapError(err)

	case schema.IndexSpatial:
		create := fmt.Sprintf("CREATE INDEX %s ON %s USING GIST (%s)",
			name, table, column(index.Attributes[0]))
		_, err := a.client.Exec(ctx, create)
		return wrapError(err)
	}

	// Array columns need a GIN index; they cannot share a btree with
	// scalar columns, so an array-bearing key index becomes GIN over the
	// array column alone.
	for _, attribute := range index.Attributes {
		if arrayColumns[attribute] {
			create := fmt.Sprintf("CREATE INDEX %s ON %s USING GIN (%s)",
				name, table, column(attribute))
			_, err := a.client.Exec(ctx, create)
			return wrapError(err)
		}
	}

	parts := make([]string, len(index.Attributes))
	for i, attribute := range index.Attributes {
		parts[i] = column(attribute)
		if i < len(index.Orders) && index.Orders[i] != "" {
			parts[i] += " " + strings.ToUpper(index.Orders[i])
		}
	}

	unique := ""
	if index.Type == schema.IndexUnique {
		unique = "UNIQUE "
	}
	create := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, name, table, strings.Join(parts, ", "))
	_, err := a.client.Exec(ctx, create)
	return wrapError(err)
}

func (a *Adapter) RenameIndex(ctx context.Context, collectionID, old, new string) error {
	rename := fmt.Sprintf("ALTER INDEX %s.%s RENAME TO %s",
		QuoteIdent(a.meta.Schema),
		QuoteIdent(a.indexName(collectionID, old)),
		QuoteIdent(a.indexName(collectionID, new)),
	)
	_, err := a.client.Exec(ctx, rename)
	return wrapError(err)
}

func (a *Adapter) DeleteIndex(ctx context.Context, collectionID, indexID string) error {
	drop := fmt.Sprintf("DROP INDEX IF EXISTS %s.%s",
		QuoteIdent(a.meta.Schema),
		QuoteIdent(a.indexName(collectionID, indexID)),
	)
	_, err := a.client.Exec(ctx, drop)
	return wrapError(err)
}
