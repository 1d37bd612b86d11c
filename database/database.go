// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package database is the engine facade: the orchestration layer that owns the
schema lifecycle, the document pipeline, and everything between the caller
and the storage adapter.

A write travels structure validation → filter encode → authorization →
adapter → cache invalidation → event. A read consults the cache first, falls
back to the adapter, decodes filters, applies document-security
post-filtering, and caches the result. Cache failures are logged and treated
as misses; they never fail an operation.

Construction:

	client, _ := postgres.NewClient(ctx, dsn, logger)
	db := database.New(postgres.New(client),
	    database.WithCache(cache.NewRedisFromURL(redisURL)),
	    database.WithLogger(logger),
	)
	db.SetMeta(adapter.Meta{Database: "main", Schema: "public", Namespace: "ns1"})
*/
package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/strata/adapter"
	"github.com/taibuivan/strata/cache"
	"github.com/taibuivan/strata/emitter"
	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/schema"
)

const (
	// IDUnique is the caller-supplied sentinel asking the engine to mint an id.
	IDUnique = "unique()"

	// defaultQueryLimit applies when a find carries no limit query.
	defaultQueryLimit = 25
	// defaultMaxLimit caps any caller-supplied limit.
	defaultMaxLimit = 1000
	// defaultMaxQueryValues bounds the values of one query node.
	defaultMaxQueryValues = 100
)

// Database is the engine facade. One instance serves one schema identity
// (set via [Database.SetMeta]); concurrent use is safe as long as the
// adapter and cache backends are.
type Database struct {
	adapter adapter.Adapter
	cache   cache.Cache
	events  *emitter.Emitter
	logger  *slog.Logger

	filters map[string]Filter

	cacheName      string
	cacheTTL       time.Duration
	maxQueryValues int
	maxLimit       int
	preserveDates  bool
	now            func() time.Time
}

// Option configures a [Database].
type Option func(*Database)

// WithCache installs the cache backend. Default is [cache.None].
func WithCache(c cache.Cache) Option {
	return func(db *Database) { db.cache = c }
}

// WithLogger installs the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(db *Database) { db.logger = logger }
}

// WithCacheName overrides the cache keyspace name. Default is the meta
// database name.
func WithCacheName(name string) Option {
	return func(db *Database) { db.cacheName = name }
}

// WithCacheTTL overrides the cache entry lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(db *Database) { db.cacheTTL = ttl }
}

// WithMaxQueryValues bounds the values accepted in one query node.
func WithMaxQueryValues(n int) Option {
	return func(db *Database) { db.maxQueryValues = n }
}

// WithMaxLimit caps the limit a find may request.
func WithMaxLimit(n int) Option {
	return func(db *Database) { db.maxLimit = n }
}

// withClock fixes the timestamp source, for tests.
func withClock(now func() time.Time) Option {
	return func(db *Database) { db.now = now }
}

// New builds a facade over the given adapter.
func New(a adapter.Adapter, opts ...Option) *Database {
	db := &Database{
		adapter:        a,
		cache:          cache.NewNone(),
		logger:         slog.Default(),
		filters:        map[string]Filter{},
		cacheTTL:       cache.DefaultTTL,
		maxQueryValues: defaultMaxQueryValues,
		maxLimit:       defaultMaxLimit,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(db)
	}
	db.events = emitter.New(db.logger)
	return db
}

// SetMeta fixes the schema identity on the underlying adapter. Must be
// called before any schema or document operation.
func (db *Database) SetMeta(meta adapter.Meta) { db.adapter.SetMeta(meta) }

// Meta returns the current schema identity.
func (db *Database) Meta() adapter.Meta { return db.adapter.Meta() }

// Adapter exposes the underlying adapter, mainly for capability checks.
func (db *Database) Adapter() adapter.Adapter { return db.adapter }

// SetPreserveDates toggles restoration mode: when on, caller-supplied
// $createdAt/$updatedAt survive writes instead of being overridden.
func (db *Database) SetPreserveDates(preserve bool) { db.preserveDates = preserve }

// Ping verifies the storage backend is reachable.
func (db *Database) Ping(ctx context.Context) error { return db.adapter.Ping(ctx) }

// WithTransaction runs fn inside one storage transaction scope. Nested
// calls open savepoints; the outermost scope retries deadlocks.
func (db *Database) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.adapter.WithTransaction(ctx, fn)
}

// # Events

// On subscribes a named listener to an event (or the "*" wildcard).
func (db *Database) On(event, name string, handler emitter.Handler) error {
	return db.events.On(event, name, handler)
}

// Off removes a named listener.
func (db *Database) Off(event, name string) { db.events.Off(event, name) }

// Silent runs fn with the named listeners muted; nil names mutes all.
func (db *Database) Silent(ctx context.Context, names []string, fn func(ctx context.Context) error) error {
	return emitter.Silent(ctx, names, fn)
}

func (db *Database) trigger(ctx context.Context, event string, args ...any) {
	db.events.Trigger(ctx, event, args...)
}

// # Cache plumbing

// cacheKey renders the keyspace scope for the current meta.
func (db *Database) cacheKey() cache.Key {
	meta := db.adapter.Meta()
	name := db.cacheName
	if name == "" {
		name = meta.Database
	}
	return cache.Key{
		Database:  name,
		Namespace: meta.Namespace,
		Schema:    meta.Schema,
		TenantID:  meta.TenantID,
		HasTenant: meta.SharedTables,
	}
}

// cacheGet is a tolerant read: any backend failure is a miss.
func (db *Database) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	value, ok, err := db.cache.Get(ctx, key)
	if err != nil {
		db.logger.Warn("cache get failed", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	return value, ok
}

func (db *Database) cacheSet(ctx context.Context, key string, value []byte, tags []string) {
	if err := db.cache.Set(ctx, key, value, db.cacheTTL, tags); err != nil {
		db.logger.Warn("cache set failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (db *Database) cacheFlush(ctx context.Context, tags ...string) {
	if err := db.cache.FlushTags(ctx, tags); err != nil {
		db.logger.Warn("cache flush failed", slog.Any("tags", tags), slog.Any("error", err))
	}
}

// # Schema container

// Create creates the physical schema container and the metadata collection.
// Both steps are idempotent-safe on the container side.
func (db *Database) Create(ctx context.Context) error {
	meta := db.adapter.Meta()
	if err := db.adapter.CreateSchema(ctx, meta.Schema); err != nil {
		return err
	}

	metadata := schema.Metadata()
	exists, err := db.adapter.CollectionExists(ctx, metadata.ID)
	if err != nil {
		return err
	}
	if !exists {
		if err := db.adapter.CreateCollection(ctx, metadata.ID, metadata.Attributes, metadata.Indexes); err != nil {
			return err
		}
	}

	db.trigger(ctx, EventDatabaseCreate, meta.Schema)
	return nil
}

// Exists reports whether the schema container exists.
func (db *Database) Exists(ctx context.Context, name string) (bool, error) {
	return db.adapter.SchemaExists(ctx, name)
}

// Delete drops the schema container with everything inside it and clears
// the cached scope.
func (db *Database) Delete(ctx context.Context, name string) error {
	if err := db.adapter.DeleteSchema(ctx, name); err != nil {
		return err
	}
	db.cacheFlush(ctx, db.cacheKey().Collection(schema.MetadataCollection))
	db.trigger(ctx, EventDatabaseDelete, name)
	return nil
}

// # Ids and timestamps

// resolveID mints a document id when the caller asked for one.
func resolveID(id string) string {
	if id == "" || id == IDUnique {
		return uuid.NewString()
	}
	return id
}

// stampCreate sets both timestamps unless restoration mode preserves them.
func (db *Database) stampCreate(document *doc.Doc) {
	now := db.now().UTC()
	if db.preserveDates && document.Get(doc.FieldCreatedAt) != nil {
		// Restoration path carries its own dates.
	} else {
		document.Set(doc.FieldCreatedAt, now)
	}
	if db.preserveDates && document.Get(doc.FieldUpdatedAt) != nil {
		return
	}
	document.Set(doc.FieldUpdatedAt, now)
}

// stampUpdate bumps $updatedAt unless restoration mode preserves it.
func (db *Database) stampUpdate(document *doc.Doc) {
	if db.preserveDates && document.Get(doc.FieldUpdatedAt) != nil {
		return
	}
	document.Set(doc.FieldUpdatedAt, db.now().UTC())
}
