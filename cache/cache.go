// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package cache defines the engine's tag-keyed cache contract and its backends.

The engine memoizes collection metadata and document reads under structured
keys (see [Key]) and attaches invalidation tags to every entry. Any write
flushes by tag, so a cached document disappears when either the document or
its collection changes.

Cache failures are never fatal to the engine: a failed read is a miss, a
failed write is a no-op, and both are logged at warn level by the caller.
*/
package cache

import (
	"context"
	"time"
)

// DefaultTTL is applied when the caller does not specify a TTL.
const DefaultTTL = 24 * time.Hour

// Cache is a key/value store with tag-based invalidation.
type Cache interface {
	// Get returns the value under key. ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key with the given TTL and invalidation tags.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error
	// FlushTags removes every entry associated with any of the tags.
	FlushTags(ctx context.Context, tags []string) error
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// None is a backend that never stores anything; every read is a miss.
// It serves tests and cache-disabled deployments.
type None struct{}

// NewNone returns the no-op backend.
func NewNone() None { return None{} }

func (None) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

func (None) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	return nil
}

func (None) FlushTags(ctx context.Context, tags []string) error { return nil }

func (None) Ping(ctx context.Context) error { return nil }
