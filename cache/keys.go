// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
)

// Key identifies one engine scope in the cache keyspace. Empty namespace and
// zero tenant render as "-" so keys stay fixed-arity.
type Key struct {
	Database  string
	Namespace string
	Schema    string
	TenantID  int64
	HasTenant bool
}

// Base renders the scope prefix: db:<name>:<namespace|->:<schema>:<tenant|->.
func (k Key) Base() string {
	namespace := k.Namespace
	if namespace == "" {
		namespace = "-"
	}
	tenant := "-"
	if k.HasTenant {
		tenant = fmt.Sprintf("%d", k.TenantID)
	}
	return fmt.Sprintf("db:%s:%s:%s:%s", k.Database, namespace, k.Schema, tenant)
}

// Collection renders the cache key (and invalidation tag) for a collection.
func (k Key) Collection(collectionID string) string {
	return k.Base() + ":" + collectionID
}

// Document renders the cache key (and invalidation tag) for a document.
func (k Key) Document(collectionID, documentID string) string {
	return k.Collection(collectionID) + ":" + documentID
}

// DocumentFiltered renders the key for a document read shaped by query
// options; the sub-key is the [FilterHash] of those options.
func (k Key) DocumentFiltered(collectionID, documentID, filterHash string) string {
	return k.Document(collectionID, documentID) + ":" + filterHash
}

// FilterInputs captures everything that shapes a cached read result.
// Selections are sorted before hashing so equivalent requests share one
// entry; the remaining fields keep their submission order because it is
// semantically significant.
type FilterInputs struct {
	Selections      []string `json:"selections"`
	Filters         []any    `json:"filters"`
	Limit           int      `json:"limit"`
	Offset          int      `json:"offset"`
	CursorID        string   `json:"cursorId"`
	CursorDirection string   `json:"cursorDirection"`
}

// FilterHash derives the 128-bit FNV-1a hex sub-key for a shaped read.
func FilterHash(inputs FilterInputs) string {
	sorted := make([]string, len(inputs.Selections))
	copy(sorted, inputs.Selections)
	sort.Strings(sorted)
	inputs.Selections = sorted

	serialized, err := json.Marshal(inputs)
	if err != nil {
		// Marshalling plain strings and numbers cannot fail; fall back to a
		// stable literal rather than panicking mid-read.
		serialized = []byte(fmt.Sprintf("%v", inputs))
	}

	hasher := fnv.New128a()
	_, _ = hasher.Write(serialized)
	return hex.EncodeToString(hasher.Sum(nil))
}
