// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package database

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/taibuivan/strata/apperr"
	"github.com/taibuivan/strata/pkg/doc"
	"github.com/taibuivan/strata/pkg/schema"
)

// FilterFunc transforms one attribute value on its way to or from storage.
type FilterFunc func(ctx context.Context, value any, document *doc.Doc, db *Database) (any, error)

// Filter is a named bidirectional value transform declared on an attribute.
// Encode runs on write in declaration order; Decode runs on read in reverse.
type Filter struct {
	Encode FilterFunc
	Decode FilterFunc
}

// # Registry

var (
	filtersMu     sync.RWMutex
	globalFilters = map[string]Filter{}
)

// AddFilter registers a process-wide filter. Duplicate names fail.
func AddFilter(name string, filter Filter) error {
	filtersMu.Lock()
	defer filtersMu.Unlock()
	if _, exists := globalFilters[name]; exists {
		return apperr.Conflict("filter already registered: " + name)
	}
	globalFilters[name] = filter
	return nil
}

// AddFilter registers an instance-scoped filter, shadowing a global one of
// the same name. Duplicate instance names fail.
func (db *Database) AddFilter(name string, filter Filter) error {
	if _, exists := db.filters[name]; exists {
		return apperr.Conflict("filter already registered: " + name)
	}
	db.filters[name] = filter
	return nil
}

func (db *Database) filter(name string) (Filter, bool) {
	if f, ok := db.filters[name]; ok {
		return f, true
	}
	filtersMu.RLock()
	defer filtersMu.RUnlock()
	f, ok := globalFilters[name]
	return f, ok
}

// # Application

// encodeDocument applies every attribute's declared filters in order.
// Filter failures surface as Database errors tagged with the field.
func (db *Database) encodeDocument(ctx context.Context, collection *schema.Collection, document *doc.Doc) error {
	for _, attribute := range collection.Attributes {
		if len(attribute.Filters) == 0 || !document.Has(attribute.Name()) {
			continue
		}
		value := document.Get(attribute.Name())
		for _, name := range attribute.Filters {
			filter, ok := db.filter(name)
			if !ok || filter.Encode == nil {
				continue
			}
			encoded, err := filter.Encode(ctx, value, document, db)
			if err != nil {
				return apperr.Database("filter encode failed", err).WithField(attribute.Name())
			}
			value = encoded
		}
		document.Set(attribute.Name(), value)
	}
	return nil
}

// decodeDocument applies declared filters in reverse order.
func (db *Database) decodeDocument(ctx context.Context, collection *schema.Collection, document *doc.Doc) error {
	for _, attribute := range collection.Attributes {
		if len(attribute.Filters) == 0 || !document.Has(attribute.Name()) {
			continue
		}
		value := document.Get(attribute.Name())
		for i := len(attribute.Filters) - 1; i >= 0; i-- {
			filter, ok := db.filter(attribute.Filters[i])
			if !ok || filter.Decode == nil {
				continue
			}
			decoded, err := filter.Decode(ctx, value, document, db)
			if err != nil {
				return apperr.Database("filter decode failed", err).WithField(attribute.Name())
			}
			value = decoded
		}
		document.Set(attribute.Name(), value)
	}
	return nil
}

// # Built-ins

func init() {
	globalFilters["json"] = Filter{Encode: encodeJSON, Decode: decodeJSON}
	globalFilters["datetime"] = Filter{Encode: encodeDateTime, Decode: decodeDateTime}
}

func encodeJSON(_ context.Context, value any, _ *doc.Doc, _ *Database) (any, error) {
	if value == nil {
		return nil, nil
	}
	if d, ok := value.(*doc.Doc); ok {
		value = d.Map(nil, nil)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func decodeJSON(_ context.Context, value any, _ *doc.Doc, _ *Database) (any, error) {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		// Already structured; nothing to parse.
		return value, nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	return liftParsed(parsed), nil
}

// liftParsed turns $id-bearing objects back into documents after parsing.
func liftParsed(value any) any {
	switch v := value.(type) {
	case map[string]any:
		_, hasID := v[doc.FieldID]
		_, hasCollection := v[doc.FieldCollection]
		if hasID || hasCollection {
			if d, err := doc.FromMap(v); err == nil {
				return d
			}
		}
		for key, item := range v {
			v[key] = liftParsed(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = liftParsed(item)
		}
		return v
	}
	return value
}

func encodeDateTime(_ context.Context, value any, _ *doc.Doc, _ *Database) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return doc.FormatDateTime(v), nil
	case string:
		if v == "" {
			return nil, nil
		}
		if _, err := doc.ParseDateTime(v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, apperr.Validationf("cannot encode %T as datetime", value)
}

func decodeDateTime(_ context.Context, value any, _ *doc.Doc, _ *Database) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		if v == "" {
			return nil, nil
		}
		return doc.ParseDateTime(v)
	}
	return nil, apperr.Validationf("cannot decode %T as datetime", value)
}
