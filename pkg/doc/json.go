// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package doc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// DateTimeFormat is the canonical wire form for timestamps: UTC with
// millisecond precision and no zone designator.
const DateTimeFormat = "2006-01-02 15:04:05.000"

// FormatDateTime renders t in the canonical UTC wire form.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(DateTimeFormat)
}

// ParseDateTime parses the canonical wire form as UTC.
func ParseDateTime(s string) (time.Time, error) {
	return time.ParseInLocation(DateTimeFormat, s, time.UTC)
}

// MarshalJSON renders the document as a JSON object preserving attribute
// order. Timestamps are rendered in the canonical wire form.
func (d *Doc) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		nameJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(nameJSON)
		buf.WriteByte(':')
		valueJSON, err := marshalValue(d.values[key])
		if err != nil {
			return nil, fmt.Errorf("doc: marshal %q: %w", key, err)
		}
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	switch t := v.(type) {
	case *Doc:
		return t.MarshalJSON()
	case time.Time:
		return json.Marshal(FormatDateTime(t))
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalValue(item)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(v)
	}
}

// UnmarshalJSON decodes a JSON object into the document, preserving key
// order. Integral numbers decode to int64, fractional numbers to float64.
// Nested objects bearing "$id" or "$collection" are lifted to child
// documents.
func (d *Doc) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("doc: expected JSON object, got %v", token)
	}

	d.keys = nil
	d.values = make(map[string]any)
	return decodeObjectInto(decoder, d)
}

// decodeObjectInto consumes object members up to (and including) the closing
// brace, appending them to d in wire order.
func decodeObjectInto(decoder *json.Decoder, d *Doc) error {
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("doc: expected object key, got %v", keyToken)
		}
		value, err := decodeValue(decoder)
		if err != nil {
			return err
		}
		d.Set(key, value)
	}
	// Closing brace.
	if _, err := decoder.Token(); err != nil {
		return err
	}
	return nil
}

func decodeValue(decoder *json.Decoder) (any, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}

	switch t := token.(type) {
	case json.Delim:
		switch t {
		case '{':
			child := New()
			if err := decodeObjectInto(decoder, child); err != nil {
				return nil, err
			}
			if child.Has(FieldID) || child.Has(FieldCollection) {
				return child, nil
			}
			return child.Map(nil, nil), nil
		case '[':
			var list []any
			for decoder.More() {
				item, err := decodeValue(decoder)
				if err != nil {
					return nil, err
				}
				list = append(list, item)
			}
			if _, err := decoder.Token(); err != nil {
				return nil, err
			}
			if list == nil {
				list = []any{}
			}
			return list, nil
		}
		return nil, fmt.Errorf("doc: unexpected delimiter %v", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	default:
		return token, nil
	}
}

// orderedKeys returns map keys with system fields first (canonical order)
// followed by user attributes sorted by name.
func orderedKeys(m map[string]any) []string {
	system := []string{
		FieldID, FieldSequence, FieldCollection, FieldTenant,
		FieldCreatedAt, FieldUpdatedAt, FieldPermissions,
	}
	keys := make([]string, 0, len(m))
	for _, s := range system {
		if _, ok := m[s]; ok {
			keys = append(keys, s)
		}
	}
	known := make(map[string]struct{}, len(system))
	for _, s := range system {
		known[s] = struct{}{}
	}
	var user []string
	for k := range m {
		if _, ok := known[k]; ok {
			continue
		}
		user = append(user, k)
	}
	sort.Strings(user)
	return append(keys, user...)
}
