// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package validator provides the composable predicates the engine runs over
documents, attributes, indexes, and queries before anything reaches storage.

# Contract

Every validator exposes Valid(value) and Description(). Valid reports whether
the value passes; Description explains the most recent failure in
human-readable terms, suitable for a validation error message.

# Concurrency

Validators carry the last failure description and are therefore not safe for
concurrent use. Construct a fresh instance per operation.
*/
package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taibuivan/strata/pkg/doc"
)

// Validator is a single predicate over a candidate value.
type Validator interface {
	// Valid reports whether value passes the predicate.
	Valid(value any) bool
	// Description explains what a passing value looks like, or the most
	// recent failure.
	Description() string
}

// # Text

// Text validates string values by maximum (and optional minimum) rune length
// and an optional allowed character set.
type Text struct {
	// Length is the maximum rune count; 0 means unbounded.
	Length int
	// Min is the minimum rune count.
	Min int
	// AllowedChars restricts the accepted characters when non-empty.
	AllowedChars string

	desc string
}

// NewText returns a text validator bounded to length runes with a minimum
// of min.
func NewText(length, min int) *Text {
	return &Text{Length: length, Min: min}
}

func (v *Text) Valid(value any) bool {
	s, ok := value.(string)
	if !ok {
		v.desc = "value must be a string"
		return false
	}
	runes := utf8.RuneCountInString(s)
	if runes < v.Min {
		v.desc = fmt.Sprintf("value must be at least %d characters", v.Min)
		return false
	}
	if v.Length > 0 && runes > v.Length {
		v.desc = fmt.Sprintf("value must be no longer than %d characters", v.Length)
		return false
	}
	if v.AllowedChars != "" {
		for _, r := range s {
			if !strings.ContainsRune(v.AllowedChars, r) {
				v.desc = fmt.Sprintf("value contains disallowed character %q", r)
				return false
			}
		}
	}
	return true
}

func (v *Text) Description() string {
	if v.desc == "" {
		return fmt.Sprintf("string of at most %d characters", v.Length)
	}
	return v.desc
}

// # Numbers

// Integer accepts native integer values.
type Integer struct{ desc string }

func NewInteger() *Integer { return &Integer{} }

func (v *Integer) Valid(value any) bool {
	switch n := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case float64:
		// JSON decoding may surface integral values as float64.
		if n == math.Trunc(n) {
			return true
		}
	}
	v.desc = "value must be an integer"
	return false
}

func (v *Integer) Description() string {
	if v.desc == "" {
		return "an integer"
	}
	return v.desc
}

// Float accepts native floating point values (integers included).
type Float struct{ desc string }

func NewFloat() *Float { return &Float{} }

func (v *Float) Valid(value any) bool {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
		return true
	}
	v.desc = "value must be a floating point number"
	return false
}

func (v *Float) Description() string {
	if v.desc == "" {
		return "a floating point number"
	}
	return v.desc
}

// Numeric accepts any numeric value.
type Numeric struct{ desc string }

func NewNumeric() *Numeric { return &Numeric{} }

func (v *Numeric) Valid(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	v.desc = "value must be numeric"
	return false
}

func (v *Numeric) Description() string {
	if v.desc == "" {
		return "a numeric value"
	}
	return v.desc
}

// NumberFormat selects how [Range] interprets its bounds.
type NumberFormat string

const (
	FormatInteger NumberFormat = "integer"
	FormatFloat   NumberFormat = "float"
)

// Range validates numbers within [Min, Max], with an integer or float format.
type Range struct {
	Min    float64
	Max    float64
	Format NumberFormat

	desc string
}

// NewRange returns an inclusive numeric range validator.
func NewRange(min, max float64, format NumberFormat) *Range {
	return &Range{Min: min, Max: max, Format: format}
}

func (v *Range) Valid(value any) bool {
	var f float64
	switch n := value.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		v.desc = "value must be numeric"
		return false
	}

	if v.Format == FormatInteger && f != math.Trunc(f) {
		v.desc = "value must be an integer"
		return false
	}
	if f < v.Min || f > v.Max {
		v.desc = fmt.Sprintf("value must be between %v and %v", v.Min, v.Max)
		return false
	}
	return true
}

func (v *Range) Description() string {
	if v.desc == "" {
		return fmt.Sprintf("a number between %v and %v", v.Min, v.Max)
	}
	return v.desc
}

// # Boolean

// Boolean accepts native bool values.
type Boolean struct{ desc string }

func NewBoolean() *Boolean { return &Boolean{} }

func (v *Boolean) Valid(value any) bool {
	if _, ok := value.(bool); ok {
		return true
	}
	v.desc = "value must be a boolean"
	return false
}

func (v *Boolean) Description() string {
	if v.desc == "" {
		return "a boolean"
	}
	return v.desc
}

// # Datetime

// DateTime accepts [time.Time] values or canonical wire-form strings within
// the supported bounds.
type DateTime struct{ desc string }

// Supported timestamp bounds; values outside break timestamptz storage.
var (
	dateTimeMin = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	dateTimeMax = time.Date(9999, 12, 31, 23, 59, 59, 999000000, time.UTC)
)

func NewDateTime() *DateTime { return &DateTime{} }

func (v *DateTime) Valid(value any) bool {
	var t time.Time
	switch raw := value.(type) {
	case time.Time:
		t = raw
	case string:
		parsed, err := doc.ParseDateTime(raw)
		if err != nil {
			v.desc = fmt.Sprintf("value must match the %q form", doc.DateTimeFormat)
			return false
		}
		t = parsed
	default:
		v.desc = "value must be a timestamp"
		return false
	}

	if t.Before(dateTimeMin) || t.After(dateTimeMax) {
		v.desc = "timestamp is outside the supported range"
		return false
	}
	return true
}

func (v *DateTime) Description() string {
	if v.desc == "" {
		return "a timestamp"
	}
	return v.desc
}

// # UUID

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// UUID accepts canonical UUID strings (case-insensitive).
type UUID struct{ desc string }

func NewUUID() *UUID { return &UUID{} }

func (v *UUID) Valid(value any) bool {
	s, ok := value.(string)
	if !ok || !uuidRegex.MatchString(strings.ToLower(s)) {
		v.desc = "value must be a valid UUID"
		return false
	}
	return true
}

func (v *UUID) Description() string {
	if v.desc == "" {
		return "a UUID"
	}
	return v.desc
}

// # JSON

// JSON accepts maps, slices, documents, or strings holding valid JSON.
type JSON struct{ desc string }

func NewJSON() *JSON { return &JSON{} }

func (v *JSON) Valid(value any) bool {
	switch raw := value.(type) {
	case map[string]any, []any, *doc.Doc, nil:
		return true
	case string:
		if json.Valid([]byte(raw)) {
			return true
		}
		v.desc = "string is not valid JSON"
		return false
	}
	v.desc = "value must be a JSON object, array, or encoded string"
	return false
}

func (v *JSON) Description() string {
	if v.desc == "" {
		return "a JSON value"
	}
	return v.desc
}
