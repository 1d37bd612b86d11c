// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package convert provides quick type-coercion utilities for dynamic values.

Documents carry loosely typed values (JSON numbers, driver scan results,
caller input), so the storage layer constantly needs fault-tolerant numeric
coercion: returning 0 instead of an error when the dynamic type does not
match.

Do not use this package if distinguishing between malformed data and zero
values is important in your domain logic; assert types explicitly instead.
*/
package convert

// ToInt64 coerces a dynamic numeric value to int64, silencing mismatches.
// It returns 0 for nil or non-numeric values.
func ToInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	}
	return 0
}

// ToFloat64 coerces a dynamic numeric value to float64, silencing
// mismatches. It returns 0 for nil or non-numeric values.
func ToFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int16:
		return float64(n)
	}
	return 0
}

// ToBool coerces a dynamic value to bool. It returns false for anything
// that is not a bool.
func ToBool(v any) bool {
	b, _ := v.(bool)
	return b
}
