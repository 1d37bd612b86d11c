// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validator

import (
	"fmt"
	"strings"
)

// # Key

const (
	// keyMaxLength bounds identifiers so they fit physical column names.
	keyMaxLength = 36
	keyCharset   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_.-"
)

// internalKeys are the system identifiers callers may only use when the
// validator explicitly allows them.
var internalKeys = map[string]struct{}{
	"$id":        {},
	"$createdAt": {},
	"$updatedAt": {},
}

// Key validates user-supplied identifiers for collections, attributes,
// indexes, and documents.
type Key struct {
	// AllowInternal also accepts the reserved "$id", "$createdAt", and
	// "$updatedAt" identifiers.
	AllowInternal bool

	desc string
}

// NewKey returns a key validator.
func NewKey(allowInternal bool) *Key {
	return &Key{AllowInternal: allowInternal}
}

func (v *Key) Valid(value any) bool {
	s, ok := value.(string)
	if !ok {
		v.desc = "key must be a string"
		return false
	}
	if s == "" {
		v.desc = "key must not be empty"
		return false
	}

	if _, internal := internalKeys[s]; internal {
		if v.AllowInternal {
			return true
		}
		v.desc = fmt.Sprintf("key %q is reserved", s)
		return false
	}

	if len(s) > keyMaxLength {
		v.desc = fmt.Sprintf("key must be no longer than %d characters", keyMaxLength)
		return false
	}
	if strings.ContainsRune("_.-", rune(s[0])) {
		v.desc = "key must not start with an underscore, period, or hyphen"
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(keyCharset, r) {
			v.desc = fmt.Sprintf("key contains disallowed character %q", r)
			return false
		}
	}
	return true
}

func (v *Key) Description() string {
	if v.desc == "" {
		return fmt.Sprintf("an identifier of at most %d characters from [A-Za-z0-9_.-]", keyMaxLength)
	}
	return v.desc
}

// # Label

// Label validates identifiers restricted to alphanumeric characters.
type Label struct{ desc string }

// NewLabel returns a label validator.
func NewLabel() *Label { return &Label{} }

func (v *Label) Valid(value any) bool {
	s, ok := value.(string)
	if !ok || s == "" {
		v.desc = "label must be a non-empty string"
		return false
	}
	if len(s) > keyMaxLength {
		v.desc = fmt.Sprintf("label must be no longer than %d characters", keyMaxLength)
		return false
	}
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum {
			v.desc = fmt.Sprintf("label contains non-alphanumeric character %q", r)
			return false
		}
	}
	return true
}

func (v *Label) Description() string {
	if v.desc == "" {
		return "an alphanumeric label"
	}
	return v.desc
}
