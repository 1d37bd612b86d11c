// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package permission

import (
	"strings"

	"github.com/taibuivan/strata/apperr"
)

// Kind is a permission action kind.
type Kind string

const (
	KindCreate Kind = "create"
	KindRead   Kind = "read"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	// KindWrite is a macro kind; [Aggregate] expands it to create, update,
	// and delete. It never reaches storage.
	KindWrite Kind = "write"
)

// Kinds lists every accepted permission kind, macro included.
var Kinds = []Kind{KindCreate, KindRead, KindUpdate, KindDelete, KindWrite}

// Permission pairs an action kind with the role it is granted to.
type Permission struct {
	Kind Kind
	Role Role
}

// # Constructors

// Create grants the create kind to role.
func Create(role Role) Permission { return Permission{Kind: KindCreate, Role: role} }

// Read grants the read kind to role.
func Read(role Role) Permission { return Permission{Kind: KindRead, Role: role} }

// Update grants the update kind to role.
func Update(role Role) Permission { return Permission{Kind: KindUpdate, Role: role} }

// Delete grants the delete kind to role.
func Delete(role Role) Permission { return Permission{Kind: KindDelete, Role: role} }

// Write grants the write macro kind to role.
func Write(role Role) Permission { return Permission{Kind: KindWrite, Role: role} }

// # Parsing and formatting

// Parse parses a canonical permission string such as `read("user:abc")`.
func Parse(s string) (Permission, error) {
	open := strings.Index(s, "(")
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Permission{}, apperr.Validationf("invalid permission format %q", s)
	}

	kind := Kind(s[:open])
	if !validKind(kind) {
		return Permission{}, apperr.Validationf("unknown permission kind %q", string(kind))
	}

	inner := s[open+1 : len(s)-1]
	if len(inner) < 2 || inner[0] != '"' || inner[len(inner)-1] != '"' {
		return Permission{}, apperr.Validationf("permission role must be double-quoted in %q", s)
	}

	role, err := ParseRole(inner[1 : len(inner)-1])
	if err != nil {
		return Permission{}, err
	}
	return Permission{Kind: kind, Role: role}, nil
}

// String renders the canonical permission form; [Parse] round-trips it.
func (p Permission) String() string {
	return string(p.Kind) + `("` + p.Role.String() + `")`
}

// MustParse is [Parse] for statically known-valid strings.
func MustParse(s string) Permission {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// # Aggregation

// Aggregate expands macro kinds and deduplicates the result, preserving
// first-seen order. A `write` permission becomes the create, update, and
// delete terminal kinds for the same role.
func Aggregate(perms []Permission) []Permission {
	seen := make(map[string]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))

	add := func(p Permission) {
		key := p.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}

	for _, p := range perms {
		if p.Kind == KindWrite {
			add(Create(p.Role))
			add(Update(p.Role))
			add(Delete(p.Role))
			continue
		}
		add(p)
	}
	return out
}

// AggregateStrings is [Aggregate] over canonical permission strings.
func AggregateStrings(perms []string) ([]string, error) {
	parsed := make([]Permission, 0, len(perms))
	for _, s := range perms {
		p, err := Parse(s)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, p)
	}
	expanded := Aggregate(parsed)
	out := make([]string, len(expanded))
	for i, p := range expanded {
		out[i] = p.String()
	}
	return out, nil
}

func validKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}
