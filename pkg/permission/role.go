// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package permission implements the engine's role and permission grammar.

A permission string has the shape:

	<kind>("<role>[:<id>][/<dimension>]")

for example `read("any")`, `update("user:abc/verified")`, or
`delete("team:sales/owner")`. The "write" kind is a macro that expands to
create, update, and delete during [Aggregate]; storage only ever sees the
terminal kinds.
*/
package permission

import (
	"fmt"
	"strings"

	"github.com/taibuivan/strata/apperr"
)

// # Role names

const (
	RoleAny    = "any"
	RoleGuests = "guests"
	RoleUsers  = "users"
	RoleUser   = "user"
	RoleTeam   = "team"
	RoleLabel  = "label"
	RoleMember = "member"
)

// Status dimensions accepted by the user-flavored roles.
const (
	DimensionVerified   = "verified"
	DimensionUnverified = "unverified"
)

// Role is a parsed role string: a name with an optional identifier and an
// optional dimension.
type Role struct {
	Name      string
	ID        string
	Dimension string
}

// # Constructors

// Any grants to everyone, authenticated or not.
func Any() Role { return Role{Name: RoleAny} }

// Guests grants to unauthenticated sessions only.
func Guests() Role { return Role{Name: RoleGuests} }

// Users grants to all authenticated users, optionally narrowed to a
// verification dimension.
func Users(dimension string) Role { return Role{Name: RoleUsers, Dimension: dimension} }

// User grants to a single user id, optionally narrowed to a verification
// dimension.
func User(id, dimension string) Role { return Role{Name: RoleUser, ID: id, Dimension: dimension} }

// Team grants to members of a team, optionally narrowed to a team dimension
// such as a team role.
func Team(id, dimension string) Role { return Role{Name: RoleTeam, ID: id, Dimension: dimension} }

// Label grants to holders of a label.
func Label(id string) Role { return Role{Name: RoleLabel, ID: id} }

// Member grants to a membership id.
func Member(id string) Role { return Role{Name: RoleMember, ID: id} }

// # Parsing and formatting

// ParseRole parses a canonical role string such as "user:abc/verified".
func ParseRole(s string) (Role, error) {
	role := Role{}

	rest := s
	if slash := strings.Index(rest, "/"); slash >= 0 {
		role.Dimension = rest[slash+1:]
		rest = rest[:slash]
	}
	if colon := strings.Index(rest, ":"); colon >= 0 {
		role.ID = rest[colon+1:]
		rest = rest[:colon]
	}
	role.Name = rest

	if err := role.validate(); err != nil {
		return Role{}, err
	}
	return role, nil
}

// String renders the canonical role form; [ParseRole] round-trips it.
func (r Role) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if r.ID != "" {
		b.WriteString(":")
		b.WriteString(r.ID)
	}
	if r.Dimension != "" {
		b.WriteString("/")
		b.WriteString(r.Dimension)
	}
	return b.String()
}

// validate enforces the per-role identifier and dimension rules.
func (r Role) validate() error {
	switch r.Name {
	case RoleAny, RoleGuests:
		if r.ID != "" {
			return apperr.Validationf("role %q does not accept an identifier", r.Name)
		}
		if r.Dimension != "" {
			return apperr.Validationf("role %q does not accept a dimension", r.Name)
		}
	case RoleUsers:
		if r.ID != "" {
			return apperr.Validationf("role %q does not accept an identifier", r.Name)
		}
		if err := r.validateStatusDimension(); err != nil {
			return err
		}
	case RoleUser:
		if r.ID == "" {
			return apperr.Validationf("role %q requires an identifier", r.Name)
		}
		if err := r.validateStatusDimension(); err != nil {
			return err
		}
	case RoleTeam:
		if r.ID == "" {
			return apperr.Validationf("role %q requires an identifier", r.Name)
		}
	case RoleLabel, RoleMember:
		if r.ID == "" {
			return apperr.Validationf("role %q requires an identifier", r.Name)
		}
		if r.Dimension != "" {
			return apperr.Validationf("role %q does not accept a dimension", r.Name)
		}
	case "":
		return apperr.Validation("role name must not be empty")
	default:
		return apperr.Validationf("unknown role %q", r.Name)
	}
	return nil
}

func (r Role) validateStatusDimension() error {
	switch r.Dimension {
	case "", DimensionVerified, DimensionUnverified:
		return nil
	}
	return apperr.Validationf(
		"role %q dimension must be %q or %q, got %q",
		r.Name, DimensionVerified, DimensionUnverified, r.Dimension,
	)
}

// MustParseRole is [ParseRole] for statically known-valid strings.
func MustParseRole(s string) Role {
	r, err := ParseRole(s)
	if err != nil {
		panic(fmt.Sprintf("permission: %v", err))
	}
	return r
}
