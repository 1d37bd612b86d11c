// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package access implements the engine's authorization state: the active role
set and the enforcement flag.

# Scoping

State lives in two layers. A process-wide default applies when nothing else
is installed. [Init] returns a context carrying a request-scoped store seeded
from the defaults; every mutation through that context affects only the
request, so concurrent requests on one engine instance never observe each
other's role sets.

Context keys use an unexported type so no other package can collide with or
forge the scoped store.
*/
package access

import (
	"context"
	"sync"

	"github.com/taibuivan/strata/pkg/permission"
)

// ctxKey is the private context key type for the scoped store.
type ctxKey struct{}

// store holds one scope's role set and enforcement flag.
//
// roleOrder preserves insertion order for [Roles]; roleSet gives O(1)
// membership checks during [Verify].
type store struct {
	mu        sync.Mutex
	roleOrder []string
	roleSet   map[string]struct{}
	enabled   bool
}

func newStore() *store {
	s := &store{roleSet: make(map[string]struct{}), enabled: true}
	s.setRole(permission.RoleAny)
	return s
}

func (s *store) setRole(role string) {
	if _, ok := s.roleSet[role]; ok {
		return
	}
	s.roleSet[role] = struct{}{}
	s.roleOrder = append(s.roleOrder, role)
}

func (s *store) unsetRole(role string) {
	if _, ok := s.roleSet[role]; !ok {
		return
	}
	delete(s.roleSet, role)
	for i, r := range s.roleOrder {
		if r == role {
			s.roleOrder = append(s.roleOrder[:i], s.roleOrder[i+1:]...)
			break
		}
	}
}

func (s *store) snapshot() ([]string, bool) {
	roles := make([]string, len(s.roleOrder))
	copy(roles, s.roleOrder)
	return roles, s.enabled
}

// defaults is the process-wide fallback store.
var defaults = newStore()

// # Scope management

// Init returns a context carrying a fresh request-scoped store seeded from
// the process-wide defaults. All access mutations through the returned
// context are isolated to it.
func Init(ctx context.Context) context.Context {
	defaults.mu.Lock()
	roles, enabled := defaults.snapshot()
	defaults.mu.Unlock()

	scoped := &store{roleSet: make(map[string]struct{}), enabled: enabled}
	for _, r := range roles {
		scoped.setRole(r)
	}
	return context.WithValue(ctx, ctxKey{}, scoped)
}

// current resolves the active store: the request scope when installed,
// otherwise the process-wide defaults.
func current(ctx context.Context) *store {
	if ctx != nil {
		if s, ok := ctx.Value(ctxKey{}).(*store); ok {
			return s
		}
	}
	return defaults
}

// # Role management

// SetRole adds a role to the active scope. Duplicates are ignored.
func SetRole(ctx context.Context, role string) {
	s := current(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setRole(role)
}

// UnsetRole removes a role from the active scope.
func UnsetRole(ctx context.Context, role string) {
	s := current(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsetRole(role)
}

// Roles returns the active role set in insertion order.
func Roles(ctx context.Context) []string {
	s := current(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	roles, _ := s.snapshot()
	return roles
}

// CleanRoles removes every role from the active scope, including "any".
func CleanRoles(ctx context.Context) {
	s := current(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleOrder = nil
	s.roleSet = make(map[string]struct{})
}

// IsRole reports whether the role is in the active scope.
func IsRole(ctx context.Context, role string) bool {
	s := current(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.roleSet[role]
	return ok
}

// # Enforcement flag

// SetEnabled toggles permission enforcement for the active scope.
func SetEnabled(ctx context.Context, enabled bool) {
	s := current(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Enabled reports whether enforcement is on for the active scope.
func Enabled(ctx context.Context) bool {
	s := current(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Skip disables enforcement for the active scope, runs fn, and restores the
// previous flag even when fn fails.
func Skip(ctx context.Context, fn func(ctx context.Context) error) error {
	s := current(ctx)

	s.mu.Lock()
	previous := s.enabled
	s.enabled = false
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.enabled = previous
		s.mu.Unlock()
	}()

	return fn(ctx)
}

// # Checks

// Verify reports whether the active scope may perform the action kind given
// a document's or collection's permission strings. Enforcement off means
// every action passes. Malformed permission entries never grant.
func Verify(ctx context.Context, kind permission.Kind, permissions []string) bool {
	s := current(ctx)
	s.mu.Lock()
	enabled := s.enabled
	roleSet := make(map[string]struct{}, len(s.roleSet))
	for r := range s.roleSet {
		roleSet[r] = struct{}{}
	}
	s.mu.Unlock()

	if !enabled {
		return true
	}

	for _, raw := range permissions {
		p, err := permission.Parse(raw)
		if err != nil || p.Kind != kind {
			continue
		}
		if _, ok := roleSet[p.Role.String()]; ok {
			return true
		}
	}
	return false
}
