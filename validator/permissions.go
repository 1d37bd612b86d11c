// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validator

import (
	"fmt"

	"github.com/taibuivan/strata/pkg/permission"
)

// defaultPermissionCap bounds how many permission strings one document or
// collection may carry.
const defaultPermissionCap = 100

// Permissions validates a list of permission strings: structure of each
// entry plus a length cap on the list.
type Permissions struct {
	// Cap is the maximum number of entries; 0 applies the default.
	Cap int

	desc string
}

// NewPermissions returns a permissions-list validator with the default cap.
func NewPermissions() *Permissions { return &Permissions{} }

func (v *Permissions) Valid(value any) bool {
	entries, ok := toStringList(value)
	if !ok {
		v.desc = "permissions must be a list of strings"
		return false
	}

	cap := v.Cap
	if cap <= 0 {
		cap = defaultPermissionCap
	}
	if len(entries) > cap {
		v.desc = fmt.Sprintf("no more than %d permissions are allowed", cap)
		return false
	}

	for _, entry := range entries {
		if _, err := permission.Parse(entry); err != nil {
			v.desc = fmt.Sprintf("invalid permission %q: %v", entry, err)
			return false
		}
	}
	return true
}

func (v *Permissions) Description() string {
	if v.desc == "" {
		return "a list of permission strings"
	}
	return v.desc
}

// Roles validates a list of role strings with a length cap.
type Roles struct {
	// Cap is the maximum number of entries; 0 applies the default.
	Cap int

	desc string
}

// NewRoles returns a roles-list validator with the default cap.
func NewRoles() *Roles { return &Roles{} }

func (v *Roles) Valid(value any) bool {
	entries, ok := toStringList(value)
	if !ok {
		v.desc = "roles must be a list of strings"
		return false
	}

	cap := v.Cap
	if cap <= 0 {
		cap = defaultPermissionCap
	}
	if len(entries) > cap {
		v.desc = fmt.Sprintf("no more than %d roles are allowed", cap)
		return false
	}

	for _, entry := range entries {
		if _, err := permission.ParseRole(entry); err != nil {
			v.desc = fmt.Sprintf("invalid role %q: %v", entry, err)
			return false
		}
	}
	return true
}

func (v *Roles) Description() string {
	if v.desc == "" {
		return "a list of role strings"
	}
	return v.desc
}

// toStringList coerces []string or []any-of-strings.
func toStringList(value any) ([]string, bool) {
	switch list := value.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case nil:
		return nil, true
	}
	return nil, false
}
