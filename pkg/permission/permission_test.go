// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package permission_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/strata/pkg/permission"
)

/*
TestPermission_ParseRoundTrip verifies that canonical permission strings
parse and render back unchanged.
*/
func TestPermission_ParseRoundTrip(t *testing.T) {
	cases := []string{
		`read("any")`,
		`create("users")`,
		`update("user:abc/verified")`,
		`delete("team:sales/owner")`,
		`write("label:vip")`,
		`read("member:m-1")`,
	}
	for _, s := range cases {
		p, err := permission.Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, p.String())
	}
}

/*
TestPermission_ParseRejections verifies the malformed shapes the grammar
refuses.
*/
func TestPermission_ParseRejections(t *testing.T) {
	cases := []string{
		`read`,                  // no parentheses
		`read(any)`,             // unquoted role
		`admin("any")`,          // unknown kind
		`read("")`,              // empty role
		`read("nobody")`,        // unknown role name
		`read("any:x")`,         // any does not take an identifier
		`read("users:u-1")`,     // users does not take an identifier
		`read("user")`,          // user requires an identifier
		`read("users/banned")`,  // invalid status dimension
		`read("label:a/b")`,     // label does not take a dimension
	}
	for _, s := range cases {
		_, err := permission.Parse(s)
		assert.Error(t, err, s)
	}
}

/*
TestRole_Constructors verifies the constructor-to-string mapping.
*/
func TestRole_Constructors(t *testing.T) {
	assert.Equal(t, "any", permission.Any().String())
	assert.Equal(t, "guests", permission.Guests().String())
	assert.Equal(t, "users/verified", permission.Users("verified").String())
	assert.Equal(t, "user:u-1", permission.User("u-1", "").String())
	assert.Equal(t, "team:t-1/owner", permission.Team("t-1", "owner").String())
	assert.Equal(t, "label:vip", permission.Label("vip").String())
	assert.Equal(t, "member:m-1", permission.Member("m-1").String())
}

/*
TestAggregate verifies macro expansion and deduplication.
*/
func TestAggregate(t *testing.T) {
	// 1. write expands to the three terminal kinds for the same role
	out := permission.Aggregate([]permission.Permission{
		permission.Write(permission.Any()),
	})
	require.Len(t, out, 3)
	assert.Equal(t, permission.KindCreate, out[0].Kind)
	assert.Equal(t, permission.KindUpdate, out[1].Kind)
	assert.Equal(t, permission.KindDelete, out[2].Kind)

	// 2. duplicates collapse, first-seen order wins
	out = permission.Aggregate([]permission.Permission{
		permission.Update(permission.Any()),
		permission.Write(permission.Any()),
		permission.Update(permission.Any()),
	})
	rendered := make([]string, len(out))
	for i, p := range out {
		rendered[i] = p.String()
	}
	assert.Equal(t, []string{
		`update("any")`,
		`create("any")`,
		`delete("any")`,
	}, rendered)
}

/*
TestAggregateStrings verifies the string-level wrapper, including its error
propagation.
*/
func TestAggregateStrings(t *testing.T) {
	// 1. valid input expands and renders canonically
	out, err := permission.AggregateStrings([]string{`write("user:u-1")`, `read("any")`})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`create("user:u-1")`,
		`update("user:u-1")`,
		`delete("user:u-1")`,
		`read("any")`,
	}, out)

	// 2. a malformed entry fails the whole batch
	_, err = permission.AggregateStrings([]string{`read("any")`, `broken`})
	assert.Error(t, err)
}
