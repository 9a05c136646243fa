package authclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityCapabilities(t *testing.T) {
	t.Parallel()

	user := &Identity{UserID: "user-1", Roles: []Role{RoleUser}}
	admin := &Identity{UserID: "admin-1", Roles: []Role{RoleAdmin}}
	svc := &Identity{UserID: "svc-1", Roles: []Role{RoleServiceAccount}}

	t.Run("only service accounts provision", func(t *testing.T) {
		assert.False(t, user.CanProvision())
		assert.False(t, admin.CanProvision())
		assert.True(t, svc.CanProvision())
	})

	t.Run("elevated roles access any server", func(t *testing.T) {
		assert.True(t, admin.CanAccess("user-1"))
		assert.True(t, svc.CanAccess("user-1"))
	})

	t.Run("users access only their own servers", func(t *testing.T) {
		assert.True(t, user.CanAccess("user-1"))
		assert.False(t, user.CanAccess("user-2"))
	})

	t.Run("no roles means no access", func(t *testing.T) {
		nobody := &Identity{UserID: "x"}
		assert.False(t, nobody.CanProvision())
		assert.False(t, nobody.IsElevated())
		assert.False(t, nobody.CanAccess("user-1"))
		assert.True(t, nobody.CanAccess("x"))
	})
}
