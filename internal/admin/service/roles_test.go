package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
)

func TestRoleService_CRUD(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	id, err := e.roles.Create(ctx, domain.Role{RoleName: "editor", StatusID: domain.StatusEnabled})
	require.NoError(t, err)

	_, err = e.roles.Create(ctx, domain.Role{RoleName: "editor"})
	require.ErrorIs(t, err, service.ErrRoleNameTaken)

	_, err = e.roles.Create(ctx, domain.Role{RoleName: ""})
	require.ErrorIs(t, err, service.ErrInvalidInput)

	require.NoError(t, e.roles.Update(ctx, domain.Role{ID: id, RoleName: "editors", StatusID: domain.StatusDisabled}))
	require.ErrorIs(t, e.roles.Update(ctx, domain.Role{ID: 404, RoleName: "x"}), service.ErrRoleNotFound)
	require.ErrorIs(t, e.roles.Update(ctx, domain.Role{ID: id, RoleName: "super_admin"}), service.ErrRoleNameTaken)

	roles, total, err := e.roles.List(ctx, store.RoleFilter{RoleName: "edit"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "editors", roles[0].RoleName)
}

func TestRoleService_Delete(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.bootstrap(t)

	used, err := e.roles.Create(ctx, domain.Role{RoleName: "used"})
	require.NoError(t, err)
	free, err := e.roles.Create(ctx, domain.Role{RoleName: "free"})
	require.NoError(t, err)

	uid := e.createUser(t, "+10000000001", "secret")
	require.NoError(t, e.users.SetRoles(ctx, uid, []int64{used}))

	_, err = e.roles.Delete(ctx, []int64{used, free})
	require.ErrorIs(t, err, service.ErrRoleInUse)

	// Nothing was deleted.
	_, err = e.store.Roles().GetRoleByID(ctx, free)
	require.NoError(t, err)

	_, err = e.roles.Delete(ctx, []int64{domain.SuperAdminRoleID})
	require.ErrorIs(t, err, service.ErrRoleProtected)

	n, err := e.roles.Delete(ctx, []int64{free})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestRoleService_Menus(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	super, err := e.roles.Menus(ctx, domain.SuperAdminRoleID)
	require.NoError(t, err)
	require.Len(t, super.Menus, 20)
	require.Len(t, super.MenuIDs, 20)

	roleID := e.roleSeven(t)
	got, err := e.roles.Menus(ctx, roleID)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 7}, got.MenuIDs)

	require.ErrorIs(t, e.roles.SetMenus(ctx, roleID, []int64{999}), service.ErrUnknownReference)
	require.ErrorIs(t, e.roles.SetMenus(ctx, 404, []int64{3}), service.ErrRoleNotFound)

	require.NoError(t, e.roles.SetMenus(ctx, roleID, nil))
	got, err = e.roles.Menus(ctx, roleID)
	require.NoError(t, err)
	require.Empty(t, got.MenuIDs)
}
