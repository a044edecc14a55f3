package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

type RoleService struct {
	Store store.Store
}

// RoleMenus lists every menu alongside the ids granted to one role.
type RoleMenus struct {
	Menus   []domain.Menu
	MenuIDs []int64
}

func (s *RoleService) List(ctx context.Context, f store.RoleFilter) ([]domain.Role, int64, error) {
	return s.Store.Roles().ListRoles(ctx, f)
}

func (s *RoleService) Create(ctx context.Context, r domain.Role) (int64, error) {
	r.RoleName = strings.TrimSpace(r.RoleName)
	if r.RoleName == "" {
		return 0, fmt.Errorf("%w: role_name is required", ErrInvalidInput)
	}

	id, err := s.Store.Roles().CreateRole(ctx, r)
	if errors.Is(err, store.ErrAlreadyExists) {
		return 0, ErrRoleNameTaken
	}
	if err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("role created", slog.Int64("role_id", id), slog.String("role_name", r.RoleName))
	return id, nil
}

func (s *RoleService) Update(ctx context.Context, r domain.Role) error {
	r.RoleName = strings.TrimSpace(r.RoleName)
	if r.RoleName == "" {
		return fmt.Errorf("%w: role_name is required", ErrInvalidInput)
	}

	err := s.Store.Roles().UpdateRole(ctx, r)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrRoleNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrRoleNameTaken
	}
	return err
}

// Delete removes roles that no user holds. If any of them is still
// assigned nothing is deleted.
func (s *RoleService) Delete(ctx context.Context, ids []int64) (int64, error) {
	if slices.Contains(ids, domain.SuperAdminRoleID) {
		return 0, ErrRoleProtected
	}

	var deleted int64
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		inUse, err := tx.Roles().CountUsers(ctx, ids)
		if err != nil {
			return err
		}
		if inUse > 0 {
			return ErrRoleInUse
		}
		deleted, err = tx.Roles().DeleteRoles(ctx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("roles deleted", slog.Any("ids", ids), slog.Int64("deleted", deleted))
	return deleted, nil
}

// Menus returns every menu and the ids granted to roleID. The super admin
// role is reported as holding all of them.
func (s *RoleService) Menus(ctx context.Context, roleID int64) (RoleMenus, error) {
	menus, err := s.Store.Menus().ListAllMenus(ctx)
	if err != nil {
		return RoleMenus{}, err
	}

	var ids []int64
	if roleID == domain.SuperAdminRoleID {
		ids = make([]int64, 0, len(menus))
		for _, m := range menus {
			ids = append(ids, m.ID)
		}
	} else {
		ids, err = s.Store.Roles().MenuIDs(ctx, roleID)
		if err != nil {
			return RoleMenus{}, err
		}
	}
	return RoleMenus{Menus: menus, MenuIDs: ids}, nil
}

// SetMenus replaces the menus granted to roleID. Holders see the change at
// their next login.
func (s *RoleService) SetMenus(ctx context.Context, roleID int64, menuIDs []int64) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Roles().GetRoleByID(ctx, roleID); err != nil {
			return err
		}
		return tx.Roles().ReplaceMenus(ctx, roleID, menuIDs)
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrRoleNotFound
	case errors.Is(err, store.ErrBadReference):
		return ErrUnknownReference
	case err != nil:
		return err
	}

	slogx.FromContext(ctx).Info("role menus replaced", slog.Int64("role_id", roleID), slog.Int("menus", len(menuIDs)))
	return nil
}
